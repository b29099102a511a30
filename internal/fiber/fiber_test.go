package fiber

import (
	"testing"

	"luby/internal/object"
)

// fakeCaller runs a Go func directly as a fiber body, standing in for the
// VM's CallBlock during Fiber body execution in isolation from the rest of
// the interpreter.
type fakeCaller struct {
	body func(yield func(object.Value) object.Value) (object.Value, error)
}

func (f *fakeCaller) CallBlock(block object.Value, args []object.Value) (object.Value, error) {
	return f.body(Yield)
}

func (f *fakeCaller) CallMethod(recv object.Value, name string, args []object.Value, block object.Value) (object.Value, error) {
	return nil, nil
}
func (f *fakeCaller) Send(recv object.Value, name string, args []object.Value, block object.Value) (object.Value, error) {
	return nil, nil
}
func (f *fakeCaller) Raise(kind, message string) error { return nil }

func TestFiberResumeYieldRoundTrip(t *testing.T) {
	caller := &fakeCaller{body: func(yield func(object.Value) object.Value) (object.Value, error) {
		a := yield(int64(1))
		ai := a.(int64)
		b := yield(ai + 1)
		bi := b.(int64)
		return bi + 1, nil
	}}
	s := New(caller, nil)

	v1, err := s.Resume(nil)
	if err != nil || v1.(int64) != 1 {
		t.Fatalf("first resume: want 1, got %#v err=%v", v1, err)
	}
	if !s.Alive() {
		t.Fatalf("fiber should still be alive after a yield")
	}

	v2, err := s.Resume([]object.Value{int64(10)})
	if err != nil || v2.(int64) != 11 {
		t.Fatalf("second resume: want 11, got %#v err=%v", v2, err)
	}

	v3, err := s.Resume([]object.Value{int64(100)})
	if err != nil || v3.(int64) != 101 {
		t.Fatalf("third resume: want 101, got %#v err=%v", v3, err)
	}
	if s.Alive() {
		t.Fatalf("fiber should be dead once its body returns")
	}
}

func TestFiberResumeAfterDeathErrors(t *testing.T) {
	caller := &fakeCaller{body: func(yield func(object.Value) object.Value) (object.Value, error) {
		return int64(1), nil
	}}
	s := New(caller, nil)
	if _, err := s.Resume(nil); err != nil {
		t.Fatalf("unexpected error on first resume: %v", err)
	}
	if _, err := s.Resume(nil); err == nil {
		t.Fatalf("want an error resuming a dead fiber")
	}
}

func TestFiberYieldMultipleArgsBecomesArray(t *testing.T) {
	caller := &fakeCaller{body: func(yield func(object.Value) object.Value) (object.Value, error) {
		a := yield(nil) // parks here until the second Resume call below
		return a, nil
	}}
	s := New(caller, nil)
	if _, err := s.Resume(nil); err != nil {
		t.Fatalf("unexpected error on first resume: %v", err)
	}

	v, err := s.Resume([]object.Value{int64(1), int64(2)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	arr, ok := v.(*object.ArrayObj)
	if !ok || len(arr.Elements) != 2 {
		t.Fatalf("want a 2-element array from a multi-arg resume, got %#v", v)
	}
}

func TestCurrentIsNilAtTopLevel(t *testing.T) {
	if Current() != nil {
		t.Fatalf("want no current fiber outside of any Resume call")
	}
}
