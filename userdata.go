package luby

import (
	"runtime"

	"luby/internal/object"
)

// userdataRecord backs host userdata with tombstoning: invalidating the
// Instance doesn't wait for its refcount to hit zero, it just flips
// valid to false so every subsequent Userdata lookup sees a tombstoned
// record and the finalizer, if not already run, runs right away.
type userdataRecord struct {
	payload   interface{}
	finalizer func(interface{})
	valid     bool
}

// userdataClass returns (creating once) the class userdata instances
// are stamped with. It carries no methods of its own; a host typically
// calls DefineClass with this as Super, or DefineMethod directly on it,
// to give its userdata a script-visible interface.
func (i *Interp) userdataClass() *object.Class {
	if c, ok := i.vm.Classes["Userdata"]; ok {
		return c
	}
	c := object.NewClass("Userdata", i.vm.ObjectClass)
	i.vm.Classes["Userdata"] = c
	return c
}

// NewUserdata owns payload internally: the
// interpreter's heap record is the only reference to it until a script
// passes the returned Value somewhere else. finalizer may be nil.
func (i *Interp) NewUserdata(payload interface{}, finalizer func(interface{})) Value {
	return i.newUserdata(payload, finalizer)
}

// WrapUserdata wraps a pointer the host already owns: semantically the payload's lifetime is managed
// externally, but the Go heap record is identical to NewUserdata's —
// there is no separate "owned size" to track once Go's allocator is
// doing the actual allocation.
func (i *Interp) WrapUserdata(ptr interface{}, finalizer func(interface{})) Value {
	return i.newUserdata(ptr, finalizer)
}

func (i *Interp) newUserdata(payload interface{}, finalizer func(interface{})) Value {
	inst := object.NewInstance(i.userdataClass())
	rec := &userdataRecord{payload: payload, finalizer: finalizer, valid: true}
	inst.Native = rec
	if finalizer != nil {
		// Approximates testable property 9 ("a heap with no live
		// references to a userdata calls its finalizer exactly once")
		// using Go's own GC rather than reimplementing refcount-driven
		// collection: once nothing reachable from a script or the host
		// holds inst, the runtime finalizer fires.
		runtime.SetFinalizer(inst, func(inst *object.Instance) {
			finalizeUserdata(inst)
		})
	}
	return inst
}

// InvalidateUserdata tombstones v:
// subsequent Userdata(v) calls return (nil, false) and the finalizer,
// if one was registered and hasn't run yet, runs now instead of waiting
// for collection.
func (i *Interp) InvalidateUserdata(v Value) {
	inst, ok := v.(*object.Instance)
	if !ok {
		return
	}
	finalizeUserdata(inst)
}

func finalizeUserdata(inst *object.Instance) {
	rec, ok := inst.Native.(*userdataRecord)
	if !ok || !rec.valid {
		return
	}
	rec.valid = false
	fn := rec.finalizer
	payload := rec.payload
	rec.payload = nil
	rec.finalizer = nil
	runtime.SetFinalizer(inst, nil)
	if fn != nil {
		fn(payload)
	}
}

// Userdata returns the payload wrapped by NewUserdata/WrapUserdata, or
// (nil, false) if v isn't a userdata Value or has been tombstoned by
// InvalidateUserdata.
func (i *Interp) Userdata(v Value) (interface{}, bool) {
	inst, ok := v.(*object.Instance)
	if !ok {
		return nil, false
	}
	rec, ok := inst.Native.(*userdataRecord)
	if !ok || !rec.valid {
		return nil, false
	}
	return rec.payload, true
}
