package vm

import (
	"luby/internal/bytecode"
	"luby/internal/object"
)

// Frame is one activation record: a Proto plus its local-variable slots,
// open upvalues, and the open class being defined (nil unless executing
// a class/module body).
type Frame struct {
	proto    *bytecode.Proto
	pc       int
	locals   []object.Value
	self     object.Value
	block    object.Value // the block passed to this call, or nil
	upvalues []*object.Upvalue
	openUpvalues map[int]*object.Upvalue

	openClass      *object.Class
	savedOpenClass *object.Class
	savedSelf      object.Value
	cache          object.MethodCache

	// definingClass is the class/module on which the method this frame
	// is executing was defined (method.Owner at dispatch time), nil for
	// block/top-level frames. execSuper starts its ancestor search
	// strictly after this class rather than after the first ancestor
	// that happens to define the same method name.
	definingClass *object.Class

	// retryTarget supports `retry` inside a rescue clause: it is set to
	// the covering Handler's StartPC while a handler is executing, and
	// -1 otherwise.
	retryTarget int

	// stopPC bounds execution to a single Handler's ensure range when a
	// sub-frame is spun up to run an ensure block out of line (see
	// runEnsure); -1 means run to the Proto's natural end/return.
	stopPC int
}

func newFrame(proto *bytecode.Proto, self object.Value, upvalues []*object.Upvalue, block object.Value) *Frame {
	return &Frame{
		proto:        proto,
		locals:       make([]object.Value, proto.NumLocals),
		self:         self,
		block:        block,
		upvalues:     upvalues,
		openUpvalues: map[int]*object.Upvalue{},
		retryTarget:  -1,
		stopPC:       -1,
	}
}

func (f *Frame) upvalueFor(slot int) *object.Upvalue {
	if uv, ok := f.openUpvalues[slot]; ok {
		return uv
	}
	uv := &object.Upvalue{Closed: f.locals[slot], StackIdx: slot}
	f.openUpvalues[slot] = uv
	return uv
}

func (f *Frame) closeUpvalues() {
	for _, uv := range f.openUpvalues {
		if uv.IsOpen {
			uv.Closed = f.locals[uv.StackIdx]
			uv.IsOpen = false
		}
	}
}

func (f *Frame) getLocal(idx int) object.Value {
	uv, ok := f.openUpvalues[idx]
	if ok && !uv.IsOpen {
		return uv.Closed
	}
	return f.locals[idx]
}

func (f *Frame) setLocal(idx int, v object.Value) {
	if uv, ok := f.openUpvalues[idx]; ok && !uv.IsOpen {
		uv.Closed = v
		return
	}
	f.locals[idx] = v
}
