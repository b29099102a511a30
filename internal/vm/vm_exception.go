package vm

import (
	"luby/internal/bytecode"
	lubyerrors "luby/internal/errors"
	"luby/internal/object"
)

// buildRaised turns a RAISE opcode's operand into a *lubyerrors.LubyError.
// The operand is either Nil (bare `raise`, re-raises $! — not tracked in
// this minimal core, so it becomes a generic RuntimeError) or a
// 2-element Array [classNameValue, messageValue] built by
// compiler.compileRaise.
func (vm *VM) buildRaised(payload object.Value, file string, line int) error {
	if payload == nil {
		return lubyerrors.NewRuntimeError("unhandled exception", file, line)
	}
	arr, ok := payload.(*object.ArrayObj)
	if !ok || len(arr.Elements) != 2 {
		return lubyerrors.NewRuntimeError("unhandled exception", file, line)
	}
	classVal, msgVal := arr.Elements[0], arr.Elements[1]

	// `raise SomeError.new("msg")` and bare `raise SomeError` both parse
	// as a single Message expression with no ClassExpr (parser.parseRaise);
	// recover the real class from the value itself instead of always
	// falling back to RuntimeError.
	if classVal == nil {
		switch v := msgVal.(type) {
		case *object.Instance:
			if isDescendantOf(vm, v.Class.Name, "Exception") {
				return lubyerrors.New(lubyerrors.Kind(v.Class.Name), instanceMessage(v), file, line, 0)
			}
		case *object.Class:
			return lubyerrors.New(lubyerrors.Kind(v.Name), v.Name, file, line, 0)
		}
	}

	kind := lubyerrors.RuntimeError
	if classVal != nil {
		if cls, ok := classVal.(*object.Class); ok {
			kind = lubyerrors.Kind(cls.Name)
		}
	}
	msg := ""
	switch m := msgVal.(type) {
	case *object.StringObj:
		msg = m.String()
	case *object.Instance:
		msg = instanceMessage(m)
	case nil:
		msg = string(kind)
	default:
		msg = inspectForError(m)
	}
	return lubyerrors.New(kind, msg, file, line, 0)
}

func instanceMessage(inst *object.Instance) string {
	if s, ok := inst.IVars["message"].(*object.StringObj); ok {
		return s.String()
	}
	return inst.Class.Name
}

// dispatchError searches the current frame's exception table for a
// handler covering the pc the error occurred at. A matching rescue
// clears the error (returns nil so the caller resumes at the handler
// pc); a covering ensure runs first and then the original error keeps
// propagating. Returns the error still to propagate, or nil once
// handled.
func (vm *VM) dispatchError(f *Frame, err error, stackPtr *[]object.Value) error {
	le, isLuby := err.(*lubyerrors.LubyError)
	pc := f.pc - 1
	if pc < 0 {
		pc = 0
	}
	for _, h := range f.proto.HandlersCovering(pc) {
		if h.Kind == bytecode.HandlerEnsure {
			vm.runEnsure(f, h)
			continue
		}
		if !isLuby {
			continue
		}
		if !handlerMatches(vm, h, f.proto, le) {
			continue
		}
		*stackPtr = (*stackPtr)[:0]
		excVal := object.NewInstance(vm.classFor(le.Kind))
		excVal.IVars["message"] = object.NewString(le.Message)
		*stackPtr = append(*stackPtr, excVal)
		f.pc = h.HandlerPC
		f.retryTarget = h.StartPC
		return nil
	}
	return err
}

func handlerMatches(vm *VM, h bytecode.Handler, proto *bytecode.Proto, le *lubyerrors.LubyError) bool {
	if h.FilterConstIdx < 0 {
		return isDescendantOf(vm, string(le.Kind), "StandardError")
	}
	names, _ := proto.Constants[h.FilterConstIdx].([]string)
	for _, n := range names {
		if isDescendantOf(vm, string(le.Kind), n) {
			return true
		}
	}
	return false
}

func isDescendantOf(vm *VM, kind, ancestor string) bool {
	if kind == ancestor {
		return true
	}
	c, ok := vm.Classes[kind]
	if !ok {
		return false
	}
	for cur := c.Super; cur != nil; cur = cur.Super {
		if cur.Name == ancestor {
			return true
		}
	}
	return false
}

func (vm *VM) classFor(kind lubyerrors.Kind) *object.Class {
	if c, ok := vm.Classes[string(kind)]; ok {
		return c
	}
	return vm.Classes["RuntimeError"]
}

// runEnsuresCovering runs every Ensure handler whose protected range
// covers f's current pc, innermost first. break/next/redo unwind out of
// a block through any ensure blocks in their own path to the block's
// edge (they never trigger a rescue — only raise does), so this skips
// HandlerRescue entries entirely rather than sharing dispatchError's
// matching logic.
func (vm *VM) runEnsuresCovering(f *Frame) {
	pc := f.pc - 1
	if pc < 0 {
		pc = 0
	}
	for _, h := range f.proto.HandlersCovering(pc) {
		if h.Kind == bytecode.HandlerEnsure {
			vm.runEnsure(f, h)
		}
	}
}

// runEnsure executes an ensure block's compiled range against the same
// frame's locals and upvalues, bounded to [HandlerPC, EndPC) via
// stopPC so it can't run on into whatever code follows the begin/end.
// The ensure body's own statement values are discarded, matching
// Ruby's "ensure's result is not the block's result" rule.
func (vm *VM) runEnsure(f *Frame, h bytecode.Handler) {
	sub := &Frame{
		proto:        f.proto,
		pc:           h.HandlerPC,
		stopPC:       h.EnsureEnd,
		locals:       f.locals,
		self:         f.self,
		block:        f.block,
		upvalues:     f.upvalues,
		openUpvalues: f.openUpvalues,
		openClass:    f.openClass,
		retryTarget:  -1,
	}
	vm.runFrame(sub)
}
