package vm

import (
	"fmt"

	"luby/internal/bytecode"
	lubyerrors "luby/internal/errors"
	"luby/internal/object"
)

// makeClosure reads a MAKE_CLOSURE operand (proto const index, upvalue
// descriptors, trailing lambda flag) and instantiates a Proc, resolving
// each upvalue against the *compiling* frame's own locals/upvalues.
func (vm *VM) makeClosure(f *Frame) object.Value {
	protoIdx := f.readByte()
	proto := f.proto.Constants[protoIdx].(*bytecode.Proto)
	n := f.readByte()
	upvalues := make([]*object.Upvalue, n)
	for i := 0; i < n; i++ {
		fromParentLocal := f.readByte() == 1
		idx := f.readByte()
		if fromParentLocal {
			upvalues[i] = f.upvalueFor(idx)
		} else {
			upvalues[i] = f.upvalues[idx]
		}
	}
	isLambda := f.readByte() == 1
	return object.NewProc(proto, f.self, upvalues, isLambda)
}

// execCall decodes and executes CALL/CALL_METHOD/SEND against the
// current operand stack (passed by pointer so it can grow/shrink in
// place without copying back through the caller).
func (vm *VM) execCall(f *Frame, op bytecode.OpCode, stackPtr *[]object.Value) (object.Value, error) {
	switch op {
	case bytecode.OpCallMethod, bytecode.OpSend:
		callSite := f.pc - 1 // the opcode byte itself identifies this call site within the proto
		nameIdx := f.readByte()
		name, _ := f.proto.Constants[nameIdx].(string)
		argc := f.readByte()
		hasBlock := f.readByte()
		block, args, recv := popCallOperands(stackPtr, argc, hasBlock == 1)
		if op == bytecode.OpSend {
			return vm.callMethod(recv, name, args, block, true, nil, 0)
		}
		return vm.callMethod(recv, name, args, block, false, f, callSite)
	case bytecode.OpCall:
		argc := f.readByte()
		hasBlock := f.readByte()
		_, args, callee := popCallOperands(stackPtr, argc, hasBlock == 1)
		return vm.CallBlock(callee, args)
	}
	return nil, fmt.Errorf("vm: bad call opcode %s", op)
}

func popCallOperands(stackPtr *[]object.Value, argc int, hasBlock bool) (block object.Value, args []object.Value, recv object.Value) {
	stack := *stackPtr
	pop := func() object.Value {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	if hasBlock {
		block = pop()
	}
	args = make([]object.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = pop()
	}
	recv = pop()
	*stackPtr = stack
	return block, args, recv
}

// CallMethod performs ordinary (visibility-respecting) public dispatch.
// It bypasses the per-call-site inline cache (there is no Frame/pc to
// key on from outside the dispatch loop); callers inside runFrame go
// through execCall's cached path instead.
func (vm *VM) CallMethod(recv object.Value, name string, args []object.Value, block object.Value) (object.Value, error) {
	return vm.callMethod(recv, name, args, block, false, nil, 0)
}

// Send satisfies object.Caller's reflective dispatch: it bypasses the
// private/protected visibility check, the same as the SEND opcode and
// the `send`/`public_send`-with-private-methods escape hatch documented
// as permitted in Open Question on explicit-receiver private
// calls.
func (vm *VM) Send(recv object.Value, name string, args []object.Value, block object.Value) (object.Value, error) {
	return vm.callMethod(recv, name, args, block, true, nil, 0)
}

// callMethod is the single method-dispatch path. When f is
// non-nil, the lookup goes through f's per-call-site MethodCache keyed
// on (pc, class, epoch) instead of re-walking the ancestor list on every
// call (cache is nil for CallMethod/Send/reflective callers that have no
// stable bytecode offset to key on).
func (vm *VM) callMethod(recv object.Value, name string, args []object.Value, block object.Value, bypassVisibility bool, f *Frame, callSite int) (object.Value, error) {
	class := vm.classOf(recv)
	if class == nil {
		return nil, lubyerrors.NewRuntimeError(fmt.Sprintf("no class for receiver %v", recv), vm.file, 0)
	}
	// A Class receiver's own singleton methods (`def self.x`, incl. an
	// overridden `self.new`) shadow the shared Class metaclass's generic
	// methods, the same way an object's singleton class shadows its
	// class in ordinary dispatch; so static methods are consulted first.
	var method *object.Method
	var ok bool
	if cls, isClass := recv.(*object.Class); isClass {
		method, ok = staticLookup(cls, name)
	}
	if !ok {
		if f != nil {
			method, ok = f.cache.Lookup(callSite, class, name)
		} else {
			method, ok = class.Lookup(name)
		}
	}
	if !ok || method == nil {
		return nil, lubyerrors.New(lubyerrors.NoMethodError, fmt.Sprintf("undefined method `%s' for %s", name, inspectForError(recv)), vm.file, 0, 0)
	}
	if !bypassVisibility && method.Visibility == object.Private {
		return nil, lubyerrors.New(lubyerrors.NoMethodError, fmt.Sprintf("private method `%s' called", name), vm.file, 0, 0)
	}
	return vm.invoke(method, recv, args, block)
}

func staticLookup(c *object.Class, name string) (*object.Method, bool) {
	for cur := c; cur != nil; cur = cur.Super {
		if cur.StaticMethods != nil {
			if m, ok := cur.StaticMethods[name]; ok {
				return m, true
			}
		}
	}
	return nil, false
}

func inspectForError(v object.Value) string {
	if v == nil {
		return "nil"
	}
	switch x := v.(type) {
	case *object.Instance:
		return x.Class.Name
	case *object.Class:
		return x.Name
	}
	return fmt.Sprintf("%v", v)
}

// Invoke is the host/builtin-facing wrapper around invoke, used by
// native methods that need to call an already-resolved *object.Method
// (e.g. a class's `included`/`inherited` hook).
func (vm *VM) Invoke(method *object.Method, recv object.Value, args []object.Value, block object.Value) (object.Value, error) {
	return vm.invoke(method, recv, args, block)
}

func (vm *VM) invoke(method *object.Method, recv object.Value, args []object.Value, block object.Value) (object.Value, error) {
	if method.Native != nil {
		return method.Native(vm, recv, args, block)
	}
	proto := method.Proto
	frame := newFrame(proto, recv, nil, block)
	frame.definingClass = method.Owner
	if err := bindParams(frame, proto, method.Name, args); err != nil {
		return nil, err
	}
	val, err := frame.execReturnLoop(vm)
	return val, err
}

// execReturnLoop drives runFrame, retrying from a covered rescue's
// StartPC on OpRetry, and turning an escaped Break/Next/Redo signal
// (a block control-flow op used outside of any block) into a
// LocalJumpError-flavored RuntimeError.
func (f *Frame) execReturnLoop(vm *VM) (object.Value, error) {
	val, err := vm.runFrame(f)
	if sig, ok := err.(*ctrlSignal); ok {
		return nil, lubyerrors.NewRuntimeError(fmt.Sprintf("%s outside of block", ctrlName(sig.kind)), f.proto.Source, f.proto.LineAt(f.pc))
	}
	return val, err
}

func ctrlName(k ctrlKind) string {
	switch k {
	case ctrlBreak:
		return "break"
	case ctrlNext:
		return "next"
	case ctrlRedo:
		return "redo"
	}
	return "control"
}

// bindParams assigns positional arguments into a fresh frame's locals,
// performs the arity check (exact match unless the Proto declares
// optional/rest parameters), and — when the Proto declares keyword
// parameters or a **rest catch-all — peels the call's trailing
// keyword-args hash off args first (compileCall folds every `name:
// value` call argument into one hash, appended as the call's last
// argument) and binds it separately via bindKeywords, so the arity
// check only ever sees genuinely positional arguments.
func bindParams(frame *Frame, proto *bytecode.Proto, name string, args []object.Value) error {
	var kwHash *object.HashObj
	if proto.KeywordAt >= 0 || proto.HasKwRest {
		if n := len(args); n > 0 {
			if h, ok := args[n-1].(*object.HashObj); ok {
				kwHash = h
				args = args[:n-1]
			}
		}
		if kwHash == nil {
			kwHash = object.NewHash()
		}
	}

	arityErr := arityError(name, proto, len(args))

	for i, a := range args {
		if i >= len(frame.locals) {
			break
		}
		frame.locals[i] = a
	}

	var kwErr error
	if kwHash != nil {
		kwErr = bindKeywords(frame, proto, kwHash)
	}
	if arityErr != nil {
		return arityErr
	}
	return kwErr
}

// bindKeywords binds each of proto's declared keyword parameters from
// kwHash by name: a required keyword (no default) absent from the hash
// is an ArgumentError; a missing optional keyword is left nil for the
// def body's own default-fill bytecode (compileDef) to assign. Any pair
// left unclaimed lands in **rest as its own Hash, when the def declares
// one.
func bindKeywords(frame *Frame, proto *bytecode.Proto, kwHash *object.HashObj) error {
	consumed := make(map[string]bool, len(proto.Keywords))
	for _, kw := range proto.Keywords {
		v, ok := kwHash.Get(object.Symbol(kw.Name))
		if !ok {
			if kw.Required {
				return lubyerrors.New(lubyerrors.ArgumentError, fmt.Sprintf("missing keyword: :%s", kw.Name), proto.Source, 0, 0)
			}
			continue
		}
		consumed[kw.Name] = true
		if kw.Slot < len(frame.locals) {
			frame.locals[kw.Slot] = v
		}
	}
	if proto.HasKwRest && proto.KwRestSlot >= 0 && proto.KwRestSlot < len(frame.locals) {
		rest := object.NewHash()
		kwHash.Each(func(k, v object.Value) bool {
			if sym, ok := k.(object.Symbol); ok && consumed[string(sym)] {
				return true
			}
			rest.Set(k, v)
			return true
		})
		frame.locals[proto.KwRestSlot] = rest
	}
	return nil
}

func arityError(name string, proto *bytecode.Proto, got int) error {
	min := proto.Arity
	if proto.OptionalAt >= 0 {
		min = proto.OptionalAt
	}
	if proto.HasRest {
		if got < min {
			return lubyerrors.New(lubyerrors.ArgumentError, fmt.Sprintf("wrong number of arguments (given %d, expected %d+)", got, min), "", 0, 0)
		}
		return nil
	}
	if got < min || got > proto.Arity {
		return lubyerrors.New(lubyerrors.ArgumentError, fmt.Sprintf("wrong number of arguments (given %d, expected %d)", got, proto.Arity), "", 0, 0)
	}
	return nil
}

// CallBlock invokes a Proc (a block, lambda, or any Proc value produced
// by MAKE_CLOSURE). `next` becomes the call's ordinary return value;
// `redo` restarts the block body from scratch; `break` is NOT caught
// here — it propagates as *BreakSignal for the calling iterator method
// to detect and stop on, break-exits-the-iterator rule.
func (vm *VM) CallBlock(block object.Value, args []object.Value) (object.Value, error) {
	proc, ok := block.(*object.Proc)
	if !ok {
		if bm, ok := block.(*object.BoundMethod); ok {
			return vm.invoke(bm.Method, bm.Receiver, args, nil)
		}
		return nil, lubyerrors.NewRuntimeError("not a block", vm.file, 0)
	}
	for {
		frame := newFrame(proc.Proto, proc.Self, proc.Upvalues, nil)
		if err := bindParams(frame, proc.Proto, "block", args); err != nil && proc.IsLambda {
			return nil, err
		}
		val, err := vm.runFrame(frame)
		if sig, ok := err.(*ctrlSignal); ok {
			switch sig.kind {
			case ctrlNext:
				return sig.value, nil
			case ctrlRedo:
				continue
			case ctrlBreak:
				return nil, &BreakSignal{Value: sig.value}
			}
		}
		return val, err
	}
}

// Raise satisfies object.Caller for native methods that need to signal
// an error without constructing a full LubyError (e.g. a type-check
// helper in the builtin kernel).
func (vm *VM) Raise(kind, message string) error {
	return lubyerrors.New(lubyerrors.Kind(kind), message, vm.file, 0, 0)
}

// execSuper resolves the method one step above the current frame's
// defining class in the receiver's ancestry and invokes it with either
// the explicit argument list or (zsuper) the current frame's own
// arguments.
//
// The search starts strictly after f.definingClass, not after "whichever
// ancestor happens to be first to define methodName": a 3-level chain
// that redefines the same method name at every level must walk past the
// current frame's own level even though an earlier ancestor also
// defines methodName (e.g. a module included below the subclass that
// reintroduces it).
func (vm *VM) execSuper(f *Frame, stackPtr *[]object.Value) (object.Value, error) {
	argc := f.readByte()
	hasBlock := f.readByte()
	block, args, self := popCallOperands(stackPtr, argc, hasBlock == 1)
	methodName := f.proto.Name
	class := vm.classOf(self)
	ancestors := class.Ancestors()
	past := f.definingClass == nil
	for _, m := range ancestors {
		if !past {
			if m == &f.definingClass.Module {
				past = true
			}
			continue
		}
		if meth, ok := m.Methods[methodName]; ok {
			return vm.invoke(meth, self, args, block)
		}
	}
	return nil, lubyerrors.New(lubyerrors.NoMethodError, fmt.Sprintf("super: no superclass method `%s'", methodName), f.proto.Source, 0, 0)
}
