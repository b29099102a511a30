// Package vm implements the stack-based bytecode interpreter: method
// dispatch, closures and upvalues, exception unwinding with
// ensure/rescue/retry, and the resource budgets that bound a script's
// execution.
package vm

import (
	"fmt"

	"luby/internal/bytecode"
	lubyerrors "luby/internal/errors"
	"luby/internal/object"
)

type ctrlKind int

const (
	ctrlBreak ctrlKind = iota
	ctrlNext
	ctrlRedo
)

// ctrlSignal is the Go-side representation of a Break/Next/Redo
// bytecode signal unwinding out of a frame. It is never shown to
// scripts; VM.CallBlock translates it into ordinary control flow or,
// for Break, into a *BreakSignal the calling native method can detect.
type ctrlSignal struct {
	kind  ctrlKind
	value object.Value
}

func (c *ctrlSignal) Error() string { return "control signal escaped its block" }

// BreakSignal is returned by CallBlock when the block executed `break`.
// Native iterator methods (each, map, loop, ...) check for it with a
// type assertion and stop iterating, yielding Value as their own result.
type BreakSignal struct{ Value object.Value }

func (b *BreakSignal) Error() string { return "break" }

// Budgets bounds a single Interp's (or Fiber's) resource consumption,
// per instruction/allocation/call-depth/memory meters.
type Budgets struct {
	MaxInstructions int64
	MaxAllocations  int64
	MaxCallDepth    int
	MaxMemoryBytes  int64

	instructions int64
	allocations  int64
	memoryBytes  int64
	depth        int
}

// bytesPerAlloc is a rough per-allocation size estimate used only to
// drive the logical memory_limit meter: the CORE tracks
// allocation *count* precisely but has no reason to mirror the Go
// runtime's actual heap layout, so a flat estimate per array/hash/range
// literal is good enough to make the meter exceedable at all.
const bytesPerAlloc = 64

func (b *Budgets) checkInstruction(file string, line int) error {
	if b.MaxInstructions <= 0 {
		return nil
	}
	b.instructions++
	if b.instructions > b.MaxInstructions {
		return lubyerrors.Budget("instruction limit", file, line)
	}
	return nil
}

func (b *Budgets) checkAlloc(n int64, file string, line int) error {
	b.memoryBytes += n * bytesPerAlloc
	if b.MaxMemoryBytes > 0 && b.memoryBytes > b.MaxMemoryBytes {
		return lubyerrors.Budget("memory limit", file, line)
	}
	if b.MaxAllocations > 0 {
		b.allocations += n
		if b.allocations > b.MaxAllocations {
			return lubyerrors.Budget("allocation limit", file, line)
		}
	}
	return nil
}

func (b *Budgets) checkDepth(file string, line int) error {
	b.depth++
	if b.MaxCallDepth > 0 && b.depth > b.MaxCallDepth {
		return lubyerrors.Budget("stack overflow", file, line)
	}
	return nil
}

func (b *Budgets) leaveDepth() { b.depth-- }

// InstructionCount, AllocationCount and MemoryUsage expose the
// read-only meters lists alongside the limit getters/setters
// (`get_instruction_count / allocation_count / memory_usage`).
func (b *Budgets) InstructionCount() int64 { return b.instructions }
func (b *Budgets) AllocationCount() int64  { return b.allocations }
func (b *Budgets) MemoryUsage() int64      { return b.memoryBytes }

// VM is one interpreter instance: global variables, the root class
// hierarchy, and the resource budgets for the currently running fiber.
type VM struct {
	Globals   map[string]object.Value
	ObjectClass *object.Class
	Classes   map[string]*object.Class // top-level constants that are classes/modules
	TopSelf   object.Value

	Budgets *Budgets

	// VFS is the host-supplied {exists, read} pair used by require/load;
	// nil means no filesystem access has been configured.
	VFS VFS
	SearchPaths []string
	LoadedFiles map[string]bool

	file string
}

// VFS is the host collaborator require/load resolve against.
type VFS interface {
	Exists(path string) bool
	Read(path string) (string, error)
}

func New() *VM {
	objectClass := object.NewClass("Object", nil)
	vm := &VM{
		Globals:     map[string]object.Value{},
		ObjectClass: objectClass,
		Classes:     map[string]*object.Class{"Object": objectClass},
		Budgets:     &Budgets{},
		LoadedFiles: map[string]bool{},
	}
	vm.TopSelf = object.NewInstance(objectClass)
	bootstrapCoreClasses(vm)
	return vm
}

// Run executes a top-level Proto with self bound to the top-level main
// object, as produced by internal/compiler.Compile.
func (vm *VM) Run(proto *bytecode.Proto, file string) (object.Value, error) {
	vm.file = file
	frame := newFrame(proto, vm.TopSelf, nil, nil)
	val, err := vm.runFrame(frame)
	if sig, ok := err.(*ctrlSignal); ok {
		return nil, lubyerrors.NewRuntimeError(fmt.Sprintf("unexpected %v at top level", sig.kind), file, 0)
	}
	return val, err
}

// runFrame is the bytecode dispatch loop for a single call frame.
func (vm *VM) runFrame(f *Frame) (object.Value, error) {
	if err := vm.Budgets.checkDepth(f.proto.Source, 0); err != nil {
		return nil, err
	}
	defer vm.Budgets.leaveDepth()

	var stack []object.Value
	push := func(v object.Value) { stack = append(stack, v) }
	pop := func() object.Value {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	peek := func() object.Value { return stack[len(stack)-1] }

restart:
	for f.pc < len(f.proto.Code) && (f.stopPC < 0 || f.pc < f.stopPC) {
		line := f.proto.LineAt(f.pc)
		if err := vm.Budgets.checkInstruction(f.proto.Source, line); err != nil {
			if e := vm.dispatchError(f, err, &stack); e != nil {
				return nil, e
			}
			goto restart
		}
		op := bytecode.OpCode(f.proto.Code[f.pc])
		f.pc++

		switch op {
		case bytecode.OpConstant:
			idx := f.readByte()
			push(vm.constantValue(f.proto.Constants[idx]))
		case bytecode.OpNil:
			push(nil)
		case bytecode.OpTrue:
			push(true)
		case bytecode.OpFalse:
			push(false)
		case bytecode.OpPop:
			pop()
		case bytecode.OpDup:
			push(peek())

		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod,
			bytecode.OpEqual, bytecode.OpNotEqual, bytecode.OpGreater, bytecode.OpLess,
			bytecode.OpGreaterEqual, bytecode.OpLessEqual:
			b := pop()
			a := pop()
			res, err := vm.binaryOp(op, a, b, f.proto.Source, line)
			if err != nil {
				if e := vm.dispatchError(f, err, &stack); e != nil {
					return nil, e
				}
				goto restart
			}
			push(res)
		case bytecode.OpNegate:
			res, err := vm.negate(pop(), f.proto.Source, line)
			if err != nil {
				if e := vm.dispatchError(f, err, &stack); e != nil {
					return nil, e
				}
				goto restart
			}
			push(res)
		case bytecode.OpNot:
			push(!truthy(pop()))

		case bytecode.OpJump:
			target := f.readUint16()
			f.pc = target
		case bytecode.OpJumpIfFalse:
			target := f.readUint16()
			if !truthy(peek()) {
				f.pc = target
			}
		case bytecode.OpJumpIfTrue:
			target := f.readUint16()
			if truthy(peek()) {
				f.pc = target
			}
		case bytecode.OpAndJump:
			target := f.readUint16()
			if !truthy(peek()) {
				f.pc = target
			} else {
				pop()
			}
		case bytecode.OpOrJump:
			target := f.readUint16()
			if truthy(peek()) {
				f.pc = target
			} else {
				pop()
			}
		case bytecode.OpLoop:
			target := f.readUint16()
			f.pc = target

		case bytecode.OpGetLocal:
			idx := f.readByte()
			push(f.getLocal(idx))
		case bytecode.OpSetLocal:
			idx := f.readByte()
			f.setLocal(idx, peek())
		case bytecode.OpGetUpvalue:
			idx := f.readByte()
			uv := f.upvalues[idx]
			if uv.IsOpen {
				push(uv.Closed)
			} else {
				push(uv.Closed)
			}
		case bytecode.OpSetUpvalue:
			idx := f.readByte()
			f.upvalues[idx].Closed = peek()
			f.upvalues[idx].IsOpen = false
		case bytecode.OpGetGlobal:
			idx := f.readByte()
			name := f.proto.Constants[idx].(string)
			push(vm.Globals[name])
		case bytecode.OpSetGlobal:
			idx := f.readByte()
			name := f.proto.Constants[idx].(string)
			vm.Globals[name] = peek()
		case bytecode.OpDefineGlobal:
			idx := f.readByte()
			name := f.proto.Constants[idx].(string)
			vm.Globals[name] = pop()
		case bytecode.OpGetIvar:
			idx := f.readByte()
			name := f.proto.Constants[idx].(string)
			push(getIvar(f.self, name))
		case bytecode.OpSetIvar:
			idx := f.readByte()
			name := f.proto.Constants[idx].(string)
			value := peek()
			if err := setIvar(f.self, name, value, f.proto.Source, line); err != nil {
				if e := vm.dispatchError(f, err, &stack); e != nil {
					return nil, e
				}
				goto restart
			}
		case bytecode.OpGetCvar:
			idx := f.readByte()
			name := f.proto.Constants[idx].(string)
			push(vm.getCvar(f, name))
		case bytecode.OpSetCvar:
			idx := f.readByte()
			name := f.proto.Constants[idx].(string)
			vm.setCvar(f, name, peek())
		case bytecode.OpGetConst:
			idx := f.readByte()
			name := f.proto.Constants[idx].(string)
			scope := pop()
			push(vm.lookupConst(scope, name))
		case bytecode.OpSetConst:
			idx := f.readByte()
			name := f.proto.Constants[idx].(string)
			if f.openClass != nil {
				f.openClass.Constants[name] = peek()
			} else {
				vm.Globals["::"+name] = peek()
			}
		case bytecode.OpGetSelf:
			push(f.self)

		case bytecode.OpMakeArray:
			n := int(f.readByte())
			if err := vm.Budgets.checkAlloc(1, f.proto.Source, line); err != nil {
				if e := vm.dispatchError(f, err, &stack); e != nil {
					return nil, e
				}
				goto restart
			}
			elems := make([]object.Value, n)
			for i := n - 1; i >= 0; i-- {
				elems[i] = pop()
			}
			push(object.NewArray(elems...))
		case bytecode.OpMakeHash:
			n := int(f.readByte())
			if err := vm.Budgets.checkAlloc(1, f.proto.Source, line); err != nil {
				if e := vm.dispatchError(f, err, &stack); e != nil {
					return nil, e
				}
				goto restart
			}
			h := object.NewHash()
			pairs := make([][2]object.Value, n)
			for i := n - 1; i >= 0; i-- {
				v := pop()
				k := pop()
				pairs[i] = [2]object.Value{k, v}
			}
			for _, p := range pairs {
				h.Set(p[0], p[1])
			}
			push(h)
		case bytecode.OpMakeRange:
			if err := vm.Budgets.checkAlloc(1, f.proto.Source, line); err != nil {
				if e := vm.dispatchError(f, err, &stack); e != nil {
					return nil, e
				}
				goto restart
			}
			excl := truthy(pop())
			to := pop()
			from := pop()
			push(object.NewRange(from, to, excl))
		case bytecode.OpIndexGet:
			argc := int(f.readByte())
			args := make([]object.Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i] = pop()
			}
			recv := pop()
			res, err := vm.indexGet(recv, args, f.proto.Source, line)
			if err != nil {
				if e := vm.dispatchError(f, err, &stack); e != nil {
					return nil, e
				}
				goto restart
			}
			push(res)
		case bytecode.OpIndexSet:
			argc := int(f.readByte())
			value := pop()
			args := make([]object.Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i] = pop()
			}
			recv := pop()
			if err := vm.indexSet(recv, args, value, f.proto.Source, line); err != nil {
				if e := vm.dispatchError(f, err, &stack); e != nil {
					return nil, e
				}
				goto restart
			}
			push(value)

		case bytecode.OpMakeClosure:
			push(vm.makeClosure(f))

		case bytecode.OpCall, bytecode.OpCallMethod, bytecode.OpSend:
			res, err := vm.execCall(f, op, &stack)
			if err != nil {
				if sig, ok := err.(*ctrlSignal); ok {
					return nil, sig
				}
				if e := vm.dispatchError(f, err, &stack); e != nil {
					return nil, e
				}
				goto restart
			}
			push(res)
		case bytecode.OpSuper:
			res, err := vm.execSuper(f, &stack)
			if err != nil {
				if e := vm.dispatchError(f, err, &stack); e != nil {
					return nil, e
				}
				goto restart
			}
			push(res)
		case bytecode.OpYield:
			argc := int(f.readByte())
			args := make([]object.Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i] = pop()
			}
			if f.block == nil {
				err := lubyerrors.New(lubyerrors.NameError, "no block given (yield)", f.proto.Source, line, 0)
				if e := vm.dispatchError(f, err, &stack); e != nil {
					return nil, e
				}
				goto restart
			}
			res, err := vm.CallBlock(f.block, args)
			if err != nil {
				if e := vm.dispatchError(f, err, &stack); e != nil {
					return nil, e
				}
				goto restart
			}
			push(res)
		case bytecode.OpReturn:
			f.closeUpvalues()
			return pop(), nil
		case bytecode.OpBreak:
			v := pop()
			vm.runEnsuresCovering(f)
			return nil, &ctrlSignal{kind: ctrlBreak, value: v}
		case bytecode.OpNext:
			v := pop()
			vm.runEnsuresCovering(f)
			return nil, &ctrlSignal{kind: ctrlNext, value: v}
		case bytecode.OpRedo:
			v := pop()
			vm.runEnsuresCovering(f)
			return nil, &ctrlSignal{kind: ctrlRedo, value: v}

		case bytecode.OpDefineClass:
			res, err := vm.execDefineClass(f, pop())
			if err != nil {
				if e := vm.dispatchError(f, err, &stack); e != nil {
					return nil, e
				}
				goto restart
			}
			push(res)
		case bytecode.OpDefineModule:
			res := vm.execDefineModule(f)
			push(res)
		case bytecode.OpDefineMethod:
			vm.execDefineMethod(f, pop())
			push(nil)
		case bytecode.OpEndClassBody:
			pop()
			push(nil)
			f.openClass = f.savedOpenClass
			f.self = f.savedSelf

		case bytecode.OpRaise:
			payload := pop()
			err := vm.buildRaised(payload, f.proto.Source, line)
			if e := vm.dispatchError(f, err, &stack); e != nil {
				return nil, e
			}
			goto restart
		case bytecode.OpRetry:
			if f.retryTarget < 0 {
				err := lubyerrors.NewRuntimeError("retry used outside of rescue", f.proto.Source, line)
				if e := vm.dispatchError(f, err, &stack); e != nil {
					return nil, e
				}
				goto restart
			}
			f.pc = f.retryTarget
			stack = stack[:0]

		default:
			return nil, lubyerrors.New(lubyerrors.CompileError, fmt.Sprintf("unimplemented opcode %s", op), f.proto.Source, line, 0)
		}
	}
	return nil, nil
}

func (f *Frame) readByte() int {
	b := f.proto.Code[f.pc]
	f.pc++
	return int(b)
}

func (f *Frame) readUint16() int {
	hi := f.proto.Code[f.pc]
	lo := f.proto.Code[f.pc+1]
	f.pc += 2
	return int(hi)<<8 | int(lo)
}

func truthy(v object.Value) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

func (vm *VM) constantValue(c interface{}) object.Value {
	switch x := c.(type) {
	case string:
		return object.NewString(x)
	case bytecode.Symbol:
		return object.Symbol(string(x))
	default:
		return x
	}
}
