package vm

import (
	"fmt"
	"math"

	"luby/internal/bytecode"
	lubyerrors "luby/internal/errors"
	"luby/internal/object"
)

func asNumber(v object.Value) (float64, bool, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true, true
	case float64:
		return x, false, true
	}
	return 0, false, false
}

// binaryOp implements the arithmetic and comparison opcodes for the
// numeric core types; anything else dispatches through CallMethod so
// user classes can define operator overloads.
//
// Integer op Integer stays in int64 the whole way through
// rather than round-tripping through float64, which would both lose
// precision outside float64's 53-bit mantissa and truncate toward zero
// instead of toward negative infinity. Mixed int/float or float/float
// operands promote to float64, where IEEE-754 division/truncation is exactly what's
// wanted.
func (vm *VM) binaryOp(op bytecode.OpCode, a, b object.Value, file string, line int) (object.Value, error) {
	ai, aIsInt := a.(int64)
	bi, bIsInt := b.(int64)
	if aIsInt && bIsInt {
		switch op {
		case bytecode.OpAdd:
			return ai + bi, nil
		case bytecode.OpSub:
			return ai - bi, nil
		case bytecode.OpMul:
			return ai * bi, nil
		case bytecode.OpDiv:
			if bi == 0 {
				return nil, lubyerrors.New(lubyerrors.ZeroDivisionError, "divided by 0", file, line, 0)
			}
			return floorDiv(ai, bi), nil
		case bytecode.OpMod:
			if bi == 0 {
				return nil, lubyerrors.New(lubyerrors.ZeroDivisionError, "divided by 0", file, line, 0)
			}
			return floorMod(ai, bi), nil
		case bytecode.OpEqual:
			return ai == bi, nil
		case bytecode.OpNotEqual:
			return ai != bi, nil
		case bytecode.OpGreater:
			return ai > bi, nil
		case bytecode.OpLess:
			return ai < bi, nil
		case bytecode.OpGreaterEqual:
			return ai >= bi, nil
		case bytecode.OpLessEqual:
			return ai <= bi, nil
		}
	}

	af, _, aOK := asNumber(a)
	bf, _, bOK := asNumber(b)
	if aOK && bOK {
		switch op {
		case bytecode.OpAdd:
			return af + bf, nil
		case bytecode.OpSub:
			return af - bf, nil
		case bytecode.OpMul:
			return af * bf, nil
		case bytecode.OpDiv:
			if bf == 0 {
				return nil, lubyerrors.New(lubyerrors.ZeroDivisionError, "divided by 0", file, line, 0)
			}
			return af / bf, nil
		case bytecode.OpMod:
			if bf == 0 {
				return nil, lubyerrors.New(lubyerrors.ZeroDivisionError, "divided by 0", file, line, 0)
			}
			return floorModFloat(af, bf), nil
		case bytecode.OpEqual:
			return af == bf, nil
		case bytecode.OpNotEqual:
			return af != bf, nil
		case bytecode.OpGreater:
			return af > bf, nil
		case bytecode.OpLess:
			return af < bf, nil
		case bytecode.OpGreaterEqual:
			return af >= bf, nil
		case bytecode.OpLessEqual:
			return af <= bf, nil
		}
	}
	if op == bytecode.OpEqual {
		return valueEqual(a, b), nil
	}
	if op == bytecode.OpNotEqual {
		return !valueEqual(a, b), nil
	}
	if op == bytecode.OpAdd {
		if as, ok := a.(*object.StringObj); ok {
			if bs, ok := b.(*object.StringObj); ok {
				return object.NewString(as.String() + bs.String()), nil
			}
		}
		if aa, ok := a.(*object.ArrayObj); ok {
			if ba, ok := b.(*object.ArrayObj); ok {
				out := append(append([]object.Value{}, aa.Elements...), ba.Elements...)
				return object.NewArray(out...), nil
			}
		}
	}
	return vm.CallMethod(a, opMethodName(op), []object.Value{b}, nil)
}

// floorDiv and floorMod implement "integer division
// truncates toward negative infinity" rule, the law pins down
// as x*(y/x) + (y%x) == y for every nonzero x. Go's native `/`/`%`
// truncate toward zero, so the result is adjusted whenever the
// remainder is nonzero and the operands' signs differ.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}

// floorModFloat mirrors floorMod for the mixed int/float and
// float/float path: math.Mod truncates toward zero like Go's own `%`,
// so the same sign adjustment applies.
func floorModFloat(a, b float64) float64 {
	m := math.Mod(a, b)
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}

func opMethodName(op bytecode.OpCode) string {
	switch op {
	case bytecode.OpAdd:
		return "+"
	case bytecode.OpSub:
		return "-"
	case bytecode.OpMul:
		return "*"
	case bytecode.OpDiv:
		return "/"
	case bytecode.OpMod:
		return "%"
	case bytecode.OpEqual:
		return "=="
	case bytecode.OpNotEqual:
		return "!="
	case bytecode.OpGreater:
		return ">"
	case bytecode.OpLess:
		return "<"
	case bytecode.OpGreaterEqual:
		return ">="
	case bytecode.OpLessEqual:
		return "<="
	}
	return "?"
}

func valueEqual(a, b object.Value) bool {
	if as, ok := a.(*object.StringObj); ok {
		if bs, ok := b.(*object.StringObj); ok {
			return as.String() == bs.String()
		}
		return false
	}
	return a == b
}

func (vm *VM) negate(v object.Value, file string, line int) (object.Value, error) {
	switch x := v.(type) {
	case int64:
		return -x, nil
	case float64:
		return -x, nil
	}
	return nil, lubyerrors.New(lubyerrors.TypeError, fmt.Sprintf("can't negate %T", v), file, line, 0)
}

func (vm *VM) indexGet(recv object.Value, args []object.Value, file string, line int) (object.Value, error) {
	switch r := recv.(type) {
	case *object.ArrayObj:
		idx, ok := args[0].(int64)
		if !ok {
			return nil, lubyerrors.New(lubyerrors.TypeError, "array index must be an Integer", file, line, 0)
		}
		i := normalizeIndex(idx, len(r.Elements))
		if i < 0 || i >= len(r.Elements) {
			return nil, nil
		}
		return r.Elements[i], nil
	case *object.HashObj:
		v, _ := r.Get(args[0])
		return v, nil
	case *object.StringObj:
		idx, ok := args[0].(int64)
		if !ok {
			return nil, lubyerrors.New(lubyerrors.TypeError, "string index must be an Integer", file, line, 0)
		}
		i := normalizeIndex(idx, len(r.Value))
		if i < 0 || i >= len(r.Value) {
			return nil, nil
		}
		return object.NewString(string(r.Value[i])), nil
	}
	return vm.CallMethod(recv, "[]", args, nil)
}

func (vm *VM) indexSet(recv object.Value, args []object.Value, value object.Value, file string, line int) error {
	switch r := recv.(type) {
	case *object.ArrayObj:
		idx, ok := args[0].(int64)
		if !ok {
			return lubyerrors.New(lubyerrors.TypeError, "array index must be an Integer", file, line, 0)
		}
		i := normalizeIndex(idx, len(r.Elements))
		for i >= len(r.Elements) {
			r.Elements = append(r.Elements, nil)
		}
		if i < 0 {
			return lubyerrors.New(lubyerrors.NameError, "index too small for array", file, line, 0)
		}
		r.Elements[i] = value
		return nil
	case *object.HashObj:
		r.Set(args[0], value)
		return nil
	}
	_, err := vm.CallMethod(recv, "[]=", append(args, value), nil)
	return err
}

func normalizeIndex(i int64, length int) int {
	if i < 0 {
		return length + int(i)
	}
	return int(i)
}

func getIvar(self object.Value, name string) object.Value {
	inst, ok := self.(*object.Instance)
	if !ok {
		return nil
	}
	return inst.IVars[name]
}

// cvarClass finds the class whose variable table a class-variable
// reference in the current frame belongs to: the open class if f is
// executing a class/module body, otherwise self's class.
func cvarClass(vm *VM, f *Frame) *object.Class {
	if f.openClass != nil {
		return f.openClass
	}
	if c, ok := f.self.(*object.Class); ok {
		return c
	}
	return vm.classOf(f.self)
}

// getCvar climbs from start up the superclass chain looking for the
// nearest class that already has name set, matching Ruby's
// superclass-shared class-variable semantics.
func (vm *VM) getCvar(f *Frame, name string) object.Value {
	for c := cvarClass(vm, f); c != nil; c = c.Super {
		if v, ok := c.ClassVars[name]; ok {
			return v
		}
	}
	return nil
}

// setCvar stores into the nearest ancestor that already defines name,
// so every class sharing that variable sees the write; if no ancestor
// has it yet, it is created on the class where the assignment occurs.
func (vm *VM) setCvar(f *Frame, name string, v object.Value) {
	start := cvarClass(vm, f)
	for c := start; c != nil; c = c.Super {
		if _, ok := c.ClassVars[name]; ok {
			c.ClassVars[name] = v
			return
		}
	}
	if start != nil {
		start.ClassVars[name] = v
	}
}

func setIvar(self object.Value, name string, v object.Value, file string, line int) error {
	inst, ok := self.(*object.Instance)
	if !ok {
		return nil
	}
	if object.IsFrozen(inst) {
		return lubyerrors.New(lubyerrors.FrozenError, fmt.Sprintf("can't modify frozen %s", inst.Class.Name), file, line, 0)
	}
	inst.IVars[name] = v
	return nil
}

func (vm *VM) lookupConst(scope object.Value, name string) object.Value {
	if mod, ok := scope.(*object.Class); ok {
		if v, ok := mod.Constants[name]; ok {
			return v
		}
	}
	if c, ok := vm.Classes[name]; ok {
		return c
	}
	if v, ok := vm.Globals["::"+name]; ok {
		return v
	}
	return nil
}
