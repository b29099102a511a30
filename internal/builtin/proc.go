package builtin

import (
	"luby/internal/object"
	"luby/internal/vm"
)

// installProc attaches Proc/lambda primitives to both the Proc class and
// the Method class (`obj.method(:x)` produces a BoundMethod, which
// CallBlock already accepts anywhere a Proc is, so the two classes share
// the same `call`/`[]`/`===` surface — unified "callable"
// treatment of blocks, lambdas and bound methods).
func installProc(m *vm.VM) {
	for _, cls := range []*object.Class{m.Classes["Proc"], m.Classes["Method"]} {
		def(cls, "call", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
			return c.CallBlock(self, args)
		})
		def(cls, "[]", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
			return c.CallBlock(self, args)
		})
		def(cls, "===", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
			return c.CallBlock(self, args)
		})
		def(cls, "to_proc", identityNative)
		def(cls, "arity", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
			return int64(protoArity(self)), nil
		})
	}
	def(m.Classes["Proc"], "lambda?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		p, ok := self.(*object.Proc)
		return ok && p.IsLambda, nil
	})
}

// protoArity mirrors Ruby's Proc#arity sign convention: a fixed-arity
// callable reports its parameter count; one with optional/rest
// parameters reports -(required+1).
func protoArity(v object.Value) int {
	var required int
	var variable bool
	protoOf := func(arity, optionalAt int, hasRest bool) (int, bool) {
		if optionalAt >= 0 {
			return optionalAt, true
		}
		return arity, hasRest
	}
	switch x := v.(type) {
	case *object.Proc:
		required, variable = protoOf(x.Proto.Arity, x.Proto.OptionalAt, x.Proto.HasRest)
	case *object.BoundMethod:
		if x.Method.Proto == nil {
			return -1
		}
		required, variable = protoOf(x.Method.Proto.Arity, x.Method.Proto.OptionalAt, x.Method.Proto.HasRest)
	default:
		return 0
	}
	if variable {
		return -(required + 1)
	}
	return required
}
