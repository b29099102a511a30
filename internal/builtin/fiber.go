package builtin

import (
	"fmt"

	"luby/internal/fiber"
	"luby/internal/object"
	"luby/internal/vm"
)

// installFiber wires cooperative scheduler onto the Fiber
// class bootstrapCoreClasses already registered as an empty Object
// subclass: instances carry an *fiber.State in their Native slot, the
// same opaque-userdata mechanism the embedding API uses.
//
// Fiber.new takes a required block rather than running through the
// generic Class#new/initialize protocol, so object.go's Class#new
// forwards to fiberCtor instead of instantiating directly.
var fiberCtor func(m *vm.VM, args []object.Value, block object.Value) (object.Value, error)

func installFiber(m *vm.VM) {
	fiberClass := m.Classes["Fiber"]

	fiberCtor = func(m *vm.VM, args []object.Value, block object.Value) (object.Value, error) {
		if block == nil {
			return nil, m.Raise("ArgumentError", "Fiber.new requires a block")
		}
		state := fiber.New(m, block)
		inst := object.NewInstance(fiberClass)
		inst.Native = state
		return inst, nil
	}

	def(fiberClass, "resume", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		state, err := fiberOf(self)
		if err != nil {
			return nil, err
		}
		val, ferr := state.Resume(args)
		if ferr != nil {
			return nil, ferr
		}
		return val, nil
	})
	def(fiberClass, "alive?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		state, err := fiberOf(self)
		if err != nil {
			return nil, err
		}
		return state.Alive(), nil
	})

	fiberClass.StaticMethods["yield"] = &object.Method{
		Name:       "yield",
		Visibility: object.Public,
		Native: func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
			return fiber.Yield(arg(args, 0)), nil
		},
	}
	fiberClass.StaticMethods["current"] = &object.Method{
		Name:       "current",
		Visibility: object.Public,
		Native: func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
			cur := fiber.Current()
			if cur == nil {
				return nil, nil
			}
			inst := object.NewInstance(fiberClass)
			inst.Native = cur
			return inst, nil
		},
	}
}

func fiberOf(v object.Value) (*fiber.State, error) {
	inst, ok := v.(*object.Instance)
	if !ok {
		return nil, fmt.Errorf("not a Fiber")
	}
	state, ok := inst.Native.(*fiber.State)
	if !ok {
		return nil, fmt.Errorf("not a Fiber")
	}
	return state, nil
}
