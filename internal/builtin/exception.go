package builtin

import (
	"luby/internal/object"
	"luby/internal/vm"
)

// installException attaches Exception#initialize/#message/#to_s, which
// every rescued StandardError/Exception instance gets dispatched through
// on its way into a rescue clause's bound variable (vm.dispatchError
// pre-sets IVars["message"] directly; these let a subclass's own
// `initialize(msg)`/`super(msg)` do the same from script code).
func installException(m *vm.VM) {
	cls := m.Classes["Exception"]

	def(cls, "initialize", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		inst, ok := self.(*object.Instance)
		if !ok {
			return nil, nil
		}
		if msg, ok := arg(args, 0).(*object.StringObj); ok {
			inst.IVars["message"] = msg
		} else if len(args) > 0 {
			inst.IVars["message"] = object.NewString(toS(c, args[0]))
		}
		return inst, nil
	})
	def(cls, "message", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		inst, ok := self.(*object.Instance)
		if !ok {
			return object.NewString(""), nil
		}
		if msg, ok := inst.IVars["message"]; ok {
			return msg, nil
		}
		return object.NewString(inst.Class.Name), nil
	})
	def(cls, "to_s", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return c.CallMethod(self, "message", nil, nil)
	})
	def(cls, "inspect", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		inst, ok := self.(*object.Instance)
		if !ok {
			return object.NewString(""), nil
		}
		msg, _ := c.CallMethod(self, "message", nil, nil)
		return object.NewString("#<" + inst.Class.Name + ": " + toS(c, msg) + ">"), nil
	})
	def(cls, "backtrace", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		inst, ok := self.(*object.Instance)
		if !ok {
			return nil, nil
		}
		if bt, ok := inst.IVars["__backtrace"]; ok {
			return bt, nil
		}
		return nil, nil
	})
}
