package builtin

import (
	"luby/internal/object"
	"luby/internal/vm"
)

// installHash attaches the insertion-ordered Hash surface.
func installHash(m *vm.VM) {
	cls := m.Classes["Hash"]

	def(cls, "[]", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		h, ok := self.(*object.HashObj)
		if !ok {
			return nil, nil
		}
		v, _ := h.Get(arg(args, 0))
		return v, nil
	})
	def(cls, "[]=", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		h, ok := self.(*object.HashObj)
		if !ok {
			return nil, nil
		}
		if object.IsFrozen(h) {
			return nil, m.Raise("FrozenError", "can't modify frozen Hash")
		}
		val := arg(args, 1)
		h.Set(arg(args, 0), val)
		return val, nil
	})
	def(cls, "store", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return c.CallMethod(self, "[]=", args, nil)
	})
	def(cls, "fetch", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		h, ok := self.(*object.HashObj)
		if !ok {
			return nil, nil
		}
		v, found := h.Get(arg(args, 0))
		if found {
			return v, nil
		}
		if block != nil {
			return c.CallBlock(block, []object.Value{arg(args, 0)})
		}
		if len(args) > 1 {
			return args[1], nil
		}
		return nil, m.Raise("KeyError", "key not found")
	})
	def(cls, "key?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		h, ok := self.(*object.HashObj)
		if !ok {
			return false, nil
		}
		_, found := h.Get(arg(args, 0))
		return found, nil
	})
	def(cls, "has_key?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return c.CallMethod(self, "key?", args, nil)
	})
	def(cls, "include?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return c.CallMethod(self, "key?", args, nil)
	})
	def(cls, "delete", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		h, ok := self.(*object.HashObj)
		if !ok {
			return nil, nil
		}
		if object.IsFrozen(h) {
			return nil, m.Raise("FrozenError", "can't modify frozen Hash")
		}
		v, found := h.Get(arg(args, 0))
		if !found {
			return nil, nil
		}
		h.Delete(arg(args, 0))
		return v, nil
	})
	def(cls, "keys", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		h, ok := self.(*object.HashObj)
		if !ok {
			return object.NewArray(), nil
		}
		var out []object.Value
		h.Each(func(k, v object.Value) bool {
			out = append(out, k)
			return true
		})
		return object.NewArray(out...), nil
	})
	def(cls, "values", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		h, ok := self.(*object.HashObj)
		if !ok {
			return object.NewArray(), nil
		}
		var out []object.Value
		h.Each(func(k, v object.Value) bool {
			out = append(out, v)
			return true
		})
		return object.NewArray(out...), nil
	})
	def(cls, "length", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		h, ok := self.(*object.HashObj)
		if !ok {
			return int64(0), nil
		}
		return int64(h.Len()), nil
	})
	def(cls, "size", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return c.CallMethod(self, "length", args, nil)
	})
	def(cls, "empty?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		h, ok := self.(*object.HashObj)
		return !ok || h.Len() == 0, nil
	})
	def(cls, "each", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		h, ok := self.(*object.HashObj)
		if !ok || block == nil {
			return self, nil
		}
		var stopErr error
		var brkVal object.Value
		stopped := false
		h.Each(func(k, v object.Value) bool {
			_, err := c.CallBlock(block, []object.Value{k, v})
			if err != nil {
				if brk, ok := err.(*vm.BreakSignal); ok {
					brkVal = brk.Value
					stopped = true
					return false
				}
				stopErr = err
				return false
			}
			return true
		})
		if stopErr != nil {
			return nil, stopErr
		}
		if stopped {
			return brkVal, nil
		}
		return self, nil
	})
	def(cls, "each_pair", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return c.CallMethod(self, "each", args, block)
	})
	def(cls, "map", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		h, ok := self.(*object.HashObj)
		if !ok || block == nil {
			return object.NewArray(), nil
		}
		var out []object.Value
		var err error
		h.Each(func(k, v object.Value) bool {
			var r object.Value
			r, err = c.CallBlock(block, []object.Value{k, v})
			if err != nil {
				return false
			}
			out = append(out, r)
			return true
		})
		if err != nil {
			return nil, err
		}
		return object.NewArray(out...), nil
	})
	def(cls, "select", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		h, ok := self.(*object.HashObj)
		if !ok || block == nil {
			return object.NewHash(), nil
		}
		out := object.NewHash()
		var err error
		h.Each(func(k, v object.Value) bool {
			var r object.Value
			r, err = c.CallBlock(block, []object.Value{k, v})
			if err != nil {
				return false
			}
			if truthy(r) {
				out.Set(k, v)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	})
	def(cls, "merge", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		h, ok := self.(*object.HashObj)
		if !ok {
			return nil, nil
		}
		out := object.NewHash()
		h.Each(func(k, v object.Value) bool {
			out.Set(k, v)
			return true
		})
		for _, a := range args {
			if other, ok := a.(*object.HashObj); ok {
				other.Each(func(k, v object.Value) bool {
					out.Set(k, v)
					return true
				})
			}
		}
		return out, nil
	})
	def(cls, "merge!", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		h, ok := self.(*object.HashObj)
		if !ok {
			return nil, nil
		}
		for _, a := range args {
			if other, ok := a.(*object.HashObj); ok {
				other.Each(func(k, v object.Value) bool {
					h.Set(k, v)
					return true
				})
			}
		}
		return h, nil
	})
	def(cls, "to_a", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		h, ok := self.(*object.HashObj)
		if !ok {
			return object.NewArray(), nil
		}
		var out []object.Value
		h.Each(func(k, v object.Value) bool {
			out = append(out, object.NewArray(k, v))
			return true
		})
		return object.NewArray(out...), nil
	})
	def(cls, "to_h", identityNative)
	def(cls, "freeze", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		object.Freeze(self)
		return self, nil
	})
}
