package builtin

import (
	"luby/internal/object"
	"luby/internal/vm"
)

// installRange attaches the Range surface. Iteration methods work over
// integer ranges only; a non-integer endpoint raises rather than
// silently doing nothing.
func installRange(m *vm.VM) {
	cls := m.Classes["Range"]

	def(cls, "first", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		r, _ := self.(*object.RangeObj)
		if r == nil {
			return nil, nil
		}
		return r.From, nil
	})
	def(cls, "begin", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		r, _ := self.(*object.RangeObj)
		if r == nil {
			return nil, nil
		}
		return r.From, nil
	})
	def(cls, "last", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		r, _ := self.(*object.RangeObj)
		if r == nil {
			return nil, nil
		}
		return r.To, nil
	})
	def(cls, "end", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		r, _ := self.(*object.RangeObj)
		if r == nil {
			return nil, nil
		}
		return r.To, nil
	})
	def(cls, "exclude_end?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		r, _ := self.(*object.RangeObj)
		if r == nil {
			return false, nil
		}
		return r.Exclusive, nil
	})
	def(cls, "to_s", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		r, _ := self.(*object.RangeObj)
		if r == nil {
			return object.NewString(""), nil
		}
		return object.NewString(r.String()), nil
	})
	def(cls, "to_a", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		vals, err := integerSpan(m, self)
		if err != nil {
			return nil, err
		}
		return object.NewArray(vals...), nil
	})
	def(cls, "each", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		vals, err := integerSpan(m, self)
		if err != nil {
			return nil, err
		}
		if block == nil {
			return object.NewArray(vals...), nil
		}
		for _, v := range vals {
			if _, err := c.CallBlock(block, []object.Value{v}); err != nil {
				if brk, ok := err.(*vm.BreakSignal); ok {
					return brk.Value, nil
				}
				return nil, err
			}
		}
		return self, nil
	})
	def(cls, "map", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		vals, err := integerSpan(m, self)
		if err != nil {
			return nil, err
		}
		if block == nil {
			return object.NewArray(vals...), nil
		}
		out := make([]object.Value, 0, len(vals))
		for _, v := range vals {
			r, err := c.CallBlock(block, []object.Value{v})
			if err != nil {
				if brk, ok := err.(*vm.BreakSignal); ok {
					return brk.Value, nil
				}
				return nil, err
			}
			out = append(out, r)
		}
		return object.NewArray(out...), nil
	})
	def(cls, "select", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		vals, err := integerSpan(m, self)
		if err != nil {
			return nil, err
		}
		var out []object.Value
		for _, v := range vals {
			r, err := c.CallBlock(block, []object.Value{v})
			if err != nil {
				if brk, ok := err.(*vm.BreakSignal); ok {
					return brk.Value, nil
				}
				return nil, err
			}
			if truthy(r) {
				out = append(out, v)
			}
		}
		return object.NewArray(out...), nil
	})
	def(cls, "reduce", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		vals, err := integerSpan(m, self)
		if err != nil {
			return nil, err
		}
		return reduceArray(c, vals, args, block)
	})
	def(cls, "include?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return rangeCovers(self, arg(args, 0)), nil
	})
	def(cls, "cover?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return rangeCovers(self, arg(args, 0)), nil
	})
	def(cls, "===", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return rangeCovers(self, arg(args, 0)), nil
	})
	def(cls, "size", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		vals, err := integerSpan(m, self)
		if err != nil {
			return nil, err
		}
		return int64(len(vals)), nil
	})
}

func integerSpan(m *vm.VM, self object.Value) ([]object.Value, error) {
	r, ok := self.(*object.RangeObj)
	if !ok {
		return nil, m.Raise("TypeError", "not a Range")
	}
	from, fok := r.From.(int64)
	to, tok := r.To.(int64)
	if !fok || !tok {
		return nil, m.Raise("TypeError", "can't iterate from non-Integer Range")
	}
	end := to
	if !r.Exclusive {
		end++
	}
	return intRange(from, end), nil
}

func rangeCovers(self, v object.Value) bool {
	r, ok := self.(*object.RangeObj)
	if !ok {
		return false
	}
	from, fok := r.From.(int64)
	to, tok := r.To.(int64)
	n, nok := v.(int64)
	if !fok || !tok || !nok {
		return false
	}
	if n < from {
		return false
	}
	if r.Exclusive {
		return n < to
	}
	return n <= to
}
