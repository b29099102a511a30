package builtin

import (
	"sort"

	"luby/internal/object"
	"luby/internal/vm"
)

// installArray attaches the Enumerable-flavored Array surface:
// each/map/select/reduce and friends all respect `break`: each one checks
// for the *vm.BreakSignal CallBlock returns, stops iterating, and returns
// the signal's value as its own result.
func installArray(m *vm.VM) {
	cls := m.Classes["Array"]

	def(cls, "length", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return int64(len(selfArr(self))), nil
	})
	def(cls, "size", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return int64(len(selfArr(self))), nil
	})
	def(cls, "empty?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return len(selfArr(self)) == 0, nil
	})
	def(cls, "push", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		arr, ok := self.(*object.ArrayObj)
		if !ok {
			return nil, nil
		}
		if object.IsFrozen(arr) {
			return nil, m.Raise("FrozenError", "can't modify frozen Array")
		}
		arr.Elements = append(arr.Elements, args...)
		return arr, nil
	})
	def(cls, "<<", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		arr, ok := self.(*object.ArrayObj)
		if !ok {
			return nil, nil
		}
		if object.IsFrozen(arr) {
			return nil, m.Raise("FrozenError", "can't modify frozen Array")
		}
		arr.Elements = append(arr.Elements, arg(args, 0))
		return arr, nil
	})
	def(cls, "pop", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		arr, ok := self.(*object.ArrayObj)
		if !ok || len(arr.Elements) == 0 {
			return nil, nil
		}
		last := arr.Elements[len(arr.Elements)-1]
		arr.Elements = arr.Elements[:len(arr.Elements)-1]
		return last, nil
	})
	def(cls, "shift", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		arr, ok := self.(*object.ArrayObj)
		if !ok || len(arr.Elements) == 0 {
			return nil, nil
		}
		first := arr.Elements[0]
		arr.Elements = arr.Elements[1:]
		return first, nil
	})
	def(cls, "unshift", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		arr, ok := self.(*object.ArrayObj)
		if !ok {
			return nil, nil
		}
		arr.Elements = append(append([]object.Value{}, args...), arr.Elements...)
		return arr, nil
	})
	def(cls, "first", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		e := selfArr(self)
		if n, ok := arg(args, 0).(int64); ok {
			if n > int64(len(e)) {
				n = int64(len(e))
			}
			return object.NewArray(append([]object.Value{}, e[:n]...)...), nil
		}
		if len(e) == 0 {
			return nil, nil
		}
		return e[0], nil
	})
	def(cls, "last", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		e := selfArr(self)
		if n, ok := arg(args, 0).(int64); ok {
			if n > int64(len(e)) {
				n = int64(len(e))
			}
			return object.NewArray(append([]object.Value{}, e[int64(len(e))-n:]...)...), nil
		}
		if len(e) == 0 {
			return nil, nil
		}
		return e[len(e)-1], nil
	})
	def(cls, "[]", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return sliceArray(selfArr(self), args), nil
	})
	def(cls, "slice", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return sliceArray(selfArr(self), args), nil
	})
	def(cls, "[]=", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		arr, ok := self.(*object.ArrayObj)
		if !ok || len(args) < 2 {
			return nil, nil
		}
		if object.IsFrozen(arr) {
			return nil, m.Raise("FrozenError", "can't modify frozen Array")
		}
		i, _ := args[0].(int64)
		idx := normalizeIndex(i, len(arr.Elements))
		val := args[len(args)-1]
		for idx >= int64(len(arr.Elements)) {
			arr.Elements = append(arr.Elements, nil)
		}
		if idx < 0 {
			return nil, m.Raise("IndexError", "index out of range")
		}
		arr.Elements[idx] = val
		return val, nil
	})
	def(cls, "each", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		if block == nil {
			return self, nil
		}
		for _, e := range selfArr(self) {
			if _, err := c.CallBlock(block, []object.Value{e}); err != nil {
				if brk, ok := err.(*vm.BreakSignal); ok {
					return brk.Value, nil
				}
				return nil, err
			}
		}
		return self, nil
	})
	def(cls, "each_with_index", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		if block == nil {
			return self, nil
		}
		for i, e := range selfArr(self) {
			if _, err := c.CallBlock(block, []object.Value{e, int64(i)}); err != nil {
				if brk, ok := err.(*vm.BreakSignal); ok {
					return brk.Value, nil
				}
				return nil, err
			}
		}
		return self, nil
	})
	def(cls, "map", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		e := selfArr(self)
		if block == nil {
			return object.NewArray(append([]object.Value{}, e...)...), nil
		}
		out := make([]object.Value, 0, len(e))
		for _, v := range e {
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
	def(cls, "collect", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return c.CallMethod(self, "map", args, block)
	})
	def(cls, "map!", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		arr, ok := self.(*object.ArrayObj)
		if !ok || block == nil {
			return self, nil
		}
		for i, v := range arr.Elements {
			r, err := c.CallBlock(block, []object.Value{v})
			if err != nil {
				if brk, ok := err.(*vm.BreakSignal); ok {
					return brk.Value, nil
				}
				return nil, err
			}
			arr.Elements[i] = r
		}
		return arr, nil
	})
	def(cls, "select", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		e := selfArr(self)
		if block == nil {
			return object.NewArray(append([]object.Value{}, e...)...), nil
		}
		var out []object.Value
		for _, v := range e {
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
	def(cls, "filter", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return c.CallMethod(self, "select", args, block)
	})
	def(cls, "reject", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		e := selfArr(self)
		if block == nil {
			return object.NewArray(append([]object.Value{}, e...)...), nil
		}
		var out []object.Value
		for _, v := range e {
			r, err := c.CallBlock(block, []object.Value{v})
			if err != nil {
				if brk, ok := err.(*vm.BreakSignal); ok {
					return brk.Value, nil
				}
				return nil, err
			}
			if !truthy(r) {
				out = append(out, v)
			}
		}
		return object.NewArray(out...), nil
	})
	def(cls, "find", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		if block == nil {
			return nil, nil
		}
		for _, v := range selfArr(self) {
			r, err := c.CallBlock(block, []object.Value{v})
			if err != nil {
				if brk, ok := err.(*vm.BreakSignal); ok {
					return brk.Value, nil
				}
				return nil, err
			}
			if truthy(r) {
				return v, nil
			}
		}
		return nil, nil
	})
	def(cls, "detect", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return c.CallMethod(self, "find", args, block)
	})
	def(cls, "reduce", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return reduceArray(c, selfArr(self), args, block)
	})
	def(cls, "inject", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return reduceArray(c, selfArr(self), args, block)
	})
	def(cls, "all?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		for _, v := range selfArr(self) {
			ok, err := truthyBlockOrArg(c, block, args, v)
			if err != nil {
				return nil, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	})
	def(cls, "any?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		for _, v := range selfArr(self) {
			ok, err := truthyBlockOrArg(c, block, args, v)
			if err != nil {
				return nil, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	})
	def(cls, "none?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		for _, v := range selfArr(self) {
			ok, err := truthyBlockOrArg(c, block, args, v)
			if err != nil {
				return nil, err
			}
			if ok {
				return false, nil
			}
		}
		return true, nil
	})
	def(cls, "count", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		e := selfArr(self)
		if block == nil && len(args) == 0 {
			return int64(len(e)), nil
		}
		n := int64(0)
		for _, v := range e {
			ok, err := truthyBlockOrArg(c, block, args, v)
			if err != nil {
				return nil, err
			}
			if ok {
				n++
			}
		}
		return n, nil
	})
	def(cls, "include?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		target := arg(args, 0)
		for _, v := range selfArr(self) {
			eq, err := c.CallMethod(v, "==", []object.Value{target}, nil)
			if err == nil && truthy(eq) {
				return true, nil
			}
		}
		return false, nil
	})
	def(cls, "join", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		sep := ""
		if s, ok := arg(args, 0).(*object.StringObj); ok {
			sep = s.String()
		}
		parts := make([]string, 0)
		for _, v := range selfArr(self) {
			parts = append(parts, toS(c, v))
		}
		out := ""
		for i, p := range parts {
			if i > 0 {
				out += sep
			}
			out += p
		}
		return object.NewString(out), nil
	})
	def(cls, "reverse", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		e := selfArr(self)
		out := make([]object.Value, len(e))
		for i, v := range e {
			out[len(e)-1-i] = v
		}
		return object.NewArray(out...), nil
	})
	def(cls, "sort", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		e := append([]object.Value{}, selfArr(self)...)
		var sortErr error
		sort.SliceStable(e, func(i, j int) bool {
			if sortErr != nil {
				return false
			}
			if block != nil {
				r, err := c.CallBlock(block, []object.Value{e[i], e[j]})
				if err != nil {
					sortErr = err
					return false
				}
				n, _ := r.(int64)
				return n < 0
			}
			r, err := c.CallMethod(e[i], "<=>", []object.Value{e[j]}, nil)
			if err != nil {
				sortErr = err
				return false
			}
			n, _ := r.(int64)
			return n < 0
		})
		if sortErr != nil {
			return nil, sortErr
		}
		return object.NewArray(e...), nil
	})
	def(cls, "sort_by", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		e := append([]object.Value{}, selfArr(self)...)
		if block == nil {
			return object.NewArray(e...), nil
		}
		keys := make([]object.Value, len(e))
		var mapErr error
		for i, v := range e {
			k, err := c.CallBlock(block, []object.Value{v})
			if err != nil {
				return nil, err
			}
			keys[i] = k
		}
		idx := make([]int, len(e))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(i, j int) bool {
			if mapErr != nil {
				return false
			}
			r, err := c.CallMethod(keys[idx[i]], "<=>", []object.Value{keys[idx[j]]}, nil)
			if err != nil {
				mapErr = err
				return false
			}
			n, _ := r.(int64)
			return n < 0
		})
		if mapErr != nil {
			return nil, mapErr
		}
		out := make([]object.Value, len(e))
		for i, j := range idx {
			out[i] = e[j]
		}
		return object.NewArray(out...), nil
	})
	def(cls, "uniq", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		e := selfArr(self)
		seen := object.NewHash()
		var out []object.Value
		for _, v := range e {
			key := v
			if block != nil {
				k, err := c.CallBlock(block, []object.Value{v})
				if err != nil {
					return nil, err
				}
				key = k
			}
			if _, ok := seen.Get(key); !ok {
				seen.Set(key, true)
				out = append(out, v)
			}
		}
		return object.NewArray(out...), nil
	})
	def(cls, "flatten", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return object.NewArray(flattenArray(selfArr(self))...), nil
	})
	def(cls, "compact", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		var out []object.Value
		for _, v := range selfArr(self) {
			if v != nil {
				out = append(out, v)
			}
		}
		return object.NewArray(out...), nil
	})
	def(cls, "concat", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		arr, ok := self.(*object.ArrayObj)
		if !ok {
			return nil, nil
		}
		for _, a := range args {
			if other, ok := a.(*object.ArrayObj); ok {
				arr.Elements = append(arr.Elements, other.Elements...)
			}
		}
		return arr, nil
	})
	def(cls, "+", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		other, ok := arg(args, 0).(*object.ArrayObj)
		if !ok {
			return nil, m.Raise("TypeError", "no implicit conversion into Array")
		}
		out := append([]object.Value{}, selfArr(self)...)
		out = append(out, other.Elements...)
		return object.NewArray(out...), nil
	})
	def(cls, "-", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		other, ok := arg(args, 0).(*object.ArrayObj)
		if !ok {
			return nil, m.Raise("TypeError", "no implicit conversion into Array")
		}
		exclude := object.NewHash()
		for _, v := range other.Elements {
			exclude.Set(v, true)
		}
		var out []object.Value
		for _, v := range selfArr(self) {
			if _, found := exclude.Get(v); !found {
				out = append(out, v)
			}
		}
		return object.NewArray(out...), nil
	})
	def(cls, "==", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		other, ok := arg(args, 0).(*object.ArrayObj)
		if !ok {
			return false, nil
		}
		a := selfArr(self)
		if len(a) != len(other.Elements) {
			return false, nil
		}
		for i := range a {
			eq, err := c.CallMethod(a[i], "==", []object.Value{other.Elements[i]}, nil)
			if err != nil {
				return nil, err
			}
			if !truthy(eq) {
				return false, nil
			}
		}
		return true, nil
	})
	def(cls, "to_a", identityNative)
	def(cls, "to_ary", identityNative)
	def(cls, "freeze", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		object.Freeze(self)
		return self, nil
	})
}

func selfArr(v object.Value) []object.Value {
	if a, ok := v.(*object.ArrayObj); ok {
		return a.Elements
	}
	return nil
}

func reduceArray(c object.Caller, e []object.Value, args []object.Value, block object.Value) (object.Value, error) {
	var acc object.Value
	rest := e
	var opName string
	if len(args) == 2 {
		acc = args[0]
		opName, _ = symbolName(args[1])
	} else if len(args) == 1 {
		if name, ok := symbolName(args[0]); ok && block == nil {
			opName = name
		} else {
			acc = args[0]
		}
	}
	if acc == nil && opName == "" && len(rest) > 0 {
		acc = rest[0]
		rest = rest[1:]
	}
	for _, v := range rest {
		var err error
		if opName != "" {
			acc, err = c.CallMethod(acc, opName, []object.Value{v}, nil)
		} else if block != nil {
			acc, err = c.CallBlock(block, []object.Value{acc, v})
		}
		if err != nil {
			if brk, ok := err.(*vm.BreakSignal); ok {
				return brk.Value, nil
			}
			return nil, err
		}
	}
	return acc, nil
}

func truthyBlockOrArg(c object.Caller, block object.Value, args []object.Value, v object.Value) (bool, error) {
	_ = args
	if block != nil {
		r, err := c.CallBlock(block, []object.Value{v})
		if err != nil {
			return false, err
		}
		return truthy(r), nil
	}
	return truthy(v), nil
}

func flattenArray(e []object.Value) []object.Value {
	var out []object.Value
	for _, v := range e {
		if nested, ok := v.(*object.ArrayObj); ok {
			out = append(out, flattenArray(nested.Elements)...)
		} else {
			out = append(out, v)
		}
	}
	return out
}

func sliceArray(e []object.Value, args []object.Value) object.Value {
	if len(args) == 0 {
		return nil
	}
	if rng, ok := args[0].(*object.RangeObj); ok {
		from, _ := rng.From.(int64)
		to, _ := rng.To.(int64)
		from = normalizeIndex(from, len(e))
		to = normalizeIndex(to, len(e))
		if !rng.Exclusive {
			to++
		}
		if from < 0 || from > int64(len(e)) || to < from {
			return nil
		}
		if to > int64(len(e)) {
			to = int64(len(e))
		}
		return object.NewArray(append([]object.Value{}, e[from:to]...)...)
	}
	start, _ := args[0].(int64)
	start = normalizeIndex(start, len(e))
	if start < 0 || start > int64(len(e)) {
		return nil
	}
	if len(args) == 1 {
		if start == int64(len(e)) {
			return nil
		}
		return e[start]
	}
	length, _ := args[1].(int64)
	if length < 0 {
		return nil
	}
	end := start + length
	if end > int64(len(e)) {
		end = int64(len(e))
	}
	return object.NewArray(append([]object.Value{}, e[start:end]...)...)
}
