package builtin

import (
	"math"
	"strconv"

	"luby/internal/object"
	"luby/internal/vm"
)

// installInteger and installFloat attach numeric primitives:
// Integer/Float share a <=> contract (wired through Comparable by
// `include Comparable` inside the kernel) and the coercion helpers
// arithmetic dispatch falls back to when operand kinds differ.
func installInteger(m *vm.VM) {
	cls := m.Classes["Integer"]
	cls.Include(&m.Classes["Comparable"].Module)

	def(cls, "to_s", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		n, _ := self.(int64)
		base := int64(10)
		if b, ok := arg(args, 0).(int64); ok {
			base = b
		}
		return object.NewString(strconv.FormatInt(n, int(base))), nil
	})
	def(cls, "to_i", identityNative)
	def(cls, "to_int", identityNative)
	def(cls, "to_f", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		n, _ := self.(int64)
		return float64(n), nil
	})
	def(cls, "to_r", identityNative)
	def(cls, "<=>", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		a, _ := self.(int64)
		switch b := arg(args, 0).(type) {
		case int64:
			return cmpInt(a, b), nil
		case float64:
			return cmpFloat(float64(a), b), nil
		}
		return nil, nil
	})
	def(cls, "+@", identityNative)
	def(cls, "-@", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		n, _ := self.(int64)
		return -n, nil
	})
	def(cls, "abs", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		n, _ := self.(int64)
		if n < 0 {
			return -n, nil
		}
		return n, nil
	})
	def(cls, "zero?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		n, _ := self.(int64)
		return n == 0, nil
	})
	def(cls, "positive?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		n, _ := self.(int64)
		return n > 0, nil
	})
	def(cls, "negative?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		n, _ := self.(int64)
		return n < 0, nil
	})
	def(cls, "even?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		n, _ := self.(int64)
		return n%2 == 0, nil
	})
	def(cls, "odd?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		n, _ := self.(int64)
		return n%2 != 0, nil
	})
	def(cls, "succ", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		n, _ := self.(int64)
		return n + 1, nil
	})
	def(cls, "next", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		n, _ := self.(int64)
		return n + 1, nil
	})
	def(cls, "pred", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		n, _ := self.(int64)
		return n - 1, nil
	})
	def(cls, "times", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		n, _ := self.(int64)
		if block == nil {
			return enumeratorOf(intRange(0, n)), nil
		}
		for i := int64(0); i < n; i++ {
			if _, err := c.CallBlock(block, []object.Value{i}); err != nil {
				if brk, ok := err.(*vm.BreakSignal); ok {
					return brk.Value, nil
				}
				return nil, err
			}
		}
		return self, nil
	})
	def(cls, "upto", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		from, _ := self.(int64)
		to, _ := arg(args, 0).(int64)
		if block == nil {
			return enumeratorOf(intRange(from, to+1)), nil
		}
		for i := from; i <= to; i++ {
			if _, err := c.CallBlock(block, []object.Value{i}); err != nil {
				if brk, ok := err.(*vm.BreakSignal); ok {
					return brk.Value, nil
				}
				return nil, err
			}
		}
		return self, nil
	})
	def(cls, "downto", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		from, _ := self.(int64)
		to, _ := arg(args, 0).(int64)
		if block == nil {
			return enumeratorOf(intRangeDown(from, to)), nil
		}
		for i := from; i >= to; i-- {
			if _, err := c.CallBlock(block, []object.Value{i}); err != nil {
				if brk, ok := err.(*vm.BreakSignal); ok {
					return brk.Value, nil
				}
				return nil, err
			}
		}
		return self, nil
	})
	def(cls, "step", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		from, _ := self.(int64)
		to, _ := arg(args, 0).(int64)
		step := int64(1)
		if s, ok := arg(args, 1).(int64); ok {
			step = s
		}
		if step == 0 {
			return nil, m.Raise("ArgumentError", "step can't be 0")
		}
		for i := from; (step > 0 && i <= to) || (step < 0 && i >= to); i += step {
			if block == nil {
				continue
			}
			if _, err := c.CallBlock(block, []object.Value{i}); err != nil {
				if brk, ok := err.(*vm.BreakSignal); ok {
					return brk.Value, nil
				}
				return nil, err
			}
		}
		return self, nil
	})
	def(cls, "coerce", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		n, _ := self.(int64)
		switch other := arg(args, 0).(type) {
		case int64:
			return object.NewArray(other, n), nil
		case float64:
			return object.NewArray(other, float64(n)), nil
		}
		return nil, m.Raise("TypeError", "can't coerce")
	})
	def(cls, "divmod", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		a, _ := self.(int64)
		b, ok := arg(args, 0).(int64)
		if !ok || b == 0 {
			return nil, m.Raise("ZeroDivisionError", "divided by 0")
		}
		q := floorDivInt(a, b)
		r := a - q*b
		return object.NewArray(q, r), nil
	})
	def(cls, "gcd", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		a, _ := self.(int64)
		b, _ := arg(args, 0).(int64)
		return gcdInt(a, b), nil
	})
	def(cls, "hash", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		n, _ := self.(int64)
		return n, nil
	})
	def(cls, "chr", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		n, _ := self.(int64)
		return object.NewString(string(rune(n))), nil
	})
}

func installFloat(m *vm.VM) {
	cls := m.Classes["Float"]
	cls.Include(&m.Classes["Comparable"].Module)

	def(cls, "to_s", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		f, _ := self.(float64)
		return object.NewString(strconv.FormatFloat(f, 'g', -1, 64)), nil
	})
	def(cls, "to_i", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		f, _ := self.(float64)
		return int64(f), nil
	})
	def(cls, "to_int", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		f, _ := self.(float64)
		return int64(f), nil
	})
	def(cls, "to_f", identityNative)
	def(cls, "<=>", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		a, _ := self.(float64)
		switch b := arg(args, 0).(type) {
		case int64:
			return cmpFloat(a, float64(b)), nil
		case float64:
			return cmpFloat(a, b), nil
		}
		return nil, nil
	})
	def(cls, "-@", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		f, _ := self.(float64)
		return -f, nil
	})
	def(cls, "abs", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		f, _ := self.(float64)
		return math.Abs(f), nil
	})
	def(cls, "floor", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		f, _ := self.(float64)
		return int64(math.Floor(f)), nil
	})
	def(cls, "ceil", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		f, _ := self.(float64)
		return int64(math.Ceil(f)), nil
	})
	def(cls, "round", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		f, _ := self.(float64)
		if digits, ok := arg(args, 0).(int64); ok && digits > 0 {
			p := math.Pow(10, float64(digits))
			return math.Round(f*p) / p, nil
		}
		return int64(math.Round(f)), nil
	})
	def(cls, "nan?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		f, _ := self.(float64)
		return math.IsNaN(f), nil
	})
	def(cls, "infinite?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		f, _ := self.(float64)
		if math.IsInf(f, 1) {
			return int64(1), nil
		}
		if math.IsInf(f, -1) {
			return int64(-1), nil
		}
		return nil, nil
	})
	def(cls, "zero?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		f, _ := self.(float64)
		return f == 0, nil
	})
	def(cls, "coerce", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		f, _ := self.(float64)
		switch other := arg(args, 0).(type) {
		case int64:
			return object.NewArray(float64(other), f), nil
		case float64:
			return object.NewArray(other, f), nil
		}
		return nil, m.Raise("TypeError", "can't coerce")
	})
}

func identityNative(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
	return self, nil
}

func cmpInt(a, b int64) int64 {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat(a, b float64) int64 {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func floorDivInt(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func gcdInt(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func intRange(from, to int64) []object.Value {
	if to < from {
		return nil
	}
	out := make([]object.Value, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}

func intRangeDown(from, to int64) []object.Value {
	if to > from {
		return nil
	}
	out := make([]object.Value, 0, from-to+1)
	for i := from; i >= to; i-- {
		out = append(out, i)
	}
	return out
}

// enumeratorOf is the blockless-iterator fallback (`5.times` with no
// block): rather than model a real lazy Enumerator object this hands
// back the materialized values as a plain Array.
func enumeratorOf(vals []object.Value) object.Value {
	return object.NewArray(vals...)
}
