package builtin

import (
	"strconv"
	"strings"

	"luby/internal/object"
	"luby/internal/vm"
)

// installString attaches byte-oriented string primitives: String here
// is backed by []byte (object.StringObj.Value), and every offset-taking
// method below indexes and slices by byte, not by rune.
func installString(m *vm.VM) {
	cls := m.Classes["String"]
	cls.Include(&m.Classes["Comparable"].Module)

	def(cls, "to_s", identityNative)
	def(cls, "to_str", identityNative)
	def(cls, "to_sym", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		s := selfStr(self)
		return object.Symbol(s), nil
	})
	def(cls, "to_i", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		s := strings.TrimSpace(selfStr(self))
		n, _ := leadingInt(s)
		return n, nil
	})
	def(cls, "to_f", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		s := strings.TrimSpace(selfStr(self))
		f, _ := leadingFloat(s)
		return f, nil
	})
	def(cls, "length", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return int64(len(selfBytes(self))), nil
	})
	def(cls, "size", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return int64(len(selfBytes(self))), nil
	})
	def(cls, "empty?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return len(selfBytes(self)) == 0, nil
	})
	def(cls, "byte_at", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		b := selfBytes(self)
		i, _ := arg(args, 0).(int64)
		idx := normalizeIndex(i, len(b))
		if idx < 0 || idx >= int64(len(b)) {
			return nil, nil
		}
		return int64(b[idx]), nil
	})
	def(cls, "+", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		other, ok := arg(args, 0).(*object.StringObj)
		if !ok {
			return nil, m.Raise("TypeError", "no implicit conversion into String")
		}
		return object.NewString(selfStr(self) + other.String()), nil
	})
	def(cls, "concat", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		str, ok := self.(*object.StringObj)
		if !ok {
			return nil, nil
		}
		if object.IsFrozen(str) {
			return nil, m.Raise("FrozenError", "can't modify frozen String")
		}
		for _, a := range args {
			str.Value = append(str.Value, []byte(toS(c, a))...)
		}
		return str, nil
	})
	def(cls, "<<", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		str, ok := self.(*object.StringObj)
		if !ok {
			return nil, nil
		}
		if object.IsFrozen(str) {
			return nil, m.Raise("FrozenError", "can't modify frozen String")
		}
		str.Value = append(str.Value, []byte(toS(c, arg(args, 0)))...)
		return str, nil
	})
	def(cls, "*", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		n, _ := arg(args, 0).(int64)
		if n < 0 {
			return nil, m.Raise("ArgumentError", "negative argument")
		}
		return object.NewString(strings.Repeat(selfStr(self), int(n))), nil
	})
	def(cls, "==", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		other, ok := arg(args, 0).(*object.StringObj)
		if !ok {
			return false, nil
		}
		return selfStr(self) == other.String(), nil
	})
	def(cls, "eql?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		other, ok := arg(args, 0).(*object.StringObj)
		if !ok {
			return false, nil
		}
		return selfStr(self) == other.String(), nil
	})
	def(cls, "<=>", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		other, ok := arg(args, 0).(*object.StringObj)
		if !ok {
			return nil, nil
		}
		return int64(strings.Compare(selfStr(self), other.String())), nil
	})
	def(cls, "upcase", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return object.NewString(asciiUpper(selfStr(self))), nil
	})
	def(cls, "downcase", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return object.NewString(asciiLower(selfStr(self))), nil
	})
	def(cls, "capitalize", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		s := selfStr(self)
		if s == "" {
			return object.NewString(""), nil
		}
		return object.NewString(asciiUpper(s[:1]) + asciiLower(s[1:])), nil
	})
	def(cls, "reverse", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		b := selfBytes(self)
		out := make([]byte, len(b))
		for i, c := range b {
			out[len(b)-1-i] = c
		}
		return &object.StringObj{Value: out}, nil
	})
	def(cls, "strip", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return object.NewString(strings.TrimSpace(selfStr(self))), nil
	})
	def(cls, "chomp", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return object.NewString(strings.TrimRight(selfStr(self), "\n")), nil
	})
	def(cls, "chars", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		s := selfStr(self)
		out := make([]object.Value, 0, len(s))
		for _, r := range s {
			out = append(out, object.NewString(string(r)))
		}
		return object.NewArray(out...), nil
	})
	def(cls, "each_char", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		if block == nil {
			return self, nil
		}
		for _, r := range selfStr(self) {
			if _, err := c.CallBlock(block, []object.Value{object.NewString(string(r))}); err != nil {
				if brk, ok := err.(*vm.BreakSignal); ok {
					return brk.Value, nil
				}
				return nil, err
			}
		}
		return self, nil
	})
	def(cls, "split", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		s := selfStr(self)
		sep, ok := arg(args, 0).(*object.StringObj)
		var parts []string
		if !ok || sep.String() == "" {
			parts = strings.Fields(s)
		} else {
			parts = strings.Split(s, sep.String())
		}
		out := make([]object.Value, len(parts))
		for i, p := range parts {
			out[i] = object.NewString(p)
		}
		return object.NewArray(out...), nil
	})
	def(cls, "include?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		needle, ok := arg(args, 0).(*object.StringObj)
		if !ok {
			return false, nil
		}
		return strings.Contains(selfStr(self), needle.String()), nil
	})
	def(cls, "start_with?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		s := selfStr(self)
		for _, a := range args {
			if prefix, ok := a.(*object.StringObj); ok && strings.HasPrefix(s, prefix.String()) {
				return true, nil
			}
		}
		return false, nil
	})
	def(cls, "end_with?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		s := selfStr(self)
		for _, a := range args {
			if suffix, ok := a.(*object.StringObj); ok && strings.HasSuffix(s, suffix.String()) {
				return true, nil
			}
		}
		return false, nil
	})
	def(cls, "replace", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		str, ok := self.(*object.StringObj)
		if !ok {
			return nil, nil
		}
		if object.IsFrozen(str) {
			return nil, m.Raise("FrozenError", "can't modify frozen String")
		}
		other, _ := arg(args, 0).(*object.StringObj)
		if other != nil {
			str.Value = append([]byte{}, other.Value...)
		}
		return str, nil
	})
	def(cls, "sub", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		s := selfStr(self)
		pat, _ := arg(args, 0).(*object.StringObj)
		rep, _ := arg(args, 1).(*object.StringObj)
		if pat == nil || rep == nil {
			return object.NewString(s), nil
		}
		return object.NewString(strings.Replace(s, pat.String(), rep.String(), 1)), nil
	})
	def(cls, "gsub", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		s := selfStr(self)
		pat, _ := arg(args, 0).(*object.StringObj)
		rep, _ := arg(args, 1).(*object.StringObj)
		if pat == nil || rep == nil {
			return object.NewString(s), nil
		}
		return object.NewString(strings.ReplaceAll(s, pat.String(), rep.String())), nil
	})
	def(cls, "[]", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		b := selfBytes(self)
		return sliceString(b, args), nil
	})
	def(cls, "slice", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		b := selfBytes(self)
		return sliceString(b, args), nil
	})
	def(cls, "freeze", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		object.Freeze(self)
		return self, nil
	})
	def(cls, "hash", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		s := selfStr(self)
		var h uint64 = 14695981039346656037
		for i := 0; i < len(s); i++ {
			h = (h ^ uint64(s[i])) * 1099511628211
		}
		return int64(h), nil
	})
}

// installSymbol attaches the small Symbol surface.
func installSymbol(m *vm.VM) {
	cls := m.Classes["Symbol"]

	def(cls, "to_s", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		s, _ := self.(object.Symbol)
		return object.NewString(string(s)), nil
	})
	def(cls, "to_sym", identityNative)
	def(cls, "inspect", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		s, _ := self.(object.Symbol)
		return object.NewString(":" + string(s)), nil
	})
	def(cls, "==", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		other, ok := arg(args, 0).(object.Symbol)
		if !ok {
			return false, nil
		}
		return self.(object.Symbol) == other, nil
	})
	// to_proc turns a Symbol into a Proc-like callable: calling it sends
	// the symbol's name to its first argument with the rest forwarded.
	// `&:upcase` in a call does not go through here; the parser rewrites
	// it into a block directly.
	def(cls, "to_proc", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		name, _ := self.(object.Symbol)
		return object.NewBoundMethod(nil, &object.Method{
			Name: "call",
			Native: func(c object.Caller, _ object.Value, callArgs []object.Value, _ object.Value) (object.Value, error) {
				if len(callArgs) == 0 {
					return nil, m.Raise("ArgumentError", "no receiver given to &:"+string(name))
				}
				return c.Send(callArgs[0], string(name), callArgs[1:], nil)
			},
		}), nil
	})
}

func selfStr(v object.Value) string {
	if s, ok := v.(*object.StringObj); ok {
		return s.String()
	}
	if s, ok := v.(object.Symbol); ok {
		return string(s)
	}
	return ""
}

func selfBytes(v object.Value) []byte {
	if s, ok := v.(*object.StringObj); ok {
		return s.Value
	}
	return nil
}

func asciiUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}

func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}

func normalizeIndex(i int64, length int) int64 {
	if i < 0 {
		return int64(length) + i
	}
	return i
}

func leadingInt(s string) (int64, bool) {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == start {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:i], 10, 64)
	return n, err == nil
}

func leadingFloat(s string) (float64, bool) {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	start := i
	seenDot := false
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || (s[i] == '.' && !seenDot)) {
		if s[i] == '.' {
			seenDot = true
		}
		i++
	}
	if i == start {
		return 0, false
	}
	f, err := strconv.ParseFloat(s[:i], 64)
	return f, err == nil
}

// sliceString implements String#[]/#slice for three forms: a Range, a
// single byte index, or a (start, length) pair.
func sliceString(b []byte, args []object.Value) object.Value {
	if len(args) == 0 {
		return nil
	}
	if rng, ok := args[0].(*object.RangeObj); ok {
		from, _ := rng.From.(int64)
		to, _ := rng.To.(int64)
		from = normalizeIndex(from, len(b))
		to = normalizeIndex(to, len(b))
		if !rng.Exclusive {
			to++
		}
		if from < 0 || from > int64(len(b)) || to < from {
			return nil
		}
		if to > int64(len(b)) {
			to = int64(len(b))
		}
		return object.NewString(string(b[from:to]))
	}
	start, _ := args[0].(int64)
	start = normalizeIndex(start, len(b))
	if start < 0 || start > int64(len(b)) {
		return nil
	}
	if len(args) == 1 {
		if start == int64(len(b)) {
			return nil
		}
		return object.NewString(string(b[start]))
	}
	length, _ := args[1].(int64)
	if length < 0 {
		return nil
	}
	end := start + length
	if end > int64(len(b)) {
		end = int64(len(b))
	}
	return object.NewString(string(b[start:end]))
}
