package builtin

import (
	"fmt"
	"strconv"
	"strings"

	"luby/internal/object"
)

// toS renders v the way `puts`/string interpolation do: primitives get a
// direct Go-side rendering, anything else is dispatched to its to_s
// method so a reopened class's override is honored.
func toS(caller object.Caller, v object.Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case object.Symbol:
		return string(x)
	case *object.StringObj:
		return x.String()
	case *object.RangeObj:
		return x.String()
	case *object.ArrayObj:
		return inspect(caller, v)
	case *object.HashObj:
		return inspect(caller, v)
	case *object.Class:
		return x.Name
	}
	res, err := caller.CallMethod(v, "to_s", nil, nil)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	if s, ok := res.(*object.StringObj); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", res)
}

// inspect renders v the way `p`/Array#to_s/Hash#to_s do: strings quoted,
// containers rendered recursively.
func inspect(caller object.Caller, v object.Value) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case *object.StringObj:
		return strconv.Quote(x.String())
	case object.Symbol:
		return ":" + string(x)
	case *object.ArrayObj:
		parts := make([]string, len(x.Elements))
		for i, e := range x.Elements {
			parts[i] = inspect(caller, e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *object.HashObj:
		var parts []string
		x.Each(func(k, val object.Value) bool {
			parts = append(parts, inspect(caller, k)+" => "+inspect(caller, val))
			return true
		})
		return "{" + strings.Join(parts, ", ") + "}"
	case *object.Instance:
		return "#<" + x.Class.Name + ">"
	case *object.Class:
		return x.Name
	}
	return toS(caller, v)
}
