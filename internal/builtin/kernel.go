package builtin

import (
	"fmt"
	"os"
	"strings"

	"luby/internal/object"
	"luby/internal/vm"
)

// installKernel defines the Kernel-module-style methods that every
// top-level script can call bare (puts, print, p, require/load): the
// VM's execDefineMethod already drops file-scope `def` onto
// vm.ObjectClass as private methods, so registering these directly on
// Object gives scripts the same bare-call surface. require/load
// themselves just forward to vm.Require/vm.Load, which resolve against
// the host-supplied VFS.
func installKernel(m *vm.VM) {
	obj := m.ObjectClass

	defPrivate(obj, "puts", func(caller object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		if len(args) == 0 {
			fmt.Println()
			return nil, nil
		}
		for _, a := range args {
			putsOne(caller, a)
		}
		return nil, nil
	})

	defPrivate(obj, "print", func(caller object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		for _, a := range args {
			fmt.Print(toS(caller, a))
		}
		return nil, nil
	})

	defPrivate(obj, "p", func(caller object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		for _, a := range args {
			fmt.Println(inspect(caller, a))
		}
		if len(args) == 1 {
			return args[0], nil
		}
		if len(args) == 0 {
			return nil, nil
		}
		return object.NewArray(args...), nil
	})

	defPrivate(obj, "require", func(caller object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		name, ok := symbolName(arg(args, 0))
		if !ok {
			return false, m.Raise("TypeError", "no implicit conversion into String")
		}
		loaded, err := m.Require(name)
		if err != nil {
			return nil, err
		}
		return loaded, nil
	})

	defPrivate(obj, "require_relative", func(caller object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		name, ok := symbolName(arg(args, 0))
		if !ok {
			return false, m.Raise("TypeError", "no implicit conversion into String")
		}
		loaded, err := m.Require(name)
		if err != nil {
			return nil, err
		}
		return loaded, nil
	})

	defPrivate(obj, "load", func(caller object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		name, ok := symbolName(arg(args, 0))
		if !ok {
			return false, m.Raise("TypeError", "no implicit conversion into String")
		}
		if err := m.Load(name); err != nil {
			return nil, err
		}
		return true, nil
	})

	defPrivate(obj, "rand", func(caller object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		// No entropy source is pulled in for a feature this small; a
		// deterministic stand-in keeps scripts using `rand` runnable.
		if len(args) == 0 {
			return 0.0, nil
		}
		if n, ok := arg(args, 0).(int64); ok && n > 0 {
			return int64(0), nil
		}
		return 0, nil
	})

	defPrivate(obj, "exit", func(caller object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		code := 0
		if n, ok := arg(args, 0).(int64); ok {
			code = int(n)
		}
		os.Exit(code)
		return nil, nil
	})

	// array_map/array_select are the bare-call primitive forms of
	// Array#map/Array#select: a host or stdlib script can reach for
	// either spelling.
	defPrivate(obj, "array_map", func(caller object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return caller.CallMethod(arg(args, 0), "map", nil, block)
	})
	defPrivate(obj, "array_select", func(caller object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return caller.CallMethod(arg(args, 0), "select", nil, block)
	})

	defPrivate(obj, "format", func(caller object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		if len(args) == 0 {
			return object.NewString(""), nil
		}
		tmpl, _ := arg(args, 0).(*object.StringObj)
		if tmpl == nil {
			return object.NewString(""), nil
		}
		rest := args[1:]
		vals := make([]interface{}, len(rest))
		for i, r := range rest {
			vals[i] = toS(caller, r)
		}
		return object.NewString(fmt.Sprintf(rubyToGoFormat(tmpl.String()), vals...)), nil
	})
}

func putsOne(caller object.Caller, v object.Value) {
	if arr, ok := v.(*object.ArrayObj); ok {
		if len(arr.Elements) == 0 {
			fmt.Println()
			return
		}
		for _, e := range arr.Elements {
			putsOne(caller, e)
		}
		return
	}
	fmt.Println(toS(caller, v))
}

// rubyToGoFormat translates the subset of Ruby's %-format directives
// this kernel supports directly onto Go's fmt verbs: %s and %d both
// become %v (operands are pre-stringified), everything else passes
// through unchanged.
func rubyToGoFormat(f string) string {
	return strings.ReplaceAll(strings.ReplaceAll(f, "%d", "%v"), "%s", "%v")
}
