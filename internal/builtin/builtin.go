// Package builtin is the primitive kernel: the native methods on
// Object/Kernel and the core classes (Integer, Float, String, Array,
// Hash, Range, Proc) that bootstrapCoreClasses leaves as empty
// ancestry-only skeletons. A fresh vm.VM has a class hierarchy but no
// behavior; Install attaches the behavior.
package builtin

import (
	"luby/internal/object"
	"luby/internal/vm"
)

// Install registers every native method this package defines onto the
// VM's already-bootstrapped core classes. Call once per VM, before
// running any script.
func Install(m *vm.VM) {
	installKernel(m)
	installObject(m)
	installComparableHook(m)
	installInteger(m)
	installFloat(m)
	installString(m)
	installSymbol(m)
	installArray(m)
	installHash(m)
	installRange(m)
	installProc(m)
	installException(m)
	installFiber(m)
}

func def(class *object.Class, name string, fn object.NativeFunc) {
	class.DefineMethod(&object.Method{Name: name, Native: fn, Visibility: object.Public})
}

func defPrivate(class *object.Class, name string, fn object.NativeFunc) {
	class.DefineMethod(&object.Method{Name: name, Native: fn, Visibility: object.Private})
}

func arg(args []object.Value, i int) object.Value {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func truthy(v object.Value) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}
