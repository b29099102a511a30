package vm

import (
	"fmt"

	"luby/internal/bytecode"
	lubyerrors "luby/internal/errors"
	"luby/internal/object"
)

// classOf maps a runtime Value to the object.Class the method lookup
// should search. Primitive kinds resolve to the preregistered core
// classes in vm.Classes (populated by bootstrapCoreClasses and
// extended by the builtin kernel), so reopening `class Integer` in a
// script adds real methods to the same ancestry lookup as everything
// else.
// ClassOf is the host/builtin-facing wrapper around classOf, used by the
// primitive kernel's reflection methods (`class`, `is_a?`, ...).
func (vm *VM) ClassOf(v object.Value) *object.Class { return vm.classOf(v) }

func (vm *VM) classOf(v object.Value) *object.Class {
	switch x := v.(type) {
	case nil:
		return vm.Classes["NilClass"]
	case bool:
		if x {
			return vm.Classes["TrueClass"]
		}
		return vm.Classes["FalseClass"]
	case int64:
		return vm.Classes["Integer"]
	case float64:
		return vm.Classes["Float"]
	case object.Symbol:
		return vm.Classes["Symbol"]
	case *object.StringObj:
		return vm.Classes["String"]
	case *object.ArrayObj:
		return vm.Classes["Array"]
	case *object.HashObj:
		return vm.Classes["Hash"]
	case *object.RangeObj:
		return vm.Classes["Range"]
	case *object.Proc:
		return vm.Classes["Proc"]
	case *object.BoundMethod:
		return vm.Classes["Method"]
	case *object.Instance:
		return x.EffectiveClass()
	case *object.Class:
		return vm.Classes["Class"]
	}
	return vm.ObjectClass
}

// bootstrapCoreClasses registers the class hierarchy every script sees
// regardless of what the builtin kernel adds on top: Object at the
// root, the core primitive classes beneath it, and StandardError's
// exception-hierarchy skeleton used by rescue-clause filtering.
func bootstrapCoreClasses(vm *VM) {
	def := func(name string, super *object.Class) *object.Class {
		c := object.NewClass(name, super)
		vm.Classes[name] = c
		return c
	}
	basic := def("BasicObject", nil)
	vm.ObjectClass.Super = basic
	def("Module", nil)
	def("Class", nil)
	def("NilClass", vm.ObjectClass)
	def("TrueClass", vm.ObjectClass)
	def("FalseClass", vm.ObjectClass)
	def("Integer", vm.ObjectClass)
	def("Float", vm.ObjectClass)
	def("Numeric", vm.ObjectClass)
	def("String", vm.ObjectClass)
	def("Symbol", vm.ObjectClass)
	def("Array", vm.ObjectClass)
	def("Hash", vm.ObjectClass)
	def("Range", vm.ObjectClass)
	def("Proc", vm.ObjectClass)
	def("Method", vm.ObjectClass)
	def("Fiber", vm.ObjectClass)
	def("Kernel", nil)

	exception := def("Exception", vm.ObjectClass)
	standardError := def("StandardError", exception)
	def("RuntimeError", standardError)
	def("TypeError", standardError)
	def("NameError", standardError)
	def("NoMethodError", vm.Classes["NameError"])
	def("ArgumentError", standardError)
	def("ZeroDivisionError", standardError)
	def("IndexError", standardError)
	def("KeyError", vm.Classes["IndexError"])
	def("StopIteration", vm.Classes["IndexError"])
	def("NotImplementedError", standardError)
	def("LoadError", standardError)
	def("IOError", standardError)
	def("LocalJumpError", standardError)
	def("SyntaxError", exception)
	def("ScriptError", exception)
}

// execDefineClass opens (creating if absent) a Class named by the
// DEFINE_CLASS operand, rebinds self to it for the duration of its
// body, and returns it so OpEndClassBody can pop a stack marker.
//
// Reopening an existing class is only allowed when no superclass is
// given, or the given superclass matches the one already recorded
//; a mismatch raises TypeError. A freshly-declared
// subclass fires its superclass's `inherited` hook, if defined.
func (vm *VM) execDefineClass(f *Frame, superVal object.Value) (object.Value, error) {
	nameIdx := f.readByte()
	name := f.proto.Constants[nameIdx].(string)
	class, ok := vm.Classes[name]
	if !ok {
		var super *object.Class
		if sc, ok := superVal.(*object.Class); ok {
			super = sc
		} else {
			super = vm.ObjectClass
		}
		class = object.NewClass(name, super)
		vm.Classes[name] = class
		if hook, ok := super.StaticMethods["inherited"]; ok {
			if _, err := vm.invoke(hook, super, []object.Value{class}, nil); err != nil {
				return nil, err
			}
		}
	} else if sc, ok := superVal.(*object.Class); ok && class.Super != sc {
		return nil, lubyerrors.New(lubyerrors.TypeError,
			fmt.Sprintf("superclass mismatch for class %s", name), f.proto.Source, f.proto.LineAt(f.pc), 0)
	}
	f.savedOpenClass = f.openClass
	f.savedSelf = f.self
	f.openClass = class
	f.self = class
	return class, nil
}

func (vm *VM) execDefineModule(f *Frame) object.Value {
	nameIdx := f.readByte()
	name := f.proto.Constants[nameIdx].(string)
	mod, ok := vm.Classes[name]
	if !ok {
		mod = object.NewClass(name, nil)
		vm.Classes[name] = mod
	}
	f.savedOpenClass = f.openClass
	f.savedSelf = f.self
	f.openClass = mod
	f.self = mod
	return mod
}

// execDefineMethod attaches the Proto popped off the stack (pushed by
// compileDef just before DEFINE_METHOD) to whatever class/module is
// open, or to the top-level Object class when defining at file scope so
// it behaves as a private Kernel-style method.
func (vm *VM) execDefineMethod(f *Frame, protoVal object.Value) {
	nameIdx := f.readByte()
	name := f.proto.Constants[nameIdx].(string)
	selfReceiver := f.readByte() == 1
	proto := protoVal.(*bytecode.Proto)
	method := &object.Method{Name: name, Proto: proto, Visibility: object.Public}

	target := f.openClass
	if target == nil {
		target = vm.ObjectClass
		method.Visibility = object.Private
	} else {
		method.Visibility = target.DefaultVisibility
	}
	if selfReceiver {
		target.StaticMethods[name] = method
		return
	}
	target.DefineMethod(method)
	if target.ModuleFunctionMode && !selfReceiver {
		static := &object.Method{Name: name, Proto: proto, Visibility: object.Public, Owner: target}
		target.StaticMethods[name] = static
	}
}
