package builtin

import (
	"fmt"

	"luby/internal/object"
	"luby/internal/vm"
)

// installObject attaches the reflection and object-model primitives
// to the classes every
// value's ancestry walk passes through: Object itself, and the shared
// metaclasses "Class"/"Module" that back every Class/Module value.
func installObject(m *vm.VM) {
	obj := m.ObjectClass
	classClass := m.Classes["Class"]
	moduleClass := m.Classes["Module"]

	def(obj, "class", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return classOfValue(m, self), nil
	})
	def(obj, "nil?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return self == nil, nil
	})
	def(obj, "==", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return valueIdentical(self, arg(args, 0)), nil
	})
	def(obj, "equal?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return valueIdentical(self, arg(args, 0)), nil
	})
	def(obj, "!=", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		eq, err := c.CallMethod(self, "==", args, nil)
		if err != nil {
			return nil, err
		}
		return !truthy(eq), nil
	})
	def(obj, "to_s", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return object.NewString(defaultToS(m, self)), nil
	})
	def(obj, "inspect", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return object.NewString(inspect(c, self)), nil
	})
	def(obj, "freeze", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		object.Freeze(self)
		return self, nil
	})
	def(obj, "frozen?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return object.IsFrozen(self), nil
	})
	def(obj, "is_a?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		target, ok := arg(args, 0).(*object.Class)
		if !ok {
			return false, nil
		}
		return isA(classOfValue(m, self), target), nil
	})
	def(obj, "kind_of?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		target, ok := arg(args, 0).(*object.Class)
		if !ok {
			return false, nil
		}
		return isA(classOfValue(m, self), target), nil
	})
	def(obj, "instance_of?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		target, ok := arg(args, 0).(*object.Class)
		if !ok {
			return false, nil
		}
		return classOfValue(m, self) == target, nil
	})
	def(obj, "respond_to?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		name, ok := symbolName(arg(args, 0))
		if !ok {
			return false, nil
		}
		class := classOfValue(m, self)
		if _, ok := class.Lookup(name); ok {
			return true, nil
		}
		res, err := c.CallMethod(self, "respond_to_missing?", []object.Value{object.Symbol(name), false}, nil)
		if err != nil {
			return false, nil
		}
		return truthy(res), nil
	})
	def(obj, "respond_to_missing?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return false, nil
	})
	def(obj, "send", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("send: no method name given")
		}
		name, ok := symbolName(args[0])
		if !ok {
			return nil, fmt.Errorf("send: method name must be a Symbol or String")
		}
		return c.Send(self, name, args[1:], block)
	})
	def(obj, "__send__", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("send: no method name given")
		}
		name, ok := symbolName(args[0])
		if !ok {
			return nil, fmt.Errorf("send: method name must be a Symbol or String")
		}
		return c.Send(self, name, args[1:], block)
	})
	def(obj, "method", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		name, ok := symbolName(arg(args, 0))
		if !ok {
			return nil, fmt.Errorf("method: name must be a Symbol or String")
		}
		mm, ok := classOfValue(m, self).Lookup(name)
		if !ok {
			return nil, m.Raise(string(lubyerrKindNameError), fmt.Sprintf("undefined method `%s'", name))
		}
		return object.NewBoundMethod(self, mm), nil
	})
	def(obj, "instance_variable_get", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		inst, ok := self.(*object.Instance)
		if !ok {
			return nil, nil
		}
		name, _ := symbolName(arg(args, 0))
		return inst.IVars[trimAt(name)], nil
	})
	def(obj, "instance_variable_set", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		inst, ok := self.(*object.Instance)
		if !ok {
			return nil, nil
		}
		if object.IsFrozen(inst) {
			return nil, m.Raise(string(lubyerrKindFrozenError), "can't modify frozen object")
		}
		name, _ := symbolName(arg(args, 0))
		val := arg(args, 1)
		inst.IVars[trimAt(name)] = val
		return val, nil
	})
	def(obj, "instance_variables", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		inst, ok := self.(*object.Instance)
		if !ok {
			return object.NewArray(), nil
		}
		out := make([]object.Value, 0, len(inst.IVars))
		for k := range inst.IVars {
			out = append(out, object.Symbol("@"+k))
		}
		return object.NewArray(out...), nil
	})
	def(obj, "instance_variable_defined?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		inst, ok := self.(*object.Instance)
		if !ok {
			return false, nil
		}
		name, _ := symbolName(arg(args, 0))
		_, found := inst.IVars[trimAt(name)]
		return found, nil
	})
	def(obj, "define_singleton_method", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		name, _ := symbolName(arg(args, 0))
		body := block
		if body == nil {
			body = arg(args, 1)
		}
		inst, ok := self.(*object.Instance)
		if ok {
			sc := object.SingletonClass(inst)
			sc.DefineMethod(&object.Method{Name: name, Native: procInvoker(body), Visibility: object.Public})
			return object.Symbol(name), nil
		}
		if cls, ok := self.(*object.Class); ok {
			cls.StaticMethods[name] = &object.Method{Name: name, Native: procInvoker(body), Visibility: object.Public}
			return object.Symbol(name), nil
		}
		return nil, nil
	})

	def(obj, "extend", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		inst, ok := self.(*object.Instance)
		if !ok {
			return self, nil
		}
		sc := object.SingletonClass(inst)
		for _, a := range args {
			if mod := asModule(a); mod != nil {
				sc.Include(mod)
			}
		}
		return self, nil
	})
	def(obj, "tap", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		if block != nil {
			if _, err := c.CallBlock(block, []object.Value{self}); err != nil {
				return nil, err
			}
		}
		return self, nil
	})
	def(obj, "dup", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return shallowDup(self), nil
	})
	def(obj, "clone", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		d := shallowDup(self)
		if object.IsFrozen(self) {
			object.Freeze(d)
		}
		return d, nil
	})

	// ---- Module/Class-level object-model primitives ----
	installModuleLevel(m, moduleClass)
	installModuleLevel(m, classClass)

	def(classClass, "new", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		cls, ok := self.(*object.Class)
		if !ok {
			return nil, fmt.Errorf("new: receiver is not a class")
		}
		if fiberCtor != nil && cls == m.Classes["Fiber"] {
			return fiberCtor(m, args, block)
		}
		inst := object.NewInstance(cls)
		if _, hasInit := cls.Lookup("initialize"); hasInit {
			if _, err := c.Send(inst, "initialize", args, block); err != nil {
				return nil, err
			}
		}
		return inst, nil
	})
	def(classClass, "name", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		cls, _ := self.(*object.Class)
		if cls == nil {
			return nil, nil
		}
		return object.NewString(cls.Name), nil
	})
	def(classClass, "to_s", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		cls, _ := self.(*object.Class)
		if cls == nil {
			return object.NewString(""), nil
		}
		return object.NewString(cls.Name), nil
	})
	def(classClass, "superclass", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		cls, ok := self.(*object.Class)
		if !ok || cls.Super == nil {
			return nil, nil
		}
		return cls.Super, nil
	})
	def(classClass, "ancestors", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		cls, ok := self.(*object.Class)
		if !ok {
			return object.NewArray(), nil
		}
		anc := cls.Ancestors()
		out := make([]object.Value, len(anc))
		for i, a := range anc {
			if found, ok := m.Classes[a.Name]; ok {
				out[i] = found
			} else {
				out[i] = a
			}
		}
		return object.NewArray(out...), nil
	})
	def(classClass, "instance_methods", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		cls, ok := self.(*object.Class)
		if !ok {
			return object.NewArray(), nil
		}
		seen := map[string]bool{}
		var out []object.Value
		for _, a := range cls.Ancestors() {
			for name := range a.Methods {
				if !seen[name] {
					seen[name] = true
					out = append(out, object.Symbol(name))
				}
			}
		}
		return object.NewArray(out...), nil
	})
	def(classClass, "===", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		cls, ok := self.(*object.Class)
		if !ok {
			return false, nil
		}
		return isA(classOfValue(m, arg(args, 0)), cls), nil
	})
}

// installModuleLevel registers the mixin/visibility/def-synthesis
// primitives onto the given metaclass (shared by "Module" and "Class"
// values — applies identically to both).
func installModuleLevel(m *vm.VM, meta *object.Class) {
	def(meta, "include", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		host := asModule(self)
		if host == nil {
			return self, nil
		}
		for _, a := range args {
			mod := asModule(a)
			if mod == nil {
				continue
			}
			if hc := asClass(self); hc != nil {
				hc.Include(mod)
			}
			if hostCls, ok := self.(*object.Class); ok {
				if hooked, ok := m.Classes[mod.Name]; ok {
					if hook, ok := hooked.StaticMethods["included"]; ok {
						if _, err := invokeOn(m, hook, mod, []object.Value{hostCls}); err != nil {
							return nil, err
						}
					}
				}
			}
		}
		return self, nil
	})
	def(meta, "prepend", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		host := asModule(self)
		if host == nil {
			return self, nil
		}
		for _, a := range args {
			if mod := asModule(a); mod != nil {
				if hc := asClass(self); hc != nil {
					hc.Prepend(mod)
				}
			}
		}
		return self, nil
	})
	def(meta, "attr_reader", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return defineAttrs(self, args, true, false), nil
	})
	def(meta, "attr_writer", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return defineAttrs(self, args, false, true), nil
	})
	def(meta, "attr_accessor", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return defineAttrs(self, args, true, true), nil
	})
	def(meta, "define_method", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		host := asModule(self)
		if host == nil || len(args) == 0 {
			return nil, nil
		}
		name, _ := symbolName(args[0])
		body := block
		if body == nil && len(args) > 1 {
			body = args[1]
		}
		host.Methods[name] = &object.Method{Name: name, Native: procInvoker(body), Owner: asClass(self), Visibility: host.DefaultVisibility}
		return object.Symbol(name), nil
	})
	def(meta, "private", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return visibilityMode(self, args, object.Private), nil
	})
	def(meta, "public", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return visibilityMode(self, args, object.Public), nil
	})
	def(meta, "protected", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return visibilityMode(self, args, object.Protected), nil
	})
	def(meta, "module_function", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		host := asModule(self)
		if host == nil {
			return nil, nil
		}
		if len(args) == 0 {
			host.ModuleFunctionMode = true
			return nil, nil
		}
		cls := asClass(self)
		for _, a := range args {
			name, ok := symbolName(a)
			if !ok {
				continue
			}
			if meth, ok := host.Methods[name]; ok && cls != nil {
				cls.StaticMethods[name] = &object.Method{Name: name, Proto: meth.Proto, Native: meth.Native, Visibility: object.Public}
			}
		}
		return nil, nil
	})
	def(meta, "const_set", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		host := asModule(self)
		if host == nil {
			return nil, nil
		}
		name, _ := symbolName(arg(args, 0))
		val := arg(args, 1)
		host.Constants[name] = val
		return val, nil
	})
	def(meta, "const_get", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		host := asModule(self)
		if host == nil {
			return nil, nil
		}
		name, _ := symbolName(arg(args, 0))
		return host.Constants[name], nil
	})
}

// ---- shared small helpers ----

func asModule(v object.Value) *object.Module {
	switch x := v.(type) {
	case *object.Class:
		return &x.Module
	case *object.Module:
		return x
	}
	return nil
}

func asClass(v object.Value) *object.Class {
	if c, ok := v.(*object.Class); ok {
		return c
	}
	return nil
}

func defineAttrs(self object.Value, args []object.Value, reader, writer bool) object.Value {
	host := asModule(self)
	if host == nil {
		return nil
	}
	for _, a := range args {
		name, ok := symbolName(a)
		if !ok {
			continue
		}
		ivar := name
		if reader {
			n := name
			host.Methods[n] = &object.Method{Name: n, Visibility: host.DefaultVisibility, Native: func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
				inst, ok := self.(*object.Instance)
				if !ok {
					return nil, nil
				}
				return inst.IVars[ivar], nil
			}}
		}
		if writer {
			n := name + "="
			host.Methods[n] = &object.Method{Name: n, Visibility: host.DefaultVisibility, Native: func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
				inst, ok := self.(*object.Instance)
				if !ok {
					return nil, nil
				}
				if object.IsFrozen(inst) {
					return nil, fmt.Errorf("can't modify frozen %s", inst.Class.Name)
				}
				v := arg(args, 0)
				inst.IVars[ivar] = v
				return v, nil
			}}
		}
	}
	return nil
}

func visibilityMode(self object.Value, args []object.Value, vis object.Visibility) object.Value {
	host := asModule(self)
	if host == nil {
		return nil
	}
	if len(args) == 0 {
		host.DefaultVisibility = vis
		return nil
	}
	for _, a := range args {
		name, ok := symbolName(a)
		if !ok {
			continue
		}
		if meth, ok := host.Methods[name]; ok {
			meth.Visibility = vis
		}
	}
	return nil
}

func symbolName(v object.Value) (string, bool) {
	switch x := v.(type) {
	case object.Symbol:
		return string(x), true
	case *object.StringObj:
		return x.String(), true
	}
	return "", false
}

func trimAt(name string) string {
	if len(name) > 0 && name[0] == '@' {
		return name[1:]
	}
	return name
}

func valueIdentical(a, b object.Value) bool {
	if as, ok := a.(*object.StringObj); ok {
		if bs, ok := b.(*object.StringObj); ok {
			return as.String() == bs.String()
		}
		return false
	}
	return a == b
}

func isA(class, target *object.Class) bool {
	if class == nil || target == nil {
		return false
	}
	for _, a := range class.Ancestors() {
		if a == &target.Module || a.Name == target.Name {
			return true
		}
	}
	return false
}

func classOfValue(m *vm.VM, v object.Value) *object.Class {
	return m.ClassOf(v)
}

func defaultToS(m *vm.VM, v object.Value) string {
	switch x := v.(type) {
	case *object.Instance:
		return "#<" + x.Class.Name + ">"
	case *object.Class:
		return x.Name
	}
	return fmt.Sprintf("%v", v)
}

// procInvoker adapts a Proc/BoundMethod Value (as produced by
// `define_method`'s block argument) into a NativeFunc so it can be
// installed as an ordinary Method, letting define_method-built methods
// flow through the same dispatch path as `def`-built ones.
func procInvoker(body object.Value) object.NativeFunc {
	return func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		return c.CallMethod(body, "call", args, block)
	}
}

func invokeOn(m *vm.VM, meth *object.Method, self object.Value, args []object.Value) (object.Value, error) {
	return m.Invoke(meth, self, args, nil)
}

func shallowDup(v object.Value) object.Value {
	switch x := v.(type) {
	case *object.Instance:
		n := object.NewInstance(x.Class)
		for k, val := range x.IVars {
			n.IVars[k] = val
		}
		return n
	case *object.ArrayObj:
		return object.NewArray(append([]object.Value{}, x.Elements...)...)
	case *object.StringObj:
		return object.NewString(x.String())
	case *object.HashObj:
		h := object.NewHash()
		x.Each(func(k, val object.Value) bool {
			h.Set(k, val)
			return true
		})
		return h
	}
	return v
}

// installComparableHook defines the "Comparable" module so
// a class that implements `<=>` gets ordering operators for free by
// `include Comparable`, the same contract Ruby's own Comparable module
// offers.
func installComparableHook(m *vm.VM) {
	mod := object.NewClass("Comparable", nil)
	m.Classes["Comparable"] = mod

	cmp := func(c object.Caller, self, other object.Value) (int64, bool, error) {
		res, err := c.CallMethod(self, "<=>", []object.Value{other}, nil)
		if err != nil {
			return 0, false, err
		}
		n, ok := res.(int64)
		return n, ok, nil
	}
	op := func(test func(n int64) bool) object.NativeFunc {
		return func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
			n, ok, err := cmp(c, self, arg(args, 0))
			if err != nil {
				return nil, err
			}
			if !ok {
				return false, nil
			}
			return test(n), nil
		}
	}
	def(mod, "<", op(func(n int64) bool { return n < 0 }))
	def(mod, ">", op(func(n int64) bool { return n > 0 }))
	def(mod, "<=", op(func(n int64) bool { return n <= 0 }))
	def(mod, ">=", op(func(n int64) bool { return n >= 0 }))
	def(mod, "==", op(func(n int64) bool { return n == 0 }))
	def(mod, "between?", func(c object.Caller, self object.Value, args []object.Value, block object.Value) (object.Value, error) {
		lo, ok1, err := cmp(c, self, arg(args, 0))
		if err != nil {
			return nil, err
		}
		hi, ok2, err := cmp(c, self, arg(args, 1))
		if err != nil {
			return nil, err
		}
		return ok1 && ok2 && lo >= 0 && hi <= 0, nil
	})
}

const (
	lubyerrKindNameError    = "NameError"
	lubyerrKindFrozenError  = "FrozenError"
)
