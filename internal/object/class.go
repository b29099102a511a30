package object

import "luby/internal/bytecode"

// Visibility is a method's dispatch visibility.
type Visibility int

const (
	Public Visibility = iota
	Protected
	Private
)

// Method is a single method definition: either a Proto compiled from a
// `def`, or a NativeFunc registered by the embedding host or the builtin
// kernel.
type Method struct {
	Name       string
	Owner      *Class
	Proto      *bytecode.Proto
	Native     NativeFunc
	Visibility Visibility
}

// NativeFunc is a host- or kernel-registered method body. args excludes
// the receiver; block is nil if no block was passed.
type NativeFunc func(vm Caller, self Value, args []Value, block Value) (Value, error)

// Caller is the minimal surface the object model needs back from the VM
// to invoke a block or method during a native call (e.g. Array#each
// calling the supplied block once per element). Defined here rather than
// imported from internal/vm to avoid an import cycle; internal/vm's VM
// type satisfies it.
type Caller interface {
	CallBlock(block Value, args []Value) (Value, error)
	CallMethod(recv Value, name string, args []Value, block Value) (Value, error)
	// Send bypasses visibility checks, the way the SEND opcode (explicit
	// `.send`/reflective dispatch) does — documented exception
	// to the private/protected rule.
	Send(recv Value, name string, args []Value, block Value) (Value, error)
	Raise(kind, message string) error
}

// Module is a named bag of methods and constants that can be mixed into
// classes via include/prepend/extend. A Class is a Module with a
// superclass pointer.
type Module struct {
	Heap
	Name        string
	Methods     map[string]*Method
	Constants   map[string]Value
	ClassVars   map[string]Value
	Includes    []*Module // most-recently-included first
	Prepends    []*Module
	epoch       *uint64 // one counter shared by every Class, bumped on redefinition

	// DefaultVisibility is the mode `private`/`public`/`protected` (with
	// no arguments) switches to for subsequent `def`s in this module's
	// body.
	DefaultVisibility Visibility
	// ModuleFunctionMode mirrors `module_function` with no arguments:
	// every subsequent `def` is registered both as an instance method
	// and as a singleton method on the module itself.
	ModuleFunctionMode bool
}

func NewModule(name string) *Module {
	return &Module{
		Name:      name,
		Methods:   map[string]*Method{},
		Constants: map[string]Value{},
		ClassVars: map[string]Value{},
	}
}

// Class adds single inheritance and per-class state (ivars live on
// Instance, not here) to Module.
type Class struct {
	Module
	Super     *Class
	IsSingleton bool
	Attached    Value // for singleton classes: the object this class was split off of
	epochVal    uint64

	// StaticMethods holds `def self.x` methods, i.e. methods callable
	// directly on the Class value itself rather than on its instances.
	StaticMethods map[string]*Method
}

var globalEpoch uint64

func NewClass(name string, super *Class) *Class {
	c := &Class{Module: *NewModule(name), Super: super, StaticMethods: map[string]*Method{}}
	c.epoch = &globalEpoch
	return c
}

// Ancestors returns the method-resolution order: prepends (most recent
// first), self, includes (most recent first), then the superclass chain,
// each level itself expanded the same way. Later includes/prepends shadow
// earlier ones at the same level.
func (c *Class) Ancestors() []*Module {
	seen := map[*Module]bool{}
	var out []*Module
	var walk func(m *Module, super *Class)
	walk = func(m *Module, super *Class) {
		for _, p := range m.Prepends {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
		for _, inc := range m.Includes {
			if !seen[inc] {
				seen[inc] = true
				out = append(out, inc)
			}
		}
		if super != nil {
			walk(&super.Module, super.Super)
		}
	}
	walk(&c.Module, c.Super)
	return out
}

// Include inserts mod at the front of the includes list: later includes
// shadow earlier ones, matching Ruby's semantics and explicit
// "most recently included wins" invariant.
func (c *Class) Include(mod *Module) {
	c.Includes = append([]*Module{mod}, c.Includes...)
	c.bumpEpoch()
}

func (c *Class) Prepend(mod *Module) {
	c.Prepends = append([]*Module{mod}, c.Prepends...)
	c.bumpEpoch()
}

func (c *Class) DefineMethod(m *Method) {
	m.Owner = c
	c.Methods[m.Name] = m
	c.bumpEpoch()
}

func (c *Class) bumpEpoch() {
	*c.epoch++
	// Every class points at the same counter, so a change to c also
	// invalidates cached lookups made through its subclasses.
}

func (c *Class) Epoch() uint64 { return *c.epoch }

// Lookup walks Ancestors() for the first method named `name`; ok is
// false when no ancestor defines it. Callers use MethodCache to avoid
// re-walking ancestors on every call.
func (c *Class) Lookup(name string) (*Method, bool) {
	for _, m := range c.Ancestors() {
		if meth, ok := m.Methods[name]; ok {
			return meth, true
		}
	}
	return nil, false
}

// cacheEntry is one inline-cache slot keyed by the class identity seen
// at that call site plus the class's epoch at the time of the lookup.
type cacheEntry struct {
	class *Class
	epoch uint64
	pc    int
	method *Method
	found  bool
}

// MethodCache is a small inline cache; the VM keeps one instance per
// Frame, with entries keyed by call-site pc and receiver class.
type MethodCache struct {
	entries []cacheEntry
}

func (mc *MethodCache) Lookup(pc int, c *Class, name string) (*Method, bool) {
	for i := range mc.entries {
		e := &mc.entries[i]
		if e.pc == pc && e.class == c {
			if e.epoch == c.Epoch() {
				return e.method, e.found
			}
			m, ok := c.Lookup(name)
			*e = cacheEntry{class: c, epoch: c.Epoch(), pc: pc, method: m, found: ok}
			return m, ok
		}
	}
	m, ok := c.Lookup(name)
	mc.entries = append(mc.entries, cacheEntry{class: c, epoch: c.Epoch(), pc: pc, method: m, found: ok})
	return m, ok
}

// SingletonClass returns (creating if needed) the per-object singleton
// class used for `def self.foo` and `obj.define_singleton_method` on an
// Instance. A Class's own `def self.x` methods live in its StaticMethods.
func SingletonClass(of *Instance) *Class {
	if of.Singleton != nil {
		return of.Singleton
	}
	sc := NewClass("#<Class:"+of.Class.Name+">", of.Class)
	sc.IsSingleton = true
	sc.Attached = of
	of.Singleton = sc
	return sc
}

// Instance is a plain object: its class plus instance variables. Class
// values, Module values and Instance values are unified behind Value;
// a Class used as a receiver for `self.method` dispatch resolves through
// its StaticMethods.
type Instance struct {
	Heap
	Class     *Class
	IVars     map[string]Value
	Singleton *Class
	Native    interface{} // host userdata payload, opaque to the interpreter
}

func NewInstance(class *Class) *Instance {
	return &Instance{Class: class, IVars: map[string]Value{}}
}

func (o *Instance) EffectiveClass() *Class {
	if o.Singleton != nil {
		return o.Singleton
	}
	return o.Class
}
