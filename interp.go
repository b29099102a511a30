// Package luby is the embedding API: a host program does
// `import "luby"`, builds a Config, calls New, and drives the
// interpreter through Eval/InvokeGlobal/InvokeMethod the way the pack's
// own embeddable interpreters (yaegi's interp.Interpreter, langlang's
// vm.VM) expose a single top-level constructor type.
package luby

import (
	"github.com/google/uuid"

	"luby/internal/builtin"
	"luby/internal/bytecode"
	"luby/internal/compiler"
	lubyerrors "luby/internal/errors"
	"luby/internal/fiber"
	"luby/internal/lexer"
	"luby/internal/object"
	"luby/internal/parser"
	"luby/internal/vm"
)

// NativeFunc is the signature for a host-registered global
// (RegisterFunction) or method (DefineMethod) body. args excludes the
// receiver; block is nil if the script call passed no block.
type NativeFunc = object.NativeFunc

// Value is any runtime value the interpreter passes across the
// embedding boundary: nil, bool, int64, float64, object.Symbol, or one
// of the *object.StringObj/*object.ArrayObj/*object.HashObj/
// *object.RangeObj/*object.Instance/*object.Class heap kinds.
type Value = object.Value

// Interp is one interpreter instance: its own globals, class registry
// and resource budgets, matching `L` handle. Every Interp
// carries a uuid identity, surfaced in backtraces' frame-0 correlation
// id and in the optional inspector stream, so a host running several
// interpreters (or an inspector client watching several) can tell them
// apart.
type Interp struct {
	ID uuid.UUID

	vm      *vm.VM
	lastErr *lubyerrors.LubyError
}

// New builds an interpreter with the primitive kernel already
// installed and the given resource limits and VFS
// wired in.
func New(cfg Config) *Interp {
	m := vm.New()
	m.Budgets.MaxInstructions = cfg.InstructionLimit
	m.Budgets.MaxCallDepth = cfg.CallDepthLimit
	m.Budgets.MaxAllocations = cfg.AllocationLimit
	m.Budgets.MaxMemoryBytes = cfg.MemoryLimit
	if cfg.VFS != nil {
		m.VFS = cfg.VFS
	}
	m.SearchPaths = append([]string(nil), cfg.SearchPaths...)
	builtin.Install(m)
	return &Interp{ID: uuid.New(), vm: m}
}

// Eval compiles and runs source under the synthetic filename "(eval)",
// returning the value of its last expression. A nil error means OK;
// otherwise the returned error is a *lubyerrors.LubyError and the same
// value is retained for LastError/FormatError until ClearError or the
// next Eval/Invoke call.
func (i *Interp) Eval(source string) (Value, error) {
	return i.EvalFile(source, "(eval)")
}

// EvalFile is Eval with an explicit filename, used by require/load's
// internals and by hosts that want accurate backtraces for scripts
// loaded from a named buffer rather than evaluated inline.
func (i *Interp) EvalFile(source, filename string) (Value, error) {
	proto, err := i.compile(source, filename)
	if err != nil {
		return nil, i.fail(err)
	}
	v, err := i.vm.Run(proto, filename)
	if err != nil {
		return nil, i.fail(err)
	}
	i.lastErr = nil
	return v, nil
}

func (i *Interp) compile(source, filename string) (*bytecode.Proto, error) {
	scanner := lexer.NewScanner(source, filename)
	tokens := scanner.ScanTokens()
	if scanner.Err() != nil {
		return nil, scanner.Err()
	}
	p := parser.New(tokens, filename)
	body := p.Parse()
	if p.Err() != nil {
		return nil, p.Err()
	}
	proto, cerr := compiler.Compile(body, filename)
	if cerr != nil {
		return nil, cerr
	}
	return proto, nil
}

// InvokeGlobal calls a top-level `def` by name.
// Top-level defs land as private methods on Object (see
// internal/vm/vm_class.go's execDefineMethod), so this bypasses
// visibility the same way an explicit `.send` would rather than raising
// NoMethodError on every top-level function.
func (i *Interp) InvokeGlobal(name string, args ...Value) (Value, error) {
	v, err := i.vm.Send(i.vm.TopSelf, name, args, nil)
	if err != nil {
		return nil, i.fail(err)
	}
	i.lastErr = nil
	return v, nil
}

// InvokeMethod calls a method on an arbitrary receiver, respecting ordinary public/private visibility.
func (i *Interp) InvokeMethod(recv Value, name string, args ...Value) (Value, error) {
	v, err := i.vm.CallMethod(recv, name, args, nil)
	if err != nil {
		return nil, i.fail(err)
	}
	i.lastErr = nil
	return v, nil
}

// RegisterFunction installs a native global callable from any script
// running in this interpreter, the same way
// the builtin kernel installs puts/print/require.
func (i *Interp) RegisterFunction(name string, fn NativeFunc) {
	i.vm.ObjectClass.DefineMethod(&object.Method{Name: name, Native: fn, Visibility: object.Private})
}

// DefineClass returns (creating if absent) a class handle reachable by
// name from running scripts. A nil super defaults to Object.
func (i *Interp) DefineClass(name string, super *object.Class) *object.Class {
	if existing, ok := i.vm.Classes[name]; ok {
		return existing
	}
	if super == nil {
		super = i.vm.ObjectClass
	}
	c := object.NewClass(name, super)
	i.vm.Classes[name] = c
	return c
}

// DefineMethod installs a native instance method on class.
func (i *Interp) DefineMethod(class *object.Class, name string, fn NativeFunc) {
	class.DefineMethod(&object.Method{Name: name, Native: fn, Visibility: object.Public})
}

// SetGlobal and Global give the host its own globals, separate from
// script-local `$globals`, stored in
// the same table a running script's OpGetGlobal/OpSetGlobal read and
// write, so a host and a script can hand values back and forth.
func (i *Interp) SetGlobal(name string, v Value) { i.vm.Globals[name] = v }
func (i *Interp) Global(name string) Value       { return i.vm.Globals[name] }

// NativeYield suspends the fiber currently running a native function,
// handing value to whatever goroutine called Resume. Calling it outside
// a fiber's native call is a no-op returning nil, mirroring Fiber.yield
// at the top level.
func (i *Interp) NativeYield(value Value) Value {
	return fiber.Yield(value)
}

// LastError returns the error recorded by the most recent Eval/Invoke
// call, or nil if it succeeded or ClearError ran since.
func (i *Interp) LastError() *lubyerrors.LubyError { return i.lastErr }

// FormatError renders LastError as
// "<filename>:<line>: <kind>: <message>", plus source/backtrace when
// known, or "" if there is no pending error.
func (i *Interp) FormatError() string {
	if i.lastErr == nil {
		return ""
	}
	return i.lastErr.Format()
}

// ClearError drops the pending error.
func (i *Interp) ClearError() { i.lastErr = nil }

func (i *Interp) fail(err error) error {
	if le, ok := err.(*lubyerrors.LubyError); ok {
		i.lastErr = le
		return le
	}
	le := lubyerrors.Wrap(err, lubyerrors.RuntimeError, err.Error(), "", 0)
	i.lastErr = le
	return le
}

// AddSearchPath extends the require/load search path.
func (i *Interp) AddSearchPath(path string) {
	i.vm.SearchPaths = append(i.vm.SearchPaths, path)
}

// --- limit getters/setters ---

func (i *Interp) InstructionLimit() int64     { return i.vm.Budgets.MaxInstructions }
func (i *Interp) SetInstructionLimit(n int64) { i.vm.Budgets.MaxInstructions = n }

func (i *Interp) CallDepthLimit() int      { return i.vm.Budgets.MaxCallDepth }
func (i *Interp) SetCallDepthLimit(n int)  { i.vm.Budgets.MaxCallDepth = n }

func (i *Interp) AllocationLimit() int64     { return i.vm.Budgets.MaxAllocations }
func (i *Interp) SetAllocationLimit(n int64) { i.vm.Budgets.MaxAllocations = n }

func (i *Interp) MemoryLimit() int64     { return i.vm.Budgets.MaxMemoryBytes }
func (i *Interp) SetMemoryLimit(n int64) { i.vm.Budgets.MaxMemoryBytes = n }

// --- read-only meters ---

func (i *Interp) InstructionCount() int64 { return i.vm.Budgets.InstructionCount() }
func (i *Interp) AllocationCount() int64  { return i.vm.Budgets.AllocationCount() }
func (i *Interp) MemoryUsage() int64      { return i.vm.Budgets.MemoryUsage() }

// VM exposes the underlying interpreter for callers in this module
// (cmd/luby, internal/inspector) that need lower-level access than the
// embedding API surface offers; external embedders should not need it.
func (i *Interp) VM() *vm.VM { return i.vm }
