// Package object defines the runtime value representation: the tagged
// Value used by the VM stack, and the heap records (Class, Module,
// Instance, Proc, Fiber, Range, Array, Hash) that make up the object
// model described by the language's class/module/ancestry rules.
//
// Heap records are plain Go structs behind pointers rather than an
// interface-per-kind hierarchy: the VM's hot path (GET_IVAR, CALL_METHOD,
// arithmetic) type-switches on Value the same way the compiler's AST
// type-switches on Node, so one dispatch idiom is used throughout.
package object

import (
	"fmt"
	"sync/atomic"
)

// Value is anything that can live on the VM stack or in a variable slot.
// Concrete kinds: nil, bool, int64, float64, *StringObj, Symbol,
// *ArrayObj, *HashObj, *RangeObj, *Instance, *Class (classes are objects
// too), *Proc, *BoundMethod. A Fiber is an *Instance whose Native field
// holds the scheduler's *fiber.State.
type Value interface{}

// Symbol is an interned identifier; symbols compare with ==, the same as
// Ruby's Symbol#equal?.
type Symbol string

// Heap is the embedded header every reference-counted heap record
// carries. The host is responsible for breaking reference cycles; Retain/Release implement straight
// refcounting, not a tracing collector.
type Heap struct {
	refs   int32
	frozen int32
}

func (h *Heap) Retain()  { atomic.AddInt32(&h.refs, 1) }
func (h *Heap) Release() int32 { return atomic.AddInt32(&h.refs, -1) }
func (h *Heap) RefCount() int32 { return atomic.LoadInt32(&h.refs) }

// Freeze marks the record permanently frozen; a frozen object never
// thaws.
func (h *Heap) Freeze() { atomic.StoreInt32(&h.frozen, 1) }
func (h *Heap) Frozen() bool { return atomic.LoadInt32(&h.frozen) != 0 }

type StringObj struct {
	Heap
	Value []byte
}

func NewString(s string) *StringObj { return &StringObj{Value: []byte(s)} }
func (s *StringObj) String() string { return string(s.Value) }

type ArrayObj struct {
	Heap
	Elements []Value
}

func NewArray(elems ...Value) *ArrayObj { return &ArrayObj{Elements: elems} }

type hashPair struct {
	Key, Value Value
}

// HashObj preserves insertion order, like Ruby's Hash.
type HashObj struct {
	Heap
	order []hashKey
	pairs map[hashKey]hashPair
}

// hashKey is the comparable projection of a Value used as a map key.
// Non-comparable values (arrays, hashes) are keyed by pointer identity.
type hashKey struct {
	kind byte
	i    int64
	f    float64
	s    string
	ptr  interface{}
}

func keyOf(v Value) hashKey {
	switch x := v.(type) {
	case int64:
		return hashKey{kind: 'i', i: x}
	case float64:
		return hashKey{kind: 'f', f: x}
	case bool:
		if x {
			return hashKey{kind: 'b', i: 1}
		}
		return hashKey{kind: 'b', i: 0}
	case Symbol:
		return hashKey{kind: 'y', s: string(x)}
	case *StringObj:
		return hashKey{kind: 's', s: x.String()}
	case nil:
		return hashKey{kind: 'n'}
	default:
		return hashKey{kind: 'p', ptr: v}
	}
}

func NewHash() *HashObj {
	return &HashObj{pairs: map[hashKey]hashPair{}}
}

func (h *HashObj) Get(key Value) (Value, bool) {
	p, ok := h.pairs[keyOf(key)]
	if !ok {
		return nil, false
	}
	return p.Value, true
}

func (h *HashObj) Set(key, value Value) {
	k := keyOf(key)
	if _, exists := h.pairs[k]; !exists {
		h.order = append(h.order, k)
	}
	h.pairs[k] = hashPair{Key: key, Value: value}
}

func (h *HashObj) Delete(key Value) {
	k := keyOf(key)
	if _, ok := h.pairs[k]; !ok {
		return
	}
	delete(h.pairs, k)
	for i, ok := range h.order {
		if ok == k {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

func (h *HashObj) Len() int { return len(h.order) }

// Each calls fn(key, value) in insertion order.
func (h *HashObj) Each(fn func(k, v Value) bool) {
	for _, k := range h.order {
		p := h.pairs[k]
		if !fn(p.Key, p.Value) {
			return
		}
	}
}

// RangeObj is the heap kind produced by `..`/`...`.
type RangeObj struct {
	Heap
	From, To  Value
	Exclusive bool
}

func NewRange(from, to Value, exclusive bool) *RangeObj {
	return &RangeObj{From: from, To: to, Exclusive: exclusive}
}

// freezable is satisfied by every heap record (they all embed Heap).
// Primitive value-typed kinds (nil/bool/int64/float64/Symbol) are
// already immutable and report frozen unconditionally.
type freezable interface {
	Freeze()
	Frozen() bool
}

func Freeze(v Value) {
	if f, ok := v.(freezable); ok {
		f.Freeze()
	}
}

// IsFrozen reports whether v rejects mutation. Value-typed kinds are
// always frozen; reference kinds defer to their Heap header.
func IsFrozen(v Value) bool {
	if f, ok := v.(freezable); ok {
		return f.Frozen()
	}
	return true
}

func (r *RangeObj) String() string {
	op := ".."
	if r.Exclusive {
		op = "..."
	}
	return fmt.Sprintf("%v%s%v", r.From, op, r.To)
}
