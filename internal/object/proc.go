package object

import "luby/internal/bytecode"

// Upvalue is a captured variable cell shared between a closure and its
// defining scope. The VM closes a cell (copies the local into Closed) as
// soon as it is captured; from then on the defining frame reads and
// writes that local through the cell too.
type Upvalue struct {
	Closed  Value
	IsOpen  bool
	StackIdx int // frame-relative index of the captured local
}

// Proc is a closure: a compiled Proto plus its captured upvalues, used
// both for blocks passed to methods and for `->`/lambda objects and
// `define_method` bodies.
type Proc struct {
	Heap
	Proto     *bytecode.Proto
	Upvalues  []*Upvalue
	Self      Value // self captured at creation time
	IsLambda  bool  // lambdas: `return` exits the lambda itself; blocks: `return` exits the enclosing method
}

func NewProc(proto *bytecode.Proto, self Value, upvalues []*Upvalue, isLambda bool) *Proc {
	return &Proc{Proto: proto, Self: self, Upvalues: upvalues, IsLambda: isLambda}
}

// BoundMethod is the value produced by `obj.method(:name)`: a Method
// bound to a specific receiver so it can be called or passed as a block
// via `&`.
type BoundMethod struct {
	Heap
	Receiver Value
	Method   *Method
}

func NewBoundMethod(recv Value, m *Method) *BoundMethod {
	return &BoundMethod{Receiver: recv, Method: m}
}
