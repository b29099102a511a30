package compiler

import (
	"luby/internal/bytecode"
	"luby/internal/parser"
)

func (c *Compiler) compileInterpolation(n *parser.InterpolationExpr) {
	if len(n.Parts) == 0 {
		c.emit(bytecode.OpConstant, n.Line())
		c.emitByte(byte(c.constIdx("")), n.Line())
		return
	}
	for i, part := range n.Parts{
		c.compileExpr(part)
		if _, ok := part.(*parser.StringLit); !ok {
			c.emit(bytecode.OpCallMethod, part.Line())
			c.emitByte(byte(c.constIdx("to_s")), part.Line())
			c.emitByte(0, part.Line())
			c.emitByte(0, part.Line())
		}
		if i > 0 {
			c.emit(bytecode.OpAdd, part.Line())
		}
	}
}

func (c *Compiler) compileArrayLit(n *parser.ArrayLit) {
	for _, e := range n.Elements {
		c.compileExpr(e)
	}
	c.emit(bytecode.OpMakeArray, n.Line())
	c.emitByte(byte(len(n.Elements)), n.Line())
}

func (c *Compiler) compileHashLit(n *parser.HashLit) {
	for i := range n.Keys {
		c.compileExpr(n.Keys[i])
		c.compileExpr(n.Values[i])
	}
	c.emit(bytecode.OpMakeHash, n.Line())
	c.emitByte(byte(len(n.Keys)), n.Line())
}

// compileIdentRead resolves a bare lowercase identifier: a local, an
// upvalue, or (if neither) an implicit-self method call with no args,
// local-vs-call dispatch priority.
func (c *Compiler) compileIdentRead(n *parser.Ident) {
	if idx, ok := c.fn.scope.resolveLocal(n.Name); ok {
		c.emit(bytecode.OpGetLocal, n.Line())
		c.emitByte(byte(idx), n.Line())
		return
	}
	if idx, ok := c.fn.scope.resolveUpvalue(n.Name); ok {
		c.emit(bytecode.OpGetUpvalue, n.Line())
		c.emitByte(byte(idx), n.Line())
		return
	}
	c.emit(bytecode.OpGetSelf, n.Line())
	c.emit(bytecode.OpSend, n.Line())
	c.emitByte(byte(c.constIdx(n.Name)), n.Line())
	c.emitByte(0, n.Line())
	c.emitByte(0, n.Line())
}

func (c *Compiler) compileConstRead(n *parser.ConstExpr) {
	if n.Scope != nil {
		c.compileExpr(n.Scope)
	} else {
		c.emit(bytecode.OpNil, n.Line())
	}
	c.emit(bytecode.OpGetConst, n.Line())
	c.emitByte(byte(c.constIdx(n.Name)), n.Line())
}

func (c *Compiler) compileBinary(n *parser.BinaryExpr) {
	c.compileExpr(n.Left)
	c.compileExpr(n.Right)
	line := n.Line()
	switch n.Op {
	case "+":
		c.emit(bytecode.OpAdd, line)
	case "-":
		c.emit(bytecode.OpSub, line)
	case "*":
		c.emit(bytecode.OpMul, line)
	case "/":
		c.emit(bytecode.OpDiv, line)
	case "%":
		c.emit(bytecode.OpMod, line)
	case "==":
		c.emit(bytecode.OpEqual, line)
	case "!=":
		c.emit(bytecode.OpNotEqual, line)
	case "<":
		c.emit(bytecode.OpLess, line)
	case ">":
		c.emit(bytecode.OpGreater, line)
	case "<=":
		c.emit(bytecode.OpLessEqual, line)
	case ">=":
		c.emit(bytecode.OpGreaterEqual, line)
	case "**":
		c.emit(bytecode.OpCallMethod, line)
		c.emitByte(byte(c.constIdx("**")), line)
		c.emitByte(1, line)
		c.emitByte(0, line)
	case "<=>":
		c.emit(bytecode.OpCallMethod, line)
		c.emitByte(byte(c.constIdx("<=>")), line)
		c.emitByte(1, line)
		c.emitByte(0, line)
	default:
		c.fail(line, "compiler: unknown binary operator %q", n.Op)
	}
}

// compileLogical implements short-circuit &&/|| using AND_JUMP/OR_JUMP,
// which peek rather than pop so the short-circuited value survives as
// the expression's result.
func (c *Compiler) compileLogical(n *parser.LogicalExpr) {
	c.compileExpr(n.Left)
	line := n.Line()
	var jump int
	if n.Op == "&&" || n.Op == "and" {
		jump = c.emitJump(bytecode.OpAndJump, line)
	} else {
		jump = c.emitJump(bytecode.OpOrJump, line)
	}
	c.emit(bytecode.OpPop, line)
	c.compileExpr(n.Right)
	c.patchJump(jump)
}

func (c *Compiler) compileAssign(n *parser.AssignExpr) {
	line := n.Line()
	if n.Op == "||=" || n.Op == "&&=" {
		c.compileExpr(n.Target)
		var jump int
		if n.Op == "||=" {
			jump = c.emitJump(bytecode.OpOrJump, line)
		} else {
			jump = c.emitJump(bytecode.OpAndJump, line)
		}
		c.emit(bytecode.OpPop, line)
		c.compileExpr(n.Value)
		c.storeTarget(n.Target, line, true)
		c.patchJump(jump)
		return
	}
	if n.Op != "=" {
		c.compileExpr(n.Target)
		c.compileExpr(n.Value)
		switch n.Op {
		case "+=":
			c.emit(bytecode.OpAdd, line)
		case "-=":
			c.emit(bytecode.OpSub, line)
		case "*=":
			c.emit(bytecode.OpMul, line)
		case "/=":
			c.emit(bytecode.OpDiv, line)
		}
		c.storeTarget(n.Target, line, false)
		return
	}
	if call, ok := n.Target.(*parser.CallExpr); ok && call.HasReceiver {
		c.compileAttrWriterAssign(call, n.Value, line)
		return
	}
	c.compileExpr(n.Value)
	c.storeTarget(n.Target, line, false)
}

// compileAttrWriterAssign compiles `recv.name = value` as a call to the
// `name=` writer method. The assignment expression's value is `value`
// itself, not the writer's return value, matching Ruby semantics.
func (c *Compiler) compileAttrWriterAssign(call *parser.CallExpr, value parser.Expr, line int) {
	c.compileExpr(call.Receiver)
	c.compileExpr(value)
	slot := c.fn.scope.declare("")
	c.emit(bytecode.OpSetLocal, line)
	c.emitByte(byte(slot), line)
	c.emit(bytecode.OpCallMethod, line)
	c.emitByte(byte(c.constIdx(call.Method+"=")), line)
	c.emitByte(1, line)
	c.emitByte(0, line)
	c.emit(bytecode.OpPop, line) // discard writer's return value
	c.emit(bytecode.OpGetLocal, line)
	c.emitByte(byte(slot), line)
}

// storeTarget emits the write half of an assignment. When dup is true
// the stack already holds the value to store as the top element and the
// result must remain on the stack (used by compound-assign jump targets
// where the value came from the jump's surviving operand).
func (c *Compiler) storeTarget(target parser.Expr, line int, dup bool) {
	switch t := target.(type) {
	case *parser.Ident:
		if idx, ok := c.fn.scope.resolveLocal(t.Name); ok {
			c.emit(bytecode.OpDup, line)
			c.emit(bytecode.OpSetLocal, line)
			c.emitByte(byte(idx), line)
			c.emit(bytecode.OpPop, line)
			return
		}
		if idx, ok := c.fn.scope.resolveUpvalue(t.Name); ok {
			c.emit(bytecode.OpDup, line)
			c.emit(bytecode.OpSetUpvalue, line)
			c.emitByte(byte(idx), line)
			c.emit(bytecode.OpPop, line)
			return
		}
		idx := c.fn.scope.declare(t.Name)
		c.emit(bytecode.OpDup, line)
		c.emit(bytecode.OpSetLocal, line)
		c.emitByte(byte(idx), line)
		c.emit(bytecode.OpPop, line)
	case *parser.IVarExpr:
		c.emit(bytecode.OpDup, line)
		c.emit(bytecode.OpSetIvar, line)
		c.emitByte(byte(c.constIdx(t.Name)), line)
		c.emit(bytecode.OpPop, line)
	case *parser.CVarExpr:
		c.emit(bytecode.OpDup, line)
		c.emit(bytecode.OpSetCvar, line)
		c.emitByte(byte(c.constIdx(t.Name)), line)
		c.emit(bytecode.OpPop, line)
	case *parser.GVarExpr:
		c.emit(bytecode.OpDup, line)
		c.emit(bytecode.OpSetGlobal, line)
		c.emitByte(byte(c.constIdx("$" + t.Name)), line)
		c.emit(bytecode.OpPop, line)
	case *parser.ConstExpr:
		c.emit(bytecode.OpDup, line)
		c.emit(bytecode.OpSetConst, line)
		c.emitByte(byte(c.constIdx(t.Name)), line)
		c.emit(bytecode.OpPop, line)
	default:
		c.fail(line, "invalid assignment target")
	}
	_ = dup
}
