package compiler

import (
	"luby/internal/bytecode"
	"luby/internal/parser"
)

// compileDef compiles a method body as its own Proto (methods never
// close over the defining scope's locals the way blocks do) and emits
// DEFINE_METHOD against whatever class/module body is currently open,
// or against the top-level object's singleton class at file scope.
func (c *Compiler) compileDef(n *parser.DefExpr) {
	line := n.Line()
	proto := bytecode.NewProto(n.Name, c.file)
	parentFn := c.fn
	child := &funcCtx{proto: proto, scope: newScope(nil)}
	c.fn = child

	// positionalCount only counts params that actually occupy a slot in
	// the call's positional argument list: plain and *rest params, not
	// keyword, **rest, or &block ones (the trailing keyword-args hash a
	// call folds its `name: value` arguments into is peeled off and
	// bound separately by bindParams, never landing in frame.locals by
	// position).
	optionalAt, kwAt, kwRestSlot := -1, -1, -1
	positionalCount := 0
	var keywords []bytecode.KeywordParam
	for i, p := range n.Params {
		slot := child.scope.declare(p.Name)
		switch {
		case p.IsKwSplat:
			kwRestSlot = slot
		case p.IsKeyword:
			if kwAt == -1 {
				kwAt = i
			}
			keywords = append(keywords, bytecode.KeywordParam{Name: p.Name, Slot: slot, Required: p.Default == nil})
		case p.IsBlock:
			proto.HasBlock = true
		case p.IsSplat:
			proto.HasRest = true
			positionalCount++
		default:
			if p.Default != nil && optionalAt == -1 {
				optionalAt = positionalCount
			}
			positionalCount++
		}
	}
	proto.Arity = positionalCount
	proto.OptionalAt = optionalAt
	proto.KeywordAt = kwAt
	proto.Keywords = keywords
	proto.HasKwRest = kwRestSlot >= 0
	proto.KwRestSlot = kwRestSlot

	for i, p := range n.Params {
		if p.Default == nil {
			continue
		}
		c.emit(bytecode.OpGetLocal, line)
		c.emitByte(byte(i), line)
		c.emit(bytecode.OpNil, line)
		c.emit(bytecode.OpEqual, line)
		skip := c.emitJump(bytecode.OpJumpIfFalse, line)
		c.emit(bytecode.OpPop, line)
		c.compileExpr(p.Default)
		c.emit(bytecode.OpSetLocal, line)
		c.emitByte(byte(i), line)
		c.emit(bytecode.OpPop, line)
		doneDefault := c.emitJump(bytecode.OpJump, line)
		c.patchJump(skip)
		c.emit(bytecode.OpPop, line)
		c.patchJump(doneDefault)
	}

	c.compileBody(n.Body)
	c.emit(bytecode.OpReturn, lastLine(n.Body))
	proto.NumLocals = len(child.scope.locals)

	c.fn = parentFn
	protoIdx := c.constIdx(proto)
	c.emit(bytecode.OpConstant, line)
	c.emitByte(byte(protoIdx), line)
	c.emit(bytecode.OpDefineMethod, line)
	c.emitByte(byte(c.constIdx(n.Name)), line)
	if n.SelfReceiver {
		c.emitByte(1, line)
	} else {
		c.emitByte(0, line)
	}
}

// compileClass opens a class body as an ordinary nested statement
// sequence executed with self rebound to the class object, matching the
// teacher's direct-execution style for top-level bodies rather than
// compiling a fully separate Proto per class (classes reopen, so their
// bodies run every time `class Foo ... end` is evaluated).
func (c *Compiler) compileClass(n *parser.ClassExpr) {
	line := n.Line()
	if n.Super != nil {
		c.compileExpr(n.Super)
	} else {
		c.emit(bytecode.OpNil, line)
	}
	c.emit(bytecode.OpDefineClass, line)
	c.emitByte(byte(c.constIdx(n.Name)), line)
	c.compileOpenBody(n.Body)
	c.emit(bytecode.OpEndClassBody, line)
}

func (c *Compiler) compileModule(n *parser.ModuleExpr) {
	line := n.Line()
	c.emit(bytecode.OpDefineModule, line)
	c.emitByte(byte(c.constIdx(n.Name)), line)
	c.compileOpenBody(n.Body)
	c.emit(bytecode.OpEndClassBody, line)
}

// compileOpenBody compiles a class/module body inline in the current
// Proto: OpDefineClass/OpDefineModule has already pushed the new
// class/module as the VM's "current open class" and rebound self, so
// DefExpr nodes inside simply emit DEFINE_METHOD against it.
func (c *Compiler) compileOpenBody(body []parser.Expr) {
	wasInClassBody := c.fn.inClassBody
	c.fn.inClassBody = true
	for _, e := range body {
		c.compileExpr(e)
		c.emit(bytecode.OpPop, e.Line())
	}
	c.fn.inClassBody = wasInClassBody
}
