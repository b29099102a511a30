package compiler

import (
	"luby/internal/bytecode"
	"luby/internal/parser"
)

func (c *Compiler) compileIf(n *parser.IfExpr) {
	line := n.Line()
	c.compileExpr(n.Cond)
	thenJump := c.emitJump(bytecode.OpJumpIfFalse, line)
	c.emit(bytecode.OpPop, line)
	c.compileBody(n.Then)
	elseJump := c.emitJump(bytecode.OpJump, line)
	c.patchJump(thenJump)
	c.emit(bytecode.OpPop, line)
	if len(n.Else) > 0 {
		c.compileBody(n.Else)
	} else {
		c.emit(bytecode.OpNil, line)
	}
	c.patchJump(elseJump)
}

// compileWhile opens a native loop context so break/next written
// directly in the body compile to jumps; it desugars `until` to a
// negated condition and leaves Nil as the loop expression's value
// (Ruby's while/until always evaluate to nil unless broken with a
// value).
func (c *Compiler) compileWhile(n *parser.WhileExpr) {
	line := n.Line()
	parentLoop := c.fn.loop
	loop := &loopCtx{parent: parentLoop}
	c.fn.loop = loop

	if n.IsModifier {
		// `body while cond` / `body until cond`: run body once, then
		// test, looping back while the condition holds (do-while form).
		bodyStart := len(c.fn.proto.Code)
		loop.continueTarget = bodyStart
		c.compileBody(n.Body)
		c.emit(bytecode.OpPop, line)
		c.compileExpr(n.Cond)
		exitJump := c.emitJump(bytecode.OpJumpIfFalse, line)
		c.emit(bytecode.OpPop, line)
		c.emitLoop(bodyStart, line)
		c.patchJump(exitJump)
		c.emit(bytecode.OpPop, line)
		c.emit(bytecode.OpNil, line)
		for _, j := range loop.breakJumps {
			c.patchJump(j)
		}
		c.fn.loop = parentLoop
		return
	}

	condStart := len(c.fn.proto.Code)
	loop.continueTarget = condStart
	c.compileExpr(n.Cond)
	if n.Until {
		c.emit(bytecode.OpNot, line)
	}
	exitJump := c.emitJump(bytecode.OpJumpIfFalse, line)
	c.emit(bytecode.OpPop, line)
	c.compileBody(n.Body)
	c.emit(bytecode.OpPop, line)
	c.emitLoop(condStart, line)
	c.patchJump(exitJump)
	c.emit(bytecode.OpPop, line)
	c.emit(bytecode.OpNil, line)
	for _, j := range loop.breakJumps {
		c.patchJump(j)
	}
	c.fn.loop = parentLoop
}

func (c *Compiler) compileBreak(n *parser.BreakExpr) {
	line := n.Line()
	c.compileValueOrNil(n.Value)
	if c.fn.loop != nil {
		jump := c.emitJump(bytecode.OpJump, line)
		c.fn.loop.breakJumps = append(c.fn.loop.breakJumps, jump)
		return
	}
	c.emit(bytecode.OpBreak, line)
}

func (c *Compiler) compileNext(n *parser.NextExpr) {
	line := n.Line()
	if c.fn.loop != nil {
		c.compileValueOrNil(n.Value)
		c.emit(bytecode.OpPop, line)
		c.emitLoop(c.fn.loop.continueTarget, line)
		return
	}
	c.compileValueOrNil(n.Value)
	c.emit(bytecode.OpNext, line)
}

// compileCase binds the subject (if any) to a hidden local so each
// `when` clause can test `cond === subject` without re-evaluating or
// juggling stack depth: cond is always the receiver of `===`, per
// Ruby's case-equality contract.
func (c *Compiler) compileCase(n *parser.CaseExpr) {
	line := n.Line()
	hasSubject := n.Subject != nil
	subjectSlot := -1
	if hasSubject {
		c.compileExpr(n.Subject)
		subjectSlot = c.fn.scope.declare("")
		c.emit(bytecode.OpSetLocal, line)
		c.emitByte(byte(subjectSlot), line)
		c.emit(bytecode.OpPop, line)
	}
	var endJumps []int
	for _, when := range n.Whens {
		var nextWhenJumps []int
		for _, cond := range when.Conds {
			c.compileExpr(cond)
			if hasSubject {
				c.emit(bytecode.OpGetLocal, line)
				c.emitByte(byte(subjectSlot), line)
				c.emit(bytecode.OpCallMethod, line)
				c.emitByte(byte(c.constIdx("===")), line)
				c.emitByte(1, line)
				c.emitByte(0, line)
			}
			matchJump := c.emitJump(bytecode.OpJumpIfTrue, line)
			c.emit(bytecode.OpPop, line)
			nextWhenJumps = append(nextWhenJumps, matchJump)
		}
		skipBody := c.emitJump(bytecode.OpJump, line)
		for _, j := range nextWhenJumps {
			c.patchJump(j)
		}
		c.emit(bytecode.OpPop, line)
		c.compileBody(when.Body)
		endJumps = append(endJumps, c.emitJump(bytecode.OpJump, line))
		c.patchJump(skipBody)
	}
	if len(n.Else) > 0 {
		c.compileBody(n.Else)
	} else {
		c.emit(bytecode.OpNil, line)
	}
	for _, j := range endJumps {
		c.patchJump(j)
	}
}

// compileBegin emits the protected body inline and records one Handler
// exception-table entry per rescue clause plus (if present) one Ensure
// entry spanning body+rescues, matching /§4.4.
func (c *Compiler) compileBegin(n *parser.BeginExpr) {
	line := n.Line()
	start := len(c.fn.proto.Code)
	c.compileBody(n.Body)
	if len(n.ElseBody) > 0 {
		c.emit(bytecode.OpPop, line)
		c.compileBody(n.ElseBody)
	}
	bodyEnd := len(c.fn.proto.Code)
	doneJump := c.emitJump(bytecode.OpJump, line)

	for _, rc := range n.Rescues {
		handlerPC := len(c.fn.proto.Code)
		localSlot := -1
		if rc.BindLocal != "" {
			localSlot = c.fn.scope.declare(rc.BindLocal)
			c.emit(bytecode.OpSetLocal, line)
			c.emitByte(byte(localSlot), line)
			c.emit(bytecode.OpPop, line)
		} else {
			c.emit(bytecode.OpPop, line)
		}
		c.compileBody(rc.Body)
		c.emit(bytecode.OpJump, line)
		endJ := c.fn.proto.WriteUint16(0xFFFF, line)

		filterIdx := -1
		if len(rc.Filters) > 0 {
			// Every filter class name goes into one constant ([]string)
			// referenced by the handler; the VM matches the raised
			// exception against each name in turn.
			names := make([]string, len(rc.Filters))
			for i, f := range rc.Filters {
				if ce, ok := f.(*parser.ConstExpr); ok {
					names[i] = ce.Name
				}
			}
			filterIdx = c.constIdx(names)
		}
		c.fn.proto.Handlers = append(c.fn.proto.Handlers, bytecode.Handler{
			StartPC: start, EndPC: bodyEnd, HandlerPC: handlerPC,
			Kind: bytecode.HandlerRescue, FilterConstIdx: filterIdx, LocalSlot: localSlot,
		})
		c.patchJump(doneJump)
		doneJump = endJ
	}
	c.patchJump(doneJump)

	if len(n.Ensure) > 0 {
		ensurePC := len(c.fn.proto.Code)
		c.compileBody(n.Ensure)
		c.emit(bytecode.OpPop, line)
		ensureEnd := len(c.fn.proto.Code)
		c.fn.proto.Handlers = append(c.fn.proto.Handlers, bytecode.Handler{
			StartPC: start, EndPC: ensurePC, HandlerPC: ensurePC,
			Kind: bytecode.HandlerEnsure, FilterConstIdx: -1, LocalSlot: -1,
			EnsureEnd: ensureEnd,
		})
	}
}

func (c *Compiler) compileRaise(n *parser.RaiseExpr) {
	line := n.Line()
	if n.ClassExpr == nil && n.Message == nil {
		c.emit(bytecode.OpNil, line)
		c.emit(bytecode.OpRaise, line)
		return
	}
	c.compileValueOrNil(n.ClassExpr)
	c.compileValueOrNil(n.Message)
	c.emit(bytecode.OpMakeArray, line)
	c.emitByte(2, line)
	c.emit(bytecode.OpRaise, line)
}

func (c *Compiler) compileMultiAssign(n *parser.MultiAssignExpr) {
	line := n.Line()
	if len(n.Values) == 1 {
		c.compileExpr(n.Values[0])
	} else {
		for _, v := range n.Values {
			c.compileExpr(v)
		}
		c.emit(bytecode.OpMakeArray, line)
		c.emitByte(byte(len(n.Values)), line)
	}
	// The RHS is now a single Array value on the stack; destructure it
	// by indexing, matching Ruby's implicit-to-array multi-assign rule.
	for i, target := range n.Targets {
		c.emit(bytecode.OpDup, line)
		c.emit(bytecode.OpConstant, line)
		c.emitByte(byte(c.constIdx(int64(i))), line)
		c.emit(bytecode.OpIndexGet, line)
		c.emitByte(1, line)
		c.storeTarget(target, line, false)
		c.emit(bytecode.OpPop, line)
	}
}
