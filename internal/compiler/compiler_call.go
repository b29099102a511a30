package compiler

import (
	"luby/internal/bytecode"
	"luby/internal/parser"
)

func (c *Compiler) compileCall(n *parser.CallExpr) {
	line := n.Line()
	if n.HasReceiver {
		c.compileExpr(n.Receiver)
	} else {
		c.emit(bytecode.OpGetSelf, line)
	}
	for i, a := range n.Args {
		c.compileExpr(a)
		if n.ArgSplats[i] {
			// A splatted argument is compiled like any other argument and
			// passed as a single value; it is not spread into separate
			// arguments.
		}
	}
	hasBlock := byte(0)
	if n.Block != nil {
		c.compileClosureLiteral(n.Block, false)
		hasBlock = 1
	} else if n.BlockArg != nil {
		c.compileExpr(n.BlockArg)
		hasBlock = 1
	}
	if !n.HasReceiver {
		c.emit(bytecode.OpSend, line)
	} else {
		c.emit(bytecode.OpCallMethod, line)
	}
	c.emitByte(byte(c.constIdx(n.Method)), line)
	c.emitByte(byte(len(n.Args)), line)
	c.emitByte(hasBlock, line)
}

func (c *Compiler) compileSuper(n *parser.SuperExpr) {
	line := n.Line()
	c.emit(bytecode.OpGetSelf, line)
	for _, a := range n.Args {
		c.compileExpr(a)
	}
	hasBlock := byte(0)
	if n.Block != nil {
		c.compileClosureLiteral(n.Block, false)
		hasBlock = 1
	}
	c.emit(bytecode.OpSuper, line)
	c.emitByte(byte(len(n.Args)), line)
	c.emitByte(hasBlock, line)
}

// compileClosureLiteral compiles a block/lambda body as its own nested
// Proto and emits MAKE_CLOSURE to instantiate it with the enclosing
// scope's captured upvalues.
func (c *Compiler) compileClosureLiteral(blk *parser.BlockNode, isLambda bool) {
	line := blk.Line()
	proto := bytecode.NewProto("<block>", c.file)
	parentFn := c.fn
	child := &funcCtx{proto: proto, scope: newScope(parentFn.scope), parent: parentFn}
	c.fn = child

	for _, p := range blk.Params {
		idx := child.scope.declare(p.Name)
		_ = idx
		if p.IsSplat {
			proto.HasRest = true
		}
		if p.IsBlock {
			proto.HasBlock = true
		}
	}
	proto.Arity = len(blk.Params)
	if blk.LeaksLocals {
		for i, p := range blk.Params {
			if _, ok := parentFn.scope.resolveLocal(p.Name); !ok {
				if _, ok := parentFn.scope.resolveUpvalue(p.Name); !ok {
					parentFn.scope.declare(p.Name)
				}
			}
			if uv, ok := child.scope.resolveUpvalue(p.Name); ok {
				c.emit(bytecode.OpGetLocal, line)
				c.emitByte(byte(i), line)
				c.emit(bytecode.OpSetUpvalue, line)
				c.emitByte(byte(uv), line)
				c.emit(bytecode.OpPop, line)
			}
		}
	}

	c.compileBody(blk.Body)
	proto.WriteOp(bytecode.OpReturn, lastLine(blk.Body))
	proto.NumLocals = len(child.scope.locals)

	for _, u := range child.scope.upvalues {
		proto.Upvalues = append(proto.Upvalues, bytecode.UpvalueDesc{FromParentLocal: u.fromParentLocal, Index: u.index})
	}

	c.fn = parentFn
	protoIdx := c.constIdx(proto)
	c.emit(bytecode.OpMakeClosure, line)
	c.emitByte(byte(protoIdx), line)
	c.emitByte(byte(len(proto.Upvalues)), line)
	for _, u := range proto.Upvalues {
		if u.FromParentLocal {
			c.emitByte(1, line)
		} else {
			c.emitByte(0, line)
		}
		c.emitByte(byte(u.Index), line)
	}
	if isLambda {
		// MAKE_CLOSURE always produces a Proc; the VM marks it as a
		// lambda (return exits the lambda itself) via a trailing flag
		// byte so LambdaExpr and block literals share one opcode.
		c.emitByte(1, line)
	} else {
		c.emitByte(0, line)
	}
}
