// Package compiler lowers a parser.Expr tree into bytecode.Proto: the
// constant-pool bytecode format the VM executes.
package compiler

import (
	"fmt"

	"luby/internal/bytecode"
	lubyerrors "luby/internal/errors"
	"luby/internal/parser"
)

// loopCtx tracks a native while/until loop being compiled, so `break`
// and `next` written directly in its body become ordinary jumps rather
// than the runtime OpBreak/OpNext signal used for block nonlocal exits.
type loopCtx struct {
	continueTarget int
	breakJumps     []int
	parent         *loopCtx
}

// funcCtx is one function (Proto) being compiled: its own scope, its own
// loop-context stack (loops don't cross function/block boundaries), and
// a link to the enclosing funcCtx for upvalue resolution.
type funcCtx struct {
	proto  *bytecode.Proto
	scope  *scope
	loop   *loopCtx
	parent *funcCtx
	// inClassBody is set while compiling a class/module body directly
	// (not inside a nested def), so DefExpr knows to emit DEFINE_METHOD
	// against the open class rather than a plain global def.
	inClassBody bool
}

type Compiler struct {
	file string
	fn   *funcCtx
	err  *lubyerrors.LubyError
}

func New(file string) *Compiler {
	return &Compiler{file: file}
}

func (c *Compiler) Err() *lubyerrors.LubyError { return c.err }

// Compile produces the top-level Proto for a parsed program, equivalent
// to a file body executed with `self` bound to the top-level main
// object.
func Compile(body []parser.Expr, file string) (*bytecode.Proto, *lubyerrors.LubyError) {
	c := New(file)
	proto := bytecode.NewProto("<main>", file)
	c.fn = &funcCtx{proto: proto, scope: newScope(nil)}
	c.compileBody(body)
	if c.err != nil {
		return nil, c.err
	}
	proto.WriteOp(bytecode.OpReturn, lastLine(body))
	proto.NumLocals = len(c.fn.scope.locals)
	return proto, nil
}

func lastLine(body []parser.Expr) int {
	if len(body) == 0 {
		return 0
	}
	return body[len(body)-1].Line()
}

func (c *Compiler) fail(line int, format string, args ...interface{}) {
	if c.err == nil {
		c.err = lubyerrors.New(lubyerrors.CompileError, fmt.Sprintf(format, args...), c.file, line, 0)
	}
}

func (c *Compiler) emit(op bytecode.OpCode, line int) int { return c.fn.proto.WriteOp(op, line) }
func (c *Compiler) emitByte(b byte, line int) int          { return c.fn.proto.WriteByte(b, line) }
func (c *Compiler) emitJump(op bytecode.OpCode, line int) int {
	c.emit(op, line)
	return c.fn.proto.WriteUint16(0xFFFF, line)
}
func (c *Compiler) patchJump(at int) {
	dest := len(c.fn.proto.Code)
	c.fn.proto.PatchUint16(at, uint16(dest))
}
func (c *Compiler) emitLoop(target int, line int) {
	c.emit(bytecode.OpLoop, line)
	c.fn.proto.WriteUint16(uint16(target), line)
}
func (c *Compiler) constIdx(v interface{}) int { return c.fn.proto.AddConstant(v) }

// compileBody compiles a statement list for its side effects, leaving
// only the final statement's value on the stack (an empty body pushes
// Nil).
func (c *Compiler) compileBody(body []parser.Expr) {
	if len(body) == 0 {
		c.emit(bytecode.OpNil, 0)
		return
	}
	for i, e := range body {
		c.compileExpr(e)
		if i != len(body)-1 {
			c.emit(bytecode.OpPop, e.Line())
		}
	}
}

func (c *Compiler) compileExpr(node parser.Expr) {
	line := node.Line()
	switch n := node.(type) {
	case *parser.IntLit:
		c.emit(bytecode.OpConstant, line)
		c.emitByte(byte(c.constIdx(n.Value)), line)
	case *parser.FloatLit:
		c.emit(bytecode.OpConstant, line)
		c.emitByte(byte(c.constIdx(n.Value)), line)
	case *parser.StringLit:
		c.emit(bytecode.OpConstant, line)
		c.emitByte(byte(c.constIdx(n.Value)), line)
	case *parser.SymbolLit:
		c.emit(bytecode.OpConstant, line)
		c.emitByte(byte(c.constIdx(symbolConst(n.Name))), line)
	case *parser.BoolLit:
		if n.Value {
			c.emit(bytecode.OpTrue, line)
		} else {
			c.emit(bytecode.OpFalse, line)
		}
	case *parser.NilLit:
		c.emit(bytecode.OpNil, line)
	case *parser.SelfExpr:
		c.emit(bytecode.OpGetSelf, line)
	case *parser.InterpolationExpr:
		c.compileInterpolation(n)
	case *parser.ArrayLit:
		c.compileArrayLit(n)
	case *parser.HashLit:
		c.compileHashLit(n)
	case *parser.RangeExpr:
		c.compileExpr(n.From)
		c.compileExpr(n.To)
		if n.Exclusive {
			c.emit(bytecode.OpTrue, line)
		} else {
			c.emit(bytecode.OpFalse, line)
		}
		c.emit(bytecode.OpMakeRange, line)
	case *parser.Ident:
		c.compileIdentRead(n)
	case *parser.IVarExpr:
		c.emit(bytecode.OpGetIvar, line)
		c.emitByte(byte(c.constIdx(n.Name)), line)
	case *parser.CVarExpr:
		c.emit(bytecode.OpGetCvar, line)
		c.emitByte(byte(c.constIdx(n.Name)), line)
	case *parser.GVarExpr:
		c.emit(bytecode.OpGetGlobal, line)
		c.emitByte(byte(c.constIdx("$" + n.Name)), line)
	case *parser.ConstExpr:
		c.compileConstRead(n)
	case *parser.UnaryExpr:
		c.compileExpr(n.Operand)
		switch n.Op {
		case "-":
			c.emit(bytecode.OpNegate, line)
		case "!":
			c.emit(bytecode.OpNot, line)
		}
	case *parser.BinaryExpr:
		c.compileBinary(n)
	case *parser.LogicalExpr:
		c.compileLogical(n)
	case *parser.AssignExpr:
		c.compileAssign(n)
	case *parser.MultiAssignExpr:
		c.compileMultiAssign(n)
	case *parser.IndexExpr:
		c.compileExpr(n.Receiver)
		for _, a := range n.Args {
			c.compileExpr(a)
		}
		c.emit(bytecode.OpIndexGet, line)
		c.emitByte(byte(len(n.Args)), line)
	case *parser.IndexSetExpr:
		c.compileExpr(n.Receiver)
		for _, a := range n.Args {
			c.compileExpr(a)
		}
		c.compileExpr(n.Value)
		c.emit(bytecode.OpIndexSet, line)
		c.emitByte(byte(len(n.Args)), line)
	case *parser.CallExpr:
		c.compileCall(n)
	case *parser.SuperExpr:
		c.compileSuper(n)
	case *parser.YieldExpr:
		for _, a := range n.Args {
			c.compileExpr(a)
		}
		c.emit(bytecode.OpYield, line)
		c.emitByte(byte(len(n.Args)), line)
	case *parser.LambdaExpr:
		c.compileClosureLiteral(n.Block, true)
	case *parser.IfExpr:
		c.compileIf(n)
	case *parser.WhileExpr:
		c.compileWhile(n)
	case *parser.CaseExpr:
		c.compileCase(n)
	case *parser.BeginExpr:
		c.compileBegin(n)
	case *parser.BreakExpr:
		c.compileBreak(n)
	case *parser.NextExpr:
		c.compileNext(n)
	case *parser.RedoExpr:
		c.emit(bytecode.OpNil, line)
		c.emit(bytecode.OpRedo, line)
	case *parser.RetryExpr:
		c.emit(bytecode.OpRetry, line)
	case *parser.ReturnExpr:
		c.compileValueOrNil(n.Value)
		c.emit(bytecode.OpReturn, line)
	case *parser.RaiseExpr:
		c.compileRaise(n)
	case *parser.DefExpr:
		c.compileDef(n)
	case *parser.ClassExpr:
		c.compileClass(n)
	case *parser.ModuleExpr:
		c.compileModule(n)
	default:
		c.fail(line, "compiler: unhandled node %T", node)
	}
}

func (c *Compiler) compileValueOrNil(v parser.Expr) {
	if v == nil {
		c.emit(bytecode.OpNil, 0)
		return
	}
	c.compileExpr(v)
}

// symbolConst wraps a symbol literal's name as bytecode.Symbol, the
// constant-pool payload type the VM's OpConstant handler converts to
// object.Symbol on load.
func symbolConst(name string) interface{} { return bytecode.Symbol(name) }
