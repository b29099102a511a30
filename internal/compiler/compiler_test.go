package compiler

import (
	"testing"

	"luby/internal/bytecode"
	"luby/internal/lexer"
	"luby/internal/parser"
)

func compileSrc(t *testing.T, src string) *bytecode.Proto {
	t.Helper()
	s := lexer.NewScanner(src, "<test>")
	toks := s.ScanTokens()
	if s.Err() != nil {
		t.Fatalf("lex(%q): %s", src, s.Err())
	}
	p := parser.New(toks, "<test>")
	body := p.Parse()
	if p.Err() != nil {
		t.Fatalf("parse(%q): %s", src, p.Err())
	}
	proto, err := Compile(body, "<test>")
	if err != nil {
		t.Fatalf("compile(%q): %s", src, err)
	}
	return proto
}

// opsIn walks a Proto's raw code exactly the way runFrame's dispatch loop
// consumes operand bytes, so it never misinterprets an operand as the next
// opcode (OpMakeClosure in particular has a variable-length tail).
func opsIn(p *bytecode.Proto) []bytecode.OpCode {
	var ops []bytecode.OpCode
	code := p.Code
	i := 0
	readByte := func() int { b := code[i]; i++; return int(b) }
	for i < len(code) {
		op := bytecode.OpCode(code[i])
		i++
		ops = append(ops, op)
		switch op {
		case bytecode.OpJump, bytecode.OpJumpIfFalse, bytecode.OpJumpIfTrue,
			bytecode.OpAndJump, bytecode.OpOrJump, bytecode.OpLoop:
			i += 2
		case bytecode.OpConstant, bytecode.OpGetLocal, bytecode.OpSetLocal,
			bytecode.OpGetGlobal, bytecode.OpSetGlobal, bytecode.OpDefineGlobal,
			bytecode.OpGetIvar, bytecode.OpSetIvar, bytecode.OpGetCvar, bytecode.OpSetCvar,
			bytecode.OpGetUpvalue, bytecode.OpSetUpvalue, bytecode.OpMakeArray, bytecode.OpMakeHash,
			bytecode.OpIndexGet, bytecode.OpIndexSet, bytecode.OpGetConst, bytecode.OpSetConst,
			bytecode.OpYield, bytecode.OpDefineClass, bytecode.OpDefineModule:
			i++
		case bytecode.OpDefineMethod, bytecode.OpCall, bytecode.OpSuper:
			i += 2
		case bytecode.OpCallMethod, bytecode.OpSend:
			i += 3
		case bytecode.OpMakeClosure:
			readByte()             // proto const idx
			n := readByte()        // upvalue count
			i += 2 * n             // (fromParentLocal, idx) pairs
			readByte()             // isLambda flag
		}
	}
	return ops
}

func TestCompileWhileUsesPlainJumpsNotSignals(t *testing.T) {
	proto := compileSrc(t, "x = 0\nwhile x < 3\nx = x + 1\nend")
	for _, op := range opsIn(proto) {
		if op == bytecode.OpBreak || op == bytecode.OpNext {
			t.Fatalf("a while loop with no break/next should not emit control signals, got %v", opsIn(proto))
		}
	}
	found := false
	for _, op := range opsIn(proto) {
		if op == bytecode.OpLoop {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a back-edge OpLoop in compiled while body, got %v", opsIn(proto))
	}
}

func TestCompileLogicalAndShortCircuits(t *testing.T) {
	proto := compileSrc(t, "a && b")
	ops := opsIn(proto)
	found := false
	for _, op := range ops {
		if op == bytecode.OpAndJump {
			found = true
		}
	}
	if !found {
		t.Fatalf("want OpAndJump for &&, got %v", ops)
	}
}

func TestCompileLogicalOrShortCircuits(t *testing.T) {
	proto := compileSrc(t, "a || b")
	ops := opsIn(proto)
	found := false
	for _, op := range ops {
		if op == bytecode.OpOrJump {
			found = true
		}
	}
	if !found {
		t.Fatalf("want OpOrJump for ||, got %v", ops)
	}
}

func TestCompileEndsWithReturn(t *testing.T) {
	proto := compileSrc(t, "1")
	ops := opsIn(proto)
	if ops[len(ops)-1] != bytecode.OpReturn {
		t.Fatalf("top-level proto must end with OpReturn, got %v", ops)
	}
}

func TestCompileClassVariableOpcodes(t *testing.T) {
	proto := compileSrc(t, "class C\n@@x = 1\ndef bump; @@x = @@x + 1; end\nend")
	var sawSet, sawGet bool
	var walk func(p *bytecode.Proto)
	walk = func(p *bytecode.Proto) {
		for _, op := range opsIn(p) {
			if op == bytecode.OpGetCvar {
				sawGet = true
			}
			if op == bytecode.OpSetCvar {
				sawSet = true
			}
		}
		for _, c := range p.Constants {
			if child, ok := c.(*bytecode.Proto); ok {
				walk(child)
			}
		}
	}
	walk(proto)
	if !sawGet || !sawSet {
		t.Fatalf("want both OpGetCvar and OpSetCvar emitted somewhere in the class body")
	}
}
