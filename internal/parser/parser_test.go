package parser

import (
	"testing"

	"luby/internal/lexer"
)

func parseSrc(t *testing.T, src string) []Expr {
	t.Helper()
	s := lexer.NewScanner(src, "<test>")
	toks := s.ScanTokens()
	if s.Err() != nil {
		t.Fatalf("lex(%q): %s", src, s.Err())
	}
	p := New(toks, "<test>")
	body := p.Parse()
	if p.Err() != nil {
		t.Fatalf("parse(%q): %s", src, p.Err())
	}
	return body
}

func TestParseArithmeticPrecedence(t *testing.T) {
	body := parseSrc(t, "1 + 2 * 3")
	if len(body) != 1 {
		t.Fatalf("want 1 top-level expr, got %d", len(body))
	}
	bin, ok := body[0].(*BinaryExpr)
	if !ok || bin.Op != "+" {
		t.Fatalf("want top-level +, got %#v", body[0])
	}
	rhs, ok := bin.Right.(*BinaryExpr)
	if !ok || rhs.Op != "*" {
		t.Fatalf("want * nested on the right of +, got %#v", bin.Right)
	}
}

func TestParseAssignment(t *testing.T) {
	body := parseSrc(t, "x = 1")
	assign, ok := body[0].(*AssignExpr)
	if !ok || assign.Op != "=" {
		t.Fatalf("want AssignExpr, got %#v", body[0])
	}
	if _, ok := assign.Target.(*Ident); !ok {
		t.Fatalf("want Ident target, got %#v", assign.Target)
	}
}

func TestParseMethodCallWithBlock(t *testing.T) {
	body := parseSrc(t, "[1,2,3].each { |x| x }")
	call, ok := body[0].(*CallExpr)
	if !ok || call.Method != "each" || !call.HasReceiver {
		t.Fatalf("want .each call with receiver, got %#v", body[0])
	}
	if call.Block == nil || len(call.Block.Params) != 1 || call.Block.Params[0].Name != "x" {
		t.Fatalf("want a one-param block, got %#v", call.Block)
	}
}

func TestParseIfElsif(t *testing.T) {
	body := parseSrc(t, "if a\n1\nelsif b\n2\nelse\n3\nend")
	ifexpr, ok := body[0].(*IfExpr)
	if !ok {
		t.Fatalf("want IfExpr, got %#v", body[0])
	}
	if len(ifexpr.Else) != 1 {
		t.Fatalf("want elsif desugared into a single-element Else, got %#v", ifexpr.Else)
	}
	if _, ok := ifexpr.Else[0].(*IfExpr); !ok {
		t.Fatalf("want nested IfExpr for elsif, got %#v", ifexpr.Else[0])
	}
}

func TestParseClassWithSuperclass(t *testing.T) {
	body := parseSrc(t, "class Dog < Animal\ndef bark; 1; end\nend")
	cls, ok := body[0].(*ClassExpr)
	if !ok || cls.Name != "Dog" {
		t.Fatalf("want ClassExpr Dog, got %#v", body[0])
	}
	sup, ok := cls.Super.(*ConstExpr)
	if !ok || sup.Name != "Animal" {
		t.Fatalf("want superclass Animal, got %#v", cls.Super)
	}
}

func TestParseBeginRescueEnsure(t *testing.T) {
	body := parseSrc(t, "begin\nraise \"x\"\nrescue => e\n1\nensure\n2\nend")
	b, ok := body[0].(*BeginExpr)
	if !ok {
		t.Fatalf("want BeginExpr, got %#v", body[0])
	}
	if len(b.Rescues) != 1 || b.Rescues[0].BindLocal != "e" {
		t.Fatalf("want one rescue binding e, got %#v", b.Rescues)
	}
	if len(b.Ensure) != 1 {
		t.Fatalf("want one ensure statement, got %#v", b.Ensure)
	}
}

func TestParseMultiAssign(t *testing.T) {
	body := parseSrc(t, "a, b = 1, 2")
	m, ok := body[0].(*MultiAssignExpr)
	if !ok || len(m.Targets) != 2 || len(m.Values) != 2 {
		t.Fatalf("want a 2-target multi-assign, got %#v", body[0])
	}
}

func TestParseSymbolToProcDesugarsToLambda(t *testing.T) {
	body := parseSrc(t, "xs.map(&:to_s)")
	call, ok := body[0].(*CallExpr)
	if !ok {
		t.Fatalf("want CallExpr, got %#v", body[0])
	}
	lam, ok := call.BlockArg.(*LambdaExpr)
	if !ok {
		t.Fatalf("want &:sym to desugar to a LambdaExpr block arg, got %#v", call.BlockArg)
	}
	if lam.Block == nil || len(lam.Block.Params) != 1 {
		t.Fatalf("want a one-param synthesized lambda, got %#v", lam.Block)
	}
}

func TestParseRange(t *testing.T) {
	body := parseSrc(t, "1...5")
	r, ok := body[0].(*RangeExpr)
	if !ok || !r.Exclusive {
		t.Fatalf("want exclusive range, got %#v", body[0])
	}
}

func TestParseStringInterpolation(t *testing.T) {
	body := parseSrc(t, `"a#{1+1}b"`)
	interp, ok := body[0].(*InterpolationExpr)
	if !ok || len(interp.Parts) != 3 {
		t.Fatalf("want 3-part interpolation, got %#v", body[0])
	}
}

func TestParseHashLiteral(t *testing.T) {
	body := parseSrc(t, `{ a: 1, "b" => 2 }`)
	h, ok := body[0].(*HashLit)
	if !ok || len(h.Keys) != 2 || len(h.Values) != 2 {
		t.Fatalf("want a 2-pair hash literal, got %#v", body[0])
	}
}
