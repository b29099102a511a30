package lexer

import "testing"

func scanTypes(t *testing.T, src string) []TokenType {
	t.Helper()
	s := NewScanner(src, "<test>")
	toks := s.ScanTokens()
	if s.Err() != nil {
		t.Fatalf("scan(%q): %s", src, s.Err())
	}
	types := make([]TokenType, len(toks))
	for i, tok := range toks {
		types[i] = tok.Type
	}
	return types
}

func wantTypes(t *testing.T, got []TokenType, want ...TokenType) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("want %d tokens %v, got %d %v", len(want), want, len(got), got)
	}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("token %d: want %s, got %s (%v)", i, w, got[i], got)
		}
	}
}

func TestScanArithmeticOperators(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []TokenType
	}{
		{"add", "1 + 2", []TokenType{TokenInt, TokenPlus, TokenInt, TokenEOF}},
		{"pow", "2 ** 3", []TokenType{TokenInt, TokenDoubleStar, TokenInt, TokenEOF}},
		{"spaceship", "1 <=> 2", []TokenType{TokenInt, TokenSpaceship, TokenInt, TokenEOF}},
		{"safe-nav", "a&.b", []TokenType{TokenIdent, TokenSafeNav, TokenIdent, TokenEOF}},
		{"amp-colon", "&:to_s", []TokenType{TokenAmpColon, TokenIdent, TokenEOF}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wantTypes(t, scanTypes(t, tc.src), tc.want...)
		})
	}
}

func TestScanIdentVsConst(t *testing.T) {
	toks := scanTypes(t, "foo Bar")
	wantTypes(t, toks, TokenIdent, TokenConst, TokenEOF)
}

func TestScanIvarCvarGvar(t *testing.T) {
	toks := scanTypes(t, "@x @@y $z")
	wantTypes(t, toks, TokenIVar, TokenCVar, TokenGVar, TokenEOF)
}

func TestScanSymbolVsColon(t *testing.T) {
	toks := scanTypes(t, ":foo x ? 1 : 2")
	wantTypes(t, toks, TokenSymbol, TokenIdent, TokenQuestion, TokenInt, TokenColon, TokenInt, TokenEOF)
}

func TestScanNumberLiterals(t *testing.T) {
	s := NewScanner("1_000 3.14 2e10", "<test>")
	toks := s.ScanTokens()
	if s.Err() != nil {
		t.Fatalf("unexpected error: %s", s.Err())
	}
	if toks[0].Literal.(int64) != 1000 {
		t.Fatalf("want 1000, got %v", toks[0].Literal)
	}
	if toks[1].Literal.(float64) != 3.14 {
		t.Fatalf("want 3.14, got %v", toks[1].Literal)
	}
	if toks[2].Literal.(float64) != 2e10 {
		t.Fatalf("want 2e10, got %v", toks[2].Literal)
	}
}

func TestScanNewlineSignificance(t *testing.T) {
	// A newline after a binary operator is swallowed (continuation);
	// an ordinary newline between two statements is a NEWLINE token.
	toks := scanTypes(t, "1 +\n2\nx")
	wantTypes(t, toks, TokenInt, TokenPlus, TokenInt, TokenNewline, TokenIdent, TokenEOF)
}

func TestScanSingleQuotedNoInterpolation(t *testing.T) {
	s := NewScanner(`'a #{1} b'`, "<test>")
	toks := s.ScanTokens()
	if s.Err() != nil {
		t.Fatalf("unexpected error: %s", s.Err())
	}
	wantTypes(t, []TokenType{toks[0].Type, toks[1].Type}, TokenString, TokenEOF)
	if toks[0].Literal.(string) != `a #{1} b` {
		t.Fatalf("want literal text preserved, got %q", toks[0].Literal)
	}
}

func TestScanDoubleQuotedInterpolation(t *testing.T) {
	toks := scanTypes(t, `"a#{1+2}b"`)
	wantTypes(t, toks,
		TokenStringBegin, TokenString, TokenInterpBegin, TokenInt, TokenPlus, TokenInt, TokenInterpEnd,
		TokenString, TokenStringEnd, TokenEOF)
}

func TestScanHeredocFIFOOrder(t *testing.T) {
	src := "x = <<A\nfirst\nA\ny = <<B\nsecond\nB\n"
	s := NewScanner(src, "<test>")
	toks := s.ScanTokens()
	if s.Err() != nil {
		t.Fatalf("unexpected error: %s", s.Err())
	}
	var bodies []string
	for _, tok := range toks {
		if tok.Type == TokenString {
			bodies = append(bodies, tok.Literal.(string))
		}
	}
	if len(bodies) != 2 || bodies[0] != "first\n" || bodies[1] != "second\n" {
		t.Fatalf("want [\"first\\n\" \"second\\n\"], got %#v", bodies)
	}
}

func TestScanHeredocIndentStrip(t *testing.T) {
	src := "x = <<-A\n  line one\n  line two\n  A\n"
	s := NewScanner(src, "<test>")
	toks := s.ScanTokens()
	if s.Err() != nil {
		t.Fatalf("unexpected error: %s", s.Err())
	}
	var body string
	for _, tok := range toks {
		if tok.Type == TokenString {
			body = tok.Literal.(string)
		}
	}
	if body != "line one\nline two\n" {
		t.Fatalf("want stripped body, got %q", body)
	}
}

func TestScanUnterminatedStringIsSyntaxError(t *testing.T) {
	s := NewScanner(`"abc`, "<test>")
	s.ScanTokens()
	if s.Err() == nil {
		t.Fatalf("expected a syntax error for an unterminated string")
	}
}

func TestScanUnterminatedHeredocIsSyntaxError(t *testing.T) {
	s := NewScanner("x = <<A\nfoo\n", "<test>")
	s.ScanTokens()
	if s.Err() == nil {
		t.Fatalf("expected a syntax error for an unterminated heredoc")
	}
}

func TestScanQuestionBangMethodNames(t *testing.T) {
	toks := scanTypes(t, "empty? save!")
	wantTypes(t, toks, TokenIdent, TokenIdent, TokenEOF)
}
