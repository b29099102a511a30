package parser

import (
	"fmt"

	lubyerrors "luby/internal/errors"
	"luby/internal/lexer"
)

type Parser struct {
	tokens  []lexer.Token
	pos     int
	file    string
	err     *lubyerrors.LubyError
}

func New(tokens []lexer.Token, file string) *Parser {
	return &Parser{tokens: tokens, file: file}
}

func (p *Parser) Err() *lubyerrors.LubyError { return p.err }

// Parse returns the top-level program as a statement list (the top-level
// compilation unit is itself a function body).
func (p *Parser) Parse() []Expr {
	var body []Expr
	p.skipNewlines()
	for !p.check(lexer.TokenEOF) && p.err == nil {
		body = append(body, p.parseStatement())
		p.skipTerminators()
	}
	return body
}

// ---- token plumbing ----

func (p *Parser) cur() lexer.Token { return p.tokens[p.pos] }

// peekAt returns the token n positions ahead, clamped to the final EOF
// token so callers never index past the end of the stream.
func (p *Parser) peekAt(n int) lexer.Token {
	i := p.pos + n
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}
func (p *Parser) check(t lexer.TokenType) bool {
	return p.err == nil && p.cur().Type == t
}
func (p *Parser) checkAny(ts ...lexer.TokenType) bool {
	for _, t := range ts {
		if p.check(t) {
			return true
		}
	}
	return false
}
func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if t.Type != lexer.TokenEOF {
		p.pos++
	}
	return t
}
func (p *Parser) match(t lexer.TokenType) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}
func (p *Parser) expect(t lexer.TokenType) lexer.Token {
	if !p.check(t) {
		p.fail(fmt.Sprintf("expected %s, got %s %q", t, p.cur().Type, p.cur().Lexeme))
		return p.cur()
	}
	return p.advance()
}
func (p *Parser) fail(msg string) {
	if p.err == nil {
		p.err = lubyerrors.NewSyntaxError(msg, p.file, p.cur().Line, p.cur().Column)
	}
}
func (p *Parser) skipNewlines() {
	for p.checkAny(lexer.TokenNewline, lexer.TokenSemicolon) {
		p.advance()
	}
}
func (p *Parser) skipTerminators() { p.skipNewlines() }

func (p *Parser) atBlockEnd() bool {
	return p.checkAny(lexer.TokenEnd, lexer.TokenElse, lexer.TokenElsif, lexer.TokenWhen,
		lexer.TokenRescue, lexer.TokenEnsure, lexer.TokenEOF)
}

func (p *Parser) parseBody(terminators ...lexer.TokenType) []Expr {
	var body []Expr
	p.skipNewlines()
	for p.err == nil && !p.checkAny(terminators...) && !p.check(lexer.TokenEOF) {
		body = append(body, p.parseStatement())
		p.skipTerminators()
	}
	return body
}

// ---- statements ----

func (p *Parser) parseStatement() Expr {
	e := p.parseExprStatement()
	return p.applyModifiers(e)
}

// applyModifiers implements the postfix modifier forms:
// `e if cond`, `e unless cond`, `e while cond`, `e until cond`.
func (p *Parser) applyModifiers(e Expr) Expr {
	for {
		switch {
		case p.match(lexer.TokenIf):
			cond := p.parseExprStatement()
			e = &IfExpr{pos: pos{e.Line()}, Cond: cond, Then: []Expr{e}}
		case p.match(lexer.TokenUnless):
			cond := p.parseExprStatement()
			e = &IfExpr{pos: pos{e.Line()}, Cond: &UnaryExpr{pos: pos{e.Line()}, Op: "!", Operand: cond}, Then: []Expr{e}}
		case p.match(lexer.TokenWhile):
			cond := p.parseExprStatement()
			e = &WhileExpr{pos: pos{e.Line()}, Cond: cond, Body: []Expr{e}, IsModifier: true}
		case p.match(lexer.TokenUntil):
			cond := p.parseExprStatement()
			e = &WhileExpr{pos: pos{e.Line()}, Cond: &UnaryExpr{pos: pos{e.Line()}, Op: "!", Operand: cond}, Body: []Expr{e}, IsModifier: true}
		default:
			return e
		}
	}
}

func (p *Parser) parseExprStatement() Expr {
	switch p.cur().Type {
	case lexer.TokenDef:
		return p.parseDef()
	case lexer.TokenClass:
		return p.parseClass()
	case lexer.TokenModule:
		return p.parseModule()
	case lexer.TokenIf:
		return p.parseIf()
	case lexer.TokenUnless:
		return p.parseUnless()
	case lexer.TokenWhile:
		return p.parseWhile(false)
	case lexer.TokenUntil:
		return p.parseWhile(true)
	case lexer.TokenFor:
		return p.parseFor()
	case lexer.TokenLoop:
		return p.parseLoop()
	case lexer.TokenCase:
		return p.parseCase()
	case lexer.TokenBegin:
		return p.parseBegin()
	case lexer.TokenBreak:
		line := p.advance().Line
		return &BreakExpr{pos: pos{line}, Value: p.parseOptionalValue()}
	case lexer.TokenNext:
		line := p.advance().Line
		return &NextExpr{pos: pos{line}, Value: p.parseOptionalValue()}
	case lexer.TokenRedo:
		line := p.advance().Line
		return &RedoExpr{pos{line}}
	case lexer.TokenRetry:
		line := p.advance().Line
		return &RetryExpr{pos{line}}
	case lexer.TokenReturn:
		line := p.advance().Line
		return &ReturnExpr{pos: pos{line}, Value: p.parseOptionalValue()}
	case lexer.TokenRaise:
		return p.parseRaise()
	}
	return p.parseAssignment()
}

func (p *Parser) parseOptionalValue() Expr {
	if p.checkAny(lexer.TokenNewline, lexer.TokenSemicolon, lexer.TokenEOF) || p.atBlockEnd() ||
		p.checkAny(lexer.TokenIf, lexer.TokenUnless, lexer.TokenWhile, lexer.TokenUntil) {
		return nil
	}
	return p.parseExpr()
}

func (p *Parser) parseRaise() Expr {
	line := p.advance().Line
	if p.checkAny(lexer.TokenNewline, lexer.TokenSemicolon, lexer.TokenEOF) || p.atBlockEnd() {
		return &RaiseExpr{pos: pos{line}}
	}
	first := p.parseTernary()
	if p.match(lexer.TokenComma) {
		msg := p.parseTernary()
		return &RaiseExpr{pos: pos{line}, ClassExpr: first, Message: msg}
	}
	return &RaiseExpr{pos: pos{line}, Message: first}
}

// ---- assignment / multiple-assignment ----

func (p *Parser) parseAssignment() Expr {
	start := p.pos
	if targets, ok := p.tryParseMultiAssignTargets(); ok {
		if p.match(lexer.TokenEqual) {
			splat := -1
			var values []Expr
			values = append(values, p.parseTernary())
			for p.match(lexer.TokenComma) {
				values = append(values, p.parseTernary())
			}
			for i, t := range targets {
				if sp, ok := t.(*splatTarget); ok {
					targets[i] = sp.Expr
					splat = i
				}
			}
			return &MultiAssignExpr{pos: pos{targets[0].Line()}, Targets: targets, SplatIndex: splat, Values: values}
		}
	}
	p.pos = start
	left := p.parseTernary()
	switch p.cur().Type {
	case lexer.TokenEqual, lexer.TokenPlusEqual, lexer.TokenMinusEqual, lexer.TokenStarEqual,
		lexer.TokenSlashEqual, lexer.TokenAndEqual, lexer.TokenOrEqual:
		op := p.advance()
		value := p.parseAssignment()
		if ix, ok := left.(*IndexExpr); ok {
			if op.Type == lexer.TokenEqual {
				return &IndexSetExpr{pos: pos{ix.Line()}, Receiver: ix.Receiver, Args: ix.Args, Value: value}
			}
		}
		return &AssignExpr{pos: pos{left.Line()}, Target: left, Op: string(op.Type), Value: value}
	}
	return left
}

// splatTarget marks a trailing `*rest` target inside multiple assignment.
type splatTarget struct{ Expr }

func (p *Parser) tryParseMultiAssignTargets() ([]Expr, bool) {
	if !p.looksLikeAssignTarget() {
		return nil, false
	}
	var targets []Expr
	t := p.parseAssignTargetAtom()
	targets = append(targets, t)
	sawComma := false
	for p.check(lexer.TokenComma) {
		save := p.pos
		p.advance()
		if !p.looksLikeAssignTarget() {
			p.pos = save
			break
		}
		sawComma = true
		targets = append(targets, p.parseAssignTargetAtom())
	}
	if !sawComma || !p.check(lexer.TokenEqual) {
		return nil, false
	}
	return targets, true
}

func (p *Parser) looksLikeAssignTarget() bool {
	return p.checkAny(lexer.TokenIdent, lexer.TokenIVar, lexer.TokenCVar, lexer.TokenGVar, lexer.TokenStar)
}

func (p *Parser) parseAssignTargetAtom() Expr {
	if p.match(lexer.TokenStar) {
		inner := p.parseAssignTargetAtom()
		return &splatTarget{inner}
	}
	line := p.cur().Line
	switch p.cur().Type {
	case lexer.TokenIdent:
		return &Ident{pos{line}, p.advance().Lexeme}
	case lexer.TokenIVar:
		return &IVarExpr{pos{line}, p.advance().Literal.(string)}
	case lexer.TokenCVar:
		return &CVarExpr{pos{line}, p.advance().Literal.(string)}
	case lexer.TokenGVar:
		return &GVarExpr{pos{line}, p.advance().Literal.(string)}
	}
	p.fail("invalid assignment target")
	return &NilLit{pos{line}}
}

// ---- expression precedence (Pratt) ----

func (p *Parser) parseExpr() Expr { return p.parseAssignment() }

func (p *Parser) parseTernary() Expr {
	cond := p.parseRange()
	if p.match(lexer.TokenQuestion) {
		then := p.parseTernary()
		p.expect(lexer.TokenColon)
		els := p.parseTernary()
		return &IfExpr{pos: pos{cond.Line()}, Cond: cond, Then: []Expr{then}, Else: []Expr{els}}
	}
	return cond
}

func (p *Parser) parseRange() Expr {
	left := p.parseOr()
	if p.checkAny(lexer.TokenDotDot, lexer.TokenDotDotDot) {
		excl := p.advance().Type == lexer.TokenDotDotDot
		right := p.parseOr()
		return &RangeExpr{pos: pos{left.Line()}, From: left, To: right, Exclusive: excl}
	}
	return left
}

func (p *Parser) parseOr() Expr {
	left := p.parseAnd()
	for p.checkAny(lexer.TokenOrOr, lexer.TokenOrKw) {
		op := p.advance()
		right := p.parseAnd()
		left = &LogicalExpr{pos: pos{left.Line()}, Op: string(op.Type), Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAnd() Expr {
	left := p.parseNot()
	for p.checkAny(lexer.TokenAndAnd, lexer.TokenAndKw) {
		op := p.advance()
		right := p.parseNot()
		left = &LogicalExpr{pos: pos{left.Line()}, Op: string(op.Type), Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseNot() Expr {
	if p.checkAny(lexer.TokenBang, lexer.TokenNotKw) {
		line := p.advance().Line
		return &UnaryExpr{pos: pos{line}, Op: "!", Operand: p.parseNot()}
	}
	return p.parseEquality()
}

func (p *Parser) parseEquality() Expr {
	left := p.parseComparison()
	for p.checkAny(lexer.TokenEqualEqual, lexer.TokenNotEqual) {
		op := p.advance()
		right := p.parseComparison()
		left = &BinaryExpr{pos: pos{left.Line()}, Op: string(op.Type), Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseComparison() Expr {
	left := p.parseAdditive()
	for p.checkAny(lexer.TokenLess, lexer.TokenGreater, lexer.TokenLessEqual, lexer.TokenGreaterEqual, lexer.TokenSpaceship) {
		op := p.advance()
		right := p.parseAdditive()
		left = &BinaryExpr{pos: pos{left.Line()}, Op: string(op.Type), Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAdditive() Expr {
	left := p.parseMultiplicative()
	for p.checkAny(lexer.TokenPlus, lexer.TokenMinus) {
		op := p.advance()
		right := p.parseMultiplicative()
		left = &BinaryExpr{pos: pos{left.Line()}, Op: string(op.Type), Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() Expr {
	left := p.parseUnary()
	for p.checkAny(lexer.TokenStar, lexer.TokenSlash, lexer.TokenPercent) {
		op := p.advance()
		right := p.parseUnary()
		left = &BinaryExpr{pos: pos{left.Line()}, Op: string(op.Type), Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() Expr {
	if p.checkAny(lexer.TokenMinus, lexer.TokenBang) {
		op := p.advance()
		return &UnaryExpr{pos: pos{op.Line}, Op: string(op.Type), Operand: p.parseUnary()}
	}
	return p.parsePower()
}

func (p *Parser) parsePower() Expr {
	left := p.parsePostfix()
	if p.match(lexer.TokenDoubleStar) {
		right := p.parseUnary()
		return &BinaryExpr{pos: pos{left.Line()}, Op: "**", Left: left, Right: right}
	}
	return left
}

// parsePostfix handles call chains: `.method`, `&.method`, `::Const`,
// `[index]`, and trailing `{}`/`do..end` blocks.
func (p *Parser) parsePostfix() Expr {
	expr := p.parsePrimary()
	for {
		switch {
		case p.checkAny(lexer.TokenDot, lexer.TokenSafeNav):
			safe := p.advance().Type == lexer.TokenSafeNav
			name := p.expectMethodName()
			call := &CallExpr{pos: pos{expr.Line()}, Receiver: expr, HasReceiver: true, SafeNav: safe, Method: name}
			if p.check(lexer.TokenLParen) {
				call.Args, call.ArgSplats, call.BlockArg = p.parseArgList()
			}
			call.Block = p.tryParseBlock()
			expr = call
		case p.check(lexer.TokenDoubleColon):
			p.advance()
			name := p.expect(lexer.TokenConst).Lexeme
			expr = &ConstExpr{pos: pos{expr.Line()}, Scope: expr, Name: name}
		case p.check(lexer.TokenLBracket):
			p.advance()
			var args []Expr
			for !p.check(lexer.TokenRBracket) {
				args = append(args, p.parseTernary())
				if !p.match(lexer.TokenComma) {
					break
				}
			}
			p.expect(lexer.TokenRBracket)
			expr = &IndexExpr{pos: pos{expr.Line()}, Receiver: expr, Args: args}
		default:
			return expr
		}
	}
}

func (p *Parser) expectMethodName() string {
	t := p.cur()
	switch t.Type {
	case lexer.TokenIdent, lexer.TokenConst:
		p.advance()
		return t.Lexeme
	case lexer.TokenClass:
		p.advance()
		return "class"
	case lexer.TokenYield:
		p.advance()
		return "yield"
	}
	p.fail("expected method name after '.'")
	return ""
}

func (p *Parser) parseArgList() ([]Expr, map[int]bool, Expr) {
	p.expect(lexer.TokenLParen)
	var args []Expr
	var blockArg Expr
	splats := map[int]bool{}
	var kwKeys, kwValues []Expr
	kwLine := 0
	for !p.check(lexer.TokenRParen) {
		if p.match(lexer.TokenAmp) {
			blockArg = p.parseTernary()
		} else if p.check(lexer.TokenAmpColon) {
			blockArg = p.parseTernary()
		} else if p.match(lexer.TokenStar) {
			splats[len(args)] = true
			args = append(args, p.parseTernary())
		} else if p.checkKeywordArg() {
			k, v := p.parseKeywordArg()
			kwLine = k.Line()
			kwKeys = append(kwKeys, k)
			kwValues = append(kwValues, v)
		} else {
			args = append(args, p.parseTernary())
		}
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	p.expect(lexer.TokenRParen)
	// All `name: value` pairs in one call fold into a single trailing
	// HashLit argument (not one per pair), matching `f(x: 1, y: 2)`
	// binding both x and y out of one keyword-args hash, the way
	// compileCall/bindParams expect to find them.
	if len(kwKeys) > 0 {
		args = append(args, &HashLit{pos: pos{kwLine}, Keys: kwKeys, Values: kwValues})
	}
	return args, splats, blockArg
}

func (p *Parser) checkKeywordArg() bool {
	return p.check(lexer.TokenIdent) && p.peekAt(1).Type == lexer.TokenColon
}

// parseKeywordArg parses one `name: value` pair of a call's trailing
// keyword arguments, returned as a SymbolLit key and its value expr for
// the caller to fold into one HashLit.
func (p *Parser) parseKeywordArg() (Expr, Expr) {
	line := p.cur().Line
	name := p.advance().Lexeme
	p.expect(lexer.TokenColon)
	value := p.parseTernary()
	return &SymbolLit{pos{line}, name}, value
}

func (p *Parser) tryParseBlock() *BlockNode {
	switch {
	case p.check(lexer.TokenLBrace):
		return p.parseBraceBlock()
	case p.check(lexer.TokenDo):
		return p.parseDoBlock()
	}
	return nil
}

func (p *Parser) parseBraceBlock() *BlockNode {
	line := p.advance().Line
	params := p.tryParseBlockParams()
	body := p.parseBody(lexer.TokenRBrace)
	p.expect(lexer.TokenRBrace)
	return &BlockNode{pos: pos{line}, Params: params, Body: body}
}

func (p *Parser) parseDoBlock() *BlockNode {
	line := p.advance().Line
	params := p.tryParseBlockParams()
	body := p.parseBody(lexer.TokenEnd)
	p.expect(lexer.TokenEnd)
	return &BlockNode{pos: pos{line}, Params: params, Body: body}
}

func (p *Parser) tryParseBlockParams() []Param {
	p.skipNewlines()
	if !p.match(lexer.TokenPipe) {
		return nil
	}
	var params []Param
	for !p.check(lexer.TokenPipe) {
		params = append(params, p.parseParam())
		if !p.match(lexer.TokenComma) {
			break
		}
	}
	p.expect(lexer.TokenPipe)
	return params
}

func (p *Parser) parseParam() Param {
	if p.match(lexer.TokenDoubleStar) {
		name := p.expect(lexer.TokenIdent).Lexeme
		return Param{Name: name, IsKwSplat: true}
	}
	if p.match(lexer.TokenStar) {
		name := p.expect(lexer.TokenIdent).Lexeme
		return Param{Name: name, IsSplat: true}
	}
	if p.match(lexer.TokenAmp) {
		name := p.expect(lexer.TokenIdent).Lexeme
		return Param{Name: name, IsBlock: true}
	}
	name := p.expect(lexer.TokenIdent).Lexeme
	if p.match(lexer.TokenColon) {
		pr := Param{Name: name, IsKeyword: true}
		if !p.checkAny(lexer.TokenComma, lexer.TokenRParen, lexer.TokenPipe) {
			pr.Default = p.parseTernary()
		}
		return pr
	}
	if p.match(lexer.TokenEqual) {
		return Param{Name: name, Default: p.parseTernary()}
	}
	return Param{Name: name}
}

// ---- primary ----

func (p *Parser) parsePrimary() Expr {
	t := p.cur()
	switch t.Type {
	case lexer.TokenInt:
		p.advance()
		return &IntLit{pos{t.Line}, t.Literal.(int64)}
	case lexer.TokenFloat:
		p.advance()
		return &FloatLit{pos{t.Line}, t.Literal.(float64)}
	case lexer.TokenString:
		p.advance()
		return &StringLit{pos{t.Line}, t.Literal.(string)}
	case lexer.TokenStringBegin:
		return p.parseInterpolatedString()
	case lexer.TokenSymbol:
		p.advance()
		return &SymbolLit{pos{t.Line}, t.Literal.(string)}
	case lexer.TokenAmpColon:
		p.advance()
		name := p.expect(lexer.TokenIdent).Lexeme
		blk := &BlockNode{pos: pos{t.Line}, Params: []Param{{Name: "__x"}},
			Body: []Expr{&CallExpr{pos: pos{t.Line}, Receiver: &Ident{pos{t.Line}, "__x"}, HasReceiver: true, Method: name}}}
		return &LambdaExpr{pos{t.Line}, blk}
	case lexer.TokenTrue:
		p.advance()
		return &BoolLit{pos{t.Line}, true}
	case lexer.TokenFalse:
		p.advance()
		return &BoolLit{pos{t.Line}, false}
	case lexer.TokenNil:
		p.advance()
		return &NilLit{pos{t.Line}}
	case lexer.TokenSelf:
		p.advance()
		return &SelfExpr{pos{t.Line}}
	case lexer.TokenIVar:
		p.advance()
		return &IVarExpr{pos{t.Line}, t.Literal.(string)}
	case lexer.TokenCVar:
		p.advance()
		return &CVarExpr{pos{t.Line}, t.Literal.(string)}
	case lexer.TokenGVar:
		p.advance()
		return &GVarExpr{pos{t.Line}, t.Literal.(string)}
	case lexer.TokenConst:
		p.advance()
		return &ConstExpr{pos: pos{t.Line}, Name: t.Lexeme}
	case lexer.TokenSuper:
		return p.parseSuper()
	case lexer.TokenYield:
		return p.parseYield()
	case lexer.TokenLParen:
		p.advance()
		p.skipNewlines()
		e := p.parseStatement()
		p.skipNewlines()
		p.expect(lexer.TokenRParen)
		return e
	case lexer.TokenLBracket:
		return p.parseArrayLit()
	case lexer.TokenLBrace:
		return p.parseHashLit()
	case lexer.TokenFatArrow:
		return p.parseStabbyLambda()
	case lexer.TokenIdent:
		return p.parseIdentOrCall()
	}
	p.fail(fmt.Sprintf("unexpected token %s %q", t.Type, t.Lexeme))
	p.advance()
	return &NilLit{pos{t.Line}}
}

func (p *Parser) parseStabbyLambda() Expr {
	line := p.advance().Line
	var params []Param
	if p.match(lexer.TokenLParen) {
		for !p.check(lexer.TokenRParen) {
			params = append(params, p.parseParam())
			if !p.match(lexer.TokenComma) {
				break
			}
		}
		p.expect(lexer.TokenRParen)
	}
	blk := p.tryParseBlock()
	if blk == nil {
		p.fail("expected block body for -> lambda")
		return &NilLit{pos{line}}
	}
	blk.Params = params
	return &LambdaExpr{pos{line}, blk}
}

func (p *Parser) parseInterpolatedString() Expr {
	line := p.advance().Line // STRING_BEGIN
	var parts []Expr
	for !p.check(lexer.TokenStringEnd) {
		if p.check(lexer.TokenString) {
			t := p.advance()
			parts = append(parts, &StringLit{pos{t.Line}, t.Literal.(string)})
			continue
		}
		p.expect(lexer.TokenInterpBegin)
		sub := New(p.innerTokensUntilInterpEnd(), p.file)
		inner := sub.Parse()
		if sub.Err() != nil {
			p.err = sub.Err()
			return &NilLit{pos{line}}
		}
		if len(inner) == 0 {
			parts = append(parts, &NilLit{pos{line}})
		} else {
			parts = append(parts, inner[len(inner)-1])
		}
	}
	p.expect(lexer.TokenStringEnd)
	return &InterpolationExpr{pos{line}, parts}
}

// innerTokensUntilInterpEnd slices out the already-scanned tokens for one
// #{...} fragment (the lexer tokenized the fragment in place) and
// advances past its INTERP_END.
func (p *Parser) innerTokensUntilInterpEnd() []lexer.Token {
	start := p.pos
	depth := 0
	for {
		t := p.cur()
		if t.Type == lexer.TokenInterpBegin {
			depth++
		} else if t.Type == lexer.TokenInterpEnd {
			if depth == 0 {
				break
			}
			depth--
		}
		p.advance()
	}
	inner := append([]lexer.Token{}, p.tokens[start:p.pos]...)
	inner = append(inner, lexer.Token{Type: lexer.TokenEOF})
	p.expect(lexer.TokenInterpEnd)
	return inner
}

func (p *Parser) parseArrayLit() Expr {
	line := p.advance().Line
	p.skipNewlines()
	var elems []Expr
	splats := map[int]bool{}
	for !p.check(lexer.TokenRBracket) {
		if p.match(lexer.TokenStar) {
			splats[len(elems)] = true
		}
		elems = append(elems, p.parseTernary())
		p.skipNewlines()
		if !p.match(lexer.TokenComma) {
			break
		}
		p.skipNewlines()
	}
	p.expect(lexer.TokenRBracket)
	return &ArrayLit{pos{line}, elems, splats}
}

func (p *Parser) parseHashLit() Expr {
	line := p.advance().Line
	p.skipNewlines()
	var keys, values []Expr
	for !p.check(lexer.TokenRBrace) {
		if p.checkAny(lexer.TokenIdent, lexer.TokenConst) && p.peekAt(1).Type == lexer.TokenColon {
			name := p.advance().Lexeme
			p.advance() // :
			keys = append(keys, &SymbolLit{pos{line}, name})
		} else {
			k := p.parseTernary()
			p.expect(lexer.TokenArrow)
			keys = append(keys, k)
		}
		values = append(values, p.parseTernary())
		p.skipNewlines()
		if !p.match(lexer.TokenComma) {
			break
		}
		p.skipNewlines()
	}
	p.expect(lexer.TokenRBrace)
	return &HashLit{pos{line}, keys, values}
}

func (p *Parser) parseSuper() Expr {
	line := p.advance().Line
	s := &SuperExpr{pos: pos{line}}
	if p.check(lexer.TokenLParen) {
		s.HasParens = true
		s.Args, _, _ = p.parseArgList()
	}
	s.Block = p.tryParseBlock()
	return s
}

func (p *Parser) parseYield() Expr {
	line := p.advance().Line
	y := &YieldExpr{pos: pos{line}}
	if p.match(lexer.TokenLParen) {
		for !p.check(lexer.TokenRParen) {
			y.Args = append(y.Args, p.parseTernary())
			if !p.match(lexer.TokenComma) {
				break
			}
		}
		p.expect(lexer.TokenRParen)
	} else if p.canStartArgWithoutParens() {
		y.Args = append(y.Args, p.parseTernary())
		for p.match(lexer.TokenComma) {
			y.Args = append(y.Args, p.parseTernary())
		}
	}
	return y
}

// canStartArgWithoutParens is a conservative lookahead used for
// paren-less calls (`puts x`, `yield x`): only a small set of token kinds
// may validly begin an argument expression on the same line.
func (p *Parser) canStartArgWithoutParens() bool {
	switch p.cur().Type {
	case lexer.TokenNewline, lexer.TokenSemicolon, lexer.TokenEOF, lexer.TokenDot,
		lexer.TokenEqual, lexer.TokenRParen, lexer.TokenRBracket, lexer.TokenRBrace,
		lexer.TokenEnd, lexer.TokenDo, lexer.TokenLBrace,
		lexer.TokenIf, lexer.TokenUnless, lexer.TokenWhile, lexer.TokenUntil,
		lexer.TokenComma, lexer.TokenThen,
		lexer.TokenPlusEqual, lexer.TokenMinusEqual, lexer.TokenStarEqual, lexer.TokenSlashEqual,
		lexer.TokenAndEqual, lexer.TokenOrEqual:
		return false
	}
	return true
}

func (p *Parser) parseIdentOrCall() Expr {
	t := p.advance()
	name := t.Lexeme
	var args []Expr
	var splats map[int]bool
	var blockArg Expr
	if p.check(lexer.TokenLParen) {
		args, splats, blockArg = p.parseArgList()
	} else if p.canStartArgWithoutParens() && p.looksLikeBareCallArgStart() {
		args = append(args, p.parseTernary())
		for p.match(lexer.TokenComma) {
			args = append(args, p.parseTernary())
		}
	}
	block := p.tryParseBlock()
	if args == nil && block == nil && blockArg == nil {
		return &Ident{pos{t.Line}, name}
	}
	return &CallExpr{pos: pos{t.Line}, HasReceiver: false, Method: name, Args: args, ArgSplats: splats, BlockArg: blockArg, Block: block}
}

// looksLikeBareCallArgStart prevents treating a bare identifier followed
// by an operator (`x + 1`) as a paren-less call `x(+1)`.
func (p *Parser) looksLikeBareCallArgStart() bool {
	switch p.cur().Type {
	case lexer.TokenPlus, lexer.TokenMinus, lexer.TokenStar, lexer.TokenSlash, lexer.TokenPercent,
		lexer.TokenEqualEqual, lexer.TokenNotEqual, lexer.TokenLess, lexer.TokenGreater,
		lexer.TokenLessEqual, lexer.TokenGreaterEqual, lexer.TokenAndAnd, lexer.TokenOrOr,
		lexer.TokenQuestion, lexer.TokenDotDot, lexer.TokenDotDotDot, lexer.TokenDoubleColon:
		return false
	}
	return true
}
