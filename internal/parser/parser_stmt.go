package parser

import "luby/internal/lexer"

// ---- if / unless ----

func (p *Parser) parseIf() Expr {
	line := p.advance().Line
	cond := p.parseExprStatement()
	p.match(lexer.TokenThen)
	p.skipNewlines()
	then := p.parseBody(lexer.TokenElsif, lexer.TokenElse, lexer.TokenEnd)
	var els []Expr
	switch {
	case p.check(lexer.TokenElsif):
		els = []Expr{p.parseElsif()}
		return &IfExpr{pos: pos{line}, Cond: cond, Then: then, Else: els}
	case p.match(lexer.TokenElse):
		p.skipNewlines()
		els = p.parseBody(lexer.TokenEnd)
	}
	p.expect(lexer.TokenEnd)
	return &IfExpr{pos: pos{line}, Cond: cond, Then: then, Else: els}
}

// parseElsif recurses without consuming a matching `end`; the outermost
// parseIf call consumes the final `end` for the whole chain.
func (p *Parser) parseElsif() Expr {
	line := p.advance().Line
	cond := p.parseExprStatement()
	p.match(lexer.TokenThen)
	p.skipNewlines()
	then := p.parseBody(lexer.TokenElsif, lexer.TokenElse, lexer.TokenEnd)
	var els []Expr
	switch {
	case p.check(lexer.TokenElsif):
		els = []Expr{p.parseElsif()}
	case p.match(lexer.TokenElse):
		p.skipNewlines()
		els = p.parseBody(lexer.TokenEnd)
		p.expect(lexer.TokenEnd)
		return &IfExpr{pos: pos{line}, Cond: cond, Then: then, Else: els}
	default:
		p.expect(lexer.TokenEnd)
	}
	return &IfExpr{pos: pos{line}, Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseUnless() Expr {
	line := p.advance().Line
	cond := p.parseExprStatement()
	p.match(lexer.TokenThen)
	p.skipNewlines()
	then := p.parseBody(lexer.TokenElse, lexer.TokenEnd)
	var els []Expr
	if p.match(lexer.TokenElse) {
		p.skipNewlines()
		els = p.parseBody(lexer.TokenEnd)
	}
	p.expect(lexer.TokenEnd)
	return &IfExpr{pos: pos{line}, Cond: &UnaryExpr{pos: pos{line}, Op: "!", Operand: cond}, Then: then, Else: els}
}

// ---- loops ----

func (p *Parser) parseWhile(until bool) Expr {
	line := p.advance().Line
	cond := p.parseExprStatement()
	p.match(lexer.TokenDo)
	p.skipNewlines()
	body := p.parseBody(lexer.TokenEnd)
	p.expect(lexer.TokenEnd)
	return &WhileExpr{pos: pos{line}, Cond: cond, Body: body, Until: until}
}

func (p *Parser) parseLoop() Expr {
	line := p.advance().Line
	blk := p.tryParseBlock()
	var body []Expr
	if blk != nil {
		body = blk.Body
	}
	return &WhileExpr{pos: pos{line}, Cond: &BoolLit{pos{line}, true}, Body: body}
}

// parseFor desugars `for x in expr ... end` into `expr.each { |x| ... }`
// with the block's single local leaking into the enclosing scope.
func (p *Parser) parseFor() Expr {
	line := p.advance().Line
	var names []string
	names = append(names, p.expect(lexer.TokenIdent).Lexeme)
	for p.match(lexer.TokenComma) {
		names = append(names, p.expect(lexer.TokenIdent).Lexeme)
	}
	p.expect(lexer.TokenIn)
	iterable := p.parseExprStatement()
	p.match(lexer.TokenDo)
	p.skipNewlines()
	body := p.parseBody(lexer.TokenEnd)
	p.expect(lexer.TokenEnd)
	params := make([]Param, len(names))
	for i, n := range names {
		params[i] = Param{Name: n}
	}
	blk := &BlockNode{pos: pos{line}, Params: params, Body: body, LeaksLocals: true}
	return &CallExpr{pos: pos{line}, Receiver: iterable, HasReceiver: true, Method: "each", Block: blk}
}

// ---- case/when ----

func (p *Parser) parseCase() Expr {
	line := p.advance().Line
	var subject Expr
	if !p.checkAny(lexer.TokenNewline, lexer.TokenSemicolon, lexer.TokenWhen) {
		subject = p.parseExprStatement()
	}
	p.skipNewlines()
	var whens []WhenClause
	for p.match(lexer.TokenWhen) {
		var conds []Expr
		conds = append(conds, p.parseTernary())
		for p.match(lexer.TokenComma) {
			conds = append(conds, p.parseTernary())
		}
		p.match(lexer.TokenThen)
		p.skipNewlines()
		body := p.parseBody(lexer.TokenWhen, lexer.TokenElse, lexer.TokenEnd)
		whens = append(whens, WhenClause{Conds: conds, Body: body})
	}
	var els []Expr
	if p.match(lexer.TokenElse) {
		p.skipNewlines()
		els = p.parseBody(lexer.TokenEnd)
	}
	p.expect(lexer.TokenEnd)
	return &CaseExpr{pos: pos{line}, Subject: subject, Whens: whens, Else: els}
}

// ---- begin/rescue/ensure ----

func (p *Parser) parseBegin() Expr {
	line := p.advance().Line
	p.skipNewlines()
	body := p.parseBody(lexer.TokenRescue, lexer.TokenElse, lexer.TokenEnsure, lexer.TokenEnd)
	var rescues []RescueClause
	for p.check(lexer.TokenRescue) {
		rescues = append(rescues, p.parseRescueClause())
	}
	var elseBody []Expr
	if p.match(lexer.TokenElse) {
		p.skipNewlines()
		elseBody = p.parseBody(lexer.TokenEnsure, lexer.TokenEnd)
	}
	var ensure []Expr
	if p.match(lexer.TokenEnsure) {
		p.skipNewlines()
		ensure = p.parseBody(lexer.TokenEnd)
	}
	p.expect(lexer.TokenEnd)
	return &BeginExpr{pos: pos{line}, Body: body, Rescues: rescues, ElseBody: elseBody, Ensure: ensure}
}

func (p *Parser) parseRescueClause() RescueClause {
	p.advance() // rescue
	var rc RescueClause
	if !p.checkAny(lexer.TokenNewline, lexer.TokenSemicolon, lexer.TokenArrow, lexer.TokenThen) {
		rc.Filters = append(rc.Filters, p.parseConstPath())
		for p.match(lexer.TokenComma) {
			rc.Filters = append(rc.Filters, p.parseConstPath())
		}
	}
	if p.match(lexer.TokenArrow) {
		rc.BindLocal = p.expect(lexer.TokenIdent).Lexeme
	}
	p.match(lexer.TokenThen)
	p.skipNewlines()
	rc.Body = p.parseBody(lexer.TokenRescue, lexer.TokenElse, lexer.TokenEnsure, lexer.TokenEnd)
	return rc
}

// parseConstPath parses a dotted constant reference (`Foo::Bar`) without
// falling into full postfix-call parsing, since rescue filters are never
// called.
func (p *Parser) parseConstPath() Expr {
	line := p.cur().Line
	name := p.expect(lexer.TokenConst).Lexeme
	var e Expr = &ConstExpr{pos: pos{line}, Name: name}
	for p.match(lexer.TokenDoubleColon) {
		name = p.expect(lexer.TokenConst).Lexeme
		e = &ConstExpr{pos: pos{line}, Scope: e, Name: name}
	}
	return e
}

// ---- def / class / module ----

func (p *Parser) parseDef() Expr {
	line := p.advance().Line
	selfReceiver := false
	if p.check(lexer.TokenSelf) && p.peekAt(1).Type == lexer.TokenDot {
		p.advance()
		p.advance()
		selfReceiver = true
	}
	name := p.parseDefName()
	var params []Param
	if p.match(lexer.TokenLParen) {
		for !p.check(lexer.TokenRParen) {
			params = append(params, p.parseParam())
			if !p.match(lexer.TokenComma) {
				break
			}
		}
		p.expect(lexer.TokenRParen)
	} else if !p.checkAny(lexer.TokenNewline, lexer.TokenSemicolon) {
		for {
			params = append(params, p.parseParam())
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}
	p.skipNewlines()
	body := p.parseBody(lexer.TokenRescue, lexer.TokenEnsure, lexer.TokenEnd)
	// A method body may itself carry rescue/ensure clauses directly,
	// without a nested `begin` (implicit begin-rescue-end).
	if p.checkAny(lexer.TokenRescue, lexer.TokenEnsure) {
		var rescues []RescueClause
		for p.check(lexer.TokenRescue) {
			rescues = append(rescues, p.parseRescueClause())
		}
		var ensure []Expr
		if p.match(lexer.TokenEnsure) {
			p.skipNewlines()
			ensure = p.parseBody(lexer.TokenEnd)
		}
		body = []Expr{&BeginExpr{pos: pos{line}, Body: body, Rescues: rescues, Ensure: ensure}}
	}
	p.expect(lexer.TokenEnd)
	return &DefExpr{pos: pos{line}, Name: name, SelfReceiver: selfReceiver, Params: params, Body: body}
}

// parseDefName accepts plain identifiers as well as the operator-method
// and predicate/bang forms Ruby allows as method names.
func (p *Parser) parseDefName() string {
	t := p.cur()
	switch t.Type {
	case lexer.TokenIdent, lexer.TokenConst:
		p.advance()
		name := t.Lexeme
		if p.match(lexer.TokenEqual) {
			name += "="
		}
		return name
	case lexer.TokenLBracket:
		p.advance()
		p.expect(lexer.TokenRBracket)
		if p.match(lexer.TokenEqual) {
			return "[]="
		}
		return "[]"
	case lexer.TokenPlus, lexer.TokenMinus, lexer.TokenStar, lexer.TokenSlash, lexer.TokenPercent,
		lexer.TokenEqualEqual, lexer.TokenLess, lexer.TokenGreater, lexer.TokenLessEqual,
		lexer.TokenGreaterEqual, lexer.TokenSpaceship, lexer.TokenBang:
		p.advance()
		return string(t.Type)
	}
	p.fail("expected method name after 'def'")
	return ""
}

func (p *Parser) parseClass() Expr {
	line := p.advance().Line
	name := p.expect(lexer.TokenConst).Lexeme
	for p.match(lexer.TokenDoubleColon) {
		name = name + "::" + p.expect(lexer.TokenConst).Lexeme
	}
	var super Expr
	if p.match(lexer.TokenLess) {
		super = p.parseConstPath()
	}
	p.skipNewlines()
	body := p.parseBody(lexer.TokenEnd)
	p.expect(lexer.TokenEnd)
	return &ClassExpr{pos: pos{line}, Name: name, Super: super, Body: body}
}

func (p *Parser) parseModule() Expr {
	line := p.advance().Line
	name := p.expect(lexer.TokenConst).Lexeme
	for p.match(lexer.TokenDoubleColon) {
		name = name + "::" + p.expect(lexer.TokenConst).Lexeme
	}
	p.skipNewlines()
	body := p.parseBody(lexer.TokenEnd)
	p.expect(lexer.TokenEnd)
	return &ModuleExpr{pos: pos{line}, Name: name, Body: body}
}
