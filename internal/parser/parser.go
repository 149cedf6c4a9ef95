// Package parser implements the recursive-descent, operator-precedence
// climbing parser described in spec.md §4.4. It owns the lexer, a mutable
// reference to the shared precedence table, and a handle to the
// diagnostic sink.
package parser

import (
	"github.com/monty-lang/monty/internal/ast"
	"github.com/monty-lang/monty/internal/diag"
	"github.com/monty-lang/monty/internal/lexer"
	"github.com/monty-lang/monty/internal/token"
)

// Parser is a one-token-lookahead recursive-descent parser.
type Parser struct {
	lex  *lexer.Lexer
	sink *diag.Sink
	prec *ast.PrecedenceTable
	cur  token.Token
}

// New creates a Parser over lex, sharing prec (mutated by the lowering
// pass between top-level forms) and reporting errors to sink.
func New(lex *lexer.Lexer, prec *ast.PrecedenceTable, sink *diag.Sink) *Parser {
	p := &Parser{lex: lex, sink: sink, prec: prec}
	p.next()
	return p
}

func (p *Parser) next() {
	p.cur = p.lex.Next()
}

func (p *Parser) pos() ast.Pos {
	return ast.Pos{Line: p.cur.Loc.Line, Col: p.cur.Loc.Col}
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.sink.Report(p.cur.Loc, format, args...)
}

// AtEnd reports whether the token stream is exhausted.
func (p *Parser) AtEnd() bool {
	return p.cur.Kind == token.End
}

// Cur exposes the current lookahead token, for the driver's top-level
// dispatch (spec.md §4.8).
func (p *Parser) Cur() token.Token {
	return p.cur
}

// ParseTopLevel parses exactly one top-level form: a function definition,
// an extern declaration, or a bare expression wrapped as __anon_expr. The
// driver consumes ';' and stops at End before calling it; ParseTopLevel
// itself does not special-case them: at End it reports "unknown token when
// expecting expression" and returns ok == false, and a leading ';' is
// parsed as a prefix operator like any other non-structural character.
func (p *Parser) ParseTopLevel() (fn *ast.Function, proto *ast.Prototype, ok bool) {
	switch p.cur.Kind {
	case token.Def:
		fn = p.parseDefinition()
		return fn, nil, fn != nil
	case token.Extern:
		proto = p.parseExtern()
		return nil, proto, proto != nil
	default:
		fn = p.parseTopLevelExpr()
		return fn, nil, fn != nil
	}
}

// synchronize implements spec.md §4.4's error-recovery routine: advance
// tokens until a ';' is consumed, End is reached, or a token that begins a
// new top-level form (Def/Extern) is seen without consuming it.
func (p *Parser) synchronize() {
	for {
		switch p.cur.Kind {
		case token.End, token.Def, token.Extern:
			return
		case token.Char:
			if p.cur.Ch == ';' {
				p.next()
				return
			}
			p.next()
		default:
			p.next()
		}
	}
}

// Synchronize exposes synchronize to the driver, which invokes it whenever
// a top-level parse fails.
func (p *Parser) Synchronize() {
	p.synchronize()
}

func (p *Parser) parseDefinition() *ast.Function {
	p.next() // consume 'fn'
	proto := p.parsePrototype()
	if proto == nil {
		return nil
	}
	body := p.parseExpression()
	if body == nil {
		return nil
	}
	return &ast.Function{Prototype: *proto, Body: body}
}

func (p *Parser) parseExtern() *ast.Prototype {
	p.next() // consume 'using'
	return p.parsePrototype()
}

func (p *Parser) parseTopLevelExpr() *ast.Function {
	pos := p.pos()
	body := p.parseExpression()
	if body == nil {
		return nil
	}
	proto := ast.Prototype{Pos: pos, Name: ast.AnonName}
	return &ast.Function{Prototype: proto, Body: body}
}

// parsePrototype implements the three prototype forms in spec.md §4.4's
// grammar: regular, unary, and binary.
func (p *Parser) parsePrototype() *ast.Prototype {
	pos := p.pos()

	switch p.cur.Kind {
	case token.Unary:
		p.next()
		if p.cur.Kind != token.Char {
			p.errorf("expected operator character after 'unary'")
			return nil
		}
		opChar := p.cur.Ch
		p.next()
		params := p.parseParamList()
		if params == nil {
			return nil
		}
		if len(params) != 1 {
			p.errorf("Invalid number of operands for operator")
			return nil
		}
		return &ast.Prototype{
			Pos:    pos,
			Name:   "unary" + string(opChar),
			Params: params,
			Kind:   ast.UnaryOp,
		}

	case token.Binary:
		p.next()
		if p.cur.Kind != token.Char {
			p.errorf("expected operator character after 'binary'")
			return nil
		}
		opChar := p.cur.Ch
		p.next()

		precedence := 30
		if p.cur.Kind == token.Number {
			precedence = int(p.cur.Num)
			p.next()
		}
		if precedence < 1 || precedence > 100 {
			p.errorf("Invalid precedence: must be 1..100")
			return nil
		}

		params := p.parseParamList()
		if params == nil {
			return nil
		}
		if len(params) != 2 {
			p.errorf("Invalid number of operands for operator")
			return nil
		}
		return &ast.Prototype{
			Pos:        pos,
			Name:       "binary" + string(opChar),
			Params:     params,
			Kind:       ast.BinaryOp,
			Precedence: precedence,
		}

	case token.Identifier:
		name := p.cur.Name
		p.next()
		params := p.parseParamList()
		if params == nil {
			return nil
		}
		return &ast.Prototype{Pos: pos, Name: name, Params: params, Kind: ast.Regular}

	default:
		p.errorf("expected function name in prototype")
		return nil
	}
}

func (p *Parser) parseParamList() []string {
	if !p.expectChar('(') {
		return nil
	}
	var params []string
	for p.cur.Kind == token.Identifier {
		params = append(params, p.cur.Name)
		p.next()
	}
	if !p.expectChar(')') {
		return nil
	}
	return params
}

func (p *Parser) expectChar(ch byte) bool {
	if p.cur.Kind != token.Char || p.cur.Ch != ch {
		p.errorf("expected %q", string(ch))
		return false
	}
	p.next()
	return true
}

// parseExpression parses unary (binop_rhs)*.
func (p *Parser) parseExpression() ast.Expr {
	lhs := p.parseUnary()
	if lhs == nil {
		return nil
	}
	return p.parseBinOpRHS(1, lhs)
}

// tokenPrecedence is -1 if the current token is not a single ASCII
// character, otherwise the value in the precedence table (or -1 if
// absent), per spec.md §4.4.
func (p *Parser) tokenPrecedence() int {
	if p.cur.Kind != token.Char {
		return -1
	}
	if prec, ok := p.prec.Lookup(p.cur.Ch); ok {
		return prec
	}
	return -1
}

func (p *Parser) parseBinOpRHS(exprPrec int, lhs ast.Expr) ast.Expr {
	for {
		tokPrec := p.tokenPrecedence()
		if tokPrec < exprPrec {
			return lhs
		}

		op := p.cur.Ch
		pos := p.pos()
		p.next()

		rhs := p.parseUnary()
		if rhs == nil {
			return nil
		}

		nextPrec := p.tokenPrecedence()
		if tokPrec < nextPrec {
			rhs = p.parseBinOpRHS(tokPrec+1, rhs)
			if rhs == nil {
				return nil
			}
		}

		lhs = &ast.Binary{Pos: pos, Op: op, Lhs: lhs, Rhs: rhs}
	}
}

// parseUnary implements: <non-operator-primary-leader> primary | <char>
// unary. Any Char token that isn't the start of a parenthesized or
// primary expression is treated as a prefix operator application.
func (p *Parser) parseUnary() ast.Expr {
	if p.cur.Kind != token.Char || isStructural(p.cur.Ch) {
		return p.parsePrimary()
	}

	op := p.cur.Ch
	pos := p.pos()
	p.next()
	operand := p.parseUnary()
	if operand == nil {
		return nil
	}
	return &ast.Unary{Pos: pos, Op: op, Operand: operand}
}

func (p *Parser) parsePrimary() ast.Expr {
	switch p.cur.Kind {
	case token.Number:
		n := &ast.Number{Pos: p.pos(), Val: p.cur.Num}
		p.next()
		return n
	case token.Identifier:
		return p.parseIdentifierExpr()
	case token.Char:
		if p.cur.Ch == '(' {
			return p.parseParenExpr()
		}
		p.errorf("unknown token when expecting expression")
		p.next()
		return nil
	case token.If:
		return p.parseIfExpr()
	case token.Let:
		return p.parseLetExpr()
	default:
		p.errorf("unknown token when expecting expression")
		return nil
	}
}

// isStructural reports whether ch is punctuation that delimits a grammar
// production rather than an operator a unary expression may prefix --
// '(', ')', and ',' -- mirroring the teacher's parseUnarty guard
// ("token == '(' || token == ','").
func isStructural(ch byte) bool {
	return ch == '(' || ch == ')' || ch == ','
}

func (p *Parser) parseParenExpr() ast.Expr {
	p.next() // consume '('
	v := p.parseExpression()
	if v == nil {
		return nil
	}
	if !p.expectChar(')') {
		return nil
	}
	return v
}

func (p *Parser) parseIdentifierExpr() ast.Expr {
	pos := p.pos()
	name := p.cur.Name
	p.next()

	if p.cur.Kind != token.Char || p.cur.Ch != '(' {
		return &ast.Variable{Pos: pos, Name: name}
	}

	p.next() // consume '('
	var args []ast.Expr
	if !(p.cur.Kind == token.Char && p.cur.Ch == ')') {
		for {
			arg := p.parseExpression()
			if arg == nil {
				return nil
			}
			args = append(args, arg)
			if p.cur.Kind == token.Char && p.cur.Ch == ',' {
				p.next()
				continue
			}
			break
		}
	}
	if !p.expectChar(')') {
		return nil
	}
	return &ast.Call{Pos: pos, Callee: name, Args: args}
}

func (p *Parser) parseIfExpr() ast.Expr {
	pos := p.pos()
	p.next() // consume 'if'
	cond := p.parseExpression()
	if cond == nil {
		return nil
	}
	if p.cur.Kind != token.Then {
		p.errorf("expected 'then' after if condition")
		return nil
	}
	p.next()
	thenE := p.parseExpression()
	if thenE == nil {
		return nil
	}
	if p.cur.Kind != token.Else {
		p.errorf("expected 'else' after then expression")
		return nil
	}
	p.next()
	elseE := p.parseExpression()
	if elseE == nil {
		return nil
	}
	return &ast.If{Pos: pos, Cond: cond, ThenBranch: thenE, ElseBranch: elseE}
}

func (p *Parser) parseLetExpr() ast.Expr {
	pos := p.pos()
	p.next() // consume 'let'

	var bindings []ast.Binding
	for {
		if p.cur.Kind != token.Identifier {
			p.errorf("expected identifier after 'let'")
			return nil
		}
		name := p.cur.Name
		p.next()

		var init ast.Expr
		if p.cur.Kind == token.Char && p.cur.Ch == '=' {
			p.next()
			init = p.parseExpression()
			if init == nil {
				return nil
			}
		}
		bindings = append(bindings, ast.Binding{Name: name, Init: init})

		if p.cur.Kind == token.Char && p.cur.Ch == ',' {
			p.next()
			continue
		}
		break
	}

	if p.cur.Kind != token.In {
		p.errorf("expected 'in' after let bindings")
		return nil
	}
	p.next()

	body := p.parseExpression()
	if body == nil {
		return nil
	}
	return &ast.Let{Pos: pos, Bindings: bindings, Body: body}
}
