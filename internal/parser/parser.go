// Package parser implements the willow language parser.
//
// The parser is a recursive-descent parser with one token of lookahead,
// converting a token stream (from the lexer) into the AST the compiler
// consumes. Expression parsing follows the standard precedence ladder:
// assignment, or, and, equality, comparison, term, factor, unary, call,
// primary, each level a parse function that calls the next level down.
//
// Like the parser it's descended from, this parser accumulates syntax
// errors in a slice rather than aborting on the first one, so a single
// Parse() call can report several mistakes at once.
package parser

import (
	"fmt"
	"strconv"

	"github.com/willow-lang/willow/internal/ast"
	"github.com/willow-lang/willow/internal/lexer"
	"github.com/willow-lang/willow/internal/token"
)

// Parser turns willow source text into an *ast.Program.
type Parser struct {
	l       *lexer.Lexer
	curTok  token.Token
	peekTok token.Token
	errors  []string
}

// New creates a parser over the given source text.
func New(input string) *Parser {
	p := &Parser{l: lexer.New(input)}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curTok = p.peekTok
	p.peekTok = p.l.NextToken()
}

func (p *Parser) check(t token.Type) bool { return p.curTok.Type == t }

func (p *Parser) match(types ...token.Type) bool {
	for _, t := range types {
		if p.check(t) {
			p.nextToken()
			return true
		}
	}
	return false
}

func (p *Parser) consume(t token.Type, msg string) token.Token {
	if p.check(t) {
		tok := p.curTok
		p.nextToken()
		return tok
	}
	p.addError(msg)
	return p.curTok
}

func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, fmt.Sprintf("[line %d] %s (got %s)", p.curTok.Line, msg, p.curTok.Type))
}

// Errors returns accumulated parse errors, if any.
func (p *Parser) Errors() []string { return p.errors }

// Parse parses the whole input as a sequence of top-level declarations.
func (p *Parser) Parse() (*ast.Program, error) {
	program := &ast.Program{}
	for !p.check(token.EOF) {
		stmt := p.declaration()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
	}
	if len(p.errors) > 0 {
		return program, fmt.Errorf("parse errors: %v", p.errors)
	}
	return program, nil
}

// ---- Declarations ----

func (p *Parser) declaration() ast.Stmt {
	switch {
	case p.match(token.Class):
		return p.classDeclaration()
	case p.match(token.Fun):
		return p.function("function")
	case p.match(token.Var):
		return p.varDeclaration()
	default:
		return p.statement()
	}
}

func (p *Parser) classDeclaration() ast.Stmt {
	name := p.consume(token.Identifier, "expected class name")

	var super *ast.Variable
	if p.match(token.Less) {
		superName := p.consume(token.Identifier, "expected superclass name")
		super = &ast.Variable{Name: superName}
	}

	p.consume(token.LeftBrace, "expected '{' before class body")
	var methods []*ast.FunDecl
	for !p.check(token.RightBrace) && !p.check(token.EOF) {
		methods = append(methods, p.function("method"))
	}
	p.consume(token.RightBrace, "expected '}' after class body")

	return &ast.ClassDecl{Name: name, Superclass: super, Methods: methods}
}

func (p *Parser) function(kind string) *ast.FunDecl {
	name := p.consume(token.Identifier, "expected "+kind+" name")
	p.consume(token.LeftParen, "expected '(' after "+kind+" name")
	var params []token.Token
	if !p.check(token.RightParen) {
		for {
			params = append(params, p.consume(token.Identifier, "expected parameter name"))
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.consume(token.RightParen, "expected ')' after parameters")
	p.consume(token.LeftBrace, "expected '{' before "+kind+" body")
	body := p.blockStatements()
	return &ast.FunDecl{Name: name, Params: params, Body: body}
}

func (p *Parser) varDeclaration() ast.Stmt {
	name := p.consume(token.Identifier, "expected variable name")
	var init ast.Expr
	if p.match(token.Equal) {
		init = p.expression()
	}
	p.consume(token.Semicolon, "expected ';' after variable declaration")
	return &ast.VarDecl{Name: name, Initializer: init}
}

// ---- Statements ----

func (p *Parser) statement() ast.Stmt {
	switch {
	case p.match(token.Print):
		return p.printStatement(false)
	case p.match(token.Println):
		return p.printStatement(true)
	case p.match(token.If):
		return p.ifStatement()
	case p.match(token.While):
		return p.whileStatement()
	case p.match(token.For):
		return p.forStatement()
	case p.match(token.Return):
		return p.returnStatement()
	case p.check(token.LeftBrace):
		tok := p.curTok
		p.nextToken()
		return &ast.Block{Tok: tok, Statements: p.blockStatements()}
	default:
		return p.expressionStatement()
	}
}

func (p *Parser) blockStatements() []ast.Stmt {
	var stmts []ast.Stmt
	for !p.check(token.RightBrace) && !p.check(token.EOF) {
		stmts = append(stmts, p.declaration())
	}
	p.consume(token.RightBrace, "expected '}' after block")
	return stmts
}

func (p *Parser) printStatement(newline bool) ast.Stmt {
	tok := p.curTok
	expr := p.expression()
	p.consume(token.Semicolon, "expected ';' after value")
	return &ast.PrintStmt{Tok: tok, Expression: expr, Newline: newline}
}

func (p *Parser) ifStatement() ast.Stmt {
	tok := p.curTok
	p.consume(token.LeftParen, "expected '(' after 'if'")
	cond := p.expression()
	p.consume(token.RightParen, "expected ')' after condition")
	then := p.statement()
	var elseBranch ast.Stmt
	if p.match(token.Else) {
		elseBranch = p.statement()
	}
	return &ast.IfStmt{Tok: tok, Condition: cond, Then: then, Else: elseBranch}
}

func (p *Parser) whileStatement() ast.Stmt {
	tok := p.curTok
	p.consume(token.LeftParen, "expected '(' after 'while'")
	cond := p.expression()
	p.consume(token.RightParen, "expected ')' after condition")
	body := p.statement()
	return &ast.WhileStmt{Tok: tok, Condition: cond, Body: body}
}

// forStatement desugars the classic C for-loop into an equivalent while
// loop wrapped in a block, exactly as the book this grammar is modeled
// after does: there is no dedicated FOR opcode.
func (p *Parser) forStatement() ast.Stmt {
	tok := p.curTok
	p.consume(token.LeftParen, "expected '(' after 'for'")

	var init ast.Stmt
	switch {
	case p.match(token.Semicolon):
		init = nil
	case p.match(token.Var):
		init = p.varDeclaration()
	default:
		init = p.expressionStatement()
	}

	var cond ast.Expr
	if !p.check(token.Semicolon) {
		cond = p.expression()
	}
	p.consume(token.Semicolon, "expected ';' after loop condition")

	var post ast.Expr
	if !p.check(token.RightParen) {
		post = p.expression()
	}
	p.consume(token.RightParen, "expected ')' after for clauses")

	body := p.statement()

	if post != nil {
		body = &ast.Block{Tok: tok, Statements: []ast.Stmt{body, &ast.ExprStmt{Expression: post}}}
	}
	if cond == nil {
		cond = &ast.Literal{Value: true, Tok: tok}
	}
	body = &ast.WhileStmt{Tok: tok, Condition: cond, Body: body}
	if init != nil {
		body = &ast.Block{Tok: tok, Statements: []ast.Stmt{init, body}}
	}
	return body
}

func (p *Parser) returnStatement() ast.Stmt {
	tok := p.curTok
	var value ast.Expr
	if !p.check(token.Semicolon) {
		value = p.expression()
	}
	p.consume(token.Semicolon, "expected ';' after return value")
	return &ast.ReturnStmt{Tok: tok, Value: value}
}

func (p *Parser) expressionStatement() ast.Stmt {
	expr := p.expression()
	p.consume(token.Semicolon, "expected ';' after expression")
	return &ast.ExprStmt{Expression: expr}
}

// ---- Expressions ----

func (p *Parser) expression() ast.Expr {
	return p.assignment()
}

func (p *Parser) assignment() ast.Expr {
	expr := p.or()

	if p.match(token.Equal) {
		value := p.assignment()
		switch target := expr.(type) {
		case *ast.Variable:
			return &ast.Assign{Name: target.Name, Value: value}
		case *ast.Get:
			return &ast.Set{Object: target.Object, Name: target.Name, Value: value}
		case *ast.Index:
			return &ast.IndexSet{Object: target.Object, Bracket: target.Bracket, Index: target.Index, Value: value}
		default:
			p.addError("invalid assignment target")
			return expr
		}
	}
	return expr
}

func (p *Parser) or() ast.Expr {
	expr := p.and()
	for p.check(token.Or) {
		op := p.curTok
		p.nextToken()
		expr = &ast.Logical{Left: expr, Op: op, Right: p.and()}
	}
	return expr
}

func (p *Parser) and() ast.Expr {
	expr := p.equality()
	for p.check(token.And) {
		op := p.curTok
		p.nextToken()
		expr = &ast.Logical{Left: expr, Op: op, Right: p.equality()}
	}
	return expr
}

func (p *Parser) equality() ast.Expr {
	expr := p.comparison()
	for p.check(token.BangEqual) || p.check(token.EqualEqual) {
		op := p.curTok
		p.nextToken()
		expr = &ast.Binary{Left: expr, Op: op, Right: p.comparison()}
	}
	return expr
}

func (p *Parser) comparison() ast.Expr {
	expr := p.term()
	for p.check(token.Greater) || p.check(token.GreaterEqual) || p.check(token.Less) || p.check(token.LessEqual) {
		op := p.curTok
		p.nextToken()
		expr = &ast.Binary{Left: expr, Op: op, Right: p.term()}
	}
	return expr
}

func (p *Parser) term() ast.Expr {
	expr := p.factor()
	for p.check(token.Plus) || p.check(token.Minus) {
		op := p.curTok
		p.nextToken()
		expr = &ast.Binary{Left: expr, Op: op, Right: p.factor()}
	}
	return expr
}

func (p *Parser) factor() ast.Expr {
	expr := p.unary()
	for p.check(token.Star) || p.check(token.Slash) || p.check(token.Percent) {
		op := p.curTok
		p.nextToken()
		expr = &ast.Binary{Left: expr, Op: op, Right: p.unary()}
	}
	return expr
}

func (p *Parser) unary() ast.Expr {
	if p.check(token.Bang) || p.check(token.Minus) {
		op := p.curTok
		p.nextToken()
		return &ast.Unary{Op: op, Operand: p.unary()}
	}
	return p.call()
}

func (p *Parser) call() ast.Expr {
	expr := p.primary()
	for {
		switch {
		case p.match(token.LeftParen):
			expr = p.finishCall(expr)
		case p.match(token.Dot):
			name := p.consume(token.Identifier, "expected property name after '.'")
			expr = &ast.Get{Object: expr, Name: name}
		case p.check(token.LeftBracket):
			bracket := p.curTok
			p.nextToken()
			idx := p.expression()
			p.consume(token.RightBracket, "expected ']' after index")
			expr = &ast.Index{Object: expr, Bracket: bracket, Index: idx}
		default:
			return expr
		}
	}
}

func (p *Parser) finishCall(callee ast.Expr) ast.Expr {
	paren := p.curTok
	var args []ast.Expr
	if !p.check(token.RightParen) {
		for {
			args = append(args, p.expression())
			if !p.match(token.Comma) {
				break
			}
		}
	}
	paren = p.consume(token.RightParen, "expected ')' after arguments")
	return &ast.Call{Callee: callee, Paren: paren, Arguments: args}
}

func (p *Parser) primary() ast.Expr {
	tok := p.curTok
	switch {
	case p.match(token.False):
		return &ast.Literal{Value: false, Tok: tok}
	case p.match(token.True):
		return &ast.Literal{Value: true, Tok: tok}
	case p.match(token.Nil):
		return &ast.Literal{Value: nil, Tok: tok}
	case p.match(token.Number):
		n, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			p.addError("invalid number literal " + tok.Lexeme)
		}
		return &ast.Literal{Value: n, Tok: tok}
	case p.match(token.String):
		return &ast.Literal{Value: tok.Lexeme, Tok: tok}
	case p.match(token.This):
		return &ast.This{Tok: tok}
	case p.match(token.Super):
		p.consume(token.Dot, "expected '.' after 'super'")
		method := p.consume(token.Identifier, "expected superclass method name")
		return &ast.Super{Tok: tok, Method: method}
	case p.match(token.Identifier):
		return &ast.Variable{Name: tok}
	case p.match(token.LeftParen):
		expr := p.expression()
		p.consume(token.RightParen, "expected ')' after expression")
		return expr
	case p.check(token.LeftBracket):
		p.nextToken()
		var elems []ast.Expr
		if !p.check(token.RightBracket) {
			for {
				elems = append(elems, p.expression())
				if !p.match(token.Comma) {
					break
				}
			}
		}
		p.consume(token.RightBracket, "expected ']' after list elements")
		return &ast.ListLiteral{Elements: elems, Tok: tok}
	default:
		p.addError("expected expression")
		p.nextToken()
		return &ast.Literal{Value: nil, Tok: tok}
	}
}
