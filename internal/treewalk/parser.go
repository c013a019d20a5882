// Package treewalk implements the secondary AST-walking back-end: a
// recursive-descent parser producing internal/ast nodes, a resolver
// that annotates variable references with a static scope depth, and an
// interpreter that walks the resolved tree directly (spec §1, §4.1;
// SPEC_FULL.md §C.2). It shares the scanner and token vocabulary with
// the bytecode compiler but is otherwise a separate implementation, the
// way the teacher's own pkg/parser + pkg/ast exists alongside
// pkg/compiler as a second front end.
package treewalk

import (
	"fmt"
	"strconv"

	"github.com/kristofer/glox/internal/ast"
	"github.com/kristofer/glox/internal/diag"
	"github.com/kristofer/glox/internal/scanner"
	"github.com/kristofer/glox/internal/token"
)

const maxParams = 255

// parseError unwinds the recursive descent back to the nearest
// statement boundary on a syntax error, mirroring jlox's exception-based
// panic-mode recovery translated into Go's panic/recover.
type parseError struct{}

// Parser is a recursive-descent parser over a token stream, distinct
// from the bytecode compiler's single-pass Pratt parser even though
// both consume the same token.Token stream (spec §4.1).
type Parser struct {
	scanner  *scanner.Scanner
	reporter *diag.Reporter
	previous token.Token
	current  token.Token
}

// NewParser constructs a Parser over src, reporting syntax errors to
// reporter.
func NewParser(src string, reporter *diag.Reporter) *Parser {
	p := &Parser{scanner: scanner.New(src), reporter: reporter}
	p.advance()
	return p
}

// Parse consumes the full token stream and returns the program's
// top-level statement list. Partial results may be returned alongside a
// non-nil reporter error; callers should check reporter.HasErrors()
// before trusting the result for execution (spec §4.2's "multiple
// compile errors may be reported per run" applies here too).
func (p *Parser) Parse() []ast.Stmt {
	var stmts []ast.Stmt
	for p.current.Kind != token.EOF {
		if stmt := p.declarationRecover(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

func (p *Parser) declarationRecover() (stmt ast.Stmt) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(parseError); !ok {
				panic(r)
			}
			p.synchronize()
			stmt = nil
		}
	}()
	return p.declaration()
}

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
	name := p.consume(token.Identifier, "Expect class name.")
	var superclass *ast.Variable
	if p.match(token.Less) {
		p.consume(token.Identifier, "Expect superclass name.")
		superclass = &ast.Variable{Name: p.previous}
	}
	p.consume(token.LeftBrace, "Expect '{' before class body.")
	var methods []*ast.Function
	for p.current.Kind != token.RightBrace && p.current.Kind != token.EOF {
		methods = append(methods, p.function("method"))
	}
	p.consume(token.RightBrace, "Expect '}' after class body.")
	return &ast.Class{Name: name, Superclass: superclass, Methods: methods}
}

func (p *Parser) function(kind string) *ast.Function {
	name := p.consume(token.Identifier, fmt.Sprintf("Expect %s name.", kind))
	p.consume(token.LeftParen, fmt.Sprintf("Expect '(' after %s name.", kind))
	var params []token.Token
	if p.current.Kind != token.RightParen {
		for {
			if len(params) >= maxParams {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			params = append(params, p.consume(token.Identifier, "Expect parameter name."))
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.consume(token.RightParen, "Expect ')' after parameters.")
	p.consume(token.LeftBrace, fmt.Sprintf("Expect '{' before %s body.", kind))
	body := p.block()
	return &ast.Function{Name: name, Params: params, Body: body}
}

func (p *Parser) varDeclaration() ast.Stmt {
	name := p.consume(token.Identifier, "Expect variable name.")
	var initializer ast.Expr
	if p.match(token.Equal) {
		initializer = p.expression()
	}
	p.consume(token.Semicolon, "Expect ';' after variable declaration.")
	return &ast.Var{Name: name, Initializer: initializer}
}

func (p *Parser) statement() ast.Stmt {
	switch {
	case p.match(token.Print):
		return p.printStatement()
	case p.match(token.Return):
		return p.returnStatement()
	case p.match(token.While):
		return p.whileStatement()
	case p.match(token.For):
		return p.forStatement()
	case p.match(token.If):
		return p.ifStatement()
	case p.match(token.LeftBrace):
		return &ast.Block{Statements: p.block()}
	default:
		return p.expressionStatement()
	}
}

func (p *Parser) printStatement() ast.Stmt {
	value := p.expression()
	p.consume(token.Semicolon, "Expect ';' after value.")
	return &ast.Print{Expr: value}
}

func (p *Parser) returnStatement() ast.Stmt {
	keyword := p.previous
	var value ast.Expr
	if p.current.Kind != token.Semicolon {
		value = p.expression()
	}
	p.consume(token.Semicolon, "Expect ';' after return value.")
	return &ast.Return{Keyword: keyword, Value: value}
}

func (p *Parser) whileStatement() ast.Stmt {
	p.consume(token.LeftParen, "Expect '(' after 'while'.")
	condition := p.expression()
	p.consume(token.RightParen, "Expect ')' after condition.")
	body := p.statement()
	return &ast.While{Condition: condition, Body: body}
}

// forStatement desugars `for (init; cond; incr) body` into the
// equivalent block/while form at parse time, the same way the bytecode
// compiler treats `for` as sugar rather than its own opcode family
// (spec §4.2).
func (p *Parser) forStatement() ast.Stmt {
	p.consume(token.LeftParen, "Expect '(' after 'for'.")

	var initializer ast.Stmt
	switch {
	case p.match(token.Semicolon):
		initializer = nil
	case p.match(token.Var):
		initializer = p.varDeclaration()
	default:
		initializer = p.expressionStatement()
	}

	var condition ast.Expr
	if p.current.Kind != token.Semicolon {
		condition = p.expression()
	}
	p.consume(token.Semicolon, "Expect ';' after loop condition.")

	var increment ast.Expr
	if p.current.Kind != token.RightParen {
		increment = p.expression()
	}
	p.consume(token.RightParen, "Expect ')' after for clauses.")

	body := p.statement()

	if increment != nil {
		body = &ast.Block{Statements: []ast.Stmt{body, &ast.Expression{Expr: increment}}}
	}
	if condition == nil {
		condition = &ast.Literal{Value: true}
	}
	body = &ast.While{Condition: condition, Body: body}

	if initializer != nil {
		body = &ast.Block{Statements: []ast.Stmt{initializer, body}}
	}
	return body
}

func (p *Parser) ifStatement() ast.Stmt {
	p.consume(token.LeftParen, "Expect '(' after 'if'.")
	condition := p.expression()
	p.consume(token.RightParen, "Expect ')' after if condition.")
	thenBranch := p.statement()
	var elseBranch ast.Stmt
	if p.match(token.Else) {
		elseBranch = p.statement()
	}
	return &ast.If{Condition: condition, Then: thenBranch, Else: elseBranch}
}

func (p *Parser) block() []ast.Stmt {
	var stmts []ast.Stmt
	for p.current.Kind != token.RightBrace && p.current.Kind != token.EOF {
		if stmt := p.declarationRecover(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	p.consume(token.RightBrace, "Expect '}' after block.")
	return stmts
}

func (p *Parser) expressionStatement() ast.Stmt {
	expr := p.expression()
	p.consume(token.Semicolon, "Expect ';' after expression.")
	return &ast.Expression{Expr: expr}
}

func (p *Parser) expression() ast.Expr {
	return p.assignment()
}

func (p *Parser) assignment() ast.Expr {
	expr := p.or()

	if p.match(token.Equal) {
		equals := p.previous
		value := p.assignment()

		switch target := expr.(type) {
		case *ast.Variable:
			return &ast.Assign{Name: target.Name, Value: value}
		case *ast.Get:
			return &ast.Set{Object: target.Object, Name: target.Name, Value: value}
		default:
			p.errorAt(equals, "Invalid assignment target.")
		}
	}
	return expr
}

func (p *Parser) or() ast.Expr {
	expr := p.and()
	for p.match(token.Or) {
		op := p.previous
		right := p.and()
		expr = &ast.Logical{Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) and() ast.Expr {
	expr := p.equality()
	for p.match(token.And) {
		op := p.previous
		right := p.equality()
		expr = &ast.Logical{Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) equality() ast.Expr {
	expr := p.comparison()
	for p.match(token.BangEqual) || p.match(token.EqualEqual) {
		op := p.previous
		right := p.comparison()
		expr = &ast.Binary{Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) comparison() ast.Expr {
	expr := p.term()
	for p.match(token.Greater) || p.match(token.GreaterEqual) || p.match(token.Less) || p.match(token.LessEqual) {
		op := p.previous
		right := p.term()
		expr = &ast.Binary{Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) term() ast.Expr {
	expr := p.factor()
	for p.match(token.Minus) || p.match(token.Plus) {
		op := p.previous
		right := p.factor()
		expr = &ast.Binary{Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) factor() ast.Expr {
	expr := p.unary()
	for p.match(token.Slash) || p.match(token.Star) {
		op := p.previous
		right := p.unary()
		expr = &ast.Binary{Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) unary() ast.Expr {
	if p.match(token.Bang) || p.match(token.Minus) {
		op := p.previous
		right := p.unary()
		return &ast.Unary{Operator: op, Right: right}
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
			name := p.consume(token.Identifier, "Expect property name after '.'.")
			expr = &ast.Get{Object: expr, Name: name}
		default:
			return expr
		}
	}
}

func (p *Parser) finishCall(callee ast.Expr) ast.Expr {
	var args []ast.Expr
	if p.current.Kind != token.RightParen {
		for {
			if len(args) >= maxParams {
				p.errorAtCurrent("Can't have more than 255 arguments.")
			}
			args = append(args, p.expression())
			if !p.match(token.Comma) {
				break
			}
		}
	}
	paren := p.consume(token.RightParen, "Expect ')' after arguments.")
	return &ast.Call{Callee: callee, Paren: paren, Args: args}
}

func (p *Parser) primary() ast.Expr {
	switch {
	case p.match(token.False):
		return &ast.Literal{Value: false}
	case p.match(token.True):
		return &ast.Literal{Value: true}
	case p.match(token.Nil):
		return &ast.Literal{Value: nil}
	case p.match(token.Number):
		return &ast.Literal{Value: parseNumber(p.previous.Lexeme)}
	case p.match(token.String):
		// The scanner already strips the surrounding quotes.
		return &ast.Literal{Value: p.previous.Lexeme}
	case p.match(token.Super):
		keyword := p.previous
		p.consume(token.Dot, "Expect '.' after 'super'.")
		method := p.consume(token.Identifier, "Expect superclass method name.")
		return &ast.Super{Keyword: keyword, Method: method}
	case p.match(token.This):
		return &ast.This{Keyword: p.previous}
	case p.match(token.Identifier):
		return &ast.Variable{Name: p.previous}
	case p.match(token.LeftParen):
		expr := p.expression()
		p.consume(token.RightParen, "Expect ')' after expression.")
		return &ast.Grouping{Expression: expr}
	default:
		p.errorAtCurrent("Expect expression.")
		panic(parseError{})
	}
}

func parseNumber(lexeme string) float64 {
	n, _ := strconv.ParseFloat(lexeme, 64)
	return n
}

// --- token stream plumbing, mirroring the bytecode compiler's Parser ---

func (p *Parser) advance() {
	p.previous = p.current
	for {
		p.current = p.scanner.NextToken()
		if p.current.Kind != token.Error {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *Parser) match(k token.Kind) bool {
	if p.current.Kind != k {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(k token.Kind, message string) token.Token {
	if p.current.Kind == k {
		tok := p.current
		p.advance()
		return tok
	}
	p.errorAtCurrent(message)
	panic(parseError{})
}

func (p *Parser) errorAtCurrent(message string) {
	p.errorAt(p.current, message)
}

func (p *Parser) errorAt(t token.Token, message string) {
	where := fmt.Sprintf("'%s'", t.Lexeme)
	if t.Kind == token.EOF {
		where = "end"
	}
	p.reporter.Report(t.Line, where, message)
}

// synchronize discards tokens until it reaches a likely statement
// boundary, the same recovery heuristic the bytecode compiler's parser
// uses (spec §4.2).
func (p *Parser) synchronize() {
	for p.current.Kind != token.EOF {
		if p.previous.Kind == token.Semicolon {
			return
		}
		switch p.current.Kind {
		case token.Class, token.Fun, token.Var, token.For, token.If, token.While, token.Print, token.Return:
			return
		}
		p.advance()
	}
}
