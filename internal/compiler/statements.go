package compiler

import (
	"github.com/kristofer/glox/internal/chunk"
	"github.com/kristofer/glox/internal/token"
)

// declaration is the top-level statement dispatcher: class/fun/var
// declarations fall through to statement() for everything else, and any
// parse error triggers panic-mode recovery to the next statement
// boundary (spec §4.2/§7).
func (p *Parser) declaration() {
	switch {
	case p.match(token.Class):
		p.classDeclaration()
	case p.match(token.Fun):
		p.funDeclaration()
	case p.match(token.Var):
		p.varDeclaration()
	default:
		p.statement()
	}

	if p.panicMode {
		p.synchronize()
	}
}

func (p *Parser) statement() {
	switch {
	case p.match(token.Print):
		p.printStatement()
	case p.match(token.If):
		p.ifStatement()
	case p.match(token.While):
		p.whileStatement()
	case p.match(token.For):
		p.forStatement()
	case p.match(token.Return):
		p.returnStatement()
	case p.match(token.LeftBrace):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *Parser) printStatement() {
	p.expression()
	p.consume(token.Semicolon, "Expect ';' after value.")
	p.emitOp(chunk.OpPrint)
}

func (p *Parser) expressionStatement() {
	p.expression()
	p.consume(token.Semicolon, "Expect ';' after expression.")
	p.emitOp(chunk.OpPop)
}

// block compiles statements up to (but not including) the closing '}'.
// The caller is responsible for begin/endScope, since function bodies
// reuse block() without an extra nested scope for parameters.
func (p *Parser) block() {
	for !p.check(token.RightBrace) && !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.RightBrace, "Expect '}' after block.")
}

// ifStatement compiles a branch as two jumps: skip the then-branch on a
// false condition, and skip the else-branch (if present) after running
// the then-branch.
func (p *Parser) ifStatement() {
	p.consume(token.LeftParen, "Expect '(' after 'if'.")
	p.expression()
	p.consume(token.RightParen, "Expect ')' after condition.")

	thenJump := p.emitJump(chunk.OpJumpIfFalsePop)
	p.statement()

	elseJump := p.emitJump(chunk.OpJump)
	p.patchJump(thenJump)

	if p.match(token.Else) {
		p.statement()
	}
	p.patchJump(elseJump)
}

// whileStatement compiles a condition-checked loop using a backward
// OpLoop to re-test the condition each iteration.
func (p *Parser) whileStatement() {
	loopStart := len(p.currentChunk().Code)
	p.consume(token.LeftParen, "Expect '(' after 'while'.")
	p.expression()
	p.consume(token.RightParen, "Expect ')' after condition.")

	exitJump := p.emitJump(chunk.OpJumpIfFalsePop)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
}

// forStatement desugars the C-style for loop into the same while-loop
// bytecode shape, wrapped in its own scope so a var-declared initializer
// does not leak (spec §4.2, "for is sugar, not its own opcode family").
func (p *Parser) forStatement() {
	p.beginScope()
	p.consume(token.LeftParen, "Expect '(' after 'for'.")

	switch {
	case p.match(token.Semicolon):
		// no initializer
	case p.match(token.Var):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := len(p.currentChunk().Code)
	exitJump := -1
	if !p.match(token.Semicolon) {
		p.expression()
		p.consume(token.Semicolon, "Expect ';' after loop condition.")
		exitJump = p.emitJump(chunk.OpJumpIfFalsePop)
	}

	if !p.match(token.RightParen) {
		bodyJump := p.emitJump(chunk.OpJump)
		incrementStart := len(p.currentChunk().Code)
		p.expression()
		p.emitOp(chunk.OpPop)
		p.consume(token.RightParen, "Expect ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
	}
	p.endScope()
}

func (p *Parser) returnStatement() {
	if p.fc.funcType == FuncScript {
		p.errorAtPrevious("Can't return from top-level code.")
	}
	if p.match(token.Semicolon) {
		p.emitReturn()
		return
	}
	if p.fc.funcType == FuncInitializer {
		p.errorAtPrevious("Can't return a value from an initializer.")
	}
	p.expression()
	p.consume(token.Semicolon, "Expect ';' after return value.")
	p.emitOp(chunk.OpReturn)
}

// varDeclaration compiles `var name [= initializer];`, defaulting to nil
// when no initializer is given (spec §1, "uninitialized variables read
// as nil").
func (p *Parser) varDeclaration() {
	p.consume(token.Identifier, "Expect variable name.")
	name := p.previous.Lexeme
	p.declareVariable(name)

	var globalIdx int
	isGlobal := p.fc.scopeDepth == 0
	if isGlobal {
		globalIdx = p.identifierConstant(name)
	}

	if p.match(token.Equal) {
		p.expression()
	} else {
		p.emitOp(chunk.OpNil)
	}
	p.consume(token.Semicolon, "Expect ';' after variable declaration.")

	if isGlobal {
		p.emitConstantIndex(chunk.OpDefineGlobal, chunk.OpDefineGlobal16, globalIdx)
	} else {
		p.markInitialized()
	}
}

// funDeclaration compiles `fun name(params) { body }` as a named
// variable binding whose initializer is the compiled closure.
func (p *Parser) funDeclaration() {
	p.consume(token.Identifier, "Expect function name.")
	name := p.previous.Lexeme
	p.declareVariable(name)
	if p.fc.scopeDepth > 0 {
		p.markInitialized()
	}

	p.function(name, FuncFunction)

	if p.fc.scopeDepth == 0 {
		idx := p.identifierConstant(name)
		p.emitConstantIndex(chunk.OpDefineGlobal, chunk.OpDefineGlobal16, idx)
	}
}

// function compiles one function body (shared by top-level functions,
// methods, and initializers) into its own nested funcCompiler, then
// emits an OpClosure referencing the compiled Function as a constant
// plus one (isLocal, index) byte pair per upvalue it captures (spec
// §4.2, "Closures").
func (p *Parser) function(name string, funcType FuncType) {
	enclosing := p.fc
	p.fc = newFuncCompiler(enclosing, funcType, name)
	p.beginScope()

	p.consume(token.LeftParen, "Expect '(' after function name.")
	if !p.check(token.RightParen) {
		for {
			p.fc.function.Arity++
			if p.fc.function.Arity > maxParams {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			p.consume(token.Identifier, "Expect parameter name.")
			p.declareVariable(p.previous.Lexeme)
			p.markInitialized()
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.consume(token.RightParen, "Expect ')' after parameters.")
	p.consume(token.LeftBrace, "Expect '{' before function body.")
	p.block()

	upvalues := p.fc.upvalues
	fn := p.endFunction()

	idx := p.makeConstant(chunk.FromObject(fn))
	p.emitConstantIndex(chunk.OpClosure, chunk.OpClosure16, idx)
	for _, uv := range upvalues {
		if uv.isLocal {
			p.emitByte(1)
		} else {
			p.emitByte(0)
		}
		p.emitByte(uv.index)
	}
}

// classDeclaration compiles `class Name [< Super] { methods... }`
// (SPEC_FULL.md §C.1). The class is bound as a variable first so methods
// referencing the class's own name (e.g. recursive factory methods)
// resolve correctly, then OpMethod entries are emitted one per method
// body directly into the class object left on the stack.
func (p *Parser) classDeclaration() {
	p.consume(token.Identifier, "Expect class name.")
	name := p.previous.Lexeme
	nameIdx := p.identifierConstant(name)
	p.declareVariable(name)

	p.emitConstantIndex(chunk.OpClass, chunk.OpClass16, nameIdx)
	if p.fc.scopeDepth == 0 {
		p.emitConstantIndex(chunk.OpDefineGlobal, chunk.OpDefineGlobal16, nameIdx)
	} else {
		p.markInitialized()
	}

	cc := &classCompiler{enclosing: p.class}
	p.class = cc

	if p.match(token.Less) {
		p.consume(token.Identifier, "Expect superclass name.")
		p.variable(false)
		if p.previous.Lexeme == name {
			p.errorAtPrevious("A class can't inherit from itself.")
		}

		p.beginScope()
		p.addLocal("super")
		p.markInitialized()

		p.namedVariable(name, false)
		p.emitOp(chunk.OpInherit)
		cc.hasSuperclass = true
	}

	p.namedVariable(name, false)
	p.consume(token.LeftBrace, "Expect '{' before class body.")
	for !p.check(token.RightBrace) && !p.check(token.EOF) {
		p.method()
	}
	p.consume(token.RightBrace, "Expect '}' after class body.")
	p.emitOp(chunk.OpPop) // pop the class itself, left by namedVariable above

	if cc.hasSuperclass {
		p.endScope()
	}
	p.class = cc.enclosing
}

// method compiles one `name(params) { body }` entry in a class body.
func (p *Parser) method() {
	p.consume(token.Identifier, "Expect method name.")
	name := p.previous.Lexeme
	nameIdx := p.identifierConstant(name)

	funcType := FuncMethod
	if name == "init" {
		funcType = FuncInitializer
	}
	p.function(name, funcType)
	p.emitConstantIndex(chunk.OpMethod, chunk.OpMethod16, nameIdx)
}
