package compiler

import (
	"strconv"

	"github.com/kristofer/glox/internal/chunk"
	"github.com/kristofer/glox/internal/token"
)

// number parses the just-consumed NUMBER token into a float64 constant
// (spec §2, "Lox has a single numeric type... IEEE-754 double").
func (p *Parser) number(canAssign bool) {
	v, err := strconv.ParseFloat(p.previous.Lexeme, 64)
	if err != nil {
		p.errorAtPrevious("Invalid number literal.")
		return
	}
	p.emitConstant(chunk.Number(v))
}

// string interns the just-consumed STRING token's contents (quotes
// already stripped by the scanner) as a string constant.
func (p *Parser) string(canAssign bool) {
	p.emitConstant(chunk.String(p.interner.Intern(p.previous.Lexeme)))
}

// literal compiles the keyword literals false/nil/true.
func (p *Parser) literal(canAssign bool) {
	switch p.previous.Kind {
	case token.False:
		p.emitOp(chunk.OpFalse)
	case token.Nil:
		p.emitOp(chunk.OpNil)
	case token.True:
		p.emitOp(chunk.OpTrue)
	}
}

// grouping compiles a parenthesized expression; it emits no opcode of
// its own, purely overriding precedence.
func (p *Parser) grouping(canAssign bool) {
	p.expression()
	p.consume(token.RightParen, "Expect ')' after expression.")
}

// unary compiles a prefix '-' or '!' by parsing its operand at
// PrecUnary and then emitting the negate/not opcode, so the operand is
// fully on the stack before the operator runs.
func (p *Parser) unary(canAssign bool) {
	opKind := p.previous.Kind
	p.parsePrecedence(PrecUnary)
	switch opKind {
	case token.Minus:
		p.emitOp(chunk.OpNegate)
	case token.Bang:
		p.emitOp(chunk.OpNot)
	}
}

// binary compiles an infix operator: the left operand is already on the
// stack; parse the right operand at one precedence level higher than
// this operator's own (left-associativity, spec §4.2) then emit the op.
func (p *Parser) binary(canAssign bool) {
	opKind := p.previous.Kind
	r := getRule(opKind)
	p.parsePrecedence(r.precedence + 1)

	switch opKind {
	case token.Plus:
		p.emitOp(chunk.OpAdd)
	case token.Minus:
		p.emitOp(chunk.OpSubtract)
	case token.Star:
		p.emitOp(chunk.OpMultiply)
	case token.Slash:
		p.emitOp(chunk.OpDivide)
	case token.BangEqual:
		p.emitOp(chunk.OpNotEqual)
	case token.EqualEqual:
		p.emitOp(chunk.OpEqual)
	case token.Greater:
		p.emitOp(chunk.OpGreater)
	case token.GreaterEqual:
		p.emitOp(chunk.OpGreaterEqual)
	case token.Less:
		p.emitOp(chunk.OpLess)
	case token.LessEqual:
		p.emitOp(chunk.OpLessEqual)
	}
}

// and_ and or_ compile short-circuiting logical operators as jumps
// rather than eager boolean opcodes, so the right operand is skipped
// entirely when the left already determines the result (spec §4.2,
// "and/or are control flow, not arithmetic operators").
func (p *Parser) and_(canAssign bool) {
	endJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitOp(chunk.OpPop)
	p.parsePrecedence(PrecAnd)
	p.patchJump(endJump)
}

func (p *Parser) or_(canAssign bool) {
	elseJump := p.emitJump(chunk.OpJumpIfFalse)
	endJump := p.emitJump(chunk.OpJump)
	p.patchJump(elseJump)
	p.emitOp(chunk.OpPop)
	p.parsePrecedence(PrecOr)
	p.patchJump(endJump)
}

// variable compiles a bare identifier reference, dispatching to
// namedVariable.
func (p *Parser) variable(canAssign bool) {
	p.namedVariable(p.previous.Lexeme, canAssign)
}

// namedVariable resolves name as local, upvalue, or global (in that
// order, spec §4.2's resolution order) and emits the matching get, or
// the matching set if this is an assignment target.
func (p *Parser) namedVariable(name string, canAssign bool) {
	var getOp, getOp16, setOp, setOp16 chunk.OpCode
	slot := resolveLocal(p.fc, name)
	switch {
	case slot == -2:
		p.errorAtPrevious("Can't read local variable in its own initializer.")
		return
	case slot != -1:
		getOp, getOp16 = chunk.OpGetLocal, chunk.OpGetLocal16
		setOp, setOp16 = chunk.OpSetLocal, chunk.OpSetLocal16
	default:
		if uv := resolveUpvalue(p.fc, name); uv != -1 {
			if canAssign && p.match(token.Equal) {
				p.expression()
				p.emitOp(chunk.OpSetUpvalue)
				p.emitByte(byte(uv))
				return
			}
			p.emitOp(chunk.OpGetUpvalue)
			p.emitByte(byte(uv))
			return
		}
		slot = p.identifierConstant(name)
		getOp, getOp16 = chunk.OpGetGlobal, chunk.OpGetGlobal16
		setOp, setOp16 = chunk.OpSetGlobal, chunk.OpSetGlobal16
	}

	if canAssign && p.match(token.Equal) {
		p.expression()
		p.emitConstantIndex(setOp, setOp16, slot)
		return
	}
	p.emitConstantIndex(getOp, getOp16, slot)
}

// this_ compiles the `this` keyword as a read of the reserved slot-0
// local, rejecting its use outside a method body.
func (p *Parser) this_(canAssign bool) {
	if p.class == nil {
		p.errorAtPrevious("Can't use 'this' outside of a class.")
		return
	}
	p.variable(false)
}

// super_ compiles `super.method` / `super.method(args)`: it looks up
// `this` and the enclosing class's superclass by name, then either a
// plain OpGetSuper or, when immediately called, the fused OpSuperInvoke
// (SPEC_FULL.md §C.1).
func (p *Parser) super_(canAssign bool) {
	if p.class == nil {
		p.errorAtPrevious("Can't use 'super' outside of a class.")
	} else if !p.class.hasSuperclass {
		p.errorAtPrevious("Can't use 'super' in a class with no superclass.")
	}

	p.consume(token.Dot, "Expect '.' after 'super'.")
	p.consume(token.Identifier, "Expect superclass method name.")
	nameIdx := p.identifierConstant(p.previous.Lexeme)

	p.namedVariable("this", false)
	if p.match(token.LeftParen) {
		argCount := p.argumentList()
		p.namedVariable("super", false)
		p.emitConstantIndex(chunk.OpSuperInvoke, chunk.OpSuperInvoke16, nameIdx)
		p.emitByte(byte(argCount))
		return
	}
	p.namedVariable("super", false)
	p.emitConstantIndex(chunk.OpGetSuper, chunk.OpGetSuper16, nameIdx)
}

// call compiles a '(' args ')' suffix applied to whatever expression is
// already on the stack.
func (p *Parser) call(canAssign bool) {
	argCount := p.argumentList()
	p.emitOp(chunk.OpCall)
	p.emitByte(byte(argCount))
}

// argumentList compiles a comma-separated argument list up to the
// closing ')', enforcing the per-call argument limit (spec §3, "Maximum
// call arguments: 255").
func (p *Parser) argumentList() int {
	count := 0
	if !p.check(token.RightParen) {
		for {
			p.expression()
			if count == maxParams {
				p.errorAtPrevious("Can't have more than 255 arguments.")
			}
			count++
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.consume(token.RightParen, "Expect ')' after arguments.")
	return count
}

// dot compiles '.' property access: a plain get/set, or — when the
// property is immediately called — the fused OpInvoke that saves a
// separate property load before the call (spec §4.2/SPEC_FULL.md §C.1).
func (p *Parser) dot(canAssign bool) {
	p.consume(token.Identifier, "Expect property name after '.'.")
	nameIdx := p.identifierConstant(p.previous.Lexeme)

	switch {
	case canAssign && p.match(token.Equal):
		p.expression()
		p.emitConstantIndex(chunk.OpSetProperty, chunk.OpSetProperty16, nameIdx)
	case p.match(token.LeftParen):
		argCount := p.argumentList()
		p.emitConstantIndex(chunk.OpInvoke, chunk.OpInvoke16, nameIdx)
		p.emitByte(byte(argCount))
	default:
		p.emitConstantIndex(chunk.OpGetProperty, chunk.OpGetProperty16, nameIdx)
	}
}
