package compiler

import "github.com/kristofer/glox/internal/token"

// Precedence levels, low to high, per spec §4.2.
type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssignment
	PrecOr
	PrecAnd
	PrecEquality
	PrecComparison
	PrecTerm
	PrecFactor
	PrecUnary
	PrecCall
	PrecPrimary
)

// parseFn is a prefix or infix parse action: one row of the Pratt table.
// canAssign is threaded through from parsePrecedence and is true only
// when the surrounding expression is allowed to contain a top-level `=`
// (spec §4.2, "a flag can_assign... true exactly when the surrounding
// parse rule permits an =").
type parseFn func(p *Parser, canAssign bool)

type rule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

// rules is the fixed table mapping every token kind to its prefix/infix
// actions and binding precedence (spec §4.2: "every token kind maps to a
// row {prefix, infix, precedence} in a fixed table").
var rules map[token.Kind]rule

func init() {
	rules = map[token.Kind]rule{
		token.LeftParen:    {prefix: (*Parser).grouping, infix: (*Parser).call, precedence: PrecCall},
		token.Dot:          {infix: (*Parser).dot, precedence: PrecCall},
		token.Minus:        {prefix: (*Parser).unary, infix: (*Parser).binary, precedence: PrecTerm},
		token.Plus:         {infix: (*Parser).binary, precedence: PrecTerm},
		token.Slash:        {infix: (*Parser).binary, precedence: PrecFactor},
		token.Star:         {infix: (*Parser).binary, precedence: PrecFactor},
		token.Bang:         {prefix: (*Parser).unary},
		token.BangEqual:    {infix: (*Parser).binary, precedence: PrecEquality},
		token.EqualEqual:   {infix: (*Parser).binary, precedence: PrecEquality},
		token.Greater:      {infix: (*Parser).binary, precedence: PrecComparison},
		token.GreaterEqual: {infix: (*Parser).binary, precedence: PrecComparison},
		token.Less:         {infix: (*Parser).binary, precedence: PrecComparison},
		token.LessEqual:    {infix: (*Parser).binary, precedence: PrecComparison},
		token.Identifier:   {prefix: (*Parser).variable},
		token.String:       {prefix: (*Parser).string},
		token.Number:       {prefix: (*Parser).number},
		token.And:          {infix: (*Parser).and_, precedence: PrecAnd},
		token.Or:           {infix: (*Parser).or_, precedence: PrecOr},
		token.False:        {prefix: (*Parser).literal},
		token.Nil:          {prefix: (*Parser).literal},
		token.True:         {prefix: (*Parser).literal},
		token.This:         {prefix: (*Parser).this_},
		token.Super:        {prefix: (*Parser).super_},
	}
}

func getRule(k token.Kind) rule {
	if r, ok := rules[k]; ok {
		return r
	}
	return rule{}
}

// parsePrecedence is the heart of the Pratt parser (spec §4.2): consume
// one token, run its prefix action (or report an error), then keep
// consuming and running infix actions as long as the next token binds at
// least as tightly as prec.
func (p *Parser) parsePrecedence(prec Precedence) {
	p.advance()
	prefixRule := getRule(p.previous.Kind).prefix
	if prefixRule == nil {
		p.errorAtPrevious("Expect expression.")
		return
	}

	canAssign := prec <= PrecAssignment
	prefixRule(p, canAssign)

	for prec <= getRule(p.current.Kind).precedence {
		p.advance()
		infixRule := getRule(p.previous.Kind).infix
		infixRule(p, canAssign)
	}

	if canAssign && p.match(token.Equal) {
		p.errorAtPrevious("Invalid assignment target.")
	}
}

func (p *Parser) expression() {
	p.parsePrecedence(PrecAssignment)
}
