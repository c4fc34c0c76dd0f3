package vm

import "github.com/glimmer-lang/glimmer/internal/token"

// Precedence orders binding strength from loosest to tightest; binary
// infix parsing always recurses at precedence+1 so operators of equal
// precedence associate left.
type Precedence uint8

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

// parseFn is a Pratt parsing function: either a prefix handler (called
// with the just-consumed token in p.previous) or an infix handler
// (called with the left-hand operand already emitted).
type parseFn func(p *Parser, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

// rules is the fixed prefix/infix/precedence table driving
// parsePrecedence, indexed by token.Type.
var rules [int(token.EOF) + 1]parseRule

func rule(t token.Type, prefix, infix parseFn, prec Precedence) {
	rules[int(t)] = parseRule{prefix: prefix, infix: infix, precedence: prec}
}

func init() {
	rule(token.LeftParen, grouping, call, PrecCall)
	rule(token.Dot, nil, dot, PrecCall)
	rule(token.Minus, unary, binary, PrecTerm)
	rule(token.Plus, nil, binary, PrecTerm)
	rule(token.Slash, nil, binary, PrecFactor)
	rule(token.Star, nil, binary, PrecFactor)
	rule(token.Bang, unary, nil, PrecNone)
	rule(token.BangEqual, nil, binary, PrecEquality)
	rule(token.EqualEqual, nil, binary, PrecEquality)
	rule(token.Greater, nil, binary, PrecComparison)
	rule(token.GreaterEqual, nil, binary, PrecComparison)
	rule(token.Lesser, nil, binary, PrecComparison)
	rule(token.LesserEqual, nil, binary, PrecComparison)
	rule(token.Identifier, variable, nil, PrecNone)
	rule(token.String, stringLiteral, nil, PrecNone)
	rule(token.Number, number, nil, PrecNone)
	rule(token.And, nil, and_, PrecAnd)
	rule(token.Or, nil, or_, PrecOr)
	rule(token.False, literal, nil, PrecNone)
	rule(token.Nil, literal, nil, PrecNone)
	rule(token.True, literal, nil, PrecNone)
	rule(token.Super, super_, nil, PrecNone)
	rule(token.This, this_, nil, PrecNone)
}

func getRule(t token.Type) *parseRule { return &rules[int(t)] }

// parsePrecedence is the core of the Pratt parser: consume one token,
// dispatch its prefix rule, then keep consuming and dispatching infix
// rules as long as the next token binds at least as tightly as
// minPrec.
func (p *Parser) parsePrecedence(minPrec Precedence) {
	p.advance()
	prefixRule := getRule(p.previous.Type).prefix
	if prefixRule == nil {
		p.error("expect expression")
		return
	}

	canAssign := minPrec <= PrecAssignment
	prefixRule(p, canAssign)

	for minPrec <= getRule(p.current.Type).precedence {
		p.advance()
		infixRule := getRule(p.previous.Type).infix
		infixRule(p, canAssign)
	}

	if canAssign && p.match(token.Equal) {
		p.error("invalid assignment target")
	}
}

func (p *Parser) expression() {
	p.parsePrecedence(PrecAssignment)
}

// argumentList parses a parenthesized, comma-separated expression list
// (already past the opening '(') and returns the argument count.
func (p *Parser) argumentList() byte {
	argCount := 0
	if !p.check(token.RightParen) {
		for {
			p.expression()
			if argCount == maxArgs {
				p.error("can't have more than 255 arguments")
			}
			argCount++
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.consume(token.RightParen, "expect ')' after arguments")
	return byte(argCount)
}
