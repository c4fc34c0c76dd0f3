package vm

import (
	"strconv"

	"github.com/glimmer-lang/glimmer/internal/token"
)

func number(p *Parser, canAssign bool) {
	v, _ := strconv.ParseFloat(p.previous.Lexeme, 64)
	p.emitConstant(NumberValue(v))
}

// stringLiteral strips the surrounding quotes from the lexeme and
// interns the remaining bytes verbatim — the scanner recognizes no
// escape sequences (§4.1), so none are unescaped here.
func stringLiteral(p *Parser, canAssign bool) {
	lex := p.previous.Lexeme
	chars := lex[1 : len(lex)-1]
	p.emitConstant(ObjValue(p.vm.internString(chars)))
}

func literal(p *Parser, canAssign bool) {
	switch p.previous.Type {
	case token.False:
		p.emit(OpFalse)
	case token.Nil:
		p.emit(OpNil)
	case token.True:
		p.emit(OpTrue)
	}
}

func grouping(p *Parser, canAssign bool) {
	p.expression()
	p.consume(token.RightParen, "expect ')' after expression")
}

func unary(p *Parser, canAssign bool) {
	opType := p.previous.Type
	p.parsePrecedence(PrecUnary)
	switch opType {
	case token.Bang:
		p.emit(OpNot)
	case token.Minus:
		p.emit(OpNegate)
	}
}

func binary(p *Parser, canAssign bool) {
	opType := p.previous.Type
	r := getRule(opType)
	p.parsePrecedence(r.precedence + 1)
	switch opType {
	case token.BangEqual:
		p.emit(OpEqual)
		p.emit(OpNot)
	case token.EqualEqual:
		p.emit(OpEqual)
	case token.Greater:
		p.emit(OpGreater)
	case token.GreaterEqual:
		p.emit(OpLesser)
		p.emit(OpNot)
	case token.Lesser:
		p.emit(OpLesser)
	case token.LesserEqual:
		p.emit(OpGreater)
		p.emit(OpNot)
	case token.Plus:
		p.emit(OpAdd)
	case token.Minus:
		p.emit(OpSubtract)
	case token.Star:
		p.emit(OpMultiply)
	case token.Slash:
		p.emit(OpDivide)
	}
}

func and_(p *Parser, canAssign bool) {
	endJump := p.emitJump(OpJumpIfFalse)
	p.emit(OpPop)
	p.parsePrecedence(PrecAnd)
	p.patchJump(endJump)
}

func or_(p *Parser, canAssign bool) {
	elseJump := p.emitJump(OpJumpIfFalse)
	endJump := p.emitJump(OpJump)
	p.patchJump(elseJump)
	p.emit(OpPop)
	p.parsePrecedence(PrecOr)
	p.patchJump(endJump)
}

func call(p *Parser, canAssign bool) {
	argCount := p.argumentList()
	p.emit2(OpCall, argCount)
}

func dot(p *Parser, canAssign bool) {
	p.consume(token.Identifier, "expect property name after '.'")
	name := p.identifierConstant(p.previous.Lexeme)

	switch {
	case canAssign && p.match(token.Equal):
		p.expression()
		p.emit2(OpSetProperty, name)
	case p.match(token.LeftParen):
		argCount := p.argumentList()
		p.emit2(OpInvoke, name)
		p.emitByte(argCount)
	default:
		p.emit2(OpGetProperty, name)
	}
}

// variable resolves an identifier reference: local, then upvalue, then
// global, emitting the matching GET_* or, if an assignment follows and
// canAssign holds, SET_* instruction.
func variable(p *Parser, canAssign bool) {
	p.namedVariable(p.previous.Lexeme, canAssign)
}

func (p *Parser) namedVariable(name string, canAssign bool) {
	var getOp, setOp Opcode
	var arg byte

	if idx := p.resolveLocal(p.compiler, name); idx != -1 {
		arg, getOp, setOp = byte(idx), OpGetLocal, OpSetLocal
	} else if idx := p.resolveUpvalue(p.compiler, name); idx != -1 {
		arg, getOp, setOp = byte(idx), OpGetUpvalue, OpSetUpvalue
	} else {
		arg, getOp, setOp = p.identifierConstant(name), OpGetGlobal, OpSetGlobal
	}

	if canAssign && p.match(token.Equal) {
		p.expression()
		p.emit2(setOp, arg)
	} else {
		p.emit2(getOp, arg)
	}
}

func this_(p *Parser, canAssign bool) {
	if p.classCompiler == nil {
		p.error("can't use 'this' outside of a class")
		return
	}
	variable(p, false)
}

func super_(p *Parser, canAssign bool) {
	if p.classCompiler == nil {
		p.error("can't use 'super' outside of a class")
	} else if !p.classCompiler.hasSuperclass {
		p.error("can't use 'super' in a class with no superclass")
	}

	p.consume(token.Dot, "expect '.' after 'super'")
	p.consume(token.Identifier, "expect superclass method name")
	name := p.identifierConstant(p.previous.Lexeme)

	p.namedVariable("this", false)
	if p.match(token.LeftParen) {
		argCount := p.argumentList()
		p.namedVariable("super", false)
		p.emit2(OpSuperInvoke, name)
		p.emitByte(argCount)
	} else {
		p.namedVariable("super", false)
		p.emit2(OpGetSuper, name)
	}
}
