package vm

import "github.com/glimmer-lang/glimmer/internal/token"

// declaration parses one top-level-or-block item: a class/fun/var
// declaration or a plain statement. A compile error here drops into
// synchronize() so one bad statement doesn't cascade into a flood of
// follow-on errors.
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
	case p.match(token.Return):
		p.returnStatement()
	case p.match(token.While):
		p.whileStatement()
	case p.match(token.For):
		p.forStatement()
	case p.match(token.LeftBrace):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *Parser) block() {
	for !p.check(token.RightBrace) && !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.RightBrace, "expect '}' after block")
}

func (p *Parser) varDeclaration() {
	global := p.parseVariable("expect variable name")
	if p.match(token.Equal) {
		p.expression()
	} else {
		p.emit(OpNil)
	}
	p.consume(token.Semicolon, "expect ';' after variable declaration")
	p.defineVariable(global)
}

func (p *Parser) expressionStatement() {
	p.expression()
	p.consume(token.Semicolon, "expect ';' after expression")
	p.emit(OpPop)
}

func (p *Parser) printStatement() {
	p.expression()
	p.consume(token.Semicolon, "expect ';' after value")
	p.emit(OpPrint)
}

func (p *Parser) ifStatement() {
	p.consume(token.LeftParen, "expect '(' after 'if'")
	p.expression()
	p.consume(token.RightParen, "expect ')' after condition")

	thenJump := p.emitJump(OpJumpIfFalse)
	p.emit(OpPop)
	p.statement()

	elseJump := p.emitJump(OpJump)
	p.patchJump(thenJump)
	p.emit(OpPop)

	if p.match(token.Else) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *Parser) whileStatement() {
	loopStart := len(p.chunk().Code)
	p.consume(token.LeftParen, "expect '(' after 'while'")
	p.expression()
	p.consume(token.RightParen, "expect ')' after condition")

	exitJump := p.emitJump(OpJumpIfFalse)
	p.emit(OpPop)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emit(OpPop)
}

// forStatement desugars into a while loop: the increment clause is
// compiled once, right after the condition, but reached by jumping
// over it into the body first and looping back into it afterward, so
// it still runs after the body on every iteration.
func (p *Parser) forStatement() {
	p.beginScope()
	p.consume(token.LeftParen, "expect '(' after 'for'")

	switch {
	case p.match(token.Semicolon):
		// no initializer
	case p.match(token.Var):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := len(p.chunk().Code)
	exitJump := -1
	if !p.match(token.Semicolon) {
		p.expression()
		p.consume(token.Semicolon, "expect ';' after loop condition")
		exitJump = p.emitJump(OpJumpIfFalse)
		p.emit(OpPop)
	}

	if !p.match(token.RightParen) {
		bodyJump := p.emitJump(OpJump)
		incrementStart := len(p.chunk().Code)
		p.expression()
		p.emit(OpPop)
		p.consume(token.RightParen, "expect ')' after for clauses")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emit(OpPop)
	}
	p.endScope()
}

func (p *Parser) returnStatement() {
	if p.compiler.fnType == TypeScript {
		p.error("can't return from top-level code")
	}

	if p.match(token.Semicolon) {
		p.emitReturn()
		return
	}

	if p.compiler.fnType == TypeInitializer {
		p.error("can't return a value from an initializer")
	}
	p.expression()
	p.consume(token.Semicolon, "expect ';' after return value")
	p.emit(OpReturn)
}

func (p *Parser) funDeclaration() {
	global := p.parseVariable("expect function name")
	p.markInitialized()
	p.function(TypeFunction)
	p.defineVariable(global)
}

// function compiles a parameter list and body into a fresh nested
// Compiler frame, then emits OP_CLOSURE plus this function's upvalue
// descriptors into the enclosing chunk.
func (p *Parser) function(fnType FunctionType) {
	p.pushCompiler(fnType, p.previous.Lexeme)
	c := p.compiler
	p.beginScope()

	p.consume(token.LeftParen, "expect '(' after function name")
	if !p.check(token.RightParen) {
		for {
			c.function.Arity++
			if c.function.Arity > maxArgs {
				p.errorAtCurrent("can't have more than 255 parameters")
			}
			paramConst := p.parseVariable("expect parameter name")
			p.defineVariable(paramConst)
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.consume(token.RightParen, "expect ')' after parameters")
	p.consume(token.LeftBrace, "expect '{' before function body")
	p.block()

	function := p.endCompiler()
	p.emitClosure(function, c)
}

func (p *Parser) emitClosure(function *ObjFunction, c *Compiler) {
	idx := p.makeConstant(ObjValue(function))
	p.emit2(OpClosure, idx)
	for i := 0; i < function.UpvalueCount; i++ {
		if c.upvalues[i].isLocal {
			p.emitByte(1)
		} else {
			p.emitByte(0)
		}
		p.emitByte(c.upvalues[i].index)
	}
}
