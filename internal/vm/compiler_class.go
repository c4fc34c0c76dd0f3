package vm

import "github.com/glimmer-lang/glimmer/internal/token"

// classDeclaration compiles `class Name [< Super] { methods... }`. The
// superclass scope (binding the local "super") is only opened when a
// superclass is actually present — endScope() would otherwise emit
// OP_CLOSE_UPVALUE/OP_POP against a local that was never declared.
func (p *Parser) classDeclaration() {
	p.consume(token.Identifier, "expect class name")
	className := p.previous
	nameConst := p.identifierConstant(className.Lexeme)
	p.declareVariable()

	p.emit2(OpClass, nameConst)
	p.defineVariable(nameConst)

	classCompiler := &ClassCompiler{enclosing: p.classCompiler}
	p.classCompiler = classCompiler

	if p.match(token.Lesser) {
		p.consume(token.Identifier, "expect superclass name")
		if p.previous.Lexeme == className.Lexeme {
			p.error("a class can't inherit from itself")
		}
		variable(p, false)

		p.beginScope()
		p.addLocal("super")
		p.markInitialized()

		p.namedVariable(className.Lexeme, false)
		p.emit(OpInherit)
		classCompiler.hasSuperclass = true
	}

	p.namedVariable(className.Lexeme, false)

	p.consume(token.LeftBrace, "expect '{' before class body")
	for !p.check(token.RightBrace) && !p.check(token.EOF) {
		p.method()
	}
	p.consume(token.RightBrace, "expect '}' after class body")
	p.emit(OpPop)

	if classCompiler.hasSuperclass {
		p.endScope()
	}
	p.classCompiler = classCompiler.enclosing
}

func (p *Parser) method() {
	p.consume(token.Identifier, "expect method name")
	name := p.previous.Lexeme
	nameConst := p.identifierConstant(name)

	fnType := TypeMethod
	if len(name) == 4 && name == "init" {
		fnType = TypeInitializer
	}
	p.function(fnType)
	p.emit2(OpMethod, nameConst)
}
