package vm

import (
	"fmt"
	"os"

	"github.com/glimmer-lang/glimmer/internal/scanner"
	"github.com/glimmer-lang/glimmer/internal/token"
)

// FunctionType distinguishes the kind of function body currently being
// compiled, which changes how slot 0 and `return` are handled.
type FunctionType uint8

const (
	TypeScript FunctionType = iota
	TypeFunction
	TypeMethod
	TypeInitializer
)

// Local is a compile-time record of a stack slot bound to a name.
// Depth == -1 means the local has been declared but not yet initialized
// (its own initializer expression is still compiling).
type Local struct {
	name       string
	depth      int
	isCaptured bool
}

// Upvalue is a compile-time record of a variable a function captures
// from an enclosing scope.
type Upvalue struct {
	index   uint8
	isLocal bool
}

const maxLocals = 256
const maxUpvalues = 256
const maxArgs = 255

// Compiler holds per-function compile state. Each nested function
// compilation pushes a new Compiler onto the chain via enclosing; the
// chain doubles as a GC root path while code objects are still under
// construction (see VM.markRoots).
type Compiler struct {
	enclosing *Compiler
	function  *ObjFunction
	fnType    FunctionType

	locals     [maxLocals]Local
	localCount int

	upvalues     [maxUpvalues]Upvalue
	upvalueCount int

	scopeDepth int
}

// ClassCompiler tracks the class currently being compiled, so `this` and
// `super` expressions can be validated and so classDeclaration knows
// whether a superclass scope needs closing.
type ClassCompiler struct {
	enclosing     *ClassCompiler
	hasSuperclass bool
}

// Parser drives a one-token-lookahead Pratt parser directly into the
// current Compiler's chunk.
type Parser struct {
	vm        *VM
	scan      *scanner.Scanner
	current   token.Token
	previous  token.Token
	hadError  bool
	panicMode bool

	compiler      *Compiler
	classCompiler *ClassCompiler
}

// Compile compiles source into a top-level ObjFunction (the implicit
// "script" function), or returns ok=false if any compile error occurred.
func Compile(vm *VM, source string) (*ObjFunction, bool) {
	p := &Parser{vm: vm, scan: scanner.New(source)}
	p.pushCompiler(TypeScript, "")
	vm.currentCompiler = p.compiler

	p.advance()
	for !p.match(token.EOF) {
		p.declaration()
	}

	function := p.endCompiler()
	return function, !p.hadError
}

func (p *Parser) pushCompiler(fnType FunctionType, name string) {
	c := &Compiler{enclosing: p.compiler, fnType: fnType, scopeDepth: 0}
	c.function = p.vm.newFunction()
	p.compiler = c
	p.vm.currentCompiler = c
	if name != "" {
		c.function.Name = p.vm.internString(name)
	}

	// Slot 0 is reserved: "" for scripts/functions, "this" for methods.
	local := &c.locals[0]
	c.localCount = 1
	if fnType == TypeMethod || fnType == TypeInitializer {
		local.name = "this"
	} else {
		local.name = ""
	}
	local.depth = 0
}

func (p *Parser) endCompiler() *ObjFunction {
	p.emitReturn()
	function := p.compiler.function
	p.compiler = p.compiler.enclosing
	p.vm.currentCompiler = p.compiler
	return function
}

// --- token stream -----------------------------------------------------

func (p *Parser) advance() {
	p.previous = p.current
	for {
		p.current = p.scan.NextToken()
		if p.current.Type != token.Error {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *Parser) check(t token.Type) bool {
	return p.current.Type == t
}

func (p *Parser) match(t token.Type) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(t token.Type, message string) {
	if p.current.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(message)
}

// --- error reporting ----------------------------------------------------

func (p *Parser) errorAt(tok token.Token, message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true

	if tok.Type == token.EOF {
		fmt.Fprintf(os.Stderr, "[line %d] error at end: %s\n", tok.Line, message)
	} else {
		fmt.Fprintf(os.Stderr, "[line %d] error at '%s': %s\n", tok.Line, tok.Lexeme, message)
	}
}

func (p *Parser) error(message string)        { p.errorAt(p.previous, message) }
func (p *Parser) errorAtCurrent(message string) { p.errorAt(p.current, message) }

// synchronize skips tokens until a likely statement boundary, so a single
// parse error doesn't cascade into a flood of spurious follow-on errors.
func (p *Parser) synchronize() {
	p.panicMode = false
	for p.current.Type != token.EOF {
		if p.previous.Type == token.Semicolon {
			return
		}
		switch p.current.Type {
		case token.Class, token.Fun, token.Var, token.For,
			token.If, token.While, token.Print, token.Return:
			return
		}
		p.advance()
	}
}

// --- emission -----------------------------------------------------------

func (p *Parser) chunk() *Chunk { return p.compiler.function.Chunk }

func (p *Parser) emitByte(b byte) {
	p.chunk().Write(b, p.previous.Line)
}

func (p *Parser) emit(op Opcode) {
	p.chunk().WriteOp(op, p.previous.Line)
}

func (p *Parser) emit2(op Opcode, operand byte) {
	p.emit(op)
	p.emitByte(operand)
}

func (p *Parser) emitReturn() {
	if p.compiler.fnType == TypeInitializer {
		p.emit2(OpGetLocal, 0)
	} else {
		p.emit(OpNil)
	}
	p.emit(OpReturn)
}

// makeConstant adds value to the current chunk's constant pool, erroring
// if the 256-constant-per-chunk budget (one-byte operand) is exceeded.
func (p *Parser) makeConstant(value Value) byte {
	idx := p.chunk().AddConstant(value)
	if idx > 255 {
		p.error("too many constants in one chunk")
		return 0
	}
	return byte(idx)
}

func (p *Parser) emitConstant(value Value) {
	p.emit2(OpConstant, p.makeConstant(value))
}

// emitJump writes op followed by a two-byte placeholder and returns the
// offset of the placeholder, to be filled in later by patchJump.
func (p *Parser) emitJump(op Opcode) int {
	p.emit(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.chunk().Code) - 2
}

func (p *Parser) patchJump(offset int) {
	jump := len(p.chunk().Code) - offset - 2
	if jump > 65535 {
		p.error("too much code to jump over")
	}
	p.chunk().Code[offset] = byte(jump >> 8)
	p.chunk().Code[offset+1] = byte(jump)
}

func (p *Parser) emitLoop(loopStart int) {
	p.emit(OpLoop)
	offset := len(p.chunk().Code) - loopStart + 2
	if offset > 65535 {
		p.error("loop body too large")
	}
	p.emitByte(byte(offset >> 8))
	p.emitByte(byte(offset))
}

// --- scopes ---------------------------------------------------------------

func (p *Parser) beginScope() { p.compiler.scopeDepth++ }

func (p *Parser) endScope() {
	c := p.compiler
	c.scopeDepth--
	for c.localCount > 0 && c.locals[c.localCount-1].depth > c.scopeDepth {
		if c.locals[c.localCount-1].isCaptured {
			p.emit(OpCloseUpvalue)
		} else {
			p.emit(OpPop)
		}
		c.localCount--
	}
}
