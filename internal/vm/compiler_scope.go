package vm

import "github.com/glimmer-lang/glimmer/internal/token"

// addLocal declares name as a new local in the current scope, marked
// uninitialized (depth -1) until markInitialized runs.
func (p *Parser) addLocal(name string) {
	c := p.compiler
	if c.localCount >= maxLocals {
		p.error("too many local variables in function")
		return
	}
	c.locals[c.localCount] = Local{name: name, depth: -1}
	c.localCount++
}

// declareVariable binds the identifier just consumed (p.previous) as a
// local, rejecting a duplicate name already declared in this exact
// scope. Globals are not declared here; they are resolved by name at
// use time instead.
func (p *Parser) declareVariable() {
	if p.compiler.scopeDepth == 0 {
		return
	}
	name := p.previous.Lexeme
	c := p.compiler
	for i := c.localCount - 1; i >= 0; i-- {
		local := &c.locals[i]
		if local.depth != -1 && local.depth < c.scopeDepth {
			break
		}
		if local.name == name {
			p.error("already a variable with this name in this scope")
		}
	}
	p.addLocal(name)
}

func (p *Parser) markInitialized() {
	c := p.compiler
	if c.scopeDepth == 0 {
		return
	}
	c.locals[c.localCount-1].depth = c.scopeDepth
}

// resolveLocal scans c's locals from the top down for name, returning its
// slot index or -1. A hit on a local still mid-initialization (depth -1)
// is a compile error: reading a local in its own initializer.
func (p *Parser) resolveLocal(c *Compiler, name string) int {
	for i := c.localCount - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			if c.locals[i].depth == -1 {
				p.error("cannot read local variable in its own initializer")
			}
			return i
		}
	}
	return -1
}

// addUpvalue records that c's function captures the upvalue described by
// (index, isLocal), deduplicating against any upvalue already recorded
// for the same slot.
func (p *Parser) addUpvalue(c *Compiler, index byte, isLocal bool) int {
	count := c.upvalueCount
	for i := 0; i < count; i++ {
		up := &c.upvalues[i]
		if int(up.index) == int(index) && up.isLocal == isLocal {
			return i
		}
	}
	if count >= maxUpvalues {
		p.error("too many closure variables in function")
		return 0
	}
	c.upvalues[count] = Upvalue{index: index, isLocal: isLocal}
	c.function.UpvalueCount++
	c.upvalueCount++
	return count
}

// resolveUpvalue resolves name as a capture from an enclosing function,
// recursing outward and marking the captured local at whatever depth it
// lives so the VM knows to close it when its frame returns.
func (p *Parser) resolveUpvalue(c *Compiler, name string) int {
	if c.enclosing == nil {
		return -1
	}
	if local := p.resolveLocal(c.enclosing, name); local != -1 {
		c.enclosing.locals[local].isCaptured = true
		return p.addUpvalue(c, byte(local), true)
	}
	if up := p.resolveUpvalue(c.enclosing, name); up != -1 {
		return p.addUpvalue(c, byte(up), false)
	}
	return -1
}

// parseVariable consumes an identifier, declares it if local, and
// returns the constant-pool index of its name string (for globals; 0 is
// meaningless for locals and ignored by defineVariable).
func (p *Parser) parseVariable(message string) byte {
	p.consume(token.Identifier, message)
	p.declareVariable()
	if p.compiler.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(p.previous.Lexeme)
}

func (p *Parser) identifierConstant(name string) byte {
	return p.makeConstant(ObjValue(p.vm.internString(name)))
}

func (p *Parser) defineVariable(global byte) {
	if p.compiler.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emit2(OpDefineGlobal, global)
}
