package compiler

import (
	"lox/internal/scanner"
	"lox/internal/vm"
)

// namedVariable emits the get (and, if canAssign and an '=' follows, set)
// sequence for an identifier, resolving it as a local, then an upvalue,
// then finally a global.
func (c *Compiler) namedVariable(name string, canAssign bool) {
	getOp, setOp, arg, mutable := c.resolveVariable(name)

	if canAssign && c.match(scanner.Equal) {
		if !mutable {
			c.error("Attempted to mutate a final variable.")
		}
		c.expression()
		c.emitOp(setOp)
		c.emitConstIndex(arg)
		return
	}
	c.emitOp(getOp)
	c.emitConstIndex(arg)
}

// namedVariableGet is namedVariable without assignment, used for
// synthetic references like "this" and "super" that a user can never
// assign to.
func (c *Compiler) namedVariableGet(name string) {
	getOp, _, arg, _ := c.resolveVariable(name)
	c.emitOp(getOp)
	c.emitConstIndex(arg)
}

func (c *Compiler) resolveVariable(name string) (getOp, setOp vm.OpCode, arg int, mutable bool) {
	if slot := c.resolveLocal(c, name); slot != -1 {
		return vm.OpGetLocal, vm.OpSetLocal, slot, c.locals[slot].mutable
	}
	if slot := c.resolveUpvalue(c, name); slot != -1 {
		return vm.OpGetUpvalue, vm.OpSetUpvalue, slot, true
	}
	arg = identifierConstant(c, name)
	mutable = true
	if m, ok := c.rootGlobalMutability()[name]; ok {
		mutable = m
	}
	return vm.OpGetGlobal, vm.OpSetGlobal, arg, mutable
}

func (c *Compiler) rootGlobalMutability() map[string]bool {
	root := c
	for root.enclosing != nil {
		root = root.enclosing
	}
	return root.globalMutability
}

// resolveLocal walks locals from newest to oldest, allowing shadowing.
// Reading a local mid-initialization (depth == -1) is a compile error.
func (c *Compiler) resolveLocal(target *Compiler, name string) int {
	for i := len(target.locals) - 1; i >= 0; i-- {
		if identifiersEqual(target.locals[i].name, name) {
			if target.locals[i].depth == -1 {
				c.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue recurses into the enclosing compiler: if name resolves
// there as a local, that local is marked captured and an is-local
// upvalue is recorded; if it resolves there as an upvalue, the chain
// continues. Each resolved upvalue is deduplicated by (index, isLocal).
func (c *Compiler) resolveUpvalue(target *Compiler, name string) int {
	if target.enclosing == nil {
		return -1
	}
	if local := c.resolveLocal(target.enclosing, name); local != -1 {
		target.enclosing.locals[local].captured = true
		return target.addUpvalue(local, true)
	}
	if up := c.resolveUpvalue(target.enclosing, name); up != -1 {
		return target.addUpvalue(up, false)
	}
	return -1
}

func (c *Compiler) addUpvalue(index int, isLocal bool) int {
	for i, uv := range c.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(c.upvalues) == 256 {
		c.error("Too many closure variables in function.")
		return 0
	}
	c.upvalues = append(c.upvalues, upvalueRef{index: index, isLocal: isLocal})
	c.function.UpvalueCount = len(c.upvalues)
	return len(c.upvalues) - 1
}

// ---- declaration helpers shared by var/final/fun/params ----

func (c *Compiler) declareVariable(mutable bool) {
	if c.scopeDepth == 0 {
		return
	}
	name := c.previous.Lexeme
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].depth != -1 && c.locals[i].depth < c.scopeDepth {
			break
		}
		if identifiersEqual(c.locals[i].name, name) {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name, mutable)
}

func (c *Compiler) addLocal(name string, mutable bool) {
	if len(c.locals) >= 256 {
		c.error("Too many local variables in function.")
		return
	}
	c.locals = append(c.locals, local{name: name, depth: -1, mutable: mutable})
}

// parseVariable consumes an identifier and, for globals, returns its
// constant-pool index; for locals it declares the variable and the
// returned index is unused by the caller. Always returns the
// constant-pool index (never an implicit 0), per spec.md §9's note on a
// historical bug.
func (c *Compiler) parseVariable(errMsg string, mutable bool) int {
	c.consume(scanner.Identifier, errMsg)
	c.declareVariable(mutable)
	name := c.previous.Lexeme
	if c.scopeDepth == 0 {
		c.rootGlobalMutability()[name] = mutable
	}
	return identifierConstant(c, name)
}

func (c *Compiler) markInitialized() {
	if c.scopeDepth == 0 {
		return
	}
	c.locals[len(c.locals)-1].depth = c.scopeDepth
}

func (c *Compiler) defineVariable(global int) {
	if c.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOp(vm.OpDefineGlobal)
	c.emitConstIndex(global)
}
