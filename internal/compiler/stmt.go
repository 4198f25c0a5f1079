package compiler

import (
	"lox/internal/scanner"
	"lox/internal/vm"
)

func (c *Compiler) declaration() {
	switch {
	case c.match(scanner.Class):
		c.classDeclaration()
	case c.match(scanner.Fun):
		c.funDeclaration()
	case c.match(scanner.Var):
		c.varDeclaration(true)
	case c.match(scanner.Final):
		c.varDeclaration(false)
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) varDeclaration(mutable bool) {
	global := c.parseVariable("Expect variable name.", mutable)

	if c.match(scanner.Equal) {
		c.expression()
	} else {
		if !mutable {
			c.error("Final variable declaration requires an initializer.")
		}
		c.emitOp(vm.OpNil)
	}
	c.consume(scanner.Semicolon, "Expect ';' after variable declaration.")
	c.defineVariable(global)
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.", true)
	c.markInitialized()
	c.function_(typeFunction)
	c.defineVariable(global)
}

// function_ compiles a nested function literal in a fresh Compiler,
// emitting CLOSURE with one (isLocal, index) pair per captured upvalue.
func (c *Compiler) function_(fnType funcType) {
	inner := newCompiler(c.vmachine, c, fnType)
	inner.function.Name = c.vmachine.InternString(c.previous.Lexeme)
	inner.beginScope()

	inner.consume(scanner.LeftParen, "Expect '(' after function name.")
	if !inner.check(scanner.RightParen) {
		for {
			inner.function.Arity++
			if inner.function.Arity > 255 {
				inner.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := inner.parseVariable("Expect parameter name.", true)
			inner.defineVariable(constant)
			if !inner.match(scanner.Comma) {
				break
			}
		}
	}
	inner.consume(scanner.RightParen, "Expect ')' after parameters.")
	inner.consume(scanner.LeftBrace, "Expect '{' before function body.")
	inner.block()

	fn := inner.endCompiler()
	c.current = inner.current
	c.previous = inner.previous
	c.panicMode = inner.panicMode
	c.hadError = c.hadError || inner.hadError

	c.emitClosure(fn, inner.upvalues)
}

// emitClosure emits CLOSURE <fn-idx:1> followed by one (isLocal, index)
// pair per captured upvalue. Unlike plain constants, CLOSURE's operand is
// always a single byte (spec.md §4.4 gives it no long form), so the
// function is added to the pool directly rather than through
// emitConstant's long-index fallback.
func (c *Compiler) emitClosure(fn *vm.ObjFunction, upvalues []upvalueRef) {
	idx := c.currentChunk().AddConstant(vm.ObjVal(fn))
	if idx > 255 {
		c.error("Too many constants in one chunk.")
		idx = 0
	}
	c.emitOp(vm.OpClosure)
	c.emitByte(byte(idx))
	for _, uv := range upvalues {
		if uv.isLocal {
			c.emitByte(1)
		} else {
			c.emitByte(0)
		}
		c.emitByte(byte(uv.index))
	}
}

func (c *Compiler) block() {
	for !c.check(scanner.RightBrace) && !c.check(scanner.EOF) {
		c.declaration()
	}
	c.consume(scanner.RightBrace, "Expect '}' after block.")
}

func (c *Compiler) statement() {
	switch {
	case c.match(scanner.Print):
		c.printStatement()
	case c.match(scanner.If):
		c.ifStatement()
	case c.match(scanner.Return):
		c.returnStatement()
	case c.match(scanner.While):
		c.whileStatement()
	case c.match(scanner.For):
		c.forStatement()
	case c.match(scanner.Switch):
		c.switchStatement()
	case c.match(scanner.Break):
		c.breakStatement()
	case c.match(scanner.Continue):
		c.continueStatement()
	case c.match(scanner.LeftBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(scanner.Semicolon, "Expect ';' after value.")
	c.emitOp(vm.OpPrint)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(scanner.Semicolon, "Expect ';' after expression.")
	c.emitOp(vm.OpPop)
}

func (c *Compiler) returnStatement() {
	if c.fnType == typeScript {
		c.error("Can't return from top-level code.")
	}
	if c.match(scanner.Semicolon) {
		c.emitReturn()
		return
	}
	if c.fnType == typeInitializer {
		c.error("Can't return a value from an initializer.")
	}
	c.expression()
	c.consume(scanner.Semicolon, "Expect ';' after return value.")
	c.emitOp(vm.OpReturn)
}

func (c *Compiler) ifStatement() {
	c.consume(scanner.LeftParen, "Expect '(' after 'if'.")
	c.expression()
	c.consume(scanner.RightParen, "Expect ')' after condition.")

	thenJump := c.emitJump(vm.OpJumpIfFalse)
	c.emitOp(vm.OpPop)
	c.statement()

	elseJump := c.emitJump(vm.OpJump)
	c.patchJump(thenJump)
	c.emitOp(vm.OpPop)

	if c.match(scanner.Else) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) pushLoop() *loopState {
	l := &loopState{enclosing: c.loop}
	c.loop = l
	return l
}

func (c *Compiler) popLoop() {
	c.loop = c.loop.enclosing
}

func (c *Compiler) patchBreaks(l *loopState) {
	for _, off := range l.breakJumps {
		c.patchJump(off)
	}
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.currentChunk().Code)
	l := c.pushLoop()
	l.continueOffset = loopStart

	c.consume(scanner.LeftParen, "Expect '(' after 'while'.")
	c.expression()
	c.consume(scanner.RightParen, "Expect ')' after condition.")

	exitJump := c.emitJump(vm.OpJumpIfFalse)
	c.emitOp(vm.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(vm.OpPop)
	c.patchBreaks(l)
	c.popLoop()
}

func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(scanner.LeftParen, "Expect '(' after 'for'.")

	switch {
	case c.match(scanner.Semicolon):
		// no initializer
	case c.match(scanner.Var):
		c.varDeclaration(true)
	case c.match(scanner.Final):
		c.varDeclaration(false)
	default:
		c.expressionStatement()
	}

	loopStart := len(c.currentChunk().Code)
	l := c.pushLoop()
	exitJump := -1
	if !c.match(scanner.Semicolon) {
		c.expression()
		c.consume(scanner.Semicolon, "Expect ';' after loop condition.")
		exitJump = c.emitJump(vm.OpJumpIfFalse)
		c.emitOp(vm.OpPop)
	}

	if !c.match(scanner.RightParen) {
		bodyJump := c.emitJump(vm.OpJump)
		incrementStart := len(c.currentChunk().Code)
		c.expression()
		c.emitOp(vm.OpPop)
		c.consume(scanner.RightParen, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}
	l.continueOffset = loopStart

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(vm.OpPop)
	}
	c.patchBreaks(l)
	c.popLoop()
	c.endScope()
}

// switchStatement evaluates the subject once, then chains per-case
// EQUAL_PRESERVE + JUMP_IF_FALSE comparisons so the subject survives to
// the next case; a matched body pops both the comparison result and the
// subject before running, then jumps to a shared exit.
func (c *Compiler) switchStatement() {
	c.consume(scanner.LeftParen, "Expect '(' after 'switch'.")
	c.expression()
	c.consume(scanner.RightParen, "Expect ')' after switch subject.")
	c.consume(scanner.LeftBrace, "Expect '{' before switch body.")

	l := c.pushLoop() // break targets the switch's exit; no continue target of its own
	l.isSwitch = true
	var endJumps []int
	sawDefault := false

	for c.check(scanner.Case) || c.check(scanner.Default) {
		if c.match(scanner.Case) {
			c.expression()
			c.consume(scanner.Colon, "Expect ':' after case value.")
			c.emitOp(vm.OpEqualPreserve)
			bodyJump := c.emitJump(vm.OpJumpIfFalse)
			c.emitOp(vm.OpPop) // comparison result
			c.emitOp(vm.OpPop) // subject
			for !c.check(scanner.Case) && !c.check(scanner.Default) && !c.check(scanner.RightBrace) {
				c.statement()
			}
			endJumps = append(endJumps, c.emitJump(vm.OpJump))
			c.patchJump(bodyJump)
			c.emitOp(vm.OpPop) // comparison result (fallthrough to next case)
		} else {
			c.consume(scanner.Default, "")
			c.consume(scanner.Colon, "Expect ':' after 'default'.")
			sawDefault = true
			c.emitOp(vm.OpPop) // subject
			for !c.check(scanner.Case) && !c.check(scanner.Default) && !c.check(scanner.RightBrace) {
				c.statement()
			}
			endJumps = append(endJumps, c.emitJump(vm.OpJump))
		}
	}
	if !sawDefault {
		c.emitOp(vm.OpPop) // subject, if no case matched and no default ran
	}
	c.consume(scanner.RightBrace, "Expect '}' after switch body.")

	for _, j := range endJumps {
		c.patchJump(j)
	}
	c.patchBreaks(l)
	c.popLoop()
}

func (c *Compiler) breakStatement() {
	if c.loop == nil {
		c.error("Can't use 'break' outside of a loop or switch.")
		c.consume(scanner.Semicolon, "Expect ';' after 'break'.")
		return
	}
	c.consume(scanner.Semicolon, "Expect ';' after 'break'.")
	off := c.emitJump(vm.OpJump)
	c.loop.breakJumps = append(c.loop.breakJumps, off)
}

// continueStatement resolves against the nearest enclosing real loop,
// walking past any switch frames in between: a switch has a break target
// (its exit) but no continue target of its own, so `continue` inside a
// case body must reach through to the loop that contains the switch.
func (c *Compiler) continueStatement() {
	target := c.loop
	for target != nil && target.isSwitch {
		target = target.enclosing
	}
	if target == nil {
		c.error("Can't use 'continue' outside of a loop.")
		c.consume(scanner.Semicolon, "Expect ';' after 'continue'.")
		return
	}
	c.consume(scanner.Semicolon, "Expect ';' after 'continue'.")
	c.emitLoop(target.continueOffset)
}
