package compiler

import (
	"lox/internal/scanner"
	"lox/internal/vm"
)

func (c *Compiler) classDeclaration() {
	c.consume(scanner.Identifier, "Expect class name.")
	className := c.previous.Lexeme
	nameConstant := identifierConstant(c, className)
	c.declareVariable(true)

	c.emitOp(vm.OpClass)
	c.emitConstIndex(nameConstant)
	c.defineVariable(nameConstant)

	cs := &classState{enclosing: c.class}
	c.class = cs

	if c.match(scanner.Less) {
		c.consume(scanner.Identifier, "Expect superclass name.")
		c.variable(false) // pushes the superclass value
		if identifiersEqual(c.previous.Lexeme, className) {
			c.error("A class can't inherit from itself.")
		}

		c.beginScope()
		c.addLocal("super", false)
		c.markInitialized()

		c.namedVariable(className, false)
		c.emitOp(vm.OpInherit)
		cs.hasSuperclass = true
	}

	c.namedVariable(className, false)
	c.consume(scanner.LeftBrace, "Expect '{' before class body.")
	for !c.check(scanner.RightBrace) && !c.check(scanner.EOF) {
		c.method()
	}
	c.consume(scanner.RightBrace, "Expect '}' after class body.")
	c.emitOp(vm.OpPop) // the class value pushed for method-table mutation

	if cs.hasSuperclass {
		c.endScope()
	}
	c.class = cs.enclosing
}

func (c *Compiler) method() {
	c.consume(scanner.Identifier, "Expect method name.")
	name := c.previous.Lexeme
	constant := identifierConstant(c, name)

	fnType := typeMethod
	if name == "init" {
		fnType = typeInitializer
	}
	c.function_(fnType)
	c.emitOp(vm.OpMethod)
	c.emitConstIndex(constant)
}
