package compiler

import (
	"lox/internal/scanner"
	"lox/internal/vm"
)

type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssign                // =
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * /
	PrecUnary                 // ! -
	PrecCall                  // . ()
	PrecPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

var rules map[scanner.Kind]parseRule

func init() {
	rules = map[scanner.Kind]parseRule{
		scanner.LeftParen:    {prefix: (*Compiler).grouping, infix: (*Compiler).call, precedence: PrecCall},
		scanner.Dot:          {infix: (*Compiler).dot, precedence: PrecCall},
		scanner.Minus:        {prefix: (*Compiler).unary, infix: (*Compiler).binary, precedence: PrecTerm},
		scanner.Plus:         {infix: (*Compiler).binary, precedence: PrecTerm},
		scanner.Slash:        {infix: (*Compiler).binary, precedence: PrecFactor},
		scanner.Star:         {infix: (*Compiler).binary, precedence: PrecFactor},
		scanner.Bang:         {prefix: (*Compiler).unary},
		scanner.BangEqual:    {infix: (*Compiler).binary, precedence: PrecEquality},
		scanner.EqualEqual:   {infix: (*Compiler).binary, precedence: PrecEquality},
		scanner.Greater:      {infix: (*Compiler).binary, precedence: PrecComparison},
		scanner.GreaterEqual: {infix: (*Compiler).binary, precedence: PrecComparison},
		scanner.Less:         {infix: (*Compiler).binary, precedence: PrecComparison},
		scanner.LessEqual:    {infix: (*Compiler).binary, precedence: PrecComparison},
		scanner.Identifier:   {prefix: (*Compiler).variable},
		scanner.String:       {prefix: (*Compiler).stringLit},
		scanner.Number:       {prefix: (*Compiler).number},
		scanner.And:          {infix: (*Compiler).and_, precedence: PrecAnd},
		scanner.False:        {prefix: (*Compiler).literal},
		scanner.Nil:          {prefix: (*Compiler).literal},
		scanner.Or:           {infix: (*Compiler).or_, precedence: PrecOr},
		scanner.Super:        {prefix: (*Compiler).super_},
		scanner.This:         {prefix: (*Compiler).this_},
		scanner.True:         {prefix: (*Compiler).literal},
	}
}

func getRule(kind scanner.Kind) parseRule { return rules[kind] }

func (c *Compiler) parsePrecedence(prec Precedence) {
	c.advance()
	rule := getRule(c.previous.Kind)
	if rule.prefix == nil {
		c.error("Expect expression.")
		return
	}
	canAssign := prec <= PrecAssign
	rule.prefix(c, canAssign)

	for prec <= getRule(c.current.Kind).precedence {
		c.advance()
		infix := getRule(c.previous.Kind).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(scanner.Equal) {
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) expression() { c.parsePrecedence(PrecAssign) }

func (c *Compiler) number(canAssign bool) {
	c.emitConstant(vm.NumberVal(parseNumber(c.previous.Lexeme)))
}

func (c *Compiler) stringLit(canAssign bool) {
	raw := c.previous.Lexeme
	text := raw[1 : len(raw)-1] // strip quotes; no escape processing
	c.emitConstant(vm.ObjVal(c.vmachine.InternString(text)))
}

func (c *Compiler) literal(canAssign bool) {
	switch c.previous.Kind {
	case scanner.False:
		c.emitOp(vm.OpFalse)
	case scanner.Nil:
		c.emitOp(vm.OpNil)
	case scanner.True:
		c.emitOp(vm.OpTrue)
	}
}

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.consume(scanner.RightParen, "Expect ')' after expression.")
}

func (c *Compiler) unary(canAssign bool) {
	opKind := c.previous.Kind
	c.parsePrecedence(PrecUnary)
	switch opKind {
	case scanner.Bang:
		c.emitOp(vm.OpNot)
	case scanner.Minus:
		c.emitOp(vm.OpNegate)
	}
}

func (c *Compiler) binary(canAssign bool) {
	opKind := c.previous.Kind
	rule := getRule(opKind)
	c.parsePrecedence(rule.precedence + 1)

	switch opKind {
	case scanner.BangEqual:
		c.emitOps(vm.OpEqual, vm.OpNot)
	case scanner.EqualEqual:
		c.emitOp(vm.OpEqual)
	case scanner.Greater:
		c.emitOp(vm.OpGreater)
	case scanner.GreaterEqual:
		c.emitOps(vm.OpLess, vm.OpNot)
	case scanner.Less:
		c.emitOp(vm.OpLess)
	case scanner.LessEqual:
		c.emitOps(vm.OpGreater, vm.OpNot)
	case scanner.Plus:
		c.emitOp(vm.OpAdd)
	case scanner.Minus:
		c.emitOp(vm.OpSubtract)
	case scanner.Star:
		c.emitOp(vm.OpMultiply)
	case scanner.Slash:
		c.emitOp(vm.OpDivide)
	}
}

func (c *Compiler) call(canAssign bool) {
	argCount := c.argumentList()
	c.emitOp(vm.OpCall)
	c.emitByte(byte(argCount))
}

func (c *Compiler) argumentList() int {
	count := 0
	if !c.check(scanner.RightParen) {
		for {
			c.expression()
			if count == 255 {
				c.error("Can't have more than 255 arguments.")
			}
			count++
			if !c.match(scanner.Comma) {
				break
			}
		}
	}
	c.consume(scanner.RightParen, "Expect ')' after arguments.")
	return count
}

func (c *Compiler) dot(canAssign bool) {
	c.consume(scanner.Identifier, "Expect property name after '.'.")
	name := identifierConstant(c, c.previous.Lexeme)

	switch {
	case canAssign && c.match(scanner.Equal):
		c.expression()
		c.emitOp(vm.OpSetProperty)
		c.emitConstIndex(name)
	case c.match(scanner.LeftParen):
		argCount := c.argumentList()
		c.emitOp(vm.OpInvoke)
		c.emitConstIndex(name)
		c.emitByte(byte(argCount))
	default:
		c.emitOp(vm.OpGetProperty)
		c.emitConstIndex(name)
	}
}

// emitConstIndex writes a single one-byte operand: a name index already
// resolved via identifierConstant (rather than through emitConstant's own
// pool lookup), or a local/upvalue slot number from resolveVariable.
func (c *Compiler) emitConstIndex(index int) {
	c.emitByte(byte(index))
}

func (c *Compiler) and_(canAssign bool) {
	endJump := c.emitJump(vm.OpJumpIfFalse)
	c.emitOp(vm.OpPop)
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or_(canAssign bool) {
	elseJump := c.emitJump(vm.OpJumpIfFalse)
	endJump := c.emitJump(vm.OpJump)
	c.patchJump(elseJump)
	c.emitOp(vm.OpPop)
	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

func (c *Compiler) this_(canAssign bool) {
	if c.class == nil {
		c.error("Can't use 'this' outside of a class.")
		return
	}
	c.variableNamed("this", false)
}

func (c *Compiler) super_(canAssign bool) {
	if c.class == nil {
		c.error("Can't use 'super' outside of a class.")
		return
	} else if !c.class.hasSuperclass {
		c.error("Can't use 'super' in a class with no superclass.")
	}
	c.consume(scanner.Dot, "Expect '.' after 'super'.")
	c.consume(scanner.Identifier, "Expect superclass method name.")
	name := identifierConstant(c, c.previous.Lexeme)

	c.namedVariableGet("this")
	if c.match(scanner.LeftParen) {
		argCount := c.argumentList()
		c.namedVariableGet("super")
		c.emitOp(vm.OpSuperInvoke)
		c.emitConstIndex(name)
		c.emitByte(byte(argCount))
	} else {
		c.namedVariableGet("super")
		c.emitOp(vm.OpGetSuper)
		c.emitConstIndex(name)
	}
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.previous.Lexeme, canAssign)
}

func (c *Compiler) variableNamed(name string, canAssign bool) {
	c.namedVariable(name, canAssign)
}
