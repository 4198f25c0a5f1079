// Package compiler implements the single-pass Pratt parser that compiles
// lox source directly into internal/vm bytecode: no intermediate AST.
// Variable resolution (locals, upvalues, globals) happens inline as each
// identifier is parsed, which is what drives the VM's CLOSURE upvalue
// protocol.
package compiler

import (
	"fmt"
	"os"
	"strconv"

	"lox/internal/scanner"
	"lox/internal/vm"
)

type funcType int

const (
	typeFunction funcType = iota
	typeScript
	typeMethod
	typeInitializer
)

type local struct {
	name     string
	depth    int // -1 means declared but not yet initialized
	mutable  bool
	captured bool
}

type upvalueRef struct {
	index   int
	isLocal bool
}

type loopState struct {
	enclosing      *loopState
	continueOffset int
	breakJumps     []int
	isSwitch       bool // switch frames accept break but have no continue target of their own
}

type classState struct {
	enclosing      *classState
	hasSuperclass  bool
}

// Compiler is one entry in the stack of compilers, one per nested
// function literal being compiled. The stack mirrors lexical nesting:
// resolveUpvalue recurses into c.enclosing.
type Compiler struct {
	enclosing *Compiler
	vmachine  *vm.VM

	function *vm.ObjFunction
	fnType   funcType

	locals     []local
	upvalues   []upvalueRef
	scopeDepth int

	loop  *loopState
	class *classState

	globalMutability map[string]bool // only populated on the root (script) compiler

	scan      *scanner.Scanner
	previous  scanner.Token
	current   scanner.Token
	hadError  bool
	panicMode bool
}

// Compile compiles a complete source program into a top-level script
// function, ready for vm.InterpretFunction. ok is false if any compile
// error was reported (source is already synchronized past the error).
func Compile(vmachine *vm.VM, source string) (fn *vm.ObjFunction, ok bool) {
	c := newCompiler(vmachine, nil, typeScript)
	c.scan = scanner.New(source)
	c.globalMutability = make(map[string]bool)

	c.advance()
	for !c.match(scanner.EOF) {
		c.declaration()
	}
	c.consume(scanner.EOF, "Expect end of expression.")

	fn = c.endCompiler()
	return fn, !c.hadError
}

func newCompiler(vmachine *vm.VM, enclosing *Compiler, fnType funcType) *Compiler {
	c := &Compiler{
		enclosing: enclosing,
		vmachine:  vmachine,
		fnType:    fnType,
		function:  vmachine.NewFunction(),
	}
	if enclosing != nil {
		c.scan = enclosing.scan
		c.previous = enclosing.previous
		c.current = enclosing.current
		c.globalMutability = enclosing.globalMutability
		c.class = enclosing.class
		c.loop = nil // loops do not cross function boundaries
	}
	// Slot 0 is reserved: the receiver for methods, unused (but present)
	// for plain functions and the top-level script.
	name := ""
	if fnType == typeMethod || fnType == typeInitializer {
		name = "this"
	}
	c.locals = append(c.locals, local{name: name, depth: 0, mutable: false})
	vmachine.PushCompilerRoot(c.function)
	return c
}

func (c *Compiler) currentChunk() *vm.Chunk { return &c.function.Chunk }

// ---- token stream plumbing ----

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scan.Scan()
		if c.current.Kind != scanner.Error {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(kind scanner.Kind) bool { return c.current.Kind == kind }

func (c *Compiler) match(kind scanner.Kind) bool {
	if !c.check(kind) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(kind scanner.Kind, msg string) {
	if c.current.Kind == kind {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.current, msg) }
func (c *Compiler) error(msg string)          { c.errorAt(c.previous, msg) }

func (c *Compiler) errorAt(tok scanner.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	where := " at '" + tok.Lexeme + "'"
	if tok.Kind == scanner.EOF {
		where = " at end"
	}
	fmt.Fprintf(os.Stderr, "[line %d] Error%s: %s\n", tok.Line, where, msg)
	c.hadError = true
}

// synchronize skips tokens until a statement boundary, so one syntax
// error does not cascade into a flood of spurious follow-on errors.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Kind != scanner.EOF {
		if c.previous.Kind == scanner.Semicolon {
			return
		}
		switch c.current.Kind {
		case scanner.Class, scanner.Fun, scanner.Var, scanner.Final, scanner.For,
			scanner.If, scanner.While, scanner.Print, scanner.Return:
			return
		}
		c.advance()
	}
}

// ---- bytecode emission ----

func (c *Compiler) emitByte(b byte) {
	c.currentChunk().Write(b, c.previous.Line)
}

func (c *Compiler) emitOp(op vm.OpCode) { c.emitByte(byte(op)) }

func (c *Compiler) emitOps(op1, op2 vm.OpCode) {
	c.emitOp(op1)
	c.emitOp(op2)
}

func (c *Compiler) emitConstant(v vm.Value) {
	c.currentChunk().WriteConstant(v, c.previous.Line)
}

// emitJump writes a two-byte placeholder after the jump opcode and
// returns its offset for later patching.
func (c *Compiler) emitJump(op vm.OpCode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.currentChunk().Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := len(c.currentChunk().Code) - offset - 2
	if jump > 0xffff {
		c.error("Too much code to jump over.")
	}
	c.currentChunk().Code[offset] = byte(jump >> 8)
	c.currentChunk().Code[offset+1] = byte(jump)
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(vm.OpLoop)
	offset := len(c.currentChunk().Code) - loopStart + 2
	if offset > 0xffff {
		c.error("Loop body too large.")
	}
	c.emitByte(byte(offset >> 8))
	c.emitByte(byte(offset))
}

func (c *Compiler) emitReturn() {
	if c.fnType == typeInitializer {
		c.emitOp(vm.OpGetLocal)
		c.emitByte(0)
	} else {
		c.emitOp(vm.OpNil)
	}
	c.emitOp(vm.OpReturn)
}

func (c *Compiler) endCompiler() *vm.ObjFunction {
	c.emitReturn()
	fn := c.function
	c.vmachine.PopCompilerRoot()
	return fn
}

// ---- scopes ----

func (c *Compiler) beginScope() { c.scopeDepth++ }

func (c *Compiler) endScope() {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		if c.locals[len(c.locals)-1].captured {
			c.emitOp(vm.OpCloseUpvalue)
		} else {
			c.emitOp(vm.OpPop)
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
}

func identifierConstant(c *Compiler, name string) int {
	return c.currentChunk().AddConstant(vm.ObjVal(c.vmachine.InternString(name)))
}

func identifiersEqual(a, b string) bool { return a == b }

// ---- number/string literal parsing ----

func parseNumber(lexeme string) float64 {
	n, _ := strconv.ParseFloat(lexeme, 64)
	return n
}
