// Package debug implements the bytecode disassembler: a pure debugging
// aid over internal/vm.Chunk, never consulted by the compiler or VM
// during ordinary execution. It mirrors clox's debug.c structure, one
// case per opcode.
package debug

import (
	"fmt"
	"io"

	"golang.org/x/text/width"

	"lox/internal/vm"
)

// displayWidth approximates the terminal-cell width of a string constant
// so disassembly columns stay aligned even when a literal contains
// full-width (CJK) runes; lox's scanner admits arbitrary UTF-8-ish bytes
// in string literals (spec.md §6), so byte length alone does not match
// their visual width.
func displayWidth(s string) int {
	cells := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			cells += 2
		default:
			cells++
		}
	}
	return cells
}

// DisassembleChunk prints every instruction in c, prefixed with name.
func DisassembleChunk(w io.Writer, c *vm.Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = DisassembleInstruction(w, c, offset)
	}
}

// DisassembleInstruction prints one instruction at offset and returns the
// offset of the next instruction.
func DisassembleInstruction(w io.Writer, c *vm.Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && c.GetLine(offset) == c.GetLine(offset-1) {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", c.GetLine(offset))
	}

	op := vm.OpCode(c.Code[offset])
	switch op {
	case vm.OpConstant:
		return constantInstruction(w, "OP_CONSTANT", c, offset)
	case vm.OpConstantLong:
		return constantLongInstruction(w, "OP_CONSTANT_LONG", c, offset)
	case vm.OpNil:
		return simpleInstruction(w, "OP_NIL", offset)
	case vm.OpTrue:
		return simpleInstruction(w, "OP_TRUE", offset)
	case vm.OpFalse:
		return simpleInstruction(w, "OP_FALSE", offset)
	case vm.OpPop:
		return simpleInstruction(w, "OP_POP", offset)
	case vm.OpGetLocal:
		return byteInstruction(w, "OP_GET_LOCAL", c, offset)
	case vm.OpSetLocal:
		return byteInstruction(w, "OP_SET_LOCAL", c, offset)
	case vm.OpGetGlobal:
		return constantInstruction(w, "OP_GET_GLOBAL", c, offset)
	case vm.OpDefineGlobal:
		return constantInstruction(w, "OP_DEFINE_GLOBAL", c, offset)
	case vm.OpSetGlobal:
		return constantInstruction(w, "OP_SET_GLOBAL", c, offset)
	case vm.OpGetUpvalue:
		return byteInstruction(w, "OP_GET_UPVALUE", c, offset)
	case vm.OpSetUpvalue:
		return byteInstruction(w, "OP_SET_UPVALUE", c, offset)
	case vm.OpGetProperty:
		return constantInstruction(w, "OP_GET_PROPERTY", c, offset)
	case vm.OpSetProperty:
		return constantInstruction(w, "OP_SET_PROPERTY", c, offset)
	case vm.OpGetSuper:
		return constantInstruction(w, "OP_GET_SUPER", c, offset)
	case vm.OpEqual:
		return simpleInstruction(w, "OP_EQUAL", offset)
	case vm.OpEqualPreserve:
		return simpleInstruction(w, "OP_EQUAL_PRESERVE", offset)
	case vm.OpGreater:
		return simpleInstruction(w, "OP_GREATER", offset)
	case vm.OpLess:
		return simpleInstruction(w, "OP_LESS", offset)
	case vm.OpAdd:
		return simpleInstruction(w, "OP_ADD", offset)
	case vm.OpSubtract:
		return simpleInstruction(w, "OP_SUBTRACT", offset)
	case vm.OpMultiply:
		return simpleInstruction(w, "OP_MULTIPLY", offset)
	case vm.OpDivide:
		return simpleInstruction(w, "OP_DIVIDE", offset)
	case vm.OpNot:
		return simpleInstruction(w, "OP_NOT", offset)
	case vm.OpNegate:
		return simpleInstruction(w, "OP_NEGATE", offset)
	case vm.OpPrint:
		return simpleInstruction(w, "OP_PRINT", offset)
	case vm.OpJump:
		return jumpInstruction(w, "OP_JUMP", 1, c, offset)
	case vm.OpJumpIfFalse:
		return jumpInstruction(w, "OP_JUMP_IF_FALSE", 1, c, offset)
	case vm.OpLoop:
		return jumpInstruction(w, "OP_LOOP", -1, c, offset)
	case vm.OpCall:
		return byteInstruction(w, "OP_CALL", c, offset)
	case vm.OpInvoke:
		return invokeInstruction(w, "OP_INVOKE", c, offset)
	case vm.OpSuperInvoke:
		return invokeInstruction(w, "OP_SUPER_INVOKE", c, offset)
	case vm.OpClosure:
		return closureInstruction(w, c, offset)
	case vm.OpCloseUpvalue:
		return simpleInstruction(w, "OP_CLOSE_UPVALUE", offset)
	case vm.OpReturn:
		return simpleInstruction(w, "OP_RETURN", offset)
	case vm.OpClass:
		return constantInstruction(w, "OP_CLASS", c, offset)
	case vm.OpInherit:
		return simpleInstruction(w, "OP_INHERIT", offset)
	case vm.OpMethod:
		return constantInstruction(w, "OP_METHOD", c, offset)
	default:
		fmt.Fprintf(w, "Unknown opcode %d\n", op)
		return offset + 1
	}
}

func simpleInstruction(w io.Writer, name string, offset int) int {
	fmt.Fprintf(w, "%s\n", name)
	return offset + 1
}

func byteInstruction(w io.Writer, name string, c *vm.Chunk, offset int) int {
	slot := c.Code[offset+1]
	fmt.Fprintf(w, "%-18s %4d\n", name, slot)
	return offset + 2
}

func jumpInstruction(w io.Writer, name string, sign int, c *vm.Chunk, offset int) int {
	jump := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
	fmt.Fprintf(w, "%-18s %4d -> %d\n", name, offset, offset+3+sign*jump)
	return offset + 3
}

func constantInstruction(w io.Writer, name string, c *vm.Chunk, offset int) int {
	idx := c.Code[offset+1]
	rendered := vm.Stringify(c.Constants[idx])
	pad := len(rendered) - displayWidth(rendered)
	if pad < 0 {
		pad = 0
	}
	fmt.Fprintf(w, "%-18s %4d '%s'%*s\n", name, idx, rendered, pad, "")
	return offset + 2
}

func constantLongInstruction(w io.Writer, name string, c *vm.Chunk, offset int) int {
	idx := int(c.Code[offset+1])<<16 | int(c.Code[offset+2])<<8 | int(c.Code[offset+3])
	fmt.Fprintf(w, "%-18s %4d '%s'\n", name, idx, vm.Stringify(c.Constants[idx]))
	return offset + 4
}

func invokeInstruction(w io.Writer, name string, c *vm.Chunk, offset int) int {
	constant := c.Code[offset+1]
	argCount := c.Code[offset+2]
	fmt.Fprintf(w, "%-18s (%d args) %4d '%s'\n", name, argCount, constant, vm.Stringify(c.Constants[constant]))
	return offset + 3
}

func closureInstruction(w io.Writer, c *vm.Chunk, offset int) int {
	offset++
	constant := c.Code[offset]
	offset++
	fmt.Fprintf(w, "%-18s %4d '%s'\n", "OP_CLOSURE", constant, vm.Stringify(c.Constants[constant]))
	fn := c.Constants[constant].AsObj().(*vm.ObjFunction)
	for j := 0; j < fn.UpvalueCount; j++ {
		isLocal := c.Code[offset]
		offset++
		index := c.Code[offset]
		offset++
		kind := "upvalue"
		if isLocal != 0 {
			kind = "local"
		}
		fmt.Fprintf(w, "%04d      |                     %s %d\n", offset-2, kind, index)
	}
	return offset
}

// OneLine renders a single instruction compactly, for the VM's -trace
// mode (wired via vm.SetInstructionFormatter so internal/vm need not
// import internal/debug).
func OneLine(c *vm.Chunk, offset int) string {
	var b buf
	DisassembleInstruction(&b, c, offset)
	return string(b)
}

type buf []byte

func (b *buf) Write(p []byte) (int, error) {
	*b = append(*b, p...)
	return len(p), nil
}
