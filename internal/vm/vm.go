// Package vm implements the value/object model, the interning hash table,
// the bytecode chunk, the mark-sweep collector, and the dispatch loop of
// the lox virtual machine. These pieces are kept in one package because
// they are, by design, the tightly-coupled core of the interpreter: the
// collector walks the value stack and call frames directly, every
// allocation site must cooperate with it, and the hash table backs both
// the globals table and every class's method table.
package vm

import (
	"fmt"
	"io"
	"os"
	"time"

	"lox/internal/golog"
)

const (
	FramesMax = 64
	StackMax  = FramesMax * 256
)

// InterpretResult is the outcome of a top-level InterpretFunction call.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

// Options configures a VM instance. The zero value is usable; fields
// default to the values clox hard-codes.
type Options struct {
	StressGC   bool
	GrowFactor uint64 // defaults to 2 (1 under StressGC, matching clox's GC_HEAP_GROW_FACTOR)
	Trace      bool
	Stdout     io.Writer
	Log        *golog.Logger
}

// VM is one isolated interpreter instance: its own value stack, call
// frames, globals, string-intern table, and heap object list. Multiple
// VMs may coexist; nothing here is process-global.
type VM struct {
	stack      [StackMax]Value
	stackTop   int
	frames     [FramesMax]CallFrame
	frameCount int

	globals *Table
	strings *Table // interning set; keys only, values unused

	openUpvalues *ObjUpvalue // sorted by descending stack address

	objects        Obj // intrusive list head, newest first
	bytesAllocated uint64
	nextGC         uint64
	growFactor     uint64
	stressGC       bool

	initString *ObjString

	compilerRoots []*ObjFunction // active compiler chain, for GC roots during compilation

	stdout io.Writer
	trace  bool
	log    *golog.Logger

	start time.Time

	lastErr *RuntimeError
}

// New constructs a VM ready for InterpretFunction. Pass Options{} for
// defaults.
func New(opts Options) *VM {
	vm := &VM{
		globals:    NewTable(),
		strings:    NewTable(),
		stdout:     opts.Stdout,
		trace:      opts.Trace,
		log:        opts.Log,
		stressGC:   opts.StressGC,
		growFactor: opts.GrowFactor,
		nextGC:     1024 * 1024,
		start:      time.Now(),
	}
	if vm.stdout == nil {
		vm.stdout = os.Stdout
	}
	if vm.growFactor == 0 {
		vm.growFactor = 2
	}
	if vm.stressGC {
		vm.growFactor = 1
	}
	vm.initString = vm.InternString("init")
	vm.defineNatives()
	return vm
}

func (vm *VM) push(v Value) {
	if vm.stackTop >= StackMax {
		vm.stackOverflow()
		return
	}
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

// PushCompilerRoot and PopCompilerRoot let the compiler register its
// in-progress function chain as GC roots (spec.md §2/§4.3): compiling a
// function literal can itself trigger allocation-pressure collection
// before the enclosing function is reachable from any frame.
func (vm *VM) PushCompilerRoot(fn *ObjFunction) { vm.compilerRoots = append(vm.compilerRoots, fn) }
func (vm *VM) PopCompilerRoot()                 { vm.compilerRoots = vm.compilerRoots[:len(vm.compilerRoots)-1] }

// Globals exposes the globals table. Final/mutability bookkeeping for
// globals is kept by the compiler, not here; the table only holds values.
func (vm *VM) Globals() *Table { return vm.globals }

// InternString returns the canonical *ObjString for the given bytes,
// allocating a new one only on first sight. Two calls with equal bytes
// return the identical object (spec.md §8).
func (vm *VM) InternString(chars string) *ObjString {
	hash := hashString(chars)
	if existing := vm.strings.FindInternedString(chars, hash); existing != nil {
		return existing
	}
	s := &ObjString{chars: chars, hash: hash}
	vm.registerObject(s, len(chars))
	vm.push(ObjVal(s)) // root it across the table insert's possible growth allocation
	vm.strings.Set(ObjVal(s), NilVal)
	vm.pop()
	return s
}

func (vm *VM) runtimeErrorf(format string, args ...interface{}) {
	vm.runtimeError(fmt.Sprintf(format, args...))
}

func (vm *VM) traceInstruction(frame *CallFrame, offset int) {
	if !vm.trace || vm.log == nil {
		return
	}
	vm.log.Printf("ip=%04d %s", offset, disassembleOneForTrace(&frame.Closure.Function.Chunk, offset))
}

// disassembleOneForTrace is a function variable that cmd/lox replaces with
// internal/debug's formatter via SetInstructionFormatter, so -trace output
// can share the disassembler's opcode formatting without an import cycle.
var disassembleOneForTrace = func(c *Chunk, offset int) string {
	if offset < len(c.Code) {
		return fmt.Sprintf("op=%d", c.Code[offset])
	}
	return ""
}

// SetInstructionFormatter lets cmd/lox wire internal/debug's formatter in
// without vm importing debug (which itself imports vm for Chunk/OpCode).
func SetInstructionFormatter(f func(c *Chunk, offset int) string) {
	disassembleOneForTrace = f
}
