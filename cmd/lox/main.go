// Command lox is the REPL/file-runner CLI driver: it owns argument
// parsing and exit-code conventions, and otherwise just wires
// internal/compiler and internal/vm together (spec.md §6).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"lox/internal/compiler"
	"lox/internal/debug"
	"lox/internal/golog"
	"lox/internal/term"
	"lox/internal/vm"
)

const (
	exitUsage        = 64
	exitCompileError = 65
	exitRuntimeError = 70
	exitIOError      = 74
)

func main() {
	trace := flag.Bool("trace", false, "log each dispatched instruction")
	stressGC := flag.Bool("stress-gc", false, "collect garbage on every allocation")
	disassemble := flag.Bool("disassemble", false, "dump compiled bytecode before running")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: lox [path]\n")
	}
	flag.Parse()

	logger := golog.New(os.Stderr, "", golog.LstdFlags)
	machine := vm.New(vm.Options{
		StressGC: *stressGC,
		Trace:    *trace,
		Stdout:   os.Stdout,
		Log:      logger,
	})
	vm.SetInstructionFormatter(debug.OneLine)

	switch flag.NArg() {
	case 0:
		repl(machine)
	case 1:
		runFile(machine, flag.Arg(0), *disassemble)
	default:
		flag.Usage()
		os.Exit(exitUsage)
	}
}

// repl implements the zero-argument mode: read a line, compile and run
// it as a complete program, loop until EOF. Lines are not accumulated
// across iterations, matching clox's main.c.
func repl(machine *vm.VM) {
	interactive := term.IsTerminal(os.Stdin)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	prompt := func() {
		if interactive {
			fmt.Fprint(os.Stdout, "> ")
		}
	}
	prompt()
	for scanner.Scan() {
		line := scanner.Text()
		interpret(machine, line, false)
		prompt()
	}
}

func runFile(machine *vm.VM, path string, disassemble bool) {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not open file \"%s\".\n", path)
		os.Exit(exitIOError)
	}
	result := interpret(machine, string(source), disassemble)
	switch result {
	case vm.InterpretCompileError:
		os.Exit(exitCompileError)
	case vm.InterpretRuntimeError:
		os.Exit(exitRuntimeError)
	}
}

func interpret(machine *vm.VM, source string, disassemble bool) vm.InterpretResult {
	fn, ok := compiler.Compile(machine, source)
	if !ok {
		return vm.InterpretCompileError
	}
	if disassemble {
		debug.DisassembleChunk(os.Stderr, &fn.Chunk, "script")
	}
	result := machine.InterpretFunction(fn)
	if result == vm.InterpretRuntimeError {
		reportRuntimeError(os.Stderr, machine.LastError())
	}
	return result
}

func reportRuntimeError(w io.Writer, err *vm.RuntimeError) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, err.Error())
}
