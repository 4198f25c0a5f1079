package vm

import (
	"errors"
	"fmt"
	"strings"
)

// RuntimeError carries a message plus the stack trace captured at the
// moment it was raised (topmost frame first), matching spec.md §4.6. Err,
// when set, is the sentinel this error wraps (see ErrStackOverflow), so
// callers can test for it with errors.Is instead of matching on Message.
type RuntimeError struct {
	Message string
	Trace   []string
	Err     error
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, line := range e.Trace {
		b.WriteByte('\n')
		b.WriteString(line)
	}
	return b.String()
}

func (e *RuntimeError) Unwrap() error { return e.Err }

var ErrStackOverflow = errors.New("Stack overflow.")

func (vm *VM) runtimeError(format string, args ...interface{}) {
	vm.raise(fmt.Sprintf(format, args...), nil)
}

// stackOverflow raises ErrStackOverflow, wrapped so callers can recognize
// it with errors.Is(machine.LastError(), vm.ErrStackOverflow) without
// string-matching the message.
func (vm *VM) stackOverflow() {
	vm.raise(ErrStackOverflow.Error(), ErrStackOverflow)
}

// raise builds lastErr with a stack trace captured at the moment it is
// raised (topmost frame first) so InterpretFunction can surface it once the
// dispatch loop unwinds.
func (vm *VM) raise(msg string, wrapped error) {
	var trace []string
	for i := vm.frameCount - 1; i >= 0; i-- {
		frame := &vm.frames[i]
		fn := frame.Closure.Function
		// ip points one past the opcode that faulted.
		line := fn.Chunk.GetLine(frame.IP - 1)
		name := "script"
		if fn.Name != nil {
			name = fn.Name.chars + "()"
		}
		trace = append(trace, fmt.Sprintf("[line %d] in %s", line, name))
	}

	vm.lastErr = &RuntimeError{Message: msg, Trace: trace, Err: wrapped}
	vm.resetStack()
}
