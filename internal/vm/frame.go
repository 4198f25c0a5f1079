package vm

// CallFrame is the window a single call owns: its closure, its
// instruction pointer into that closure's chunk, and the base index of
// its slots within the shared value stack.
type CallFrame struct {
	Closure *ObjClosure
	IP      int
	Slots   int // base offset into vm.stack; slot 0 is the callee/receiver
}
