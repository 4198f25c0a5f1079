package vm

import "time"

// defineNatives registers the built-in native function table. clock is
// the sole built-in named by spec.md §6; NativeFn is a public type so
// cmd/lox (or embedders) can register more.
func (vm *VM) defineNatives() {
	vm.DefineNative("clock", func(argCount int, args []Value) (Value, error) {
		return NumberVal(time.Since(vm.start).Seconds()), nil
	})
}

// DefineNative installs a native function as a global, the same path
// user globals are defined through.
func (vm *VM) DefineNative(name string, fn NativeFn) {
	nameStr := vm.InternString(name)
	native := vm.NewNative(name, fn)
	vm.push(ObjVal(nameStr))
	vm.push(ObjVal(native))
	vm.globals.Set(vm.peek(1), vm.peek(0))
	vm.pop()
	vm.pop()
}
