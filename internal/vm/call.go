package vm

// callValue implements CALL's dispatch on the callee found at
// peek(argCount): closures, bound methods, classes (construction), and
// natives each have distinct call conventions (spec.md §4.6).
func (vm *VM) callValue(callee Value, argCount int) bool {
	if callee.IsObj() {
		switch obj := callee.AsObj().(type) {
		case *ObjBoundMethod:
			vm.stack[vm.stackTop-argCount-1] = obj.Receiver
			return vm.call(obj.Method, argCount)
		case *ObjClass:
			instance := vm.NewInstance(obj)
			vm.stack[vm.stackTop-argCount-1] = ObjVal(instance)
			if initializer, ok := obj.Methods.Get(ObjVal(vm.initString)); ok {
				return vm.call(initializer.AsObj().(*ObjClosure), argCount)
			}
			if argCount != 0 {
				vm.runtimeErrorf("Expected 0 arguments but got %d.", argCount)
				return false
			}
			return true
		case *ObjClosure:
			return vm.call(obj, argCount)
		case *ObjNative:
			args := vm.stack[vm.stackTop-argCount : vm.stackTop]
			result, err := obj.Fn(argCount, args)
			if err != nil {
				vm.runtimeErrorf("%s", err.Error())
				return false
			}
			vm.stackTop -= argCount + 1
			vm.push(result)
			return true
		}
	}
	vm.runtimeError("Can only call functions and classes.")
	return false
}

func (vm *VM) call(closure *ObjClosure, argCount int) bool {
	if argCount != closure.Function.Arity {
		vm.runtimeErrorf("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
		return false
	}
	if vm.frameCount == FramesMax {
		vm.stackOverflow()
		return false
	}
	frame := &vm.frames[vm.frameCount]
	vm.frameCount++
	frame.Closure = closure
	frame.IP = 0
	frame.Slots = vm.stackTop - argCount - 1
	return true
}

// invokeFromClass resolves name on class's method table and calls it,
// used by INVOKE/SUPER_INVOKE to fuse GET_PROPERTY+CALL into one
// dispatch without materializing a bound method.
func (vm *VM) invokeFromClass(class *ObjClass, name *ObjString, argCount int) bool {
	method, ok := class.Methods.Get(ObjVal(name))
	if !ok {
		vm.runtimeErrorf("Undefined property '%s'.", name.chars)
		return false
	}
	return vm.call(method.AsObj().(*ObjClosure), argCount)
}

func (vm *VM) invoke(name *ObjString, argCount int) bool {
	receiver := vm.peek(argCount)
	if !receiver.IsObj() {
		vm.runtimeError("Only instances have properties.")
		return false
	}
	instance, ok := receiver.AsObj().(*ObjInstance)
	if !ok {
		vm.runtimeError("Only instances have properties.")
		return false
	}
	if value, ok := instance.Fields.Get(ObjVal(name)); ok {
		vm.stack[vm.stackTop-argCount-1] = value
		return vm.callValue(value, argCount)
	}
	return vm.invokeFromClass(instance.Class, name, argCount)
}

func (vm *VM) bindMethod(class *ObjClass, name *ObjString) bool {
	method, ok := class.Methods.Get(ObjVal(name))
	if !ok {
		vm.runtimeErrorf("Undefined property '%s'.", name.chars)
		return false
	}
	bound := vm.NewBoundMethod(vm.peek(0), method.AsObj().(*ObjClosure))
	vm.pop()
	vm.push(ObjVal(bound))
	return true
}

// captureUpvalue returns the existing open upvalue for the given stack
// slot index, if one is already live, or inserts a new one into the
// descending-address-sorted open list.
func (vm *VM) captureUpvalue(slot int) *ObjUpvalue {
	var prev *ObjUpvalue
	cur := vm.openUpvalues
	for cur != nil && cur.Slot > slot {
		prev = cur
		cur = cur.NextOpen
	}
	if cur != nil && cur.Slot == slot {
		return cur
	}
	created := vm.NewUpvalue(slot)
	created.NextOpen = cur
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// closeUpvalues hoists every open upvalue at or above the given stack
// slot index into its own Closed cell, marking it closed (Slot = -1).
func (vm *VM) closeUpvalues(fromSlot int) {
	for vm.openUpvalues != nil && vm.openUpvalues.Slot >= fromSlot {
		uv := vm.openUpvalues
		uv.Closed = uv.Get()
		uv.Slot = -1
		vm.openUpvalues = uv.NextOpen
		uv.NextOpen = nil
	}
}
