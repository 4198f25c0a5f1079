package vm

import "fmt"

// Compiling is not the VM's job (that is internal/compiler's);
// InterpretFunction wraps an already-compiled top-level ObjFunction in a
// closure, pushes the initial call frame, and dispatches until the
// outermost frame returns or a runtime error unwinds the stack.
func (vm *VM) InterpretFunction(fn *ObjFunction) InterpretResult {
	vm.resetStack()
	vm.lastErr = nil
	vm.push(ObjVal(fn))
	closure := vm.NewClosure(fn)
	vm.pop()
	vm.push(ObjVal(closure))
	vm.call(closure, 0)

	if !vm.run() {
		return InterpretRuntimeError
	}
	return InterpretOK
}

// LastError returns the RuntimeError raised by the most recent
// InterpretFunction call, or nil if it succeeded.
func (vm *VM) LastError() *RuntimeError { return vm.lastErr }

func (vm *VM) run() bool {
	frame := &vm.frames[vm.frameCount-1]

	readByte := func() byte {
		b := frame.Closure.Function.Chunk.Code[frame.IP]
		frame.IP++
		return b
	}
	readShort := func() uint16 {
		hi := readByte()
		lo := readByte()
		return uint16(hi)<<8 | uint16(lo)
	}
	readConstant := func() Value {
		return frame.Closure.Function.Chunk.Constants[readByte()]
	}
	readConstantLong := func() Value {
		idx := int(readByte())<<16 | int(readByte())<<8 | int(readByte())
		return frame.Closure.Function.Chunk.Constants[idx]
	}
	readString := func() *ObjString {
		return readConstant().AsObj().(*ObjString)
	}

	for {
		if vm.trace {
			vm.traceInstruction(frame, frame.IP)
		}
		instruction := OpCode(readByte())
		switch instruction {
		case OpConstant:
			vm.push(readConstant())
		case OpConstantLong:
			vm.push(readConstantLong())
		case OpNil:
			vm.push(NilVal)
		case OpTrue:
			vm.push(BoolVal(true))
		case OpFalse:
			vm.push(BoolVal(false))
		case OpPop:
			vm.pop()
		case OpGetLocal:
			slot := int(readByte())
			vm.push(vm.stack[frame.Slots+slot])
		case OpSetLocal:
			slot := int(readByte())
			vm.stack[frame.Slots+slot] = vm.peek(0)
		case OpGetGlobal:
			name := readString()
			value, ok := vm.globals.Get(ObjVal(name))
			if !ok {
				vm.runtimeErrorf("Undefined variable '%s'.", name.chars)
				return false
			}
			vm.push(value)
		case OpDefineGlobal:
			name := readString()
			vm.globals.Set(ObjVal(name), vm.peek(0))
			vm.pop()
		case OpSetGlobal:
			name := readString()
			if vm.globals.Set(ObjVal(name), vm.peek(0)) {
				vm.globals.Delete(ObjVal(name))
				vm.runtimeErrorf("Undefined variable '%s'.", name.chars)
				return false
			}
		case OpGetUpvalue:
			slot := int(readByte())
			vm.push(frame.Closure.Upvalues[slot].Get())
		case OpSetUpvalue:
			slot := int(readByte())
			frame.Closure.Upvalues[slot].Set(vm.peek(0))
		case OpGetProperty:
			if !vm.peek(0).IsObj() {
				vm.runtimeError("Only instances have properties.")
				return false
			}
			instance, ok := vm.peek(0).AsObj().(*ObjInstance)
			if !ok {
				vm.runtimeError("Only instances have properties.")
				return false
			}
			name := readString()
			if value, ok := instance.Fields.Get(ObjVal(name)); ok {
				vm.pop()
				vm.push(value)
				break
			}
			if !vm.bindMethod(instance.Class, name) {
				return false
			}
		case OpSetProperty:
			if !vm.peek(1).IsObj() {
				vm.runtimeError("Only instances have fields.")
				return false
			}
			instance, ok := vm.peek(1).AsObj().(*ObjInstance)
			if !ok {
				vm.runtimeError("Only instances have fields.")
				return false
			}
			name := readString()
			instance.Fields.Set(ObjVal(name), vm.peek(0))
			value := vm.pop()
			vm.pop()
			vm.push(value)
		case OpGetSuper:
			name := readString()
			superclass := vm.pop().AsObj().(*ObjClass)
			if !vm.bindMethod(superclass, name) {
				return false
			}
		case OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(BoolVal(ValuesEqual(a, b)))
		case OpEqualPreserve:
			b := vm.pop()
			a := vm.peek(0)
			vm.push(BoolVal(ValuesEqual(a, b)))
		case OpGreater:
			if !vm.numericBinaryCompare(func(a, b float64) bool { return a > b }) {
				return false
			}
		case OpLess:
			if !vm.numericBinaryCompare(func(a, b float64) bool { return a < b }) {
				return false
			}
		case OpAdd:
			if !vm.add() {
				return false
			}
		case OpSubtract:
			if !vm.numericBinaryOp(func(a, b float64) float64 { return a - b }) {
				return false
			}
		case OpMultiply:
			if !vm.numericBinaryOp(func(a, b float64) float64 { return a * b }) {
				return false
			}
		case OpDivide:
			if !vm.numericBinaryOp(func(a, b float64) float64 { return a / b }) {
				return false
			}
		case OpNot:
			vm.push(BoolVal(vm.pop().IsFalsey()))
		case OpNegate:
			if !vm.peek(0).IsNumber() {
				vm.runtimeError("Operand must be a number.")
				return false
			}
			vm.push(NumberVal(-vm.pop().AsNumber()))
		case OpPrint:
			fmt.Fprintln(vm.stdout, Stringify(vm.pop()))
		case OpJump:
			offset := readShort()
			frame.IP += int(offset)
		case OpJumpIfFalse:
			offset := readShort()
			if vm.peek(0).IsFalsey() {
				frame.IP += int(offset)
			}
		case OpLoop:
			offset := readShort()
			frame.IP -= int(offset)
		case OpCall:
			argCount := int(readByte())
			if !vm.callValue(vm.peek(argCount), argCount) {
				return false
			}
			frame = &vm.frames[vm.frameCount-1]
		case OpInvoke:
			name := readString()
			argCount := int(readByte())
			if !vm.invoke(name, argCount) {
				return false
			}
			frame = &vm.frames[vm.frameCount-1]
		case OpSuperInvoke:
			name := readString()
			argCount := int(readByte())
			superclass := vm.pop().AsObj().(*ObjClass)
			if !vm.invokeFromClass(superclass, name, argCount) {
				return false
			}
			frame = &vm.frames[vm.frameCount-1]
		case OpClosure:
			fn := readConstant().AsObj().(*ObjFunction)
			closure := vm.NewClosure(fn)
			vm.push(ObjVal(closure))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := readByte()
				index := int(readByte())
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(frame.Slots + index)
				} else {
					closure.Upvalues[i] = frame.Closure.Upvalues[index]
				}
			}
		case OpCloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()
		case OpReturn:
			result := vm.pop()
			vm.closeUpvalues(frame.Slots)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return true
			}
			vm.stackTop = frame.Slots
			vm.push(result)
			frame = &vm.frames[vm.frameCount-1]
		case OpClass:
			name := readString()
			vm.push(ObjVal(vm.NewClass(name)))
		case OpInherit:
			superValue := vm.peek(1)
			superclass, ok := superValue.AsObj().(*ObjClass)
			if !superValue.IsObj() || !ok {
				vm.runtimeError("Superclass must be a class.")
				return false
			}
			subclass := vm.peek(0).AsObj().(*ObjClass)
			AddAll(superclass.Methods, subclass.Methods)
			vm.pop()
		case OpMethod:
			name := readString()
			vm.defineMethod(name)
		default:
			vm.runtimeErrorf("Unknown opcode %d.", instruction)
			return false
		}
		if vm.lastErr != nil {
			return false
		}
	}
}

func (vm *VM) defineMethod(name *ObjString) {
	method := vm.peek(0)
	class := vm.peek(1).AsObj().(*ObjClass)
	class.Methods.Set(ObjVal(name), method)
	vm.pop()
}

func (vm *VM) numericBinaryOp(op func(a, b float64) float64) bool {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		vm.runtimeError("Operands must be numbers.")
		return false
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(NumberVal(op(a, b)))
	return true
}

func (vm *VM) numericBinaryCompare(op func(a, b float64) bool) bool {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		vm.runtimeError("Operands must be numbers.")
		return false
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(BoolVal(op(a, b)))
	return true
}

// add implements ADD's two overloads: number+number and string+string
// concatenation. Both operands are left on the stack (peeked, not
// popped) until the result is allocated, so a GC triggered by the
// concatenation allocation sees them as roots (spec.md §4.3).
func (vm *VM) add() bool {
	a, b := vm.peek(1), vm.peek(0)
	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(NumberVal(a.AsNumber() + b.AsNumber()))
		return true
	case isString(a) && isString(b):
		as := a.AsObj().(*ObjString)
		bs := b.AsObj().(*ObjString)
		result := vm.InternString(as.chars + bs.chars)
		vm.pop()
		vm.pop()
		vm.push(ObjVal(result))
		return true
	default:
		vm.runtimeError("Operands must be two numbers or two strings.")
		return false
	}
}

func isString(v Value) bool {
	if !v.IsObj() {
		return false
	}
	_, ok := v.AsObj().(*ObjString)
	return ok
}
