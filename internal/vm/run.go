package vm

import (
	"fmt"

	"github.com/willow-lang/willow/internal/bytecode"
)

// run is the main decode/dispatch loop: it walks the current frame's
// bytecode one instruction at a time until a RETURN unwinds the last
// frame or a runtime error aborts execution. There is no end-of-chunk
// check: every compiled function ends in a RETURN.
func (vm *VM) run() InterpretResult {
	vm.pendingErr = nil
	frame := &vm.frames[vm.frameCount-1]
	chunk := frame.Closure.Function.Chunk

	readByte := func() byte {
		b := chunk.Code[frame.IP]
		frame.IP++
		return b
	}
	readShort := func() uint16 {
		hi := readByte()
		lo := readByte()
		return uint16(hi)<<8 | uint16(lo)
	}
	readConstant := func() bytecode.Value {
		return chunk.Constants[readByte()]
	}
	readString := func() *bytecode.ObjString {
		return readConstant().AsObject().(*bytecode.ObjString)
	}

	for {
		if vm.trace {
			vm.traceStep(frame, chunk)
		}
		op := bytecode.OpCode(readByte())
		switch op {
		case bytecode.OpConstant:
			vm.push(readConstant())

		case bytecode.OpNil:
			vm.push(bytecode.Nil)
		case bytecode.OpTrue:
			vm.push(bytecode.Bool(true))
		case bytecode.OpFalse:
			vm.push(bytecode.Bool(false))
		case bytecode.OpPop:
			vm.pop()

		case bytecode.OpGetLocal:
			slot := readByte()
			vm.push(vm.stack[frame.Slots+int(slot)])
		case bytecode.OpSetLocal:
			slot := readByte()
			vm.stack[frame.Slots+int(slot)] = vm.peek(0)

		case bytecode.OpDefineGlobal:
			name := readString()
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case bytecode.OpGetGlobal:
			name := readString()
			value, ok := vm.globals.Get(name)
			if !ok {
				return vm.abort("Undefined symbol '%s'.", name.Chars)
			}
			vm.push(value)
		case bytecode.OpSetGlobal:
			name := readString()
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return vm.abort("Undefined variable '%s'.", name.Chars)
			}

		case bytecode.OpGetUpvalue:
			slot := readByte()
			vm.push(frame.Closure.Upvalues[slot].Get())
		case bytecode.OpSetUpvalue:
			slot := readByte()
			frame.Closure.Upvalues[slot].Set(vm.peek(0))

		case bytecode.OpGetProperty:
			if res, ok := vm.execGetProperty(readString()); !ok {
				return res
			}
		case bytecode.OpSetProperty:
			if res, ok := vm.execSetProperty(readString()); !ok {
				return res
			}

		case bytecode.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(bytecode.Bool(a.Equal(b)))
		case bytecode.OpGreater:
			if res, ok := vm.numericBinary(func(a, b float64) bytecode.Value { return bytecode.Bool(a > b) }); !ok {
				return res
			}
		case bytecode.OpLess:
			if res, ok := vm.numericBinary(func(a, b float64) bytecode.Value { return bytecode.Bool(a < b) }); !ok {
				return res
			}
		case bytecode.OpAdd:
			if res, ok := vm.execAdd(); !ok {
				return res
			}
		case bytecode.OpSubtract:
			if res, ok := vm.numericBinary(func(a, b float64) bytecode.Value { return bytecode.Number(a - b) }); !ok {
				return res
			}
		case bytecode.OpMultiply:
			if res, ok := vm.numericBinary(func(a, b float64) bytecode.Value { return bytecode.Number(a * b) }); !ok {
				return res
			}
		case bytecode.OpDivide:
			if res, ok := vm.numericBinary(func(a, b float64) bytecode.Value { return bytecode.Number(a / b) }); !ok {
				return res
			}
		case bytecode.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.abort("Operand must be a number.")
			}
			vm.push(bytecode.Number(-vm.pop().AsNumber()))
		case bytecode.OpNot:
			vm.push(bytecode.Bool(!vm.pop().Truthy()))

		case bytecode.OpPrint:
			fmt.Fprint(vm.stdout, vm.pop().String())
		case bytecode.OpPrintln:
			fmt.Fprintln(vm.stdout, vm.pop().String())

		case bytecode.OpJump:
			offset := readShort()
			frame.IP += int(offset)
		case bytecode.OpJumpIfFalse:
			offset := readShort()
			if !vm.peek(0).Truthy() {
				frame.IP += int(offset)
			}
		case bytecode.OpLoop:
			offset := readShort()
			frame.IP -= int(offset)

		case bytecode.OpCall:
			argCount := int(readByte())
			if !vm.callValue(vm.peek(argCount), argCount) {
				return vm.abort("%s", vm.pendingErr.Error())
			}
			frame = &vm.frames[vm.frameCount-1]
			chunk = frame.Closure.Function.Chunk

		case bytecode.OpInvoke:
			name := readString()
			argCount := int(readByte())
			if !vm.invoke(name, argCount) {
				return vm.abort("%s", vm.pendingErr.Error())
			}
			frame = &vm.frames[vm.frameCount-1]
			chunk = frame.Closure.Function.Chunk

		case bytecode.OpSuperInvoke:
			name := readString()
			argCount := int(readByte())
			superclass := vm.pop().AsObject().(*bytecode.ObjClass)
			if !vm.invokeFromClass(superclass, name, argCount) {
				return vm.abort("%s", vm.pendingErr.Error())
			}
			frame = &vm.frames[vm.frameCount-1]
			chunk = frame.Closure.Function.Chunk

		case bytecode.OpClosure:
			fn := readConstant().AsObject().(*bytecode.ObjFunction)
			closure := vm.NewClosure(fn)
			vm.push(bytecode.ObjectValue(closure))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := readByte()
				index := readByte()
				if isLocal == 1 {
					closure.Upvalues[i] = vm.captureUpvalue(&vm.stack[frame.Slots+int(index)])
				} else {
					closure.Upvalues[i] = frame.Closure.Upvalues[index]
				}
			}
		case bytecode.OpCloseUpvalue:
			vm.closeUpvalues(&vm.stack[vm.stackTop-1])
			vm.pop()

		case bytecode.OpClass:
			name := readString()
			vm.push(bytecode.ObjectValue(vm.NewClass(name)))
		case bytecode.OpInherit:
			superVal := vm.peek(1)
			superclass, ok := asClass(superVal)
			if !ok {
				return vm.abort("Superclass must be a class.")
			}
			subclass := vm.peek(0).AsObject().(*bytecode.ObjClass)
			superclass.Methods.AddAll(subclass.Methods)
			vm.pop()
		case bytecode.OpMethod:
			vm.defineMethod(readString())
		case bytecode.OpGetSuper:
			name := readString()
			superclass := vm.pop().AsObject().(*bytecode.ObjClass)
			if !vm.bindMethod(superclass, name) {
				return vm.abort("%s", vm.pendingErr.Error())
			}

		case bytecode.OpListInit:
			n := int(readByte())
			vm.execListInit(n)
		case bytecode.OpListGetIdx:
			if res, ok := vm.execListGetIdx(); !ok {
				return res
			}
		case bytecode.OpListSetIdx:
			if res, ok := vm.execListSetIdx(); !ok {
				return res
			}

		case bytecode.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(&vm.stack[frame.Slots])
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return InterpretOK
			}
			vm.stackTop = frame.Slots
			vm.push(result)
			frame = &vm.frames[vm.frameCount-1]
			chunk = frame.Closure.Function.Chunk

		default:
			return vm.abort("Unknown opcode %d.", op)
		}
	}
}

// abort finalizes a runtime error: makes sure a RuntimeError has been
// recorded (building a generic one from the message if nothing already
// raised one with a richer trace), writes message+trace to stderr, and
// resets both stacks per the spec's error contract. The error stays
// available from PendingError until the next run starts.
func (vm *VM) abort(format string, args ...interface{}) InterpretResult {
	if vm.pendingErr == nil {
		vm.RuntimeError(format, args...)
	}
	fmt.Fprintln(vm.stderr, vm.pendingErr.Error())
	vm.resetStack()
	return InterpretRuntimeError
}

func asClass(v bytecode.Value) (*bytecode.ObjClass, bool) {
	if !v.IsObject() {
		return nil, false
	}
	c, ok := v.AsObject().(*bytecode.ObjClass)
	return c, ok
}

// numericBinary implements the GREATER/LESS/SUBTRACT/MULTIPLY/DIVIDE
// family: pop two operands, require both numbers, push op's result.
func (vm *VM) numericBinary(op func(a, b float64) bytecode.Value) (InterpretResult, bool) {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.abort("Operands must be numbers."), false
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(op(a, b))
	return InterpretOK, true
}

// execAdd implements ADD: string+string concatenates, number+number
// adds, anything else errors.
func (vm *VM) execAdd() (InterpretResult, bool) {
	if vm.peek(0).IsString() && vm.peek(1).IsString() {
		b := vm.pop().AsString()
		a := vm.pop().AsString()
		// The concatenated string isn't reachable from anywhere else
		// yet; InternString pushes it before it can be swept by any GC
		// its own allocation might trigger, satisfying the transient
		// root protocol.
		result := vm.InternString(a + b)
		vm.push(bytecode.ObjectValue(result))
		return InterpretOK, true
	}
	if vm.peek(0).IsNumber() && vm.peek(1).IsNumber() {
		b := vm.pop().AsNumber()
		a := vm.pop().AsNumber()
		vm.push(bytecode.Number(a + b))
		return InterpretOK, true
	}
	return vm.abort("Operands must be two numbers or two strings."), false
}

func (vm *VM) execGetProperty(name *bytecode.ObjString) (InterpretResult, bool) {
	receiver := vm.peek(0)
	instance, ok := asInstance(receiver)
	if !ok {
		return vm.abort("Only instances have properties."), false
	}
	if field, found := instance.Fields.Get(name); found {
		vm.pop()
		vm.push(field)
		return InterpretOK, true
	}
	if !vm.bindMethod(instance.Class, name) {
		return vm.abort("%s", vm.pendingErr.Error()), false
	}
	return InterpretOK, true
}

func (vm *VM) execSetProperty(name *bytecode.ObjString) (InterpretResult, bool) {
	value := vm.peek(0)
	instance, ok := asInstance(vm.peek(1))
	if !ok {
		return vm.abort("Only instances have fields."), false
	}
	vm.pop()
	vm.pop()
	instance.Fields.Set(name, value)
	vm.push(value)
	return InterpretOK, true
}

func asInstance(v bytecode.Value) (*bytecode.ObjInstance, bool) {
	if !v.IsObject() {
		return nil, false
	}
	i, ok := v.AsObject().(*bytecode.ObjInstance)
	return i, ok
}

// execListInit builds a list from the top n stack values (deepest first)
// per OpListInit's contract: push the new list as a temporary root
// before copying elements out of the stack, since appending can grow the
// list's backing array (an allocation of its own).
func (vm *VM) execListInit(n int) {
	list := vm.NewList()
	vm.push(bytecode.ObjectValue(list))
	for i := n; i >= 1; i-- {
		list.Items = append(list.Items, vm.peek(i))
	}
	vm.stackTop -= n + 1
	vm.push(bytecode.ObjectValue(list))
}

func (vm *VM) execListGetIdx() (InterpretResult, bool) {
	idxVal := vm.peek(0)
	listVal := vm.peek(1)
	list, ok := asList(listVal)
	if !ok {
		return vm.abort("Can only index lists."), false
	}
	if !idxVal.IsNumber() {
		return vm.abort("List index must be a number."), false
	}
	idx := int(idxVal.AsNumber())
	if idx < 0 || idx >= len(list.Items) {
		return vm.abort("List index out of range."), false
	}
	vm.pop()
	vm.pop()
	vm.push(list.Items[idx])
	return InterpretOK, true
}

func (vm *VM) execListSetIdx() (InterpretResult, bool) {
	value := vm.peek(0)
	idxVal := vm.peek(1)
	listVal := vm.peek(2)
	list, ok := asList(listVal)
	if !ok {
		return vm.abort("Can only index lists."), false
	}
	if !idxVal.IsNumber() {
		return vm.abort("List index must be a number."), false
	}
	idx := int(idxVal.AsNumber())
	if idx < 0 || idx >= len(list.Items) {
		return vm.abort("List index out of range."), false
	}
	list.Items[idx] = value
	vm.pop()
	vm.pop()
	vm.pop()
	vm.push(value)
	return InterpretOK, true
}
