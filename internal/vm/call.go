package vm

import (
	"unsafe"

	"github.com/willow-lang/willow/internal/bytecode"
)

// callClosure pushes a new CallFrame for closure, whose callee/receiver
// and argCount arguments already occupy the top argCount+1 stack slots.
// It enforces arity and the FramesMax call-depth limit.
func (vm *VM) callClosure(closure *bytecode.ObjClosure, argCount int) bool {
	if argCount != closure.Function.Arity {
		vm.RuntimeError("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
		return false
	}
	if vm.frameCount == FramesMax {
		vm.RuntimeError("Stack overflow.")
		return false
	}
	frame := &vm.frames[vm.frameCount]
	vm.frameCount++
	frame.Closure = closure
	frame.IP = 0
	frame.Slots = vm.stackTop - argCount - 1
	return true
}

// callValue implements the spec's CALL dispatch: the value at
// peek(argCount) is the callee. Closures get a new frame; bound methods
// rebind their receiver into slot 0 and call through; classes construct
// an instance and run init (if any); natives are invoked directly
// in-line, without a frame. Anything else is "Can only call functions
// and classes."
func (vm *VM) callValue(callee bytecode.Value, argCount int) bool {
	if !callee.IsObject() {
		vm.RuntimeError("Can only call functions and classes.")
		return false
	}
	switch obj := callee.AsObject().(type) {
	case *bytecode.ObjClosure:
		return vm.callClosure(obj, argCount)

	case *bytecode.ObjBoundMethod:
		vm.stack[vm.stackTop-argCount-1] = obj.Receiver
		return vm.callClosure(obj.Method, argCount)

	case *bytecode.ObjClass:
		instance := vm.NewInstance(obj)
		vm.stack[vm.stackTop-argCount-1] = bytecode.ObjectValue(instance)
		if initializer, ok := obj.Methods.Get(vm.initString); ok {
			return vm.callClosure(initializer.AsObject().(*bytecode.ObjClosure), argCount)
		}
		if argCount != 0 {
			vm.RuntimeError("Expected 0 arguments but got %d.", argCount)
			return false
		}
		return true

	case *bytecode.ObjNative:
		args := vm.stack[vm.stackTop-argCount : vm.stackTop]
		result, ok := obj.Fn(vm, args)
		vm.stackTop -= argCount + 1
		if !ok {
			return false
		}
		vm.push(result)
		return true

	default:
		vm.RuntimeError("Can only call functions and classes.")
		return false
	}
}

// invoke implements the INVOKE fast path: receiver at peek(argCount)
// must be an Instance. If name names a field holding a callable value,
// that value is called directly; otherwise name is looked up in the
// instance's class and called as a method with the instance as slot 0.
func (vm *VM) invoke(name *bytecode.ObjString, argCount int) bool {
	receiver := vm.peek(argCount)
	if !receiver.IsObject() {
		vm.RuntimeError("Only instances have methods.")
		return false
	}
	instance, ok := receiver.AsObject().(*bytecode.ObjInstance)
	if !ok {
		vm.RuntimeError("Only instances have methods.")
		return false
	}
	if field, ok := instance.Fields.Get(name); ok {
		vm.stack[vm.stackTop-argCount-1] = field
		return vm.callValue(field, argCount)
	}
	return vm.invokeFromClass(instance.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *bytecode.ObjClass, name *bytecode.ObjString, argCount int) bool {
	method, ok := class.Methods.Get(name)
	if !ok {
		vm.RuntimeError("Undefined property '%s'.", name.Chars)
		return false
	}
	return vm.callClosure(method.AsObject().(*bytecode.ObjClosure), argCount)
}

// bindMethod looks up name on class, binds it to receiver as a
// BoundMethod, and pushes the result. Used by GET_PROPERTY (method
// access on an instance) and GET_SUPER.
func (vm *VM) bindMethod(class *bytecode.ObjClass, name *bytecode.ObjString) bool {
	method, ok := class.Methods.Get(name)
	if !ok {
		vm.RuntimeError("Undefined property '%s'.", name.Chars)
		return false
	}
	closure := method.AsObject().(*bytecode.ObjClosure)
	receiver := vm.peek(0)
	bound := vm.NewBoundMethod(receiver, closure)
	vm.pop()
	vm.push(bytecode.ObjectValue(bound))
	return true
}

// captureUpvalue returns the Upvalue aliasing local, reusing an existing
// open upvalue for that exact slot if one is already in the
// descending-address-sorted open list, or inserting a new one in sorted
// position otherwise.
func (vm *VM) captureUpvalue(local *bytecode.Value) *bytecode.ObjUpvalue {
	var prev *bytecode.ObjUpvalue
	upvalue := vm.openUpvalues
	for upvalue != nil && upvalue.Location != nil && vm.slotIndex(upvalue.Location) > vm.slotIndex(local) {
		prev = upvalue
		upvalue = upvalue.NextOpen
	}
	if upvalue != nil && upvalue.Location == local {
		return upvalue
	}
	created := vm.NewUpvalue(local)
	created.NextOpen = upvalue
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// closeUpvalues closes every open upvalue whose slot is at or above
// last, transitioning each to own its value inline, and unlinks them
// from the open list.
func (vm *VM) closeUpvalues(last *bytecode.Value) {
	lastIdx := vm.slotIndex(last)
	for vm.openUpvalues != nil && vm.openUpvalues.Location != nil && vm.slotIndex(vm.openUpvalues.Location) >= lastIdx {
		uv := vm.openUpvalues
		uv.Close()
		vm.openUpvalues = uv.NextOpen
		uv.NextOpen = nil
	}
}

// slotIndex returns p's index within vm.stack, which is what "stack
// address" means for a VM whose stack is a single fixed array that never
// reallocates — pointers into it stay valid and orderable for the VM's
// whole lifetime.
func (vm *VM) slotIndex(p *bytecode.Value) int {
	base := unsafe.Pointer(&vm.stack[0])
	return int((uintptr(unsafe.Pointer(p)) - uintptr(base)) / unsafe.Sizeof(bytecode.Value{}))
}

// defineMethod pops a closure off the stack and installs it under name
// in the method table of the class sitting at peek(0).
func (vm *VM) defineMethod(name *bytecode.ObjString) {
	method := vm.peek(0)
	class := vm.peek(1).AsObject().(*bytecode.ObjClass)
	class.Methods.Set(name, method)
	vm.pop()
}
