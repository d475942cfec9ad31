package vm

import "github.com/willow-lang/willow/internal/bytecode"

// The NewXxx helpers below are the only way to obtain a heap object from
// outside this file: each one constructs the object via the bytecode
// package's bare constructor and immediately registers it with the heap,
// which is where allocation accounting and the GC threshold check
// happen. None of these push the result onto the value stack themselves
// — callers that don't immediately install the result somewhere
// persistent (a local slot, a field, a global) must push it before
// making any further allocation, per the transient-root protocol.

func (vm *VM) NewFunction() *bytecode.ObjFunction {
	fn := bytecode.NewObjFunction()
	vm.registerObject(fn)
	return fn
}

func (vm *VM) NewClosure(fn *bytecode.ObjFunction) *bytecode.ObjClosure {
	c := bytecode.NewObjClosure(fn)
	vm.registerObject(c)
	return c
}

func (vm *VM) NewUpvalue(slot *bytecode.Value) *bytecode.ObjUpvalue {
	u := bytecode.NewObjUpvalue(slot)
	vm.registerObject(u)
	return u
}

func (vm *VM) NewClass(name *bytecode.ObjString) *bytecode.ObjClass {
	c := bytecode.NewObjClass(name)
	vm.registerObject(c)
	return c
}

func (vm *VM) NewInstance(class *bytecode.ObjClass) *bytecode.ObjInstance {
	i := bytecode.NewObjInstance(class)
	vm.registerObject(i)
	return i
}

func (vm *VM) NewBoundMethod(receiver bytecode.Value, method *bytecode.ObjClosure) *bytecode.ObjBoundMethod {
	b := bytecode.NewObjBoundMethod(receiver, method)
	vm.registerObject(b)
	return b
}

func (vm *VM) NewNative(name string, fn bytecode.NativeFn) *bytecode.ObjNative {
	n := bytecode.NewObjNative(name, fn)
	vm.registerObject(n)
	return n
}

func (vm *VM) NewList() *bytecode.ObjList {
	l := bytecode.NewObjList()
	vm.registerObject(l)
	return l
}

// PushCompilerRoot registers fn as a GC root for the duration of
// compilation, covering the function currently being compiled and its
// chain of enclosing functions. PopCompilerRoot unregisters it. The
// compiler is expected to push/pop these around each nested function it
// descends into.
func (vm *VM) PushCompilerRoot(fn *bytecode.ObjFunction) {
	vm.compilerRoots = append(vm.compilerRoots, fn)
}

func (vm *VM) PopCompilerRoot() {
	vm.compilerRoots = vm.compilerRoots[:len(vm.compilerRoots)-1]
}
