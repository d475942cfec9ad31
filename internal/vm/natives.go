package vm

import (
	"time"

	"github.com/willow-lang/willow/internal/bytecode"
)

// defineNatives registers the four native functions the spec allows:
// clock, length, append, and delete. No other host-facing stdlib surface
// is exposed — willow has no module system and no standard library
// beyond these.
func (vm *VM) defineNatives() {
	vm.DefineNative("clock", nativeClock)
	vm.DefineNative("length", nativeLength)
	vm.DefineNative("append", nativeAppend)
	vm.DefineNative("delete", nativeDelete)
}

// DefineNative registers fn under name in the globals table, as a
// NativeFunction object. define_native in the spec's vocabulary.
func (vm *VM) DefineNative(name string, fn bytecode.NativeFn) {
	nameStr := vm.InternString(name)
	// Root the name across the native's allocation, which can collect.
	vm.push(bytecode.ObjectValue(nameStr))
	native := vm.NewNative(name, fn)
	vm.globals.Set(nameStr, bytecode.ObjectValue(native))
	vm.pop()
}

func nativeClock(nv bytecode.NativeVM, args []bytecode.Value) (bytecode.Value, bool) {
	if len(args) != 0 {
		nv.RuntimeError("clock() expects 0 arguments, got %d", len(args))
		return bytecode.Nil, false
	}
	return bytecode.Number(time.Since(processStart).Seconds()), true
}

func asList(v bytecode.Value) (*bytecode.ObjList, bool) {
	if !v.IsObject() {
		return nil, false
	}
	l, ok := v.AsObject().(*bytecode.ObjList)
	return l, ok
}

func nativeLength(nv bytecode.NativeVM, args []bytecode.Value) (bytecode.Value, bool) {
	if len(args) != 1 {
		nv.RuntimeError("length() expects 1 argument, got %d", len(args))
		return bytecode.Nil, false
	}
	list, ok := asList(args[0])
	if !ok {
		nv.RuntimeError("length() expects a list")
		return bytecode.Nil, false
	}
	return bytecode.Number(float64(len(list.Items))), true
}

func nativeAppend(nv bytecode.NativeVM, args []bytecode.Value) (bytecode.Value, bool) {
	if len(args) != 2 {
		nv.RuntimeError("append() expects 2 arguments, got %d", len(args))
		return bytecode.Nil, false
	}
	list, ok := asList(args[0])
	if !ok {
		nv.RuntimeError("append() expects a list as its first argument")
		return bytecode.Nil, false
	}
	list.Items = append(list.Items, args[1])
	return bytecode.Nil, true
}

func nativeDelete(nv bytecode.NativeVM, args []bytecode.Value) (bytecode.Value, bool) {
	if len(args) != 2 {
		nv.RuntimeError("delete() expects 2 arguments, got %d", len(args))
		return bytecode.Nil, false
	}
	list, ok := asList(args[0])
	if !ok {
		nv.RuntimeError("delete() expects a list as its first argument")
		return bytecode.Nil, false
	}
	if !args[1].IsNumber() {
		nv.RuntimeError("delete() expects a numeric index")
		return bytecode.Nil, false
	}
	idx := int(args[1].AsNumber())
	if idx < 0 || idx >= len(list.Items) {
		nv.RuntimeError("delete() index out of range")
		return bytecode.Nil, false
	}
	copy(list.Items[idx:], list.Items[idx+1:])
	list.Items = list.Items[:len(list.Items)-1]
	return bytecode.Nil, true
}
