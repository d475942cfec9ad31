package vm

import "github.com/willow-lang/willow/internal/bytecode"

// InternString returns the canonical ObjString for chars, allocating and
// registering a new one only if this content hasn't been seen before.
// After interning, two strings built from equal content are
// pointer-identical, which is the invariant string equality relies on.
func (vm *VM) InternString(chars string) *bytecode.ObjString {
	hash := bytecode.FNV1a32(chars)
	if existing := vm.strings.FindString(chars, hash); existing != nil {
		return existing
	}
	s := bytecode.NewObjString(chars, hash)
	// The new string must be reachable before the table insert below can
	// allocate (grow) and possibly trigger a GC; pushing is the
	// transient-root protocol applied to an object not yet on the stack.
	vm.push(bytecode.ObjectValue(s))
	vm.registerObject(s)
	vm.strings.Set(s, bytecode.Nil)
	vm.pop()
	return s
}
