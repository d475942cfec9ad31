package vm

import (
	"unsafe"

	"github.com/willow-lang/willow/internal/bytecode"
)

// gcGrowFactor is how much the next collection threshold grows relative
// to the live bytes measured right after the current collection.
const gcGrowFactor = 2

// gcInitialThreshold is the first nextGC value, chosen generously so
// small scripts never collect at all. WithGCStress bypasses it entirely.
const gcInitialThreshold = 1 << 20

// objSize estimates an object's heap footprint for the allocation-size
// threshold. It does not need to be exact, only monotonic with the
// object's real size, since it only drives when a GC cycle runs.
func objSize(o bytecode.Obj) int {
	switch v := o.(type) {
	case *bytecode.ObjString:
		return int(unsafe.Sizeof(*v)) + len(v.Chars)
	case *bytecode.ObjFunction:
		return int(unsafe.Sizeof(*v))
	case *bytecode.ObjClosure:
		return int(unsafe.Sizeof(*v)) + len(v.Upvalues)*int(unsafe.Sizeof((*bytecode.ObjUpvalue)(nil)))
	case *bytecode.ObjUpvalue:
		return int(unsafe.Sizeof(*v))
	case *bytecode.ObjClass:
		return int(unsafe.Sizeof(*v))
	case *bytecode.ObjInstance:
		return int(unsafe.Sizeof(*v))
	case *bytecode.ObjBoundMethod:
		return int(unsafe.Sizeof(*v))
	case *bytecode.ObjNative:
		return int(unsafe.Sizeof(*v))
	case *bytecode.ObjList:
		return int(unsafe.Sizeof(*v)) + len(v.Items)*int(unsafe.Sizeof(bytecode.Value{}))
	default:
		return int(unsafe.Sizeof(o))
	}
}

// registerObject appends a freshly-constructed object to the VM's heap
// list, accounts for its size, and — the allocate() contract from the
// spec — triggers a full GC cycle first if doing so would (or, in stress
// mode, unconditionally) push bytes_allocated past next_gc.
//
// registerObject holds o on the value stack for the duration of any
// collection it triggers, so o always survives its own allocation. Once
// it returns, an object that isn't yet reachable from a persistent root
// (global, local slot, upvalue, ...) must be pushed onto the value stack
// by the caller before any further allocation.
func (vm *VM) registerObject(o bytecode.Obj) {
	// Link into the heap list before checking the threshold, so a
	// collection triggered by this very allocation sees o and, with o
	// rooted on the stack, keeps it and clears its mark like any other
	// survivor.
	o.Head().Next = vm.objects
	vm.objects = o

	size := objSize(o)
	vm.bytesAllocated += size
	if vm.gcStress || vm.bytesAllocated > vm.nextGC {
		vm.push(bytecode.ObjectValue(o))
		vm.collectGarbage()
		vm.pop()
	}
}

// markValue marks v's referenced object, if it has one.
func (vm *VM) markValue(v bytecode.Value) {
	if v.IsObject() {
		vm.markObject(v.AsObject())
	}
}

// markObject marks o gray (pushing it onto the worklist) unless it's
// already marked, implementing the white -> gray transition.
func (vm *VM) markObject(o bytecode.Obj) {
	if o == nil {
		return
	}
	// Absent optional references (a script function's Name, initString
	// before New sets it, a closure's not-yet-filled upvalue slots)
	// arrive as typed nil pointers, which the check above doesn't catch.
	if s, ok := o.(*bytecode.ObjString); ok && s == nil {
		return
	}
	if u, ok := o.(*bytecode.ObjUpvalue); ok && u == nil {
		return
	}
	h := o.Head()
	if h.Marked {
		return
	}
	h.Marked = true
	vm.grayStack = append(vm.grayStack, o)
}

// markRoots pushes every root onto the gray worklist: the live portion
// of the value stack, every active frame's closure, every open upvalue,
// both keys and values of the globals table, the "init" method name, and
// — while a Compile call is in progress — the chain of functions
// currently being compiled.
func (vm *VM) markRoots() {
	for i := 0; i < vm.stackTop; i++ {
		vm.markValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		vm.markObject(vm.frames[i].Closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.NextOpen {
		vm.markObject(uv)
	}
	vm.globals.Each(func(key *bytecode.ObjString, value bytecode.Value) {
		vm.markObject(key)
		vm.markValue(value)
	})
	vm.markObject(vm.initString)
	for _, root := range vm.compilerRoots {
		vm.markObject(root)
	}
}

// blackenObject visits every object reference o holds, marking each one
// gray in turn. Once this returns, o is fully black.
func (vm *VM) blackenObject(o bytecode.Obj) {
	switch v := o.(type) {
	case *bytecode.ObjString, *bytecode.ObjNative:
		// no outgoing references
	case *bytecode.ObjUpvalue:
		vm.markValue(v.Get())
	case *bytecode.ObjFunction:
		vm.markObject(v.Name)
		for _, c := range v.Chunk.Constants {
			vm.markValue(c)
		}
	case *bytecode.ObjClosure:
		vm.markObject(v.Function)
		for _, uv := range v.Upvalues {
			vm.markObject(uv)
		}
	case *bytecode.ObjClass:
		vm.markObject(v.Name)
		v.Methods.Each(func(key *bytecode.ObjString, value bytecode.Value) {
			vm.markObject(key)
			vm.markValue(value)
		})
	case *bytecode.ObjInstance:
		vm.markObject(v.Class)
		v.Fields.Each(func(key *bytecode.ObjString, value bytecode.Value) {
			vm.markObject(key)
			vm.markValue(value)
		})
	case *bytecode.ObjBoundMethod:
		vm.markValue(v.Receiver)
		vm.markObject(v.Method)
	case *bytecode.ObjList:
		for _, item := range v.Items {
			vm.markValue(item)
		}
	}
}

// traceReferences drains the gray worklist, blackening each object as it
// is popped, until every reachable object is black.
func (vm *VM) traceReferences() {
	for len(vm.grayStack) > 0 {
		o := vm.grayStack[len(vm.grayStack)-1]
		vm.grayStack = vm.grayStack[:len(vm.grayStack)-1]
		vm.blackenObject(o)
	}
}

// sweep walks the heap list, unlinking and dropping every object that
// didn't get marked during this cycle, and clears the mark bit on every
// survivor so the next cycle starts from all-white again.
func (vm *VM) sweep() {
	var previous bytecode.Obj
	obj := vm.objects
	for obj != nil {
		h := obj.Head()
		if h.Marked {
			h.Marked = false
			previous = obj
			obj = h.Next
			continue
		}
		unreached := obj
		obj = h.Next
		if previous != nil {
			previous.Head().Next = obj
		} else {
			vm.objects = obj
		}
		vm.bytesAllocated -= objSize(unreached)
	}
}

// collectGarbage runs one full tri-color mark-sweep cycle: mark roots,
// trace until the gray set is empty, drop intern-table entries for
// strings that didn't survive marking, then sweep the heap list.
func (vm *VM) collectGarbage() {
	before := vm.bytesAllocated
	vm.markRoots()
	vm.traceReferences()
	vm.strings.RemoveWhiteKeys()
	vm.sweep()
	vm.nextGC = vm.bytesAllocated * gcGrowFactor
	if vm.nextGC < gcInitialThreshold {
		vm.nextGC = gcInitialThreshold
	}
	vm.gcCycles++
	vm.logGC(before-vm.bytesAllocated, before, vm.bytesAllocated, vm.nextGC)
}
