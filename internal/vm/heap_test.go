package vm

import (
	"testing"

	"github.com/willow-lang/willow/internal/bytecode"
)

// countHeap walks the VM's heap list and returns how many objects are
// currently linked, regardless of mark state.
func countHeap(vm *VM) int {
	n := 0
	for o := vm.objects; o != nil; o = o.Head().Next {
		n++
	}
	return n
}

func TestCollectGarbageReclaimsUnreachableObjects(t *testing.T) {
	machine := New()

	// Allocate a class with no root anywhere: nothing keeps it reachable.
	name := machine.InternString("Orphan")
	class := machine.NewClass(name)
	_ = class

	before := countHeap(machine)
	machine.collectGarbage()
	after := countHeap(machine)

	if after >= before {
		t.Fatalf("collectGarbage did not shrink the heap: before=%d after=%d", before, after)
	}
}

func TestCollectGarbageKeepsValueReachableFromStack(t *testing.T) {
	machine := New()
	name := machine.InternString("Kept")
	class := machine.NewClass(name)
	machine.push(bytecode.ObjectValue(class))

	machine.collectGarbage()

	if machine.peek(0).AsObject().(*bytecode.ObjClass) != class {
		t.Fatalf("collectGarbage corrupted a live stack value")
	}
	if class.Head().Marked {
		t.Fatalf("sweep should have cleared the mark bit on the survivor")
	}
	machine.pop()
}

func TestCollectGarbageKeepsValueReachableFromGlobals(t *testing.T) {
	machine := New()
	name := machine.InternString("g")
	instance := machine.NewInstance(machine.NewClass(machine.InternString("C")))
	machine.globals.Set(name, bytecode.ObjectValue(instance))

	machine.collectGarbage()

	v, ok := machine.globals.Get(name)
	if !ok {
		t.Fatalf("global entry lost across collection")
	}
	if v.AsObject().(*bytecode.ObjInstance) != instance {
		t.Fatalf("global value changed identity across collection")
	}
}

func TestCollectGarbageMarksOpenUpvalues(t *testing.T) {
	machine := New()
	machine.push(bytecode.Number(42))
	slot := &machine.stack[machine.stackTop-1]
	uv := machine.captureUpvalue(slot)

	machine.collectGarbage()

	if !countSurvives(machine, uv) {
		t.Fatalf("open upvalue rooted via openUpvalues did not survive collection")
	}
}

func countSurvives(vm *VM, target bytecode.Obj) bool {
	for o := vm.objects; o != nil; o = o.Head().Next {
		if o == target {
			return true
		}
	}
	return false
}

func TestRemoveWhiteKeysDropsUnreferencedInternedStrings(t *testing.T) {
	machine := New()
	s := machine.InternString("ephemeral")

	machine.collectGarbage()

	if _, ok := machine.strings.Get(s); ok {
		t.Fatalf("intern table kept a string with no other reference after collection")
	}

	again := machine.InternString("ephemeral")
	if again == s {
		t.Fatalf("expected a fresh allocation after the old one was collected")
	}
}
