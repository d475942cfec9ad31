package vm

import (
	"testing"

	"github.com/willow-lang/willow/internal/bytecode"
)

func TestCaptureUpvalueReusesExistingForSameSlot(t *testing.T) {
	machine := New()
	machine.push(bytecode.Number(1))
	slot := &machine.stack[machine.stackTop-1]

	first := machine.captureUpvalue(slot)
	second := machine.captureUpvalue(slot)

	if first != second {
		t.Fatalf("captureUpvalue allocated a second Upvalue for the same stack slot")
	}
}

func TestCaptureUpvalueInsertsInDescendingSlotOrder(t *testing.T) {
	machine := New()
	machine.push(bytecode.Number(1))
	lower := &machine.stack[machine.stackTop-1]
	machine.push(bytecode.Number(2))
	upper := &machine.stack[machine.stackTop-1]

	// Capture the lower slot first, then the higher one, as the compiler
	// would when a closure captures an outer local before an inner one.
	uvLower := machine.captureUpvalue(lower)
	uvUpper := machine.captureUpvalue(upper)

	if machine.openUpvalues != uvUpper {
		t.Fatalf("expected the highest-address upvalue at the head of the open list")
	}
	if machine.openUpvalues.NextOpen != uvLower {
		t.Fatalf("open list is not sorted by descending slot address")
	}
}

func TestCloseUpvaluesDetachesClosedEntriesFromOpenList(t *testing.T) {
	machine := New()
	machine.push(bytecode.Number(10))
	a := &machine.stack[machine.stackTop-1]
	machine.push(bytecode.Number(20))
	b := &machine.stack[machine.stackTop-1]

	machine.captureUpvalue(a)
	uvB := machine.captureUpvalue(b)

	machine.closeUpvalues(b)

	if uvB.IsOpen() {
		t.Fatalf("upvalue at the closed boundary is still open")
	}
	if machine.openUpvalues == uvB {
		t.Fatalf("closed upvalue was not unlinked from the open list")
	}
	if machine.openUpvalues == nil || machine.openUpvalues.Location != a {
		t.Fatalf("closeUpvalues should have left the lower, not-yet-closed upvalue open")
	}
}

func TestCloseUpvaluesPreservesValueAfterStackSlotReused(t *testing.T) {
	machine := New()
	machine.push(bytecode.Number(99))
	slot := &machine.stack[machine.stackTop-1]
	uv := machine.captureUpvalue(slot)

	machine.closeUpvalues(slot)
	machine.pop()
	machine.push(bytecode.Number(-1)) // reuse the same physical slot

	if uv.Get().AsNumber() != 99 {
		t.Fatalf("closed upvalue did not retain its value once the stack slot was reused, got %v", uv.Get())
	}
}
