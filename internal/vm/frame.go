package vm

import "github.com/willow-lang/willow/internal/bytecode"

const (
	// FramesMax bounds the call-frame stack. Exceeding it is a runtime
	// error ("stack overflow"), not a panic.
	FramesMax = 256

	// StackMax bounds the value stack: exactly FramesMax*256, so every
	// frame can use up to 256 slots for its callee, arguments, locals
	// and temporaries.
	StackMax = FramesMax * 256
)

// CallFrame is one activation record: which closure is running, where
// its instruction pointer is within that closure's function's code, and
// where its stack window begins. slots[0] is the callee (or, for a
// method, the receiver); slots[1:] are arguments followed by locals and
// temporaries.
type CallFrame struct {
	Closure *bytecode.ObjClosure
	IP      int
	Slots   int // base index into vm.stack
}
