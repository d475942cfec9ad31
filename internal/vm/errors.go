// Package vm - error handling with stack traces.
package vm

import (
	"fmt"
	"strings"
)

// TraceFrame captures one frame of a runtime-error stack trace: where
// execution was when the frame was active.
type TraceFrame struct {
	Name string // function name, or "" for the top-level script frame
	Line int    // source line of the instruction that was executing
}

// RuntimeError describes the error that aborted a script. Interpret
// itself returns InterpretRuntimeError; the RuntimeError is available
// from PendingError afterwards. Its Error() formats the message
// followed by a stack trace, top frame first, matching the spec's "[line L] in <name>()" / "script" format.
type RuntimeError struct {
	Message string
	Trace   []TraceFrame
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for i := len(e.Trace) - 1; i >= 0; i-- {
		f := e.Trace[i]
		b.WriteByte('\n')
		if f.Name == "" {
			b.WriteString(fmt.Sprintf("[line %d] in script", f.Line))
		} else {
			b.WriteString(fmt.Sprintf("[line %d] in %s()", f.Line, f.Name))
		}
	}
	return b.String()
}

// RuntimeError records and returns a runtime error built from the
// current call-frame stack. It satisfies bytecode.NativeVM so native
// functions can raise errors through the same path the dispatch loop
// uses. The error is also stashed on the VM so the dispatch loop can
// propagate it once a native reports failure.
func (vm *VM) RuntimeError(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	trace := make([]TraceFrame, 0, vm.frameCount)
	for i := 0; i < vm.frameCount; i++ {
		frame := &vm.frames[i]
		line := 0
		if frame.IP-1 >= 0 && frame.IP-1 < len(frame.Closure.Function.Chunk.Lines) {
			line = frame.Closure.Function.Chunk.Lines[frame.IP-1]
		}
		name := ""
		if frame.Closure.Function.Name != nil {
			name = frame.Closure.Function.Name.Chars
		}
		trace = append(trace, TraceFrame{Name: name, Line: line})
	}
	err := &RuntimeError{Message: msg, Trace: trace}
	vm.pendingErr = err
	return err
}

// resetStack clears the value and frame stacks after a runtime error, as
// required by the spec's error-handling contract.
func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}
