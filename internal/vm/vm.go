// Package vm implements the willow bytecode virtual machine: the value
// and object model's owning allocator, the tri-color mark-sweep garbage
// collector, and the instruction decode/dispatch loop.
//
// Pipeline:
//
//	source -> lexer -> parser -> AST -> compiler -> Chunk -> VM -> execution
//
// The VM is a stack-based interpreter. Interpret wraps a compiled
// top-level Function in a Closure, installs it as the bottom call frame,
// and runs the dispatch loop to completion, a compile error, or a
// runtime error.
package vm

import (
	"io"
	"os"
	"time"

	"github.com/willow-lang/willow/internal/bytecode"
	"github.com/sirupsen/logrus"
)

// processStart anchors the clock() native's elapsed-time measurement.
var processStart = time.Now()

// InterpretResult is the three-way outcome interpret can produce.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

// VM is the willow virtual machine: one value stack, one call-frame
// stack, the heap it owns and traces, and the globals/intern tables
// rooted by that heap.
type VM struct {
	stack      [StackMax]bytecode.Value
	stackTop   int
	frames     [FramesMax]CallFrame
	frameCount int

	globals *bytecode.Table
	strings *bytecode.Table

	objects      bytecode.Obj
	openUpvalues *bytecode.ObjUpvalue

	bytesAllocated int
	nextGC         int
	gcCycles       int
	gcStress       bool
	grayStack      []bytecode.Obj
	compilerRoots  []bytecode.Obj

	initString *bytecode.ObjString

	stdout io.Writer
	stderr io.Writer
	log    *logrus.Logger
	trace  bool

	pendingErr error
}

// Option configures a VM at construction time.
type Option func(*VM)

// WithStdout overrides where PRINT/PRINTLN write (default os.Stdout).
func WithStdout(w io.Writer) Option { return func(vm *VM) { vm.stdout = w } }

// WithStderr overrides where runtime errors are reported (default os.Stderr).
func WithStderr(w io.Writer) Option { return func(vm *VM) { vm.stderr = w } }

// WithGCStress forces a full collection on every single allocation. Used
// by tests to validate the transient-root protocol at every allocation
// site, per the spec's testability notes.
func WithGCStress(enabled bool) Option { return func(vm *VM) { vm.gcStress = enabled } }

// New constructs a ready-to-use VM: empty stacks, fresh globals and
// intern tables, and the four native functions registered.
func New(opts ...Option) *VM {
	vm := &VM{
		globals: bytecode.NewTable(),
		strings: bytecode.NewTable(),
		nextGC:  gcInitialThreshold,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.initString = vm.InternString("init")
	vm.defineNatives()
	return vm
}

// GCStats summarizes the heap for diagnostics (willow run --gc-trace).
type GCStats struct {
	Cycles         int
	BytesAllocated int
	NextGC         int
}

func (vm *VM) Stats() GCStats {
	return GCStats{Cycles: vm.gcCycles, BytesAllocated: vm.bytesAllocated, NextGC: vm.nextGC}
}

// Interpret runs a top-level compiled function: wraps it in a closure,
// installs it as the bottom call frame, and executes until it returns,
// hits a runtime error, or (never, since compilation already happened)
// a compile error.
func (vm *VM) Interpret(fn *bytecode.ObjFunction) InterpretResult {
	vm.push(bytecode.ObjectValue(fn))
	closure := vm.NewClosure(fn)
	vm.pop()
	vm.push(bytecode.ObjectValue(closure))
	vm.callClosure(closure, 0)

	result := vm.run()
	return result
}

// push appends v to the value stack. The stack is a fixed-size array of
// StackMax slots; push does no bounds check of its own, so pushing past
// StackMax is a Go index-out-of-range panic. FramesMax frames of at most
// 256 slots each fit within StackMax.
func (vm *VM) push(v bytecode.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() bytecode.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) bytecode.Value {
	return vm.stack[vm.stackTop-1-distance]
}

// Global looks up a global by name, for host-side inspection (tests,
// REPL result printing).
func (vm *VM) Global(name string) (bytecode.Value, bool) {
	return vm.globals.Get(vm.InternString(name))
}

// PendingError returns the last error raised through RuntimeError, or
// nil. After Interpret returns InterpretRuntimeError it holds the error
// that aborted the script, for hosts (the CLI, tests) to report.
func (vm *VM) PendingError() error { return vm.pendingErr }
