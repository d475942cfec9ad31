package vm

import "github.com/sirupsen/logrus"

// WithLogger overrides the logrus logger used for GC and trace
// diagnostics (default logrus.StandardLogger()).
func WithLogger(l *logrus.Logger) Option { return func(vm *VM) { vm.log = l } }

// WithTrace enables per-instruction execution tracing: before each
// instruction dispatches, the current stack contents and disassembled
// instruction are logged at debug level (willow run --trace).
func WithTrace(enabled bool) Option { return func(vm *VM) { vm.trace = enabled } }

// logGC reports one completed collection cycle at debug level.
func (vm *VM) logGC(freed, before, after, next int) {
	if vm.log == nil {
		return
	}
	vm.log.Debugf("gc: collected %d bytes (%d -> %d), next at %d", freed, before, after, next)
}

// logTrace reports one dispatch-loop step (current stack, then the
// instruction about to run) at debug level. No-op unless vm.trace and a
// logger are both set.
func (vm *VM) logTrace(stack, instruction string) {
	if !vm.trace || vm.log == nil {
		return
	}
	vm.log.Debug(stack)
	vm.log.Debug(instruction)
}
