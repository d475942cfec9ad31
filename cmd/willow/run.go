package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/willow-lang/willow/internal/bytecode"
	"github.com/willow-lang/willow/internal/compiler"
	"github.com/willow-lang/willow/internal/parser"
	"github.com/willow-lang/willow/internal/vm"
)

// runFile reads, parses, compiles, and executes a single willow source
// file, reporting compile errors, runtime errors, and (with --gc-trace)
// collector statistics on the configured streams.
func runFile(filename string) error {
	source, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrapf(err, "reading %s", filename)
	}

	log := newLogger()
	p := parser.New(string(source))
	program, err := p.Parse()
	if err != nil {
		for _, e := range p.Errors() {
			fmt.Fprintln(os.Stderr, e)
		}
		return errors.Wrap(err, "parse error")
	}

	machine := vm.New(
		vm.WithLogger(log),
		vm.WithTrace(traceFlag),
		vm.WithGCStress(gcStressFlag),
	)

	fn, err := compiler.Compile(machine, program)
	if err != nil {
		return errors.Wrap(err, "compile error")
	}

	result := machine.Interpret(fn)
	if gcTraceFlag {
		stats := machine.Stats()
		log.Infof("gc: %d cycles, %d bytes allocated, next at %d", stats.Cycles, stats.BytesAllocated, stats.NextGC)
	}
	if result == vm.InterpretRuntimeError {
		if perr := machine.PendingError(); perr != nil {
			return errors.Wrap(perr, "runtime error")
		}
		return errors.New("runtime error")
	}
	return nil
}

// disassembleFile compiles a source file and prints its bytecode without
// executing it, one "== name ==" section per function and nested method.
func disassembleFile(filename string) error {
	source, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrapf(err, "reading %s", filename)
	}

	p := parser.New(string(source))
	program, err := p.Parse()
	if err != nil {
		for _, e := range p.Errors() {
			fmt.Fprintln(os.Stderr, e)
		}
		return errors.Wrap(err, "parse error")
	}

	machine := vm.New()
	fn, err := compiler.Compile(machine, program)
	if err != nil {
		return errors.Wrap(err, "compile error")
	}

	name := fn.Name
	if name == nil {
		fmt.Print(vm.Disassemble(fn.Chunk, "<script>"))
	} else {
		fmt.Print(vm.Disassemble(fn.Chunk, name.Chars))
	}
	disassembleNested(fn.Chunk)
	return nil
}

// disassembleNested walks a chunk's constant pool and recursively prints
// the chunks of any nested ObjFunction constants, since OpClosure
// references land there rather than in a flat function table.
func disassembleNested(chunk *bytecode.Chunk) {
	for _, c := range chunk.Constants {
		fn, ok := c.AsObject().(*bytecode.ObjFunction)
		if !ok {
			continue
		}
		name := "<anonymous>"
		if fn.Name != nil {
			name = fn.Name.Chars
		}
		fmt.Print(vm.Disassemble(fn.Chunk, name))
		disassembleNested(fn.Chunk)
	}
}
