package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/willow-lang/willow/internal/compiler"
	"github.com/willow-lang/willow/internal/parser"
	"github.com/willow-lang/willow/internal/vm"
)

// runREPL starts an interactive session: one persistent VM carries
// globals and heap state across inputs, so a variable or function
// declared on one line remains visible to the next.
func runREPL() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "willow> ",
		HistoryFile:     "",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Printf("willow %s\n", version)
	fmt.Println("Type 'exit' or Ctrl-D to quit.")

	log := newLogger()
	machine := vm.New(vm.WithLogger(log), vm.WithTrace(traceFlag))

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		evalREPL(machine, line)
	}
}

// evalREPL parses, compiles, and runs one line of input against the
// REPL's persistent VM. Parse, compile, and runtime errors are printed
// but never terminate the session.
func evalREPL(machine *vm.VM, input string) {
	p := parser.New(input)
	program, err := p.Parse()
	if err != nil {
		fmt.Println(err)
		for _, e := range p.Errors() {
			fmt.Println(" ", e)
		}
		return
	}

	fn, err := compiler.Compile(machine, program)
	if err != nil {
		fmt.Println(err)
		return
	}

	result := machine.Interpret(fn)
	if result == vm.InterpretRuntimeError {
		if perr := machine.PendingError(); perr != nil {
			fmt.Println(perr)
		}
	}
}
