// Command willow is the willow language's command-line entry point: run
// scripts, disassemble compiled chunks, or drop into an interactive REPL.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	traceFlag    bool
	gcStressFlag bool
	gcTraceFlag  bool
	logLevel     string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "willow",
		Short:   "willow - a dynamically-typed, class-based scripting language",
		Version: version,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newReplCmd())
	root.AddCommand(newDisassembleCmd())
	root.AddCommand(newVersionCmd())
	return root
}

const version = "0.1.0"

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.WarnLevel
	}
	log.SetLevel(level)
	return log
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Compile and execute a willow source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(args[0])
		},
	}
	cmd.Flags().BoolVar(&traceFlag, "trace", false, "log each executed instruction and the stack before it")
	cmd.Flags().BoolVar(&gcStressFlag, "gc-stress", false, "run a full collection before every allocation")
	cmd.Flags().BoolVar(&gcTraceFlag, "gc-trace", false, "report collection statistics on exit")
	return cmd
}

func newReplCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive read-eval-print loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL()
		},
	}
	cmd.Flags().BoolVar(&traceFlag, "trace", false, "log each executed instruction and the stack before it")
	return cmd
}

func newDisassembleCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "disassemble <file>",
		Aliases: []string{"disasm"},
		Short:   "Compile a willow source file and print its bytecode",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return disassembleFile(args[0])
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the willow version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("willow version " + version)
		},
	}
}
