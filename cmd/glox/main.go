// Command glox is the two-back-end Lox interpreter's CLI entry point:
// it adapts the teacher's flag-switch cmd/smog/main.go into
// github.com/spf13/cobra subcommands (run, repl, compile, disasm,
// version), the same run/compile/disassemble/repl command set smog
// exposes, widened with the --ast flag that picks the tree-walking
// back-end instead of the bytecode VM (SPEC_FULL.md §C.2) and exit
// codes that distinguish usage, compile-time, input, and runtime
// failures (spec §6.1).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kristofer/glox/internal/chunk"
	"github.com/kristofer/glox/internal/compiler"
	"github.com/kristofer/glox/internal/loxc"
	"github.com/kristofer/glox/internal/repl"
	"github.com/kristofer/glox/internal/treewalk"
	"github.com/kristofer/glox/internal/vm"
)

// Exit codes, spec §6.1.
const (
	exitOK      = 0
	exitUsage   = 64
	exitCompile = 65
	exitInput   = 66
	exitRuntime = 70
)

// exitError carries the process exit code a failure should produce
// through cobra's error-returning RunE, since cobra itself only knows
// how to print an error and exit 1.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageErr(format string, args ...interface{}) error {
	return &exitError{code: exitUsage, err: fmt.Errorf(format, args...)}
}

func inputErr(format string, args ...interface{}) error {
	return &exitError{code: exitInput, err: fmt.Errorf(format, args...)}
}

func compileErr(err error) error {
	return &exitError{code: exitCompile, err: err}
}

func runtimeErr(err error) error {
	return &exitError{code: exitRuntime, err: err}
}

var (
	version = "0.1.0"

	flagTrace bool
	flagAST   bool
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		code := 1
		var ee *exitError
		if errAs(err, &ee) {
			code = ee.code
		}
		os.Exit(code)
	}
}

// errAs is a tiny errors.As wrapper kept local so main doesn't need to
// import "errors" just for this one call site.
func errAs(err error, target **exitError) bool {
	for err != nil {
		if e, ok := err.(*exitError); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "glox",
		Short:         "glox - a Lox interpreter with bytecode and tree-walking back-ends",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return runFile(cmd, args[0])
			}
			return repl.Run(repl.Options{AST: flagAST, Trace: flagTrace, Out: os.Stdout})
		},
	}
	root.PersistentFlags().BoolVar(&flagTrace, "trace", false, "enable the bytecode VM's instruction trace")
	root.PersistentFlags().BoolVar(&flagAST, "ast", false, "use the tree-walking back-end instead of the bytecode VM")

	root.AddCommand(newRunCmd(), newReplCmd(), newCompileCmd(), newDisasmCmd(), newGlobalsCmd(), newVersionCmd())
	return root
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "Run a .lox source file or a precompiled .loxc file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(cmd, args[0])
		},
	}
}

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive read-eval-print loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return repl.Run(repl.Options{AST: flagAST, Trace: flagTrace, Out: os.Stdout})
		},
	}
}

func newCompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile <input.lox> [output.loxc]",
		Short: "Compile a .lox source file to a precompiled .loxc file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := args[0]
			if filepath.Ext(in) != ".lox" {
				return inputErr("glox compile: expected a .lox source file, got %q", in)
			}
			src, err := os.ReadFile(in)
			if err != nil {
				return inputErr("glox compile: %v", err)
			}

			interner := chunk.NewInterner()
			fn, err := compiler.Compile(string(src), interner)
			if err != nil {
				return compileErr(err)
			}

			out := args[1:]
			outPath := strings.TrimSuffix(in, ".lox") + ".loxc"
			if len(out) == 1 {
				outPath = out[0]
			}

			f, err := os.Create(outPath)
			if err != nil {
				return inputErr("glox compile: %v", err)
			}
			defer f.Close()
			if err := loxc.Encode(fn, f); err != nil {
				return runtimeErr(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
			return nil
		},
	}
}

func newDisasmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <file>",
		Short: "Disassemble a .lox or .loxc file to human-readable bytecode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fn, err := loadFunction(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), chunk.Disassemble(fn))
			return nil
		},
	}
}

func newGlobalsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "globals <file>",
		Short: "Run a .lox or .loxc file, then list the global variables it defined",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			ext := filepath.Ext(path)
			if ext != ".lox" && ext != ".loxc" {
				return inputErr("glox globals: unrecognized file extension %q (expected .lox or .loxc)", ext)
			}

			interner := chunk.NewInterner()
			var fn *chunk.Function
			switch ext {
			case ".lox":
				src, err := os.ReadFile(path)
				if err != nil {
					return inputErr("glox globals: %v", err)
				}
				fn, err = compiler.Compile(string(src), interner)
				if err != nil {
					return compileErr(err)
				}
			case ".loxc":
				f, err := os.Open(path)
				if err != nil {
					return inputErr("glox globals: %v", err)
				}
				defer f.Close()
				fn, err = loxc.Decode(f, interner)
				if err != nil {
					return inputErr("glox globals: %v", err)
				}
			}

			machine := vm.NewWithOutput(interner, cmd.OutOrStdout())
			if err := machine.Interpret(fn); err != nil {
				return runtimeErr(err)
			}
			for _, name := range machine.GlobalNames() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the glox version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "glox version %s\n", version)
			return nil
		},
	}
}

// runFile runs a .lox or .loxc file with the back-end selected by
// --ast/--trace, mapping every failure to the exit code spec §6.1
// assigns it.
func runFile(cmd *cobra.Command, path string) error {
	ext := filepath.Ext(path)
	if ext != ".lox" && ext != ".loxc" {
		return inputErr("glox run: unrecognized file extension %q (expected .lox or .loxc)", ext)
	}

	if flagAST {
		if ext == ".loxc" {
			return usageErr("glox run: --ast cannot run a precompiled .loxc file")
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return inputErr("glox run: %v", err)
		}
		interp := treewalk.NewInterpreter()
		if err := treewalk.Run(string(src), interp); err != nil {
			if isRuntimeErr(err) {
				return runtimeErr(err)
			}
			return compileErr(err)
		}
		return nil
	}

	interner := chunk.NewInterner()
	var fn *chunk.Function
	switch ext {
	case ".lox":
		src, rerr := os.ReadFile(path)
		if rerr != nil {
			return inputErr("glox run: %v", rerr)
		}
		var cerr error
		fn, cerr = compiler.Compile(string(src), interner)
		if cerr != nil {
			return compileErr(cerr)
		}
	case ".loxc":
		f, oerr := os.Open(path)
		if oerr != nil {
			return inputErr("glox run: %v", oerr)
		}
		defer f.Close()
		var derr error
		fn, derr = loxc.Decode(f, interner)
		if derr != nil {
			return inputErr("glox run: %v", derr)
		}
	}

	machine := vm.NewWithOutput(interner, cmd.OutOrStdout())
	machine.SetTraceLevel(flagTrace)
	if err := machine.Interpret(fn); err != nil {
		return runtimeErr(err)
	}
	return nil
}

// loadFunction compiles a .lox file or decodes a .loxc file into a
// *chunk.Function, for glox disasm (string identity across runs
// doesn't matter there, unlike the run/compile paths' shared interner).
func loadFunction(path string) (*chunk.Function, error) {
	ext := filepath.Ext(path)
	switch ext {
	case ".lox":
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, inputErr("glox: %v", err)
		}
		fn, err := compiler.Compile(string(src), chunk.NewInterner())
		if err != nil {
			return nil, compileErr(err)
		}
		return fn, nil
	case ".loxc":
		f, err := os.Open(path)
		if err != nil {
			return nil, inputErr("glox: %v", err)
		}
		defer f.Close()
		fn, err := loxc.Decode(f, chunk.NewInterner())
		if err != nil {
			return nil, inputErr("glox: %v", err)
		}
		return fn, nil
	default:
		return nil, inputErr("glox: unrecognized file extension %q (expected .lox or .loxc)", ext)
	}
}

func isRuntimeErr(err error) bool {
	_, ok := err.(*treewalk.RuntimeError)
	return ok
}
