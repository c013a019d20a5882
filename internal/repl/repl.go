// Package repl implements the interactive read-eval-print loop (spec
// §6.2, §7 "In interactive mode... error flags are cleared between
// lines"). It keeps one VM (or tree-walking Interpreter) alive across
// lines so globals, the interner, and declared functions/classes carry
// over between inputs, the same persistent-session design the teacher's
// own runREPL/evalREPL give cmd/smog — adapted here from a hand-rolled
// bufio.Scanner loop to github.com/chzyer/readline for history and line
// editing (SPEC_FULL.md §A, grounded on rami3l-golox's go.mod dependency
// on the same library).
package repl

import (
	"fmt"
	"io"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/chzyer/readline"
	"github.com/sirupsen/logrus"
	easy "github.com/t-tomalak/logrus-easy-formatter"

	"github.com/kristofer/glox/internal/chunk"
	"github.com/kristofer/glox/internal/compiler"
	"github.com/kristofer/glox/internal/treewalk"
	"github.com/kristofer/glox/internal/vm"
)

const prompt = "> "
const continuationPrompt = "... "

var banner = heredoc.Doc(`
	glox — a Lox interpreter (two back-ends: bytecode VM and tree-walker)
	Type an expression or statement; ` + "`exit`" + ` quits.
`)

// Options configures a REPL session.
type Options struct {
	AST   bool // use the tree-walking back-end instead of the bytecode VM
	Trace bool // enable the bytecode VM's instruction trace (ignored in AST mode)
	Out   io.Writer
}

// Run starts an interactive session against stdin/stdout, returning
// when the user types "exit" or sends EOF (spec §6.2, "Command `exit`
// terminates").
func Run(opts Options) error {
	rl, err := readline.New(prompt)
	if err != nil {
		return fmt.Errorf("repl: %w", err)
	}
	defer rl.Close()

	fmt.Fprint(opts.Out, banner)

	interner := chunk.NewInterner()
	machine := vm.NewWithOutput(interner, opts.Out)
	machine.SetTraceLevel(opts.Trace)
	interp := treewalk.NewInterpreterWithOutput(opts.Out)

	logger := logrus.New()
	logger.SetOutput(opts.Out)
	logger.SetFormatter(&easy.Formatter{LogFormat: "%msg%\n"})

	var buf strings.Builder
	depth := 0

	for {
		rl.SetPrompt(prompt)
		if buf.Len() > 0 {
			rl.SetPrompt(continuationPrompt)
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if buf.Len() == 0 {
				continue
			}
			buf.Reset()
			depth = 0
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if buf.Len() == 0 && strings.TrimSpace(line) == "exit" {
			return nil
		}

		depth += balanceDelta(line)
		buf.WriteString(line)
		buf.WriteString("\n")

		if depth > 0 {
			continue
		}
		depth = 0

		src := strings.TrimSpace(buf.String())
		buf.Reset()
		if src == "" {
			continue
		}

		if opts.AST {
			if err := treewalk.Run(src, interp); err != nil {
				logger.Error(err)
			}
			continue
		}

		fn, err := compiler.Compile(src, interner)
		if err != nil {
			logger.Error(err)
			continue
		}
		if err := machine.Interpret(fn); err != nil {
			logger.Error(err)
		}
	}
}

// balanceDelta scans one line of source for unclosed '(' / '{' nesting,
// so the REPL can keep reading continuation lines until a statement is
// balanced, rather than requiring every statement to fit on one line
// (SPEC_FULL.md §A: "the same multi-line-until-terminator structure...
// glox additionally buffers until a balanced statement"). It skips over
// string literals and line comments so a stray brace inside either
// doesn't miscount.
func balanceDelta(line string) int {
	delta := 0
	inString := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inString:
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			return delta
		case c == '(' || c == '{':
			delta++
		case c == ')' || c == '}':
			delta--
		}
	}
	return delta
}
