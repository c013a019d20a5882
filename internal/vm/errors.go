package vm

import (
	"fmt"
	"strings"
)

// Frame is one entry in a RuntimeError's captured call stack: the
// function active and the source line it was executing, innermost call
// first. Grounded on the teacher's pkg/vm/errors.go StackFrame, trimmed
// to the fields the bytecode VM actually has available (no selector/IP —
// those are the teacher's message-send model, not Lox's).
type Frame struct {
	Name string
	Line int
}

// RuntimeError is a Lox runtime failure (spec §4.3, "Runtime error
// reporting"): a formatted message plus the call stack active when it
// was raised, innermost frame first.
type RuntimeError struct {
	Message string
	Stack   []Frame
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[line %d] %s", e.line(), e.Message)
	for _, f := range e.Stack {
		name := f.Name
		if name == "" {
			name = "script"
		}
		fmt.Fprintf(&b, "\n[line %d] in %s", f.Line, name)
	}
	return b.String()
}

func (e *RuntimeError) line() int {
	if len(e.Stack) == 0 {
		return 0
	}
	return e.Stack[0].Line
}

func runtimeErrorf(format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Message: fmt.Sprintf(format, args...)}
}
