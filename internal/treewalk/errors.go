package treewalk

import (
	"fmt"

	"github.com/kristofer/glox/internal/token"
)

// RuntimeError is a tree-walking-interpreter runtime fault tied to the
// token whose evaluation triggered it, the counterpart of
// internal/vm.RuntimeError on the bytecode back-end. Both back-ends
// report runtime failures in the same "[line N] message" shape so the
// six end-to-end scenarios in spec §8 produce identical output
// regardless of which back-end ran them.
type RuntimeError struct {
	Token   token.Token
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("[line %d] %s", e.Token.Line, e.Message)
}

func runtimeErrorf(tok token.Token, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Token: tok, Message: fmt.Sprintf(format, args...)}
}

// returnSignal unwinds the Go call stack back to the function.call that
// is executing the body containing a `return` statement. It is not a
// user-visible error: executeBlock/call intercept it and never let it
// escape to a caller expecting a real runtime fault.
type returnSignal struct {
	value interface{}
}

func (r *returnSignal) Error() string { return "return" }
