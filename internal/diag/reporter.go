// Package diag implements the shared diagnostics collaborator used by
// both the bytecode compiler and the tree-walking front end.
//
// The teacher's lineage (clox-derived sources in general, and this
// corpus's own rami3l-golox fragment, vm/compiler.go) keeps a single
// mutable "hadError" flag at module scope. spec §9 explicitly recasts
// that as "an explicit Reporter collaborator passed into the compiler;
// the compiler accumulates diagnostics and returns an error summary" — so
// Reporter is a value the compiler owns and passes around, never a
// package-level global.
package diag

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Diagnostic is a single compile-time error, already formatted per spec
// §4.2/§7: "[line N] Error at '<lexeme>' or at end: <message>".
type Diagnostic struct {
	Line    int
	Where   string // "'<lexeme>'" or "end"
	Message string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("[line %d] Error at %s: %s", d.Line, d.Where, d.Message)
}

// Reporter accumulates compile diagnostics across an entire compile (spec
// §4.2, "A parse error... Multiple compile errors may be reported per
// run"). It never panics or aborts on its own; callers decide when to
// stop based on HasErrors.
type Reporter struct {
	errs *multierror.Error
}

// New creates an empty Reporter.
func New() *Reporter {
	return &Reporter{}
}

// Report records a diagnostic at a token occurrence.
func (r *Reporter) Report(line int, where, message string) {
	r.errs = multierror.Append(r.errs, Diagnostic{Line: line, Where: where, Message: message})
}

// HasErrors reports whether any diagnostic has been recorded.
func (r *Reporter) HasErrors() bool {
	return r.errs != nil && r.errs.Len() > 0
}

// Err returns a single error summarizing every accumulated diagnostic, or
// nil if none were recorded. The returned error's Error() text lists one
// diagnostic per line, in the multierror library's default format.
func (r *Reporter) Err() error {
	if r.errs == nil {
		return nil
	}
	return r.errs.ErrorOrNil()
}

// Reset clears all accumulated diagnostics, used by the REPL between
// lines (spec §7, "In interactive mode... error flags are cleared
// between lines").
func (r *Reporter) Reset() {
	r.errs = nil
}
