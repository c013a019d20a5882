package treewalk

import (
	"github.com/kristofer/glox/internal/diag"
)

// Run parses, resolves, and interprets src against interp in one step —
// the tree-walking back-end's counterpart of compiling a chunk and
// calling vm.Interpret on it. A non-nil error is either the
// accumulated parse/resolution diagnostics (spec §4.2's "multiple
// compile errors may be reported per run" applies here too) or a single
// *RuntimeError from execution.
func Run(src string, interp *Interpreter) error {
	reporter := diag.New()
	parser := NewParser(src, reporter)
	stmts := parser.Parse()
	if reporter.HasErrors() {
		return reporter.Err()
	}

	resolver := NewResolver(interp, reporter)
	resolver.Resolve(stmts)
	if reporter.HasErrors() {
		return reporter.Err()
	}

	return interp.Interpret(stmts)
}
