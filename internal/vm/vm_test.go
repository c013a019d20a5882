package vm_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/glox/internal/chunk"
	"github.com/kristofer/glox/internal/compiler"
	"github.com/kristofer/glox/internal/vm"
)

// runProgram compiles and interprets src against a fresh VM, returning
// everything written to stdout.
func runProgram(t *testing.T, src string) string {
	t.Helper()
	var out bytes.Buffer
	interner := chunk.NewInterner()
	fn, err := compiler.Compile(src, interner)
	require.NoError(t, err)

	machine := vm.NewWithOutput(interner, &out)
	require.NoError(t, machine.Interpret(fn))
	return out.String()
}

// TestEndToEndScenarios covers the six end-to-end scenarios of spec §8:
// both back-ends must agree on this exact stdout for each program.
func TestEndToEndScenarios(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "arithmetic and precedence",
			src:  `print 1 + 2 * 3;`,
			want: "7\n",
		},
		{
			name: "globals and reassignment",
			src:  `var a = 1; a = a + 41; print a;`,
			want: "42\n",
		},
		{
			name: "short-circuit and truthiness",
			src:  `print nil or "ok"; print false and "skip"; print 0 and "zero";`,
			want: "ok\nfalse\nzero\n",
		},
		{
			name: "lexical scope shadowing",
			src:  `var x = "global"; { var x = "local"; print x; } print x;`,
			want: "local\nglobal\n",
		},
		{
			name: "for-loop with captured closure",
			src: `fun make(n){ var c = n; fun f(){ c = c + 1; return c; } return f; }
			      var f = make(10); print f(); print f();`,
			want: "11\n12\n",
		},
		{
			name: "string interning identity",
			src:  `print "a" + "b" == "ab";`,
			want: "true\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, runProgram(t, tt.src))
		})
	}
}

func TestRuntimeError_DivisionByZeroIsInfNotError(t *testing.T) {
	out := runProgram(t, `print 1 / 0;`)
	require.Equal(t, "+Inf\n", out)
}

// TestRuntimeError_ManyLocalsRecursionOverflowsGracefully reproduces a
// function whose declared local count is well under the compiler's
// maxLocals ceiling, but whose recursion depth (also well under
// framesMax) still exhausts the value stack's fixed capacity before the
// frame-count guard would ever fire. This must surface as the same
// "Stack overflow." RuntimeError the frame-count path reports, not a
// panic.
func TestRuntimeError_ManyLocalsRecursionOverflowsGracefully(t *testing.T) {
	var decls strings.Builder
	for i := 0; i < 300; i++ {
		fmt.Fprintf(&decls, "var v%d = 0;", i)
	}
	src := fmt.Sprintf(`
		fun f(n) {
			%s
			if (n <= 0) return 0;
			return f(n - 1);
		}
		print f(220);
	`, decls.String())

	var out bytes.Buffer
	interner := chunk.NewInterner()
	fn, err := compiler.Compile(src, interner)
	require.NoError(t, err)

	machine := vm.NewWithOutput(interner, &out)
	err = machine.Interpret(fn)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Stack overflow.")
}

func TestRuntimeError_UndefinedGlobal(t *testing.T) {
	var out bytes.Buffer
	interner := chunk.NewInterner()
	fn, err := compiler.Compile(`print undefinedThing;`, interner)
	require.NoError(t, err)

	machine := vm.NewWithOutput(interner, &out)
	err = machine.Interpret(fn)
	require.Error(t, err)
}

func TestGlobalNames_SortedAndComplete(t *testing.T) {
	interner := chunk.NewInterner()
	fn, err := compiler.Compile(`var z = 1; var a = 2; var m = 3;`, interner)
	require.NoError(t, err)

	machine := vm.NewWithOutput(interner, &bytes.Buffer{})
	require.NoError(t, machine.Interpret(fn))

	names := machine.GlobalNames()
	require.Contains(t, names, "z")
	require.Contains(t, names, "a")
	require.Contains(t, names, "m")

	var prev string
	for i, n := range names {
		if i > 0 {
			require.True(t, prev <= n, "GlobalNames must be sorted")
		}
		prev = n
	}
}

func TestClasses_SingleInheritanceAndSuper(t *testing.T) {
	src := `
		class Animal {
			speak() { return "..."; }
		}
		class Dog < Animal {
			speak() { return "Woof, " + super.speak(); }
		}
		print Dog().speak();
	`
	require.Equal(t, "Woof, ...\n", runProgram(t, src))
}
