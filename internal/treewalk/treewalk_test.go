package treewalk_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/glox/internal/treewalk"
)

func runProgram(t *testing.T, src string) string {
	t.Helper()
	var out bytes.Buffer
	interp := treewalk.NewInterpreterWithOutput(&out)
	require.NoError(t, treewalk.Run(src, interp))
	return out.String()
}

// TestEndToEndScenarios mirrors internal/vm's table exactly (spec §8:
// both back-ends must agree on these six programs' stdout).
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

func TestClasses_InitAndFields(t *testing.T) {
	src := `
		class Point {
			init(x, y) {
				this.x = x;
				this.y = y;
			}
			sum() { return this.x + this.y; }
		}
		var p = Point(3, 4);
		print p.sum();
	`
	require.Equal(t, "7\n", runProgram(t, src))
}

func TestVarWithNoInitializerEvaluatesToNil(t *testing.T) {
	require.Equal(t, "nil\n", runProgram(t, `var a; print a;`))
}

func TestResolverRejectsSelfReadInOwnInitializer(t *testing.T) {
	var out bytes.Buffer
	interp := treewalk.NewInterpreterWithOutput(&out)
	err := treewalk.Run(`var a = "outer"; { var a = a; }`, interp)
	require.Error(t, err)
}

func TestRuntimeError_CallingNonCallable(t *testing.T) {
	var out bytes.Buffer
	interp := treewalk.NewInterpreterWithOutput(&out)
	err := treewalk.Run(`var x = 1; x();`, interp)
	require.Error(t, err)
}
