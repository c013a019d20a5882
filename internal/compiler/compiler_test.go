package compiler_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/glox/internal/chunk"
	"github.com/kristofer/glox/internal/compiler"
)

func TestCompile_ValidProgramProducesNoError(t *testing.T) {
	_, err := compiler.Compile(`print 1 + 2 * 3;`, chunk.NewInterner())
	require.NoError(t, err)
}

func TestCompile_SyntaxErrorIsReported(t *testing.T) {
	_, err := compiler.Compile(`print 1 +;`, chunk.NewInterner())
	require.Error(t, err)
}

func TestCompile_MoreThan255ParametersRejected(t *testing.T) {
	var params []string
	for i := 0; i < 256; i++ {
		params = append(params, "a"+strconv.Itoa(i))
	}
	src := "fun f(" + strings.Join(params, ", ") + ") {}"
	_, err := compiler.Compile(src, chunk.NewInterner())
	require.Error(t, err)
	require.Contains(t, err.Error(), "Can't have more than 255 parameters.")
}

func TestCompile_MoreThan255ArgumentsRejected(t *testing.T) {
	var args []string
	for i := 0; i < 256; i++ {
		args = append(args, "1")
	}
	src := "fun f() {} f(" + strings.Join(args, ", ") + ");"
	_, err := compiler.Compile(src, chunk.NewInterner())
	require.Error(t, err)
	require.Contains(t, err.Error(), "Can't have more than 255 arguments.")
}

// TestCompile_TooManyLocalsRejected covers spec §3's "Maximum total
// locals: 65,536" boundary (the figure this compiler actually enforces
// via maxLocals, superseding §8's stray "256 locals in a scope" wording
// inherited from an earlier single-byte-operand design — see DESIGN.md).
func TestCompile_TooManyLocalsRejected(t *testing.T) {
	var decls strings.Builder
	for i := 0; i < 65537; i++ {
		decls.WriteString("var a" + strconv.Itoa(i) + " = 0;")
	}
	src := "{" + decls.String() + "}"
	_, err := compiler.Compile(src, chunk.NewInterner())
	require.Error(t, err)
	require.Contains(t, err.Error(), "Too many local variables in function.")
}

func TestCompile_ForwardJumpOverflowRejected(t *testing.T) {
	var body strings.Builder
	for i := 0; i < 25000; i++ {
		body.WriteString("print 1;")
	}
	src := "if (true) {" + body.String() + "}"
	_, err := compiler.Compile(src, chunk.NewInterner())
	require.Error(t, err)
	require.Contains(t, err.Error(), "Too much code to jump over.")
}

func TestCompile_SuperOutsideClassIsRejected(t *testing.T) {
	_, err := compiler.Compile(`fun f() { super.m(); }`, chunk.NewInterner())
	require.Error(t, err)
}

func TestCompile_ThisOutsideClassIsRejected(t *testing.T) {
	_, err := compiler.Compile(`print this;`, chunk.NewInterner())
	require.Error(t, err)
}
