package loxc_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/glox/internal/chunk"
	"github.com/kristofer/glox/internal/compiler"
	"github.com/kristofer/glox/internal/loxc"
	"github.com/kristofer/glox/internal/vm"
)

// TestEncodeDecode_RoundTrip compiles a program, serializes it, decodes
// it back, and checks that running the decoded chunk through a VM
// produces identical output to running the freshly compiled one —
// exercising the recursive Function-constant case (the closure nested
// inside make's Chunk) along the way.
func TestEncodeDecode_RoundTrip(t *testing.T) {
	src := `
		fun make(n) {
			var c = n;
			fun f() { c = c + 1; return c; }
			return f;
		}
		var f = make(10);
		print f();
		print f();
		print "a" + "b" == "ab";
	`

	interner := chunk.NewInterner()
	fn, err := compiler.Compile(src, interner)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, loxc.Encode(fn, &buf))

	decodedInterner := chunk.NewInterner()
	decoded, err := loxc.Decode(&buf, decodedInterner)
	require.NoError(t, err)

	var out bytes.Buffer
	machine := vm.NewWithOutput(decodedInterner, &out)
	require.NoError(t, machine.Interpret(decoded))
	require.Equal(t, "11\n12\ntrue\n", out.String())
}

func TestDecode_RejectsBadMagic(t *testing.T) {
	_, err := loxc.Decode(bytes.NewReader([]byte{0, 0, 0, 0, 1, 0, 0, 0}), chunk.NewInterner())
	require.Error(t, err)
}
