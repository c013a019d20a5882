package chunk

import (
	"strings"
	"testing"
)

// TestLineAt_RoundTrip builds a chunk by emitting N bytes tagged with
// source lines L1..LN and checks that querying every offset returns
// the line it was written with (spec §8, "Line table" round-trip).
func TestLineAt_RoundTrip(t *testing.T) {
	c := New()
	lines := []int{1, 1, 1, 2, 2, 3, 4, 4, 4, 4}
	for _, l := range lines {
		c.Write(0xAA, l)
	}
	for offset, want := range lines {
		if got := c.LineAt(offset); got != want {
			t.Fatalf("offset %d: want line %d, got %d", offset, want, got)
		}
	}
}

func TestWriteU16_RoundTrip(t *testing.T) {
	c := New()
	offset := c.WriteU16(0xBEEF, 1)
	if got := c.ReadU16(offset); got != 0xBEEF {
		t.Fatalf("want 0xBEEF, got %#x", got)
	}
}

func TestPatchU16(t *testing.T) {
	c := New()
	offset := c.WriteU16(0, 1)
	c.PatchU16(offset, 0x1234)
	if got := c.ReadU16(offset); got != 0x1234 {
		t.Fatalf("want 0x1234, got %#x", got)
	}
}

func TestAddConstant_RejectsOverflow(t *testing.T) {
	c := New()
	c.Constants = make([]Value, MaxConstants)
	if _, err := c.AddConstant(Number(1)); err == nil {
		t.Fatalf("expected an error adding a constant past MaxConstants")
	}
}

func TestFromRaw_RoundTripsThroughRawLines(t *testing.T) {
	c := New()
	c.WriteOp(OpConstant, 5)
	c.Write(0, 5)
	if _, err := c.AddConstant(Number(42)); err != nil {
		t.Fatal(err)
	}

	rebuilt := FromRaw(c.Code, c.Constants, c.RawLines())
	for i := range c.Code {
		if rebuilt.LineAt(i) != c.LineAt(i) {
			t.Fatalf("offset %d: line mismatch after FromRaw round trip", i)
		}
	}
}

func TestDisassemble_SmokeTest(t *testing.T) {
	c := New()
	idx, _ := c.AddConstant(Number(7))
	c.WriteOp(OpConstant, 1)
	c.Write(byte(idx), 1)
	c.WriteOp(OpPrint, 1)
	c.WriteOp(OpReturn, 1)

	fn := &Function{Name: "", Chunk: c}
	out := Disassemble(fn)
	if out == "" {
		t.Fatal("Disassemble returned empty output")
	}
	if want := "<script>"; !strings.Contains(out, want) {
		t.Fatalf("expected disassembly to mention %q, got %q", want, out)
	}
	if !strings.Contains(out, "CONSTANT") || !strings.Contains(out, "PRINT") || !strings.Contains(out, "RETURN") {
		t.Fatalf("expected disassembly to list every opcode mnemonic, got %q", out)
	}
}
