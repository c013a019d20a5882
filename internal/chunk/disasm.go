package chunk

import (
	"fmt"
	"strings"
)

// Disassemble renders fn's instruction stream as human-readable text,
// recursing into any Function constants it closes over so nested
// functions/methods are listed too. It is the non-interactive listing
// half of the teacher's debugger (pkg/vm/debugger.go's listInstructions/
// formatInstructionOperand) — this repo carries that printing shape
// forward for `glox disasm`, deliberately leaving behind the teacher's
// InteractivePrompt/breakpoint stepping protocol, which is out of scope
// here.
func Disassemble(fn *Function) string {
	var b strings.Builder
	disassembleFunction(&b, fn)
	return b.String()
}

func disassembleFunction(b *strings.Builder, fn *Function) {
	name := fn.Name
	if name == "" {
		name = "<script>"
	}
	fmt.Fprintf(b, "== %s ==\n", name)

	c := fn.Chunk
	nested := []*Function{}
	offset := 0
	for offset < len(c.Code) {
		offset = disassembleInstruction(b, c, offset)
	}
	for _, v := range c.Constants {
		if v.Type == TypeObject {
			if nestedFn, ok := v.AsObject().(*Function); ok {
				nested = append(nested, nestedFn)
			}
		}
	}
	for _, nestedFn := range nested {
		b.WriteString("\n")
		disassembleFunction(b, nestedFn)
	}
}

// disassembleInstruction prints the instruction at offset and returns the
// offset of the next one.
func disassembleInstruction(b *strings.Builder, c *Chunk, offset int) int {
	fmt.Fprintf(b, "%4d %4d  ", offset, c.LineAt(offset))

	op := OpCode(c.Code[offset])
	fmt.Fprintf(b, "%-18s", op.String())

	switch op {
	case OpConstant, OpDefineGlobal, OpGetGlobal, OpSetGlobal,
		OpGetLocal, OpSetLocal, OpGetUpvalue, OpSetUpvalue,
		OpClass, OpMethod, OpGetProperty, OpSetProperty, OpGetSuper:
		idx := int(c.Code[offset+1])
		writeConstantOperand(b, c, idx)
		return offset + 2

	case OpConstant16, OpDefineGlobal16, OpGetGlobal16, OpSetGlobal16,
		OpGetLocal16, OpSetLocal16,
		OpClass16, OpMethod16, OpGetProperty16, OpSetProperty16, OpGetSuper16:
		idx := int(c.ReadU16(offset + 1))
		writeConstantOperand(b, c, idx)
		return offset + 3

	case OpPopN, OpCall:
		fmt.Fprintf(b, "%d", c.Code[offset+1])
		b.WriteString("\n")
		return offset + 2

	case OpClosure:
		idx := int(c.Code[offset+1])
		writeConstantOperand(b, c, idx)
		return offset + 2

	case OpClosure16:
		idx := int(c.ReadU16(offset + 1))
		writeConstantOperand(b, c, idx)
		return offset + 3

	case OpJump, OpJumpIfFalse, OpJumpIfFalsePop:
		jump := int(c.ReadU16(offset + 1))
		fmt.Fprintf(b, "%d -> %d", offset, offset+3+jump)
		b.WriteString("\n")
		return offset + 3

	case OpLoop:
		jump := int(c.ReadU16(offset + 1))
		fmt.Fprintf(b, "%d -> %d", offset, offset+3-jump)
		b.WriteString("\n")
		return offset + 3

	case OpInvoke, OpSuperInvoke:
		packed := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
		nameIdx := packed >> InvokeArgCountBits
		argCount := packed & InvokeArgCountMask
		fmt.Fprintf(b, "args=%d ", argCount)
		writeConstantOperand(b, c, nameIdx)
		return offset + 3

	case OpInvoke16, OpSuperInvoke16:
		nameIdx := int(c.ReadU16(offset + 1))
		argCount := int(c.Code[offset+3])
		fmt.Fprintf(b, "args=%d ", argCount)
		writeConstantOperand(b, c, nameIdx)
		return offset + 4

	default:
		b.WriteString("\n")
		return offset + 1
	}
}

// writeConstantOperand prints a constant-pool index alongside the value
// it names, mirroring formatInstructionOperand's "%d (%s)" shape.
func writeConstantOperand(b *strings.Builder, c *Chunk, idx int) {
	fmt.Fprintf(b, "%d", idx)
	if idx >= 0 && idx < len(c.Constants) {
		fmt.Fprintf(b, " (%s)", Display(c.Constants[idx]))
	}
	b.WriteString("\n")
}
