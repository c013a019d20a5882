package vm

import "github.com/kristofer/glox/internal/chunk"

// framesMax bounds call depth (clox-style guard against runaway Lox
// recursion; our dispatch loop is iterative so the Go stack itself is
// never at risk, but an unbounded Lox call chain would otherwise grow
// vm.stack without limit).
const framesMax = 256

// callFrame is one activation record (spec §4.3, "each frame records
// function, ip, stack_base"): ip is this frame's own copy of the
// instruction pointer, resumed when a callee returns, and base is the
// stack index its locals are slotted from (slot N lives at
// stack[base+N]).
type callFrame struct {
	closure *chunk.Closure
	ip      int
	base    int
}

func (f *callFrame) chunkRef() *chunk.Chunk {
	return f.closure.Function.Chunk
}

func (f *callFrame) name() string {
	return f.closure.Function.Name
}
