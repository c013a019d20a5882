package compiler

import "github.com/kristofer/glox/internal/chunk"

// This file is the compile-time half of spec §4.2's resolver: it tracks
// which names are locals (and at what stack slot), which are upvalues
// (and how to thread them out to the enclosing function that owns the
// slot), and which fall through to the VM's by-name global table.

func (p *Parser) beginScope() {
	p.fc.scopeDepth++
}

// endScope pops every local declared in the scope just closed, emitting
// OpCloseUpvalue for any that a nested closure captured and a plain
// OpPopN for the rest (spec §4.2, "Upvalues" / SPEC_FULL.md §D).
func (p *Parser) endScope() {
	p.fc.scopeDepth--

	count := 0
	for len(p.fc.locals) > 0 && p.fc.locals[len(p.fc.locals)-1].depth > p.fc.scopeDepth {
		last := p.fc.locals[len(p.fc.locals)-1]
		if last.isCaptured {
			if count > 0 {
				p.emitPopN(count)
				count = 0
			}
			p.emitOp(chunk.OpCloseUpvalue)
		} else {
			count++
		}
		p.fc.locals = p.fc.locals[:len(p.fc.locals)-1]
	}
	if count > 0 {
		p.emitPopN(count)
	}
}

func (p *Parser) emitPopN(count int) {
	if count == 1 {
		p.emitOp(chunk.OpPop)
		return
	}
	for count > 255 {
		p.emitOp(chunk.OpPopN)
		p.emitByte(255)
		count -= 255
	}
	if count > 0 {
		p.emitOp(chunk.OpPopN)
		p.emitByte(byte(count))
	}
}

// declareVariable registers the identifier just consumed (p.previous) as
// a new local in the current scope, or does nothing at global scope
// where variables are resolved by name at runtime instead.
func (p *Parser) declareVariable(name string) {
	if p.fc.scopeDepth == 0 {
		return
	}
	for i := len(p.fc.locals) - 1; i >= 0; i-- {
		l := p.fc.locals[i]
		if l.depth != -1 && l.depth < p.fc.scopeDepth {
			break
		}
		if l.name == name {
			p.errorAtPrevious("Already a variable with this name in this scope.")
		}
	}
	p.addLocal(name)
}

func (p *Parser) addLocal(name string) {
	if len(p.fc.locals) >= maxLocals {
		p.errorAtPrevious("Too many local variables in function.")
		return
	}
	p.fc.locals = append(p.fc.locals, local{name: name, depth: -1, state: localUndefined})
	if len(p.fc.locals) > p.fc.maxSlots {
		p.fc.maxSlots = len(p.fc.locals)
	}
}

// markInitialized flips the most recently declared local from UNDEFINED
// to DEFINED once its initializer has finished compiling, so a reference
// to the same name inside the initializer itself is correctly rejected
// (spec §4.2, "var a = a;" must fail to resolve a as a local).
func (p *Parser) markInitialized() {
	if p.fc.scopeDepth == 0 {
		return
	}
	p.fc.locals[len(p.fc.locals)-1].depth = p.fc.scopeDepth
	p.fc.locals[len(p.fc.locals)-1].state = localDefined
}

// resolveLocal searches fc's locals innermost-scope-first for name,
// returning its slot index, or -1 if not found.
func resolveLocal(fc *funcCompiler, name string) int {
	for i := len(fc.locals) - 1; i >= 0; i-- {
		if fc.locals[i].name == name {
			if fc.locals[i].state == localUndefined {
				return -2 // sentinel: "own initializer" error, handled by caller
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue resolves name as an upvalue of fc by walking out to the
// enclosing funcCompiler: if the enclosing function has it as a local,
// that local is marked captured and a direct upvalue is recorded;
// otherwise the search recurses outward and an indirect upvalue
// forwarding the enclosing function's own upvalue is recorded instead
// (spec §4.2, "Closures").
func resolveUpvalue(fc *funcCompiler, name string) int {
	if fc.enclosing == nil {
		return -1
	}
	if slot := resolveLocal(fc.enclosing, name); slot >= 0 {
		fc.enclosing.locals[slot].isCaptured = true
		return addUpvalue(fc, byte(slot), true)
	}
	if slot := resolveUpvalue(fc.enclosing, name); slot >= 0 {
		return addUpvalue(fc, byte(slot), false)
	}
	return -1
}

func addUpvalue(fc *funcCompiler, index byte, isLocal bool) int {
	for i, uv := range fc.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(fc.upvalues) >= maxLocals {
		return -1
	}
	fc.upvalues = append(fc.upvalues, upvalueRef{index: index, isLocal: isLocal})
	return len(fc.upvalues) - 1
}
