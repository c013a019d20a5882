// Package compiler implements the single-pass Pratt compiler and its
// nested resolver: the hardest subsystem in the pipeline (spec §4.2).
//
// There is no intermediate AST on this back-end. Parsing and code
// generation are interleaved exactly as clox does it and as this corpus's
// own other_examples/rami3l-golox fragment (vm/compiler.go) does it: each
// prefix/infix parse action emits opcodes directly into the chunk being
// built, while a resolver — the funcCompiler chain below — tracks local
// variable slots, scope depth, and upvalue capture alongside the parse.
package compiler

import (
	"fmt"
	"math"

	"github.com/kristofer/glox/internal/chunk"
	"github.com/kristofer/glox/internal/diag"
	"github.com/kristofer/glox/internal/scanner"
	"github.com/kristofer/glox/internal/token"
)

// maxLocals bounds the total number of locals a single function may
// declare (spec §3: "Maximum total locals: 65,536"); maxParams bounds the
// parameter list of any one function (spec §3: "Maximum per-function
// parameters: 255").
const (
	maxLocals = 65536
	maxParams = 255
)

// FuncType distinguishes the four kinds of code body the compiler can be
// assembling, since `return`, `this`, and implicit-`this`-return-from-init
// all behave slightly differently depending on which one is active.
type FuncType int

const (
	FuncScript FuncType = iota
	FuncFunction
	FuncMethod
	FuncInitializer
)

// localState distinguishes a local that has been declared but whose
// initializer has not finished compiling yet (spec §4.2, "Declaring a
// local pushes a Local record with state UNDEFINED... after its
// initializer is compiled, the state flips to DEFINED").
type localState int

const (
	localUndefined localState = iota
	localDefined
)

// local is one entry in a funcCompiler's locals stack; its position in
// the slice *is* its VM stack slot (spec §3, "Slot index equals position
// from the bottom of the locals stack").
type local struct {
	name       string
	depth      int
	state      localState
	isCaptured bool
}

// upvalueRef records how a funcCompiler's Nth upvalue is sourced: either
// directly from a local slot in the immediately enclosing function, or by
// forwarding one of the enclosing function's own upvalues further out.
type upvalueRef struct {
	index   byte
	isLocal bool
}

// funcCompiler is one stack frame of the resolver — one per function
// currently being compiled, chained through enclosing so nested function
// declarations can resolve names in any lexically surrounding scope
// (spec §4.2, "Closures").
type funcCompiler struct {
	enclosing  *funcCompiler
	function   *chunk.Function
	funcType   FuncType
	locals     []local
	maxSlots   int // high-water mark of len(locals), for the VM's per-frame stack sizing
	upvalues   []upvalueRef
	scopeDepth int
}

// classCompiler tracks whether the class body currently being compiled
// has a superclass, so `super` expressions can be rejected outside one
// (SPEC_FULL.md §C.1).
type classCompiler struct {
	enclosing     *classCompiler
	hasSuperclass bool
}

// Parser drives the single-pass compile: it owns the token-lookahead
// window (current/previous), the active funcCompiler chain, the active
// classCompiler chain (nil outside any class body), the diagnostics
// reporter, and the interner shared with the eventual VM run.
type Parser struct {
	scanner *scanner.Scanner

	previous token.Token
	current  token.Token

	reporter  *diag.Reporter
	panicMode bool

	fc    *funcCompiler
	class *classCompiler

	interner *chunk.Interner
}

// Compile compiles src into a top-level script Function ready to be
// wrapped in a Closure and run. A non-nil error means at least one
// compile diagnostic was recorded (spec §4.2/§7: any compile error means
// no execution).
func Compile(src string, interner *chunk.Interner) (*chunk.Function, error) {
	p := &Parser{
		scanner:  scanner.New(src),
		reporter: diag.New(),
		interner: interner,
	}
	p.fc = newFuncCompiler(nil, FuncScript, "")

	p.advance()
	for !p.match(token.EOF) {
		p.declaration()
	}
	fn := p.endFunction()

	if p.reporter.HasErrors() {
		return nil, p.reporter.Err()
	}
	return fn, nil
}

func newFuncCompiler(enclosing *funcCompiler, funcType FuncType, name string) *funcCompiler {
	fc := &funcCompiler{
		enclosing: enclosing,
		funcType:  funcType,
		function:  &chunk.Function{Name: name, Chunk: chunk.New()},
	}
	// Slot 0 is reserved: for methods/initializers it holds the receiver
	// (`this`); for plain functions and the top-level script it is an
	// unnamed placeholder that is simply never referenced by name.
	receiver := ""
	if funcType == FuncMethod || funcType == FuncInitializer {
		receiver = "this"
	}
	fc.locals = append(fc.locals, local{name: receiver, depth: 0, state: localDefined})
	fc.maxSlots = len(fc.locals)
	return fc
}

// endFunction finishes the current funcCompiler, emits its implicit
// trailing return, and pops back to the enclosing one.
func (p *Parser) endFunction() *chunk.Function {
	p.emitReturn()
	fn := p.fc.function
	fn.UpvalueCount = len(p.fc.upvalues)
	fn.MaxSlots = p.fc.maxSlots
	p.fc = p.fc.enclosing
	return fn
}

func (p *Parser) currentChunk() *chunk.Chunk {
	return p.fc.function.Chunk
}

// ---- token stream plumbing ----

func (p *Parser) advance() {
	p.previous = p.current
	for {
		p.current = p.scanner.NextToken()
		if p.current.Kind != token.Error {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *Parser) check(k token.Kind) bool {
	return p.current.Kind == k
}

func (p *Parser) match(k token.Kind) bool {
	if !p.check(k) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(k token.Kind, message string) {
	if p.current.Kind == k {
		p.advance()
		return
	}
	p.errorAtCurrent(message)
}

// ---- diagnostics ----

func (p *Parser) errorAtCurrent(message string) { p.errorAt(p.current, message) }
func (p *Parser) errorAtPrevious(message string) { p.errorAt(p.previous, message) }

func (p *Parser) errorAt(t token.Token, message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	where := fmt.Sprintf("'%s'", t.Lexeme)
	if t.Kind == token.EOF {
		where = "end"
	}
	if t.Kind == token.Error {
		p.reporter.Report(t.Line, where, t.Lexeme)
		return
	}
	p.reporter.Report(t.Line, where, message)
}

// synchronize implements panic-mode recovery (spec §4.2/§7): skip tokens
// until a statement boundary — past a ';' or up to the next
// statement-starting keyword.
func (p *Parser) synchronize() {
	p.panicMode = false
	for p.current.Kind != token.EOF {
		if p.previous.Kind == token.Semicolon {
			return
		}
		switch p.current.Kind {
		case token.Class, token.Fun, token.Var, token.For,
			token.If, token.While, token.Print, token.Return:
			return
		}
		p.advance()
	}
}

// ---- emission ----

func (p *Parser) emitByte(b byte) {
	p.currentChunk().Write(b, p.previous.Line)
}

func (p *Parser) emitOp(op chunk.OpCode) {
	p.currentChunk().WriteOp(op, p.previous.Line)
}

func (p *Parser) emitU16(v uint16) {
	p.currentChunk().WriteU16(v, p.previous.Line)
}

func (p *Parser) emitReturn() {
	if p.fc.funcType == FuncInitializer {
		// `return;` inside init() yields the instance, not nil.
		p.emitOp(chunk.OpGetLocal)
		p.emitByte(0)
	} else {
		p.emitOp(chunk.OpNil)
	}
	p.emitOp(chunk.OpReturn)
}

// makeConstant interns v into the current chunk's constant pool and
// returns its index, reporting a compile error if the pool is full.
func (p *Parser) makeConstant(v chunk.Value) int {
	idx, err := p.currentChunk().AddConstant(v)
	if err != nil {
		p.errorAtPrevious(err.Error())
		return 0
	}
	return idx
}

// emitConstant emits the shortest CONSTANT form (8- or 16-bit index) that
// fits idx, per spec §4.3's "both 8- and 16-bit width variants".
func (p *Parser) emitConstant(v chunk.Value) {
	idx := p.makeConstant(v)
	p.emitConstantIndex(chunk.OpConstant, chunk.OpConstant16, idx)
}

func (p *Parser) emitConstantIndex(op8, op16 chunk.OpCode, idx int) {
	if idx <= math.MaxUint8 {
		p.emitOp(op8)
		p.emitByte(byte(idx))
	} else {
		p.emitOp(op16)
		p.emitU16(uint16(idx))
	}
}

// emitJump writes a jump opcode with a 2-byte placeholder operand and
// returns the offset of that placeholder, to be fixed up by patchJump.
func (p *Parser) emitJump(op chunk.OpCode) int {
	p.emitOp(op)
	offset := len(p.currentChunk().Code)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return offset
}

// patchJump backfills a forward jump's operand with the distance from
// just after the operand to the current code position (spec §4.2: "patch
// distance must fit in 16 bits or the compiler errors").
func (p *Parser) patchJump(offset int) {
	jump := len(p.currentChunk().Code) - offset - 2
	if jump > math.MaxUint16 {
		p.errorAtPrevious("Too much code to jump over.")
		return
	}
	p.currentChunk().PatchU16(offset, uint16(jump))
}

// emitLoop emits a backward LOOP jump to loopStart.
func (p *Parser) emitLoop(loopStart int) {
	p.emitOp(chunk.OpLoop)
	offset := len(p.currentChunk().Code) - loopStart + 2
	if offset > math.MaxUint16 {
		p.errorAtPrevious("Loop body too large.")
	}
	p.emitU16(uint16(offset))
}

// identifierConstant interns name and adds it to the constant pool,
// returning its index. Used for global variable and property names,
// which the VM resolves by name at runtime rather than by compile-time
// slot (spec §4.2, "A global scope... stores variables lazily").
func (p *Parser) identifierConstant(name string) int {
	return p.makeConstant(chunk.String(p.interner.Intern(name)))
}
