// Package vm implements the stack-based bytecode virtual machine (spec
// §4.3): a single dispatch loop over a chunk's instruction stream,
// driving a contiguous value stack and a stack of call frames.
//
// Trace output (spec §4.3, "Optional trace mode") goes through
// github.com/sirupsen/logrus at Debug level, the same pattern this
// corpus's own from-scratch Lox VM uses (other_examples/rami3l-golox,
// vm/vm.go: "logrus.Debugln(vm.stackTrace())" before every dispatch) —
// it costs nothing when the logger isn't at debug level and needs no
// separate trace flag threaded through the hot loop.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/kristofer/glox/internal/chunk"
)

// stackMax is the value stack's fixed capacity. Unlike a plain Go slice
// grown with append, the stack's backing array must never be
// reallocated once the VM starts running: open upvalues hold raw
// *Value pointers into it (spec §4.1's shared-mutable-cell semantics
// require that), and a reallocation would silently detach them from
// the live stack. Pre-sizing to a generous fixed capacity sidesteps
// that — matching clox's own fixed STACK_MAX array — at the cost of
// the spec's suggested "doubled on overflow" growth, which would be
// unsound here for the reason above.
const stackMax = framesMax * 256

// VM executes compiled chunks. A VM may run multiple chunks across its
// lifetime (the REPL reuses one VM across lines, spec §7), retaining
// globals and the interner between runs.
type VM struct {
	stack  []chunk.Value
	frames []callFrame

	globals  map[string]chunk.Value
	interner *chunk.Interner

	openUpvalues *chunk.Upvalue

	out    io.Writer
	logger *logrus.Logger
}

// New creates a VM writing `print` output to stdout.
func New(interner *chunk.Interner) *VM {
	return NewWithOutput(interner, os.Stdout)
}

// NewWithOutput creates a VM writing `print` output to out, useful for
// tests that capture output instead of writing to the real stdout.
func NewWithOutput(interner *chunk.Interner, out io.Writer) *VM {
	vm := &VM{
		stack:    make([]chunk.Value, 0, stackMax),
		globals:  make(map[string]chunk.Value),
		interner: interner,
		out:      out,
		logger:   logrus.New(),
	}
	vm.defineNatives()
	return vm
}

// SetTraceLevel switches the VM's trace logger to Debug (tracing on) or
// Info (tracing off), per spec §4.3's optional instruction trace.
func (vm *VM) SetTraceLevel(trace bool) {
	if trace {
		vm.logger.SetLevel(logrus.DebugLevel)
	} else {
		vm.logger.SetLevel(logrus.InfoLevel)
	}
}

// GlobalNames returns every currently defined global variable's name,
// sorted for deterministic output. It is the non-interactive
// counterpart of the teacher's debugger.go ShowGlobals — a plain
// listing rather than a step-mode inspection command (SPEC_FULL.md
// §C.3's disassembly/inspection surface, not the excluded interactive
// debugger protocol).
func (vm *VM) GlobalNames() []string {
	names := make([]string, 0, len(vm.globals))
	for name := range vm.globals {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Interpret runs a freshly compiled top-level script function (spec
// §4.3, "Interface: run(chunk) -> InterpretResult"). The globals and
// interner persist across calls so a REPL can call Interpret once per
// line.
func (vm *VM) Interpret(fn *chunk.Function) error {
	closure := &chunk.Closure{Function: fn}
	vm.push(chunk.FromObject(closure))
	if err := vm.call(closure, 0); err != nil {
		return err
	}
	return vm.run()
}

// push grows the stack up to its fixed capacity. call() pre-checks both
// the frame-count guard and that a callee's own locals, plus a fixed
// headroom of 256 temporaries, fit in the remaining capacity before ever
// starting its frame, so deep recursion reports "Stack overflow." rather
// than reaching this panic. The panic is still reachable when one frame
// holds more temporaries than that headroom at once, or when a callee's
// MaxSlots was not recorded (functions decoded from .loxc carry 0).
func (vm *VM) push(v chunk.Value) {
	if len(vm.stack) == cap(vm.stack) {
		panic("glox: value stack exceeded fixed capacity")
	}
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() chunk.Value {
	n := len(vm.stack) - 1
	v := vm.stack[n]
	vm.stack = vm.stack[:n]
	return v
}

func (vm *VM) peek(distance int) chunk.Value {
	return vm.stack[len(vm.stack)-1-distance]
}

// run is the dispatch loop. It always operates on the top call frame;
// since vm.frames can reallocate on call/return, the frame is re-fetched
// by index every iteration rather than cached across them.
func (vm *VM) run() error {
	for {
		fi := len(vm.frames) - 1
		frame := &vm.frames[fi]
		c := frame.chunkRef()

		if vm.logger.IsLevelEnabled(logrus.DebugLevel) {
			vm.logger.Debugln(vm.stackTrace())
		}

		op := chunk.OpCode(c.Code[frame.ip])
		frame.ip++

		switch op {
		case chunk.OpNop:
			// no-op

		case chunk.OpConstant:
			vm.push(c.Constants[vm.readByte(frame)])
		case chunk.OpConstant16:
			vm.push(c.Constants[vm.readU16(frame)])

		case chunk.OpNil:
			vm.push(chunk.Nil)
		case chunk.OpTrue:
			vm.push(chunk.Bool(true))
		case chunk.OpFalse:
			vm.push(chunk.Bool(false))

		case chunk.OpPop:
			vm.pop()
		case chunk.OpPopN:
			n := int(vm.readByte(frame))
			vm.stack = vm.stack[:len(vm.stack)-n]

		case chunk.OpNot:
			vm.push(chunk.Bool(!vm.pop().Truthy()))
		case chunk.OpNegate:
			if vm.peek(0).Type != chunk.TypeNumber {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(chunk.Number(-vm.pop().AsNumber()))

		case chunk.OpAdd:
			if err := vm.add(); err != nil {
				return err
			}
		case chunk.OpSubtract:
			if err := vm.numericBinary(func(a, b float64) float64 { return a - b }); err != nil {
				return err
			}
		case chunk.OpMultiply:
			if err := vm.numericBinary(func(a, b float64) float64 { return a * b }); err != nil {
				return err
			}
		case chunk.OpDivide:
			if err := vm.numericBinary(func(a, b float64) float64 { return a / b }); err != nil {
				return err
			}

		case chunk.OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(chunk.Bool(chunk.Equal(a, b)))
		case chunk.OpNotEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(chunk.Bool(!chunk.Equal(a, b)))
		case chunk.OpGreater:
			if err := vm.comparisonBinary(func(a, b float64) bool { return a > b }); err != nil {
				return err
			}
		case chunk.OpGreaterEqual:
			if err := vm.comparisonBinary(func(a, b float64) bool { return a >= b }); err != nil {
				return err
			}
		case chunk.OpLess:
			if err := vm.comparisonBinary(func(a, b float64) bool { return a < b }); err != nil {
				return err
			}
		case chunk.OpLessEqual:
			if err := vm.comparisonBinary(func(a, b float64) bool { return a <= b }); err != nil {
				return err
			}

		case chunk.OpPrint:
			fmt.Fprintln(vm.out, chunk.Display(vm.pop()))

		case chunk.OpDefineGlobal:
			name := c.Constants[vm.readByte(frame)].AsStr().Chars
			vm.globals[name] = vm.pop()
		case chunk.OpDefineGlobal16:
			name := c.Constants[vm.readU16(frame)].AsStr().Chars
			vm.globals[name] = vm.pop()

		case chunk.OpGetGlobal:
			if err := vm.getGlobal(c.Constants[vm.readByte(frame)].AsStr().Chars); err != nil {
				return err
			}
		case chunk.OpGetGlobal16:
			if err := vm.getGlobal(c.Constants[vm.readU16(frame)].AsStr().Chars); err != nil {
				return err
			}

		case chunk.OpSetGlobal:
			if err := vm.setGlobal(c.Constants[vm.readByte(frame)].AsStr().Chars); err != nil {
				return err
			}
		case chunk.OpSetGlobal16:
			if err := vm.setGlobal(c.Constants[vm.readU16(frame)].AsStr().Chars); err != nil {
				return err
			}

		case chunk.OpGetLocal:
			vm.push(vm.stack[frame.base+int(vm.readByte(frame))])
		case chunk.OpGetLocal16:
			vm.push(vm.stack[frame.base+int(vm.readU16(frame))])
		case chunk.OpSetLocal:
			vm.stack[frame.base+int(vm.readByte(frame))] = vm.peek(0)
		case chunk.OpSetLocal16:
			vm.stack[frame.base+int(vm.readU16(frame))] = vm.peek(0)

		case chunk.OpGetUpvalue:
			idx := vm.readByte(frame)
			vm.push(*frame.closure.Upvalues[idx].Location)
		case chunk.OpSetUpvalue:
			idx := vm.readByte(frame)
			*frame.closure.Upvalues[idx].Location = vm.peek(0)
		case chunk.OpCloseUpvalue:
			vm.closeUpvalues(len(vm.stack) - 1)
			vm.pop()

		case chunk.OpJump:
			off := vm.readU16(frame)
			frame.ip += int(off)
		case chunk.OpJumpIfFalse:
			off := vm.readU16(frame)
			if !vm.peek(0).Truthy() {
				frame.ip += int(off)
			}
		case chunk.OpJumpIfFalsePop:
			off := vm.readU16(frame)
			if !vm.pop().Truthy() {
				frame.ip += int(off)
			}
		case chunk.OpLoop:
			off := vm.readU16(frame)
			frame.ip -= int(off)

		case chunk.OpCall:
			argCount := int(vm.readByte(frame))
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return vm.attachTrace(err)
			}

		case chunk.OpClosure, chunk.OpClosure16:
			var fn *chunk.Function
			if op == chunk.OpClosure {
				fn = c.Constants[vm.readByte(frame)].AsObject().(*chunk.Function)
			} else {
				fn = c.Constants[vm.readU16(frame)].AsObject().(*chunk.Function)
			}
			closure := &chunk.Closure{Function: fn, Upvalues: make([]*chunk.Upvalue, fn.UpvalueCount)}
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := vm.readByte(frame) == 1
				index := int(vm.readByte(frame))
				if isLocal {
					closure.Upvalues[i] = vm.captureUpvalue(frame.base + index)
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}
			vm.push(chunk.FromObject(closure))

		case chunk.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(frame.base)
			vm.frames = vm.frames[:fi]
			if len(vm.frames) == 0 {
				vm.pop()
				return nil
			}
			vm.stack = vm.stack[:frame.base]
			vm.push(result)

		case chunk.OpClass:
			name := c.Constants[vm.readByte(frame)].AsStr().Chars
			vm.push(chunk.FromObject(&chunk.Class{Name: name, Methods: make(map[string]*chunk.Closure)}))
		case chunk.OpClass16:
			name := c.Constants[vm.readU16(frame)].AsStr().Chars
			vm.push(chunk.FromObject(&chunk.Class{Name: name, Methods: make(map[string]*chunk.Closure)}))

		case chunk.OpInherit:
			// Stack: [..., superclass, subclass]. The superclass value is
			// left in place afterward — it occupies the `super` local's
			// slot that the compiler reserved right where it was pushed.
			super, ok := vm.peek(1).AsObject().(*chunk.Class)
			if !ok {
				return vm.runtimeError("Superclass must be a class.")
			}
			sub := vm.peek(0).AsObject().(*chunk.Class)
			sub.Superclass = super
			vm.pop()

		case chunk.OpMethod:
			vm.defineMethod(c.Constants[vm.readByte(frame)].AsStr().Chars)
		case chunk.OpMethod16:
			vm.defineMethod(c.Constants[vm.readU16(frame)].AsStr().Chars)

		case chunk.OpGetProperty:
			if err := vm.getProperty(c.Constants[vm.readByte(frame)].AsStr().Chars); err != nil {
				return vm.attachTrace(err)
			}
		case chunk.OpGetProperty16:
			if err := vm.getProperty(c.Constants[vm.readU16(frame)].AsStr().Chars); err != nil {
				return vm.attachTrace(err)
			}

		case chunk.OpSetProperty:
			if err := vm.setProperty(c.Constants[vm.readByte(frame)].AsStr().Chars); err != nil {
				return vm.attachTrace(err)
			}
		case chunk.OpSetProperty16:
			if err := vm.setProperty(c.Constants[vm.readU16(frame)].AsStr().Chars); err != nil {
				return vm.attachTrace(err)
			}

		case chunk.OpGetSuper:
			name := c.Constants[vm.readByte(frame)].AsStr().Chars
			if err := vm.getSuper(name); err != nil {
				return vm.attachTrace(err)
			}
		case chunk.OpGetSuper16:
			name := c.Constants[vm.readU16(frame)].AsStr().Chars
			if err := vm.getSuper(name); err != nil {
				return vm.attachTrace(err)
			}

		case chunk.OpInvoke, chunk.OpInvoke16:
			var name string
			if op == chunk.OpInvoke {
				name = c.Constants[vm.readByte(frame)].AsStr().Chars
			} else {
				name = c.Constants[vm.readU16(frame)].AsStr().Chars
			}
			argCount := int(vm.readByte(frame))
			if err := vm.invoke(name, argCount); err != nil {
				return vm.attachTrace(err)
			}

		case chunk.OpSuperInvoke, chunk.OpSuperInvoke16:
			var name string
			if op == chunk.OpSuperInvoke {
				name = c.Constants[vm.readByte(frame)].AsStr().Chars
			} else {
				name = c.Constants[vm.readU16(frame)].AsStr().Chars
			}
			argCount := int(vm.readByte(frame))
			super := vm.pop().AsObject().(*chunk.Class)
			if err := vm.invokeFromClass(super, name, argCount); err != nil {
				return vm.attachTrace(err)
			}

		default:
			return vm.runtimeError(fmt.Sprintf("Unknown opcode %d.", op))
		}
	}
}

func (vm *VM) readByte(frame *callFrame) byte {
	b := frame.chunkRef().Code[frame.ip]
	frame.ip++
	return b
}

func (vm *VM) readU16(frame *callFrame) uint16 {
	v := frame.chunkRef().ReadU16(frame.ip)
	frame.ip += 2
	return v
}

func (vm *VM) getGlobal(name string) error {
	v, ok := vm.globals[name]
	if !ok {
		return vm.runtimeError(fmt.Sprintf("Undefined variable '%s'.", name))
	}
	vm.push(v)
	return nil
}

func (vm *VM) setGlobal(name string) error {
	if _, ok := vm.globals[name]; !ok {
		return vm.runtimeError(fmt.Sprintf("Undefined variable '%s'.", name))
	}
	vm.globals[name] = vm.peek(0)
	return nil
}

func (vm *VM) add() error {
	b, a := vm.peek(0), vm.peek(1)
	switch {
	case a.Type == chunk.TypeNumber && b.Type == chunk.TypeNumber:
		vm.pop()
		vm.pop()
		vm.push(chunk.Number(a.AsNumber() + b.AsNumber()))
	case a.Type == chunk.TypeString && b.Type == chunk.TypeString:
		vm.pop()
		vm.pop()
		joined := a.AsStr().Chars + b.AsStr().Chars
		vm.push(chunk.String(vm.interner.Intern(joined)))
	default:
		return vm.runtimeError("Operands must be two numbers or two strings.")
	}
	return nil
}

func (vm *VM) numericBinary(op func(a, b float64) float64) error {
	if vm.peek(0).Type != chunk.TypeNumber || vm.peek(1).Type != chunk.TypeNumber {
		return vm.runtimeError("Operands must be numbers.")
	}
	b, a := vm.pop(), vm.pop()
	vm.push(chunk.Number(op(a.AsNumber(), b.AsNumber())))
	return nil
}

func (vm *VM) comparisonBinary(op func(a, b float64) bool) error {
	if vm.peek(0).Type != chunk.TypeNumber || vm.peek(1).Type != chunk.TypeNumber {
		return vm.runtimeError("Operands must be numbers.")
	}
	b, a := vm.pop(), vm.pop()
	vm.push(chunk.Bool(op(a.AsNumber(), b.AsNumber())))
	return nil
}

// runtimeError builds a RuntimeError carrying the full call stack at the
// point of failure (spec §4.3, "Runtime error reporting") and resets the
// VM's stack so a REPL session can continue after it.
func (vm *VM) runtimeError(message string) error {
	err := runtimeErrorf("%s", message)
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := &vm.frames[i]
		err.Stack = append(err.Stack, Frame{Name: f.name(), Line: f.chunkRef().LineAt(f.ip - 1)})
	}
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	return err
}

// attachTrace upgrades an error raised deep in call/invoke handling (a
// call-arity mismatch, a native's own error, a missing method) into a
// RuntimeError carrying the full call stack active at the point of
// failure. Those helpers build bare *RuntimeError values with no Stack
// populated yet, since they run before a new frame exists to record —
// so this always rebuilds the trace from vm.frames rather than trusting
// any Stack the error already carries.
func (vm *VM) attachTrace(err error) error {
	return vm.runtimeError(err.Error())
}

func (vm *VM) stackTrace() string {
	s := "          "
	for _, v := range vm.stack {
		s += fmt.Sprintf("[ %s ]", chunk.Display(v))
	}
	return s
}
