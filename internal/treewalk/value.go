package treewalk

import (
	"fmt"
	"math"

	"github.com/kristofer/glox/internal/ast"
)

// callable is implemented by every value that can appear on the left of
// a call expression: user-defined functions/methods, classes (acting as
// their own constructor), and natives.
type callable interface {
	arity() int
	call(interp *Interpreter, args []interface{}) (interface{}, error)
}

// function is a user-defined function or method closed over the
// environment active where it was declared, so nested functions and
// methods see the variables in scope at definition time (spec §4.1,
// "Closures"). The tree-walking back-end captures closures by keeping a
// live pointer to that environment rather than promoting individual
// locals to upvalue cells the way the bytecode VM does.
type function struct {
	declaration   *ast.Function
	closure       *environment
	isInitializer bool
}

func (f *function) arity() int { return len(f.declaration.Params) }

func (f *function) call(interp *Interpreter, args []interface{}) (interface{}, error) {
	env := newEnvironment(f.closure)
	for i, param := range f.declaration.Params {
		env.define(param.Lexeme, args[i])
	}
	err := interp.executeBlock(f.declaration.Body, env)
	if ret, ok := err.(*returnSignal); ok {
		if f.isInitializer {
			return f.closure.getAt(0, "this"), nil
		}
		return ret.value, nil
	}
	if err != nil {
		return nil, err
	}
	if f.isInitializer {
		return f.closure.getAt(0, "this"), nil
	}
	return nil, nil
}

func (f *function) bind(instance *instance) *function {
	env := newEnvironment(f.closure)
	env.define("this", instance)
	return &function{declaration: f.declaration, closure: env, isInitializer: f.isInitializer}
}

func (f *function) String() string {
	if f.declaration.Name.Lexeme == "" {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.declaration.Name.Lexeme)
}

// class is a runtime class object: its name, optional superclass, and
// its own method table. Method lookup walks the Superclass chain,
// mirroring internal/chunk.Class.FindMethod on the bytecode back-end so
// both back-ends implement the same single-inheritance semantics
// (SPEC_FULL.md §C.1).
type class struct {
	name       string
	superclass *class
	methods    map[string]*function
}

func (c *class) findMethod(name string) (*function, bool) {
	for cls := c; cls != nil; cls = cls.superclass {
		if m, ok := cls.methods[name]; ok {
			return m, true
		}
	}
	return nil, false
}

func (c *class) arity() int {
	if init, ok := c.findMethod("init"); ok {
		return init.arity()
	}
	return 0
}

func (c *class) call(interp *Interpreter, args []interface{}) (interface{}, error) {
	inst := &instance{class: c, fields: make(map[string]interface{})}
	if init, ok := c.findMethod("init"); ok {
		if _, err := init.bind(inst).call(interp, args); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

func (c *class) String() string { return fmt.Sprintf("<class %s>", c.name) }

// instance is a runtime object created by calling a class.
type instance struct {
	class  *class
	fields map[string]interface{}
}

func (i *instance) get(name string) (interface{}, error) {
	if v, ok := i.fields[name]; ok {
		return v, nil
	}
	if m, ok := i.class.findMethod(name); ok {
		return m.bind(i), nil
	}
	return nil, fmt.Errorf("Undefined property '%s'.", name)
}

func (i *instance) set(name string, value interface{}) {
	i.fields[name] = value
}

func (i *instance) String() string { return fmt.Sprintf("<%s instance>", i.class.name) }

// nativeFn wraps a Go function so it satisfies callable, the
// tree-walking counterpart of chunk.Native (spec §6.4).
type nativeFn struct {
	name string
	ar   int
	fn   func(args []interface{}) (interface{}, error)
}

func (n *nativeFn) arity() int { return n.ar }
func (n *nativeFn) call(_ *Interpreter, args []interface{}) (interface{}, error) {
	return n.fn(args)
}
func (n *nativeFn) String() string { return fmt.Sprintf("<native fn %s>", n.name) }

// isTruthy implements Lox truthiness (spec §3): only nil and false are
// falsey.
func isTruthy(v interface{}) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

// isEqual implements Value equality per spec §3: IEEE-754 for numbers,
// structural equality for bool/nil/string, identity for every heap
// object (Go's == over interface{} already gives pointer identity for
// *function/*class/*instance, matching the bytecode back-end's handle
// comparison).
func isEqual(a, b interface{}) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	an, aok := a.(float64)
	bn, bok := b.(float64)
	if aok && bok {
		return an == bn
	}
	return a == b
}

// stringify renders a value the way `print` writes it to stdout,
// matching chunk.Display's formatting so both back-ends agree on
// program output for the six end-to-end scenarios (spec §8).
func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return formatNumber(val)
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

func formatNumber(n float64) string {
	if !math.IsInf(n, 0) && !math.IsNaN(n) && n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}
