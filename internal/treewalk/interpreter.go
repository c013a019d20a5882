package treewalk

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kristofer/glox/internal/ast"
	"github.com/kristofer/glox/internal/token"
)

// Interpreter walks a resolved ast.Stmt tree directly (spec §1, "a
// tree-walking interpreter"; SPEC_FULL.md §C.2). Unlike the bytecode
// VM, it has no instruction pointer or chunk: each node is evaluated by
// recursing into its children, and variable lookups go through
// environment (a linked stack of scope maps) at a depth the resolver
// has already computed.
type Interpreter struct {
	globals     *environment
	environment *environment
	locals      map[ast.Expr]int

	out io.Writer
}

// NewInterpreter creates an Interpreter writing `print` output to
// stdout, with the same native bindings internal/vm seeds into its
// globals (spec §6.4).
func NewInterpreter() *Interpreter {
	return NewInterpreterWithOutput(os.Stdout)
}

// NewInterpreterWithOutput creates an Interpreter writing `print`
// output to out, useful for tests that capture output instead of
// writing to the real stdout.
func NewInterpreterWithOutput(out io.Writer) *Interpreter {
	globals := newEnvironment(nil)
	interp := &Interpreter{
		globals:     globals,
		environment: globals,
		locals:      make(map[ast.Expr]int),
		out:         out,
	}
	interp.defineNatives()
	return interp
}

func (interp *Interpreter) defineNatives() {
	interp.globals.define("clock", &nativeFn{name: "clock", ar: 0, fn: func(args []interface{}) (interface{}, error) {
		return float64(time.Now().UnixNano()) / 1e9, nil
	}})
}

// resolve records how many environment links separate a variable use
// from its declaration, called by the Resolver once per variable
// reference before the interpreter ever runs (spec §4.1).
func (interp *Interpreter) resolve(expr ast.Expr, depth int) {
	interp.locals[expr] = depth
}

// Interpret runs a fully parsed and resolved program. A non-nil error
// is always a *RuntimeError; parse and resolution errors are reported
// through the diag.Reporter passed to the parser/resolver and surface
// before Interpret is ever called.
func (interp *Interpreter) Interpret(stmts []ast.Stmt) error {
	for _, stmt := range stmts {
		if err := interp.execute(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (interp *Interpreter) execute(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.Expression:
		_, err := interp.evaluate(s.Expr)
		return err

	case *ast.Print:
		v, err := interp.evaluate(s.Expr)
		if err != nil {
			return err
		}
		fmt.Fprintln(interp.out, stringify(v))
		return nil

	case *ast.Var:
		var value interface{}
		if s.Initializer != nil {
			v, err := interp.evaluate(s.Initializer)
			if err != nil {
				return err
			}
			value = v
		}
		interp.environment.define(s.Name.Lexeme, value)
		return nil

	case *ast.Block:
		return interp.executeBlock(s.Statements, newEnvironment(interp.environment))

	case *ast.If:
		cond, err := interp.evaluate(s.Condition)
		if err != nil {
			return err
		}
		if isTruthy(cond) {
			return interp.execute(s.Then)
		}
		if s.Else != nil {
			return interp.execute(s.Else)
		}
		return nil

	case *ast.While:
		for {
			cond, err := interp.evaluate(s.Condition)
			if err != nil {
				return err
			}
			if !isTruthy(cond) {
				return nil
			}
			if err := interp.execute(s.Body); err != nil {
				return err
			}
		}

	case *ast.Function:
		fn := &function{declaration: s, closure: interp.environment}
		interp.environment.define(s.Name.Lexeme, fn)
		return nil

	case *ast.Return:
		var value interface{}
		if s.Value != nil {
			v, err := interp.evaluate(s.Value)
			if err != nil {
				return err
			}
			value = v
		}
		return &returnSignal{value: value}

	case *ast.Class:
		return interp.executeClass(s)

	default:
		panic("treewalk: interpreter hit unknown statement type")
	}
}

func (interp *Interpreter) executeClass(s *ast.Class) error {
	var super *class
	if s.Superclass != nil {
		v, err := interp.evaluate(s.Superclass)
		if err != nil {
			return err
		}
		sc, ok := v.(*class)
		if !ok {
			return runtimeErrorf(s.Superclass.Name, "Superclass must be a class.")
		}
		super = sc
	}

	interp.environment.define(s.Name.Lexeme, nil)

	env := interp.environment
	if s.Superclass != nil {
		env = newEnvironment(interp.environment)
		env.define("super", super)
	}

	methods := make(map[string]*function)
	for _, m := range s.Methods {
		methods[m.Name.Lexeme] = &function{
			declaration:   m,
			closure:       env,
			isInitializer: m.Name.Lexeme == "init",
		}
	}

	cls := &class{name: s.Name.Lexeme, superclass: super, methods: methods}
	return interp.environment.assign(s.Name.Lexeme, cls)
}

// executeBlock runs stmts in env, restoring the interpreter's previous
// environment afterward even if a runtime error or returnSignal
// propagates out of it.
func (interp *Interpreter) executeBlock(stmts []ast.Stmt, env *environment) error {
	previous := interp.environment
	interp.environment = env
	defer func() { interp.environment = previous }()

	for _, stmt := range stmts {
		if err := interp.execute(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (interp *Interpreter) evaluate(expr ast.Expr) (interface{}, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		return e.Value, nil

	case *ast.Grouping:
		return interp.evaluate(e.Expression)

	case *ast.Unary:
		right, err := interp.evaluate(e.Right)
		if err != nil {
			return nil, err
		}
		switch e.Operator.Kind {
		case token.Minus:
			n, ok := right.(float64)
			if !ok {
				return nil, runtimeErrorf(e.Operator, "Operand must be a number.")
			}
			return -n, nil
		case token.Bang:
			return !isTruthy(right), nil
		}
		panic("treewalk: unknown unary operator")

	case *ast.Binary:
		return interp.evalBinary(e)

	case *ast.Logical:
		left, err := interp.evaluate(e.Left)
		if err != nil {
			return nil, err
		}
		if e.Operator.Kind == token.Or {
			if isTruthy(left) {
				return left, nil
			}
		} else if !isTruthy(left) {
			return left, nil
		}
		return interp.evaluate(e.Right)

	case *ast.Variable:
		return interp.lookupVariable(e.Name, e)

	case *ast.Assign:
		value, err := interp.evaluate(e.Value)
		if err != nil {
			return nil, err
		}
		if depth, ok := interp.locals[e]; ok {
			interp.environment.assignAt(depth, e.Name.Lexeme, value)
		} else if err := interp.globals.assign(e.Name.Lexeme, value); err != nil {
			return nil, runtimeErrorf(e.Name, "%s", err.Error())
		}
		return value, nil

	case *ast.Call:
		return interp.evalCall(e)

	case *ast.Get:
		obj, err := interp.evaluate(e.Object)
		if err != nil {
			return nil, err
		}
		inst, ok := obj.(*instance)
		if !ok {
			return nil, runtimeErrorf(e.Name, "Only instances have properties.")
		}
		v, err := inst.get(e.Name.Lexeme)
		if err != nil {
			return nil, runtimeErrorf(e.Name, "%s", err.Error())
		}
		return v, nil

	case *ast.Set:
		obj, err := interp.evaluate(e.Object)
		if err != nil {
			return nil, err
		}
		inst, ok := obj.(*instance)
		if !ok {
			return nil, runtimeErrorf(e.Name, "Only instances have fields.")
		}
		value, err := interp.evaluate(e.Value)
		if err != nil {
			return nil, err
		}
		inst.set(e.Name.Lexeme, value)
		return value, nil

	case *ast.This:
		return interp.lookupVariable(e.Keyword, e)

	case *ast.Super:
		return interp.evalSuper(e)

	default:
		panic("treewalk: interpreter hit unknown expression type")
	}
}

func (interp *Interpreter) evalBinary(e *ast.Binary) (interface{}, error) {
	left, err := interp.evaluate(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := interp.evaluate(e.Right)
	if err != nil {
		return nil, err
	}

	switch e.Operator.Kind {
	case token.Plus:
		if ln, lok := left.(float64); lok {
			if rn, rok := right.(float64); rok {
				return ln + rn, nil
			}
		}
		if ls, lok := left.(string); lok {
			if rs, rok := right.(string); rok {
				return ls + rs, nil
			}
		}
		return nil, runtimeErrorf(e.Operator, "Operands must be two numbers or two strings.")
	case token.Minus, token.Slash, token.Star,
		token.Greater, token.GreaterEqual, token.Less, token.LessEqual:
		ln, lok := left.(float64)
		rn, rok := right.(float64)
		if !lok || !rok {
			return nil, runtimeErrorf(e.Operator, "Operands must be numbers.")
		}
		switch e.Operator.Kind {
		case token.Minus:
			return ln - rn, nil
		case token.Slash:
			return ln / rn, nil
		case token.Star:
			return ln * rn, nil
		case token.Greater:
			return ln > rn, nil
		case token.GreaterEqual:
			return ln >= rn, nil
		case token.Less:
			return ln < rn, nil
		case token.LessEqual:
			return ln <= rn, nil
		}
	case token.EqualEqual:
		return isEqual(left, right), nil
	case token.BangEqual:
		return !isEqual(left, right), nil
	}
	panic("treewalk: unknown binary operator")
}

func (interp *Interpreter) evalCall(e *ast.Call) (interface{}, error) {
	calleeVal, err := interp.evaluate(e.Callee)
	if err != nil {
		return nil, err
	}
	args := make([]interface{}, len(e.Args))
	for i, a := range e.Args {
		v, err := interp.evaluate(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	fn, ok := calleeVal.(callable)
	if !ok {
		return nil, runtimeErrorf(e.Paren, "Can only call functions and classes.")
	}
	if len(args) != fn.arity() {
		return nil, runtimeErrorf(e.Paren, "Expected %d arguments but got %d.", fn.arity(), len(args))
	}
	return fn.call(interp, args)
}

func (interp *Interpreter) evalSuper(e *ast.Super) (interface{}, error) {
	depth := interp.locals[e]
	superVal := interp.environment.getAt(depth, "super")
	super := superVal.(*class)
	// "this" is always declared one scope tighter than "super" (see
	// resolveClass/executeClass: the this-scope is nested inside the
	// super-scope), so it sits at depth-1 from here.
	thisVal := interp.environment.getAt(depth-1, "this")
	inst := thisVal.(*instance)

	method, ok := super.findMethod(e.Method.Lexeme)
	if !ok {
		return nil, runtimeErrorf(e.Method, "Undefined property '%s'.", e.Method.Lexeme)
	}
	return method.bind(inst), nil
}

func (interp *Interpreter) lookupVariable(name token.Token, expr ast.Expr) (interface{}, error) {
	if depth, ok := interp.locals[expr]; ok {
		return interp.environment.getAt(depth, name.Lexeme), nil
	}
	v, err := interp.globals.get(name.Lexeme)
	if err != nil {
		return nil, runtimeErrorf(name, "%s", err.Error())
	}
	return v, nil
}
