package treewalk

import (
	"github.com/kristofer/glox/internal/ast"
	"github.com/kristofer/glox/internal/diag"
	"github.com/kristofer/glox/internal/token"
)

// functionType tracks what kind of function body the resolver is
// currently inside, so it can reject `return` at the top level and a
// value-carrying `return` inside an initializer (spec §4.2's
// equivalent rules for the bytecode compiler's FuncType).
type functionType int

const (
	funcNone functionType = iota
	funcFunction
	funcMethod
	funcInitializer
)

// classType tracks whether the resolver is inside a class body (and
// whether that class has a superclass), so it can reject `this`/`super`
// used outside of one.
type classType int

const (
	classNone classType = iota
	classClass
	classSubclass
)

// Resolver performs the static scope-depth annotation spec §4.1
// describes: "variable uses are pre-resolved at parse time to a depth
// into this stack or flagged as global." It walks the tree once after
// parsing and records, for every variable-reading or -writing
// expression node, how many environment links separate it from its
// declaration — the interpreter then uses that depth to jump straight
// to the right scope instead of searching outward at run time.
type Resolver struct {
	interp          *Interpreter
	reporter        *diag.Reporter
	scopes          []map[string]bool
	currentFunction functionType
	currentClass    classType
}

// NewResolver creates a Resolver that annotates interp.locals.
func NewResolver(interp *Interpreter, reporter *diag.Reporter) *Resolver {
	return &Resolver{interp: interp, reporter: reporter}
}

// Resolve walks every top-level statement.
func (r *Resolver) Resolve(stmts []ast.Stmt) {
	for _, s := range stmts {
		r.resolveStmt(s)
	}
}

func (r *Resolver) beginScope() {
	r.scopes = append(r.scopes, make(map[string]bool))
}

func (r *Resolver) endScope() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *Resolver) declare(name token.Token) {
	if len(r.scopes) == 0 {
		return
	}
	scope := r.scopes[len(r.scopes)-1]
	if _, ok := scope[name.Lexeme]; ok {
		r.reporter.Report(name.Line, "'"+name.Lexeme+"'", "Already a variable with this name in this scope.")
	}
	scope[name.Lexeme] = false
}

func (r *Resolver) define(name token.Token) {
	if len(r.scopes) == 0 {
		return
	}
	r.scopes[len(r.scopes)-1][name.Lexeme] = true
}

func (r *Resolver) resolveLocal(expr ast.Expr, name token.Token) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if _, ok := r.scopes[i][name.Lexeme]; ok {
			r.interp.resolve(expr, len(r.scopes)-1-i)
			return
		}
	}
	// Not found in any scope: treated as global, resolved by name at
	// run time against interp.globals (spec §4.1).
}

func (r *Resolver) resolveFunction(fn *ast.Function, kind functionType) {
	enclosingFunction := r.currentFunction
	r.currentFunction = kind
	r.beginScope()
	for _, param := range fn.Params {
		r.declare(param)
		r.define(param)
	}
	r.Resolve(fn.Body)
	r.endScope()
	r.currentFunction = enclosingFunction
}

func (r *Resolver) resolveStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.Block:
		r.beginScope()
		r.Resolve(s.Statements)
		r.endScope()
	case *ast.Class:
		r.resolveClass(s)
	case *ast.Var:
		r.declare(s.Name)
		if s.Initializer != nil {
			r.resolveExpr(s.Initializer)
		}
		r.define(s.Name)
	case *ast.Function:
		r.declare(s.Name)
		r.define(s.Name)
		r.resolveFunction(s, funcFunction)
	case *ast.Expression:
		r.resolveExpr(s.Expr)
	case *ast.If:
		r.resolveExpr(s.Condition)
		r.resolveStmt(s.Then)
		if s.Else != nil {
			r.resolveStmt(s.Else)
		}
	case *ast.Print:
		r.resolveExpr(s.Expr)
	case *ast.Return:
		if r.currentFunction == funcNone {
			r.reporter.Report(s.Keyword.Line, "'return'", "Can't return from top-level code.")
		}
		if s.Value != nil {
			if r.currentFunction == funcInitializer {
				r.reporter.Report(s.Keyword.Line, "'return'", "Can't return a value from an initializer.")
			}
			r.resolveExpr(s.Value)
		}
	case *ast.While:
		r.resolveExpr(s.Condition)
		r.resolveStmt(s.Body)
	default:
		panic("treewalk: resolver hit unknown statement type")
	}
}

func (r *Resolver) resolveClass(s *ast.Class) {
	enclosingClass := r.currentClass
	r.currentClass = classClass

	r.declare(s.Name)
	r.define(s.Name)

	if s.Superclass != nil {
		if s.Superclass.Name.Lexeme == s.Name.Lexeme {
			r.reporter.Report(s.Superclass.Name.Line, "'"+s.Superclass.Name.Lexeme+"'", "A class can't inherit from itself.")
		}
		r.currentClass = classSubclass
		r.resolveExpr(s.Superclass)

		r.beginScope()
		r.scopes[len(r.scopes)-1]["super"] = true
	}

	r.beginScope()
	r.scopes[len(r.scopes)-1]["this"] = true

	for _, method := range s.Methods {
		kind := funcMethod
		if method.Name.Lexeme == "init" {
			kind = funcInitializer
		}
		r.resolveFunction(method, kind)
	}

	r.endScope()
	if s.Superclass != nil {
		r.endScope()
	}
	r.currentClass = enclosingClass
}

func (r *Resolver) resolveExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.Variable:
		if len(r.scopes) > 0 {
			if defined, ok := r.scopes[len(r.scopes)-1][e.Name.Lexeme]; ok && !defined {
				r.reporter.Report(e.Name.Line, "'"+e.Name.Lexeme+"'", "Can't read local variable in its own initializer.")
			}
		}
		r.resolveLocal(e, e.Name)
	case *ast.Assign:
		r.resolveExpr(e.Value)
		r.resolveLocal(e, e.Name)
	case *ast.Binary:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)
	case *ast.Logical:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)
	case *ast.Call:
		r.resolveExpr(e.Callee)
		for _, arg := range e.Args {
			r.resolveExpr(arg)
		}
	case *ast.Get:
		r.resolveExpr(e.Object)
	case *ast.Set:
		r.resolveExpr(e.Value)
		r.resolveExpr(e.Object)
	case *ast.This:
		if r.currentClass == classNone {
			r.reporter.Report(e.Keyword.Line, "'this'", "Can't use 'this' outside of a class.")
			return
		}
		r.resolveLocal(e, e.Keyword)
	case *ast.Super:
		switch r.currentClass {
		case classNone:
			r.reporter.Report(e.Keyword.Line, "'super'", "Can't use 'super' outside of a class.")
		case classClass:
			r.reporter.Report(e.Keyword.Line, "'super'", "Can't use 'super' in a class with no superclass.")
		}
		r.resolveLocal(e, e.Keyword)
	case *ast.Grouping:
		r.resolveExpr(e.Expression)
	case *ast.Unary:
		r.resolveExpr(e.Right)
	case *ast.Literal:
		// no subexpressions
	default:
		panic("treewalk: resolver hit unknown expression type")
	}
}
