// Package chunk defines the runtime value representation and the
// compiled bytecode container shared by the compiler and the VM (spec §3,
// §4.4).
package chunk

import (
	"fmt"
	"math"
)

// Type discriminates the variant held by a Value.
type Type byte

const (
	TypeNil Type = iota
	TypeBool
	TypeNumber
	TypeString
	TypeObject
)

// Value is a tagged union: Nil, Bool, Number, a handle to an interned
// string, or a handle to a heap Object (function, closure, class,
// instance, bound method, native). Only one of the payload fields is
// meaningful at a time, selected by Type.
//
// String identity is delegated to the *Str the compiler or VM obtained
// from the interner (package chunk's Interner) — two Values of TypeString
// are equal iff their Str pointers are identical, which is sound exactly
// because every string-producing code path interns (spec §3, §4.4).
type Value struct {
	Type Type
	num  float64
	str  *Str
	obj  Object
}

// Nil is the single nil value.
var Nil = Value{Type: TypeNil}

// Bool wraps a boolean.
func Bool(b bool) Value {
	v := Value{Type: TypeBool}
	if b {
		v.num = 1
	}
	return v
}

// Number wraps a float64.
func Number(n float64) Value {
	return Value{Type: TypeNumber, num: n}
}

// String wraps an interned string handle.
func String(s *Str) Value {
	return Value{Type: TypeString, str: s}
}

// FromObject wraps a heap object handle.
func FromObject(o Object) Value {
	return Value{Type: TypeObject, obj: o}
}

// AsBool returns the payload of a TypeBool value.
func (v Value) AsBool() bool { return v.num != 0 }

// AsNumber returns the payload of a TypeNumber value.
func (v Value) AsNumber() float64 { return v.num }

// AsStr returns the interned-string handle of a TypeString value.
func (v Value) AsStr() *Str { return v.str }

// AsObject returns the heap object handle of a TypeObject value.
func (v Value) AsObject() Object { return v.obj }

// IsNil reports whether v is the nil value.
func (v Value) IsNil() bool { return v.Type == TypeNil }

// Truthy implements Lox truthiness: only nil and false are falsey (spec
// §3); every other value, including 0 and "", is truthy.
func (v Value) Truthy() bool {
	switch v.Type {
	case TypeNil:
		return false
	case TypeBool:
		return v.AsBool()
	default:
		return true
	}
}

// Equal implements Value equality per spec §3: IEEE-754 for numbers,
// structural equality for bool/nil, identity for strings and objects.
func Equal(a, b Value) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case TypeNil:
		return true
	case TypeBool:
		return a.AsBool() == b.AsBool()
	case TypeNumber:
		return a.AsNumber() == b.AsNumber()
	case TypeString:
		return a.str == b.str
	case TypeObject:
		return a.obj == b.obj
	default:
		return false
	}
}

// Display renders a value the way `print` writes it to stdout.
func Display(v Value) string {
	switch v.Type {
	case TypeNil:
		return "nil"
	case TypeBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case TypeNumber:
		return formatNumber(v.AsNumber())
	case TypeString:
		return v.str.Chars
	case TypeObject:
		return v.obj.String()
	default:
		return "<invalid value>"
	}
}

func formatNumber(n float64) string {
	// Lox numbers are doubles but print integral values without a
	// trailing ".0" tail, matching the reference implementation's
	// printf("%g"-ish) behavior for whole numbers while still rendering
	// full float precision otherwise.
	if !math.IsInf(n, 0) && !math.IsNaN(n) && n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}

// Object is implemented by every heap-allocated Lox runtime value: user
// functions, closures, upvalue cells, native functions, classes,
// instances, and bound methods.
type Object interface {
	objectTag()
	String() string
}
