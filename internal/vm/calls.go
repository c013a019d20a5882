package vm

import (
	"github.com/kristofer/glox/internal/chunk"
)

// callValue dispatches CALL (and the callee half of INVOKE's fallback
// path) over every kind of callable Value (spec §4.3, "CALL(argc):
// invoke callable at stack[top-argc]"): a plain closure, a native, a
// class acting as its own constructor, or a previously bound method.
func (vm *VM) callValue(callee chunk.Value, argCount int) error {
	if callee.Type != chunk.TypeObject {
		return runtimeErrorf("Can only call functions and classes.")
	}
	switch obj := callee.AsObject().(type) {
	case *chunk.Closure:
		return vm.call(obj, argCount)
	case *chunk.Native:
		args := vm.stack[len(vm.stack)-argCount:]
		result, err := obj.Fn(args)
		if err != nil {
			return err
		}
		vm.stack = vm.stack[:len(vm.stack)-argCount-1]
		vm.push(result)
		return nil
	case *chunk.Class:
		instance := &chunk.Instance{Class: obj, Fields: make(map[string]chunk.Value)}
		vm.stack[len(vm.stack)-argCount-1] = chunk.FromObject(instance)
		if init, ok := obj.FindMethod("init"); ok {
			return vm.call(init, argCount)
		}
		if argCount != 0 {
			return runtimeErrorf("Expected 0 arguments but got %d.", argCount)
		}
		return nil
	case *chunk.BoundMethod:
		vm.stack[len(vm.stack)-argCount-1] = obj.Receiver
		return vm.call(obj.Method, argCount)
	default:
		return runtimeErrorf("Can only call functions and classes.")
	}
}

// call pushes a new call frame for closure, checking arity, the
// recursion-depth guard, and that the callee's own locals — plus a fixed
// headroom of temporaries for the expressions it evaluates — can fit in
// the remaining value-stack capacity first. A function with a very large
// local count (legal up to maxLocals at the compiler level) recursing
// deeply enough can exhaust stackMax well before framesMax does — this
// guard turns that into the same graceful "Stack overflow." RuntimeError
// as the frame-count case, instead of letting push() run off the end of
// the stack's fixed backing array.
func (vm *VM) call(closure *chunk.Closure, argCount int) error {
	const tempHeadroom = 256

	if argCount != closure.Function.Arity {
		return runtimeErrorf("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
	}
	if len(vm.frames) == framesMax {
		return runtimeErrorf("Stack overflow.")
	}
	base := len(vm.stack) - argCount - 1
	if base+closure.Function.MaxSlots+tempHeadroom > stackMax {
		return runtimeErrorf("Stack overflow.")
	}
	vm.frames = append(vm.frames, callFrame{
		closure: closure,
		base:    base,
	})
	return nil
}

// invoke implements the fused get-then-call OpInvoke: it first checks
// whether `name` resolves to a plain field holding a callable (a Lox
// field can legally hold a closure), falling back to class method
// dispatch otherwise (spec extension, SPEC_FULL.md §C.1).
func (vm *VM) invoke(name string, argCount int) error {
	receiver := vm.peek(argCount)
	if receiver.Type != chunk.TypeObject {
		return runtimeErrorf("Only instances have methods.")
	}
	instance, ok := receiver.AsObject().(*chunk.Instance)
	if !ok {
		return runtimeErrorf("Only instances have methods.")
	}
	if field, ok := instance.Fields[name]; ok {
		vm.stack[len(vm.stack)-argCount-1] = field
		return vm.callValue(field, argCount)
	}
	return vm.invokeFromClass(instance.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *chunk.Class, name string, argCount int) error {
	method, ok := class.FindMethod(name)
	if !ok {
		return runtimeErrorf("Undefined property '%s'.", name)
	}
	return vm.call(method, argCount)
}

// bindMethod resolves name on class, replacing the instance on top of
// the stack with a BoundMethod pairing it with the receiver.
func (vm *VM) bindMethod(class *chunk.Class, name string) error {
	method, ok := class.FindMethod(name)
	if !ok {
		return runtimeErrorf("Undefined property '%s'.", name)
	}
	receiver := vm.pop()
	vm.push(chunk.FromObject(&chunk.BoundMethod{Receiver: receiver, Method: method}))
	return nil
}

// defineMethod pops the closure just compiled and attaches it under name
// to the class object currently on top of the stack.
func (vm *VM) defineMethod(name string) {
	method := vm.pop().AsObject().(*chunk.Closure)
	class := vm.peek(0).AsObject().(*chunk.Class)
	class.Methods[name] = method
}

func (vm *VM) getProperty(name string) error {
	if vm.peek(0).Type != chunk.TypeObject {
		return runtimeErrorf("Only instances have properties.")
	}
	instance, ok := vm.peek(0).AsObject().(*chunk.Instance)
	if !ok {
		return runtimeErrorf("Only instances have properties.")
	}
	if field, ok := instance.Fields[name]; ok {
		vm.pop()
		vm.push(field)
		return nil
	}
	if err := vm.bindMethod(instance.Class, name); err != nil {
		return err
	}
	// bindMethod already popped the instance and pushed the bound method,
	// but it expects the instance on top, which it still is here.
	return nil
}

func (vm *VM) setProperty(name string) error {
	if vm.peek(1).Type != chunk.TypeObject {
		return runtimeErrorf("Only instances have fields.")
	}
	instance, ok := vm.peek(1).AsObject().(*chunk.Instance)
	if !ok {
		return runtimeErrorf("Only instances have fields.")
	}
	value := vm.pop()
	instance.Fields[name] = value
	vm.pop() // the instance
	vm.push(value)
	return nil
}

func (vm *VM) getSuper(name string) error {
	super := vm.pop().AsObject().(*chunk.Class)
	return vm.bindMethod(super, name)
}

// captureUpvalue returns the existing open upvalue for stack slot idx,
// creating and linking one if none exists yet, so that two closures
// capturing the same local share a single cell and observe each other's
// writes (spec §4.1, "Closures").
func (vm *VM) captureUpvalue(idx int) *chunk.Upvalue {
	target := &vm.stack[idx]
	for uv := vm.openUpvalues; uv != nil; uv = uv.Next {
		if uv.Location == target {
			return uv
		}
	}
	created := &chunk.Upvalue{Location: target, Next: vm.openUpvalues}
	vm.openUpvalues = created
	return created
}

// closeUpvalues closes every open upvalue whose slot is >= last,
// copying the live value into the upvalue cell itself so it survives
// the stack frame being popped (spec §4.1). The open list is not kept
// in any particular slot order, so this always walks it in full rather
// than relying on an ordering invariant to short-circuit.
func (vm *VM) closeUpvalues(last int) {
	var head, tail *chunk.Upvalue
	for uv := vm.openUpvalues; uv != nil; {
		next := uv.Next
		if sliceIndexOf(vm.stack, uv.Location) >= last {
			uv.Closed = *uv.Location
			uv.Location = &uv.Closed
		} else {
			uv.Next = nil
			if head == nil {
				head, tail = uv, uv
			} else {
				tail.Next = uv
				tail = uv
			}
		}
		uv = next
	}
	vm.openUpvalues = head
}

func sliceIndexOf(stack []chunk.Value, p *chunk.Value) int {
	for i := range stack {
		if &stack[i] == p {
			return i
		}
	}
	return -1
}
