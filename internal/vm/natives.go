package vm

import (
	"time"

	"github.com/kristofer/glox/internal/chunk"
)

// defineNatives seeds the globals table with native bindings before the
// first instruction runs (spec §4.3, "Globals: ... seeded with native
// function bindings before the first instruction").
func (vm *VM) defineNatives() {
	vm.defineNative("clock", nativeClock)
}

func (vm *VM) defineNative(name string, fn chunk.NativeFn) {
	vm.globals[name] = chunk.FromObject(&chunk.Native{Name: name, Fn: fn})
}

// nativeClock returns seconds elapsed since the Unix epoch, matching
// clox's benchmark-script clock() native.
func nativeClock(args []chunk.Value) (chunk.Value, error) {
	return chunk.Number(float64(time.Now().UnixNano()) / 1e9), nil
}
