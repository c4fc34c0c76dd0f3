package vm

import "time"

// nativeClock returns the number of seconds since the Unix epoch as a
// float, matching clox's clockNative (original_source/src/vm.c).
func nativeClock(vm *VM, args []Value) (Value, error) {
	return NumberValue(float64(time.Now().UnixNano()) / 1e9), nil
}
