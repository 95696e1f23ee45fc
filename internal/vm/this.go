package vm

import (
	"ember/internal/object"
	"ember/internal/value"
)

// ComputeThis returns the frame's this value, boxing a primitive this for
// sloppy-mode functions. undefined and null become the global object.
// The boxed value is stored back into the frame.
func (vm *VM) ComputeThis(fr *Frame) (value.Value, *VMError) {
	if fr.IsFunctionFrame() {
		if fn, ok := vm.Heap.Function(fr.Callee); ok && fn.Script != nil && (fn.Script.Strict || fn.Script.SelfHosted) {
			return fr.This, nil
		}
	}
	switch {
	case fr.This.IsObject():
		return fr.This, nil
	case fr.This.IsNullOrUndefined():
		fr.This = value.Object(vm.Global())
	default:
		h, vmErr := vm.ToObject(fr.This)
		if vmErr != nil {
			return value.Undefined(), vmErr
		}
		fr.This = value.Object(h)
	}
	return fr.This, nil
}

// TypeOf returns the typeof string of v.
func (vm *VM) TypeOf(v value.Value) string {
	switch v.Kind() {
	case value.KindUndefined:
		return "undefined"
	case value.KindNull:
		return "object"
	case value.KindBool:
		return "boolean"
	case value.KindInt32, value.KindDouble:
		return "number"
	case value.KindString:
		return "string"
	case value.KindObject:
		if vm.Heap.Class(v.AsObject()) == object.ClassFunction {
			return "function"
		}
		return "object"
	default:
		// optimized arguments
		return "object"
	}
}
