package vm

import (
	"fortio.org/safecast"

	"ember/internal/feedback"
	"ember/internal/script"
	"ember/internal/value"
)

// BitNot evaluates ~.
func (vm *VM) BitNot(v value.Value) (value.Value, *VMError) {
	i, vmErr := vm.ToInt32(v)
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	return value.Int32(^i), nil
}

// BitAnd evaluates &.
func (vm *VM) BitAnd(lhs, rhs value.Value) (value.Value, *VMError) {
	return vm.bitwise(lhs, rhs, func(l, r int32) int32 { return l & r })
}

// BitOr evaluates |.
func (vm *VM) BitOr(lhs, rhs value.Value) (value.Value, *VMError) {
	return vm.bitwise(lhs, rhs, func(l, r int32) int32 { return l | r })
}

// BitXor evaluates ^.
func (vm *VM) BitXor(lhs, rhs value.Value) (value.Value, *VMError) {
	return vm.bitwise(lhs, rhs, func(l, r int32) int32 { return l ^ r })
}

// Lsh evaluates <<. The shift count is taken mod 32.
func (vm *VM) Lsh(lhs, rhs value.Value) (value.Value, *VMError) {
	return vm.bitwise(lhs, rhs, func(l, r int32) int32 { return int32(uint32(l) << (uint32(r) & 31)) })
}

// Rsh evaluates >>.
func (vm *VM) Rsh(lhs, rhs value.Value) (value.Value, *VMError) {
	return vm.bitwise(lhs, rhs, func(l, r int32) int32 { return l >> (uint32(r) & 31) })
}

// Ursh evaluates >>>. Results above INT32_MAX become doubles and are
// reported as overflow.
func (vm *VM) Ursh(site script.Site, lhs, rhs value.Value) (value.Value, *VMError) {
	rroot := vm.Heap.Root(rhs)
	defer rroot.Release()
	left, vmErr := vm.ToUint32(lhs)
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	right, vmErr := vm.ToInt32(rroot.Get())
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	res := left >> (uint32(right) & 31)
	if i, err := safecast.Conv[int32](res); err == nil {
		return value.Int32(i), nil
	}
	vm.emit(site, feedback.Overflow)
	return value.Double(float64(res)), nil
}

func (vm *VM) bitwise(lhs, rhs value.Value, op func(l, r int32) int32) (value.Value, *VMError) {
	if lhs.IsInt32() && rhs.IsInt32() {
		return value.Int32(op(lhs.AsInt32(), rhs.AsInt32())), nil
	}
	rroot := vm.Heap.Root(rhs)
	defer rroot.Release()
	l, vmErr := vm.ToInt32(lhs)
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	r, vmErr := vm.ToInt32(rroot.Get())
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	return value.Int32(op(l, r)), nil
}
