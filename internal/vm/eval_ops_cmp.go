package vm

import (
	"cmp"
	"math"

	"ember/internal/value"
)

// comparator maps a three-way comparison result to the operator's answer.
type comparator func(c int) bool

var (
	cmpLess         comparator = func(c int) bool { return c < 0 }
	cmpLessEqual    comparator = func(c int) bool { return c <= 0 }
	cmpGreater      comparator = func(c int) bool { return c > 0 }
	cmpGreaterEqual comparator = func(c int) bool { return c >= 0 }
)

// LessThan evaluates <.
func (vm *VM) LessThan(lhs, rhs value.Value) (bool, *VMError) {
	return vm.relational(lhs, rhs, cmpLess)
}

// LessThanOrEqual evaluates <=.
func (vm *VM) LessThanOrEqual(lhs, rhs value.Value) (bool, *VMError) {
	return vm.relational(lhs, rhs, cmpLessEqual)
}

// GreaterThan evaluates >.
func (vm *VM) GreaterThan(lhs, rhs value.Value) (bool, *VMError) {
	return vm.relational(lhs, rhs, cmpGreater)
}

// GreaterThanOrEqual evaluates >=.
func (vm *VM) GreaterThanOrEqual(lhs, rhs value.Value) (bool, *VMError) {
	return vm.relational(lhs, rhs, cmpGreaterEqual)
}

// relational is shared by all four relational operators. Any comparison
// involving NaN is false.
func (vm *VM) relational(lhs, rhs value.Value, op comparator) (bool, *VMError) {
	if lhs.IsInt32() && rhs.IsInt32() {
		return op(cmp.Compare(lhs.AsInt32(), rhs.AsInt32())), nil
	}
	lp, rp, vmErr := vm.toPrimitivePair(lhs, rhs, HintNumber)
	if vmErr != nil {
		return false, vmErr
	}
	if lp.IsString() && rp.IsString() {
		return op(value.Compare(lp.AsString(), rp.AsString())), nil
	}
	l, vmErr := vm.toNumber(lp)
	if vmErr != nil {
		return false, vmErr
	}
	r, vmErr := vm.toNumber(rp)
	if vmErr != nil {
		return false, vmErr
	}
	if math.IsNaN(l) || math.IsNaN(r) {
		return false, nil
	}
	return op(cmp.Compare(l, r)), nil
}
