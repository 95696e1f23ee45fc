package vm

import (
	"math"

	"ember/internal/feedback"
	"ember/internal/script"
	"ember/internal/value"
)

// Add evaluates binary +. Both operands go through ToPrimitive, left
// first, before either is inspected for strings.
func (vm *VM) Add(site script.Site, lhs, rhs value.Value) (value.Value, *VMError) {
	if lhs.IsInt32() && rhs.IsInt32() {
		l, r := lhs.AsInt32(), rhs.AsInt32()
		if sum, ok := AddInt32Checked(l, r); ok {
			return value.Int32(sum), nil
		}
		vm.emit(site, feedback.Overflow)
		return value.Double(float64(l) + float64(r)), nil
	}

	lIsObject, rIsObject := lhs.IsObject(), rhs.IsObject()
	lp, rp, vmErr := vm.toPrimitivePair(lhs, rhs, HintDefault)
	if vmErr != nil {
		return value.Undefined(), vmErr
	}

	if lp.IsString() || rp.IsString() {
		ls, vmErr := vm.ToString(lp)
		if vmErr != nil {
			return value.Undefined(), vmErr
		}
		rs, vmErr := vm.ToString(rp)
		if vmErr != nil {
			return value.Undefined(), vmErr
		}
		if lIsObject || rIsObject {
			vm.emit(site, feedback.ProducedString)
		}
		return value.Str(value.Concat(ls, rs)), nil
	}

	l, vmErr := vm.toNumber(lp)
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	r, vmErr := vm.toNumber(rp)
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	res, isInt := value.NumberIsInt(l + r)
	if !isInt && (lIsObject || rIsObject || (!lp.IsDouble() && !rp.IsDouble())) {
		vm.emit(site, feedback.Overflow)
	}
	return res, nil
}

// Sub evaluates binary -.
func (vm *VM) Sub(site script.Site, lhs, rhs value.Value) (value.Value, *VMError) {
	d1, d2, vmErr := vm.toNumberPair(lhs, rhs)
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	res, isInt := value.NumberIsInt(d1 - d2)
	if !isInt && !(lhs.IsDouble() || rhs.IsDouble()) {
		vm.emit(site, feedback.Overflow)
	}
	return res, nil
}

// Mul evaluates binary *.
func (vm *VM) Mul(site script.Site, lhs, rhs value.Value) (value.Value, *VMError) {
	d1, d2, vmErr := vm.toNumberPair(lhs, rhs)
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	res, isInt := value.NumberIsInt(d1 * d2)
	if !isInt && !(lhs.IsDouble() || rhs.IsDouble()) {
		vm.emit(site, feedback.Overflow)
	}
	return res, nil
}

// Div evaluates binary /. Division by zero yields ±Infinity or NaN and is
// always reported as overflow.
func (vm *VM) Div(site script.Site, lhs, rhs value.Value) (value.Value, *VMError) {
	d1, d2, vmErr := vm.toNumberPair(lhs, rhs)
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	res, isInt := value.NumberIsInt(d1 / d2)
	if d2 == 0 || (!isInt && !(lhs.IsDouble() || rhs.IsDouble())) {
		vm.emit(site, feedback.Overflow)
	}
	return res, nil
}

// Mod evaluates binary %. Only the non-negative int32 case stays quiet.
func (vm *VM) Mod(site script.Site, lhs, rhs value.Value) (value.Value, *VMError) {
	if lhs.IsInt32() && rhs.IsInt32() {
		if l, r := lhs.AsInt32(), rhs.AsInt32(); l >= 0 && r > 0 {
			return value.Int32(l % r), nil
		}
	}
	d1, d2, vmErr := vm.toNumberPair(lhs, rhs)
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	vm.emit(site, feedback.Overflow)
	return value.Number(numberMod(d1, d2)), nil
}

// numberMod is the language remainder: the sign follows the dividend.
func numberMod(a, b float64) float64 {
	if b == 0 {
		return math.NaN()
	}
	return math.Mod(a, b)
}

// Neg evaluates unary -. Negating 0 or INT32_MIN leaves the int32 range.
func (vm *VM) Neg(site script.Site, v value.Value) (value.Value, *VMError) {
	if v.IsInt32() {
		if i := v.AsInt32(); i != 0 && i != math.MinInt32 {
			return value.Int32(-i), nil
		}
	}
	d, vmErr := vm.toNumber(v)
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	res, isInt := value.NumberIsInt(-d)
	if !isInt && !v.IsDouble() {
		vm.emit(site, feedback.Overflow)
	}
	return res, nil
}

// Pos evaluates unary +.
func (vm *VM) Pos(v value.Value) (value.Value, *VMError) {
	if v.IsNumber() {
		return v, nil
	}
	d, vmErr := vm.toNumber(v)
	if vmErr != nil {
		return value.Undefined(), vmErr
	}
	return value.Number(d), nil
}

// toPrimitivePair converts lhs then rhs. Each value is rooted while the
// other operand's conversion may run user code.
func (vm *VM) toPrimitivePair(lhs, rhs value.Value, hint Hint) (value.Value, value.Value, *VMError) {
	if lhs.IsPrimitive() && rhs.IsPrimitive() {
		return lhs, rhs, nil
	}
	rroot := vm.Heap.Root(rhs)
	defer rroot.Release()
	lp, vmErr := vm.ToPrimitive(lhs, hint)
	if vmErr != nil {
		return value.Undefined(), value.Undefined(), vmErr
	}
	lroot := vm.Heap.Root(lp)
	defer lroot.Release()
	rp, vmErr := vm.ToPrimitive(rroot.Get(), hint)
	if vmErr != nil {
		return value.Undefined(), value.Undefined(), vmErr
	}
	return lroot.Get(), rp, nil
}

// toNumberPair converts lhs then rhs to doubles.
func (vm *VM) toNumberPair(lhs, rhs value.Value) (float64, float64, *VMError) {
	if lhs.IsNumber() && rhs.IsNumber() {
		return lhs.AsNumber(), rhs.AsNumber(), nil
	}
	rroot := vm.Heap.Root(rhs)
	defer rroot.Release()
	d1, vmErr := vm.toNumber(lhs)
	if vmErr != nil {
		return 0, 0, vmErr
	}
	d2, vmErr := vm.toNumber(rroot.Get())
	if vmErr != nil {
		return 0, 0, vmErr
	}
	return d1, d2, nil
}
