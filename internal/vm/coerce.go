package vm

import (
	"math"

	"fortio.org/safecast"

	"ember/internal/object"
	"ember/internal/value"
)

// Hint selects the conversion order of ToPrimitive.
type Hint uint8

const (
	HintDefault Hint = iota
	HintNumber
	HintString
)

func (h Hint) String() string {
	switch h {
	case HintNumber:
		return "number"
	case HintString:
		return "string"
	default:
		return "default"
	}
}

// ToPrimitive converts an object through valueOf/toString. The string hint
// tries toString first. Primitives are returned unchanged.
func (vm *VM) ToPrimitive(v value.Value, hint Hint) (value.Value, *VMError) {
	switch v.Kind() {
	case value.KindObject:
	case value.KindMagic:
		return value.Undefined(), vm.eb.internal("conversion of " + v.String())
	default:
		return v, nil
	}

	methods := [2]string{"valueOf", "toString"}
	if hint == HintString {
		methods[0], methods[1] = methods[1], methods[0]
	}
	for _, name := range methods {
		fn, err := vm.Heap.Get(v.AsObject(), vm.Heap.Key(name), v)
		if err != nil {
			return value.Undefined(), vm.eb.wrap(err)
		}
		if !vm.Heap.IsCallable(fn) {
			continue
		}
		r, vmErr := vm.Call(fn, v, nil)
		if vmErr != nil {
			return value.Undefined(), vmErr
		}
		if r.IsPrimitive() {
			return r, nil
		}
	}
	return value.Undefined(), vm.eb.noPrimitive(hint)
}

func (vm *VM) toNumber(v value.Value) (float64, *VMError) {
	switch v.Kind() {
	case value.KindInt32, value.KindDouble:
		return v.AsNumber(), nil
	case value.KindUndefined:
		return math.NaN(), nil
	case value.KindNull:
		return 0, nil
	case value.KindBool:
		if v.AsBool() {
			return 1, nil
		}
		return 0, nil
	case value.KindString:
		return value.StringToNumber(v.AsString()), nil
	case value.KindObject:
		p, vmErr := vm.ToPrimitive(v, HintNumber)
		if vmErr != nil {
			return 0, vmErr
		}
		return vm.toNumber(p)
	default:
		return 0, vm.eb.internal("conversion of " + v.String())
	}
}

// ToInt32 applies ToNumber then the modular int32 conversion.
func (vm *VM) ToInt32(v value.Value) (int32, *VMError) {
	if v.IsInt32() {
		return v.AsInt32(), nil
	}
	d, vmErr := vm.toNumber(v)
	if vmErr != nil {
		return 0, vmErr
	}
	return value.ToInt32(d), nil
}

// ToUint32 applies ToNumber then the modular uint32 conversion.
func (vm *VM) ToUint32(v value.Value) (uint32, *VMError) {
	if v.IsInt32() {
		return uint32(v.AsInt32()), nil
	}
	d, vmErr := vm.toNumber(v)
	if vmErr != nil {
		return 0, vmErr
	}
	return value.ToUint32(d), nil
}

// ToString converts v to a string, running user conversions for objects.
func (vm *VM) ToString(v value.Value) (*value.String, *VMError) {
	switch v.Kind() {
	case value.KindString:
		return v.AsString(), nil
	case value.KindInt32, value.KindDouble:
		return value.NewString(value.NumberToString(v.AsNumber())), nil
	case value.KindBool:
		if v.AsBool() {
			return value.NewString("true"), nil
		}
		return value.NewString("false"), nil
	case value.KindUndefined:
		return value.NewString("undefined"), nil
	case value.KindNull:
		return value.NewString("null"), nil
	case value.KindObject:
		p, vmErr := vm.ToPrimitive(v, HintString)
		if vmErr != nil {
			return nil, vmErr
		}
		return vm.ToString(p)
	default:
		return nil, vm.eb.internal("conversion of " + v.String())
	}
}

// ToBoolean converts v without side effects.
func ToBoolean(v value.Value) bool {
	switch v.Kind() {
	case value.KindBool:
		return v.AsBool()
	case value.KindInt32:
		return v.AsInt32() != 0
	case value.KindDouble:
		d := v.AsDouble()
		return d != 0 && !math.IsNaN(d)
	case value.KindString:
		return v.AsString().Len() > 0
	case value.KindObject:
		return true
	default:
		return false
	}
}

// ToObject returns v's object, wrapping primitives with the realm's
// prototypes. null and undefined fail with a TypeError.
func (vm *VM) ToObject(v value.Value) (value.Handle, *VMError) {
	vm.resolveArguments(vm.CurrentFrame(), &v)
	r := vm.Realm
	switch v.Kind() {
	case value.KindObject:
		return v.AsObject(), nil
	case value.KindUndefined, value.KindNull:
		return 0, vm.eb.nullReceiver(v)
	case value.KindString:
		return vm.Heap.NewWrapper(r.StringProto, v), nil
	case value.KindInt32, value.KindDouble:
		return vm.Heap.NewWrapper(r.NumberProto, v), nil
	case value.KindBool:
		return vm.Heap.NewWrapper(r.BooleanProto, v), nil
	default:
		return 0, vm.eb.internal("ToObject of " + v.String())
	}
}

// ToKey converts an element id to a property key. Non-negative int32
// values become index keys without touching the atom table.
func (vm *VM) ToKey(v value.Value) (object.Key, *VMError) {
	if i, ok := definiteIndex(v); ok && v.IsInt32() {
		return object.IndexKey(i), nil
	}
	s, vmErr := vm.ToString(v)
	if vmErr != nil {
		return object.Key{}, vmErr
	}
	return object.AtomKey(vm.Heap.Atoms().InternString(s)), nil
}

// definiteIndex reports whether v is a non-negative integer that can be
// used as an element index without conversion.
func definiteIndex(v value.Value) (uint32, bool) {
	switch {
	case v.IsInt32():
		if i, err := safecast.Conv[uint32](v.AsInt32()); err == nil {
			return i, true
		}
	case v.IsDouble():
		if i, ok := value.DoubleIsInt32(v.AsDouble()); ok {
			if u, err := safecast.Conv[uint32](i); err == nil {
				return u, true
			}
		}
	}
	return 0, false
}
