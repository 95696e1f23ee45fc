// Package value defines the tagged runtime value model shared by the object
// model and the evaluation core.
package value

import (
	"fmt"
	"math"
)

// Kind identifies the active tag of a Value.
type Kind uint8

const (
	// KindUndefined is the undefined value.
	KindUndefined Kind = iota
	// KindNull is the null value.
	KindNull
	// KindBool is a boolean.
	KindBool
	// KindInt32 is a signed 32-bit integer.
	KindInt32
	// KindDouble is an IEEE754 double; -0 and NaN only exist here.
	KindDouble
	// KindString is a reference to an immutable String.
	KindString
	// KindObject is a handle to a heap object.
	KindObject
	// KindMagic is an engine-internal sentinel.
	KindMagic
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindInt32:
		return "int32"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindMagic:
		return "magic"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Magic identifies an internal sentinel value.
type Magic uint8

const (
	// MagicOptimizedArguments stands in for an arguments object that has not
	// been materialized yet.
	MagicOptimizedArguments Magic = iota + 1
	// MagicElementsHole marks a hole in an array literal or dense elements.
	MagicElementsHole
)

// String returns the sentinel name.
func (m Magic) String() string {
	switch m {
	case MagicOptimizedArguments:
		return "optimized-arguments"
	case MagicElementsHole:
		return "elements-hole"
	default:
		return fmt.Sprintf("Magic(%d)", m)
	}
}

// Handle is a stable reference to a heap object. Handle(0) is always invalid.
type Handle uint32

// Value is a closed sum over the runtime value kinds. The zero Value is
// undefined.
type Value struct {
	kind Kind
	bits uint64
	str  *String
}

// Undefined returns the undefined value.
func Undefined() Value { return Value{} }

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Bool creates a boolean value.
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.bits = 1
	}
	return v
}

// Int32 creates an int32 value.
func Int32(i int32) Value {
	return Value{kind: KindInt32, bits: uint64(uint32(i))}
}

// Double creates a double value without canonicalization.
func Double(d float64) Value {
	return Value{kind: KindDouble, bits: math.Float64bits(d)}
}

// Str creates a string value.
func Str(s *String) Value {
	if s == nil {
		s = Empty
	}
	return Value{kind: KindString, str: s}
}

// FromString creates a string value from Go text.
func FromString(s string) Value {
	return Str(NewString(s))
}

// Object creates an object reference.
func Object(h Handle) Value {
	return Value{kind: KindObject, bits: uint64(h)}
}

// MagicValue creates a sentinel value.
func MagicValue(m Magic) Value {
	return Value{kind: KindMagic, bits: uint64(m)}
}

// Kind returns the active tag.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsUndefined() bool { return v.kind == KindUndefined }
func (v Value) IsNull() bool      { return v.kind == KindNull }
func (v Value) IsNullOrUndefined() bool {
	return v.kind == KindNull || v.kind == KindUndefined
}
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsInt32() bool  { return v.kind == KindInt32 }
func (v Value) IsDouble() bool { return v.kind == KindDouble }
func (v Value) IsNumber() bool { return v.kind == KindInt32 || v.kind == KindDouble }
func (v Value) IsString() bool { return v.kind == KindString }
func (v Value) IsObject() bool { return v.kind == KindObject }

// IsPrimitive reports whether v is neither an object nor a sentinel.
func (v Value) IsPrimitive() bool { return v.kind != KindObject && v.kind != KindMagic }

// IsMagic reports whether v is the given sentinel.
func (v Value) IsMagic(m Magic) bool {
	return v.kind == KindMagic && Magic(v.bits) == m
}

// AsBool returns the boolean payload.
func (v Value) AsBool() bool {
	if v.kind != KindBool {
		panic("value is not a boolean")
	}
	return v.bits == 1
}

// AsInt32 returns the int32 payload.
func (v Value) AsInt32() int32 {
	if v.kind != KindInt32 {
		panic("value is not an int32")
	}
	return int32(uint32(v.bits))
}

// AsDouble returns the double payload.
func (v Value) AsDouble() float64 {
	if v.kind != KindDouble {
		panic("value is not a double")
	}
	return math.Float64frombits(v.bits)
}

// AsNumber returns the numeric payload of an Int32 or Double value.
func (v Value) AsNumber() float64 {
	switch v.kind {
	case KindInt32:
		return float64(v.AsInt32())
	case KindDouble:
		return v.AsDouble()
	default:
		panic("value is not a number")
	}
}

// AsString returns the string payload.
func (v Value) AsString() *String {
	if v.kind != KindString {
		panic("value is not a string")
	}
	return v.str
}

// AsObject returns the object handle.
func (v Value) AsObject() Handle {
	if v.kind != KindObject {
		panic("value is not an object")
	}
	return Handle(v.bits)
}

// AsMagic returns the sentinel kind.
func (v Value) AsMagic() Magic {
	if v.kind != KindMagic {
		panic("value is not magic")
	}
	return Magic(v.bits)
}

// SameValue reports identity in the SameValue sense: NaN equals NaN and
// +0 differs from -0. Strings compare by content.
func SameValue(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindString:
		return a.str.Equal(b.str)
	case KindDouble:
		x, y := a.AsDouble(), b.AsDouble()
		if math.IsNaN(x) && math.IsNaN(y) {
			return true
		}
		return a.bits == b.bits
	default:
		return a.bits == b.bits
	}
}

// String returns a debug representation of the value.
func (v Value) String() string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case KindInt32:
		return fmt.Sprintf("%d", v.AsInt32())
	case KindDouble:
		return NumberToString(v.AsDouble())
	case KindString:
		return fmt.Sprintf("%q", v.str.String())
	case KindObject:
		return fmt.Sprintf("object#%d", v.AsObject())
	case KindMagic:
		return fmt.Sprintf("<%s>", v.AsMagic())
	default:
		return fmt.Sprintf("<unknown:%d>", v.kind)
	}
}
