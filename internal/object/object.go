package object

import (
	"fmt"

	"ember/internal/script"
	"ember/internal/value"
)

// Class identifies the kind of object and which internal storage it uses.
type Class uint8

const (
	ClassPlain Class = iota
	ClassArray
	ClassTypedArray
	ClassArguments
	ClassFunction
	ClassGlobal
	ClassString
	ClassNumber
	ClassBoolean
	// ClassHost objects are non-native: property access goes through HostOps.
	ClassHost
)

func (c Class) String() string {
	switch c {
	case ClassPlain:
		return "Object"
	case ClassArray:
		return "Array"
	case ClassTypedArray:
		return "TypedArray"
	case ClassArguments:
		return "Arguments"
	case ClassFunction:
		return "Function"
	case ClassGlobal:
		return "global"
	case ClassString:
		return "String"
	case ClassNumber:
		return "Number"
	case ClassBoolean:
		return "Boolean"
	case ClassHost:
		return "Host"
	default:
		return fmt.Sprintf("Class(%d)", c)
	}
}

// TypedKind is the element type of a typed array.
type TypedKind uint8

const (
	TypedInt32 TypedKind = iota
	TypedUint8
	TypedFloat64
)

// NativeID identifies a host-implemented function. Zero means interpreted.
type NativeID uint16

// Function is the callable payload of a ClassFunction object.
type Function struct {
	Name   string
	Native NativeID
	// Script and Env are set for interpreted functions. Env is the captured
	// scope, owned by the evaluator.
	Script *script.Script
	Env    any
	Arity  int
}

// IsNative reports whether the function is host-implemented.
func (f *Function) IsNative() bool { return f.Native != 0 }

// HostOps implements property access for non-native objects.
type HostOps interface {
	GetProperty(h *Heap, self value.Handle, key Key) (value.Value, bool, error)
	SetProperty(h *Heap, self value.Handle, key Key, v value.Value) error
}

// Object is a heap-resident object. Fields are managed by Heap methods.
type Object struct {
	Class Class
	Proto value.Handle

	shape      *Shape
	slots      []value.Value
	elements   []value.Value
	length     uint32
	extensible bool

	// arguments objects
	overriddenLength bool

	typedKind TypedKind
	typed     []float64

	fn        *Function
	primitive value.Value
	host      HostOps
}

// Shape returns the current property layout.
func (o *Object) Shape() *Shape { return o.shape }

// IsNative reports whether property access uses shapes and slots.
func (o *Object) IsNative() bool { return o.Class != ClassHost }

// Function returns the callable payload or nil.
func (o *Object) Function() *Function { return o.fn }

// Primitive returns the wrapped primitive of a String/Number/Boolean object.
func (o *Object) Primitive() value.Value { return o.primitive }

// Extensible reports whether new properties may be added.
func (o *Object) Extensible() bool { return o.extensible }
