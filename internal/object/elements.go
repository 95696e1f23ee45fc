package object

import (
	"math"

	"ember/internal/value"
)

// maxDenseGap bounds how far past the initialized length a write may extend
// dense storage before the element goes to the shape instead.
const maxDenseGap = 1024

var hole = value.MagicValue(value.MagicElementsHole)

func (h *Heap) addElement(obj *Object, i uint32, v value.Value) bool {
	switch obj.Class {
	case ClassTypedArray, ClassString, ClassHost:
		return false
	}
	n := len(obj.elements)
	switch {
	case int64(i) < int64(n):
		obj.elements[i] = v
	case int64(i)-int64(n) <= maxDenseGap:
		for int64(len(obj.elements)) < int64(i) {
			obj.elements = append(obj.elements, hole)
		}
		obj.elements = append(obj.elements, v)
	default:
		return false
	}
	if obj.Class == ClassArray && i >= obj.length {
		obj.length = i + 1
	}
	return true
}

func (h *Heap) storeElement(obj *Object, i uint32, v value.Value) error {
	if obj.Class != ClassTypedArray {
		obj.elements[i] = v
		return nil
	}
	d, err := h.toNumber(v)
	if err != nil {
		return err
	}
	switch obj.typedKind {
	case TypedInt32:
		obj.typed[i] = float64(value.ToInt32(d))
	case TypedUint8:
		obj.typed[i] = float64(value.ToUint32(d) & 0xff)
	default:
		obj.typed[i] = d
	}
	return nil
}

func (h *Heap) truncate(obj *Object, n uint32) {
	if int64(n) < int64(len(obj.elements)) {
		obj.elements = obj.elements[:n]
	}
	obj.length = n
}

// GetElementNoGC reads an own element without allocating or running user
// code. It fails for holes, non-native objects and anything that is not
// plain element storage.
func (h *Heap) GetElementNoGC(handle value.Handle, i uint32) (value.Value, bool) {
	obj, ok := h.objs[handle]
	if !ok || !obj.IsNative() {
		return value.Undefined(), false
	}
	if obj.Class == ClassTypedArray {
		if int64(i) >= int64(len(obj.typed)) {
			return value.Undefined(), false
		}
		return value.Number(obj.typed[i]), true
	}
	if int64(i) >= int64(len(obj.elements)) || obj.elements[i].IsMagic(value.MagicElementsHole) {
		return value.Undefined(), false
	}
	return obj.elements[i], true
}

// GetPropertyNoGC reads a named data property along the prototype chain
// without running user code. A missing property reads as undefined.
func (h *Heap) GetPropertyNoGC(handle value.Handle, key Key) (value.Value, bool) {
	for cur := handle; cur != 0; {
		obj, ok := h.objs[cur]
		if !ok || !obj.IsNative() {
			return value.Undefined(), false
		}
		if hit, found := h.ownLookup(obj, key); found {
			switch {
			case hit.element:
				return h.elementValue(obj, key.Index()), true
			case hit.intrinsic:
				if key.IsIndex() {
					return value.Undefined(), false
				}
				return h.intrinsicValue(obj, key), true
			case hit.shape.IsDataDescriptor():
				return obj.slots[hit.shape.slot], true
			default:
				return value.Undefined(), false
			}
		}
		cur = obj.Proto
	}
	return value.Undefined(), true
}

// ShapeSlot reads the slot described by s on handle.
func (h *Heap) ShapeSlot(handle value.Handle, s *Shape) value.Value {
	return h.MustObject(handle).slots[s.slot]
}

// SetShapeSlot writes the slot described by s on handle.
func (h *Heap) SetShapeSlot(handle value.Handle, s *Shape, v value.Value) {
	h.MustObject(handle).slots[s.slot] = v
}

// DenseInitializedLength returns the number of dense element slots,
// holes included.
func (h *Heap) DenseInitializedLength(handle value.Handle) uint32 {
	obj, ok := h.objs[handle]
	if !ok || obj.Class == ClassTypedArray {
		return 0
	}
	return h.lenU32(len(obj.elements))
}

// ArrayLength returns the length of an array.
func (h *Heap) ArrayLength(handle value.Handle) (uint32, bool) {
	obj, ok := h.objs[handle]
	if !ok || obj.Class != ClassArray {
		return 0, false
	}
	return obj.length, true
}

// SetArrayLength sets an array's length, dropping elements past it.
func (h *Heap) SetArrayLength(handle value.Handle, n uint32) error {
	obj, err := h.Object(handle)
	if err != nil {
		return err
	}
	if obj.Class != ClassArray {
		return propErr(h.LengthKey(), ErrReadOnly)
	}
	h.truncate(obj, n)
	return nil
}

// ArgumentsLength returns the initial length of an arguments object and
// whether "length" was overwritten or deleted since.
func (h *Heap) ArgumentsLength(handle value.Handle) (n uint32, overridden bool, ok bool) {
	obj, found := h.objs[handle]
	if !found || obj.Class != ClassArguments {
		return 0, false, false
	}
	return obj.length, obj.overriddenLength, true
}

// TypedLength returns the element count of a typed array.
func (h *Heap) TypedLength(handle value.Handle) (uint32, bool) {
	obj, ok := h.objs[handle]
	if !ok || obj.Class != ClassTypedArray {
		return 0, false
	}
	return h.lenU32(len(obj.typed)), true
}

// IsTypedFloat reports whether a typed array stores doubles.
func (h *Heap) IsTypedFloat(handle value.Handle) bool {
	obj, ok := h.objs[handle]
	return ok && obj.Class == ClassTypedArray && obj.typedKind == TypedFloat64
}

// IndexFromNumber converts an integral, in-range number to an index.
func IndexFromNumber(d float64) (uint32, bool) {
	if d < 0 || d > value.MaxArrayIndex || math.Trunc(d) != d {
		return 0, false
	}
	return uint32(d), true
}
