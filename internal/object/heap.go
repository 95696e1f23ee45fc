package object

import (
	"fmt"

	"fortio.org/safecast"

	"ember/internal/value"
)

// Runtime runs user code on behalf of the object model: accessors and number
// conversion for typed-array stores.
type Runtime interface {
	CallFunction(fn, this value.Value, args []value.Value) (value.Value, error)
	ToNumber(v value.Value) (float64, error)
}

// Stats counts generic object-model operations.
type Stats struct {
	Gets    uint64
	Sets    uint64
	Defines uint64
	Lookups uint64
	Deletes uint64
}

// Total returns the sum of all counters.
func (s Stats) Total() uint64 {
	return s.Gets + s.Sets + s.Defines + s.Lookups + s.Deletes
}

// Heap stores all objects of one execution context.
// Handles are monotonically increasing and never reused.
type Heap struct {
	next  value.Handle
	objs  map[value.Handle]*Object
	atoms *value.Atoms
	empty *Shape
	rt    Runtime

	roots     []rootSlot
	freeRoots []int
	epoch     uint64

	stats Stats

	lengthAtom *value.Atom
}

// NewHeap creates an empty heap.
func NewHeap() *Heap {
	h := &Heap{
		next:  1,
		objs:  make(map[value.Handle]*Object, 128),
		atoms: value.NewAtoms(),
		empty: newEmptyShape(),
	}
	h.lengthAtom = h.atoms.Intern("length")
	return h
}

// SetRuntime attaches the runtime used to call accessors.
func (h *Heap) SetRuntime(rt Runtime) { h.rt = rt }

// Atoms returns the heap's atom table.
func (h *Heap) Atoms() *value.Atoms { return h.atoms }

// Key interns name and returns its property key.
func (h *Heap) Key(name string) Key { return AtomKey(h.atoms.Intern(name)) }

// LengthKey returns the key for "length".
func (h *Heap) LengthKey() Key { return Key{atom: h.lengthAtom} }

// Epoch advances on every allocation.
func (h *Heap) Epoch() uint64 { return h.epoch }

// Stats returns generic-path counters.
func (h *Heap) Stats() Stats { return h.stats }

// ResetStats zeroes the counters.
func (h *Heap) ResetStats() { h.stats = Stats{} }

// Len returns the number of live objects.
func (h *Heap) Len() int { return len(h.objs) }

func (h *Heap) alloc(class Class, proto value.Handle) (value.Handle, *Object) {
	handle := h.next
	h.next++
	h.epoch++
	obj := &Object{
		Class:      class,
		Proto:      proto,
		shape:      h.empty,
		extensible: true,
	}
	h.objs[handle] = obj
	return handle, obj
}

// Object returns the object behind handle.
func (h *Heap) Object(handle value.Handle) (*Object, error) {
	obj, ok := h.objs[handle]
	if !ok || handle == 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHandle, handle)
	}
	return obj, nil
}

// MustObject is Object for handles the caller obtained from this heap.
// It panics with an error wrapping ErrInvalidHandle otherwise.
func (h *Heap) MustObject(handle value.Handle) *Object {
	obj, err := h.Object(handle)
	if err != nil {
		panic(err)
	}
	return obj
}

// Of returns the object for an object value.
func (h *Heap) Of(v value.Value) (*Object, error) {
	if !v.IsObject() {
		return nil, fmt.Errorf("%w: %s is not an object", ErrInvalidHandle, v.Kind())
	}
	return h.Object(v.AsObject())
}

// NewPlain allocates an ordinary object.
func (h *Heap) NewPlain(proto value.Handle) value.Handle {
	handle, _ := h.alloc(ClassPlain, proto)
	return handle
}

// NewGlobal allocates a global object.
func (h *Heap) NewGlobal(proto value.Handle) value.Handle {
	handle, _ := h.alloc(ClassGlobal, proto)
	return handle
}

// NewArray allocates an array with the given dense elements. Hole
// sentinels in elems stay holes.
func (h *Heap) NewArray(proto value.Handle, elems ...value.Value) value.Handle {
	handle, obj := h.alloc(ClassArray, proto)
	obj.elements = append([]value.Value(nil), elems...)
	obj.length = h.lenU32(len(elems))
	return handle
}

// NewArguments allocates an arguments object holding actuals.
func (h *Heap) NewArguments(proto value.Handle, actuals []value.Value) value.Handle {
	handle, obj := h.alloc(ClassArguments, proto)
	obj.elements = append([]value.Value(nil), actuals...)
	obj.length = h.lenU32(len(actuals))
	return handle
}

// NewFunction allocates a function object.
func (h *Heap) NewFunction(proto value.Handle, fn *Function) value.Handle {
	handle, obj := h.alloc(ClassFunction, proto)
	obj.fn = fn
	return handle
}

// NewWrapper allocates a String, Number or Boolean wrapper for prim.
func (h *Heap) NewWrapper(proto value.Handle, prim value.Value) value.Handle {
	class := ClassPlain
	switch prim.Kind() {
	case value.KindString:
		class = ClassString
	case value.KindInt32, value.KindDouble:
		class = ClassNumber
	case value.KindBool:
		class = ClassBoolean
	}
	handle, obj := h.alloc(class, proto)
	obj.primitive = prim
	return handle
}

// NewTypedArray allocates a zero-filled typed array of n elements.
func (h *Heap) NewTypedArray(proto value.Handle, kind TypedKind, n uint32) value.Handle {
	handle, obj := h.alloc(ClassTypedArray, proto)
	obj.typedKind = kind
	obj.typed = make([]float64, n)
	obj.length = n
	return handle
}

// NewHost allocates a non-native object backed by ops.
func (h *Heap) NewHost(proto value.Handle, ops HostOps) value.Handle {
	handle, obj := h.alloc(ClassHost, proto)
	obj.host = ops
	return handle
}

// Class returns the class of handle, or ClassPlain for invalid handles.
func (h *Heap) Class(handle value.Handle) Class {
	if obj, ok := h.objs[handle]; ok {
		return obj.Class
	}
	return ClassPlain
}

// IsNative reports whether handle refers to a native object.
func (h *Heap) IsNative(handle value.Handle) bool {
	obj, ok := h.objs[handle]
	return ok && obj.IsNative()
}

// Function returns the function payload of v when v is callable.
func (h *Heap) Function(v value.Value) (*Function, bool) {
	if !v.IsObject() {
		return nil, false
	}
	obj, ok := h.objs[v.AsObject()]
	if !ok || obj.fn == nil {
		return nil, false
	}
	return obj.fn, true
}

// IsCallable reports whether v is a function object.
func (h *Heap) IsCallable(v value.Value) bool {
	_, ok := h.Function(v)
	return ok
}

// PreventExtensions makes the object non-extensible.
func (h *Heap) PreventExtensions(handle value.Handle) error {
	obj, err := h.Object(handle)
	if err != nil {
		return err
	}
	obj.extensible = false
	return nil
}

func (h *Heap) lenU32(n int) uint32 {
	l, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("object: length %d out of range: %w", n, err))
	}
	return l
}
