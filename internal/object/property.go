package object

import (
	"ember/internal/value"
)

// Lookup is the result of LookupProperty.
type Lookup struct {
	Found  bool
	Holder value.Handle
	// Shape is set when the property lives in the holder's shape. Element
	// and intrinsic hits (dense elements, array length, string characters)
	// leave it nil.
	Shape   *Shape
	Element bool
}

// own property hit inside a single native object.
type ownHit struct {
	shape     *Shape
	element   bool
	intrinsic bool
}

func (h *Heap) ownLookup(obj *Object, key Key) (ownHit, bool) {
	if key.IsIndex() {
		i := key.Index()
		switch obj.Class {
		case ClassTypedArray:
			if int64(i) < int64(len(obj.typed)) {
				return ownHit{element: true}, true
			}
			return ownHit{}, false
		case ClassString:
			if int(i) < obj.primitive.AsString().Len() {
				return ownHit{intrinsic: true}, true
			}
		}
		if int64(i) < int64(len(obj.elements)) && !obj.elements[i].IsMagic(value.MagicElementsHole) {
			return ownHit{element: true}, true
		}
	} else if key.Atom() == h.lengthAtom {
		switch obj.Class {
		case ClassArray, ClassString, ClassTypedArray:
			return ownHit{intrinsic: true}, true
		case ClassArguments:
			if !obj.overriddenLength {
				return ownHit{intrinsic: true}, true
			}
		}
	}
	if s := obj.shape.search(key); s != nil {
		return ownHit{shape: s}, true
	}
	return ownHit{}, false
}

func (h *Heap) intrinsicValue(obj *Object, key Key) value.Value {
	if key.IsIndex() {
		return value.Str(value.UnitString(obj.primitive.AsString().At(int(key.Index()))))
	}
	switch obj.Class {
	case ClassString:
		return value.Int32(int32(obj.primitive.AsString().Len()))
	case ClassTypedArray:
		return value.Number(float64(len(obj.typed)))
	default:
		return value.Number(float64(obj.length))
	}
}

func (h *Heap) elementValue(obj *Object, i uint32) value.Value {
	if obj.Class == ClassTypedArray {
		return value.Number(obj.typed[i])
	}
	return obj.elements[i]
}

// LookupProperty finds key on handle or its prototype chain.
func (h *Heap) LookupProperty(handle value.Handle, key Key) (Lookup, error) {
	h.stats.Lookups++
	for cur := handle; cur != 0; {
		obj, err := h.Object(cur)
		if err != nil {
			return Lookup{}, err
		}
		if !obj.IsNative() {
			_, found, err := obj.host.GetProperty(h, cur, key)
			if err != nil {
				return Lookup{}, err
			}
			if found {
				return Lookup{Found: true, Holder: cur}, nil
			}
		} else if hit, ok := h.ownLookup(obj, key); ok {
			return Lookup{Found: true, Holder: cur, Shape: hit.shape, Element: hit.element}, nil
		}
		cur = obj.Proto
	}
	return Lookup{}, nil
}

// GetPropertyAttributes returns the attributes of an own property.
func (h *Heap) GetPropertyAttributes(handle value.Handle, key Key) (Attrs, bool, error) {
	obj, err := h.Object(handle)
	if err != nil {
		return 0, false, err
	}
	if !obj.IsNative() {
		_, found, err := obj.host.GetProperty(h, handle, key)
		return AttrEnumerate, found, err
	}
	hit, ok := h.ownLookup(obj, key)
	switch {
	case !ok:
		return 0, false, nil
	case hit.shape != nil:
		return hit.shape.attrs, true, nil
	case hit.element:
		return AttrEnumerate, true, nil
	case key.IsIndex():
		return AttrEnumerate | AttrReadOnly | AttrPermanent, true, nil
	case obj.Class == ClassArray:
		return AttrPermanent, true, nil
	case obj.Class == ClassArguments:
		return 0, true, nil
	default:
		return AttrReadOnly | AttrPermanent, true, nil
	}
}

// Get performs a full property read, running getters with receiver as this.
func (h *Heap) Get(handle value.Handle, key Key, receiver value.Value) (value.Value, error) {
	h.stats.Gets++
	for cur := handle; cur != 0; {
		obj, err := h.Object(cur)
		if err != nil {
			return value.Undefined(), err
		}
		if !obj.IsNative() {
			v, found, err := obj.host.GetProperty(h, cur, key)
			if err != nil || found {
				return v, err
			}
			cur = obj.Proto
			continue
		}
		hit, ok := h.ownLookup(obj, key)
		if !ok {
			cur = obj.Proto
			continue
		}
		switch {
		case hit.element:
			return h.elementValue(obj, key.Index()), nil
		case hit.intrinsic:
			return h.intrinsicValue(obj, key), nil
		case hit.shape.HasSlot():
			return obj.slots[hit.shape.slot], nil
		case hit.shape.HasDefaultGetter():
			return value.Undefined(), nil
		default:
			return h.callAccessor(hit.shape.getter, receiver, nil)
		}
	}
	return value.Undefined(), nil
}

// Set performs an assignment. Failures that non-strict code ignores are
// reported only when strict is set.
func (h *Heap) Set(handle value.Handle, key Key, v value.Value, strict bool) error {
	h.stats.Sets++
	obj, err := h.Object(handle)
	if err != nil {
		return err
	}
	if !obj.IsNative() {
		return obj.host.SetProperty(h, handle, key, v)
	}

	if hit, ok := h.ownLookup(obj, key); ok {
		switch {
		case hit.element:
			return h.storeElement(obj, key.Index(), v)
		case hit.intrinsic:
			return h.setIntrinsic(obj, key, v, strict)
		default:
			return h.setShaped(obj, handle, hit.shape, v, strict)
		}
	}
	if obj.Class == ClassTypedArray && key.IsIndex() {
		// Out-of-range typed-array writes are dropped.
		return nil
	}

	for cur := obj.Proto; cur != 0; {
		proto, err := h.Object(cur)
		if err != nil {
			return err
		}
		if !proto.IsNative() {
			break
		}
		hit, ok := h.ownLookup(proto, key)
		if !ok {
			cur = proto.Proto
			continue
		}
		if s := hit.shape; s != nil {
			if !s.HasDefaultSetter() {
				_, err := h.callAccessor(s.setter, value.Object(handle), []value.Value{v})
				return err
			}
			if !s.HasSlot() || !s.Writable() {
				return h.reject(key, ErrReadOnly, strict)
			}
		} else if hit.intrinsic && key.IsIndex() {
			return h.reject(key, ErrReadOnly, strict)
		}
		break
	}

	if !obj.extensible {
		return h.reject(key, ErrNotExtensible, strict)
	}
	h.addProperty(obj, key, v, AttrEnumerate)
	return nil
}

func (h *Heap) reject(key Key, err error, strict bool) error {
	if strict {
		return propErr(key, err)
	}
	return nil
}

func (h *Heap) setShaped(obj *Object, self value.Handle, s *Shape, v value.Value, strict bool) error {
	if !s.HasDefaultSetter() {
		_, err := h.callAccessor(s.setter, value.Object(self), []value.Value{v})
		return err
	}
	if !s.HasSlot() || !s.Writable() {
		return h.reject(s.key, ErrReadOnly, strict)
	}
	obj.slots[s.slot] = v
	return nil
}

func (h *Heap) setIntrinsic(obj *Object, key Key, v value.Value, strict bool) error {
	switch {
	case obj.Class == ClassArray && !key.IsIndex():
		n, err := h.toNumber(v)
		if err != nil {
			return err
		}
		h.truncate(obj, value.ToUint32(n))
		return nil
	case obj.Class == ClassArguments && !key.IsIndex():
		obj.overriddenLength = true
		h.addProperty(obj, key, v, 0)
		return nil
	default:
		return h.reject(key, ErrReadOnly, strict)
	}
}

// DefineProperty creates or redefines an own data property.
func (h *Heap) DefineProperty(handle value.Handle, key Key, v value.Value, attrs Attrs) error {
	h.stats.Defines++
	obj, err := h.Object(handle)
	if err != nil {
		return err
	}
	if !obj.IsNative() {
		return obj.host.SetProperty(h, handle, key, v)
	}
	hit, ok := h.ownLookup(obj, key)
	if !ok {
		if !obj.extensible {
			return propErr(key, ErrNotExtensible)
		}
		h.addProperty(obj, key, v, attrs)
		return nil
	}
	switch {
	case hit.element:
		if obj.Class == ClassTypedArray {
			return h.storeElement(obj, key.Index(), v)
		}
		if attrs == AttrEnumerate {
			obj.elements[key.Index()] = v
			return nil
		}
		obj.elements[key.Index()] = value.MagicValue(value.MagicElementsHole)
		h.addShapeProperty(obj, key, v, attrs)
		return nil
	case hit.intrinsic:
		return h.setIntrinsic(obj, key, v, true)
	}
	s := hit.shape
	if s.attrs.Has(AttrPermanent) {
		if s.attrs != attrs || !s.IsDataDescriptor() {
			return propErr(key, ErrPermanent)
		}
		if !s.Writable() && !value.SameValue(obj.slots[s.slot], v) {
			return propErr(key, ErrPermanent)
		}
	}
	if s.attrs == attrs && s.IsDataDescriptor() {
		obj.slots[s.slot] = v
		return nil
	}
	h.reshape(obj, key, &shapeEntry{key: key, attrs: attrs, val: v})
	return nil
}

// DefineAccessor creates or replaces an own accessor property.
func (h *Heap) DefineAccessor(handle value.Handle, key Key, getter, setter value.Value, attrs Attrs) error {
	h.stats.Defines++
	obj, err := h.Object(handle)
	if err != nil {
		return err
	}
	if !obj.IsNative() {
		return propErr(key, ErrReadOnly)
	}
	for _, fn := range []value.Value{getter, setter} {
		if !fn.IsUndefined() && !h.IsCallable(fn) {
			return propErr(key, ErrNotCallable)
		}
	}
	entry := &shapeEntry{key: key, attrs: attrs, getter: getter, setter: setter}
	if hit, ok := h.ownLookup(obj, key); ok {
		switch {
		case hit.shape != nil:
			if hit.shape.attrs.Has(AttrPermanent) {
				return propErr(key, ErrPermanent)
			}
			h.reshape(obj, key, entry)
			return nil
		case hit.element && obj.Class != ClassTypedArray:
			obj.elements[key.Index()] = value.MagicValue(value.MagicElementsHole)
		default:
			return propErr(key, ErrPermanent)
		}
	}
	if !obj.extensible {
		return propErr(key, ErrNotExtensible)
	}
	obj.shape = obj.shape.extend(key, attrs, getter, setter)
	return nil
}

// DeleteProperty removes an own property. It reports false when the
// property is permanent.
func (h *Heap) DeleteProperty(handle value.Handle, key Key) (bool, error) {
	h.stats.Deletes++
	obj, err := h.Object(handle)
	if err != nil {
		return false, err
	}
	if !obj.IsNative() {
		return false, nil
	}
	hit, ok := h.ownLookup(obj, key)
	switch {
	case !ok:
		return true, nil
	case hit.element:
		if obj.Class == ClassTypedArray {
			return false, nil
		}
		obj.elements[key.Index()] = value.MagicValue(value.MagicElementsHole)
		return true, nil
	case hit.intrinsic:
		if obj.Class == ClassArguments {
			obj.overriddenLength = true
			return true, nil
		}
		return false, nil
	case hit.shape.attrs.Has(AttrPermanent):
		return false, nil
	}
	h.reshape(obj, key, nil)
	return true, nil
}

// OwnKeys lists own property keys: elements in index order, then named
// properties in insertion order.
func (h *Heap) OwnKeys(handle value.Handle) ([]Key, error) {
	obj, err := h.Object(handle)
	if err != nil {
		return nil, err
	}
	var keys []Key
	if obj.Class == ClassTypedArray {
		for i := range obj.typed {
			keys = append(keys, IndexKey(uint32(i)))
		}
	}
	for i, v := range obj.elements {
		if !v.IsMagic(value.MagicElementsHole) {
			keys = append(keys, IndexKey(uint32(i)))
		}
	}
	for _, s := range obj.shape.entries() {
		keys = append(keys, s.key)
	}
	return keys, nil
}

func (h *Heap) addProperty(obj *Object, key Key, v value.Value, attrs Attrs) {
	if key.IsIndex() && attrs == AttrEnumerate && obj.Class != ClassString && h.addElement(obj, key.Index(), v) {
		return
	}
	h.addShapeProperty(obj, key, v, attrs)
}

func (h *Heap) addShapeProperty(obj *Object, key Key, v value.Value, attrs Attrs) {
	obj.shape = obj.shape.extend(key, attrs, value.Undefined(), value.Undefined())
	obj.slots = append(obj.slots, v)
	if key.IsIndex() && obj.Class == ClassArray && key.Index() >= obj.length {
		obj.length = key.Index() + 1
	}
}

type shapeEntry struct {
	key    Key
	attrs  Attrs
	val    value.Value
	getter value.Value
	setter value.Value
}

// reshape rebuilds the object's shape path, replacing (or, when repl is
// nil, dropping) the property named key. Slots are renumbered.
func (h *Heap) reshape(obj *Object, key Key, repl *shapeEntry) {
	s := h.empty
	slots := make([]value.Value, 0, len(obj.slots))
	for _, e := range obj.shape.entries() {
		entry := shapeEntry{key: e.key, attrs: e.attrs, getter: e.getter, setter: e.setter}
		if e.HasSlot() {
			entry.val = obj.slots[e.slot]
		}
		if e.key == key {
			if repl == nil {
				continue
			}
			entry = *repl
		}
		s = s.extend(entry.key, entry.attrs, entry.getter, entry.setter)
		if s.HasSlot() {
			slots = append(slots, entry.val)
		}
	}
	obj.shape = s
	obj.slots = slots
}

func (h *Heap) callAccessor(fn, this value.Value, args []value.Value) (value.Value, error) {
	if h.rt == nil {
		return value.Undefined(), ErrNoRuntime
	}
	if !h.IsCallable(fn) {
		return value.Undefined(), ErrNotCallable
	}
	return h.rt.CallFunction(fn, this, args)
}

func (h *Heap) toNumber(v value.Value) (float64, error) {
	if v.IsNumber() {
		return v.AsNumber(), nil
	}
	if h.rt == nil {
		return 0, ErrNoRuntime
	}
	return h.rt.ToNumber(v)
}
