package object

import "ember/internal/value"

// Attrs are property attributes.
type Attrs uint8

const (
	// AttrEnumerate marks a property visible to enumeration.
	AttrEnumerate Attrs = 1 << iota
	// AttrReadOnly marks a property that ignores (or rejects, in strict
	// code) ordinary assignment.
	AttrReadOnly
	// AttrPermanent marks a property that cannot be deleted or redefined.
	AttrPermanent
)

// Has reports whether all bits of o are set.
func (a Attrs) Has(o Attrs) bool { return a&o == o }

// Shape is one node of a property layout path. Shapes are immutable and
// shared: objects that add the same properties in the same order end up with
// the same Shape.
type Shape struct {
	parent *Shape
	key    Key
	slot   int
	attrs  Attrs
	getter value.Value
	setter value.Value
	depth  int

	kids map[transition]*Shape
}

type transition struct {
	key    Key
	attrs  Attrs
	getter value.Handle
	setter value.Handle
}

func newEmptyShape() *Shape {
	return &Shape{slot: -1}
}

// Key returns the property key described by this node.
func (s *Shape) Key() Key { return s.key }

// Slot returns the storage slot of a data property, or -1 for accessors.
func (s *Shape) Slot() int { return s.slot }

// Attrs returns the property attributes.
func (s *Shape) Attrs() Attrs { return s.attrs }

// Getter returns the getter function, or undefined.
func (s *Shape) Getter() value.Value { return s.getter }

// Setter returns the setter function, or undefined.
func (s *Shape) Setter() value.Value { return s.setter }

// HasSlot reports whether the property is stored in an object slot.
func (s *Shape) HasSlot() bool { return s.slot >= 0 }

// HasDefaultGetter reports whether reads need no user code.
func (s *Shape) HasDefaultGetter() bool { return s.getter.IsUndefined() }

// HasDefaultSetter reports whether writes need no user code.
func (s *Shape) HasDefaultSetter() bool { return s.setter.IsUndefined() }

// IsDataDescriptor reports whether the property is a plain data property.
func (s *Shape) IsDataDescriptor() bool {
	return s.HasSlot() && s.HasDefaultGetter() && s.HasDefaultSetter()
}

// Writable reports whether a data property accepts assignment.
func (s *Shape) Writable() bool { return !s.attrs.Has(AttrReadOnly) }

// Depth returns the number of properties in the path ending at s.
func (s *Shape) Depth() int { return s.depth }

func (s *Shape) isEmpty() bool { return s.parent == nil }

// search walks towards the root looking for key.
func (s *Shape) search(key Key) *Shape {
	for cur := s; cur != nil && !cur.isEmpty(); cur = cur.parent {
		if cur.key == key {
			return cur
		}
	}
	return nil
}

// nextSlot is the slot the next data property would occupy.
func (s *Shape) nextSlot() int {
	for cur := s; cur != nil && !cur.isEmpty(); cur = cur.parent {
		if cur.slot >= 0 {
			return cur.slot + 1
		}
	}
	return 0
}

func handleOf(v value.Value) value.Handle {
	if v.IsObject() {
		return v.AsObject()
	}
	return 0
}

// extend returns the child of s that adds key, creating and caching it on
// first use.
func (s *Shape) extend(key Key, attrs Attrs, getter, setter value.Value) *Shape {
	t := transition{key: key, attrs: attrs, getter: handleOf(getter), setter: handleOf(setter)}
	if kid, ok := s.kids[t]; ok {
		return kid
	}
	slot := -1
	if getter.IsUndefined() && setter.IsUndefined() {
		slot = s.nextSlot()
	}
	kid := &Shape{
		parent: s,
		key:    key,
		slot:   slot,
		attrs:  attrs,
		getter: getter,
		setter: setter,
		depth:  s.depth + 1,
	}
	if s.kids == nil {
		s.kids = make(map[transition]*Shape, 2)
	}
	s.kids[t] = kid
	return kid
}

// entries returns the path from the root to s, oldest first.
func (s *Shape) entries() []*Shape {
	out := make([]*Shape, s.depth)
	for cur := s; cur != nil && !cur.isEmpty(); cur = cur.parent {
		out[cur.depth-1] = cur
	}
	return out
}
