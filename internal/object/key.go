package object

import (
	"strconv"

	"ember/internal/value"
)

// Key is a property key: either an array index or an interned name.
// Names that spell an index are normalized to index keys.
type Key struct {
	atom  *value.Atom
	index uint32
}

// IndexKey returns the key for array index i.
func IndexKey(i uint32) Key { return Key{index: i} }

// AtomKey returns the key for an interned name.
func AtomKey(a *value.Atom) Key {
	if i, ok := a.Index(); ok {
		return Key{index: i}
	}
	return Key{atom: a}
}

// IsIndex reports whether k is an array index.
func (k Key) IsIndex() bool { return k.atom == nil }

// Index returns the index of an index key.
func (k Key) Index() uint32 { return k.index }

// Atom returns the name of a named key, or nil for index keys.
func (k Key) Atom() *value.Atom { return k.atom }

func (k Key) String() string {
	if k.atom == nil {
		return strconv.FormatUint(uint64(k.index), 10)
	}
	return k.atom.String()
}
