package value

import (
	"strconv"

	"fortio.org/safecast"
)

// MaxArrayIndex is the largest valid array index (2^32 - 2).
const MaxArrayIndex = 1<<32 - 2

// Atom is an interned property name. Two atoms with the same contents from
// the same table are the same pointer.
type Atom struct {
	str     *String
	index   uint32
	isIndex bool
}

// String returns the atom text.
func (a *Atom) String() string { return a.str.String() }

// Str returns the atom contents as a String.
func (a *Atom) Str() *String { return a.str }

// Index reports whether the atom spells a canonical array index.
func (a *Atom) Index() (uint32, bool) { return a.index, a.isIndex }

// Atoms interns names. A table is owned by a single heap.
type Atoms struct {
	byText map[string]*Atom
}

// NewAtoms creates an empty atom table.
func NewAtoms() *Atoms {
	return &Atoms{byText: make(map[string]*Atom, 64)}
}

// Intern returns the unique atom for name.
func (t *Atoms) Intern(name string) *Atom {
	if a, ok := t.byText[name]; ok {
		return a
	}
	a := &Atom{str: NewString(name)}
	a.index, a.isIndex = parseIndex(name)
	t.byText[name] = a
	return a
}

// InternString interns the contents of s.
// Lone surrogates collapse to U+FFFD in the key.
func (t *Atoms) InternString(s *String) *Atom {
	return t.Intern(s.String())
}

// Len returns the number of interned atoms.
func (t *Atoms) Len() int { return len(t.byText) }

// parseIndex accepts only canonical decimal indices: no sign, no leading
// zeros (except "0"), at most MaxArrayIndex.
func parseIndex(s string) (uint32, bool) {
	if s == "" || len(s) > 10 {
		return 0, false
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n > MaxArrayIndex {
		return 0, false
	}
	i, err := safecast.Conv[uint32](n)
	if err != nil {
		return 0, false
	}
	return i, true
}
