package value

import (
	"unicode/utf16"
	"unicode/utf8"
)

// String is an immutable sequence of UTF-16 code units. Strings are shared
// freely between values and never mutated after construction.
type String struct {
	units []uint16
	text  string
}

// Empty is the shared empty string.
var Empty = &String{}

var unitStrings = func() [256]*String {
	var t [256]*String
	for i := range t {
		u := uint16(i)
		t[i] = &String{units: []uint16{u}, text: string(rune(u))}
	}
	return t
}()

// NewString creates a String from Go text.
func NewString(s string) *String {
	if s == "" {
		return Empty
	}
	if isASCII(s) {
		units := make([]uint16, len(s))
		for i := 0; i < len(s); i++ {
			units[i] = uint16(s[i])
		}
		return &String{units: units, text: s}
	}
	return &String{units: utf16.Encode([]rune(s)), text: s}
}

// FromUnits creates a String that owns a copy of units.
func FromUnits(units []uint16) *String {
	if len(units) == 0 {
		return Empty
	}
	cp := append([]uint16(nil), units...)
	return &String{units: cp, text: string(utf16.Decode(cp))}
}

// UnitString returns a length-1 string for the code unit u. Units below 256
// come from a static table and never allocate.
func UnitString(u uint16) *String {
	if int(u) < len(unitStrings) {
		return unitStrings[u]
	}
	return &String{units: []uint16{u}, text: string(utf16.Decode([]uint16{u}))}
}

// Concat returns a new string holding l followed by r.
func Concat(l, r *String) *String {
	switch {
	case l.Len() == 0:
		return r
	case r.Len() == 0:
		return l
	}
	units := make([]uint16, 0, len(l.units)+len(r.units))
	units = append(units, l.units...)
	units = append(units, r.units...)
	return &String{units: units, text: l.text + r.text}
}

// Len returns the number of code units.
func (s *String) Len() int {
	if s == nil {
		return 0
	}
	return len(s.units)
}

// At returns the code unit at index i.
func (s *String) At(i int) uint16 { return s.units[i] }

// String returns the Go text. Lone surrogates render as U+FFFD.
func (s *String) String() string {
	if s == nil {
		return ""
	}
	return s.text
}

// Equal compares code units.
func (s *String) Equal(o *String) bool {
	if s == o {
		return true
	}
	if s.Len() != o.Len() {
		return false
	}
	for i, u := range s.units {
		if o.units[i] != u {
			return false
		}
	}
	return true
}

// Compare orders strings by code units: -1, 0 or 1.
func Compare(a, b *String) int {
	n := min(a.Len(), b.Len())
	for i := 0; i < n; i++ {
		if a.units[i] != b.units[i] {
			if a.units[i] < b.units[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case a.Len() < b.Len():
		return -1
	case a.Len() > b.Len():
		return 1
	default:
		return 0
	}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
