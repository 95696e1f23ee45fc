// Package script holds the per-script state the evaluation core reads and
// mutates: strictness, names, arguments-optimization state and hotness.
package script

import (
	"fmt"
	"sync"
)

// ID identifies a script within a Registry. ID(0) is invalid.
type ID uint32

// Script describes one compiled unit (function body or top-level code).
type Script struct {
	ID         ID
	Name       string
	Filename   string
	Line       int
	Strict     bool
	SelfHosted bool
	// Names is the name table indexed by bytecode operands.
	Names      []string
	NumFormals int

	needsArgsObj  bool
	useCount      uint32
	cannotCompile bool
}

// NeedsArgsObj reports whether frames of this script must carry a real
// arguments object.
func (s *Script) NeedsArgsObj() bool { return s.needsArgsObj }

// SetNeedsArgsObj marks the script as requiring a materialized arguments
// object. The flag is never cleared.
func (s *Script) SetNeedsArgsObj() { s.needsArgsObj = true }

// UseCount returns the hotness counter.
func (s *Script) UseCount() uint32 { return s.useCount }

// IncUseCount bumps the hotness counter, saturating at the max.
func (s *Script) IncUseCount(n uint32) uint32 {
	if s.useCount > ^uint32(0)-n {
		s.useCount = ^uint32(0)
	} else {
		s.useCount += n
	}
	return s.useCount
}

// ResetUseCount clears the hotness counter.
func (s *Script) ResetUseCount() { s.useCount = 0 }

// CanCompile reports whether the compiled tier may still compile this script.
func (s *Script) CanCompile() bool { return !s.cannotCompile }

// DisableCompile permanently marks the script as not compilable.
func (s *Script) DisableCompile() { s.cannotCompile = true }

// NameAt returns the name at index i or "" when out of range.
func (s *Script) NameAt(i int) string {
	if i < 0 || i >= len(s.Names) {
		return ""
	}
	return s.Names[i]
}

// Site returns the feedback site at pc.
func (s *Script) Site(pc uint32) Site {
	return Site{Script: s.ID, PC: pc}
}

func (s *Script) String() string {
	name := s.Name
	if name == "" {
		name = "<anonymous>"
	}
	if s.Filename == "" {
		return name
	}
	return fmt.Sprintf("%s (%s:%d)", name, s.Filename, s.Line)
}

// Site identifies a type-feedback site: a script and a bytecode position.
type Site struct {
	Script ID     `msgpack:"script" cbor:"1,keyasint"`
	PC     uint32 `msgpack:"pc" cbor:"2,keyasint"`
}

// IsZero reports whether the site is unset.
func (s Site) IsZero() bool { return s.Script == 0 }

// Less orders sites by script then position.
func (s Site) Less(o Site) bool {
	if s.Script != o.Script {
		return s.Script < o.Script
	}
	return s.PC < o.PC
}

func (s Site) String() string { return fmt.Sprintf("%d@%d", s.Script, s.PC) }

// Registry allocates script ids and resolves them back to scripts.
type Registry struct {
	mu      sync.RWMutex
	scripts []*Script
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add assigns the next id to s and records it.
func (r *Registry) Add(s *Script) *Script {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scripts = append(r.scripts, s)
	s.ID = ID(len(r.scripts))
	return s
}

// New creates and registers a script.
func (r *Registry) New(name string, strict bool, names ...string) *Script {
	return r.Add(&Script{Name: name, Strict: strict, Names: names})
}

// Lookup returns the script with the given id.
func (r *Registry) Lookup(id ID) (*Script, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id == 0 || int(id) > len(r.scripts) {
		return nil, false
	}
	return r.scripts[id-1], true
}

// Len returns the number of registered scripts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scripts)
}
