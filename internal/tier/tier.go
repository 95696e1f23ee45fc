// Package tier is the compiled-code tier seen from the evaluation core: a
// status query per call and an entry-point invocation for compiled scripts.
package tier

import (
	"errors"
	"fmt"
	"sync"

	"ember/internal/script"
	"ember/internal/value"
)

// MethodStatus is the answer to "may this call run compiled code?".
type MethodStatus uint8

const (
	// MethodError: the status query itself failed.
	MethodError MethodStatus = iota
	// MethodCompiled: a compiled entry exists and accepts this call.
	MethodCompiled
	// MethodSkipped: no eligible compiled entry for this call.
	MethodSkipped
)

func (s MethodStatus) String() string {
	switch s {
	case MethodError:
		return "error"
	case MethodCompiled:
		return "compiled"
	case MethodSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("MethodStatus(%d)", s)
	}
}

// ExecStatus is the outcome of running compiled code.
type ExecStatus uint8

const (
	ExecOk ExecStatus = iota
	ExecError
)

func (s ExecStatus) String() string {
	if s == ExecOk {
		return "ok"
	}
	return "error"
}

// IsError reports whether s signals failure.
func (s ExecStatus) IsError() bool { return s != ExecOk }

// EntryPoint runs a compiled script.
type EntryPoint func(this value.Value, args []value.Value) (value.Value, error)

// Compiler produces entry points for hot scripts.
type Compiler interface {
	Compile(s *script.Script) (EntryPoint, int, error)
}

// CompilerFunc adapts a function to Compiler.
type CompilerFunc func(s *script.Script) (EntryPoint, int, error)

// Compile calls f(s).
func (f CompilerFunc) Compile(s *script.Script) (EntryPoint, int, error) { return f(s) }

// ErrNotInstalled is returned by Enter for scripts without an entry point.
var ErrNotInstalled = errors.New("tier: no compiled entry point")

type entry struct {
	fn      EntryPoint
	minArgs int
	enters  uint64
}

// Registry holds installed entry points and compiles hot scripts on demand.
type Registry struct {
	mu       sync.RWMutex
	entries  map[script.ID]*entry
	compiler Compiler
	profiler *Profiler
}

// NewRegistry creates a registry. compiler and profiler may be nil.
func NewRegistry(compiler Compiler, profiler *Profiler) *Registry {
	return &Registry{
		entries:  make(map[script.ID]*entry),
		compiler: compiler,
		profiler: profiler,
	}
}

// Profiler returns the attached profiler, if any.
func (r *Registry) Profiler() *Profiler { return r.profiler }

// Install registers a compiled entry point for s. Calls with fewer than
// minArgs actual arguments are skipped.
func (r *Registry) Install(s *script.Script, fn EntryPoint, minArgs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[s.ID] = &entry{fn: fn, minArgs: minArgs}
}

// Invalidate discards the compiled entry point of s.
func (r *Registry) Invalidate(s *script.Script) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, s.ID)
}

// Installed reports whether s has an entry point.
func (r *Registry) Installed(s *script.Script) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[s.ID]
	return ok
}

// CanEnter decides whether a call of s with argc arguments runs compiled.
// A hot, compilable script without an entry point is compiled first; a
// compiler failure disables compilation for s and reports MethodError.
func (r *Registry) CanEnter(s *script.Script, argc int) (MethodStatus, error) {
	r.mu.RLock()
	e := r.entries[s.ID]
	r.mu.RUnlock()
	if e != nil {
		return r.eligible(e, argc), nil
	}
	if r.compiler == nil || !s.CanCompile() || r.profiler == nil || !r.profiler.IsHot(s) {
		return MethodSkipped, nil
	}
	fn, minArgs, err := r.compiler.Compile(s)
	if err != nil {
		s.DisableCompile()
		return MethodError, fmt.Errorf("tier: compile %s: %w", s, err)
	}
	r.Install(s, fn, minArgs)
	return r.eligible(&entry{minArgs: minArgs}, argc), nil
}

func (r *Registry) eligible(e *entry, argc int) MethodStatus {
	if argc < e.minArgs {
		return MethodSkipped
	}
	return MethodCompiled
}

// Enter runs the compiled entry point of s.
func (r *Registry) Enter(s *script.Script, this value.Value, args []value.Value) (value.Value, ExecStatus, error) {
	r.mu.Lock()
	e := r.entries[s.ID]
	if e != nil {
		e.enters++
	}
	r.mu.Unlock()
	if e == nil {
		return value.Undefined(), ExecError, fmt.Errorf("%w for %s", ErrNotInstalled, s)
	}
	v, err := e.fn(this, args)
	if err != nil {
		return value.Undefined(), ExecError, err
	}
	return v, ExecOk, nil
}

// Enters returns how many times the entry point of s ran.
func (r *Registry) Enters(s *script.Script) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e := r.entries[s.ID]; e != nil {
		return e.enters
	}
	return 0
}
