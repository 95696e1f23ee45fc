package tier

import (
	"sync"
	"sync/atomic"

	"ember/internal/script"
)

// DefaultHotThreshold is the use count at which a script becomes hot.
const DefaultHotThreshold = 1000

// Profiler tracks script use counts and flags scripts that cross the hot
// threshold. The use count itself lives on the script so the invocation
// bridge can bump it directly.
type Profiler struct {
	HotThreshold uint32
	// OnHot is called once per script, the first time it becomes hot.
	OnHot func(s *script.Script)

	hot      sync.Map // script.ID -> struct{}
	hotCount atomic.Uint64
	records  atomic.Uint64
}

// NewProfiler creates a profiler with the given threshold; zero selects
// DefaultHotThreshold.
func NewProfiler(threshold uint32) *Profiler {
	if threshold == 0 {
		threshold = DefaultHotThreshold
	}
	return &Profiler{HotThreshold: threshold}
}

// RecordInvocation bumps the use count of s. It returns true if this call
// made the script hot.
func (p *Profiler) RecordInvocation(s *script.Script) bool {
	p.records.Add(1)
	s.IncUseCount(1)
	return p.check(s)
}

func (p *Profiler) check(s *script.Script) bool {
	if s.UseCount() < p.HotThreshold {
		return false
	}
	if _, loaded := p.hot.LoadOrStore(s.ID, struct{}{}); loaded {
		return false
	}
	p.hotCount.Add(1)
	if p.OnHot != nil {
		p.OnHot(s)
	}
	return true
}

// IsHot reports whether s has crossed the threshold, counting bumps made
// outside RecordInvocation.
func (p *Profiler) IsHot(s *script.Script) bool {
	if _, ok := p.hot.Load(s.ID); ok {
		return true
	}
	return p.check(s)
}

// ProfilerStats holds aggregate counters.
type ProfilerStats struct {
	Invocations uint64
	HotScripts  uint64
}

// Stats returns aggregate counters.
func (p *Profiler) Stats() ProfilerStats {
	return ProfilerStats{
		Invocations: p.records.Load(),
		HotScripts:  p.hotCount.Load(),
	}
}
