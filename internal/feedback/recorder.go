package feedback

import (
	"slices"
	"sync"

	"ember/internal/script"
)

type siteState struct {
	kinds  KindSet
	counts [numKinds]uint64
	keys   map[string]struct{}
}

// Recorder accumulates events per site. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	sites map[script.Site]*siteState
	total uint64
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{sites: make(map[script.Site]*siteState)}
}

// Emit records e.
func (r *Recorder) Emit(e Event) {
	if e.Kind >= numKinds {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.sites[e.Site]
	if st == nil {
		st = &siteState{}
		r.sites[e.Site] = st
	}
	st.kinds = st.kinds.Add(e.Kind)
	st.counts[e.Kind]++
	if e.Key != "" {
		if st.keys == nil {
			st.keys = make(map[string]struct{})
		}
		st.keys[e.Key] = struct{}{}
	}
	r.total++
}

// Observed returns the kinds seen at site.
func (r *Recorder) Observed(site script.Site) KindSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st := r.sites[site]; st != nil {
		return st.kinds
	}
	return 0
}

// Count returns how many events of kind were seen at site.
func (r *Recorder) Count(site script.Site, kind Kind) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st := r.sites[site]; st != nil && kind < numKinds {
		return st.counts[kind]
	}
	return 0
}

// Keys returns the sorted assignment keys seen at site.
func (r *Recorder) Keys(site script.Site) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.sites[site]
	if st == nil {
		return nil
	}
	return sortedKeys(st.keys)
}

// Total returns the number of recorded events.
func (r *Recorder) Total() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Sites returns all sites with events, ordered.
func (r *Recorder) Sites() []script.Site {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedSites()
}

func (r *Recorder) sortedSites() []script.Site {
	out := make([]script.Site, 0, len(r.sites))
	for s := range r.sites {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b script.Site) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	return out
}

// Reset discards everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sites = make(map[script.Site]*siteState)
	r.total = 0
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
