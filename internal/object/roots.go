package object

import "ember/internal/value"

type rootSlot struct {
	v    value.Value
	live bool
}

// Root is a stable indirection to a Value. Code that holds a value across a
// call that may allocate keeps a Root and re-reads it afterwards.
type Root struct {
	heap *Heap
	idx  int
}

// Root registers v in the root table.
func (h *Heap) Root(v value.Value) *Root {
	var idx int
	if n := len(h.freeRoots); n > 0 {
		idx = h.freeRoots[n-1]
		h.freeRoots = h.freeRoots[:n-1]
		h.roots[idx] = rootSlot{v: v, live: true}
	} else {
		idx = len(h.roots)
		h.roots = append(h.roots, rootSlot{v: v, live: true})
	}
	return &Root{heap: h, idx: idx}
}

// RootCount returns the number of live roots.
func (h *Heap) RootCount() int { return len(h.roots) - len(h.freeRoots) }

// Get re-derives the rooted value.
func (r *Root) Get() value.Value {
	if r.idx < 0 {
		panic("object: use of released root")
	}
	return r.heap.roots[r.idx].v
}

// Set replaces the rooted value.
func (r *Root) Set(v value.Value) {
	if r.idx < 0 {
		panic("object: use of released root")
	}
	r.heap.roots[r.idx].v = v
}

// Release returns the slot to the table. Release is idempotent.
func (r *Root) Release() {
	if r.idx < 0 {
		return
	}
	r.heap.roots[r.idx] = rootSlot{}
	r.heap.freeRoots = append(r.heap.freeRoots, r.idx)
	r.idx = -1
}
