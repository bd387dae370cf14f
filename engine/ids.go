package engine

import (
	"fmt"
	"sync"

	"github.com/cwbudde/algo-audiograph/render"
)

// IDAllocator hands out node ids for one render arena. Index 0 is reserved
// for the destination. Released indices are reused with a bumped generation
// so ids held by stale handles never match the new node.
//
// It is safe for concurrent use.
type IDAllocator struct {
	mu    sync.Mutex
	gens  []uint32
	live  []bool
	free  []int
	fresh int
}

// NewIDAllocator returns an allocator for an arena of maxNodes slots.
func NewIDAllocator(maxNodes int) *IDAllocator {
	maxNodes = max(maxNodes, 1)
	a := &IDAllocator{
		gens:  make([]uint32, maxNodes),
		live:  make([]bool, maxNodes),
		fresh: 1,
	}
	for i := range a.gens {
		a.gens[i] = 1
	}
	a.live[0] = true
	return a
}

// Destination returns the id of the destination node.
func (a *IDAllocator) Destination() render.NodeID {
	return render.MakeNodeID(0, 1)
}

// Allocate returns an unused id.
func (a *IDAllocator) Allocate() (render.NodeID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var idx int
	switch {
	case len(a.free) > 0:
		idx = a.free[len(a.free)-1]
		a.free = a.free[:len(a.free)-1]
	case a.fresh < len(a.gens):
		idx = a.fresh
		a.fresh++
	default:
		return 0, fmt.Errorf("%w: all %d node slots in use", ErrNotSupported, len(a.gens))
	}
	a.live[idx] = true
	return render.MakeNodeID(idx, a.gens[idx]), nil
}

// Release returns id's slot to the free list. Releasing an id that is not
// live, or the destination, is a no-op.
func (a *IDAllocator) Release(id render.NodeID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := id.Index()
	if idx <= 0 || idx >= len(a.gens) || !a.live[idx] || a.gens[idx] != id.Generation() {
		return
	}
	a.live[idx] = false
	a.gens[idx]++
	if a.gens[idx] == 0 {
		a.gens[idx] = 1
	}
	a.free = append(a.free, idx)
}

// Live reports whether id is currently allocated.
func (a *IDAllocator) Live(id render.NodeID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := id.Index()
	return idx >= 0 && idx < len(a.gens) && a.live[idx] && a.gens[idx] == id.Generation()
}

// InUse returns the number of allocated ids, destination included.
func (a *IDAllocator) InUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, l := range a.live {
		if l {
			n++
		}
	}
	return n
}

// Capacity returns the arena size.
func (a *IDAllocator) Capacity() int { return len(a.gens) }
