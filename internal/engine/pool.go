package engine

import (
	"log"
	"sync"
)

// Handle identifies a pooled slot. The generation counter makes stale
// handles (double release, use after force-reuse) detectable: a handle
// whose generation no longer matches its slot is simply rejected.
type Handle struct {
	index int32
	gen   uint32
}

type poolSlot[T any] struct {
	value T
	gen   uint32
	live  bool
}

// Pool is a fixed-capacity arena with a free-list of indices. Acquire and
// release are index operations; values are never moved, so pointers
// returned by Get stay valid for the handle's lifetime.
//
// At capacity the pool force-reuses the least-recently acquired live slot
// instead of growing. Callers must tolerate their entity being recycled
// out from under a stale handle.
type Pool[T any] struct {
	mu    sync.Mutex
	slots []poolSlot[T]
	free  []int32
	order []int32 // live slots in acquisition order, oldest first

	reset func(*T)

	// Diagnostics
	forcedReuse    uint64
	doubleReleases uint64
}

// NewPool creates a pool with the given capacity. reset restores a value
// to its default state; it runs on release and on force-reuse.
func NewPool[T any](capacity int, reset func(*T)) *Pool[T] {
	if capacity < 1 {
		capacity = 1
	}
	p := &Pool[T]{
		slots: make([]poolSlot[T], capacity),
		free:  make([]int32, 0, capacity),
		order: make([]int32, 0, capacity),
		reset: reset,
	}
	for i := capacity - 1; i >= 0; i-- {
		p.free = append(p.free, int32(i))
	}
	return p
}

// Acquire returns a reset instance. If the free-list is empty the oldest
// live slot is recycled (degraded mode, counted in ForcedReuse).
func (p *Pool[T]) Acquire() (Handle, *T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var idx int32
	if n := len(p.free); n > 0 {
		idx = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		// Degraded mode: recycle the oldest live slot
		idx = p.order[0]
		p.order = p.order[1:]
		p.forcedReuse++
		p.slots[idx].gen++
	}

	slot := &p.slots[idx]
	slot.live = true
	if p.reset != nil {
		p.reset(&slot.value)
	}
	p.order = append(p.order, idx)

	return Handle{index: idx, gen: slot.gen}, &slot.value
}

// Release returns the slot to the free-list. A stale or repeated handle is
// rejected with a warning and no-op; the first rejection per pool logs.
func (p *Pool[T]) Release(h Handle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h.index < 0 || int(h.index) >= len(p.slots) {
		return false
	}
	slot := &p.slots[h.index]
	if !slot.live || slot.gen != h.gen {
		p.doubleReleases++
		if p.doubleReleases == 1 {
			log.Printf("pool: rejected stale release for slot %d (gen %d != %d)", h.index, h.gen, slot.gen)
		}
		return false
	}

	slot.live = false
	slot.gen++
	if p.reset != nil {
		p.reset(&slot.value)
	}
	p.free = append(p.free, h.index)
	p.removeFromOrder(h.index)
	return true
}

func (p *Pool[T]) removeFromOrder(idx int32) {
	for i, v := range p.order {
		if v == idx {
			p.order = append(p.order[:i], p.order[i+1:]...)
			return
		}
	}
}

// Get resolves a handle to its value, or nil if the handle is stale.
func (p *Pool[T]) Get(h Handle) *T {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h.index < 0 || int(h.index) >= len(p.slots) {
		return nil
	}
	slot := &p.slots[h.index]
	if !slot.live || slot.gen != h.gen {
		return nil
	}
	return &slot.value
}

// InUse returns the number of live slots.
func (p *Pool[T]) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}

// Capacity returns the arena size.
func (p *Pool[T]) Capacity() int {
	return len(p.slots)
}

// Utilization returns inUse / total for diagnostics.
func (p *Pool[T]) Utilization() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return float64(len(p.order)) / float64(len(p.slots))
}

// Stats returns diagnostic counters.
func (p *Pool[T]) Stats() (inUse, capacity int, forcedReuse, doubleReleases uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order), len(p.slots), p.forcedReuse, p.doubleReleases
}
