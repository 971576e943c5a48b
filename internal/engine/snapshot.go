package engine

import (
	"sync/atomic"
	"time"

	"aquarium/internal/config"
)

// FishSnapshot is an immutable copy of entity state for rendering.
// Value types only, so a published snapshot can never alias live state.
type FishSnapshot struct {
	ID         string
	Name       string
	Species    Species
	X, Y       float64
	Direction  int
	Frame      int
	Size       float64
	Color      string
	SpriteURL  string
	Procedural bool // true when the visual is a procedural shape
	Visible    bool
	Speed      float64
}

// BubbleSnapshot is an immutable bubble particle for rendering.
type BubbleSnapshot struct {
	X, Y   float64
	Radius float64
	Alpha  float64
}

// Snapshot is a complete immutable engine state for the render surface and
// API readers. All slices are pre-allocated and capped.
type Snapshot struct {
	Sequence   uint64    // Monotonic sequence for ordering
	Timestamp  time.Time // When the snapshot was produced
	TickNumber uint64    // Simulation tick this represents

	Fish    []FishSnapshot
	Bubbles []BubbleSnapshot

	FishCount    int
	VisibleCount int
	BubbleCount  int
}

// SnapshotPool triple-buffers snapshots for lock-free producer/consumer
// handoff: the tick loop writes, render and API read, nobody blocks.
type SnapshotPool struct {
	snapshots [3]Snapshot
	limits    config.ResourceLimits
	writeIdx  uint32 // atomic - producer index
	readIdx   uint32 // atomic - consumer index
	sequence  uint64 // atomic - monotonic sequence
}

// NewSnapshotPool creates a pool with pre-allocated slices.
func NewSnapshotPool(limits config.ResourceLimits) *SnapshotPool {
	pool := &SnapshotPool{limits: limits}
	for i := 0; i < 3; i++ {
		pool.snapshots[i] = Snapshot{
			Fish:    make([]FishSnapshot, 0, limits.MaxFish),
			Bubbles: make([]BubbleSnapshot, 0, limits.MaxBubbles),
		}
	}
	return pool
}

// AcquireWrite gets the next write slot (producer only, called from the
// tick loop). Slices are reset but keep capacity.
func (p *SnapshotPool) AcquireWrite() *Snapshot {
	idx := atomic.AddUint32(&p.writeIdx, 1) % 3
	snap := &p.snapshots[idx]

	snap.Fish = snap.Fish[:0]
	snap.Bubbles = snap.Bubbles[:0]
	snap.FishCount = 0
	snap.VisibleCount = 0
	snap.BubbleCount = 0

	snap.Sequence = atomic.AddUint64(&p.sequence, 1)
	snap.Timestamp = time.Now()
	return snap
}

// PublishWrite marks the write complete and advances the read pointer.
func (p *SnapshotPool) PublishWrite() {
	atomic.StoreUint32(&p.readIdx, atomic.LoadUint32(&p.writeIdx))
}

// AcquireRead gets the latest complete snapshot (consumers only).
func (p *SnapshotPool) AcquireRead() *Snapshot {
	idx := atomic.LoadUint32(&p.readIdx) % 3
	return &p.snapshots[idx]
}
