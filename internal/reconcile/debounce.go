package reconcile

import (
	"log"
	"sync"
	"time"

	"aquarium/internal/config"
	"aquarium/internal/engine"
	"aquarium/internal/store"
)

// Debouncer batches outbound position sync. A flush happens once no
// motion has been reported for the quiet window, or when a pending batch
// has waited the maximum interval, whichever comes first. A failed save
// is logged and retried on the next window; it never blocks simulation.
type Debouncer struct {
	mu sync.Mutex

	cfg     config.SyncConfig
	collect func() []engine.PositionUpdate
	save    func([]store.PositionUpdate) error

	timer        *time.Timer
	pending      bool
	pendingSince time.Time
	stopped      bool

	// retry holds the last batch whose save failed; it is merged under
	// fresher updates on the next flush.
	retry []store.PositionUpdate
}

// NewDebouncer wires a debouncer between the engine's dirty-position
// collection and the store.
func NewDebouncer(cfg config.SyncConfig, eng *engine.Engine, st store.Store) *Debouncer {
	return &Debouncer{
		cfg:     cfg,
		collect: eng.CollectDirtyPositions,
		save:    st.SavePositions,
	}
}

// newDebouncerFunc is the test seam.
func newDebouncerFunc(cfg config.SyncConfig, collect func() []engine.PositionUpdate, save func([]store.PositionUpdate) error) *Debouncer {
	return &Debouncer{cfg: cfg, collect: collect, save: save}
}

// NoteMotion records that motion happened this tick and (re)arms the
// flush timer. Meant to be the engine's motion observer.
func (d *Debouncer) NoteMotion() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	now := time.Now()
	if !d.pending {
		d.pending = true
		d.pendingSince = now
	}

	delay := d.cfg.QuietWindow
	// Continuous motion must not defer the flush forever.
	if deadline := d.pendingSince.Add(d.cfg.MaxInterval); now.Add(delay).After(deadline) {
		delay = deadline.Sub(now)
		if delay < 0 {
			delay = 0
		}
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(delay, d.flush)
}

// Flush forces an immediate sync of whatever is dirty.
func (d *Debouncer) Flush() {
	d.flush()
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	carried := d.retry
	d.retry = nil
	d.mu.Unlock()

	out := d.batch(carried)
	if len(out) == 0 {
		return
	}

	if err := d.save(out); err != nil {
		log.Printf("sync: position save failed (%d updates): %v", len(out), err)
		// The dirty flags were already drained, so keep the batch and
		// re-arm for a retry after another quiet window.
		d.mu.Lock()
		if !d.stopped {
			d.pending = true
			d.pendingSince = time.Now()
			d.retry = out
			d.timer = time.AfterFunc(d.cfg.QuietWindow, d.flush)
		}
		d.mu.Unlock()
	}
}

// batch merges a carried-over failed batch under the current dirty set;
// a fresher update for the same id wins.
func (d *Debouncer) batch(carried []store.PositionUpdate) []store.PositionUpdate {
	fresh := d.collect()

	out := make([]store.PositionUpdate, 0, len(carried)+len(fresh))
	seen := make(map[string]bool, len(fresh))
	for _, u := range fresh {
		seen[u.ID] = true
		out = append(out, store.PositionUpdate{
			ID:        u.ID,
			X:         u.X,
			Y:         u.Y,
			TargetY:   u.TargetY,
			Frame:     u.Frame,
			Direction: u.Direction,
		})
	}
	for _, u := range carried {
		if !seen[u.ID] {
			out = append(out, u)
		}
	}
	return out
}

// Stop disarms the debouncer and flushes any pending batch.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	hadPending := d.pending
	d.pending = false
	carried := d.retry
	d.retry = nil
	d.mu.Unlock()

	if hadPending || len(carried) > 0 {
		if out := d.batch(carried); len(out) > 0 {
			if err := d.save(out); err != nil {
				log.Printf("sync: final position save failed: %v", err)
			}
		}
	}

	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
}
