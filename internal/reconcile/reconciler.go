// Package reconcile keeps the locally simulated entity set consistent
// with the authoritative store: inbound change events are applied as
// incremental diffs, outbound motion is flushed through a debouncer.
package reconcile

import (
	"fmt"
	"log"
	"time"

	"aquarium/internal/config"
	"aquarium/internal/engine"
	"aquarium/internal/store"
)

// Reconciler subscribes to store change events and mirrors them into the
// engine. Updates are applied in place field by field; entities are never
// destroyed and recreated for a property change.
type Reconciler struct {
	engine *engine.Engine
	store  store.Store
	cfg    config.SyncConfig

	// Populate seeds the store when it starts empty. Optional.
	Populate func() error

	cancel func()
	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a reconciler. Start must be called to begin applying events.
func New(eng *engine.Engine, st store.Store, cfg config.SyncConfig) *Reconciler {
	return &Reconciler{
		engine: eng,
		store:  st,
		cfg:    cfg,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start loads the authoritative set, seeds it if empty, rebuilds the
// local entity set from it, and then applies pushed change events in
// arrival order until Stop.
func (r *Reconciler) Start() error {
	recs, err := r.store.ListFish()
	if err != nil {
		return fmt.Errorf("initial list: %w", err)
	}

	if len(recs) == 0 && r.Populate != nil {
		// Population runs remotely; a one-shot channel signals completion
		// instead of polling a loading flag.
		done := make(chan error, 1)
		go func() { done <- r.Populate() }()

		select {
		case err := <-done:
			if err != nil {
				log.Printf("reconcile: default population failed: %v", err)
			}
		case <-time.After(r.cfg.PopulateWait):
			log.Printf("reconcile: default population timed out after %s", r.cfg.PopulateWait)
		}

		if recs, err = r.store.ListFish(); err != nil {
			return fmt.Errorf("post-population list: %w", err)
		}
	}

	r.rebuildFrom(recs)

	events, cancel := r.store.Subscribe()
	r.cancel = cancel

	go func() {
		defer close(r.doneCh)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := r.apply(ev); err != nil {
					log.Printf("reconcile: apply %s failed (%v), rebuilding", ev.Kind, err)
					r.rebuild()
				}
			case <-r.stopCh:
				return
			}
		}
	}()

	log.Printf("reconcile: started with %d entities", len(recs))
	return nil
}

// Stop unsubscribes and waits for the event loop to drain.
func (r *Reconciler) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	close(r.stopCh)
	<-r.doneCh
}

// apply mirrors one change event into the engine.
func (r *Reconciler) apply(ev store.ChangeEvent) error {
	switch ev.Kind {
	case store.ChangeInsert:
		if r.engine.GetFish(ev.After.ID) != nil {
			return nil // already present, e.g. locally created then persisted
		}
		if r.engine.AddFish(ev.After.ID, optionsFromRecord(ev.After)) == nil {
			return fmt.Errorf("insert %q rejected", ev.After.ID)
		}
		return nil

	case store.ChangeDelete:
		r.engine.RemoveFish(ev.Before.ID)
		return nil

	case store.ChangeUpdate:
		patch, changed := diffRecords(ev.Before, ev.After)
		if !changed {
			return nil
		}
		if !r.engine.UpdateFishFields(ev.After.ID, patch) {
			return fmt.Errorf("update for unknown entity %q", ev.After.ID)
		}
		return nil

	default:
		return fmt.Errorf("unknown change kind %d", ev.Kind)
	}
}

// diffRecords computes the changed-field patch between two snapshots.
// Kinematic fields (position, target, frame, direction) are excluded:
// they are simulated locally and applying them back would fight the
// running animation.
func diffRecords(before, after store.FishRecord) (engine.FieldPatch, bool) {
	var patch engine.FieldPatch
	changed := false

	if before.Name != after.Name {
		patch.Name = &after.Name
		changed = true
	}
	if before.Color != after.Color {
		patch.Color = &after.Color
		changed = true
	}
	if before.SpriteURL != after.SpriteURL {
		patch.SpriteURL = &after.SpriteURL
		changed = true
	}
	if before.Size != after.Size {
		patch.Size = &after.Size
		changed = true
	}
	if before.Species != after.Species {
		sp := engine.Species(after.Species)
		patch.Species = &sp
		changed = true
	}
	return patch, changed
}

// rebuild refetches the authoritative set and rebuilds the local one.
// This is the recovery path for failed diff application.
func (r *Reconciler) rebuild() {
	recs, err := r.store.ListFish()
	if err != nil {
		log.Printf("reconcile: rebuild list failed: %v", err)
		return
	}
	r.rebuildFrom(recs)
}

func (r *Reconciler) rebuildFrom(recs []store.FishRecord) {
	for _, id := range r.engine.FishIDs() {
		r.engine.RemoveFish(id)
	}
	for _, rec := range recs {
		if r.engine.AddFish(rec.ID, optionsFromRecord(rec)) == nil {
			log.Printf("reconcile: rebuild dropped %q", rec.ID)
		}
	}
}

func optionsFromRecord(rec store.FishRecord) engine.EntityOptions {
	return engine.EntityOptions{
		Species:   engine.Species(rec.Species),
		Name:      rec.Name,
		Color:     rec.Color,
		SpriteURL: rec.SpriteURL,
		Size:      rec.Size,
		X:         rec.X,
		Y:         rec.Y,
		TargetY:   rec.TargetY,
		Direction: rec.Direction,
		Frame:     rec.Frame,
	}
}

// DefaultPopulator returns a Populate function seeding the store with a
// school sized to the world area, roughly one fish per 25 tiles with a
// shark for every eight fish.
func DefaultPopulator(st store.Store, tilesH, tilesV int) func() error {
	return func() error {
		count := tilesH * tilesV / 25
		if count < 4 {
			count = 4
		}
		if count > 40 {
			count = 40
		}
		for i := 0; i < count; i++ {
			species := "fish"
			if i%8 == 7 {
				species = "shark"
			}
			rec := store.FishRecord{
				ID:      fmt.Sprintf("seed_%d", i+1),
				Name:    fmt.Sprintf("Fish %d", i+1),
				Species: species,
			}
			if err := st.PutFish(rec); err != nil {
				return err
			}
		}
		return nil
	}
}
