// Package engine drives the aquarium simulation: per-tick entity behavior,
// bubble particles, viewport culling, and lock-free state snapshots.
//
// Single ownership rule: all simulation state is mutated only inside the
// tick loop or under the engine lock. The render surface and API read
// published snapshots, never live entities.
package engine

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"aquarium/internal/config"
	"aquarium/internal/culling"
	"aquarium/internal/world"
)

// PositionUpdate is one entity's kinematic state for outbound sync.
type PositionUpdate struct {
	ID        string  `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	TargetY   float64 `json:"targetY"`
	Frame     int     `json:"frame"`
	Direction int     `json:"direction"`
}

// FieldPatch is a set of non-kinematic fields to apply in place to an
// existing entity. Nil fields are untouched; the entity is never destroyed
// and recreated, so animation state survives the update.
type FieldPatch struct {
	Name      *string
	Color     *string
	SpriteURL *string
	Size      *float64
	Species   *Species
}

// Config carries engine construction parameters.
type Config struct {
	World    config.WorldConfig
	Behavior config.BehaviorConfig
	Limits   config.ResourceLimits

	// Culler is optional; without one every entity stays visible.
	Culler *culling.Culler

	// SafeZone is optional; spawn logic avoids it when set.
	SafeZone *world.SafeZone

	// Seed for the engine RNG; zero means time-based.
	Seed int64
}

// Engine is the simulation core.
type Engine struct {
	mu sync.RWMutex

	world    *world.World
	worldCfg config.WorldConfig
	safeZone *world.SafeZone
	behavior config.BehaviorConfig
	limits   config.ResourceLimits

	fish      map[string]*Entity
	fishSlice []*Entity        // cached for per-tick iteration, rebuilt on membership change
	cullList  []culling.Target // cached conversion for the culler

	bubblePool    *Pool[Bubble]
	bubbleHandles []Handle
	bubbleTimer   float64 // ms since last bubble spawn

	culler *culling.Culler

	moodMultiplier float64

	tickRate int
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}
	lastTick time.Time

	tickCount uint64
	rng       *rand.Rand

	snapshotPool *SnapshotPool

	// onMotion fires at the end of any tick in which at least one entity
	// moved. The sync debouncer hangs off this.
	onMotion func()

	// onTick receives the tick duration for metrics.
	onTick func(time.Duration)
}

// bubbleSpawnInterval is the mean time between ambient bubble spawns.
const bubbleSpawnInterval = 280.0 // ms

// New creates an engine. Start must be called before entities move.
func New(cfg Config) *Engine {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Engine{
		world:          world.New(cfg.World),
		worldCfg:       cfg.World,
		safeZone:       cfg.SafeZone,
		behavior:       cfg.Behavior,
		limits:         cfg.Limits,
		fish:           make(map[string]*Entity),
		fishSlice:      make([]*Entity, 0, cfg.Limits.MaxFish),
		cullList:       make([]culling.Target, 0, cfg.Limits.MaxFish),
		bubblePool:     NewPool[Bubble](cfg.Limits.PoolSize, resetBubble),
		bubbleHandles:  make([]Handle, 0, cfg.Limits.MaxBubbles),
		culler:         cfg.Culler,
		moodMultiplier: 1.0,
		tickRate:       cfg.Behavior.TickRate,
		stopChan:       make(chan struct{}),
		rng:            rand.New(rand.NewSource(seed)),
		snapshotPool:   NewSnapshotPool(cfg.Limits),
	}
}

// World returns the coordinate model shared with the placement index.
func (e *Engine) World() *world.World { return e.world }

// SetMotionObserver registers the callback fired after ticks with motion.
func (e *Engine) SetMotionObserver(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onMotion = fn
}

// SetTickObserver registers a tick-duration callback for metrics.
func (e *Engine) SetTickObserver(fn func(time.Duration)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTick = fn
}

// Start begins the tick loop. A stopped engine can be started again.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.lastTick = time.Now()
	e.stopChan = make(chan struct{})
	e.ticker = time.NewTicker(time.Second / time.Duration(e.tickRate))
	stop := e.stopChan
	ticker := e.ticker
	e.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				e.tick()
			case <-stop:
				return
			}
		}
	}()

	log.Printf("aquarium engine started at %d TPS (%dx%d tiles)", e.tickRate, e.world.TilesHorizontal(), e.world.TilesVertical())
}

// Stop halts the tick loop. Safe to call twice.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	e.running = false
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopChan)
	log.Println("aquarium engine stopped")
}

// tick advances the simulation by the elapsed wall time. Within one tick
// the order is fixed: behavior update, bubbles, culling, snapshot. UI
// readers only ever see the post-culling snapshot.
func (e *Engine) tick() {
	started := time.Now()

	e.mu.Lock()

	e.tickCount++
	dt := float64(started.Sub(e.lastTick).Milliseconds())
	e.lastTick = started
	if dt <= 0 {
		dt = 1000.0 / float64(e.tickRate)
	}
	if dt > 250 {
		// A long stall (debugger, suspend) should not teleport entities
		dt = 250
	}

	moved := false
	for _, entity := range e.fishSlice {
		px, py := entity.X, entity.Y
		entity.Update(dt, e.world, e.behavior, e.rng)
		if entity.X != px || entity.Y != py {
			moved = true
		}
	}

	e.updateBubbles(dt)

	if e.culler != nil {
		e.cullList = e.cullList[:0]
		for _, entity := range e.fishSlice {
			e.cullList = append(e.cullList, entity)
		}
		e.culler.Cull(e.cullList, started)
	}

	e.produceSnapshot()

	onMotion := e.onMotion
	onTick := e.onTick
	e.mu.Unlock()

	if moved && onMotion != nil {
		onMotion()
	}
	if onTick != nil {
		onTick(time.Since(started))
	}
}

// updateBubbles spawns and advances bubble particles with zero-allocation
// in-place filtering over the handle slice.
func (e *Engine) updateBubbles(dt float64) {
	e.bubbleTimer += dt
	for e.bubbleTimer >= bubbleSpawnInterval {
		e.bubbleTimer -= bubbleSpawnInterval
		if len(e.bubbleHandles) >= e.limits.MaxBubbles {
			break
		}
		h, b := e.bubblePool.Acquire()
		b.spawn(e.world, e.rng)
		e.bubbleHandles = append(e.bubbleHandles, h)
	}

	n := 0
	for _, h := range e.bubbleHandles {
		b := e.bubblePool.Get(h)
		if b == nil {
			// Slot was force-reused under us; just drop the stale handle
			continue
		}
		if !b.update(dt) {
			e.bubblePool.Release(h)
			continue
		}
		e.bubbleHandles[n] = h
		n++
	}
	e.bubbleHandles = e.bubbleHandles[:n]
}

// produceSnapshot copies the current state into the next write buffer.
// Caller holds the engine lock.
func (e *Engine) produceSnapshot() {
	snap := e.snapshotPool.AcquireWrite()
	snap.TickNumber = e.tickCount

	visible := 0
	for _, entity := range e.fishSlice {
		if len(snap.Fish) >= e.limits.MaxFish {
			break
		}
		if entity.Visible() {
			visible++
		}
		snap.Fish = append(snap.Fish, FishSnapshot{
			ID:         entity.ID,
			Name:       entity.Name,
			Species:    entity.Species,
			X:          entity.X,
			Y:          entity.Y,
			Direction:  entity.Direction,
			Frame:      entity.Frame,
			Size:       entity.Size,
			Color:      entity.Visual.Color,
			SpriteURL:  entity.Visual.SpriteURL,
			Procedural: entity.Visual.Kind == VisualShape,
			Visible:    entity.Visible(),
			Speed:      entity.CurrentSpeed,
		})
	}

	for _, h := range e.bubbleHandles {
		if len(snap.Bubbles) >= e.limits.MaxBubbles {
			break
		}
		b := e.bubblePool.Get(h)
		if b == nil {
			continue
		}
		snap.Bubbles = append(snap.Bubbles, BubbleSnapshot{
			X:      b.X,
			Y:      b.Y,
			Radius: b.Radius,
			Alpha:  b.Alpha,
		})
	}

	snap.FishCount = len(snap.Fish)
	snap.VisibleCount = visible
	snap.BubbleCount = len(snap.Bubbles)

	e.snapshotPool.PublishWrite()
}

// Snapshot returns the latest published snapshot (lock-free).
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshotPool.AcquireRead()
}

// AddFish creates an entity from options, under the fish cap. An empty id
// gets a generated one (entity not yet persisted). Returns nil when the
// cap is reached or the id already exists.
func (e *Engine) AddFish(id string, opts EntityOptions) *Entity {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.fish) >= e.limits.MaxFish {
		log.Printf("fish cap reached (%d), rejecting %q", e.limits.MaxFish, id)
		return nil
	}
	if id == "" {
		id = fmt.Sprintf("fish_%d", time.Now().UnixNano())
	}
	if _, ok := e.fish[id]; ok {
		return e.fish[id]
	}

	entity := newEntity(id, opts, e.world, e.safeZone, e.behavior, e.rng)
	entity.SetMoodSpeed(e.moodMultiplier, e.behavior)
	e.fish[id] = entity
	e.rebuildSliceLocked()
	return entity
}

// RemoveFish destroys the entity with the given id, if present.
func (e *Engine) RemoveFish(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.fish[id]; !ok {
		return false
	}
	delete(e.fish, id)
	e.rebuildSliceLocked()
	return true
}

// GetFish returns the live entity for an id, or nil.
func (e *Engine) GetFish(id string) *Entity {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fish[id]
}

// FishIDs returns the ids of all live entities.
func (e *Engine) FishIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := make([]string, 0, len(e.fish))
	for id := range e.fish {
		ids = append(ids, id)
	}
	return ids
}

// FishCount returns the number of live entities.
func (e *Engine) FishCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.fish)
}

// UpdateFishFields applies a field patch in place. The entity keeps its
// position, frame, and drift state; only the named fields change.
func (e *Engine) UpdateFishFields(id string, patch FieldPatch) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	entity, ok := e.fish[id]
	if !ok {
		return false
	}

	if patch.Name != nil {
		entity.Name = *patch.Name
	}
	if patch.Color != nil {
		entity.Visual.Color = *patch.Color
	}
	if patch.SpriteURL != nil {
		entity.Visual.SpriteURL = *patch.SpriteURL
		if *patch.SpriteURL == "" {
			entity.Visual.Kind = VisualShape
		} else {
			entity.Visual.Kind = VisualSprite
		}
	}
	if patch.Size != nil && *patch.Size > 0 {
		entity.Size = *patch.Size
	}
	if patch.Species != nil && *patch.Species != entity.Species {
		traits := TraitsFor(e.behavior, *patch.Species)
		entity.Species = *patch.Species
		entity.FrameCount = traits.FrameCount
		entity.AnimationInterval = traits.AnimationInterval
		entity.maxSpeed = traits.MaxSpeed
		if entity.Frame >= traits.FrameCount {
			entity.Frame = 0
		}
		entity.SetMoodSpeed(e.moodMultiplier, e.behavior)
	}
	return true
}

// SetMood rescales every entity's speed from the mood multiplier. New
// entities inherit the multiplier on spawn.
func (e *Engine) SetMood(multiplier float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.moodMultiplier = multiplier
	for _, entity := range e.fishSlice {
		entity.SetMoodSpeed(multiplier, e.behavior)
	}
}

// Mood returns the current mood multiplier.
func (e *Engine) Mood() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.moodMultiplier
}

// CollectDirtyPositions drains the positions of entities that moved since
// the last collection. Called by the sync debouncer on flush.
func (e *Engine) CollectDirtyPositions() []PositionUpdate {
	e.mu.Lock()
	defer e.mu.Unlock()

	updates := make([]PositionUpdate, 0, len(e.fishSlice))
	for _, entity := range e.fishSlice {
		if !entity.dirty {
			continue
		}
		entity.dirty = false
		updates = append(updates, PositionUpdate{
			ID:        entity.ID,
			X:         entity.X,
			Y:         entity.Y,
			TargetY:   entity.TargetY,
			Frame:     entity.Frame,
			Direction: entity.Direction,
		})
	}
	return updates
}

// ResizeWorld changes the tile counts, clamped into the configured
// bounds, recenters the safe zone, and re-culls immediately. The
// placement occupancy reindex is owned by the caller, which holds the
// index.
func (e *Engine) ResizeWorld(tilesH, tilesV int) {
	e.mu.Lock()
	if lo := e.worldCfg.MinTiles; lo > 0 {
		if tilesH < lo {
			tilesH = lo
		}
		if tilesV < lo {
			tilesV = lo
		}
	}
	if hi := e.worldCfg.MaxTiles; hi > 0 {
		if tilesH > hi {
			tilesH = hi
		}
		if tilesV > hi {
			tilesV = hi
		}
	}
	e.world.Resize(tilesH, tilesV)
	e.safeZone.Recenter(e.world.Width()/2, e.world.Height()/2)
	culler := e.culler
	e.cullList = e.cullList[:0]
	for _, entity := range e.fishSlice {
		e.cullList = append(e.cullList, entity)
	}
	targets := e.cullList
	e.mu.Unlock()

	if culler != nil {
		culler.ForceCull(targets, time.Now())
	}
}

// PoolStats exposes bubble pool diagnostics.
func (e *Engine) PoolStats() (inUse, capacity int, forcedReuse, doubleReleases uint64) {
	return e.bubblePool.Stats()
}

// TickCount returns the number of completed ticks.
func (e *Engine) TickCount() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tickCount
}

// rebuildSliceLocked refreshes the iteration cache after membership change.
func (e *Engine) rebuildSliceLocked() {
	e.fishSlice = e.fishSlice[:0]
	for _, entity := range e.fish {
		e.fishSlice = append(e.fishSlice, entity)
	}
}

// StepOnce advances the simulation synchronously by dt milliseconds.
// Used by tests and by headless batch rendering; the ticker calls the
// same path internally.
func (e *Engine) StepOnce(dt float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tickCount++
	for _, entity := range e.fishSlice {
		entity.Update(dt, e.world, e.behavior, e.rng)
	}
	e.updateBubbles(dt)
	if e.culler != nil {
		e.cullList = e.cullList[:0]
		for _, entity := range e.fishSlice {
			e.cullList = append(e.cullList, entity)
		}
		e.culler.Cull(e.cullList, time.Now())
	}
	e.produceSnapshot()
}
