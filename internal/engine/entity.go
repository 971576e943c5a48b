package engine

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"aquarium/internal/config"
	"aquarium/internal/world"
)

// frameScale normalizes pixel-per-millisecond speeds to a 60fps-equivalent
// step. position += direction * speed * dt * frameScale.
const frameScale = 0.06

// targetEpsilon is the vertical dead zone: inside it the entity stops
// easing toward TargetY.
const targetEpsilon = 2.0

// VisualKind tags which visual variant an entity carries.
type VisualKind int

const (
	// VisualShape is a procedurally drawn entity; it steps animation frames.
	VisualShape VisualKind = iota
	// VisualSprite is backed by a fetched texture; no frame stepping.
	VisualSprite
)

// Visual is the tagged variant for entity appearance. Behavior code never
// branches on it; only the animation step and the render surface do.
type Visual struct {
	Kind      VisualKind `json:"kind"`
	SpriteURL string     `json:"spriteUrl,omitempty"`
	Color     string     `json:"color"`
}

// Entity is a simulated fish or shark. Simulation state lives here, owned
// by the engine; the render surface looks entities up by ID and keeps its
// own draw handles.
type Entity struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Species Species `json:"species"`

	// Kinematic state
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Direction     int     `json:"direction"` // -1 left, +1 right
	BaseSpeed     float64 `json:"-"`
	CurrentSpeed  float64 `json:"-"`
	VerticalSpeed float64 `json:"-"`
	TargetY       float64 `json:"targetY"`

	// Animation state
	Frame             int           `json:"frame"`
	FrameCount        int           `json:"-"`
	AnimationInterval time.Duration `json:"-"`
	frameTimer        float64       // ms accumulated toward next frame

	// Drift wandering
	driftTimer    float64 // ms since last re-target
	driftInterval float64 // ms until next re-target, re-randomized on fire

	Size   float64 `json:"size"`
	Visual Visual  `json:"visual"`

	// Culling flag, owned by the culler
	visible bool

	// Set when position changed since the last outbound sync flush
	dirty bool

	// Degenerate state (zero speed/direction) is logged once, not per tick
	degenerateLogged bool

	maxSpeed float64
}

// EntityOptions carries spawn parameters. Zero values are randomized;
// restoring from a persisted record fills everything in.
type EntityOptions struct {
	Species   Species
	Name      string
	Color     string
	SpriteURL string
	Size      float64
	X, Y      float64
	TargetY   float64
	Direction int
	Frame     int
}

var fishColors = []string{
	"#ff8c42", "#ffd166", "#06d6a0", "#118ab2",
	"#ef476f", "#73d2de", "#f3a712", "#a1cf6b",
}

// newEntity creates an entity from options, randomizing anything unset.
// Spawn positions avoid the safe zone.
func newEntity(id string, opts EntityOptions, w *world.World, zone *world.SafeZone, cfg config.BehaviorConfig, rng *rand.Rand) *Entity {
	species := opts.Species
	if species == "" {
		species = SpeciesFish
	}
	traits := TraitsFor(cfg, species)

	color := opts.Color
	if color == "" {
		color = fishColors[rng.Intn(len(fishColors))]
	}

	size := opts.Size
	if size <= 0 {
		size = traits.SizeMin + rng.Float64()*(traits.SizeMax-traits.SizeMin)
	}

	direction := opts.Direction
	if direction == 0 {
		direction = 1
		if rng.Float64() < 0.5 {
			direction = -1
		}
	}

	x, y := opts.X, opts.Y
	if x == 0 && y == 0 {
		x, y = spawnPoint(w, zone, cfg, rng)
	}

	targetY := opts.TargetY
	if targetY == 0 {
		targetY = randomTargetY(w, cfg, rng)
	}

	visual := Visual{Kind: VisualShape, Color: color}
	if opts.SpriteURL != "" {
		visual = Visual{Kind: VisualSprite, SpriteURL: opts.SpriteURL, Color: color}
	}

	base := traits.BaseSpeedMin + rng.Float64()*(traits.BaseSpeedMax-traits.BaseSpeedMin)

	e := &Entity{
		ID:                id,
		Name:              opts.Name,
		Species:           species,
		X:                 x,
		Y:                 y,
		Direction:         direction,
		BaseSpeed:         base,
		CurrentSpeed:      base,
		VerticalSpeed:     cfg.VerticalSpeedMin + rng.Float64()*(cfg.VerticalSpeedMax-cfg.VerticalSpeedMin),
		TargetY:           targetY,
		Frame:             opts.Frame,
		FrameCount:        traits.FrameCount,
		AnimationInterval: traits.AnimationInterval,
		driftInterval:     randomDriftInterval(cfg, rng),
		Size:              size,
		Visual:            visual,
		visible:           true,
		maxSpeed:          traits.MaxSpeed,
	}
	return e
}

// spawnPoint picks a random position inside vertical margins, re-rolling a
// few times to stay out of the safe zone. Gives up after a bounded number
// of attempts rather than looping forever on a zone covering the world.
func spawnPoint(w *world.World, zone *world.SafeZone, cfg config.BehaviorConfig, rng *rand.Rand) (float64, float64) {
	var x, y float64
	for attempt := 0; attempt < 12; attempt++ {
		x = rng.Float64() * w.Width()
		y = cfg.VerticalMargin + rng.Float64()*(w.Height()-2*cfg.VerticalMargin)
		if !zone.Contains(x, y) {
			break
		}
	}
	return x, y
}

func randomTargetY(w *world.World, cfg config.BehaviorConfig, rng *rand.Rand) float64 {
	return cfg.VerticalMargin + rng.Float64()*(w.Height()-2*cfg.VerticalMargin)
}

func randomDriftInterval(cfg config.BehaviorConfig, rng *rand.Rand) float64 {
	span := cfg.DriftIntervalMax - cfg.DriftIntervalMin
	return float64(cfg.DriftIntervalMin.Milliseconds()) + rng.Float64()*float64(span.Milliseconds())
}

// Update advances the entity state machine by dt milliseconds.
func (e *Entity) Update(dt float64, w *world.World, cfg config.BehaviorConfig, rng *rand.Rand) {
	if e.CurrentSpeed <= 0 || e.Direction == 0 {
		if !e.degenerateLogged {
			log.Printf("degenerate entity %s: speed=%.3f direction=%d, continuing", e.ID, e.CurrentSpeed, e.Direction)
			e.degenerateLogged = true
		}
		// Keep simulating: vertical drive and animation still run below.
	}

	prevX, prevY := e.X, e.Y

	// Horizontal drive
	e.X += float64(e.Direction) * e.CurrentSpeed * dt * frameScale

	// Edge handling: crossing the margin outside world width usually flips
	// direction back toward the interior, occasionally lets the entity keep
	// going so the school doesn't bunch at the edges. A hard limit at twice
	// the margin always reverses.
	margin := cfg.EdgeMargin
	if e.X < -margin && e.Direction < 0 {
		e.reverseAtEdge(w, cfg, rng, +1, e.X < -2*margin)
	} else if e.X > w.Width()+margin && e.Direction > 0 {
		e.reverseAtEdge(w, cfg, rng, -1, e.X > w.Width()+2*margin)
	}

	// Vertical drive: ease toward TargetY
	if delta := e.TargetY - e.Y; math.Abs(delta) > targetEpsilon {
		step := e.VerticalSpeed * dt * frameScale
		if delta < 0 {
			step = -step
		}
		e.Y += step
	}

	// Drift timer: periodically wander to a fresh vertical target
	e.driftTimer += dt
	if e.driftTimer >= e.driftInterval {
		e.driftTimer = 0
		e.driftInterval = randomDriftInterval(cfg, rng)
		e.TargetY = randomTargetY(w, cfg, rng)
	}

	// Boundary re-targeting: force the target into the opposite half so the
	// entity doesn't stick at extremes
	if e.Y < cfg.VerticalMargin {
		half := w.Height() / 2
		e.TargetY = half + rng.Float64()*(half-cfg.VerticalMargin)
	} else if e.Y > w.Height()-cfg.VerticalMargin {
		half := w.Height() / 2
		e.TargetY = cfg.VerticalMargin + rng.Float64()*(half-cfg.VerticalMargin)
	}

	// Animation: frame stepping applies to procedural visuals only
	if e.Visual.Kind == VisualShape && e.FrameCount > 0 {
		e.frameTimer += dt
		interval := float64(e.AnimationInterval.Milliseconds())
		for e.frameTimer >= interval && interval > 0 {
			e.frameTimer -= interval
			e.Frame = (e.Frame + 1) % e.FrameCount
		}
	}

	if e.X != prevX || e.Y != prevY {
		e.dirty = true
	}
}

// reverseAtEdge handles an edge crossing. inward is the direction back
// toward the interior; force skips the biased roll.
func (e *Entity) reverseAtEdge(w *world.World, cfg config.BehaviorConfig, rng *rand.Rand, inward int, force bool) {
	if force || rng.Float64() < cfg.ReverseBias {
		e.Direction = inward
		// Re-randomize the vertical target so bounces look less mechanical
		e.TargetY = randomTargetY(w, cfg, rng)
	}
}

// SetMoodSpeed recomputes CurrentSpeed from the mood multiplier, clamped
// into [floor, species max].
func (e *Entity) SetMoodSpeed(multiplier float64, cfg config.BehaviorConfig) {
	speed := e.BaseSpeed * multiplier
	if speed < cfg.SpeedFloor {
		speed = cfg.SpeedFloor
	}
	if speed > e.maxSpeed {
		speed = e.maxSpeed
	}
	e.CurrentSpeed = speed
}

// FacingScale returns the horizontal mirror factor for sprite orientation.
func (e *Entity) FacingScale() float64 {
	if e.Direction < 0 {
		return -1
	}
	return 1
}

// Position implements culling.Target.
func (e *Entity) Position() (float64, float64) { return e.X, e.Y }

// SetVisible implements culling.Target.
func (e *Entity) SetVisible(v bool) { e.visible = v }

// Visible reports the current culling flag.
func (e *Entity) Visible() bool { return e.visible }

// String identifies the entity in logs.
func (e *Entity) String() string {
	return fmt.Sprintf("%s(%s)", e.ID, e.Species)
}
