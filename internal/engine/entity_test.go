package engine

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"aquarium/internal/config"
	"aquarium/internal/world"
)

func testWorld() *world.World {
	return world.New(config.WorldConfig{
		TilesHorizontal: 20,
		TilesVertical:   10,
		MinTiles:        8,
		MaxTiles:        120,
	})
}

func testEntity(t *testing.T, opts EntityOptions) (*Entity, *world.World, config.BehaviorConfig, *rand.Rand) {
	t.Helper()
	w := testWorld()
	cfg := config.DefaultBehavior()
	rng := rand.New(rand.NewSource(42))
	e := newEntity("test_fish", opts, w, nil, cfg, rng)
	return e, w, cfg, rng
}

func TestHorizontalDrive(t *testing.T) {
	e, w, cfg, rng := testEntity(t, EntityOptions{X: 400, Y: 300, TargetY: 300, Direction: 1})
	e.CurrentSpeed = 1.0

	e.Update(33, w, cfg, rng)

	want := 400 + 1.0*33*frameScale
	if math.Abs(e.X-want) > 1e-9 {
		t.Errorf("X = %.4f, want %.4f", e.X, want)
	}
	if !e.dirty {
		t.Error("movement did not mark entity dirty")
	}
}

func TestEdgeFlipForcedBeyondDoubleMargin(t *testing.T) {
	e, w, cfg, rng := testEntity(t, EntityOptions{X: 10, Y: 300, TargetY: 300, Direction: 1})
	cfg.ReverseBias = 0 // the roll never flips, only the hard limit does
	e.X = w.Width() + 2*cfg.EdgeMargin + 5
	e.CurrentSpeed = 1.0

	e.Update(16, w, cfg, rng)

	if e.Direction != -1 {
		t.Errorf("Direction = %d, want -1 past the hard limit", e.Direction)
	}
}

func TestEdgeFlipBias(t *testing.T) {
	w := testWorld()
	cfg := config.DefaultBehavior()

	// With bias 1.0 the first margin crossing always reverses.
	cfg.ReverseBias = 1.0
	rng := rand.New(rand.NewSource(1))
	e := newEntity("f", EntityOptions{X: 10, Y: 300, TargetY: 300, Direction: -1}, w, nil, cfg, rng)
	e.X = -cfg.EdgeMargin - 1
	e.CurrentSpeed = 0.01
	prevTarget := e.TargetY
	e.Update(16, w, cfg, rng)
	if e.Direction != 1 {
		t.Errorf("Direction = %d, want 1 after biased flip", e.Direction)
	}
	if e.TargetY == prevTarget {
		t.Error("flip did not re-randomize TargetY")
	}

	// With bias 0 the crossing is ignored until the hard limit.
	cfg.ReverseBias = 0
	e2 := newEntity("f2", EntityOptions{X: 10, Y: 300, TargetY: 300, Direction: -1}, w, nil, cfg, rng)
	e2.X = -cfg.EdgeMargin - 1
	e2.CurrentSpeed = 0.01
	e2.Update(16, w, cfg, rng)
	if e2.Direction != -1 {
		t.Errorf("Direction = %d, want -1 with zero bias inside the soft band", e2.Direction)
	}
}

func TestVerticalEasing(t *testing.T) {
	e, w, cfg, rng := testEntity(t, EntityOptions{X: 400, Y: 200, TargetY: 400, Direction: 1})
	e.VerticalSpeed = 0.5
	e.CurrentSpeed = 0.001

	e.Update(100, w, cfg, rng)
	if e.Y <= 200 {
		t.Errorf("Y = %.2f, want > 200 easing toward target 400", e.Y)
	}

	// Inside the dead zone the entity stops easing.
	e.Y = e.TargetY + targetEpsilon/2
	before := e.Y
	e.driftTimer = 0
	e.Update(16, w, cfg, rng)
	if e.Y != before {
		t.Errorf("Y moved inside dead zone: %.4f -> %.4f", before, e.Y)
	}
}

func TestDriftRetarget(t *testing.T) {
	e, w, cfg, rng := testEntity(t, EntityOptions{X: 400, Y: 300, TargetY: 300, Direction: 1})
	e.driftInterval = 100
	prev := e.TargetY

	e.Update(150, w, cfg, rng)

	if e.TargetY == prev {
		t.Error("drift timer did not pick a new TargetY")
	}
	if e.driftTimer != 0 {
		t.Errorf("driftTimer = %.1f, want reset to 0", e.driftTimer)
	}
	if e.driftInterval < float64(cfg.DriftIntervalMin.Milliseconds()) ||
		e.driftInterval > float64(cfg.DriftIntervalMax.Milliseconds()) {
		t.Errorf("driftInterval = %.0fms outside configured range", e.driftInterval)
	}
}

func TestBoundaryRetargetsOppositeHalf(t *testing.T) {
	e, w, cfg, rng := testEntity(t, EntityOptions{X: 400, Y: 300, TargetY: 300, Direction: 1})
	half := w.Height() / 2

	e.Y = cfg.VerticalMargin - 5
	e.Update(1, w, cfg, rng)
	if e.TargetY < half {
		t.Errorf("near top: TargetY = %.1f, want in bottom half (>= %.1f)", e.TargetY, half)
	}

	e.Y = w.Height() - cfg.VerticalMargin + 5
	e.Update(1, w, cfg, rng)
	if e.TargetY > half {
		t.Errorf("near bottom: TargetY = %.1f, want in top half (<= %.1f)", e.TargetY, half)
	}
}

func TestMoodSpeedClamping(t *testing.T) {
	cfg := config.DefaultBehavior()

	tests := []struct {
		name       string
		species    Species
		base       float64
		multiplier float64
		want       float64
	}{
		{"fish doubled", SpeciesFish, 1.0, 2.0, 2.0},
		{"fish ceiling", SpeciesFish, 1.0, 10.0, cfg.FishMaxSpeed},
		{"shark ceiling", SpeciesShark, 1.0, 10.0, cfg.SharkMaxSpeed},
		{"floor", SpeciesFish, 1.0, 0.01, cfg.SpeedFloor},
		{"identity", SpeciesFish, 0.8, 1.0, 0.8},
	}

	w := testWorld()
	rng := rand.New(rand.NewSource(7))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEntity("m", EntityOptions{Species: tt.species, X: 100, Y: 100, TargetY: 100}, w, nil, cfg, rng)
			e.BaseSpeed = tt.base
			e.SetMoodSpeed(tt.multiplier, cfg)
			if math.Abs(e.CurrentSpeed-tt.want) > 1e-9 {
				t.Errorf("CurrentSpeed = %.3f, want %.3f", e.CurrentSpeed, tt.want)
			}
			if e.BaseSpeed != tt.base {
				t.Errorf("BaseSpeed changed to %.3f; mood must scale from the base", e.BaseSpeed)
			}
		})
	}
}

func TestDegenerateEntityKeepsAnimating(t *testing.T) {
	e, w, cfg, rng := testEntity(t, EntityOptions{X: 400, Y: 200, TargetY: 400, Direction: 1})
	e.CurrentSpeed = 0
	e.AnimationInterval = 50 * time.Millisecond

	e.Update(60, w, cfg, rng)
	if !e.degenerateLogged {
		t.Error("degenerate state not flagged")
	}
	if e.Frame == 0 {
		t.Error("animation stalled for degenerate entity")
	}
	if e.Y <= 200 {
		t.Error("vertical drive stalled for degenerate entity")
	}

	// Second update must not re-log; the flag stays set.
	e.Update(16, w, cfg, rng)
	if !e.degenerateLogged {
		t.Error("degenerate flag cleared unexpectedly")
	}
}

func TestFrameSteppingProceduralOnly(t *testing.T) {
	w := testWorld()
	cfg := config.DefaultBehavior()
	rng := rand.New(rand.NewSource(3))

	shape := newEntity("s1", EntityOptions{X: 100, Y: 100, TargetY: 100, Direction: 1}, w, nil, cfg, rng)
	shape.AnimationInterval = 100 * time.Millisecond
	shape.Update(250, w, cfg, rng)
	if shape.Frame != 2 {
		t.Errorf("procedural Frame = %d, want 2 after 250ms at 100ms interval", shape.Frame)
	}

	sprite := newEntity("s2", EntityOptions{X: 100, Y: 100, TargetY: 100, Direction: 1, SpriteURL: "http://img/fish.png"}, w, nil, cfg, rng)
	sprite.Update(250, w, cfg, rng)
	if sprite.Frame != 0 {
		t.Errorf("sprite Frame = %d, want frozen at 0", sprite.Frame)
	}
	if sprite.Visual.Kind != VisualSprite {
		t.Errorf("Visual.Kind = %v, want VisualSprite", sprite.Visual.Kind)
	}
}

func TestFrameWraps(t *testing.T) {
	e, w, cfg, rng := testEntity(t, EntityOptions{X: 100, Y: 100, TargetY: 100, Direction: 1})
	e.FrameCount = 4
	e.AnimationInterval = 10 * time.Millisecond

	e.Update(45, w, cfg, rng)
	if e.Frame != 0 {
		t.Errorf("Frame = %d, want wrap back to 0 after 4 steps", e.Frame)
	}
}

func TestSpawnAvoidsSafeZone(t *testing.T) {
	w := testWorld()
	cfg := config.DefaultBehavior()
	rng := rand.New(rand.NewSource(11))
	zone := world.NewSafeZone(w.Width()/2, w.Height()/2, w.Width(), w.Height()/2)

	for i := 0; i < 20; i++ {
		x, y := spawnPoint(w, zone, cfg, rng)
		if zone.Contains(x, y) {
			t.Fatalf("spawn %d landed inside the safe zone at (%.1f, %.1f)", i, x, y)
		}
	}
}

func TestFacingScale(t *testing.T) {
	e, _, _, _ := testEntity(t, EntityOptions{X: 100, Y: 100, TargetY: 100, Direction: 1})
	if e.FacingScale() != 1 {
		t.Errorf("FacingScale = %.0f, want 1 facing right", e.FacingScale())
	}
	e.Direction = -1
	if e.FacingScale() != -1 {
		t.Errorf("FacingScale = %.0f, want -1 facing left", e.FacingScale())
	}
}
