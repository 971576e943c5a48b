package engine

import (
	"math"
	"math/rand"

	"aquarium/internal/world"
)

// Bubble is an ambient particle rising from the tank floor. Bubbles are
// pooled: the struct is reset in place on release, never reallocated.
type Bubble struct {
	X, Y    float64
	RiseVY  float64 // upward pixels per ms before frame scale
	Wobble  float64 // horizontal wobble amplitude
	Phase   float64 // wobble phase, advanced per tick
	Radius  float64
	Alpha   float64
	baseX   float64
	expired bool
}

func resetBubble(b *Bubble) {
	*b = Bubble{}
}

// spawn initializes a pooled bubble at a random column on the tank floor.
func (b *Bubble) spawn(w *world.World, rng *rand.Rand) {
	b.baseX = rng.Float64() * w.Width()
	b.X = b.baseX
	b.Y = w.Height() + 4
	b.RiseVY = 0.5 + rng.Float64()*0.8
	b.Wobble = 2 + rng.Float64()*6
	b.Phase = rng.Float64() * 2 * math.Pi
	b.Radius = 1.5 + rng.Float64()*3.5
	b.Alpha = 0.35 + rng.Float64()*0.4
	b.expired = false
}

// update advances the bubble by dt milliseconds. Returns false once the
// bubble has left the top of the world and should be released.
func (b *Bubble) update(dt float64) bool {
	if b.expired {
		return false
	}
	b.Y -= b.RiseVY * dt * frameScale
	b.Phase += dt * 0.004
	b.X = b.baseX + math.Sin(b.Phase)*b.Wobble

	// Fade out over the last stretch of the rise
	if b.Y < 80 {
		b.Alpha -= dt * 0.0015
	}

	if b.Y < -b.Radius || b.Alpha <= 0 {
		b.expired = true
		return false
	}
	return true
}
