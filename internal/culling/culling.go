// Package culling marks entities outside the visible viewport region so the
// render surface can skip them. Re-culling is throttled: visibility flags may
// be stale for up to the configured interval, which is cheaper than testing
// every entity every frame.
package culling

import (
	"sync"
	"time"

	"aquarium/internal/config"
	"aquarium/internal/world"
)

// ViewportSource supplies the current visible world bounds. The render
// surface implements this. ok is false while the surface is not ready
// (no resize received yet), in which case culling fails open.
type ViewportSource interface {
	VisibleBounds() (world.Rect, bool)
}

// Target is anything the culler can test and flag. Satisfied by the
// engine's entities.
type Target interface {
	Position() (x, y float64)
	SetVisible(bool)
}

// Culler computes the expanded visible rectangle and applies visibility
// flags to entities.
type Culler struct {
	mu       sync.Mutex
	source   ViewportSource
	margin   float64
	interval time.Duration

	lastCull   time.Time
	lastBounds world.Rect
	haveBounds bool
}

// New creates a culler reading bounds from the given source.
func New(source ViewportSource, cfg config.CullingConfig) *Culler {
	return &Culler{
		source:   source,
		margin:   cfg.Margin,
		interval: cfg.Interval,
	}
}

// Margin returns the configured culling margin.
func (c *Culler) Margin() float64 { return c.margin }

// VisibleRect returns the last computed visible-plus-margin rectangle.
// ok is false if no bounds have ever been read; callers treat that as
// everything-visible.
func (c *Culler) VisibleRect() (world.Rect, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastBounds, c.haveBounds
}

// IsVisible tests point containment against the expanded visible rect.
// Fails open: with no readable bounds every point is visible.
func (c *Culler) IsVisible(x, y float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.haveBounds {
		return true
	}
	return c.lastBounds.Contains(x, y)
}

// Cull refreshes bounds and flags each target. Returns the visible subset
// and whether a re-cull actually ran; inside the throttle window nothing
// is touched and updated is false.
//
// If the viewport source cannot provide bounds, every target is flagged
// visible rather than hiding all content.
func (c *Culler) Cull(targets []Target, now time.Time) (visible []Target, updated bool) {
	c.mu.Lock()
	if !c.lastCull.IsZero() && now.Sub(c.lastCull) < c.interval {
		c.mu.Unlock()
		return nil, false
	}
	c.lastCull = now

	bounds, ok := c.source.VisibleBounds()
	if ok {
		c.lastBounds = bounds.Expand(c.margin)
		c.haveBounds = true
	}
	rect := c.lastBounds
	failOpen := !c.haveBounds
	c.mu.Unlock()

	visible = make([]Target, 0, len(targets))
	for _, t := range targets {
		x, y := t.Position()
		v := failOpen || rect.Contains(x, y)
		t.SetVisible(v)
		if v {
			visible = append(visible, t)
		}
	}
	return visible, true
}

// ForceCull ignores the throttle window. Used after resize/zoom events
// where stale flags would be visibly wrong.
func (c *Culler) ForceCull(targets []Target, now time.Time) []Target {
	c.mu.Lock()
	c.lastCull = time.Time{}
	c.mu.Unlock()
	visible, _ := c.Cull(targets, now)
	return visible
}
