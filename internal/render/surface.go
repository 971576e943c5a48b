// Package render owns the drawing side of the aquarium: the pannable,
// zoomable viewport, the sprite cache, frame rendering, and the frame
// ring buffer feeding outbound consumers. The engine never draws; it
// publishes snapshots and the renderer reads them.
package render

import (
	"sync"

	"aquarium/internal/world"
)

const (
	minZoom = 0.25
	maxZoom = 4.0
)

// Viewport maps between world space and screen space. It implements the
// culler's ViewportSource: until the first Resize it reports not-ready,
// which makes culling fail open.
type Viewport struct {
	mu sync.RWMutex

	centerX, centerY float64
	zoom             float64
	width, height    float64
	ready            bool
}

// NewViewport creates a viewport centered on the world midpoint at zoom 1.
// It stays not-ready until the surface reports its first size.
func NewViewport(w *world.World) *Viewport {
	return &Viewport{
		centerX: w.Width() / 2,
		centerY: w.Height() / 2,
		zoom:    1.0,
	}
}

// Resize records the surface pixel size and marks the viewport ready.
func (v *Viewport) Resize(width, height float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if width <= 0 || height <= 0 {
		return
	}
	v.width, v.height = width, height
	v.ready = true
}

// Pan shifts the view center by screen-space deltas.
func (v *Viewport) Pan(dxScreen, dyScreen float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.centerX -= dxScreen / v.zoom
	v.centerY -= dyScreen / v.zoom
}

// SetCenter moves the view center to a world point.
func (v *Viewport) SetCenter(wx, wy float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.centerX, v.centerY = wx, wy
}

// SetZoom sets the zoom factor, clamped into [minZoom, maxZoom].
func (v *Viewport) SetZoom(z float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.zoom = clampZoom(z)
}

// ZoomAt scales around a screen point so the world point under the
// cursor stays fixed.
func (v *Viewport) ZoomAt(factor, sx, sy float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	wx, wy := v.screenToWorldLocked(sx, sy)
	v.zoom = clampZoom(v.zoom * factor)
	nx, ny := v.screenToWorldLocked(sx, sy)
	v.centerX += wx - nx
	v.centerY += wy - ny
}

// Zoom returns the current zoom factor.
func (v *Viewport) Zoom() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.zoom
}

// Size returns the surface pixel size.
func (v *Viewport) Size() (w, h float64) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.width, v.height
}

// VisibleBounds implements culling.ViewportSource. The second return is
// false until the surface has reported a size.
func (v *Viewport) VisibleBounds() (world.Rect, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if !v.ready {
		return world.Rect{}, false
	}
	w := v.width / v.zoom
	h := v.height / v.zoom
	return world.Rect{
		X:      v.centerX - w/2,
		Y:      v.centerY - h/2,
		Width:  w,
		Height: h,
	}, true
}

// WorldToScreen projects a world point onto the surface.
func (v *Viewport) WorldToScreen(wx, wy float64) (float64, float64) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return (wx-v.centerX)*v.zoom + v.width/2,
		(wy-v.centerY)*v.zoom + v.height/2
}

// ScreenToWorld inverts WorldToScreen.
func (v *Viewport) ScreenToWorld(sx, sy float64) (float64, float64) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.screenToWorldLocked(sx, sy)
}

func (v *Viewport) screenToWorldLocked(sx, sy float64) (float64, float64) {
	return (sx-v.width/2)/v.zoom + v.centerX,
		(sy-v.height/2)/v.zoom + v.centerY
}

// Transform returns a screen-to-world transform for grid hit testing.
func (v *Viewport) Transform() world.ScreenTransform {
	return func(sx, sy float64) (float64, float64) {
		return v.ScreenToWorld(sx, sy)
	}
}

func clampZoom(z float64) float64 {
	if z < minZoom {
		return minZoom
	}
	if z > maxZoom {
		return maxZoom
	}
	return z
}
