// Package world models the aquarium coordinate spaces: a fixed-size tile
// grid and the continuous world-pixel space derived from it.
//
// Invariant: world pixel dimensions always equal tiles * TileSize. Changing
// tile counts requires a Resize, which re-derives everything downstream.
package world

import (
	"math"

	"aquarium/internal/config"
)

// Rect is an axis-aligned rectangle in world coordinates.
type Rect struct {
	X, Y          float64 // Top-left corner
	Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// Expand returns the rectangle grown by m on every side.
func (r Rect) Expand(m float64) Rect {
	return Rect{
		X:      r.X - m,
		Y:      r.Y - m,
		Width:  r.Width + 2*m,
		Height: r.Height + 2*m,
	}
}

// GridPos is a discrete tile coordinate (column, row).
type GridPos struct {
	X int `json:"gridX"`
	Y int `json:"gridY"`
}

// World is the aquarium coordinate model. It is a value-ish type guarded by
// its owner; the engine is the only mutator (via Resize).
type World struct {
	tilesH   int
	tilesV   int
	tileSize float64
}

// New creates a world from the configured tile counts.
func New(cfg config.WorldConfig) *World {
	return &World{
		tilesH:   cfg.TilesHorizontal,
		tilesV:   cfg.TilesVertical,
		tileSize: config.TileSize,
	}
}

// Resize changes the tile counts. Callers are responsible for re-deriving
// dependent state (occupancy reindex, culling bounds, safe zone).
func (w *World) Resize(tilesH, tilesV int) {
	if tilesH < 1 {
		tilesH = 1
	}
	if tilesV < 1 {
		tilesV = 1
	}
	w.tilesH = tilesH
	w.tilesV = tilesV
}

// TilesHorizontal returns the number of tile columns.
func (w *World) TilesHorizontal() int { return w.tilesH }

// TilesVertical returns the number of tile rows.
func (w *World) TilesVertical() int { return w.tilesV }

// TileSize returns the fixed tile edge length in world pixels.
func (w *World) TileSize() float64 { return w.tileSize }

// Width returns the world width in pixels (tilesH * tileSize).
func (w *World) Width() float64 { return float64(w.tilesH) * w.tileSize }

// Height returns the world height in pixels (tilesV * tileSize).
func (w *World) Height() float64 { return float64(w.tilesV) * w.tileSize }

// Bounds returns the full world rectangle.
func (w *World) Bounds() Rect {
	return Rect{X: 0, Y: 0, Width: w.Width(), Height: w.Height()}
}

// GridToWorld converts a tile coordinate plus a square footprint size
// (in tiles) to the world-pixel center of that footprint.
func (w *World) GridToWorld(gx, gy, size int) (float64, float64) {
	half := float64(size) * w.tileSize / 2
	return float64(gx)*w.tileSize + half, float64(gy)*w.tileSize + half
}

// WorldToGrid converts a world-pixel position to the containing tile.
// The result may be out of bounds; callers check with InBounds.
func (w *World) WorldToGrid(wx, wy float64) GridPos {
	return GridPos{
		X: int(math.Floor(wx / w.tileSize)),
		Y: int(math.Floor(wy / w.tileSize)),
	}
}

// InBounds reports whether a size x size footprint anchored at (gx, gy)
// lies fully inside the grid.
func (w *World) InBounds(gx, gy, size int) bool {
	return gx >= 0 && gy >= 0 && gx+size <= w.tilesH && gy+size <= w.tilesV
}

// ClampGrid clamps a footprint anchor into bounds. Used when overlapping
// placement is allowed and the drop point just needs to land inside.
func (w *World) ClampGrid(gx, gy, size int) GridPos {
	maxX := w.tilesH - size
	maxY := w.tilesV - size
	if gx < 0 {
		gx = 0
	}
	if gy < 0 {
		gy = 0
	}
	if gx > maxX {
		gx = maxX
	}
	if gy > maxY {
		gy = maxY
	}
	return GridPos{X: gx, Y: gy}
}

// ScreenTransform converts a screen point into world space. The render
// surface supplies this; the world model only composes it with tiling.
type ScreenTransform func(sx, sy float64) (wx, wy float64)

// ScreenToGrid converts a screen point to the containing tile using the
// render surface's screen-to-world transform.
func (w *World) ScreenToGrid(sx, sy float64, transform ScreenTransform) GridPos {
	wx, wy := transform(sx, sy)
	return w.WorldToGrid(wx, wy)
}

// SafeZone is a world-space rectangle reserved for overlay UI. Entity
// spawning and decoration placement avoid it.
type SafeZone struct {
	rect  Rect
	viewW float64
	viewH float64
}

// NewSafeZone creates a safe zone centered on the given viewport center,
// sized as a fraction of the viewport.
func NewSafeZone(centerX, centerY, viewWidth, viewHeight float64) *SafeZone {
	w := viewWidth * 0.4
	h := viewHeight * 0.25
	return &SafeZone{
		rect: Rect{
			X:      centerX - w/2,
			Y:      centerY - h/2,
			Width:  w,
			Height: h,
		},
		viewW: viewWidth,
		viewH: viewHeight,
	}
}

// Recompute repositions the zone after a viewport resize.
func (z *SafeZone) Recompute(centerX, centerY, viewWidth, viewHeight float64) {
	*z = *NewSafeZone(centerX, centerY, viewWidth, viewHeight)
}

// Recenter moves the zone to a new center, keeping the viewport-derived
// size. Used when the world resizes but the viewport does not.
func (z *SafeZone) Recenter(centerX, centerY float64) {
	if z == nil {
		return
	}
	*z = *NewSafeZone(centerX, centerY, z.viewW, z.viewH)
}

// Contains reports whether a world point falls inside the reserved zone.
func (z *SafeZone) Contains(x, y float64) bool {
	if z == nil {
		return false
	}
	return z.rect.Contains(x, y)
}

// Rect returns the current reserved rectangle.
func (z *SafeZone) Rect() Rect { return z.rect }
