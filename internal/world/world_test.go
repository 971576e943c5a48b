package world

import (
	"testing"

	"aquarium/internal/config"
)

func testWorld(tilesH, tilesV int) *World {
	cfg := config.DefaultWorld()
	cfg.TilesHorizontal = tilesH
	cfg.TilesVertical = tilesV
	return New(cfg)
}

// TestDerivedDimensions verifies world pixels always equal tiles * TileSize
func TestDerivedDimensions(t *testing.T) {
	tests := []struct {
		name           string
		tilesH, tilesV int
	}{
		{"default-ish", 30, 17},
		{"square", 10, 10},
		{"minimal", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testWorld(tt.tilesH, tt.tilesV)
			wantW := float64(tt.tilesH) * config.TileSize
			wantH := float64(tt.tilesV) * config.TileSize
			if w.Width() != wantW || w.Height() != wantH {
				t.Errorf("dimensions = (%v, %v), want (%v, %v)", w.Width(), w.Height(), wantW, wantH)
			}
		})
	}
}

// TestResizeRederives verifies Resize re-derives pixel dimensions
func TestResizeRederives(t *testing.T) {
	w := testWorld(10, 10)
	w.Resize(20, 5)

	if w.TilesHorizontal() != 20 || w.TilesVertical() != 5 {
		t.Fatalf("tile counts = (%d, %d), want (20, 5)", w.TilesHorizontal(), w.TilesVertical())
	}
	if w.Width() != 20*config.TileSize || w.Height() != 5*config.TileSize {
		t.Error("pixel dimensions not re-derived after Resize")
	}

	// Degenerate resize clamps to 1x1, never zero
	w.Resize(0, -3)
	if w.TilesHorizontal() != 1 || w.TilesVertical() != 1 {
		t.Errorf("degenerate resize = (%d, %d), want (1, 1)", w.TilesHorizontal(), w.TilesVertical())
	}
}

// TestConversionRoundTrip verifies grid->world->grid is identity for every cell
func TestConversionRoundTrip(t *testing.T) {
	w := testWorld(10, 10)

	for gy := 0; gy < 10; gy++ {
		for gx := 0; gx < 10; gx++ {
			wx, wy := w.GridToWorld(gx, gy, 1)
			back := w.WorldToGrid(wx, wy)
			if back.X != gx || back.Y != gy {
				t.Fatalf("round trip (%d,%d) -> (%v,%v) -> (%d,%d)", gx, gy, wx, wy, back.X, back.Y)
			}
		}
	}
}

// TestGridToWorldCenter verifies the footprint center for multi-tile objects
func TestGridToWorldCenter(t *testing.T) {
	w := testWorld(10, 10)

	// 2x2 object at (0,0): center is one full tile in
	wx, wy := w.GridToWorld(0, 0, 2)
	if wx != config.TileSize || wy != config.TileSize {
		t.Errorf("2x2 center = (%v, %v), want (%v, %v)", wx, wy, float64(config.TileSize), float64(config.TileSize))
	}

	// 1x1 object at (3,4): center is half a tile past the corner
	wx, wy = w.GridToWorld(3, 4, 1)
	wantX := 3*config.TileSize + config.TileSize/2.0
	wantY := 4*config.TileSize + config.TileSize/2.0
	if wx != wantX || wy != wantY {
		t.Errorf("1x1 center = (%v, %v), want (%v, %v)", wx, wy, wantX, wantY)
	}
}

// TestInBounds exercises footprint bounds checks at the edges
func TestInBounds(t *testing.T) {
	w := testWorld(10, 10)

	tests := []struct {
		name         string
		gx, gy, size int
		want         bool
	}{
		{"origin 1x1", 0, 0, 1, true},
		{"far corner 1x1", 9, 9, 1, true},
		{"far corner 2x2 overflows", 9, 9, 2, false},
		{"fits exactly", 8, 8, 2, true},
		{"negative x", -1, 0, 1, false},
		{"negative y", 0, -1, 1, false},
		{"past right edge", 10, 0, 1, false},
		{"full-grid footprint", 0, 0, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.InBounds(tt.gx, tt.gy, tt.size); got != tt.want {
				t.Errorf("InBounds(%d,%d,%d) = %v, want %v", tt.gx, tt.gy, tt.size, got, tt.want)
			}
		})
	}
}

// TestClampGrid verifies out-of-bounds anchors are pulled into the grid
func TestClampGrid(t *testing.T) {
	w := testWorld(10, 10)

	p := w.ClampGrid(-5, 20, 2)
	if p.X != 0 || p.Y != 8 {
		t.Errorf("ClampGrid = (%d, %d), want (0, 8)", p.X, p.Y)
	}

	p = w.ClampGrid(4, 4, 2)
	if p.X != 4 || p.Y != 4 {
		t.Errorf("in-bounds anchor moved to (%d, %d)", p.X, p.Y)
	}
}

// TestScreenToGrid composes a surface transform with tiling
func TestScreenToGrid(t *testing.T) {
	w := testWorld(10, 10)

	// Simulated viewport: 2x zoom, panned by (64, 64) world pixels
	transform := func(sx, sy float64) (float64, float64) {
		return sx/2 + 64, sy/2 + 64
	}

	p := w.ScreenToGrid(0, 0, transform)
	if p.X != 1 || p.Y != 1 {
		t.Errorf("ScreenToGrid(0,0) = (%d, %d), want (1, 1)", p.X, p.Y)
	}

	p = w.ScreenToGrid(256, 128, transform)
	if p.X != 3 || p.Y != 2 {
		t.Errorf("ScreenToGrid(256,128) = (%d, %d), want (3, 2)", p.X, p.Y)
	}
}

// TestSafeZone verifies containment and recompute-on-resize
func TestSafeZone(t *testing.T) {
	z := NewSafeZone(400, 300, 800, 600)

	if !z.Contains(400, 300) {
		t.Error("safe zone should contain its own center")
	}
	if z.Contains(0, 0) {
		t.Error("safe zone should not contain the world origin")
	}

	z.Recompute(1000, 1000, 800, 600)
	if z.Contains(400, 300) {
		t.Error("old center should be outside after recompute")
	}
	if !z.Contains(1000, 1000) {
		t.Error("new center should be inside after recompute")
	}

	// nil receiver fails closed (nothing is reserved)
	var nilZone *SafeZone
	if nilZone.Contains(1, 1) {
		t.Error("nil safe zone should contain nothing")
	}
	nilZone.Recenter(5, 5)
}

// TestSafeZoneRecenter verifies the zone follows a new world center while
// keeping its viewport-derived size
func TestSafeZoneRecenter(t *testing.T) {
	z := NewSafeZone(400, 300, 800, 600)
	before := z.Rect()

	z.Recenter(2000, 1000)

	after := z.Rect()
	if after.Width != before.Width || after.Height != before.Height {
		t.Errorf("size changed: %vx%v, want %vx%v",
			after.Width, after.Height, before.Width, before.Height)
	}
	if !z.Contains(2000, 1000) {
		t.Error("new center should be inside after recenter")
	}
	if z.Contains(400, 300) {
		t.Error("old center should be outside after recenter")
	}
}

// TestRectExpand verifies margin expansion used by culling
func TestRectExpand(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 800, Height: 600}
	e := r.Expand(50)

	if e.X != -50 || e.Y != -50 || e.Width != 900 || e.Height != 700 {
		t.Errorf("Expand = %+v", e)
	}
	if !e.Contains(840, 300) {
		t.Error("expanded rect should contain point within margin")
	}
	if e.Contains(900.5, 300) {
		t.Error("expanded rect should not contain point past margin")
	}
}
