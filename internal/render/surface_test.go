package render

import (
	"math"
	"testing"

	"aquarium/internal/config"
	"aquarium/internal/world"
)

func testViewport() (*Viewport, *world.World) {
	w := world.New(config.DefaultWorld())
	return NewViewport(w), w
}

func TestViewportNotReadyUntilResize(t *testing.T) {
	vp, _ := testViewport()

	if _, ok := vp.VisibleBounds(); ok {
		t.Error("viewport reported ready before first resize")
	}

	vp.Resize(800, 600)
	bounds, ok := vp.VisibleBounds()
	if !ok {
		t.Fatal("viewport not ready after resize")
	}
	if bounds.Width != 800 || bounds.Height != 600 {
		t.Errorf("bounds = %+v, want 800x600 at zoom 1", bounds)
	}
}

func TestWorldScreenRoundTrip(t *testing.T) {
	vp, _ := testViewport()
	vp.Resize(800, 600)
	vp.SetZoom(1.7)
	vp.Pan(120, -45)

	wx, wy := 500.0, 400.0
	sx, sy := vp.WorldToScreen(wx, wy)
	gx, gy := vp.ScreenToWorld(sx, sy)

	if math.Abs(gx-wx) > 1e-9 || math.Abs(gy-wy) > 1e-9 {
		t.Errorf("round trip (%.1f,%.1f) -> (%.4f,%.4f)", wx, wy, gx, gy)
	}
}

func TestZoomAtKeepsCursorPointFixed(t *testing.T) {
	vp, _ := testViewport()
	vp.Resize(800, 600)

	sx, sy := 200.0, 150.0
	beforeX, beforeY := vp.ScreenToWorld(sx, sy)
	vp.ZoomAt(2.0, sx, sy)
	afterX, afterY := vp.ScreenToWorld(sx, sy)

	if math.Abs(afterX-beforeX) > 1e-9 || math.Abs(afterY-beforeY) > 1e-9 {
		t.Errorf("world point under cursor moved: (%.3f,%.3f) -> (%.3f,%.3f)",
			beforeX, beforeY, afterX, afterY)
	}
}

func TestZoomClamped(t *testing.T) {
	vp, _ := testViewport()
	vp.Resize(800, 600)

	vp.SetZoom(100)
	if vp.Zoom() != maxZoom {
		t.Errorf("Zoom = %.2f, want clamp at %.2f", vp.Zoom(), maxZoom)
	}
	vp.SetZoom(0.001)
	if vp.Zoom() != minZoom {
		t.Errorf("Zoom = %.2f, want clamp at %.2f", vp.Zoom(), minZoom)
	}
}

func TestVisibleBoundsShrinkWithZoom(t *testing.T) {
	vp, _ := testViewport()
	vp.Resize(800, 600)
	vp.SetZoom(2.0)

	bounds, _ := vp.VisibleBounds()
	if bounds.Width != 400 || bounds.Height != 300 {
		t.Errorf("bounds at 2x zoom = %+v, want 400x300", bounds)
	}
}

func TestTransformFeedsGridHitTesting(t *testing.T) {
	vp, w := testViewport()
	vp.Resize(800, 600)

	// The screen center maps to the world midpoint, which sits in the
	// middle tile.
	pos := w.ScreenToGrid(400, 300, vp.Transform())
	want := w.WorldToGrid(w.Width()/2, w.Height()/2)
	if pos != want {
		t.Errorf("ScreenToGrid = %+v, want %+v", pos, want)
	}
}
