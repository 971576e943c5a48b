package render

import (
	"bytes"
	"testing"

	"aquarium/internal/engine"
)

func TestFrameRingWriteRead(t *testing.T) {
	rb := NewFrameRing(4)

	frame := []byte{1, 2, 3, 4}
	if !rb.TryWrite(frame) {
		t.Fatal("write to empty ring failed")
	}
	if rb.Available() != 1 {
		t.Fatalf("Available = %d, want 1", rb.Available())
	}

	got := rb.TryRead()
	if !bytes.Equal(got, frame) {
		t.Errorf("read %v, want %v", got, frame)
	}
	if rb.TryRead() != nil {
		t.Error("read from empty ring returned a frame")
	}
}

func TestFrameRingRejectsWrongSize(t *testing.T) {
	rb := NewFrameRing(4)
	if rb.TryWrite([]byte{1, 2}) {
		t.Error("accepted a frame of the wrong size")
	}
}

func TestFrameRingDropsWhenFull(t *testing.T) {
	rb := NewFrameRing(1)

	writes := 0
	for i := 0; i < ringSlots+4; i++ {
		if rb.TryWrite([]byte{byte(i)}) {
			writes++
		}
	}
	// One slot stays unused to distinguish full from empty.
	if writes != ringSlots-1 {
		t.Errorf("accepted %d writes, want %d", writes, ringSlots-1)
	}

	_, dropped, _ := rb.Stats()
	if dropped != 5 {
		t.Errorf("dropped = %d, want 5", dropped)
	}

	// Draining frees slots again; frames come out in write order.
	if got := rb.TryRead(); got[0] != 0 {
		t.Errorf("first frame = %d, want 0", got[0])
	}
	if !rb.TryWrite([]byte{99}) {
		t.Error("write failed after drain")
	}
}

func TestRenderFrameProducesBuffer(t *testing.T) {
	vp, w := testViewport()
	vp.Resize(320, 240)

	sprites := NewSpriteCache(8)
	pool := NewBubbleRenderPool(2)
	r := NewRenderer(320, 240, vp, sprites, pool)

	snap := &engine.Snapshot{
		Fish: []engine.FishSnapshot{
			{ID: "f1", Species: engine.SpeciesFish, X: w.Width() / 2, Y: w.Height() / 2,
				Direction: 1, Size: 1.0, Color: "#ff8c42", Procedural: true, Visible: true},
		},
		Bubbles: []engine.BubbleSnapshot{
			{X: w.Width() / 2, Y: w.Height() / 2, Radius: 4, Alpha: 0.8},
		},
	}
	buf := r.RenderFrame(snap, nil)
	if len(buf) != 320*240*4 {
		t.Fatalf("buffer length = %d, want %d", len(buf), 320*240*4)
	}
	if r.Ring().Available() != 1 {
		t.Errorf("ring holds %d frames after render, want 1", r.Ring().Available())
	}

	// The background gradient means the frame cannot be all zero.
	allZero := true
	for _, b := range buf {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		t.Error("rendered frame is empty")
	}
}
