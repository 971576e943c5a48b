package render

import (
	"sync/atomic"
)

// ringSlots is the number of frame slots. At 30fps that is a ~266ms
// cushion between the renderer and a slow frame consumer (encoder or
// websocket viewer) before frames start dropping.
const ringSlots = 8

// FrameRing decouples frame production from consumption without locks.
// A full ring drops the newest frame rather than stalling the renderer;
// the consumer catches up on the next frames.
type FrameRing struct {
	frames    [ringSlots][]byte
	readIdx   uint32 // atomic, consumer side
	writeIdx  uint32 // atomic, producer side
	frameSize int

	framesWritten uint64
	framesDropped uint64
	framesRead    uint64
}

// NewFrameRing creates a ring with pre-allocated frame slots.
func NewFrameRing(frameSize int) *FrameRing {
	rb := &FrameRing{frameSize: frameSize}
	for i := 0; i < ringSlots; i++ {
		rb.frames[i] = make([]byte, frameSize)
	}
	return rb
}

// TryWrite copies a frame into the ring. Returns false when the ring is
// full or the frame is the wrong size; the frame is dropped either way.
func (rb *FrameRing) TryWrite(frame []byte) bool {
	if len(frame) != rb.frameSize {
		return false
	}

	currentWrite := atomic.LoadUint32(&rb.writeIdx)
	nextWrite := (currentWrite + 1) % ringSlots

	if nextWrite == atomic.LoadUint32(&rb.readIdx) {
		atomic.AddUint64(&rb.framesDropped, 1)
		return false
	}

	copy(rb.frames[currentWrite], frame)
	atomic.StoreUint32(&rb.writeIdx, nextWrite)
	atomic.AddUint64(&rb.framesWritten, 1)
	return true
}

// TryRead returns the next frame, or nil when the ring is empty. The
// returned slice is only valid until the ring wraps back to its slot.
func (rb *FrameRing) TryRead() []byte {
	readIdx := atomic.LoadUint32(&rb.readIdx)
	writeIdx := atomic.LoadUint32(&rb.writeIdx)

	if readIdx == writeIdx {
		return nil
	}

	frame := rb.frames[readIdx]
	atomic.StoreUint32(&rb.readIdx, (readIdx+1)%ringSlots)
	atomic.AddUint64(&rb.framesRead, 1)
	return frame
}

// Available returns the number of unread frames.
func (rb *FrameRing) Available() int {
	readIdx := atomic.LoadUint32(&rb.readIdx)
	writeIdx := atomic.LoadUint32(&rb.writeIdx)

	if writeIdx >= readIdx {
		return int(writeIdx - readIdx)
	}
	return int(ringSlots - readIdx + writeIdx)
}

// Stats returns the ring counters.
func (rb *FrameRing) Stats() (written, dropped, read uint64) {
	return atomic.LoadUint64(&rb.framesWritten),
		atomic.LoadUint64(&rb.framesDropped),
		atomic.LoadUint64(&rb.framesRead)
}
