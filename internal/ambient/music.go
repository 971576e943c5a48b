// Package ambient streams the looping underwater soundtrack. Decoding is
// on demand, so a long track costs a small decode buffer instead of the
// whole PCM in memory.
package ambient

import (
	"os"
	"sync"

	"log"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/vorbis"

	"aquarium/internal/config"
)

// Player loops an OGG Vorbis track and hands out interleaved int16 PCM.
// A load failure degrades to silence; the aquarium never fails to start
// over a missing audio file.
type Player struct {
	mu sync.Mutex

	streamer  beep.StreamSeekCloser
	resampled beep.Streamer
	format    beep.Format

	volume     float64
	enabled    bool
	loaded     bool
	sampleRate int
	filePath   string

	// Pre-allocated decode buffer; 44100/30 stereo samples covers one
	// frame at the engine tick rate.
	beepBuffer [][2]float64
}

// NewPlayer creates a player for the configured track. On load failure
// it returns a silent player and logs once.
func NewPlayer(cfg config.AudioConfig) *Player {
	p := &Player{
		volume:     cfg.Volume,
		enabled:    cfg.Enabled,
		sampleRate: cfg.SampleRate,
		filePath:   cfg.Path,
		beepBuffer: make([][2]float64, cfg.SampleRate/30),
	}

	if !cfg.Enabled {
		return p
	}
	if err := p.load(); err != nil {
		log.Printf("ambient audio disabled: %v", err)
	}
	return p
}

func (p *Player) load() error {
	file, err := os.Open(p.filePath)
	if err != nil {
		return err
	}

	streamer, format, err := vorbis.Decode(file)
	if err != nil {
		file.Close()
		return err
	}

	p.streamer = streamer
	p.format = format
	p.loaded = true

	if int(format.SampleRate) != p.sampleRate {
		p.resampled = beep.Resample(4, format.SampleRate, beep.SampleRate(p.sampleRate), streamer)
	} else {
		p.resampled = streamer
	}

	log.Printf("ambient audio loaded: %s (%d Hz, %d ch)", p.filePath, format.SampleRate, format.NumChannels)
	return nil
}

// ReadSamples fills buffer with interleaved stereo int16 PCM, looping at
// end of track. Always fills the whole buffer; silence when unloaded.
func (p *Player) ReadSamples(buffer []int16) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded || !p.enabled || p.resampled == nil {
		for i := range buffer {
			buffer[i] = 0
		}
		return len(buffer)
	}

	written := 0
	for written < len(buffer)/2 {
		want := len(buffer)/2 - written
		if want > len(p.beepBuffer) {
			want = len(p.beepBuffer)
		}

		n, ok := p.resampled.Stream(p.beepBuffer[:want])
		for i := 0; i < n; i++ {
			buffer[(written+i)*2] = clampSample(p.beepBuffer[i][0] * p.volume)
			buffer[(written+i)*2+1] = clampSample(p.beepBuffer[i][1] * p.volume)
		}
		written += n

		if !ok || n < want {
			// End of track: seek back and keep filling
			if err := p.streamer.Seek(0); err != nil {
				log.Printf("ambient audio loop seek failed: %v", err)
				p.loaded = false
				break
			}
		}
	}

	for i := written * 2; i < len(buffer); i++ {
		buffer[i] = 0
	}
	return len(buffer)
}

// SetVolume adjusts playback volume, clamped into [0, 1].
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	p.volume = v
}

// SetEnabled toggles playback; disabled output is silence.
func (p *Player) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
}

// Loaded reports whether a track is actually playing.
func (p *Player) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

// Close releases the decoder.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.streamer != nil {
		err := p.streamer.Close()
		p.streamer = nil
		p.loaded = false
		return err
	}
	return nil
}

func clampSample(v float64) int16 {
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	return int16(v * 32767)
}
