package render

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"

	"aquarium/internal/config"
	"aquarium/internal/engine"
	"aquarium/internal/placement"
)

// Renderer composes one frame: water background, layered decorative
// objects, fish, then bubbles. Vector work goes through gg; the bubble
// layer blends straight into the RGBA buffer afterwards.
type Renderer struct {
	width  int
	height int
	dc     *gg.Context

	viewport *Viewport
	sprites  *SpriteCache
	bubbles  *BubbleRenderPool
	ring     *FrameRing
}

// NewRenderer creates a renderer producing width x height RGBA frames.
func NewRenderer(width, height int, vp *Viewport, sprites *SpriteCache, bubbles *BubbleRenderPool) *Renderer {
	return &Renderer{
		width:    width,
		height:   height,
		dc:       gg.NewContext(width, height),
		viewport: vp,
		sprites:  sprites,
		bubbles:  bubbles,
		ring:     NewFrameRing(width * height * 4),
	}
}

// Ring returns the frame ring consumers read from.
func (r *Renderer) Ring() *FrameRing { return r.ring }

// RenderFrame draws a snapshot plus the current object set and pushes
// the frame into the ring. Returns the RGBA buffer for direct callers;
// the slice is reused on the next frame.
func (r *Renderer) RenderFrame(snap *engine.Snapshot, objects []placement.ObjectSnapshot) []byte {
	r.drawBackground()
	r.drawObjects(objects)
	r.drawFish(snap.Fish)

	rgba, ok := r.dc.Image().(*image.RGBA)
	if !ok {
		return nil
	}

	canvas := newPixelCanvas(r.width, r.height, rgba.Pix)
	zoom := r.viewport.Zoom()
	r.bubbles.Render(canvas, snap.Bubbles, r.viewport.WorldToScreen, zoom)

	r.ring.TryWrite(rgba.Pix)
	return rgba.Pix
}

func (r *Renderer) drawBackground() {
	// Vertical water gradient, darker with depth
	grad := gg.NewLinearGradient(0, 0, 0, float64(r.height))
	grad.AddColorStop(0, color.RGBA{R: 22, G: 88, B: 140, A: 255})
	grad.AddColorStop(1, color.RGBA{R: 4, G: 26, B: 52, A: 255})
	r.dc.SetFillStyle(grad)
	r.dc.DrawRectangle(0, 0, float64(r.width), float64(r.height))
	r.dc.Fill()
}

func (r *Renderer) drawObjects(objects []placement.ObjectSnapshot) {
	zoom := r.viewport.Zoom()
	for _, o := range objects {
		sx, sy := r.viewport.WorldToScreen(o.WorldX, o.WorldY)
		extent := float64(o.Size) * config.TileSize * zoom
		if sx+extent < 0 || sx-extent > float64(r.width) || sy+extent < 0 || sy-extent > float64(r.height) {
			continue
		}

		alpha := o.Alpha
		if alpha <= 0 {
			continue
		}

		if img := r.sprites.GetOrFetch(o.SpriteURL); img != nil {
			r.drawSprite(img, sx, sy, extent, 1, alpha)
		} else {
			// Placeholder until the texture lands (or forever, on fetch
			// failure): a muted rounded stone
			r.dc.SetRGBA(0.45, 0.5, 0.42, alpha)
			r.dc.DrawEllipse(sx, sy+extent*0.1, extent*0.45, extent*0.35)
			r.dc.Fill()
		}

		if o.Tint != "" {
			tint := parseHexColor(o.Tint)
			r.dc.SetRGBA255(int(tint.R), int(tint.G), int(tint.B), int(90*alpha))
			r.dc.DrawRectangle(sx-extent/2, sy-extent/2, extent, extent)
			r.dc.Fill()
		}

		if o.Selected {
			r.dc.SetRGBA(1, 0.9, 0.4, 0.9)
			r.dc.SetLineWidth(2)
			r.dc.DrawRoundedRectangle(sx-extent/2, sy-extent/2, extent, extent, 4)
			r.dc.Stroke()
		}
	}
}

func (r *Renderer) drawFish(fish []engine.FishSnapshot) {
	zoom := r.viewport.Zoom()
	for _, f := range fish {
		if !f.Visible {
			continue
		}
		sx, sy := r.viewport.WorldToScreen(f.X, f.Y)
		bodyLen := 26 * f.Size * zoom
		if sx+bodyLen < 0 || sx-bodyLen > float64(r.width) || sy+bodyLen < 0 || sy-bodyLen > float64(r.height) {
			continue
		}

		if !f.Procedural {
			if img := r.sprites.GetOrFetch(f.SpriteURL); img != nil {
				mirror := 1.0
				if f.Direction < 0 {
					mirror = -1
				}
				r.drawSprite(img, sx, sy, bodyLen*2, mirror, 1)
				continue
			}
			// Texture not ready yet, draw the procedural shape instead
		}
		r.drawProceduralFish(f, sx, sy, bodyLen)
	}
}

// drawProceduralFish draws the shape variant: ellipse body, animated
// tail, eye. The tail angle runs off the animation frame.
func (r *Renderer) drawProceduralFish(f engine.FishSnapshot, sx, sy, bodyLen float64) {
	body := parseHexColor(f.Color)
	dir := 1.0
	if f.Direction < 0 {
		dir = -1
	}

	bodyW := bodyLen * 0.6
	if f.Species == engine.SpeciesShark {
		bodyW = bodyLen * 0.45
	}

	// Tail wiggle: frame position mapped onto a small sweep
	phase := 0.0
	if frames := framesFor(f.Species); frames > 1 {
		phase = float64(f.Frame) / float64(frames)
	}
	sweep := math.Sin(phase*2*math.Pi) * 0.5

	tailX := sx - dir*bodyLen*0.55
	r.dc.SetRGBA255(int(body.R), int(body.G), int(body.B), 230)
	r.dc.MoveTo(tailX, sy)
	r.dc.LineTo(tailX-dir*bodyLen*0.35, sy-bodyW*0.4+sweep*bodyW)
	r.dc.LineTo(tailX-dir*bodyLen*0.35, sy+bodyW*0.4+sweep*bodyW)
	r.dc.ClosePath()
	r.dc.Fill()

	r.dc.SetRGBA255(int(body.R), int(body.G), int(body.B), 255)
	r.dc.DrawEllipse(sx, sy, bodyLen*0.5, bodyW*0.5)
	r.dc.Fill()

	// Dorsal fin for sharks
	if f.Species == engine.SpeciesShark {
		r.dc.MoveTo(sx, sy-bodyW*0.4)
		r.dc.LineTo(sx-dir*bodyLen*0.15, sy-bodyW*0.95)
		r.dc.LineTo(sx-dir*bodyLen*0.25, sy-bodyW*0.4)
		r.dc.ClosePath()
		r.dc.Fill()
	}

	// Eye
	eyeX := sx + dir*bodyLen*0.3
	r.dc.SetRGB(1, 1, 1)
	r.dc.DrawCircle(eyeX, sy-bodyW*0.1, bodyLen*0.07)
	r.dc.Fill()
	r.dc.SetRGB(0, 0, 0)
	r.dc.DrawCircle(eyeX+dir*bodyLen*0.02, sy-bodyW*0.1, bodyLen*0.035)
	r.dc.Fill()
}

// drawSprite draws an image centered at (sx, sy) scaled so its larger
// dimension matches extent, optionally mirrored horizontally.
func (r *Renderer) drawSprite(img image.Image, sx, sy, extent, mirror, alpha float64) {
	bounds := img.Bounds()
	iw, ih := float64(bounds.Dx()), float64(bounds.Dy())
	if iw == 0 || ih == 0 {
		return
	}
	scale := extent / math.Max(iw, ih)

	r.dc.Push()
	r.dc.Translate(sx, sy)
	r.dc.Scale(scale*mirror, scale)
	if alpha < 1 {
		// gg has no global alpha for images; approximate by skipping the
		// draw below a threshold and full drawing otherwise
		if alpha < 0.25 {
			r.dc.Pop()
			return
		}
	}
	r.dc.DrawImageAnchored(img, 0, 0, 0.5, 0.5)
	r.dc.Pop()
}

func framesFor(s engine.Species) int {
	if s == engine.SpeciesShark {
		return 6
	}
	return 4
}

func parseHexColor(hex string) color.RGBA {
	c := color.RGBA{R: 128, G: 128, B: 128, A: 255}
	if len(hex) != 7 || hex[0] != '#' {
		return c
	}
	c.R = hexByte(hex[1], hex[2])
	c.G = hexByte(hex[3], hex[4])
	c.B = hexByte(hex[5], hex[6])
	return c
}

func hexByte(hi, lo byte) uint8 {
	return hexNibble(hi)<<4 | hexNibble(lo)
}

func hexNibble(b byte) uint8 {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	default:
		return 0
	}
}
