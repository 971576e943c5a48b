package render

import (
	"image/color"
	"math"
)

// pixelCanvas draws directly into an RGBA byte buffer, bypassing the
// vector rasterizer. Bubbles are hundreds of tiny alpha-blended circles
// per frame; going through paths for each would dominate the frame cost.
type pixelCanvas struct {
	width  int
	height int
	stride int
	buffer []byte
}

func newPixelCanvas(width, height int, buffer []byte) *pixelCanvas {
	return &pixelCanvas{
		width:  width,
		height: height,
		stride: width * 4,
		buffer: buffer,
	}
}

func (p *pixelCanvas) blendPixel(idx int, c color.RGBA, srcA, invA float64) {
	p.buffer[idx] = uint8(float64(c.R)*srcA + float64(p.buffer[idx])*invA)
	p.buffer[idx+1] = uint8(float64(c.G)*srcA + float64(p.buffer[idx+1])*invA)
	p.buffer[idx+2] = uint8(float64(c.B)*srcA + float64(p.buffer[idx+2])*invA)
	p.buffer[idx+3] = 255 // destination stays opaque
}

// fillCircle draws an alpha-blended filled circle, clipped to the canvas.
func (p *pixelCanvas) fillCircle(cx, cy int, radius float64, c color.RGBA) {
	if c.A == 0 || radius <= 0 {
		return
	}
	srcA := float64(c.A) / 255.0
	invA := 1.0 - srcA

	rad := int(radius + 0.5)
	radSq := radius * radius

	y1 := maxInt(0, cy-rad)
	y2 := minInt(p.height, cy+rad+1)

	for py := y1; py < y2; py++ {
		dy := float64(py - cy)
		dySq := dy * dy
		xExtent := math.Sqrt(radSq - dySq)
		x1 := maxInt(0, cx-int(xExtent+0.5))
		x2 := minInt(p.width, cx+int(xExtent+0.5)+1)

		rowStart := py * p.stride
		for px := x1; px < x2; px++ {
			dx := float64(px - cx)
			if dx*dx+dySq <= radSq {
				p.blendPixel(rowStart+px*4, c, srcA, invA)
			}
		}
	}
}

// ringCircle draws a circle outline, used for the bubble rim.
func (p *pixelCanvas) ringCircle(cx, cy int, radius float64, lineWidth int, c color.RGBA) {
	if c.A == 0 {
		return
	}
	srcA := float64(c.A) / 255.0
	invA := 1.0 - srcA

	outer := radius + float64(lineWidth)/2
	inner := radius - float64(lineWidth)/2
	if inner < 0 {
		inner = 0
	}
	outerSq := outer * outer
	innerSq := inner * inner

	rad := int(outer + 0.5)
	y1 := maxInt(0, cy-rad)
	y2 := minInt(p.height, cy+rad+1)

	for py := y1; py < y2; py++ {
		dy := float64(py - cy)
		dySq := dy * dy
		xExtent := math.Sqrt(outerSq - dySq)
		x1 := maxInt(0, cx-int(xExtent+0.5))
		x2 := minInt(p.width, cx+int(xExtent+0.5)+1)

		rowStart := py * p.stride
		for px := x1; px < x2; px++ {
			dx := float64(px - cx)
			distSq := dx*dx + dySq
			if distSq <= outerSq && distSq >= innerSq {
				p.blendPixel(rowStart+px*4, c, srcA, invA)
			}
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
