// Package imaging assembles decoded channel values into an RGB image.
package imaging

import (
	"image"
	"image/color"
	"sort"

	"github.com/himanishpuri/SlowScan/pkg/sstv/modes"
)

// Image is a decoded picture, three bytes per pixel in R, G, B order.
type Image struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewImage returns a black image.
func NewImage(width, height int) *Image {
	return &Image{Width: width, Height: height, Pix: make([]uint8, width*height*3)}
}

// RGB returns the pixel at (x, y).
func (im *Image) RGB(x, y int) (r, g, b uint8) {
	i := (y*im.Width + x) * 3
	return im.Pix[i], im.Pix[i+1], im.Pix[i+2]
}

// SetRGB sets the pixel at (x, y).
func (im *Image) SetRGB(x, y int, r, g, b uint8) {
	i := (y*im.Width + x) * 3
	im.Pix[i], im.Pix[i+1], im.Pix[i+2] = r, g, b
}

// ToRGBA converts the image for the image/* encoders.
func (im *Image) ToRGBA() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, im.Width, im.Height))
	for i, j := 0, 0; i < len(im.Pix); i, j = i+3, j+4 {
		out.Pix[j] = im.Pix[i]
		out.Pix[j+1] = im.Pix[i+1]
		out.Pix[j+2] = im.Pix[i+2]
		out.Pix[j+3] = 0xFF
	}
	return out
}

// Frame is a finished image with the scan lines decoded without sync.
type Frame struct {
	Image         *Image
	DegradedLines []int
}

// Canvas collects per-channel values while lines are decoded. Planes are
// R, G, B for RGB modes and Y, Cb, Cr for YCbCr modes, matching
// modes.Role.Channel.
type Canvas struct {
	Width  int
	Height int
	Color  modes.ColorModel

	planes   [3][]uint8
	degraded map[int]struct{}
}

// NewCanvas returns an empty canvas sized for mode d. Chroma planes of a
// YCbCr canvas start at the neutral value, so undecoded rows come out
// black instead of green.
func NewCanvas(d *modes.Descriptor) *Canvas {
	c := &Canvas{
		Width:    d.Width,
		Height:   d.Height,
		Color:    d.Color,
		degraded: make(map[int]struct{}),
	}
	for i := range c.planes {
		c.planes[i] = make([]uint8, d.Width*d.Height)
	}
	if d.Color == modes.ColorYCbCr {
		for i := 1; i < 3; i++ {
			for j := range c.planes[i] {
				c.planes[i][j] = 128
			}
		}
	}
	return c
}

// Set stores a channel value. Out-of-range writes are ignored.
func (c *Canvas) Set(ch, x, y int, v uint8) {
	if ch < 0 || ch > 2 || x < 0 || x >= c.Width || y < 0 || y >= c.Height {
		return
	}
	c.planes[ch][y*c.Width+x] = v
}

// At returns a channel value.
func (c *Canvas) At(ch, x, y int) uint8 {
	return c.planes[ch][y*c.Width+x]
}

// MarkDegraded records a scan line decoded on predicted timing.
func (c *Canvas) MarkDegraded(line int) {
	c.degraded[line] = struct{}{}
}

// Finish converts the canvas to RGB.
func (c *Canvas) Finish() Frame {
	im := NewImage(c.Width, c.Height)
	for y := 0; y < c.Height; y++ {
		for x := 0; x < c.Width; x++ {
			i := y*c.Width + x
			r, g, b := Convert(c.Color, c.planes[0][i], c.planes[1][i], c.planes[2][i])
			im.SetRGB(x, y, r, g, b)
		}
	}

	lines := make([]int, 0, len(c.degraded))
	for l := range c.degraded {
		lines = append(lines, l)
	}
	sort.Ints(lines)
	return Frame{Image: im, DegradedLines: lines}
}

// Convert maps one pixel's three channel values to RGB.
func Convert(model modes.ColorModel, a, b, c uint8) (r, g, bl uint8) {
	if model == modes.ColorYCbCr {
		return color.YCbCrToRGB(a, b, c)
	}
	return a, b, c
}
