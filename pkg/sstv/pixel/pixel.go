// Package pixel turns the video segments of a synchronized scan line into
// channel values.
package pixel

import (
	"math"

	"github.com/himanishpuri/SlowScan/pkg/sstv/imaging"
	"github.com/himanishpuri/SlowScan/pkg/sstv/linesync"
	"github.com/himanishpuri/SlowScan/pkg/sstv/modes"
	"github.com/himanishpuri/SlowScan/pkg/sstv/tone"
)

const (
	// Margin is the share of a pixel slot trimmed from each side before
	// estimating its tone, keeping transitions out of the window.
	Margin = 0.2

	minWindow = 3
)

// Value maps a video frequency onto 0..255, clamping readings outside
// [low, high].
func Value(freq, low, high float64) uint8 {
	v := (freq - low) / (high - low) * 255
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= 255:
		return 255
	}
	return uint8(math.Round(v))
}

// Decoder reads pixel tones.
type Decoder struct {
	SampleRate    float64
	Shift         float64 // tuning offset taken off every reading, Hz
	MinConfidence float64
}

// Stats counts what happened on one line.
type Stats struct {
	Pixels  int
	Held    int // unreliable readings replaced by the previous pixel
	Clamped int // readings outside the segment's range
}

// DecodeLine decodes every video segment of a scan line onto the canvas.
// Scan line n writes image rows from n*RowsPerLine, each segment offset and
// repeated as its Row and Rows say.
func (d *Decoder) DecodeLine(samples []float64, span linesync.Span, desc *modes.Descriptor, c *imaging.Canvas) Stats {
	rows := desc.RowsPerLine
	if rows < 1 {
		rows = 1
	}
	base := span.Line * rows
	minConf := d.MinConfidence
	if minConf <= 0 {
		minConf = tone.MinConfidence
	}

	var st Stats
	var t float64
	for _, seg := range desc.Layout(span.Line) {
		start := t
		t += seg.Duration
		if !seg.Role.Video() {
			continue
		}

		ch := seg.Role.Channel()
		px := desc.PixelTime(seg)
		var prev uint8
		for x := 0; x < desc.Width; x++ {
			a := span.At(start + float64(x)*px)
			b := span.At(start + float64(x+1)*px)
			w := window(samples, a, b)
			e := tone.DetectLag(w, d.SampleRate, tone.Lag(d.SampleRate, len(w)))

			var v uint8
			switch {
			case e.Above(minConf):
				f := e.Freq - d.Shift
				if f < seg.Low || f > seg.High {
					st.Clamped++
				}
				v = Value(f, seg.Low, seg.High)
			default:
				v = prev
				st.Held++
			}
			prev = v
			st.Pixels++

			for r := 0; r < seg.RowSpan(); r++ {
				c.Set(ch, x, base+seg.Row+r, v)
			}
		}
	}
	return st
}

// window returns the samples of the pixel slot [a, b) with Margin trimmed
// from each end. Slots too short for that get the three samples around
// their centre.
func window(samples []float64, a, b float64) []float64 {
	m := Margin * (b - a)
	lo := int(math.Ceil(a + m))
	hi := int(math.Ceil(b - m))
	if hi-lo < minWindow {
		lo = int(math.Round((a+b)/2)) - minWindow/2
		hi = lo + minWindow
	}
	return tone.Slice(samples, lo, hi)
}
