// Package synth builds phase-continuous SSTV test signals. It exists for
// tests only.
package synth

import (
	"math"
	"math/rand"

	"github.com/himanishpuri/SlowScan/pkg/sstv/modes"
	"github.com/himanishpuri/SlowScan/pkg/sstv/vis"
)

// Pixels returns the value of channel ch at (x, y). Channels follow
// modes.Role.Channel.
type Pixels func(ch, x, y int) uint8

// Writer appends tones to a sample buffer. Each sample takes the frequency
// of the tone scheduled at its own instant, so tone edges land on exact
// sample boundaries however long the tones are.
type Writer struct {
	rate  float64
	amp   float64
	phase float64
	t     float64 // scheduled end of the signal, seconds
	out   []float64

	// Offset is added to every tone, simulating a mistuned receiver.
	Offset float64
}

// New returns a writer at the given sample rate.
func New(sampleRate float64) *Writer {
	return &Writer{rate: sampleRate, amp: 0.5}
}

// Tone appends ms milliseconds of freq.
func (w *Writer) Tone(freq, ms float64) {
	w.t += ms / 1000
	end := int(math.Ceil(w.t*w.rate - 1e-9))
	step := 2 * math.Pi * (freq + w.Offset) / w.rate
	for len(w.out) < end {
		w.out = append(w.out, w.amp*math.Sin(w.phase))
		w.phase = math.Mod(w.phase+step, 2*math.Pi)
	}
}

// Silence appends ms milliseconds of zeros.
func (w *Writer) Silence(ms float64) {
	w.t += ms / 1000
	end := int(math.Ceil(w.t*w.rate - 1e-9))
	for len(w.out) < end {
		w.out = append(w.out, 0)
	}
}

// Header appends a VIS header for a 7-bit mode code.
func (w *Writer) Header(code uint8) {
	w.HeaderRaw(vis.Encode(code))
}

// HeaderRaw appends a VIS header carrying raw as its eight bits, parity
// included, so tests can send bad parity.
func (w *Writer) HeaderRaw(raw uint8) {
	w.Tone(vis.FreqLeader, vis.LeaderMs)
	w.Tone(vis.FreqBreak, vis.BreakMs)
	w.Tone(vis.FreqLeader, vis.LeaderMs)
	w.Tone(vis.FreqBreak, vis.BitMs)
	for i := 0; i < 8; i++ {
		f := vis.FreqZero
		if raw>>i&1 == 1 {
			f = vis.FreqOne
		}
		w.Tone(f, vis.BitMs)
	}
	w.Tone(vis.FreqBreak, vis.BitMs)
}

// Image appends every scan line of an image in mode d.
func (w *Writer) Image(d *modes.Descriptor, px Pixels) {
	w.Lines(d, px, d.Lines())
}

// Lines appends the first n scan lines of an image in mode d, preceded by
// the mode's leading sync.
func (w *Writer) Lines(d *modes.Descriptor, px Pixels, n int) {
	if d.LeadingSync > 0 {
		w.Tone(modes.FreqSync, d.LeadingSync)
	}
	for line := 0; line < n; line++ {
		w.Line(d, px, line)
	}
}

// Line appends scan line n of an image in mode d.
func (w *Writer) Line(d *modes.Descriptor, px Pixels, n int) {
	rows := d.RowsPerLine
	if rows < 1 {
		rows = 1
	}
	base := n * rows
	for _, seg := range d.Layout(n) {
		if !seg.Role.Video() {
			w.Tone(seg.Freq, seg.Duration)
			continue
		}
		row := base + seg.Row
		if row < 0 {
			row = 0
		}
		px0 := d.PixelTime(seg)
		for x := 0; x < d.Width; x++ {
			v := px(seg.Role.Channel(), x, row)
			w.Tone(seg.Low+float64(v)/255*(seg.High-seg.Low), px0)
		}
	}
}

// Samples returns the signal built so far.
func (w *Writer) Samples() []float64 {
	return w.out
}

// Len returns the number of samples written.
func (w *Writer) Len() int {
	return len(w.out)
}

// AddNoise adds Gaussian noise of the given standard deviation in place.
func AddNoise(x []float64, std float64, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	for i := range x {
		x[i] += rng.NormFloat64() * std
	}
}

// Noise returns n samples of Gaussian noise.
func Noise(n int, std float64, seed int64) []float64 {
	x := make([]float64, n)
	AddNoise(x, std, seed)
	return x
}
