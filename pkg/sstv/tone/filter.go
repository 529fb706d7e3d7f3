package tone

import "math"

// Corner frequencies of the voice-band prefilter, in Hz.
const (
	BandpassLow  = 1000.0
	BandpassHigh = 3000.0
)

// Biquad is a second-order IIR section (RBJ cookbook coefficients,
// normalised so a0 = 1).
type Biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	x1, x2     float64
	y1, y2     float64
}

// NewHighPass returns a high-pass section.
func NewHighPass(cutoff, sampleRate, q float64) *Biquad {
	w := 2 * math.Pi * cutoff / sampleRate
	cosw, alpha := math.Cos(w), math.Sin(w)/(2*q)
	a0 := 1 + alpha
	return &Biquad{
		b0: (1 + cosw) / 2 / a0,
		b1: -(1 + cosw) / a0,
		b2: (1 + cosw) / 2 / a0,
		a1: -2 * cosw / a0,
		a2: (1 - alpha) / a0,
	}
}

// NewLowPass returns a low-pass section.
func NewLowPass(cutoff, sampleRate, q float64) *Biquad {
	w := 2 * math.Pi * cutoff / sampleRate
	cosw, alpha := math.Cos(w), math.Sin(w)/(2*q)
	a0 := 1 + alpha
	return &Biquad{
		b0: (1 - cosw) / 2 / a0,
		b1: (1 - cosw) / a0,
		b2: (1 - cosw) / 2 / a0,
		a1: -2 * cosw / a0,
		a2: (1 - alpha) / a0,
	}
}

// Process filters one sample.
func (f *Biquad) Process(x float64) float64 {
	y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}

// Reset clears the filter state.
func (f *Biquad) Reset() {
	f.x1, f.x2, f.y1, f.y2 = 0, 0, 0, 0
}

// Bandpass returns a copy of samples passed through a 1 kHz high-pass and,
// when the sample rate allows it, a 3 kHz low-pass. The input is not
// modified.
func Bandpass(samples []float64, sampleRate float64) []float64 {
	out := make([]float64, len(samples))
	if sampleRate <= 0 {
		copy(out, samples)
		return out
	}

	const q = math.Sqrt2 / 2
	stages := []*Biquad{NewHighPass(BandpassLow, sampleRate, q)}
	if sampleRate/2 > BandpassHigh*1.1 {
		stages = append(stages, NewLowPass(BandpassHigh, sampleRate, q))
	}

	for i, x := range samples {
		for _, s := range stages {
			x = s.Process(x)
		}
		out[i] = x
	}
	return out
}
