// Package tone turns short windows of audio into dominant-frequency
// estimates. Every estimator here is a pure function of its input window.
package tone

import "math"

// MinConfidence is the default confidence below which an estimate is not
// treated as a tone at all.
const MinConfidence = 0.5

// Estimate is a dominant-frequency reading over one window.
type Estimate struct {
	At         int     // sample offset of the window centre
	Freq       float64 // Hz, zero when no tone was found
	Confidence float64 // 0..1
}

// Reliable reports whether the estimate clears MinConfidence.
func (e Estimate) Reliable() bool {
	return e.Above(MinConfidence)
}

// Above reports whether the estimate carries a tone with at least the given
// confidence.
func (e Estimate) Above(threshold float64) bool {
	return e.Freq > 0 && e.Confidence >= threshold
}

// Detect estimates the frequency of a single sinusoid by linear prediction:
// for a pure tone x[n-1] + x[n+1] = 2cos(w) x[n], so cos(w) is recovered by
// least squares over the window. The confidence is the share of the
// window's energy explained by that model. It is exact for a clean tone and
// needs as few as three samples.
func Detect(window []float64, sampleRate float64) Estimate {
	return DetectLag(window, sampleRate, 1)
}

// DetectLag is Detect predicting across lag samples instead of one, solving
// x[n-k] + x[n+k] = 2cos(kw) x[n]. A larger lag keeps kw away from zero at
// high sample rates, where the one-sample form is badly conditioned. Tones
// must stay below sampleRate/(2*lag).
func DetectLag(window []float64, sampleRate float64, lag int) Estimate {
	n := len(window)
	if lag < 1 {
		lag = 1
	}
	if n < 2*lag+1 || sampleRate <= 0 {
		return Estimate{}
	}

	var num, den float64
	for i := lag; i < n-lag; i++ {
		x := window[i]
		num += x * (window[i-lag] + window[i+lag])
		den += x * x
	}
	if den == 0 {
		return Estimate{}
	}

	c := num / (2 * den)
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}

	var resid float64
	for i := lag; i < n-lag; i++ {
		e := window[i+lag] - 2*c*window[i] + window[i-lag]
		resid += e * e
	}

	// White noise leaves a residual of (2 + 4c^2) times its energy.
	conf := 1 - resid/((2+4*c*c)*den)
	if conf < 0 {
		conf = 0
	}

	return Estimate{
		Freq:       math.Acos(c) * sampleRate / (2 * math.Pi * float64(lag)),
		Confidence: conf,
	}
}

// Lag picks a prediction lag for an n-sample window: about a quarter period
// of 1900 Hz, but never so long that fewer than half the samples take part.
func Lag(sampleRate float64, n int) int {
	lag := int(math.Round(sampleRate / (4 * 1900)))
	if limit := (n - 1) / 4; lag > limit {
		lag = limit
	}
	if lag < 1 {
		lag = 1
	}
	return lag
}

// Slice returns the part of samples inside [start, end), clipped to the
// buffer. It never copies.
func Slice(samples []float64, start, end int) []float64 {
	if start < 0 {
		start = 0
	}
	if end > len(samples) {
		end = len(samples)
	}
	if end <= start {
		return nil
	}
	return samples[start:end]
}

// Centered returns a window of length n centred on sample c, clipped to the
// buffer.
func Centered(samples []float64, c, n int) []float64 {
	start := c - n/2
	return Slice(samples, start, start+n)
}

// DetectAt runs Detect on an n-sample window centred on sample c.
func DetectAt(samples []float64, c, n int, sampleRate float64) Estimate {
	e := Detect(Centered(samples, c, n), sampleRate)
	e.At = c
	return e
}
