package tone

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Band searched by Spectral for a peak, in Hz.
const (
	BandLow  = 500.0
	BandHigh = 3500.0
)

// Spectral estimates the dominant frequency of a window from its FFT: the
// window is Hann-weighted, zero-padded to four times its length and the
// strongest in-band bin is refined by Gaussian interpolation. Confidence is
// the share of in-band power held by the peak's main lobe.
func Spectral(x []float64, sampleRate float64) Estimate {
	n := len(x)
	if n < 8 || sampleRate <= 0 {
		return Estimate{}
	}

	size := nextPow2(4 * n)
	hann := window.Hann(n)
	buf := make([]float64, size)
	for i, v := range x {
		buf[i] = v * hann[i]
	}

	spec := fft.FFTReal(buf)
	half := size / 2
	binHz := sampleRate / float64(size)

	lo := int(BandLow / binHz)
	if lo < 1 {
		lo = 1
	}
	hi := int(BandHigh / binHz)
	if hi > half-2 {
		hi = half - 2
	}
	if hi <= lo {
		return Estimate{}
	}

	power := make([]float64, hi+2)
	for k := lo - 1; k <= hi+1; k++ {
		re, im := real(spec[k]), imag(spec[k])
		power[k] = re*re + im*im
	}

	peak := lo
	var band float64
	for k := lo; k <= hi; k++ {
		band += power[k]
		if power[k] > power[peak] {
			peak = k
		}
	}
	if band == 0 || power[peak] == 0 {
		return Estimate{}
	}

	// Hann main lobe is two unpadded bins either side of the peak.
	lobe := 2 * size / n
	var main float64
	for k := peak - lobe; k <= peak+lobe; k++ {
		if k >= lo && k <= hi {
			main += power[k]
		}
	}

	return Estimate{
		Freq:       (float64(peak) + gaussianOffset(power[peak-1], power[peak], power[peak+1])) * binHz,
		Confidence: main / band,
	}
}

// SpectralAt runs Spectral on an n-sample window centred on sample c.
func SpectralAt(samples []float64, c, n int, sampleRate float64) Estimate {
	e := Spectral(Centered(samples, c, n), sampleRate)
	e.At = c
	return e
}

// gaussianOffset returns the sub-bin position of a peak from the power of
// the peak bin and its neighbours.
func gaussianOffset(a, b, c float64) float64 {
	if a <= 0 || b <= 0 || c <= 0 {
		return 0
	}
	la, lb, lc := math.Log(a), math.Log(b), math.Log(c)
	den := 2 * (2*lb - la - lc)
	if den == 0 {
		return 0
	}
	d := (lc - la) / den
	if d > 0.5 {
		d = 0.5
	} else if d < -0.5 {
		d = -0.5
	}
	return d
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
