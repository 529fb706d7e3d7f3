// Package quality measures how good a received transmission was: the
// video-band signal-to-noise ratio and the sample clock skew between
// transmitter and receiver.
package quality

import (
	"math"

	"github.com/mjibson/go-dsp/spectral"
	"gonum.org/v1/gonum/stat"

	"github.com/himanishpuri/SlowScan/pkg/sstv/linesync"
	"github.com/himanishpuri/SlowScan/pkg/sstv/modes"
)

// SNR bounds in dB.
const (
	FloorDB   = -20.0
	CeilingDB = 60.0
)

type band struct{ lo, hi float64 }

var (
	videoBand    = band{1500, 2300}
	noiseBands   = []band{{400, 800}, {2700, 3400}}
	receiverBand = band{400, 3400}
)

// SNR estimates the signal-to-noise ratio of an SSTV signal in dB. Noise
// density is taken from the bands either side of the video band, where an
// SSTV signal puts no energy, and subtracted from the video band power.
// shift is the tuning offset measured on the header.
func SNR(x []float64, sampleRate, shift float64) float64 {
	nfft := 1024
	for nfft > 64 && nfft > len(x) {
		nfft /= 2
	}
	if len(x) < nfft || sampleRate/2 < receiverBand.hi+shift {
		return FloorDB
	}

	pxx, freqs := spectral.Pwelch(x, sampleRate, &spectral.PwelchOptions{
		NFFT:     nfft,
		Noverlap: nfft / 2,
	})

	var pVideo, pNoise float64
	var nVideo, nNoise, nReceiver int
	for i, f := range freqs {
		f -= shift
		if videoBand.contains(f) {
			pVideo += pxx[i]
			nVideo++
		}
		for _, b := range noiseBands {
			if b.contains(f) {
				pNoise += pxx[i]
				nNoise++
			}
		}
		if receiverBand.contains(f) {
			nReceiver++
		}
	}
	if nVideo == 0 || nNoise == 0 {
		return FloorDB
	}

	perBin := pNoise / float64(nNoise)
	noise := perBin * float64(nReceiver)
	signal := pVideo - perBin*float64(nVideo)
	if signal <= 0 {
		return FloorDB
	}
	if noise <= 0 {
		return CeilingDB
	}
	return clamp(10*math.Log10(signal/noise), FloorDB, CeilingDB)
}

func (b band) contains(f float64) bool {
	return f >= b.lo && f <= b.hi
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// ClockSkew fits the observed sync positions against where a perfect clock
// would have put them and returns the skew in parts per million. Positive
// means the transmission ran slow relative to the receiver. ok is false
// with fewer than three marks.
func ClockSkew(marks []linesync.Mark, d *modes.Descriptor, sampleRate float64) (ppm float64, ok bool) {
	if len(marks) < 3 {
		return 0, false
	}

	starts := make([]float64, d.Lines()+1)
	starts[0] = d.LeadingSync
	for n := 0; n < d.Lines(); n++ {
		starts[n+1] = starts[n] + d.LineDuration(n)
	}

	xs := make([]float64, 0, len(marks))
	ys := make([]float64, 0, len(marks))
	for _, m := range marks {
		if m.Line < 0 || m.Line >= d.Lines() {
			continue
		}
		_, syncEnd := d.SyncBounds(m.Line)
		xs = append(xs, (starts[m.Line]+syncEnd)*sampleRate/1000)
		ys = append(ys, m.At)
	}
	if len(xs) < 3 {
		return 0, false
	}

	_, beta := stat.LinearRegression(xs, ys, nil, false)
	return (beta - 1) * 1e6, true
}
