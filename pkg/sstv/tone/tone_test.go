package tone

import (
	"math"
	"math/rand"
	"testing"
)

const testRate = 48000.0

func sine(freq, rate float64, n int, phase float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(phase+2*math.Pi*freq*float64(i)/rate)
	}
	return out
}

func noise(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64() * 0.3
	}
	return out
}

func TestDetectPureTones(t *testing.T) {
	tests := []struct {
		name  string
		freq  float64
		n     int
		phase float64
	}{
		{"sync", 1200, 48, 0},
		{"black", 1500, 22, 0.3},
		{"leader", 1900, 240, 1.1},
		{"white", 2300, 12, 2.0},
		{"three samples", 1700, 3, 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Detect(sine(tt.freq, testRate, tt.n, tt.phase), testRate)
			if math.Abs(e.Freq-tt.freq) > 0.01 {
				t.Errorf("Freq = %.4f Hz, want %.1f Hz", e.Freq, tt.freq)
			}
			if e.Confidence < 0.999 {
				t.Errorf("Confidence = %.4f, want ~1", e.Confidence)
			}
			if !e.Reliable() {
				t.Error("clean tone reported unreliable")
			}
		})
	}
}

func TestDetectNoiseIsUnreliable(t *testing.T) {
	e := Detect(noise(480, 1), testRate)
	if e.Reliable() {
		t.Errorf("white noise reported as tone: %.1f Hz conf %.3f", e.Freq, e.Confidence)
	}
}

func TestDetectDegenerateInput(t *testing.T) {
	if e := Detect(nil, testRate); e.Freq != 0 || e.Reliable() {
		t.Errorf("nil window gave %+v", e)
	}
	if e := Detect(make([]float64, 100), testRate); e.Freq != 0 || e.Reliable() {
		t.Errorf("silence gave %+v", e)
	}
	if e := Detect(sine(1500, testRate, 10, 0), 0); e.Freq != 0 {
		t.Errorf("zero sample rate gave %+v", e)
	}
}

func TestDetectLag(t *testing.T) {
	for _, lag := range []int{1, 3, 6} {
		for _, freq := range []float64{1200, 1500, 2300} {
			e := DetectLag(sine(freq, testRate, 48, 0.9), testRate, lag)
			if math.Abs(e.Freq-freq) > 0.01 || e.Confidence < 0.999 {
				t.Errorf("lag %d, %.0f Hz: got %.4f Hz conf %.4f", lag, freq, e.Freq, e.Confidence)
			}
		}
	}
	if e := DetectLag(sine(1500, testRate, 12, 0), testRate, 6); e.Freq != 0 {
		t.Errorf("window shorter than 2*lag+1 gave %+v", e)
	}
}

func TestDetectLagResistsNoise(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	var err1, err6 float64
	for trial := 0; trial < 200; trial++ {
		x := sine(1900, testRate, 48, rng.Float64()*2*math.Pi)
		for i := range x {
			x[i] += rng.NormFloat64() * 0.05
		}
		err1 += math.Abs(DetectLag(x, testRate, 1).Freq - 1900)
		err6 += math.Abs(DetectLag(x, testRate, 6).Freq - 1900)
	}
	if err6 >= err1 {
		t.Errorf("mean error lag 6 = %.1f Hz, lag 1 = %.1f Hz; want lag 6 smaller", err6/200, err1/200)
	}
}

func TestLag(t *testing.T) {
	tests := []struct {
		rate float64
		n    int
		want int
	}{
		{48000, 48, 6},
		{48000, 13, 3},
		{44100, 100, 6},
		{11025, 20, 1},
		{8000, 3, 1},
	}
	for _, tt := range tests {
		if got := Lag(tt.rate, tt.n); got != tt.want {
			t.Errorf("Lag(%.0f, %d) = %d, want %d", tt.rate, tt.n, got, tt.want)
		}
	}
}

func TestSpectralPureTones(t *testing.T) {
	for _, freq := range []float64{1100, 1200, 1300, 1900, 2300} {
		e := Spectral(sine(freq, testRate, 480, 0.4), testRate)
		if math.Abs(e.Freq-freq) > 5 {
			t.Errorf("%.0f Hz: got %.2f Hz", freq, e.Freq)
		}
		if e.Confidence < 0.9 {
			t.Errorf("%.0f Hz: confidence %.3f, want > 0.9", freq, e.Confidence)
		}
	}
}

func TestSpectralNoiseIsUnreliable(t *testing.T) {
	e := Spectral(noise(960, 7), testRate)
	if e.Reliable() {
		t.Errorf("white noise reported as tone: %.1f Hz conf %.3f", e.Freq, e.Confidence)
	}
}

func TestSpectralNoisyTone(t *testing.T) {
	x := sine(1900, testRate, 960, 0)
	n := noise(960, 3)
	for i := range x {
		x[i] += n[i] * 0.3
	}
	e := Spectral(x, testRate)
	if math.Abs(e.Freq-1900) > 15 {
		t.Errorf("Freq = %.2f Hz, want ~1900", e.Freq)
	}
	if !e.Reliable() {
		t.Errorf("noisy tone unreliable: conf %.3f", e.Confidence)
	}
}

func TestCenteredClipsToBuffer(t *testing.T) {
	buf := make([]float64, 10)
	if got := len(Centered(buf, 0, 6)); got != 3 {
		t.Errorf("window at start has %d samples, want 3", got)
	}
	if got := len(Centered(buf, 9, 6)); got != 4 {
		t.Errorf("window at end has %d samples, want 4", got)
	}
	if got := Centered(buf, 50, 6); got != nil {
		t.Errorf("window past end = %v, want nil", got)
	}
}

func rms(x []float64) float64 {
	var s float64
	for _, v := range x {
		s += v * v
	}
	return math.Sqrt(s / float64(len(x)))
}

func TestBandpass(t *testing.T) {
	const n = 9600
	low := sine(300, testRate, n, 0)
	mid := sine(1900, testRate, n, 0)

	lowOut := Bandpass(low, testRate)
	midOut := Bandpass(mid, testRate)

	// Skip the filter's start-up transient.
	settle := n / 4
	if r := rms(lowOut[settle:]) / rms(low[settle:]); r > 0.2 {
		t.Errorf("300 Hz passed with gain %.3f", r)
	}
	if r := rms(midOut[settle:]) / rms(mid[settle:]); r < 0.7 {
		t.Errorf("1900 Hz attenuated to gain %.3f", r)
	}

	fresh := sine(300, testRate, n, 0)
	for i := range low {
		if low[i] != fresh[i] {
			t.Fatal("Bandpass modified its input")
		}
	}
}
