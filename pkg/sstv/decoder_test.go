package sstv_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/himanishpuri/SlowScan/internal/synth"
	"github.com/himanishpuri/SlowScan/pkg/logger"
	"github.com/himanishpuri/SlowScan/pkg/sstv"
	"github.com/himanishpuri/SlowScan/pkg/sstv/imaging"
	"github.com/himanishpuri/SlowScan/pkg/sstv/modes"
)

const (
	rate   = 11025.0
	cdRate = 44100.0
)

const gradientVIS = 0x7E

// gradientMode is a 320x256 mode carrying red and green only.
func gradientMode() modes.Descriptor {
	return modes.Descriptor{
		Name: "Test Gradient", ShortName: "TG", VIS: gradientVIS,
		Width: 320, Height: 256, Color: modes.ColorRGB, RowsPerLine: 1,
		Layouts: [][]modes.Segment{{
			{Role: modes.RoleSync, Duration: 5, Freq: modes.FreqSync},
			{Role: modes.RolePorch, Duration: 1, Freq: modes.FreqBlack},
			{Role: modes.RoleRed, Duration: 100, Low: modes.FreqBlack, High: modes.FreqWhite},
			{Role: modes.RolePorch, Duration: 1, Freq: modes.FreqBlack},
			{Role: modes.RoleGreen, Duration: 100, Low: modes.FreqBlack, High: modes.FreqWhite},
			{Role: modes.RolePorch, Duration: 1, Freq: modes.FreqBlack},
		}},
	}
}

func gradientTable(t *testing.T) *modes.Table {
	t.Helper()
	table, err := modes.NewTable(gradientMode())
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return table
}

func gradient(ch, x, y int) uint8 {
	if ch == 2 {
		return 0
	}
	return uint8(x * 255 / 319)
}

func pattern(ch, x, y int) uint8 {
	return uint8((5*x + 17*y + 85*ch) % 256)
}

func randomImage(seed int64, w, h int) synth.Pixels {
	rng := rand.New(rand.NewSource(seed))
	pix := make([][3]uint8, w*h)
	for i := range pix {
		pix[i] = [3]uint8{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256))}
	}
	return func(ch, x, y int) uint8 { return pix[y*w+x][ch] }
}

func martin(t *testing.T) *modes.Descriptor {
	t.Helper()
	d, err := modes.Default().Lookup(modes.VISMartin1)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

// transmission builds lead ms of silence, a header and a full image.
func transmission(d *modes.Descriptor, px synth.Pixels, sampleRate, lead float64) []float64 {
	w := synth.New(sampleRate)
	w.Silence(lead)
	w.Header(d.VIS)
	w.Image(d, px)
	w.Silence(100)
	return w.Samples()
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func decode(t *testing.T, x []float64, opts ...sstv.Option) (*sstv.Result, error) {
	t.Helper()
	opts = append([]sstv.Option{sstv.WithSampleRate(rate), sstv.WithLogger(logger.Discard())}, opts...)
	d, err := sstv.New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d.Decode(context.Background(), x)
}

func TestDecodeGradientScenario(t *testing.T) {
	d := gradientMode()
	x := transmission(&d, gradient, cdRate, 500)

	res, err := decode(t, x, sstv.WithSampleRate(cdRate), sstv.WithModeTable(gradientTable(t)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.Status != sstv.StatusCompleted {
		t.Errorf("Status = %s, want completed", res.Status)
	}
	if len(res.DegradedLines) != 0 {
		t.Errorf("DegradedLines = %v, want none", res.DegradedLines)
	}
	if res.ModeName() != "Test Gradient" || res.VIS != gradientVIS {
		t.Errorf("mode = %q VIS 0x%02X", res.ModeName(), res.VIS)
	}
	if res.Lines != 256 {
		t.Errorf("Lines = %d, want 256", res.Lines)
	}
	if res.SNR < 10 {
		t.Errorf("SNR = %.1f dB on a clean signal", res.SNR)
	}

	im := res.Image
	if im.Width != 320 || im.Height != 256 {
		t.Fatalf("image %dx%d, want 320x256", im.Width, im.Height)
	}
	for y := 0; y < im.Height; y++ {
		for px := 0; px < im.Width; px++ {
			r, g, b := im.RGB(px, y)
			want := gradient(0, px, y)
			if absDiff(r, want) > 2 || absDiff(g, want) > 2 || b != 0 {
				t.Fatalf("(%d, %d) = %d,%d,%d, want %d,%d,0", px, y, r, g, b, want, want)
			}
		}
	}
}

func TestDecodeGradientBandpass(t *testing.T) {
	const hiRate = 48000.0
	d := gradientMode()
	x := transmission(&d, gradient, hiRate, 300)
	orig := append([]float64(nil), x...)

	res, err := sstv.Decode(context.Background(), x,
		sstv.WithSampleRate(hiRate),
		sstv.WithLogger(logger.Discard()),
		sstv.WithModeTable(gradientTable(t)),
		sstv.WithBandpass(true),
	)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.Status != sstv.StatusCompleted {
		t.Errorf("Status = %s, degraded %v", res.Status, res.DegradedLines)
	}

	var total, n int
	for y := 0; y < 256; y++ {
		for px := 0; px < 320; px++ {
			r, _, _ := res.Image.RGB(px, y)
			total += absDiff(r, gradient(0, px, y))
			n++
		}
	}
	if mean := float64(total) / float64(n); mean > 2 {
		t.Errorf("mean red error %.2f levels, want <= 2", mean)
	}

	for i := range x {
		if x[i] != orig[i] {
			t.Fatalf("input sample %d modified", i)
		}
	}
}

func TestDecodeMartinRoundTrip(t *testing.T) {
	const hiRate = 48000.0
	d := martin(t)
	px := randomImage(1, d.Width, d.Height)
	x := transmission(d, px, hiRate, 700)

	res, err := sstv.Decode(context.Background(), x, sstv.WithSampleRate(hiRate), sstv.WithLogger(logger.Discard()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.Status != sstv.StatusCompleted || res.ModeName() != "Martin M1" {
		t.Fatalf("Status = %s mode %q, degraded %v", res.Status, res.ModeName(), res.DegradedLines)
	}
	for y := 0; y < d.Height; y++ {
		for x := 0; x < d.Width; x++ {
			r, g, b := res.Image.RGB(x, y)
			if absDiff(r, px(0, x, y)) > 2 || absDiff(g, px(1, x, y)) > 2 || absDiff(b, px(2, x, y)) > 2 {
				t.Fatalf("(%d, %d) = %d,%d,%d, want %d,%d,%d", x, y, r, g, b, px(0, x, y), px(1, x, y), px(2, x, y))
			}
		}
	}

	wantStart := int(0.7 * hiRate)
	if diff := res.HeaderStart - wantStart; diff < -int(0.01*hiRate) || diff > int(0.01*hiRate) {
		t.Errorf("HeaderStart = %d, want ~%d", res.HeaderStart, wantStart)
	}
	if math.Abs(res.ClockSkewPPM) > 100 {
		t.Errorf("ClockSkewPPM = %.1f, want ~0", res.ClockSkewPPM)
	}
}

func TestDecodeYCbCrRoundTrip(t *testing.T) {
	const hiRate = 48000.0
	d, err := modes.Default().Lookup(modes.VISRobot36)
	if err != nil {
		t.Fatal(err)
	}
	x := transmission(d, pattern, hiRate, 200)

	res, err := sstv.Decode(context.Background(), x, sstv.WithSampleRate(hiRate), sstv.WithLogger(logger.Discard()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.Status != sstv.StatusCompleted {
		t.Fatalf("Status = %s, degraded %v", res.Status, res.DegradedLines)
	}
	for y := 0; y < d.Height; y++ {
		pair := y - y%2
		for px := 0; px < d.Width; px++ {
			wr, wg, wb := imaging.Convert(modes.ColorYCbCr, pattern(0, px, y), pattern(1, px, pair), pattern(2, px, pair))
			r, g, b := res.Image.RGB(px, y)
			if absDiff(r, wr) > 6 || absDiff(g, wg) > 6 || absDiff(b, wb) > 6 {
				t.Fatalf("(%d, %d) = %d,%d,%d, want %d,%d,%d", px, y, r, g, b, wr, wg, wb)
			}
		}
	}
}

func TestDecodeClockDrift(t *testing.T) {
	tests := []struct {
		name    string
		stretch float64
	}{
		{"slow 2%", 1.02},
		{"fast 2%", 0.98},
		{"slow 1%", 1.01},
	}
	d := martin(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := transmission(d, pattern, rate*tt.stretch, 300)
			res, err := decode(t, x)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if res.Status != sstv.StatusCompleted {
				t.Errorf("Status = %s, degraded %v", res.Status, res.DegradedLines)
			}
			want := (tt.stretch - 1) * 1e6
			if math.Abs(res.ClockSkewPPM-want) > 500 {
				t.Errorf("ClockSkewPPM = %.0f, want %.0f", res.ClockSkewPPM, want)
			}
		})
	}
}

func TestDecodeTimingGlitchDegradesOneLine(t *testing.T) {
	d := martin(t)
	w := synth.New(rate)
	w.Silence(200)
	w.Header(d.VIS)
	for line := 0; line < d.Lines(); line++ {
		if line == 100 {
			w.Tone(modes.FreqBlack, 15)
		}
		w.Line(d, pattern, line)
	}
	w.Silence(100)

	res, err := decode(t, w.Samples())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.Status != sstv.StatusCompletedWithDegradation {
		t.Errorf("Status = %s, want completed_with_degradation", res.Status)
	}
	if len(res.DegradedLines) != 1 || res.DegradedLines[0] != 100 {
		t.Errorf("DegradedLines = %v, want [100]", res.DegradedLines)
	}
	if res.Image == nil || res.Lines != d.Lines() {
		t.Fatalf("image missing or short: %d lines", res.Lines)
	}
	var total int
	for px := 0; px < d.Width; px++ {
		r, g, b := res.Image.RGB(px, 150)
		total += absDiff(r, pattern(0, px, 150)) + absDiff(g, pattern(1, px, 150)) + absDiff(b, pattern(2, px, 150))
	}
	if mean := float64(total) / float64(3*d.Width); mean > 3 {
		t.Errorf("row 150 mean error %.2f levels after the glitch", mean)
	}
}

func TestDecodeStreamExhausted(t *testing.T) {
	d := gradientMode()
	w := synth.New(cdRate)
	w.Silence(200)
	w.Header(d.VIS)
	w.Lines(&d, gradient, 100)
	w.Tone(modes.FreqSync, 5) // start of line 100, then the recording stops
	w.Tone(modes.FreqBlack, 30)

	res, err := decode(t, w.Samples(), sstv.WithSampleRate(cdRate), sstv.WithModeTable(gradientTable(t)))
	if !errors.Is(err, sstv.ErrStreamExhausted) {
		t.Fatalf("expected ErrStreamExhausted, got %v", err)
	}
	var de *sstv.DecodeError
	if !errors.As(err, &de) || de.Reason != sstv.ReasonStreamExhausted {
		t.Errorf("error %v is not a stream-exhausted DecodeError", err)
	}
	if res.Status != sstv.StatusFailed || res.Reason != sstv.ReasonStreamExhausted {
		t.Errorf("Status %s Reason %s", res.Status, res.Reason)
	}
	if res.Image == nil {
		t.Fatal("partial image not returned")
	}
	if res.Lines != 101 {
		t.Errorf("Lines = %d, want 101", res.Lines)
	}
	for px := 0; px < 320; px++ {
		if r, _, _ := res.Image.RGB(px, 50); absDiff(r, gradient(0, px, 50)) > 2 {
			t.Fatalf("row 50 at x=%d = %d", px, r)
		}
		if r, g, _ := res.Image.RGB(px, 200); r != 0 || g != 0 {
			t.Fatalf("undecoded row 200 not black at x=%d", px)
		}
	}
}

func TestDecodeScanBudget(t *testing.T) {
	w := synth.New(rate)
	w.Silence(1500)
	w.Header(modes.VISMartin1)
	w.Silence(500)
	x := w.Samples()
	synth.AddNoise(x, 0.05, 11)

	tests := []struct {
		name  string
		opt   sstv.Option
		limit int
	}{
		{"samples", sstv.WithScanBudget(int(rate)), int(rate)},
		{"duration", sstv.WithScanDuration(time.Second), int(rate)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := decode(t, x, tt.opt)
			if !errors.Is(err, sstv.ErrNoSignalFound) {
				t.Fatalf("expected ErrNoSignalFound, got %v", err)
			}
			var de *sstv.DecodeError
			if !errors.As(err, &de) || de.Offset > tt.limit {
				t.Errorf("scan stopped at %d, budget %d", de.Offset, tt.limit)
			}
			if res.Status != sstv.StatusFailed || res.Reason != sstv.ReasonNoSignalFound {
				t.Errorf("Status %s Reason %s", res.Status, res.Reason)
			}
			if res.Image != nil || res.Mode != nil {
				t.Error("failed header search returned an image")
			}
		})
	}
}

func TestDecodeNoSignal(t *testing.T) {
	x := synth.Noise(int(3*rate), 0.2, 4)
	res, err := decode(t, x)
	if !errors.Is(err, sstv.ErrNoSignalFound) {
		t.Fatalf("expected ErrNoSignalFound, got %v", err)
	}
	if res.Reason != sstv.ReasonNoSignalFound {
		t.Errorf("Reason = %s", res.Reason)
	}
}

func TestDecodeHeaderFailures(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w *synth.Writer)
		want   error
		reason sstv.Reason
		vis    uint8
	}{
		{
			name:   "parity",
			write:  func(w *synth.Writer) { w.HeaderRaw(modes.VISMartin1) },
			want:   sstv.ErrHeaderParity,
			reason: sstv.ReasonHeaderParity,
			vis:    modes.VISMartin1,
		},
		{
			name:   "unsupported",
			write:  func(w *synth.Writer) { w.Header(0x01) },
			want:   sstv.ErrUnsupportedMode,
			reason: sstv.ReasonUnsupportedMode,
			vis:    0x01,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := synth.New(rate)
			w.Silence(100)
			tt.write(w)
			w.Silence(1000)

			res, err := decode(t, w.Samples())
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if res.Reason != tt.reason || res.Status != sstv.StatusFailed {
				t.Errorf("Status %s Reason %s", res.Status, res.Reason)
			}
			if res.VIS != tt.vis {
				t.Errorf("VIS = 0x%02X, want 0x%02X", res.VIS, tt.vis)
			}
		})
	}
}

func TestDecodeSkipsBadHeaders(t *testing.T) {
	d := gradientMode()
	w := synth.New(rate)
	w.Silence(100)
	w.HeaderRaw(gradientVIS | 0x80) // wrong parity bit
	w.Silence(200)
	w.Header(0x01)
	w.Silence(200)
	w.Header(d.VIS)
	w.Image(&d, gradient)
	w.Silence(100)

	res, err := decode(t, w.Samples(), sstv.WithModeTable(gradientTable(t)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.Status != sstv.StatusCompleted || res.Reason != sstv.ReasonNone {
		t.Errorf("Status %s Reason %s", res.Status, res.Reason)
	}
}

type cancelOnInfo struct {
	cancel context.CancelFunc
}

func (c cancelOnInfo) Infof(string, ...any)  { c.cancel() }
func (c cancelOnInfo) Warnf(string, ...any)  {}
func (c cancelOnInfo) Errorf(string, ...any) {}
func (c cancelOnInfo) Debugf(string, ...any) {}

func TestDecodeCanceled(t *testing.T) {
	d := gradientMode()
	x := transmission(&d, gradient, rate, 100)

	t.Run("before header", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		res, err := sstv.Decode(ctx, x, sstv.WithSampleRate(rate), sstv.WithLogger(logger.Discard()))
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if res.Reason != sstv.ReasonCanceled {
			t.Errorf("Reason = %s", res.Reason)
		}
	})

	t.Run("during image", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		// The decoder logs at INFO once the mode is known.
		res, err := sstv.Decode(ctx, x,
			sstv.WithSampleRate(rate),
			sstv.WithLogger(cancelOnInfo{cancel}),
			sstv.WithModeTable(gradientTable(t)),
		)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if res.Reason != sstv.ReasonCanceled || res.Status != sstv.StatusFailed {
			t.Errorf("Status %s Reason %s", res.Status, res.Reason)
		}
		if res.Image == nil || res.Mode == nil {
			t.Error("partial result missing after cancellation")
		}
		if res.Lines != 0 {
			t.Errorf("Lines = %d, want 0", res.Lines)
		}
	})
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		opts []sstv.Option
	}{
		{"no sample rate", nil},
		{"low sample rate", []sstv.Option{sstv.WithSampleRate(4000)}},
		{"negative budget", []sstv.Option{sstv.WithSampleRate(rate), sstv.WithScanBudget(-1)}},
		{"drift tolerance", []sstv.Option{sstv.WithSampleRate(rate), sstv.WithDriftTolerance(0.5)}},
		{"confidence", []sstv.Option{sstv.WithSampleRate(rate), sstv.WithMinConfidence(1.5)}},
		{"no modes", []sstv.Option{sstv.WithSampleRate(rate), sstv.WithModeTable(nil)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := sstv.New(tt.opts...); !errors.Is(err, sstv.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestDecodeErrorMessage(t *testing.T) {
	cause := errors.New("boom")
	err := &sstv.DecodeError{Reason: sstv.ReasonHeaderParity, Offset: 42, Err: cause}
	if got, want := err.Error(), "sstv: header_parity at sample 42: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) || !errors.Is(err, sstv.ErrHeaderParity) {
		t.Error("DecodeError does not unwrap to its cause and sentinel")
	}
}
