// Package linesync re-anchors every scan line on its sync pulse, absorbing
// the clock drift between transmitter and receiver. A line whose pulse
// cannot be found is decoded on predicted timing and marked degraded.
package linesync

import (
	"errors"
	"fmt"
	"math"

	"github.com/himanishpuri/SlowScan/pkg/sstv/modes"
	"github.com/himanishpuri/SlowScan/pkg/sstv/tone"
)

var (
	// ErrExhausted means the samples end before the current line does.
	ErrExhausted = errors.New("sample stream exhausted")
	// ErrDone is returned once every line of the image has been handed out.
	ErrDone = errors.New("all lines synchronized")
)

const (
	// DefaultTolerance is the search half-width as a fraction of the
	// nominal line duration.
	DefaultTolerance = 0.02
	// GuardMs widens every search window.
	GuardMs = 1.0
	// FirstLineSlackMs widens the search for the first sync after the
	// header, whose end is only known to a few milliseconds.
	FirstLineSlackMs = 20.0
	// MinPeriods is how many measured line periods it takes before the
	// clock scale estimate is applied to pixel timing.
	MinPeriods = 4
	// MinSyncFraction is the share of a sync-length window that must read
	// as sync tone for a pulse to be accepted.
	MinSyncFraction = 0.6

	syncCeiling = 1350.0 // midway between sync and black
	syncFloor   = 1000.0
	probeMs     = 1.0
)

// Logger receives recoverable anomalies.
type Logger interface {
	Warnf(format string, args ...any)
}

// Config tunes a Synchronizer.
type Config struct {
	SampleRate    float64
	Tolerance     float64 // fraction of the nominal line, DefaultTolerance when zero
	Shift         float64 // tuning offset measured on the header, Hz
	MinConfidence float64
	Logger        Logger
}

// Span is the timing of one synchronized scan line.
type Span struct {
	Line     int
	Anchor   float64 // sample offset of the sync pulse's trailing edge
	SyncEnd  float64 // ms from the start of the line layout to that edge
	Rate     float64 // samples per ms, corrected for clock skew once measured
	Drift    float64 // observed minus expected anchor, samples
	Degraded bool
}

// At returns the sample offset of a point ms into the line layout.
func (s Span) At(ms float64) float64 {
	return s.Anchor + (ms-s.SyncEnd)*s.Rate
}

// Mark records where a sync pulse was found.
type Mark struct {
	Line int
	At   float64
}

// Cursor is the per-decode synchronization state.
type Cursor struct {
	Line      int     // next line to synchronize
	Offset    float64 // anchor of the previous line, samples
	Drift     float64 // last measured drift, samples
	MeanDrift float64 // mean drift per line, samples
	Scale     float64 // observed over nominal line period
	Degraded  []int
	Marks     []Mark
}

// Synchronizer hands out one Span per scan line.
type Synchronizer struct {
	cfg     Config
	desc    *modes.Descriptor
	samples []float64
	rate    float64 // nominal samples per ms
	start   int
	cur     Cursor

	driftSum  float64
	driftN    int
	ratioSum  float64
	ratioN    int
	lastFound bool
	misses    int // consecutive lines without a pulse
}

// New returns a synchronizer for an image in mode desc whose header ended
// at sample headerEnd.
func New(samples []float64, desc *modes.Descriptor, headerEnd int, cfg Config) *Synchronizer {
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = tone.MinConfidence
	}
	return &Synchronizer{
		cfg:     cfg,
		desc:    desc,
		samples: samples,
		rate:    cfg.SampleRate / 1000,
		start:   headerEnd,
		cur:     Cursor{Offset: float64(headerEnd), Scale: 1},
	}
}

// Cursor returns a snapshot of the synchronization state.
func (s *Synchronizer) Cursor() Cursor {
	c := s.cur
	c.Degraded = append([]int(nil), s.cur.Degraded...)
	c.Marks = append([]Mark(nil), s.cur.Marks...)
	return c
}

// Next synchronizes the next scan line. ErrExhausted is returned, with the
// span that would have been used, when the line runs past the samples.
func (s *Synchronizer) Next() (Span, error) {
	line := s.cur.Line
	if line >= s.desc.Lines() {
		return Span{}, ErrDone
	}

	_, syncEnd := s.desc.SyncBounds(line)
	syncLen := s.desc.SyncDuration(line)
	base := (s.cfg.Tolerance*s.desc.LineDuration(line) + GuardMs) * s.rate

	var expected, half float64
	if line == 0 {
		expected = float64(s.start) + (s.desc.LeadingSync+syncEnd)*s.rate
		half = base + FirstLineSlackMs*s.rate
	} else {
		_, prevSyncEnd := s.desc.SyncBounds(line - 1)
		prevStart := s.cur.Offset - prevSyncEnd*s.rate
		expected = prevStart + (s.desc.LineDuration(line-1)+syncEnd)*s.rate
		half = math.Min(base+math.Abs(s.cur.MeanDrift), 2*base)
		// Widen after each miss, up to a quarter line.
		half *= float64(1 + s.misses)
		half = math.Min(half, s.desc.LineDuration(line)*s.rate/4)
	}

	if expected-half >= float64(len(s.samples)) {
		return Span{Line: line, Anchor: expected, SyncEnd: syncEnd, Rate: s.rate * s.cur.Scale}, ErrExhausted
	}

	span := Span{Line: line, SyncEnd: syncEnd}
	at, found := s.locate(expected, half, int(math.Round(syncLen*s.rate)))
	if found {
		span.Anchor = at
		span.Drift = at - expected
		s.cur.Drift = span.Drift
		if s.lastFound {
			s.driftSum += span.Drift
			s.driftN++
			s.cur.MeanDrift = s.driftSum / float64(s.driftN)

			nominal := s.desc.LineDuration(line-1) * s.rate
			s.ratioSum += (at - s.cur.Offset) / nominal
			s.ratioN++
			s.cur.Scale = s.ratioSum / float64(s.ratioN)
		}
		s.cur.Marks = append(s.cur.Marks, Mark{Line: line, At: at})
		s.misses = 0
	} else {
		s.misses++
		span.Anchor = expected
		span.Degraded = true
		s.cur.Degraded = append(s.cur.Degraded, line)
		if s.cfg.Logger != nil {
			s.cfg.Logger.Warnf("line %d: no sync within %.1f ms of sample %.0f, using predicted timing",
				line, half/s.rate, expected)
		}
	}
	span.Rate = s.rate
	if s.ratioN >= MinPeriods {
		span.Rate *= s.cur.Scale
	}

	s.lastFound = found
	s.cur.Offset = span.Anchor
	s.cur.Line++

	if end := span.At(videoEnd(s.desc.Layout(line))); int(math.Ceil(end)) > len(s.samples) {
		return span, fmt.Errorf("line %d needs sample %.0f of %d: %w", line, end, len(s.samples), ErrExhausted)
	}
	return span, nil
}

// videoEnd returns the ms offset where the last video segment of a layout
// ends.
func videoEnd(layout []modes.Segment) float64 {
	var t, end float64
	for _, seg := range layout {
		t += seg.Duration
		if seg.Role.Video() {
			end = t
		}
	}
	return end
}

// locate searches [expected-half, expected+half] for the trailing edge of
// a sync pulse of length n samples. Each candidate edge scores the number
// of sync-tone samples in the n samples before it minus those in a short
// guard after it; the best score wins, ties going to the candidate nearest
// the prediction.
func (s *Synchronizer) locate(expected, half float64, n int) (float64, bool) {
	if n < 1 {
		return 0, false
	}
	guard := n / 2
	if g := int(GuardMs * s.rate); guard > g {
		guard = g
	}
	if guard < 1 {
		guard = 1
	}

	lo := int(math.Floor(expected - half))
	hi := int(math.Ceil(expected + half))
	from, to := lo-n, hi+guard
	if from < 0 {
		from = 0
	}
	if to > len(s.samples) {
		to = len(s.samples)
	}
	if to-from < n+guard {
		return 0, false
	}

	probe := int(math.Min(probeMs, float64(n)/s.rate/2) * s.rate)
	if probe < 3 {
		probe = 3
	}

	prefix := make([]int, to-from+1)
	for i := from; i < to; i++ {
		prefix[i-from+1] = prefix[i-from]
		if s.isSync(i, probe) {
			prefix[i-from+1]++
		}
	}
	count := func(a, b int) int { return prefix[b-from] - prefix[a-from] }

	if lo < from+n {
		lo = from + n
	}
	if hi > to-guard {
		hi = to - guard
	}

	need := int(math.Ceil(MinSyncFraction * float64(n)))
	best, bestScore := -1, math.MinInt
	for e := lo; e <= hi; e++ {
		inside := count(e-n, e)
		if inside < need {
			continue
		}
		score := inside - count(e, e+guard)
		if score > bestScore || (score == bestScore && math.Abs(float64(e)-expected) < math.Abs(float64(best)-expected)) {
			best, bestScore = e, score
		}
	}
	if best < 0 {
		return 0, false
	}
	return float64(best), true
}

func (s *Synchronizer) isSync(i, probe int) bool {
	e := tone.DetectLag(tone.Centered(s.samples, i, probe), s.cfg.SampleRate, tone.Lag(s.cfg.SampleRate, probe))
	if !e.Above(s.cfg.MinConfidence) {
		return false
	}
	f := e.Freq - s.cfg.Shift
	return f > syncFloor && f < syncCeiling
}
