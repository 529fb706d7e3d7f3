package vis

import (
	"context"
	"fmt"
	"math"

	"github.com/himanishpuri/SlowScan/pkg/sstv/tone"
)

// Detection tolerances.
const (
	// LeaderTolerance is how far, in Hz, a leader may sit from 1900 Hz.
	LeaderTolerance = 100.0
	// ToneTolerance bounds break and start-bit readings around 1200 Hz,
	// after the leader's offset is taken out.
	ToneTolerance = 50.0

	leaderMinMs = LeaderMs * 0.5
	leaderMaxMs = LeaderMs * 1.5
	breakMinMs  = 2.0
	breakMaxMs  = 20.0
	startMinMs  = 15.0
	startMaxMs  = 60.0

	probeMs = 5.0
	hopMs   = 2.0
	slotMs  = 20.0
)

// Logger receives detector diagnostics.
type Logger interface {
	Debugf(format string, args ...any)
}

// Detector scans a sample buffer for a VIS header. The zero value is not
// usable; SampleRate must be set.
type Detector struct {
	SampleRate    float64
	MinConfidence float64
	Logger        Logger

	// Trace, when set, is called on every state the machine enters.
	Trace func(State)
}

type scan struct {
	d       *Detector
	ctx     context.Context
	samples []float64
	limit   int
	probe   int
	hop     int
	minConf float64

	state       State
	cursor      int
	leaderStart int
	startBit    int
	shift       float64
	raw         uint8
}

// Scan runs the header state machine over samples[from:limit]. It never
// reads at or beyond limit. On ErrNoSignal the returned header's End is the
// offset where scanning stopped; on ErrParity it is the end of the rejected
// header, so a caller can resume from there.
func (d *Detector) Scan(ctx context.Context, samples []float64, from, limit int) (Header, error) {
	if d.SampleRate <= 0 {
		return Header{}, fmt.Errorf("vis: invalid sample rate %.1f", d.SampleRate)
	}
	if limit > len(samples) || limit <= 0 {
		limit = len(samples)
	}

	s := &scan{
		d:       d,
		ctx:     ctx,
		samples: samples,
		limit:   limit,
		probe:   d.samplesFor(probeMs),
		hop:     d.samplesFor(hopMs),
		minConf: d.MinConfidence,
		cursor:  from,
	}
	if s.minConf <= 0 {
		s.minConf = tone.MinConfidence
	}
	if s.probe < 8 {
		s.probe = 8
	}
	if s.hop < 1 {
		s.hop = 1
	}
	s.cursor += s.probe / 2
	s.enter(Idle)

	for {
		if err := ctx.Err(); err != nil {
			return Header{End: s.cursor}, err
		}

		var err error
		switch s.state {
		case Idle:
			err = s.idle()
		case LeaderDetected:
			err = s.leaderDetected()
		case BreakDetected:
			err = s.breakDetected()
		case ReadingBits:
			err = s.readBits()
		case ParityCheck:
			return s.parityCheck()
		}
		if err != nil {
			return Header{End: s.cursor}, err
		}
	}
}

func (d *Detector) samplesFor(ms float64) int {
	return int(math.Round(ms * d.SampleRate / 1000))
}

func (s *scan) enter(st State) {
	s.state = st
	if s.d.Trace != nil {
		s.d.Trace(st)
	}
}

// at estimates the tone centred on sample c. ok is false when the window
// would reach past the scan limit.
func (s *scan) at(c int) (tone.Estimate, bool) {
	start := c - s.probe/2
	if start < 0 || start+s.probe > s.limit {
		return tone.Estimate{}, false
	}
	return tone.SpectralAt(s.samples, c, s.probe, s.d.SampleRate), true
}

func (s *scan) isLeader(e tone.Estimate) bool {
	return e.Above(s.minConf) && math.Abs(e.Freq-FreqLeader) <= LeaderTolerance
}

func (s *scan) isLow(e tone.Estimate) bool {
	return e.Above(s.minConf) && math.Abs(e.Freq-s.shift-FreqBreak) <= ToneTolerance
}

// meanOffset converts the summed frequencies of a leader run into its
// offset from 1900 Hz.
func (s *scan) meanOffset(sum float64, start, end int) float64 {
	n := (end - start) / s.hop
	if n == 0 {
		return 0
	}
	return sum/float64(n) - FreqLeader
}

func (s *scan) ms(n int) float64 {
	return float64(n) * 1000 / s.d.SampleRate
}

// run measures how long match holds from the cursor, skipping at most one
// probe length of transition first. It returns the first matching centre
// and the first centre past the run.
func (s *scan) run(match func(tone.Estimate) bool, sum *float64) (start, end int, err error) {
	c := s.cursor
	for skipped := 0; ; skipped += s.hop {
		e, ok := s.at(c)
		if !ok {
			return 0, 0, ErrNoSignal
		}
		if match(e) {
			break
		}
		if skipped >= s.probe {
			return c, c, nil
		}
		c += s.hop
	}

	start = c
	for {
		e, ok := s.at(c)
		if !ok {
			return 0, 0, ErrNoSignal
		}
		if !match(e) {
			return start, c, nil
		}
		if sum != nil {
			*sum += e.Freq
		}
		c += s.hop
	}
}

func (s *scan) idle() error {
	for {
		if err := s.ctx.Err(); err != nil {
			return err
		}
		e, ok := s.at(s.cursor)
		if !ok {
			return ErrNoSignal
		}
		if !s.isLeader(e) {
			s.cursor += s.hop
			continue
		}

		var sum float64
		start, end, err := s.run(s.isLeader, &sum)
		if err != nil {
			return err
		}
		s.cursor = end
		if d := s.ms(end - start); d >= leaderMinMs && d <= leaderMaxMs {
			s.leaderStart = start
			s.shift = s.meanOffset(sum, start, end)
			s.enter(LeaderDetected)
			return nil
		}
		if end == start {
			s.cursor += s.hop
		}
	}
}

func (s *scan) leaderDetected() error {
	start, end, err := s.run(s.isLow, nil)
	if err != nil {
		return err
	}
	if d := s.ms(end - start); end == start || d < breakMinMs || d > breakMaxMs {
		s.logf("break missing at sample %d (%.1f ms low tone)", start, d)
		s.enter(Idle)
		return nil
	}
	s.cursor = end
	s.enter(BreakDetected)
	return nil
}

func (s *scan) breakDetected() error {
	var sum float64
	start, end, err := s.run(s.isLeader, &sum)
	if err != nil {
		return err
	}
	d := s.ms(end - start)
	if end == start || d < leaderMinMs || d > leaderMaxMs {
		s.logf("second leader rejected at sample %d (%.1f ms)", start, d)
		s.cursor = end
		s.enter(Idle)
		return nil
	}
	s.shift = s.meanOffset(sum, start, end)
	s.cursor = end

	bitStart, bitEnd, err := s.run(s.isLow, nil)
	if err != nil {
		return err
	}
	if d := s.ms(bitEnd - bitStart); bitEnd == bitStart || d < startMinMs || d > startMaxMs {
		s.logf("start bit rejected at sample %d (%.1f ms)", bitStart, d)
		s.cursor = bitEnd
		s.enter(Idle)
		return nil
	}

	s.startBit = s.onset(bitStart)
	s.raw = 0
	s.enter(ReadingBits)
	return nil
}

// onset walks back from the first low-tone probe in quarter hops to find
// where the start bit begins.
func (s *scan) onset(c int) int {
	step := s.hop / 4
	if step < 1 {
		step = 1
	}
	for back := step; back < s.hop; back += step {
		e, ok := s.at(c - back)
		if !ok || !s.isLow(e) {
			return c - back + step
		}
	}
	return c - s.hop + step
}

func (s *scan) readBits() error {
	rate := s.d.SampleRate
	window := int(math.Round(slotMs * rate / 1000))
	for n := 0; n < 8; n++ {
		if n > 0 {
			s.enter(ReadingBits)
		}
		c := s.startBit + int(math.Round((BitMs*float64(n+1)+BitMs/2)*rate/1000))
		if c-window/2 < 0 || c-window/2+window > s.limit {
			s.cursor = s.limit
			return ErrNoSignal
		}
		e := tone.SpectralAt(s.samples, c, window, rate)
		s.raw |= BitFromFrequency(e.Freq-s.shift) << n
	}
	s.enter(ParityCheck)
	return nil
}

func (s *scan) parityCheck() (Header, error) {
	h := Header{
		Code:  s.raw & 0x7F,
		Raw:   s.raw,
		Start: s.leaderStart,
		End:   s.startBit + int(math.Round(BitMs*10*s.d.SampleRate/1000)),
		Shift: s.shift,
	}
	if !CheckParity(s.raw) {
		s.enter(Failed)
		return h, fmt.Errorf("%w: received 0x%02X", ErrParity, s.raw)
	}
	s.enter(HeaderComplete)
	return h, nil
}

func (s *scan) logf(format string, args ...any) {
	if s.d.Logger != nil {
		s.d.Logger.Debugf("[VIS] "+format, args...)
	}
}
