// Package sstv decodes Slow-Scan Television transmissions from audio
// samples. A decode reads the VIS header to learn the mode, then
// synchronizes and demodulates every scan line into an RGB image.
package sstv

import (
	"context"
	"errors"
	"fmt"

	"github.com/himanishpuri/SlowScan/pkg/logger"
	"github.com/himanishpuri/SlowScan/pkg/sstv/imaging"
	"github.com/himanishpuri/SlowScan/pkg/sstv/linesync"
	"github.com/himanishpuri/SlowScan/pkg/sstv/modes"
	"github.com/himanishpuri/SlowScan/pkg/sstv/pixel"
	"github.com/himanishpuri/SlowScan/pkg/sstv/quality"
	"github.com/himanishpuri/SlowScan/pkg/sstv/tone"
	"github.com/himanishpuri/SlowScan/pkg/sstv/vis"
)

// snrSeconds bounds the stretch of signal the SNR is measured over.
const snrSeconds = 10

// Decoder is immutable once built and safe for concurrent use on
// different sample streams.
type Decoder struct {
	cfg Config
}

func New(opts ...Option) (*Decoder, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	switch {
	case cfg.SampleRate < MinSampleRate:
		return nil, fmt.Errorf("%w: sample rate %.0f Hz, need at least %d", ErrInvalidConfig, cfg.SampleRate, MinSampleRate)
	case cfg.ScanBudget < 0 || cfg.ScanDuration < 0:
		return nil, fmt.Errorf("%w: negative scan budget", ErrInvalidConfig)
	case cfg.DriftTolerance <= 0 || cfg.DriftTolerance >= 0.25:
		return nil, fmt.Errorf("%w: drift tolerance %.3f outside (0, 0.25)", ErrInvalidConfig, cfg.DriftTolerance)
	case cfg.MinConfidence <= 0 || cfg.MinConfidence >= 1:
		return nil, fmt.Errorf("%w: min confidence %.2f outside (0, 1)", ErrInvalidConfig, cfg.MinConfidence)
	case cfg.Modes == nil || cfg.Modes.Len() == 0:
		return nil, fmt.Errorf("%w: empty mode table", ErrInvalidConfig)
	}

	return &Decoder{cfg: *cfg}, nil
}

// Decode builds a Decoder from opts and runs it once.
func Decode(ctx context.Context, samples []float64, opts ...Option) (*Result, error) {
	d, err := New(opts...)
	if err != nil {
		return nil, err
	}
	return d.Decode(ctx, samples)
}

// SampleRate returns the rate the decoder was configured for.
func (d *Decoder) SampleRate() float64 {
	return d.cfg.SampleRate
}

// Modes returns the decoder's mode table.
func (d *Decoder) Modes() *modes.Table {
	return d.cfg.Modes
}

// Decode runs one decode over samples. The Result is always non-nil; on
// failure it carries the reason, and from the moment a mode is known, the
// partial image. The returned error is a *DecodeError.
func (d *Decoder) Decode(ctx context.Context, samples []float64) (*Result, error) {
	res := &Result{Status: StatusFailed}
	log := d.cfg.Logger

	work := samples
	if d.cfg.Bandpass {
		work = tone.Bandpass(samples, d.cfg.SampleRate)
	}

	hdr, desc, err := d.findHeader(ctx, work, res)
	if err != nil {
		return res, err
	}

	res.Mode = desc
	log.Infof("[SSTV] %s (VIS 0x%02X) at sample %d, shift %+.1f Hz", desc.Name, hdr.Code, hdr.Start, hdr.Shift)

	canvas := imaging.NewCanvas(desc)
	tracker := linesync.New(work, desc, hdr.End, linesync.Config{
		SampleRate:    d.cfg.SampleRate,
		Tolerance:     d.cfg.DriftTolerance,
		Shift:         hdr.Shift,
		MinConfidence: d.cfg.MinConfidence,
		Logger:        log,
	})
	pix := &pixel.Decoder{
		SampleRate:    d.cfg.SampleRate,
		Shift:         hdr.Shift,
		MinConfidence: d.cfg.MinConfidence,
	}

	var failure *DecodeError
	for line := 0; line < desc.Lines(); line++ {
		if err := ctx.Err(); err != nil {
			failure = &DecodeError{Reason: ReasonCanceled, Offset: int(tracker.Cursor().Offset), Err: err}
			break
		}

		span, err := tracker.Next()
		if err != nil && !errors.Is(err, linesync.ErrExhausted) {
			failure = &DecodeError{Reason: ReasonStreamExhausted, Offset: len(work), Err: err}
			break
		}
		if span.Degraded {
			canvas.MarkDegraded(line)
		}

		// A line cut short by the end of the stream is still decoded as
		// far as the samples go.
		if int(span.At(0)) < len(work) {
			st := pix.DecodeLine(work, span, desc, canvas)
			res.Lines++
			if st.Held > 0 {
				log.Debugf("[SSTV] line %d: %d of %d pixels held", line, st.Held, st.Pixels)
			}
		}

		if err != nil {
			failure = &DecodeError{Reason: ReasonStreamExhausted, Offset: len(work), Err: err}
			break
		}
	}

	d.finish(res, canvas, tracker, samples, hdr)

	if failure != nil {
		res.Status = StatusFailed
		res.Reason = failure.Reason
		log.Warnf("[SSTV] %s decode stopped after %d of %d lines: %v", desc.Name, res.Lines, desc.Lines(), failure.Err)
		return res, failure
	}

	res.Status = StatusCompleted
	if len(res.DegradedLines) > 0 {
		res.Status = StatusCompletedWithDegradation
	}
	log.Infof("[SSTV] %s decoded: %d lines, %d degraded, SNR %.1f dB, skew %+.0f ppm",
		desc.Name, res.Lines, len(res.DegradedLines), res.SNR, res.ClockSkewPPM)
	return res, nil
}

// findHeader scans for a header naming a supported mode. Headers failing
// parity or naming an unknown mode are skipped while the budget lasts; if
// none succeeds the last of them is reported.
func (d *Decoder) findHeader(ctx context.Context, work []float64, res *Result) (vis.Header, *modes.Descriptor, error) {
	det := &vis.Detector{
		SampleRate:    d.cfg.SampleRate,
		MinConfidence: d.cfg.MinConfidence,
		Logger:        d.cfg.Logger,
	}
	limit := d.cfg.budget(len(work))

	var last *DecodeError
	from := 0
	for {
		h, err := det.Scan(ctx, work, from, limit)
		switch {
		case err == nil:
			res.VIS = h.Code
			res.HeaderStart, res.HeaderEnd, res.FreqShift = h.Start, h.End, h.Shift
			desc, lerr := d.cfg.Modes.Lookup(h.Code)
			if lerr == nil {
				res.Reason = ReasonNone
				return h, desc, nil
			}
			d.cfg.Logger.Warnf("[SSTV] skipping header at sample %d: %v", h.Start, lerr)
			last = &DecodeError{Reason: ReasonUnsupportedMode, Offset: h.Start, Err: lerr}

		case errors.Is(err, vis.ErrParity):
			res.VIS = h.Code
			res.HeaderStart, res.HeaderEnd, res.FreqShift = h.Start, h.End, h.Shift
			d.cfg.Logger.Warnf("[SSTV] skipping header at sample %d: %v", h.Start, err)
			last = &DecodeError{Reason: ReasonHeaderParity, Offset: h.Start, Err: err}

		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			res.Reason = ReasonCanceled
			return h, nil, &DecodeError{Reason: ReasonCanceled, Offset: h.End, Err: err}

		case errors.Is(err, vis.ErrNoSignal):
			if last != nil {
				res.Reason = last.Reason
				return h, nil, last
			}
			res.Reason = ReasonNoSignalFound
			return h, nil, &DecodeError{Reason: ReasonNoSignalFound, Offset: h.End, Err: err}

		default:
			res.Reason = ReasonNoSignalFound
			return h, nil, &DecodeError{Reason: ReasonNoSignalFound, Offset: from, Err: err}
		}

		res.Reason = last.Reason
		if h.End <= from {
			h.End = from + 1
		}
		from = h.End
	}
}

// finish hands the canvas over to res and fills in the quality figures.
func (d *Decoder) finish(res *Result, canvas *imaging.Canvas, tracker *linesync.Synchronizer, samples []float64, hdr vis.Header) {
	frame := canvas.Finish()
	res.Image = frame.Image
	res.DegradedLines = frame.DegradedLines

	cur := tracker.Cursor()
	if ppm, ok := quality.ClockSkew(cur.Marks, res.Mode, d.cfg.SampleRate); ok {
		res.ClockSkewPPM = ppm
	}

	start, end := hdr.End, int(cur.Offset)
	if end > len(samples) {
		end = len(samples)
	}
	if span := int(snrSeconds * d.cfg.SampleRate); end-start > span {
		start += (end - start - span) / 2
		end = start + span
	}
	res.SNR = quality.FloorDB
	if end > start {
		res.SNR = quality.SNR(samples[start:end], d.cfg.SampleRate, hdr.Shift)
	}
}
