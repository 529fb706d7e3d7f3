package sstv

import (
	"github.com/himanishpuri/SlowScan/pkg/sstv/imaging"
	"github.com/himanishpuri/SlowScan/pkg/sstv/modes"
)

// Status is the terminal state of a decode.
type Status int

const (
	StatusCompleted Status = iota
	StatusCompletedWithDegradation
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusCompletedWithDegradation:
		return "completed_with_degradation"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Reason says why a decode failed.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonNoSignalFound
	ReasonHeaderParity
	ReasonUnsupportedMode
	ReasonStreamExhausted
	ReasonCanceled
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNoSignalFound:
		return "no_signal_found"
	case ReasonHeaderParity:
		return "header_parity"
	case ReasonUnsupportedMode:
		return "unsupported_mode"
	case ReasonStreamExhausted:
		return "stream_exhausted"
	case ReasonCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Result is the outcome of one decode. Image is set whenever a mode was
// identified, even when the decode failed part way.
type Result struct {
	Status Status
	Reason Reason

	Mode *modes.Descriptor // nil until a supported header is read
	VIS  uint8             // last header code received

	Image         *imaging.Image
	DegradedLines []int
	Lines         int // scan lines decoded

	HeaderStart int     // sample offset of the header's first leader
	HeaderEnd   int     // sample offset just past the stop bit
	FreqShift   float64 // tuning offset measured on the header, Hz

	SNR          float64 // dB over the image part of the signal
	ClockSkewPPM float64
}

// ModeName returns the decoded mode's name, or "" before one was found.
func (r *Result) ModeName() string {
	if r.Mode == nil {
		return ""
	}
	return r.Mode.Name
}

// Complete reports whether the whole image was decoded.
func (r *Result) Complete() bool {
	return r.Status == StatusCompleted || r.Status == StatusCompletedWithDegradation
}
