// Package vis detects the VIS header that opens every SSTV transmission:
// a 1900 Hz leader, a 1200 Hz break, a second leader and eight 30 ms bits
// framed by 1200 Hz start and stop bits.
package vis

import (
	"errors"
	"math"
	"math/bits"
)

// Header tone frequencies (Hz) and durations (ms).
const (
	FreqLeader = 1900.0
	FreqBreak  = 1200.0
	FreqOne    = 1100.0
	FreqZero   = 1300.0

	LeaderMs = 300.0
	BreakMs  = 10.0
	BitMs    = 30.0
)

var (
	ErrNoSignal = errors.New("no VIS header found")
	ErrParity   = errors.New("VIS parity mismatch")
)

// State is a step of the header state machine.
type State int

const (
	Idle State = iota
	LeaderDetected
	BreakDetected
	ReadingBits
	ParityCheck
	HeaderComplete
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case LeaderDetected:
		return "LeaderDetected"
	case BreakDetected:
		return "BreakDetected"
	case ReadingBits:
		return "ReadingBits"
	case ParityCheck:
		return "ParityCheck"
	case HeaderComplete:
		return "HeaderComplete"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Header is a decoded VIS header.
type Header struct {
	Code  uint8   // 7-bit mode code
	Raw   uint8   // the eight bits as received, parity in bit 7
	Start int     // sample offset of the first leader
	End   int     // sample offset just past the stop bit
	Shift float64 // measured leader offset from 1900 Hz
}

// BitFromFrequency maps a bit-slot frequency to the nearer of 1100 Hz (1)
// and 1300 Hz (0). Exactly equidistant readings decode as 0.
func BitFromFrequency(freq float64) uint8 {
	if math.Abs(freq-FreqOne) < math.Abs(freq-FreqZero) {
		return 1
	}
	return 0
}

// Parity returns the even-parity bit of the low seven bits of code.
func Parity(code uint8) uint8 {
	return uint8(bits.OnesCount8(code&0x7F) & 1)
}

// CheckParity reports whether bit 7 of raw is the parity of bits 0-6.
func CheckParity(raw uint8) bool {
	return raw>>7 == Parity(raw)
}

// Encode returns the eight transmitted bits for a 7-bit mode code.
func Encode(code uint8) uint8 {
	code &= 0x7F
	return code | Parity(code)<<7
}
