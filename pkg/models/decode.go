package models

import "time"

// Decode is one archived decode attempt.
type Decode struct {
	ID         string // Database ID (UUID)
	Source     string // Base name of the input file
	Mode       string // Mode name, empty if no header was read
	VIS        uint8
	Status     string
	Reason     string
	Width      int
	Height     int
	Lines      int // Scan lines decoded
	Degraded   []int
	SNR        float64 // dB
	SkewPPM    float64
	FreqShift  float64 // Hz
	DurationMs int     // Length of the input audio
	ImagePath  string  // PNG on disk, empty if no image was produced
	CreatedAt  time.Time
}

// DecodeSummary is the list view of a Decode.
type DecodeSummary struct {
	ID        string
	Source    string
	Mode      string
	Status    string
	SNR       float64
	CreatedAt time.Time
}
