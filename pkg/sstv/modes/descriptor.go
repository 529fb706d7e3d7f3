// Package modes holds the SSTV mode table. Every supported mode is a
// Descriptor value: its scan line is an ordered list of segments, so adding a
// mode means adding data, not decoding code.
package modes

import "fmt"

// Standard tone frequencies in Hz.
const (
	FreqSync   = 1200.0
	FreqBlack  = 1500.0
	FreqWhite  = 2300.0
	FreqLeader = 1900.0
)

// Role says what a scan-line segment carries.
type Role int

const (
	RoleSync Role = iota
	RolePorch
	RoleLuma
	RoleChromaRY
	RoleChromaBY
	RoleRed
	RoleGreen
	RoleBlue
)

func (r Role) String() string {
	switch r {
	case RoleSync:
		return "sync"
	case RolePorch:
		return "porch"
	case RoleLuma:
		return "Y"
	case RoleChromaRY:
		return "R-Y"
	case RoleChromaBY:
		return "B-Y"
	case RoleRed:
		return "R"
	case RoleGreen:
		return "G"
	case RoleBlue:
		return "B"
	default:
		return "unknown"
	}
}

// Video reports whether the segment carries picture data.
func (r Role) Video() bool {
	return r >= RoleLuma
}

// Channel returns the canvas plane a video role is written to. For RGB
// modes the planes are R, G, B; for YCbCr modes they are Y, Cb, Cr.
func (r Role) Channel() int {
	switch r {
	case RoleLuma, RoleRed:
		return 0
	case RoleChromaBY, RoleGreen:
		return 1
	case RoleChromaRY, RoleBlue:
		return 2
	default:
		return -1
	}
}

// ColorModel selects the conversion applied by the image assembler.
type ColorModel int

const (
	ColorRGB ColorModel = iota
	ColorYCbCr
)

func (c ColorModel) String() string {
	if c == ColorYCbCr {
		return "YCbCr"
	}
	return "RGB"
}

// Segment is one time slice of a scan line.
type Segment struct {
	Role     Role
	Duration float64 // ms
	Freq     float64 // fixed tone, sync and porch segments only
	Low      float64 // video black, Hz
	High     float64 // video white, Hz

	// Row is the image row offset, relative to the first row of the scan
	// line, that the segment's values land on. Rows is how many consecutive
	// rows share them; zero means one.
	Row  int
	Rows int
}

// RowSpan returns the number of rows the segment writes.
func (s Segment) RowSpan() int {
	if s.Rows < 1 {
		return 1
	}
	return s.Rows
}

// Descriptor is the immutable description of one SSTV mode.
type Descriptor struct {
	Name      string
	ShortName string
	VIS       uint8
	Width     int
	Height    int
	Color     ColorModel

	// Layouts are the scan-line layouts, used in turn by line index.
	Layouts [][]Segment

	// RowsPerLine is the number of image rows produced by one scan line.
	RowsPerLine int

	// LeadingSync is an extra sync pulse, in ms, sent once before line 0.
	LeadingSync float64
}

// Lines returns the number of scan lines in a full image.
func (d *Descriptor) Lines() int {
	rows := d.RowsPerLine
	if rows < 1 {
		rows = 1
	}
	return d.Height / rows
}

// Layout returns the segment layout for scan line n.
func (d *Descriptor) Layout(n int) []Segment {
	return d.Layouts[n%len(d.Layouts)]
}

// LineDuration returns the nominal duration of scan line n in ms.
func (d *Descriptor) LineDuration(n int) float64 {
	var total float64
	for _, s := range d.Layout(n) {
		total += s.Duration
	}
	return total
}

// MeanLineDuration is the nominal line period averaged over all layouts.
func (d *Descriptor) MeanLineDuration() float64 {
	var total float64
	for i := range d.Layouts {
		total += d.LineDuration(i)
	}
	return total / float64(len(d.Layouts))
}

// SyncBounds returns the start and end offsets, in ms from the start of scan
// line n, of that line's sync pulse.
func (d *Descriptor) SyncBounds(n int) (start, end float64) {
	var t float64
	for _, s := range d.Layout(n) {
		if s.Role == RoleSync {
			return t, t + s.Duration
		}
		t += s.Duration
	}
	return 0, 0
}

// SyncDuration returns the nominal sync pulse length of scan line n in ms.
func (d *Descriptor) SyncDuration(n int) float64 {
	start, end := d.SyncBounds(n)
	return end - start
}

// PixelTime returns the duration of one pixel of a video segment in ms.
func (d *Descriptor) PixelTime(s Segment) float64 {
	return s.Duration / float64(d.Width)
}

// Duration returns the nominal length of the image part of a transmission
// in ms, not counting the VIS header.
func (d *Descriptor) Duration() float64 {
	total := d.LeadingSync
	for n := 0; n < d.Lines(); n++ {
		total += d.LineDuration(n)
	}
	return total
}

// Validate checks a descriptor for internal consistency.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("mode has no name")
	}
	if d.VIS > 0x7F {
		return fmt.Errorf("%s: VIS code 0x%02X exceeds 7 bits", d.Name, d.VIS)
	}
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%s: invalid size %dx%d", d.Name, d.Width, d.Height)
	}
	if len(d.Layouts) == 0 {
		return fmt.Errorf("%s: no scan-line layout", d.Name)
	}
	rows := d.RowsPerLine
	if rows < 1 {
		rows = 1
	}
	if d.Height%rows != 0 {
		return fmt.Errorf("%s: height %d not a multiple of %d rows per line", d.Name, d.Height, rows)
	}
	for i, layout := range d.Layouts {
		syncs := 0
		for _, s := range layout {
			if s.Duration <= 0 {
				return fmt.Errorf("%s: layout %d has a %s segment of %.4f ms", d.Name, i, s.Role, s.Duration)
			}
			if s.Role == RoleSync {
				syncs++
			}
			if s.Role.Video() && s.High <= s.Low {
				return fmt.Errorf("%s: layout %d %s segment has empty range", d.Name, i, s.Role)
			}
		}
		if syncs != 1 {
			return fmt.Errorf("%s: layout %d has %d sync segments, want 1", d.Name, i, syncs)
		}
	}
	return nil
}
