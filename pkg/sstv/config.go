package sstv

import (
	"time"

	"github.com/himanishpuri/SlowScan/pkg/sstv/linesync"
	"github.com/himanishpuri/SlowScan/pkg/sstv/modes"
	"github.com/himanishpuri/SlowScan/pkg/sstv/tone"
)

// MinSampleRate is the lowest sample rate the decoder accepts.
const MinSampleRate = 8000

type Config struct {
	SampleRate     float64
	ScanBudget     int           // samples searched for a header, 0 for the whole stream
	ScanDuration   time.Duration // same bound in time; the tighter of the two wins
	Logger         Logger
	Modes          *modes.Table
	DriftTolerance float64 // fraction of a line a sync pulse may wander
	Bandpass       bool
	MinConfidence  float64
}

type Option func(*Config)

func WithSampleRate(rate float64) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

func WithScanBudget(samples int) Option {
	return func(c *Config) {
		c.ScanBudget = samples
	}
}

func WithScanDuration(d time.Duration) Option {
	return func(c *Config) {
		c.ScanDuration = d
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithModeTable replaces the built-in mode table.
func WithModeTable(t *modes.Table) Option {
	return func(c *Config) {
		c.Modes = t
	}
}

func WithDriftTolerance(fraction float64) Option {
	return func(c *Config) {
		c.DriftTolerance = fraction
	}
}

// WithBandpass filters the samples to 1000-3000 Hz before decoding. The
// caller's slice is left untouched.
func WithBandpass(on bool) Option {
	return func(c *Config) {
		c.Bandpass = on
	}
}

func WithMinConfidence(conf float64) Option {
	return func(c *Config) {
		c.MinConfidence = conf
	}
}

func defaultConfig() *Config {
	return &Config{
		Modes:          modes.Default(),
		DriftTolerance: linesync.DefaultTolerance,
		MinConfidence:  tone.MinConfidence,
		Logger:         nil,
	}
}

// budget returns the sample offset header scanning must stop at.
func (c *Config) budget(n int) int {
	limit := n
	if c.ScanBudget > 0 && c.ScanBudget < limit {
		limit = c.ScanBudget
	}
	if c.ScanDuration > 0 {
		if d := int(c.ScanDuration.Seconds() * c.SampleRate); d < limit {
			limit = d
		}
	}
	return limit
}
