package receiver

import (
	"fmt"
	"os"
	"time"

	"github.com/himanishpuri/SlowScan/pkg/logger"
	"github.com/himanishpuri/SlowScan/pkg/sstv"
	"github.com/himanishpuri/SlowScan/pkg/sstv/linesync"
	"github.com/himanishpuri/SlowScan/pkg/sstv/tone"
	"gopkg.in/yaml.v3"
)

// Profile holds decoder tuning loaded from YAML:
//
//	drift_tolerance: 0.02
//	bandpass: true
//	scan_duration: 45s
//	min_confidence: 0.5
//	normalize: true
//	sample_rate: 11025
//	log_level: info
type Profile struct {
	DriftTolerance float64       `yaml:"drift_tolerance"`
	Bandpass       bool          `yaml:"bandpass"`
	ScanDuration   time.Duration `yaml:"scan_duration"`
	MinConfidence  float64       `yaml:"min_confidence"`
	Normalize      bool          `yaml:"normalize"`
	SampleRate     int           `yaml:"sample_rate"`
	LogLevel       string        `yaml:"log_level"`
}

func DefaultProfile() *Profile {
	return &Profile{
		DriftTolerance: linesync.DefaultTolerance,
		MinConfidence:  tone.MinConfidence,
		LogLevel:       "info",
	}
}

// LoadProfile reads a profile file. Keys it leaves out keep their defaults.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	return ParseProfile(data)
}

func ParseProfile(data []byte) (*Profile, error) {
	p := DefaultProfile()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Profile) Validate() error {
	switch {
	case p.DriftTolerance <= 0 || p.DriftTolerance >= 0.25:
		return fmt.Errorf("profile: drift_tolerance %.3f outside (0, 0.25)", p.DriftTolerance)
	case p.MinConfidence <= 0 || p.MinConfidence >= 1:
		return fmt.Errorf("profile: min_confidence %.2f outside (0, 1)", p.MinConfidence)
	case p.ScanDuration < 0:
		return fmt.Errorf("profile: negative scan_duration")
	case p.SampleRate != 0 && p.SampleRate < sstv.MinSampleRate:
		return fmt.Errorf("profile: sample_rate %d below %d", p.SampleRate, sstv.MinSampleRate)
	}
	if _, err := p.Level(); err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	return nil
}

// Level returns the profile's log level. An empty name means INFO.
func (p *Profile) Level() (logger.LogLevel, error) {
	if p.LogLevel == "" {
		return logger.INFO, nil
	}
	return logger.ParseLevel(p.LogLevel)
}

// DecoderOptions turns the profile into engine options. The sample rate
// is set by the caller from the audio itself.
func (p *Profile) DecoderOptions() []sstv.Option {
	return []sstv.Option{
		sstv.WithDriftTolerance(p.DriftTolerance),
		sstv.WithBandpass(p.Bandpass),
		sstv.WithScanDuration(p.ScanDuration),
		sstv.WithMinConfidence(p.MinConfidence),
	}
}
