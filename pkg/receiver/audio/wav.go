package audio

import (
	"errors"
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/transforms"
	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned for files that do not parse as PCM WAV.
var ErrInvalidWAV = errors.New("not a valid PCM WAV file")

// Samples is a mono sample stream scaled to [-1, 1].
type Samples struct {
	Data       []float64
	SampleRate int
	BitDepth   int
	Channels   int // channel count of the source before downmix
}

// DurationMs returns the stream length in milliseconds.
func (s *Samples) DurationMs() int {
	if s.SampleRate == 0 {
		return 0
	}
	return int(int64(len(s.Data)) * 1000 / int64(s.SampleRate))
}

// ReadOptions tunes ReadWAV.
type ReadOptions struct {
	// Normalize rescales the stream so its peak magnitude is 1.
	Normalize bool
}

// ReadWAV loads a PCM WAV file, downmixing to mono.
func ReadWAV(path string, opts ReadOptions) (*Samples, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidWAV)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading pcm data: %w", err)
	}
	if dec.BitDepth == 0 || dec.SampleRate == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidWAV)
	}

	fb := buf.AsFloatBuffer()
	fullScale := float64(int(1) << (uint(dec.BitDepth) - 1))
	for i, v := range fb.Data {
		fb.Data[i] = v / fullScale
	}

	channels := int(dec.NumChans)
	if channels > 1 {
		if err := transforms.MonoDownmix(fb); err != nil {
			return nil, fmt.Errorf("downmixing: %w", err)
		}
	}
	if opts.Normalize {
		transforms.NormalizeMax(fb)
	}

	return &Samples{
		Data:       fb.Data,
		SampleRate: int(dec.SampleRate),
		BitDepth:   int(dec.BitDepth),
		Channels:   channels,
	}, nil
}

// WriteWAV stores mono samples in [-1, 1] as 16-bit PCM. Values outside
// the range are clipped.
func WriteWAV(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating wav: %w", err)
	}

	const bitDepth = 16
	enc := wav.NewEncoder(f, sampleRate, bitDepth, 1, 1)

	data := make([]int, len(samples))
	for i, v := range samples {
		v = math.Max(-1, math.Min(1, v))
		data[i] = int(math.Round(v * 32767))
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}

	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("encoding wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalizing wav: %w", err)
	}
	return f.Close()
}
