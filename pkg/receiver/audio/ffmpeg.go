package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/himanishpuri/SlowScan/pkg/utils"
)

// Conversion rates. DefaultSampleRate sits well above twice the 2300 Hz
// white tone; rates past MaxSampleRate only cost decode time.
const (
	DefaultSampleRate = 11025
	MaxSampleRate     = 48000
)

const (
	probeTimeout   = 5 * time.Second
	convertTimeout = 30 * time.Second
)

var (
	// ErrFFmpegMissing is returned when ffmpeg or ffprobe is not on PATH.
	ErrFFmpegMissing = errors.New("ffmpeg not found in PATH")
	ErrNoAudioStream = errors.New("no audio stream found")
)

// Metadata describes a recording as ffprobe reports it.
type Metadata struct {
	Filename    string
	Format      string
	Title       string
	DurationSec float64
	SampleRate  int
	Channels    int
	BitDepth    int
}

// DecodeRate is the rate a recording should be converted at: its own rate
// kept within [DefaultSampleRate, MaxSampleRate].
func (m *Metadata) DecodeRate() int {
	switch {
	case m == nil || m.SampleRate < DefaultSampleRate:
		return DefaultSampleRate
	case m.SampleRate > MaxSampleRate:
		return MaxSampleRate
	}
	return m.SampleRate
}

// runTool runs one of the ffmpeg binaries and returns its stdout. A context
// without a deadline gets the given timeout.
func runTool(ctx context.Context, timeout time.Duration, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, ErrFFmpegMissing
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s failed: %v (%s)", name, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return out, nil
}

// Probe reads container and stream metadata with ffprobe.
func Probe(ctx context.Context, path string) (*Metadata, error) {
	out, err := runTool(ctx, probeTimeout, "ffprobe",
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return nil, err
	}
	return parseProbe(path, out)
}

type probeReport struct {
	Format struct {
		Name     string            `json:"format_name"`
		Duration string            `json:"duration"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
	Streams []struct {
		Type          string `json:"codec_type"`
		SampleRate    string `json:"sample_rate"`
		Channels      int    `json:"channels"`
		BitsPerSample int    `json:"bits_per_sample"`
	} `json:"streams"`
}

func parseProbe(path string, out []byte) (*Metadata, error) {
	var rep probeReport
	if err := json.Unmarshal(out, &rep); err != nil {
		return nil, fmt.Errorf("parsing ffprobe output: %w", err)
	}

	for _, st := range rep.Streams {
		if st.Type != "audio" {
			continue
		}
		meta := &Metadata{
			Filename: filepath.Base(path),
			Format:   rep.Format.Name,
			Title:    rep.Format.Tags["title"],
			Channels: st.Channels,
			BitDepth: st.BitsPerSample,
		}
		meta.DurationSec, _ = strconv.ParseFloat(rep.Format.Duration, 64)
		meta.SampleRate, _ = strconv.Atoi(st.SampleRate)
		return meta, nil
	}
	return nil, ErrNoAudioStream
}

type ConvertWAVConfig struct {
	SampleRate int
}

// ConvertToMonoWAV transcodes any input ffmpeg understands into a mono
// 16-bit WAV under outputDir and returns its path.
func ConvertToMonoWAV(ctx context.Context, inputPath, outputDir string, cfg ConvertWAVConfig) (string, error) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}

	outputPath := filepath.Join(outputDir, utils.StemName(inputPath)+"-"+utils.GenerateUUID()[:8]+".wav")
	partial := outputPath + ".part.wav"
	defer os.Remove(partial)

	_, err := runTool(ctx, convertTimeout, "ffmpeg",
		"-y",
		"-v", "error",
		"-i", inputPath,
		"-ac", "1",
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-c:a", "pcm_s16le",
		partial,
	)
	if err != nil {
		return "", err
	}

	if err := utils.MoveFile(partial, outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}
