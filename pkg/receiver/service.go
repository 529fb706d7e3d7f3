package receiver

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/himanishpuri/SlowScan/pkg/logger"
	"github.com/himanishpuri/SlowScan/pkg/models"
	"github.com/himanishpuri/SlowScan/pkg/receiver/audio"
	"github.com/himanishpuri/SlowScan/pkg/sstv"
	"github.com/himanishpuri/SlowScan/pkg/utils"
)

// receiverService is the default implementation of the Service interface.
type receiverService struct {
	storage Storage
	log     Logger
	config  *Config
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger().Named("receiver")
	}
	if cfg.Profile == nil {
		cfg.Profile = DefaultProfile()
	}
	if err := cfg.Profile.Validate(); err != nil {
		return nil, err
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = cfg.Profile.SampleRate
	}

	var stor Storage
	var err error
	if cfg.Storage != nil {
		stor = cfg.Storage
	} else {
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &receiverService{
		storage: stor,
		log:     cfg.Logger,
		config:  cfg,
	}, nil
}

// DecodeFile reads WAV input directly and hands anything else to ffmpeg
// first.
func (s *receiverService) DecodeFile(ctx context.Context, path string) (*models.Decode, error) {
	s.log.Infof("Decoding audio: %s", path)

	wavPath := path
	if !utils.IsWAV(path) {
		rate := s.config.SampleRate
		if rate == 0 {
			meta, err := audio.Probe(ctx, path)
			if err != nil {
				s.log.Debugf("Probe failed for %s, converting at %d Hz: %v", path, audio.DefaultSampleRate, err)
			}
			rate = meta.DecodeRate()
		}
		converted, err := audio.ConvertToMonoWAV(ctx, path, s.config.TempDir, audio.ConvertWAVConfig{
			SampleRate: rate,
		})
		if err != nil {
			return nil, fmt.Errorf("audio conversion failed: %w", err)
		}
		defer utils.DeleteFile(converted)
		wavPath = converted
	}

	in, err := audio.ReadWAV(wavPath, audio.ReadOptions{Normalize: s.config.Profile.Normalize})
	if err != nil {
		return nil, fmt.Errorf("failed to read WAV file: %w", err)
	}
	s.log.Debugf("Read %d samples at %d Hz (%d channels)", len(in.Data), in.SampleRate, in.Channels)

	return s.DecodeSamples(ctx, filepath.Base(path), in.Data, in.SampleRate)
}

func (s *receiverService) DecodeSamples(ctx context.Context, source string, samples []float64, sampleRate int) (*models.Decode, error) {
	opts := append(s.config.Profile.DecoderOptions(),
		sstv.WithSampleRate(float64(sampleRate)),
		sstv.WithLogger(s.log),
	)
	dec, err := sstv.New(opts...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, decodeErr := dec.Decode(ctx, samples)
	if errors.Is(decodeErr, context.Canceled) || errors.Is(decodeErr, context.DeadlineExceeded) {
		return nil, decodeErr
	}

	rec := &models.Decode{
		ID:         utils.GenerateUUID(),
		Source:     source,
		Mode:       res.ModeName(),
		VIS:        res.VIS,
		Status:     res.Status.String(),
		Reason:     res.Reason.String(),
		Lines:      res.Lines,
		Degraded:   res.DegradedLines,
		SNR:        res.SNR,
		SkewPPM:    res.ClockSkewPPM,
		FreqShift:  res.FreqShift,
		DurationMs: int(int64(len(samples)) * 1000 / int64(sampleRate)),
	}

	if res.Image != nil {
		rec.Width, rec.Height = res.Image.Width, res.Image.Height
		imgPath, err := s.writeImage(rec.ID, res)
		if err != nil {
			return nil, err
		}
		rec.ImagePath = imgPath
	}

	if err := s.storage.SaveDecode(rec); err != nil {
		if rec.ImagePath != "" {
			utils.DeleteFile(rec.ImagePath) // Rollback
		}
		return nil, fmt.Errorf("failed to archive decode: %w", err)
	}

	s.log.Infof("Decode %s: %s %s in %v", rec.ID, rec.Mode, rec.Status, time.Since(start).Round(time.Millisecond))
	return rec, decodeErr
}

func (s *receiverService) writeImage(id string, res *sstv.Result) (string, error) {
	if err := utils.MakeDir(s.config.OutDir); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	path := filepath.Join(s.config.OutDir, id+".png")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating image file: %w", err)
	}
	if err := png.Encode(f, res.Image.ToRGBA()); err != nil {
		f.Close()
		utils.DeleteFile(path)
		return "", fmt.Errorf("encoding png: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("writing png: %w", err)
	}
	return path, nil
}

func (s *receiverService) GetDecode(id string) (*models.Decode, error) {
	return s.storage.GetDecode(id)
}

func (s *receiverService) ListDecodes(limit int) ([]models.DecodeSummary, error) {
	return s.storage.ListDecodes(limit)
}

// DeleteDecode removes the archive record and its image.
func (s *receiverService) DeleteDecode(id string) error {
	rec, err := s.storage.GetDecode(id)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteDecode(id); err != nil {
		return err
	}
	if rec.ImagePath != "" {
		if err := utils.DeleteFile(rec.ImagePath); err != nil {
			s.log.Warnf("Failed to remove image %s: %v", rec.ImagePath, err)
		}
	}
	return nil
}

// Stats counts archived decodes by status.
func (s *receiverService) Stats() (map[string]int, error) {
	return s.storage.CountByStatus()
}

func (s *receiverService) Close() error {
	return s.storage.Close()
}
