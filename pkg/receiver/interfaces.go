package receiver

import (
	"context"

	"github.com/himanishpuri/SlowScan/pkg/models"
)

type Service interface {
	// DecodeFile decodes an audio file and archives the attempt. The record
	// is returned whenever the audio could be read, together with the
	// decode error if the decode failed.
	DecodeFile(ctx context.Context, path string) (*models.Decode, error)
	DecodeSamples(ctx context.Context, source string, samples []float64, sampleRate int) (*models.Decode, error)
	GetDecode(id string) (*models.Decode, error)
	ListDecodes(limit int) ([]models.DecodeSummary, error)
	DeleteDecode(id string) error
	Stats() (map[string]int, error)
	Close() error
}

type Storage interface {
	SaveDecode(d *models.Decode) error
	GetDecode(id string) (*models.Decode, error)
	ListDecodes(limit int) ([]models.DecodeSummary, error)
	CountByStatus() (map[string]int, error)
	DeleteDecode(id string) error
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
