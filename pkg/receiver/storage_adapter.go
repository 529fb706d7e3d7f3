package receiver

import (
	"errors"

	"github.com/himanishpuri/SlowScan/pkg/models"
	"github.com/himanishpuri/SlowScan/pkg/receiver/storage"
)

// ErrNotFound is returned for unknown decode IDs.
var ErrNotFound = storage.ErrNotFound

// storageAdapter adapts the storage.DBClient to implement the Storage interface.
type storageAdapter struct {
	db *storage.DBClient
}

// NewSQLiteStorage opens the SQLite decode archive at dbPath.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &storageAdapter{db: db}, nil
}

func (s *storageAdapter) SaveDecode(d *models.Decode) error {
	return s.db.SaveDecode(d)
}

func (s *storageAdapter) GetDecode(id string) (*models.Decode, error) {
	return s.db.GetDecode(id)
}

func (s *storageAdapter) ListDecodes(limit int) ([]models.DecodeSummary, error) {
	return s.db.ListDecodes(limit)
}

func (s *storageAdapter) CountByStatus() (map[string]int, error) {
	return s.db.CountByStatus()
}

func (s *storageAdapter) DeleteDecode(id string) error {
	return s.db.DeleteDecode(id)
}

func (s *storageAdapter) Close() error {
	return s.db.Close()
}

// IsNotFound reports whether err means the decode does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
