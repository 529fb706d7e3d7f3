//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/himanishpuri/SlowScan/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "slowscan.sqlite3"
const errDBClientNil = "db client is nil"

// ErrNotFound is returned when no decode has the requested ID.
var ErrNotFound = errors.New("decode not found")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// DecodeRow is the archived form of models.Decode.
type DecodeRow struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	Source     string `gorm:"index:idx_decode_source" json:"source"`
	Mode       string `gorm:"index:idx_decode_mode" json:"mode"`
	VIS        uint8  `json:"vis"`
	Status     string `gorm:"index:idx_decode_status" json:"status"`
	Reason     string `json:"reason"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Lines      int    `json:"lines"`
	Degraded   []int  `gorm:"serializer:json" json:"degraded"`
	SNR        float64
	SkewPPM    float64
	FreqShift  float64
	DurationMs int
	ImagePath  string
	CreatedAt  time.Time `gorm:"index:idx_decode_created"`
}

func (DecodeRow) TableName() string { return "decodes" }

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("SLOWSCAN_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&DecodeRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// SaveDecode stores d, assigning CreatedAt when it is zero.
func (c *DBClient) SaveDecode(d *models.Decode) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	if d.ID == "" {
		return errors.New("decode has no ID")
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	row := toRow(d)
	if err := c.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("creating decode: %w", err)
	}
	return nil
}

func (c *DBClient) GetDecode(id string) (*models.Decode, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var row DecodeRow
	err := c.DB.Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying decode: %w", err)
	}
	d := fromRow(row)
	return &d, nil
}

// ListDecodes returns summaries newest first. limit <= 0 returns all.
func (c *DBClient) ListDecodes(limit int) ([]models.DecodeSummary, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	q := c.DB.Order("created_at DESC").Order("id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []DecodeRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing decodes: %w", err)
	}
	out := make([]models.DecodeSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.DecodeSummary{
			ID:        r.ID,
			Source:    r.Source,
			Mode:      r.Mode,
			Status:    r.Status,
			SNR:       r.SNR,
			CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

// CountByStatus returns how many archived decodes ended in each status.
func (c *DBClient) CountByStatus() (map[string]int, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rows []struct {
		Status string
		N      int
	}
	if err := c.DB.Model(&DecodeRow{}).Select("status, count(*) as n").Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("counting decodes: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

func (c *DBClient) DeleteDecode(id string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	res := c.DB.Where("id = ?", id).Delete(&DecodeRow{})
	if res.Error != nil {
		return fmt.Errorf("deleting decode: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func toRow(d *models.Decode) DecodeRow {
	return DecodeRow{
		ID:         d.ID,
		Source:     d.Source,
		Mode:       d.Mode,
		VIS:        d.VIS,
		Status:     d.Status,
		Reason:     d.Reason,
		Width:      d.Width,
		Height:     d.Height,
		Lines:      d.Lines,
		Degraded:   d.Degraded,
		SNR:        d.SNR,
		SkewPPM:    d.SkewPPM,
		FreqShift:  d.FreqShift,
		DurationMs: d.DurationMs,
		ImagePath:  d.ImagePath,
		CreatedAt:  d.CreatedAt,
	}
}

func fromRow(r DecodeRow) models.Decode {
	return models.Decode{
		ID:         r.ID,
		Source:     r.Source,
		Mode:       r.Mode,
		VIS:        r.VIS,
		Status:     r.Status,
		Reason:     r.Reason,
		Width:      r.Width,
		Height:     r.Height,
		Lines:      r.Lines,
		Degraded:   r.Degraded,
		SNR:        r.SNR,
		SkewPPM:    r.SkewPPM,
		FreqShift:  r.FreqShift,
		DurationMs: r.DurationMs,
		ImagePath:  r.ImagePath,
		CreatedAt:  r.CreatedAt,
	}
}
