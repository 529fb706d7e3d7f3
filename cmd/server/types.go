//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"time"

	"github.com/himanishpuri/SlowScan/pkg/models"
)

// DecodeDTO represents a decode in API responses
type DecodeDTO struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Mode       string    `json:"mode,omitempty"`
	VIS        uint8     `json:"vis"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	Width      int       `json:"width,omitempty"`
	Height     int       `json:"height,omitempty"`
	Lines      int       `json:"lines"`
	Degraded   []int     `json:"degraded_lines"`
	SNR        float64   `json:"snr_db"`
	SkewPPM    float64   `json:"clock_skew_ppm"`
	FreqShift  float64   `json:"freq_shift_hz"`
	DurationMs int       `json:"duration_ms"`
	ImageURL   string    `json:"image_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`

	// Error is set when the decode stopped early.
	Error string `json:"error,omitempty"`
}

func toDecodeDTO(d *models.Decode) DecodeDTO {
	dto := DecodeDTO{
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
		CreatedAt:  d.CreatedAt,
	}
	if dto.Reason == "none" {
		dto.Reason = ""
	}
	if dto.Degraded == nil {
		dto.Degraded = []int{}
	}
	if d.ImagePath != "" {
		dto.ImageURL = "/api/decodes/" + d.ID + "/image"
	}
	return dto
}

// DecodeSummaryDTO is one row of GET /api/decodes
type DecodeSummaryDTO struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Mode      string    `json:"mode,omitempty"`
	Status    string    `json:"status"`
	SNR       float64   `json:"snr_db"`
	CreatedAt time.Time `json:"created_at"`
}

// ListDecodesResponse is the response for GET /api/decodes
type ListDecodesResponse struct {
	Decodes []DecodeSummaryDTO `json:"decodes"`
	Count   int                `json:"count"`
}

// DeleteDecodeResponse is the response for DELETE /api/decodes/{id}
type DeleteDecodeResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// ModeDTO describes one supported mode
type ModeDTO struct {
	Name       string  `json:"name"`
	ShortName  string  `json:"short_name"`
	VIS        uint8   `json:"vis"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Color      string  `json:"color"`
	DurationMs float64 `json:"duration_ms"`
}

// StatsResponse summarizes the archive
type StatsResponse struct {
	Status       string         `json:"status"`
	DatabasePath string         `json:"database_path"`
	Total        int            `json:"total"`
	ByStatus     map[string]int `json:"by_status"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
