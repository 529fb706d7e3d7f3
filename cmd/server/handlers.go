//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/himanishpuri/SlowScan/pkg/logger"
	"github.com/himanishpuri/SlowScan/pkg/receiver"
	"github.com/himanishpuri/SlowScan/pkg/receiver/audio"
	"github.com/himanishpuri/SlowScan/pkg/sstv"
	"github.com/himanishpuri/SlowScan/pkg/sstv/modes"
	"github.com/himanishpuri/SlowScan/pkg/utils"
)

const (
	maxUploadBytes = 200 << 20
	decodeTimeout  = 10 * time.Minute
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service receiver.Service
	config  *ServerConfig
	metrics *Metrics
	log     receiver.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	TempDir        string
	AllowedOrigins []string
}

// NewServer creates a new server instance
func NewServer(service receiver.Service, config *ServerConfig, metrics *Metrics) *Server {
	return &Server{
		service: service,
		config:  config,
		metrics: metrics,
		log:     logger.GetLogger().Named("http"),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	endpoints := make(map[string]string)
	for _, rt := range s.routes() {
		endpoints[rt.pattern] = rt.about
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"service":   "SlowScan API",
		"version":   "1.0.0",
		"endpoints": endpoints,
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.service.Stats()
	if err != nil {
		s.log.Errorf("Failed to count decodes: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve stats")
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	s.respondJSON(w, http.StatusOK, StatsResponse{
		Status:       "healthy",
		DatabasePath: s.config.DBPath,
		Total:        total,
		ByStatus:     counts,
	})
}

// handleModes handles GET /api/modes
func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	all := modes.Default().All()
	out := make([]ModeDTO, len(all))
	for i, d := range all {
		out[i] = ModeDTO{
			Name:       d.Name,
			ShortName:  d.ShortName,
			VIS:        d.VIS,
			Width:      d.Width,
			Height:     d.Height,
			Color:      d.Color.String(),
			DurationMs: d.Duration(),
		}
	}
	s.respondJSON(w, http.StatusOK, out)
}

// handleDecode handles POST /api/decode (multipart file upload)
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), decodeTimeout)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	// The upload keeps its own name inside a private directory, so the
	// archive records what the client sent.
	uploadDir := filepath.Join(s.config.TempDir, fmt.Sprintf("upload_%d", time.Now().UnixNano()))
	if err := utils.MakeDir(uploadDir); err != nil {
		s.log.Errorf("Failed to create temp dir: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to process upload")
		return
	}
	defer os.RemoveAll(uploadDir)

	tempFile := filepath.Join(uploadDir, filepath.Base(header.Filename))
	out, err := os.Create(tempFile)
	if err != nil {
		s.log.Errorf("Failed to create temp file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to process upload")
		return
	}

	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		s.log.Errorf("Failed to save file: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to save uploaded file")
		return
	}
	out.Close()

	s.log.Infof("Decoding uploaded file: %s", header.Filename)
	done := s.metrics.Begin()
	rec, err := s.service.DecodeFile(ctx, tempFile)
	done()

	if rec == nil {
		switch {
		case errors.Is(err, audio.ErrInvalidWAV), errors.Is(err, sstv.ErrInvalidConfig):
			s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, audio.ErrFFmpegMissing):
			s.respondError(w, http.StatusUnsupportedMediaType, "only WAV uploads are supported on this server")
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			s.respondError(w, http.StatusServiceUnavailable, "decode timed out")
		default:
			s.log.Errorf("Failed to decode upload: %v", err)
			s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to decode: %v", err))
		}
		return
	}

	s.metrics.Observe(rec)

	dto := toDecodeDTO(rec)
	if err != nil {
		dto.Error = err.Error()
	}
	s.respondJSON(w, http.StatusCreated, dto)
}

// handleListDecodes handles GET /api/decodes
func (s *Server) handleListDecodes(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	list, err := s.service.ListDecodes(limit)
	if err != nil {
		s.log.Errorf("Failed to list decodes: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve decodes")
		return
	}

	dtos := make([]DecodeSummaryDTO, len(list))
	for i, d := range list {
		dtos[i] = DecodeSummaryDTO{
			ID:        d.ID,
			Source:    d.Source,
			Mode:      d.Mode,
			Status:    d.Status,
			SNR:       d.SNR,
			CreatedAt: d.CreatedAt,
		}
	}
	s.respondJSON(w, http.StatusOK, ListDecodesResponse{Decodes: dtos, Count: len(dtos)})
}

// handleGetDecode handles GET /api/decodes/{id}
func (s *Server) handleGetDecode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := s.service.GetDecode(id)
	if err != nil {
		s.respondLookupError(w, id, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toDecodeDTO(rec))
}

// handleDecodeImage handles GET /api/decodes/{id}/image
func (s *Server) handleDecodeImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := s.service.GetDecode(id)
	if err != nil {
		s.respondLookupError(w, id, err)
		return
	}
	if rec.ImagePath == "" {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Decode %s has no image", id))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, rec.ImagePath)
}

// handleDeleteDecode handles DELETE /api/decodes/{id}
func (s *Server) handleDeleteDecode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.service.DeleteDecode(id); err != nil {
		s.respondLookupError(w, id, err)
		return
	}

	s.log.Infof("Deleted decode %s", id)
	s.respondJSON(w, http.StatusOK, DeleteDecodeResponse{
		Message: "Decode deleted successfully",
		ID:      id,
	})
}

func (s *Server) respondLookupError(w http.ResponseWriter, id string, err error) {
	if receiver.IsNotFound(err) {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Decode with ID %s not found", id))
		return
	}
	s.log.Errorf("Failed to load decode %s: %v", id, err)
	s.respondError(w, http.StatusInternalServerError, "Failed to load decode")
}
