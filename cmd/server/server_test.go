//go:build !js && !wasm

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/himanishpuri/SlowScan/pkg/models"
	"github.com/himanishpuri/SlowScan/pkg/receiver"
	"github.com/himanishpuri/SlowScan/pkg/sstv"
	"github.com/prometheus/client_golang/prometheus"
)

// fakeService keeps decodes in memory. DecodeFile records a fixed result
// with the uploaded file's name.
type fakeService struct {
	mu      sync.Mutex
	decodes map[string]*models.Decode
	order   []string
	imgDir  string
	fail    error
}

func newFakeService(t *testing.T) *fakeService {
	return &fakeService{decodes: map[string]*models.Decode{}, imgDir: t.TempDir()}
}

func (f *fakeService) add(d *models.Decode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decodes[d.ID] = d
	f.order = append([]string{d.ID}, f.order...)
}

func (f *fakeService) DecodeFile(ctx context.Context, path string) (*models.Decode, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	id := "11111111-2222-4333-8444-555555555555"
	imgPath := filepath.Join(f.imgDir, id+".png")
	out, err := os.Create(imgPath)
	if err != nil {
		return nil, err
	}
	png.Encode(out, image.NewRGBA(image.Rect(0, 0, 4, 2)))
	out.Close()

	d := &models.Decode{
		ID:        id,
		Source:    filepath.Base(path),
		Mode:      "Martin M1",
		VIS:       0x2C,
		Status:    "completed_with_degradation",
		Reason:    "none",
		Width:     320,
		Height:    256,
		Lines:     256,
		Degraded:  []int{7},
		SNR:       18,
		ImagePath: imgPath,
		CreatedAt: time.Now(),
	}
	f.add(d)
	return d, nil
}

func (f *fakeService) DecodeSamples(ctx context.Context, source string, samples []float64, rate int) (*models.Decode, error) {
	return nil, sstv.ErrNoSignalFound
}

func (f *fakeService) GetDecode(id string) (*models.Decode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.decodes[id]
	if !ok {
		return nil, receiver.ErrNotFound
	}
	return d, nil
}

func (f *fakeService) ListDecodes(limit int) ([]models.DecodeSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.DecodeSummary
	for _, id := range f.order {
		if limit > 0 && len(out) == limit {
			break
		}
		d := f.decodes[id]
		out = append(out, models.DecodeSummary{ID: d.ID, Source: d.Source, Mode: d.Mode, Status: d.Status, SNR: d.SNR, CreatedAt: d.CreatedAt})
	}
	return out, nil
}

func (f *fakeService) DeleteDecode(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.decodes[id]; !ok {
		return receiver.ErrNotFound
	}
	delete(f.decodes, id)
	for i, v := range f.order {
		if v == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeService) Stats() (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]int{}
	for _, d := range f.decodes {
		out[d.Status]++
	}
	return out, nil
}

func (f *fakeService) Close() error { return nil }

func newTestServer(t *testing.T, svc receiver.Service) http.Handler {
	t.Helper()
	s := NewServer(svc, &ServerConfig{
		DBPath:         "test.db",
		TempDir:        t.TempDir(),
		AllowedOrigins: []string{"*"},
	}, NewMetrics(prometheus.NewRegistry()))
	return s.setupRoutes()
}

func uploadRequest(t *testing.T, name string, body []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", name)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(body)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/decode", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, newFakeService(t))
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestUnknownPath(t *testing.T) {
	h := newTestServer(t, newFakeService(t))
	if rec := serve(h, httptest.NewRequest(http.MethodGet, "/nope", nil)); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestModes(t *testing.T) {
	h := newTestServer(t, newFakeService(t))
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/modes", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got []ModeDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, m := range got {
		if m.Name == "Martin M1" && m.VIS == 0x2C && m.Width == 320 {
			found = true
		}
	}
	if !found {
		t.Errorf("Martin M1 missing from %d modes", len(got))
	}
}

func TestDecodeUploadLifecycle(t *testing.T) {
	svc := newFakeService(t)
	h := newTestServer(t, svc)

	rec := serve(h, uploadRequest(t, "pass.wav", []byte("RIFF")))
	if rec.Code != http.StatusCreated {
		t.Fatalf("decode status = %d: %s", rec.Code, rec.Body)
	}
	var dto DecodeDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &dto); err != nil {
		t.Fatal(err)
	}
	if dto.Source != "pass.wav" || dto.Mode != "Martin M1" || dto.Reason != "" {
		t.Errorf("dto = %+v", dto)
	}
	if dto.ImageURL != "/api/decodes/"+dto.ID+"/image" {
		t.Errorf("ImageURL = %q", dto.ImageURL)
	}

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/decodes", nil))
	var list ListDecodesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Count != 1 || list.Decodes[0].ID != dto.ID {
		t.Errorf("list = %+v", list)
	}

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/decodes/"+dto.ID, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/decodes/"+dto.ID+"/image", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("image status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if _, err := png.Decode(rec.Body); err != nil {
		t.Errorf("image body: %v", err)
	}

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	var stats StatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Total != 1 || stats.ByStatus["completed_with_degradation"] != 1 {
		t.Errorf("stats = %+v", stats)
	}

	rec = serve(h, httptest.NewRequest(http.MethodDelete, "/api/decodes/"+dto.ID, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("delete status = %d", rec.Code)
	}
	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/decodes/"+dto.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}
}

func TestDecodeRequiresFile(t *testing.T) {
	h := newTestServer(t, newFakeService(t))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("note", "no audio")
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/decode", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	if rec := serve(h, req); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDecodeBadAudio(t *testing.T) {
	svc := newFakeService(t)
	svc.fail = sstv.ErrInvalidConfig
	h := newTestServer(t, svc)

	if rec := serve(h, uploadRequest(t, "x.wav", []byte("junk"))); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestListDecodesBadLimit(t *testing.T) {
	h := newTestServer(t, newFakeService(t))
	if rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/decodes?limit=abc", nil)); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestImageMissing(t *testing.T) {
	svc := newFakeService(t)
	svc.add(&models.Decode{ID: "no-image", Status: "failed"})
	h := newTestServer(t, svc)

	if rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/decodes/no-image/image", nil)); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestMetricsExposeDecodes(t *testing.T) {
	h := newTestServer(t, newFakeService(t))
	serve(h, uploadRequest(t, "pass.wav", []byte("RIFF")))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`slowscan_decodes_total{mode="Martin M1",status="completed_with_degradation"} 1`,
		`slowscan_degraded_lines_total{mode="Martin M1"} 1`,
		"slowscan_decode_duration_seconds_count 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, newFakeService(t))
	req := httptest.NewRequest(http.MethodOptions, "/api/decode", nil)
	req.Header.Set("Origin", "http://example.org")
	rec := serve(h, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestRootListsRoutes(t *testing.T) {
	h := newTestServer(t, newFakeService(t))
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Endpoints map[string]string `json:"endpoints"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{"POST /api/decode", "GET /api/decodes/{id}/image", "GET /metrics"} {
		if body.Endpoints[p] == "" {
			t.Errorf("endpoint %q missing from index", p)
		}
	}
}

func TestCORSAllowList(t *testing.T) {
	s := NewServer(newFakeService(t), &ServerConfig{
		TempDir:        t.TempDir(),
		AllowedOrigins: []string{"https://a.example"},
	}, NewMetrics(prometheus.NewRegistry()))
	h := s.setupRoutes()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://a.example")
	if got := serve(h, req).Header().Get("Access-Control-Allow-Origin"); got != "https://a.example" {
		t.Errorf("allowed origin: Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://b.example")
	if got := serve(h, req).Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("other origin: Allow-Origin = %q", got)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header string
		value  string
		remote string
		want   string
	}{
		{"forwarded", "X-Forwarded-For", "10.0.0.1, 10.0.0.2", "1.2.3.4:5", "10.0.0.1"},
		{"real ip", "X-Real-IP", "10.0.0.9", "1.2.3.4:5", "10.0.0.9"},
		{"socket", "", "", "1.2.3.4:5678", "1.2.3.4"},
		{"ipv6 socket", "", "", "[::1]:80", "::1"},
		{"no port", "", "", "pipe", "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
