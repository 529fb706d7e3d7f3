//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"
)

const shutdownGrace = 15 * time.Second

// route is one API endpoint. The same table drives registration, the
// startup banner and the index served on /.
type route struct {
	pattern string
	about   string
	handler http.HandlerFunc
}

func (s *Server) routes() []route {
	return []route{
		{"GET /health", "Health check", s.handleHealth},
		{"GET /metrics", "Prometheus metrics", s.metrics.Handler().ServeHTTP},
		{"GET /api/stats", "Archive summary", s.handleStats},
		{"GET /api/modes", "Supported SSTV modes", s.handleModes},
		{"POST /api/decode", "Decode an uploaded recording", s.handleDecode},
		{"GET /api/decodes", "List archived decodes", s.handleListDecodes},
		{"GET /api/decodes/{id}", "Get a decode", s.handleGetDecode},
		{"GET /api/decodes/{id}/image", "Decoded image (PNG)", s.handleDecodeImage},
		{"DELETE /api/decodes/{id}", "Delete a decode", s.handleDeleteDecode},
	}
}

// setupRoutes builds the mux wrapped in CORS and request logging.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	for _, rt := range s.routes() {
		mux.Handle(rt.pattern, rt.handler)
	}
	return corsMiddleware(s.config.AllowedOrigins)(s.logRequests(mux))
}

func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	wildcard := len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			origin := r.Header.Get("Origin")

			switch {
			case wildcard:
				h.Set("Access-Control-Allow-Origin", "*")
			case origin != "" && slices.Contains(allowedOrigins, origin):
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			default:
				origin = ""
			}

			if wildcard || origin != "" {
				h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
				h.Set("Access-Control-Max-Age", "3600")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// logRequests logs every request at DEBUG with its status and latency.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.log.Debugf("%s %s from %s -> %d (%v)", r.Method, r.URL.Path, clientIP(r), sw.status, time.Since(start).Round(time.Millisecond))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// clientIP prefers proxy headers over the socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Start serves until ctx is done, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Infof("SlowScan server listening on %s (db %s, origins %v)", srv.Addr, s.config.DBPath, s.config.AllowedOrigins)
	for _, rt := range s.routes() {
		s.log.Infof("   %-32s %s", rt.pattern, rt.about)
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.log.Infof("Shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
