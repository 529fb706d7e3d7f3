//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"net/http"
	"time"

	"github.com/himanishpuri/SlowScan/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for decode activity.
type Metrics struct {
	registry *prometheus.Registry

	decodesTotal   *prometheus.CounterVec // by status and mode
	degradedLines  *prometheus.CounterVec // by mode
	decodeDuration prometheus.Histogram   // wall time per decode
	snr            *prometheus.GaugeVec   // last SNR by mode
	clockSkew      *prometheus.GaugeVec   // last skew by mode
	inFlight       prometheus.Gauge
}

// NewMetrics registers the decode collectors and the Go runtime
// collectors on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		decodesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slowscan_decodes_total",
				Help: "Decode attempts by final status and mode",
			},
			[]string{"status", "mode"},
		),
		degradedLines: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slowscan_degraded_lines_total",
				Help: "Scan lines decoded without a confirmed sync pulse",
			},
			[]string{"mode"},
		),
		decodeDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "slowscan_decode_duration_seconds",
				Help:    "Wall time of one decode request",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
		),
		snr: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "slowscan_last_snr_db",
				Help: "SNR of the most recent decode",
			},
			[]string{"mode"},
		),
		clockSkew: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "slowscan_last_clock_skew_ppm",
				Help: "Sender clock skew of the most recent decode",
			},
			[]string{"mode"},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "slowscan_decodes_in_flight",
				Help: "Decodes currently running",
			},
		),
	}
}

// Begin marks a decode as running and returns the func that ends it.
func (m *Metrics) Begin() func() {
	m.inFlight.Inc()
	start := time.Now()
	return func() {
		m.inFlight.Dec()
		m.decodeDuration.Observe(time.Since(start).Seconds())
	}
}

// Observe records a finished decode.
func (m *Metrics) Observe(rec *models.Decode) {
	mode := rec.Mode
	if mode == "" {
		mode = "none"
	}
	m.decodesTotal.WithLabelValues(rec.Status, mode).Inc()
	if rec.Mode == "" {
		return
	}
	m.degradedLines.WithLabelValues(mode).Add(float64(len(rec.Degraded)))
	m.snr.WithLabelValues(mode).Set(rec.SNR)
	m.clockSkew.WithLabelValues(mode).Set(rec.SkewPPM)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
