//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/himanishpuri/SlowScan/pkg/logger"
	"github.com/himanishpuri/SlowScan/pkg/receiver"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	port           int
	dbPath         string
	tempDir        string
	outDir         string
	profilePath    string
	sampleRate     int
	allowedOrigins string
)

func init() {
	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&dbPath, "db", getEnvOrDefault("SLOWSCAN_DB_PATH", "slowscan.sqlite3"), "Path to SQLite decode archive")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("SLOWSCAN_TEMP_DIR", "/tmp"), "Temporary directory")
	flag.StringVar(&outDir, "out", getEnvOrDefault("SLOWSCAN_OUT_DIR", "decodes"), "Decoded image directory")
	flag.StringVar(&profilePath, "profile", "", "YAML decoder profile")
	flag.IntVar(&sampleRate, "rate", 0, "Conversion sample rate for non-WAV uploads")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	flag.Parse()

	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		origins = strings.Split(allowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	profile := receiver.DefaultProfile()
	if profilePath != "" {
		p, err := receiver.LoadProfile(profilePath)
		if err != nil {
			logger.Fatalf("Failed to load profile: %v", err)
		}
		profile = p
	}
	if lvl, err := profile.Level(); err == nil && os.Getenv("LOG_LEVEL") == "" {
		logger.SetLevel(lvl)
	}

	service, err := receiver.NewService(
		receiver.WithDBPath(dbPath),
		receiver.WithTempDir(tempDir),
		receiver.WithOutDir(outDir),
		receiver.WithSampleRate(sampleRate),
		receiver.WithProfile(profile),
	)
	if err != nil {
		logger.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	config := &ServerConfig{
		Port:           port,
		DBPath:         dbPath,
		TempDir:        tempDir,
		AllowedOrigins: origins,
	}

	server := NewServer(service, config, NewMetrics(prometheus.NewRegistry()))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}
}
