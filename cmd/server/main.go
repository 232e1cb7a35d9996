// Package main is the entry point for the online compiler server.
//
// main only assembles things: it loads the configuration, builds the logger,
// sets up tracing and hands everything to internal/server. All behaviour
// lives in the internal packages.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/sakif/online-compiler/internal/assistant"
	"github.com/sakif/online-compiler/internal/config"
	"github.com/sakif/online-compiler/internal/executor/judge0"
	"github.com/sakif/online-compiler/internal/server"
	"github.com/sakif/online-compiler/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	// === 1. CONFIGURATION ===
	// defaults → YAML file → environment; see internal/config.
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. LOGGING ===
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	// === 3. TRACING ===
	// Spans go to stdout when tracing.enabled is set; otherwise the no-op provider stays.
	shutdownTracing, err := telemetry.Setup(cfg.Tracing.Enabled, os.Stdout)
	if err != nil {
		logger.Error("failed to set up tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Error("failed to flush traces", slog.String("error", err.Error()))
		}
	}()

	// === 4. SERVER ===
	srv, err := server.New(server.Config{
		Port: cfg.Port,
		Judge0: judge0.Config{
			BaseURL:      cfg.Judge0.BaseURL,
			APIKey:       cfg.Judge0.APIKey,
			APIKeyHeader: cfg.Judge0.APIKeyHeader,
			Timeout:      cfg.Judge0.Timeout,
		},
		Assistant: assistant.Config{
			APIKey:   cfg.Assistant.APIKey,
			Endpoint: cfg.Assistant.Endpoint,
			Model:    cfg.Assistant.Model,
			Timeout:  cfg.Assistant.Timeout,
		},
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		SessionSecret:  cfg.Session.Secret,
		SessionIdleTTL: cfg.Session.IdleTTL,
	}, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newLogger builds a text or JSON slog logger at the configured level.
// The level was checked by config.Validate, so the error is ignored.
func newLogger(cfg config.LogConfig) *slog.Logger {
	level, _ := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
