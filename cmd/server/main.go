package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/skypro1111/consult-transcriber/internal/app"
	"github.com/skypro1111/consult-transcriber/internal/config"
	"github.com/skypro1111/consult-transcriber/internal/inbox"
	"github.com/skypro1111/consult-transcriber/internal/server"
	"github.com/skypro1111/consult-transcriber/internal/session"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "consult-transcriber"
	serviceVersion    = "1.0.0"
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	envFile := flag.String("env", ".env", "Optional dotenv file with API keys")
	flag.Parse()

	// Secrets may live in a dotenv file; a missing file is fine
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load env file %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Configuration summary without secrets
	logger.Info("Configuration loaded",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		slog.String("strategy", cfg.Transcription.Strategy),
		slog.Int("attempts", len(cfg.Transcription.Attempts)),
		slog.Int("long_audio_threshold_ms", cfg.Transcription.LongAudioThresholdMs),
		slog.Int("segment_length_ms", cfg.Transcription.SegmentLengthMs),
		slog.Bool("summary_enabled", cfg.Summary.Enabled),
		slog.Bool("inbox_enabled", cfg.Inbox.Enabled),
		slog.String("log_level", cfg.Logging.Level),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Build(ctx, cfg, prometheus.DefaultRegisterer, logger)
	if err != nil {
		logger.Error("Failed to build pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sessions := session.NewManager(session.Config{
		Timeout:         cfg.Sessions.GetTimeoutDuration(),
		CleanupInterval: cfg.Sessions.GetCleanupInterval(),
		MaxChunks:       cfg.Sessions.MaxChunks,
		MaxChunkBytes:   cfg.Sessions.MaxChunkBytes,
	}, a.Pipeline, a.Metrics, logger)
	logger.Info("Session manager initialized",
		slog.Duration("session_timeout", cfg.Sessions.GetTimeoutDuration()),
	)

	var watcher *inbox.Watcher
	inboxDone := make(chan struct{})
	if cfg.Inbox.Enabled {
		watcher, err = inbox.NewWatcher(inbox.Config{
			Dir:        cfg.Inbox.Dir,
			OutputDir:  cfg.Inbox.OutputDir,
			Extensions: cfg.Inbox.Extensions,
			Settle:     cfg.Inbox.GetSettleDuration(),
			Workers:    cfg.Inbox.Workers,
			Enhance:    cfg.Inbox.Enhance,
		}, a.Pipeline, a.Metrics, logger)
		if err != nil {
			logger.Error("Failed to create inbox watcher", slog.String("error", err.Error()))
			os.Exit(1)
		}
		go func() {
			defer close(inboxDone)
			if err := watcher.Run(ctx); err != nil {
				logger.Error("Inbox watcher failed", slog.String("error", err.Error()))
			}
		}()
	} else {
		close(inboxDone)
	}

	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(server.Dependencies{
			Config:   cfg,
			Pipeline: a.Pipeline,
			Sessions: sessions,
			Metrics:  a.Metrics,
			Stats:    statsFunc(a, watcher),
		}, logger)

		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...")

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	cancel()
	<-inboxDone

	sessions.Stop()

	if err := a.Close(); err != nil {
		logger.Error("Error closing engines", slog.String("error", err.Error()))
	}

	stats := sessions.GetStats()
	logger.Info("Final session statistics",
		slog.Uint64("sessions_created", stats.Created),
		slog.Uint64("sessions_finalized", stats.Finalized),
		slog.Uint64("chunks_received", stats.Chunks),
	)

	logger.Info("Service stopped")
}

// statsFunc collects component statistics for /stats
func statsFunc(a *app.App, watcher *inbox.Watcher) func() map[string]interface{} {
	return func() map[string]interface{} {
		names := make([]string, 0, len(a.Recognizers))
		for _, r := range a.Recognizers {
			names = append(names, r.Name())
		}

		stats := map[string]interface{}{
			"engines":     names,
			"calibration": a.Engine.CalibrationStats(),
		}
		if remote, ok := a.RemoteStats(); ok {
			stats["remote_engine"] = remote
		}
		if watcher != nil {
			stats["inbox"] = watcher.GetStats()
		}
		return stats
	}
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
