package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/skypro1111/consult-transcriber/internal/audio"
	"github.com/skypro1111/consult-transcriber/internal/codec"
	"github.com/skypro1111/consult-transcriber/internal/config"
	"github.com/skypro1111/consult-transcriber/internal/metrics"
	"github.com/skypro1111/consult-transcriber/internal/pipeline"
	"github.com/skypro1111/consult-transcriber/internal/speech"
	"github.com/skypro1111/consult-transcriber/internal/summary"
	"github.com/skypro1111/consult-transcriber/internal/transcription"
	"github.com/skypro1111/consult-transcriber/internal/vad"
)

// App holds the wired pipeline and the collaborators it was built from
type App struct {
	Config      *config.Config
	Metrics     *metrics.Metrics
	Recognizers []speech.Recognizer
	Engine      *transcription.Engine
	Pipeline    *pipeline.Pipeline

	remote *speech.RemoteRecognizer
}

// Build creates every component named by cfg. reg receives the metrics; nil uses the
// default registerer.
func Build(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (*App, error) {
	m := metrics.NewMetrics(reg)

	recognizers, remote, err := buildRecognizers(ctx, cfg.Engines, logger)
	if err != nil {
		return nil, err
	}

	engine, err := transcription.NewEngine(EngineConfig(cfg.Transcription), recognizers, m, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcription engine: %w", err)
	}

	enhancer, err := buildEnhancer(cfg.Summary, m, logger)
	if err != nil {
		return nil, err
	}

	decoder := codec.NewDefaultRegistry(codec.Config{
		FFmpegPath:   cfg.Codec.FFmpegPath,
		TempDir:      cfg.Codec.TempDir,
		EnableFFmpeg: cfg.Codec.EnableFFmpeg,
	}, logger)

	p := pipeline.New(pipeline.Config{FailureText: cfg.Transcription.FailureText},
		decoder,
		audio.NewCorrector(CorrectionConfig(cfg.Correction), logger),
		audio.NewNormalizer(NormalizeConfig(cfg.Normalization), logger),
		engine, enhancer, m, logger)

	names := make([]string, 0, len(recognizers))
	for _, r := range recognizers {
		names = append(names, r.Name())
	}
	logger.Info("Pipeline initialized",
		slog.Any("engines", names),
		slog.String("strategy", cfg.Transcription.Strategy),
		slog.Bool("ffmpeg", cfg.Codec.EnableFFmpeg),
		slog.Bool("summary", enhancer != nil),
	)

	return &App{
		Config:      cfg,
		Metrics:     m,
		Recognizers: recognizers,
		Engine:      engine,
		Pipeline:    p,
		remote:      remote,
	}, nil
}

// RemoteStats returns the remote engine client statistics, if that engine is enabled
func (a *App) RemoteStats() (speech.ClientStats, bool) {
	if a.remote == nil {
		return speech.ClientStats{}, false
	}
	return a.remote.GetStats(), true
}

// Close waits for in-flight remote engine requests
func (a *App) Close() error {
	if a.remote != nil {
		return a.remote.Close()
	}
	return nil
}

func buildRecognizers(ctx context.Context, cfg config.EnginesConfig, logger *slog.Logger) ([]speech.Recognizer, *speech.RemoteRecognizer, error) {
	var recognizers []speech.Recognizer
	var remote *speech.RemoteRecognizer

	if cfg.Google.Enabled {
		g, err := speech.NewGoogleRecognizer(ctx, speech.GoogleConfig{
			Endpoint:    cfg.Google.Endpoint,
			APIKey:      cfg.Google.APIKey,
			Credentials: cfg.Google.Credentials,
			Model:       cfg.Google.Model,
			UseEnhanced: cfg.Google.UseEnhanced,
			Timeout:     cfg.Google.GetTimeoutDuration(),
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create google engine: %w", err)
		}
		recognizers = append(recognizers, g)
	}

	if cfg.OpenAI.Enabled {
		w, err := speech.NewWhisperRecognizer(speech.WhisperConfig{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
			Prompt:  cfg.OpenAI.Prompt,
			Timeout: cfg.OpenAI.GetTimeoutDuration(),
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create openai engine: %w", err)
		}
		recognizers = append(recognizers, w)
	}

	if cfg.Remote.Enabled {
		r, err := speech.NewRemoteRecognizer(speech.RemoteConfig{
			Endpoint:      cfg.Remote.Endpoint,
			APIKey:        cfg.Remote.APIKey,
			Model:         cfg.Remote.Model,
			Timeout:       cfg.Remote.GetTimeoutDuration(),
			MaxRetries:    cfg.Remote.MaxRetries,
			MaxConcurrent: cfg.Remote.MaxConcurrent,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create remote engine: %w", err)
		}
		recognizers = append(recognizers, r)
		remote = r
	}

	if cfg.Local.Enabled {
		l, err := speech.NewLocalRecognizer(speech.LocalConfig{
			BinaryPath: cfg.Local.BinaryPath,
			ModelPath:  cfg.Local.ModelPath,
			Threads:    cfg.Local.Threads,
			TempDir:    cfg.Local.TempDir,
			Timeout:    cfg.Local.GetTimeoutDuration(),
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create local engine: %w", err)
		}
		recognizers = append(recognizers, l)
	}

	if len(recognizers) == 0 {
		return nil, nil, fmt.Errorf("no speech engine is enabled")
	}
	return recognizers, remote, nil
}

func buildEnhancer(cfg config.SummaryConfig, m *metrics.Metrics, logger *slog.Logger) (*summary.Fallback, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	e, err := summary.NewOpenAIEnhancer(summary.OpenAIConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Prompt:      cfg.Prompt,
		Temperature: cfg.Temperature,
		Timeout:     cfg.GetTimeoutDuration(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create summary enhancer: %w", err)
	}

	return &summary.Fallback{
		Enhancer:  e,
		MinLength: cfg.MinLength,
		Timeout:   cfg.GetTimeoutDuration(),
		Metrics:   m,
		Logger:    logger,
	}, nil
}

// EngineConfig converts the transcription section into the engine configuration
func EngineConfig(c config.TranscriptionConfig) transcription.Config {
	attempts := make([]transcription.Attempt, 0, len(c.Attempts))
	for _, a := range c.Attempts {
		attempts = append(attempts, transcription.Attempt{Engine: a.Engine, Locale: a.Locale})
	}

	return transcription.Config{
		Strategy:             transcription.Strategy(c.Strategy),
		Attempts:             attempts,
		CallTimeout:          c.GetCallTimeout(),
		MinInputBytes:        c.MinInputBytes,
		MinDurationMs:        c.MinDurationMs,
		LongAudioThresholdMs: c.LongAudioThresholdMs,
		SegmentLengthMs:      c.SegmentLengthMs,
		OverlapMs:            c.OverlapMs,
		DefaultConfidence:    c.DefaultConfidence,
		NearEqualConfidence:  c.NearEqualConfidence,
		FailureText:          c.FailureText,
		InaudibleMarker:      c.InaudibleMarker,
		RejectedText:         c.RejectedText,
		Calibration: vad.Config{
			MinCalibrationMs: c.Calibration.MinMs,
			MaxCalibrationMs: c.Calibration.MaxMs,
			CalibrationRatio: c.Calibration.Ratio,
			FrameMs:          c.Calibration.FrameMs,
			SilenceRMS:       c.Calibration.SilenceRMS,
			MinSNRDB:         c.Calibration.MinSNRDB,
			ThresholdRatio:   c.Calibration.ThresholdRatio,
		},
	}
}

// CorrectionConfig converts the correction section
func CorrectionConfig(c config.CorrectionConfig) audio.CorrectionConfig {
	table := make(map[int]int, len(c.Table))
	for from, to := range c.Table {
		table[from] = to
	}

	return audio.CorrectionConfig{
		PlausibleMinRate:       c.PlausibleMinRate,
		Table:                  table,
		Factor:                 c.Factor,
		MaxRate:                c.MaxRate,
		ClampRate:              c.ClampRate,
		DurationWarnMs:         c.DurationWarnMs,
		CalibrationStep:        c.CalibrationStep,
		MinPlausibleDurationMs: c.MinPlausibleDurationMs,
	}
}

// NormalizeConfig converts the normalization section
func NormalizeConfig(c config.NormalizationConfig) audio.NormalizeConfig {
	return audio.NormalizeConfig{
		Downmix:        c.Downmix,
		PeakNormalize:  c.PeakNormalize,
		TargetPeakDBFS: c.TargetPeakDBFS,
		Filter:         c.Filter,
		HighPassHz:     c.HighPassHz,
		LowPassHz:      c.LowPassHz,
	}
}
