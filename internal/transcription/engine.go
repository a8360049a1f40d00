package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/skypro1111/consult-transcriber/internal/audio"
	"github.com/skypro1111/consult-transcriber/internal/metrics"
	"github.com/skypro1111/consult-transcriber/internal/speech"
	"github.com/skypro1111/consult-transcriber/internal/vad"
)

// Engine transcribes buffers using an ordered list of recognizer attempts.
// It holds no per-call state and is safe for concurrent use.
type Engine struct {
	cfg         Config
	recognizers map[string]speech.Recognizer
	calibrator  *vad.Calibrator
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// attemptOutcome is the result of recognizing one buffer
type attemptOutcome struct {
	candidate Candidate
	ok        bool
	warnings  []string
	profile   vad.Profile
}

// NewEngine validates cfg and binds every attempt to a recognizer by name
func NewEngine(cfg Config, recognizers []speech.Recognizer, m *metrics.Metrics, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("transcription config: %w", err)
	}

	byName := make(map[string]speech.Recognizer, len(recognizers))
	for _, r := range recognizers {
		if r == nil {
			panic("transcription: nil recognizer")
		}
		byName[r.Name()] = r
	}
	for _, a := range cfg.Attempts {
		if _, ok := byName[a.Engine]; !ok {
			return nil, fmt.Errorf("attempt uses unknown engine %q", a.Engine)
		}
	}

	calibrator, err := vad.NewCalibrator(cfg.Calibration)
	if err != nil {
		return nil, fmt.Errorf("calibration config: %w", err)
	}

	return &Engine{
		cfg:         cfg.clone(),
		recognizers: byName,
		calibrator:  calibrator,
		metrics:     m,
		logger:      logger,
	}, nil
}

// Config returns a copy of the engine configuration
func (e *Engine) Config() Config {
	return e.cfg.clone()
}

// CalibrationStats returns the ambient calibration counters
func (e *Engine) CalibrationStats() vad.Stats {
	return e.calibrator.GetStats()
}

// Transcribe never returns an error: rejected input, unintelligible audio and engine
// failures all produce a Result with the matching Status and a sentinel Text
func (e *Engine) Transcribe(ctx context.Context, b *audio.Buffer) *Result {
	return e.TranscribeNormalized(ctx, b, 1)
}

// TranscribeNormalized transcribes a buffer whose amplitude was scaled by gain during
// normalization. The silence gate divides the gain out.
func (e *Engine) TranscribeNormalized(ctx context.Context, b *audio.Buffer, gain float64) *Result {
	if reason := e.guard(b); reason != "" {
		e.logger.Warn("Transcription rejected", slog.String("reason", reason))
		return &Result{
			Text:     e.cfg.RejectedText,
			Warnings: []string{reason},
			Status:   StatusRejected,
		}
	}

	if b.DurationMs() > e.cfg.LongAudioThresholdMs {
		return e.transcribeSegmented(ctx, b, gain)
	}

	outcome := e.recognize(ctx, b, gain, "")
	if !outcome.ok {
		return &Result{
			Text:        e.cfg.FailureText,
			Warnings:    outcome.warnings,
			Status:      StatusFailed,
			Calibration: &outcome.profile,
		}
	}

	return &Result{
		Text:        outcome.candidate.Text,
		Warnings:    outcome.warnings,
		Status:      StatusOK,
		Engine:      outcome.candidate.Engine,
		Locale:      outcome.candidate.Locale,
		Confidence:  outcome.candidate.Confidence,
		Calibration: &outcome.profile,
	}
}

// guard returns a rejection reason, or "" for usable input
func (e *Engine) guard(b *audio.Buffer) string {
	if b == nil || len(b.Data) == 0 {
		return "no audio to transcribe"
	}
	if err := b.Validate(); err != nil {
		return fmt.Sprintf("invalid audio buffer: %v", err)
	}
	if len(b.Data) < e.cfg.MinInputBytes {
		return fmt.Sprintf("audio too small: %d bytes, minimum %d", len(b.Data), e.cfg.MinInputBytes)
	}
	if ms := b.DurationMs(); ms < e.cfg.MinDurationMs {
		return fmt.Sprintf("audio too short: %d ms, minimum %d ms", ms, e.cfg.MinDurationMs)
	}
	return ""
}

func (e *Engine) transcribeSegmented(ctx context.Context, b *audio.Buffer, gain float64) *Result {
	result := &Result{UsedSegmentation: true}

	segments, err := audio.Plan(b, e.cfg.SegmentLengthMs, e.cfg.OverlapMs)
	if err != nil {
		result.Text = e.cfg.FailureText
		result.Status = StatusFailed
		result.Warnings = append(result.Warnings, fmt.Sprintf("segmentation failed: %v", err))
		return result
	}

	e.logger.Info("Transcribing long audio in segments",
		slog.Int("duration_ms", b.DurationMs()),
		slog.Int("segments", len(segments)))

	parts := make([]string, 0, len(segments))
	succeeded := 0
	confidenceSum := 0.0

	for _, seg := range segments {
		prefix := fmt.Sprintf("segment %d (%d-%d ms)", seg.Index, seg.StartMs, seg.EndMs)
		outcome := e.recognize(ctx, seg.Buffer, gain, prefix+": ")
		result.Warnings = append(result.Warnings, outcome.warnings...)

		profile := outcome.profile
		so := SegmentOutcome{Index: seg.Index, StartMs: seg.StartMs, EndMs: seg.EndMs, Calibration: &profile}
		if outcome.ok {
			so.Text = outcome.candidate.Text
			so.Engine = outcome.candidate.Engine
			so.Locale = outcome.candidate.Locale
			so.Confidence = outcome.candidate.Confidence
			succeeded++
			confidenceSum += so.Confidence
		} else {
			so.Text = e.cfg.InaudibleMarker
			so.Inaudible = true
			e.warn(&result.Warnings, prefix+": inaudible")
		}
		e.metrics.RecordSegment(so.Inaudible)

		result.Segments = append(result.Segments, so)
		parts = append(parts, so.Text)
	}

	if succeeded == 0 {
		result.Text = e.cfg.FailureText
		result.Status = StatusFailed
		return result
	}

	// overlapping windows are joined as-is, words at a boundary may repeat
	result.Text = strings.Join(parts, " ")
	result.Status = StatusOK
	result.Confidence = confidenceSum / float64(succeeded)
	return result
}

// recognize calibrates b and runs the configured attempts against it. The profile
// gates and annotates only; it is not forwarded to the recognizers.
func (e *Engine) recognize(ctx context.Context, b *audio.Buffer, gain float64, prefix string) attemptOutcome {
	var out attemptOutcome

	profile := e.calibrator.CalibrateAt(b, gain)
	out.profile = profile
	e.logger.Debug("Ambient calibration",
		slog.Int("calibration_ms", profile.CalibrationMs),
		slog.Float64("noise_floor_rms", profile.NoiseFloorRMS),
		slog.Float64("snr_db", profile.SNRDB))

	if profile.Silent {
		e.metrics.RecordSilentInput()
		e.warn(&out.warnings, fmt.Sprintf("%sno signal above the silence threshold (peak RMS %.0f)", prefix, profile.PeakRMS))
		return out
	}
	if profile.LowSNR {
		e.warn(&out.warnings, fmt.Sprintf("%slow signal-to-noise ratio (%.1f dB)", prefix, profile.SNRDB))
	}

	var candidates []Candidate
	for _, a := range e.cfg.Attempts {
		if err := ctx.Err(); err != nil {
			e.warn(&out.warnings, fmt.Sprintf("%stranscription cancelled: %v", prefix, err))
			break
		}

		c, err := e.attempt(ctx, a, b)
		if err != nil {
			e.warn(&out.warnings, fmt.Sprintf("%sengine %s (%s): %v", prefix, a.Engine, a.Locale, err))
			continue
		}

		candidates = append(candidates, c)
		if e.cfg.Strategy == StrategyFirstSuccess {
			break
		}
	}

	out.candidate, out.ok = Select(candidates, e.cfg.NearEqualConfidence)
	return out
}

// attempt makes one bounded recognizer call
func (e *Engine) attempt(ctx context.Context, a Attempt, b *audio.Buffer) (Candidate, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	rec, err := e.recognizers[a.Engine].Recognize(callCtx, b, a.Locale)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		outcome := "error"
		if errors.Is(err, speech.ErrUnintelligible) {
			outcome = "unintelligible"
		}
		e.metrics.RecordEngineAttempt(a.Engine, a.Locale, outcome, elapsed)
		return Candidate{}, err
	}

	e.metrics.RecordEngineAttempt(a.Engine, a.Locale, "success", elapsed)

	confidence := e.cfg.DefaultConfidence
	if rec.HasConfidence {
		confidence = clamp01(rec.Confidence)
	}

	return Candidate{
		Text:       rec.Text,
		Confidence: confidence,
		Engine:     a.Engine,
		Locale:     a.Locale,
	}, nil
}

func (e *Engine) warn(warnings *[]string, msg string) {
	*warnings = append(*warnings, msg)
	e.logger.Warn("Recognition warning", slog.String("warning", msg))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
