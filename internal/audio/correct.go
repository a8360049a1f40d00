package audio

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
)

// CorrectionConfig holds the relabeling table for capture devices that report the wrong
// sample rate. The values are empirical and deployment-specific.
type CorrectionConfig struct {
	PlausibleMinRate       int
	Table                  map[int]int
	Factor                 float64
	MaxRate                int
	ClampRate              int
	DurationWarnMs         int
	CalibrationStep        float64
	MinPlausibleDurationMs int
}

// DefaultCorrectionConfig returns the table observed on the clinic's capture devices
func DefaultCorrectionConfig() CorrectionConfig {
	return CorrectionConfig{
		PlausibleMinRate:       22050,
		Table:                  map[int]int{16000: 44100, 8000: 44000},
		Factor:                 2.75,
		MaxRate:                48000,
		ClampRate:              44100,
		DurationWarnMs:         100,
		CalibrationStep:        0.02,
		MinPlausibleDurationMs: 500,
	}
}

// Feedback is the listener's report of playback speed
type Feedback string

const (
	FeedbackNormal Feedback = "normal"
	FeedbackSlow   Feedback = "slow"
	FeedbackFast   Feedback = "fast"
)

// ParseFeedback accepts the English values and the Portuguese labels used by the web client
func ParseFeedback(s string) (Feedback, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return FeedbackNormal, nil
	case "slow", "lento":
		return FeedbackSlow, nil
	case "fast", "rapido", "rápido":
		return FeedbackFast, nil
	}
	return "", fmt.Errorf("feedback must be one of [slow, fast, normal], got '%s'", s)
}

// Corrector relabels implausibly low sample rates without resampling
type Corrector struct {
	cfg    CorrectionConfig
	logger *slog.Logger
}

// NewCorrector creates a corrector. The table is copied.
func NewCorrector(cfg CorrectionConfig, logger *slog.Logger) *Corrector {
	table := make(map[int]int, len(cfg.Table))
	for k, v := range cfg.Table {
		table[k] = v
	}
	cfg.Table = table
	return &Corrector{cfg: cfg, logger: logger}
}

// TargetRate returns the rate a declared rate is relabeled to, or the same rate when no
// correction applies
func (c *Corrector) TargetRate(rate int) int {
	if rate > c.cfg.PlausibleMinRate || rate <= 0 {
		return rate
	}
	if target, ok := c.cfg.Table[rate]; ok {
		return target
	}
	target := int(math.Round(float64(rate) * c.cfg.Factor))
	if target > c.cfg.MaxRate {
		target = c.cfg.ClampRate
	}
	return target
}

// Correct relabels the buffer when its declared rate is implausible. Plausible buffers
// are returned as is. Warnings describe the duration shift and any result that still
// looks wrong.
func (c *Corrector) Correct(b *Buffer) (*Buffer, []string) {
	target := c.TargetRate(b.SampleRate)
	if target == b.SampleRate {
		return b, nil
	}

	before := b.DurationMs()
	corrected := b.WithSampleRate(target)
	after := corrected.DurationMs()

	c.logger.Info("Sample rate relabeled",
		slog.Int("from_rate", b.SampleRate),
		slog.Int("to_rate", target),
		slog.Int("duration_before_ms", before),
		slog.Int("duration_after_ms", after),
	)

	return corrected, c.check(b.SampleRate, target, before, after)
}

// Calibrate nudges the declared rate by one calibration step. Slow playback raises
// the rate and fast playback lowers it.
func (c *Corrector) Calibrate(b *Buffer, feedback Feedback) (*Buffer, []string) {
	var factor float64
	switch feedback {
	case FeedbackSlow:
		factor = 1 + c.cfg.CalibrationStep
	case FeedbackFast:
		factor = 1 - c.cfg.CalibrationStep
	default:
		return b, nil
	}

	target := int(math.Round(float64(b.SampleRate) * factor))
	before := b.DurationMs()
	calibrated := b.WithSampleRate(target)

	c.logger.Info("Sample rate calibrated from playback feedback",
		slog.String("feedback", string(feedback)),
		slog.Int("from_rate", b.SampleRate),
		slog.Int("to_rate", target),
	)

	return calibrated, []string{fmt.Sprintf("playback reported %s: sample rate calibrated %d -> %d Hz, duration %d -> %d ms",
		feedback, b.SampleRate, target, before, calibrated.DurationMs())}
}

func (c *Corrector) check(from, to, before, after int) []string {
	var warnings []string

	if drift := after - before; drift > c.cfg.DurationWarnMs || -drift > c.cfg.DurationWarnMs {
		warnings = append(warnings, fmt.Sprintf(
			"sample rate relabeled %d -> %d Hz by fixed-table heuristic: duration changed %d -> %d ms",
			from, to, before, after))
	}
	if to <= c.cfg.PlausibleMinRate {
		warnings = append(warnings, fmt.Sprintf("corrected sample rate %d Hz is still implausibly low", to))
	}
	if after < c.cfg.MinPlausibleDurationMs {
		warnings = append(warnings, fmt.Sprintf("corrected duration %d ms is implausibly short; the recording may have a genuine %d Hz rate", after, from))
	}

	for _, w := range warnings {
		c.logger.Warn("Sample rate correction check", slog.String("warning", w))
	}
	return warnings
}
