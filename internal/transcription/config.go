package transcription

import (
	"fmt"
	"time"

	"github.com/skypro1111/consult-transcriber/internal/vad"
)

// Strategy decides how attempts are combined
type Strategy string

const (
	// StrategyFirstSuccess stops at the first usable transcript
	StrategyFirstSuccess Strategy = "first_success"
	// StrategyBestConfidence runs every attempt and keeps the best candidate
	StrategyBestConfidence Strategy = "best_confidence"
)

// Attempt is one engine and locale pair
type Attempt struct {
	Engine string `json:"engine"`
	Locale string `json:"locale"`
}

// Config is the immutable engine configuration
type Config struct {
	Strategy             Strategy
	Attempts             []Attempt
	CallTimeout          time.Duration
	MinInputBytes        int
	MinDurationMs        int
	LongAudioThresholdMs int
	SegmentLengthMs      int
	OverlapMs            int
	DefaultConfidence    float64 // used when an engine reports none
	NearEqualConfidence  float64
	FailureText          string
	InaudibleMarker      string
	RejectedText         string
	Calibration          vad.Config
}

// DefaultConfig returns the configuration of a Portuguese-first deployment
func DefaultConfig() Config {
	return Config{
		Strategy: StrategyFirstSuccess,
		Attempts: []Attempt{
			{Engine: "google", Locale: "pt-BR"},
			{Engine: "google", Locale: "pt-PT"},
		},
		CallTimeout:          30 * time.Second,
		MinInputBytes:        1000,
		MinDurationMs:        500,
		LongAudioThresholdMs: 300000,
		SegmentLengthMs:      240000,
		OverlapMs:            5000,
		DefaultConfidence:    0.5,
		NearEqualConfidence:  0.1,
		FailureText:          "[transcription failed: the audio could not be understood]",
		InaudibleMarker:      "[inaudible segment]",
		RejectedText:         "[transcription rejected: audio too short or empty]",
		Calibration:          vad.DefaultConfig(),
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.Strategy != StrategyFirstSuccess && c.Strategy != StrategyBestConfidence {
		return fmt.Errorf("strategy must be %s or %s, got %q", StrategyFirstSuccess, StrategyBestConfidence, c.Strategy)
	}

	if len(c.Attempts) == 0 {
		return fmt.Errorf("at least one attempt is required")
	}
	for i, a := range c.Attempts {
		if a.Engine == "" || a.Locale == "" {
			return fmt.Errorf("attempt %d needs an engine and a locale", i)
		}
	}

	if c.CallTimeout <= 0 {
		return fmt.Errorf("call_timeout must be positive, got %v", c.CallTimeout)
	}

	if c.MinInputBytes < 0 || c.MinDurationMs < 0 {
		return fmt.Errorf("minimum input size and duration cannot be negative")
	}

	if c.SegmentLengthMs <= c.OverlapMs || c.OverlapMs < 0 {
		return fmt.Errorf("segment_length_ms must exceed overlap_ms, got %d <= %d", c.SegmentLengthMs, c.OverlapMs)
	}

	if c.LongAudioThresholdMs <= 0 {
		return fmt.Errorf("long_audio_threshold_ms must be positive, got %d", c.LongAudioThresholdMs)
	}

	if c.DefaultConfidence < 0 || c.DefaultConfidence > 1 {
		return fmt.Errorf("default_confidence must be between 0 and 1, got %f", c.DefaultConfidence)
	}

	if c.NearEqualConfidence < 0 || c.NearEqualConfidence > 1 {
		return fmt.Errorf("near_equal_confidence must be between 0 and 1, got %f", c.NearEqualConfidence)
	}

	if c.FailureText == "" || c.InaudibleMarker == "" || c.RejectedText == "" {
		return fmt.Errorf("failure_text, inaudible_marker and rejected_text must be set")
	}

	return nil
}

// clone returns a copy that shares no slices with c
func (c Config) clone() Config {
	c.Attempts = append([]Attempt(nil), c.Attempts...)
	return c
}
