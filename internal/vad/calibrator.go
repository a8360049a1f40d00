package vad

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/skypro1111/consult-transcriber/internal/audio"
)

// Config holds ambient calibration parameters
type Config struct {
	MinCalibrationMs int
	MaxCalibrationMs int
	CalibrationRatio float64 // share of the total duration used for calibration
	FrameMs          int
	SilenceRMS       float64 // inputs whose loudest frame is below this are silent
	MinSNRDB         float64
	ThresholdRatio   float64 // energy threshold relative to the noise floor
}

// DefaultConfig returns calibration settings tuned for 16-bit consultation recordings
func DefaultConfig() Config {
	return Config{
		MinCalibrationMs: 200,
		MaxCalibrationMs: 1000,
		CalibrationRatio: 0.1,
		FrameMs:          20,
		SilenceRMS:       60,
		MinSNRDB:         6,
		ThresholdRatio:   1.5,
	}
}

// Profile is the result of one calibration pass
type Profile struct {
	CalibrationMs   int     `json:"calibration_ms"`
	NoiseFloorRMS   float64 `json:"noise_floor_rms"`
	PeakRMS         float64 `json:"peak_rms"`
	EnergyThreshold float64 `json:"energy_threshold"`
	SNRDB           float64 `json:"snr_db"`
	SpeechRatio     float64 `json:"speech_ratio"`
	Silent          bool    `json:"silent"`
	LowSNR          bool    `json:"low_snr"`
}

// Stats are cumulative calibration counters
type Stats struct {
	Calibrations   uint64    `json:"calibrations"`
	SilentInputs   uint64    `json:"silent_inputs"`
	LowSNRInputs   uint64    `json:"low_snr_inputs"`
	LastCalibrated time.Time `json:"last_calibrated"`
}

// Calibrator measures ambient noise. It is safe for concurrent use.
type Calibrator struct {
	cfg Config

	calibrations   uint64
	silentInputs   uint64
	lowSNRInputs   uint64
	lastCalibrated time.Time

	mu sync.RWMutex
}

// NewCalibrator validates the configuration and creates a calibrator
func NewCalibrator(cfg Config) (*Calibrator, error) {
	if cfg.FrameMs <= 0 {
		return nil, fmt.Errorf("frame_ms must be positive, got %d", cfg.FrameMs)
	}
	if cfg.MinCalibrationMs <= 0 || cfg.MaxCalibrationMs < cfg.MinCalibrationMs {
		return nil, fmt.Errorf("calibration bounds must satisfy 0 < min <= max, got %d..%d",
			cfg.MinCalibrationMs, cfg.MaxCalibrationMs)
	}
	if cfg.CalibrationRatio <= 0 || cfg.CalibrationRatio > 1 {
		return nil, fmt.Errorf("calibration_ratio must be in (0, 1], got %f", cfg.CalibrationRatio)
	}
	if cfg.SilenceRMS < 0 {
		return nil, fmt.Errorf("silence_rms cannot be negative, got %f", cfg.SilenceRMS)
	}
	if cfg.ThresholdRatio < 1 {
		cfg.ThresholdRatio = 1
	}
	return &Calibrator{cfg: cfg}, nil
}

// CalibrationMs scales the calibration window with the input: a share of the total
// clamped to the configured bounds, and never more than half the input
func (c *Calibrator) CalibrationMs(totalMs int) int {
	ms := int(float64(totalMs) * c.cfg.CalibrationRatio)
	if ms < c.cfg.MinCalibrationMs {
		ms = c.cfg.MinCalibrationMs
	}
	if ms > c.cfg.MaxCalibrationMs {
		ms = c.cfg.MaxCalibrationMs
	}
	if half := totalMs / 2; ms > half {
		ms = half
	}
	return ms
}

// Calibrate estimates the noise floor from the leading calibration window and compares
// it with the loudest frame of the whole buffer
func (c *Calibrator) Calibrate(b *audio.Buffer) Profile {
	return c.CalibrateAt(b, 1)
}

// CalibrateAt calibrates a buffer that was amplified by gain, dividing the gain back
// out so levels are judged as captured
func (c *Calibrator) CalibrateAt(b *audio.Buffer, gain float64) Profile {
	total := b.DurationMs()
	profile := Profile{CalibrationMs: c.CalibrationMs(total)}

	frameLen := b.SampleRate * c.cfg.FrameMs / 1000
	if frameLen <= 0 {
		frameLen = 1
	}
	energies := FrameRMS(b.Samples(), b.Channels, frameLen)
	if gain > 0 && gain != 1 {
		for i := range energies {
			energies[i] /= gain
		}
	}

	if len(energies) == 0 {
		profile.Silent = true
		c.record(profile)
		return profile
	}

	calFrames := profile.CalibrationMs / c.cfg.FrameMs
	if calFrames < 1 {
		calFrames = 1
	}
	if calFrames > len(energies) {
		calFrames = len(energies)
	}

	leading := 0.0
	for _, e := range energies[:calFrames] {
		leading += e
	}
	leading /= float64(calFrames)

	sorted := append([]float64(nil), energies...)
	sort.Float64s(sorted)
	// speech from the first frame would inflate the leading estimate
	profile.NoiseFloorRMS = math.Min(leading, sorted[len(sorted)/10])
	profile.PeakRMS = sorted[len(sorted)-1]
	profile.EnergyThreshold = math.Max(profile.NoiseFloorRMS*c.cfg.ThresholdRatio, c.cfg.SilenceRMS)
	profile.SNRDB = 20 * math.Log10(math.Max(profile.PeakRMS, 1)/math.Max(profile.NoiseFloorRMS, 1))

	above := 0
	for _, e := range energies {
		if e > profile.EnergyThreshold {
			above++
		}
	}
	profile.SpeechRatio = float64(above) / float64(len(energies))

	profile.Silent = profile.PeakRMS < c.cfg.SilenceRMS
	profile.LowSNR = !profile.Silent && profile.SNRDB < c.cfg.MinSNRDB

	c.record(profile)
	return profile
}

func (c *Calibrator) record(p Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calibrations++
	if p.Silent {
		c.silentInputs++
	}
	if p.LowSNR {
		c.lowSNRInputs++
	}
	c.lastCalibrated = time.Now()
}

// GetStats returns cumulative calibration statistics
func (c *Calibrator) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{
		Calibrations:   c.calibrations,
		SilentInputs:   c.silentInputs,
		LowSNRInputs:   c.lowSNRInputs,
		LastCalibrated: c.lastCalibrated,
	}
}

// FrameRMS returns the RMS energy of consecutive frames of frameLen sample frames.
// A trailing partial frame is included.
func FrameRMS(samples []int16, channels, frameLen int) []float64 {
	if channels <= 0 {
		channels = 1
	}
	step := frameLen * channels
	if step <= 0 || len(samples) == 0 {
		return nil
	}

	energies := make([]float64, 0, len(samples)/step+1)
	for start := 0; start < len(samples); start += step {
		end := start + step
		if end > len(samples) {
			end = len(samples)
		}
		var sum float64
		for _, s := range samples[start:end] {
			sum += float64(s) * float64(s)
		}
		energies = append(energies, math.Sqrt(sum/float64(end-start)))
	}
	return energies
}
