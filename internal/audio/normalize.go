package audio

import (
	"fmt"
	"log/slog"
	"math"
)

// NormalizeConfig selects the normalization steps
type NormalizeConfig struct {
	Downmix        bool
	PeakNormalize  bool
	TargetPeakDBFS float64
	Filter         bool
	HighPassHz     float64
	LowPassHz      float64
}

// DefaultNormalizeConfig enables downmix and peak normalization to -1 dBFS with the
// speech band filter off
func DefaultNormalizeConfig() NormalizeConfig {
	return NormalizeConfig{
		Downmix:        true,
		PeakNormalize:  true,
		TargetPeakDBFS: -1.0,
		Filter:         false,
		HighPassHz:     80,
		LowPassHz:      8000,
	}
}

// AudioProcessingError is a fatal failure inside a signal stage
type AudioProcessingError struct {
	Op  string
	Err error
}

func (e *AudioProcessingError) Error() string {
	return fmt.Sprintf("audio processing failed during %s: %v", e.Op, e.Err)
}

func (e *AudioProcessingError) Unwrap() error {
	return e.Err
}

// Normalizer applies channel and amplitude normalization. Steps run in the order
// downmix, filter, peak normalize so the output peak is exactly the target.
type Normalizer struct {
	cfg    NormalizeConfig
	logger *slog.Logger
}

// NewNormalizer creates a normalizer
func NewNormalizer(cfg NormalizeConfig, logger *slog.Logger) *Normalizer {
	return &Normalizer{cfg: cfg, logger: logger}
}

// Normalize returns a new buffer. The frame count never changes.
func (n *Normalizer) Normalize(b *Buffer) (*Buffer, error) {
	out, _, err := n.NormalizeWithGain(b)
	return out, err
}

// NormalizeWithGain is Normalize that also reports the amplitude factor applied by
// peak normalization, 1 when the level was left alone
func (n *Normalizer) NormalizeWithGain(b *Buffer) (*Buffer, float64, error) {
	if err := b.Validate(); err != nil {
		return nil, 0, &AudioProcessingError{Op: "validate", Err: err}
	}

	out := b
	if n.cfg.Downmix && out.Channels > 1 {
		out = Downmix(out)
	}

	if n.cfg.Filter {
		filtered, err := n.filter(out)
		if err != nil {
			return nil, 0, &AudioProcessingError{Op: "filter", Err: err}
		}
		out = filtered
	}

	gain := 1.0
	if n.cfg.PeakNormalize {
		gain = PeakGain(out, n.cfg.TargetPeakDBFS)
		out = PeakNormalize(out, n.cfg.TargetPeakDBFS)
	}

	if out == b {
		out = b.Clone()
	}

	if out.Frames() != b.Frames() {
		return nil, 0, &AudioProcessingError{
			Op:  "duration check",
			Err: fmt.Errorf("frame count changed from %d to %d", b.Frames(), out.Frames()),
		}
	}

	n.logger.Debug("Audio normalized",
		slog.Int("sample_rate", out.SampleRate),
		slog.Int("channels_in", b.Channels),
		slog.Int("channels_out", out.Channels),
		slog.Int("duration_ms", out.DurationMs()),
		slog.Float64("gain", gain),
	)

	return out, gain, nil
}

// Downmix averages all channels into one. Mono buffers are returned unchanged.
func Downmix(b *Buffer) *Buffer {
	if b.Channels <= 1 {
		return b
	}

	samples := b.Samples()
	frames := len(samples) / b.Channels
	mono := make([]int16, frames)
	for f := 0; f < frames; f++ {
		sum := 0
		for ch := 0; ch < b.Channels; ch++ {
			sum += int(samples[f*b.Channels+ch])
		}
		mono[f] = int16(sum / b.Channels)
	}
	return NewBufferFromSamples(mono, b.SampleRate, 1)
}

// PeakGain returns the factor PeakNormalize would apply to b, 1 for silent buffers
func PeakGain(b *Buffer, targetDBFS float64) float64 {
	target := peakTarget(targetDBFS)
	peak := samplePeak(b.Samples())
	if peak == 0 || peak == target {
		return 1
	}
	return float64(target) / float64(peak)
}

// PeakNormalize scales samples so the absolute peak equals targetDBFS. Silent buffers
// and buffers already at the target are returned unchanged.
func PeakNormalize(b *Buffer, targetDBFS float64) *Buffer {
	target := peakTarget(targetDBFS)

	samples := b.Samples()
	peak := samplePeak(samples)
	if peak == 0 || peak == target {
		return b
	}

	gain := float64(target) / float64(peak)
	for i, s := range samples {
		samples[i] = clamp16(math.Round(float64(s) * gain))
	}
	return NewBufferFromSamples(samples, b.SampleRate, b.Channels)
}

func peakTarget(targetDBFS float64) int {
	target := int(math.Round(32767 * math.Pow(10, targetDBFS/20)))
	if target > 32767 {
		target = 32767
	}
	return target
}

func samplePeak(samples []int16) int {
	peak := 0
	for _, s := range samples {
		if v := abs(int(s)); v > peak {
			peak = v
		}
	}
	return peak
}

func (n *Normalizer) filter(b *Buffer) (*Buffer, error) {
	nyquist := float64(b.SampleRate) / 2
	var stages []*biquad

	if n.cfg.HighPassHz > 0 {
		if n.cfg.HighPassHz >= nyquist {
			return nil, fmt.Errorf("high-pass cutoff %.0f Hz is above Nyquist %.0f Hz", n.cfg.HighPassHz, nyquist)
		}
		stages = append(stages, newHighPass(n.cfg.HighPassHz, float64(b.SampleRate)))
	}
	if n.cfg.LowPassHz > 0 {
		if n.cfg.LowPassHz < nyquist {
			stages = append(stages, newLowPass(n.cfg.LowPassHz, float64(b.SampleRate)))
		} else {
			n.logger.Debug("Low-pass skipped, cutoff not below Nyquist",
				slog.Float64("cutoff_hz", n.cfg.LowPassHz),
				slog.Int("sample_rate", b.SampleRate),
			)
		}
	}
	if len(stages) == 0 {
		return b, nil
	}

	samples := b.Samples()
	for ch := 0; ch < b.Channels; ch++ {
		for _, st := range stages {
			st.reset()
			for i := ch; i < len(samples); i += b.Channels {
				samples[i] = clamp16(math.Round(st.process(float64(samples[i]))))
			}
		}
	}
	return NewBufferFromSamples(samples, b.SampleRate, b.Channels), nil
}

// biquad is a second-order Butterworth section (RBJ cookbook coefficients)
type biquad struct {
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     float64
}

func newLowPass(cutoff, sampleRate float64) *biquad {
	w0 := 2 * math.Pi * cutoff / sampleRate
	cosW, alpha := math.Cos(w0), math.Sin(w0)/math.Sqrt2
	a0 := 1 + alpha
	return &biquad{
		b0: (1 - cosW) / 2 / a0,
		b1: (1 - cosW) / a0,
		b2: (1 - cosW) / 2 / a0,
		a1: -2 * cosW / a0,
		a2: (1 - alpha) / a0,
	}
}

func newHighPass(cutoff, sampleRate float64) *biquad {
	w0 := 2 * math.Pi * cutoff / sampleRate
	cosW, alpha := math.Cos(w0), math.Sin(w0)/math.Sqrt2
	a0 := 1 + alpha
	return &biquad{
		b0: (1 + cosW) / 2 / a0,
		b1: -(1 + cosW) / a0,
		b2: (1 + cosW) / 2 / a0,
		a1: -2 * cosW / a0,
		a2: (1 - alpha) / a0,
	}
}

func (q *biquad) process(x float64) float64 {
	y := q.b0*x + q.b1*q.x1 + q.b2*q.x2 - q.a1*q.y1 - q.a2*q.y2
	q.x2, q.x1 = q.x1, x
	q.y2, q.y1 = q.y1, y
	return y
}

func (q *biquad) reset() {
	q.x1, q.x2, q.y1, q.y2 = 0, 0, 0, 0
}

func clamp16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
