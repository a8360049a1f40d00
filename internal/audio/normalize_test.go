package audio

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func stereoSine(sampleRate, frames int) *Buffer {
	samples := make([]int16, frames*2)
	for f := 0; f < frames; f++ {
		v := int16(8000 * math.Sin(2*math.Pi*440*float64(f)/float64(sampleRate)))
		samples[f*2] = v
		samples[f*2+1] = v / 2
	}
	return NewBufferFromSamples(samples, sampleRate, 2)
}

func peakOf(b *Buffer) int {
	peak := 0
	for _, s := range b.Samples() {
		if v := abs(int(s)); v > peak {
			peak = v
		}
	}
	return peak
}

func TestNormalizeDownmixesAndNormalizes(t *testing.T) {
	n := NewNormalizer(DefaultNormalizeConfig(), testLogger())
	in := stereoSine(44100, 44100)

	out, err := n.Normalize(in)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if out.Channels != 1 {
		t.Errorf("Expected mono, got %d channels", out.Channels)
	}
	if out.Frames() != in.Frames() {
		t.Errorf("Expected %d frames, got %d", in.Frames(), out.Frames())
	}
	if peak := peakOf(out); peak != 29204 {
		t.Errorf("Expected peak 29204 (-1 dBFS), got %d", peak)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := NewNormalizer(DefaultNormalizeConfig(), testLogger())

	inputs := map[string]*Buffer{
		"stereo sine": stereoSine(16000, 8000),
		"full scale":  NewBufferFromSamples([]int16{-32768, 32767, 0, 100}, 8000, 1),
		"quiet":       NewBufferFromSamples([]int16{3, -7, 5, 1}, 8000, 1),
		"silence":     NewBufferFromSamples(make([]int16, 100), 8000, 1),
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			once, err := n.Normalize(in)
			if err != nil {
				t.Fatalf("Normalize failed: %v", err)
			}
			twice, err := n.Normalize(once)
			if err != nil {
				t.Fatalf("Second Normalize failed: %v", err)
			}
			if !bytes.Equal(once.Data, twice.Data) || once.Channels != twice.Channels {
				t.Error("Expected normalize(normalize(x)) == normalize(x)")
			}
		})
	}
}

func TestNormalizePreservesDuration(t *testing.T) {
	cfg := DefaultNormalizeConfig()
	cfg.Filter = true
	n := NewNormalizer(cfg, testLogger())

	for _, rate := range []int{8000, 16000, 44100, 48000} {
		in := stereoSine(rate, rate*3/2)
		out, err := n.Normalize(in)
		if err != nil {
			t.Fatalf("Normalize at %d Hz failed: %v", rate, err)
		}
		if out.DurationMs() != in.DurationMs() {
			t.Errorf("At %d Hz expected %d ms, got %d", rate, in.DurationMs(), out.DurationMs())
		}
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	n := NewNormalizer(DefaultNormalizeConfig(), testLogger())
	in := NewBufferFromSamples([]int16{100, -100}, 8000, 1)
	before := append([]byte{}, in.Data...)

	if _, err := n.Normalize(in); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !bytes.Equal(before, in.Data) {
		t.Error("Expected input buffer to be untouched")
	}
}

func TestFilterRemovesLowFrequency(t *testing.T) {
	cfg := NormalizeConfig{Filter: true, HighPassHz: 80, LowPassHz: 8000}
	n := NewNormalizer(cfg, testLogger())

	rate := 16000
	samples := make([]int16, rate)
	for i := range samples {
		samples[i] = int16(10000 * math.Sin(2*math.Pi*20*float64(i)/float64(rate)))
	}

	out, err := n.Normalize(NewBufferFromSamples(samples, rate, 1))
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	// skip the filter's settling time
	tail := NewBufferFromSamples(out.Samples()[rate/2:], rate, 1)
	if peak := peakOf(tail); peak > 1000 {
		t.Errorf("Expected 20 Hz hum attenuated below 1000, got peak %d", peak)
	}
}

func TestFilterHighPassAboveNyquistFails(t *testing.T) {
	cfg := NormalizeConfig{Filter: true, HighPassHz: 5000}
	n := NewNormalizer(cfg, testLogger())

	_, err := n.Normalize(NewBufferFromSamples(make([]int16, 100), 8000, 1))
	var procErr *AudioProcessingError
	if !errors.As(err, &procErr) {
		t.Fatalf("Expected AudioProcessingError, got %v", err)
	}
	if procErr.Op != "filter" {
		t.Errorf("Expected op filter, got %s", procErr.Op)
	}
}

func TestNormalizeInvalidBuffer(t *testing.T) {
	n := NewNormalizer(DefaultNormalizeConfig(), testLogger())

	_, err := n.Normalize(NewBuffer(8000, 2, []byte{1, 2, 3}))
	var procErr *AudioProcessingError
	if !errors.As(err, &procErr) {
		t.Errorf("Expected AudioProcessingError, got %v", err)
	}
}

func TestNormalizeWithGain(t *testing.T) {
	quiet := NewBufferFromSamples([]int16{100, -50, 25, -100}, 16000, 1)

	tests := []struct {
		name string
		cfg  NormalizeConfig
		in   *Buffer
		gain float64
	}{
		{"quiet input amplified", DefaultNormalizeConfig(), quiet, 292.04},
		{"silent input", DefaultNormalizeConfig(), NewBufferFromSamples(make([]int16, 4), 16000, 1), 1},
		{"peak normalization off", NormalizeConfig{Downmix: true}, quiet, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNormalizer(tt.cfg, testLogger())
			_, gain, err := n.NormalizeWithGain(tt.in)
			if err != nil {
				t.Fatalf("NormalizeWithGain failed: %v", err)
			}
			if math.Abs(gain-tt.gain) > 1e-9 {
				t.Errorf("Expected gain %.2f, got %.4f", tt.gain, gain)
			}
		})
	}
}
