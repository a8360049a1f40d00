// Package audiotest generates synthetic PCM buffers for tests.
package audiotest

import (
	"math"
	"math/rand"

	"github.com/skypro1111/consult-transcriber/internal/audio"
)

// Sine returns a tone with the same signal on every channel
func Sine(sampleRate, channels, durationMs int, freq, amplitude float64) *audio.Buffer {
	frames := sampleRate * durationMs / 1000
	samples := make([]int16, frames*channels)
	for f := 0; f < frames; f++ {
		v := int16(amplitude * math.Sin(2*math.Pi*freq*float64(f)/float64(sampleRate)))
		for ch := 0; ch < channels; ch++ {
			samples[f*channels+ch] = v
		}
	}
	return audio.NewBufferFromSamples(samples, sampleRate, channels)
}

// Silence returns digital silence
func Silence(sampleRate, channels, durationMs int) *audio.Buffer {
	frames := sampleRate * durationMs / 1000
	return audio.NewBuffer(sampleRate, channels, make([]byte, frames*channels*audio.BytesPerSample))
}

// Noise returns uniform white noise from a fixed seed
func Noise(sampleRate, durationMs int, amplitude float64, seed int64) *audio.Buffer {
	rng := rand.New(rand.NewSource(seed))
	frames := sampleRate * durationMs / 1000
	samples := make([]int16, frames)
	for i := range samples {
		samples[i] = int16((rng.Float64()*2 - 1) * amplitude)
	}
	return audio.NewBufferFromSamples(samples, sampleRate, 1)
}

// Speech returns a 220 Hz carrier gated at 4 Hz, loosely shaped like syllables over
// a quiet noise bed
func Speech(sampleRate, durationMs int) *audio.Buffer {
	rng := rand.New(rand.NewSource(7))
	frames := sampleRate * durationMs / 1000
	samples := make([]int16, frames)
	for i := range samples {
		t := float64(i) / float64(sampleRate)
		envelope := math.Max(0, math.Sin(2*math.Pi*4*t))
		v := 12000*envelope*math.Sin(2*math.Pi*220*t) + (rng.Float64()*2-1)*150
		samples[i] = int16(v)
	}
	return audio.NewBufferFromSamples(samples, sampleRate, 1)
}

// WAV encodes a buffer or panics
func WAV(b *audio.Buffer) []byte {
	data, err := audio.EncodeWAV(b)
	if err != nil {
		panic(err)
	}
	return data
}
