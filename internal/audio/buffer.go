package audio

import (
	"encoding/binary"
	"fmt"
	"time"
)

// BytesPerSample is fixed: every decoder converts to signed 16-bit little-endian PCM.
const BytesPerSample = 2

// Buffer is decoded interleaved PCM audio. A stage that changes samples returns a new
// Buffer; a stage that only relabels metadata may reuse Data.
type Buffer struct {
	SampleRate int
	Channels   int
	Data       []byte
}

// BufferInfo is the JSON-friendly summary of a buffer used in logs and API responses
type BufferInfo struct {
	SampleRate int `json:"sample_rate"`
	Channels   int `json:"channels"`
	DurationMs int `json:"duration_ms"`
	Bytes      int `json:"bytes"`
}

// NewBuffer wraps raw PCM bytes
func NewBuffer(sampleRate, channels int, data []byte) *Buffer {
	return &Buffer{SampleRate: sampleRate, Channels: channels, Data: data}
}

// NewBufferFromSamples encodes interleaved samples into a new buffer
func NewBufferFromSamples(samples []int16, sampleRate, channels int) *Buffer {
	data := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return &Buffer{SampleRate: sampleRate, Channels: channels, Data: data}
}

// Validate checks that the buffer metadata is consistent with its data
func (b *Buffer) Validate() error {
	if b == nil {
		return fmt.Errorf("buffer is nil")
	}
	if b.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", b.SampleRate)
	}
	if b.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", b.Channels)
	}
	if frame := b.Channels * BytesPerSample; len(b.Data)%frame != 0 {
		return fmt.Errorf("data length %d is not a multiple of frame size %d", len(b.Data), frame)
	}
	return nil
}

// Frames returns the number of sample frames (one sample per channel)
func (b *Buffer) Frames() int {
	if b == nil || b.Channels <= 0 {
		return 0
	}
	return len(b.Data) / (b.Channels * BytesPerSample)
}

// DurationMs returns the playback duration implied by the declared sample rate
func (b *Buffer) DurationMs() int {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return int(int64(b.Frames()) * 1000 / int64(b.SampleRate))
}

// Duration returns DurationMs as a time.Duration
func (b *Buffer) Duration() time.Duration {
	return time.Duration(b.DurationMs()) * time.Millisecond
}

// Samples decodes the interleaved samples
func (b *Buffer) Samples() []int16 {
	n := len(b.Data) / BytesPerSample
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(b.Data[i*2:]))
	}
	return samples
}

// WithSampleRate relabels the buffer without touching the samples. Data is shared
// with the receiver, whose ownership moves to the returned buffer.
func (b *Buffer) WithSampleRate(rate int) *Buffer {
	return &Buffer{SampleRate: rate, Channels: b.Channels, Data: b.Data}
}

// Clone returns a deep copy
func (b *Buffer) Clone() *Buffer {
	data := make([]byte, len(b.Data))
	copy(data, b.Data)
	return &Buffer{SampleRate: b.SampleRate, Channels: b.Channels, Data: data}
}

// Slice returns the frames in [startMs, endMs). An endMs at or beyond the buffer's
// duration extends to the last frame so trailing sub-millisecond frames are kept.
func (b *Buffer) Slice(startMs, endMs int) *Buffer {
	frames := b.Frames()
	startFrame := msToFrame(startMs, b.SampleRate)
	endFrame := frames
	if endMs < b.DurationMs() {
		endFrame = msToFrame(endMs, b.SampleRate)
	}
	if startFrame > frames {
		startFrame = frames
	}
	if endFrame < startFrame {
		endFrame = startFrame
	}

	frameSize := b.Channels * BytesPerSample
	data := make([]byte, (endFrame-startFrame)*frameSize)
	copy(data, b.Data[startFrame*frameSize:endFrame*frameSize])
	return &Buffer{SampleRate: b.SampleRate, Channels: b.Channels, Data: data}
}

// Info summarizes the buffer
func (b *Buffer) Info() BufferInfo {
	return BufferInfo{
		SampleRate: b.SampleRate,
		Channels:   b.Channels,
		DurationMs: b.DurationMs(),
		Bytes:      len(b.Data),
	}
}

// Concat joins buffers that share a sample rate and channel count
func Concat(buffers ...*Buffer) (*Buffer, error) {
	if len(buffers) == 0 {
		return nil, fmt.Errorf("nothing to concatenate")
	}

	first := buffers[0]
	total := 0
	for i, b := range buffers {
		if b.SampleRate != first.SampleRate || b.Channels != first.Channels {
			return nil, fmt.Errorf("buffer %d format %d Hz/%d ch does not match %d Hz/%d ch",
				i, b.SampleRate, b.Channels, first.SampleRate, first.Channels)
		}
		total += len(b.Data)
	}

	data := make([]byte, 0, total)
	for _, b := range buffers {
		data = append(data, b.Data...)
	}
	return &Buffer{SampleRate: first.SampleRate, Channels: first.Channels, Data: data}, nil
}

func msToFrame(ms, sampleRate int) int {
	if ms <= 0 {
		return 0
	}
	return int(int64(ms) * int64(sampleRate) / 1000)
}
