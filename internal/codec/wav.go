package codec

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/go-audio/wav"

	"github.com/skypro1111/consult-transcriber/internal/audio"
)

// WAVDecoder decodes integer PCM WAV files of 8 to 32 bits
type WAVDecoder struct{}

// Decode implements audio.Decoder
func (WAVDecoder) Decode(ctx context.Context, data []byte, guess audio.FormatGuess) (*audio.Buffer, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}

	// 1 = integer PCM, 0xFFFE = WAVE_FORMAT_EXTENSIBLE
	if d.WavAudioFormat != 1 && d.WavAudioFormat != 0xFFFE {
		return nil, fmt.Errorf("unsupported WAV encoding %d", d.WavAudioFormat)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read PCM buffer: %w", err)
	}
	if buf == nil || buf.Format == nil {
		return nil, fmt.Errorf("WAV file has no audio format")
	}
	if len(buf.Data) == 0 {
		return nil, fmt.Errorf("WAV file has no audio data")
	}

	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = toInt16(v, int(d.BitDepth))
	}

	return audio.NewBufferFromSamples(samples, buf.Format.SampleRate, buf.Format.NumChannels), nil
}

func toInt16(v, bitDepth int) int16 {
	switch bitDepth {
	case 8:
		// 8-bit WAV is unsigned
		return int16((v - 128) << 8)
	case 24:
		return int16(v >> 8)
	case 32:
		return int16(v >> 16)
	default:
		return int16(v)
	}
}
