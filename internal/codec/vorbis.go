package codec

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jfreymuth/oggvorbis"

	"github.com/skypro1111/consult-transcriber/internal/audio"
)

// VorbisDecoder decodes Ogg Vorbis streams. Ogg Opus is rejected so the registry
// can hand it to ffmpeg.
type VorbisDecoder struct{}

// Decode implements audio.Decoder. The vorbis reader panics on some malformed pages,
// which is reported as a decode error.
func (VorbisDecoder) Decode(ctx context.Context, data []byte, guess audio.FormatGuess) (buf *audio.Buffer, err error) {
	if guess.Codec == "opus" {
		return nil, fmt.Errorf("ogg stream carries opus, not vorbis")
	}

	defer func() {
		if r := recover(); r != nil {
			buf = nil
			err = fmt.Errorf("failed to decode ogg vorbis: %v", r)
		}
	}()

	pcm, format, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode ogg vorbis: %w", err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("ogg vorbis stream has no audio data")
	}

	samples := make([]int16, len(pcm))
	for i, v := range pcm {
		samples[i] = floatToInt16(v)
	}

	return audio.NewBufferFromSamples(samples, format.SampleRate, format.Channels), nil
}

func floatToInt16(v float32) int16 {
	if v >= 1 {
		return 32767
	}
	if v <= -1 {
		return -32768
	}
	return int16(v * 32767)
}
