package codec

import (
	"context"
	"fmt"

	"github.com/skypro1111/consult-transcriber/internal/audio"
)

// RawPCMDecoder treats headerless input as mono signed 16-bit little-endian PCM at the
// sniffed rate. A trailing odd byte is dropped.
type RawPCMDecoder struct{}

// Decode implements audio.Decoder
func (RawPCMDecoder) Decode(ctx context.Context, data []byte, guess audio.FormatGuess) (*audio.Buffer, error) {
	n := len(data) &^ 1
	if n == 0 {
		return nil, fmt.Errorf("raw PCM input is empty")
	}

	rate := guess.AssumedSampleRate
	if rate <= 0 {
		rate = audio.DefaultAssumedRate
	}

	pcm := make([]byte, n)
	copy(pcm, data[:n])
	return audio.NewBuffer(rate, 1, pcm), nil
}
