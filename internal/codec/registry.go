package codec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/skypro1111/consult-transcriber/internal/audio"
)

var (
	// ErrEmptyInput is returned for zero-length input
	ErrEmptyInput = errors.New("audio input is empty")

	// ErrUnsupportedFormat is returned when no decoder handles a family
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// Config configures the default registry
type Config struct {
	FFmpegPath   string
	TempDir      string
	EnableFFmpeg bool
}

// Registry routes decoding by sniffed family, falling back to a general decoder when
// the family decoder is missing or fails
type Registry struct {
	decoders map[audio.FormatFamily]audio.Decoder
	fallback audio.Decoder
	logger   *slog.Logger
}

// NewRegistry creates an empty registry. fallback may be nil.
func NewRegistry(fallback audio.Decoder, logger *slog.Logger) *Registry {
	return &Registry{
		decoders: make(map[audio.FormatFamily]audio.Decoder),
		fallback: fallback,
		logger:   logger,
	}
}

// NewDefaultRegistry wires the in-process decoders and, when enabled and installed,
// ffmpeg as the fallback
func NewDefaultRegistry(cfg Config, logger *slog.Logger) *Registry {
	var fallback audio.Decoder
	if cfg.EnableFFmpeg {
		ff := NewFFmpegDecoder(cfg.FFmpegPath, cfg.TempDir, logger)
		if ff.Available() {
			fallback = ff
		} else {
			logger.Warn("ffmpeg not found, only WAV, Ogg Vorbis and raw PCM can be decoded",
				slog.String("ffmpeg_path", cfg.FFmpegPath),
			)
		}
	}

	r := NewRegistry(fallback, logger)
	r.Register(audio.FormatWAV, WAVDecoder{})
	r.Register(audio.FormatOGG, VorbisDecoder{})
	r.Register(audio.FormatPCMUnknown, RawPCMDecoder{})
	return r
}

// Register sets the decoder for a family
func (r *Registry) Register(family audio.FormatFamily, decoder audio.Decoder) {
	r.decoders[family] = decoder
}

// Decode implements audio.Decoder
func (r *Registry) Decode(ctx context.Context, data []byte, guess audio.FormatGuess) (*audio.Buffer, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	decoder, ok := r.decoders[guess.Family]
	if ok {
		buf, err := decoder.Decode(ctx, data, guess)
		if err == nil {
			return buf, nil
		}
		if r.fallback == nil || ctx.Err() != nil {
			return nil, fmt.Errorf("decode %s: %w", guess.Family, err)
		}
		r.logger.Warn("Decoder failed, trying fallback",
			slog.String("family", string(guess.Family)),
			slog.String("error", err.Error()),
		)
	}

	if r.fallback == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, guess.Family)
	}

	buf, err := r.fallback.Decode(ctx, data, guess)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", guess.Family, err)
	}
	return buf, nil
}
