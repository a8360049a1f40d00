package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/skypro1111/consult-transcriber/internal/audio"
)

// WhisperConfig configures the OpenAI transcription recognizer
type WhisperConfig struct {
	APIKey  string
	BaseURL string // empty for the public API
	Model   string
	Prompt  string
	Timeout time.Duration
}

// WhisperRecognizer uploads WAV audio to the OpenAI transcription API
type WhisperRecognizer struct {
	cfg    WhisperConfig
	client *openai.Client
	logger *slog.Logger
}

// NewWhisperRecognizer creates an OpenAI Whisper recognizer
func NewWhisperRecognizer(cfg WhisperConfig, logger *slog.Logger) (*WhisperRecognizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &WhisperRecognizer{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
		logger: logger,
	}, nil
}

// Name returns the engine identifier
func (w *WhisperRecognizer) Name() string {
	return "openai"
}

// Recognize transcribes the buffer. Confidence is the mean segment probability
// derived from the average token log-probability.
func (w *WhisperRecognizer) Recognize(ctx context.Context, b *audio.Buffer, locale string) (*Recognition, error) {
	wav, err := audio.EncodeWAV(b)
	if err != nil {
		return nil, fmt.Errorf("failed to encode WAV: %w", err)
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.cfg.Model,
		FilePath: "audio.wav",
		Reader:   bytes.NewReader(wav),
		Prompt:   w.cfg.Prompt,
		Language: languageOf(locale),
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, w.wrapError(err)
	}

	text, err := cleanText(resp.Text)
	if err != nil {
		return nil, err
	}

	probs := make([]float64, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		probs = append(probs, math.Exp(seg.AvgLogprob))
	}

	w.logger.Debug("Whisper recognition complete",
		slog.Int("segments", len(resp.Segments)),
		slog.String("language", resp.Language))

	return &Recognition{
		Text:          text,
		Confidence:    mean(probs),
		HasConfidence: len(probs) > 0,
	}, nil
}

func (w *WhisperRecognizer) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ServiceError{Engine: w.Name(), StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ServiceError{Engine: w.Name(), StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return &ServiceError{Engine: w.Name(), Err: err}
}
