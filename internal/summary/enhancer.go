package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"

	"github.com/skypro1111/consult-transcriber/internal/metrics"
)

// DefaultMinLength is the shortest enhanced text accepted in place of the raw transcript
const DefaultMinLength = 10

// DefaultPrompt instructs the model to clean up a medical consultation transcript
const DefaultPrompt = `You correct transcripts of medical consultations produced by speech recognition.
Fix spelling, punctuation and capitalization, split the text into paragraphs and repair words
that were clearly misheard. Preserve medical terminology, drug names, dosages and the meaning
of every sentence. Do not add, remove or summarize content. Answer in the language of the
transcript and return only the corrected text.`

// ErrEmptyResponse is returned when the model produced no choices or no text
var ErrEmptyResponse = errors.New("empty enhancement response")

// Enhancer improves a raw transcript
type Enhancer interface {
	Enhance(ctx context.Context, raw string) (string, error)
}

// OpenAIConfig configures the chat completion enhancer
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Prompt      string
	Temperature float32
	Timeout     time.Duration
}

// OpenAIEnhancer corrects transcripts with an OpenAI chat model
type OpenAIEnhancer struct {
	cfg    OpenAIConfig
	client *openai.Client
}

// NewOpenAIEnhancer creates a chat completion enhancer
func NewOpenAIEnhancer(cfg OpenAIConfig) (*OpenAIEnhancer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIEnhancer{cfg: cfg, client: openai.NewClientWithConfig(clientCfg)}, nil
}

// Enhance sends the transcript as the user message under the correction prompt
func (o *OpenAIEnhancer) Enhance(ctx context.Context, raw string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: o.cfg.Prompt},
			{Role: openai.ChatMessageRoleUser, Content: raw},
		},
		Temperature: o.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Fallback runs an enhancer and returns the raw transcript when enhancement
// is unavailable or unusable
type Fallback struct {
	Enhancer  Enhancer // nil disables enhancement
	MinLength int
	Timeout   time.Duration
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// EnhanceOrRaw returns enhanced text, or raw with enhanced=false on a nil enhancer, an
// error, a timeout or output shorter than minLength characters. It never fails.
func EnhanceOrRaw(ctx context.Context, e Enhancer, raw string, minLength int, timeout time.Duration) (string, bool) {
	text, reason := enhance(ctx, e, raw, minLength, timeout)
	return text, reason == ""
}

// Apply is EnhanceOrRaw with metrics and debug logging of the fallback reason
func (f *Fallback) Apply(ctx context.Context, raw string) (string, bool) {
	if f == nil || f.Enhancer == nil {
		return raw, false
	}

	f.Metrics.RecordSummaryRequest()
	text, reason := enhance(ctx, f.Enhancer, raw, f.MinLength, f.Timeout)
	if reason != "" {
		f.Metrics.RecordSummaryFallback(reason)
		if f.Logger != nil {
			f.Logger.Debug("Using raw transcript", slog.String("reason", reason))
		}
		return raw, false
	}
	return text, true
}

// enhance returns the enhanced text and an empty reason, or raw and the fallback reason
func enhance(ctx context.Context, e Enhancer, raw string, minLength int, timeout time.Duration) (string, string) {
	if e == nil {
		return raw, "disabled"
	}
	if minLength <= 0 {
		minLength = DefaultMinLength
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		text, err := e.Enhance(ctx, raw)
		done <- outcome{text, err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		return raw, "timeout"
	}

	if out.err != nil {
		if errors.Is(out.err, context.DeadlineExceeded) {
			return raw, "timeout"
		}
		return raw, "error"
	}

	text := strings.TrimSpace(out.text)
	if utf8.RuneCountInString(text) < minLength {
		return raw, "too_short"
	}
	return text, ""
}
