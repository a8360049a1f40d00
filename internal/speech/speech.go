package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/skypro1111/consult-transcriber/internal/audio"
)

// ErrUnintelligible is returned when an engine answered but produced no usable text
var ErrUnintelligible = errors.New("speech not intelligible")

// Recognition is the outcome of one successful recognition call
type Recognition struct {
	Text          string  `json:"text"`
	Confidence    float64 `json:"confidence"`
	HasConfidence bool    `json:"has_confidence"`
}

// Recognizer converts a normalized buffer into text
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, b *audio.Buffer, locale string) (*Recognition, error)
}

// ServiceError is a failed call to a recognition backend
type ServiceError struct {
	Engine     string
	StatusCode int // 0 when the request never produced an HTTP response
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Engine, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Engine, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the same request may succeed
func (e *ServiceError) Retryable() bool {
	if e.StatusCode == 0 {
		return !errors.Is(e.Err, context.Canceled)
	}
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// IsRetryable reports whether err is a transient backend failure
func IsRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return false
}

// cleanText trims engine output and rejects placeholders
func cleanText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" || strings.EqualFold(text, "unknown") {
		return "", ErrUnintelligible
	}
	return text, nil
}

// languageOf turns a locale such as pt-BR into its ISO-639-1 language
func languageOf(locale string) string {
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		return strings.ToLower(locale[:i])
	}
	return strings.ToLower(locale)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
