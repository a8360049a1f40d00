package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/skypro1111/consult-transcriber/internal/audio/audiotest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

var testBuffer = audiotest.Speech(16000, 1000)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		{"server error", &ServiceError{Engine: "x", StatusCode: 503, Err: errors.New("busy")}, true},
		{"rate limited", &ServiceError{Engine: "x", StatusCode: 429, Err: errors.New("slow down")}, true},
		{"bad request", &ServiceError{Engine: "x", StatusCode: 400, Err: errors.New("bad")}, false},
		{"network", &ServiceError{Engine: "x", Err: errors.New("connection refused")}, true},
		{"canceled", &ServiceError{Engine: "x", Err: context.Canceled}, false},
		{"unintelligible", ErrUnintelligible, false},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		err      error
	}{
		{"  bom dia  ", "bom dia", nil},
		{"", "", ErrUnintelligible},
		{"   ", "", ErrUnintelligible},
		{"Unknown", "", ErrUnintelligible},
	}

	for _, tt := range tests {
		got, err := cleanText(tt.input)
		if !errors.Is(err, tt.err) {
			t.Errorf("cleanText(%q): expected error %v, got %v", tt.input, tt.err, err)
		}
		if got != tt.expected {
			t.Errorf("cleanText(%q): expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestLanguageOf(t *testing.T) {
	tests := map[string]string{
		"pt-BR": "pt",
		"en_US": "en",
		"es":    "es",
		"":      "",
	}

	for input, expected := range tests {
		if got := languageOf(input); got != expected {
			t.Errorf("languageOf(%q): expected %q, got %q", input, expected, got)
		}
	}
}

func TestServiceErrorMessage(t *testing.T) {
	err := &ServiceError{Engine: "google", StatusCode: 500, Err: errors.New("internal")}
	if err.Error() != "google: HTTP 500: internal" {
		t.Errorf("Unexpected message: %s", err.Error())
	}

	err = &ServiceError{Engine: "local", Err: errors.New("exit 1")}
	if err.Error() != "local: exit 1" {
		t.Errorf("Unexpected message: %s", err.Error())
	}
}
