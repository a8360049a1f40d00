package summary

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/skypro1111/consult-transcriber/internal/metrics"
)

type enhancerFunc func(ctx context.Context, raw string) (string, error)

func (f enhancerFunc) Enhance(ctx context.Context, raw string) (string, error) {
	return f(ctx, raw)
}

const raw = "paciente relata dor de cabesa a tres dias"

func TestEnhanceOrRaw(t *testing.T) {
	tests := []struct {
		name     string
		enhancer Enhancer
		timeout  time.Duration
		expected string
		enhanced bool
	}{
		{"nil enhancer", nil, time.Second, raw, false},
		{"success", enhancerFunc(func(context.Context, string) (string, error) {
			return "  Paciente relata dor de cabeça há três dias.  ", nil
		}), time.Second, "Paciente relata dor de cabeça há três dias.", true},
		{"error", enhancerFunc(func(context.Context, string) (string, error) {
			return "", errors.New("quota exceeded")
		}), time.Second, raw, false},
		{"too short", enhancerFunc(func(context.Context, string) (string, error) {
			return "ok", nil
		}), time.Second, raw, false},
		{"timeout ignored by enhancer", enhancerFunc(func(context.Context, string) (string, error) {
			time.Sleep(500 * time.Millisecond)
			return "this arrives far too late", nil
		}), 20 * time.Millisecond, raw, false},
		{"timeout reported by enhancer", enhancerFunc(func(ctx context.Context, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}), 20 * time.Millisecond, raw, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, enhanced := EnhanceOrRaw(context.Background(), tt.enhancer, raw, DefaultMinLength, tt.timeout)
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
			if enhanced != tt.enhanced {
				t.Errorf("Expected enhanced %v, got %v", tt.enhanced, enhanced)
			}
		})
	}
}

func TestFallbackRecordsReasons(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := &Fallback{
		Enhancer: enhancerFunc(func(context.Context, string) (string, error) {
			return "", errors.New("boom")
		}),
		Timeout: time.Second,
		Metrics: metrics.NewMetrics(reg),
	}

	text, enhanced := f.Apply(context.Background(), raw)
	if text != raw || enhanced {
		t.Errorf("Expected raw fallback, got %q %v", text, enhanced)
	}

	var nilFallback *Fallback
	if text, _ := nilFallback.Apply(context.Background(), raw); text != raw {
		t.Errorf("Expected nil fallback to return raw, got %q", text)
	}
}

func TestOpenAIEnhancer(t *testing.T) {
	var request struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Paciente relata dor de cabeça há três dias."},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	e, err := NewOpenAIEnhancer(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	text, err := e.Enhance(context.Background(), raw)
	if err != nil {
		t.Fatalf("Enhance failed: %v", err)
	}
	if text != "Paciente relata dor de cabeça há três dias." {
		t.Errorf("Unexpected text %q", text)
	}
	if request.Model != "gpt-4o-mini" {
		t.Errorf("Expected default model gpt-4o-mini, got %s", request.Model)
	}
	if len(request.Messages) != 2 || request.Messages[0].Role != "system" || request.Messages[1].Content != raw {
		t.Errorf("Unexpected messages %+v", request.Messages)
	}
}

func TestOpenAIEnhancerEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","choices":[]}`))
	}))
	defer server.Close()

	e, _ := NewOpenAIEnhancer(OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1"})
	if _, err := e.Enhance(context.Background(), raw); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Expected ErrEmptyResponse, got %v", err)
	}
}

func TestNewOpenAIEnhancerValidation(t *testing.T) {
	if _, err := NewOpenAIEnhancer(OpenAIConfig{}); err == nil {
		t.Error("Expected error for empty API key")
	}
}
