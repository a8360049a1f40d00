package speech

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewRemoteRecognizer(t *testing.T) {
	if _, err := NewRemoteRecognizer(RemoteConfig{}, testLogger()); err == nil {
		t.Error("Expected error for empty endpoint")
	}

	r, err := NewRemoteRecognizer(RemoteConfig{Endpoint: "http://localhost"}, testLogger())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if r.config.Timeout != 30*time.Second {
		t.Errorf("Expected default timeout 30s, got %v", r.config.Timeout)
	}
	if r.config.MaxConcurrent != 10 {
		t.Errorf("Expected default concurrency 10, got %d", r.config.MaxConcurrent)
	}
}

func TestRemoteRecognizeRetries(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			t.Errorf("Missing bearer token")
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("Failed to parse form: %v", err)
		}
		if r.FormValue("language") != "pt-BR" {
			t.Errorf("Expected language pt-BR, got %q", r.FormValue("language"))
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("Missing file part: %v", err)
		}

		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"text":"paciente relata febre","confidence":0.75}`))
	}))
	defer server.Close()

	r, _ := NewRemoteRecognizer(RemoteConfig{
		Endpoint:    server.URL,
		APIKey:      "token",
		MaxRetries:  3,
		BackoffBase: time.Millisecond,
	}, testLogger())

	rec, err := r.Recognize(context.Background(), testBuffer, "pt-BR")
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if rec.Text != "paciente relata febre" || rec.Confidence != 0.75 || !rec.HasConfidence {
		t.Errorf("Unexpected recognition: %+v", rec)
	}

	stats := r.GetStats()
	if stats.TotalRetries != 2 {
		t.Errorf("Expected 2 retries, got %d", stats.TotalRetries)
	}
	if stats.SuccessRequests != 1 {
		t.Errorf("Expected 1 success, got %d", stats.SuccessRequests)
	}
}

func TestRemoteRecognizeNoRetryOnClientError(t *testing.T) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	r, _ := NewRemoteRecognizer(RemoteConfig{Endpoint: server.URL, MaxRetries: 3, BackoffBase: time.Millisecond}, testLogger())

	if _, err := r.Recognize(context.Background(), testBuffer, "pt-BR"); err == nil {
		t.Fatal("Expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("Expected a single call, got %d", calls)
	}
	if r.GetStats().FailedRequests != 1 {
		t.Errorf("Expected 1 failed request, got %d", r.GetStats().FailedRequests)
	}
}

func TestRemoteRecognizeWithoutConfidence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":"tudo bem"}`))
	}))
	defer server.Close()

	r, _ := NewRemoteRecognizer(RemoteConfig{Endpoint: server.URL}, testLogger())

	rec, err := r.Recognize(context.Background(), testBuffer, "pt-BR")
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if rec.HasConfidence {
		t.Error("Expected no confidence")
	}
}

func TestRemoteRecognizeCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	r, _ := NewRemoteRecognizer(RemoteConfig{Endpoint: server.URL, MaxRetries: 5, BackoffBase: time.Hour}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := r.Recognize(ctx, testBuffer, "pt-BR"); err == nil {
		t.Fatal("Expected error")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Expected cancellation to interrupt backoff")
	}
}
