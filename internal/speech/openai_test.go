package speech

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewWhisperRecognizerValidation(t *testing.T) {
	if _, err := NewWhisperRecognizer(WhisperConfig{}, testLogger()); err == nil {
		t.Error("Expected error for empty API key")
	}
}

func TestWhisperRecognize(t *testing.T) {
	var language, model string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("Failed to parse multipart form: %v", err)
		}
		language = r.FormValue("language")
		model = r.FormValue("model")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"task":"transcribe","language":"portuguese","duration":1.0,
			"segments":[{"id":0,"start":0,"end":1,"text":"olá","avg_logprob":0,"no_speech_prob":0.01}],
			"text":" olá doutor "}`))
	}))
	defer server.Close()

	w, err := NewWhisperRecognizer(WhisperConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1"}, testLogger())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	rec, err := w.Recognize(context.Background(), testBuffer, "pt-BR")
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}

	if language != "pt" {
		t.Errorf("Expected language pt, got %q", language)
	}
	if model != "whisper-1" {
		t.Errorf("Expected model whisper-1, got %q", model)
	}
	if rec.Text != "olá doutor" {
		t.Errorf("Expected trimmed text, got %q", rec.Text)
	}
	if !rec.HasConfidence || rec.Confidence != 1 {
		t.Errorf("Expected confidence 1 from zero log-probability, got %v", rec.Confidence)
	}
}

func TestWhisperRecognizeAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer server.Close()

	w, _ := NewWhisperRecognizer(WhisperConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1"}, testLogger())

	_, err := w.Recognize(context.Background(), testBuffer, "pt-BR")
	if err == nil {
		t.Fatal("Expected error")
	}
	if !IsRetryable(err) {
		t.Errorf("Expected 500 to be retryable, got %v", err)
	}
}
