package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/skypro1111/consult-transcriber/internal/audio/audiotest"
	"github.com/skypro1111/consult-transcriber/internal/speech"
)

func TestMockEngineSatisfiesRemoteClient(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := &mockEngine{text: "teste", confidence: 0.8, logger: logger}

	server := httptest.NewServer(http.HandlerFunc(m.handleTranscribe))
	defer server.Close()

	client, err := speech.NewRemoteRecognizer(speech.RemoteConfig{Endpoint: server.URL}, logger)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	rec, err := client.Recognize(context.Background(), audiotest.Speech(16000, 1000), "pt-BR")
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if rec.Text != "teste" || !rec.HasConfidence || rec.Confidence != 0.8 {
		t.Errorf("Unexpected recognition %+v", rec)
	}
}

func TestMockEngineRejectsGet(t *testing.T) {
	m := &mockEngine{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	rec := httptest.NewRecorder()
	m.handleTranscribe(rec, httptest.NewRequest(http.MethodGet, "/transcribe", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}
