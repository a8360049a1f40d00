// Command mockengine serves the remote speech engine contract locally. It accepts the
// multipart upload sent by the remote engine client and answers with canned text.
package main

import (
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"
)

type transcriptionResponse struct {
	RequestID   string    `json:"request_id"`
	Text        string    `json:"text"`
	Confidence  float64   `json:"confidence"`
	Language    string    `json:"language"`
	Duration    float64   `json:"duration"`
	ProcessedAt time.Time `json:"processed_at"`
}

type mockEngine struct {
	text       string
	confidence float64
	delay      time.Duration
	logger     *slog.Logger
}

func (m *mockEngine) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	duration, _ := strconv.ParseFloat(r.FormValue("duration"), 64)

	m.logger.Info("Transcription request received",
		slog.String("request_id", r.FormValue("request_id")),
		slog.String("filename", header.Filename),
		slog.Int("audio_bytes", len(audioData)),
		slog.String("sample_rate", r.FormValue("sample_rate")),
		slog.String("language", r.FormValue("language")),
		slog.Float64("duration", duration),
	)

	// Simulate processing time
	select {
	case <-time.After(m.delay):
	case <-r.Context().Done():
		return
	}

	response := transcriptionResponse{
		RequestID:   r.FormValue("request_id"),
		Text:        m.text,
		Confidence:  m.confidence,
		Language:    r.FormValue("language"),
		Duration:    duration,
		ProcessedAt: time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func main() {
	addr := flag.String("addr", ":8090", "Listen address")
	text := flag.String("text", "Paciente relata dor de cabeça há três dias.", "Transcript returned for every request")
	confidence := flag.Float64("confidence", 0.95, "Confidence returned for every request")
	delay := flag.Duration("delay", 200*time.Millisecond, "Simulated processing time")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	m := &mockEngine{text: *text, confidence: *confidence, delay: *delay, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/transcribe", m.handleTranscribe)

	logger.Info("Mock speech engine starting",
		slog.String("addr", *addr),
		slog.String("endpoint", "/transcribe"),
	)

	if err := http.ListenAndServe(*addr, mux); err != nil {
		logger.Error("Server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
