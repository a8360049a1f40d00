package transcription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/skypro1111/consult-transcriber/internal/audio"
	"github.com/skypro1111/consult-transcriber/internal/audio/audiotest"
	"github.com/skypro1111/consult-transcriber/internal/speech"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeRecognizer struct {
	name    string
	respond func(call int, b *audio.Buffer, locale string) (*speech.Recognition, error)

	mu      sync.Mutex
	locales []string
}

func (f *fakeRecognizer) Name() string { return f.name }

func (f *fakeRecognizer) Recognize(ctx context.Context, b *audio.Buffer, locale string) (*speech.Recognition, error) {
	f.mu.Lock()
	f.locales = append(f.locales, locale)
	call := len(f.locales)
	f.mu.Unlock()
	return f.respond(call, b, locale)
}

func (f *fakeRecognizer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.locales)
}

func byLocale(responses map[string]*speech.Recognition) func(int, *audio.Buffer, string) (*speech.Recognition, error) {
	return func(_ int, _ *audio.Buffer, locale string) (*speech.Recognition, error) {
		if rec, ok := responses[locale]; ok {
			return rec, nil
		}
		return nil, speech.ErrUnintelligible
	}
}

func newTestEngine(t *testing.T, cfg Config, recognizers ...speech.Recognizer) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, recognizers, nil, testLogger())
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return e
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		expectErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"unknown strategy", func(c *Config) { c.Strategy = "random" }, true},
		{"no attempts", func(c *Config) { c.Attempts = nil }, true},
		{"attempt without locale", func(c *Config) { c.Attempts = []Attempt{{Engine: "google"}} }, true},
		{"zero timeout", func(c *Config) { c.CallTimeout = 0 }, true},
		{"overlap not below length", func(c *Config) { c.OverlapMs = c.SegmentLengthMs }, true},
		{"confidence out of range", func(c *Config) { c.DefaultConfidence = 1.5 }, true},
		{"missing marker", func(c *Config) { c.InaudibleMarker = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.expectErr {
				t.Errorf("Expected error %v, got %v", tt.expectErr, err)
			}
		})
	}
}

func TestNewEngineUnknownEngine(t *testing.T) {
	cfg := DefaultConfig()
	_, err := NewEngine(cfg, []speech.Recognizer{&fakeRecognizer{name: "openai"}}, nil, testLogger())
	if err == nil || !strings.Contains(err.Error(), "unknown engine") {
		t.Errorf("Expected unknown engine error, got %v", err)
	}
}

func TestEngineCopiesConfig(t *testing.T) {
	cfg := DefaultConfig()
	e := newTestEngine(t, cfg, &fakeRecognizer{name: "google", respond: byLocale(nil)})

	cfg.Attempts[0].Locale = "en-US"
	if e.Config().Attempts[0].Locale != "pt-BR" {
		t.Error("Expected engine configuration to be isolated from the caller")
	}
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name       string
		candidates []Candidate
		expected   string
	}{
		{"single", []Candidate{{Text: "a", Confidence: 0.3}}, "a"},
		{"strictly higher wins", []Candidate{{Text: "longer text", Confidence: 0.5}, {Text: "short", Confidence: 0.9}}, "short"},
		{"near equal prefers longer", []Candidate{{Text: "short", Confidence: 0.85}, {Text: "much longer text", Confidence: 0.8}}, "much longer text"},
		{"boundary counts as near equal", []Candidate{{Text: "ab", Confidence: 0.8}, {Text: "abc", Confidence: 0.7}}, "abc"},
		{"exact tie keeps first", []Candidate{{Text: "one", Confidence: 0.7}, {Text: "two", Confidence: 0.7}}, "one"},
		{"length counts runes", []Candidate{{Text: "açúcar", Confidence: 0.7}, {Text: "acucar", Confidence: 0.7}}, "açúcar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Select(tt.candidates, 0.1)
			if !ok {
				t.Fatal("Expected a selection")
			}
			if got.Text != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got.Text)
			}
		})
	}

	if _, ok := Select(nil, 0.1); ok {
		t.Error("Expected no selection for empty candidates")
	}
}

func TestTranscribeGuard(t *testing.T) {
	rec := &fakeRecognizer{name: "google", respond: byLocale(nil)}
	e := newTestEngine(t, DefaultConfig(), rec)

	tests := []struct {
		name   string
		buffer *audio.Buffer
		reason string
	}{
		{"nil", nil, "no audio"},
		{"empty", audio.NewBuffer(16000, 1, nil), "no audio"},
		{"too small", audiotest.Speech(16000, 20), "too small"},
		{"too short", audiotest.Speech(16000, 400), "too short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.Transcribe(context.Background(), tt.buffer)
			if result.Status != StatusRejected {
				t.Errorf("Expected rejected, got %s", result.Status)
			}
			if result.Text != DefaultConfig().RejectedText {
				t.Errorf("Expected rejected sentinel, got %q", result.Text)
			}
			if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], tt.reason) {
				t.Errorf("Expected warning containing %q, got %v", tt.reason, result.Warnings)
			}
		})
	}

	if rec.calls() != 0 {
		t.Errorf("Expected no engine calls for rejected input, got %d", rec.calls())
	}
}

func TestTranscribeFirstSuccessFallsBackToNextLocale(t *testing.T) {
	rec := &fakeRecognizer{name: "google", respond: byLocale(map[string]*speech.Recognition{
		"pt-PT": {Text: "bom dia doutor"},
	})}
	e := newTestEngine(t, DefaultConfig(), rec)

	result := e.Transcribe(context.Background(), audiotest.Speech(16000, 3000))

	if result.Status != StatusOK {
		t.Fatalf("Expected ok, got %s (%v)", result.Status, result.Warnings)
	}
	if result.Text != "bom dia doutor" {
		t.Errorf("Expected transcript, got %q", result.Text)
	}
	if result.Locale != "pt-PT" || result.Engine != "google" {
		t.Errorf("Expected google/pt-PT, got %s/%s", result.Engine, result.Locale)
	}
	if result.Confidence != 0.5 {
		t.Errorf("Expected default confidence 0.5, got %v", result.Confidence)
	}
	if result.UsedSegmentation {
		t.Error("Expected direct transcription")
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "pt-BR") {
		t.Errorf("Expected one warning for the pt-BR miss, got %v", result.Warnings)
	}
}

func TestTranscribeFirstSuccessStopsEarly(t *testing.T) {
	rec := &fakeRecognizer{name: "google", respond: byLocale(map[string]*speech.Recognition{
		"pt-BR": {Text: "primeiro"},
		"pt-PT": {Text: "segundo"},
	})}
	e := newTestEngine(t, DefaultConfig(), rec)

	result := e.Transcribe(context.Background(), audiotest.Speech(16000, 3000))
	if result.Text != "primeiro" {
		t.Errorf("Expected first transcript, got %q", result.Text)
	}
	if rec.calls() != 1 {
		t.Errorf("Expected 1 call, got %d", rec.calls())
	}
}

func TestTranscribeBestConfidence(t *testing.T) {
	google := &fakeRecognizer{name: "google", respond: byLocale(map[string]*speech.Recognition{
		"pt-BR": {Text: "dor de cabeça", Confidence: 0.6, HasConfidence: true},
		"pt-PT": {Text: "dor de cabeca", Confidence: 0.95, HasConfidence: true},
	})}
	local := &fakeRecognizer{name: "local", respond: func(int, *audio.Buffer, string) (*speech.Recognition, error) {
		return &speech.Recognition{Text: "dor de cabeça e febre", Confidence: 0.9, HasConfidence: true}, nil
	}}

	cfg := DefaultConfig()
	cfg.Strategy = StrategyBestConfidence
	cfg.Attempts = append(cfg.Attempts, Attempt{Engine: "local", Locale: "pt-BR"})
	e := newTestEngine(t, cfg, google, local)

	result := e.Transcribe(context.Background(), audiotest.Speech(16000, 3000))

	if google.calls() != 2 || local.calls() != 1 {
		t.Errorf("Expected every attempt to run, got google=%d local=%d", google.calls(), local.calls())
	}
	// 0.95 and 0.9 are near-equal so the longer transcript wins
	if result.Text != "dor de cabeça e febre" {
		t.Errorf("Expected longer near-equal transcript, got %q", result.Text)
	}
	if result.Engine != "local" {
		t.Errorf("Expected local engine, got %s", result.Engine)
	}
}

func TestTranscribeTotalFailure(t *testing.T) {
	failing := &fakeRecognizer{name: "google", respond: func(call int, _ *audio.Buffer, _ string) (*speech.Recognition, error) {
		if call == 1 {
			return nil, &speech.ServiceError{Engine: "google", StatusCode: 503, Err: errors.New("unavailable")}
		}
		return nil, speech.ErrUnintelligible
	}}
	e := newTestEngine(t, DefaultConfig(), failing)

	result := e.Transcribe(context.Background(), audiotest.Noise(16000, 3000, 5000, 3))

	if result.Status != StatusFailed {
		t.Errorf("Expected failed, got %s", result.Status)
	}
	if result.Text != DefaultConfig().FailureText {
		t.Errorf("Expected failure sentinel, got %q", result.Text)
	}
	joined := strings.Join(result.Warnings, "\n")
	for _, want := range []string{"signal-to-noise", "HTTP 503", "not intelligible"} {
		if !strings.Contains(joined, want) {
			t.Errorf("Expected warning containing %q, got %v", want, result.Warnings)
		}
	}
}

func TestTranscribeSilenceSkipsEngines(t *testing.T) {
	rec := &fakeRecognizer{name: "google", respond: byLocale(map[string]*speech.Recognition{"pt-BR": {Text: "ghost"}})}
	e := newTestEngine(t, DefaultConfig(), rec)

	result := e.Transcribe(context.Background(), audiotest.Silence(16000, 1, 3000))

	if result.Status != StatusFailed || result.Text != DefaultConfig().FailureText {
		t.Errorf("Expected failure sentinel for silence, got %s %q", result.Status, result.Text)
	}
	if rec.calls() != 0 {
		t.Errorf("Expected no engine calls for silence, got %d", rec.calls())
	}
	if e.CalibrationStats().SilentInputs != 1 {
		t.Errorf("Expected 1 silent input, got %d", e.CalibrationStats().SilentInputs)
	}
}

func TestTranscribeNormalizedJudgesCapturedLevel(t *testing.T) {
	rec := &fakeRecognizer{name: "google", respond: byLocale(map[string]*speech.Recognition{"pt-BR": {Text: "olá"}})}
	e := newTestEngine(t, DefaultConfig(), rec)

	// loud after normalization, but captured 1000 times quieter
	result := e.TranscribeNormalized(context.Background(), audiotest.Noise(16000, 3000, 20000, 5), 1000)

	if result.Status != StatusFailed {
		t.Errorf("Expected failed status, got %s %q", result.Status, result.Text)
	}
	if rec.calls() != 0 {
		t.Errorf("Expected no engine calls, got %d", rec.calls())
	}

	if result.Calibration == nil || !result.Calibration.Silent {
		t.Errorf("Expected a silent calibration profile, got %+v", result.Calibration)
	}

	result = e.TranscribeNormalized(context.Background(), audiotest.Speech(16000, 3000), 2)
	if result.Status != StatusOK || result.Text != "olá" {
		t.Errorf("Expected transcript for audible input, got %s %q", result.Status, result.Text)
	}
	if result.Calibration == nil || result.Calibration.EnergyThreshold <= 0 {
		t.Errorf("Expected the calibration profile on the result, got %+v", result.Calibration)
	}
}

func TestTranscribeCallTimeout(t *testing.T) {
	slow := &fakeRecognizer{name: "google", respond: nil}
	slow.respond = func(call int, _ *audio.Buffer, _ string) (*speech.Recognition, error) {
		if call == 1 {
			time.Sleep(200 * time.Millisecond)
			return nil, &speech.ServiceError{Engine: "google", Err: context.DeadlineExceeded}
		}
		return &speech.Recognition{Text: "depois do timeout"}, nil
	}

	cfg := DefaultConfig()
	cfg.CallTimeout = 50 * time.Millisecond
	e := newTestEngine(t, cfg, slow)

	result := e.Transcribe(context.Background(), audiotest.Speech(16000, 3000))
	if result.Text != "depois do timeout" {
		t.Errorf("Expected second attempt to succeed, got %q (%v)", result.Text, result.Warnings)
	}
}

func TestTranscribeCancelled(t *testing.T) {
	rec := &fakeRecognizer{name: "google", respond: byLocale(map[string]*speech.Recognition{"pt-BR": {Text: "x"}})}
	e := newTestEngine(t, DefaultConfig(), rec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := e.Transcribe(ctx, audiotest.Speech(16000, 3000))
	if result.Status != StatusFailed {
		t.Errorf("Expected failed, got %s", result.Status)
	}
	if rec.calls() != 0 {
		t.Errorf("Expected no calls after cancellation, got %d", rec.calls())
	}
}

func segmentedConfig() Config {
	cfg := DefaultConfig()
	cfg.LongAudioThresholdMs = 10000
	cfg.SegmentLengthMs = 4000
	cfg.OverlapMs = 1000
	return cfg
}

func TestTranscribeSegmentedMarksInaudible(t *testing.T) {
	// silence covers [3000, 7000), exactly the second window
	b, err := audio.Concat(
		audiotest.Speech(16000, 3000),
		audiotest.Silence(16000, 1, 4000),
		audiotest.Speech(16000, 5000),
	)
	if err != nil {
		t.Fatalf("Concat failed: %v", err)
	}

	rec := &fakeRecognizer{name: "google"}
	rec.respond = func(call int, _ *audio.Buffer, _ string) (*speech.Recognition, error) {
		return &speech.Recognition{Text: fmt.Sprintf("parte %d", call)}, nil
	}
	e := newTestEngine(t, segmentedConfig(), rec)

	result := e.Transcribe(context.Background(), b)

	if !result.UsedSegmentation {
		t.Fatal("Expected segmentation")
	}
	if result.Status != StatusOK {
		t.Fatalf("Expected ok, got %s", result.Status)
	}
	expected := "parte 1 [inaudible segment] parte 2 parte 3"
	if result.Text != expected {
		t.Errorf("Expected %q, got %q", expected, result.Text)
	}
	if len(result.Segments) != 4 {
		t.Fatalf("Expected 4 segments, got %d", len(result.Segments))
	}
	if !result.Segments[1].Inaudible || result.Segments[1].StartMs != 3000 {
		t.Errorf("Expected segment 1 at 3000 ms to be inaudible, got %+v", result.Segments[1])
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "segment 1 (3000-7000 ms): inaudible") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected inaudible warning for segment 1, got %v", result.Warnings)
	}
}

func TestTranscribeSegmentedAllFail(t *testing.T) {
	rec := &fakeRecognizer{name: "google", respond: byLocale(nil)}
	e := newTestEngine(t, segmentedConfig(), rec)

	result := e.Transcribe(context.Background(), audiotest.Silence(16000, 1, 12000))

	if !result.UsedSegmentation {
		t.Error("Expected segmentation")
	}
	if result.Status != StatusFailed || result.Text != DefaultConfig().FailureText {
		t.Errorf("Expected failure sentinel, got %s %q", result.Status, result.Text)
	}
}
