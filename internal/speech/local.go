package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/skypro1111/consult-transcriber/internal/audio"
)

// LocalConfig configures the whisper CLI recognizer
type LocalConfig struct {
	BinaryPath string
	ModelPath  string
	Threads    int
	TempDir    string
	Timeout    time.Duration
}

// LocalRecognizer shells out to a whisper CLI binary that prints JSON segments
type LocalRecognizer struct {
	cfg    LocalConfig
	logger *slog.Logger
}

type whisperSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

type whisperOutput struct {
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
}

// NewLocalRecognizer creates a whisper CLI recognizer
func NewLocalRecognizer(cfg LocalConfig, logger *slog.Logger) (*LocalRecognizer, error) {
	if cfg.BinaryPath == "" {
		return nil, fmt.Errorf("binary path cannot be empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &LocalRecognizer{cfg: cfg, logger: logger}, nil
}

// Name returns the engine identifier
func (l *LocalRecognizer) Name() string {
	return "local"
}

// Recognize writes the buffer to a scratch WAV, runs the CLI on it and removes the
// scratch directory on every exit path
func (l *LocalRecognizer) Recognize(ctx context.Context, b *audio.Buffer, locale string) (*Recognition, error) {
	if _, err := os.Stat(l.cfg.BinaryPath); err != nil {
		return nil, fmt.Errorf("%s: binary not found at %q: %w", l.Name(), l.cfg.BinaryPath, err)
	}

	wav, err := audio.EncodeWAV(b)
	if err != nil {
		return nil, fmt.Errorf("failed to encode WAV: %w", err)
	}

	dir, err := os.MkdirTemp(l.cfg.TempDir, "whisper-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.wav")
	if err := os.WriteFile(input, wav, 0600); err != nil {
		return nil, fmt.Errorf("failed to write scratch audio: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, l.cfg.BinaryPath, l.buildArgs(input, locale)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, &ServiceError{Engine: l.Name(), Err: fmt.Errorf("timed out after %s: %w", l.cfg.Timeout, context.DeadlineExceeded)}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ServiceError{Engine: l.Name(),
			Err: fmt.Errorf("subprocess failed: %w: %s", err, strings.TrimSpace(stderr.String()))}
	}

	var output whisperOutput
	if err := json.Unmarshal(stdout.Bytes(), &output); err != nil {
		return nil, &ServiceError{Engine: l.Name(), Err: fmt.Errorf("failed to parse JSON output: %w", err)}
	}

	parts := make([]string, 0, len(output.Segments))
	var scores []float64
	for _, seg := range output.Segments {
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
		if seg.Score > 0 {
			scores = append(scores, seg.Score)
		}
	}

	text, err := cleanText(strings.Join(parts, " "))
	if err != nil {
		return nil, err
	}

	return &Recognition{
		Text:          text,
		Confidence:    mean(scores),
		HasConfidence: len(scores) > 0,
	}, nil
}

func (l *LocalRecognizer) buildArgs(input, locale string) []string {
	var args []string

	if l.cfg.ModelPath != "" {
		args = append(args, "--model", l.cfg.ModelPath)
	}

	args = append(args, "--output-json")

	if locale != "" {
		args = append(args, "--language", languageOf(locale))
	}

	if l.cfg.Threads > 0 {
		args = append(args, "--threads", strconv.Itoa(l.cfg.Threads))
	}

	return append(args, input)
}
