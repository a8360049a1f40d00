package codec

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/skypro1111/consult-transcriber/internal/audio"
)

// FFmpegDecoder converts any container ffmpeg understands to 16-bit PCM WAV, keeping the
// source rate and channel layout so rate correction still sees the declared values.
type FFmpegDecoder struct {
	binary  string
	tempDir string
	logger  *slog.Logger
}

// NewFFmpegDecoder creates a decoder. An empty tempDir uses the system default.
func NewFFmpegDecoder(binary, tempDir string, logger *slog.Logger) *FFmpegDecoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegDecoder{binary: binary, tempDir: tempDir, logger: logger}
}

// Available reports whether the ffmpeg binary can be found
func (d *FFmpegDecoder) Available() bool {
	_, err := exec.LookPath(d.binary)
	return err == nil
}

// Decode implements audio.Decoder. Scratch files live in a private directory that is
// removed on every return path.
func (d *FFmpegDecoder) Decode(ctx context.Context, data []byte, guess audio.FormatGuess) (*audio.Buffer, error) {
	dir, err := os.MkdirTemp(d.tempDir, "decode-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			d.logger.Warn("Failed to remove scratch directory",
				slog.String("path", dir),
				slog.String("error", err.Error()),
			)
		}
	}()

	input := filepath.Join(dir, "input"+guess.Family.Extension())
	output := filepath.Join(dir, "output.wav")

	if err := os.WriteFile(input, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write scratch input: %w", err)
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin", "-y"}
	if guess.Family == audio.FormatPCMUnknown {
		args = append(args, "-f", "s16le", "-ar", strconv.Itoa(guess.AssumedSampleRate), "-ac", "1")
	}
	args = append(args, "-i", input, "-vn", "-acodec", "pcm_s16le", "-f", "wav", output)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.binary, args...)
	cmd.Stderr = &stderr

	d.logger.Debug("Running ffmpeg",
		slog.String("family", string(guess.Family)),
		slog.Int("input_bytes", len(data)),
	)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffmpeg interrupted: %w", ctx.Err())
		}
		return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	wavData, err := os.ReadFile(output)
	if err != nil {
		return nil, fmt.Errorf("failed to read ffmpeg output: %w", err)
	}

	return WAVDecoder{}.Decode(ctx, wavData, audio.Sniff(wavData))
}
