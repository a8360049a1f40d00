// Command transcribe runs the pipeline once on a recording, or on the ordered chunk files
// of a session, and prints the transcript.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/skypro1111/consult-transcriber/internal/app"
	"github.com/skypro1111/consult-transcriber/internal/audio"
	"github.com/skypro1111/consult-transcriber/internal/config"
	"github.com/skypro1111/consult-transcriber/internal/pipeline"
	"github.com/skypro1111/consult-transcriber/internal/transcription"
)

const (
	exitOK = iota
	exitError
	exitInput
	exitNotTranscribed
)

type options struct {
	configPath string
	envFile    string
	feedback   string
	enhance    bool
	chunks     bool
	jsonOut    bool
	outPath    string
	logLevel   string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file (defaults are used when empty)")
	flag.StringVar(&opts.envFile, "env", ".env", "Optional dotenv file with API keys")
	flag.StringVar(&opts.feedback, "feedback", "normal", "Playback speed calibration: slow, fast or normal")
	flag.BoolVar(&opts.enhance, "enhance", false, "Correct the transcript with the summary model")
	flag.BoolVar(&opts.chunks, "chunks", false, "Treat the arguments as ordered chunks of one recording")
	flag.BoolVar(&opts.jsonOut, "json", false, "Print the full result as JSON")
	flag.StringVar(&opts.outPath, "o", "", "Write the output to a file instead of stdout")
	flag.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: transcribe [flags] <file> [chunk files...]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(exitError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, opts, flag.Args(), os.Stdout, os.Stderr))
}

func run(ctx context.Context, opts options, args []string, stdout, stderr io.Writer) int {
	if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(stderr, "Failed to load env file %s: %v\n", opts.envFile, err)
		return exitError
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return exitError
	}

	feedback, err := audio.ParseFeedback(opts.feedback)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitError
	}

	logger := newLogger(opts.logLevel, stderr)

	a, err := app.Build(ctx, cfg, prometheus.NewRegistry(), logger)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to build pipeline: %v\n", err)
		return exitError
	}
	defer a.Close()

	popts := pipeline.Options{Feedback: feedback, Enhance: opts.enhance}

	var result *transcription.Result
	if opts.chunks || len(args) > 1 {
		result, err = runChunks(ctx, a.Pipeline, args, popts)
	} else {
		result, err = a.Pipeline.RunFile(ctx, args[0], popts)
	}
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		if pipeline.IsInputError(err) {
			return exitInput
		}
		return exitError
	}

	out := stdout
	if opts.outPath != "" {
		f, err := os.Create(opts.outPath)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to create %s: %v\n", opts.outPath, err)
			return exitError
		}
		defer f.Close()
		out = f
	}

	if err := writeResult(out, stderr, result, opts.jsonOut); err != nil {
		fmt.Fprintf(stderr, "Failed to write result: %v\n", err)
		return exitError
	}

	if !result.OK() {
		return exitNotTranscribed
	}
	return exitOK
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	cfg := config.Default()
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runChunks reads chunk files in argument order; the last one closes the session
func runChunks(ctx context.Context, p *pipeline.Pipeline, paths []string, opts pipeline.Options) (*transcription.Result, error) {
	chunks := make([]audio.Chunk, 0, len(paths))
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &pipeline.InputError{Op: "read " + path, Err: err}
		}
		chunks = append(chunks, audio.Chunk{Index: i, Data: data, IsLast: i == len(paths)-1})
	}
	return p.RunChunks(ctx, chunks, len(chunks), opts)
}

func writeResult(out, stderr io.Writer, result *transcription.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(stderr, "warning: %s\n", w)
	}

	text := result.Text
	if result.EnhancedText != "" {
		text = result.EnhancedText
	}
	_, err := fmt.Fprintln(out, text)
	return err
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}
