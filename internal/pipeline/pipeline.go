package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/skypro1111/consult-transcriber/internal/audio"
	"github.com/skypro1111/consult-transcriber/internal/metrics"
	"github.com/skypro1111/consult-transcriber/internal/summary"
	"github.com/skypro1111/consult-transcriber/internal/transcription"
)

// InputError reports input the pipeline cannot work with: a missing file, an empty or
// undecodable original, or a session without a single usable chunk
type InputError struct {
	Op  string
	Err error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %v", e.Op, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err is an *InputError
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// Transcriber turns a prepared buffer into a result. gain is the amplitude factor
// normalization applied to b.
type Transcriber interface {
	TranscribeNormalized(ctx context.Context, b *audio.Buffer, gain float64) *transcription.Result
}

// Options adjusts a single run
type Options struct {
	Feedback audio.Feedback // manual playback speed calibration
	Enhance  bool
}

// Config holds pipeline-level settings
type Config struct {
	FailureText string
}

// Pipeline wires the stages together. It holds only read-only collaborators and can be
// used from concurrent requests.
type Pipeline struct {
	cfg        Config
	decoder    audio.Decoder
	corrector  *audio.Corrector
	normalizer *audio.Normalizer
	assembler  *audio.Assembler
	engine     Transcriber
	enhancer   *summary.Fallback
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New creates a pipeline. enhancer may be nil.
func New(cfg Config, decoder audio.Decoder, corrector *audio.Corrector, normalizer *audio.Normalizer,
	engine Transcriber, enhancer *summary.Fallback, m *metrics.Metrics, logger *slog.Logger) *Pipeline {
	if cfg.FailureText == "" {
		cfg.FailureText = transcription.DefaultConfig().FailureText
	}
	return &Pipeline{
		cfg:        cfg,
		decoder:    decoder,
		corrector:  corrector,
		normalizer: normalizer,
		// chunks are normalized after correction, like single files
		assembler: audio.NewAssembler(decoder, nil, logger),
		engine:    engine,
		enhancer:  enhancer,
		metrics:   m,
		logger:    logger,
	}
}

// run carries per-invocation state
type run struct {
	source   string
	start    time.Time
	warnings []string
	format   string
}

func (p *Pipeline) newRun(source string) *run {
	return &run{source: source, start: time.Now()}
}

func (p *Pipeline) stage(name string, start time.Time) {
	p.metrics.ObserveStage(name, time.Since(start).Seconds())
}

// RunFile reads a recording from disk and transcribes it
func (p *Pipeline) RunFile(ctx context.Context, path string, opts Options) (*transcription.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		p.metrics.RecordPipelineRun("file", "input_error", 0)
		return nil, &InputError{Op: "read " + path, Err: err}
	}

	p.logger.Info("Transcribing file", slog.String("path", path), slog.Int("bytes", len(data)))
	return p.runBytes(ctx, p.newRun("file"), data, opts)
}

// RunBytes transcribes an in-memory recording
func (p *Pipeline) RunBytes(ctx context.Context, data []byte, opts Options) (*transcription.Result, error) {
	return p.runBytes(ctx, p.newRun("bytes"), data, opts)
}

func (p *Pipeline) runBytes(ctx context.Context, r *run, data []byte, opts Options) (*transcription.Result, error) {
	if len(data) == 0 {
		p.metrics.RecordPipelineRun(r.source, "input_error", time.Since(r.start).Seconds())
		return nil, &InputError{Op: "read", Err: errors.New("audio input is empty")}
	}

	start := time.Now()
	guess := audio.Sniff(data)
	r.format = string(guess.Family)
	p.metrics.RecordFormat(r.format)
	p.logger.Debug("Format sniffed",
		slog.String("family", r.format),
		slog.Int("assumed_sample_rate", guess.AssumedSampleRate),
		slog.String("codec", guess.Codec))

	buf, err := p.decoder.Decode(ctx, data, guess)
	p.stage("decode", start)
	if err != nil {
		p.metrics.RecordPipelineRun(r.source, "input_error", time.Since(r.start).Seconds())
		return nil, &InputError{Op: "decode " + r.format, Err: err}
	}
	if buf.Frames() == 0 {
		p.metrics.RecordPipelineRun(r.source, "input_error", time.Since(r.start).Seconds())
		return nil, &InputError{Op: "decode " + r.format, Err: errors.New("decoded audio has no samples")}
	}

	return p.process(ctx, r, buf, opts), nil
}

// RunChunks reassembles a chunked recording session and transcribes it.
// expectedCount <= 0 derives the count from the chunks.
func (p *Pipeline) RunChunks(ctx context.Context, chunks []audio.Chunk, expectedCount int, opts Options) (*transcription.Result, error) {
	r := p.newRun("chunks")
	r.format = "CHUNKS"

	start := time.Now()
	assembly, err := p.assembler.Assemble(ctx, chunks, expectedCount)
	p.stage("assemble", start)
	if err != nil {
		p.metrics.RecordPipelineRun(r.source, "input_error", time.Since(r.start).Seconds())
		return nil, &InputError{Op: "assemble chunks", Err: err}
	}

	p.metrics.RecordChunksSkipped(len(assembly.Skipped) + assembly.MissingCount())
	r.warnings = append(r.warnings, assembly.Warnings...)

	p.logger.Info("Chunks reassembled",
		slog.Int("used", len(assembly.Used)),
		slog.Int("skipped", len(assembly.Skipped)),
		slog.Int("missing", assembly.MissingCount()),
		slog.Int("duration_ms", assembly.Buffer.DurationMs()))

	return p.process(ctx, r, assembly.Buffer, opts), nil
}

// process runs everything after decoding. Stage failures become a failed result.
func (p *Pipeline) process(ctx context.Context, r *run, buf *audio.Buffer, opts Options) *transcription.Result {
	start := time.Now()
	declared := buf.SampleRate
	buf, warnings := p.corrector.Correct(buf)
	r.warnings = append(r.warnings, warnings...)
	if buf.SampleRate != declared {
		p.metrics.RecordRateCorrection(rateLabel(declared), rateLabel(buf.SampleRate))
	}
	if opts.Feedback != "" && opts.Feedback != audio.FeedbackNormal {
		buf, warnings = p.corrector.Calibrate(buf, opts.Feedback)
		r.warnings = append(r.warnings, warnings...)
	}
	p.stage("correct", start)

	start = time.Now()
	normalized, gain, err := p.normalizer.NormalizeWithGain(buf)
	p.stage("normalize", start)
	if err != nil {
		p.logger.Error("Normalization failed", slog.String("error", err.Error()))
		return p.finish(r, &transcription.Result{
			Text:     p.cfg.FailureText,
			Warnings: []string{fmt.Sprintf("audio processing failed: %v", err)},
			Status:   transcription.StatusFailed,
		}, buf)
	}
	if before, after := buf.DurationMs(), normalized.DurationMs(); before != after {
		r.warnings = append(r.warnings, fmt.Sprintf("normalization changed duration %d -> %d ms", before, after))
	}
	p.metrics.RecordInputDuration(normalized.Duration().Seconds())

	start = time.Now()
	result := p.engine.TranscribeNormalized(ctx, normalized, gain)
	p.stage("transcribe", start)

	if opts.Enhance && result.OK() {
		start = time.Now()
		if text, ok := p.enhancer.Apply(ctx, result.Text); ok {
			result.EnhancedText = text
		}
		p.stage("enhance", start)
	}

	return p.finish(r, result, normalized)
}

func (p *Pipeline) finish(r *run, result *transcription.Result, buf *audio.Buffer) *transcription.Result {
	result.Warnings = append(r.warnings, result.Warnings...)
	if result.Warnings == nil {
		result.Warnings = []string{}
	}
	result.Format = r.format
	if buf != nil {
		info := buf.Info()
		result.Audio = &info
	}

	p.metrics.RecordPipelineRun(r.source, string(result.Status), time.Since(r.start).Seconds())
	p.logger.Info("Pipeline finished",
		slog.String("source", r.source),
		slog.String("status", string(result.Status)),
		slog.Bool("used_segmentation", result.UsedSegmentation),
		slog.Int("warnings", len(result.Warnings)),
		slog.Duration("elapsed", time.Since(r.start)))

	return result
}

// rateLabel formats a sample rate for metrics
func rateLabel(rate int) string {
	return strconv.Itoa(rate)
}
