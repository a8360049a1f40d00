package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/skypro1111/consult-transcriber/internal/metrics"
	"github.com/skypro1111/consult-transcriber/internal/pipeline"
	"github.com/skypro1111/consult-transcriber/internal/transcription"
)

const (
	transcriptSuffix = "_transcript.txt"
	enhancedSuffix   = "_enhanced.txt"
)

// DefaultExtensions lists the recording types picked up when none are configured
var DefaultExtensions = []string{".wav", ".mp3", ".m4a", ".ogg", ".flac", ".webm", ".amr"}

// Runner transcribes a file on disk
type Runner interface {
	RunFile(ctx context.Context, path string, opts pipeline.Options) (*transcription.Result, error)
}

// Config controls the inbox watcher
type Config struct {
	Dir        string
	OutputDir  string // defaults to Dir
	Extensions []string
	Settle     time.Duration // quiet period after the last write before a file is processed
	Workers    int
	Enhance    bool
}

// Stats counts processed inbox files
type Stats struct {
	Processed uint64 `json:"processed"`
	Failed    uint64 `json:"failed"`
	Pending   int    `json:"pending"`
}

// Watcher transcribes recordings dropped into a directory
type Watcher struct {
	cfg     Config
	exts    map[string]bool
	runner  Runner
	metrics *metrics.Metrics
	logger  *slog.Logger

	fsw   *fsnotify.Watcher
	queue chan string

	mu        sync.RWMutex
	pending   map[string]*time.Timer
	processed uint64
	failed    uint64
}

// NewWatcher creates a watcher for cfg.Dir. Run starts it.
func NewWatcher(cfg Config, runner Runner, m *metrics.Metrics, logger *slog.Logger) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("inbox directory cannot be empty")
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = cfg.Dir
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = DefaultExtensions
	}
	if cfg.Settle <= 0 {
		cfg.Settle = 2 * time.Second
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	exts := make(map[string]bool, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = true
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		cfg:     cfg,
		exts:    exts,
		runner:  runner,
		metrics: m,
		logger:  logger,
		fsw:     fsw,
		queue:   make(chan string, 64),
		pending: make(map[string]*time.Timer),
	}, nil
}

// Accepts reports whether path looks like a recording the inbox should transcribe
func (w *Watcher) Accepts(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return w.exts[strings.ToLower(filepath.Ext(name))]
}

// Run watches the inbox until ctx is cancelled. Recordings already present without a
// transcript are queued at startup.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	if err := os.MkdirAll(w.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := w.fsw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.cfg.Dir, err)
	}

	w.logger.Info("Watching inbox",
		slog.String("dir", w.cfg.Dir),
		slog.String("output_dir", w.cfg.OutputDir),
		slog.Duration("settle", w.cfg.Settle),
		slog.Int("workers", w.cfg.Workers),
	)

	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.worker(ctx)
		}()
	}

	w.scanBacklog(ctx)

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			wg.Wait()
			w.logger.Info("Inbox watcher stopped")
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				w.stopTimers()
				wg.Wait()
				return nil
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				continue
			}
			w.logger.Error("File watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !w.Accepts(event.Name) {
		return
	}

	switch {
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		w.schedule(ctx, event.Name)
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		w.cancel(event.Name)
	}
}

// schedule (re)starts the settle timer for path
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// a timer that already fired is replaced rather than reset
	if timer, ok := w.pending[path]; ok && timer.Stop() {
		timer.Reset(w.cfg.Settle)
		return
	}

	var timer *time.Timer
	timer = time.AfterFunc(w.cfg.Settle, func() {
		w.mu.Lock()
		if w.pending[path] == timer {
			delete(w.pending, path)
		}
		w.mu.Unlock()

		select {
		case w.queue <- path:
		case <-ctx.Done():
		}
	})
	w.pending[path] = timer
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) scanBacklog(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		w.logger.Error("Failed to read inbox", slog.String("error", err.Error()))
		return
	}

	for _, entry := range entries {
		path := filepath.Join(w.cfg.Dir, entry.Name())
		if entry.IsDir() || !w.Accepts(path) {
			continue
		}
		if _, err := os.Stat(w.transcriptPath(path)); err == nil {
			continue
		}
		w.schedule(ctx, path)
	}
}

func (w *Watcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-w.queue:
			if err := w.ProcessFile(ctx, path); err != nil {
				w.logger.Error("Failed to process inbox file",
					slog.String("path", path),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// ProcessFile transcribes one recording and writes its transcript files
func (w *Watcher) ProcessFile(ctx context.Context, path string) error {
	start := time.Now()

	result, err := w.runner.RunFile(ctx, path, pipeline.Options{Enhance: w.cfg.Enhance})
	if err != nil {
		w.recordFailure("input_error")
		return err
	}

	if err := w.writeText(w.transcriptPath(path), result.Text); err != nil {
		w.recordFailure("write_error")
		return err
	}
	if result.EnhancedText != "" {
		if err := w.writeText(w.enhancedPath(path), result.EnhancedText); err != nil {
			w.recordFailure("write_error")
			return err
		}
	}

	w.mu.Lock()
	w.processed++
	w.mu.Unlock()
	w.metrics.RecordInboxFile(string(result.Status))

	w.logger.Info("Inbox file transcribed",
		slog.String("path", path),
		slog.String("status", string(result.Status)),
		slog.Bool("enhanced", result.EnhancedText != ""),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (w *Watcher) recordFailure(status string) {
	w.mu.Lock()
	w.failed++
	w.mu.Unlock()
	w.metrics.RecordInboxFile(status)
}

func (w *Watcher) writeText(path, text string) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(text+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (w *Watcher) baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func (w *Watcher) transcriptPath(path string) string {
	return filepath.Join(w.cfg.OutputDir, w.baseName(path)+transcriptSuffix)
}

func (w *Watcher) enhancedPath(path string) string {
	return filepath.Join(w.cfg.OutputDir, w.baseName(path)+enhancedSuffix)
}

// GetStats returns inbox counters
func (w *Watcher) GetStats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return Stats{
		Processed: w.processed,
		Failed:    w.failed,
		Pending:   len(w.pending),
	}
}
