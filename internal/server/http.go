package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skypro1111/consult-transcriber/internal/audio"
	"github.com/skypro1111/consult-transcriber/internal/config"
	"github.com/skypro1111/consult-transcriber/internal/metrics"
	"github.com/skypro1111/consult-transcriber/internal/pipeline"
	"github.com/skypro1111/consult-transcriber/internal/session"
	"github.com/skypro1111/consult-transcriber/internal/transcription"
)

const (
	serviceName    = "consult-transcriber"
	serviceVersion = "1.0.0"
)

// Transcriber runs the pipeline on an uploaded recording
type Transcriber interface {
	RunBytes(ctx context.Context, data []byte, opts pipeline.Options) (*transcription.Result, error)
}

// Dependencies are the components served over HTTP
type Dependencies struct {
	Config   *config.Config
	Pipeline Transcriber
	Sessions *session.Manager
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer // nil serves the default registry
	// Stats returns extra component statistics merged into /stats
	Stats func() map[string]interface{}
}

// HTTPServer provides the transcription API and monitoring endpoints
type HTTPServer struct {
	server  *http.Server
	handler http.Handler
	logger  *slog.Logger
	deps    Dependencies

	startTime time.Time
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(deps Dependencies, logger *slog.Logger) *HTTPServer {
	h := &HTTPServer{
		logger:    logger,
		deps:      deps,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)
	h.handler = mux

	cfg := deps.Config.HTTP
	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// Handler returns the route multiplexer
func (h *HTTPServer) Handler() http.Handler {
	return h.handler
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	if h.deps.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(h.deps.Gatherer, promhttp.HandlerOpts{}))
	} else {
		mux.Handle("/metrics", promhttp.Handler())
	}

	mux.HandleFunc("POST /v1/transcriptions", h.withMetrics("/v1/transcriptions", h.handleTranscribe))

	mux.HandleFunc("POST /v1/sessions", h.withMetrics("/v1/sessions", h.handleCreateSession))
	mux.HandleFunc("GET /v1/sessions", h.withMetrics("/v1/sessions", h.handleListSessions))
	mux.HandleFunc("GET /v1/sessions/{id}", h.withMetrics("/v1/sessions/{id}", h.handleGetSession))
	mux.HandleFunc("DELETE /v1/sessions/{id}", h.withMetrics("/v1/sessions/{id}", h.handleDeleteSession))
	mux.HandleFunc("PUT /v1/sessions/{id}/chunks/{index}", h.withMetrics("/v1/sessions/{id}/chunks/{index}", h.handleAddChunk))
	mux.HandleFunc("POST /v1/sessions/{id}/finalize", h.withMetrics("/v1/sessions/{id}/finalize", h.handleFinalize))

	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Create a response writer wrapper to capture status code
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.deps.Metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.deps.Metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error":  msg,
		"status": status,
	})
}

// owner returns the caller id from the configured header
func (h *HTTPServer) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := r.Header.Get(h.deps.Config.HTTP.OwnerHeader)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, h.deps.Config.HTTP.OwnerHeader+" header required")
		return "", false
	}
	return owner, true
}

// options reads ?feedback= and ?enhance= from the query
func options(r *http.Request) (pipeline.Options, error) {
	feedback, err := audio.ParseFeedback(r.URL.Query().Get("feedback"))
	if err != nil {
		return pipeline.Options{}, err
	}

	opts := pipeline.Options{Feedback: feedback}
	if v := r.URL.Query().Get("enhance"); v != "" {
		opts.Enhance, err = strconv.ParseBool(v)
		if err != nil {
			return pipeline.Options{}, fmt.Errorf("enhance must be a boolean, got '%s'", v)
		}
	}
	return opts, nil
}

// readBody reads the request body up to max_body_bytes
func (h *HTTPServer) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body := r.Body
	if limit := h.deps.Config.HTTP.MaxBodyBytes; limit > 0 {
		body = http.MaxBytesReader(w, r.Body, limit)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "failed to read body")
		return nil, false
	}
	return data, true
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    serviceName,
			"version": serviceVersion,
		},
		"components": map[string]interface{}{
			"sessions": map[string]interface{}{
				"status":          "running",
				"active_sessions": h.deps.Sessions.GetActiveSessionCount(),
			},
		},
	}

	writeJSON(w, http.StatusOK, health)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	c := h.deps.Config

	// API keys and credentials are omitted
	sanitizedConfig := map[string]interface{}{
		"http": map[string]interface{}{
			"port":           c.HTTP.Port,
			"address":        c.HTTP.Address,
			"max_body_bytes": c.HTTP.MaxBodyBytes,
			"owner_header":   c.HTTP.OwnerHeader,
		},
		"codec":         c.Codec,
		"correction":    c.Correction,
		"normalization": c.Normalization,
		"transcription": c.Transcription,
		"engines": map[string]interface{}{
			"google": map[string]interface{}{
				"enabled":  c.Engines.Google.Enabled,
				"endpoint": c.Engines.Google.Endpoint,
				"model":    c.Engines.Google.Model,
				"timeout":  c.Engines.Google.Timeout,
			},
			"openai": map[string]interface{}{
				"enabled":  c.Engines.OpenAI.Enabled,
				"base_url": c.Engines.OpenAI.BaseURL,
				"model":    c.Engines.OpenAI.Model,
				"timeout":  c.Engines.OpenAI.Timeout,
			},
			"remote": map[string]interface{}{
				"enabled":        c.Engines.Remote.Enabled,
				"endpoint":       c.Engines.Remote.Endpoint,
				"model":          c.Engines.Remote.Model,
				"timeout":        c.Engines.Remote.Timeout,
				"max_retries":    c.Engines.Remote.MaxRetries,
				"max_concurrent": c.Engines.Remote.MaxConcurrent,
			},
			"local": map[string]interface{}{
				"enabled":     c.Engines.Local.Enabled,
				"binary_path": c.Engines.Local.BinaryPath,
				"model_path":  c.Engines.Local.ModelPath,
				"threads":     c.Engines.Local.Threads,
			},
		},
		"summary": map[string]interface{}{
			"enabled":    c.Summary.Enabled,
			"model":      c.Summary.Model,
			"min_length": c.Summary.MinLength,
			"timeout":    c.Summary.Timeout,
		},
		"sessions": c.Sessions,
		"inbox":    c.Inbox,
		"logging": map[string]interface{}{
			"level":  c.Logging.Level,
			"format": c.Logging.Format,
			"output": c.Logging.Output,
		},
	}

	writeJSON(w, http.StatusOK, sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]interface{}{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
		"sessions":  h.deps.Sessions.GetStats(),
	}
	if h.deps.Stats != nil {
		for k, v := range h.deps.Stats() {
			stats[k] = v
		}
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleTranscribe transcribes a recording sent as the request body
func (h *HTTPServer) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	opts, err := options(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, ok := h.readBody(w, r)
	if !ok {
		return
	}

	result, err := h.deps.Pipeline.RunBytes(r.Context(), data, opts)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *HTTPServer) writePipelineError(w http.ResponseWriter, err error) {
	if pipeline.IsInputError(err) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.logger.Error("Pipeline failed", slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, "transcription failed")
}

// writeSessionError maps session errors to status codes
func (h *HTTPServer) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrNotActive):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrTooManyChunks), errors.Is(err, session.ErrChunkTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, session.ErrEmptyChunk), errors.Is(err, session.ErrInvalidIndex):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrNoChunks):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.writePipelineError(w, err)
	}
}

func (h *HTTPServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, h.deps.Sessions.Create(owner))
}

func (h *HTTPServer) handleListSessions(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	sessions := h.deps.Sessions.List(owner)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_sessions": len(sessions),
		"timestamp":      time.Now().UTC(),
		"sessions":       sessions,
	})
}

func (h *HTTPServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	info, err := h.deps.Sessions.Get(r.PathValue("id"), owner)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *HTTPServer) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	if err := h.deps.Sessions.Remove(r.PathValue("id"), owner); err != nil {
		h.writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPServer) handleAddChunk(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "chunk index must be an integer")
		return
	}

	isLast := false
	if v := r.URL.Query().Get("last"); v != "" {
		isLast, err = strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("last must be a boolean, got '%s'", v))
			return
		}
	}

	data, ok := h.readBody(w, r)
	if !ok {
		return
	}

	info, err := h.deps.Sessions.AddChunk(r.PathValue("id"), owner, index, data, isLast)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *HTTPServer) handleFinalize(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}

	opts, err := options(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.deps.Sessions.Finalize(r.Context(), r.PathValue("id"), owner, opts)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": serviceName,
		"version": serviceVersion,
		"endpoints": map[string]interface{}{
			"GET /":                                "API documentation",
			"GET /health":                          "Service health check",
			"GET /config":                          "Get service configuration",
			"GET /stats":                           "Get service statistics",
			"GET /metrics":                         "Prometheus metrics",
			"POST /v1/transcriptions":              "Transcribe the request body (?feedback=slow|fast&enhance=true)",
			"POST /v1/sessions":                    "Open a chunked recording session",
			"GET /v1/sessions":                     "List your sessions",
			"GET /v1/sessions/{id}":                "Get a session",
			"PUT /v1/sessions/{id}/chunks/{index}": "Upload a chunk (?last=true for the final one)",
			"POST /v1/sessions/{id}/finalize":      "Reassemble and transcribe a session",
			"DELETE /v1/sessions/{id}":             "Discard a session",
		},
		"timestamp": time.Now().UTC(),
	}

	writeJSON(w, http.StatusOK, apiDoc)
}
