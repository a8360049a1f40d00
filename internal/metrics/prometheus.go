package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the transcription service.
// Every method is safe to call on a nil *Metrics.
type Metrics struct {
	// Pipeline metrics
	PipelineRuns     *prometheus.CounterVec
	PipelineDuration prometheus.Histogram
	StageDuration    *prometheus.HistogramVec
	InputDuration    prometheus.Histogram

	// Audio metrics
	FormatsSniffed  *prometheus.CounterVec
	RateCorrections *prometheus.CounterVec
	ChunksSkipped   prometheus.Counter

	// Recognition metrics
	EngineAttempts *prometheus.CounterVec
	EngineDuration *prometheus.HistogramVec
	Segments       *prometheus.CounterVec
	SilentInputs   prometheus.Counter

	// Summary metrics
	SummaryRequests  prometheus.Counter
	SummaryFallbacks *prometheus.CounterVec

	// Session metrics
	ActiveSessions  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionsExpired prometheus.Counter
	ChunksReceived  prometheus.Counter
	ChunkSize       prometheus.Histogram
	InboxFiles      *prometheus.CounterVec

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		// Pipeline metrics
		PipelineRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "consult_pipeline_runs_total",
			Help: "Total number of pipeline runs by outcome",
		}, []string{"source", "status"}),
		PipelineDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "consult_pipeline_duration_seconds",
			Help:    "End-to-end pipeline duration",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~7 minutes
		}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "consult_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~33s
		}, []string{"stage"}),
		InputDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "consult_input_audio_duration_seconds",
			Help:    "Duration of decoded input audio",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68 minutes
		}),

		// Audio metrics
		FormatsSniffed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "consult_formats_sniffed_total",
			Help: "Inputs by sniffed container family",
		}, []string{"family"}),
		RateCorrections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "consult_rate_corrections_total",
			Help: "Sample rate relabelings by declared and corrected rate",
		}, []string{"from", "to"}),
		ChunksSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "consult_chunks_skipped_total",
			Help: "Session chunks skipped during reassembly",
		}),

		// Recognition metrics
		EngineAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "consult_engine_attempts_total",
			Help: "Speech engine attempts by engine, locale and outcome",
		}, []string{"engine", "locale", "outcome"}),
		EngineDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "consult_engine_duration_seconds",
			Help:    "Duration of speech engine calls",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
		}, []string{"engine"}),
		Segments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "consult_segments_total",
			Help: "Long-audio segments by outcome",
		}, []string{"outcome"}),
		SilentInputs: f.NewCounter(prometheus.CounterOpts{
			Name: "consult_silent_inputs_total",
			Help: "Buffers gated as silent by ambient calibration",
		}),

		// Summary metrics
		SummaryRequests: f.NewCounter(prometheus.CounterOpts{
			Name: "consult_summary_requests_total",
			Help: "Total number of transcript enhancement requests",
		}),
		SummaryFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "consult_summary_fallbacks_total",
			Help: "Enhancements that fell back to the raw transcript",
		}, []string{"reason"}),

		// Session metrics
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "consult_active_sessions",
			Help: "Current number of open recording sessions",
		}),
		SessionsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "consult_sessions_created_total",
			Help: "Total number of recording sessions created",
		}),
		SessionsExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "consult_sessions_expired_total",
			Help: "Recording sessions removed after inactivity",
		}),
		ChunksReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "consult_chunks_received_total",
			Help: "Total number of session chunks received",
		}),
		ChunkSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "consult_chunk_size_bytes",
			Help:    "Size of received session chunks in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 14), // 1KB to ~16MB
		}),
		InboxFiles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "consult_inbox_files_total",
			Help: "Inbox files processed by outcome",
		}, []string{"status"}),

		// HTTP API metrics
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "consult_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "consult_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "consult_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordPipelineRun records a finished pipeline run
func (m *Metrics) RecordPipelineRun(source, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(source, status).Inc()
	m.PipelineDuration.Observe(durationSeconds)
}

// ObserveStage records the duration of one pipeline stage
func (m *Metrics) ObserveStage(stage string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordInputDuration records the decoded length of an input
func (m *Metrics) RecordInputDuration(durationSeconds float64) {
	if m == nil {
		return
	}
	m.InputDuration.Observe(durationSeconds)
}

// RecordFormat increments the sniffed family counter
func (m *Metrics) RecordFormat(family string) {
	if m == nil {
		return
	}
	m.FormatsSniffed.WithLabelValues(family).Inc()
}

// RecordRateCorrection records a sample rate relabeling
func (m *Metrics) RecordRateCorrection(from, to string) {
	if m == nil {
		return
	}
	m.RateCorrections.WithLabelValues(from, to).Inc()
}

// RecordChunksSkipped adds skipped reassembly chunks
func (m *Metrics) RecordChunksSkipped(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.ChunksSkipped.Add(float64(count))
}

// RecordEngineAttempt records one recognizer call
func (m *Metrics) RecordEngineAttempt(engine, locale, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.EngineAttempts.WithLabelValues(engine, locale, outcome).Inc()
	m.EngineDuration.WithLabelValues(engine).Observe(durationSeconds)
}

// RecordSegment records the outcome of one long-audio segment
func (m *Metrics) RecordSegment(inaudible bool) {
	if m == nil {
		return
	}
	if inaudible {
		m.Segments.WithLabelValues("inaudible").Inc()
		return
	}
	m.Segments.WithLabelValues("transcribed").Inc()
}

// RecordSilentInput increments the silent input counter
func (m *Metrics) RecordSilentInput() {
	if m == nil {
		return
	}
	m.SilentInputs.Inc()
}

// RecordSummaryRequest increments the enhancement request counter
func (m *Metrics) RecordSummaryRequest() {
	if m == nil {
		return
	}
	m.SummaryRequests.Inc()
}

// RecordSummaryFallback records an enhancement that returned the raw transcript
func (m *Metrics) RecordSummaryFallback(reason string) {
	if m == nil {
		return
	}
	m.SummaryFallbacks.WithLabelValues(reason).Inc()
}

// SetActiveSessions sets the current number of open sessions
func (m *Metrics) SetActiveSessions(count int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(count))
}

// RecordSessionCreated increments the sessions created counter
func (m *Metrics) RecordSessionCreated() {
	if m == nil {
		return
	}
	m.SessionsCreated.Inc()
}

// RecordSessionExpired increments the expired sessions counter
func (m *Metrics) RecordSessionExpired() {
	if m == nil {
		return
	}
	m.SessionsExpired.Inc()
}

// RecordChunkReceived records an uploaded session chunk
func (m *Metrics) RecordChunkReceived(sizeBytes int) {
	if m == nil {
		return
	}
	m.ChunksReceived.Inc()
	m.ChunkSize.Observe(float64(sizeBytes))
}

// RecordInboxFile records a processed inbox file
func (m *Metrics) RecordInboxFile(status string) {
	if m == nil {
		return
	}
	m.InboxFiles.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	if m == nil {
		return
	}
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
