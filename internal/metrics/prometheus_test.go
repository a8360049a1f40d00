package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// gathered sums the counter or gauge values of a metric family whose labels include want
func gathered(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	total := 0.0
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			match := true
			for k, v := range want {
				if labels[k] != v {
					match = false
				}
			}
			if !match {
				continue
			}
			if c := metric.GetCounter(); c != nil {
				total += c.GetValue()
			}
			if g := metric.GetGauge(); g != nil {
				total += g.GetValue()
			}
		}
	}
	return total
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	m.RecordPipelineRun("file", "ok", 1)
	m.ObserveStage("decode", 0.1)
	m.RecordFormat("WAV")
	m.RecordRateCorrection("16000", "44100")
	m.RecordChunksSkipped(2)
	m.RecordEngineAttempt("google", "pt-BR", "success", 0.5)
	m.RecordSegment(true)
	m.RecordSilentInput()
	m.RecordSummaryFallback("error")
	m.SetActiveSessions(3)
	m.RecordHTTPRequest("GET", "/health", "200", 0.01)
}

func TestRecordings(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordPipelineRun("file", "ok", 1.5)
	m.RecordPipelineRun("file", "ok", 0.5)
	m.RecordPipelineRun("chunks", "failed", 2)
	if got := gathered(t, reg, "consult_pipeline_runs_total", map[string]string{"source": "file", "status": "ok"}); got != 2 {
		t.Errorf("Expected 2 ok file runs, got %v", got)
	}

	m.RecordEngineAttempt("google", "pt-BR", "unintelligible", 0.2)
	if got := gathered(t, reg, "consult_engine_attempts_total", map[string]string{"engine": "google"}); got != 1 {
		t.Errorf("Expected 1 attempt, got %v", got)
	}

	m.RecordSegment(true)
	m.RecordSegment(false)
	m.RecordSegment(false)
	if got := gathered(t, reg, "consult_segments_total", map[string]string{"outcome": "transcribed"}); got != 2 {
		t.Errorf("Expected 2 transcribed segments, got %v", got)
	}

	m.RecordChunksSkipped(0)
	m.RecordChunksSkipped(3)
	if got := gathered(t, reg, "consult_chunks_skipped_total", nil); got != 3 {
		t.Errorf("Expected 3 skipped chunks, got %v", got)
	}

	m.SetActiveSessions(4)
	if got := gathered(t, reg, "consult_active_sessions", nil); got != 4 {
		t.Errorf("Expected 4 active sessions, got %v", got)
	}
}

func TestSeparateRegistries(t *testing.T) {
	// registering twice on fresh registries must not panic
	NewMetrics(prometheus.NewRegistry())
	NewMetrics(prometheus.NewRegistry())
}
