// Package metrics defines the Prometheus metrics of the transcription service.
// Metrics are registered on an injected registerer so tests can use isolated registries.
package metrics
