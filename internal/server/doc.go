// Package server exposes the transcription pipeline and chunked recording sessions over
// HTTP, together with health, configuration, statistics and Prometheus endpoints.
package server
