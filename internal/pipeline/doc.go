// Package pipeline is the single entry point from raw audio to transcript.
// It sequences sniffing, decoding, sample rate correction, normalization, recognition
// and optional enhancement, threading warnings from every stage into the result.
package pipeline
