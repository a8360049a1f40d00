// Package summary post-processes raw transcripts with a generative text model.
// Enhancement is best effort: EnhanceOrRaw falls back to the raw transcript on any failure.
package summary
