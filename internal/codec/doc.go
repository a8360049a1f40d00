// Package codec decodes audio containers into PCM buffers.
// WAV and Ogg Vorbis are decoded in process; every other family is converted by an
// ffmpeg subprocess working on scratch files that are always removed.
package codec
