// Package speech wraps speech recognition services behind a single Recognizer interface.
// Cloud REST engines, the OpenAI Whisper API, a generic multipart endpoint and a local
// whisper CLI are supported. Every recognizer takes a normalized PCM buffer and returns
// text with an optional confidence.
package speech
