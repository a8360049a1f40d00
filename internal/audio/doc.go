// Package audio holds the decoded PCM representation and every signal stage that runs on it.
// It sniffs container formats, corrects mislabeled sample rates, normalizes channels and
// amplitude, plans overlapping transcription windows, and reassembles chunked recordings.
package audio
