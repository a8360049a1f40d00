// Package inbox watches a drop folder for recordings and transcribes each new file once
// it has stopped changing. Transcripts are written next to the configured output
// directory as plain text files.
package inbox
