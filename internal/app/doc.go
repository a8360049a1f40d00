// Package app assembles the transcription pipeline from a loaded configuration. It is
// shared by the service and the command line tool.
package app
