// Package config provides configuration loading and validation for the consultation
// transcription service. Configuration is read from YAML, validated per section, and
// secrets may be filled in from the environment.
package config
