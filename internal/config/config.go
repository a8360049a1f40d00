package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	HTTP          HTTPConfig          `yaml:"http" json:"http"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
	Codec         CodecConfig         `yaml:"codec" json:"codec"`
	Correction    CorrectionConfig    `yaml:"correction" json:"correction"`
	Normalization NormalizationConfig `yaml:"normalization" json:"normalization"`
	Transcription TranscriptionConfig `yaml:"transcription" json:"transcription"`
	Engines       EnginesConfig       `yaml:"engines" json:"engines"`
	Summary       SummaryConfig       `yaml:"summary" json:"summary"`
	Sessions      SessionsConfig      `yaml:"sessions" json:"sessions"`
	Inbox         InboxConfig         `yaml:"inbox" json:"inbox"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port         int    `yaml:"port" json:"port"`
	Address      string `yaml:"address" json:"address"`
	Enabled      bool   `yaml:"enabled" json:"enabled"`
	ReadTimeout  int    `yaml:"read_timeout" json:"read_timeout"`   // seconds
	WriteTimeout int    `yaml:"write_timeout" json:"write_timeout"` // seconds
	MaxBodyBytes int64  `yaml:"max_body_bytes" json:"max_body_bytes"`
	OwnerHeader  string `yaml:"owner_header" json:"owner_header"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// CodecConfig controls decoding of incoming recordings
type CodecConfig struct {
	FFmpegPath   string `yaml:"ffmpeg_path" json:"ffmpeg_path"`
	TempDir      string `yaml:"temp_dir" json:"temp_dir"`
	EnableFFmpeg bool   `yaml:"enable_ffmpeg" json:"enable_ffmpeg"`
}

// CorrectionConfig holds the sample-rate relabeling table. The values were tuned
// against specific capture devices and are not physical constants.
type CorrectionConfig struct {
	PlausibleMinRate       int         `yaml:"plausible_min_rate" json:"plausible_min_rate"`
	Table                  map[int]int `yaml:"table" json:"table"`
	Factor                 float64     `yaml:"factor" json:"factor"`
	MaxRate                int         `yaml:"max_rate" json:"max_rate"`
	ClampRate              int         `yaml:"clamp_rate" json:"clamp_rate"`
	DurationWarnMs         int         `yaml:"duration_warn_ms" json:"duration_warn_ms"`
	CalibrationStep        float64     `yaml:"calibration_step" json:"calibration_step"`
	MinPlausibleDurationMs int         `yaml:"min_plausible_duration_ms" json:"min_plausible_duration_ms"`
}

// NormalizationConfig contains amplitude and filter settings
type NormalizationConfig struct {
	Downmix        bool    `yaml:"downmix" json:"downmix"`
	PeakNormalize  bool    `yaml:"peak_normalize" json:"peak_normalize"`
	TargetPeakDBFS float64 `yaml:"target_peak_dbfs" json:"target_peak_dbfs"`
	Filter         bool    `yaml:"filter" json:"filter"`
	HighPassHz     float64 `yaml:"high_pass_hz" json:"high_pass_hz"`
	LowPassHz      float64 `yaml:"low_pass_hz" json:"low_pass_hz"`
}

// AttemptConfig is one engine and locale pair
type AttemptConfig struct {
	Engine string `yaml:"engine" json:"engine"`
	Locale string `yaml:"locale" json:"locale"`
}

// CalibrationConfig contains ambient noise calibration parameters
type CalibrationConfig struct {
	MinMs          int     `yaml:"min_ms" json:"min_ms"`
	MaxMs          int     `yaml:"max_ms" json:"max_ms"`
	Ratio          float64 `yaml:"ratio" json:"ratio"`
	FrameMs        int     `yaml:"frame_ms" json:"frame_ms"`
	SilenceRMS     float64 `yaml:"silence_rms" json:"silence_rms"`
	MinSNRDB       float64 `yaml:"min_snr_db" json:"min_snr_db"`
	ThresholdRatio float64 `yaml:"threshold_ratio" json:"threshold_ratio"`
}

// TranscriptionConfig contains the recognition policy
type TranscriptionConfig struct {
	Strategy             string            `yaml:"strategy" json:"strategy"`
	Attempts             []AttemptConfig   `yaml:"attempts" json:"attempts"`
	CallTimeout          int               `yaml:"call_timeout" json:"call_timeout"` // seconds
	MinInputBytes        int               `yaml:"min_input_bytes" json:"min_input_bytes"`
	MinDurationMs        int               `yaml:"min_duration_ms" json:"min_duration_ms"`
	LongAudioThresholdMs int               `yaml:"long_audio_threshold_ms" json:"long_audio_threshold_ms"`
	SegmentLengthMs      int               `yaml:"segment_length_ms" json:"segment_length_ms"`
	OverlapMs            int               `yaml:"overlap_ms" json:"overlap_ms"`
	DefaultConfidence    float64           `yaml:"default_confidence" json:"default_confidence"`
	NearEqualConfidence  float64           `yaml:"near_equal_confidence" json:"near_equal_confidence"`
	FailureText          string            `yaml:"failure_text" json:"failure_text"`
	InaudibleMarker      string            `yaml:"inaudible_marker" json:"inaudible_marker"`
	RejectedText         string            `yaml:"rejected_text" json:"rejected_text"`
	Calibration          CalibrationConfig `yaml:"calibration" json:"calibration"`
}

// EnginesConfig configures the speech recognition backends
type EnginesConfig struct {
	Google GoogleEngineConfig `yaml:"google" json:"google"`
	OpenAI OpenAIEngineConfig `yaml:"openai" json:"openai"`
	Remote RemoteEngineConfig `yaml:"remote" json:"remote"`
	Local  LocalEngineConfig  `yaml:"local" json:"local"`
}

// GoogleEngineConfig configures the Google Speech REST engine
type GoogleEngineConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	Endpoint    string `yaml:"endpoint" json:"endpoint"`
	APIKey      string `yaml:"api_key" json:"-"`
	Credentials string `yaml:"credentials" json:"-"` // service account JSON or path
	Model       string `yaml:"model" json:"model"`
	UseEnhanced bool   `yaml:"use_enhanced" json:"use_enhanced"`
	Timeout     int    `yaml:"timeout" json:"timeout"` // seconds
}

// OpenAIEngineConfig configures the Whisper API engine
type OpenAIEngineConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	APIKey  string `yaml:"api_key" json:"-"`
	BaseURL string `yaml:"base_url" json:"base_url"`
	Model   string `yaml:"model" json:"model"`
	Prompt  string `yaml:"prompt" json:"prompt"`
	Timeout int    `yaml:"timeout" json:"timeout"` // seconds
}

// RemoteEngineConfig configures a generic HTTP transcription service
type RemoteEngineConfig struct {
	Enabled       bool   `yaml:"enabled" json:"enabled"`
	Endpoint      string `yaml:"endpoint" json:"endpoint"`
	APIKey        string `yaml:"api_key" json:"-"`
	Model         string `yaml:"model" json:"model"`
	Timeout       int    `yaml:"timeout" json:"timeout"` // seconds
	MaxRetries    int    `yaml:"max_retries" json:"max_retries"`
	MaxConcurrent int    `yaml:"max_concurrent" json:"max_concurrent"`
}

// LocalEngineConfig configures the whisper CLI engine
type LocalEngineConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	BinaryPath string `yaml:"binary_path" json:"binary_path"`
	ModelPath  string `yaml:"model_path" json:"model_path"`
	Threads    int    `yaml:"threads" json:"threads"`
	TempDir    string `yaml:"temp_dir" json:"temp_dir"`
	Timeout    int    `yaml:"timeout" json:"timeout"` // seconds
}

// SummaryConfig configures transcript enhancement
type SummaryConfig struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	APIKey      string  `yaml:"api_key" json:"-"`
	BaseURL     string  `yaml:"base_url" json:"base_url"`
	Model       string  `yaml:"model" json:"model"`
	Prompt      string  `yaml:"prompt" json:"prompt"`
	Temperature float32 `yaml:"temperature" json:"temperature"`
	MinLength   int     `yaml:"min_length" json:"min_length"`
	Timeout     int     `yaml:"timeout" json:"timeout"` // seconds
}

// SessionsConfig configures chunked recording sessions
type SessionsConfig struct {
	Timeout         int `yaml:"timeout" json:"timeout"`                   // seconds
	CleanupInterval int `yaml:"cleanup_interval" json:"cleanup_interval"` // seconds
	MaxChunks       int `yaml:"max_chunks" json:"max_chunks"`
	MaxChunkBytes   int `yaml:"max_chunk_bytes" json:"max_chunk_bytes"`
}

// InboxConfig configures the drop folder watcher
type InboxConfig struct {
	Enabled    bool     `yaml:"enabled" json:"enabled"`
	Dir        string   `yaml:"dir" json:"dir"`
	OutputDir  string   `yaml:"output_dir" json:"output_dir"`
	Extensions []string `yaml:"extensions" json:"extensions"`
	Settle     float64  `yaml:"settle" json:"settle"` // seconds
	Workers    int      `yaml:"workers" json:"workers"`
	Enhance    bool     `yaml:"enhance" json:"enhance"`
}

// Default returns a complete, valid configuration
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:         8080,
			Address:      "0.0.0.0",
			Enabled:      true,
			ReadTimeout:  60,
			WriteTimeout: 600,
			MaxBodyBytes: 200 << 20,
			OwnerHeader:  "X-Owner-ID",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Codec: CodecConfig{
			FFmpegPath:   "ffmpeg",
			EnableFFmpeg: true,
		},
		Correction: CorrectionConfig{
			PlausibleMinRate:       22050,
			Table:                  map[int]int{16000: 44100, 8000: 44000},
			Factor:                 2.75,
			MaxRate:                48000,
			ClampRate:              44100,
			DurationWarnMs:         100,
			CalibrationStep:        0.02,
			MinPlausibleDurationMs: 500,
		},
		Normalization: NormalizationConfig{
			Downmix:        true,
			PeakNormalize:  true,
			TargetPeakDBFS: -1.0,
			HighPassHz:     80,
			LowPassHz:      8000,
		},
		Transcription: TranscriptionConfig{
			Strategy: "first_success",
			Attempts: []AttemptConfig{
				{Engine: "google", Locale: "pt-BR"},
				{Engine: "google", Locale: "pt-PT"},
			},
			CallTimeout:          30,
			MinInputBytes:        1000,
			MinDurationMs:        500,
			LongAudioThresholdMs: 300000,
			SegmentLengthMs:      240000,
			OverlapMs:            5000,
			DefaultConfidence:    0.5,
			NearEqualConfidence:  0.1,
			FailureText:          "[transcription failed: the audio could not be understood]",
			InaudibleMarker:      "[inaudible segment]",
			RejectedText:         "[transcription rejected: audio too short or empty]",
			Calibration: CalibrationConfig{
				MinMs:          200,
				MaxMs:          1000,
				Ratio:          0.1,
				FrameMs:        20,
				SilenceRMS:     60,
				MinSNRDB:       6,
				ThresholdRatio: 1.5,
			},
		},
		Engines: EnginesConfig{
			Google: GoogleEngineConfig{
				Enabled:  true,
				Endpoint: "https://speech.googleapis.com/v1/speech:recognize",
				Model:    "latest_long",
				Timeout:  30,
			},
			OpenAI: OpenAIEngineConfig{
				Model:   "whisper-1",
				Timeout: 60,
			},
			Remote: RemoteEngineConfig{
				Endpoint:      "http://localhost:8090/transcribe",
				Timeout:       30,
				MaxRetries:    3,
				MaxConcurrent: 4,
			},
			Local: LocalEngineConfig{
				BinaryPath: "whisper-cli",
				Threads:    4,
				Timeout:    300,
			},
		},
		Summary: SummaryConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
			MinLength:   10,
			Timeout:     60,
		},
		Sessions: SessionsConfig{
			Timeout:         1800,
			CleanupInterval: 30,
			MaxChunks:       500,
			MaxChunkBytes:   50 << 20,
		},
		Inbox: InboxConfig{
			Dir:        "./inbox",
			Extensions: []string{".wav", ".mp3", ".m4a", ".ogg", ".flac", ".webm", ".amr"},
			Settle:     2.0,
			Workers:    1,
		},
	}
}

// Load reads and parses the configuration file on top of the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// ApplyEnv fills empty secrets from the environment
func (c *Config) ApplyEnv() {
	setFromEnv(&c.Engines.OpenAI.APIKey, "OPENAI_API_KEY")
	setFromEnv(&c.Summary.APIKey, "OPENAI_API_KEY")
	setFromEnv(&c.Engines.Google.APIKey, "GOOGLE_STT_API_KEY")
	setFromEnv(&c.Engines.Google.Credentials, "GOOGLE_STT_CREDENTIALS")
	setFromEnv(&c.Engines.Remote.APIKey, "REMOTE_STT_API_KEY")
}

func setFromEnv(field *string, key string) {
	if *field != "" {
		return
	}
	if v := os.Getenv(key); v != "" {
		*field = v
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := c.Codec.Validate(); err != nil {
		return fmt.Errorf("codec config: %w", err)
	}

	if err := c.Correction.Validate(); err != nil {
		return fmt.Errorf("correction config: %w", err)
	}

	if err := c.Normalization.Validate(); err != nil {
		return fmt.Errorf("normalization config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Engines.Validate(); err != nil {
		return fmt.Errorf("engines config: %w", err)
	}

	for i, a := range c.Transcription.Attempts {
		if !c.Engines.IsEnabled(a.Engine) {
			return fmt.Errorf("transcription config: attempt %d uses engine %q which is not enabled", i, a.Engine)
		}
	}

	if err := c.Summary.Validate(); err != nil {
		return fmt.Errorf("summary config: %w", err)
	}

	if err := c.Sessions.Validate(); err != nil {
		return fmt.Errorf("sessions config: %w", err)
	}

	if err := c.Inbox.Validate(); err != nil {
		return fmt.Errorf("inbox config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}

		if h.OwnerHeader == "" {
			return fmt.Errorf("owner_header cannot be empty when HTTP is enabled")
		}
	}

	if h.ReadTimeout < 0 || h.WriteTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative, got read %d write %d", h.ReadTimeout, h.WriteTimeout)
	}

	if h.MaxBodyBytes < 0 {
		return fmt.Errorf("max_body_bytes cannot be negative, got %d", h.MaxBodyBytes)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	// any other output value is a file path
	return nil
}

// Validate validates codec configuration
func (c *CodecConfig) Validate() error {
	if c.EnableFFmpeg && c.FFmpegPath == "" {
		return fmt.Errorf("ffmpeg_path cannot be empty when ffmpeg is enabled")
	}
	return nil
}

// Validate validates the correction table
func (c *CorrectionConfig) Validate() error {
	if c.PlausibleMinRate < 1 {
		return fmt.Errorf("plausible_min_rate must be positive, got %d", c.PlausibleMinRate)
	}

	for from, to := range c.Table {
		if from < 1 || to < 1 {
			return fmt.Errorf("table entries must be positive rates, got %d: %d", from, to)
		}
	}

	if c.Factor <= 0 {
		return fmt.Errorf("factor must be positive, got %f", c.Factor)
	}

	if c.ClampRate < 1 || c.MaxRate < c.ClampRate {
		return fmt.Errorf("max_rate (%d) must be at least clamp_rate (%d) and clamp_rate positive", c.MaxRate, c.ClampRate)
	}

	if c.DurationWarnMs < 0 {
		return fmt.Errorf("duration_warn_ms cannot be negative, got %d", c.DurationWarnMs)
	}

	if c.CalibrationStep <= 0 || c.CalibrationStep >= 0.5 {
		return fmt.Errorf("calibration_step must be between 0 and 0.5 (exclusive), got %f", c.CalibrationStep)
	}

	return nil
}

// Validate validates normalization configuration
func (n *NormalizationConfig) Validate() error {
	if n.TargetPeakDBFS > 0 {
		return fmt.Errorf("target_peak_dbfs cannot be above 0, got %f", n.TargetPeakDBFS)
	}

	if n.Filter {
		if n.HighPassHz <= 0 || n.LowPassHz <= n.HighPassHz {
			return fmt.Errorf("low_pass_hz (%f) must be greater than high_pass_hz (%f) and both positive",
				n.LowPassHz, n.HighPassHz)
		}
	}

	return nil
}

// Validate validates the recognition policy
func (t *TranscriptionConfig) Validate() error {
	if t.Strategy != "first_success" && t.Strategy != "best_confidence" {
		return fmt.Errorf("strategy must be 'first_success' or 'best_confidence', got '%s'", t.Strategy)
	}

	if len(t.Attempts) == 0 {
		return fmt.Errorf("attempts cannot be empty")
	}

	if t.CallTimeout < 1 {
		return fmt.Errorf("call_timeout must be at least 1 second, got %d", t.CallTimeout)
	}

	if t.SegmentLengthMs <= t.OverlapMs || t.OverlapMs < 0 {
		return fmt.Errorf("segment_length_ms (%d) must be greater than overlap_ms (%d)", t.SegmentLengthMs, t.OverlapMs)
	}

	if t.LongAudioThresholdMs < 1 {
		return fmt.Errorf("long_audio_threshold_ms must be positive, got %d", t.LongAudioThresholdMs)
	}

	if t.NearEqualConfidence < 0 || t.NearEqualConfidence > 1 {
		return fmt.Errorf("near_equal_confidence must be between 0 and 1, got %f", t.NearEqualConfidence)
	}

	if t.DefaultConfidence < 0 || t.DefaultConfidence > 1 {
		return fmt.Errorf("default_confidence must be between 0 and 1, got %f", t.DefaultConfidence)
	}

	if t.Calibration.MinMs < 1 || t.Calibration.MaxMs < t.Calibration.MinMs {
		return fmt.Errorf("calibration max_ms (%d) must be at least min_ms (%d) and min_ms positive",
			t.Calibration.MaxMs, t.Calibration.MinMs)
	}

	if t.Calibration.FrameMs < 1 {
		return fmt.Errorf("calibration frame_ms must be positive, got %d", t.Calibration.FrameMs)
	}

	return nil
}

// IsEnabled reports whether the named engine is enabled
func (e *EnginesConfig) IsEnabled(name string) bool {
	switch name {
	case "google":
		return e.Google.Enabled
	case "openai":
		return e.OpenAI.Enabled
	case "remote":
		return e.Remote.Enabled
	case "local":
		return e.Local.Enabled
	}
	return false
}

// Validate validates the enabled engines
func (e *EnginesConfig) Validate() error {
	if e.Google.Enabled && e.Google.Endpoint == "" {
		return fmt.Errorf("google endpoint cannot be empty")
	}

	if e.Remote.Enabled {
		if e.Remote.Endpoint == "" {
			return fmt.Errorf("remote endpoint cannot be empty")
		}
		if e.Remote.MaxRetries < 0 {
			return fmt.Errorf("remote max_retries cannot be negative, got %d", e.Remote.MaxRetries)
		}
		if e.Remote.MaxConcurrent < 1 {
			return fmt.Errorf("remote max_concurrent must be at least 1, got %d", e.Remote.MaxConcurrent)
		}
	}

	if e.Local.Enabled && e.Local.BinaryPath == "" {
		return fmt.Errorf("local binary_path cannot be empty")
	}

	return nil
}

// Validate validates summary configuration
func (s *SummaryConfig) Validate() error {
	if s.MinLength < 0 {
		return fmt.Errorf("min_length cannot be negative, got %d", s.MinLength)
	}

	if s.Temperature < 0 || s.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", s.Temperature)
	}

	if s.Enabled && s.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", s.Timeout)
	}

	return nil
}

// Validate validates sessions configuration
func (s *SessionsConfig) Validate() error {
	if s.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", s.Timeout)
	}

	if s.CleanupInterval < 1 {
		return fmt.Errorf("cleanup_interval must be at least 1 second, got %d", s.CleanupInterval)
	}

	if s.MaxChunks < 0 || s.MaxChunkBytes < 0 {
		return fmt.Errorf("chunk limits cannot be negative, got %d chunks %d bytes", s.MaxChunks, s.MaxChunkBytes)
	}

	return nil
}

// Validate validates inbox configuration
func (i *InboxConfig) Validate() error {
	if !i.Enabled {
		return nil
	}

	if i.Dir == "" {
		return fmt.Errorf("dir cannot be empty when the inbox is enabled")
	}

	for _, ext := range i.Extensions {
		if strings.TrimPrefix(ext, ".") == "" {
			return fmt.Errorf("extensions cannot contain empty values")
		}
	}

	if i.Settle <= 0 {
		return fmt.Errorf("settle must be positive, got %f", i.Settle)
	}

	if i.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", i.Workers)
	}

	return nil
}

// GetReadTimeout returns the read timeout as a time.Duration
func (h *HTTPConfig) GetReadTimeout() time.Duration {
	return time.Duration(h.ReadTimeout) * time.Second
}

// GetWriteTimeout returns the write timeout as a time.Duration
func (h *HTTPConfig) GetWriteTimeout() time.Duration {
	return time.Duration(h.WriteTimeout) * time.Second
}

// GetCallTimeout returns the per-engine call timeout as a time.Duration
func (t *TranscriptionConfig) GetCallTimeout() time.Duration {
	return time.Duration(t.CallTimeout) * time.Second
}

// GetTimeoutDuration returns the engine timeout as a time.Duration
func (g *GoogleEngineConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(g.Timeout) * time.Second
}

// GetTimeoutDuration returns the engine timeout as a time.Duration
func (o *OpenAIEngineConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(o.Timeout) * time.Second
}

// GetTimeoutDuration returns the engine timeout as a time.Duration
func (r *RemoteEngineConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(r.Timeout) * time.Second
}

// GetTimeoutDuration returns the engine timeout as a time.Duration
func (l *LocalEngineConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(l.Timeout) * time.Second
}

// GetTimeoutDuration returns the enhancement timeout as a time.Duration
func (s *SummaryConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// GetTimeoutDuration returns the session inactivity timeout as a time.Duration
func (s *SessionsConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// GetCleanupInterval returns the session cleanup interval as a time.Duration
func (s *SessionsConfig) GetCleanupInterval() time.Duration {
	return time.Duration(s.CleanupInterval) * time.Second
}

// GetSettleDuration returns the inbox settle time as a time.Duration
func (i *InboxConfig) GetSettleDuration() time.Duration {
	return time.Duration(i.Settle * float64(time.Second))
}
