package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(c *Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:   "default configuration",
			modify: func(c *Config) {},
		},
		{
			name:        "invalid http port",
			modify:      func(c *Config) { c.HTTP.Port = 70000 },
			expectError: true,
			errorMsg:    "http port must be between 1 and 65535",
		},
		{
			name: "http disabled ignores port",
			modify: func(c *Config) {
				c.HTTP.Enabled = false
				c.HTTP.Port = 0
			},
		},
		{
			name:        "unknown strategy",
			modify:      func(c *Config) { c.Transcription.Strategy = "random" },
			expectError: true,
			errorMsg:    "strategy must be",
		},
		{
			name:        "overlap longer than segment",
			modify:      func(c *Config) { c.Transcription.OverlapMs = 300000 },
			expectError: true,
			errorMsg:    "segment_length_ms",
		},
		{
			name: "attempt on disabled engine",
			modify: func(c *Config) {
				c.Transcription.Attempts = append(c.Transcription.Attempts, AttemptConfig{Engine: "local", Locale: "pt"})
			},
			expectError: true,
			errorMsg:    "engine \"local\" which is not enabled",
		},
		{
			name: "attempt on enabled local engine",
			modify: func(c *Config) {
				c.Engines.Local.Enabled = true
				c.Transcription.Attempts = []AttemptConfig{{Engine: "local", Locale: "pt"}}
			},
		},
		{
			name:        "calibration step too large",
			modify:      func(c *Config) { c.Correction.CalibrationStep = 0.6 },
			expectError: true,
			errorMsg:    "calibration_step",
		},
		{
			name: "filter band inverted",
			modify: func(c *Config) {
				c.Normalization.Filter = true
				c.Normalization.HighPassHz = 9000
			},
			expectError: true,
			errorMsg:    "low_pass_hz",
		},
		{
			name:        "positive peak target",
			modify:      func(c *Config) { c.Normalization.TargetPeakDBFS = 3 },
			expectError: true,
			errorMsg:    "target_peak_dbfs",
		},
		{
			name: "inbox without workers",
			modify: func(c *Config) {
				c.Inbox.Enabled = true
				c.Inbox.Workers = 0
			},
			expectError: true,
			errorMsg:    "workers must be at least 1",
		},
		{
			name:        "remote engine without concurrency",
			modify:      func(c *Config) { c.Engines.Remote.Enabled = true; c.Engines.Remote.MaxConcurrent = 0 },
			expectError: true,
			errorMsg:    "max_concurrent",
		},
		{
			name:        "session timeout zero",
			modify:      func(c *Config) { c.Sessions.Timeout = 0 },
			expectError: true,
			errorMsg:    "sessions config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.modify(config)
			err := config.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		errorMsg    string
		check       func(t *testing.T, c *Config)
	}{
		{
			name: "valid config file",
			configYAML: `
http:
  port: 9090
logging:
  level: "debug"
  format: "text"
transcription:
  strategy: "best_confidence"
  attempts:
    - engine: "openai"
      locale: "pt-BR"
engines:
  google:
    enabled: false
  openai:
    enabled: true
correction:
  table:
    11025: 44100
`,
			check: func(t *testing.T, c *Config) {
				if c.HTTP.Port != 9090 {
					t.Errorf("Expected port 9090, got %d", c.HTTP.Port)
				}
				if c.HTTP.Address != "0.0.0.0" {
					t.Errorf("Expected default address to survive, got %q", c.HTTP.Address)
				}
				if len(c.Transcription.Attempts) != 1 || c.Transcription.Attempts[0].Engine != "openai" {
					t.Errorf("Unexpected attempts %+v", c.Transcription.Attempts)
				}
				if c.Correction.Table[11025] != 44100 {
					t.Errorf("Expected table entry for 11025, got %v", c.Correction.Table)
				}
			},
		},
		{
			name: "invalid YAML syntax",
			configYAML: `
http:
  port: invalid_number
`,
			expectError: true,
			errorMsg:    "failed to parse",
		},
		{
			name: "invalid values",
			configYAML: `
logging:
  level: "trace"
`,
			expectError: true,
			errorMsg:    "logging config: level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, "config.yaml")
			err := os.WriteFile(configPath, []byte(tt.configYAML), 0644)
			if err != nil {
				t.Fatalf("Failed to create test config file: %v", err)
			}

			config, err := Load(configPath)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error but got: %v", err)
			}
			if tt.check != nil {
				tt.check(t, config)
			}
		})
	}
}

func TestConfigLoadNonexistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Fatal("Expected error for nonexistent file but got none")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Expected error about reading file, got: %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("GOOGLE_STT_API_KEY", "g-env")
	t.Setenv("GOOGLE_STT_CREDENTIALS", "")
	t.Setenv("REMOTE_STT_API_KEY", "r-env")

	config := Default()
	config.Engines.Remote.APIKey = "from-file"
	config.ApplyEnv()

	if config.Engines.OpenAI.APIKey != "sk-env" || config.Summary.APIKey != "sk-env" {
		t.Errorf("Expected OpenAI keys from env, got %q and %q", config.Engines.OpenAI.APIKey, config.Summary.APIKey)
	}
	if config.Engines.Google.APIKey != "g-env" {
		t.Errorf("Expected Google key from env, got %q", config.Engines.Google.APIKey)
	}
	if config.Engines.Google.Credentials != "" {
		t.Errorf("Expected empty credentials, got %q", config.Engines.Google.Credentials)
	}
	if config.Engines.Remote.APIKey != "from-file" {
		t.Errorf("Expected file value to win, got %q", config.Engines.Remote.APIKey)
	}
}

func TestDurationHelpers(t *testing.T) {
	config := Default()

	if config.Transcription.GetCallTimeout() != 30*time.Second {
		t.Errorf("Expected 30 seconds, got %v", config.Transcription.GetCallTimeout())
	}

	if config.Sessions.GetTimeoutDuration() != 30*time.Minute {
		t.Errorf("Expected 30 minutes, got %v", config.Sessions.GetTimeoutDuration())
	}

	if config.Sessions.GetCleanupInterval() != 30*time.Second {
		t.Errorf("Expected 30 seconds, got %v", config.Sessions.GetCleanupInterval())
	}

	inbox := InboxConfig{Settle: 1.5}
	if inbox.GetSettleDuration() != 1500*time.Millisecond {
		t.Errorf("Expected 1.5 seconds, got %v", inbox.GetSettleDuration())
	}

	local := LocalEngineConfig{Timeout: 300}
	if local.GetTimeoutDuration() != 5*time.Minute {
		t.Errorf("Expected 5 minutes, got %v", local.GetTimeoutDuration())
	}
}

func TestLoggingConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		config LoggingConfig
		valid  bool
	}{
		{
			name:   "valid json to stdout",
			config: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
			valid:  true,
		},
		{
			name:   "valid text to file",
			config: LoggingConfig{Level: "debug", Format: "text", Output: "/var/log/consult.log"},
			valid:  true,
		},
		{
			name:   "invalid log level",
			config: LoggingConfig{Level: "trace", Format: "json", Output: "stdout"},
			valid:  false,
		},
		{
			name:   "invalid format",
			config: LoggingConfig{Level: "info", Format: "xml", Output: "stdout"},
			valid:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.valid && err != nil {
				t.Errorf("Expected valid config but got error: %v", err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Expected invalid config but got no error")
			}
		})
	}
}
