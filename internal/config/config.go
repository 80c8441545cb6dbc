// Package config provides configuration loading for themesmithd.
//
// Configuration is loaded from a YAML file and overridden by environment
// variables. Sections map one-to-one onto the services they configure;
// packages own their runtime configs and the daemon maps sections onto
// them at startup.
package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
)

// Config holds the complete themesmithd configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Workspace WorkspaceConfig `koanf:"workspace"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	Variation VariationConfig `koanf:"variation"`
	Sanitize  SanitizeConfig  `koanf:"sanitize"`
	Events    EventsConfig    `koanf:"events"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Logging   LoggingConfig   `koanf:"logging"`
	Git       GitConfig       `koanf:"git"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	RateLimit       float64  `koanf:"rate_limit"`
	RateBurst       int      `koanf:"rate_burst"`
}

// WorkspaceConfig holds workspace directory configuration.
//
// Root is where pipeline working directories and the state file live.
// A leading "~/" is expanded to the user's home directory.
type WorkspaceConfig struct {
	Root      string `koanf:"root"`
	InputsDir string `koanf:"inputs_dir"`
	KeepDays  int    `koanf:"keep_days"`
}

// PipelineConfig holds pipeline execution configuration.
type PipelineConfig struct {
	QualityThreshold float64                  `koanf:"quality_threshold"`
	MaxRefinePasses  int                      `koanf:"max_refine_passes"`
	Stages           map[string]StageOverride `koanf:"stages"`
}

// StageOverride adjusts a single stage's execution parameters.
type StageOverride struct {
	Timeout  Duration `koanf:"timeout"`
	Retries  int      `koanf:"retries"`
	Disabled bool     `koanf:"disabled"`
}

// VariationConfig holds design variation configuration.
type VariationConfig struct {
	Seed        int64 `koanf:"seed"`
	HistorySize int   `koanf:"history_size"`
}

// SanitizeConfig holds request scrubbing configuration.
type SanitizeConfig struct {
	Enabled       bool   `koanf:"enabled"`
	AllowlistPath string `koanf:"allowlist_path"`
	Redaction     string `koanf:"redaction"`
}

// EventsConfig holds NATS event publishing configuration.
type EventsConfig struct {
	Enabled       bool   `koanf:"enabled"`
	URL           string `koanf:"url"`
	AuthToken     Secret `koanf:"auth_token"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// TelemetryConfig holds OpenTelemetry export configuration.
type TelemetryConfig struct {
	Enabled         bool     `koanf:"enabled"`
	Endpoint        string   `koanf:"endpoint"`
	Protocol        string   `koanf:"protocol"`
	Insecure        bool     `koanf:"insecure"`
	SampleRatio     float64  `koanf:"sample_ratio"`
	ServiceName     string   `koanf:"service_name"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds log level and format.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// GitConfig holds theme packaging git configuration.
type GitConfig struct {
	Enabled     bool   `koanf:"enabled"`
	AuthorName  string `koanf:"author_name"`
	AuthorEmail string `koanf:"author_email"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9190
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 5
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = 10
	}

	if cfg.Workspace.Root == "" {
		cfg.Workspace.Root = "~/.local/share/themesmith"
	}
	if cfg.Workspace.KeepDays == 0 {
		cfg.Workspace.KeepDays = 14
	}

	if cfg.Pipeline.QualityThreshold == 0 {
		cfg.Pipeline.QualityThreshold = 7.5
	}
	if cfg.Pipeline.MaxRefinePasses == 0 {
		cfg.Pipeline.MaxRefinePasses = 3
	}

	if cfg.Variation.HistorySize == 0 {
		cfg.Variation.HistorySize = 10
	}

	if cfg.Sanitize.Redaction == "" {
		cfg.Sanitize.Redaction = "[REDACTED]"
	}

	if cfg.Events.URL == "" {
		cfg.Events.URL = "nats://127.0.0.1:4222"
	}
	if cfg.Events.SubjectPrefix == "" {
		cfg.Events.SubjectPrefix = "themesmith"
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.SampleRatio == 0 {
		cfg.Telemetry.SampleRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "themesmith"
	}
	if cfg.Telemetry.ShutdownTimeout == 0 {
		cfg.Telemetry.ShutdownTimeout = Duration(5 * time.Second)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Git.AuthorName == "" {
		cfg.Git.AuthorName = "themesmith"
	}
	if cfg.Git.AuthorEmail == "" {
		cfg.Git.AuthorEmail = "themesmith@localhost"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return fmt.Errorf("server shutdown timeout must be positive")
	}
	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("server rate limit must be positive, got %v", c.Server.RateLimit)
	}
	if c.Server.RateBurst < 1 {
		return fmt.Errorf("server rate burst must be >= 1, got %d", c.Server.RateBurst)
	}

	if c.Workspace.Root == "" {
		return fmt.Errorf("workspace root cannot be empty")
	}
	if c.Workspace.KeepDays < 1 {
		return fmt.Errorf("workspace keep_days must be >= 1, got %d", c.Workspace.KeepDays)
	}

	if c.Pipeline.QualityThreshold < 0 || c.Pipeline.QualityThreshold > 10 {
		return fmt.Errorf("pipeline quality threshold must be 0-10, got %v", c.Pipeline.QualityThreshold)
	}
	if c.Pipeline.MaxRefinePasses < 0 {
		return fmt.Errorf("pipeline max refine passes must be >= 0, got %d", c.Pipeline.MaxRefinePasses)
	}
	for name, override := range c.Pipeline.Stages {
		if name == "" {
			return fmt.Errorf("pipeline stage override with empty name")
		}
		if override.Retries < 0 {
			return fmt.Errorf("stage %q: retries must be >= 0, got %d", name, override.Retries)
		}
	}

	if c.Variation.HistorySize < 1 {
		return fmt.Errorf("variation history size must be >= 1, got %d", c.Variation.HistorySize)
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			return fmt.Errorf("telemetry endpoint required when telemetry is enabled")
		}
		if c.Telemetry.Protocol != "grpc" && c.Telemetry.Protocol != "http/protobuf" {
			return fmt.Errorf("telemetry protocol must be 'grpc' or 'http/protobuf', got %q", c.Telemetry.Protocol)
		}
		if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
			return fmt.Errorf("telemetry sample ratio must be 0-1, got %v", c.Telemetry.SampleRatio)
		}
	}

	if c.Events.Enabled && c.Events.URL == "" {
		return fmt.Errorf("events URL required when events are enabled")
	}

	if _, err := logging.LevelFromString(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging level %q: %w", c.Logging.Level, err)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	return nil
}
