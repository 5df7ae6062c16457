// Package config loads srcindex settings from file, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Config is the top-level configuration struct.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	Tools     ToolsConfig     `mapstructure:"tools"`
	Perforce  PerforceConfig  `mapstructure:"perforce"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ToolsConfig locates the source server tools.
type ToolsConfig struct {
	SDKDir  string        `mapstructure:"sdk_dir"`
	SrcTool string        `mapstructure:"srctool"`
	PdbStr  string        `mapstructure:"pdbstr"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PerforceConfig holds connection overrides. Empty values fall back to the p4 environment.
type PerforceConfig struct {
	Executable string        `mapstructure:"executable"`
	Port       string        `mapstructure:"port"`
	User       string        `mapstructure:"user"`
	Client     string        `mapstructure:"client"`
	Host       string        `mapstructure:"host"`
	ConfigFile string        `mapstructure:"config_file"`
	BatchSize  int           `mapstructure:"batch_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// StreamConfig shapes the generated source index stream.
type StreamConfig struct {
	Extension string `mapstructure:"extension"`
	KeepTemp  bool   `mapstructure:"keep_temp"`
	FetchTool string `mapstructure:"fetch_tool"`
	VCS       string `mapstructure:"vcs"`
}

// DiscoveryConfig controls the symbol file search.
type DiscoveryConfig struct {
	Extension string `mapstructure:"extension"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds tracing and metrics export settings.
type TelemetryConfig struct {
	OTLPEndpoint    string `mapstructure:"otlp_endpoint"`
	OTLPInsecure    bool   `mapstructure:"otlp_insecure"`
	MetricsTextfile string `mapstructure:"metrics_textfile"`
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidBatchSize indicates the batch size is not positive.
	ErrInvalidBatchSize = errors.New("perforce.batch_size must be positive")
	// ErrInvalidTimeout indicates a timeout is negative.
	ErrInvalidTimeout = errors.New("timeouts must be non-negative")
	// ErrInvalidExtension indicates an extension does not start with a dot.
	ErrInvalidExtension = errors.New("extensions must start with '.'")
	// ErrInvalidLogLevel indicates an unknown logging.level.
	ErrInvalidLogLevel = errors.New("logging.level must be one of debug, info, warn, error")
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.Perforce.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.Tools.Timeout < 0 || c.Perforce.Timeout < 0 {
		return ErrInvalidTimeout
	}

	for _, ext := range []string{c.Stream.Extension, c.Discovery.Extension} {
		if !strings.HasPrefix(ext, ".") || len(ext) < len(".x") {
			return fmt.Errorf("%w: %q", ErrInvalidExtension, ext)
		}
	}

	return c.validateLogging()
}

func (c *Config) validateLogging() error {
	if c.Logging.Level == "" {
		return nil
	}

	for _, level := range logLevels {
		if strings.EqualFold(c.Logging.Level, level) {
			return nil
		}
	}

	return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
}

// SlogLevel converts logging.level to a slog level. Empty or unknown means info.
func (l LoggingConfig) SlogLevel() slog.Level {
	var level slog.Level

	err := level.UnmarshalText([]byte(l.Level))
	if err != nil {
		return slog.LevelInfo
	}

	return level
}
