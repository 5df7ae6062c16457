// Package observability provides OpenTelemetry-based tracing, metrics, and
// structured console logging for srcindex.
package observability

import (
	"io"
	"log/slog"
)

// AppMode identifies which command is running.
type AppMode string

const (
	// ModeIndex is the indexing run.
	ModeIndex AppMode = "index"
	// ModeInspect reads back an existing stream.
	ModeInspect AppMode = "inspect"
)

const (
	// defaultServiceName is the default OTel service name.
	defaultServiceName = "srcindex"

	// defaultShutdownTimeoutSec is the default shutdown timeout in seconds.
	defaultShutdownTimeoutSec = 5
)

// Config holds all observability configuration.
type Config struct {
	// ServiceName is the OTel resource service name.
	ServiceName string

	// ServiceVersion is the semantic version of the running binary.
	ServiceVersion string

	// Mode identifies the running command.
	Mode AppMode

	// OTLPEndpoint is the OTLP gRPC collector address (e.g. "localhost:4317").
	// Empty disables export.
	OTLPEndpoint string

	// OTLPHeaders are additional gRPC metadata headers for the OTLP exporter.
	OTLPHeaders map[string]string

	// OTLPInsecure disables TLS for the OTLP gRPC connection.
	OTLPInsecure bool

	// SampleRatio is the trace sampling ratio (0.0 to 1.0).
	// Zero samples every root span.
	SampleRatio float64

	// MetricsTextfile, when set, receives a Prometheus text exposition of all
	// metrics at shutdown.
	MetricsTextfile string

	// LogLevel controls the minimum slog severity.
	LogLevel slog.Level

	// LogJSON enables JSON-formatted log output.
	LogJSON bool

	// NoColor disables ANSI colours on the console handler.
	NoColor bool

	// LogOutput receives log lines. Nil means standard output.
	LogOutput io.Writer

	// ShutdownTimeoutSec is the maximum seconds to wait for flush on shutdown.
	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config with sensible defaults for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeIndex,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}
