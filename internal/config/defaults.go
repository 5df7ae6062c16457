package config

import "time"

// DefaultToolTimeout bounds each srctool and pdbstr run.
const DefaultToolTimeout = 30 * time.Second

// Perforce defaults.
const (
	DefaultPerforceExecutable = "p4"
	DefaultPerforceConfigFile = ""
	DefaultPerforceBatchSize  = 100
	DefaultPerforceTimeout    = 2 * time.Minute
)

// Stream defaults.
const (
	DefaultStreamExtension = ".SourceServerTemp"
	DefaultStreamKeepTemp  = false
	DefaultStreamFetchTool = "p4.exe"
	DefaultStreamVCS       = "Perforce"
)

// DefaultDiscoveryExtension is the symbol file extension searched for.
const DefaultDiscoveryExtension = ".pdb"

// Logging defaults.
const (
	DefaultLoggingLevel = "info"
	DefaultLoggingJSON  = false
)

// Telemetry defaults.
const (
	DefaultTelemetryOTLPEndpoint    = ""
	DefaultTelemetryOTLPInsecure    = false
	DefaultTelemetryMetricsTextfile = ""
)
