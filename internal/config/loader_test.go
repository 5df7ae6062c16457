package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/srcindex/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".srcindex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFile_UsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, config.DefaultToolTimeout, cfg.Tools.Timeout)
	assert.Equal(t, config.DefaultPerforceExecutable, cfg.Perforce.Executable)
	assert.Equal(t, config.DefaultPerforceBatchSize, cfg.Perforce.BatchSize)
	assert.Equal(t, config.DefaultPerforceTimeout, cfg.Perforce.Timeout)
	assert.Equal(t, config.DefaultStreamExtension, cfg.Stream.Extension)
	assert.Equal(t, config.DefaultStreamFetchTool, cfg.Stream.FetchTool)
	assert.Equal(t, config.DefaultStreamVCS, cfg.Stream.VCS)
	assert.False(t, cfg.Stream.KeepTemp)
	assert.Equal(t, config.DefaultDiscoveryExtension, cfg.Discovery.Extension)
	assert.Equal(t, config.DefaultLoggingLevel, cfg.Logging.Level)
	assert.Empty(t, cfg.Telemetry.OTLPEndpoint)
}

func TestLoadConfig_ValidFile_Unmarshals(t *testing.T) {
	t.Parallel()

	content := `tools:
  sdk_dir: 'C:\Program Files (x86)\Windows Kits\10'
  timeout: 45s
perforce:
  port: ssl:perforce:1666
  user: builder
  client: game-main
  batch_size: 50
  timeout: 1m
stream:
  extension: .srcsrv
  keep_temp: true
discovery:
  extension: .PDB
logging:
  level: debug
  json: true
telemetry:
  otlp_endpoint: localhost:4317
  metrics_textfile: metrics.prom
`

	cfg, err := config.LoadConfig(writeConfig(t, content))
	require.NoError(t, err)

	assert.Equal(t, `C:\Program Files (x86)\Windows Kits\10`, cfg.Tools.SDKDir)
	assert.Equal(t, 45*time.Second, cfg.Tools.Timeout)
	assert.Equal(t, "ssl:perforce:1666", cfg.Perforce.Port)
	assert.Equal(t, "builder", cfg.Perforce.User)
	assert.Equal(t, "game-main", cfg.Perforce.Client)
	assert.Equal(t, 50, cfg.Perforce.BatchSize)
	assert.Equal(t, time.Minute, cfg.Perforce.Timeout)
	assert.Equal(t, ".srcsrv", cfg.Stream.Extension)
	assert.True(t, cfg.Stream.KeepTemp)
	assert.Equal(t, ".PDB", cfg.Discovery.Extension)
	assert.True(t, cfg.Logging.JSON)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.OTLPEndpoint)
	assert.Equal(t, "metrics.prom", cfg.Telemetry.MetricsTextfile)
}

func TestLoadConfig_PartialConfig_MergesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, "perforce:\n  user: builder\n"))
	require.NoError(t, err)

	assert.Equal(t, "builder", cfg.Perforce.User)
	assert.Equal(t, config.DefaultPerforceBatchSize, cfg.Perforce.BatchSize)
	assert.Equal(t, config.DefaultStreamExtension, cfg.Stream.Extension)
}

func TestLoadConfig_MalformedYAML_ReturnsError(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, "perforce: [unclosed\n"))
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadConfig_UnknownKeys_NoError(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "unknown:\n  key: 1\n"))
	require.NoError(t, err)
}

func TestLoadConfig_InvalidValues_ReturnsSentinel(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "perforce:\n  batch_size: 0\n"))
	require.ErrorIs(t, err, config.ErrInvalidBatchSize)

	_, err = config.LoadConfig(writeConfig(t, "stream:\n  extension: tmp\n"))
	require.ErrorIs(t, err, config.ErrInvalidExtension)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, "")

	t.Setenv("SRCINDEX_PERFORCE_BATCH_SIZE", "25")
	t.Setenv("SRCINDEX_TOOLS_TIMEOUT", "90s")
	t.Setenv("SRCINDEX_STREAM_KEEP_TEMP", "true")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Perforce.BatchSize)
	assert.Equal(t, 90*time.Second, cfg.Tools.Timeout)
	assert.True(t, cfg.Stream.KeepTemp)
}

func TestLoadConfig_ExplicitPath_NotFound_ReturnsError(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestDefaults_AreValid(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, config.DefaultPerforceBatchSize, cfg.Perforce.BatchSize)
}
