package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".srcindex"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for srcindex settings.
const envPrefix = "SRCINDEX"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// Defaults returns the configuration used when no file or environment overrides exist.
func Defaults() Config {
	viperCfg := viper.New()
	applyDefaults(viperCfg)

	var cfg Config

	_ = viperCfg.Unmarshal(&cfg)

	return cfg
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("tools.sdk_dir", "")
	viperCfg.SetDefault("tools.srctool", "")
	viperCfg.SetDefault("tools.pdbstr", "")
	viperCfg.SetDefault("tools.timeout", DefaultToolTimeout)

	viperCfg.SetDefault("perforce.executable", DefaultPerforceExecutable)
	viperCfg.SetDefault("perforce.port", "")
	viperCfg.SetDefault("perforce.user", "")
	viperCfg.SetDefault("perforce.client", "")
	viperCfg.SetDefault("perforce.host", "")
	viperCfg.SetDefault("perforce.config_file", DefaultPerforceConfigFile)
	viperCfg.SetDefault("perforce.batch_size", DefaultPerforceBatchSize)
	viperCfg.SetDefault("perforce.timeout", DefaultPerforceTimeout)

	viperCfg.SetDefault("stream.extension", DefaultStreamExtension)
	viperCfg.SetDefault("stream.keep_temp", DefaultStreamKeepTemp)
	viperCfg.SetDefault("stream.fetch_tool", DefaultStreamFetchTool)
	viperCfg.SetDefault("stream.vcs", DefaultStreamVCS)

	viperCfg.SetDefault("discovery.extension", DefaultDiscoveryExtension)

	viperCfg.SetDefault("logging.level", DefaultLoggingLevel)
	viperCfg.SetDefault("logging.json", DefaultLoggingJSON)

	viperCfg.SetDefault("telemetry.otlp_endpoint", DefaultTelemetryOTLPEndpoint)
	viperCfg.SetDefault("telemetry.otlp_insecure", DefaultTelemetryOTLPInsecure)
	viperCfg.SetDefault("telemetry.metrics_textfile", DefaultTelemetryMetricsTextfile)
}
