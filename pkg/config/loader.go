package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	configName      = ".gitradar"
	configType      = "yaml"
	envPrefix       = "GITRADAR"
	envKeySeparator = "_"
)

// Default values.
const (
	DefaultWorkers             = 0
	DefaultMinBlockStatements  = 3
	DefaultSimilarityThreshold = 0.9
	DefaultMaxFileSize         = "1MiB"
	DefaultCacheSize           = 256
	DefaultBackend             = BackendNone
	DefaultResultsDirectory    = ".gitradar"
	DefaultRedisDB             = 0
	DefaultLogLevel            = "info"
	DefaultSampleRatio         = 0.0
)

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise .gitradar.yaml is searched in the working directory and $HOME;
// a missing file is not an error.
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

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Workers:             DefaultWorkers,
			MinBlockStatements:  DefaultMinBlockStatements,
			SimilarityThreshold: DefaultSimilarityThreshold,
			MaxFileSize:         DefaultMaxFileSize,
			CacheSize:           DefaultCacheSize,
		},
		Storage: StorageConfig{
			Backend:   DefaultBackend,
			Directory: DefaultResultsDirectory,
			RedisDB:   DefaultRedisDB,
		},
		Logging:   LoggingConfig{Level: DefaultLogLevel},
		Telemetry: TelemetryConfig{SampleRatio: DefaultSampleRatio},
	}
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("analysis.dialect", "")
	viperCfg.SetDefault("analysis.workers", DefaultWorkers)
	viperCfg.SetDefault("analysis.min_block_statements", DefaultMinBlockStatements)
	viperCfg.SetDefault("analysis.similarity_threshold", DefaultSimilarityThreshold)
	viperCfg.SetDefault("analysis.max_file_size", DefaultMaxFileSize)
	viperCfg.SetDefault("analysis.cache_size", DefaultCacheSize)
	viperCfg.SetDefault("analysis.disable_grammars", false)
	viperCfg.SetDefault("analysis.disable_duplication", false)

	viperCfg.SetDefault("storage.backend", DefaultBackend)
	viperCfg.SetDefault("storage.bucket", "")
	viperCfg.SetDefault("storage.prefix", "")
	viperCfg.SetDefault("storage.region", "")
	viperCfg.SetDefault("storage.endpoint", "")
	viperCfg.SetDefault("storage.directory", DefaultResultsDirectory)
	viperCfg.SetDefault("storage.redis_addr", "")
	viperCfg.SetDefault("storage.redis_password", "")
	viperCfg.SetDefault("storage.redis_db", DefaultRedisDB)
	viperCfg.SetDefault("storage.badger_path", "")
	viperCfg.SetDefault("storage.compress", false)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", false)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)
	viperCfg.SetDefault("telemetry.prometheus_textfile", "")
	viperCfg.SetDefault("telemetry.environment", "")
}
