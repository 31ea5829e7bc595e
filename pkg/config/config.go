// Package config loads gitradar settings from defaults, an optional YAML file
// and GITRADAR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"

	"github.com/Sumatoshi-tech/gitradar/pkg/observability"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Storage backends.
const (
	BackendNone   = "none"
	BackendFS     = "fs"
	BackendS3     = "s3"
	BackendGCS    = "gcs"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

// Config holds all gitradar configuration.
type Config struct {
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AnalysisConfig tunes the engine.
type AnalysisConfig struct {
	Dialect             string  `mapstructure:"dialect"`
	MaxFileSize         string  `mapstructure:"max_file_size"        validate:"bytesize"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" validate:"gt=0,lte=1"`
	Workers             int     `mapstructure:"workers"              validate:"gte=0"`
	MinBlockStatements  int     `mapstructure:"min_block_statements" validate:"gte=1"`
	CacheSize           int     `mapstructure:"cache_size"           validate:"gte=0"`
	DisableGrammars     bool    `mapstructure:"disable_grammars"`
	DisableDuplication  bool    `mapstructure:"disable_duplication"`
}

// StorageConfig selects and configures the blob store and report sink.
type StorageConfig struct {
	Backend       string `mapstructure:"backend"        validate:"oneof=none fs s3 gcs redis badger"`
	Bucket        string `mapstructure:"bucket"         validate:"required_if=Backend s3,required_if=Backend gcs"`
	Prefix        string `mapstructure:"prefix"`
	Region        string `mapstructure:"region"`
	Endpoint      string `mapstructure:"endpoint"`
	Directory     string `mapstructure:"directory"      validate:"required_if=Backend fs"`
	RedisAddr     string `mapstructure:"redis_addr"     validate:"required_if=Backend redis"`
	RedisPassword string `mapstructure:"redis_password"`
	BadgerPath    string `mapstructure:"badger_path"    validate:"required_if=Backend badger"`
	RedisDB       int    `mapstructure:"redis_db"       validate:"gte=0"`
	Compress      bool   `mapstructure:"compress"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	OTLPEndpoint       string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders        string  `mapstructure:"otlp_headers"`
	Environment        string  `mapstructure:"environment"`
	PrometheusTextfile string  `mapstructure:"prometheus_textfile"`
	SampleRatio        float64 `mapstructure:"sample_ratio"        validate:"gte=0,lte=1"`
	OTLPInsecure       bool    `mapstructure:"otlp_insecure"`
}

var configValidate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	_ = v.RegisterValidation("bytesize", func(fl validator.FieldLevel) bool {
		raw := strings.TrimSpace(fl.Field().String())
		if raw == "" {
			return true
		}

		_, err := humanize.ParseBytes(raw)

		return err == nil
	})

	return v
}

// Validate checks field ranges and the settings each storage backend needs.
func (c *Config) Validate() error {
	err := configValidate.Struct(c)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// MaxFileSizeBytes returns the parsed analysis.max_file_size; zero means unlimited.
func (c *Config) MaxFileSizeBytes() (int64, error) {
	raw := strings.TrimSpace(c.Analysis.MaxFileSize)
	if raw == "" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: max_file_size %q: %w", ErrInvalidConfig, raw, err)
	}

	return int64(min(size, uint64(1)<<62)), nil
}

// SlogLevel maps logging.level to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.Logging.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Observability builds the telemetry configuration for the given mode.
func (c *Config) Observability(mode observability.AppMode, version string) observability.Config {
	obs := observability.DefaultConfig()
	obs.Mode = mode
	obs.ServiceVersion = version
	obs.Environment = c.Telemetry.Environment
	obs.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	obs.OTLPHeaders = observability.ParseOTLPHeaders(c.Telemetry.OTLPHeaders)
	obs.OTLPInsecure = c.Telemetry.OTLPInsecure
	obs.SampleRatio = c.Telemetry.SampleRatio
	obs.PrometheusTextfile = c.Telemetry.PrometheusTextfile
	obs.LogLevel = c.SlogLevel()
	obs.LogJSON = c.Logging.JSON

	return obs
}
