package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitradar/pkg/config"
	"github.com/Sumatoshi-tech/gitradar/pkg/observability"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".gitradar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
}

func TestLoadConfig_FileValues(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, `analysis:
  workers: 4
  min_block_statements: 5
  similarity_threshold: 0.8
  max_file_size: 2MB
  disable_grammars: true
storage:
  backend: s3
  bucket: code-bucket
  region: eu-west-1
  compress: true
logging:
  level: debug
  json: true
telemetry:
  otlp_endpoint: localhost:4317
  otlp_headers: "api-key=abc"
  sample_ratio: 0.5
`))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Analysis.Workers)
	assert.Equal(t, 5, cfg.Analysis.MinBlockStatements)
	assert.InDelta(t, 0.8, cfg.Analysis.SimilarityThreshold, 1e-9)
	assert.True(t, cfg.Analysis.DisableGrammars)
	assert.Equal(t, config.BackendS3, cfg.Storage.Backend)
	assert.Equal(t, "code-bucket", cfg.Storage.Bucket)
	assert.True(t, cfg.Storage.Compress)

	size, err := cfg.MaxFileSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(2_000_000), size)

	obs := cfg.Observability(observability.ModeLambda, "1.0.0")
	assert.Equal(t, observability.ModeLambda, obs.Mode)
	assert.Equal(t, "1.0.0", obs.ServiceVersion)
	assert.Equal(t, "localhost:4317", obs.OTLPEndpoint)
	assert.Equal(t, map[string]string{"api-key": "abc"}, obs.OTLPHeaders)
	assert.Equal(t, slog.LevelDebug, obs.LogLevel)
	assert.True(t, obs.LogJSON)
	assert.InDelta(t, 0.5, obs.SampleRatio, 1e-9)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	t.Setenv("GITRADAR_ANALYSIS_WORKERS", "9")
	t.Setenv("GITRADAR_STORAGE_BACKEND", "redis")
	t.Setenv("GITRADAR_STORAGE_REDIS_ADDR", "localhost:6379")

	cfg, err := config.LoadConfig(writeConfig(t, "analysis:\n  workers: 2\n"))
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Analysis.Workers)
	assert.Equal(t, config.BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "localhost:6379", cfg.Storage.RedisAddr)
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "analysis: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"threshold zero", func(c *config.Config) { c.Analysis.SimilarityThreshold = 0 }},
		{"threshold above one", func(c *config.Config) { c.Analysis.SimilarityThreshold = 1.2 }},
		{"min statements", func(c *config.Config) { c.Analysis.MinBlockStatements = 0 }},
		{"negative workers", func(c *config.Config) { c.Analysis.Workers = -1 }},
		{"bad size", func(c *config.Config) { c.Analysis.MaxFileSize = "lots" }},
		{"unknown backend", func(c *config.Config) { c.Storage.Backend = "ftp" }},
		{"s3 without bucket", func(c *config.Config) { c.Storage.Backend = config.BackendS3 }},
		{"gcs without bucket", func(c *config.Config) { c.Storage.Backend = config.BackendGCS }},
		{"redis without addr", func(c *config.Config) { c.Storage.Backend = config.BackendRedis }},
		{"badger without path", func(c *config.Config) { c.Storage.Backend = config.BackendBadger }},
		{"fs without directory", func(c *config.Config) {
			c.Storage.Backend = config.BackendFS
			c.Storage.Directory = ""
		}},
		{"log level", func(c *config.Config) { c.Logging.Level = "loud" }},
		{"sample ratio", func(c *config.Config) { c.Telemetry.SampleRatio = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			tt.mutate(cfg)

			require.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)
		})
	}

	require.NoError(t, config.Default().Validate())
}

func TestMaxFileSizeBytes(t *testing.T) {
	t.Parallel()

	cfg := config.Default()

	size, err := cfg.MaxFileSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<20), size)

	cfg.Analysis.MaxFileSize = ""
	size, err = cfg.MaxFileSizeBytes()
	require.NoError(t, err)
	assert.Zero(t, size)

	cfg.Analysis.MaxFileSize = "many"
	_, err = cfg.MaxFileSizeBytes()
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()

	for level, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	} {
		cfg := config.Default()
		cfg.Logging.Level = level
		assert.Equal(t, want, cfg.SlogLevel(), level)
	}
}
