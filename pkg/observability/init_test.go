package observability_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/gitradar/pkg/observability"
)

func TestInit_NoopWhenNoEndpoint(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)

	ctx, span := providers.Tracer.Start(context.Background(), "gitradar.analyze_unit")
	span.End()
	assert.NotNil(t, ctx)

	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_LoggerWritesToConfiguredOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogJSON = true
	cfg.LogOutput = &buf
	cfg.Mode = observability.ModeMCP
	cfg.Environment = "test"

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	providers.Logger.Info("ready")

	assert.Contains(t, buf.String(), `"mode":"mcp"`)
	assert.Contains(t, buf.String(), `"service":"gitradar"`)
	assert.Contains(t, buf.String(), `"env":"test"`)
}

func TestInit_PrometheusTextfileWrittenOnShutdown(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gitradar.prom")

	cfg := observability.DefaultConfig()
	cfg.PrometheusTextfile = path
	cfg.LogOutput = &bytes.Buffer{}

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	counter, err := providers.Meter.Int64Counter("gitradar.units.total")
	require.NoError(t, err)

	counter.Add(context.Background(), 4, metric.WithAttributes(attribute.String("status", "ok")))

	require.NoError(t, providers.Shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "gitradar_units_total")
	assert.Contains(t, string(data), `status="ok"`)
}

func TestTextfileReader_Gatherer(t *testing.T) {
	t.Parallel()

	reader, err := observability.NewTextfileReader(filepath.Join(t.TempDir(), "m.prom"))
	require.NoError(t, err)

	assert.NotNil(t, reader.Gatherer())
	require.NoError(t, reader.Write())
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	assert.Nil(t, observability.ParseOTLPHeaders(""))
	assert.Nil(t, observability.ParseOTLPHeaders("garbage"))
	assert.Equal(t, map[string]string{"api-key": "abc", "tenant": "x"},
		observability.ParseOTLPHeaders(" api-key = abc ,tenant=x"))
}
