package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/gitradar/pkg/observability"
)

func recordSpan(t *testing.T, logger *slog.Logger, attrs ...attribute.KeyValue) map[string]any {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(observability.NewAttributeFilter(sdktrace.NewSimpleSpanProcessor(exporter), logger)),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	span.SetAttributes(attrs...)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	m := make(map[string]any, len(spans[0].Attributes))
	for _, a := range spans[0].Attributes {
		m[string(a.Key)] = a.Value.AsInterface()
	}

	return m
}

func TestAttributeFilter_AllowsDomainKeys(t *testing.T) {
	t.Parallel()

	attrs := recordSpan(t, nil,
		attribute.String("unit.id", "main.py"),
		attribute.String("repo.name", "demo"),
		attribute.Int("duplication.groups", 2),
		attribute.String("error.type", "parse"),
		attribute.Bool("error", true),
	)

	assert.Equal(t, "main.py", attrs["unit.id"])
	assert.Equal(t, "demo", attrs["repo.name"])
	assert.Equal(t, int64(2), attrs["duplication.groups"])
	assert.Equal(t, "parse", attrs["error.type"])
	assert.Equal(t, true, attrs["error"])
}

func TestAttributeFilter_StripsSourceText(t *testing.T) {
	t.Parallel()

	attrs := recordSpan(t, nil,
		attribute.String("code", "def f(): pass"),
		attribute.String("context_text", "# TODO"),
		attribute.String("source.text", "x = 1"),
		attribute.String("user.email", "a@example.com"),
		attribute.String("content.preview", "..."),
		attribute.String("random", "value"),
		attribute.String("unit.dialect", "python"),
	)

	assert.Equal(t, map[string]any{"unit.dialect": "python"}, attrs)
}

func TestAttributeFilter_WarnsWithLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	recordSpan(t, logger, attribute.String("code", "x"))

	assert.Contains(t, buf.String(), "attribute blocked by filter")
	assert.Contains(t, buf.String(), "key=code")
}
