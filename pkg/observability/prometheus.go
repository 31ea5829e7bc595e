package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// TextfileReader is a metric reader backed by a private Prometheus registry
// whose contents can be written in the node-exporter textfile format.
type TextfileReader struct {
	sdkmetric.Reader

	registry *prometheus.Registry
	path     string
}

// NewTextfileReader creates a reader that writes to path on Write.
// Each call uses an independent registry so repeated calls never conflict.
func NewTextfileReader(path string) (*TextfileReader, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(
		promexporter.WithRegisterer(registry),
	)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return &TextfileReader{Reader: exporter, registry: registry, path: path}, nil
}

// Gatherer exposes the registry for scraping or inspection.
func (r *TextfileReader) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Write collects the current metrics and atomically replaces the textfile.
func (r *TextfileReader) Write() error {
	err := prometheus.WriteToTextfile(r.path, r.registry)
	if err != nil {
		return fmt.Errorf("write prometheus textfile %s: %w", r.path, err)
	}

	return nil
}
