// Package observability wires OpenTelemetry tracing and metrics and the
// structured slog logger shared by every gitradar entry point.
package observability

import (
	"io"
	"log/slog"
)

// AppMode identifies how the binary was launched.
type AppMode string

// Application modes.
const (
	ModeCLI    AppMode = "cli"
	ModeMCP    AppMode = "mcp"
	ModeLambda AppMode = "lambda"
)

const (
	defaultServiceName        = "gitradar"
	defaultShutdownTimeoutSec = 5
)

// Config holds all observability configuration.
type Config struct {
	// ServiceName is the OTel resource service name.
	ServiceName string

	// ServiceVersion is the semantic version of the running binary.
	ServiceVersion string

	// Environment is the deployment environment (e.g. "production", "dev").
	Environment string

	// Mode identifies how the binary was launched.
	Mode AppMode

	// OTLPEndpoint is the OTLP gRPC collector address. Empty disables export.
	OTLPEndpoint string

	// OTLPHeaders are additional gRPC metadata headers for the OTLP exporters.
	OTLPHeaders map[string]string

	// OTLPInsecure disables TLS for the OTLP gRPC connection.
	OTLPInsecure bool

	// DebugTrace forces 100% trace sampling and logs attributes dropped by the filter.
	DebugTrace bool

	// SampleRatio is the trace sampling ratio when DebugTrace is false.
	// Zero keeps the parent-based always-on default.
	SampleRatio float64

	// PrometheusTextfile, when set, backs the meter with a Prometheus registry
	// that is written to this path on shutdown (node-exporter textfile format).
	PrometheusTextfile string

	// LogLevel controls the minimum slog severity.
	LogLevel slog.Level

	// LogJSON enables JSON-formatted log output.
	LogJSON bool

	// LogOutput receives log records. Nil means stderr.
	LogOutput io.Writer

	// ShutdownTimeoutSec is the maximum seconds to wait for flush on shutdown.
	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}
