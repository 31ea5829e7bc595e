package engine

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/gitradar/pkg/analyzers/duplication"
	"github.com/Sumatoshi-tech/gitradar/pkg/config"
	"github.com/Sumatoshi-tech/gitradar/pkg/observability"
)

// Options tunes the analysis.
type Options struct {
	// Dialect is the hint used when a call passes none. Empty means detect.
	Dialect string
	// MinBlockStatements excludes smaller blocks from duplication.
	MinBlockStatements int
	// SimilarityThreshold is the near-duplicate cutoff in (0, 1].
	SimilarityThreshold float64
	// Workers bounds batch parallelism. Zero means GOMAXPROCS.
	Workers int
	// CacheSize is the number of AnalyzeUnit reports kept for unchanged
	// input. Zero disables the cache.
	CacheSize int
	// DisableGrammars forces the lexer backend for every dialect.
	DisableGrammars bool
	// DisableDuplication turns the detector off.
	DisableDuplication bool
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		MinBlockStatements:  duplication.DefaultMinStatements,
		SimilarityThreshold: duplication.DefaultThreshold,
	}
}

// OptionsFromConfig maps the analysis section of the configuration.
func OptionsFromConfig(cfg config.AnalysisConfig) Options {
	return Options{
		Dialect:             cfg.Dialect,
		MinBlockStatements:  cfg.MinBlockStatements,
		SimilarityThreshold: cfg.SimilarityThreshold,
		Workers:             cfg.Workers,
		CacheSize:           cfg.CacheSize,
		DisableGrammars:     cfg.DisableGrammars,
		DisableDuplication:  cfg.DisableDuplication,
	}
}

func (o Options) detectorOptions() duplication.Options {
	return duplication.Options{
		MinStatements: o.MinBlockStatements,
		Threshold:     o.SimilarityThreshold,
		Workers:       o.Workers,
		Disabled:      o.DisableDuplication,
	}
}

// Option configures an Engine's collaborators.
type Option func(*Engine)

// WithLogger sets the logger. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTracer sets the tracer. The default is a no-op tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithMetrics sets the engine instruments.
func WithMetrics(metrics *observability.EngineMetrics) Option {
	return func(e *Engine) {
		e.metrics = metrics
	}
}

func noopTracer() trace.Tracer {
	return nooptrace.NewTracerProvider().Tracer("gitradar")
}
