// Package engine composes the source model builder, the analyzers, the
// duplication detector and the suggestion engine into the per-unit and batch
// entry points.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/gitradar/pkg/analyzers/complexity"
	"github.com/Sumatoshi-tech/gitradar/pkg/analyzers/duplication"
	"github.com/Sumatoshi-tech/gitradar/pkg/analyzers/raw"
	"github.com/Sumatoshi-tech/gitradar/pkg/analyzers/structure"
	"github.com/Sumatoshi-tech/gitradar/pkg/observability"
	"github.com/Sumatoshi-tech/gitradar/pkg/report"
	"github.com/Sumatoshi-tech/gitradar/pkg/source"
	"github.com/Sumatoshi-tech/gitradar/pkg/suggest"
)

// Span names.
const (
	spanAnalyzeUnit  = "gitradar.analyze_unit"
	spanAnalyzeBatch = "gitradar.analyze_batch"
	spanDuplication  = "gitradar.duplication"
	spanSuggest      = "gitradar.suggest"
)

// Engine runs the analysis. It holds no per-run state and is safe for
// concurrent use.
type Engine struct {
	opts     Options
	builder  *source.Builder
	detector *duplication.Detector
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *observability.EngineMetrics
	cache    *reportCache
	steps    analyzers
}

// analyzers are the per-unit steps run after the unit is modeled.
type analyzers struct {
	complexity func(*source.Unit) (*complexity.Summary, error)
	size       func(*source.Unit) (raw.SizeRecord, error)
	structure  func(*source.Unit) (structure.Count, error)
}

var defaultAnalyzers = analyzers{
	complexity: complexity.Analyze,
	size:       raw.Analyze,
	structure:  structure.Analyze,
}

// New creates an engine after validating the duplication options.
func New(opts Options, options ...Option) (*Engine, error) {
	err := opts.detectorOptions().Validate()
	if err != nil {
		return nil, fmt.Errorf("engine options: %w", err)
	}

	var builderOpts []source.Option
	if opts.DisableGrammars {
		builderOpts = append(builderOpts, source.WithoutGrammars())
	}

	cache, err := newReportCache(opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("engine cache: %w", err)
	}

	e := &Engine{
		opts:     opts,
		cache:    cache,
		steps:    defaultAnalyzers,
		builder:  source.NewBuilder(builderOpts...),
		detector: duplication.NewDetector(opts.detectorOptions()),
		logger:   slog.New(slog.DiscardHandler),
		tracer:   noopTracer(),
	}

	for _, opt := range options {
		opt(e)
	}

	return e, nil
}

// Options returns the engine options.
func (e *Engine) Options() Options {
	return e.opts
}

// AnalyzeUnit models one unit and runs every analyzer over it, duplication
// included (within the unit). A unit that cannot be modeled yields a failed
// report and the *source.ParseError. When some analyzers fail the partial
// report is returned with an *IncompleteError. Complete reports are served
// from the cache when the same input is analyzed again.
func (e *Engine) AnalyzeUnit(ctx context.Context, unitID, rawText, dialect string) (*report.MetricReport, error) {
	ctx, span := e.tracer.Start(ctx, spanAnalyzeUnit, trace.WithAttributes(
		attribute.String("unit.id", unitID),
	))
	defer span.End()

	start := time.Now()

	key := newCacheKey(unitID, dialect, rawText)
	if cached, ok := e.cache.get(key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))

		return cached, nil
	}

	rep, unit, err := e.analyze(ctx, UnitInput{ID: unitID, Text: rawText, Dialect: dialect})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model failed")

		return rep, err
	}

	if !e.opts.DisableDuplication {
		groups, dupErr := e.detect(ctx, []*source.Unit{unit})
		if dupErr != nil {
			rep.AddIssue(report.StepDuplication, dupErr)
		} else {
			rep.Duplicates = groups
		}
	}

	span.SetAttributes(
		attribute.String("unit.dialect", rep.Dialect),
		attribute.String("analysis.status", string(rep.Status)),
	)
	e.metrics.RecordUnit(ctx, rep.Dialect, string(rep.Status), time.Since(start))

	e.cache.put(key, rep)

	return rep, incompleteError(rep)
}

// GenerateSuggestions applies the suggestion rules to contextText.
func (e *Engine) GenerateSuggestions(ctx context.Context, contextText string) (suggest.Set, error) {
	return e.GenerateSuggestionsFor(ctx, contextText, "")
}

// GenerateSuggestionsFor applies the suggestion rules to text of a known
// dialect. An empty dialect is detected from the text.
func (e *Engine) GenerateSuggestionsFor(ctx context.Context, contextText, dialect string) (suggest.Set, error) {
	ctx, span := e.tracer.Start(ctx, spanSuggest)
	defer span.End()

	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	set, err := suggest.GenerateFor(contextText, dialect)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid input")

		return nil, err
	}

	byCategory := make(map[string]int)
	for category, n := range set.ByCategory() {
		byCategory[string(category)] = n
	}

	e.metrics.RecordSuggestions(ctx, byCategory)
	span.SetAttributes(attribute.Int("suggest.count", len(set)))

	return set, nil
}

// analyze builds the unit and runs the per-unit analyzers. Duplication is
// left to the caller, which also records the unit metric once the final
// status is known. Units that cannot be modeled are recorded here.
func (e *Engine) analyze(ctx context.Context, in UnitInput) (*report.MetricReport, *source.Unit, error) {
	start := time.Now()

	hint := in.Dialect
	if hint == "" {
		hint = e.opts.Dialect
	}

	unit, err := e.builder.Build(ctx, in.ID, in.Text, hint)
	if err != nil {
		rep := failedReport(in.ID, source.ResolveDialect(in.ID, hint, []byte(in.Text)), err)
		e.metrics.RecordUnit(ctx, rep.Dialect, string(rep.Status), time.Since(start))
		e.logger.WarnContext(ctx, "unit failed", "unit", in.ID, "dialect", rep.Dialect, "error", err)

		return rep, nil, err
	}

	rep := &report.MetricReport{
		UnitID:     unit.ID,
		Dialect:    unit.Dialect,
		Backend:    unit.Backend,
		Status:     report.StatusOK,
		Duplicates: []duplication.Group{},
	}

	summary, err := runStep(func() (*complexity.Summary, error) { return e.steps.complexity(unit) })
	if err != nil {
		rep.AddIssue(report.StepComplexity, err)
	} else {
		rep.Complexity = summary
	}

	size, err := runStep(func() (raw.SizeRecord, error) { return e.steps.size(unit) })
	if err != nil {
		rep.AddIssue(report.StepSize, err)
	} else {
		rep.Size = &size
	}

	count, err := runStep(func() (structure.Count, error) { return e.steps.structure(unit) })
	if err != nil {
		rep.AddIssue(report.StepStructure, err)
	} else {
		rep.Structure = &count
	}

	for _, issue := range rep.Issues {
		e.logger.WarnContext(ctx, "analyzer step failed", "unit", unit.ID, "step", issue.Step, "error", issue.Message)
	}

	e.logger.DebugContext(ctx, "unit analyzed", "unit", unit.ID, "dialect", unit.Dialect, "backend", unit.Backend)

	return rep, unit, nil
}

func (e *Engine) detect(ctx context.Context, units []*source.Unit) ([]duplication.Group, error) {
	ctx, span := e.tracer.Start(ctx, spanDuplication, trace.WithAttributes(
		attribute.Int("duplication.units", len(units)),
	))
	defer span.End()

	groups, err := runStep(func() ([]duplication.Group, error) { return e.detector.Detect(ctx, units) })
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "detector failed")

		return nil, err
	}

	if groups == nil {
		groups = []duplication.Group{}
	}

	span.SetAttributes(attribute.Int("duplication.groups", len(groups)))
	e.metrics.RecordDuplicateGroups(ctx, len(groups))

	return groups, nil
}

// runStep runs one analyzer step and turns a panic into an error.
func runStep[T any](fn func() (T, error)) (res T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errStepPanic, r)
		}
	}()

	return fn()
}

func failedReport(unitID, dialect string, err error) *report.MetricReport {
	rep := &report.MetricReport{
		UnitID:     unitID,
		Dialect:    dialect,
		Status:     report.StatusFailed,
		Duplicates: []duplication.Group{},
	}
	rep.AddIssue(report.StepModel, err)

	return rep
}

func incompleteError(rep *report.MetricReport) error {
	if len(rep.Issues) == 0 {
		return nil
	}

	errs := make([]error, 0, len(rep.Issues))
	for _, issue := range rep.Issues {
		errs = append(errs, fmt.Errorf("%s: %s", issue.Step, issue.Message))
	}

	return &IncompleteError{UnitID: rep.UnitID, Steps: rep.FailedSteps(), Err: errors.Join(errs...)}
}
