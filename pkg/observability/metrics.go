package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricUnitsTotal           = "gitradar.units.total"
	metricUnitDuration         = "gitradar.unit.duration.seconds"
	metricDuplicateGroupsTotal = "gitradar.duplicate_groups.total"
	metricSuggestionsTotal     = "gitradar.suggestions.total"
	metricRequestsTotal        = "gitradar.requests.total"
	metricRequestDuration      = "gitradar.request.duration.seconds"

	attrOp       = "op"
	attrStatus   = "status"
	attrCategory = "category"
	attrDialect  = "dialect"
)

// durationBucketBoundaries covers 1ms to 60s, from single small files to
// large batch requests.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// EngineMetrics holds the instruments recorded by the analysis engine.
type EngineMetrics struct {
	unitsTotal      metric.Int64Counter
	unitDuration    metric.Float64Histogram
	duplicateGroups metric.Int64Counter
	suggestions     metric.Int64Counter
}

// NewEngineMetrics creates the engine instruments from the given meter.
func NewEngineMetrics(mt metric.Meter) (*EngineMetrics, error) {
	units, err := mt.Int64Counter(metricUnitsTotal,
		metric.WithDescription("Units analyzed by final status"),
		metric.WithUnit("{unit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricUnitsTotal, err)
	}

	duration, err := mt.Float64Histogram(metricUnitDuration,
		metric.WithDescription("Per-unit analysis duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricUnitDuration, err)
	}

	groups, err := mt.Int64Counter(metricDuplicateGroupsTotal,
		metric.WithDescription("Duplicate groups detected"),
		metric.WithUnit("{group}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricDuplicateGroupsTotal, err)
	}

	suggestions, err := mt.Int64Counter(metricSuggestionsTotal,
		metric.WithDescription("Suggestions generated by category"),
		metric.WithUnit("{suggestion}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricSuggestionsTotal, err)
	}

	return &EngineMetrics{
		unitsTotal:      units,
		unitDuration:    duration,
		duplicateGroups: groups,
		suggestions:     suggestions,
	}, nil
}

// RecordUnit records one analyzed unit. Safe to call on a nil receiver.
func (em *EngineMetrics) RecordUnit(ctx context.Context, dialect, status string, duration time.Duration) {
	if em == nil {
		return
	}

	em.unitsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrStatus, status),
		attribute.String(attrDialect, dialect),
	))
	em.unitDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String(attrDialect, dialect)))
}

// RecordDuplicateGroups adds the number of groups found by one detector run.
func (em *EngineMetrics) RecordDuplicateGroups(ctx context.Context, groups int) {
	if em == nil || groups == 0 {
		return
	}

	em.duplicateGroups.Add(ctx, int64(groups))
}

// RecordSuggestions adds per-category suggestion counts.
func (em *EngineMetrics) RecordSuggestions(ctx context.Context, byCategory map[string]int) {
	if em == nil {
		return
	}

	for category, n := range byCategory {
		em.suggestions.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrCategory, category)))
	}
}

// REDMetrics holds the rate, error and duration instruments of the request
// surfaces (MCP tools and function handlers).
type REDMetrics struct {
	requestsTotal   metric.Int64Counter
	requestDuration metric.Float64Histogram
}

// NewREDMetrics creates request instruments from the given meter.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	total, err := mt.Int64Counter(metricRequestsTotal,
		metric.WithDescription("Requests by operation and status"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestsTotal, err)
	}

	duration, err := mt.Float64Histogram(metricRequestDuration,
		metric.WithDescription("Request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestDuration, err)
	}

	return &REDMetrics{requestsTotal: total, requestDuration: duration}, nil
}

// RecordRequest records a completed request. Safe to call on a nil receiver.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op, status string, duration time.Duration) {
	if rm == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	rm.requestsTotal.Add(ctx, 1, attrs)
	rm.requestDuration.Record(ctx, duration.Seconds(), attrs)
}
