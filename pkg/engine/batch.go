package engine

import (
	"context"
	"errors"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/gitradar/pkg/analyzers/duplication"
	"github.com/Sumatoshi-tech/gitradar/pkg/observability"
	"github.com/Sumatoshi-tech/gitradar/pkg/report"
	"github.com/Sumatoshi-tech/gitradar/pkg/source"
	"github.com/Sumatoshi-tech/gitradar/pkg/suggest"
)

// UnitInput is one unit of a batch.
type UnitInput struct {
	ID      string
	Text    string
	Dialect string
}

func (e *Engine) workers() int {
	if e.opts.Workers > 0 {
		return e.opts.Workers
	}

	return runtime.GOMAXPROCS(0)
}

// AnalyzeBatch analyzes every unit on a bounded worker pool, then runs the
// duplication detector across the units that were modeled. Unit failures are
// isolated: they appear as failed reports and never abort the batch. When ctx
// is canceled the units not yet analyzed are reported as failed and ctx.Err()
// is returned with the partial report.
func (e *Engine) AnalyzeBatch(ctx context.Context, repo string, units []UnitInput) (*report.BatchReport, error) {
	runID := uuid.NewString()
	ctx = observability.WithRun(ctx, repo, runID)

	ctx, span := e.tracer.Start(ctx, spanAnalyzeBatch, trace.WithAttributes(
		attribute.String("repo.name", repo),
		attribute.String("run.id", runID),
		attribute.Int("analysis.units", len(units)),
	))
	defer span.End()

	reports := make([]*report.MetricReport, len(units))
	models := make([]*source.Unit, len(units))
	elapsed := make([]time.Duration, len(units))

	var g errgroup.Group

	g.SetLimit(e.workers())

	for i, in := range units {
		g.Go(func() error {
			err := ctx.Err()
			if err != nil {
				reports[i] = failedReport(in.ID, source.ResolveDialect(in.ID, in.Dialect, []byte(in.Text)), err)

				return nil
			}

			start := time.Now()
			reports[i], models[i], _ = e.analyze(ctx, in)
			elapsed[i] = time.Since(start)

			return nil
		})
	}

	_ = g.Wait()

	batch := &report.BatchReport{
		RunID:      runID,
		Repo:       repo,
		Units:      reports,
		Duplicates: []duplication.Group{},
	}

	e.detectAcross(ctx, batch, models)

	for i, rep := range reports {
		rep.Repo = repo

		if models[i] != nil {
			e.metrics.RecordUnit(ctx, rep.Dialect, string(rep.Status), elapsed[i])
		}

		if rep.Status == report.StatusFailed {
			batch.Failed = append(batch.Failed, report.FailedUnit{UnitID: rep.UnitID, Error: firstIssue(rep)})
		}
	}

	batch.Summarize()

	span.SetAttributes(
		attribute.Int("analysis.failed", batch.Summary.Failed),
		attribute.Int("duplication.groups", len(batch.Duplicates)),
	)
	e.logger.InfoContext(ctx, "batch analyzed",
		"units", len(units),
		"failed", batch.Summary.Failed, "incomplete", batch.Summary.Incomplete,
		"duplicate_groups", len(batch.Duplicates))

	return batch, ctx.Err()
}

// detectAcross is the barrier step: it runs once every worker has finished.
func (e *Engine) detectAcross(ctx context.Context, batch *report.BatchReport, models []*source.Unit) {
	if e.opts.DisableDuplication {
		return
	}

	built := make([]*source.Unit, 0, len(models))

	for _, m := range models {
		if m != nil {
			built = append(built, m)
		}
	}

	groups, err := e.detect(ctx, built)
	if err != nil {
		for i, m := range models {
			if m != nil {
				batch.Units[i].AddIssue(report.StepDuplication, err)
			}
		}

		e.logger.WarnContext(ctx, "duplication failed", "error", err)

		return
	}

	batch.Duplicates = groups

	for i, m := range models {
		if m == nil {
			continue
		}

		for _, g := range groups {
			if g.Involves(m.ID) {
				batch.Units[i].Duplicates = append(batch.Units[i].Duplicates, g)
			}
		}
	}
}

// AttachSuggestions generates suggestions from each unit's raw text and
// stores them on the matching report. units must be the slice the batch was
// built from. Text the suggestion engine rejects yields no suggestions.
func (e *Engine) AttachSuggestions(ctx context.Context, batch *report.BatchReport, units []UnitInput) {
	for i, in := range units {
		if i >= len(batch.Units) || ctx.Err() != nil {
			return
		}

		set, err := e.GenerateSuggestionsFor(ctx, in.Text, batch.Units[i].Dialect)

		switch {
		case errors.Is(err, suggest.ErrInvalidInput):
			batch.Units[i].Suggestions = suggest.Set{}
		case err != nil:
			batch.Units[i].AddIssue(report.StepSuggestions, err)
		default:
			batch.Units[i].Suggestions = set
		}
	}

	batch.Summarize()
}

func firstIssue(rep *report.MetricReport) string {
	if len(rep.Issues) == 0 {
		return string(rep.Status)
	}

	return rep.Issues[0].Message
}
