package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/gitradar/pkg/observability"
	"github.com/Sumatoshi-tech/gitradar/pkg/report"
	"github.com/Sumatoshi-tech/gitradar/pkg/storage"
	"github.com/Sumatoshi-tech/gitradar/pkg/suggest"
	"github.com/Sumatoshi-tech/gitradar/pkg/textutil"
)

// PipelineConfig tunes a Pipeline.
type PipelineConfig struct {
	// MaxFileSize skips larger blobs. Zero means no limit.
	MaxFileSize int64
	// Suggest generates and persists suggestions for every unit.
	Suggest bool
}

// Pipeline reads source blobs, analyzes them as one batch and upserts the
// reports into a sink.
type Pipeline struct {
	engine *Engine
	source storage.BlobSource
	sink   storage.ReportSink
	cfg    PipelineConfig
	logger *slog.Logger
}

// NewPipeline wires a pipeline. The engine's logger is reused.
func NewPipeline(eng *Engine, src storage.BlobSource, sink storage.ReportSink, cfg PipelineConfig) *Pipeline {
	return &Pipeline{engine: eng, source: src, sink: sink, cfg: cfg, logger: eng.logger}
}

// Run analyzes every blob under prefix as a unit of repo. Fetch and sink
// failures are joined into the returned error; they never stop the remaining
// units. The batch report is returned whenever analysis ran.
func (p *Pipeline) Run(ctx context.Context, repo, prefix string) (*report.BatchReport, error) {
	keys, err := p.source.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}

	var (
		errs   []error
		inputs = make([]UnitInput, 0, len(keys))
	)

	for _, key := range keys {
		data, getErr := p.source.Get(ctx, key)
		if getErr != nil {
			errs = append(errs, fmt.Errorf("fetch %s: %w", key, getErr))

			continue
		}

		if reason := p.skipReason(data); reason != "" {
			p.logger.DebugContext(ctx, "unit skipped", "unit", key, "reason", reason)

			continue
		}

		inputs = append(inputs, UnitInput{ID: key, Text: string(data)})
	}

	batch, err := p.engine.AnalyzeBatch(ctx, repo, inputs)
	if err != nil {
		errs = append(errs, err)
	}

	if p.cfg.Suggest {
		p.engine.AttachSuggestions(ctx, batch, inputs)
	}

	ctx = observability.WithRun(ctx, repo, batch.RunID)

	err = PersistBatch(ctx, p.sink, batch, p.cfg.Suggest)
	if err != nil {
		p.logger.WarnContext(ctx, "sink writes failed", "error", err)
		errs = append(errs, err)
	}

	p.logger.InfoContext(ctx, "pipeline finished",
		"units", len(inputs), "skipped", len(keys)-len(inputs))

	return batch, errors.Join(errs...)
}

func (p *Pipeline) skipReason(data []byte) string {
	if p.cfg.MaxFileSize > 0 && int64(len(data)) > p.cfg.MaxFileSize {
		return "oversized"
	}

	if textutil.IsBinary(data) {
		return "binary"
	}

	return ""
}

// PersistBatch upserts every unit report of batch into sink, and the unit
// suggestions when withSuggestions is set. Every write is attempted; the
// failures are joined.
func PersistBatch(ctx context.Context, sink storage.ReportSink, batch *report.BatchReport, withSuggestions bool) error {
	var errs []error

	for _, rep := range batch.Units {
		err := sink.PutMetrics(ctx, batch.Repo, rep)
		if err != nil {
			errs = append(errs, fmt.Errorf("persist metrics %s: %w", rep.UnitID, err))
		}

		if !withSuggestions {
			continue
		}

		set := rep.Suggestions
		if set == nil {
			set = suggest.Set{}
		}

		err = sink.PutSuggestions(ctx, batch.Repo, rep.UnitID, set)
		if err != nil {
			errs = append(errs, fmt.Errorf("persist suggestions %s: %w", rep.UnitID, err))
		}
	}

	return errors.Join(errs...)
}
