package storage

import (
	"context"
	"fmt"

	"github.com/Sumatoshi-tech/gitradar/pkg/report"
	"github.com/Sumatoshi-tech/gitradar/pkg/suggest"
)

// BlobSink persists reports as objects in a BlobStore. Overwriting an object
// is the upsert.
type BlobSink struct {
	store BlobStore
	codec Codec
}

// NewBlobSink creates a sink over store.
func NewBlobSink(store BlobStore, codec Codec) *BlobSink {
	return &BlobSink{store: store, codec: codec}
}

// PutMetrics writes analysis-results/<repo>/<unit>-metrics.json.
func (s *BlobSink) PutMetrics(ctx context.Context, repo string, r *report.MetricReport) error {
	return s.put(ctx, MetricsKey(repo, r.UnitID), r)
}

// PutSuggestions writes analysis-results/<repo>/<unit>-suggestions.json.
func (s *BlobSink) PutSuggestions(ctx context.Context, repo, unitID string, set suggest.Set) error {
	return s.put(ctx, SuggestionsKey(repo, unitID), suggestionDoc{Suggestions: set})
}

// PutRepoMetrics writes analysis-results/<repo>-metrics.json.
func (s *BlobSink) PutRepoMetrics(ctx context.Context, repo string, r *report.MetricReport) error {
	return s.put(ctx, RepoMetricsKey(repo), r)
}

// GetMetrics reads a unit's metric report back.
func (s *BlobSink) GetMetrics(ctx context.Context, repo, unitID string) (*report.MetricReport, error) {
	var r report.MetricReport

	err := s.get(ctx, MetricsKey(repo, unitID), &r)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// GetSuggestions reads a unit's suggestions back.
func (s *BlobSink) GetSuggestions(ctx context.Context, repo, unitID string) (suggest.Set, error) {
	var doc suggestionDoc

	err := s.get(ctx, SuggestionsKey(repo, unitID), &doc)
	if err != nil {
		return nil, err
	}

	return doc.Suggestions, nil
}

func (s *BlobSink) put(ctx context.Context, key string, v any) error {
	data, err := s.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	return s.store.Put(ctx, key, data)
}

func (s *BlobSink) get(ctx context.Context, key string, v any) error {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		return err
	}

	err = s.codec.Decode(data, v)
	if err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}

	return nil
}

// suggestionDoc is the persisted suggestion set shape.
type suggestionDoc struct {
	Suggestions suggest.Set `json:"suggestions"`
}
