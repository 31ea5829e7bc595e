package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Sumatoshi-tech/gitradar/pkg/report"
	"github.com/Sumatoshi-tech/gitradar/pkg/suggest"
)

type unitKey struct {
	repo string
	unit string
}

// MemorySink keeps reports in maps. It is safe for concurrent use.
type MemorySink struct {
	mu          sync.RWMutex
	metrics     map[unitKey]*report.MetricReport
	suggestions map[unitKey]suggest.Set
	writes      int
}

// NewMemorySink creates an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		metrics:     make(map[unitKey]*report.MetricReport),
		suggestions: make(map[unitKey]suggest.Set),
	}
}

// PutMetrics upserts a unit's metric report.
func (s *MemorySink) PutMetrics(_ context.Context, repo string, r *report.MetricReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics[unitKey{repo, r.UnitID}] = r
	s.writes++

	return nil
}

// PutSuggestions upserts a unit's suggestions.
func (s *MemorySink) PutSuggestions(_ context.Context, repo, unitID string, set suggest.Set) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.suggestions[unitKey{repo, unitID}] = set
	s.writes++

	return nil
}

// GetMetrics returns a stored metric report.
func (s *MemorySink) GetMetrics(_ context.Context, repo, unitID string) (*report.MetricReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.metrics[unitKey{repo, unitID}]
	if !ok {
		return nil, fmt.Errorf("%w: metrics %s/%s", ErrNotFound, repo, unitID)
	}

	return r, nil
}

// GetSuggestions returns stored suggestions.
func (s *MemorySink) GetSuggestions(_ context.Context, repo, unitID string) (suggest.Set, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.suggestions[unitKey{repo, unitID}]
	if !ok {
		return nil, fmt.Errorf("%w: suggestions %s/%s", ErrNotFound, repo, unitID)
	}

	return set, nil
}

// Units returns the unit IDs with a stored metric report for repo, sorted.
func (s *MemorySink) Units(repo string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var units []string

	for k := range s.metrics {
		if k.repo == repo {
			units = append(units, k.unit)
		}
	}

	sort.Strings(units)

	return units
}

// Writes counts every Put call.
func (s *MemorySink) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.writes
}
