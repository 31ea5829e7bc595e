// Package storage provides the collaborators the pipeline reads source blobs
// from and writes reports to: object stores (filesystem, S3, GCS) and report
// sinks (blob objects, Redis hashes, Badger keys, memory). Every sink upserts:
// writing the same repo and unit twice keeps only the latest report.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/gitradar/pkg/report"
	"github.com/Sumatoshi-tech/gitradar/pkg/suggest"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("storage: not found")

// ErrInvalidKey is returned for empty or escaping keys.
var ErrInvalidKey = errors.New("storage: invalid key")

// resultsPrefix is the object prefix of persisted reports.
const resultsPrefix = "analysis-results"

// BlobSource supplies raw source bytes keyed by unit identifier.
type BlobSource interface {
	// List returns the keys under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
	// Get returns the object bytes or an error wrapping ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
}

// BlobStore is a BlobSource that can also write objects.
type BlobStore interface {
	BlobSource
	// Put creates or replaces the object.
	Put(ctx context.Context, key string, data []byte) error
}

// ReportSink persists reports with upsert semantics keyed by repo and unit.
type ReportSink interface {
	PutMetrics(ctx context.Context, repo string, r *report.MetricReport) error
	PutSuggestions(ctx context.Context, repo, unitID string, set suggest.Set) error
}

// ReportStore is a ReportSink that can read its reports back.
type ReportStore interface {
	ReportSink
	GetMetrics(ctx context.Context, repo, unitID string) (*report.MetricReport, error)
	GetSuggestions(ctx context.Context, repo, unitID string) (suggest.Set, error)
}

// MetricsKey is the object key of a unit's metric report.
func MetricsKey(repo, unitID string) string {
	return path.Join(resultsPrefix, repo, unitID+"-metrics.json")
}

// SuggestionsKey is the object key of a unit's suggestions.
func SuggestionsKey(repo, unitID string) string {
	return path.Join(resultsPrefix, repo, unitID+"-suggestions.json")
}

// RepoMetricsKey is the object key of a repository-level metric report.
func RepoMetricsKey(repo string) string {
	return path.Join(resultsPrefix, repo+"-metrics.json")
}

// cleanKey normalizes a slash-separated key and rejects parent references.
func cleanKey(key string) (string, error) {
	k := strings.ReplaceAll(strings.TrimSpace(key), "\\", "/")

	if slices.Contains(strings.Split(k, "/"), "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	cleaned := strings.TrimPrefix(path.Clean("/"+k), "/")
	if cleaned == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	return cleaned, nil
}
