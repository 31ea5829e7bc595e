package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/Sumatoshi-tech/gitradar/pkg/report"
	"github.com/Sumatoshi-tech/gitradar/pkg/suggest"
)

// BadgerSink stores reports under metrics/<repo>/<unit> and
// suggestions/<repo>/<unit> in an embedded Badger database.
type BadgerSink struct {
	db    *badger.DB
	codec Codec
}

// OpenBadger opens the database at dir, or an in-memory one when inMemory is set.
func OpenBadger(dir string, inMemory bool) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}

	db, err := badger.Open(opts.WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger %q: %w", dir, err)
	}

	return db, nil
}

// NewBadgerSink creates a sink over db. The caller owns db.
func NewBadgerSink(db *badger.DB, codec Codec) *BadgerSink {
	return &BadgerSink{db: db, codec: codec}
}

func badgerKey(kind, repo, unitID string) []byte {
	return []byte(kind + "/" + repo + "/" + unitID)
}

// PutMetrics upserts a unit's metric report.
func (s *BadgerSink) PutMetrics(_ context.Context, repo string, r *report.MetricReport) error {
	return s.set(badgerKey("metrics", repo, r.UnitID), r)
}

// PutSuggestions upserts a unit's suggestions.
func (s *BadgerSink) PutSuggestions(_ context.Context, repo, unitID string, set suggest.Set) error {
	return s.set(badgerKey("suggestions", repo, unitID), suggestionDoc{Suggestions: set})
}

// GetMetrics reads a unit's metric report.
func (s *BadgerSink) GetMetrics(_ context.Context, repo, unitID string) (*report.MetricReport, error) {
	var r report.MetricReport

	err := s.get(badgerKey("metrics", repo, unitID), &r)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// GetSuggestions reads a unit's suggestions.
func (s *BadgerSink) GetSuggestions(_ context.Context, repo, unitID string) (suggest.Set, error) {
	var doc suggestionDoc

	err := s.get(badgerKey("suggestions", repo, unitID), &doc)
	if err != nil {
		return nil, err
	}

	return doc.Suggestions, nil
}

func (s *BadgerSink) set(key []byte, v any) error {
	data, err := s.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("badger set %s: %w", key, err)
	}

	return nil
}

func (s *BadgerSink) get(key []byte, v any) error {
	var data []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		data, err = item.ValueCopy(nil)

		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if err != nil {
		return fmt.Errorf("badger get %s: %w", key, err)
	}

	err = s.codec.Decode(data, v)
	if err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}

	return nil
}
