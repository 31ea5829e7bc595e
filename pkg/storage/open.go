package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"

	"github.com/Sumatoshi-tech/gitradar/pkg/config"
)

// ErrNoBlobStore is returned by Backend.RequireStore for sink-only backends.
var ErrNoBlobStore = errors.New("storage: backend has no blob store")

// Backend is the configured blob store and report sink.
type Backend struct {
	// Name is the configured backend name.
	Name string
	// Store is nil for sink-only backends (none, redis, badger).
	Store BlobStore
	Sink  ReportStore

	closers []func() error
}

// Close releases clients and databases opened by Open.
func (b *Backend) Close() error {
	var errs []error

	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}

	return errors.Join(errs...)
}

// RequireStore returns the blob store or ErrNoBlobStore.
func (b *Backend) RequireStore() (BlobStore, error) {
	if b.Store == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoBlobStore, b.Name)
	}

	return b.Store, nil
}

// Open builds the store and sink selected by cfg.
func Open(ctx context.Context, cfg config.StorageConfig) (*Backend, error) {
	codec := Codec{Compress: cfg.Compress}
	b := &Backend{Name: cfg.Backend}

	switch cfg.Backend {
	case config.BackendNone, "":
		b.Name = config.BackendNone
		b.Sink = NewMemorySink()
	case config.BackendFS:
		b.Store = NewFSStore(afero.NewOsFs(), cfg.Directory)
	case config.BackendS3:
		client, err := NewS3Client(ctx, cfg.Region, cfg.Endpoint)
		if err != nil {
			return nil, err
		}

		b.Store = NewS3Store(client, cfg.Bucket, cfg.Prefix)
	case config.BackendGCS:
		bucket, closeFn, err := NewGCSBucket(ctx, cfg.Bucket)
		if err != nil {
			return nil, err
		}

		b.closers = append(b.closers, closeFn)
		b.Store = NewGCSStore(bucket, cfg.Bucket, cfg.Prefix)
	case config.BackendRedis:
		client := NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

		err := client.Ping(ctx).Err()
		if err != nil {
			_ = client.Close()

			return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
		}

		b.closers = append(b.closers, client.Close)
		b.Sink = NewRedisSink(client, codec)
	case config.BackendBadger:
		db, err := OpenBadger(cfg.BadgerPath, false)
		if err != nil {
			return nil, err
		}

		b.closers = append(b.closers, db.Close)
		b.Sink = NewBadgerSink(db, codec)
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", config.ErrInvalidConfig, cfg.Backend)
	}

	if b.Sink == nil {
		b.Sink = NewBlobSink(b.Store, codec)
	}

	return b, nil
}
