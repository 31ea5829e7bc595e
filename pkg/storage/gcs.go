package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSBucket is the object access GCSStore needs from a bucket.
type GCSBucket interface {
	ListNames(ctx context.Context, prefix string) ([]string, error)
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
}

// GCSStore is a BlobStore over one Cloud Storage bucket.
type GCSStore struct {
	bucket GCSBucket
	name   string
	prefix string
}

// NewGCSStore wraps a bucket. Keys are relative to prefix.
func NewGCSStore(bucket GCSBucket, name, prefix string) *GCSStore {
	return &GCSStore{bucket: bucket, name: name, prefix: strings.Trim(prefix, "/")}
}

// NewGCSBucket opens a bucket with application default credentials. The
// returned close function releases the client.
func NewGCSBucket(ctx context.Context, name string) (GCSBucket, func() error, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create GCS client: %w", err)
	}

	return &bucketHandle{h: client.Bucket(name)}, client.Close, nil
}

func (s *GCSStore) objectName(key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	if s.prefix == "" {
		return cleaned, nil
	}

	return path.Join(s.prefix, cleaned), nil
}

// List returns the object names below prefix.
func (s *GCSStore) List(ctx context.Context, prefix string) ([]string, error) {
	full := s.prefix
	if prefix != "" {
		cleaned, err := cleanKey(prefix)
		if err != nil {
			return nil, err
		}

		full = path.Join(s.prefix, cleaned)
	}

	if full != "" {
		full += "/"
	}

	names, err := s.bucket.ListNames(ctx, full)
	if err != nil {
		return nil, fmt.Errorf("list gs://%s/%s: %w", s.name, full, err)
	}

	keys := make([]string, 0, len(names))

	for _, n := range names {
		if strings.HasSuffix(n, "/") {
			continue
		}

		if s.prefix != "" {
			n = strings.TrimPrefix(n, s.prefix+"/")
		}

		keys = append(keys, n)
	}

	return keys, nil
}

// Get reads one object.
func (s *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	name, err := s.objectName(key)
	if err != nil {
		return nil, err
	}

	data, err := s.bucket.Read(ctx, name)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: gs://%s/%s", ErrNotFound, s.name, name)
		}

		return nil, fmt.Errorf("get gs://%s/%s: %w", s.name, name, err)
	}

	return data, nil
}

// Put writes one object.
func (s *GCSStore) Put(ctx context.Context, key string, data []byte) error {
	name, err := s.objectName(key)
	if err != nil {
		return err
	}

	err = s.bucket.Write(ctx, name, data)
	if err != nil {
		return fmt.Errorf("put gs://%s/%s: %w", s.name, name, err)
	}

	return nil
}

type bucketHandle struct {
	h *gcs.BucketHandle
}

func (b *bucketHandle) ListNames(ctx context.Context, prefix string) ([]string, error) {
	var names []string

	it := b.h.Objects(ctx, &gcs.Query{Prefix: prefix})

	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return names, nil
		}

		if err != nil {
			return nil, err
		}

		names = append(names, attrs.Name)
	}
}

func (b *bucketHandle) Read(ctx context.Context, name string) ([]byte, error) {
	r, err := b.h.Object(name).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}

func (b *bucketHandle) Write(ctx context.Context, name string, data []byte) error {
	w := b.h.Object(name).NewWriter(ctx)

	_, err := w.Write(data)
	if err != nil {
		_ = w.Close()

		return err
	}

	return w.Close()
}
