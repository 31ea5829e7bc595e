package storage_test

import (
	"bytes"
	"context"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	gcs "cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitradar/pkg/storage"
)

const fakePageSize = 2

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	listed  int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}

	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	f.objects[aws.ToString(in.Key)] = data

	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listed++

	var keys []string

	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}

	slices.Sort(keys)

	start := 0
	if in.ContinuationToken != nil {
		start, _ = strconv.Atoi(*in.ContinuationToken)
	}

	end := min(start+fakePageSize, len(keys))
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}

	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}

	if end < len(keys) {
		out.NextContinuationToken = aws.String(strconv.Itoa(end))
	}

	return out, nil
}

func TestS3Store(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newFakeS3()
	store := storage.NewS3Store(client, "bucket", "/raw/")

	for _, k := range []string{"demo/a.py", "demo/b.py", "demo/c.py", "other/d.py"} {
		require.NoError(t, store.Put(ctx, k, []byte(k)))
	}

	assert.Contains(t, client.objects, "raw/demo/a.py")

	keys, err := store.List(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, []string{"demo/a.py", "demo/b.py", "demo/c.py"}, keys)
	assert.Equal(t, 2, client.listed)

	data, err := store.Get(ctx, "other/d.py")
	require.NoError(t, err)
	assert.Equal(t, "other/d.py", string(data))

	_, err = store.Get(ctx, "other/missing.py")
	require.ErrorIs(t, err, storage.ErrNotFound)

	exerciseSink(t, storage.NewBlobSink(store, storage.Codec{}))
	assert.Contains(t, client.objects, "raw/analysis-results/demo/a.py-metrics.json")
}

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeBucket) ListNames(_ context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var names []string

	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			names = append(names, k)
		}
	}

	slices.Sort(names)

	return names, nil
}

func (f *fakeBucket) Read(_ context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.objects[name]
	if !ok {
		return nil, gcs.ErrObjectNotExist
	}

	return data, nil
}

func (f *fakeBucket) Write(_ context.Context, name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.objects[name] = slices.Clone(data)

	return nil
}

func TestGCSStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bucket := &fakeBucket{objects: map[string][]byte{"dir/": nil}}
	store := storage.NewGCSStore(bucket, "bucket", "")

	require.NoError(t, store.Put(ctx, "dir/a.go", []byte("package a\n")))
	require.NoError(t, store.Put(ctx, "b.go", []byte("package b\n")))

	keys, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.go", "dir/a.go"}, keys)

	keys, err = store.List(ctx, "dir")
	require.NoError(t, err)
	assert.Equal(t, []string{"dir/a.go"}, keys)

	_, err = store.Get(ctx, "nope.go")
	require.ErrorIs(t, err, storage.ErrNotFound)

	exerciseSink(t, storage.NewBlobSink(store, storage.Codec{Compress: true}))
}
