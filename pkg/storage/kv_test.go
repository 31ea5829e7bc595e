package storage_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gitradar/pkg/storage"
)

type fakeRedis struct {
	mu     sync.Mutex
	hashes map[string]map[string]string
	err    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{hashes: make(map[string]map[string]string)}
}

func (f *fakeRedis) HSet(_ context.Context, key string, values ...any) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}

	h, ok := f.hashes[key]
	if !ok {
		h = make(map[string]string)
		f.hashes[key] = h
	}

	var added int64

	for i := 0; i+1 < len(values); i += 2 {
		field, _ := values[i].(string)
		data, _ := values[i+1].([]byte)

		if _, exists := h[field]; !exists {
			added++
		}

		h[field] = string(data)
	}

	return redis.NewIntResult(added, nil)
}

func (f *fakeRedis) HGet(_ context.Context, key, field string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.hashes[key][field]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}

	return redis.NewStringResult(v, nil)
}

func TestRedisSink(t *testing.T) {
	t.Parallel()

	client := newFakeRedis()
	exerciseSink(t, storage.NewRedisSink(client, storage.Codec{Compress: true}))

	assert.Contains(t, client.hashes, "gitradar:metrics:demo")
	assert.Contains(t, client.hashes, "gitradar:metrics:other")
	assert.Contains(t, client.hashes["gitradar:suggestions:demo"], "a.py")
	assert.Len(t, client.hashes["gitradar:metrics:demo"], 1)
}

func TestRedisSink_ClientError(t *testing.T) {
	t.Parallel()

	client := newFakeRedis()
	client.err = errors.New("connection refused")

	err := storage.NewRedisSink(client, storage.Codec{}).PutMetrics(context.Background(), "demo", metric("a.py", 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hset gitradar:metrics:demo[a.py]")
}

func TestBadgerSink_InMemory(t *testing.T) {
	t.Parallel()

	db, err := storage.OpenBadger("", true)
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	exerciseSink(t, storage.NewBadgerSink(db, storage.Codec{}))
}
