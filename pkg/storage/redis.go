package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/Sumatoshi-tech/gitradar/pkg/report"
	"github.com/Sumatoshi-tech/gitradar/pkg/suggest"
)

const (
	redisMetricsPrefix     = "gitradar:metrics:"
	redisSuggestionsPrefix = "gitradar:suggestions:"
)

// RedisClient is the subset of the Redis client the sink uses.
type RedisClient interface {
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

// RedisSink stores one hash per repository, with unit IDs as fields.
type RedisSink struct {
	client RedisClient
	codec  Codec
}

// NewRedisSink creates a sink over client.
func NewRedisSink(client RedisClient, codec Codec) *RedisSink {
	return &RedisSink{client: client, codec: codec}
}

// NewRedisClient connects to a Redis server.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// PutMetrics sets the unit field of gitradar:metrics:<repo>.
func (s *RedisSink) PutMetrics(ctx context.Context, repo string, r *report.MetricReport) error {
	return s.hset(ctx, redisMetricsPrefix+repo, r.UnitID, r)
}

// PutSuggestions sets the unit field of gitradar:suggestions:<repo>.
func (s *RedisSink) PutSuggestions(ctx context.Context, repo, unitID string, set suggest.Set) error {
	return s.hset(ctx, redisSuggestionsPrefix+repo, unitID, suggestionDoc{Suggestions: set})
}

// GetMetrics reads a unit's metric report.
func (s *RedisSink) GetMetrics(ctx context.Context, repo, unitID string) (*report.MetricReport, error) {
	var r report.MetricReport

	err := s.hget(ctx, redisMetricsPrefix+repo, unitID, &r)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// GetSuggestions reads a unit's suggestions.
func (s *RedisSink) GetSuggestions(ctx context.Context, repo, unitID string) (suggest.Set, error) {
	var doc suggestionDoc

	err := s.hget(ctx, redisSuggestionsPrefix+repo, unitID, &doc)
	if err != nil {
		return nil, err
	}

	return doc.Suggestions, nil
}

func (s *RedisSink) hset(ctx context.Context, key, field string, v any) error {
	data, err := s.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("encode %s[%s]: %w", key, field, err)
	}

	err = s.client.HSet(ctx, key, field, data).Err()
	if err != nil {
		return fmt.Errorf("hset %s[%s]: %w", key, field, err)
	}

	return nil
}

func (s *RedisSink) hget(ctx context.Context, key, field string, v any) error {
	data, err := s.client.HGet(ctx, key, field).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %s[%s]", ErrNotFound, key, field)
	}

	if err != nil {
		return fmt.Errorf("hget %s[%s]: %w", key, field, err)
	}

	err = s.codec.Decode(data, v)
	if err != nil {
		return fmt.Errorf("decode %s[%s]: %w", key, field, err)
	}

	return nil
}
