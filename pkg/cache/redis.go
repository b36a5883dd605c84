package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultOpTimeout bounds single-key cache operations. Beyond it the
	// operation is treated as a backend failure.
	DefaultOpTimeout = 250 * time.Millisecond

	// DefaultScanTimeout bounds pattern scans, which touch many keys.
	DefaultScanTimeout = 2 * time.Second

	// scanBatchSize is the COUNT hint for SCAN and the DEL batch size.
	scanBatchSize = 200
)

// RedisStore implements Store and KeyIndex on a Redis backend. Every
// operation is bounded by a short timeout, and every failure is logged,
// counted and swallowed so cache trouble never reaches callers.
type RedisStore struct {
	client      *redis.Client
	opTimeout   time.Duration
	scanTimeout time.Duration
	logger      zerolog.Logger
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithOpTimeout overrides the per-operation timeout.
func WithOpTimeout(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

// WithScanTimeout overrides the pattern-scan timeout.
func WithScanTimeout(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.scanTimeout = d
		}
	}
}

// NewRedis creates a Redis-backed cache store.
func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	s := &RedisStore{
		client:      client,
		opTimeout:   DefaultOpTimeout,
		scanTimeout: DefaultScanTimeout,
		logger:      log.With().Str("component", "cache").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves a value. Backend failures count as misses.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			cacheMisses.Inc()
			return nil, false
		}
		cacheErrors.WithLabelValues("get").Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("Cache get degraded to miss")
		return nil, false
	}

	cacheHits.Inc()
	return data, true
}

// Set stores a value with TTL. Failures are swallowed.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		cacheErrors.WithLabelValues("set").Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("Cache set dropped")
	}
}

// Delete removes a key. Failures are swallowed.
func (s *RedisStore) Delete(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		cacheErrors.WithLabelValues("delete").Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("Cache delete dropped")
		return
	}
	cacheDeletedKeys.Add(float64(n))
}

// DeleteByPattern removes every key matching pattern via SCAN and
// batched DEL. A backend failure mid-scan yields the partial count.
func (s *RedisStore) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.scanTimeout)
	defer cancel()

	var (
		deleted int
		batch   []string
	)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		n, err := s.client.Del(ctx, batch...).Result()
		if err != nil {
			cacheErrors.WithLabelValues("delete").Inc()
			s.logger.Warn().Err(err).Str("pattern", pattern).Msg("Cache batch delete dropped")
		}
		deleted += int(n)
		batch = batch[:0]
	}

	iter := s.client.Scan(ctx, 0, pattern, scanBatchSize).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= scanBatchSize {
			flush()
		}
	}
	flush()

	if err := iter.Err(); err != nil {
		cacheErrors.WithLabelValues("scan").Inc()
		s.logger.Warn().Err(err).Str("pattern", pattern).Int("deleted", deleted).
			Msg("Pattern scan degraded, partial invalidation")
	}
	cacheDeletedKeys.Add(float64(deleted))
	return deleted, nil
}

// RecordKeys adds keys to the per-task index set. The set expires with
// the same TTL as the data it tracks, so a drained or lost index is
// always recovered by TTL expiry of the entries themselves.
func (s *RedisStore) RecordKeys(ctx context.Context, indexKey string, ttl time.Duration, keys ...string) {
	if len(keys) == 0 || ttl <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	members := make([]interface{}, len(keys))
	for i, k := range keys {
		members[i] = k
	}
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, indexKey, members...)
	pipe.Expire(ctx, indexKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		cacheErrors.WithLabelValues("index").Inc()
		s.logger.Warn().Err(err).Str("key", indexKey).Msg("Key index record dropped")
	}
}

// TakeKeys drains the per-task index set.
func (s *RedisStore) TakeKeys(ctx context.Context, indexKey string) []string {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	pipe := s.client.TxPipeline()
	members := pipe.SMembers(ctx, indexKey)
	pipe.Del(ctx, indexKey)
	if _, err := pipe.Exec(ctx); err != nil {
		cacheErrors.WithLabelValues("index").Inc()
		s.logger.Warn().Err(err).Str("key", indexKey).Msg("Key index read degraded")
		return nil
	}
	return members.Val()
}
