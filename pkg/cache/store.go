package cache

import (
	"context"
	"errors"
	"time"
)

// ErrPatternUnsupported is returned by DeleteByPattern when the backend
// cannot scan keys by pattern. Callers must fall back to enumerating
// the known key space.
var ErrPatternUnsupported = errors.New("cache backend does not support pattern deletion")

// Store is a key/value cache with TTL. The cache holds only derived,
// disposable copies; the durable store remains the source of truth.
//
// Implementations must degrade, never fail: any backend error is
// swallowed at this boundary and reported as "absent" or "not deleted".
// A cache outage makes the system slower, not unavailable.
type Store interface {
	// Get returns the value for key. The second return is false on a
	// miss, on an expired entry, and on any backend failure.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value under key for the given TTL. Failures are
	// swallowed; a non-positive ttl is a no-op.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)

	// Delete removes key. Failures are swallowed.
	Delete(ctx context.Context, key string)

	// DeleteByPattern removes every key matching pattern and returns
	// how many were removed. Best-effort: backend failures yield a
	// partial count and a nil error. Returns ErrPatternUnsupported if
	// the backend cannot scan.
	DeleteByPattern(ctx context.Context, pattern string) (int, error)
}

// KeyIndex is an optional Store extension that tracks, per task, the
// set of cache keys whose entries reference it. It turns invalidation
// from guesswork over the key space into exact bookkeeping: population
// records every written key, invalidation drains the set.
type KeyIndex interface {
	// RecordKeys adds keys to the index set named by indexKey. The set
	// expires alongside the data it tracks. Failures are swallowed.
	RecordKeys(ctx context.Context, indexKey string, ttl time.Duration, keys ...string)

	// TakeKeys returns the members of the index set and removes the
	// set itself. Returns nil on failure or when the set is absent.
	TakeKeys(ctx context.Context, indexKey string) []string
}
