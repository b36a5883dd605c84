// Package cache provides the task cache: deterministic key derivation,
// a degrading key/value store abstraction, and Redis and in-memory
// backends.
//
// The cache holds only derived, disposable copies of task state. The
// durable store is always authoritative, so every backend failure is
// caught at this boundary and reported as a miss or a no-op: a cache
// outage makes the system slower, never unavailable.
//
// # Keys
//
// Two key families cover the query space:
//
//   - List keys encode (scope discriminator, role, status filter,
//     priority filter, page, limit) in fixed positions.
//   - Detail keys encode (task id, caller id, role). Detail entries are
//     written only after the caller's permission check passed, so a hit
//     needs no re-check.
//
// Key strings are stable within a deployment; invalidation depends on
// reconstructing them.
//
// # Invalidation support
//
// DeleteByPattern removes whole key families via SCAN where the backend
// supports it. Backends that cannot scan return ErrPatternUnsupported.
// RedisStore additionally implements KeyIndex, a per-task set of the
// keys whose entries reference the task; this gives invalidation exact
// bookkeeping instead of pattern guesswork.
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - taskforge_cache_hits_total / taskforge_cache_misses_total
//   - taskforge_cache_errors_total{operation} - degraded operations
//   - taskforge_cache_deleted_keys_total - keys removed by invalidation
package cache
