// Package task implements the access-scoped, cache-aside task query
// service and the invalidation engine that keeps the cache honest
// across mutations.
//
// # Read path
//
// List and Get resolve the caller's access scope first, derive a
// deterministic cache key from it, and consult the cache. On a miss the
// durable store is queried and the result cached with a TTL. List hits
// need no access re-check because the key encodes the scope; detail
// entries are cached only after the caller's permission check passed.
//
// # Write path
//
// Create, Update and Delete go straight to the durable store. Update
// and Delete then invalidate every cache entry that could contain the
// task; Create invalidates nothing, accepting that the new task stays
// out of cached lists until their TTL expires. Invalidation failures
// are logged and swallowed: the durable write has already succeeded and
// must never be reported as failed.
//
// # Concurrency
//
// Requests share no in-process state; correctness relies on the
// invalidation contract and on the durable store staying authoritative.
// A read racing a write may repopulate the cache with data that is
// about to go stale; the TTL bounds that window. Concurrent misses for
// one key each query the store and overwrite the same entry, which is
// acceptable because populations are idempotent overwrites. No
// single-flight coalescing is attempted.
package task
