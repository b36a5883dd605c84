package task

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/taskforge/taskforge/pkg/authz"
	"github.com/taskforge/taskforge/pkg/cache"
)

var invalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "taskforge_invalidations_total",
	Help: "Total task cache invalidation runs by strategy",
}, []string{"strategy"})

// Bounded combination space for the enumeration fallback. These sets
// must grow with any new status, priority or common page size, or the
// fallback silently stops covering the new keys. The index and pattern
// strategies do not share this hazard.
var (
	enumRoles      = []authz.Role{authz.RoleAdmin, authz.RoleUser}
	enumStatuses   = []string{cache.FilterAll, string(StatusTodo), string(StatusInProgress), string(StatusCompleted)}
	enumPriorities = []string{cache.FilterAll, string(PriorityLow), string(PriorityMedium), string(PriorityHigh)}
	enumPages      = []int{1, 2, 3}
	enumLimits     = []int{10, 20, 50}
)

// Invalidation names everything needed to find the cache entries a
// mutated task could appear in.
type Invalidation struct {
	TaskID      string
	CreatedByID string

	// OldAssignedToID and NewAssignedToID are equal unless the mutation
	// changed the assignee; both parties' list views may hold the task.
	OldAssignedToID string
	NewAssignedToID string
}

// scopes returns the deduplicated scope discriminators whose list keys
// could contain the task: the unrestricted ALL scope plus creator and
// both assignees.
func (iv Invalidation) scopes() []string {
	out := []string{authz.ScopeAll}
	seen := map[string]bool{authz.ScopeAll: true}
	for _, id := range []string{iv.CreatedByID, iv.OldAssignedToID, iv.NewAssignedToID} {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// callers returns the deduplicated caller ids whose detail keys are
// reachable without pattern support.
func (iv Invalidation) callers() []string {
	var out []string
	seen := map[string]bool{}
	for _, id := range []string{iv.CreatedByID, iv.OldAssignedToID, iv.NewAssignedToID} {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Invalidator removes every cache entry that could hold stale data for
// a mutated task. Strategies, in preference order:
//
//  1. Key index: exact bookkeeping recorded at population time,
//     combined with a list-namespace sweep for pages the task was
//     absent from when they were cached.
//  2. Pattern deletion over the detail and list namespaces.
//  3. Enumeration of the bounded combination space. Deliberately
//     incomplete outside that space; the TTL bounds the residual
//     staleness window.
//
// Deletion failures never abort the mutation that triggered them: the
// durable write has already succeeded, only cache freshness degrades.
type Invalidator struct {
	store  cache.Store
	index  cache.KeyIndex
	logger zerolog.Logger
}

// NewInvalidator creates an invalidator over the given cache store.
func NewInvalidator(store cache.Store) *Invalidator {
	if store == nil {
		panic("cache store cannot be nil")
	}
	index, _ := store.(cache.KeyIndex)
	return &Invalidator{
		store:  store,
		index:  index,
		logger: log.With().Str("component", "invalidator").Logger(),
	}
}

// Invalidate removes the cache entries that could contain the task.
func (v *Invalidator) Invalidate(ctx context.Context, iv Invalidation) {
	if v.index != nil {
		keys := v.index.TakeKeys(ctx, cache.IndexKey(iv.TaskID))
		for _, key := range keys {
			v.store.Delete(ctx, key)
		}
		// The index only records entries the task appeared in. List
		// pages cached while the task was outside a scope (a fresh
		// assignee's views, most notably) are not in it, so the list
		// namespaces of every affected scope are swept separately.
		swept, ok := v.listsByPattern(ctx, iv)
		if !ok {
			swept = v.enumerateLists(ctx, iv)
		}
		invalidationsTotal.WithLabelValues("index").Inc()
		v.logger.Debug().
			Str("task_id", iv.TaskID).
			Int("keys", len(keys)).
			Int("swept", swept).
			Msg("Invalidated via key index")
		return
	}

	if v.byPattern(ctx, iv) {
		return
	}
	v.enumerate(ctx, iv)
}

// byPattern deletes the detail namespace for the task and the list
// namespaces for every affected scope, including the ALL scope used by
// admin queries. Returns false when the backend cannot scan.
func (v *Invalidator) byPattern(ctx context.Context, iv Invalidation) bool {
	deleted, err := v.store.DeleteByPattern(ctx, cache.DetailPattern(iv.TaskID))
	if errors.Is(err, cache.ErrPatternUnsupported) {
		return false
	}
	swept, ok := v.listsByPattern(ctx, iv)
	if !ok {
		return false
	}

	invalidationsTotal.WithLabelValues("pattern").Inc()
	v.logger.Debug().
		Str("task_id", iv.TaskID).
		Int("keys", deleted+swept).
		Msg("Invalidated via pattern deletion")
	return true
}

// listsByPattern deletes the list namespace of every affected scope.
// Returns false when the backend cannot scan.
func (v *Invalidator) listsByPattern(ctx context.Context, iv Invalidation) (int, bool) {
	deleted := 0
	for _, scope := range iv.scopes() {
		n, err := v.store.DeleteByPattern(ctx, cache.ListPattern(scope))
		if errors.Is(err, cache.ErrPatternUnsupported) {
			return deleted, false
		}
		deleted += n
	}
	return deleted, true
}

// enumerate constructs and deletes every key in the bounded combination
// space: roles x statuses x priorities x common pages and limits for
// each affected scope, plus detail keys for the known caller ids.
// Arbitrary caller ids and uncommon page windows stay unreachable here;
// those entries go stale until their TTL expires.
func (v *Invalidator) enumerate(ctx context.Context, iv Invalidation) {
	deleted := v.enumerateLists(ctx, iv)

	for _, caller := range iv.callers() {
		for _, role := range enumRoles {
			key := cache.DetailKey{TaskID: iv.TaskID, CallerID: caller, Role: string(role)}
			v.store.Delete(ctx, key.String())
			deleted++
		}
	}

	invalidationsTotal.WithLabelValues("enumeration").Inc()
	v.logger.Debug().
		Str("task_id", iv.TaskID).
		Int("keys", deleted).
		Msg("Invalidated via enumeration fallback")
}

// enumerateLists deletes the bounded list-key combination space for
// each affected scope.
func (v *Invalidator) enumerateLists(ctx context.Context, iv Invalidation) int {
	deleted := 0
	for _, scope := range iv.scopes() {
		for _, role := range enumRoles {
			for _, status := range enumStatuses {
				for _, priority := range enumPriorities {
					for _, page := range enumPages {
						for _, limit := range enumLimits {
							key := cache.ListKey{
								Scope:    scope,
								Role:     string(role),
								Status:   status,
								Priority: priority,
								Page:     page,
								Limit:    limit,
							}
							v.store.Delete(ctx, key.String())
							deleted++
						}
					}
				}
			}
		}
	}
	return deleted
}
