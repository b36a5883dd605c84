package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/taskforge/taskforge/pkg/authz"
	"github.com/taskforge/taskforge/pkg/cache"
)

const (
	// DefaultTTL is how long cached query results stay fresh. It is the
	// outer bound on staleness that invalidation cannot reach.
	DefaultTTL = 300 * time.Second

	defaultPageSize = 10
	maxPageSize     = 100
)

// Config holds the service dependencies.
type Config struct {
	// Store is the durable source of truth.
	Store Store

	// Users validates assignee references.
	Users UserDirectory

	// Cache holds derived query results. Use cache.NewMemory for a
	// cache-less deployment.
	Cache cache.Store

	// TTL for cache entries. Defaults to DefaultTTL.
	TTL time.Duration
}

// Service orchestrates access-scoped, cache-aside task queries and the
// invalidation that keeps the cache honest across mutations.
type Service struct {
	store  Store
	users  UserDirectory
	cache  cache.Store
	index  cache.KeyIndex
	inv    *Invalidator
	ttl    time.Duration
	logger zerolog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// New creates a task service.
func New(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("task store is required")
	}
	if cfg.Users == nil {
		return nil, fmt.Errorf("user directory is required")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	index, _ := cfg.Cache.(cache.KeyIndex)

	return &Service{
		store:  cfg.Store,
		users:  cfg.Users,
		cache:  cfg.Cache,
		index:  index,
		inv:    NewInvalidator(cfg.Cache),
		ttl:    ttl,
		logger: log.With().Str("component", "task-service").Logger(),
		now:    time.Now,
	}, nil
}

// listEntry is the cached form of one list page.
type listEntry struct {
	Items []Task `json:"items"`
	Total int    `json:"total"`
}

// List returns one page of tasks visible to the caller. The access
// scope is resolved before keying, so a cache hit needs no re-check:
// the key itself encodes who may see the entry.
func (s *Service) List(ctx context.Context, callerID string, role authz.Role, f Filter, page, limit int) (*Page, error) {
	if f.Status != nil && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *f.Status)
	}
	if f.Priority != nil && !f.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, *f.Priority)
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	scope := authz.ScopeFor(role, callerID)
	key := cache.ListKey{
		Scope:    scope.Discriminator(),
		Role:     string(role),
		Status:   statusFilter(f.Status),
		Priority: priorityFilter(f.Priority),
		Page:     page,
		Limit:    limit,
	}.String()

	if data, ok := s.cache.Get(ctx, key); ok {
		var e listEntry
		if err := json.Unmarshal(data, &e); err == nil {
			s.logger.Debug().Str("key", key).Bool("cache_hit", true).Msg("Task list served from cache")
			return &Page{Items: e.Items, Total: e.Total}, nil
		}
		// Corrupt entry: drop it and fall through to the store.
		s.cache.Delete(ctx, key)
	}

	items, total, err := s.store.FindFiltered(ctx, scope, f, page, limit)
	if err != nil {
		return nil, upstream("list tasks", err)
	}

	s.populateList(ctx, key, items, total)
	return &Page{Items: items, Total: total}, nil
}

// populateList caches a list page and records the key in the index of
// every task it contains, so mutating any of them finds this entry.
func (s *Service) populateList(ctx context.Context, key string, items []Task, total int) {
	data, err := json.Marshal(listEntry{Items: items, Total: total})
	if err != nil {
		return
	}
	s.cache.Set(ctx, key, data, s.ttl)
	if s.index == nil {
		return
	}
	for i := range items {
		s.index.RecordKeys(ctx, cache.IndexKey(items[i].ID), s.ttl, key)
	}
}

// Get returns one task if the caller may view it. The cache is only
// populated after the permission check succeeds, so a later hit on the
// same (task, caller, role) key is pre-authorized by construction.
func (s *Service) Get(ctx context.Context, id, callerID string, role authz.Role) (*Task, error) {
	key := cache.DetailKey{TaskID: id, CallerID: callerID, Role: string(role)}.String()

	if data, ok := s.cache.Get(ctx, key); ok {
		var t Task
		if err := json.Unmarshal(data, &t); err == nil {
			return &t, nil
		}
		s.cache.Delete(ctx, key)
	}

	t, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, upstream("get task", err)
	}
	if t == nil {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if !authz.CanView(role, callerID, t.CreatedByID, t.AssignedToID) {
		return nil, ErrForbidden
	}

	if data, err := json.Marshal(t); err == nil {
		s.cache.Set(ctx, key, data, s.ttl)
		if s.index != nil {
			s.index.RecordKeys(ctx, cache.IndexKey(id), s.ttl, key)
		}
	}
	return t, nil
}

// Create persists a new task with the caller as creator. The cache is
// untouched: a new task missing from cached lists until their TTL
// expires is an accepted trade-off, not an omission.
func (s *Service) Create(ctx context.Context, in CreateInput, callerID string) (*Task, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.AssignedToID == "" {
		return nil, fmt.Errorf("%w: assignee is required", ErrInvalidInput)
	}
	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, in.Priority)
	}

	ok, err := s.users.Exists(ctx, in.AssignedToID)
	if err != nil {
		return nil, upstream("validate assignee", err)
	}
	if !ok {
		return nil, fmt.Errorf("assignee %s: %w", in.AssignedToID, ErrNotFound)
	}

	now := s.now()
	t := &Task{
		ID:           uuid.NewString(),
		Title:        in.Title,
		Description:  in.Description,
		AssignedToID: in.AssignedToID,
		CreatedByID:  callerID,
		Status:       StatusTodo,
		Priority:     priority,
		DueDate:      in.DueDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Insert(ctx, t); err != nil {
		return nil, upstream("create task", err)
	}

	s.logger.Debug().Str("task_id", t.ID).Str("created_by", callerID).Msg("Task created")
	return t, nil
}

// Update applies a partial update, performing completedAt bookkeeping
// on the transition into COMPLETED, then invalidates cache entries for
// the task and for both the old and new assignee's list views.
func (s *Service) Update(ctx context.Context, id string, p Patch, callerID string, role authz.Role) (*Task, error) {
	cur, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, upstream("update task", err)
	}
	if cur == nil {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if !authz.CanModify(role, callerID, cur.CreatedByID, cur.AssignedToID) {
		return nil, ErrForbidden
	}

	if p.Status != nil && !p.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *p.Status)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, *p.Priority)
	}

	// completedAt is set exactly when status enters COMPLETED from a
	// different value; re-completing an already completed task must not
	// move the timestamp.
	if p.Status != nil && *p.Status == StatusCompleted && cur.Status != StatusCompleted {
		now := s.now()
		p.CompletedAt = &now
	}

	if p.AssignedToID != nil && *p.AssignedToID != cur.AssignedToID {
		ok, err := s.users.Exists(ctx, *p.AssignedToID)
		if err != nil {
			return nil, upstream("validate assignee", err)
		}
		if !ok {
			return nil, fmt.Errorf("assignee %s: %w", *p.AssignedToID, ErrNotFound)
		}
	}

	updated, err := s.store.Update(ctx, id, p)
	if err != nil {
		return nil, upstream("update task", err)
	}
	if updated == nil {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	s.inv.Invalidate(ctx, Invalidation{
		TaskID:          id,
		CreatedByID:     cur.CreatedByID,
		OldAssignedToID: cur.AssignedToID,
		NewAssignedToID: updated.AssignedToID,
	})
	return updated, nil
}

// Delete soft-deletes a task and invalidates its cache entries. Only
// admins and the creator may delete.
func (s *Service) Delete(ctx context.Context, id, callerID string, role authz.Role) error {
	cur, err := s.store.FindByID(ctx, id)
	if err != nil {
		return upstream("delete task", err)
	}
	if cur == nil {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if !authz.CanDelete(role, callerID, cur.CreatedByID) {
		return ErrForbidden
	}

	if err := s.store.SoftDelete(ctx, id); err != nil {
		return upstream("delete task", err)
	}

	s.inv.Invalidate(ctx, Invalidation{
		TaskID:          id,
		CreatedByID:     cur.CreatedByID,
		OldAssignedToID: cur.AssignedToID,
		NewAssignedToID: cur.AssignedToID,
	})
	return nil
}

func statusFilter(s *Status) string {
	if s == nil {
		return cache.FilterAll
	}
	return string(*s)
}

func priorityFilter(p *Priority) string {
	if p == nil {
		return cache.FilterAll
	}
	return string(*p)
}
