// Package testutil provides in-memory stores and fixtures for tests.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/taskforge/taskforge/pkg/auth"
	"github.com/taskforge/taskforge/pkg/authz"
	"github.com/taskforge/taskforge/pkg/task"
)

// TaskStore is an in-memory task.Store with the same visibility rules
// as the Postgres implementation: soft-deleted rows are excluded,
// filtered queries are scoped and ordered by creation time descending.
type TaskStore struct {
	mu    sync.Mutex
	tasks map[string]task.Task

	// FailWith, when set, makes every operation fail with it.
	FailWith error

	// Queries counts FindFiltered calls, for read-through assertions.
	Queries int
}

// NewTaskStore creates an empty in-memory task store.
func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[string]task.Task)}
}

// Seed inserts tasks directly, bypassing validation.
func (s *TaskStore) Seed(tasks ...task.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
}

func (s *TaskStore) FindByID(_ context.Context, id string) (*task.Task, error) {
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.DeletedAt != nil {
		return nil, nil
	}
	cp := t
	return &cp, nil
}

func (s *TaskStore) FindFiltered(_ context.Context, scope authz.Scope, f task.Filter, page, limit int) ([]task.Task, int, error) {
	if s.FailWith != nil {
		return nil, 0, s.FailWith
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Queries++

	var matched []task.Task
	for _, t := range s.tasks {
		if t.DeletedAt != nil {
			continue
		}
		if !scope.All && t.CreatedByID != scope.UserID && t.AssignedToID != scope.UserID {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.Priority != nil && t.Priority != *f.Priority {
			continue
		}
		matched = append(matched, t)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	offset := (page - 1) * limit
	if offset >= total {
		return []task.Task{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (s *TaskStore) Insert(_ context.Context, t *task.Task) error {
	if s.FailWith != nil {
		return s.FailWith
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = *t
	return nil
}

func (s *TaskStore) Update(_ context.Context, id string, p task.Patch) (*task.Task, error) {
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.DeletedAt != nil {
		return nil, nil
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.AssignedToID != nil {
		t.AssignedToID = *p.AssignedToID
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		t.DueDate = p.DueDate
	}
	if p.CompletedAt != nil {
		t.CompletedAt = p.CompletedAt
	}
	t.UpdatedAt = time.Now()
	s.tasks[id] = t

	cp := t
	return &cp, nil
}

func (s *TaskStore) SoftDelete(_ context.Context, id string) error {
	if s.FailWith != nil {
		return s.FailWith
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil
	}
	now := time.Now()
	t.DeletedAt = &now
	s.tasks[id] = t
	return nil
}

// UserDirectory is an in-memory task.UserDirectory.
type UserDirectory struct {
	IDs      map[string]bool
	FailWith error
}

// NewUserDirectory creates a directory containing the given user ids.
func NewUserDirectory(ids ...string) *UserDirectory {
	d := &UserDirectory{IDs: make(map[string]bool)}
	for _, id := range ids {
		d.IDs[id] = true
	}
	return d
}

func (d *UserDirectory) Exists(_ context.Context, userID string) (bool, error) {
	if d.FailWith != nil {
		return false, d.FailWith
	}
	return d.IDs[userID], nil
}

// UserStore is an in-memory auth.UserStore.
type UserStore struct {
	mu    sync.Mutex
	users map[string]auth.User
}

// NewUserStore creates an empty in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]auth.User)}
}

// SeedUser inserts a user directly.
func (s *UserStore) SeedUser(u auth.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *UserStore) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *UserStore) FindByID(_ context.Context, id string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := u
	return &cp, nil
}

func (s *UserStore) FindPage(_ context.Context, page, limit int) ([]auth.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]auth.User, 0, len(s.users))
	for _, u := range s.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	start := (page - 1) * limit
	if start >= total {
		return nil, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (s *UserStore) Insert(_ context.Context, u *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = *u
	return nil
}
