package task

import (
	"context"

	"github.com/taskforge/taskforge/pkg/authz"
)

// Store is the durable source of truth for tasks. Implementations must
// exclude soft-deleted rows from FindByID and FindFiltered.
type Store interface {
	// FindByID returns the task, or (nil, nil) when it is absent or
	// soft-deleted.
	FindByID(ctx context.Context, id string) (*Task, error)

	// FindFiltered returns one page of tasks visible within scope that
	// match the filter, ordered by creation time descending, plus the
	// total match count. Pagination skips (page-1)*limit rows.
	FindFiltered(ctx context.Context, scope authz.Scope, f Filter, page, limit int) ([]Task, int, error)

	// Insert persists a new task.
	Insert(ctx context.Context, t *Task) error

	// Update applies the patch and returns the updated row, or
	// (nil, nil) when the task is absent or soft-deleted.
	Update(ctx context.Context, id string, p Patch) (*Task, error)

	// SoftDelete marks the task deleted without removing the row.
	SoftDelete(ctx context.Context, id string) error
}

// UserDirectory validates assignee references.
type UserDirectory interface {
	// Exists reports whether the user id refers to a known user.
	Exists(ctx context.Context, userID string) (bool, error)
}
