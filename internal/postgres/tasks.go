package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskforge/taskforge/pkg/authz"
	"github.com/taskforge/taskforge/pkg/task"
)

const taskColumns = `id, title, description, assigned_to_id, created_by_id,
	status, priority, due_date, completed_at, created_at, updated_at, deleted_at`

// TaskStore implements task.Store on PostgreSQL. Soft-deleted rows are
// excluded from every read.
type TaskStore struct {
	pool *pgxpool.Pool
}

// NewTaskStore creates a Postgres-backed task store.
func NewTaskStore(pool *pgxpool.Pool) *TaskStore {
	return &TaskStore{pool: pool}
}

func scanTask(row pgx.Row) (*task.Task, error) {
	var t task.Task
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.AssignedToID, &t.CreatedByID,
		&t.Status, &t.Priority, &t.DueDate, &t.CompletedAt,
		&t.CreatedAt, &t.UpdatedAt, &t.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TaskStore) FindByID(ctx context.Context, id string) (*task.Task, error) {
	q := fmt.Sprintf(`SELECT %s FROM tasks WHERE id = $1 AND deleted_at IS NULL`, taskColumns)

	t, err := scanTask(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find task %s: %w", id, err)
	}
	return t, nil
}

func (s *TaskStore) FindFiltered(ctx context.Context, scope authz.Scope, f task.Filter, page, limit int) ([]task.Task, int, error) {
	where := []string{"deleted_at IS NULL"}
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !scope.All {
		p := arg(scope.UserID)
		where = append(where, fmt.Sprintf("(created_by_id = %s OR assigned_to_id = %s)", p, p))
	}
	if f.Status != nil {
		where = append(where, "status = "+arg(*f.Status))
	}
	if f.Priority != nil {
		where = append(where, "priority = "+arg(*f.Priority))
	}
	cond := strings.Join(where, " AND ")

	var total int
	countQ := "SELECT count(*) FROM tasks WHERE " + cond
	if err := s.pool.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	q := fmt.Sprintf(`SELECT %s FROM tasks WHERE %s ORDER BY created_at DESC OFFSET %s LIMIT %s`,
		taskColumns, cond, arg((page-1)*limit), arg(limit))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows tasks: %w", err)
	}
	return tasks, total, nil
}

func (s *TaskStore) Insert(ctx context.Context, t *task.Task) error {
	const q = `
	INSERT INTO tasks (id, title, description, assigned_to_id, created_by_id,
		status, priority, due_date, completed_at, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.pool.Exec(ctx, q,
		t.ID, t.Title, t.Description, t.AssignedToID, t.CreatedByID,
		t.Status, t.Priority, t.DueDate, t.CompletedAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task %s: %w", t.ID, err)
	}
	return nil
}

func (s *TaskStore) Update(ctx context.Context, id string, p task.Patch) (*task.Task, error) {
	set := []string{"updated_at = now()"}
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if p.Title != nil {
		set = append(set, "title = "+arg(*p.Title))
	}
	if p.Description != nil {
		set = append(set, "description = "+arg(*p.Description))
	}
	if p.AssignedToID != nil {
		set = append(set, "assigned_to_id = "+arg(*p.AssignedToID))
	}
	if p.Status != nil {
		set = append(set, "status = "+arg(*p.Status))
	}
	if p.Priority != nil {
		set = append(set, "priority = "+arg(*p.Priority))
	}
	if p.DueDate != nil {
		set = append(set, "due_date = "+arg(*p.DueDate))
	}
	if p.CompletedAt != nil {
		set = append(set, "completed_at = "+arg(*p.CompletedAt))
	}

	q := fmt.Sprintf(`UPDATE tasks SET %s WHERE id = %s AND deleted_at IS NULL RETURNING %s`,
		strings.Join(set, ", "), arg(id), taskColumns)

	t, err := scanTask(s.pool.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}
	return t, nil
}

func (s *TaskStore) SoftDelete(ctx context.Context, id string) error {
	const q = `UPDATE tasks SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`

	if _, err := s.pool.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("soft delete task %s: %w", id, err)
	}
	return nil
}
