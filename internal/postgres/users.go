package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskforge/taskforge/pkg/auth"
)

const userColumns = `id, email, password_hash, first_name, last_name, role, is_active, created_at, updated_at`

// UserStore implements auth.UserStore and task.UserDirectory on
// PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a Postgres-backed user store.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var u auth.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	q := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)

	u, err := scanUser(s.pool.QueryRow(ctx, q, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*auth.User, error) {
	q := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	u, err := scanUser(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
	return u, nil
}

// FindPage returns one page of users, newest first, and the total
// count.
func (s *UserStore) FindPage(ctx context.Context, page, limit int) ([]auth.User, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	q := fmt.Sprintf(`SELECT %s FROM users ORDER BY created_at DESC OFFSET $1 LIMIT $2`, userColumns)
	rows, err := s.pool.Query(ctx, q, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []auth.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (s *UserStore) Insert(ctx context.Context, u *auth.User) error {
	const q = `
	INSERT INTO users (id, email, password_hash, first_name, last_name, role, is_active, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, q,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName,
		u.Role, u.IsActive, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user %s: %w", u.ID, err)
	}
	return nil
}

// Exists reports whether an active user with the given id exists. It
// backs assignee validation in the task service.
func (s *UserStore) Exists(ctx context.Context, id string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND is_active)`

	var ok bool
	if err := s.pool.QueryRow(ctx, q, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("user exists %s: %w", id, err)
	}
	return ok, nil
}
