package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/taskforge/taskforge/pkg/authz"
)

var (
	// ErrEmailTaken indicates a registration with an already-used email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials covers unknown email, wrong password and
	// inactive accounts. Deliberately one error: login failures must not
	// reveal which part was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound indicates a profile lookup for an unknown user.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidInput indicates a malformed registration request.
	ErrInvalidInput = errors.New("invalid input")
)

const (
	minPasswordLen = 8

	defaultUserPageSize = 10
	maxUserPageSize     = 100
)

// User is a registered account. PasswordHash never appears in JSON
// projections.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Role         authz.Role `json:"role"`
	PasswordHash string     `json:"-"`
	IsActive     bool       `json:"isActive"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// UserStore is the durable store for accounts.
type UserStore interface {
	// FindByEmail returns the user, or (nil, nil) when absent.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByID returns the user, or (nil, nil) when absent.
	FindByID(ctx context.Context, id string) (*User, error)

	// FindPage returns one page of users ordered by creation time
	// descending, plus the total count.
	FindPage(ctx context.Context, page, limit int) ([]User, int, error)

	// Insert persists a new user.
	Insert(ctx context.Context, u *User) error
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// CreateInput carries an administratively provisioned account. Unlike
// self-registration the role is chosen by the caller.
type CreateInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      authz.Role
}

// Service implements register, login and profile lookup.
type Service struct {
	store  UserStore
	tokens *Manager
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates an auth service.
func NewService(store UserStore, tokens *Manager) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token manager is required")
	}
	return &Service{
		store:  store,
		tokens: tokens,
		logger: log.With().Str("component", "auth-service").Logger(),
		now:    time.Now,
	}, nil
}

// Register creates a new USER-role account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	return s.create(ctx, CreateInput{
		Email:     in.Email,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      authz.RoleUser,
	})
}

// Create provisions an account with an explicit role. Restricting it
// to admins is the transport layer's job.
func (s *Service) Create(ctx context.Context, in CreateInput) (*User, error) {
	if !in.Role.Valid() {
		return nil, fmt.Errorf("unknown role %q: %w", in.Role, ErrInvalidInput)
	}
	return s.create(ctx, in)
}

func (s *Service) create(ctx context.Context, in CreateInput) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email %q: %w", in.Email, ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLen {
		return nil, fmt.Errorf("password must be at least %d characters: %w", minPasswordLen, ErrInvalidInput)
	}

	existing, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%s: %w", email, ErrEmailTaken)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         in.Role,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Insert(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Str("user_id", u.ID).Str("role", string(u.Role)).Msg("User created")
	return u, nil
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	u, err := s.store.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", nil, fmt.Errorf("login: %w", err)
	}
	if u == nil || !u.IsActive || !CheckPassword(u.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return "", nil, fmt.Errorf("login: %w", err)
	}
	return token, u, nil
}

// Users returns one page of accounts, newest first.
func (s *Service) Users(ctx context.Context, page, limit int) ([]User, int, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultUserPageSize
	}
	if limit > maxUserPageSize {
		limit = maxUserPageSize
	}
	users, total, err := s.store.FindPage(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// Profile returns the account for the given user id.
func (s *Service) Profile(ctx context.Context, id string) (*User, error) {
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("user %s: %w", id, ErrUserNotFound)
	}
	return u, nil
}
