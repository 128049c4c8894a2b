package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"

	"github.com/linkhub/linkhub/internal/model"
)

// Constraint names from migrations/000001_users.up.sql.
const (
	constraintUsernameUnique = "users_username_key"
	constraintEmailUnique    = "users_email_lower_key"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
	// ErrConflict is the parent of every uniqueness failure.
	ErrConflict      = errors.New("user already exists")
	ErrUsernameTaken = fmt.Errorf("%w: username taken", ErrConflict)
	ErrEmailTaken    = fmt.Errorf("%w: email taken", ErrConflict)
)

// UserStore persists user records. Implementations must enforce username
// and case-insensitive email uniqueness atomically with the insert.
type UserStore interface {
	// CreateUser assigns ID and CreatedAt when empty and inserts the user.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	// UpdatePasswordHash replaces the stored hash for id.
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

var (
	_ UserStore = (*Repository)(nil)
	_ UserStore = (*MemoryStore)(nil)
)

// prepareUser fills store-assigned fields.
func prepareUser(user *model.User, now time.Time) {
	if user.ID == "" {
		user.ID = ulid.Make().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now.UTC()
	}
}

// CreateUser inserts a new user into the database.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	prepareUser(user, time.Now())

	query := `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
	)

	if err != nil {
		if conflict := conflictError(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE id = $1
	`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, err
}

// GetUserByEmail retrieves a user by email address, ignoring case.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE lower(email) = lower($1)
	`

	user, err := scanUser(r.pool.QueryRow(ctx, query, strings.TrimSpace(email)))
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, err
}

// UpdatePasswordHash replaces the stored password hash.
func (r *Repository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	query := `
		UPDATE users
		SET password_hash = $2
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, hash)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// conflictError maps a unique violation to ErrUsernameTaken or ErrEmailTaken.
// It returns nil for any other error.
func conflictError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return nil
	}

	switch pgErr.ConstraintName {
	case constraintUsernameUnique:
		return ErrUsernameTaken
	case constraintEmailUnique:
		return ErrEmailTaken
	default:
		return ErrConflict
	}
}
