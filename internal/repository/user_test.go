package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkhub/linkhub/internal/model"
)

var userColumns = []string{"id", "username", "email", "password_hash", "created_at"}

// anyUserArgs matches the five INSERT parameters of CreateUser.
var anyUserArgs = []any{pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()}

func newMockRepository(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return NewWithPool(mock), mock
}

func TestRepository_CreateUser(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		errMsg    string
	}{
		{
			name: "successful insert",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(pgxmock.AnyArg(), "alice", "alice@example.com", "$argon2id$hash", pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "duplicate username",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(anyUserArgs...).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: constraintUsernameUnique})
			},
			wantErr: ErrUsernameTaken,
		},
		{
			name: "duplicate email",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(anyUserArgs...).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: constraintEmailUnique})
			},
			wantErr: ErrEmailTaken,
		},
		{
			name: "unknown unique constraint",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(anyUserArgs...).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_pkey"})
			},
			wantErr: ErrConflict,
		},
		{
			name: "other database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(anyUserArgs...).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.CheckViolation})
			},
			errMsg: "failed to create user",
		},
		{
			name: "connection error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(anyUserArgs...).
					WillReturnError(errors.New("connection refused"))
			},
			errMsg: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			tt.setupMock(mock)

			user := &model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "$argon2id$hash"}
			err := repo.CreateUser(context.Background(), user)

			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, ErrConflict)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.NotErrorIs(t, err, ErrConflict)
			default:
				require.NoError(t, err)
				assert.Len(t, user.ID, 26, "ULID assigned")
				assert.False(t, user.CreatedAt.IsZero())
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestRepository_CreateUser_KeepsProvidedID(t *testing.T) {
	repo, mock := newMockRepository(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("fixed-id", "bob", "bob@example.com", "h", created).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	user := &model.User{ID: "fixed-id", Username: "bob", Email: "bob@example.com", PasswordHash: "h", CreatedAt: created}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	assert.Equal(t, "fixed-id", user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetUserByEmail(t *testing.T) {
	created := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

	tests := []struct {
		name      string
		email     string
		setupMock func(mock pgxmock.PgxPoolIface)
		want      *model.User
		wantErr   error
		errMsg    string
	}{
		{
			name:  "found",
			email: "  Alice@Example.com ",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`WHERE lower\(email\) = lower\(\$1\)`).
					WithArgs("Alice@Example.com").
					WillReturnRows(pgxmock.NewRows(userColumns).
						AddRow("id-1", "alice", "alice@example.com", "hash", created))
			},
			want: &model.User{ID: "id-1", Username: "alice", Email: "alice@example.com", PasswordHash: "hash", CreatedAt: created},
		},
		{
			name:  "not found",
			email: "ghost@example.com",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users`).
					WithArgs("ghost@example.com").
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: ErrUserNotFound,
		},
		{
			name:  "database error",
			email: "alice@example.com",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users`).
					WithArgs("alice@example.com").
					WillReturnError(errors.New("connection reset"))
			},
			errMsg: "failed to get user by email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			tt.setupMock(mock)

			got, err := repo.GetUserByEmail(context.Background(), tt.email)

			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.NotErrorIs(t, err, ErrUserNotFound)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestRepository_GetUserByID(t *testing.T) {
	repo, mock := newMockRepository(t)
	created := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

	mock.ExpectQuery(`WHERE id = \$1`).
		WithArgs("id-1").
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow("id-1", "alice", "alice@example.com", "hash", created))
	mock.ExpectQuery(`WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetUserByID(context.Background(), "id-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = repo.GetUserByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdatePasswordHash(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`UPDATE users`).
		WithArgs("id-1", "new-hash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE users`).
		WithArgs("missing", "new-hash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.UpdatePasswordHash(context.Background(), "id-1", "new-hash"))
	assert.ErrorIs(t, repo.UpdatePasswordHash(context.Background(), "missing", "new-hash"), ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Ping(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("down"))

	assert.NoError(t, repo.Ping(context.Background()))
	assert.Error(t, repo.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictError(t *testing.T) {
	t.Parallel()

	assert.Nil(t, conflictError(errors.New("plain")))
	assert.Nil(t, conflictError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}))
	assert.ErrorIs(t, conflictError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: constraintEmailUnique}), ErrEmailTaken)
}

func TestMigrationSQL_Embedded(t *testing.T) {
	t.Parallel()

	up, err := MigrationSQL("000001_users.up.sql")
	require.NoError(t, err)
	assert.Contains(t, up, constraintUsernameUnique)
	assert.Contains(t, up, constraintEmailUnique)

	_, err = MigrationSQL("999_missing.sql")
	assert.Error(t, err)
}
