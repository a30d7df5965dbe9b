// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tourbase Contributors

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tourbase/tourbase/internal/auth"
)

var userCols = []string{
	"id", "name", "email", "password_hash", "role", "password_changed_at",
	"reset_token_hash", "reset_token_expires_at", "active", "created_at", "updated_at",
}

func testUser(t *testing.T) *auth.User {
	t.Helper()
	user, err := auth.NewUser("Alice", "a@b.com", "$2a$04$hashhashhashhashhashha")
	require.NoError(t, err)
	return user
}

func userRows(u *auth.User) *pgxmock.Rows {
	return pgxmock.NewRows(userCols).AddRow(
		u.ID.String(), u.Name, u.Email, u.PasswordHash, string(u.Role),
		u.PasswordChangedAt, u.ResetTokenHash, u.ResetTokenExpiresAt,
		u.Active, u.CreatedAt, u.UpdatedAt,
	)
}

func uniqueViolation() *pgconn.PgError {
	return &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"}
}

func TestPostgresUserRepository_Create(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface, u *auth.User)
		wantErr   error
	}{
		{
			name: "successful insert",
			setupMock: func(mock pgxmock.PgxPoolIface, u *auth.User) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(u.ID.String(), u.Name, u.Email, u.PasswordHash,
						string(u.Role), u.Active, u.CreatedAt, u.UpdatedAt).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "duplicate email",
			setupMock: func(mock pgxmock.PgxPoolIface, u *auth.User) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(u.ID.String(), u.Name, u.Email, u.PasswordHash,
						string(u.Role), u.Active, u.CreatedAt, u.UpdatedAt).
					WillReturnError(uniqueViolation())
			},
			wantErr: auth.ErrDuplicateEmail,
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface, u *auth.User) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(u.ID.String(), u.Name, u.Email, u.PasswordHash,
						string(u.Role), u.Active, u.CreatedAt, u.UpdatedAt).
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: errors.New("connection refused"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			user := testUser(t)
			tt.setupMock(mock, user)

			repo := NewPostgresUserRepository(mock)
			err = repo.Create(context.Background(), user)

			switch {
			case tt.wantErr == nil:
				require.NoError(t, err)
			case errors.Is(tt.wantErr, auth.ErrDuplicateEmail):
				assert.ErrorIs(t, err, auth.ErrDuplicateEmail)
			default:
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr.Error())
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresUserRepository_GetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		user := testUser(t)
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1 AND active`).
			WithArgs(user.ID.String()).
			WillReturnRows(userRows(user))

		got, err := NewPostgresUserRepository(mock).GetByID(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, user.Email, got.Email)
		assert.Equal(t, auth.RoleUser, got.Role)
		assert.Nil(t, got.PasswordChangedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found maps to ErrNotFound", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id := ulid.Make()
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1 AND active`).
			WithArgs(id.String()).
			WillReturnError(pgx.ErrNoRows)

		_, err = NewPostgresUserRepository(mock).GetByID(context.Background(), id)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt id in row", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		user := testUser(t)
		rows := pgxmock.NewRows(userCols).AddRow(
			"not-a-ulid", user.Name, user.Email, user.PasswordHash, string(user.Role),
			nil, nil, nil, true, user.CreatedAt, user.UpdatedAt)
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1 AND active`).
			WithArgs(user.ID.String()).
			WillReturnRows(rows)

		_, err = NewPostgresUserRepository(mock).GetByID(context.Background(), user.ID)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestPostgresUserRepository_GetByEmail(t *testing.T) {
	t.Run("found with pending reset fields", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		user := testUser(t)
		hash := "deadbeef"
		expires := time.Now().Add(10 * time.Minute)
		user.ResetTokenHash = &hash
		user.ResetTokenExpiresAt = &expires

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1 AND active`).
			WithArgs(user.Email).
			WillReturnRows(userRows(user))

		got, err := NewPostgresUserRepository(mock).GetByEmail(context.Background(), user.Email)
		require.NoError(t, err)
		require.NotNil(t, got.ResetTokenHash)
		assert.Equal(t, hash, *got.ResetTokenHash)
		require.NotNil(t, got.ResetTokenExpiresAt)
	})

	t.Run("unknown email maps to ErrNotFound", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1 AND active`).
			WithArgs("nobody@b.com").
			WillReturnError(pgx.ErrNoRows)

		_, err = NewPostgresUserRepository(mock).GetByEmail(context.Background(), "nobody@b.com")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestPostgresUserRepository_UpdatePassword(t *testing.T) {
	t.Run("successful update clears reset fields", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id := ulid.Make()
		changedAt := time.Now().Add(-time.Second)
		mock.ExpectExec(`UPDATE users`).
			WithArgs(id.String(), "newhash", changedAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err = NewPostgresUserRepository(mock).UpdatePassword(context.Background(), id, "newhash", changedAt)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no matching row maps to ErrNotFound", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id := ulid.Make()
		changedAt := time.Now()
		mock.ExpectExec(`UPDATE users`).
			WithArgs(id.String(), "newhash", changedAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err = NewPostgresUserRepository(mock).UpdatePassword(context.Background(), id, "newhash", changedAt)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestPostgresUserRepository_SetResetToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := ulid.Make()
	expires := time.Now().Add(10 * time.Minute)
	mock.ExpectExec(`UPDATE users`).
		WithArgs(id.String(), "tokenhash", expires).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = NewPostgresUserRepository(mock).SetResetToken(context.Background(), id, "tokenhash", expires)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_ClearResetToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := ulid.Make()
	mock.ExpectExec(`UPDATE users`).
		WithArgs(id.String()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = NewPostgresUserRepository(mock).ClearResetToken(context.Background(), id)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepository_ConsumeResetToken(t *testing.T) {
	t.Run("matching unexpired token returns the updated row", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		user := testUser(t)
		now := time.Now()
		changedAt := now.Add(-time.Second)
		user.PasswordHash = "newhash"
		user.PasswordChangedAt = &changedAt

		mock.ExpectQuery(`UPDATE users`).
			WithArgs("tokenhash", "newhash", changedAt, now).
			WillReturnRows(userRows(user))

		got, err := NewPostgresUserRepository(mock).
			ConsumeResetToken(context.Background(), "tokenhash", "newhash", changedAt, now)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, "newhash", got.PasswordHash)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no matching row maps to ErrNotFound", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		now := time.Now()
		changedAt := now.Add(-time.Second)
		mock.ExpectQuery(`UPDATE users`).
			WithArgs("tokenhash", "newhash", changedAt, now).
			WillReturnError(pgx.ErrNoRows)

		_, err = NewPostgresUserRepository(mock).
			ConsumeResetToken(context.Background(), "tokenhash", "newhash", changedAt, now)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestPostgresUserRepository_Deactivate(t *testing.T) {
	t.Run("marks the row inactive", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id := ulid.Make()
		mock.ExpectExec(`UPDATE users SET active = FALSE`).
			WithArgs(id.String()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err = NewPostgresUserRepository(mock).Deactivate(context.Background(), id)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already inactive maps to ErrNotFound", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id := ulid.Make()
		mock.ExpectExec(`UPDATE users SET active = FALSE`).
			WithArgs(id.String()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err = NewPostgresUserRepository(mock).Deactivate(context.Background(), id)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}
