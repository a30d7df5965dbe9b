// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tourbase Contributors

package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/tourbase/tourbase/internal/auth"
)

// userColumns is the scan order every user query selects.
const userColumns = `id, name, email, password_hash, role, password_changed_at,
	 reset_token_hash, reset_token_expires_at, active, created_at, updated_at`

// PostgresUserRepository implements auth.UserRepository using PostgreSQL.
// All lookups exclude deactivated accounts.
type PostgresUserRepository struct {
	pool poolIface
}

// NewPostgresUserRepository creates a new PostgreSQL user repository.
func NewPostgresUserRepository(pool poolIface) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create inserts a new user. A unique-constraint violation on the email
// column is reported as auth.ErrDuplicateEmail.
func (r *PostgresUserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, role, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID.String(),
		user.Name,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.Active,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrDuplicateEmail
		}
		return oops.With("operation", "create user").With("user_id", user.ID.String()).Wrap(err)
	}
	return nil
}

// GetByID returns the active user with the given ID.
func (r *PostgresUserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND active`,
		id.String())
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, oops.With("operation", "get user by id").With("user_id", id.String()).Wrap(err)
	}
	return user, nil
}

// GetByEmail returns the active user with the given normalized email.
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 AND active`,
		email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, oops.With("operation", "get user by email").Wrap(err)
	}
	return user, nil
}

// Update persists the mutable profile fields.
func (r *PostgresUserRepository) Update(ctx context.Context, user *auth.User) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET name = $2, email = $3, updated_at = $4 WHERE id = $1 AND active`,
		user.ID.String(), user.Name, user.Email, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrDuplicateEmail
		}
		return oops.With("operation", "update user").With("user_id", user.ID.String()).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// UpdatePassword sets a new password hash and change marker in one write,
// clearing any pending reset token with it.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string, changedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET password_hash = $2, password_changed_at = $3,
		     reset_token_hash = NULL, reset_token_expires_at = NULL,
		     updated_at = now()
		 WHERE id = $1 AND active`,
		id.String(), passwordHash, changedAt)
	if err != nil {
		return oops.With("operation", "update password").With("user_id", id.String()).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// SetResetToken stores the hashed reset token and its expiry, replacing any
// previous pending reset.
func (r *PostgresUserRepository) SetResetToken(ctx context.Context, id ulid.ULID, tokenHash string, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET reset_token_hash = $2, reset_token_expires_at = $3, updated_at = now()
		 WHERE id = $1 AND active`,
		id.String(), tokenHash, expiresAt)
	if err != nil {
		return oops.With("operation", "set reset token").With("user_id", id.String()).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// ClearResetToken removes a pending reset without touching the password.
func (r *PostgresUserRepository) ClearResetToken(ctx context.Context, id ulid.ULID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = now()
		 WHERE id = $1`,
		id.String())
	if err != nil {
		return oops.With("operation", "clear reset token").With("user_id", id.String()).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// ConsumeResetToken atomically exchanges an unexpired reset token for a new
// password. The conditional UPDATE is the whole check: whichever concurrent
// caller the database applies first gets the row back, every other caller
// matches nothing and gets auth.ErrNotFound.
func (r *PostgresUserRepository) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, changedAt, now time.Time) (*auth.User, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE users
		 SET password_hash = $2, password_changed_at = $3,
		     reset_token_hash = NULL, reset_token_expires_at = NULL,
		     updated_at = $4
		 WHERE reset_token_hash = $1 AND reset_token_expires_at > $4 AND active
		 RETURNING `+userColumns,
		tokenHash, passwordHash, changedAt, now)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, oops.With("operation", "consume reset token").Wrap(err)
	}
	return user, nil
}

// Deactivate soft-deletes the account. The row stays for bookkeeping but no
// lookup returns it anymore.
func (r *PostgresUserRepository) Deactivate(ctx context.Context, id ulid.ULID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET active = FALSE, updated_at = now() WHERE id = $1 AND active`,
		id.String())
	if err != nil {
		return oops.With("operation", "deactivate user").With("user_id", id.String()).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		u       auth.User
		idStr   string
		roleStr string
	)
	if err := row.Scan(
		&idStr,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&roleStr,
		&u.PasswordChangedAt,
		&u.ResetTokenHash,
		&u.ResetTokenExpiresAt,
		&u.Active,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("operation", "parse user id").With("user_id", idStr).Wrap(err)
	}
	u.ID = id
	u.Role = auth.Role(roleStr)
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
