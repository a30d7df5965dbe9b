// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tourbase Contributors

package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Name validation constraints.
const (
	MinNameLength = 3
	MaxNameLength = 40
)

// Role is a user's authorization role. The set is closed.
type Role string

// The closed role set. Every user has exactly one role; signup always
// assigns RoleUser regardless of input.
const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

// User represents a stored identity record.
//
// The reset fields are either both set (a reset is pending) or both nil;
// repositories must never persist one without the other. PasswordChangedAt
// is nil until the first password change and never moves backward;
// MarkPasswordChanged is its single writer.
type User struct {
	ID                  ulid.ULID
	Name                string
	Email               string
	PasswordHash        string
	Role                Role
	PasswordChangedAt   *time.Time
	ResetTokenHash      *string
	ResetTokenExpiresAt *time.Time
	Active              bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewUser creates a validated User with a freshly assigned ID. The email is
// normalized to lower case, the role is always RoleUser, and the account
// starts active. passwordHash must already be hashed; plaintext never
// reaches this constructor.
func NewUser(name, email, passwordHash string) (*User, error) {
	name = strings.TrimSpace(name)
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_USER").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &User{
		ID:           ulid.Make(),
		Name:         name,
		Email:        normalized,
		PasswordHash: passwordHash,
		Role:         RoleUser,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateName validates a display name.
func ValidateName(name string) error {
	if len(name) < MinNameLength {
		return oops.Code("AUTH_INVALID_NAME").
			With("min", MinNameLength).
			Errorf("name must be at least %d characters", MinNameLength)
	}
	if len(name) > MaxNameLength {
		return oops.Code("AUTH_INVALID_NAME").
			With("max", MaxNameLength).
			Errorf("name must be at most %d characters", MaxNameLength)
	}
	return nil
}

// NormalizeEmail validates an email address and returns its canonical
// lower-case form.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", oops.Code("AUTH_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", oops.Code("AUTH_INVALID_EMAIL").Errorf("invalid email address")
	}
	return email, nil
}

// UserRepository manages user persistence. All lookups exclude deactivated
// users; a deactivated user is reported as ErrNotFound everywhere.
type UserRepository interface {
	// Create stores a new user. Returns ErrDuplicateEmail if the email is
	// already registered.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves an active user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves an active user by normalized email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update persists name and email changes for an existing user.
	Update(ctx context.Context, user *User) error

	// UpdatePassword sets a new password hash and the password-changed
	// marker in one statement, clearing any pending reset.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string, changedAt time.Time) error

	// SetResetToken stores the reset token hash and expiry. Both fields
	// are written together.
	SetResetToken(ctx context.Context, id ulid.ULID, tokenHash string, expiresAt time.Time) error

	// ClearResetToken removes a pending reset. Clearing an already clear
	// user is not an error.
	ClearResetToken(ctx context.Context, id ulid.ULID) error

	// ConsumeResetToken atomically sets the new password hash, the
	// password-changed marker, and clears the reset fields, conditional on
	// tokenHash still matching an unexpired pending reset at time now.
	// Returns the updated user, or ErrNotFound when no row matched: the
	// loser of two racing consumers observes the fields already cleared.
	ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, changedAt, now time.Time) (*User, error)

	// Deactivate soft-deletes a user. The record survives but disappears
	// from every authentication lookup.
	Deactivate(ctx context.Context, id ulid.ULID) error
}
