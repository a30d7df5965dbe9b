// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tourbase Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Mailer delivers account emails. The plaintext reset token only ever
// travels through this interface, embedded in the reset URL.
type Mailer interface {
	// SendWelcome greets a newly signed-up user.
	SendWelcome(ctx context.Context, user *User, loginURL string) error

	// SendPasswordReset delivers the one-time reset link.
	SendPasswordReset(ctx context.Context, user *User, resetURL string) error
}

// dummyPasswordHash is verified when login hits an unknown email, so the
// response time does not reveal whether the account exists. It is a
// syntactically valid bcrypt hash that matches no password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$2a$12$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Service provides signup, login, and password-change operations.
type Service struct {
	users   UserRepository
	hasher  PasswordHasher
	issuer  *TokenIssuer
	mailer  Mailer
	baseURL string
	logger  *slog.Logger
}

// NewService creates a Service using the default logger.
func NewService(users UserRepository, hasher PasswordHasher, issuer *TokenIssuer, mailer Mailer, baseURL string) (*Service, error) {
	return NewServiceWithLogger(users, hasher, issuer, mailer, baseURL, slog.Default())
}

// NewServiceWithLogger creates a Service with an explicit logger.
func NewServiceWithLogger(users UserRepository, hasher PasswordHasher, issuer *TokenIssuer, mailer Mailer, baseURL string, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if issuer == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if mailer == nil {
		return nil, oops.Errorf("mailer is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Service{
		users:   users,
		hasher:  hasher,
		issuer:  issuer,
		mailer:  mailer,
		baseURL: baseURL,
		logger:  logger,
	}, nil
}

// Signup registers a new user and logs them in. The role is always
// RoleUser; the plaintext password is hashed here and never stored or
// returned. A failed welcome email does not fail the signup.
func (s *Service) Signup(ctx context.Context, name, email, password string) (*User, string, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", err
	}

	user, err := NewUser(name, email, hash)
	if err != nil {
		return nil, "", err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, "", err
		}
		return nil, "", oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	if err := s.mailer.SendWelcome(ctx, user, s.baseURL+"/me"); err != nil {
		s.logger.Warn("welcome email delivery failed",
			"user_id", user.ID.String(), "error", err)
	}

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		return nil, "", oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "issue token").
			Wrap(err)
	}
	return user, token, nil
}

// Login authenticates by email and password and issues a session token.
// Unknown email and wrong password return the same ErrInvalidCredentials;
// a dummy hash is verified on the unknown-email path to keep response
// times uniform.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	if email == "" || password == "" {
		return nil, "", oops.Code("AUTH_MISSING_CREDENTIALS").Wrap(ErrMissingCredentials)
	}

	normalized, err := NormalizeEmail(email)
	if err != nil {
		// Badly formed email cannot match an account; verify the dummy hash
		// anyway so this path costs the same as a wrong password.
		normalized = ""
	}

	var user *User
	targetHash := dummyPasswordHash
	if normalized != "" {
		user, err = s.users.GetByEmail(ctx, normalized)
		switch {
		case err == nil:
			targetHash = user.PasswordHash
		case errors.Is(err, ErrNotFound):
			user = nil
		default:
			return nil, "", oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by email").
				Wrap(err)
		}
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if user == nil {
			return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
		}
		// A real user with an unparseable stored hash is a data problem,
		// not a login failure.
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if user == nil || !valid {
		return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue token").
			Wrap(err)
	}
	return user, token, nil
}

// UpdatePassword changes an authenticated user's password after
// re-verifying the current one, records the change through the mutation
// guard, and issues a fresh token. Tokens issued before the change stop
// resolving.
func (s *Service) UpdatePassword(ctx context.Context, userID ulid.ULID, current, newPassword string) (*User, string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", oops.Code("AUTH_UNKNOWN_USER").Wrap(ErrUnauthenticated)
		}
		return nil, "", oops.Code("AUTH_UPDATE_PASSWORD_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}

	valid, err := s.hasher.Verify(current, user.PasswordHash)
	if err != nil {
		return nil, "", oops.Code("AUTH_UPDATE_PASSWORD_FAILED").
			With("operation", "verify current password").
			Wrap(err)
	}
	if !valid {
		return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, "", err
	}

	MarkPasswordChanged(user, time.Now())
	user.PasswordHash = hash
	if err := s.users.UpdatePassword(ctx, user.ID, hash, *user.PasswordChangedAt); err != nil {
		return nil, "", oops.Code("AUTH_UPDATE_PASSWORD_FAILED").
			With("operation", "update password").
			Wrap(err)
	}

	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		return nil, "", oops.Code("AUTH_UPDATE_PASSWORD_FAILED").
			With("operation", "issue token").
			Wrap(err)
	}
	return user, token, nil
}

// UpdateProfile edits the mutable profile fields. Only name and email are
// accepted; role and password cannot change through this path.
func (s *Service) UpdateProfile(ctx context.Context, userID ulid.ULID, name, email string) (*User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, oops.Code("AUTH_UPDATE_PROFILE_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}

	if name != "" {
		if err := ValidateName(name); err != nil {
			return nil, err
		}
		user.Name = name
	}
	if email != "" {
		normalized, err := NormalizeEmail(email)
		if err != nil {
			return nil, err
		}
		user.Email = normalized
	}
	user.UpdatedAt = time.Now()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, oops.Code("AUTH_UPDATE_PROFILE_FAILED").
			With("operation", "update user").
			Wrap(err)
	}
	return user, nil
}

// Deactivate soft-deletes the user's account. The record is retained but
// excluded from all authentication lookups from this point on.
func (s *Service) Deactivate(ctx context.Context, userID ulid.ULID) error {
	if err := s.users.Deactivate(ctx, userID); err != nil {
		return oops.Code("AUTH_DEACTIVATE_FAILED").
			With("operation", "deactivate user").
			Wrap(err)
	}
	return nil
}
