// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tourbase Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// PasswordResetService runs the password-reset state machine: request a
// one-time token, deliver it by email, and consume it exactly once.
type PasswordResetService struct {
	users   UserRepository
	hasher  PasswordHasher
	issuer  *TokenIssuer
	mailer  Mailer
	baseURL string
	logger  *slog.Logger
}

// NewPasswordResetService creates a PasswordResetService using the default
// logger.
func NewPasswordResetService(users UserRepository, hasher PasswordHasher, issuer *TokenIssuer, mailer Mailer, baseURL string) (*PasswordResetService, error) {
	return NewPasswordResetServiceWithLogger(users, hasher, issuer, mailer, baseURL, slog.Default())
}

// NewPasswordResetServiceWithLogger creates a PasswordResetService with an
// explicit logger.
func NewPasswordResetServiceWithLogger(users UserRepository, hasher PasswordHasher, issuer *TokenIssuer, mailer Mailer, baseURL string, logger *slog.Logger) (*PasswordResetService, error) {
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
	return &PasswordResetService{
		users:   users,
		hasher:  hasher,
		issuer:  issuer,
		mailer:  mailer,
		baseURL: baseURL,
		logger:  logger,
	}, nil
}

// RequestReset starts a password reset for the given email. An unknown
// email reports success exactly like a known one, so the endpoint cannot
// be used to enumerate accounts. On a known email it stores the token hash
// with a 10-minute expiry and mails the plaintext link; if delivery fails,
// the stored fields are rolled back so no unusable pending reset remains,
// and only then is an error reported.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		// Invalid addresses get the same generic success as unknown ones.
		return nil
	}

	user, err := s.users.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	token, hash, err := GenerateResetToken()
	if err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "generate reset token").
			Wrap(err)
	}

	expiresAt := time.Now().Add(ResetTokenExpiry)
	if err := s.users.SetResetToken(ctx, user.ID, hash, expiresAt); err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "store reset token").
			Wrap(err)
	}

	resetURL := s.baseURL + "/api/v1/users/resetPassword/" + token
	if err := s.mailer.SendPasswordReset(ctx, user, resetURL); err != nil {
		// Roll back so a failed delivery does not strand a pending reset
		// the user can never receive.
		if clearErr := s.users.ClearResetToken(ctx, user.ID); clearErr != nil {
			s.logger.Error("failed to clear reset token after delivery failure",
				"user_id", user.ID.String(), "error", clearErr)
		}
		return oops.Code("RESET_DELIVERY_FAILED").
			With("operation", "send password reset email").
			Wrap(err)
	}

	return nil
}

// ResetPassword consumes a reset token and sets the new password, then
// logs the user in with a fresh session token. The consume is a single
// conditional write keyed on the still-matching token hash: of two
// concurrent calls with the same token, exactly one succeeds and the other
// gets ErrResetTokenInvalid. Expired and unknown tokens report the same
// kind.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, newPassword string) (*User, string, error) {
	if token == "" {
		return nil, "", oops.Code("RESET_TOKEN_INVALID").Wrap(ErrResetTokenInvalid)
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	user, err := s.users.ConsumeResetToken(ctx, HashResetToken(token), passwordHash, ChangeMarker(now), now)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", oops.Code("RESET_TOKEN_INVALID").Wrap(ErrResetTokenInvalid)
		}
		return nil, "", oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "consume reset token").
			Wrap(err)
	}

	sessionToken, err := s.issuer.Issue(user.ID)
	if err != nil {
		// The password change already committed; the caller can still log
		// in with the new password.
		return nil, "", oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "issue token").
			Wrap(err)
	}
	return user, sessionToken, nil
}
