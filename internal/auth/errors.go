// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tourbase Contributors

package auth

import "errors"

// Sentinel errors for the operational failure kinds of the subsystem.
// Callers classify with errors.Is; the HTTP boundary maps each kind to a
// status code without exposing which internal check failed.
var (
	// ErrNotFound is returned when a requested user does not exist or is
	// deactivated. Deactivated users are indistinguishable from missing ones.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when signing up with an email that is
	// already registered.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrMissingCredentials is returned when login input is incomplete.
	ErrMissingCredentials = errors.New("missing email or password")

	// ErrInvalidCredentials is returned for a wrong email/password pair.
	// Unknown email and wrong password deliberately share this kind.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUnauthenticated is the externally visible kind for every session
	// resolution failure: no token, malformed, expired, unknown user,
	// superseded token.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when an authenticated user lacks the
	// required role.
	ErrForbidden = errors.New("forbidden")

	// ErrMalformedToken is returned when a session token's structure or
	// signature is invalid.
	ErrMalformedToken = errors.New("malformed session token")

	// ErrTokenExpired is returned when a session token is past its TTL.
	ErrTokenExpired = errors.New("session token expired")

	// ErrTokenSuperseded is returned when a session token was issued
	// before the user's most recent password change.
	ErrTokenSuperseded = errors.New("session token superseded by password change")

	// ErrResetTokenInvalid covers both unknown and expired reset tokens,
	// so callers cannot tell which.
	ErrResetTokenInvalid = errors.New("reset token is invalid or has expired")

	// ErrCorruptCredential indicates a stored password hash that cannot be
	// parsed. This is a data integrity problem, not a failed verification.
	ErrCorruptCredential = errors.New("stored credential is corrupt")
)
