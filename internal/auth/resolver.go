// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tourbase Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// TokenVerifier verifies a raw session token and returns its claims.
// Satisfied by TokenIssuer.
type TokenVerifier interface {
	Verify(raw string) (*TokenClaims, error)
}

// Resolver turns a raw session token into an authenticated user. It is the
// strict/soft resolution pipeline: verify the token, load the subject, and
// reject tokens superseded by a later password change.
type Resolver struct {
	users    UserRepository
	verifier TokenVerifier
}

// NewResolver creates a Resolver.
func NewResolver(users UserRepository, verifier TokenVerifier) (*Resolver, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if verifier == nil {
		return nil, oops.Errorf("token verifier is required")
	}
	return &Resolver{users: users, verifier: verifier}, nil
}

// ResolveStrict resolves a raw token to its user or fails with
// ErrUnauthenticated. Every failure mode — empty token, bad signature,
// expired, unknown or deactivated subject, superseded token — wraps
// ErrUnauthenticated so the boundary cannot leak why resolution failed.
func (r *Resolver) ResolveStrict(ctx context.Context, raw string) (*User, error) {
	if raw == "" {
		return nil, oops.Code("SESSION_NO_TOKEN").Wrap(ErrUnauthenticated)
	}

	claims, err := r.verifier.Verify(raw)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_TOKEN").
			Wrap(errors.Join(ErrUnauthenticated, err))
	}

	user, err := r.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_UNKNOWN_SUBJECT").Wrap(ErrUnauthenticated)
		}
		return nil, oops.Code("SESSION_RESOLVE_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}

	if ChangedPasswordAfter(user, claims.IssuedAt) {
		return nil, oops.Code("SESSION_SUPERSEDED").
			Wrap(errors.Join(ErrUnauthenticated, ErrTokenSuperseded))
	}

	return user, nil
}

// ResolveSoft runs the same pipeline but degrades every authentication
// failure to "no identity" instead of an error. Infrastructure failures
// (storage unreachable) are still reported.
func (r *Resolver) ResolveSoft(ctx context.Context, raw string) (*User, error) {
	user, err := r.ResolveStrict(ctx, raw)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}
