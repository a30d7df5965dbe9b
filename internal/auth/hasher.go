// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tourbase Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used when none is configured.
// The cost and salt are both encoded in the resulting hash, so
// verification needs no external state.
const DefaultBcryptCost = 12

// ErrEmptyPassword is returned when attempting to hash an empty password.
// Kept a plain sentinel: OopsError.Is matches any other OopsError, so an
// oops-built error cannot serve as an errors.Is target.
var ErrEmptyPassword = errors.New("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted, one-way hash of the password.
	Hash(password string) (string, error)

	// Verify checks the password against a stored hash in constant time.
	// Returns (true, nil) on match, (false, nil) on mismatch, or an error
	// wrapping ErrCorruptCredential when the stored hash is unparseable.
	Verify(password, hash string) (bool, error)
}

// BcryptHasher implements PasswordHasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher with the given work factor.
// A cost of 0 selects DefaultBcryptCost.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, oops.Code("AUTH_INVALID_COST").
			With("cost", cost).
			Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Hash produces a bcrypt hash of the password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", oops.Code("AUTH_EMPTY_PASSWORD").Wrap(ErrEmptyPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		// Only oversize input reaches here; bcrypt truncates nothing silently.
		return "", oops.Code("AUTH_HASH_FAILED").Wrap(err)
	}
	return string(hash), nil
}

// Verify checks the password against a stored bcrypt hash.
func (h *BcryptHasher) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	// Anything else means the stored hash itself is unusable. That is a
	// data integrity problem and must not masquerade as a mismatch.
	return false, oops.Code("AUTH_CORRUPT_HASH").
		With("cause", err.Error()).
		Wrap(ErrCorruptCredential)
}

// Compile-time interface check.
var _ PasswordHasher = (*BcryptHasher)(nil)
