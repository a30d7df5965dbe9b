// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tourbase Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultTokenTTL is the absolute session token lifetime used when none is
// configured. Tokens are not renewable; a new login issues a new token.
const DefaultTokenTTL = 90 * 24 * time.Hour

// minTokenSecretLen is the minimum HMAC secret length in bytes.
const minTokenSecretLen = 32

// TokenConfig holds the signing secret and token lifetime. It is immutable
// after process start and injected at construction.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
}

// TokenClaims is the verified payload of a session token.
type TokenClaims struct {
	Subject  ulid.ULID
	IssuedAt time.Time
}

// TokenIssuer signs and verifies self-contained session tokens. A token
// carries only {subject, issuedAt} under an HS256 signature; validity is
// recomputed on every verification, nothing is stored server-side.
type TokenIssuer struct {
	cfg TokenConfig
}

// NewTokenIssuer creates a TokenIssuer. The secret is required and must be
// at least 32 bytes; a zero TTL selects DefaultTokenTTL.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if len(cfg.Secret) < minTokenSecretLen {
		return nil, oops.Code("TOKEN_SECRET_TOO_SHORT").
			With("min_bytes", minTokenSecretLen).
			Errorf("token signing secret must be at least %d bytes", minTokenSecretLen)
	}
	if cfg.TTL < 0 {
		return nil, oops.Code("TOKEN_INVALID_TTL").Errorf("token TTL cannot be negative")
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTokenTTL
	}
	return &TokenIssuer{cfg: cfg}, nil
}

// TTL returns the configured token lifetime.
func (i *TokenIssuer) TTL() time.Duration {
	return i.cfg.TTL
}

// Issue produces a signed token for the subject, issued now.
func (i *TokenIssuer) Issue(subject ulid.ULID) (string, error) {
	return i.IssueAt(subject, time.Now())
}

// IssueAt produces a signed token with an explicit issue time. Expiry is
// always issuedAt + TTL.
func (i *TokenIssuer) IssueAt(subject ulid.ULID, issuedAt time.Time) (string, error) {
	if subject.Compare(ulid.ULID{}) == 0 {
		return "", oops.Code("TOKEN_INVALID_SUBJECT").Errorf("subject cannot be zero")
	}

	claims := jwt.RegisteredClaims{
		Subject:   subject.String(),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(i.cfg.TTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.Secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").Wrap(err)
	}
	return token, nil
}

// Verify checks the token's signature and expiry. Both checks must pass:
// a bad signature yields ErrMalformedToken regardless of expiry, and an
// expired but well-signed token yields ErrTokenExpired.
func (i *TokenIssuer) Verify(raw string) (*TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{},
		func(*jwt.Token) (any, error) { return i.cfg.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, oops.Code("TOKEN_EXPIRED").Wrap(ErrTokenExpired)
		}
		return nil, oops.Code("TOKEN_MALFORMED").Wrap(ErrMalformedToken)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" || claims.IssuedAt == nil {
		return nil, oops.Code("TOKEN_MALFORMED").Wrap(ErrMalformedToken)
	}

	subject, err := ulid.Parse(claims.Subject)
	if err != nil {
		return nil, oops.Code("TOKEN_MALFORMED").
			With("subject", claims.Subject).
			Wrap(ErrMalformedToken)
	}

	return &TokenClaims{
		Subject:  subject,
		IssuedAt: claims.IssuedAt.Time,
	}, nil
}
