// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tourbase Contributors

package httpapi_test

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/tourbase/tourbase/internal/auth"
)

// memUserRepo is an in-memory auth.UserRepository backing the handler
// tests. Every method takes the mutex, so the conditional reset-token
// consume is one atomic step, like the database's conditional write.
type memUserRepo struct {
	mu    sync.Mutex
	users map[ulid.ULID]*auth.User

	failWith error // when set, lookups fail with this error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[ulid.ULID]*auth.User)}
}

func copyUser(u *auth.User) *auth.User {
	c := *u
	if u.PasswordChangedAt != nil {
		t := *u.PasswordChangedAt
		c.PasswordChangedAt = &t
	}
	if u.ResetTokenHash != nil {
		s := *u.ResetTokenHash
		c.ResetTokenHash = &s
	}
	if u.ResetTokenExpiresAt != nil {
		t := *u.ResetTokenExpiresAt
		c.ResetTokenExpiresAt = &t
	}
	return &c
}

func (r *memUserRepo) setRole(id ulid.ULID, role auth.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id].Role = role
}

func (r *memUserRepo) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return auth.ErrDuplicateEmail
		}
	}
	r.users[user.ID] = copyUser(user)
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	u, ok := r.users[id]
	if !ok || !u.Active {
		return nil, auth.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	for _, u := range r.users {
		if u.Email == email && u.Active {
			return copyUser(u), nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r *memUserRepo) Update(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return auth.ErrNotFound
	}
	r.users[user.ID] = copyUser(user)
	return nil
}

func (r *memUserRepo) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string, changedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || !u.Active {
		return auth.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.PasswordChangedAt = &changedAt
	u.ResetTokenHash = nil
	u.ResetTokenExpiresAt = nil
	return nil
}

func (r *memUserRepo) SetResetToken(_ context.Context, id ulid.ULID, tokenHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || !u.Active {
		return auth.ErrNotFound
	}
	u.ResetTokenHash = &tokenHash
	u.ResetTokenExpiresAt = &expiresAt
	return nil
}

func (r *memUserRepo) ClearResetToken(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.ResetTokenHash = nil
	u.ResetTokenExpiresAt = nil
	return nil
}

func (r *memUserRepo) ConsumeResetToken(_ context.Context, tokenHash, passwordHash string, changedAt, now time.Time) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if !u.Active || u.ResetTokenHash == nil || u.ResetTokenExpiresAt == nil {
			continue
		}
		if *u.ResetTokenHash != tokenHash || !u.ResetTokenExpiresAt.After(now) {
			continue
		}
		u.PasswordHash = passwordHash
		u.PasswordChangedAt = &changedAt
		u.ResetTokenHash = nil
		u.ResetTokenExpiresAt = nil
		u.UpdatedAt = now
		return copyUser(u), nil
	}
	return nil, auth.ErrNotFound
}

func (r *memUserRepo) Deactivate(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.Active = false
	return nil
}

// stubMailer records outgoing mail instead of sending it.
type stubMailer struct {
	mu        sync.Mutex
	resetURLs []string
}

func (m *stubMailer) SendWelcome(_ context.Context, _ *auth.User, _ string) error {
	return nil
}

func (m *stubMailer) SendPasswordReset(_ context.Context, _ *auth.User, resetURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetURLs = append(m.resetURLs, resetURL)
	return nil
}

func (m *stubMailer) lastResetURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.resetURLs) == 0 {
		return ""
	}
	return m.resetURLs[len(m.resetURLs)-1]
}
