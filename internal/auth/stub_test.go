// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tourbase Contributors

package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/tourbase/tourbase/internal/auth"
)

// memUserRepo is an in-memory auth.UserRepository. Every method takes the
// mutex, so ConsumeResetToken behaves like the database's conditional
// write: the check and the mutation are one atomic step.
type memUserRepo struct {
	mu    sync.Mutex
	users map[ulid.ULID]*auth.User

	failWith error // when set, every method fails with this error
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

func (r *memUserRepo) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
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
	if r.failWith != nil {
		return r.failWith
	}
	if _, ok := r.users[user.ID]; !ok {
		return auth.ErrNotFound
	}
	r.users[user.ID] = copyUser(user)
	return nil
}

func (r *memUserRepo) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string, changedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
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
	if r.failWith != nil {
		return r.failWith
	}
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
	if r.failWith != nil {
		return r.failWith
	}
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
	if r.failWith != nil {
		return nil, r.failWith
	}
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
	if r.failWith != nil {
		return r.failWith
	}
	u, ok := r.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	u.Active = false
	return nil
}

// stubMailer captures outgoing mail instead of sending it.
type stubMailer struct {
	mu          sync.Mutex
	welcomeURLs []string
	resetURLs   []string
	failWelcome error
	failReset   error
}

func (m *stubMailer) SendWelcome(_ context.Context, _ *auth.User, loginURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWelcome != nil {
		return m.failWelcome
	}
	m.welcomeURLs = append(m.welcomeURLs, loginURL)
	return nil
}

func (m *stubMailer) SendPasswordReset(_ context.Context, _ *auth.User, resetURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReset != nil {
		return m.failReset
	}
	m.resetURLs = append(m.resetURLs, resetURL)
	return nil
}

// lastResetToken extracts the plaintext token from the most recent reset
// URL, the same way a user would follow the emailed link.
func (m *stubMailer) lastResetToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.resetURLs) == 0 {
		return ""
	}
	url := m.resetURLs[len(m.resetURLs)-1]
	for i := len(url) - 1; i >= 0; i-- {
		if url[i] == '/' {
			return url[i+1:]
		}
	}
	return ""
}
