// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tourbase Contributors

package mail

import (
	"context"
	"log/slog"

	"github.com/tourbase/tourbase/internal/auth"
)

// LogMailer implements auth.Mailer by logging instead of sending. It is the
// development default so no SMTP relay is needed to exercise signup and
// password-reset flows locally.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer. A nil logger falls back to slog.Default.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// SendWelcome logs the welcome email instead of delivering it.
func (m *LogMailer) SendWelcome(_ context.Context, user *auth.User, loginURL string) error {
	m.logger.Info("welcome email",
		"to", user.Email,
		"login_url", loginURL)
	return nil
}

// SendPasswordReset logs the reset link, plaintext token included, so the
// flow can be completed by hand in development.
func (m *LogMailer) SendPasswordReset(_ context.Context, user *auth.User, resetURL string) error {
	m.logger.Info("password reset email",
		"to", user.Email,
		"reset_url", resetURL)
	return nil
}
