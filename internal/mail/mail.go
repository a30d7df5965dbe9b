// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tourbase Contributors

// Package mail delivers account emails over SMTP, with a log-only mailer
// for development.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/tourbase/tourbase/internal/auth"
)

// SMTPConfig holds SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// sendFunc matches smtp.SendMail, injectable for tests.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer implements auth.Mailer over a plain SMTP relay. Transient
// delivery failures are retried with exponential backoff before the error is
// reported to the caller.
type SMTPMailer struct {
	cfg     SMTPConfig
	send    sendFunc
	retries uint64
	backoff time.Duration
}

// NewSMTPMailer creates an SMTPMailer for the given relay.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, oops.Errorf("smtp host is required")
	}
	if cfg.Port == 0 {
		return nil, oops.Errorf("smtp port is required")
	}
	if cfg.From == "" {
		return nil, oops.Errorf("smtp from address is required")
	}
	return &SMTPMailer{
		cfg:     cfg,
		send:    smtp.SendMail,
		retries: 3,
		backoff: 500 * time.Millisecond,
	}, nil
}

// SendWelcome greets a newly signed-up user.
func (m *SMTPMailer) SendWelcome(ctx context.Context, user *auth.User, loginURL string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nWelcome to Tourbase, we're glad to have you!\n\n"+
			"Visit your account page to upload a photo and finish setting up:\n%s\n",
		user.Name, loginURL)
	return m.deliver(ctx, user.Email, "Welcome to the Tourbase family!", body)
}

// SendPasswordReset delivers the one-time reset link. The link is only valid
// for a short window, which the body spells out.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, user *auth.User, resetURL string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nForgot your password? Use the link below to set a new one:\n%s\n\n"+
			"The link expires in %d minutes. If you didn't forget your password, "+
			"please ignore this email.\n",
		user.Name, resetURL, int(auth.ResetTokenExpiry.Minutes()))
	return m.deliver(ctx, user.Email, "Your password reset token (valid for 10 minutes)", body)
}

func (m *SMTPMailer) deliver(ctx context.Context, to, subject, body string) error {
	msg := formatMessage(m.cfg.From, to, subject, body)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var a smtp.Auth
	if m.cfg.Username != "" {
		a = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	b := retry.WithMaxRetries(m.retries, retry.NewExponential(m.backoff))
	err := retry.Do(ctx, b, func(_ context.Context) error {
		if err := m.send(addr, a, m.cfg.From, []string{to}, msg); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("MAIL_DELIVERY_FAILED").
			With("operation", "send email").
			With("subject", subject).
			Wrap(err)
	}
	return nil
}

// formatMessage renders a minimal RFC 5322 plain-text message.
func formatMessage(from, to, subject, body string) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "To: %s\r\n", to)
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(sb.String())
}
