// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tourbase Contributors

// Package httpapi exposes the account and session operations over a JSON
// HTTP API.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/oops"

	"github.com/tourbase/tourbase/internal/auth"
	"github.com/tourbase/tourbase/internal/config"
	"github.com/tourbase/tourbase/internal/observability"
)

// maxBodyBytes bounds request bodies; account payloads are tiny.
const maxBodyBytes = 1 << 20

// Options configures a Server.
type Options struct {
	Accounts *auth.Service
	Resets   *auth.PasswordResetService
	Resolver *auth.Resolver

	// CookieTTL is the lifetime of the session cookie, normally the same
	// as the token TTL.
	CookieTTL time.Duration

	// Environment selects cookie hardening; anything other than
	// "development" marks session cookies Secure.
	Environment string

	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// Server handles the HTTP surface of the account subsystem.
type Server struct {
	accounts    *auth.Service
	resets      *auth.PasswordResetService
	resolver    *auth.Resolver
	cookieTTL   time.Duration
	environment string
	metrics     *observability.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// NewServer validates opts and builds a Server.
func NewServer(opts Options) (*Server, error) {
	errb := oops.In("httpapi")
	if opts.Accounts == nil {
		return nil, errb.Code("HTTPAPI_INVALID_CONFIG").Errorf("accounts service is required")
	}
	if opts.Resets == nil {
		return nil, errb.Code("HTTPAPI_INVALID_CONFIG").Errorf("reset service is required")
	}
	if opts.Resolver == nil {
		return nil, errb.Code("HTTPAPI_INVALID_CONFIG").Errorf("resolver is required")
	}
	if opts.CookieTTL <= 0 {
		opts.CookieTTL = auth.DefaultTokenTTL
	}
	if opts.Environment == "" {
		opts.Environment = config.EnvDevelopment
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		accounts:    opts.Accounts,
		resets:      opts.Resets,
		resolver:    opts.Resolver,
		cookieTTL:   opts.CookieTTL,
		environment: opts.Environment,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		now:         time.Now,
	}, nil
}

// Routes builds the API handler tree.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/users/signup", s.handleSignup)
	mux.HandleFunc("POST /api/v1/users/login", s.handleLogin)
	mux.Handle("GET /api/v1/users/logout", s.OptionalAuth(http.HandlerFunc(s.handleLogout)))
	mux.HandleFunc("POST /api/v1/users/forgotPassword", s.handleForgotPassword)
	mux.HandleFunc("PATCH /api/v1/users/resetPassword/{token}", s.handleResetPassword)

	mux.Handle("GET /api/v1/users/me", s.RequireAuth(http.HandlerFunc(s.handleMe)))
	mux.Handle("PATCH /api/v1/users/updateMyPassword", s.RequireAuth(http.HandlerFunc(s.handleUpdateMyPassword)))
	mux.Handle("PATCH /api/v1/users/updateMe", s.RequireAuth(http.HandlerFunc(s.handleUpdateMe)))
	mux.Handle("DELETE /api/v1/users/deleteMe", s.RequireAuth(http.HandlerFunc(s.handleDeleteMe)))

	mux.Handle("DELETE /api/v1/users/{id}",
		s.RequireAuth(s.RequireRole(auth.RoleAdmin)(http.HandlerFunc(s.handleDeleteUser))))

	return s.instrument(mux)
}
