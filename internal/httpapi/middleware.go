// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tourbase Contributors

package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/tourbase/tourbase/internal/auth"
)

// sessionCookieName is the cookie the session token rides in for browser
// clients. The Authorization header wins when both are present.
const sessionCookieName = "jwt"

func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		// Not a bearer header; the session cookie may still hold a token.
	}

	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// RequireAuth resolves the request's session token and injects the user into
// the context. Requests without a valid session are rejected with 401;
// storage failures stay 500 and are never reported as bad credentials.
func (s *Server) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.resolver.ResolveStrict(r.Context(), tokenFromRequest(r))
		if err != nil {
			if errors.Is(err, auth.ErrUnauthenticated) {
				s.countResolution("unauthenticated")
			} else {
				s.countResolution("error")
			}
			writeError(s.logger, w, err)
			return
		}
		s.countResolution("success")
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// OptionalAuth injects the user when the request carries a valid session and
// passes the request through anonymously otherwise. Only infrastructure
// failures produce an error response.
func (s *Server) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.resolver.ResolveSoft(r.Context(), tokenFromRequest(r))
		if err != nil {
			s.countResolution("error")
			writeError(s.logger, w, err)
			return
		}
		if user != nil {
			r = r.WithContext(WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole gates a route on role membership. It must run after
// RequireAuth, which put the user in the context.
func (s *Server) RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := auth.Authorize(UserFrom(r.Context()), roles...); err != nil {
				writeError(s.logger, w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder captures the response status for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument counts every handled request by matched route pattern and
// status.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if s.metrics == nil {
			return
		}
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}

func (s *Server) countResolution(result string) {
	if s.metrics != nil {
		s.metrics.TokenResolutionsTotal.WithLabelValues(result).Inc()
	}
}
