// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tourbase Contributors

package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/tourbase/tourbase/internal/auth"
	"github.com/tourbase/tourbase/internal/config"
)

// minPasswordLength is the minimum accepted password length at the API
// boundary.
const minPasswordLength = 8

// userView is the wire shape of a user. Password material and reset state
// never leave the server.
type userView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func viewOf(u *auth.User) userView {
	return userView{
		ID:    u.ID.String(),
		Name:  u.Name,
		Email: u.Email,
		Role:  string(u.Role),
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return oops.In("httpapi").Code("HTTPAPI_BAD_REQUEST").Wrapf(err, "decoding request body")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return oops.In("httpapi").Code("HTTPAPI_BAD_REQUEST").Errorf("request body must be a single JSON object")
	}
	return nil
}

func checkPassword(password string) error {
	if len(password) < minPasswordLength {
		return oops.In("httpapi").Code("HTTPAPI_BAD_REQUEST").
			Errorf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  s.now().Add(s.cookieTTL),
		HttpOnly: true,
		Secure:   s.environment != config.EnvDevelopment,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "loggedout",
		Path:     "/",
		Expires:  s.now().Add(10 * time.Second),
		HttpOnly: true,
		Secure:   s.environment != config.EnvDevelopment,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string `json:"name"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"passwordConfirm"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(s.logger, w, err)
		return
	}
	if err := checkPassword(req.Password); err != nil {
		writeError(s.logger, w, err)
		return
	}
	if req.PasswordConfirm != "" && req.PasswordConfirm != req.Password {
		writeError(s.logger, w, oops.In("httpapi").Code("HTTPAPI_BAD_REQUEST").
			Errorf("passwords do not match"))
		return
	}

	user, token, err := s.accounts.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.countSignup("failure")
		writeError(s.logger, w, err)
		return
	}
	s.countSignup("success")
	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusCreated, envelope{
		"status": "success",
		"token":  token,
		"data":   map[string]any{"user": viewOf(user)},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(s.logger, w, err)
		return
	}

	user, token, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.countLogin("failure")
		writeError(s.logger, w, err)
		return
	}
	s.countLogin("success")
	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, envelope{
		"status": "success",
		"token":  token,
		"data":   map[string]any{"user": viewOf(user)},
	})
}

// handleLogout works for anonymous callers too; a stale or garbage cookie
// must not block logging out.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if user := UserFrom(r.Context()); user != nil {
		s.logger.Info("session ended", "user_id", user.ID.String())
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, envelope{"status": "success"})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(s.logger, w, err)
		return
	}

	if err := s.resets.RequestReset(r.Context(), req.Email); err != nil {
		s.countReset("request", "failure")
		writeError(s.logger, w, err)
		return
	}
	s.countReset("request", "success")
	writeJSON(w, http.StatusOK, envelope{
		"status":  "success",
		"message": "if that account exists, a reset token has been sent",
	})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(s.logger, w, err)
		return
	}
	if err := checkPassword(req.Password); err != nil {
		writeError(s.logger, w, err)
		return
	}

	user, token, err := s.resets.ResetPassword(r.Context(), r.PathValue("token"), req.Password)
	if err != nil {
		s.countReset("consume", "failure")
		writeError(s.logger, w, err)
		return
	}
	s.countReset("consume", "success")
	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, envelope{
		"status": "success",
		"token":  token,
		"data":   map[string]any{"user": viewOf(user)},
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	if user == nil {
		writeError(s.logger, w, auth.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"status": "success",
		"data":   map[string]any{"user": viewOf(user)},
	})
}

func (s *Server) handleUpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	if user == nil {
		writeError(s.logger, w, auth.ErrUnauthenticated)
		return
	}

	var req struct {
		PasswordCurrent string `json:"passwordCurrent"`
		Password        string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(s.logger, w, err)
		return
	}
	if err := checkPassword(req.Password); err != nil {
		writeError(s.logger, w, err)
		return
	}

	updated, token, err := s.accounts.UpdatePassword(r.Context(), user.ID, req.PasswordCurrent, req.Password)
	if err != nil {
		writeError(s.logger, w, err)
		return
	}
	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, envelope{
		"status": "success",
		"token":  token,
		"data":   map[string]any{"user": viewOf(updated)},
	})
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	if user == nil {
		writeError(s.logger, w, auth.ErrUnauthenticated)
		return
	}

	var raw map[string]json.RawMessage
	if err := decodeJSON(w, r, &raw); err != nil {
		writeError(s.logger, w, err)
		return
	}
	if _, ok := raw["password"]; ok {
		writeError(s.logger, w, oops.In("httpapi").Code("HTTPAPI_BAD_REQUEST").
			Errorf("this route is not for password updates; use /updateMyPassword"))
		return
	}
	if _, ok := raw["passwordCurrent"]; ok {
		writeError(s.logger, w, oops.In("httpapi").Code("HTTPAPI_BAD_REQUEST").
			Errorf("this route is not for password updates; use /updateMyPassword"))
		return
	}

	var name, email string
	if v, ok := raw["name"]; ok {
		if err := json.Unmarshal(v, &name); err != nil {
			writeError(s.logger, w, oops.In("httpapi").Code("HTTPAPI_BAD_REQUEST").Wrapf(err, "decoding name"))
			return
		}
	}
	if v, ok := raw["email"]; ok {
		if err := json.Unmarshal(v, &email); err != nil {
			writeError(s.logger, w, oops.In("httpapi").Code("HTTPAPI_BAD_REQUEST").Wrapf(err, "decoding email"))
			return
		}
	}

	updated, err := s.accounts.UpdateProfile(r.Context(), user.ID, name, email)
	if err != nil {
		writeError(s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		"status": "success",
		"data":   map[string]any{"user": viewOf(updated)},
	})
}

func (s *Server) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	if user == nil {
		writeError(s.logger, w, auth.ErrUnauthenticated)
		return
	}
	if err := s.accounts.Deactivate(r.Context(), user.ID); err != nil {
		writeError(s.logger, w, err)
		return
	}
	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := ulid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(s.logger, w, oops.In("httpapi").Code("HTTPAPI_BAD_REQUEST").
			Wrapf(err, "parsing user id"))
		return
	}
	if err := s.accounts.Deactivate(r.Context(), id); err != nil {
		writeError(s.logger, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) countLogin(result string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(result).Inc()
	}
}

func (s *Server) countSignup(result string) {
	if s.metrics != nil {
		s.metrics.SignupsTotal.WithLabelValues(result).Inc()
	}
}

func (s *Server) countReset(stage, result string) {
	if s.metrics != nil {
		s.metrics.PasswordResetsTotal.WithLabelValues(stage, result).Inc()
	}
}
