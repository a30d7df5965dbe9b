// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tourbase Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/tourbase/tourbase/internal/auth"
	"github.com/tourbase/tourbase/pkg/errutil"
)

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Debug("failed to encode response", "error", err)
	}
}

// validationCodes are oops codes from domain input validation that are safe
// to echo to the client verbatim.
var validationCodes = map[string]bool{
	"AUTH_INVALID_NAME":   true,
	"AUTH_INVALID_EMAIL":  true,
	"AUTH_INVALID_USER":   true,
	"HTTPAPI_BAD_REQUEST": true,
}

// writeError maps domain error kinds to HTTP statuses. Anything unmapped is
// an internal error: it gets logged with full context and answered with an
// opaque 500 so storage or mail details never reach the client.
func writeError(logger *slog.Logger, w http.ResponseWriter, err error) {
	status, message := classifyError(err)

	if status >= http.StatusInternalServerError {
		errutil.LogError(logger, "request failed", err)
		writeJSON(w, status, envelope{"status": "error", "message": message})
		return
	}
	writeJSON(w, status, envelope{"status": "fail", "message": message})
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		return http.StatusBadRequest, "please provide email and password"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "incorrect email or password"
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, "you are not logged in"
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "you do not have permission to perform this action"
	case errors.Is(err, auth.ErrResetTokenInvalid):
		return http.StatusBadRequest, "token is invalid or has expired"
	case errors.Is(err, auth.ErrDuplicateEmail):
		return http.StatusConflict, "email address already in use"
	case errors.Is(err, auth.ErrEmptyPassword):
		return http.StatusBadRequest, "password cannot be empty"
	case errors.Is(err, auth.ErrNotFound):
		return http.StatusNotFound, "resource not found"
	}

	if oopsErr, ok := oops.AsOops(err); ok {
		if code, isString := oopsErr.Code().(string); isString && validationCodes[code] {
			return http.StatusBadRequest, oopsErr.Error()
		}
	}

	return http.StatusInternalServerError, "something went wrong"
}
