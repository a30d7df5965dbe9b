// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tourbase Contributors

package auth

import (
	"slices"

	"github.com/samber/oops"
)

// Authorize checks that the user's role is one of the required roles. It
// performs no I/O and no mutation, so it composes freely in front of any
// handler. A nil user is unauthenticated, not forbidden.
func Authorize(u *User, required ...Role) error {
	if u == nil {
		return oops.Code("AUTH_NO_IDENTITY").Wrap(ErrUnauthenticated)
	}
	if slices.Contains(required, u.Role) {
		return nil
	}
	return oops.Code("AUTH_FORBIDDEN").
		With("role", string(u.Role)).
		Wrap(ErrForbidden)
}
