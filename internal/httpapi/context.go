// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tourbase Contributors

package httpapi

import (
	"context"

	"github.com/tourbase/tourbase/internal/auth"
)

type contextKey string

const ctxKeyUser contextKey = "auth_user"

// WithUser injects the resolved user into the request context.
func WithUser(ctx context.Context, user *auth.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser, user)
}

// UserFrom returns the resolved user, or nil when the request carried no
// valid session.
func UserFrom(ctx context.Context) *auth.User {
	user, _ := ctx.Value(ctxKeyUser).(*auth.User)
	return user
}
