// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tourbase Contributors

// Package auth is the credential and session integrity core of Tourbase.
//
// # Domain Types
//
// User is the stored identity record; create it with NewUser, which
// validates the name and email and assigns the default role. Direct
// struct initialization bypasses validation and may create invalid state.
//
// # Primitives
//
//   - BcryptHasher - password hashing and constant-time verification
//   - TokenIssuer - self-contained HS256 session tokens, nothing persisted
//   - GenerateResetToken / HashResetToken - one-time reset tokens, stored
//     only as SHA-256 hashes
//   - MarkPasswordChanged - the single writer of the password-changed
//     marker that invalidates previously issued session tokens
//
// # Services
//
//   - Service - signup, login, authenticated password change
//   - PasswordResetService - the request/consume reset state machine
//   - Resolver - strict and soft session resolution from raw tokens
//   - Authorize - pure role check against a resolved user
//
// All services coordinate concurrency through the UserRepository's
// conditional writes; the package holds no mutable state beyond
// configuration fixed at construction.
package auth
