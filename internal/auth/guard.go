// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tourbase Contributors

package auth

import "time"

// PasswordChangedBackoff is subtracted from the wall clock when recording a
// password change, so a token minted in the same request that changed the
// password is not immediately treated as stale. Tokens issued inside this
// window after the change still resolve; everything older is rejected.
const PasswordChangedBackoff = time.Second

// ChangeMarker returns the PasswordChangedAt value to record for a password
// change happening at now.
func ChangeMarker(now time.Time) time.Time {
	return now.Add(-PasswordChangedBackoff)
}

// MarkPasswordChanged records a password change on the user. It is the
// single writer of PasswordChangedAt; the marker never moves backward, so
// concurrent changes cannot re-validate previously rejected tokens.
func MarkPasswordChanged(u *User, now time.Time) {
	marker := ChangeMarker(now)
	if u.PasswordChangedAt != nil && u.PasswordChangedAt.After(marker) {
		u.UpdatedAt = now
		return
	}
	u.PasswordChangedAt = &marker
	u.UpdatedAt = now
}

// ChangedPasswordAfter reports whether the user's password was changed
// after a token with the given issue time was minted. Comparison happens at
// second granularity to match token timestamp precision.
func ChangedPasswordAfter(u *User, issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < u.PasswordChangedAt.Unix()
}
