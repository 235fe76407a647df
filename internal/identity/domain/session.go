package domain

import "time"

// Session backs an opaque access token. The token itself is shown once at
// login; only its fingerprint is persisted. Validation always consults the
// stored record so revocation takes effect immediately.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	Revoked   bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}
