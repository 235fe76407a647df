package domain

import (
	"strings"
	"time"
)

type User struct {
	ID            string
	Email         string // stored lowercased, unique
	Name          string
	PasswordHash  string // argon2 encoded
	EmailVerified bool
	GlobalRole    GlobalRole
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NormalizeEmail canonicalizes an email address for storage and lookup.
// Uniqueness is case-insensitive, so every path through the core goes
// through this before touching the store.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
