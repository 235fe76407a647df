package service

import "errors"

// Recoverable outcomes callers are expected to branch on. Anything else
// coming out of a service is an infrastructure failure and should be treated
// as a 500 at the edge.
var (
	// Credentials and sessions. Unknown email and wrong password are
	// deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password does not meet minimum length")
	ErrSessionRevoked     = errors.New("session revoked")

	// One-time codes and recovery tokens.
	ErrNotFound        = errors.New("not found")
	ErrExpired         = errors.New("expired")
	ErrExhausted       = errors.New("attempts exhausted")
	ErrInvalidCode     = errors.New("invalid code")
	ErrAlreadyConsumed = errors.New("already consumed")

	// Memberships and roles.
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidRole         = errors.New("invalid role")
	ErrSelfDemotionBlocked = errors.New("would leave scope without an owner")
	ErrAlreadyMember       = errors.New("already a member")

	// Invites.
	ErrDuplicatePending = errors.New("pending invite already exists")
	ErrAlreadyResolved  = errors.New("invite already resolved")
)
