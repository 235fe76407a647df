package domain

import "time"

type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusRevoked  InviteStatus = "revoked"
	InviteStatusExpired  InviteStatus = "expired"
)

// Invite is a pending membership grant. pending is the only live state;
// accepted, revoked and expired are terminal. Expiry is applied lazily on
// read, so a pending invite past its ExpiresAt is already dead even if the
// stored status hasn't caught up yet.
type Invite struct {
	ID        string
	ScopeType ScopeType
	ScopeID   string
	Email     string
	Role      ScopeRole
	TokenHash string
	Status    InviteStatus
	InvitedBy string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Overdue reports whether a pending invite has outlived its expiry.
func (i Invite) Overdue(now time.Time) bool {
	return i.Status == InviteStatusPending && now.After(i.ExpiresAt)
}
