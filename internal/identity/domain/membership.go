package domain

import "time"

// Membership assigns a user exactly one role at a scope.
// (UserID, ScopeType, ScopeID) is the composite key.
type Membership struct {
	UserID    string
	ScopeType ScopeType
	ScopeID   string
	Role      ScopeRole
	JoinedAt  time.Time
}

type Organization struct {
	ID        string
	Name      string
	CreatedBy string
	CreatedAt time.Time
}

type Workspace struct {
	ID        string
	OrgID     string
	Name      string
	CreatedBy string
	CreatedAt time.Time
}
