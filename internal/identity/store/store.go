package store

import (
	"context"
	"errors"
	"time"

	"github.com/crewdeck/crewdeck/internal/identity/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement this.
// It exposes sub-repositories to keep concerns tidy and testable, and to
// actively stop callers from accidentally nesting transactions.
type Store interface {
	Users() Users
	Orgs() Orgs
	Memberships() Memberships
	OtpChallenges() OtpChallenges
	RecoveryTokens() RecoveryTokens
	Invites() Invites
	Sessions() Sessions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. This is the
	// recommended way to handle transactions.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists if the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks up by the stored (lowercased) email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// MarkEmailVerified flips email_verified and bumps updated_at.
	MarkEmailVerified(ctx context.Context, userID string) error

	UpdateName(ctx context.Context, userID string, name string) error
}

type Orgs interface {
	CreateOrg(ctx context.Context, o domain.Organization) error
	GetOrgByID(ctx context.Context, id string) (domain.Organization, error)

	CreateWorkspace(ctx context.Context, w domain.Workspace) error
	GetWorkspaceByID(ctx context.Context, id string) (domain.Workspace, error)
	ListWorkspacesByOrg(ctx context.Context, orgID string) ([]domain.Workspace, error)
}

type Memberships interface {
	// CreateMembership inserts a membership row. Returns ErrAlreadyExists if
	// the user already holds a role at the scope.
	CreateMembership(ctx context.Context, m domain.Membership) error

	GetMembership(ctx context.Context, userID string, scopeType domain.ScopeType, scopeID string) (domain.Membership, error)

	ListByScope(ctx context.Context, scopeType domain.ScopeType, scopeID string) ([]domain.Membership, error)

	ListByUser(ctx context.Context, userID string) ([]domain.Membership, error)

	// CountByRole returns how many members hold the given role at the scope.
	CountByRole(ctx context.Context, scopeType domain.ScopeType, scopeID string, role domain.ScopeRole) (int, error)

	// ChangeRoleGuarded updates a member's role but refuses, in a single
	// statement, any change that would leave the scope without an owner.
	// Returns false when the guard blocked the update or the membership is
	// gone.
	ChangeRoleGuarded(ctx context.Context, userID string, scopeType domain.ScopeType, scopeID string, role domain.ScopeRole) (bool, error)

	// DeleteGuarded removes a membership but refuses to remove the last
	// owner of a scope. Returns false when the guard blocked the delete or
	// the membership is gone.
	DeleteGuarded(ctx context.Context, userID string, scopeType domain.ScopeType, scopeID string) (bool, error)
}

type OtpChallenges interface {
	CreateChallenge(ctx context.Context, c domain.OtpChallenge) error

	// GetLatest returns the most recently issued challenge for
	// (email, purpose), consumed or not, so verification can distinguish a
	// spent code from a missing one.
	GetLatest(ctx context.Context, email string, purpose domain.OtpPurpose) (domain.OtpChallenge, error)

	// ConsumeActiveFor marks any unconsumed challenge for (email, purpose) as
	// consumed. Used to supersede a prior code when issuing a new one.
	ConsumeActiveFor(ctx context.Context, email string, purpose domain.OtpPurpose) error

	// DecrementAttempts burns one attempt. Returns false if the challenge
	// was already consumed or had no attempts left.
	DecrementAttempts(ctx context.Context, id string) (bool, error)

	// Consume marks a challenge consumed. Returns false if a concurrent
	// caller got there first.
	Consume(ctx context.Context, id string) (bool, error)

	// DeleteExpiredBefore removes challenges whose expiry is before the
	// cutoff. Returns the number of rows removed.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type RecoveryTokens interface {
	CreateToken(ctx context.Context, t domain.RecoveryToken) error

	GetByTokenHash(ctx context.Context, hash string) (domain.RecoveryToken, error)

	// ConsumeActiveFor marks any unconsumed token for the email as consumed.
	ConsumeActiveFor(ctx context.Context, email string) error

	// Consume marks a token consumed. Returns false if a concurrent caller
	// got there first.
	Consume(ctx context.Context, id string) (bool, error)

	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Invites interface {
	// CreateInvite inserts a pending invite. Returns ErrAlreadyExists if a
	// pending invite for (scope, email) already exists.
	CreateInvite(ctx context.Context, inv domain.Invite) error

	GetInviteByID(ctx context.Context, id string) (domain.Invite, error)

	GetInviteByTokenHash(ctx context.Context, hash string) (domain.Invite, error)

	ListByScope(ctx context.Context, scopeType domain.ScopeType, scopeID string) ([]domain.Invite, error)

	// Resolve moves a pending invite to a terminal status and bumps
	// updated_at. Returns false if the invite was no longer pending.
	Resolve(ctx context.Context, id string, status domain.InviteStatus) (bool, error)

	// ExpireOverdue marks pending invites past their expiry as expired.
	// Returns the number of rows updated.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)

	// DeleteResolvedBefore removes terminal invites last touched before the
	// cutoff. Returns the number of rows removed.
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Sessions interface {
	CreateSession(ctx context.Context, s domain.Session) error

	GetByTokenHash(ctx context.Context, hash string) (domain.Session, error)

	// Revoke marks a single session revoked. Idempotent.
	Revoke(ctx context.Context, id string) error

	// RevokeAllForUser revokes every live session of a user.
	RevokeAllForUser(ctx context.Context, userID string) error

	// RevokeAllForUserExcept revokes every live session of a user except the
	// one named, so a password change keeps the session that made it.
	RevokeAllForUserExcept(ctx context.Context, userID string, keepSessionID string) error

	// DeleteDeadBefore removes sessions that are revoked or expired before
	// the cutoff. Returns the number of rows removed.
	DeleteDeadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
