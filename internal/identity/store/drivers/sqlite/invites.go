package sqlite

import (
	"context"
	"time"

	"github.com/crewdeck/crewdeck/internal/identity/domain"
)

type invitesRepo struct {
	db dbtx
}

func (r *invitesRepo) CreateInvite(ctx context.Context, inv domain.Invite) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invites (id, scope_type, scope_id, email, role, token_hash, status, invited_by, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, string(inv.ScopeType), inv.ScopeID, inv.Email, string(inv.Role),
		inv.TokenHash, string(inv.Status), inv.InvitedBy, inv.ExpiresAt, inv.CreatedAt, inv.UpdatedAt,
	)
	return mapConflict(err)
}

func (r *invitesRepo) GetInviteByID(ctx context.Context, id string) (domain.Invite, error) {
	return scanInvite(r.db.QueryRowContext(ctx, `
		SELECT id, scope_type, scope_id, email, role, token_hash, status, invited_by, expires_at, created_at, updated_at
		FROM invites WHERE id = ?`, id))
}

func (r *invitesRepo) GetInviteByTokenHash(ctx context.Context, hash string) (domain.Invite, error) {
	return scanInvite(r.db.QueryRowContext(ctx, `
		SELECT id, scope_type, scope_id, email, role, token_hash, status, invited_by, expires_at, created_at, updated_at
		FROM invites WHERE token_hash = ?`, hash))
}

func (r *invitesRepo) ListByScope(
	ctx context.Context,
	scopeType domain.ScopeType,
	scopeID string,
) ([]domain.Invite, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, scope_type, scope_id, email, role, token_hash, status, invited_by, expires_at, created_at, updated_at
		FROM invites
		WHERE scope_type = ? AND scope_id = ?
		ORDER BY created_at DESC`,
		string(scopeType), scopeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// Resolve moves a pending invite to a terminal status. The pending guard in
// the WHERE clause means exactly one of two racing accepts wins.
func (r *invitesRepo) Resolve(ctx context.Context, id string, status domain.InviteStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invites SET status = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *invitesRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invites SET status = 'expired', updated_at = ?
		WHERE status = 'pending' AND expires_at < ?`,
		now, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *invitesRepo) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM invites
		WHERE status != 'pending' AND updated_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanInvite(row rowScanner) (domain.Invite, error) {
	var inv domain.Invite
	var scopeType, role, status string
	err := row.Scan(
		&inv.ID, &scopeType, &inv.ScopeID, &inv.Email, &role,
		&inv.TokenHash, &status, &inv.InvitedBy, &inv.ExpiresAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}
	inv.ScopeType = domain.ScopeType(scopeType)
	inv.Role = domain.ScopeRole(role)
	inv.Status = domain.InviteStatus(status)
	return inv, nil
}
