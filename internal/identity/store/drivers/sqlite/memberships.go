package sqlite

import (
	"context"
	"database/sql"

	"github.com/crewdeck/crewdeck/internal/identity/domain"
)

type membershipsRepo struct {
	db dbtx
}

func (r *membershipsRepo) CreateMembership(ctx context.Context, m domain.Membership) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO memberships (user_id, scope_type, scope_id, role, joined_at)
		VALUES (?, ?, ?, ?, ?)`,
		m.UserID, string(m.ScopeType), m.ScopeID, string(m.Role), m.JoinedAt,
	)
	return mapConflict(err)
}

func (r *membershipsRepo) GetMembership(
	ctx context.Context,
	userID string,
	scopeType domain.ScopeType,
	scopeID string,
) (domain.Membership, error) {
	var m domain.Membership
	var st, role string
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, scope_type, scope_id, role, joined_at
		FROM memberships
		WHERE user_id = ? AND scope_type = ? AND scope_id = ?`,
		userID, string(scopeType), scopeID,
	).Scan(&m.UserID, &st, &m.ScopeID, &role, &m.JoinedAt)
	if err != nil {
		return domain.Membership{}, mapNotFound(err)
	}
	m.ScopeType = domain.ScopeType(st)
	m.Role = domain.ScopeRole(role)
	return m, nil
}

func (r *membershipsRepo) ListByScope(
	ctx context.Context,
	scopeType domain.ScopeType,
	scopeID string,
) ([]domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, scope_type, scope_id, role, joined_at
		FROM memberships
		WHERE scope_type = ? AND scope_id = ?
		ORDER BY joined_at`,
		string(scopeType), scopeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemberships(rows)
}

func (r *membershipsRepo) ListByUser(ctx context.Context, userID string) ([]domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, scope_type, scope_id, role, joined_at
		FROM memberships
		WHERE user_id = ?
		ORDER BY joined_at`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemberships(rows)
}

func (r *membershipsRepo) CountByRole(
	ctx context.Context,
	scopeType domain.ScopeType,
	scopeID string,
	role domain.ScopeRole,
) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM memberships
		WHERE scope_type = ? AND scope_id = ? AND role = ?`,
		string(scopeType), scopeID, string(role),
	).Scan(&n)
	return n, err
}

// ChangeRoleGuarded refuses, in a single statement, any change that would
// demote the last owner of a scope. The owner-count subquery runs against
// the same snapshot as the update, so two racing demotions cannot both pass.
func (r *membershipsRepo) ChangeRoleGuarded(
	ctx context.Context,
	userID string,
	scopeType domain.ScopeType,
	scopeID string,
	role domain.ScopeRole,
) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE memberships
		SET role = ?
		WHERE user_id = ? AND scope_type = ? AND scope_id = ?
		  AND NOT (
		    role = 'owner' AND ? != 'owner' AND
		    (SELECT COUNT(*) FROM memberships m2
		     WHERE m2.scope_type = memberships.scope_type
		       AND m2.scope_id = memberships.scope_id
		       AND m2.role = 'owner') <= 1
		  )`,
		string(role), userID, string(scopeType), scopeID, string(role),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteGuarded refuses to remove the last owner of a scope.
func (r *membershipsRepo) DeleteGuarded(
	ctx context.Context,
	userID string,
	scopeType domain.ScopeType,
	scopeID string,
) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM memberships
		WHERE user_id = ? AND scope_type = ? AND scope_id = ?
		  AND NOT (
		    role = 'owner' AND
		    (SELECT COUNT(*) FROM memberships m2
		     WHERE m2.scope_type = memberships.scope_type
		       AND m2.scope_id = memberships.scope_id
		       AND m2.role = 'owner') <= 1
		  )`,
		userID, string(scopeType), scopeID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanMemberships(rows *sql.Rows) ([]domain.Membership, error) {
	var out []domain.Membership
	for rows.Next() {
		var m domain.Membership
		var st, role string
		if err := rows.Scan(&m.UserID, &st, &m.ScopeID, &role, &m.JoinedAt); err != nil {
			return nil, err
		}
		m.ScopeType = domain.ScopeType(st)
		m.Role = domain.ScopeRole(role)
		out = append(out, m)
	}
	return out, rows.Err()
}
