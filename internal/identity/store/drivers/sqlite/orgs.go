package sqlite

import (
	"context"

	"github.com/crewdeck/crewdeck/internal/identity/domain"
)

type orgsRepo struct {
	db dbtx
}

func (r *orgsRepo) CreateOrg(ctx context.Context, o domain.Organization) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name, created_by, created_at)
		VALUES (?, ?, ?, ?)`,
		o.ID, o.Name, o.CreatedBy, o.CreatedAt,
	)
	return mapConflict(err)
}

func (r *orgsRepo) GetOrgByID(ctx context.Context, id string) (domain.Organization, error) {
	var o domain.Organization
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, created_by, created_at
		FROM organizations WHERE id = ?`, id,
	).Scan(&o.ID, &o.Name, &o.CreatedBy, &o.CreatedAt)
	if err != nil {
		return domain.Organization{}, mapNotFound(err)
	}
	return o, nil
}

func (r *orgsRepo) CreateWorkspace(ctx context.Context, w domain.Workspace) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO workspaces (id, org_id, name, created_by, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		w.ID, w.OrgID, w.Name, w.CreatedBy, w.CreatedAt,
	)
	return mapConflict(err)
}

func (r *orgsRepo) GetWorkspaceByID(ctx context.Context, id string) (domain.Workspace, error) {
	var w domain.Workspace
	err := r.db.QueryRowContext(ctx, `
		SELECT id, org_id, name, created_by, created_at
		FROM workspaces WHERE id = ?`, id,
	).Scan(&w.ID, &w.OrgID, &w.Name, &w.CreatedBy, &w.CreatedAt)
	if err != nil {
		return domain.Workspace{}, mapNotFound(err)
	}
	return w, nil
}

func (r *orgsRepo) ListWorkspacesByOrg(ctx context.Context, orgID string) ([]domain.Workspace, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, org_id, name, created_by, created_at
		FROM workspaces WHERE org_id = ?
		ORDER BY created_at`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Workspace
	for rows.Next() {
		var w domain.Workspace
		if err := rows.Scan(&w.ID, &w.OrgID, &w.Name, &w.CreatedBy, &w.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
