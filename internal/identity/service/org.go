package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/crewdeck/crewdeck/internal/identity/domain"
	"github.com/crewdeck/crewdeck/internal/identity/store"
	"github.com/crewdeck/crewdeck/pkg/idx"
	"github.com/crewdeck/crewdeck/pkg/slogx"
)

// OrgService creates tenancy units and answers "what am I a member of"
// reads. Creation and the creator's owner membership commit together; a
// scope without an owner must never exist, not even briefly.
type OrgService struct {
	Store  store.Store
	Access *AccessService
}

// CreateOrganization creates an organization with the creator as owner.
func (s *OrgService) CreateOrganization(ctx context.Context, creatorID, name string) (domain.Organization, error) {
	log := slogx.FromContext(ctx)

	now := time.Now().UTC()
	org := domain.Organization{
		ID:        idx.New().String(),
		Name:      name,
		CreatedBy: creatorID,
		CreatedAt: now,
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Orgs().CreateOrg(ctx, org); err != nil {
			return err
		}
		return tx.Memberships().CreateMembership(ctx, domain.Membership{
			UserID:    creatorID,
			ScopeType: domain.ScopeOrganization,
			ScopeID:   org.ID,
			Role:      domain.RoleOwner,
			JoinedAt:  now,
		})
	})
	if err != nil {
		log.Error("failed to create organization", slog.Any("error", err))
		return domain.Organization{}, err
	}

	log.Info("organization created",
		slog.String("org_id", org.ID),
		slog.String("created_by", creatorID),
	)
	return org, nil
}

// CreateWorkspace creates a workspace under an organization. The creator
// needs workspace-creation rights at the org and becomes workspace owner;
// org roles grant nothing inside the new workspace beyond that.
func (s *OrgService) CreateWorkspace(ctx context.Context, creatorID, orgID, name string) (domain.Workspace, error) {
	log := slogx.FromContext(ctx)

	// 1. Parent must exist.
	if _, err := s.Store.Orgs().GetOrgByID(ctx, orgID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Workspace{}, ErrNotFound
		}
		return domain.Workspace{}, err
	}

	// 2. Creation right is checked at the organization.
	if err := s.Access.Require(ctx, creatorID, domain.ScopeOrganization, orgID, domain.PermCreateWorkspaces); err != nil {
		return domain.Workspace{}, err
	}

	now := time.Now().UTC()
	ws := domain.Workspace{
		ID:        idx.New().String(),
		OrgID:     orgID,
		Name:      name,
		CreatedBy: creatorID,
		CreatedAt: now,
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Orgs().CreateWorkspace(ctx, ws); err != nil {
			return err
		}
		return tx.Memberships().CreateMembership(ctx, domain.Membership{
			UserID:    creatorID,
			ScopeType: domain.ScopeWorkspace,
			ScopeID:   ws.ID,
			Role:      domain.RoleOwner,
			JoinedAt:  now,
		})
	})
	if err != nil {
		log.Error("failed to create workspace", slog.Any("error", err))
		return domain.Workspace{}, err
	}

	log.Info("workspace created",
		slog.String("workspace_id", ws.ID),
		slog.String("org_id", orgID),
	)
	return ws, nil
}

// ListUserOrganizations returns the organizations the user belongs to.
func (s *OrgService) ListUserOrganizations(ctx context.Context, userID string) ([]domain.Organization, error) {
	memberships, err := s.Store.Memberships().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var out []domain.Organization
	for _, m := range memberships {
		if m.ScopeType != domain.ScopeOrganization {
			continue
		}
		org, err := s.Store.Orgs().GetOrgByID(ctx, m.ScopeID)
		if err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	return out, nil
}

// ListUserWorkspaces returns the workspaces the user belongs to directly.
func (s *OrgService) ListUserWorkspaces(ctx context.Context, userID string) ([]domain.Workspace, error) {
	memberships, err := s.Store.Memberships().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var out []domain.Workspace
	for _, m := range memberships {
		if m.ScopeType != domain.ScopeWorkspace {
			continue
		}
		ws, err := s.Store.Orgs().GetWorkspaceByID(ctx, m.ScopeID)
		if err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, nil
}

// ListScopeMembers returns the memberships at a scope, visible to anyone
// who can view the scope.
func (s *OrgService) ListScopeMembers(
	ctx context.Context,
	actorID string,
	scopeType domain.ScopeType,
	scopeID string,
) ([]domain.Membership, error) {
	if err := s.Access.Require(ctx, actorID, scopeType, scopeID, domain.PermViewScope); err != nil {
		return nil, err
	}
	return s.Store.Memberships().ListByScope(ctx, scopeType, scopeID)
}
