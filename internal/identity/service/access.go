package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/crewdeck/crewdeck/internal/identity/domain"
	"github.com/crewdeck/crewdeck/internal/identity/store"
	"github.com/crewdeck/crewdeck/pkg/slogx"
)

// AccessService answers "who may do what" questions over the membership
// graph and applies role changes. Workspace roles are independent of
// organization roles; holding org owner grants nothing inside a workspace.
type AccessService struct {
	Store store.Store
}

// RoleAt returns the role a user holds at a scope, or ErrNotFound when the
// user is not a member.
func (s *AccessService) RoleAt(
	ctx context.Context,
	userID string,
	scopeType domain.ScopeType,
	scopeID string,
) (domain.ScopeRole, error) {
	m, err := s.Store.Memberships().GetMembership(ctx, userID, scopeType, scopeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return m.Role, nil
}

// EffectivePermissions returns the permission set a user holds at a scope.
// Non-members get an empty set, not an error.
func (s *AccessService) EffectivePermissions(
	ctx context.Context,
	userID string,
	scopeType domain.ScopeType,
	scopeID string,
) ([]domain.Permission, error) {
	role, err := s.RoleAt(ctx, userID, scopeType, scopeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []domain.Permission{}, nil
		}
		return nil, err
	}
	return domain.PermissionsFor(role), nil
}

// Require fails with ErrForbidden unless the user holds the permission at
// the scope. Global admins pass at any scope.
func (s *AccessService) Require(
	ctx context.Context,
	userID string,
	scopeType domain.ScopeType,
	scopeID string,
	perm domain.Permission,
) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrForbidden
		}
		return err
	}
	if user.GlobalRole == domain.GlobalRoleAdmin {
		return nil
	}

	role, err := s.RoleAt(ctx, userID, scopeType, scopeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrForbidden
		}
		return err
	}
	if !domain.RoleGrants(role, perm) {
		return ErrForbidden
	}
	return nil
}

// ChangeRole moves a member to a new role at a scope. The statement that
// applies the change refuses to demote the last owner, so a scope can never
// end up ownerless, including when the actor demotes themselves.
func (s *AccessService) ChangeRole(
	ctx context.Context,
	actorID string,
	targetID string,
	scopeType domain.ScopeType,
	scopeID string,
	newRole domain.ScopeRole,
) error {
	log := slogx.FromContext(ctx)

	// 1. Closed enum; anything else is rejected outright.
	if !newRole.Valid() {
		return ErrInvalidRole
	}

	// 2. Actor needs role management at the scope.
	if err := s.Require(ctx, actorID, scopeType, scopeID, domain.PermManageRoles); err != nil {
		return err
	}

	// 3. Target must be a member.
	current, err := s.Store.Memberships().GetMembership(ctx, targetID, scopeType, scopeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if current.Role == newRole {
		return nil
	}

	// 4. Apply guarded. A blocked update means the target is the sole owner.
	ok, err := s.Store.Memberships().ChangeRoleGuarded(ctx, targetID, scopeType, scopeID, newRole)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSelfDemotionBlocked
	}

	log.Info("role changed",
		slog.String("target_id", targetID),
		slog.String("scope_type", string(scopeType)),
		slog.String("scope_id", scopeID),
		slog.String("role", string(newRole)),
	)
	return nil
}

// RemoveMember drops a membership. Members may remove themselves (leave);
// removing anyone else needs PermRemoveMembers. The last owner cannot be
// removed either way.
func (s *AccessService) RemoveMember(
	ctx context.Context,
	actorID string,
	targetID string,
	scopeType domain.ScopeType,
	scopeID string,
) error {
	log := slogx.FromContext(ctx)

	if actorID != targetID {
		if err := s.Require(ctx, actorID, scopeType, scopeID, domain.PermRemoveMembers); err != nil {
			return err
		}
	}

	if _, err := s.Store.Memberships().GetMembership(ctx, targetID, scopeType, scopeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	ok, err := s.Store.Memberships().DeleteGuarded(ctx, targetID, scopeType, scopeID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSelfDemotionBlocked
	}

	log.Info("member removed",
		slog.String("target_id", targetID),
		slog.String("scope_type", string(scopeType)),
		slog.String("scope_id", scopeID),
	)
	return nil
}
