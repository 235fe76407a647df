package service

import (
	"context"
	"testing"
	"time"

	"github.com/crewdeck/crewdeck/internal/identity/domain"
	"github.com/crewdeck/crewdeck/pkg/cryptox"
	"github.com/crewdeck/crewdeck/pkg/idx"

	"github.com/stretchr/testify/require"
)

// orgWithMembers sets up an org owned by the first user with the rest as
// plain members.
func orgWithMembers(t *testing.T, e *env, owner domain.User, members ...domain.User) domain.Organization {
	t.Helper()
	ctx := context.Background()

	org, err := e.orgs.CreateOrganization(ctx, owner.ID, "Acme")
	require.NoError(t, err)

	for _, m := range members {
		require.NoError(t, e.store.Memberships().CreateMembership(ctx, domain.Membership{
			UserID:    m.ID,
			ScopeType: domain.ScopeOrganization,
			ScopeID:   org.ID,
			Role:      domain.RoleMember,
			JoinedAt:  time.Now().UTC(),
		}))
	}
	return org
}

func TestRoleAtAndEffectivePermissions(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	alice := e.register(t, "alice@example.com", "Alice", "correct-horse")
	bob := e.register(t, "bob@example.com", "Bob", "correct-horse")
	carol := e.register(t, "carol@example.com", "Carol", "correct-horse")
	org := orgWithMembers(t, e, alice, bob)

	role, err := e.access.RoleAt(ctx, alice.ID, domain.ScopeOrganization, org.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleOwner, role)

	role, err = e.access.RoleAt(ctx, bob.ID, domain.ScopeOrganization, org.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleMember, role)

	_, err = e.access.RoleAt(ctx, carol.ID, domain.ScopeOrganization, org.ID)
	require.ErrorIs(t, err, ErrNotFound)

	perms, err := e.access.EffectivePermissions(ctx, bob.ID, domain.ScopeOrganization, org.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []domain.Permission{domain.PermViewScope, domain.PermManageProjects}, perms)

	perms, err = e.access.EffectivePermissions(ctx, carol.ID, domain.ScopeOrganization, org.ID)
	require.NoError(t, err)
	require.Empty(t, perms)
}

func TestRequire(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	alice := e.register(t, "alice@example.com", "Alice", "correct-horse")
	bob := e.register(t, "bob@example.com", "Bob", "correct-horse")
	carol := e.register(t, "carol@example.com", "Carol", "correct-horse")
	org := orgWithMembers(t, e, alice, bob)

	t.Run("owner passes", func(t *testing.T) {
		require.NoError(t, e.access.Require(ctx, alice.ID, domain.ScopeOrganization, org.ID, domain.PermManageRoles))
	})

	t.Run("member lacks management permissions", func(t *testing.T) {
		err := e.access.Require(ctx, bob.ID, domain.ScopeOrganization, org.ID, domain.PermManageRoles)
		require.ErrorIs(t, err, ErrForbidden)
		err = e.access.Require(ctx, bob.ID, domain.ScopeOrganization, org.ID, domain.PermInviteMembers)
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("non-member is forbidden", func(t *testing.T) {
		err := e.access.Require(ctx, carol.ID, domain.ScopeOrganization, org.ID, domain.PermViewScope)
		require.ErrorIs(t, err, ErrForbidden)
	})
}

func TestGlobalAdminBypassesScopeChecks(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	alice := e.register(t, "alice@example.com", "Alice", "correct-horse")
	org := orgWithMembers(t, e, alice)

	hash, err := cryptox.HashPassword("correct-horse")
	require.NoError(t, err)
	now := time.Now().UTC()
	admin := domain.User{
		ID:           idx.New().String(),
		Email:        "root@example.com",
		Name:         "Root",
		PasswordHash: hash,
		GlobalRole:   domain.GlobalRoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, e.store.Users().CreateUser(ctx, admin))

	// No membership anywhere, yet every check passes.
	require.NoError(t, e.access.Require(ctx, admin.ID, domain.ScopeOrganization, org.ID, domain.PermManageScope))
}

func TestChangeRole(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	alice := e.register(t, "alice@example.com", "Alice", "correct-horse")
	bob := e.register(t, "bob@example.com", "Bob", "correct-horse")
	org := orgWithMembers(t, e, alice, bob)

	t.Run("rejects unknown roles", func(t *testing.T) {
		err := e.access.ChangeRole(ctx, alice.ID, bob.ID, domain.ScopeOrganization, org.ID, domain.ScopeRole("superuser"))
		require.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("member cannot change roles", func(t *testing.T) {
		err := e.access.ChangeRole(ctx, bob.ID, bob.ID, domain.ScopeOrganization, org.ID, domain.RoleAdmin)
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown target", func(t *testing.T) {
		err := e.access.ChangeRole(ctx, alice.ID, idx.New().String(), domain.ScopeOrganization, org.ID, domain.RoleAdmin)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("sole owner cannot demote themselves", func(t *testing.T) {
		err := e.access.ChangeRole(ctx, alice.ID, alice.ID, domain.ScopeOrganization, org.ID, domain.RoleMember)
		require.ErrorIs(t, err, ErrSelfDemotionBlocked)
	})

	t.Run("demotion works once another owner exists", func(t *testing.T) {
		require.NoError(t, e.access.ChangeRole(ctx, alice.ID, bob.ID, domain.ScopeOrganization, org.ID, domain.RoleOwner))
		require.NoError(t, e.access.ChangeRole(ctx, alice.ID, alice.ID, domain.ScopeOrganization, org.ID, domain.RoleMember))

		role, err := e.access.RoleAt(ctx, alice.ID, domain.ScopeOrganization, org.ID)
		require.NoError(t, err)
		require.Equal(t, domain.RoleMember, role)
	})
}

func TestRemoveMember(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	alice := e.register(t, "alice@example.com", "Alice", "correct-horse")
	bob := e.register(t, "bob@example.com", "Bob", "correct-horse")
	carol := e.register(t, "carol@example.com", "Carol", "correct-horse")
	org := orgWithMembers(t, e, alice, bob, carol)

	t.Run("member cannot remove others", func(t *testing.T) {
		err := e.access.RemoveMember(ctx, bob.ID, carol.ID, domain.ScopeOrganization, org.ID)
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("member may leave", func(t *testing.T) {
		require.NoError(t, e.access.RemoveMember(ctx, carol.ID, carol.ID, domain.ScopeOrganization, org.ID))
		_, err := e.access.RoleAt(ctx, carol.ID, domain.ScopeOrganization, org.ID)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("owner removes a member", func(t *testing.T) {
		require.NoError(t, e.access.RemoveMember(ctx, alice.ID, bob.ID, domain.ScopeOrganization, org.ID))
	})

	t.Run("sole owner cannot leave", func(t *testing.T) {
		err := e.access.RemoveMember(ctx, alice.ID, alice.ID, domain.ScopeOrganization, org.ID)
		require.ErrorIs(t, err, ErrSelfDemotionBlocked)
	})
}

func TestWorkspaceRolesAreIndependent(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	alice := e.register(t, "alice@example.com", "Alice", "correct-horse")
	bob := e.register(t, "bob@example.com", "Bob", "correct-horse")
	org := orgWithMembers(t, e, alice, bob)

	ws, err := e.orgs.CreateWorkspace(ctx, alice.ID, org.ID, "Platform")
	require.NoError(t, err)

	t.Run("creator owns the workspace", func(t *testing.T) {
		role, err := e.access.RoleAt(ctx, alice.ID, domain.ScopeWorkspace, ws.ID)
		require.NoError(t, err)
		require.Equal(t, domain.RoleOwner, role)
	})

	t.Run("org membership grants nothing inside the workspace", func(t *testing.T) {
		_, err := e.access.RoleAt(ctx, bob.ID, domain.ScopeWorkspace, ws.ID)
		require.ErrorIs(t, err, ErrNotFound)

		err = e.access.Require(ctx, bob.ID, domain.ScopeWorkspace, ws.ID, domain.PermViewScope)
		require.ErrorIs(t, err, ErrForbidden)
	})
}
