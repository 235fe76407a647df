package service

import (
	"context"
	"testing"

	"github.com/crewdeck/crewdeck/internal/identity/domain"

	"github.com/stretchr/testify/require"
)

func TestCreateOrganizationGrantsOwner(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	alice := e.register(t, "alice@example.com", "Alice", "correct-horse")

	org, err := e.orgs.CreateOrganization(ctx, alice.ID, "Acme")
	require.NoError(t, err)

	role, err := e.access.RoleAt(ctx, alice.ID, domain.ScopeOrganization, org.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleOwner, role)
}

func TestCreateWorkspace(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	alice := e.register(t, "alice@example.com", "Alice", "correct-horse")
	bob := e.register(t, "bob@example.com", "Bob", "correct-horse")
	org := orgWithMembers(t, e, alice, bob)

	t.Run("plain members cannot create workspaces", func(t *testing.T) {
		_, err := e.orgs.CreateWorkspace(ctx, bob.ID, org.ID, "Platform")
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown parent org", func(t *testing.T) {
		_, err := e.orgs.CreateWorkspace(ctx, alice.ID, "missing", "Platform")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("creator becomes workspace owner", func(t *testing.T) {
		ws, err := e.orgs.CreateWorkspace(ctx, alice.ID, org.ID, "Platform")
		require.NoError(t, err)
		require.Equal(t, org.ID, ws.OrgID)

		role, err := e.access.RoleAt(ctx, alice.ID, domain.ScopeWorkspace, ws.ID)
		require.NoError(t, err)
		require.Equal(t, domain.RoleOwner, role)
	})
}

func TestListUserScopes(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	alice := e.register(t, "alice@example.com", "Alice", "correct-horse")
	bob := e.register(t, "bob@example.com", "Bob", "correct-horse")

	acme, err := e.orgs.CreateOrganization(ctx, alice.ID, "Acme")
	require.NoError(t, err)
	_, err = e.orgs.CreateOrganization(ctx, bob.ID, "Globex")
	require.NoError(t, err)

	ws, err := e.orgs.CreateWorkspace(ctx, alice.ID, acme.ID, "Platform")
	require.NoError(t, err)

	orgs, err := e.orgs.ListUserOrganizations(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	require.Equal(t, acme.ID, orgs[0].ID)

	workspaces, err := e.orgs.ListUserWorkspaces(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, workspaces, 1)
	require.Equal(t, ws.ID, workspaces[0].ID)

	t.Run("scope member listing honors view permission", func(t *testing.T) {
		members, err := e.orgs.ListScopeMembers(ctx, alice.ID, domain.ScopeOrganization, acme.ID)
		require.NoError(t, err)
		require.Len(t, members, 1)

		_, err = e.orgs.ListScopeMembers(ctx, bob.ID, domain.ScopeOrganization, acme.ID)
		require.ErrorIs(t, err, ErrForbidden)
	})
}
