package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoleGrants(t *testing.T) {
	require.True(t, RoleGrants(RoleOwner, PermManageRoles))
	require.True(t, RoleGrants(RoleOwner, PermManageScope))
	require.True(t, RoleGrants(RoleAdmin, PermInviteMembers))
	require.True(t, RoleGrants(RoleAdmin, PermRemoveMembers))
	require.True(t, RoleGrants(RoleMember, PermViewScope))
	require.True(t, RoleGrants(RoleMember, PermManageProjects))

	require.False(t, RoleGrants(RoleAdmin, PermManageRoles))
	require.False(t, RoleGrants(RoleAdmin, PermManageScope))
	require.False(t, RoleGrants(RoleMember, PermInviteMembers))
	require.False(t, RoleGrants(RoleMember, PermRemoveMembers))
	require.False(t, RoleGrants(ScopeRole("ghost"), PermViewScope))
}

func TestPermissionsForCopies(t *testing.T) {
	perms := PermissionsFor(RoleMember)
	require.Len(t, perms, 2)

	perms[0] = Permission("mutated")
	require.Equal(t, PermViewScope, PermissionsFor(RoleMember)[0])
}

func TestScopeRoleValid(t *testing.T) {
	require.True(t, RoleOwner.Valid())
	require.True(t, RoleAdmin.Valid())
	require.True(t, RoleMember.Valid())
	require.False(t, ScopeRole("superuser").Valid())
	require.False(t, ScopeRole("").Valid())
}

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "ada@example.com", NormalizeEmail("  Ada@Example.COM "))
}
