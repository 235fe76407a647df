package domain

// ScopeType identifies the kind of tenancy unit a membership attaches to.
type ScopeType string

const (
	ScopeOrganization ScopeType = "organization"
	ScopeWorkspace    ScopeType = "workspace"
)

func (t ScopeType) Valid() bool {
	return t == ScopeOrganization || t == ScopeWorkspace
}

// ScopeRole is the closed set of roles a user can hold at a scope.
type ScopeRole string

const (
	RoleOwner  ScopeRole = "owner"
	RoleAdmin  ScopeRole = "admin"
	RoleMember ScopeRole = "member"
)

func (r ScopeRole) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// GlobalRole is held on the user record itself, outside any scope.
type GlobalRole string

const (
	GlobalRoleNone  GlobalRole = "none"
	GlobalRoleAdmin GlobalRole = "admin"
)

// Permission is a closed enumeration. Handing out capabilities via typed
// constants instead of free-form strings means a typo fails to compile
// rather than silently granting nothing.
type Permission string

const (
	PermViewScope        Permission = "scope.view"
	PermManageProjects   Permission = "projects.manage"
	PermInviteMembers    Permission = "members.invite"
	PermRemoveMembers    Permission = "members.remove"
	PermManageRoles      Permission = "roles.manage"
	PermManageScope      Permission = "scope.manage"
	PermCreateWorkspaces Permission = "workspaces.create"
)

// rolePermissions maps each scope role to its capabilities. A workspace role
// carries no organization capabilities and vice versa; the scope the role was
// granted at is the scope these permissions apply to.
var rolePermissions = map[ScopeRole][]Permission{
	RoleOwner: {
		PermViewScope,
		PermManageProjects,
		PermInviteMembers,
		PermRemoveMembers,
		PermManageRoles,
		PermManageScope,
		PermCreateWorkspaces,
	},
	RoleAdmin: {
		PermViewScope,
		PermManageProjects,
		PermInviteMembers,
		PermRemoveMembers,
		PermCreateWorkspaces,
	},
	RoleMember: {
		PermViewScope,
		PermManageProjects,
	},
}

// PermissionsFor returns the permission set granted by a role.
// Unknown roles resolve to an empty set.
func PermissionsFor(role ScopeRole) []Permission {
	perms := rolePermissions[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// RoleGrants reports whether a role includes a permission.
func RoleGrants(role ScopeRole, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
