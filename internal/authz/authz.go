// Package authz holds the pure authorization checks. Everything here is a
// decision over already-fetched data: no I/O, and absence of data always
// denies (fail-closed).
package authz

// PermissionsView is the derived picture of what one user can do inside one
// organization. It is recomputed from the active role assignment on demand
// and never stored, so there is no second copy to keep in sync.
type PermissionsView struct {
	UserID         int64           `json:"user_id"`
	OrganizationID int64           `json:"organization_id"`
	RoleID         int64           `json:"role_id"`
	RoleName       string          `json:"role_name"`
	HierarchyLevel int             `json:"hierarchy_level"`
	Permissions    map[string]bool `json:"permissions"`
	IsSuperAdmin   bool            `json:"is_super_admin"`
}

// Target describes the user being acted on in a management check. HasRole is
// false when the user carries no active assignment in the organization.
type Target struct {
	HasRole        bool
	HierarchyLevel int
}

// HasPermission reports whether the view grants the named permission.
// A nil view denies.
func HasPermission(view *PermissionsView, permission string) bool {
	if view == nil {
		return false
	}
	if view.IsSuperAdmin {
		return true
	}
	return view.Permissions[permission]
}

// HasMinimumRole reports whether the view's role is at least as authoritative
// as the required hierarchy level. Lower numeric level means higher
// authority, so level 1 satisfies a requirement of 3.
func HasMinimumRole(view *PermissionsView, requiredLevel int) bool {
	if view == nil {
		return false
	}
	if view.IsSuperAdmin {
		return true
	}
	return view.HierarchyLevel <= requiredLevel
}

// CanManageUser decides whether the acting user may manage (assign or remove
// roles of) the target user. Super admins manage everyone, including other
// super admins. Otherwise the actor needs users:assign_roles and strictly
// more authority than the target; a target without a role cannot be reasoned
// about and is denied.
func CanManageUser(acting *PermissionsView, target Target) bool {
	if acting == nil {
		return false
	}
	if acting.IsSuperAdmin {
		return true
	}
	if !HasPermission(acting, PermUsersAssignRoles) {
		return false
	}
	if !target.HasRole {
		return false
	}
	if target.HierarchyLevel <= acting.HierarchyLevel {
		return false
	}
	return true
}
