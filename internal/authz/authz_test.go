package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func view(level int, perms ...string) *PermissionsView {
	v := &PermissionsView{
		UserID:         1,
		OrganizationID: 1,
		RoleID:         1,
		HierarchyLevel: level,
		Permissions:    make(map[string]bool, len(perms)),
	}
	for _, p := range perms {
		v.Permissions[p] = true
	}
	return v
}

func superAdmin() *PermissionsView {
	v := view(1)
	v.IsSuperAdmin = true
	return v
}

func TestHasPermission(t *testing.T) {
	v := view(3, PermCustomersView, PermLoansView)

	assert.True(t, HasPermission(v, PermCustomersView))
	assert.True(t, HasPermission(v, PermLoansView))
	assert.False(t, HasPermission(v, PermLoansApprove))
	assert.False(t, HasPermission(v, "loans:nonexistent"))
}

func TestHasPermissionSuperAdminBypassesSet(t *testing.T) {
	sa := superAdmin()
	assert.True(t, HasPermission(sa, PermLoansApprove))
	assert.True(t, HasPermission(sa, PermOrganizationsManage))
}

func TestHasPermissionFailClosed(t *testing.T) {
	assert.False(t, HasPermission(nil, PermCustomersView))

	empty := &PermissionsView{}
	assert.False(t, HasPermission(empty, PermCustomersView))
}

func TestHasMinimumRoleMonotonic(t *testing.T) {
	v := view(3)

	// True at level 3 must stay true for every level >= 3.
	require.True(t, HasMinimumRole(v, 3))
	for level := 3; level <= 10; level++ {
		assert.True(t, HasMinimumRole(v, level), "level %d", level)
	}
	assert.False(t, HasMinimumRole(v, 2))
	assert.False(t, HasMinimumRole(v, 1))
}

func TestHasMinimumRoleSuperAdmin(t *testing.T) {
	assert.True(t, HasMinimumRole(superAdmin(), 1))
	assert.False(t, HasMinimumRole(nil, 99))
}

func TestCanManageUser(t *testing.T) {
	manager := view(3, PermUsersAssignRoles)

	// Equal hierarchy level is denied.
	assert.False(t, CanManageUser(manager, Target{HasRole: true, HierarchyLevel: 3}))
	// Higher authority target is denied.
	assert.False(t, CanManageUser(manager, Target{HasRole: true, HierarchyLevel: 1}))
	// Strictly lower authority target is allowed.
	assert.True(t, CanManageUser(manager, Target{HasRole: true, HierarchyLevel: 5}))
}

func TestCanManageUserRequiresAssignRolesPermission(t *testing.T) {
	v := view(1, PermCustomersView)
	assert.False(t, CanManageUser(v, Target{HasRole: true, HierarchyLevel: 9}))
}

func TestCanManageUserDeniesRolelessTarget(t *testing.T) {
	manager := view(2, PermUsersAssignRoles)
	assert.False(t, CanManageUser(manager, Target{HasRole: false}))
}

func TestCanManageUserSuperAdmin(t *testing.T) {
	sa := superAdmin()

	// Super admin manages everyone, including another super admin at the
	// same hierarchy level.
	assert.True(t, CanManageUser(sa, Target{HasRole: true, HierarchyLevel: 1}))
	assert.True(t, CanManageUser(sa, Target{HasRole: false}))
}

func TestCanManageUserFailClosed(t *testing.T) {
	assert.False(t, CanManageUser(nil, Target{HasRole: true, HierarchyLevel: 9}))
}
