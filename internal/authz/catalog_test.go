package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsKnownPermission(t *testing.T) {
	assert.True(t, IsKnownPermission(PermUsersAssignRoles))
	assert.True(t, IsKnownPermission(PermLoansDisburse))
	assert.False(t, IsKnownPermission("loans:dsiburse")) // typo must not pass
	assert.False(t, IsKnownPermission(""))
}

func TestValidateCatalog(t *testing.T) {
	require.NoError(t, ValidateCatalog([]string{PermCustomersView, PermRolesManage}))
	require.NoError(t, ValidateCatalog(nil))

	err := ValidateCatalog([]string{PermCustomersView, "customers:viewz"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "customers:viewz")
}
