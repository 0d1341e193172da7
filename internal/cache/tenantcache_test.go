package cache

import (
	"context"
	"testing"

	"lendbook/internal/authz"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestTenantCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewTenantCache(newTestClient(t))

	_, ok, err := c.Get(ctx, 1, "customers:list")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, 1, "customers:list", []byte(`[{"id":1}]`)))

	val, ok, err := c.Get(ctx, 1, "customers:list")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte(`[{"id":1}]`), val)
}

func TestInvalidateTenantRemovesOnlyThatTenant(t *testing.T) {
	ctx := context.Background()
	c := NewTenantCache(newTestClient(t))

	require.NoError(t, c.Set(ctx, 1, "customers:list", []byte("a")))
	require.NoError(t, c.Set(ctx, 1, "loans:list", []byte("b")))
	require.NoError(t, c.Set(ctx, 2, "customers:list", []byte("c")))

	require.NoError(t, c.InvalidateTenant(ctx, 1))

	_, ok, err := c.Get(ctx, 1, "customers:list")
	require.NoError(t, err)
	assert.False(t, ok, "tenant 1 customers should be gone")

	_, ok, err = c.Get(ctx, 1, "loans:list")
	require.NoError(t, err)
	assert.False(t, ok, "tenant 1 loans should be gone")

	val, ok, err := c.Get(ctx, 2, "customers:list")
	require.NoError(t, err)
	require.True(t, ok, "tenant 2 must be untouched")
	assert.Equal(t, []byte("c"), val)
}

func TestPermissionsCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewPermissionsCache(newTestClient(t))

	got, err := c.Get(ctx, 7, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	view := &authz.PermissionsView{
		UserID:         7,
		OrganizationID: 1,
		RoleID:         3,
		RoleName:       "manager",
		HierarchyLevel: 3,
		Permissions:    map[string]bool{authz.PermCustomersView: true},
	}
	require.NoError(t, c.Set(ctx, view))

	got, err = c.Get(ctx, 7, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, view.RoleName, got.RoleName)
	assert.True(t, got.Permissions[authz.PermCustomersView])
}

func TestPermissionsCacheInvalidateUsers(t *testing.T) {
	ctx := context.Background()
	c := NewPermissionsCache(newTestClient(t))

	for _, uid := range []int64{7, 8} {
		require.NoError(t, c.Set(ctx, &authz.PermissionsView{
			UserID:         uid,
			OrganizationID: 1,
			RoleID:         3,
			Permissions:    map[string]bool{},
		}))
	}
	// Same user in a different org must survive.
	require.NoError(t, c.Set(ctx, &authz.PermissionsView{
		UserID:         7,
		OrganizationID: 2,
		RoleID:         5,
		Permissions:    map[string]bool{},
	}))

	require.NoError(t, c.InvalidateUsers(ctx, 1, []int64{7, 8}))

	got, err := c.Get(ctx, 7, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = c.Get(ctx, 8, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = c.Get(ctx, 7, 2)
	require.NoError(t, err)
	assert.NotNil(t, got)
}
