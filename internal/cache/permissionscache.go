package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lendbook/internal/authz"

	"github.com/redis/go-redis/v9"
)

const (
	permissionsKeyPrefix = "permissions:view:"
	permissionsViewTTL   = 2 * time.Minute
)

// PermissionsCache holds computed permission views per (user, organization).
// The TTL is short because the view is cheap to recompute; explicit
// invalidation after role or assignment mutations keeps edits visible
// immediately without flushing anything else.
type PermissionsCache struct {
	client *redis.Client
}

func NewPermissionsCache(client *redis.Client) *PermissionsCache {
	return &PermissionsCache{client: client}
}

func viewKey(userID, orgID int64) string {
	return fmt.Sprintf("%s%d:%d", permissionsKeyPrefix, orgID, userID)
}

func (c *PermissionsCache) Get(ctx context.Context, userID, orgID int64) (*authz.PermissionsView, error) {
	val, err := c.client.Get(ctx, viewKey(userID, orgID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var view authz.PermissionsView
	if err := json.Unmarshal(val, &view); err != nil {
		// A corrupt entry is treated as a miss; the caller recomputes.
		return nil, nil
	}
	return &view, nil
}

func (c *PermissionsCache) Set(ctx context.Context, view *authz.PermissionsView) error {
	payload, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, viewKey(view.UserID, view.OrganizationID), payload, permissionsViewTTL).Err()
}

// Invalidate drops the cached view for one (user, organization) pair.
func (c *PermissionsCache) Invalidate(ctx context.Context, userID, orgID int64) error {
	return c.client.Del(ctx, viewKey(userID, orgID)).Err()
}

// InvalidateUsers drops cached views for a set of users within one
// organization, used after a role-permission update touches everyone holding
// that role.
func (c *PermissionsCache) InvalidateUsers(ctx context.Context, orgID int64, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, viewKey(id, orgID))
	}
	return c.client.Del(ctx, keys...).Err()
}
