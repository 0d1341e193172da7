package tenant

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const selectionKeyPrefix = "tenant:selection:"

// RedisSelectionStore persists the last tenant selection per user. No TTL:
// the selection survives sessions and is re-validated against the accessible
// list on every resolve.
type RedisSelectionStore struct {
	client *redis.Client
}

func NewRedisSelectionStore(client *redis.Client) *RedisSelectionStore {
	return &RedisSelectionStore{client: client}
}

func selectionKey(userID int64) string {
	return fmt.Sprintf("%s%d", selectionKeyPrefix, userID)
}

func (s *RedisSelectionStore) Get(ctx context.Context, userID int64) (int64, bool, error) {
	orgID, err := s.client.Get(ctx, selectionKey(userID)).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, false, nil
		}
		return 0, false, err
	}
	return orgID, true, nil
}

func (s *RedisSelectionStore) Set(ctx context.Context, userID, orgID int64) error {
	return s.client.Set(ctx, selectionKey(userID), orgID, 0).Err()
}
