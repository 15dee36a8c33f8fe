package cache

import (
	"context"
	"time"
)

const (
	UserKeyPrefix = "user:"
	UserTTL       = 5 * time.Minute
)

func UserKey(userID string) string {
	return UserKeyPrefix + userID
}

func (c *Cache) InvalidateUser(ctx context.Context, userID string) {
	c.Invalidate(ctx, UserKey(userID))
}
