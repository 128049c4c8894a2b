package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linkhub/linkhub/internal/model"
)

const (
	// profileCachePrefix is the Redis key prefix for cached user profiles.
	profileCachePrefix = "user:profile:"
	// DefaultProfileTTL is the time-to-live for cached profiles.
	DefaultProfileTTL = 5 * time.Minute
)

// GetUserProfile retrieves a cached public profile.
// Returns nil, nil on a cache miss or a corrupted entry.
func (c *Cache) GetUserProfile(ctx context.Context, userID string) (*model.PublicUser, error) {
	data, err := c.client.Get(ctx, profileCachePrefix+userID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user profile: %w", err)
	}

	var profile model.PublicUser
	if err := json.Unmarshal(data, &profile); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return &profile, nil
}

// SetUserProfile caches a public profile. Credential material never reaches
// the cache because PublicUser has no hash field.
func (c *Cache) SetUserProfile(ctx context.Context, profile *model.PublicUser) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal user profile: %w", err)
	}

	return c.client.Set(ctx, profileCachePrefix+profile.ID, data, c.profileTTL).Err()
}
