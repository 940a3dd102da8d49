package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a read-through cache over another Directory. Room routing
// hits the directory once per connection, so a short TTL keeps reconnect
// storms off the database without holding membership changes back for long.
type RedisCache struct {
	next   Directory
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps a Directory with a Redis read-through cache
func NewRedisCache(next Directory, client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{next: next, client: client, ttl: ttl}
}

// ClubsOfOrg returns the IDs of every club belonging to the organization.
func (c *RedisCache) ClubsOfOrg(ctx context.Context, orgID string) ([]string, error) {
	key := fmt.Sprintf("dir:org-clubs:%s", orgID)

	if cached, err := c.client.Get(ctx, key).Result(); err == nil {
		var clubs []string
		if err := json.Unmarshal([]byte(cached), &clubs); err == nil {
			return clubs, nil
		}
	}

	clubs, err := c.next.ClubsOfOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(clubs); err == nil {
		// Cache write failures are not fatal; the source answered.
		_ = c.client.Set(ctx, key, data, c.ttl).Err()
	}
	return clubs, nil
}

// IsClubMember reports whether the user administers or plays at the club.
func (c *RedisCache) IsClubMember(ctx context.Context, userID, clubID string) (bool, error) {
	key := fmt.Sprintf("dir:member:%s:%s", clubID, userID)

	if cached, err := c.client.Get(ctx, key).Result(); err == nil {
		return cached == "1", nil
	}

	member, err := c.next.IsClubMember(ctx, userID, clubID)
	if err != nil {
		return false, err
	}

	val := "0"
	if member {
		val = "1"
	}
	_ = c.client.Set(ctx, key, val, c.ttl).Err()
	return member, nil
}
