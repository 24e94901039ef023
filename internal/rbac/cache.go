package rbac

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// PermissionCache memoises per-user role permission unions in Redis. Entries
// are keyed by a per-user version counter; invalidation bumps the counter so
// every tenant scope of that user misses at once. A nil cache is a no-op.
type PermissionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPermissionCache instantiates the cache helper.
func NewPermissionCache(client *redis.Client, ttl time.Duration) *PermissionCache {
	return &PermissionCache{client: client, ttl: ttl}
}

// Get returns the cached permission union for (user, company) when present.
func (c *PermissionCache) Get(ctx context.Context, userID int64, companyID *int64) ([]string, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	key, err := c.key(ctx, userID, companyID)
	if err != nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var perms []string
	if err := json.Unmarshal(raw, &perms); err != nil {
		return nil, false
	}
	return perms, true
}

// Put stores the permission union for (user, company).
func (c *PermissionCache) Put(ctx context.Context, userID int64, companyID *int64, perms []string) {
	if c == nil || c.client == nil {
		return
	}
	key, err := c.key(ctx, userID, companyID)
	if err != nil {
		return
	}
	raw, err := json.Marshal(perms)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Invalidate drops every cached scope of the user by bumping their version.
func (c *PermissionCache) Invalidate(ctx context.Context, userID int64) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Incr(ctx, c.versionKey(userID)).Err()
}

func (c *PermissionCache) key(ctx context.Context, userID int64, companyID *int64) (string, error) {
	ver, err := c.client.Get(ctx, c.versionKey(userID)).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	scope := "all"
	if companyID != nil {
		scope = strconv.FormatInt(*companyID, 10)
	}
	return fmt.Sprintf("rbac:perms:%d:%s:%d", userID, scope, ver), nil
}

func (c *PermissionCache) versionKey(userID int64) string {
	return fmt.Sprintf("rbac:perms:ver:%d", userID)
}
