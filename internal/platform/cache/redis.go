package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// New creates a new Redis client.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping: %w", err)
	}

	return client, nil
}

// OnceGuard records keys that may be used exactly once, e.g. the jti of a
// password reset token.
type OnceGuard struct {
	client *redis.Client
	prefix string
}

// NewOnceGuard builds an OnceGuard storing keys under prefix.
func NewOnceGuard(client *redis.Client, prefix string) *OnceGuard {
	return &OnceGuard{client: client, prefix: prefix}
}

// Claim marks key as used for ttl. It returns false when the key was
// already claimed.
func (g *OnceGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Second
	}
	ok, err := g.client.SetNX(ctx, g.prefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("platform/cache: claim: %w", err)
	}
	return ok, nil
}
