package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CheckoutMarkerTTL is how long a completed checkout session is remembered.
const CheckoutMarkerTTL = 24 * time.Hour

// RedisCache wraps a Redis client with the keys the API uses.
type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache creates a RedisCache around an existing client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{Client: client}
}

// NewClient parses a redis:// URL and pings the server.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (c *RedisCache) CheckoutMarkerKey(restaurantID uuid.UUID, sessionID string) string {
	return "checkout:" + restaurantID.String() + ":" + sessionID
}

func (c *RedisCache) SnapshotKey(restaurantID uuid.UUID, section string) string {
	return "chat:snapshot:" + restaurantID.String() + ":" + section
}

// ClaimCheckout sets the session marker if it is not already present.
// It returns false when the session was claimed before.
func (c *RedisCache) ClaimCheckout(ctx context.Context, restaurantID uuid.UUID, sessionID string) (bool, error) {
	return c.Client.SetNX(ctx, c.CheckoutMarkerKey(restaurantID, sessionID), "1", CheckoutMarkerTTL).Result()
}

// ReleaseCheckout drops the session marker so the checkout can be retried.
func (c *RedisCache) ReleaseCheckout(ctx context.Context, restaurantID uuid.UUID, sessionID string) error {
	return c.Client.Del(ctx, c.CheckoutMarkerKey(restaurantID, sessionID)).Err()
}

// GetSnapshot returns a cached chat snapshot. ok is false on a miss.
func (c *RedisCache) GetSnapshot(ctx context.Context, restaurantID uuid.UUID, section string) (string, bool, error) {
	v, err := c.Client.Get(ctx, c.SnapshotKey(restaurantID, section)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *RedisCache) SetSnapshot(ctx context.Context, restaurantID uuid.UUID, section, snapshot string, ttl time.Duration) error {
	return c.Client.Set(ctx, c.SnapshotKey(restaurantID, section), snapshot, ttl).Err()
}
