package services

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const checkoutIdemPrefix = "checkout:idem:"

// IdempotencyStore remembers which checkout events already produced an order,
// so queue redeliveries do not create duplicates.
type IdempotencyStore interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key, orderID string, ttl time.Duration) error
}

// RedisIdempotencyStore keeps processed keys in Redis with a TTL.
type RedisIdempotencyStore struct {
	client *redis.Client
}

func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

func (s *RedisIdempotencyStore) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, checkoutIdemPrefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisIdempotencyStore) Mark(ctx context.Context, key, orderID string, ttl time.Duration) error {
	return s.client.Set(ctx, checkoutIdemPrefix+key, orderID, ttl).Err()
}
