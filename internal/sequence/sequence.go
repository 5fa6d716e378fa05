package sequence

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// DefaultKey is the Redis key holding the last issued cycle id.
const DefaultKey = "skycast:cycle"

// Memory issues monotonically increasing ids from an in-process counter.
type Memory struct {
	n atomic.Uint64
}

// NewMemory constructs a Memory sequence starting at 1.
func NewMemory() *Memory {
	return &Memory{}
}

// Next returns the next id.
func (m *Memory) Next(_ context.Context) (uint64, error) {
	return m.n.Add(1), nil
}

// Ping always succeeds.
func (m *Memory) Ping(_ context.Context) error {
	return nil
}

// Redis issues ids with INCR so every replica behind a balancer agrees on ordering.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis constructs a Redis sequence on DefaultKey.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, key: DefaultKey}
}

// NewRedisWithKey constructs a Redis sequence on a custom key.
func NewRedisWithKey(client *redis.Client, key string) *Redis {
	return &Redis{client: client, key: key}
}

// Next increments the counter and returns the new value.
func (r *Redis) Next(ctx context.Context) (uint64, error) {
	n, err := r.client.Incr(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("incrementing cycle counter %s: %w", r.key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("cycle counter %s returned non-positive value %d", r.key, n)
	}
	return uint64(n), nil
}

// Ping checks Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
