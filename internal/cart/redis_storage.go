package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStorage keeps carts in Redis under "cart:<key>" with a sliding TTL.
type RedisStorage struct {
	client  *redis.Client
	ttl     time.Duration
	timeout time.Duration
}

// NewRedisStorage creates a Redis-backed storage. A zero ttl keeps carts forever.
func NewRedisStorage(client *redis.Client, ttl, timeout time.Duration) *RedisStorage {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RedisStorage{
		client:  client,
		ttl:     ttl,
		timeout: timeout,
	}
}

func redisKey(key string) string {
	return "cart:" + key
}

// Cart operations are synchronous, so each call carries its own bounded context.
func (r *RedisStorage) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

func (r *RedisStorage) Read(key string) ([]byte, error) {
	ctx, cancel := r.ctx()
	defer cancel()

	data, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read cart from redis: %w", err)
	}
	return data, nil
}

func (r *RedisStorage) Write(key string, data []byte) error {
	ctx, cancel := r.ctx()
	defer cancel()

	if err := r.client.Set(ctx, redisKey(key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cart to redis: %w", err)
	}
	return nil
}

func (r *RedisStorage) Delete(key string) error {
	ctx, cancel := r.ctx()
	defer cancel()

	if err := r.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart from redis: %w", err)
	}
	return nil
}
