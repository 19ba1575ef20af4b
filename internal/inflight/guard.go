// Package inflight rejects a second checkout for the same cart while the first is still running.
package inflight

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Guard is a keyed, expiring mutual-exclusion token.
type Guard interface {
	// Acquire reports false when key is already held. The returned token must be
	// passed to Release.
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	// Release drops key only while it is still held with token, so a holder whose
	// TTL lapsed cannot release a later holder's claim.
	Release(ctx context.Context, key, token string) error
}

type claim struct {
	token  string
	expiry time.Time
}

// MemoryGuard holds tokens in process memory.
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]claim
	now  func() time.Time
}

// NewMemoryGuard creates an in-process guard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{
		held: make(map[string]claim),
		now:  time.Now,
	}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if c, ok := g.held[key]; ok && now.Before(c.expiry) {
		return "", false, nil
	}
	token := uuid.NewString()
	g.held[key] = claim{token: token, expiry: now.Add(ttl)}
	return token, true, nil
}

func (g *MemoryGuard) Release(_ context.Context, key, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.held[key]; ok && c.token == token {
		delete(g.held, key)
	}
	return nil
}

// releaseScript deletes KEYS[1] only when it still holds ARGV[1].
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard shares tokens between instances through Redis SETNX.
type RedisGuard struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisGuard creates a guard whose keys are namespaced by prefix.
func NewRedisGuard(client redis.UniversalClient, prefix string) *RedisGuard {
	return &RedisGuard{client: client, prefix: prefix}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, g.prefix+key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire in-flight token: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (g *RedisGuard) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, g.client, []string{g.prefix + key}, token).Err(); err != nil {
		return fmt.Errorf("failed to release in-flight token: %w", err)
	}
	return nil
}
