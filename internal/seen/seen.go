// Package seen tracks which posts the bot has already engaged with, so
// repeated search hits across cycles do not produce duplicate favorites
// or reposts. Best effort: a miss only costs a redundant platform call,
// which the platform itself rejects as a duplicate record.
package seen

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"warbler/internal/cache"
)

type Store interface {
	// Seen reports whether id was marked before. Lookup failures count
	// as unseen.
	Seen(ctx context.Context, id string) bool
	Mark(ctx context.Context, id string)
	Close() error
}

// New returns a redis-backed store when addr is set, otherwise an
// in-process store that does not survive restarts.
func New(ctx context.Context, addr string, ttl time.Duration) (Store, error) {
	if addr == "" {
		return NewMemory(ttl), nil
	}
	return NewRedis(ctx, addr, ttl)
}

const redisKeyPrefix = "warbler:seen:"

type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(ctx context.Context, addr string, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Seen(ctx context.Context, id string) bool {
	n, err := r.client.Exists(ctx, redisKeyPrefix+id).Result()
	if err != nil {
		return false
	}
	return n > 0
}

func (r *Redis) Mark(ctx context.Context, id string) {
	r.client.Set(ctx, redisKeyPrefix+id, 1, r.ttl)
}

func (r *Redis) Close() error {
	return r.client.Close()
}

type Memory struct {
	cache *cache.Cache[string, struct{}]
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		cache: cache.New[string, struct{}](cache.Config{TTL: ttl}, func(k string) string { return k }),
	}
}

func (m *Memory) Seen(_ context.Context, id string) bool {
	_, found := m.cache.Get(id)
	return found
}

func (m *Memory) Mark(_ context.Context, id string) {
	m.cache.Set(id, struct{}{})
}

func (m *Memory) Close() error {
	return m.cache.Close()
}
