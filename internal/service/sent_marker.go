package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SentMarker is the idempotency cache consulted before the durable dedup
// lookup. It is an optimization only; it must never be treated as the source
// of truth, which remains the unique constraint on reminder records.
type SentMarker interface {
	// Seen reports whether the key was marked in this cache.
	Seen(ctx context.Context, key string) (bool, error)
	// MarkSent records the key. Marking an existing key is a no-op.
	MarkSent(ctx context.Context, key string) error
}

// memorySentMarker is a process-local mutex-guarded set. Lost on restart,
// which is fine: the durable check catches what this cache forgot.
type memorySentMarker struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

// NewMemorySentMarker builds the default in-process marker.
func NewMemorySentMarker() SentMarker {
	return &memorySentMarker{keys: make(map[string]struct{})}
}

func (m *memorySentMarker) Seen(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	_, ok := m.keys[key]
	m.mu.RUnlock()
	return ok, nil
}

func (m *memorySentMarker) MarkSent(_ context.Context, key string) error {
	m.mu.Lock()
	m.keys[key] = struct{}{}
	m.mu.Unlock()
	return nil
}

// redisSentMarker shares the marker across processes. Keys expire after the
// TTL so the set stays bounded.
type redisSentMarker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSentMarker builds a Redis-backed marker.
func NewRedisSentMarker(client *redis.Client, ttl time.Duration) SentMarker {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &redisSentMarker{client: client, prefix: "reminder:sent:", ttl: ttl}
}

func (r *redisSentMarker) Seen(ctx context.Context, key string) (bool, error) {
	count, err := r.client.Exists(ctx, r.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("redis sent-marker lookup: %w", err)
	}
	return count > 0, nil
}

func (r *redisSentMarker) MarkSent(ctx context.Context, key string) error {
	if err := r.client.SetNX(ctx, r.prefix+key, 1, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis sent-marker set: %w", err)
	}
	return nil
}
