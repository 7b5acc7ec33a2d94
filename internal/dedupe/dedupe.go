// Package dedupe remembers recently handled Slack interactions so that a
// double click or a redelivered callback does not stamp twice.
package dedupe

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard records keys for a limited time.
type Guard interface {
	// First reports whether key is seen for the first time within the TTL and
	// records it.
	First(ctx context.Context, key string) (bool, error)
}

// InMemory is a process-local guard for dev/testing.
type InMemory struct {
	ttl  time.Duration
	now  func() time.Time
	mu   sync.Mutex
	seen map[string]time.Time
}

// NewInMemory creates a guard that forgets keys after ttl.
func NewInMemory(ttl time.Duration) *InMemory {
	return &InMemory{ttl: ttl, now: time.Now, seen: make(map[string]time.Time)}
}

// First implements Guard.
func (g *InMemory) First(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	for k, exp := range g.seen {
		if !now.Before(exp) {
			delete(g.seen, k)
		}
	}
	if _, ok := g.seen[key]; ok {
		return false, nil
	}
	g.seen[key] = now.Add(g.ttl)
	return true, nil
}

// Redis shares the guard between api replicas using SET NX.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis builds a guard storing keys under prefix.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "stampbot:dedupe:"
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

// First implements Guard.
func (g *Redis) First(ctx context.Context, key string) (bool, error) {
	return g.client.SetNX(ctx, g.prefix+key, 1, g.ttl).Result()
}
