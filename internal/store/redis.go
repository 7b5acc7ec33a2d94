package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis holds the shared client used by the dedupe guard.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds a client for addr, which is either host:port or a
// redis:// / rediss:// URL carrying credentials and a database number.
// An empty addr yields nil, which Healthy treats as unavailable.
func NewRedis(addr string) (*Redis, error) {
	if addr == "" {
		return nil, nil
	}
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = time.Second
	opts.WriteTimeout = time.Second
	return &Redis{Client: redis.NewClient(opts)}, nil
}

// Healthy pings the server.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// Close releases the pool; nil is a no-op.
func (r *Redis) Close() error {
	if r == nil {
		return nil
	}
	return r.Client.Close()
}
