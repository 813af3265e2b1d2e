package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tbourn/go-recipes-backend/internal/config"
)

const pingTimeout = 2 * time.Second

// Redis is a Cache over a go-redis client. Keys are namespaced with prefix.
type Redis struct {
	client *redis.Client
	prefix string
}

// New returns Noop when caching is disabled, otherwise a Redis cache that has
// answered a PING.
func New(ctx context.Context, cfg config.CacheConfig) (Cache, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return NewRedis(client, "recipes:"), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return b, err
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+key, value, ttl).Err()
}

func (r *Redis) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, r.prefix+key).Result()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
