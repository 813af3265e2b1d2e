// Package cache provides the byte-oriented read cache used for ingredient
// search results. Redis backs it in production; Noop is used when caching is
// disabled or Redis is unreachable.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// Cache stores opaque values with a TTL and supports atomic counters.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	Close() error
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, error)              { return nil, ErrMiss }
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Noop) Incr(context.Context, string) (int64, error)              { return 0, nil }
func (Noop) Close() error                                             { return nil }
