package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-recipes-backend/internal/config"
)

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	ctx := context.Background()
	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrMiss) {
		t.Fatalf("Get: want ErrMiss, got %v", err)
	}
	if n, err := c.Incr(ctx, "k"); err != nil || n != 0 {
		t.Fatalf("Incr = %d, %v", n, err)
	}
}

func TestNew_DisabledReturnsNoop(t *testing.T) {
	c, err := New(context.Background(), config.CacheConfig{Enabled: false})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := c.(Noop); !ok {
		t.Fatalf("expected Noop, got %T", c)
	}
}

func TestNew_UnreachableRedis(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c, err := New(ctx, config.CacheConfig{Enabled: true, Addr: "127.0.0.1:1"})
	if err == nil {
		_ = c.Close()
		t.Fatalf("expected ping error for unreachable redis")
	}
}
