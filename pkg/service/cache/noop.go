package cache

import (
	"context"
	"time"
)

// Noop is used when no cache backend is configured. Every lookup misses.
type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (Noop) Get(ctx context.Context, key string, dst any) bool {
	return false
}

func (Noop) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	return false
}

func (Noop) Delete(ctx context.Context, keys ...string) bool {
	return false
}
