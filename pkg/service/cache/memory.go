package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/firebook-app/firebook/pkg/utils/logging"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// Memory is an in-process cache used for single-instance deployments and
// tests. Values are stored as JSON so that callers see the same decoding
// behavior as with a remote backend.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type MemoryOption func(*Memory)

func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Get(ctx context.Context, key string, dst any) bool {
	m.mu.Lock()
	entry, ok := m.entries[key]
	if ok && !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	if err := json.Unmarshal(entry.data, dst); err != nil {
		logging.From(ctx).Warn("failed to decode cached value", "key", key, "error", err)
		return false
	}
	return true
}

func (m *Memory) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	data, err := json.Marshal(value)
	if err != nil {
		logging.From(ctx).Warn("failed to encode cache value", "key", key, "error", err)
		return false
	}

	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry
	return true
}

func (m *Memory) Delete(ctx context.Context, keys ...string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	return true
}
