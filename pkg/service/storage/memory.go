package storage

import (
	"context"
	"sync"
)

// Object is a stored blob
type Object struct {
	Data        []byte
	ContentType string
}

// Memory keeps objects in process
type Memory struct {
	mu      sync.RWMutex
	base    string
	objects map[string]Object
}

func NewMemory(base string) *Memory {
	return &Memory{
		base:    base,
		objects: make(map[string]Object),
	}
}

func (m *Memory) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]byte, len(data))
	copy(copied, data)
	m.objects[path] = Object{Data: copied, ContentType: contentType}
	return PublicURL(m.base, "memory", path), nil
}

// Get returns the object stored at path
func (m *Memory) Get(path string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[path]
	return obj, ok
}
