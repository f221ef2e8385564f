package interfaces

import (
	"context"
	"time"
)

// Cache is a key/value response cache. Implementations never surface backend
// failures to callers: Get reports a miss and Set/Delete report false.
type Cache interface {
	// Get decodes the cached JSON value into dst and reports whether it was found
	Get(ctx context.Context, key string, dst any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration) bool
	Delete(ctx context.Context, keys ...string) bool
}

// BlobStorage stores screenshot images
type BlobStorage interface {
	// Put writes the object as publicly readable and returns its public URL
	Put(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

// CDN purges cached pages. Errors are collected, not retried.
type CDN interface {
	PurgeURLs(ctx context.Context, urls []string) (*PurgeResult, error)
	PurgeEverything(ctx context.Context) error
	PurgeBookmark(ctx context.Context, bookmarkID string) (*PurgeResult, error)
}

// PurgeResult summarizes a batched purge
type PurgeResult struct {
	Success bool
	Purged  int
	Errors  []string
}
