package cdn

import (
	"context"

	"github.com/firebook-app/firebook/pkg/domain/interfaces"
)

// Noop stands in when no CDN is configured
type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (Noop) PurgeURLs(ctx context.Context, urls []string) (*interfaces.PurgeResult, error) {
	return &interfaces.PurgeResult{Success: true}, nil
}

func (Noop) PurgeEverything(ctx context.Context) error {
	return nil
}

func (Noop) PurgeBookmark(ctx context.Context, bookmarkID string) (*interfaces.PurgeResult, error) {
	return &interfaces.PurgeResult{Success: true}, nil
}
