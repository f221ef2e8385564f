package metadata

import (
	"context"
	"net/http"

	"github.com/firebook-app/firebook/pkg/domain/model"
)

// Service extracts page metadata from a URL
type Service interface {
	// Extract never fails: fetch and parse problems are reported through
	// PageMetadata.Error with Fetched set to false.
	Extract(ctx context.Context, rawURL string) *model.PageMetadata
}

// HTTPClient defines the interface for making HTTP requests
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
