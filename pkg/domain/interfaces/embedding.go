package interfaces

import (
	"context"

	"github.com/firebook-app/firebook/pkg/domain/model"
)

// EmbeddingRepository is the vector store keyed by (owner, bookmark)
type EmbeddingRepository interface {
	// Upsert inserts the record or replaces the existing one for the same key
	Upsert(ctx context.Context, record *model.EmbeddingRecord) error

	// Get returns a record or an error wrapping model.ErrNotFound
	Get(ctx context.Context, ownerID model.OwnerID, bookmarkID model.BookmarkID) (*model.EmbeddingRecord, error)

	// FindSimilar returns the owner's other records with cosine similarity to
	// embedding of at least threshold, most similar first, at most limit.
	// The exclude bookmark is never returned.
	FindSimilar(ctx context.Context, ownerID model.OwnerID, embedding []float32, exclude model.BookmarkID, threshold float64, limit int) ([]*model.Neighbor, error)

	// ListByOwner returns all of the owner's records ordered by bookmark ID
	ListByOwner(ctx context.Context, ownerID model.OwnerID) ([]*model.EmbeddingRecord, error)

	// Delete removes a record; missing records are not an error
	Delete(ctx context.Context, ownerID model.OwnerID, bookmarkID model.BookmarkID) error
}
