package interfaces

import (
	"context"

	"github.com/firebook-app/firebook/pkg/domain/model"
)

// BookmarkRepository is the owner-scoped document store for bookmarks
type BookmarkRepository interface {
	// Create stores a new bookmark. An empty ID is replaced by a generated one.
	Create(ctx context.Context, bookmark *model.Bookmark) (*model.Bookmark, error)

	// Get returns a bookmark or an error wrapping model.ErrNotFound
	Get(ctx context.Context, ownerID model.OwnerID, id model.BookmarkID) (*model.Bookmark, error)

	// GetMany returns the bookmarks that exist among ids, keyed by ID
	GetMany(ctx context.Context, ownerID model.OwnerID, ids []model.BookmarkID) (map[model.BookmarkID]*model.Bookmark, error)

	// Update applies all fields of the patch in one write
	Update(ctx context.Context, ownerID model.OwnerID, id model.BookmarkID, patch *model.BookmarkPatch) error

	// Delete removes a bookmark. Embedding rows are left as orphans.
	Delete(ctx context.Context, ownerID model.OwnerID, id model.BookmarkID) error

	// ListOwners returns every owner that has a bookmark collection
	ListOwners(ctx context.Context) ([]model.OwnerID, error)

	// ListByOwner returns an owner's bookmarks ordered by ID
	ListByOwner(ctx context.Context, ownerID model.OwnerID) ([]*model.Bookmark, error)

	// WatchCreated calls fn for every bookmark created after the watch starts,
	// or for existing ones too when replay is true. It blocks until ctx is done.
	WatchCreated(ctx context.Context, replay bool, fn func(ctx context.Context, bookmark *model.Bookmark) error) error
}
