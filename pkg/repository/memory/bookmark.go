package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

type bookmarkRepository struct {
	mu        sync.RWMutex
	bookmarks map[model.OwnerID]map[model.BookmarkID]*model.Bookmark
	watchers  map[int]*watcher
	nextWatch int
}

type watcher struct {
	ch   chan *model.Bookmark
	done chan struct{}
}

func newBookmarkRepository() *bookmarkRepository {
	return &bookmarkRepository{
		bookmarks: make(map[model.OwnerID]map[model.BookmarkID]*model.Bookmark),
		watchers:  make(map[int]*watcher),
	}
}

func (r *bookmarkRepository) Create(ctx context.Context, bookmark *model.Bookmark) (*model.Bookmark, error) {
	if bookmark.OwnerID == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "owner ID is required")
	}

	r.mu.Lock()
	created := bookmark.Copy()
	if created.ID == "" {
		created.ID = model.NewBookmarkID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	owned, ok := r.bookmarks[created.OwnerID]
	if !ok {
		owned = make(map[model.BookmarkID]*model.Bookmark)
		r.bookmarks[created.OwnerID] = owned
	}
	owned[created.ID] = created

	watchers := make([]*watcher, 0, len(r.watchers))
	for _, w := range r.watchers {
		watchers = append(watchers, w)
	}
	r.mu.Unlock()

	for _, w := range watchers {
		select {
		case w.ch <- created.Copy():
		case <-w.done:
		case <-ctx.Done():
			return nil, goerr.Wrap(ctx.Err(), "context done while notifying watchers")
		}
	}

	return created.Copy(), nil
}

func (r *bookmarkRepository) Get(ctx context.Context, ownerID model.OwnerID, id model.BookmarkID) (*model.Bookmark, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookmarks[ownerID][id]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "bookmark not found",
			goerr.V("owner_id", ownerID), goerr.V("bookmark_id", id))
	}
	return b.Copy(), nil
}

func (r *bookmarkRepository) GetMany(ctx context.Context, ownerID model.OwnerID, ids []model.BookmarkID) (map[model.BookmarkID]*model.Bookmark, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[model.BookmarkID]*model.Bookmark, len(ids))
	for _, id := range ids {
		if b, ok := r.bookmarks[ownerID][id]; ok {
			result[id] = b.Copy()
		}
	}
	return result, nil
}

func (r *bookmarkRepository) Update(ctx context.Context, ownerID model.OwnerID, id model.BookmarkID, patch *model.BookmarkPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookmarks[ownerID][id]
	if !ok {
		return goerr.Wrap(model.ErrNotFound, "bookmark not found",
			goerr.V("owner_id", ownerID), goerr.V("bookmark_id", id))
	}
	patch.Apply(b)
	return nil
}

func (r *bookmarkRepository) Delete(ctx context.Context, ownerID model.OwnerID, id model.BookmarkID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.bookmarks[ownerID], id)
	return nil
}

func (r *bookmarkRepository) ListOwners(ctx context.Context) ([]model.OwnerID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owners := make([]model.OwnerID, 0, len(r.bookmarks))
	for owner := range r.bookmarks {
		owners = append(owners, owner)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
	return owners, nil
}

func (r *bookmarkRepository) ListByOwner(ctx context.Context, ownerID model.OwnerID) ([]*model.Bookmark, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bookmarks := make([]*model.Bookmark, 0, len(r.bookmarks[ownerID]))
	for _, b := range r.bookmarks[ownerID] {
		bookmarks = append(bookmarks, b.Copy())
	}
	sort.Slice(bookmarks, func(i, j int) bool { return bookmarks[i].ID < bookmarks[j].ID })
	return bookmarks, nil
}

// WatchCreated delivers bookmarks created after registration. With replay,
// existing bookmarks are delivered first in owner then ID order.
func (r *bookmarkRepository) WatchCreated(ctx context.Context, replay bool, fn func(ctx context.Context, bookmark *model.Bookmark) error) error {
	w := &watcher{
		ch:   make(chan *model.Bookmark),
		done: make(chan struct{}),
	}

	r.mu.Lock()
	watchID := r.nextWatch
	r.nextWatch++
	r.watchers[watchID] = w

	var existing []*model.Bookmark
	if replay {
		for _, owned := range r.bookmarks {
			for _, b := range owned {
				existing = append(existing, b.Copy())
			}
		}
	}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.watchers, watchID)
		r.mu.Unlock()
		close(w.done)
	}()

	sort.Slice(existing, func(i, j int) bool {
		if existing[i].OwnerID != existing[j].OwnerID {
			return existing[i].OwnerID < existing[j].OwnerID
		}
		return existing[i].ID < existing[j].ID
	})
	for _, b := range existing {
		if err := fn(ctx, b); err != nil {
			return goerr.Wrap(err, "bookmark watch handler failed", goerr.V("bookmark_id", b.ID))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case b := <-w.ch:
			if err := fn(ctx, b); err != nil {
				return goerr.Wrap(err, "bookmark watch handler failed", goerr.V("bookmark_id", b.ID))
			}
		}
	}
}
