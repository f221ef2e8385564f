package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/firebook-app/firebook/pkg/domain/interfaces"
	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/domain/types"
	"github.com/m-mizutani/gt"
)

func runBookmarkRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Create assigns ID and Get returns it", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		ownerID := newOwnerID()

		created, err := repo.Bookmark().Create(ctx, &model.Bookmark{
			OwnerID: ownerID,
			URL:     "https://example.com/article",
			Title:   "Example",
			Tags:    []string{"go", "web"},
			Rating:  4,
		})
		gt.NoError(t, err).Required()
		gt.Value(t, created.ID).NotEqual(model.BookmarkID(""))
		gt.Bool(t, created.CreatedAt.IsZero()).False()

		got, err := repo.Bookmark().Get(ctx, ownerID, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.OwnerID).Equal(ownerID)
		gt.Value(t, got.URL).Equal("https://example.com/article")
		gt.Value(t, got.Title).Equal("Example")
		gt.Value(t, got.Tags).Equal([]string{"go", "web"})
		gt.Value(t, got.Rating).Equal(4)
		gt.Bool(t, got.Fetched).False()
	})

	t.Run("Create without owner fails", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Bookmark().Create(context.Background(), &model.Bookmark{URL: "https://example.com"})
		gt.Error(t, err).Is(model.ErrInvalidArgument)
	})

	t.Run("Get returns ErrNotFound for missing bookmark", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Bookmark().Get(context.Background(), newOwnerID(), "missing")
		gt.Error(t, err).Is(model.ErrNotFound)
	})

	t.Run("Get is owner scoped", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Bookmark().Create(ctx, &model.Bookmark{OwnerID: newOwnerID(), URL: "https://example.com"})
		gt.NoError(t, err).Required()

		_, err = repo.Bookmark().Get(ctx, newOwnerID(), created.ID)
		gt.Error(t, err).Is(model.ErrNotFound)
	})

	t.Run("Update applies only patched fields", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		ownerID := newOwnerID()
		now := time.Now().UTC().Truncate(time.Millisecond)

		created, err := repo.Bookmark().Create(ctx, &model.Bookmark{
			OwnerID: ownerID,
			URL:     "https://example.com",
			Title:   "Mine",
		})
		gt.NoError(t, err).Required()

		patch := model.NewMetadataPatch(created, &model.PageMetadata{
			Title:       "Fetched title",
			Description: "Fetched description",
			Favicon:     "https://example.com/favicon.ico",
			Fetched:     true,
			FetchedAt:   now,
		})
		gt.NoError(t, repo.Bookmark().Update(ctx, ownerID, created.ID, patch)).Required()

		tagPatch := model.NewTagPatch([]string{"Example", "Software"}, types.TagMethodNLP, now)
		gt.NoError(t, repo.Bookmark().Update(ctx, ownerID, created.ID, tagPatch)).Required()

		got, err := repo.Bookmark().Get(ctx, ownerID, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Title).Equal("Mine")
		gt.Value(t, got.Description).Equal("Fetched description")
		gt.Value(t, got.Favicon).Equal("https://example.com/favicon.ico")
		gt.Bool(t, got.Fetched).True()
		gt.Bool(t, got.FetchedAt.Equal(now)).True()
		gt.Bool(t, got.AutoTagged).True()
		gt.Value(t, got.SuggestedTags).Equal([]string{"Example", "Software"})
		gt.Value(t, got.AutoTagMethod).Equal(types.TagMethodNLP)
	})

	t.Run("Update of missing bookmark returns ErrNotFound", func(t *testing.T) {
		repo := newRepo(t)
		patch := model.NewEmbeddingPatch(3, time.Now())
		err := repo.Bookmark().Update(context.Background(), newOwnerID(), "missing", patch)
		gt.Error(t, err).Is(model.ErrNotFound)
	})

	t.Run("GetMany skips missing IDs", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		ownerID := newOwnerID()

		a, err := repo.Bookmark().Create(ctx, &model.Bookmark{OwnerID: ownerID, URL: "https://a.example.com"})
		gt.NoError(t, err).Required()
		b, err := repo.Bookmark().Create(ctx, &model.Bookmark{OwnerID: ownerID, URL: "https://b.example.com"})
		gt.NoError(t, err).Required()

		got, err := repo.Bookmark().GetMany(ctx, ownerID, []model.BookmarkID{a.ID, "missing", b.ID})
		gt.NoError(t, err).Required()
		gt.Value(t, len(got)).Equal(2)
		gt.Value(t, got[a.ID].URL).Equal("https://a.example.com")
		gt.Value(t, got[b.ID].URL).Equal("https://b.example.com")
	})

	t.Run("ListByOwner returns only the owner's bookmarks", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		ownerID := newOwnerID()

		for _, id := range []model.BookmarkID{"b2", "b1", "b3"} {
			_, err := repo.Bookmark().Create(ctx, &model.Bookmark{ID: id, OwnerID: ownerID, URL: "https://example.com/" + string(id)})
			gt.NoError(t, err).Required()
		}
		_, err := repo.Bookmark().Create(ctx, &model.Bookmark{OwnerID: newOwnerID(), URL: "https://other.example.com"})
		gt.NoError(t, err).Required()

		list, err := repo.Bookmark().ListByOwner(ctx, ownerID)
		gt.NoError(t, err).Required()
		gt.Array(t, list).Length(3)
		gt.Value(t, list[0].ID).Equal(model.BookmarkID("b1"))
		gt.Value(t, list[2].ID).Equal(model.BookmarkID("b3"))

		owners, err := repo.Bookmark().ListOwners(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, owners).Has(ownerID)
	})

	t.Run("Delete removes bookmark", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		ownerID := newOwnerID()

		created, err := repo.Bookmark().Create(ctx, &model.Bookmark{OwnerID: ownerID, URL: "https://example.com"})
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Bookmark().Delete(ctx, ownerID, created.ID)).Required()

		_, err = repo.Bookmark().Get(ctx, ownerID, created.ID)
		gt.Error(t, err).Is(model.ErrNotFound)
	})
}

func TestMemoryBookmarkRepository(t *testing.T) {
	runBookmarkRepositoryTest(t, newMemoryRepository)
}

func TestFirestoreBookmarkRepository(t *testing.T) {
	runBookmarkRepositoryTest(t, newFirestoreRepository)
}

func TestMemoryBookmarkWatch(t *testing.T) {
	repo := newMemoryRepository(t)
	ownerID := newOwnerID()

	existing, err := repo.Bookmark().Create(context.Background(), &model.Bookmark{OwnerID: ownerID, URL: "https://old.example.com"})
	gt.NoError(t, err).Required()

	t.Run("without replay only new bookmarks are delivered", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		received := make(chan *model.Bookmark, 4)
		done := make(chan error, 1)

		go func() {
			done <- repo.Bookmark().WatchCreated(ctx, false, func(ctx context.Context, b *model.Bookmark) error {
				received <- b
				return nil
			})
		}()

		// wait until the watcher is registered by creating until one arrives
		var got *model.Bookmark
		deadline := time.After(5 * time.Second)
		for got == nil {
			created, err := repo.Bookmark().Create(context.Background(), &model.Bookmark{OwnerID: ownerID, URL: "https://new.example.com"})
			gt.NoError(t, err).Required()
			select {
			case b := <-received:
				got = b
				gt.Value(t, b.ID).NotEqual(existing.ID)
				gt.Value(t, b.ID).Equal(created.ID)
			case <-time.After(10 * time.Millisecond):
			case <-deadline:
				t.Fatal("no bookmark delivered")
			}
		}

		cancel()
		gt.NoError(t, <-done)
	})

	t.Run("replay delivers existing bookmarks", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var ids []model.BookmarkID
		errStop := model.ErrFailedPrecondition
		err := repo.Bookmark().WatchCreated(ctx, true, func(ctx context.Context, b *model.Bookmark) error {
			ids = append(ids, b.ID)
			if b.ID == existing.ID {
				return errStop
			}
			return nil
		})
		gt.Error(t, err).Is(errStop)
		gt.Array(t, ids).Has(existing.ID)
	})
}
