package firestore

import (
	"context"
	"errors"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/domain/types"
	"github.com/firebook-app/firebook/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// bookmarkDoc is the Firestore document shape written by the web client.
// Tags is kept as any because older documents store a comma-separated string.
type bookmarkDoc struct {
	URL         string    `firestore:"url"`
	Title       string    `firestore:"title"`
	Description string    `firestore:"description"`
	Tags        any       `firestore:"tags"`
	Rating      int       `firestore:"rating"`
	CreatedAt   time.Time `firestore:"createdAt,omitempty"`

	Image      string    `firestore:"image,omitempty"`
	Favicon    string    `firestore:"favicon,omitempty"`
	SiteName   string    `firestore:"siteName,omitempty"`
	Fetched    bool      `firestore:"fetched,omitempty"`
	FetchedAt  time.Time `firestore:"fetchedAt,omitempty"`
	FetchError string    `firestore:"fetchError,omitempty"`

	Screenshot              string    `firestore:"screenshot,omitempty"`
	ScreenshotCapturedAt    time.Time `firestore:"screenshotCapturedAt,omitempty"`
	ScreenshotError         string    `firestore:"screenshotError,omitempty"`
	ScreenshotErrorCategory string    `firestore:"screenshotErrorCategory,omitempty"`
	ScreenshotAttemptedAt   time.Time `firestore:"screenshotAttemptedAt,omitempty"`

	AutoTagged         bool      `firestore:"autoTagged,omitempty"`
	AutoTaggedAt       time.Time `firestore:"autoTaggedAt,omitempty"`
	AutoTagMethod      string    `firestore:"autoTagMethod,omitempty"`
	SuggestedTags      []string  `firestore:"suggestedTags,omitempty"`
	AutoTagError       string    `firestore:"autoTagError,omitempty"`
	AutoTagAttemptedAt time.Time `firestore:"autoTagAttemptedAt,omitempty"`

	HasEmbedding         bool      `firestore:"hasEmbedding,omitempty"`
	EmbeddingDimensions  int       `firestore:"embeddingDimensions,omitempty"`
	EmbeddingGeneratedAt time.Time `firestore:"embeddingGeneratedAt,omitempty"`
	EmbeddingError       string    `firestore:"embeddingError,omitempty"`
	EmbeddingAttemptedAt time.Time `firestore:"embeddingAttemptedAt,omitempty"`
}

func toBookmarkDoc(b *model.Bookmark) *bookmarkDoc {
	tags := b.Tags
	if tags == nil {
		tags = []string{}
	}
	return &bookmarkDoc{
		URL:                     b.URL,
		Title:                   b.Title,
		Description:             b.Description,
		Tags:                    tags,
		Rating:                  b.Rating,
		CreatedAt:               b.CreatedAt,
		Image:                   b.Image,
		Favicon:                 b.Favicon,
		SiteName:                b.SiteName,
		Fetched:                 b.Fetched,
		FetchedAt:               b.FetchedAt,
		FetchError:              b.FetchError,
		Screenshot:              b.Screenshot,
		ScreenshotCapturedAt:    b.ScreenshotCapturedAt,
		ScreenshotError:         b.ScreenshotError,
		ScreenshotErrorCategory: string(b.ScreenshotErrorCategory),
		ScreenshotAttemptedAt:   b.ScreenshotAttemptedAt,
		AutoTagged:              b.AutoTagged,
		AutoTaggedAt:            b.AutoTaggedAt,
		AutoTagMethod:           string(b.AutoTagMethod),
		SuggestedTags:           b.SuggestedTags,
		AutoTagError:            b.AutoTagError,
		AutoTagAttemptedAt:      b.AutoTagAttemptedAt,
		HasEmbedding:            b.HasEmbedding,
		EmbeddingDimensions:     b.EmbeddingDimensions,
		EmbeddingGeneratedAt:    b.EmbeddingGeneratedAt,
		EmbeddingError:          b.EmbeddingError,
		EmbeddingAttemptedAt:    b.EmbeddingAttemptedAt,
	}
}

func fromBookmarkDoc(ownerID model.OwnerID, id model.BookmarkID, d *bookmarkDoc) *model.Bookmark {
	return &model.Bookmark{
		ID:                      id,
		OwnerID:                 ownerID,
		URL:                     d.URL,
		Title:                   d.Title,
		Description:             d.Description,
		Tags:                    model.NormalizeTags(d.Tags),
		Rating:                  d.Rating,
		CreatedAt:               d.CreatedAt,
		Image:                   d.Image,
		Favicon:                 d.Favicon,
		SiteName:                d.SiteName,
		Fetched:                 d.Fetched,
		FetchedAt:               d.FetchedAt,
		FetchError:              d.FetchError,
		Screenshot:              d.Screenshot,
		ScreenshotCapturedAt:    d.ScreenshotCapturedAt,
		ScreenshotError:         d.ScreenshotError,
		ScreenshotErrorCategory: types.ScreenshotErrorCategory(d.ScreenshotErrorCategory),
		ScreenshotAttemptedAt:   d.ScreenshotAttemptedAt,
		AutoTagged:              d.AutoTagged,
		AutoTaggedAt:            d.AutoTaggedAt,
		AutoTagMethod:           types.TagMethod(d.AutoTagMethod),
		SuggestedTags:           d.SuggestedTags,
		AutoTagError:            d.AutoTagError,
		AutoTagAttemptedAt:      d.AutoTagAttemptedAt,
		HasEmbedding:            d.HasEmbedding,
		EmbeddingDimensions:     d.EmbeddingDimensions,
		EmbeddingGeneratedAt:    d.EmbeddingGeneratedAt,
		EmbeddingError:          d.EmbeddingError,
		EmbeddingAttemptedAt:    d.EmbeddingAttemptedAt,
	}
}

// docToBookmark resolves the owner from the users/{uid}/bookmarks/{id} path
func docToBookmark(doc *firestore.DocumentSnapshot) (*model.Bookmark, error) {
	var d bookmarkDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, err
	}

	var ownerID model.OwnerID
	if parent := doc.Ref.Parent; parent != nil && parent.Parent != nil {
		ownerID = model.OwnerID(parent.Parent.ID)
	}
	return fromBookmarkDoc(ownerID, model.BookmarkID(doc.Ref.ID), &d), nil
}

// toFirestoreUpdates converts a patch to field path updates in document casing
func toFirestoreUpdates(p *model.BookmarkPatch) []firestore.Update {
	var updates []firestore.Update
	add := func(path string, value any) {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}

	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Image != nil {
		add("image", *p.Image)
	}
	if p.Favicon != nil {
		add("favicon", *p.Favicon)
	}
	if p.SiteName != nil {
		add("siteName", *p.SiteName)
	}
	if p.Fetched != nil {
		add("fetched", *p.Fetched)
	}
	if p.FetchedAt != nil {
		add("fetchedAt", *p.FetchedAt)
	}
	if p.FetchError != nil {
		add("fetchError", *p.FetchError)
	}

	if p.Screenshot != nil {
		add("screenshot", *p.Screenshot)
	}
	if p.ScreenshotCapturedAt != nil {
		add("screenshotCapturedAt", *p.ScreenshotCapturedAt)
	}
	if p.ScreenshotError != nil {
		add("screenshotError", *p.ScreenshotError)
	}
	if p.ScreenshotErrorCategory != nil {
		add("screenshotErrorCategory", string(*p.ScreenshotErrorCategory))
	}
	if p.ScreenshotAttemptedAt != nil {
		add("screenshotAttemptedAt", *p.ScreenshotAttemptedAt)
	}

	if p.AutoTagged != nil {
		add("autoTagged", *p.AutoTagged)
	}
	if p.AutoTaggedAt != nil {
		add("autoTaggedAt", *p.AutoTaggedAt)
	}
	if p.AutoTagMethod != nil {
		add("autoTagMethod", string(*p.AutoTagMethod))
	}
	if p.SuggestedTags != nil {
		add("suggestedTags", p.SuggestedTags)
	}
	if p.AutoTagError != nil {
		add("autoTagError", *p.AutoTagError)
	}
	if p.AutoTagAttemptedAt != nil {
		add("autoTagAttemptedAt", *p.AutoTagAttemptedAt)
	}

	if p.HasEmbedding != nil {
		add("hasEmbedding", *p.HasEmbedding)
	}
	if p.EmbeddingDimensions != nil {
		add("embeddingDimensions", *p.EmbeddingDimensions)
	}
	if p.EmbeddingGeneratedAt != nil {
		add("embeddingGeneratedAt", *p.EmbeddingGeneratedAt)
	}
	if p.EmbeddingError != nil {
		add("embeddingError", *p.EmbeddingError)
	}
	if p.EmbeddingAttemptedAt != nil {
		add("embeddingAttemptedAt", *p.EmbeddingAttemptedAt)
	}

	return updates
}

type bookmarkRepository struct {
	client          *firestore.Client
	usersCollection string
}

func newBookmarkRepository(client *firestore.Client) *bookmarkRepository {
	return &bookmarkRepository{
		client:          client,
		usersCollection: usersCollection,
	}
}

func (r *bookmarkRepository) bookmarksCollection(ownerID model.OwnerID) *firestore.CollectionRef {
	return r.client.Collection(r.usersCollection).Doc(string(ownerID)).Collection(bookmarksCollection)
}

func (r *bookmarkRepository) Create(ctx context.Context, bookmark *model.Bookmark) (*model.Bookmark, error) {
	if bookmark.OwnerID == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "owner ID is required")
	}

	created := bookmark.Copy()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	col := r.bookmarksCollection(created.OwnerID)
	var docRef *firestore.DocumentRef
	if created.ID == "" {
		docRef = col.NewDoc()
		created.ID = model.BookmarkID(docRef.ID)
	} else {
		docRef = col.Doc(string(created.ID))
	}

	if _, err := docRef.Set(ctx, toBookmarkDoc(created)); err != nil {
		return nil, goerr.Wrap(err, "failed to create bookmark",
			goerr.V("owner_id", created.OwnerID),
			goerr.V("bookmark_id", created.ID))
	}

	return created, nil
}

func (r *bookmarkRepository) Get(ctx context.Context, ownerID model.OwnerID, id model.BookmarkID) (*model.Bookmark, error) {
	doc, err := r.bookmarksCollection(ownerID).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "bookmark not found",
				goerr.V("owner_id", ownerID), goerr.V("bookmark_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get bookmark",
			goerr.V("owner_id", ownerID), goerr.V("bookmark_id", id))
	}

	b, err := docToBookmark(doc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal bookmark", goerr.V("bookmark_id", id))
	}
	return b, nil
}

func (r *bookmarkRepository) GetMany(ctx context.Context, ownerID model.OwnerID, ids []model.BookmarkID) (map[model.BookmarkID]*model.Bookmark, error) {
	result := make(map[model.BookmarkID]*model.Bookmark, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	refs := make([]*firestore.DocumentRef, len(ids))
	for i, id := range ids {
		refs[i] = r.bookmarksCollection(ownerID).Doc(string(id))
	}

	docs, err := r.client.GetAll(ctx, refs)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get bookmarks", goerr.V("owner_id", ownerID), goerr.V("count", len(ids)))
	}

	for _, doc := range docs {
		if !doc.Exists() {
			continue
		}
		b, err := docToBookmark(doc)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal bookmark", goerr.V("bookmark_id", doc.Ref.ID))
		}
		result[b.ID] = b
	}

	return result, nil
}

func (r *bookmarkRepository) Update(ctx context.Context, ownerID model.OwnerID, id model.BookmarkID, patch *model.BookmarkPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	_, err := r.bookmarksCollection(ownerID).Doc(string(id)).Update(ctx, toFirestoreUpdates(patch))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(model.ErrNotFound, "bookmark not found",
				goerr.V("owner_id", ownerID), goerr.V("bookmark_id", id))
		}
		return goerr.Wrap(err, "failed to update bookmark",
			goerr.V("owner_id", ownerID), goerr.V("bookmark_id", id))
	}

	return nil
}

func (r *bookmarkRepository) Delete(ctx context.Context, ownerID model.OwnerID, id model.BookmarkID) error {
	if _, err := r.bookmarksCollection(ownerID).Doc(string(id)).Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete bookmark",
			goerr.V("owner_id", ownerID), goerr.V("bookmark_id", id))
	}
	return nil
}

func (r *bookmarkRepository) ListOwners(ctx context.Context) ([]model.OwnerID, error) {
	iter := r.client.Collection(r.usersCollection).DocumentRefs(ctx)

	var owners []model.OwnerID
	for {
		ref, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate users")
		}
		owners = append(owners, model.OwnerID(ref.ID))
	}

	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
	return owners, nil
}

func (r *bookmarkRepository) ListByOwner(ctx context.Context, ownerID model.OwnerID) ([]*model.Bookmark, error) {
	iter := r.bookmarksCollection(ownerID).OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx)
	defer iter.Stop()

	bookmarks := make([]*model.Bookmark, 0)
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate bookmarks", goerr.V("owner_id", ownerID))
		}

		b, err := docToBookmark(doc)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal bookmark", goerr.V("bookmark_id", doc.Ref.ID))
		}
		bookmarks = append(bookmarks, b)
	}

	return bookmarks, nil
}

// WatchCreated listens on the bookmarks collection group. The first snapshot
// holds every existing document; it is delivered only when replay is set.
func (r *bookmarkRepository) WatchCreated(ctx context.Context, replay bool, fn func(ctx context.Context, bookmark *model.Bookmark) error) error {
	iter := r.client.CollectionGroup(bookmarksCollection).Snapshots(ctx)
	defer iter.Stop()

	first := true
	for {
		snap, err := iter.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}
			return goerr.Wrap(err, "failed to receive bookmark snapshot")
		}

		initial := first
		first = false
		if initial && !replay {
			logging.From(ctx).Info("skipping initial bookmark snapshot", "size", snap.Size)
			continue
		}

		for _, change := range snap.Changes {
			if change.Kind != firestore.DocumentAdded {
				continue
			}
			if !r.ownsDocument(change.Doc.Ref) {
				continue
			}

			b, err := docToBookmark(change.Doc)
			if err != nil {
				logging.From(ctx).Warn("failed to decode created bookmark", "path", change.Doc.Ref.Path, "error", err)
				continue
			}
			if err := fn(ctx, b); err != nil {
				return goerr.Wrap(err, "bookmark watch handler failed", goerr.V("bookmark_id", b.ID))
			}
		}
	}
}

// ownsDocument filters out bookmarks collections under other roots
func (r *bookmarkRepository) ownsDocument(ref *firestore.DocumentRef) bool {
	owner := ref.Parent.Parent
	return owner != nil && owner.Parent != nil && owner.Parent.ID == r.usersCollection
}
