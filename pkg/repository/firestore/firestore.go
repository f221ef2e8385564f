package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/firebook-app/firebook/pkg/domain/interfaces"
	"github.com/m-mizutani/goerr/v2"
)

const (
	usersCollection      = "users"
	bookmarksCollection  = "bookmarks"
	embeddingsCollection = "embeddings"
)

type Firestore struct {
	client    *firestore.Client
	bookmark  *bookmarkRepository
	embedding *embeddingRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix prefixes the root users collection, e.g. for test isolation
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.bookmark.usersCollection = prefix + usersCollection
		f.embedding.usersCollection = prefix + usersCollection
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	f := &Firestore{
		client:    client,
		bookmark:  newBookmarkRepository(client),
		embedding: newEmbeddingRepository(client),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) Bookmark() interfaces.BookmarkRepository {
	return f.bookmark
}

func (f *Firestore) Embedding() interfaces.EmbeddingRepository {
	return f.embedding
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
