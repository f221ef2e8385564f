package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const distanceResultField = "vectorDistance"

// maxNearestLimit is the upper bound FindNearest accepts
const maxNearestLimit = 1000

// embeddingDoc lives at users/{uid}/embeddings/{bookmarkId}, apart from the
// bookmark document so clients never read the vector.
type embeddingDoc struct {
	Title       string             `firestore:"title"`
	URL         string             `firestore:"url"`
	Description string             `firestore:"description"`
	Embedding   firestore.Vector32 `firestore:"embedding"`
	UpdatedAt   time.Time          `firestore:"updatedAt"`
}

func docToEmbedding(ownerID model.OwnerID, doc *firestore.DocumentSnapshot) (*model.EmbeddingRecord, error) {
	var d embeddingDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, err
	}
	return &model.EmbeddingRecord{
		OwnerID:     ownerID,
		BookmarkID:  model.BookmarkID(doc.Ref.ID),
		Title:       d.Title,
		URL:         d.URL,
		Description: d.Description,
		Embedding:   []float32(d.Embedding),
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

type embeddingRepository struct {
	client          *firestore.Client
	usersCollection string
}

func newEmbeddingRepository(client *firestore.Client) *embeddingRepository {
	return &embeddingRepository{
		client:          client,
		usersCollection: usersCollection,
	}
}

func (r *embeddingRepository) embeddingsCollection(ownerID model.OwnerID) *firestore.CollectionRef {
	return r.client.Collection(r.usersCollection).Doc(string(ownerID)).Collection(embeddingsCollection)
}

func (r *embeddingRepository) Upsert(ctx context.Context, record *model.EmbeddingRecord) error {
	if len(record.Embedding) == 0 {
		return goerr.Wrap(model.ErrEmptyEmbedding, "refusing to store empty embedding",
			goerr.V("bookmark_id", record.BookmarkID))
	}

	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	doc := &embeddingDoc{
		Title:       record.Title,
		URL:         record.URL,
		Description: record.Description,
		Embedding:   firestore.Vector32(record.Embedding),
		UpdatedAt:   updatedAt,
	}
	if _, err := r.embeddingsCollection(record.OwnerID).Doc(string(record.BookmarkID)).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to upsert embedding",
			goerr.V("owner_id", record.OwnerID), goerr.V("bookmark_id", record.BookmarkID))
	}
	return nil
}

func (r *embeddingRepository) Get(ctx context.Context, ownerID model.OwnerID, bookmarkID model.BookmarkID) (*model.EmbeddingRecord, error) {
	doc, err := r.embeddingsCollection(ownerID).Doc(string(bookmarkID)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "embedding not found",
				goerr.V("owner_id", ownerID), goerr.V("bookmark_id", bookmarkID))
		}
		return nil, goerr.Wrap(err, "failed to get embedding", goerr.V("bookmark_id", bookmarkID))
	}

	rec, err := docToEmbedding(ownerID, doc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal embedding", goerr.V("bookmark_id", bookmarkID))
	}
	return rec, nil
}

// FindSimilar uses FindNearest with cosine distance. Similarity is
// 1 - distance, so the threshold becomes a maximum distance.
func (r *embeddingRepository) FindSimilar(ctx context.Context, ownerID model.OwnerID, embedding []float32, exclude model.BookmarkID, threshold float64, limit int) ([]*model.Neighbor, error) {
	if limit <= 0 {
		return []*model.Neighbor{}, nil
	}

	maxDistance := 1 - threshold
	queryLimit := min(limit+1, maxNearestLimit)
	vq := r.embeddingsCollection(ownerID).
		FindNearest("embedding", firestore.Vector32(embedding), queryLimit, firestore.DistanceMeasureCosine,
			&firestore.FindNearestOptions{
				DistanceThreshold:   &maxDistance,
				DistanceResultField: distanceResultField,
			})

	iter := vq.Documents(ctx)
	defer iter.Stop()

	neighbors := make([]*model.Neighbor, 0, limit)
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate vector search results", goerr.V("owner_id", ownerID))
		}
		if model.BookmarkID(doc.Ref.ID) == exclude {
			continue
		}

		rec, err := docToEmbedding(ownerID, doc)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal embedding from vector search")
		}

		distance, _ := doc.Data()[distanceResultField].(float64)
		similarity := 1 - distance
		if similarity < threshold {
			continue
		}

		neighbors = append(neighbors, &model.Neighbor{
			BookmarkID: rec.BookmarkID,
			Title:      rec.Title,
			URL:        rec.URL,
			Similarity: similarity,
		})
		if len(neighbors) >= limit {
			break
		}
	}

	return neighbors, nil
}

func (r *embeddingRepository) ListByOwner(ctx context.Context, ownerID model.OwnerID) ([]*model.EmbeddingRecord, error) {
	iter := r.embeddingsCollection(ownerID).OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx)
	defer iter.Stop()

	records := make([]*model.EmbeddingRecord, 0)
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate embeddings", goerr.V("owner_id", ownerID))
		}

		rec, err := docToEmbedding(ownerID, doc)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal embedding", goerr.V("bookmark_id", doc.Ref.ID))
		}
		records = append(records, rec)
	}

	return records, nil
}

func (r *embeddingRepository) Delete(ctx context.Context, ownerID model.OwnerID, bookmarkID model.BookmarkID) error {
	if _, err := r.embeddingsCollection(ownerID).Doc(string(bookmarkID)).Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete embedding",
			goerr.V("owner_id", ownerID), goerr.V("bookmark_id", bookmarkID))
	}
	return nil
}
