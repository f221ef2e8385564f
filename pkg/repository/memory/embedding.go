package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

type embeddingKey struct {
	ownerID    model.OwnerID
	bookmarkID model.BookmarkID
}

// embeddingRepository computes similarity naively in a loop. It is the
// reference the database-backed stores are tested against.
type embeddingRepository struct {
	mu      sync.RWMutex
	records map[embeddingKey]*model.EmbeddingRecord
}

func newEmbeddingRepository() *embeddingRepository {
	return &embeddingRepository{
		records: make(map[embeddingKey]*model.EmbeddingRecord),
	}
}

func copyEmbedding(rec *model.EmbeddingRecord) *model.EmbeddingRecord {
	copied := *rec
	if rec.Embedding != nil {
		copied.Embedding = make([]float32, len(rec.Embedding))
		copy(copied.Embedding, rec.Embedding)
	}
	return &copied
}

func (r *embeddingRepository) Upsert(ctx context.Context, record *model.EmbeddingRecord) error {
	if len(record.Embedding) == 0 {
		return goerr.Wrap(model.ErrEmptyEmbedding, "refusing to store empty embedding",
			goerr.V("bookmark_id", record.BookmarkID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyEmbedding(record)
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now().UTC()
	}
	r.records[embeddingKey{record.OwnerID, record.BookmarkID}] = stored
	return nil
}

func (r *embeddingRepository) Get(ctx context.Context, ownerID model.OwnerID, bookmarkID model.BookmarkID) (*model.EmbeddingRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[embeddingKey{ownerID, bookmarkID}]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "embedding not found",
			goerr.V("owner_id", ownerID), goerr.V("bookmark_id", bookmarkID))
	}
	return copyEmbedding(rec), nil
}

func (r *embeddingRepository) FindSimilar(ctx context.Context, ownerID model.OwnerID, embedding []float32, exclude model.BookmarkID, threshold float64, limit int) ([]*model.Neighbor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	neighbors := make([]*model.Neighbor, 0)
	for key, rec := range r.records {
		if key.ownerID != ownerID || key.bookmarkID == exclude {
			continue
		}
		similarity := model.CosineSimilarity(embedding, rec.Embedding)
		if similarity < threshold {
			continue
		}
		neighbors = append(neighbors, &model.Neighbor{
			BookmarkID: rec.BookmarkID,
			Title:      rec.Title,
			URL:        rec.URL,
			Similarity: similarity,
		})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Similarity != neighbors[j].Similarity {
			return neighbors[i].Similarity > neighbors[j].Similarity
		}
		return neighbors[i].BookmarkID < neighbors[j].BookmarkID
	})

	if limit >= 0 && len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}
	return neighbors, nil
}

func (r *embeddingRepository) ListByOwner(ctx context.Context, ownerID model.OwnerID) ([]*model.EmbeddingRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]*model.EmbeddingRecord, 0)
	for key, rec := range r.records {
		if key.ownerID == ownerID {
			records = append(records, copyEmbedding(rec))
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].BookmarkID < records[j].BookmarkID })
	return records, nil
}

func (r *embeddingRepository) Delete(ctx context.Context, ownerID model.OwnerID, bookmarkID model.BookmarkID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, embeddingKey{ownerID, bookmarkID})
	return nil
}
