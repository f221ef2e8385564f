package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/service/cache"
	"github.com/firebook-app/firebook/pkg/utils/logging"
	"github.com/firebook-app/firebook/pkg/utils/timing"
	"github.com/m-mizutani/goerr/v2"
)

// GenerateEmbeddingResult is returned by the generateEmbedding callable
type GenerateEmbeddingResult struct {
	Success    bool `json:"success"`
	Dimensions int  `json:"dimensions"`
	// Skipped is true when the bookmark already had an embedding
	Skipped bool `json:"skipped,omitempty"`
}

// GenerateEmbedding embeds one of the caller's bookmarks on demand. An
// existing embedding is kept unless force is set.
func (uc *UseCases) GenerateEmbedding(ctx context.Context, ownerID model.OwnerID, id model.BookmarkID, force bool) (*GenerateEmbeddingResult, error) {
	if id == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "bookmarkId is required")
	}

	b, err := uc.getBookmark(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if b.HasEmbedding && !force {
		return &GenerateEmbeddingResult{Success: true, Dimensions: b.EmbeddingDimensions, Skipped: true}, nil
	}

	dims, err := uc.storeEmbedding(ctx, b)
	if err != nil {
		patch := model.NewEmbeddingFailurePatch(err.Error(), uc.timestamp())
		if applyErr := uc.apply(ctx, b, patch); applyErr != nil {
			logging.From(ctx).Warn("Failed to record embedding failure", "error", applyErr)
		}
		return nil, err
	}

	if err := uc.apply(ctx, b, model.NewEmbeddingPatch(dims, uc.timestamp())); err != nil {
		return nil, err
	}

	return &GenerateEmbeddingResult{Success: true, Dimensions: dims}, nil
}

// FindSimilarInput holds the findSimilar callable parameters. Nil limit and
// threshold take the defaults.
type FindSimilarInput struct {
	BookmarkID model.BookmarkID
	Limit      *int
	Threshold  *float64
}

// FindSimilar returns the caller's bookmarks most similar to the given one
func (uc *UseCases) FindSimilar(ctx context.Context, ownerID model.OwnerID, input FindSimilarInput) ([]model.SimilarityResult, error) {
	if input.BookmarkID == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "bookmarkId is required")
	}

	limit := model.DefaultSimilarLimit
	if input.Limit != nil {
		limit = *input.Limit
	}
	if limit < 1 || limit > model.MaxSimilarLimit {
		return nil, goerr.Wrap(model.ErrInvalidArgument, fmt.Sprintf("limit must be between 1 and %d", model.MaxSimilarLimit),
			goerr.V("limit", limit))
	}

	threshold := model.DefaultSimilarThreshold
	if input.Threshold != nil {
		threshold = *input.Threshold
	}
	if threshold < -1 || threshold > 1 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "threshold must be between -1 and 1",
			goerr.V("threshold", threshold))
	}

	b, err := uc.getBookmark(ctx, ownerID, input.BookmarkID)
	if err != nil {
		return nil, err
	}
	if !b.HasEmbedding {
		return nil, goerr.Wrap(model.ErrNoEmbedding, "generate an embedding for this bookmark first",
			goerr.V(BookmarkIDKey, b.ID))
	}

	key := similarKey(ownerID, b.ID)
	variant := fmt.Sprintf("%d:%g", limit, threshold)

	var cached map[string][]model.SimilarityResult
	if !uc.cache.Get(ctx, key, &cached) {
		cached = nil
	}
	if results, ok := cached[variant]; ok {
		timing.From(ctx).CacheStatus("similar", true)
		return results, nil
	}
	timing.From(ctx).CacheStatus("similar", false)

	var record *model.EmbeddingRecord
	err = timing.From(ctx).Measure("vector", "Vector store", func() error {
		var err error
		record, err = uc.embeddings.Get(ctx, ownerID, b.ID)
		return err
	})
	if errors.Is(err, model.ErrNotFound) {
		return nil, goerr.Wrap(model.ErrNoEmbedding, "embedding row is missing", goerr.V(BookmarkIDKey, b.ID))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get embedding", goerr.V(BookmarkIDKey, b.ID))
	}

	var neighbors []*model.Neighbor
	err = timing.From(ctx).Measure("vector", "Vector search", func() error {
		var err error
		neighbors, err = uc.embeddings.FindSimilar(ctx, ownerID, record.Embedding, b.ID, threshold, limit)
		return err
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find similar bookmarks", goerr.V(BookmarkIDKey, b.ID))
	}

	results := make([]model.SimilarityResult, 0, len(neighbors))
	for _, n := range neighbors {
		if n.BookmarkID == b.ID || n.Similarity < threshold {
			continue
		}
		results = append(results, model.SimilarityResult{
			ID:         n.BookmarkID,
			Title:      n.Title,
			URL:        n.URL,
			Similarity: model.RoundSimilarity(n.Similarity),
		})
	}

	if cached == nil {
		cached = make(map[string][]model.SimilarityResult)
	}
	cached[variant] = results
	uc.cache.Set(ctx, key, cached, cache.NamespaceSimilar.TTL())

	return results, nil
}

// similarKey holds every cached limit/threshold variant of one bookmark's
// results, so that a new embedding invalidates them with one delete.
func similarKey(ownerID model.OwnerID, id model.BookmarkID) string {
	return cache.Key(cache.NamespaceSimilar, string(ownerID), string(id))
}

// getBookmark reads one of the owner's bookmarks. Bookmarks of other owners
// are not visible and report not found.
func (uc *UseCases) getBookmark(ctx context.Context, ownerID model.OwnerID, id model.BookmarkID) (*model.Bookmark, error) {
	if ownerID == "" {
		return nil, goerr.Wrap(model.ErrUnauthenticated, "owner is required")
	}

	var b *model.Bookmark
	err := timing.From(ctx).Measure("firestore", "Firestore", func() error {
		var err error
		b, err = uc.repo.Bookmark().Get(ctx, ownerID, id)
		return err
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get bookmark", goerr.V(BookmarkIDKey, id))
	}
	return b, nil
}
