package usecase

import (
	"context"
	"fmt"

	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/utils/logging"
	"github.com/firebook-app/firebook/pkg/utils/timing"
	"github.com/m-mizutani/goerr/v2"
)

// SuggestCollectionsInput holds the suggestSmartCollections parameters. Nil
// fields take the defaults.
type SuggestCollectionsInput struct {
	MinClusterSize      *int
	SimilarityThreshold *float64
}

// CollectionSuggestion is the suggestSmartCollections result
type CollectionSuggestion struct {
	Collections []model.Cluster `json:"collections"`
	Message     string          `json:"message,omitempty"`
}

// SuggestSmartCollections clusters all of the owner's embedded bookmarks.
// Items are fed to the clustering in bookmark ID order, which the vector
// stores guarantee, so the same data always gives the same suggestion.
func (uc *UseCases) SuggestSmartCollections(ctx context.Context, ownerID model.OwnerID, input SuggestCollectionsInput) (*CollectionSuggestion, error) {
	if ownerID == "" {
		return nil, goerr.Wrap(model.ErrUnauthenticated, "owner is required")
	}

	minSize := model.DefaultClusterMinSize
	if input.MinClusterSize != nil {
		minSize = *input.MinClusterSize
	}
	if minSize < 1 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "minClusterSize must be at least 1", goerr.V("min_cluster_size", minSize))
	}

	threshold := model.DefaultClusterThreshold
	if input.SimilarityThreshold != nil {
		threshold = *input.SimilarityThreshold
	}
	if threshold < -1 || threshold > 1 {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "similarityThreshold must be between -1 and 1",
			goerr.V("threshold", threshold))
	}

	var records []*model.EmbeddingRecord
	err := timing.From(ctx).Measure("vector", "Vector store", func() error {
		var err error
		records, err = uc.embeddings.ListByOwner(ctx, ownerID)
		return err
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list embeddings", goerr.V(OwnerIDKey, ownerID))
	}

	if len(records) < minSize {
		return &CollectionSuggestion{
			Collections: []model.Cluster{},
			Message:     fmt.Sprintf("Need at least %d bookmarks with embeddings to suggest collections (found %d)", minSize, len(records)),
		}, nil
	}

	ids := make([]model.BookmarkID, len(records))
	for i, r := range records {
		ids[i] = r.BookmarkID
	}

	var bookmarks map[model.BookmarkID]*model.Bookmark
	err = timing.From(ctx).Measure("firestore", "Firestore", func() error {
		var err error
		bookmarks, err = uc.repo.Bookmark().GetMany(ctx, ownerID, ids)
		return err
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get bookmark tags", goerr.V(OwnerIDKey, ownerID))
	}

	items := make([]model.ClusterItem, 0, len(records))
	for _, r := range records {
		item := model.ClusterItem{
			ID:        r.BookmarkID,
			Title:     r.Title,
			URL:       r.URL,
			Embedding: r.Embedding,
		}
		// Rows whose bookmark was deleted still cluster, just without tags.
		if b, ok := bookmarks[r.BookmarkID]; ok {
			item.Tags = b.AllTags()
		}
		items = append(items, item)
	}

	clusters := model.GreedyClusters(items, threshold, minSize)
	logging.From(ctx).Info("Smart collections suggested",
		OwnerIDKey, ownerID,
		"embeddings", len(records),
		"clusters", len(clusters),
		"threshold", threshold,
		"min_size", minSize)

	return &CollectionSuggestion{Collections: clusters}, nil
}
