package usecase_test

import (
	"context"
	"testing"

	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/repository/memory"
	"github.com/firebook-app/firebook/pkg/service/cache"
	"github.com/firebook-app/firebook/pkg/usecase"
	"github.com/m-mizutani/gt"
)

// seedEmbedded stores a bookmark flagged as embedded together with its vector
func seedEmbedded(t *testing.T, repo *memory.Memory, owner model.OwnerID, id, title string, tags []string, vec ...float32) *model.Bookmark {
	t.Helper()
	ctx := context.Background()

	b, err := repo.Bookmark().Create(ctx, &model.Bookmark{
		ID:                  model.BookmarkID(id),
		OwnerID:             owner,
		URL:                 "https://example.com/" + id,
		Title:               title,
		Tags:                tags,
		HasEmbedding:        true,
		EmbeddingDimensions: len(vec),
	})
	gt.NoError(t, err).Required()

	gt.NoError(t, repo.Embedding().Upsert(ctx, &model.EmbeddingRecord{
		OwnerID:    owner,
		BookmarkID: b.ID,
		Title:      title,
		URL:        b.URL,
		Embedding:  vec,
	})).Required()
	return b
}

func intPtr(v int) *int {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestGenerateEmbedding(t *testing.T) {
	ctx := context.Background()

	t.Run("embeds and flags the bookmark", func(t *testing.T) {
		f := newPipelineFixture()
		b := f.create(t, &model.Bookmark{OwnerID: "uid-1", URL: "https://go.dev", Title: "The Go Programming Language"})

		result, err := f.uc.GenerateEmbedding(ctx, "uid-1", b.ID, false)
		gt.NoError(t, err).Required()
		gt.Bool(t, result.Success).True()
		gt.Value(t, result.Dimensions).Equal(3)
		gt.Bool(t, result.Skipped).False()

		got := f.get(t, b)
		gt.Bool(t, got.HasEmbedding).True()
		gt.Value(t, got.EmbeddingGeneratedAt).Equal(fixedNow)
	})

	t.Run("existing embedding is kept unless forced", func(t *testing.T) {
		f := newPipelineFixture()
		b := seedEmbedded(t, f.repo, "uid-1", "bm-1", "The Go Programming Language", nil, 0, 1, 0)

		result, err := f.uc.GenerateEmbedding(ctx, "uid-1", b.ID, false)
		gt.NoError(t, err).Required()
		gt.Bool(t, result.Skipped).True()
		gt.Value(t, f.embedder.calls).Equal(0)

		result, err = f.uc.GenerateEmbedding(ctx, "uid-1", b.ID, true)
		gt.NoError(t, err).Required()
		gt.Bool(t, result.Skipped).False()
		gt.Value(t, f.embedder.calls).Equal(1)

		rec, err := f.repo.Embedding().Get(ctx, "uid-1", b.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, rec.Embedding).Equal([]float32{1, 0, 0})
	})

	t.Run("too little text", func(t *testing.T) {
		f := newPipelineFixture()
		b := f.create(t, &model.Bookmark{OwnerID: "uid-1", URL: "https://go.dev", Title: "Go"})

		_, err := f.uc.GenerateEmbedding(ctx, "uid-1", b.ID, false)
		gt.Error(t, err).Is(model.ErrFailedPrecondition)
		gt.Value(t, f.embedder.calls).Equal(0)

		got := f.get(t, b)
		gt.Bool(t, got.HasEmbedding).False()
		gt.String(t, got.EmbeddingError).Contains("not enough text")
	})

	t.Run("bookmark of another owner is not found", func(t *testing.T) {
		f := newPipelineFixture()
		b := f.create(t, &model.Bookmark{OwnerID: "uid-1", URL: "https://go.dev", Title: "The Go Programming Language"})

		_, err := f.uc.GenerateEmbedding(ctx, "uid-2", b.ID, false)
		gt.Error(t, err).Is(model.ErrNotFound)
		gt.Value(t, f.embedder.calls).Equal(0)
	})

	t.Run("caller is required", func(t *testing.T) {
		f := newPipelineFixture()
		_, err := f.uc.GenerateEmbedding(ctx, "", "bm-1", false)
		gt.Error(t, err).Is(model.ErrUnauthenticated)
	})

	t.Run("bookmark ID is required", func(t *testing.T) {
		f := newPipelineFixture()
		_, err := f.uc.GenerateEmbedding(ctx, "uid-1", "", false)
		gt.Error(t, err).Is(model.ErrInvalidArgument)
	})
}

func TestFindSimilar(t *testing.T) {
	ctx := context.Background()

	t.Run("threshold is inclusive and scores are rounded", func(t *testing.T) {
		f := newPipelineFixture()
		src := seedEmbedded(t, f.repo, "uid-1", "src", "Source", nil, 1, 0, 0)
		seedEmbedded(t, f.repo, "uid-1", "near", "Near", nil, 0.42, 0.9075, 0)
		seedEmbedded(t, f.repo, "uid-1", "far", "Far", nil, 0.41, 0.912, 0)
		seedEmbedded(t, f.repo, "uid-2", "foreign", "Foreign", nil, 1, 0, 0)

		results, err := f.uc.FindSimilar(ctx, "uid-1", usecase.FindSimilarInput{
			BookmarkID: src.ID,
			Threshold:  floatPtr(0.42),
		})
		gt.NoError(t, err).Required()
		gt.Array(t, results).Length(1)
		gt.Value(t, results[0].ID).Equal(model.BookmarkID("near"))
		gt.Value(t, results[0].Similarity).Equal(0.42)
		gt.Value(t, results[0].Title).Equal("Near")
	})

	t.Run("orders by similarity and applies the limit", func(t *testing.T) {
		f := newPipelineFixture()
		src := seedEmbedded(t, f.repo, "uid-1", "src", "Source", nil, 1, 0, 0)
		seedEmbedded(t, f.repo, "uid-1", "a", "A", nil, 0.6, 0.8, 0)
		seedEmbedded(t, f.repo, "uid-1", "b", "B", nil, 1, 0, 0)
		seedEmbedded(t, f.repo, "uid-1", "c", "C", nil, 0.8, 0.6, 0)

		results, err := f.uc.FindSimilar(ctx, "uid-1", usecase.FindSimilarInput{
			BookmarkID: src.ID,
			Limit:      intPtr(2),
		})
		gt.NoError(t, err).Required()
		gt.Array(t, results).Length(2)
		gt.Value(t, results[0].ID).Equal(model.BookmarkID("b"))
		gt.Value(t, results[0].Similarity).Equal(1.0)
		gt.Value(t, results[1].ID).Equal(model.BookmarkID("c"))
		gt.Value(t, results[1].Similarity).Equal(0.8)
	})

	t.Run("source itself is never returned", func(t *testing.T) {
		f := newPipelineFixture()
		src := seedEmbedded(t, f.repo, "uid-1", "src", "Source", nil, 1, 0, 0)

		results, err := f.uc.FindSimilar(ctx, "uid-1", usecase.FindSimilarInput{
			BookmarkID: src.ID,
			Threshold:  floatPtr(-1),
		})
		gt.NoError(t, err).Required()
		gt.Array(t, results).Length(0)
	})

	t.Run("bookmark without embedding", func(t *testing.T) {
		f := newPipelineFixture()
		b := f.create(t, &model.Bookmark{OwnerID: "uid-1", URL: "https://go.dev"})

		_, err := f.uc.FindSimilar(ctx, "uid-1", usecase.FindSimilarInput{BookmarkID: b.ID})
		gt.Error(t, err).Is(model.ErrNoEmbedding)
	})

	t.Run("flag set but vector row missing", func(t *testing.T) {
		f := newPipelineFixture()
		b := f.create(t, &model.Bookmark{OwnerID: "uid-1", URL: "https://go.dev", HasEmbedding: true})

		_, err := f.uc.FindSimilar(ctx, "uid-1", usecase.FindSimilarInput{BookmarkID: b.ID})
		gt.Error(t, err).Is(model.ErrNoEmbedding)
	})

	t.Run("invalid parameters", func(t *testing.T) {
		f := newPipelineFixture()
		src := seedEmbedded(t, f.repo, "uid-1", "src", "Source", nil, 1, 0, 0)

		for _, input := range []usecase.FindSimilarInput{
			{BookmarkID: ""},
			{BookmarkID: src.ID, Limit: intPtr(0)},
			{BookmarkID: src.ID, Limit: intPtr(51)},
			{BookmarkID: src.ID, Threshold: floatPtr(1.5)},
			{BookmarkID: src.ID, Threshold: floatPtr(-1.01)},
		} {
			_, err := f.uc.FindSimilar(ctx, "uid-1", input)
			gt.Error(t, err).Is(model.ErrInvalidArgument)
		}
	})

	t.Run("other owner's bookmark is not found", func(t *testing.T) {
		f := newPipelineFixture()
		src := seedEmbedded(t, f.repo, "uid-1", "src", "Source", nil, 1, 0, 0)

		_, err := f.uc.FindSimilar(ctx, "uid-2", usecase.FindSimilarInput{BookmarkID: src.ID})
		gt.Error(t, err).Is(model.ErrNotFound)
	})

	t.Run("new embedding invalidates cached results", func(t *testing.T) {
		f := newPipelineFixture(usecase.WithCache(cache.NewMemory()))
		src := seedEmbedded(t, f.repo, "uid-1", "src", "Source page about Go", nil, 0, 1, 0)
		seedEmbedded(t, f.repo, "uid-1", "x", "X", nil, 1, 0, 0)

		input := usecase.FindSimilarInput{BookmarkID: src.ID}
		results, err := f.uc.FindSimilar(ctx, "uid-1", input)
		gt.NoError(t, err).Required()
		gt.Array(t, results).Length(0)

		// Still served from cache
		seedEmbedded(t, f.repo, "uid-1", "y", "Y", nil, 0, 1, 0)
		results, err = f.uc.FindSimilar(ctx, "uid-1", input)
		gt.NoError(t, err).Required()
		gt.Array(t, results).Length(0)

		// Re-embedding the source moves it to {1,0,0}
		_, err = f.uc.GenerateEmbedding(ctx, "uid-1", src.ID, true)
		gt.NoError(t, err).Required()

		results, err = f.uc.FindSimilar(ctx, "uid-1", input)
		gt.NoError(t, err).Required()
		gt.Array(t, results).Length(1)
		gt.Value(t, results[0].ID).Equal(model.BookmarkID("x"))
	})
}

func TestSuggestSmartCollections(t *testing.T) {
	ctx := context.Background()

	t.Run("too few embeddings gives a message", func(t *testing.T) {
		f := newPipelineFixture()
		seedEmbedded(t, f.repo, "uid-1", "a", "A", nil, 1, 0, 0)
		seedEmbedded(t, f.repo, "uid-1", "b", "B", nil, 1, 0, 0)

		result, err := f.uc.SuggestSmartCollections(ctx, "uid-1", usecase.SuggestCollectionsInput{})
		gt.NoError(t, err).Required()
		gt.Array(t, result.Collections).Length(0)
		gt.Value(t, result.Message).Equal("Need at least 3 bookmarks with embeddings to suggest collections (found 2)")
	})

	t.Run("clusters are named from bookmark tags", func(t *testing.T) {
		f := newPipelineFixture()
		seedEmbedded(t, f.repo, "uid-1", "a", "A", []string{"Go", "Programming"}, 1, 0, 0)
		seedEmbedded(t, f.repo, "uid-1", "b", "B", []string{"Go", "Web"}, 0.95, 0.05, 0)
		seedEmbedded(t, f.repo, "uid-1", "c", "C", []string{"Programming", "Go"}, 0.9, 0.1, 0)
		seedEmbedded(t, f.repo, "uid-1", "d", "D", []string{"Cooking"}, 0, 1, 0)
		seedEmbedded(t, f.repo, "uid-2", "e", "E", []string{"Go"}, 1, 0, 0)

		result, err := f.uc.SuggestSmartCollections(ctx, "uid-1", usecase.SuggestCollectionsInput{
			SimilarityThreshold: floatPtr(0.7),
		})
		gt.NoError(t, err).Required()
		gt.Value(t, result.Message).Equal("")
		gt.Array(t, result.Collections).Length(1)
		gt.Value(t, result.Collections[0].Name).Equal("Go & Programming")
		gt.Value(t, result.Collections[0].BookmarkCount).Equal(3)
	})

	t.Run("invalid parameters", func(t *testing.T) {
		f := newPipelineFixture()

		_, err := f.uc.SuggestSmartCollections(ctx, "uid-1", usecase.SuggestCollectionsInput{MinClusterSize: intPtr(0)})
		gt.Error(t, err).Is(model.ErrInvalidArgument)

		_, err = f.uc.SuggestSmartCollections(ctx, "uid-1", usecase.SuggestCollectionsInput{SimilarityThreshold: floatPtr(2)})
		gt.Error(t, err).Is(model.ErrInvalidArgument)
	})
}
