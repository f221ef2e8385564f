package usecase

import (
	"context"
	"log/slog"

	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/domain/types"
	"github.com/firebook-app/firebook/pkg/service/cache"
	"github.com/firebook-app/firebook/pkg/service/describer"
	"github.com/firebook-app/firebook/pkg/service/screenshot"
	"github.com/firebook-app/firebook/pkg/service/storage"
	"github.com/firebook-app/firebook/pkg/service/tagger"
	"github.com/firebook-app/firebook/pkg/utils/logging"
	"github.com/firebook-app/firebook/pkg/utils/timing"
	"github.com/m-mizutani/goerr/v2"
)

// StageResult reports what one stage did for one bookmark
type StageResult struct {
	Stage    types.Stage
	Decision types.Decision
	Reason   string
	// Err is the failure recorded on the bookmark, if any
	Err    error
	Method types.TagMethod
	Patch  *model.BookmarkPatch
}

func (r *StageResult) Failed() bool {
	return r.Err != nil
}

type stageFunc func(ctx context.Context, b *model.Bookmark) (*StageResult, error)

func (uc *UseCases) stage(s types.Stage) stageFunc {
	switch s {
	case types.StageMetadata:
		return uc.metadataStage
	case types.StageTags:
		return uc.tagStage
	case types.StageEmbedding:
		return uc.embeddingStage
	case types.StageScreenshot:
		return uc.screenshotStage
	default:
		return nil
	}
}

func stageLogger(ctx context.Context, s types.Stage, b *model.Bookmark) *slog.Logger {
	return logging.From(ctx).With(
		OwnerIDKey, b.OwnerID,
		BookmarkIDKey, b.ID,
		StageKey, s,
	)
}

// apply writes the patch in one update and mirrors it into b so that later
// stages of the same run see the new values.
func (uc *UseCases) apply(ctx context.Context, b *model.Bookmark, patch *model.BookmarkPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	err := timing.From(ctx).Measure("firestore", "Firestore", func() error {
		return uc.repo.Bookmark().Update(ctx, b.OwnerID, b.ID, patch)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to update bookmark",
			goerr.V(OwnerIDKey, b.OwnerID), goerr.V(BookmarkIDKey, b.ID))
	}

	patch.Apply(b)
	return nil
}

// guarded runs the guard and handles Skip. It returns nil when the stage
// should go on to its I/O.
func guarded(ctx context.Context, res *StageResult, b *model.Bookmark, guard model.Guard) *StageResult {
	res.Decision, res.Reason = guard(b)
	if res.Decision == types.DecisionSkip {
		stageLogger(ctx, res.Stage, b).Debug("Stage skipped", "reason", res.Reason)
		return res
	}
	return nil
}

func (uc *UseCases) metadataStage(ctx context.Context, b *model.Bookmark) (*StageResult, error) {
	res := &StageResult{Stage: types.StageMetadata}
	if done := guarded(ctx, res, b, model.GuardMetadata); done != nil {
		return done, nil
	}
	logger := stageLogger(ctx, res.Stage, b)

	if res.Decision == types.DecisionFail {
		res.Err = goerr.New(res.Reason)
		res.Patch = model.NewMetadataFailurePatch(res.Reason, uc.timestamp())
		logger.Warn("Metadata stage rejected bookmark", "reason", res.Reason)
		return res, uc.apply(ctx, b, res.Patch)
	}

	meta := uc.fetchMetadata(ctx, b.URL)
	if meta.Fetched && meta.Description == "" {
		meta.Description = uc.describe(ctx, b, meta)
	}

	res.Patch = model.NewMetadataPatch(b, meta)
	if !meta.Fetched {
		res.Err = goerr.New(meta.Error)
		logger.Warn("Metadata fetch failed", "error", meta.Error)
	} else {
		logger.Info("Metadata fetched", "title", meta.Title, "site_name", meta.SiteName)
	}

	return res, uc.apply(ctx, b, res.Patch)
}

func (uc *UseCases) fetchMetadata(ctx context.Context, rawURL string) *model.PageMetadata {
	key := cache.URLKey(cache.NamespaceMetadata, rawURL)

	var cached model.PageMetadata
	hit := uc.cache.Get(ctx, key, &cached) && cached.Fetched
	timing.From(ctx).CacheStatus("metadata", hit)
	if hit {
		cached.FetchedAt = uc.timestamp()
		return &cached
	}

	meta := uc.metadata.Extract(ctx, rawURL)
	if meta.Fetched {
		uc.cache.Set(ctx, key, meta, cache.NamespaceMetadata.TTL())
	}
	return meta
}

// describe asks the LLM for a description when the page has none. Any
// failure leaves the description empty.
func (uc *UseCases) describe(ctx context.Context, b *model.Bookmark, meta *model.PageMetadata) string {
	if uc.describer == nil {
		return ""
	}

	title := b.Title
	if model.IsBlank(title) {
		title = meta.Title
	}
	key := cache.Key(cache.NamespaceDescription, title, b.URL)

	var desc string
	if uc.cache.Get(ctx, key, &desc) && desc != "" {
		return desc
	}

	desc, err := uc.describer.Describe(ctx, describer.Input{
		Title:    title,
		URL:      b.URL,
		SiteName: meta.SiteName,
	})
	if err != nil {
		stageLogger(ctx, types.StageMetadata, b).Warn("Description generation failed", "error", err)
		return ""
	}

	uc.cache.Set(ctx, key, desc, cache.NamespaceDescription.TTL())
	return desc
}

func (uc *UseCases) tagStage(ctx context.Context, b *model.Bookmark) (*StageResult, error) {
	res := &StageResult{Stage: types.StageTags}
	if done := guarded(ctx, res, b, model.GuardTags); done != nil {
		return done, nil
	}
	logger := stageLogger(ctx, res.Stage, b)

	if res.Decision == types.DecisionFail {
		res.Err = goerr.New(res.Reason)
		res.Patch = model.NewTagFailurePatch(res.Reason, uc.timestamp())
		logger.Warn("Tag stage rejected bookmark", "reason", res.Reason)
		return res, uc.apply(ctx, b, res.Patch)
	}

	result, err := uc.suggestTags(ctx, b)
	if err != nil {
		res.Err = err
		res.Patch = model.NewTagFailurePatch(err.Error(), uc.timestamp())
		logger.Warn("Tag suggestion failed", "error", err)
		return res, uc.apply(ctx, b, res.Patch)
	}

	res.Method = result.Method
	res.Patch = model.NewTagPatch(result.Tags, result.Method, uc.timestamp())
	logger.Info("Tags suggested", "tags", result.Tags, "method", result.Method)
	return res, uc.apply(ctx, b, res.Patch)
}

func (uc *UseCases) suggestTags(ctx context.Context, b *model.Bookmark) (*tagger.Result, error) {
	key := cache.Key(cache.NamespaceTags, b.Title, b.Description, b.URL)

	var cached tagger.Result
	hit := uc.cache.Get(ctx, key, &cached) && cached.Method != ""
	timing.From(ctx).CacheStatus("tags", hit)
	if hit {
		return &cached, nil
	}

	result, err := uc.tagger.Suggest(ctx, b.Title, b.Description, b.URL)
	if err != nil {
		return nil, err
	}
	uc.cache.Set(ctx, key, result, cache.NamespaceTags.TTL())
	return result, nil
}

func (uc *UseCases) embeddingStage(ctx context.Context, b *model.Bookmark) (*StageResult, error) {
	res := &StageResult{Stage: types.StageEmbedding}
	if uc.embedder == nil {
		res.Decision, res.Reason = types.DecisionSkip, "embedding is not configured"
		return res, nil
	}
	if done := guarded(ctx, res, b, model.GuardEmbedding); done != nil {
		return done, nil
	}
	logger := stageLogger(ctx, res.Stage, b)

	dims, err := uc.storeEmbedding(ctx, b)
	if err != nil {
		// Embedding is optional; the failure is recorded and the chain goes on.
		res.Err = err
		res.Patch = model.NewEmbeddingFailurePatch(err.Error(), uc.timestamp())
		logger.Warn("Embedding generation failed", "error", err)
		return res, uc.apply(ctx, b, res.Patch)
	}

	res.Patch = model.NewEmbeddingPatch(dims, uc.timestamp())
	logger.Info("Embedding stored", "dimensions", dims)
	return res, uc.apply(ctx, b, res.Patch)
}

// storeEmbedding embeds the bookmark text and upserts it into the vector
// store. It returns the vector dimension.
func (uc *UseCases) storeEmbedding(ctx context.Context, b *model.Bookmark) (int, error) {
	if uc.embedder == nil {
		return 0, goerr.Wrap(ErrStageNotConfigured, "embedding provider is not configured")
	}

	text := model.BuildEmbeddingText(b.Title, b.Description, b.AllTags())
	if len(text) < model.MinEmbeddingTextLength {
		return 0, goerr.Wrap(model.ErrFailedPrecondition, "not enough text to embed",
			goerr.V(BookmarkIDKey, b.ID), goerr.V("length", len(text)))
	}

	vec, err := uc.embed(ctx, text)
	if err != nil {
		return 0, err
	}

	record := &model.EmbeddingRecord{
		OwnerID:     b.OwnerID,
		BookmarkID:  b.ID,
		Title:       b.Title,
		URL:         b.URL,
		Description: b.Description,
		Embedding:   vec,
		UpdatedAt:   uc.timestamp(),
	}
	err = timing.From(ctx).Measure("vector", "Vector store", func() error {
		return uc.embeddings.Upsert(ctx, record)
	})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to upsert embedding",
			goerr.V(OwnerIDKey, b.OwnerID), goerr.V(BookmarkIDKey, b.ID))
	}

	uc.cache.Delete(ctx, similarKey(b.OwnerID, b.ID))
	return len(vec), nil
}

func (uc *UseCases) embed(ctx context.Context, text string) ([]float32, error) {
	key := cache.Key(cache.NamespaceEmbedding, text)

	var cached []float32
	hit := uc.cache.Get(ctx, key, &cached) && len(cached) > 0
	timing.From(ctx).CacheStatus("embedding", hit)
	if hit {
		return cached, nil
	}

	var vec []float32
	err := timing.From(ctx).Measure("embedding", "Embedding", func() error {
		var err error
		vec, err = uc.embedder.Embed(ctx, text)
		return err
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate embedding")
	}

	uc.cache.Set(ctx, key, vec, cache.NamespaceEmbedding.TTL())
	return vec, nil
}

func (uc *UseCases) screenshotStage(ctx context.Context, b *model.Bookmark) (*StageResult, error) {
	res := &StageResult{Stage: types.StageScreenshot}
	if uc.screenshot == nil || uc.storage == nil {
		res.Decision, res.Reason = types.DecisionSkip, "screenshot is not configured"
		return res, nil
	}
	if done := guarded(ctx, res, b, model.GuardScreenshot); done != nil {
		return done, nil
	}
	logger := stageLogger(ctx, res.Stage, b)

	fail := func(err error, category types.ScreenshotErrorCategory) (*StageResult, error) {
		res.Err = err
		res.Patch = model.NewScreenshotFailurePatch(err.Error(), category, uc.timestamp())
		logger.Warn("Screenshot failed", "category", category, "error", err)
		return res, uc.apply(ctx, b, res.Patch)
	}

	if res.Decision == types.DecisionFail {
		return fail(goerr.New(res.Reason), types.ScreenshotErrorInvalidURL)
	}

	data, err := uc.screenshot.Capture(ctx, b.URL)
	if err != nil {
		return fail(err, screenshot.CategoryOf(err))
	}

	publicURL, err := uc.storage.Put(ctx, storage.ScreenshotPath(string(b.OwnerID), string(b.ID)), data, "image/jpeg")
	if err != nil {
		return fail(goerr.Wrap(err, "failed to upload screenshot"), types.ScreenshotErrorUnknown)
	}

	res.Patch = model.NewScreenshotPatch(publicURL, uc.timestamp())
	logger.Info("Screenshot captured", "url", publicURL, "bytes", len(data))
	return res, uc.apply(ctx, b, res.Patch)
}
