package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/domain/types"
	"github.com/firebook-app/firebook/pkg/repository/memory"
	"github.com/firebook-app/firebook/pkg/service/cache"
	"github.com/firebook-app/firebook/pkg/service/describer"
	"github.com/firebook-app/firebook/pkg/service/screenshot"
	"github.com/firebook-app/firebook/pkg/service/storage"
	"github.com/firebook-app/firebook/pkg/service/tagger"
	"github.com/firebook-app/firebook/pkg/usecase"
	"github.com/m-mizutani/gt"
)

type pipelineFixture struct {
	repo      *memory.Memory
	meta      *mockMetadata
	tagger    *mockTagger
	embedder  *mockEmbedder
	describer *mockDescriber
	shot      *mockScreenshot
	blobs     *storage.Memory
	cdn       *mockCDN
	uc        *usecase.UseCases
}

func newPipelineFixture(opts ...usecase.Option) *pipelineFixture {
	f := &pipelineFixture{
		repo:      memory.New(),
		meta:      &mockMetadata{},
		tagger:    &mockTagger{},
		embedder:  &mockEmbedder{},
		describer: &mockDescriber{},
		shot:      &mockScreenshot{},
		blobs:     storage.NewMemory("https://blob.test"),
		cdn:       &mockCDN{},
	}
	base := []usecase.Option{
		usecase.WithMetadata(f.meta),
		usecase.WithTagger(f.tagger),
		usecase.WithEmbedder(f.embedder),
		usecase.WithDescriber(f.describer),
		usecase.WithScreenshot(f.shot),
		usecase.WithBlobStorage(f.blobs),
		usecase.WithCDN(f.cdn),
		usecase.WithClock(clock),
	}
	f.uc = usecase.New(f.repo, append(base, opts...)...)
	return f
}

func (f *pipelineFixture) create(t *testing.T, b *model.Bookmark) *model.Bookmark {
	t.Helper()
	created, err := f.repo.Bookmark().Create(context.Background(), b)
	gt.NoError(t, err).Required()
	return created
}

func (f *pipelineFixture) get(t *testing.T, b *model.Bookmark) *model.Bookmark {
	t.Helper()
	got, err := f.repo.Bookmark().Get(context.Background(), b.OwnerID, b.ID)
	gt.NoError(t, err).Required()
	return got
}

func TestEnrich(t *testing.T) {
	ctx := context.Background()

	t.Run("runs metadata, tags and embedding in order", func(t *testing.T) {
		f := newPipelineFixture()
		b := f.create(t, &model.Bookmark{OwnerID: "uid-1", URL: "https://go.dev/tips"})

		results, err := f.uc.Enrich(ctx, b.OwnerID, b.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, results).Length(3)
		gt.Value(t, results[0].Stage).Equal(types.StageMetadata)
		gt.Value(t, results[1].Stage).Equal(types.StageTags)
		gt.Value(t, results[2].Stage).Equal(types.StageEmbedding)

		got := f.get(t, b)
		gt.Bool(t, got.Fetched).True()
		gt.Value(t, got.Title).Equal("Go Tips")
		gt.Value(t, got.FetchedAt).Equal(fixedNow)
		gt.Bool(t, got.AutoTagged).True()
		gt.Value(t, got.SuggestedTags).Equal([]string{"Go", "Programming"})
		gt.Value(t, got.AutoTagMethod).Equal(types.TagMethodNLP)
		gt.Bool(t, got.HasEmbedding).True()
		gt.Value(t, got.EmbeddingDimensions).Equal(3)

		// Suggested tags are part of the embedded text
		gt.Value(t, f.embedder.texts).Equal([]string{"Go Tips Learn Go the practical way with short tips Go Programming"})

		rec, err := f.repo.Embedding().Get(ctx, b.OwnerID, b.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, rec.Embedding).Equal([]float32{1, 0, 0})
		gt.Value(t, rec.Title).Equal("Go Tips")

		gt.Value(t, f.cdn.purged).Equal([]string{string(b.ID)})
	})

	t.Run("second run does not repeat any stage", func(t *testing.T) {
		f := newPipelineFixture()
		b := f.create(t, &model.Bookmark{OwnerID: "uid-1", URL: "https://go.dev/tips"})

		_, err := f.uc.Enrich(ctx, b.OwnerID, b.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, f.meta.count()).Equal(1)

		results, err := f.uc.Enrich(ctx, b.OwnerID, b.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, f.meta.count()).Equal(1)
		gt.Value(t, f.tagger.calls).Equal(1)
		gt.Value(t, f.embedder.calls).Equal(1)
		for _, res := range results {
			gt.Value(t, res.Decision).Equal(types.DecisionSkip)
		}
		gt.Array(t, f.cdn.purged).Length(1)
	})

	t.Run("user title is kept", func(t *testing.T) {
		f := newPipelineFixture()
		b := f.create(t, &model.Bookmark{OwnerID: "uid-1", URL: "https://go.dev/tips", Title: "My Go notes"})

		_, err := f.uc.Enrich(ctx, b.OwnerID, b.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, f.get(t, b).Title).Equal("My Go notes")
	})

	t.Run("metadata failure is recorded without a description and the chain continues", func(t *testing.T) {
		f := newPipelineFixture()
		f.meta.extractFn = func(ctx context.Context, rawURL string) *model.PageMetadata {
			return &model.PageMetadata{Fetched: false, FetchedAt: fixedNow, Error: "HTTP 503"}
		}
		b := f.create(t, &model.Bookmark{OwnerID: "uid-1", URL: "https://down.example.com/page", Title: "Down page"})

		results, err := f.uc.Enrich(ctx, b.OwnerID, b.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, results[0].Failed()).True()

		got := f.get(t, b)
		gt.Bool(t, got.Fetched).False()
		gt.Value(t, got.FetchError).Equal("HTTP 503")
		gt.Value(t, got.FetchedAt).Equal(fixedNow)
		gt.Bool(t, got.AutoTagged).True()
		gt.Value(t, got.Description).Equal("")
		gt.Value(t, f.describer.calls).Equal(0)
	})

	t.Run("tag failure leaves the stage retryable", func(t *testing.T) {
		f := newPipelineFixture()
		f.tagger.suggestFn = func(ctx context.Context, title, description, rawURL string) (*tagger.Result, error) {
			return nil, errors.New("language API unavailable")
		}
		b := f.create(t, &model.Bookmark{OwnerID: "uid-1", URL: "https://go.dev/tips"})

		results, err := f.uc.Enrich(ctx, b.OwnerID, b.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, results[1].Failed()).True()

		got := f.get(t, b)
		gt.Bool(t, got.AutoTagged).False()
		gt.String(t, got.AutoTagError).Contains("language API unavailable")
		gt.Value(t, got.AutoTagAttemptedAt).Equal(fixedNow)
		gt.Bool(t, got.HasEmbedding).True()

		f.tagger.suggestFn = nil
		_, err = f.uc.Enrich(ctx, b.OwnerID, b.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, f.get(t, b).AutoTagged).True()
	})

	t.Run("embedding failure does not fail the chain", func(t *testing.T) {
		f := newPipelineFixture()
		f.embedder.embedFn = func(ctx context.Context, text string) ([]float32, error) {
			return nil, model.ErrEmptyEmbedding
		}
		b := f.create(t, &model.Bookmark{OwnerID: "uid-1", URL: "https://go.dev/tips"})

		results, err := f.uc.Enrich(ctx, b.OwnerID, b.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, results[2].Failed()).True()

		got := f.get(t, b)
		gt.Bool(t, got.HasEmbedding).False()
		gt.Value(t, got.EmbeddingAttemptedAt).Equal(fixedNow)
		gt.String(t, got.EmbeddingError).Contains("no vector")
		gt.Bool(t, got.Fetched).True()
		gt.Bool(t, got.AutoTagged).True()

		_, err = f.repo.Embedding().Get(ctx, b.OwnerID, b.ID)
		gt.Error(t, err).Is(model.ErrNotFound)
	})

	t.Run("description is generated when the page has none", func(t *testing.T) {
		f := newPipelineFixture()
		f.meta.extractFn = func(ctx context.Context, rawURL string) *model.PageMetadata {
			return &model.PageMetadata{Title: "Go Tips", Fetched: true, FetchedAt: fixedNow}
		}
		f.describer.describeFn = func(ctx context.Context, input describer.Input) (string, error) {
			gt.Value(t, input.Title).Equal("Go Tips")
			gt.Value(t, input.URL).Equal("https://go.dev/tips")
			return "Short practical tips for Go developers.", nil
		}
		b := f.create(t, &model.Bookmark{OwnerID: "uid-1", URL: "https://go.dev/tips"})

		_, err := f.uc.Enrich(ctx, b.OwnerID, b.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, f.get(t, b).Description).Equal("Short practical tips for Go developers.")
	})

	t.Run("description failure is ignored", func(t *testing.T) {
		f := newPipelineFixture()
		f.meta.extractFn = func(ctx context.Context, rawURL string) *model.PageMetadata {
			return &model.PageMetadata{Title: "Go Tips", Fetched: true, FetchedAt: fixedNow}
		}
		f.describer.describeFn = func(ctx context.Context, input describer.Input) (string, error) {
			return "", errors.New("quota")
		}
		b := f.create(t, &model.Bookmark{OwnerID: "uid-1", URL: "https://go.dev/tips"})

		results, err := f.uc.Enrich(ctx, b.OwnerID, b.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, results[0].Failed()).False()

		got := f.get(t, b)
		gt.Bool(t, got.Fetched).True()
		gt.Value(t, got.Description).Equal("")
	})

	t.Run("cached metadata skips the fetch", func(t *testing.T) {
		c := cache.NewMemory()
		f := newPipelineFixture(usecase.WithCache(c))
		b1 := f.create(t, &model.Bookmark{OwnerID: "uid-1", URL: "https://go.dev/tips"})
		b2 := f.create(t, &model.Bookmark{OwnerID: "uid-2", URL: "https://www.go.dev/tips/"})

		_, err := f.uc.Enrich(ctx, b1.OwnerID, b1.ID)
		gt.NoError(t, err).Required()
		_, err = f.uc.Enrich(ctx, b2.OwnerID, b2.ID)
		gt.NoError(t, err).Required()

		gt.Value(t, f.meta.count()).Equal(1)
		gt.Value(t, f.get(t, b2).Title).Equal("Go Tips")
	})

	t.Run("embedding is skipped when not configured", func(t *testing.T) {
		f := newPipelineFixture()
		uc := usecase.New(f.repo, usecase.WithMetadata(f.meta), usecase.WithTagger(f.tagger), usecase.WithClock(clock))
		b := f.create(t, &model.Bookmark{OwnerID: "uid-1", URL: "https://go.dev/tips"})

		results, err := uc.Enrich(ctx, b.OwnerID, b.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, results[2].Decision).Equal(types.DecisionSkip)
		gt.Bool(t, f.get(t, b).HasEmbedding).False()
	})

	t.Run("missing bookmark", func(t *testing.T) {
		f := newPipelineFixture()
		_, err := f.uc.Enrich(ctx, "uid-1", "nope")
		gt.Error(t, err).Is(model.ErrNotFound)
	})

	t.Run("purge failure is not an error", func(t *testing.T) {
		f := newPipelineFixture()
		f.cdn.purgeErr = errors.New("cloudflare down")
		b := f.create(t, &model.Bookmark{OwnerID: "uid-1", URL: "https://go.dev/tips"})

		_, err := f.uc.Enrich(ctx, b.OwnerID, b.ID)
		gt.NoError(t, err)
	})
}

func TestCaptureScreenshot(t *testing.T) {
	ctx := context.Background()

	t.Run("uploads and records the public URL", func(t *testing.T) {
		f := newPipelineFixture()
		b := f.create(t, &model.Bookmark{OwnerID: "uid-1", URL: "https://go.dev/tips"})

		res, err := f.uc.CaptureScreenshot(ctx, b.OwnerID, b.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, res.Failed()).False()

		path := "screenshots/uid-1/" + string(b.ID) + ".jpg"
		obj, ok := f.blobs.Get(path)
		gt.Bool(t, ok).True()
		gt.Value(t, obj.ContentType).Equal("image/jpeg")

		got := f.get(t, b)
		gt.Value(t, got.Screenshot).Equal("https://blob.test/memory/" + path)
		gt.Value(t, got.ScreenshotCapturedAt).Equal(fixedNow)
		gt.Value(t, f.cdn.purged).Equal([]string{string(b.ID)})

		res, err = f.uc.CaptureScreenshot(ctx, b.OwnerID, b.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, res.Decision).Equal(types.DecisionSkip)
		gt.Value(t, f.shot.calls).Equal(1)
	})

	t.Run("failure records the category", func(t *testing.T) {
		f := newPipelineFixture()
		f.shot.captureFn = func(ctx context.Context, rawURL string) ([]byte, error) {
			return nil, &screenshot.CaptureError{Category: types.ScreenshotErrorNavigation, Err: errors.New("all navigation strategies failed")}
		}
		b := f.create(t, &model.Bookmark{OwnerID: "uid-1", URL: "https://slow.example.com"})

		res, err := f.uc.CaptureScreenshot(ctx, b.OwnerID, b.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, res.Failed()).True()

		got := f.get(t, b)
		gt.Value(t, got.Screenshot).Equal("")
		gt.Value(t, got.ScreenshotErrorCategory).Equal(types.ScreenshotErrorNavigation)
		gt.String(t, got.ScreenshotError).Contains("navigation")
		gt.Value(t, got.ScreenshotAttemptedAt).Equal(fixedNow)
		gt.Array(t, f.cdn.purged).Length(0)
	})

	t.Run("invalid URL fails before capture", func(t *testing.T) {
		f := newPipelineFixture()
		b := f.create(t, &model.Bookmark{OwnerID: "uid-1", URL: "ftp://files.example.com/a"})

		res, err := f.uc.CaptureScreenshot(ctx, b.OwnerID, b.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, res.Decision).Equal(types.DecisionFail)
		gt.Value(t, f.shot.calls).Equal(0)
		gt.Value(t, f.get(t, b).ScreenshotErrorCategory).Equal(types.ScreenshotErrorInvalidURL)
	})
}

func TestRunJob(t *testing.T) {
	ctx := context.Background()

	t.Run("dispatches by operation", func(t *testing.T) {
		f := newPipelineFixture()
		b := f.create(t, &model.Bookmark{OwnerID: "uid-1", URL: "https://go.dev/tips"})

		gt.NoError(t, f.uc.RunJob(ctx, model.NewJob(b.OwnerID, b.ID, types.JobOperationScreenshot))).Required()
		gt.Value(t, f.shot.calls).Equal(1)
		gt.Value(t, f.meta.count()).Equal(0)

		gt.NoError(t, f.uc.RunJob(ctx, model.NewJob(b.OwnerID, b.ID, types.JobOperationEnrich))).Required()
		gt.Value(t, f.meta.count()).Equal(1)
	})

	t.Run("deleted bookmark is dropped", func(t *testing.T) {
		f := newPipelineFixture()
		gt.NoError(t, f.uc.RunJob(ctx, model.NewJob("uid-1", "gone", types.JobOperationEnrich)))
	})

	t.Run("invalid job", func(t *testing.T) {
		f := newPipelineFixture()
		err := f.uc.RunJob(ctx, model.Job{OwnerID: "uid-1", Operation: types.JobOperationEnrich})
		gt.Error(t, err).Is(model.ErrInvalidArgument)
	})
}
