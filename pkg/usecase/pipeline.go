package usecase

import (
	"context"
	"errors"

	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/domain/types"
	"github.com/firebook-app/firebook/pkg/utils/errutil"
	"github.com/firebook-app/firebook/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// enrichStages run in this order within one invocation
var enrichStages = []types.Stage{
	types.StageMetadata,
	types.StageTags,
	types.StageEmbedding,
}

// RunJob executes one queued job. A bookmark deleted before its job runs is
// not an error.
func (uc *UseCases) RunJob(ctx context.Context, job model.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	var err error
	switch job.Operation {
	case types.JobOperationEnrich:
		_, err = uc.Enrich(ctx, job.OwnerID, job.BookmarkID)
	case types.JobOperationScreenshot:
		_, err = uc.CaptureScreenshot(ctx, job.OwnerID, job.BookmarkID)
	}

	if errors.Is(err, model.ErrNotFound) {
		logging.From(ctx).Info("Bookmark no longer exists, job dropped",
			"job_id", job.ID, OwnerIDKey, job.OwnerID, BookmarkIDKey, job.BookmarkID)
		return nil
	}
	return err
}

// Enrich runs metadata, tags and embedding in sequence. Stage failures are
// written to the bookmark and reported in the results; the returned error is
// only for failures to read or write the bookmark itself.
func (uc *UseCases) Enrich(ctx context.Context, ownerID model.OwnerID, id model.BookmarkID) ([]*StageResult, error) {
	b, err := uc.repo.Bookmark().Get(ctx, ownerID, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get bookmark",
			goerr.V(OwnerIDKey, ownerID), goerr.V(BookmarkIDKey, id))
	}

	results := make([]*StageResult, 0, len(enrichStages))
	for _, s := range enrichStages {
		res, err := uc.stage(s)(ctx, b)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}

	uc.purgeIfVisible(ctx, b, results...)
	return results, nil
}

// CaptureScreenshot runs the screenshot stage. It is independent of Enrich
// and may run before or after it.
func (uc *UseCases) CaptureScreenshot(ctx context.Context, ownerID model.OwnerID, id model.BookmarkID) (*StageResult, error) {
	b, err := uc.repo.Bookmark().Get(ctx, ownerID, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get bookmark",
			goerr.V(OwnerIDKey, ownerID), goerr.V(BookmarkIDKey, id))
	}

	res, err := uc.screenshotStage(ctx, b)
	if err != nil {
		return nil, err
	}

	uc.purgeIfVisible(ctx, b, res)
	return res, nil
}

// purgeIfVisible purges the bookmark's pages when a stage changed what the
// site shows. Purge failures are logged only.
func (uc *UseCases) purgeIfVisible(ctx context.Context, b *model.Bookmark, results ...*StageResult) {
	visible := false
	for _, res := range results {
		if res.Patch.HasVisibleChange() {
			visible = true
			break
		}
	}
	if !visible {
		return
	}

	result, err := uc.cdn.PurgeBookmark(ctx, string(b.ID))
	if err != nil {
		errutil.Handle(ctx, goerr.Wrap(err, "failed to purge CDN", goerr.V(BookmarkIDKey, b.ID)), "CDN purge failed")
		return
	}
	if !result.Success {
		logging.From(ctx).Warn("CDN purge partially failed", BookmarkIDKey, b.ID, "errors", result.Errors)
	}
}
