package usecase

import (
	"context"

	"github.com/firebook-app/firebook/pkg/domain/interfaces"
	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/domain/types"
	"github.com/firebook-app/firebook/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// BackfillInput selects what a backfill run covers. An empty OwnerID covers
// every owner.
type BackfillInput struct {
	OwnerID model.OwnerID
	Stage   types.Stage
	DryRun  bool
}

// BackfillReport counts what a backfill run did
type BackfillReport struct {
	Scanned   int
	Eligible  int
	Processed int
	Skipped   int
	Failed    int
	Methods   map[types.TagMethod]int
}

// Backfill re-runs one stage over bookmarks whose guard still allows it. It
// uses the same guards as the live pipeline, so it can be repeated safely.
func (uc *UseCases) Backfill(ctx context.Context, input BackfillInput) (*BackfillReport, error) {
	run := uc.stage(input.Stage)
	if run == nil {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "unknown stage", goerr.V(StageKey, input.Stage))
	}

	owners, err := uc.owners(ctx, input.OwnerID)
	if err != nil {
		return nil, err
	}

	report := &BackfillReport{Methods: map[types.TagMethod]int{}}
	for _, ownerID := range owners {
		bookmarks, err := uc.repo.Bookmark().ListByOwner(ctx, ownerID)
		if err != nil {
			return report, goerr.Wrap(err, "failed to list bookmarks", goerr.V(OwnerIDKey, ownerID))
		}

		for _, b := range bookmarks {
			report.Scanned++
			if decision, _ := guardOf(input.Stage)(b); decision == types.DecisionSkip {
				report.Skipped++
				continue
			}
			report.Eligible++
			if input.DryRun {
				continue
			}

			res, err := run(ctx, b)
			if err != nil {
				return report, err
			}
			switch {
			case res.Decision == types.DecisionSkip:
				report.Skipped++
			case res.Failed():
				report.Failed++
			default:
				report.Processed++
			}
			if res.Method != "" {
				report.Methods[res.Method]++
			}
			uc.purgeIfVisible(ctx, b, res)
		}
	}

	logging.From(ctx).Info("Backfill finished",
		StageKey, input.Stage,
		"dry_run", input.DryRun,
		"scanned", report.Scanned,
		"eligible", report.Eligible,
		"processed", report.Processed,
		"failed", report.Failed)
	return report, nil
}

func guardOf(s types.Stage) model.Guard {
	switch s {
	case types.StageMetadata:
		return model.GuardMetadata
	case types.StageTags:
		return model.GuardTags
	case types.StageEmbedding:
		return model.GuardEmbedding
	default:
		return model.GuardScreenshot
	}
}

// SyncReport counts the flags changed by SyncEmbeddingFlags
type SyncReport struct {
	Scanned int
	Marked  int
	Stale   int
	Cleared int
}

// SyncEmbeddingFlags reconciles hasEmbedding on bookmarks with the rows in
// the vector store. Bookmarks with a row are marked; flagged bookmarks
// without one are counted as stale and cleared when clearStale is set.
func (uc *UseCases) SyncEmbeddingFlags(ctx context.Context, ownerID model.OwnerID, clearStale, dryRun bool) (*SyncReport, error) {
	owners, err := uc.owners(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{}
	for _, owner := range owners {
		bookmarks, err := uc.repo.Bookmark().ListByOwner(ctx, owner)
		if err != nil {
			return report, goerr.Wrap(err, "failed to list bookmarks", goerr.V(OwnerIDKey, owner))
		}

		rows, err := uc.embeddings.ListByOwner(ctx, owner)
		if err != nil {
			return report, goerr.Wrap(err, "failed to list embeddings", goerr.V(OwnerIDKey, owner))
		}
		dims := make(map[model.BookmarkID]int, len(rows))
		for _, r := range rows {
			dims[r.BookmarkID] = len(r.Embedding)
		}

		for _, b := range bookmarks {
			report.Scanned++
			d, hasRow := dims[b.ID]

			var patch *model.BookmarkPatch
			switch {
			case hasRow && (!b.HasEmbedding || b.EmbeddingDimensions != d):
				report.Marked++
				patch = model.NewEmbeddingPatch(d, uc.timestamp())
			case !hasRow && b.HasEmbedding:
				report.Stale++
				if clearStale {
					report.Cleared++
					patch = model.NewEmbeddingResetPatch()
				}
			}

			if patch == nil || dryRun {
				continue
			}
			if err := uc.apply(ctx, b, patch); err != nil {
				return report, err
			}
		}
	}

	return report, nil
}

func (uc *UseCases) owners(ctx context.Context, ownerID model.OwnerID) ([]model.OwnerID, error) {
	if ownerID != "" {
		return []model.OwnerID{ownerID}, nil
	}
	owners, err := uc.repo.Bookmark().ListOwners(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list owners")
	}
	return owners, nil
}

// PurgeBookmark purges the CDN pages of one bookmark
func (uc *UseCases) PurgeBookmark(ctx context.Context, id model.BookmarkID) (*interfaces.PurgeResult, error) {
	if id == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "bookmark ID is required")
	}
	result, err := uc.cdn.PurgeBookmark(ctx, string(id))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to purge bookmark", goerr.V(BookmarkIDKey, id))
	}
	return result, nil
}

// PurgeEverything purges the whole CDN zone
func (uc *UseCases) PurgeEverything(ctx context.Context) error {
	if err := uc.cdn.PurgeEverything(ctx); err != nil {
		return goerr.Wrap(err, "failed to purge everything")
	}
	return nil
}
