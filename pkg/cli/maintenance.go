package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/domain/types"
	"github.com/firebook-app/firebook/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdBackfill() *cli.Command {
	var ownerID string
	var stage string
	var dryRun bool
	var pipeCfg pipelineConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "stage",
			Usage:       "Stage to backfill (metadata, tags, embedding or screenshot)",
			Required:    true,
			Destination: &stage,
		},
		&cli.StringFlag{
			Name:        "owner",
			Usage:       "Limit to one owner (all owners when empty)",
			Destination: &ownerID,
		},
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Count eligible bookmarks without processing them",
			Destination: &dryRun,
		},
	}
	flags = append(flags, pipeCfg.Flags()...)

	return &cli.Command{
		Name:  "backfill",
		Usage: "Re-run one stage over bookmarks that still need it",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			s, err := types.ParseStage(stage)
			if err != nil {
				return err
			}

			p, err := pipeCfg.build(ctx)
			if err != nil {
				return err
			}
			defer p.Close()

			report, err := p.uc.Backfill(ctx, usecase.BackfillInput{
				OwnerID: model.OwnerID(ownerID),
				Stage:   s,
				DryRun:  dryRun,
			})
			if report != nil {
				printBackfillReport(s, dryRun, report)
			}
			if err != nil {
				return goerr.Wrap(err, "backfill aborted")
			}
			return nil
		},
	}
}

func printBackfillReport(s types.Stage, dryRun bool, r *usecase.BackfillReport) {
	title := fmt.Sprintf("Backfill %s", s)
	if dryRun {
		title += " (dry run)"
	}
	color.New(color.Bold).Println(title)

	fmt.Printf("  scanned:   %d\n", r.Scanned)
	fmt.Printf("  eligible:  %d\n", r.Eligible)
	if dryRun {
		return
	}
	fmt.Printf("  processed: %s\n", color.GreenString("%d", r.Processed))
	fmt.Printf("  skipped:   %s\n", color.YellowString("%d", r.Skipped))
	if r.Failed > 0 {
		fmt.Printf("  failed:    %s\n", color.RedString("%d", r.Failed))
	} else {
		fmt.Printf("  failed:    %d\n", r.Failed)
	}

	if len(r.Methods) == 0 {
		return
	}
	methods := make([]string, 0, len(r.Methods))
	for m := range r.Methods {
		methods = append(methods, string(m))
	}
	sort.Strings(methods)
	fmt.Println("  methods:")
	for _, m := range methods {
		fmt.Printf("    %-12s %d\n", m, r.Methods[types.TagMethod(m)])
	}
}

func cmdSyncFlags() *cli.Command {
	var ownerID string
	var clearStale bool
	var dryRun bool
	var pipeCfg pipelineConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "owner",
			Usage:       "Limit to one owner (all owners when empty)",
			Destination: &ownerID,
		},
		&cli.BoolFlag{
			Name:        "clear-stale",
			Usage:       "Clear hasEmbedding on bookmarks that have no stored vector",
			Destination: &clearStale,
		},
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Report changes without writing them",
			Destination: &dryRun,
		},
	}
	flags = append(flags, pipeCfg.Flags()...)

	return &cli.Command{
		Name:  "sync-flags",
		Usage: "Reconcile bookmark embedding flags with the vector store",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			p, err := pipeCfg.build(ctx)
			if err != nil {
				return err
			}
			defer p.Close()

			report, err := p.uc.SyncEmbeddingFlags(ctx, model.OwnerID(ownerID), clearStale, dryRun)
			if err != nil {
				return goerr.Wrap(err, "failed to sync embedding flags")
			}

			color.New(color.Bold).Println("Embedding flag sync")
			fmt.Printf("  scanned: %d\n", report.Scanned)
			fmt.Printf("  marked:  %s\n", color.GreenString("%d", report.Marked))
			fmt.Printf("  stale:   %s\n", color.YellowString("%d", report.Stale))
			fmt.Printf("  cleared: %d\n", report.Cleared)
			return nil
		},
	}
}

func cmdPurge() *cli.Command {
	var bookmarkID string
	var all bool
	var pipeCfg pipelineConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "bookmark",
			Usage:       "Purge the pages of this bookmark",
			Destination: &bookmarkID,
		},
		&cli.BoolFlag{
			Name:        "all",
			Usage:       "Purge the whole zone",
			Destination: &all,
		},
	}
	flags = append(flags, pipeCfg.Flags()...)

	return &cli.Command{
		Name:  "purge",
		Usage: "Purge CDN cached pages",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if all == (bookmarkID != "") {
				return goerr.Wrap(model.ErrInvalidArgument, "exactly one of --all or --bookmark is required")
			}

			p, err := pipeCfg.build(ctx)
			if err != nil {
				return err
			}
			defer p.Close()

			if all {
				if err := p.uc.PurgeEverything(ctx); err != nil {
					return err
				}
				fmt.Println(color.GreenString("Purged everything"))
				return nil
			}

			result, err := p.uc.PurgeBookmark(ctx, model.BookmarkID(bookmarkID))
			if err != nil {
				return err
			}
			if !result.Success {
				for _, e := range result.Errors {
					fmt.Println(color.RedString("  %s", e))
				}
				return goerr.New("purge reported errors", goerr.V("bookmark_id", bookmarkID))
			}
			fmt.Println(color.GreenString("Purged %d URLs", result.Purged))
			return nil
		},
	}
}
