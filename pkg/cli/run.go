package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/domain/types"
	"github.com/firebook-app/firebook/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdRun() *cli.Command {
	var ownerID string
	var bookmarkID string
	var operation string
	var pipeCfg pipelineConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "owner",
			Usage:       "Owner (user) ID of the bookmark",
			Required:    true,
			Destination: &ownerID,
		},
		&cli.StringFlag{
			Name:        "bookmark",
			Usage:       "Bookmark ID",
			Required:    true,
			Destination: &bookmarkID,
		},
		&cli.StringFlag{
			Name:        "operation",
			Usage:       "Operation to run (enrich, screenshot or all)",
			Value:       "all",
			Destination: &operation,
		},
	}
	flags = append(flags, pipeCfg.Flags()...)

	return &cli.Command{
		Name:  "run",
		Usage: "Run the pipeline for one bookmark in the foreground",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			var ops []types.JobOperation
			if operation == "all" {
				ops = types.AllJobOperations()
			} else {
				op, err := types.ParseJobOperation(operation)
				if err != nil {
					return err
				}
				ops = []types.JobOperation{op}
			}

			p, err := pipeCfg.build(ctx)
			if err != nil {
				return err
			}
			defer p.Close()

			owner, id := model.OwnerID(ownerID), model.BookmarkID(bookmarkID)
			for _, op := range ops {
				var results []*usecase.StageResult
				switch op {
				case types.JobOperationEnrich:
					results, err = p.uc.Enrich(ctx, owner, id)
				case types.JobOperationScreenshot:
					var res *usecase.StageResult
					res, err = p.uc.CaptureScreenshot(ctx, owner, id)
					if res != nil {
						results = append(results, res)
					}
				}
				for _, res := range results {
					printStageResult(res)
				}
				if err != nil {
					return goerr.Wrap(err, "failed to run operation", goerr.V("operation", op))
				}
			}
			return nil
		},
	}
}

func printStageResult(res *usecase.StageResult) {
	label := fmt.Sprintf("%-10s", res.Stage)
	switch {
	case res.Failed():
		fmt.Printf("%s %s %v\n", color.RedString(label), "failed:", res.Err)
	case res.Decision == types.DecisionSkip:
		fmt.Printf("%s %s %s\n", color.YellowString(label), "skipped:", res.Reason)
	default:
		line := fmt.Sprintf("%s done", color.GreenString(label))
		if res.Method != "" {
			line += fmt.Sprintf(" (method: %s)", res.Method)
		}
		fmt.Println(line)
	}
}
