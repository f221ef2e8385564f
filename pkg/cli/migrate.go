package cli

import (
	"context"

	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/repository/postgres"
	"github.com/firebook-app/firebook/pkg/utils/logging"
	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var projectID string
	var databaseID string
	var postgresDSN string
	var dryRun bool

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate Firestore indexes and the pgvector schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "firestore-project-id",
				Usage:       "Firestore Project ID",
				Sources:     cli.EnvVars("FIREBOOK_FIRESTORE_PROJECT_ID"),
				Destination: &projectID,
			},
			&cli.StringFlag{
				Name:        "firestore-database-id",
				Usage:       "Firestore Database ID",
				Sources:     cli.EnvVars("FIREBOOK_FIRESTORE_DATABASE_ID"),
				Destination: &databaseID,
			},
			&cli.StringFlag{
				Name:        "postgres-dsn",
				Usage:       "PostgreSQL connection string (skipped when empty)",
				Sources:     cli.EnvVars("FIREBOOK_POSTGRES_DSN"),
				Destination: &postgresDSN,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Preview Firestore changes without applying",
				Destination: &dryRun,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if projectID == "" && postgresDSN == "" {
				return goerr.Wrap(model.ErrInvalidArgument, "firestore-project-id or postgres-dsn is required")
			}

			if projectID != "" {
				if err := migrateFirestore(ctx, projectID, databaseID, dryRun); err != nil {
					return err
				}
			}

			if postgresDSN != "" {
				if dryRun {
					logging.Default().Info("Dry run mode - skipping PostgreSQL migration")
					return nil
				}
				if err := postgres.Migrate(ctx, postgresDSN, model.EmbeddingDimension); err != nil {
					return goerr.Wrap(err, "failed to migrate postgres")
				}
				logging.Default().Info("PostgreSQL schema migrated", "dimension", model.EmbeddingDimension)
			}
			return nil
		},
	}
}

func migrateFirestore(ctx context.Context, projectID, databaseID string, dryRun bool) error {
	logger := logging.Default()

	logger.Info("Migrate configuration",
		"projectID", projectID,
		"databaseID", databaseID,
		"dryRun", dryRun)

	indexConfig := getIndexConfig()

	client, err := fireconf.NewClient(ctx, projectID, databaseID)
	if err != nil {
		return goerr.Wrap(err, "failed to create fireconf client")
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close fireconf client", "error", err.Error())
		}
	}()

	if dryRun {
		logger.Info("Dry run mode - previewing changes")
		plan, err := client.GetMigrationPlan(ctx, indexConfig)
		if err != nil {
			return goerr.Wrap(err, "failed to create migration plan")
		}

		if len(plan.Steps) == 0 {
			logger.Info("No changes required")
			return nil
		}

		for _, step := range plan.Steps {
			logger.Info("Migration step",
				"collection", step.Collection,
				"operation", step.Operation,
				"description", step.Description,
				"destructive", step.Destructive)
		}
		return nil
	}

	logger.Info("Applying migrations")
	if err := client.Migrate(ctx, indexConfig); err != nil {
		return goerr.Wrap(err, "failed to apply migrations")
	}
	logger.Info("Migrations applied successfully")
	return nil
}

// getIndexConfig returns the Firestore index configuration
func getIndexConfig() *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				// users/{uid}/embeddings, queried by FindNearest on "embedding"
				Name: "embeddings",
				Indexes: []fireconf.Index{
					{
						Fields: []fireconf.IndexField{
							{
								Path: "embedding",
								Vector: &fireconf.VectorConfig{
									Dimension: model.EmbeddingDimension,
								},
							},
						},
					},
				},
			},
		},
	}
}
