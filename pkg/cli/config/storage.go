package config

import (
	"context"

	"github.com/firebook-app/firebook/pkg/domain/interfaces"
	"github.com/firebook-app/firebook/pkg/service/storage"
	"github.com/firebook-app/firebook/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

// Storage configures the bucket that holds screenshots
type Storage struct {
	bucket      string
	publicBase  string
	publicRead  bool
	credentials string
}

func (s *Storage) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gcs-bucket",
			Category:    "Storage",
			Usage:       "Cloud Storage bucket for screenshots",
			Sources:     cli.EnvVars("FIREBOOK_GCS_BUCKET"),
			Destination: &s.bucket,
		},
		&cli.StringFlag{
			Name:        "gcs-public-base",
			Category:    "Storage",
			Usage:       "Public URL base for stored objects",
			Sources:     cli.EnvVars("FIREBOOK_GCS_PUBLIC_BASE"),
			Destination: &s.publicBase,
		},
		&cli.BoolFlag{
			Name:        "gcs-public-read",
			Category:    "Storage",
			Usage:       "Grant public read on uploaded screenshots",
			Value:       true,
			Sources:     cli.EnvVars("FIREBOOK_GCS_PUBLIC_READ"),
			Destination: &s.publicRead,
		},
		&cli.StringFlag{
			Name:        "gcs-credentials",
			Category:    "Storage",
			Usage:       "Service account key file (application default credentials when empty)",
			Sources:     cli.EnvVars("FIREBOOK_GCS_CREDENTIALS"),
			Destination: &s.credentials,
		},
	}
}

// Configure returns nil storage when no bucket is set, which disables the
// screenshot stage.
func (s *Storage) Configure(ctx context.Context) (interfaces.BlobStorage, func(), error) {
	if s.bucket == "" {
		return nil, func() {}, nil
	}

	var clientOpts []option.ClientOption
	if s.credentials != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(s.credentials))
	}

	gcs, err := storage.NewGCS(ctx, s.bucket, clientOpts,
		storage.WithPublicBase(s.publicBase),
		storage.WithPublicRead(s.publicRead),
	)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", s.bucket))
	}
	logging.Default().Info("Using Cloud Storage", "bucket", s.bucket)

	return gcs, func() {
		if err := gcs.Close(); err != nil {
			logging.Default().Error("failed to close storage client", "error", err.Error())
		}
	}, nil
}
