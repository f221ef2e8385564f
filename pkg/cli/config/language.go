package config

import (
	"context"
	"time"

	"github.com/firebook-app/firebook/pkg/service/tagger"
	"github.com/firebook-app/firebook/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Language configures the Natural Language API used for tag suggestions.
// Without it, tags come from the domain name only.
type Language struct {
	enabled bool
	timeout time.Duration
}

func (l *Language) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "language-enabled",
			Category:    "Tags",
			Usage:       "Use the Cloud Natural Language API for tag suggestions",
			Sources:     cli.EnvVars("FIREBOOK_LANGUAGE_ENABLED"),
			Destination: &l.enabled,
		},
		&cli.DurationFlag{
			Name:        "language-timeout",
			Category:    "Tags",
			Usage:       "Timeout of each Natural Language API call",
			Value:       tagger.DefaultCallTimeout,
			Sources:     cli.EnvVars("FIREBOOK_LANGUAGE_TIMEOUT"),
			Destination: &l.timeout,
		},
	}
}

func (l *Language) Configure(ctx context.Context, app *AppConfig) (tagger.Service, func(), error) {
	if !l.enabled {
		return tagger.New(nil, app.TaggerOptions()...), func() {}, nil
	}

	analyzer, err := tagger.NewLanguageAnalyzer(ctx, l.timeout)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to create language analyzer")
	}
	logging.Default().Info("Using Cloud Natural Language for tags", "timeout", l.timeout)

	return tagger.New(analyzer, app.TaggerOptions()...), func() {
		if err := analyzer.Close(); err != nil {
			logging.Default().Error("failed to close language client", "error", err.Error())
		}
	}, nil
}
