package config

import (
	"github.com/firebook-app/firebook/pkg/domain/interfaces"
	"github.com/firebook-app/firebook/pkg/service/cdn"
	"github.com/firebook-app/firebook/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// CDN configures purging of cached bookmark pages after enrichment
type CDN struct {
	zoneID  string
	token   string
	appBase string
}

func (c *CDN) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "cloudflare-zone-id",
			Category:    "CDN",
			Usage:       "Cloudflare zone ID",
			Sources:     cli.EnvVars("FIREBOOK_CLOUDFLARE_ZONE_ID"),
			Destination: &c.zoneID,
		},
		&cli.StringFlag{
			Name:        "cloudflare-api-token",
			Category:    "CDN",
			Usage:       "Cloudflare API token with cache purge permission",
			Sources:     cli.EnvVars("FIREBOOK_CLOUDFLARE_API_TOKEN"),
			Destination: &c.token,
		},
		&cli.StringFlag{
			Name:        "app-base-url",
			Category:    "CDN",
			Usage:       "Public base URL of the app whose pages are purged",
			Sources:     cli.EnvVars("FIREBOOK_APP_BASE_URL"),
			Destination: &c.appBase,
		},
	}
}

// Configure returns a no-op purger unless both zone and token are set
func (c *CDN) Configure() (interfaces.CDN, error) {
	if c.zoneID == "" && c.token == "" {
		return cdn.NewNoop(), nil
	}
	if c.zoneID == "" || c.token == "" {
		return nil, goerr.Wrap(ErrMissingRequired, "cloudflare-zone-id and cloudflare-api-token must be set together")
	}

	client, err := cdn.New(c.zoneID, c.token, c.appBase)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create cloudflare client")
	}
	logging.Default().Info("Using Cloudflare cache purge", "app_base", c.appBase)
	return client, nil
}
