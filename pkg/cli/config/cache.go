package config

import (
	"github.com/firebook-app/firebook/pkg/domain/interfaces"
	"github.com/firebook-app/firebook/pkg/service/cache"
	"github.com/firebook-app/firebook/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Cache selects the read-through cache for metadata and similarity results
type Cache struct {
	backend      string
	upstashURL   string
	upstashToken string
}

func (c *Cache) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "cache-backend",
			Category:    "Cache",
			Usage:       "Cache backend (none, memory or upstash)",
			Value:       "memory",
			Sources:     cli.EnvVars("FIREBOOK_CACHE_BACKEND"),
			Destination: &c.backend,
		},
		&cli.StringFlag{
			Name:        "upstash-url",
			Category:    "Cache",
			Usage:       "Upstash Redis REST URL",
			Sources:     cli.EnvVars("FIREBOOK_UPSTASH_URL"),
			Destination: &c.upstashURL,
		},
		&cli.StringFlag{
			Name:        "upstash-token",
			Category:    "Cache",
			Usage:       "Upstash Redis REST token",
			Sources:     cli.EnvVars("FIREBOOK_UPSTASH_TOKEN"),
			Destination: &c.upstashToken,
		},
	}
}

func (c *Cache) Configure() (interfaces.Cache, error) {
	switch c.backend {
	case "none":
		return cache.NewNoop(), nil

	case "", "memory":
		return cache.NewMemory(), nil

	case "upstash":
		if c.upstashURL == "" || c.upstashToken == "" {
			return nil, goerr.Wrap(ErrMissingRequired, "upstash-url and upstash-token are required when using upstash cache")
		}
		client, err := cache.NewUpstash(c.upstashURL, c.upstashToken)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create upstash cache")
		}
		logging.Default().Info("Using Upstash cache")
		return client, nil

	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid cache backend", goerr.V(BackendKey, c.backend))
	}
}
