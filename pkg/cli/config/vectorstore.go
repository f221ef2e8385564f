package config

import (
	"context"

	"github.com/firebook-app/firebook/pkg/domain/interfaces"
	"github.com/firebook-app/firebook/pkg/repository/postgres"
	"github.com/firebook-app/firebook/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// VectorStore selects where embeddings live. The "repository" backend keeps
// them next to the bookmarks in the document store.
type VectorStore struct {
	backend  string
	dsn      string
	maxConns int
}

func (v *VectorStore) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "vector-backend",
			Category:    "Vector store",
			Usage:       "Vector store backend (repository or postgres)",
			Value:       "repository",
			Sources:     cli.EnvVars("FIREBOOK_VECTOR_BACKEND"),
			Destination: &v.backend,
		},
		&cli.StringFlag{
			Name:        "postgres-dsn",
			Category:    "Vector store",
			Usage:       "PostgreSQL connection string with the pgvector extension",
			Sources:     cli.EnvVars("FIREBOOK_POSTGRES_DSN"),
			Destination: &v.dsn,
		},
		&cli.IntFlag{
			Name:        "postgres-max-conns",
			Category:    "Vector store",
			Usage:       "Maximum PostgreSQL pool connections",
			Value:       4,
			Sources:     cli.EnvVars("FIREBOOK_POSTGRES_MAX_CONNS"),
			Destination: &v.maxConns,
		},
	}
}

// DSN returns the PostgreSQL connection string
func (v *VectorStore) DSN() string {
	return v.dsn
}

// Configure returns the vector store, or nil when embeddings stay in the
// repository. The returned function closes the pool.
func (v *VectorStore) Configure(ctx context.Context) (interfaces.EmbeddingRepository, func(), error) {
	switch v.backend {
	case "", "repository":
		return nil, func() {}, nil

	case "postgres":
		if v.dsn == "" {
			return nil, nil, goerr.Wrap(ErrMissingRequired, "postgres-dsn is required when using postgres vector backend")
		}
		store, err := postgres.New(ctx, v.dsn, postgres.WithMaxConns(int32(v.maxConns))) // #nosec G115
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to initialize postgres vector store")
		}
		logging.Default().Info("Using pgvector store", "max_conns", v.maxConns)
		return store, func() {
			if err := store.Close(); err != nil {
				logging.Default().Error("failed to close vector store", "error", err.Error())
			}
		}, nil

	default:
		return nil, nil, goerr.Wrap(ErrInvalidConfig, "invalid vector backend", goerr.V(BackendKey, v.backend))
	}
}
