package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/firebook-app/firebook/pkg/domain/interfaces"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

const tableName = "bookmarks"

// Store is a pgvector-backed embedding repository. Rows are unique per
// (firebase_uid, firebase_bookmark_id).
type Store struct {
	pool *pgxpool.Pool
}

var _ interfaces.EmbeddingRepository = &Store{}

type config struct {
	maxConns       int32
	connectTimeout time.Duration
	idleTimeout    time.Duration
}

type Option func(*config)

func WithMaxConns(n int32) Option {
	return func(c *config) {
		c.maxConns = n
	}
}

func WithConnectTimeout(d time.Duration) Option {
	return func(c *config) {
		c.connectTimeout = d
	}
}

func WithIdleTimeout(d time.Duration) Option {
	return func(c *config) {
		c.idleTimeout = d
	}
}

// New opens a connection pool. Each connection registers the vector type,
// so Migrate must have created the extension beforehand.
func New(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	cfg := &config{
		maxConns:       4,
		connectTimeout: 10 * time.Second,
		idleTimeout:    5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse postgres DSN")
	}
	poolCfg.MaxConns = cfg.maxConns
	poolCfg.MaxConnIdleTime = cfg.idleTimeout
	poolCfg.ConnConfig.ConnectTimeout = cfg.connectTimeout
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, goerr.Wrap(err, "failed to ping postgres")
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Migrate creates the vector extension, the table and the cosine index
func Migrate(ctx context.Context, dsn string, dimension int) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return goerr.Wrap(err, "failed to connect postgres")
	}
	defer func() { _ = conn.Close(ctx) }()

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			firebase_uid TEXT NOT NULL,
			firebase_bookmark_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			embedding vector(%d) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (firebase_uid, firebase_bookmark_id)
		)`, tableName, dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`, tableName, tableName),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_uid_idx ON %s (firebase_uid)`, tableName, tableName),
	}

	for _, stmt := range statements {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return goerr.Wrap(err, "failed to run migration", goerr.V("statement", stmt))
		}
	}
	return nil
}
