package embedding

import (
	"context"
	"time"

	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

// DefaultTimeout bounds one embedding call
const DefaultTimeout = 30 * time.Second

// client implements Service interface
type client struct {
	llmClient gollem.LLMClient
	dimension int
	timeout   time.Duration
}

// Option is a functional option for client configuration
type Option func(*client)

func WithDimension(d int) Option {
	return func(c *client) {
		if d > 0 {
			c.dimension = d
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New creates a new embedding service with the provided LLM client
func New(llmClient gollem.LLMClient, opts ...Option) (Service, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}

	c := &client{
		llmClient: llmClient,
		dimension: model.EmbeddingDimension,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *client) Dimension() int {
	return c.dimension
}

// Embed generates an embedding vector for the given text and rejects empty
// or non-finite responses.
func (c *client) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	embeddings, err := c.llmClient.GenerateEmbedding(ctx, c.dimension, []string{text})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate embedding")
	}

	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, goerr.Wrap(model.ErrEmptyEmbedding, "no embedding returned")
	}

	for i, v := range embeddings[0] {
		if v != v || v > 1e30 || v < -1e30 {
			return nil, goerr.Wrap(model.ErrEmptyEmbedding, "embedding contains a non-numeric value", goerr.V("index", i))
		}
	}

	return model.ToFloat32(embeddings[0]), nil
}
