package embedding_test

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"

	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/service/embedding"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/m-mizutani/gt"
)

type mockLLMClient struct {
	generateEmbeddingFn func(ctx context.Context, dimension int, input []string) ([][]float64, error)
}

func (m *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return nil, nil
}

func (m *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return m.generateEmbeddingFn(ctx, dimension, input)
}

func TestEmbed(t *testing.T) {
	t.Run("converts vector and passes dimension", func(t *testing.T) {
		var gotDim int
		var gotInput []string
		llm := &mockLLMClient{
			generateEmbeddingFn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
				gotDim = dimension
				gotInput = input
				return [][]float64{{0.5, -0.25, 1}}, nil
			},
		}
		svc, err := embedding.New(llm, embedding.WithDimension(3))
		gt.NoError(t, err).Required()

		vec, err := svc.Embed(context.Background(), "Go Tips Learn Go")
		gt.NoError(t, err).Required()
		gt.Value(t, vec).Equal([]float32{0.5, -0.25, 1})
		gt.Value(t, gotDim).Equal(3)
		gt.Value(t, gotInput).Equal([]string{"Go Tips Learn Go"})
		gt.Value(t, svc.Dimension()).Equal(3)
	})

	t.Run("empty response", func(t *testing.T) {
		llm := &mockLLMClient{
			generateEmbeddingFn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
				return [][]float64{}, nil
			},
		}
		svc, err := embedding.New(llm)
		gt.NoError(t, err).Required()

		_, err = svc.Embed(context.Background(), "text")
		gt.Error(t, err).Is(model.ErrEmptyEmbedding)
	})

	t.Run("NaN in response", func(t *testing.T) {
		llm := &mockLLMClient{
			generateEmbeddingFn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
				return [][]float64{{0.1, math.NaN()}}, nil
			},
		}
		svc, err := embedding.New(llm)
		gt.NoError(t, err).Required()

		_, err = svc.Embed(context.Background(), "text")
		gt.Error(t, err).Is(model.ErrEmptyEmbedding)
	})

	t.Run("provider error", func(t *testing.T) {
		boom := errors.New("quota exceeded")
		llm := &mockLLMClient{
			generateEmbeddingFn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
				return nil, boom
			},
		}
		svc, err := embedding.New(llm)
		gt.NoError(t, err).Required()

		_, err = svc.Embed(context.Background(), "text")
		gt.Error(t, err).Is(boom)
	})

	t.Run("nil client", func(t *testing.T) {
		_, err := embedding.New(nil)
		gt.Value(t, err).NotNil()
	})
}

func TestEmbed_WithRealGemini(t *testing.T) {
	projectID := os.Getenv("TEST_GEMINI_PROJECT")
	if projectID == "" {
		t.Skip("TEST_GEMINI_PROJECT not set")
	}

	location := os.Getenv("TEST_GEMINI_LOCATION")
	if location == "" {
		t.Skip("TEST_GEMINI_LOCATION not set")
	}

	ctx := context.Background()
	llmClient, err := gemini.New(ctx, projectID, location)
	gt.NoError(t, err).Required()

	svc, err := embedding.New(llmClient)
	gt.NoError(t, err).Required()

	vec, err := svc.Embed(ctx, "A practical guide to writing concurrent programs in Go")
	gt.NoError(t, err).Required()
	gt.Array(t, vec).Length(model.EmbeddingDimension)
}
