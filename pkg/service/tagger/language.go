package tagger

import (
	"context"
	"strings"
	"time"

	language "cloud.google.com/go/language/apiv1"
	"cloud.google.com/go/language/apiv1/languagepb"
	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultCallTimeout bounds each Natural Language API call
const DefaultCallTimeout = 15 * time.Second

// LanguageAnalyzer calls the Google Cloud Natural Language API
type LanguageAnalyzer struct {
	client  *language.Client
	timeout time.Duration
}

var _ Analyzer = &LanguageAnalyzer{}

// NewLanguageAnalyzer creates the gRPC client once; Close releases it
func NewLanguageAnalyzer(ctx context.Context, timeout time.Duration, opts ...option.ClientOption) (*LanguageAnalyzer, error) {
	client, err := language.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create natural language client")
	}
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &LanguageAnalyzer{client: client, timeout: timeout}, nil
}

func (a *LanguageAnalyzer) Close() error {
	return a.client.Close()
}

func plainText(text string) *languagepb.Document {
	return &languagepb.Document{
		Type:   languagepb.Document_PLAIN_TEXT,
		Source: &languagepb.Document_Content{Content: text},
	}
}

func (a *LanguageAnalyzer) Classify(ctx context.Context, text string) ([]Category, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.ClassifyText(ctx, &languagepb.ClassifyTextRequest{
		Document: plainText(text),
	})
	if err != nil {
		return nil, wrapLanguageError(err, "failed to classify text")
	}

	categories := make([]Category, 0, len(resp.GetCategories()))
	for _, c := range resp.GetCategories() {
		categories = append(categories, Category{
			Name:       c.GetName(),
			Confidence: float64(c.GetConfidence()),
		})
	}
	return categories, nil
}

func (a *LanguageAnalyzer) Entities(ctx context.Context, text string) ([]Entity, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.AnalyzeEntities(ctx, &languagepb.AnalyzeEntitiesRequest{
		Document:     plainText(text),
		EncodingType: languagepb.EncodingType_UTF8,
	})
	if err != nil {
		return nil, wrapLanguageError(err, "failed to analyze entities")
	}

	entities := make([]Entity, 0, len(resp.GetEntities()))
	for _, e := range resp.GetEntities() {
		entities = append(entities, Entity{
			Name:     e.GetName(),
			Type:     e.GetType().String(),
			Salience: float64(e.GetSalience()),
		})
	}
	return entities, nil
}

// wrapLanguageError maps the API's "not enough text" rejection to
// model.ErrTextTooShort so callers can degrade instead of failing.
func wrapLanguageError(err error, msg string) error {
	if st, ok := status.FromError(err); ok && st.Code() == codes.InvalidArgument {
		m := strings.ToLower(st.Message())
		if strings.Contains(m, "enough text") || strings.Contains(m, "too few tokens") {
			return goerr.Wrap(model.ErrTextTooShort, msg, goerr.V("reason", st.Message()))
		}
	}
	return goerr.Wrap(err, msg)
}
