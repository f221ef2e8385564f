package describer_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/service/describer"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
)

type mockLLMSession struct {
	generateContentFn func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error)
}

func (s *mockLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	return s.generateContentFn(ctx, input...)
}

func (s *mockLLMSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	return s.generateContentFn(ctx, input...)
}

func (s *mockLLMSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockLLMSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

type mockLLMClient struct {
	session *mockLLMSession
	calls   int
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	c.calls++
	return c.session, nil
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, nil
}

func respond(text string) *mockLLMSession {
	return &mockLLMSession{
		generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
			return &gollem.Response{Texts: []string{text}}, nil
		},
	}
}

func TestDescribe(t *testing.T) {
	t.Run("returns trimmed description", func(t *testing.T) {
		var prompt string
		session := &mockLLMSession{
			generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
				if text, ok := input[0].(gollem.Text); ok {
					prompt = string(text)
				}
				return &gollem.Response{Texts: []string{`{"description": "  A guide to\n Go tips.  "}`}}, nil
			},
		}
		svc, err := describer.New(&mockLLMClient{session: session})
		gt.NoError(t, err).Required()

		desc, err := svc.Describe(context.Background(), describer.Input{
			Title:    "Go Tips",
			URL:      "https://go.dev/tips",
			SiteName: "Go",
		})
		gt.NoError(t, err).Required()
		gt.Value(t, desc).Equal("A guide to Go tips.")
		gt.String(t, prompt).Contains("Title: Go Tips")
		gt.String(t, prompt).Contains("URL: https://go.dev/tips")
		gt.String(t, prompt).Contains("Site: Go")
	})

	t.Run("caps long description", func(t *testing.T) {
		long := strings.Repeat("a", 400)
		svc, err := describer.New(&mockLLMClient{session: respond(`{"description":"` + long + `"}`)})
		gt.NoError(t, err).Required()

		desc, err := svc.Describe(context.Background(), describer.Input{Title: "Long"})
		gt.NoError(t, err).Required()
		gt.Value(t, len([]rune(desc))).Equal(model.MaxDescriptionLength)
		gt.Bool(t, strings.HasSuffix(desc, "...")).True()
	})

	t.Run("empty description is an error", func(t *testing.T) {
		svc, err := describer.New(&mockLLMClient{session: respond(`{"description":"   "}`)})
		gt.NoError(t, err).Required()

		_, err = svc.Describe(context.Background(), describer.Input{Title: "x"})
		gt.Value(t, err).NotNil()
	})

	t.Run("invalid json", func(t *testing.T) {
		svc, err := describer.New(&mockLLMClient{session: respond("not json")})
		gt.NoError(t, err).Required()

		_, err = svc.Describe(context.Background(), describer.Input{Title: "x"})
		gt.Value(t, err).NotNil()
	})

	t.Run("generation error", func(t *testing.T) {
		boom := errors.New("unavailable")
		session := &mockLLMSession{
			generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
				return nil, boom
			},
		}
		svc, err := describer.New(&mockLLMClient{session: session})
		gt.NoError(t, err).Required()

		_, err = svc.Describe(context.Background(), describer.Input{Title: "x"})
		gt.Error(t, err).Is(boom)
	})

	t.Run("no input skips the model", func(t *testing.T) {
		llm := &mockLLMClient{session: respond(`{"description":"x"}`)}
		svc, err := describer.New(llm)
		gt.NoError(t, err).Required()

		_, err = svc.Describe(context.Background(), describer.Input{})
		gt.Error(t, err).Is(model.ErrInvalidArgument)
		gt.Value(t, llm.calls).Equal(0)
	})
}
