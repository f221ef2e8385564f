package tagger_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/domain/types"
	"github.com/firebook-app/firebook/pkg/service/tagger"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type mockAnalyzer struct {
	classifyFn func(ctx context.Context, text string) ([]tagger.Category, error)
	entitiesFn func(ctx context.Context, text string) ([]tagger.Entity, error)
	calls      atomic.Int32
}

func (m *mockAnalyzer) Classify(ctx context.Context, text string) ([]tagger.Category, error) {
	m.calls.Add(1)
	if m.classifyFn != nil {
		return m.classifyFn(ctx, text)
	}
	return nil, nil
}

func (m *mockAnalyzer) Entities(ctx context.Context, text string) ([]tagger.Entity, error) {
	m.calls.Add(1)
	if m.entitiesFn != nil {
		return m.entitiesFn(ctx, text)
	}
	return nil, nil
}

var longText = strings.Repeat("word ", 25)

func TestSuggestDomainOnly(t *testing.T) {
	analyzer := &mockAnalyzer{}
	svc := tagger.New(analyzer)

	res, err := svc.Suggest(context.Background(), "", "", "https://www.github.com/x")
	gt.NoError(t, err).Required()
	gt.Value(t, res.Tags).Equal([]string{"Github"})
	gt.Value(t, res.Method).Equal(types.TagMethodDomainOnly)
	gt.Value(t, analyzer.calls.Load()).Equal(int32(0))
}

func TestSuggestDomainOnlyWithoutHost(t *testing.T) {
	svc := tagger.New(&mockAnalyzer{})

	res, err := svc.Suggest(context.Background(), "short", "", "")
	gt.NoError(t, err).Required()
	gt.Array(t, res.Tags).Length(0)
	gt.Value(t, res.Method).Equal(types.TagMethodDomainOnly)
}

func TestSuggestNLP(t *testing.T) {
	analyzer := &mockAnalyzer{
		classifyFn: func(ctx context.Context, text string) ([]tagger.Category, error) {
			return []tagger.Category{
				{Name: "/Computers & Electronics/Programming", Confidence: 0.9},
				{Name: "/Science/Computer Science", Confidence: 0.6},
				{Name: "/Arts & Entertainment", Confidence: 0.5},
			}, nil
		},
		entitiesFn: func(ctx context.Context, text string) ([]tagger.Entity, error) {
			return []tagger.Entity{
				{Name: "Google", Type: "ORGANIZATION", Salience: 0.4},
				{Name: "Rob Pike", Type: "PERSON", Salience: 0.2},
				{Name: "Tokyo", Type: "LOCATION", Salience: 0.9},
				{Name: "Go", Type: "CONSUMER_GOOD", Salience: 0.05},
				{Name: "programming", Type: "WORK_OF_ART", Salience: 0.3},
			}, nil
		},
	}
	svc := tagger.New(analyzer)

	res, err := svc.Suggest(context.Background(), "Go at Google", longText, "https://go.dev/talks")
	gt.NoError(t, err).Required()
	gt.Value(t, res.Method).Equal(types.TagMethodNLP)
	gt.Value(t, res.Tags).Equal([]string{"Go", "Programming", "Computer Science", "Google", "Rob Pike"})
}

func TestSuggestCapsTags(t *testing.T) {
	analyzer := &mockAnalyzer{
		classifyFn: func(ctx context.Context, text string) ([]tagger.Category, error) {
			var cats []tagger.Category
			for _, n := range []string{"A", "B", "C", "D", "E", "F"} {
				cats = append(cats, tagger.Category{Name: "/Root/" + n, Confidence: 0.8})
			}
			return cats, nil
		},
		entitiesFn: func(ctx context.Context, text string) ([]tagger.Entity, error) {
			var ents []tagger.Entity
			for _, n := range []string{"P1", "P2", "P3", "P4", "P5", "P6"} {
				ents = append(ents, tagger.Entity{Name: n, Type: "PERSON", Salience: 0.5})
			}
			return ents, nil
		},
	}
	svc := tagger.New(analyzer)

	res, err := svc.Suggest(context.Background(), "title", longText, "https://example.com")
	gt.NoError(t, err).Required()
	gt.Value(t, res.Tags).Equal([]string{"Example", "A", "B", "C", "D", "E", "P1", "P2"})
}

func TestSuggestTextTooShortFallsBack(t *testing.T) {
	analyzer := &mockAnalyzer{
		classifyFn: func(ctx context.Context, text string) ([]tagger.Category, error) {
			return nil, goerr.Wrap(model.ErrTextTooShort, "rejected")
		},
	}
	svc := tagger.New(analyzer)

	res, err := svc.Suggest(context.Background(), "title", longText, "https://www.medium.com/post")
	gt.NoError(t, err).Required()
	gt.Value(t, res.Tags).Equal([]string{"Medium"})
	gt.Value(t, res.Method).Equal(types.TagMethodDomainFallback)
}

func TestSuggestOtherErrorsPropagate(t *testing.T) {
	analyzer := &mockAnalyzer{
		entitiesFn: func(ctx context.Context, text string) ([]tagger.Entity, error) {
			return nil, errors.New("unavailable")
		},
	}
	svc := tagger.New(analyzer)

	_, err := svc.Suggest(context.Background(), "title", longText, "https://example.com")
	gt.Value(t, err).NotNil()
}

func TestSuggestWithoutAnalyzer(t *testing.T) {
	svc := tagger.New(nil)
	res, err := svc.Suggest(context.Background(), "title", longText, "https://example.com")
	gt.NoError(t, err).Required()
	gt.Value(t, res.Tags).Equal([]string{"Example"})
	gt.Value(t, res.Method).Equal(types.TagMethodDomainOnly)
}

func TestWrapLanguageError(t *testing.T) {
	short := status.Error(codes.InvalidArgument, "Invalid text content: too few tokens (words) to process.")
	gt.Error(t, tagger.WrapLanguageError(short, "classify")).Is(model.ErrTextTooShort)

	enough := status.Error(codes.InvalidArgument, "The document does not have enough text")
	gt.Error(t, tagger.WrapLanguageError(enough, "classify")).Is(model.ErrTextTooShort)

	other := status.Error(codes.InvalidArgument, "unsupported language: xx")
	gt.Bool(t, errors.Is(tagger.WrapLanguageError(other, "classify"), model.ErrTextTooShort)).False()

	unavailable := status.Error(codes.Unavailable, "try later")
	gt.Bool(t, errors.Is(tagger.WrapLanguageError(unavailable, "classify"), model.ErrTextTooShort)).False()
}
