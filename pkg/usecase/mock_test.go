package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/firebook-app/firebook/pkg/domain/interfaces"
	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/service/describer"
	"github.com/firebook-app/firebook/pkg/service/tagger"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time {
	return fixedNow
}

// mockMetadata is a spy for metadata.Service
type mockMetadata struct {
	mu        sync.Mutex
	calls     int
	extractFn func(ctx context.Context, rawURL string) *model.PageMetadata
}

func (m *mockMetadata) Extract(ctx context.Context, rawURL string) *model.PageMetadata {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.extractFn != nil {
		return m.extractFn(ctx, rawURL)
	}
	return &model.PageMetadata{
		Title:       "Go Tips",
		Description: "Learn Go the practical way with short tips",
		Favicon:     "https://go.dev/favicon.ico",
		Fetched:     true,
		FetchedAt:   fixedNow,
	}
}

func (m *mockMetadata) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockTagger struct {
	calls     int
	suggestFn func(ctx context.Context, title, description, rawURL string) (*tagger.Result, error)
}

func (m *mockTagger) Suggest(ctx context.Context, title, description, rawURL string) (*tagger.Result, error) {
	m.calls++
	if m.suggestFn != nil {
		return m.suggestFn(ctx, title, description, rawURL)
	}
	return &tagger.Result{Tags: []string{"Go", "Programming"}, Method: "nlp"}, nil
}

type mockEmbedder struct {
	calls   int
	texts   []string
	embedFn func(ctx context.Context, text string) ([]float32, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	m.texts = append(m.texts, text)
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return []float32{1, 0, 0}, nil
}

func (m *mockEmbedder) Dimension() int {
	return 3
}

type mockDescriber struct {
	calls      int
	describeFn func(ctx context.Context, input describer.Input) (string, error)
}

func (m *mockDescriber) Describe(ctx context.Context, input describer.Input) (string, error) {
	m.calls++
	if m.describeFn != nil {
		return m.describeFn(ctx, input)
	}
	return "A page about " + input.Title, nil
}

type mockScreenshot struct {
	calls     int
	captureFn func(ctx context.Context, rawURL string) ([]byte, error)
}

func (m *mockScreenshot) Capture(ctx context.Context, rawURL string) ([]byte, error) {
	m.calls++
	if m.captureFn != nil {
		return m.captureFn(ctx, rawURL)
	}
	return []byte{0xff, 0xd8, 0xff}, nil
}

type mockCDN struct {
	mu        sync.Mutex
	purged    []string
	everything int
	purgeErr  error
}

func (m *mockCDN) PurgeURLs(ctx context.Context, urls []string) (*interfaces.PurgeResult, error) {
	return &interfaces.PurgeResult{Success: true, Purged: len(urls)}, nil
}

func (m *mockCDN) PurgeEverything(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.everything++
	return m.purgeErr
}

func (m *mockCDN) PurgeBookmark(ctx context.Context, bookmarkID string) (*interfaces.PurgeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.purgeErr != nil {
		return nil, m.purgeErr
	}
	m.purged = append(m.purged, bookmarkID)
	return &interfaces.PurgeResult{Success: true, Purged: 4}, nil
}
