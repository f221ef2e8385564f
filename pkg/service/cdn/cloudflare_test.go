package cdn_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/firebook-app/firebook/pkg/service/cdn"
	"github.com/m-mizutani/gt"
)

type purgeRecorder struct {
	mu       sync.Mutex
	requests []map[string]any
	failAt   int
}

func (p *purgeRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if r.URL.Path != "/zones/zone-1/purge_cache" || r.Header.Get("Authorization") != "Bearer token-1" {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"success":false,"errors":[{"code":10000,"message":"Authentication error"}]}`))
		return
	}

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	p.requests = append(p.requests, body)

	if p.failAt > 0 && len(p.requests) == p.failAt {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"errors":[{"code":1015,"message":"rate limited"}]}`))
		return
	}
	_, _ = w.Write([]byte(`{"success":true,"errors":[]}`))
}

func newClient(t *testing.T, rec *purgeRecorder) *cdn.Cloudflare {
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)

	c, err := cdn.New("zone-1", "token-1", "https://firebook.example.com/", cdn.WithAPIBase(srv.URL))
	gt.NoError(t, err).Required()
	return c
}

func urls(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("https://firebook.example.com/bookmarks/%d", i)
	}
	return out
}

func TestPurgeURLs(t *testing.T) {
	ctx := context.Background()

	t.Run("batches of thirty", func(t *testing.T) {
		rec := &purgeRecorder{}
		c := newClient(t, rec)

		result, err := c.PurgeURLs(ctx, urls(65))
		gt.NoError(t, err).Required()
		gt.Bool(t, result.Success).True()
		gt.Value(t, result.Purged).Equal(65)
		gt.Array(t, rec.requests).Length(3)
		gt.Array(t, rec.requests[0]["files"].([]any)).Length(30)
		gt.Array(t, rec.requests[2]["files"].([]any)).Length(5)
	})

	t.Run("duplicates are removed", func(t *testing.T) {
		rec := &purgeRecorder{}
		c := newClient(t, rec)

		u := urls(2)
		result, err := c.PurgeURLs(ctx, []string{u[0], u[1], u[0], ""})
		gt.NoError(t, err).Required()
		gt.Value(t, result.Purged).Equal(2)
	})

	t.Run("failed batch is collected", func(t *testing.T) {
		rec := &purgeRecorder{failAt: 1}
		c := newClient(t, rec)

		result, err := c.PurgeURLs(ctx, urls(40))
		gt.NoError(t, err).Required()
		gt.Bool(t, result.Success).False()
		gt.Value(t, result.Purged).Equal(10)
		gt.Array(t, result.Errors).Length(1)
		gt.String(t, result.Errors[0]).Contains("rate limited")
	})

	t.Run("empty input makes no request", func(t *testing.T) {
		rec := &purgeRecorder{}
		c := newClient(t, rec)

		result, err := c.PurgeURLs(ctx, nil)
		gt.NoError(t, err).Required()
		gt.Bool(t, result.Success).True()
		gt.Array(t, rec.requests).Length(0)
	})
}

func TestPurgeEverything(t *testing.T) {
	rec := &purgeRecorder{}
	c := newClient(t, rec)

	gt.NoError(t, c.PurgeEverything(context.Background())).Required()
	gt.Array(t, rec.requests).Length(1)
	gt.Value(t, rec.requests[0]["purge_everything"]).Equal(any(true))
}

func TestPurgeBookmark(t *testing.T) {
	rec := &purgeRecorder{}
	c := newClient(t, rec)

	result, err := c.PurgeBookmark(context.Background(), "bm-1")
	gt.NoError(t, err).Required()
	gt.Value(t, result.Purged).Equal(4)
	gt.Value(t, rec.requests[0]["files"]).Equal(any([]any{
		"https://firebook.example.com/",
		"https://firebook.example.com/index.html",
		"https://firebook.example.com/bookmarks",
		"https://firebook.example.com/bookmarks/bm-1",
	}))
}

func TestAuthFailure(t *testing.T) {
	srv := httptest.NewServer(&purgeRecorder{})
	t.Cleanup(srv.Close)

	c, err := cdn.New("zone-1", "wrong", "https://firebook.example.com", cdn.WithAPIBase(srv.URL))
	gt.NoError(t, err).Required()

	err = c.PurgeEverything(context.Background())
	gt.Value(t, err).NotNil()
	gt.String(t, err.Error()).Contains("Authentication error")
}

func TestNew(t *testing.T) {
	_, err := cdn.New("", "t", "")
	gt.Value(t, err).NotNil()
}
