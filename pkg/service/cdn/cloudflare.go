package cdn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/firebook-app/firebook/pkg/domain/interfaces"
	"github.com/firebook-app/firebook/pkg/utils/logging"
	"github.com/firebook-app/firebook/pkg/utils/safe"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultAPIBase = "https://api.cloudflare.com/client/v4"
	DefaultTimeout = 30 * time.Second

	// MaxURLsPerRequest is the Cloudflare limit of files per purge call
	MaxURLsPerRequest = 30
)

// Cloudflare purges cached pages of the public site through the zone purge API
type Cloudflare struct {
	apiBase string
	zoneID  string
	token   string
	appBase string
	client  *http.Client
}

type Option func(*Cloudflare)

func WithAPIBase(base string) Option {
	return func(c *Cloudflare) {
		c.apiBase = strings.TrimSuffix(base, "/")
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Cloudflare) {
		c.client = client
	}
}

// New creates a Cloudflare client. appBase is the public site URL whose
// pages are purged by PurgeBookmark.
func New(zoneID, token, appBase string, opts ...Option) (*Cloudflare, error) {
	if zoneID == "" || token == "" {
		return nil, goerr.New("cloudflare zone ID and API token are required")
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.Logger = nil
	std := rc.StandardClient()
	std.Timeout = DefaultTimeout

	c := &Cloudflare{
		apiBase: DefaultAPIBase,
		zoneID:  zoneID,
		token:   token,
		appBase: strings.TrimSuffix(appBase, "/"),
		client:  std,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type purgeResponse struct {
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// PurgeURLs purges the deduplicated URLs in batches. A failing batch does
// not stop the remaining ones; its error is collected into the result.
func (c *Cloudflare) PurgeURLs(ctx context.Context, urls []string) (*interfaces.PurgeResult, error) {
	files := dedup(urls)
	result := &interfaces.PurgeResult{Success: true}
	if len(files) == 0 {
		return result, nil
	}

	for start := 0; start < len(files); start += MaxURLsPerRequest {
		end := min(start+MaxURLsPerRequest, len(files))
		batch := files[start:end]

		if err := c.purge(ctx, map[string]any{"files": batch}); err != nil {
			logging.From(ctx).Warn("CDN purge batch failed", "batch_start", start, "size", len(batch), "error", err)
			result.Success = false
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.Purged += len(batch)
	}

	return result, nil
}

func (c *Cloudflare) PurgeEverything(ctx context.Context) error {
	return c.purge(ctx, map[string]any{"purge_everything": true})
}

// PurgeBookmark purges the pages that render the bookmark
func (c *Cloudflare) PurgeBookmark(ctx context.Context, bookmarkID string) (*interfaces.PurgeResult, error) {
	if c.appBase == "" {
		return nil, goerr.New("app base URL is not configured")
	}
	return c.PurgeURLs(ctx, BookmarkURLs(c.appBase, bookmarkID))
}

// BookmarkURLs lists the pages of the public site that show the bookmark
func BookmarkURLs(appBase, bookmarkID string) []string {
	base := strings.TrimSuffix(appBase, "/")
	urls := []string{
		base + "/",
		base + "/index.html",
		base + "/bookmarks",
	}
	if bookmarkID != "" {
		urls = append(urls, base+"/bookmarks/"+bookmarkID)
	}
	return urls
}

func (c *Cloudflare) purge(ctx context.Context, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return goerr.Wrap(err, "failed to encode purge request")
	}

	endpoint := fmt.Sprintf("%s/zones/%s/purge_cache", c.apiBase, c.zoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return goerr.Wrap(err, "failed to build purge request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return goerr.Wrap(err, "purge request failed")
	}
	defer safe.Close(ctx, resp.Body)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return goerr.Wrap(err, "failed to read purge response")
	}

	var pr purgeResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return goerr.Wrap(err, "failed to decode purge response",
			goerr.V("status", resp.StatusCode), goerr.V("body", string(raw)))
	}

	if resp.StatusCode != http.StatusOK || !pr.Success {
		msgs := make([]string, 0, len(pr.Errors))
		for _, e := range pr.Errors {
			msgs = append(msgs, fmt.Sprintf("%d: %s", e.Code, e.Message))
		}
		return goerr.New("purge rejected: "+strings.Join(msgs, "; "), goerr.V("status", resp.StatusCode))
	}
	return nil
}

func dedup(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
