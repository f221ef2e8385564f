package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/firebook-app/firebook/pkg/utils/logging"
	"github.com/firebook-app/firebook/pkg/utils/safe"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultUpstashTimeout  = 5 * time.Second
	DefaultUpstashRetryMax = 2
)

// Upstash talks to an Upstash Redis database over its REST API. All backend
// failures are logged and reported as a miss or false.
type Upstash struct {
	baseURL string
	token   string
	client  *retryablehttp.Client
}

type UpstashOption func(*Upstash)

func WithUpstashRetryMax(n int) UpstashOption {
	return func(u *Upstash) {
		u.client.RetryMax = n
	}
}

func WithUpstashTimeout(d time.Duration) UpstashOption {
	return func(u *Upstash) {
		u.client.HTTPClient.Timeout = d
	}
}

func NewUpstash(baseURL, token string, opts ...UpstashOption) (*Upstash, error) {
	if baseURL == "" {
		return nil, goerr.New("upstash URL is required")
	}
	if token == "" {
		return nil, goerr.New("upstash token is required")
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = DefaultUpstashRetryMax
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = time.Second
	rc.Logger = nil
	rc.HTTPClient.Timeout = DefaultUpstashTimeout

	u := &Upstash{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client:  rc,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

type upstashResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// legacyValue is the envelope older writers stored around the payload.
type legacyValue struct {
	Value *string `json:"value"`
	Ex    *int64  `json:"ex"`
}

func (u *Upstash) Get(ctx context.Context, key string, dst any) bool {
	var resp upstashResponse
	if err := u.call(ctx, http.MethodGet, "/get/"+url.PathEscape(key), nil, &resp); err != nil {
		logging.From(ctx).Warn("cache get failed", "key", key, "error", err)
		return false
	}

	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return false
	}

	var raw string
	if err := json.Unmarshal(resp.Result, &raw); err != nil {
		logging.From(ctx).Warn("unexpected cache result", "key", key, "error", err)
		return false
	}

	var legacy legacyValue
	if err := json.Unmarshal([]byte(raw), &legacy); err == nil && legacy.Value != nil && legacy.Ex != nil {
		raw = *legacy.Value
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		logging.From(ctx).Warn("failed to decode cached value", "key", key, "error", err)
		return false
	}
	return true
}

func (u *Upstash) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	data, err := json.Marshal(value)
	if err != nil {
		logging.From(ctx).Warn("failed to encode cache value", "key", key, "error", err)
		return false
	}

	cmd := []any{"SET", key, string(data)}
	if secs := int64(ttl / time.Second); secs > 0 {
		cmd = append(cmd, "EX", secs)
	}

	var resp []upstashResponse
	if err := u.call(ctx, http.MethodPost, "/pipeline", [][]any{cmd}, &resp); err != nil {
		logging.From(ctx).Warn("cache set failed", "key", key, "error", err)
		return false
	}
	if len(resp) != 1 || resp[0].Error != "" {
		logging.From(ctx).Warn("cache set rejected", "key", key, "response", resp)
		return false
	}
	return true
}

func (u *Upstash) Delete(ctx context.Context, keys ...string) bool {
	if len(keys) == 0 {
		return true
	}

	escaped := make([]string, len(keys))
	for i, k := range keys {
		escaped[i] = url.PathEscape(k)
	}

	var resp upstashResponse
	if err := u.call(ctx, http.MethodPost, "/del/"+strings.Join(escaped, "/"), nil, &resp); err != nil {
		logging.From(ctx).Warn("cache delete failed", "keys", keys, "error", err)
		return false
	}
	return resp.Error == ""
}

func (u *Upstash) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return goerr.Wrap(err, "failed to encode request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, u.baseURL+path, reader)
	if err != nil {
		return goerr.Wrap(err, "failed to build request", goerr.V("path", path))
	}
	req.Header.Set("Authorization", "Bearer "+u.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return goerr.Wrap(err, "request failed", goerr.V("path", path))
	}
	defer safe.Close(ctx, resp.Body)

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return goerr.Wrap(err, "failed to read response", goerr.V("path", path))
	}
	if resp.StatusCode != http.StatusOK {
		return goerr.New(fmt.Sprintf("HTTP %d", resp.StatusCode), goerr.V("path", path), goerr.V("body", string(data)))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return goerr.Wrap(err, "failed to decode response", goerr.V("path", path))
	}
	return nil
}
