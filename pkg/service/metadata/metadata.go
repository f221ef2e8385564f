package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/utils/logging"
	"github.com/firebook-app/firebook/pkg/utils/safe"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	maxRedirects = 5
	maxBodySize  = 5 << 20
)

var errTooManyRedirects = goerr.New("stopped after too many redirects")

type client struct {
	httpClient HTTPClient
	userAgent  string
	timeout    time.Duration
	now        func() time.Time
}

// Option is a functional option for client configuration
type Option func(*client)

// WithHTTPClient replaces the default single-attempt HTTP client
func WithHTTPClient(c HTTPClient) Option {
	return func(x *client) {
		x.httpClient = c
	}
}

func WithUserAgent(ua string) Option {
	return func(x *client) {
		if ua != "" {
			x.userAgent = ua
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(x *client) {
		if d > 0 {
			x.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(x *client) {
		x.now = now
	}
}

// New creates a metadata extractor
func New(opts ...Option) Service {
	x := &client{
		userAgent: DefaultUserAgent,
		timeout:   DefaultTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(x)
	}
	if x.httpClient == nil {
		x.httpClient = newHTTPClient(x.timeout)
	}
	return x
}

// newHTTPClient issues exactly one attempt; a page fetch is not worth retrying
// inside the enrichment chain.
func newHTTPClient(timeout time.Duration) HTTPClient {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.Logger = nil

	std := rc.StandardClient()
	std.Timeout = timeout
	rc.HTTPClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > maxRedirects {
			return errTooManyRedirects
		}
		return nil
	}
	return std
}

func (x *client) Extract(ctx context.Context, rawURL string) *model.PageMetadata {
	fetchedAt := x.now().UTC()

	base, doc, err := x.fetch(ctx, rawURL)
	if err != nil {
		logging.From(ctx).Warn("failed to fetch page metadata", "url", rawURL, "error", err)
		return &model.PageMetadata{
			Fetched:   false,
			FetchedAt: fetchedAt,
			Error:     err.Error(),
		}
	}

	meta := Parse(doc, base)
	meta.Fetched = true
	meta.FetchedAt = fetchedAt
	return meta
}

func (x *client) fetch(ctx context.Context, rawURL string) (*url.URL, *goquery.Document, error) {
	if !model.IsHTTPURL(rawURL) {
		return nil, nil, goerr.New("invalid URL", goerr.V("url", rawURL))
	}

	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to build request", goerr.V("url", rawURL))
	}
	req.Header.Set("User-Agent", x.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to fetch page", goerr.V("url", rawURL))
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, goerr.New(fmt.Sprintf("HTTP %d", resp.StatusCode), goerr.V("url", rawURL))
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to parse page", goerr.V("url", rawURL))
	}

	base := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL
	}
	return base, doc, nil
}

// Parse extracts metadata from a parsed page. base is the final page URL and
// is used to resolve relative image and favicon links against its origin.
func Parse(doc *goquery.Document, base *url.URL) *model.PageMetadata {
	meta := &model.PageMetadata{
		Title: firstNonEmpty(
			attr(doc, `meta[property="og:title"]`, "content"),
			attr(doc, `meta[name="twitter:title"]`, "content"),
			strings.TrimSpace(doc.Find("title").First().Text()),
		),
		Description: firstNonEmpty(
			attr(doc, `meta[property="og:description"]`, "content"),
			attr(doc, `meta[name="twitter:description"]`, "content"),
			attr(doc, `meta[name="description"]`, "content"),
		),
		SiteName: attr(doc, `meta[property="og:site_name"]`, "content"),
	}

	meta.Title = model.Truncate(meta.Title, model.MaxTitleLength, model.TitleKeepLength)
	meta.Description = model.Truncate(meta.Description, model.MaxDescriptionLength, model.DescKeepLength)

	if image := firstNonEmpty(
		attr(doc, `meta[property="og:image"]`, "content"),
		attr(doc, `meta[name="twitter:image"]`, "content"),
	); image != "" {
		meta.Image = resolve(base, image)
	}

	favicon := firstNonEmpty(
		attr(doc, `link[rel="icon"]`, "href"),
		attr(doc, `link[rel="shortcut icon"]`, "href"),
		attr(doc, `link[rel="apple-touch-icon"]`, "href"),
		"/favicon.ico",
	)
	meta.Favicon = resolve(base, favicon)

	return meta
}

func attr(doc *goquery.Document, selector, name string) string {
	v, _ := doc.Find(selector).First().Attr(name)
	return strings.TrimSpace(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolve makes ref absolute against the scheme and host of the page, so a
// path-relative ref lands at the site root. Unparseable refs are returned
// unchanged.
func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(ref)
	if err != nil || base == nil {
		return ref
	}
	origin := &url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/"}
	return origin.ResolveReference(u).String()
}
