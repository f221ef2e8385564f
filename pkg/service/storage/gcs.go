package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"
)

const (
	DefaultPublicBase   = "https://storage.googleapis.com"
	DefaultCacheControl = "public, max-age=86400"
)

// GCS writes objects to a Cloud Storage bucket and returns their public URL
type GCS struct {
	client       *storage.Client
	bucket       string
	publicBase   string
	publicRead   bool
	cacheControl string
}

type Option func(*GCS)

// WithPublicBase overrides the host used to build public URLs, e.g. a CDN
// domain in front of the bucket.
func WithPublicBase(base string) Option {
	return func(g *GCS) {
		g.publicBase = strings.TrimSuffix(base, "/")
	}
}

// WithPublicRead controls whether the publicRead ACL is set per object.
// Buckets with uniform access must grant public access at bucket level
// and disable this.
func WithPublicRead(enabled bool) Option {
	return func(g *GCS) {
		g.publicRead = enabled
	}
}

func WithCacheControl(v string) Option {
	return func(g *GCS) {
		g.cacheControl = v
	}
}

func NewGCS(ctx context.Context, bucket string, clientOpts []option.ClientOption, opts ...Option) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("bucket name is required")
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}

	g := &GCS{
		client:       client,
		bucket:       bucket,
		publicBase:   DefaultPublicBase,
		publicRead:   true,
		cacheControl: DefaultCacheControl,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *GCS) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	w := g.client.Bucket(g.bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = g.cacheControl
	if g.publicRead {
		w.PredefinedACL = "publicRead"
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", goerr.Wrap(err, "failed to write object", goerr.V("bucket", g.bucket), goerr.V("path", path))
	}
	if err := w.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to finalize object", goerr.V("bucket", g.bucket), goerr.V("path", path))
	}

	return PublicURL(g.publicBase, g.bucket, path), nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}

// PublicURL returns the object URL under base, escaping each path segment
func PublicURL(base, bucket, path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(base, "/"), bucket, strings.Join(segments, "/"))
}

// ScreenshotPath is where the screenshot of a bookmark is stored
func ScreenshotPath(ownerID, bookmarkID string) string {
	return fmt.Sprintf("screenshots/%s/%s.jpg", ownerID, bookmarkID)
}
