package screenshot

import (
	"context"
	"errors"
	"time"

	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/domain/types"
	"github.com/firebook-app/firebook/pkg/utils/logging"
	"github.com/firebook-app/firebook/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultQuality        = 80
	DefaultSettleDelay    = 2 * time.Second
	DefaultDismissDelay   = 500 * time.Millisecond
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 800
)

type capturer struct {
	launcher     Launcher
	strategies   []Strategy
	selectors    []string
	quality      int
	settleDelay  time.Duration
	dismissDelay time.Duration
}

// Option is a functional option for capturer configuration
type Option func(*capturer)

func WithStrategies(strategies []Strategy) Option {
	return func(c *capturer) {
		c.strategies = strategies
	}
}

func WithOverlaySelectors(selectors []string) Option {
	return func(c *capturer) {
		c.selectors = selectors
	}
}

func WithQuality(q int) Option {
	return func(c *capturer) {
		if q > 0 && q <= 100 {
			c.quality = q
		}
	}
}

// WithDelays sets the settle delay after navigation and after overlay dismissal
func WithDelays(settle, dismiss time.Duration) Option {
	return func(c *capturer) {
		c.settleDelay = settle
		c.dismissDelay = dismiss
	}
}

// New creates a capturer. Each Capture launches its own browser through
// launcher and closes it before returning.
func New(launcher Launcher, opts ...Option) Service {
	c := &capturer{
		launcher:     launcher,
		strategies:   DefaultStrategies(),
		selectors:    DefaultOverlaySelectors(),
		quality:      DefaultQuality,
		settleDelay:  DefaultSettleDelay,
		dismissDelay: DefaultDismissDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *capturer) Capture(ctx context.Context, rawURL string) ([]byte, error) {
	if !model.IsHTTPURL(rawURL) {
		return nil, &CaptureError{
			Category: types.ScreenshotErrorInvalidURL,
			Err:      goerr.New("url must be an absolute http(s) URL", goerr.V("url", rawURL)),
		}
	}

	browser, err := c.launcher.Launch(ctx)
	if err != nil {
		return nil, NewCaptureError(goerr.Wrap(err, "failed to launch browser"))
	}
	defer safe.Close(ctx, closerFunc(browser.Close))

	page, err := browser.NewPage(ctx)
	if err != nil {
		return nil, NewCaptureError(goerr.Wrap(err, "failed to open page"))
	}

	if err := c.navigate(ctx, page, rawURL); err != nil {
		return nil, err
	}

	if err := sleep(ctx, c.settleDelay); err != nil {
		return nil, NewCaptureError(goerr.Wrap(err, "interrupted while waiting for page to settle"))
	}

	if clicked := page.DismissOverlays(ctx, c.selectors); clicked > 0 {
		logging.From(ctx).Debug("dismissed overlays", "url", rawURL, "count", clicked)
		if err := sleep(ctx, c.dismissDelay); err != nil {
			return nil, NewCaptureError(goerr.Wrap(err, "interrupted after dismissing overlays"))
		}
	}

	data, err := page.Screenshot(ctx, c.quality)
	if err != nil {
		return nil, NewCaptureError(goerr.Wrap(err, "failed to capture screenshot"))
	}

	return data, nil
}

// navigate walks the strategy ladder and stops at the first success. When
// every rung fails the result is a navigation error, unless the last failure
// was a network or browser fault.
func (c *capturer) navigate(ctx context.Context, page Page, rawURL string) error {
	var lastErr error
	for _, s := range c.strategies {
		err := page.Navigate(ctx, rawURL, s)
		if err == nil {
			return nil
		}
		lastErr = err
		logging.From(ctx).Info("navigation strategy failed",
			"url", rawURL,
			"strategy", string(s.Event),
			"timeout", s.Timeout,
			"error", err)

		if ctx.Err() != nil {
			return NewCaptureError(goerr.Wrap(ctx.Err(), "navigation interrupted"))
		}
	}

	if lastErr == nil {
		lastErr = goerr.New("no navigation strategy configured")
	}

	category := Categorize(lastErr)
	switch category {
	case types.ScreenshotErrorNetwork, types.ScreenshotErrorBrowserCrash:
	default:
		category = types.ScreenshotErrorNavigation
	}
	return &CaptureError{
		Category: category,
		Err:      goerr.Wrap(errors.Join(ErrNavigationFailed, lastErr), "failed to navigate", goerr.V("url", rawURL)),
	}
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
