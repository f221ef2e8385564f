package screenshot

import (
	"context"
	"time"
)

// Service captures a viewport JPEG of a page
type Service interface {
	// Capture returns the JPEG bytes. Errors are *CaptureError carrying a
	// triage category.
	Capture(ctx context.Context, rawURL string) ([]byte, error)
}

// Launcher starts a headless browser process
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// Browser is one launched browser process. Close must kill the process.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a browser tab prepared with the stealth profile
type Page interface {
	// Navigate loads url and waits for the strategy's lifecycle event within
	// its timeout.
	Navigate(ctx context.Context, url string, strategy Strategy) error
	// DismissOverlays clicks visible elements matching selectors and returns
	// how many were clicked. Failures are ignored.
	DismissOverlays(ctx context.Context, selectors []string) int
	Screenshot(ctx context.Context, quality int) ([]byte, error)
}

// WaitEvent is the page lifecycle milestone a navigation waits for
type WaitEvent string

const (
	WaitNetworkIdle      WaitEvent = "networkidle2"
	WaitDOMContentLoaded WaitEvent = "domcontentloaded"
	WaitLoad             WaitEvent = "load"
)

// Strategy is one rung of the navigation fallback ladder
type Strategy struct {
	Event   WaitEvent
	Timeout time.Duration
}

// DefaultStrategies is the navigation ladder, tried in order
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Event: WaitNetworkIdle, Timeout: 20 * time.Second},
		{Event: WaitDOMContentLoaded, Timeout: 15 * time.Second},
		{Event: WaitLoad, Timeout: 10 * time.Second},
	}
}

// DefaultOverlaySelectors match common cookie banners, consent dialogs and
// close buttons.
func DefaultOverlaySelectors() []string {
	return []string{
		"#onetrust-accept-btn-handler",
		`[id*="cookie"] button`,
		`[class*="cookie"] button`,
		`[id*="consent"] button`,
		`[class*="consent"] button`,
		`button[aria-label*="close" i]`,
		`button[aria-label*="dismiss" i]`,
		`[class*="modal"] [class*="close"]`,
	}
}
