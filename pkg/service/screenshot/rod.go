package screenshot

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/m-mizutani/goerr/v2"
	"github.com/ysmood/gson"
)

const (
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultAcceptLanguage = "en-US,en;q=0.9"
	defaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
)

// RodLauncher starts Chrome through go-rod with the stealth profile
type RodLauncher struct {
	bin            string
	noSandbox      bool
	userAgent      string
	acceptLanguage string
	width          int
	height         int
}

type RodOption func(*RodLauncher)

// WithBin uses a fixed Chrome binary instead of looking one up
func WithBin(path string) RodOption {
	return func(l *RodLauncher) {
		l.bin = path
	}
}

// WithNoSandbox disables the Chrome sandbox, needed when running as root in containers
func WithNoSandbox(v bool) RodOption {
	return func(l *RodLauncher) {
		l.noSandbox = v
	}
}

func WithUserAgent(ua string) RodOption {
	return func(l *RodLauncher) {
		if ua != "" {
			l.userAgent = ua
		}
	}
}

func WithViewport(width, height int) RodOption {
	return func(l *RodLauncher) {
		if width > 0 && height > 0 {
			l.width, l.height = width, height
		}
	}
}

func NewRodLauncher(opts ...RodOption) *RodLauncher {
	l := &RodLauncher{
		userAgent:      DefaultUserAgent,
		acceptLanguage: DefaultAcceptLanguage,
		width:          DefaultViewportWidth,
		height:         DefaultViewportHeight,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var _ Launcher = &RodLauncher{}

func (l *RodLauncher) Launch(ctx context.Context) (Browser, error) {
	bin := l.bin
	if bin == "" {
		path, found := launcher.LookPath()
		if !found {
			return nil, goerr.Wrap(ErrChromeNotFound, "no chrome binary on this host")
		}
		bin = path
	}

	lc := launcher.New().
		Context(ctx).
		Bin(bin).
		Headless(true).
		NoSandbox(l.noSandbox).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("window-size", fmt.Sprintf("%d,%d", l.width, l.height))

	controlURL, err := lc.Launch()
	if err != nil {
		lc.Kill()
		return nil, goerr.Wrap(err, "failed to launch chrome", goerr.V("bin", bin))
	}

	browser := rod.New().Context(ctx).ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		lc.Kill()
		return nil, goerr.Wrap(err, "failed to connect to chrome")
	}

	return &rodBrowser{
		browser:  browser,
		launcher: lc,
		settings: l,
	}, nil
}

type rodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	settings *RodLauncher
}

func (b *rodBrowser) NewPage(ctx context.Context) (Page, error) {
	page, err := stealth.Page(b.browser)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create stealth page")
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             b.settings.width,
		Height:            b.settings.height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to set viewport")
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      b.settings.userAgent,
		AcceptLanguage: b.settings.acceptLanguage,
		Platform:       "Win32",
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to set user agent")
	}

	if _, err := page.SetExtraHeaders([]string{
		"Accept", defaultAccept,
		"Accept-Language", b.settings.acceptLanguage,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to set headers")
	}

	return &rodPage{page: page}, nil
}

// Close closes the browser and always kills the process afterwards
func (b *rodBrowser) Close() error {
	err := b.browser.Close()
	b.launcher.Kill()
	b.launcher.Cleanup()
	if err != nil {
		return goerr.Wrap(err, "failed to close browser")
	}
	return nil
}

type rodPage struct {
	page *rod.Page
}

func lifecycleEvent(e WaitEvent) proto.PageLifecycleEventName {
	switch e {
	case WaitNetworkIdle:
		return proto.PageLifecycleEventNameNetworkAlmostIdle
	case WaitDOMContentLoaded:
		return proto.PageLifecycleEventNameDOMContentLoaded
	default:
		return proto.PageLifecycleEventNameLoad
	}
}

func (p *rodPage) Navigate(ctx context.Context, url string, s Strategy) error {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	page := p.page.Context(ctx)
	wait := page.WaitNavigation(lifecycleEvent(s.Event))
	if err := page.Navigate(url); err != nil {
		return err
	}
	wait()

	if err := ctx.Err(); err != nil {
		return goerr.Wrap(err, "navigation wait did not complete",
			goerr.V("strategy", string(s.Event)), goerr.V("timeout", s.Timeout))
	}
	return nil
}

func (p *rodPage) DismissOverlays(ctx context.Context, selectors []string) int {
	clicked := 0
	for _, sel := range selectors {
		elements, err := p.page.Context(ctx).Elements(sel)
		if err != nil {
			continue
		}
		for _, el := range elements {
			el = el.Timeout(time.Second)
			visible, err := el.Visible()
			if err != nil || !visible {
				continue
			}
			if err := el.Click(proto.InputMouseButtonLeft, 1); err == nil {
				clicked++
			}
		}
	}
	return clicked
}

func (p *rodPage) Screenshot(ctx context.Context, quality int) ([]byte, error) {
	data, err := p.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(quality),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to take screenshot")
	}
	return data, nil
}
