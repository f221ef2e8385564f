package screenshot

import (
	"context"
	"errors"
	"strings"

	"github.com/firebook-app/firebook/pkg/domain/types"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrChromeNotFound   = goerr.New("chrome executable not found")
	ErrNavigationFailed = goerr.New("all navigation strategies failed")
)

// CaptureError is a failed capture with its triage category
type CaptureError struct {
	Category types.ScreenshotErrorCategory
	Err      error
}

func (e *CaptureError) Error() string {
	return string(e.Category) + ": " + e.Err.Error()
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// NewCaptureError wraps err with the category derived by Categorize
func NewCaptureError(err error) *CaptureError {
	var ce *CaptureError
	if errors.As(err, &ce) {
		return ce
	}
	return &CaptureError{Category: Categorize(err), Err: err}
}

// CategoryOf returns the category of a capture error, or unknown
func CategoryOf(err error) types.ScreenshotErrorCategory {
	var ce *CaptureError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return Categorize(err)
}

// Categorize maps an error to a triage category. Typed errors from the
// launcher, context and the rod/CDP layers are checked first. Message
// matching is a best-effort fallback for errors that only carry text, such
// as Chrome's net::ERR_* codes surfaced through other wrappers.
func Categorize(err error) types.ScreenshotErrorCategory {
	if err == nil {
		return types.ScreenshotErrorUnknown
	}

	switch {
	case errors.Is(err, ErrChromeNotFound):
		return types.ScreenshotErrorChromeNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return types.ScreenshotErrorTimeout
	}

	var navErr *rod.NavigationError
	if errors.As(err, &navErr) {
		if strings.HasPrefix(navErr.Reason, "net::ERR_") && !strings.Contains(navErr.Reason, "TIMED_OUT") {
			return types.ScreenshotErrorNetwork
		}
		if strings.Contains(navErr.Reason, "TIMED_OUT") {
			return types.ScreenshotErrorTimeout
		}
		return types.ScreenshotErrorNavigation
	}

	var cdpErr *cdp.Error
	if errors.As(err, &cdpErr) {
		return types.ScreenshotErrorBrowserCrash
	}

	if errors.Is(err, ErrNavigationFailed) {
		return types.ScreenshotErrorNavigation
	}

	return categorizeMessage(err.Error())
}

func categorizeMessage(msg string) types.ScreenshotErrorCategory {
	lower := strings.ToLower(msg)
	contains := func(subs ...string) bool {
		for _, s := range subs {
			if strings.Contains(lower, s) {
				return true
			}
		}
		return false
	}

	switch {
	case contains("executable", "could not find chrome", "failed to launch"):
		return types.ScreenshotErrorChromeNotFound
	case contains("timed_out", "timeout", "deadline exceeded"):
		return types.ScreenshotErrorTimeout
	case contains("net::err_", "econnrefused", "enotfound", "connection refused", "no such host", "connection reset"):
		return types.ScreenshotErrorNetwork
	case contains("protocol error", "target closed", "websocket", "session closed", "use of closed network connection"):
		return types.ScreenshotErrorBrowserCrash
	case contains("navigation"):
		return types.ScreenshotErrorNavigation
	default:
		return types.ScreenshotErrorUnknown
	}
}
