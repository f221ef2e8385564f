package types

// ScreenshotErrorCategory is the coarse triage bucket of a failed capture
type ScreenshotErrorCategory string

const (
	ScreenshotErrorInvalidURL     ScreenshotErrorCategory = "invalid_url"
	ScreenshotErrorChromeNotFound ScreenshotErrorCategory = "chrome_not_found"
	ScreenshotErrorTimeout        ScreenshotErrorCategory = "timeout"
	ScreenshotErrorNetwork        ScreenshotErrorCategory = "network"
	ScreenshotErrorNavigation     ScreenshotErrorCategory = "navigation"
	ScreenshotErrorBrowserCrash   ScreenshotErrorCategory = "browser_crash"
	ScreenshotErrorUnknown        ScreenshotErrorCategory = "unknown"
)

// AllScreenshotErrorCategories returns all categories
func AllScreenshotErrorCategories() []ScreenshotErrorCategory {
	return []ScreenshotErrorCategory{
		ScreenshotErrorInvalidURL,
		ScreenshotErrorChromeNotFound,
		ScreenshotErrorTimeout,
		ScreenshotErrorNetwork,
		ScreenshotErrorNavigation,
		ScreenshotErrorBrowserCrash,
		ScreenshotErrorUnknown,
	}
}

func (c ScreenshotErrorCategory) String() string {
	return string(c)
}
