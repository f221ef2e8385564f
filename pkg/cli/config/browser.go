package config

import (
	"github.com/firebook-app/firebook/pkg/service/screenshot"
	"github.com/urfave/cli/v3"
)

// Browser configures the headless Chrome used for screenshots
type Browser struct {
	enabled   bool
	bin       string
	noSandbox bool
}

func (b *Browser) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "screenshot-enabled",
			Category:    "Screenshot",
			Usage:       "Capture page screenshots",
			Value:       true,
			Sources:     cli.EnvVars("FIREBOOK_SCREENSHOT_ENABLED"),
			Destination: &b.enabled,
		},
		&cli.StringFlag{
			Name:        "chrome-bin",
			Category:    "Screenshot",
			Usage:       "Path to the Chrome binary (looked up on PATH when empty)",
			Sources:     cli.EnvVars("FIREBOOK_CHROME_BIN"),
			Destination: &b.bin,
		},
		&cli.BoolFlag{
			Name:        "chrome-no-sandbox",
			Category:    "Screenshot",
			Usage:       "Run Chrome without its sandbox (needed in most containers)",
			Sources:     cli.EnvVars("FIREBOOK_CHROME_NO_SANDBOX"),
			Destination: &b.noSandbox,
		},
	}
}

// Configure returns nil when screenshots are disabled
func (b *Browser) Configure(app *AppConfig) screenshot.Service {
	if !b.enabled {
		return nil
	}

	rodOpts := append(app.RodOptions(),
		screenshot.WithBin(b.bin),
		screenshot.WithNoSandbox(b.noSandbox),
	)
	return screenshot.New(screenshot.NewRodLauncher(rodOpts...), app.ScreenshotOptions()...)
}
