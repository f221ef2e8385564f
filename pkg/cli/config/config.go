package config

import (
	"os"
	"time"

	"github.com/firebook-app/firebook/pkg/service/metadata"
	"github.com/firebook-app/firebook/pkg/service/screenshot"
	"github.com/firebook-app/firebook/pkg/service/tagger"
	"github.com/firebook-app/firebook/pkg/service/worker"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// Duration reads TOML strings such as "15s" or "2m"
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return goerr.Wrap(ErrInvalidConfig, "invalid duration", goerr.V("value", string(text)))
	}
	d.Duration = v
	return nil
}

// AppConfig is the optional pipeline tuning file. Zero values keep the
// component defaults.
type AppConfig struct {
	Metadata   MetadataConfig   `toml:"metadata"`
	Screenshot ScreenshotConfig `toml:"screenshot"`
	Tags       TagsConfig       `toml:"tags"`
	Worker     WorkerConfig     `toml:"worker"`
}

type MetadataConfig struct {
	Timeout   Duration `toml:"timeout"`
	UserAgent string   `toml:"user_agent"`
}

type ScreenshotConfig struct {
	Width        int      `toml:"width"`
	Height       int      `toml:"height"`
	Quality      int      `toml:"quality"`
	SettleDelay  Duration `toml:"settle_delay"`
	DismissDelay Duration `toml:"dismiss_delay"`
	UserAgent    string   `toml:"user_agent"`
}

type TagsConfig struct {
	MaxTags  int `toml:"max_tags"`
	MinWords int `toml:"min_words"`
}

type WorkerConfig struct {
	Workers    int      `toml:"workers"`
	QueueSize  int      `toml:"queue_size"`
	JobTimeout Duration `toml:"job_timeout"`
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	if a.Metadata.Timeout.Duration < 0 {
		return goerr.Wrap(ErrInvalidConfig, "metadata timeout must not be negative", goerr.V(FieldKey, "metadata.timeout"))
	}

	s := a.Screenshot
	if (s.Width == 0) != (s.Height == 0) || s.Width < 0 || s.Height < 0 {
		return goerr.Wrap(ErrInvalidConfig, "screenshot width and height must be set together",
			goerr.V("width", s.Width), goerr.V("height", s.Height))
	}
	if s.Quality < 0 || s.Quality > 100 {
		return goerr.Wrap(ErrInvalidConfig, "screenshot quality must be between 1 and 100", goerr.V("quality", s.Quality))
	}
	if s.SettleDelay.Duration < 0 || s.DismissDelay.Duration < 0 {
		return goerr.Wrap(ErrInvalidConfig, "screenshot delays must not be negative")
	}

	if a.Tags.MaxTags < 0 || a.Tags.MinWords < 0 {
		return goerr.Wrap(ErrInvalidConfig, "tag limits must not be negative",
			goerr.V("max_tags", a.Tags.MaxTags), goerr.V("min_words", a.Tags.MinWords))
	}

	if a.Worker.Workers < 0 || a.Worker.QueueSize < 0 || a.Worker.JobTimeout.Duration < 0 {
		return goerr.Wrap(ErrInvalidConfig, "worker settings must not be negative")
	}
	return nil
}

// LoadAppConfiguration loads the application configuration from a TOML file
func LoadAppConfiguration(path string) (*AppConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var config AppConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(err, "failed to parse TOML config", goerr.V(ConfigPathKey, path))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &config, nil
}

func (a *AppConfig) MetadataOptions() []metadata.Option {
	return []metadata.Option{
		metadata.WithTimeout(a.Metadata.Timeout.Duration),
		metadata.WithUserAgent(a.Metadata.UserAgent),
	}
}

func (a *AppConfig) ScreenshotOptions() []screenshot.Option {
	opts := []screenshot.Option{screenshot.WithQuality(a.Screenshot.Quality)}
	if a.Screenshot.SettleDelay.Duration > 0 || a.Screenshot.DismissDelay.Duration > 0 {
		opts = append(opts, screenshot.WithDelays(
			orDefault(a.Screenshot.SettleDelay.Duration, screenshot.DefaultSettleDelay),
			orDefault(a.Screenshot.DismissDelay.Duration, screenshot.DefaultDismissDelay),
		))
	}
	return opts
}

func (a *AppConfig) RodOptions() []screenshot.RodOption {
	return []screenshot.RodOption{
		screenshot.WithViewport(a.Screenshot.Width, a.Screenshot.Height),
		screenshot.WithUserAgent(a.Screenshot.UserAgent),
	}
}

func (a *AppConfig) TaggerOptions() []tagger.Option {
	var opts []tagger.Option
	if a.Tags.MaxTags > 0 {
		opts = append(opts, tagger.WithMaxTags(a.Tags.MaxTags))
	}
	if a.Tags.MinWords > 0 {
		opts = append(opts, tagger.WithMinWords(a.Tags.MinWords))
	}
	return opts
}

func (a *AppConfig) PoolOptions() []worker.PoolOption {
	return []worker.PoolOption{
		worker.WithWorkers(a.Worker.Workers),
		worker.WithQueueSize(a.Worker.QueueSize),
		worker.WithJobTimeout(a.Worker.JobTimeout.Duration),
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

// App holds the --config flag
type App struct {
	path string
}

func (a *App) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Pipeline tuning file (TOML)",
			Sources:     cli.EnvVars("FIREBOOK_CONFIG"),
			Destination: &a.path,
		},
	}
}

// Configure loads the tuning file, or returns an empty AppConfig when no
// file is given
func (a *App) Configure() (*AppConfig, error) {
	if a.path == "" {
		return &AppConfig{}, nil
	}
	return LoadAppConfiguration(a.path)
}
