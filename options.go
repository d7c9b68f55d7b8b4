package dnxdeps

import (
	"errors"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/albertocavalcante/go-dnxdeps/cache"
	"github.com/albertocavalcante/go-dnxdeps/feed"
	"github.com/albertocavalcante/go-dnxdeps/framework"
	"github.com/albertocavalcante/go-dnxdeps/provider"
)

// Option configures a Context.
type Option func(*contextConfig) error

// contextConfig holds all context configuration.
type contextConfig struct {
	fs            afero.Fs
	packagesDirs  []string
	feeds         []feed.Source
	feedCacheSize int
	resolver      provider.ProjectResolver
	table         *framework.Table
	metrics       *cache.Metrics

	// logger is the structured logger for debug output.
	// If nil, logging is disabled (silent mode).
	logger *slog.Logger
}

// WithFS sets the filesystem manifests, projects and package directories are read
// from. The default is the OS filesystem.
func WithFS(fs afero.Fs) Option {
	return func(c *contextConfig) error {
		if fs == nil {
			return errors.New("filesystem is nil")
		}
		c.fs = fs
		return nil
	}
}

// WithPackagesDir adds an unpacked package feed directory. Directories are consulted
// in the order given, before any WithFeed sources.
func WithPackagesDir(dir string) Option {
	return func(c *contextConfig) error {
		if dir == "" {
			return errors.New("packages directory is empty")
		}
		c.packagesDirs = append(c.packagesDirs, dir)
		return nil
	}
}

// WithFeed adds a package source.
func WithFeed(src feed.Source) Option {
	return func(c *contextConfig) error {
		if src == nil {
			return errors.New("package source is nil")
		}
		c.feeds = append(c.feeds, src)
		return nil
	}
}

// WithFeedCacheSize bounds how many parsed packages each packages directory keeps in
// memory.
func WithFeedCacheSize(n int) Option {
	return func(c *contextConfig) error {
		c.feedCacheSize = n
		return nil
	}
}

// WithProjectResolver replaces the search-path project lookup.
func WithProjectResolver(r provider.ProjectResolver) Option {
	return func(c *contextConfig) error {
		c.resolver = r
		return nil
	}
}

// WithFrameworkTable sets the framework compatibility data. The default is
// framework.Default().
func WithFrameworkTable(t *framework.Table) Option {
	return func(c *contextConfig) error {
		c.table = t
		return nil
	}
}

// WithMetrics records cache activity in m.
func WithMetrics(m *cache.Metrics) Option {
	return func(c *contextConfig) error {
		c.metrics = m
		return nil
	}
}

// WithLogger sets a structured logger for resolution diagnostics.
// If not set, logging is disabled (silent mode).
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil)).With("component", "dnxdeps")
//	c, err := dnxdeps.New(dir, "Debug", fw, dnxdeps.WithLogger(logger))
func WithLogger(l *slog.Logger) Option {
	return func(c *contextConfig) error {
		c.logger = l
		return nil
	}
}

// validate checks the configuration for logical consistency.
func (c *contextConfig) validate() error {
	if c.feedCacheSize < 0 {
		return errors.New("feed cache size must not be negative")
	}
	return nil
}

// log returns the configured logger, or a no-op logger if none was set.
func (c *contextConfig) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.New(slog.DiscardHandler)
}

// newContextConfig creates a configuration by applying the given options, filling
// defaults and validating the result.
func newContextConfig(opts ...Option) (*contextConfig, error) {
	c := &contextConfig{}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.fs == nil {
		c.fs = afero.NewOsFs()
	}
	if c.table == nil {
		c.table = framework.Default()
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// source builds the package source: packages directories first, then feeds.
func (c *contextConfig) source() (feed.Source, error) {
	sources := make([]feed.Source, 0, len(c.packagesDirs)+len(c.feeds))
	for _, dir := range c.packagesDirs {
		d, err := feed.NewDir(c.fs, dir, c.feedCacheSize)
		if err != nil {
			return nil, err
		}
		sources = append(sources, d)
	}
	sources = append(sources, c.feeds...)
	if len(sources) == 1 {
		return sources[0], nil
	}
	return feed.NewChain(sources...), nil
}
