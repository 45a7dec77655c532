// Package timenow reports the current time in UTC alongside a resolved local timezone.
//
// A Client combines the timezone catalog, the resolver for free-text queries, the local
// timezone detector and the profile file that persists a preferred zone.
package timenow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/codeGROOVE-dev/timenow/pkg/catalog"
	"github.com/codeGROOVE-dev/timenow/pkg/constants"
	"github.com/codeGROOVE-dev/timenow/pkg/detect"
	"github.com/codeGROOVE-dev/timenow/pkg/gemini"
	"github.com/codeGROOVE-dev/timenow/pkg/googlemaps"
	"github.com/codeGROOVE-dev/timenow/pkg/httpcache"
	"github.com/codeGROOVE-dev/timenow/pkg/profile"
	"github.com/codeGROOVE-dev/timenow/pkg/resolve"
	"github.com/codeGROOVE-dev/timenow/pkg/snapshot"
)

const cacheTTL = 30 * 24 * time.Hour

// Client answers timezone questions for one process.
type Client struct {
	logger       *slog.Logger
	catalog      *catalog.Catalog
	resolver     *resolve.Resolver
	detector     *detect.Detector
	cache        *httpcache.Cache
	now          func() time.Time
	getenv       func(string) string
	localSetting string
	profilePath  string
}

// New creates a Client that logs through slog.Default().
func New(ctx context.Context, opts ...Option) *Client {
	return NewWithLogger(ctx, slog.Default(), opts...)
}

// NewWithLogger creates a Client with a custom logger.
func NewWithLogger(_ context.Context, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	optHolder := &OptionHolder{
		out:    os.Stderr,
		clock:  time.Now,
		getenv: os.Getenv,
	}
	for _, opt := range opts {
		opt(optHolder)
	}

	cat := catalog.Default()
	c := &Client{
		logger:       logger,
		catalog:      cat,
		now:          optHolder.clock,
		getenv:       optHolder.getenv,
		localSetting: optHolder.localSetting,
		profilePath:  optHolder.profilePath,
	}

	fallbacks := c.fallbacks(optHolder)
	c.resolver = resolve.New(cat,
		resolve.WithLogger(logger),
		resolve.WithFallback(fallbacks...),
	)

	detectOpts := append([]detect.Option{
		detect.WithLogger(logger),
		detect.WithOutput(optHolder.out),
	}, optHolder.detectOpts...)
	c.detector = detect.New(cat, detectOpts...)

	return c
}

// fallbacks builds the remote resolvers enabled by the options. Google Maps is asked
// before Gemini because geocoding answers are deterministic.
func (c *Client) fallbacks(o *OptionHolder) []resolve.Fallback {
	useMaps := o.mapsAPIKey != ""
	useGemini := o.geminiAPIKey != "" || o.gcpProject != ""
	if !useMaps && !useGemini {
		return nil
	}

	if !o.noCache {
		c.cache = c.openCache(o.cacheDir)
	} else {
		c.logger.Info("caching disabled by -no-cache flag")
	}

	var fbs []resolve.Fallback
	if useMaps {
		httpClient := httpcache.NewCachedHTTPClient(c.cache, &http.Client{Timeout: 10 * time.Second}, c.logger)
		fbs = append(fbs, googlemaps.NewClient(o.mapsAPIKey, httpClient, c.logger))
	}
	if useGemini {
		var cache gemini.CacheInterface
		if c.cache != nil {
			cache = c.cache
		}
		fbs = append(fbs, gemini.NewClient(o.geminiAPIKey, o.geminiModel, o.gcpProject, cache, c.logger))
	}
	return fbs
}

func (c *Client) openCache(dir string) *httpcache.Cache {
	if dir == "" {
		userCacheDir, err := os.UserCacheDir()
		if err != nil {
			c.logger.Debug("could not determine user cache directory", "error", err)
		} else {
			dir = filepath.Join(userCacheDir, "timenow")
		}
	}

	cache, err := httpcache.New(dir, cacheTTL, c.logger)
	if err != nil {
		c.logger.Warn("cache initialization failed", "error", err, "cache_dir", dir)
		return nil
	}
	return cache
}

// Resolve returns the canonical identifier for a free-text query.
// It fails with *resolve.UnresolvedError when nothing matches.
func (c *Client) Resolve(ctx context.Context, query string) (string, error) {
	return c.resolver.Resolve(ctx, query)
}

// Explain resolves query and reports which stage produced the answer.
func (c *Client) Explain(ctx context.Context, query string) (resolve.Result, error) {
	return c.resolver.Explain(ctx, query)
}

// Detect returns the local timezone. It never fails; UTC is the last resort.
func (c *Client) Detect(ctx context.Context, quiet bool) string {
	return c.detector.Detect(ctx, c.detectConfig(quiet))
}

// DetectSource returns the local timezone and the source it came from.
func (c *Client) DetectSource(ctx context.Context, quiet bool) (string, detect.Kind) {
	return c.detector.Explain(ctx, c.detectConfig(quiet))
}

func (c *Client) detectConfig(quiet bool) detect.Config {
	return detect.Config{
		Setting: c.localSetting,
		Env:     c.getenv(constants.EnvVar),
		Quiet:   quiet,
	}
}

// Now captures the current time in tz. An empty tz detects the local timezone;
// anything else is resolved first.
func (c *Client) Now(ctx context.Context, tz string, quiet bool) (snapshot.Snapshot, error) {
	zone := tz
	if zone == "" {
		zone = c.Detect(ctx, quiet)
	} else {
		var err error
		zone, err = c.Resolve(ctx, tz)
		if err != nil {
			return snapshot.Snapshot{}, err
		}
	}
	return snapshot.Take(zone, c.now())
}

// SetPreference resolves tz, persists it as R_TIMENOW_TZ in the profile file and
// exports it into the current process environment. It returns the resolved identifier.
func (c *Client) SetPreference(ctx context.Context, tz string) (string, error) {
	zone, err := c.Resolve(ctx, tz)
	if err != nil {
		return "", err
	}

	path := c.profilePath
	if path == "" {
		path, err = profile.DefaultPath()
		if err != nil {
			return "", err
		}
	}
	if err := profile.SetPreference(path, constants.EnvVar, zone); err != nil {
		return "", fmt.Errorf("saving timezone preference: %w", err)
	}
	c.logger.Debug("timezone preference saved", "zone", zone, "profile", path)
	return zone, nil
}

// Zones returns every canonical identifier in catalog order.
func (c *Client) Zones() []string {
	return c.catalog.All()
}

// Close persists the remote lookup cache.
func (c *Client) Close() error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Close()
}

// ListZones writes one identifier per line to w.
func (c *Client) ListZones(w io.Writer) error {
	for _, id := range c.catalog.All() {
		if _, err := fmt.Fprintln(w, id); err != nil {
			return err
		}
	}
	return nil
}
