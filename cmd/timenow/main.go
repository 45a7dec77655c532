// Package main implements the timenow CLI, which prints the current time in UTC and in
// your local timezone.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v7"
	"github.com/codeGROOVE-dev/timenow/pkg/constants"
	"github.com/codeGROOVE-dev/timenow/pkg/gemini"
	"github.com/codeGROOVE-dev/timenow/pkg/profile"
	"github.com/codeGROOVE-dev/timenow/pkg/snapshot"
	"github.com/codeGROOVE-dev/timenow/pkg/timenow"
	"github.com/fatih/color"
)

const version = "timenow v1.0.0"

// config holds the settings that may come from the environment.
type config struct {
	Local        string `env:"TIMENOW_LOCAL"`
	MapsAPIKey   string `env:"GOOGLE_MAPS_API_KEY"`
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL"`
	GCPProject   string `env:"GCP_PROJECT"`
	CacheDir     string `env:"CACHE_DIR"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("timenow", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		quiet        = fs.Bool("quiet", false, "Do not print which source the local timezone came from")
		list         = fs.Bool("list", false, "List every valid timezone name")
		set          = fs.String("set", "", "Resolve a timezone and save it as "+constants.EnvVar+" in your profile")
		configHelp   = fs.Bool("config-help", false, "Explain how the local timezone is determined")
		explain      = fs.Bool("explain", false, "Show which resolution stage or detection source produced the timezone")
		local        = fs.String("local", "", "In-process timezone setting (or set "+constants.LocalSettingEnvVar+")")
		profilePath  = fs.String("profile", "", "Profile file (or set "+constants.ProfileEnvVar+", default ~/"+constants.ProfileFileName+")")
		mapsAPIKey   = fs.String("maps-key", "", "Google Maps API key for resolving unknown places (or set GOOGLE_MAPS_API_KEY)")
		geminiAPIKey = fs.String("gemini-key", "", "Gemini API key for resolving unknown places (or set GEMINI_API_KEY)")
		geminiModel  = fs.String("gemini-model", "", "Gemini model to use (or set GEMINI_MODEL)")
		gcpProject   = fs.String("gcp-project", "", "GCP project ID for Vertex AI (or set GCP_PROJECT)")
		cacheDir     = fs.String("cache-dir", "", "Cache directory for remote lookups (or set CACHE_DIR)")
		noCache      = fs.Bool("no-cache", false, "Disable caching of remote lookups")
		verbose      = fs.Bool("verbose", false, "Enable verbose logging")
		showVersion  = fs.Bool("version", false, "Show version")
	)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: timenow [flags] [timezone words...]\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *showVersion {
		fmt.Fprintln(stdout, version)
		return 0
	}
	if *configHelp {
		fmt.Fprint(stdout, timenow.Help())
		return 0
	}

	level := slog.LevelError
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: level,
	}))

	// The profile is loaded before the environment is parsed so persisted values apply.
	path := *profilePath
	if path == "" {
		var err error
		if path, err = profile.DefaultPath(); err != nil {
			logger.Debug("no profile path", "error", err)
		}
	}
	if path != "" {
		if err := profile.Apply(path); err != nil {
			logger.Warn("failed to load profile", "path", path, "error", err)
		}
	}

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		printError(stderr, fmt.Errorf("parsing environment: %w", err))
		return 1
	}
	override(&cfg.Local, *local)
	override(&cfg.MapsAPIKey, *mapsAPIKey)
	override(&cfg.GeminiAPIKey, *geminiAPIKey)
	override(&cfg.GeminiModel, *geminiModel)
	override(&cfg.GCPProject, *gcpProject)
	override(&cfg.CacheDir, *cacheDir)
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = gemini.DefaultModel
	}

	opts := []timenow.Option{
		timenow.WithLocalSetting(cfg.Local),
		timenow.WithProfilePath(path),
		timenow.WithMapsAPIKey(cfg.MapsAPIKey),
		timenow.WithGeminiAPIKey(cfg.GeminiAPIKey),
		timenow.WithGeminiModel(cfg.GeminiModel),
		timenow.WithGCPProject(cfg.GCPProject),
		timenow.WithOutput(stderr),
	}
	if *noCache {
		opts = append(opts, timenow.WithNoCache())
	} else if cfg.CacheDir != "" {
		opts = append(opts, timenow.WithCacheDir(cfg.CacheDir))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := timenow.NewWithLogger(ctx, logger, opts...)
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close client", "error", err)
		}
	}()

	switch {
	case *list:
		if err := client.ListZones(stdout); err != nil {
			printError(stderr, err)
			return 1
		}
		return 0
	case *set != "":
		zone, err := client.SetPreference(ctx, *set)
		if err != nil {
			printError(stderr, err)
			return 1
		}
		color.New(color.FgGreen).Fprintf(stdout, "Saved %s=%s to %s\n", constants.EnvVar, zone, path)
		return 0
	}

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	zone, err := pickZone(ctx, client, query, *explain, *quiet, stdout)
	if err != nil {
		printError(stderr, err)
		return 1
	}

	snap, err := snapshot.Take(zone, time.Now())
	if err != nil {
		printError(stderr, err)
		return 1
	}
	if err := snap.Render(stdout); err != nil {
		logger.Error("failed to write output", "error", err)
		return 1
	}
	return 0
}

// pickZone detects the local timezone when query is empty and resolves it otherwise.
func pickZone(ctx context.Context, client *timenow.Client, query string, explain, quiet bool, w io.Writer) (string, error) {
	if query == "" {
		zone, kind := client.DetectSource(ctx, quiet)
		if explain {
			fmt.Fprintf(w, "Detected %s from the %s source.\n", zone, kind)
		}
		return zone, nil
	}

	res, err := client.Explain(ctx, query)
	if err != nil {
		return "", err
	}
	if explain {
		fmt.Fprintf(w, "Resolved %q to %s by %s match.\n", query, res.Zone, res.Stage)
	}
	return res.Zone, nil
}

func override(dst *string, flagValue string) {
	if flagValue != "" {
		*dst = flagValue
	}
}

func printError(w io.Writer, err error) {
	color.New(color.FgRed, color.Bold).Fprintf(w, "Error: %v\n", err)
}
