// Package detect determines the timezone a user intends when none is given explicitly.
//
// Sources are consulted fresh on every call, strictly in this order, and the first
// non-empty candidate that is a valid catalog identifier wins:
//
//  1. the in-process setting (Config.Setting)
//  2. the R_TIMENOW_TZ environment variable (Config.Env)
//  3. the first line of /etc/timezone
//  4. timedatectl show --property=Timezone --value
//  5. the system default ($TZ, the /etc/localtime link, time.Local)
//
// Detection never fails: when every source is exhausted the result is UTC.
package detect

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/codeGROOVE-dev/timenow/pkg/constants"
	"github.com/fatih/color"
)

// Validator reports whether a candidate is a canonical timezone identifier.
type Validator interface {
	IsValid(s string) bool
}

// Commander runs the system time-configuration query.
type Commander interface {
	Query(ctx context.Context) (string, error)
}

// Kind identifies a detection source.
type Kind int

// Detection sources in priority order. KindFallback marks the UTC default.
const (
	KindSetting Kind = iota + 1
	KindEnv
	KindFile
	KindCommand
	KindSystem
	KindFallback
)

func (k Kind) String() string {
	switch k {
	case KindSetting:
		return "setting"
	case KindEnv:
		return "environment"
	case KindFile:
		return "file"
	case KindCommand:
		return "command"
	case KindSystem:
		return "system"
	case KindFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Config carries the caller-supplied sources and output preference for one detection.
type Config struct {
	// Setting is the in-process override; it beats every other source.
	Setting string
	// Env is the value of the R_TIMENOW_TZ environment variable.
	Env   string
	Quiet bool
}

// ConfigFromEnv builds a Config whose Env is read from the process environment.
func ConfigFromEnv(setting string, quiet bool) Config {
	return Config{
		Setting: setting,
		Env:     os.Getenv(constants.EnvVar),
		Quiet:   quiet,
	}
}

type source struct {
	lookup func(ctx context.Context) (string, error)
	kind   Kind
}

// Detector resolves the intended local timezone.
type Detector struct {
	validator     Validator
	commander     Commander
	logger        *slog.Logger
	out           io.Writer
	systemDefault func() string
	file          string
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the logger for per-source debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) {
		d.logger = logger
	}
}

// WithOutput sets where user-facing notes and warnings are written.
func WithOutput(w io.Writer) Option {
	return func(d *Detector) {
		d.out = w
	}
}

// WithTimezoneFile replaces /etc/timezone.
func WithTimezoneFile(path string) Option {
	return func(d *Detector) {
		d.file = path
	}
}

// WithCommander replaces the timedatectl query.
func WithCommander(c Commander) Option {
	return func(d *Detector) {
		d.commander = c
	}
}

// WithSystemDefault replaces the system default lookup.
func WithSystemDefault(fn func() string) Option {
	return func(d *Detector) {
		d.systemDefault = fn
	}
}

// New creates a Detector validating candidates with v.
func New(v Validator, opts ...Option) *Detector {
	d := &Detector{
		validator:     v,
		logger:        slog.Default(),
		out:           os.Stderr,
		file:          constants.TimezoneFile,
		systemDefault: SystemDefault,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.commander == nil {
		d.commander = &Timedatectl{
			Timeout:  constants.CommandTimeout,
			Attempts: 2,
			Logger:   d.logger,
		}
	}
	return d
}

// Detect returns the intended local timezone. It never fails.
func (d *Detector) Detect(ctx context.Context, cfg Config) string {
	zone, _ := d.Explain(ctx, cfg)
	return zone
}

// Explain is Detect, also reporting which source supplied the timezone.
func (d *Detector) Explain(ctx context.Context, cfg Config) (string, Kind) {
	for _, src := range d.sources(cfg) {
		candidate, err := src.lookup(ctx)
		if err != nil {
			d.logger.Debug("timezone source unavailable", "source", src.kind.String(), "error", err)
			continue
		}
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if !d.validator.IsValid(candidate) {
			d.logger.Debug("ignoring invalid timezone candidate", "source", src.kind.String(), "candidate", candidate)
			continue
		}

		d.logger.Debug("local timezone detected", "source", src.kind.String(), "zone", candidate)
		if !cfg.Quiet {
			d.announce(src.kind, candidate)
		}
		return candidate, src.kind
	}

	if !cfg.Quiet {
		d.printf(color.New(color.FgYellow),
			"Warning: could not determine the local timezone, using %s. Set %s or run `timenow -set <timezone>`.\n",
			constants.FallbackZone, constants.EnvVar)
	}
	return constants.FallbackZone, KindFallback
}

func (d *Detector) sources(cfg Config) []source {
	return []source{
		{kind: KindSetting, lookup: func(context.Context) (string, error) { return cfg.Setting, nil }},
		{kind: KindEnv, lookup: func(context.Context) (string, error) { return cfg.Env, nil }},
		{kind: KindFile, lookup: func(context.Context) (string, error) { return readFirstLine(d.file) }},
		{kind: KindCommand, lookup: d.commander.Query},
		{kind: KindSystem, lookup: func(context.Context) (string, error) { return d.systemDefault(), nil }},
	}
}

// announce tells the user which explicit configuration was honoured.
func (d *Detector) announce(kind Kind, zone string) {
	switch kind {
	case KindSetting:
		d.printf(color.New(color.FgCyan), "Using timezone %s from the local timezone setting.\n", zone)
	case KindEnv:
		d.printf(color.New(color.FgCyan), "Using timezone %s from %s.\n", zone, constants.EnvVar)
	}
}

func (d *Detector) printf(c *color.Color, format string, args ...any) {
	if _, err := c.Fprintf(d.out, format, args...); err != nil {
		d.logger.Debug("failed to write detector message", "error", err)
	}
}
