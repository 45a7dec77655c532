// Package resolve turns free-text timezone descriptions into canonical IANA identifiers.
//
// Resolution is a strict cascade; the first stage that produces an answer wins:
//
//  1. exact, case-sensitive catalog membership
//  2. case-insensitive match against the final path segment ("perth" -> "Australia/Perth"),
//     accepted only when exactly one identifier matches
//  3. every letter-run of the query contained somewhere in the identifier, in any order
//  4. approximate substring match within a normalized edit distance
//
// Stages 3 and 4 break ties by returning the shortest identifier, then catalog order.
package resolve

import (
	"context"
	"log/slog"
	"strings"

	"github.com/codeGROOVE-dev/timenow/pkg/catalog"
	"github.com/codeGROOVE-dev/timenow/pkg/constants"
	"github.com/maypok86/otter/v2"
)

// Catalog is the set of identifiers a Resolver may return.
type Catalog interface {
	All() []string
	IsValid(s string) bool
}

// Fallback suggests an identifier for a query the local cascade could not resolve.
// Suggestions are only accepted when they are valid catalog identifiers.
type Fallback interface {
	Suggest(ctx context.Context, query string) (string, error)
}

// Stage identifies the step of the cascade that produced a result.
type Stage int

// Cascade stages, in evaluation order.
const (
	StageExact Stage = iota + 1
	StageSuffix
	StageWords
	StageFuzzy
	StageFallback
)

func (s Stage) String() string {
	switch s {
	case StageExact:
		return "exact"
	case StageSuffix:
		return "suffix"
	case StageWords:
		return "words"
	case StageFuzzy:
		return "fuzzy"
	case StageFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Result is a resolved identifier and the stage that found it.
type Result struct {
	Zone  string
	Stage Stage
}

// Resolver resolves queries against a fixed catalog. It is safe for concurrent use.
type Resolver struct {
	cat         Catalog
	logger      *slog.Logger
	matcher     Matcher
	memo        *otter.Cache[string, Result]
	ids         []string
	lowered     []string
	suffixes    []string
	fallbacks   []Fallback
	maxDistance float64
	cacheSize   int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for stage-level debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithMaxDistance overrides the normalized edit distance accepted by the fuzzy stage.
func WithMaxDistance(d float64) Option {
	return func(r *Resolver) {
		r.maxDistance = d
	}
}

// WithMatcher replaces the approximate matching strategy used by the fuzzy stage.
func WithMatcher(m Matcher) Option {
	return func(r *Resolver) {
		r.matcher = m
	}
}

// WithFallback appends fallbacks consulted, in order, after every local stage has failed.
func WithFallback(fb ...Fallback) Option {
	return func(r *Resolver) {
		r.fallbacks = append(r.fallbacks, fb...)
	}
}

// WithCacheSize bounds the number of memoized resolutions. Zero disables memoization.
func WithCacheSize(n int) Option {
	return func(r *Resolver) {
		r.cacheSize = n
	}
}

// New creates a Resolver over cat.
func New(cat Catalog, opts ...Option) *Resolver {
	r := &Resolver{
		cat:         cat,
		logger:      slog.Default(),
		matcher:     Agrep{},
		maxDistance: constants.MaxDistance,
		cacheSize:   1024,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.ids = cat.All()
	r.lowered = make([]string, len(r.ids))
	r.suffixes = make([]string, len(r.ids))
	for i, id := range r.ids {
		r.lowered[i] = strings.ToLower(id)
		r.suffixes[i] = strings.ToLower(catalog.FinalSegment(id))
	}

	if r.cacheSize > 0 {
		r.memo = otter.Must(&otter.Options[string, Result]{
			MaximumSize: r.cacheSize,
		})
	}
	return r
}

// Resolve returns the canonical identifier for query, or an *UnresolvedError.
func (r *Resolver) Resolve(ctx context.Context, query string) (string, error) {
	res, err := r.Explain(ctx, query)
	if err != nil {
		return "", err
	}
	return res.Zone, nil
}

// Explain is Resolve, also reporting which stage produced the identifier.
func (r *Resolver) Explain(ctx context.Context, query string) (Result, error) {
	if r.memo != nil {
		if res, ok := r.memo.GetIfPresent(query); ok {
			r.logger.Debug("resolution cache hit", "query", query, "zone", res.Zone)
			return res, nil
		}
	}

	res, ok := r.cascade(query)
	if !ok {
		res, ok = r.fallback(ctx, query)
	}
	if !ok {
		r.logger.Debug("timezone unresolved", "query", query)
		return Result{}, &UnresolvedError{Query: query}
	}

	r.logger.Debug("timezone resolved", "query", query, "zone", res.Zone, "stage", res.Stage.String())
	if r.memo != nil {
		r.memo.Set(query, res)
	}
	return res, nil
}

func (r *Resolver) cascade(query string) (Result, bool) {
	if r.cat.IsValid(query) {
		return Result{Zone: query, Stage: StageExact}, true
	}

	idx := suffixMatches(query, r.suffixes)
	if len(idx) == 1 {
		return Result{Zone: r.ids[idx[0]], Stage: StageSuffix}, true
	}
	r.logger.Debug("suffix stage inconclusive", "query", query, "matches", len(idx))

	words := Words(query)
	idx = wordMatches(words, r.lowered)
	if len(idx) > 0 {
		matched := make([]string, len(idx))
		for i, j := range idx {
			matched[i] = r.ids[j]
		}
		if len(matched) > 1 {
			r.logger.Debug("word stage ambiguous, choosing shortest", "query", query, "words", words, "matches", matched)
		}
		return Result{Zone: shortest(matched), Stage: StageWords}, true
	}

	matched := r.matcher.Match(query, r.ids, r.maxDistance)
	if len(matched) > 0 {
		if len(matched) > 1 {
			r.logger.Debug("fuzzy stage ambiguous, choosing shortest", "query", query, "matches", matched)
		}
		return Result{Zone: shortest(matched), Stage: StageFuzzy}, true
	}
	return Result{}, false
}

func (r *Resolver) fallback(ctx context.Context, query string) (Result, bool) {
	for _, fb := range r.fallbacks {
		zone, err := fb.Suggest(ctx, query)
		if err != nil {
			r.logger.Debug("fallback failed", "query", query, "error", err)
			continue
		}
		zone = strings.TrimSpace(zone)
		if !r.cat.IsValid(zone) {
			r.logger.Debug("fallback suggested unknown timezone", "query", query, "suggestion", zone)
			continue
		}
		return Result{Zone: zone, Stage: StageFallback}, true
	}
	return Result{}, false
}
