package resolve

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/codeGROOVE-dev/timenow/pkg/catalog"
)

func TestResolveScenarios(t *testing.T) {
	r := New(catalog.Default())
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
		want  string
		stage Stage
	}{
		{"canonical passes through", "Australia/Perth", "Australia/Perth", StageExact},
		{"unique city suffix", "Perth", "Australia/Perth", StageSuffix},
		{"lowercase suffix", "tokyo", "Asia/Tokyo", StageSuffix},
		{"underscore suffix", "new_york", "America/New_York", StageSuffix},
		{"two words", "new york", "America/New_York", StageWords},
		{"shouting two words", "NEW YORK", "America/New_York", StageWords},
		{"city and country", "Perth Australia", "Australia/Perth", StageWords},
		{"US Eastern", "US Eastern", "US/Eastern", StageWords},
		{"shared suffix falls to words", "singapore", "Singapore", StageWords},
		{"shared city suffix picks shortest", "Cordoba", "America/Cordoba", StageWords},
		{"region word disambiguates", "Argentina Cordoba", "America/Argentina/Cordoba", StageWords},
		{"shortest of several", "Buenos Aires", "America/Buenos_Aires", StageWords},
		{"lowercase utc", "utc", "UTC", StageWords},
		{"typo", "Tokio", "Asia/Tokyo", StageFuzzy},
		{"dropped letter", "Londn", "Europe/London", StageFuzzy},
		{"dropped letter moscow", "Mosow", "Europe/Moscow", StageFuzzy},
		{"misspelled sydney", "Sydny", "Australia/Sydney", StageFuzzy},
		{"fuzzy tie goes to catalog order", "Perh", "Asia/Phnom_Penh", StageFuzzy},
		{"digits only skip word stage", "123", "Etc/GMT+12", StageFuzzy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Explain(ctx, tt.query)
			if err != nil {
				t.Fatalf("Explain(%q) returned error: %v", tt.query, err)
			}
			if got.Zone != tt.want {
				t.Errorf("Explain(%q).Zone = %q, want %q", tt.query, got.Zone, tt.want)
			}
			if got.Stage != tt.stage {
				t.Errorf("Explain(%q).Stage = %v, want %v", tt.query, got.Stage, tt.stage)
			}
		})
	}
}

func TestResolveUnresolved(t *testing.T) {
	r := New(catalog.Default())

	for _, q := range []string{"Nonexistent_Place_Xyz123", "", "   "} {
		zone, err := r.Resolve(context.Background(), q)
		if err == nil {
			t.Fatalf("Resolve(%q) = %q, want error", q, zone)
		}
		if !errors.Is(err, ErrUnresolved) {
			t.Errorf("Resolve(%q) error %v does not match ErrUnresolved", q, err)
		}
		var ue *UnresolvedError
		if !errors.As(err, &ue) {
			t.Fatalf("Resolve(%q) error is %T, want *UnresolvedError", q, err)
		}
		if ue.Query != q {
			t.Errorf("UnresolvedError.Query = %q, want %q", ue.Query, q)
		}
		if !strings.Contains(err.Error(), "-list") {
			t.Errorf("error %q does not point at the zone listing", err.Error())
		}
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	cat := catalog.Default()
	r := New(cat, WithCacheSize(0))
	for _, id := range cat.All() {
		got, err := r.Resolve(context.Background(), id)
		if err != nil || got != id {
			t.Errorf("Resolve(%q) = %q, %v; want itself", id, got, err)
		}
	}
}

func TestResolveSuffixIsCaseInsensitive(t *testing.T) {
	cat := catalog.Default()
	r := New(cat)

	counts := make(map[string]int)
	for _, id := range cat.All() {
		counts[strings.ToLower(catalog.FinalSegment(id))]++
	}

	checked := 0
	for _, id := range cat.All() {
		seg := catalog.FinalSegment(id)
		if counts[strings.ToLower(seg)] != 1 {
			continue
		}
		for _, q := range []string{strings.ToLower(seg), strings.ToUpper(seg)} {
			got, err := r.Resolve(context.Background(), q)
			if err != nil || got != id {
				t.Errorf("Resolve(%q) = %q, %v; want %q", q, got, err, id)
			}
		}
		checked++
	}
	if checked < 300 {
		t.Errorf("only %d identifiers had a unique final segment", checked)
	}
}

func TestShortestWins(t *testing.T) {
	tests := []struct {
		name  string
		ids   []string
		query string
		want  string
	}{
		{"shorter identifier wins", []string{"Europe/Foo_Bar_Extra", "Foo/Bar"}, "foo bar", "Foo/Bar"},
		{"order does not matter", []string{"Foo/Bar", "Europe/Foo_Bar_Extra"}, "bar foo", "Foo/Bar"},
		{"equal length keeps catalog order", []string{"Aa/Foo_Bar", "Bb/Foo_Bar", "Cc/Bar_Foo"}, "foo bar", "Aa/Foo_Bar"},
		{"ambiguous suffix then words", []string{"Aa/Foo_Bar", "Bb/Foo_Bar"}, "Foo_Bar", "Aa/Foo_Bar"},
		{"extra word disambiguates", []string{"Aa/Foo_Bar", "Bb/Foo_Bar", "Cc/Bar_Foo"}, "Foo_Bar Bb", "Bb/Foo_Bar"},
		{"fuzzy picks shortest", []string{"Region/Sub/Kitten", "Kittens"}, "Kiten", "Kittens"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(catalog.New(tt.ids))
			got, err := r.Resolve(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("Resolve(%q) error: %v", tt.query, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestFuzzyThresholdBoundary(t *testing.T) {
	r := New(catalog.New([]string{"Region/Abcdefghij", "Other/Zzzz"}))
	ctx := context.Background()

	// Ten runes allow two edits.
	got, err := r.Explain(ctx, "Abcdefghxy")
	if err != nil {
		t.Fatalf("two edits away should resolve: %v", err)
	}
	if got.Zone != "Region/Abcdefghij" || got.Stage != StageFuzzy {
		t.Errorf("Explain = %+v, want Region/Abcdefghij via fuzzy", got)
	}

	if zone, err := r.Resolve(ctx, "Abcdefgxyz"); !errors.Is(err, ErrUnresolved) {
		t.Errorf("three edits away resolved to %q, %v; want ErrUnresolved", zone, err)
	}
}

func TestMaxDistanceOption(t *testing.T) {
	cat := catalog.New([]string{"Region/Abcdefghij"})
	strict := New(cat, WithMaxDistance(0.1))
	if _, err := strict.Resolve(context.Background(), "Abcdefghxy"); err == nil {
		t.Error("expected 0.1 to reject a query two edits away")
	}
	loose := New(cat, WithMaxDistance(0.3))
	if _, err := loose.Resolve(context.Background(), "Abcdefgxyz"); err != nil {
		t.Errorf("expected 0.3 to accept a query three edits away: %v", err)
	}
}

type fakeFallback struct {
	err   error
	zone  string
	calls int
}

func (f *fakeFallback) Suggest(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.zone, f.err
}

func TestFallbacks(t *testing.T) {
	cat := catalog.Default()
	ctx := context.Background()

	t.Run("not consulted when a local stage succeeds", func(t *testing.T) {
		fb := &fakeFallback{zone: "Europe/Paris"}
		r := New(cat, WithFallback(fb))
		if got, _ := r.Resolve(ctx, "Perth"); got != "Australia/Perth" {
			t.Errorf("Resolve(Perth) = %q", got)
		}
		if fb.calls != 0 {
			t.Errorf("fallback called %d times, want 0", fb.calls)
		}
	})

	t.Run("first valid suggestion wins", func(t *testing.T) {
		failing := &fakeFallback{err: errors.New("boom")}
		bogus := &fakeFallback{zone: "Atlantis/Central"}
		good := &fakeFallback{zone: " Asia/Kolkata\n"}
		r := New(cat, WithFallback(failing, bogus, good))
		got, err := r.Explain(ctx, "Kolkata India")
		if err != nil {
			t.Fatalf("Explain error: %v", err)
		}
		if got.Zone != "Asia/Kolkata" || got.Stage != StageFallback {
			t.Errorf("Explain = %+v, want Asia/Kolkata via fallback", got)
		}
		if failing.calls != 1 || bogus.calls != 1 || good.calls != 1 {
			t.Errorf("calls = %d/%d/%d, want 1/1/1", failing.calls, bogus.calls, good.calls)
		}
	})

	t.Run("invalid suggestions leave the query unresolved", func(t *testing.T) {
		r := New(cat, WithFallback(&fakeFallback{zone: "Nowhere"}))
		if _, err := r.Resolve(ctx, "Nonexistent_Place_Xyz123"); !errors.Is(err, ErrUnresolved) {
			t.Errorf("err = %v, want ErrUnresolved", err)
		}
	})
}

type countingMatcher struct {
	calls int
}

func (m *countingMatcher) Match(query string, candidates []string, maxDistance float64) []string {
	m.calls++
	return Agrep{}.Match(query, candidates, maxDistance)
}

func TestResolutionsAreMemoized(t *testing.T) {
	m := &countingMatcher{}
	r := New(catalog.Default(), WithMatcher(m))
	for range 3 {
		if got, _ := r.Resolve(context.Background(), "Tokio"); got != "Asia/Tokyo" {
			t.Fatalf("Resolve(Tokio) = %q", got)
		}
	}
	if m.calls != 1 {
		t.Errorf("matcher called %d times, want 1", m.calls)
	}

	uncached := New(catalog.Default(), WithMatcher(m), WithCacheSize(0))
	for range 2 {
		_, _ = uncached.Resolve(context.Background(), "Tokio")
	}
	if m.calls != 3 {
		t.Errorf("matcher called %d times, want 3", m.calls)
	}
}

func TestStageString(t *testing.T) {
	if StageWords.String() != "words" || Stage(42).String() != "unknown" {
		t.Errorf("unexpected stage names %q, %q", StageWords, Stage(42))
	}
}
