package detect

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/codeGROOVE-dev/timenow/pkg/catalog"
)

type fakeCommander struct {
	err   error
	out   string
	calls int
}

func (f *fakeCommander) Query(context.Context) (string, error) {
	f.calls++
	return f.out, f.err
}

func writeTimezoneFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "timezone")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing timezone file: %v", err)
	}
	return path
}

func newTestDetector(t *testing.T, file string, cmd Commander, sys string, out io.Writer) *Detector {
	t.Helper()
	return New(catalog.Default(),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithOutput(out),
		WithTimezoneFile(file),
		WithCommander(cmd),
		WithSystemDefault(func() string { return sys }),
	)
}

func TestDetectPrecedence(t *testing.T) {
	file := writeTimezoneFile(t, "Europe/Berlin\n")
	missing := filepath.Join(t.TempDir(), "missing")

	tests := []struct {
		name     string
		cfg      Config
		file     string
		command  *fakeCommander
		system   string
		want     string
		wantKind Kind
	}{
		{
			name:     "setting beats everything",
			cfg:      Config{Setting: "Australia/Perth", Env: "Asia/Tokyo"},
			file:     file,
			command:  &fakeCommander{out: "America/Chicago"},
			system:   "Europe/Paris",
			want:     "Australia/Perth",
			wantKind: KindSetting,
		},
		{
			name:     "environment when no setting",
			cfg:      Config{Env: "Asia/Tokyo"},
			file:     file,
			command:  &fakeCommander{out: "America/Chicago"},
			system:   "Europe/Paris",
			want:     "Asia/Tokyo",
			wantKind: KindEnv,
		},
		{
			name:     "file when no setting or environment",
			file:     file,
			command:  &fakeCommander{out: "America/Chicago"},
			system:   "Europe/Paris",
			want:     "Europe/Berlin",
			wantKind: KindFile,
		},
		{
			name:     "command when file missing",
			file:     missing,
			command:  &fakeCommander{out: "America/Chicago"},
			system:   "Europe/Paris",
			want:     "America/Chicago",
			wantKind: KindCommand,
		},
		{
			name:     "system default when command fails",
			file:     missing,
			command:  &fakeCommander{err: errors.New("exec: not found")},
			system:   "Europe/Paris",
			want:     "Europe/Paris",
			wantKind: KindSystem,
		},
		{
			name:     "invalid candidates are skipped",
			cfg:      Config{Setting: "Mars/Olympus", Env: "perth"},
			file:     writeTimezoneFile(t, "Not/AZone\n"),
			command:  &fakeCommander{out: "garbage"},
			system:   "Europe/Paris",
			want:     "Europe/Paris",
			wantKind: KindSystem,
		},
		{
			name:     "blank values are skipped",
			cfg:      Config{Setting: "   ", Env: ""},
			file:     writeTimezoneFile(t, "\n"),
			command:  &fakeCommander{out: ""},
			system:   " Asia/Kolkata ",
			want:     "Asia/Kolkata",
			wantKind: KindSystem,
		},
		{
			name:     "everything exhausted",
			file:     missing,
			command:  &fakeCommander{err: errors.New("boom")},
			want:     "UTC",
			wantKind: KindFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDetector(t, tt.file, tt.command, tt.system, io.Discard)
			tt.cfg.Quiet = true
			got, kind := d.Explain(context.Background(), tt.cfg)
			if got != tt.want || kind != tt.wantKind {
				t.Errorf("Explain() = %q (%v), want %q (%v)", got, kind, tt.want, tt.wantKind)
			}
		})
	}
}

func TestDetectStopsAtFirstValidSource(t *testing.T) {
	cmd := &fakeCommander{out: "America/Chicago"}
	d := newTestDetector(t, writeTimezoneFile(t, "Europe/Berlin"), cmd, "", io.Discard)
	if got := d.Detect(context.Background(), Config{Quiet: true}); got != "Europe/Berlin" {
		t.Fatalf("Detect() = %q, want Europe/Berlin", got)
	}
	if cmd.calls != 0 {
		t.Errorf("command consulted %d times after the file answered", cmd.calls)
	}
}

func TestDetectIsNotCached(t *testing.T) {
	path := writeTimezoneFile(t, "Europe/Berlin\n")
	d := newTestDetector(t, path, &fakeCommander{}, "", io.Discard)
	ctx := context.Background()

	if got := d.Detect(ctx, Config{Quiet: true}); got != "Europe/Berlin" {
		t.Fatalf("first Detect() = %q", got)
	}
	if err := os.WriteFile(path, []byte("Asia/Tokyo\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := d.Detect(ctx, Config{Quiet: true}); got != "Asia/Tokyo" {
		t.Errorf("second Detect() = %q, want Asia/Tokyo after the file changed", got)
	}
}

func TestDetectMessages(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"setting is announced", Config{Setting: "Australia/Perth"}, "from the local timezone setting"},
		{"environment is announced", Config{Env: "Asia/Tokyo"}, "from R_TIMENOW_TZ"},
		{"fallback warns", Config{}, "Warning: could not determine the local timezone, using UTC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			d := newTestDetector(t, missing, &fakeCommander{}, "", &out)
			d.Detect(context.Background(), tt.cfg)
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output %q does not contain %q", out.String(), tt.want)
			}

			out.Reset()
			tt.cfg.Quiet = true
			d.Detect(context.Background(), tt.cfg)
			if out.Len() != 0 {
				t.Errorf("quiet detection wrote %q", out.String())
			}
		})
	}
}

func TestDetectFileAndSystemSourcesAreSilent(t *testing.T) {
	var out bytes.Buffer
	d := newTestDetector(t, writeTimezoneFile(t, "Europe/Berlin"), &fakeCommander{}, "", &out)
	if got := d.Detect(context.Background(), Config{}); got != "Europe/Berlin" {
		t.Fatalf("Detect() = %q", got)
	}
	if out.Len() != 0 {
		t.Errorf("file source wrote %q", out.String())
	}
}

func TestDetectQuietWithNothingConfigured(t *testing.T) {
	var out bytes.Buffer
	d := newTestDetector(t, filepath.Join(t.TempDir(), "none"), &fakeCommander{err: errors.New("missing")}, "", &out)
	if got := d.Detect(context.Background(), Config{Quiet: true}); got != "UTC" {
		t.Errorf("Detect() = %q, want UTC", got)
	}
	if out.Len() != 0 {
		t.Errorf("quiet detection wrote %q", out.String())
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("R_TIMENOW_TZ", "Asia/Tokyo")
	cfg := ConfigFromEnv("Australia/Perth", true)
	if cfg.Env != "Asia/Tokyo" || cfg.Setting != "Australia/Perth" || !cfg.Quiet {
		t.Errorf("ConfigFromEnv() = %+v", cfg)
	}
}

func TestKindString(t *testing.T) {
	tests := map[Kind]string{
		KindSetting:  "setting",
		KindEnv:      "environment",
		KindFile:     "file",
		KindCommand:  "command",
		KindSystem:   "system",
		KindFallback: "fallback",
		Kind(0):      "unknown",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
