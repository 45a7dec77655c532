package timenow

import (
	"io"
	"time"

	"github.com/codeGROOVE-dev/timenow/pkg/detect"
)

// Option configures a Client.
type Option func(*OptionHolder)

// WithLocalSetting sets the in-process timezone setting, the highest-precedence detection source.
func WithLocalSetting(tz string) Option {
	return func(o *OptionHolder) {
		o.localSetting = tz
	}
}

// WithProfilePath sets the profile file written by SetPreference.
func WithProfilePath(path string) Option {
	return func(o *OptionHolder) {
		o.profilePath = path
	}
}

// WithMapsAPIKey enables the Google Maps fallback for queries the local cascade cannot resolve.
func WithMapsAPIKey(key string) Option {
	return func(o *OptionHolder) {
		o.mapsAPIKey = key
	}
}

// WithGeminiAPIKey enables the Gemini fallback for queries the local cascade cannot resolve.
func WithGeminiAPIKey(key string) Option {
	return func(o *OptionHolder) {
		o.geminiAPIKey = key
	}
}

// WithGeminiModel sets the Gemini model used by the Gemini fallback.
func WithGeminiModel(model string) Option {
	return func(o *OptionHolder) {
		o.geminiModel = model
	}
}

// WithGCPProject enables the Gemini fallback through Vertex AI in the given project.
func WithGCPProject(projectID string) Option {
	return func(o *OptionHolder) {
		o.gcpProject = projectID
	}
}

// WithCacheDir sets the directory caching remote fallback responses.
func WithCacheDir(dir string) Option {
	return func(o *OptionHolder) {
		o.cacheDir = dir
	}
}

// WithNoCache disables caching of remote fallback responses.
func WithNoCache() Option {
	return func(o *OptionHolder) {
		o.noCache = true
	}
}

// WithOutput sets where detection notes and warnings are written. Defaults to os.Stderr.
func WithOutput(w io.Writer) Option {
	return func(o *OptionHolder) {
		o.out = w
	}
}

// WithClock replaces time.Now for snapshots.
func WithClock(now func() time.Time) Option {
	return func(o *OptionHolder) {
		o.clock = now
	}
}

// WithGetenv replaces os.Getenv for reading R_TIMENOW_TZ.
func WithGetenv(getenv func(string) string) Option {
	return func(o *OptionHolder) {
		o.getenv = getenv
	}
}

// withDetectOptions passes extra options to the detector.
func withDetectOptions(opts ...detect.Option) Option {
	return func(o *OptionHolder) {
		o.detectOpts = append(o.detectOpts, opts...)
	}
}

// OptionHolder holds configuration options.
type OptionHolder struct {
	out          io.Writer
	clock        func() time.Time
	getenv       func(string) string
	detectOpts   []detect.Option
	localSetting string
	profilePath  string
	mapsAPIKey   string
	geminiAPIKey string
	geminiModel  string
	gcpProject   string
	cacheDir     string
	noCache      bool
}
