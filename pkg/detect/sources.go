package detect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/codeGROOVE-dev/timenow/pkg/constants"
)

// readFirstLine returns the trimmed first line of path.
func readFirstLine(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return firstLine(string(data)), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// Timedatectl queries systemd for the configured timezone.
type Timedatectl struct {
	Logger *slog.Logger
	// Path defaults to "timedatectl" looked up in $PATH.
	Path string
	// Timeout bounds each attempt; an expired attempt is not retried.
	Timeout  time.Duration
	Attempts uint
}

// Query runs `timedatectl show --property=Timezone --value` and returns its first output line.
func (t *Timedatectl) Query(ctx context.Context) (string, error) {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	path := t.Path
	if path == "" {
		path = "timedatectl"
	}
	bin, err := exec.LookPath(path)
	if err != nil {
		return "", fmt.Errorf("locating %s: %w", path, err)
	}
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = constants.CommandTimeout
	}
	attempts := t.Attempts
	if attempts == 0 {
		attempts = 1
	}

	var out string
	err = retry.Do(
		func() error {
			cmdCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			cmd := exec.CommandContext(cmdCtx, bin, "show", "--property=Timezone", "--value")
			// Children that inherit stdout must not keep Output blocked past the deadline.
			cmd.WaitDelay = 500 * time.Millisecond
			b, err := cmd.Output()
			if err != nil {
				if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
					return retry.Unrecoverable(fmt.Errorf("%s timed out after %s", path, timeout))
				}
				return err
			}
			out = firstLine(string(b))
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(100*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			logger.Debug("retrying timedatectl", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return "", err
	}
	return out, nil
}

// SystemDefault reports the system's own idea of the local timezone, or "" when unknown.
func SystemDefault() string {
	return systemDefault(os.Getenv("TZ"), constants.LocaltimeFile)
}

func systemDefault(tz, localtime string) string {
	if tz != "" {
		return strings.TrimPrefix(tz, ":")
	}
	if target, err := os.Readlink(localtime); err == nil {
		if i := strings.LastIndex(target, "zoneinfo/"); i >= 0 {
			return target[i+len("zoneinfo/"):]
		}
	}
	// time.Local is named "Local" unless it came from $TZ.
	if name := time.Local.String(); name != "Local" {
		return name
	}
	return ""
}
