// Package profile persists user preferences as KEY=value lines in a plain-text profile file.
//
// Writes read the whole file, rewrite the line list in memory and write the whole file back.
// There is no locking; concurrent writers must be serialized by the caller.
package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/codeGROOVE-dev/timenow/pkg/constants"
)

// DefaultPath returns $TIMENOW_PROFILE, or ~/.timenow.env when it is unset.
func DefaultPath() (string, error) {
	if p := os.Getenv(constants.ProfileEnvVar); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, constants.ProfileFileName), nil
}

// SetPreference replaces every line starting with "key=" by a single "key=value" line
// appended at the end of the file, and sets key in the current process environment.
// Unrelated lines keep their content and relative order. A missing file is created.
func SetPreference(path, key, value string) error {
	lines, mode, err := readLines(path)
	if err != nil {
		return err
	}

	prefix := key + "="
	kept := make([]string, 0, len(lines)+1)
	for _, line := range lines {
		if strings.HasPrefix(line, prefix) {
			continue
		}
		kept = append(kept, line)
	}
	kept = append(kept, prefix+value)

	if err := os.WriteFile(path, []byte(strings.Join(kept, "\n")+"\n"), mode); err != nil {
		return fmt.Errorf("writing profile %s: %w", path, err)
	}
	if err := os.Setenv(key, value); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}

// Load parses the KEY=value lines of path. Blank lines, comments and lines without '='
// are ignored, a later assignment wins, and a missing file yields an empty map.
func Load(path string) (map[string]string, error) {
	lines, _, err := readLines(path)
	if err != nil {
		return nil, err
	}

	vars := make(map[string]string)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		vars[key] = unquote(strings.TrimSpace(value))
	}
	return vars, nil
}

// Apply exports the variables of path into the process environment.
// Variables already present in the environment are left untouched.
func Apply(path string) error {
	vars, err := Load(path)
	if err != nil {
		return err
	}
	for key, value := range vars {
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("setting %s: %w", key, err)
		}
	}
	return nil
}

func readLines(path string) ([]string, fs.FileMode, error) {
	mode := fs.FileMode(0o600)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, mode, nil
	}
	if err != nil {
		return nil, mode, fmt.Errorf("reading profile %s: %w", path, err)
	}
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil, mode, nil
	}
	return strings.Split(text, "\n"), mode, nil
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}
