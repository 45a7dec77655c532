// Package tzconvert computes and describes offsets between local time and UTC.
// All offsets come from Go's timezone database; nothing here knows about DST rules.
package tzconvert

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OffsetSeconds returns the signed offset of t's location from UTC at instant t.
// Example: 2026-01-15 in Australia/Adelaide returns 37800 (+10h30m).
func OffsetSeconds(t time.Time) int {
	_, offset := t.Zone()
	return offset
}

// Offset returns the offset in seconds of the IANA timezone zone from UTC at instant at.
func Offset(zone string, at time.Time) (int, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return 0, fmt.Errorf("loading timezone %q: %w", zone, err)
	}
	return OffsetSeconds(at.In(loc)), nil
}

// FormatOffset describes an offset in seconds relative to UTC.
// Examples:
//   - 0 returns "same as UTC"
//   - 28800 returns "+8h"
//   - 19800 returns "+5h30m"
//   - -12600 returns "-3h30m"
//
// Seconds beyond whole minutes (historical local mean time) are truncated.
func FormatOffset(seconds int) string {
	if seconds == 0 {
		return "same as UTC"
	}

	sign := "+"
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60

	if minutes == 0 {
		return fmt.Sprintf("%s%dh", sign, hours)
	}
	return fmt.Sprintf("%s%dh%02dm", sign, hours, minutes)
}

// ParseTimezoneOffset extracts the whole-hour offset from a "UTC±N" or "GMT±N" string.
// Examples:
//   - "UTC-4" returns -4, true
//   - "GMT+8" returns 8, true
//   - "UTC" returns 0, true
//   - "UTC+5:30" returns 0, false (not a whole hour)
//   - "Europe/Paris" returns 0, false
func ParseTimezoneOffset(timezone string) (int, bool) {
	tz := strings.ToUpper(strings.TrimSpace(timezone))
	var rest string
	switch {
	case strings.HasPrefix(tz, "UTC"):
		rest = tz[3:]
	case strings.HasPrefix(tz, "GMT"):
		rest = tz[3:]
	default:
		return 0, false
	}
	if rest == "" {
		return 0, true
	}

	sign := 1
	switch rest[0] {
	case '-':
		sign = -1
		rest = rest[1:]
	case '+':
		rest = rest[1:]
	default:
		return 0, false
	}

	hours, err := strconv.Atoi(rest)
	if err != nil || hours > 14 {
		return 0, false
	}
	return sign * hours, true
}

// EtcZone returns the fixed-offset Etc/ identifier for a whole-hour offset east of UTC.
// The Etc/ names use POSIX signs, so +8 is "Etc/GMT-8". Offsets outside the
// database range (-12 to +14) return "".
func EtcZone(hours int) string {
	switch {
	case hours == 0:
		return "Etc/UTC"
	case hours < -12 || hours > 14:
		return ""
	case hours > 0:
		return fmt.Sprintf("Etc/GMT-%d", hours)
	default:
		return fmt.Sprintf("Etc/GMT+%d", -hours)
	}
}
