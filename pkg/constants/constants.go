// Package constants defines shared constants for the timenow application.
package constants

import "time"

// EnvVar is the environment variable holding the user's preferred timezone.
// It is also the key written to the profile file by the set-preference helper.
const EnvVar = "R_TIMENOW_TZ"

// LocalSettingEnvVar lets the CLI populate the in-process override slot from the environment.
const LocalSettingEnvVar = "TIMENOW_LOCAL"

// ProfileEnvVar overrides the location of the profile file.
const ProfileEnvVar = "TIMENOW_PROFILE"

// ProfileFileName is the profile file created in the user's home directory.
const ProfileFileName = ".timenow.env"

// TimezoneFile is the well-known system file holding a single timezone name on its first line.
const TimezoneFile = "/etc/timezone"

// LocaltimeFile is the system zone symlink consulted for the best-effort system default.
const LocaltimeFile = "/etc/localtime"

// FallbackZone is returned by the detector when every source is exhausted.
const FallbackZone = "UTC"

// MaxDistance is the maximum normalized edit distance accepted by the fuzzy stage.
// The number of allowed edits is ceil(MaxDistance * len(query)).
const MaxDistance = 0.2

// CommandTimeout bounds the system time-configuration query.
const CommandTimeout = 2 * time.Second

// TimestampLayout renders snapshot times at whole-second precision.
const TimestampLayout = "2006-01-02 15:04:05"
