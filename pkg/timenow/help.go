package timenow

import (
	"fmt"

	"github.com/codeGROOVE-dev/timenow/pkg/constants"
)

// Help returns guidance on configuring the local timezone.
func Help() string {
	return fmt.Sprintf(`timenow determines your local timezone from, in order:

  1. the in-process setting (-local, or %[2]s)
  2. the %[1]s environment variable
  3. the first line of %[3]s
  4. the output of "timedatectl show --property=Timezone --value"
  5. the system default ($TZ, the %[4]s symlink, Go's time.Local)

If none of these yields a valid timezone name, UTC is used and a warning is printed.

To make a timezone stick across sessions, run:

  timenow -set "Perth"

This resolves the name, writes %[1]s=<timezone> to your profile file
(~/%[5]s, or $%[6]s) and sets it for the current process.
Later runs load the profile automatically; variables already in the environment win.

Names are matched loosely: "new york", "tokyo" and "Perth Australia" all work.
Run "timenow -list" to see every valid timezone name.
`, constants.EnvVar, constants.LocalSettingEnvVar, constants.TimezoneFile,
		constants.LocaltimeFile, constants.ProfileFileName, constants.ProfileEnvVar)
}
