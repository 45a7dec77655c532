// Package snapshot captures the current time in UTC and in a local timezone.
package snapshot

import (
	"fmt"
	"io"
	"time"

	"github.com/codeGROOVE-dev/timenow/pkg/constants"
	"github.com/codeGROOVE-dev/timenow/pkg/tzconvert"
	"github.com/fatih/color"
)

// Snapshot is one instant seen from UTC and from Zone.
type Snapshot struct {
	UTC   time.Time `json:"utc"`
	Local time.Time `json:"local"`
	Zone  string    `json:"zone"`
	// Offset is local minus UTC in whole seconds.
	Offset int `json:"offset_seconds"`
}

// Take captures now in UTC and in zone, truncated to whole seconds.
func Take(zone string, now time.Time) (Snapshot, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return Snapshot{}, fmt.Errorf("loading timezone %q: %w", zone, err)
	}

	utc := now.UTC().Truncate(time.Second)
	local := utc.In(loc)
	return Snapshot{
		UTC:    utc,
		Local:  local,
		Zone:   zone,
		Offset: tzconvert.OffsetSeconds(local),
	}, nil
}

// OffsetDescription renders the offset as "same as UTC", "+8h" or "+5h30m".
func (s Snapshot) OffsetDescription() string {
	return tzconvert.FormatOffset(s.Offset)
}

// Render writes the snapshot as three aligned lines.
func (s Snapshot) Render(w io.Writer) error {
	label := color.New(color.Bold)
	lines := []struct {
		label string
		value string
	}{
		{"UTC time:", s.UTC.Format(constants.TimestampLayout)},
		{"Local time:", fmt.Sprintf("%s (%s)", s.Local.Format(constants.TimestampLayout), s.Zone)},
		{"Offset:", s.OffsetDescription()},
	}
	for _, l := range lines {
		if _, err := label.Fprintf(w, "%-12s", l.label); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
		if _, err := fmt.Fprintln(w, l.value); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
	}
	return nil
}
