package gemini

import "fmt"

// Prompt returns the prompt asking which IANA timezone a free-text description refers to.
func Prompt(query string) string {
	return fmt.Sprintf(`A user typed the following text to name the timezone they want the current time for.
The text may be a city, region, country, abbreviation, or a misspelling of any of these.

TEXT: %q

Reply with the single IANA timezone identifier (for example "America/New_York",
"Europe/London", "Asia/Kolkata") that the user most likely means.

Rules:
- Use canonical IANA names from the tz database, never abbreviations like "EST" or "IST".
- When the text names a country spanning several timezones, pick the zone of its capital
  or most populous city and lower the confidence.
- When the text is a fixed offset like "UTC+8", reply with that offset ("UTC+8").
- When the text is not a place or timezone at all, reply with an empty timezone and low confidence.`, query)
}
