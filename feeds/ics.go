package feeds

import (
	"fmt"
	"strings"
	"time"
)

// Layouts for the date and time values stored in the events table and
// the iCalendar forms derived from them.
const (
	storedDateLayout = "2006-01-02"
	storedTimeLayout = "15:04:05"
	icsDateLayout    = "20060102"
	icsStampLayout   = "20060102T150405"
)

// escapeText escapes a free-text value for use in an iCalendar property.
// The backslash must be escaped first so that the escapes introduced for
// semicolons, commas and newlines are not escaped again.
func escapeText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// icsDate converts a stored YYYY-MM-DD date to the 8-digit iCalendar
// DATE form, offset by the given number of days.
func icsDate(date string, addDays int) (string, error) {
	t, err := time.Parse(storedDateLayout, date)
	if err != nil {
		return "", fmt.Errorf("invalid event date %q: %w", date, err)
	}
	return t.AddDate(0, 0, addDays).Format(icsDateLayout), nil
}

// localDateTime combines a stored date and time of day into a single
// wall-clock instant. The result carries no location; it is only ever
// formatted back out with a TZID parameter.
func localDateTime(date string, timeOfDay string) (time.Time, error) {
	t, err := time.Parse(storedDateLayout+" "+storedTimeLayout, date+" "+timeOfDay)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid event date-time %q %q: %w", date, timeOfDay, err)
	}
	return t, nil
}

// icsLocalStamp renders a wall-clock instant in the 15-character local
// date-time form used together with a TZID parameter.
func icsLocalStamp(t time.Time) string {
	return t.Format(icsStampLayout)
}

// icsUTCStamp renders a timestamp as a compact UTC stamp. The trailing Z
// is deliberately left off to keep the feed byte-compatible with what
// subscribed calendar clients already receive; strict validators flag
// this but common clients accept it.
func icsUTCStamp(t time.Time) string {
	return t.UTC().Format(icsStampLayout)
}

// icsUTCOffset renders a zone offset in seconds as the +-HHMM form used
// by TZOFFSETFROM and TZOFFSETTO.
func icsUTCOffset(seconds int) string {
	sign := "+"
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	return fmt.Sprintf("%s%02d%02d", sign, seconds/3600, (seconds%3600)/60)
}

// joinLines assembles the final document with CRLF terminators, dropping
// empty lines so optional properties that were not emitted leave no
// trace.
func joinLines(lines []string) string {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\r\n")
}
