// Package dates parses the free-form timestamps written by the macOS Notes export.
package dates

import (
	"regexp"
	"strings"
	"time"
)

// Layout is the textual form used when persisting parsed timestamps.
// It sorts lexicographically in chronological order.
const Layout = "2006-01-02 15:04:05"

var leadingWeekday = regexp.MustCompile(`^[A-Za-z]+,\s+`)

var (
	dateLayouts = []string{
		"January 2, 2006",
		"Jan 2, 2006",
	}
	clockLayouts = []string{
		"15:04:05",
		"3:04:05 PM",
	}
	fallbackLayouts = []string{
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
)

// Parse parses strings such as "Saturday, November 8, 2025 at 21:59:06",
// "Nov 8, 2025 at 9:59:06 PM" or "2025-11-08 21:59:06".
// The weekday prefix is optional. Returned times carry no zone and are reported in UTC.
// ok is false when s does not match any supported layout.
func Parse(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	trimmed := leadingWeekday.ReplaceAllString(s, "")
	if datePart, clockPart, found := strings.Cut(trimmed, " at "); found {
		// a second " at " is not a timestamp we understand
		if strings.Contains(clockPart, " at ") {
			return time.Time{}, false
		}
		day, ok := parseFirst(dateLayouts, datePart)
		if !ok {
			return time.Time{}, false
		}
		clock, ok := parseFirst(clockLayouts, strings.ToUpper(clockPart))
		if !ok {
			return time.Time{}, false
		}
		return time.Date(day.Year(), day.Month(), day.Day(),
			clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC), true
	}

	return parseFirst(fallbackLayouts, s)
}

// Format renders t with Layout, or returns nil when t is nil.
func Format(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(Layout)
}

func parseFirst(layouts []string, value string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
