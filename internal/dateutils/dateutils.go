// Package dateutils provides the date and time parsing used by the row
// normalizer. Statement sources disagree on date layout, so parsing tries a
// fixed list of formats in order and reports failure rather than guessing.
package dateutils

import (
	"regexp"
	"strings"
	"time"
)

// Common date format constants used throughout the application
const (
	DateLayoutISO      = "2006-01-02"
	DateLayoutEuropean = "02-01-2006"
	DateLayoutSlashEU  = "02/01/2006"
	DateLayoutSlashUS  = "01/02/2006"
	TimeLayout         = "15:04:05"
)

// DateFormats is the ordered list of date-only layouts tried by ParseDate.
var DateFormats = []string{
	DateLayoutISO,
	DateLayoutEuropean,
	DateLayoutSlashEU,
	DateLayoutSlashUS,
}

// DateTimeFormats is the ordered list of combined date+time layouts tried
// when a value embeds a time component. The fractional-second variant covers
// eSewa exports ("2025-04-11 10:15:13.0").
var DateTimeFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.0",
	"2006-01-02 15:04",
	"02-01-2006 15:04:05",
	"02/01/2006 15:04:05",
}

var spaceRe = regexp.MustCompile(`\s+`)

// CleanDateString trims and collapses internal whitespace in a date string.
func CleanDateString(dateStr string) string {
	return spaceRe.ReplaceAllString(strings.TrimSpace(dateStr), " ")
}

// HasTimeComponent reports whether the value embeds a time of day.
func HasTimeComponent(dateStr string) bool {
	return strings.Contains(dateStr, ":")
}

// ParseDate parses a date-only value, trying each known layout in order.
func ParseDate(dateStr string) (time.Time, bool) {
	dateStr = CleanDateString(dateStr)
	if dateStr == "" {
		return time.Time{}, false
	}
	for _, layout := range DateFormats {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDateTime parses a combined date+time value, trying each known layout
// in order.
func ParseDateTime(dateStr string) (time.Time, bool) {
	dateStr = CleanDateString(dateStr)
	if dateStr == "" {
		return time.Time{}, false
	}
	for _, layout := range DateTimeFormats {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseStatementDate parses a statement date field. Values containing a time
// component yield both the date and the time of day from one combined parse;
// date-only values yield ok time-of-day=false so the caller can substitute
// the ingestion moment.
func ParseStatementDate(value string) (date time.Time, timeOfDay string, ok bool) {
	value = CleanDateString(value)
	if value == "" {
		return time.Time{}, "", false
	}

	if HasTimeComponent(value) {
		if t, parsed := ParseDateTime(value); parsed {
			return t, t.Format(TimeLayout), true
		}
	}

	if t, parsed := ParseDate(value); parsed {
		return t, "", true
	}

	return time.Time{}, "", false
}

// Truncate returns the calendar-date part of t, dropping the time of day.
func Truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
