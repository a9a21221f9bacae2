package utils

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout is the canonical date format used in config and reports.
const DateLayout = "2006-01-02"

// dateLayouts lists accepted input formats, tried in order. Day-first
// layouts come before month-first ones since holdings statements are
// usually exported that way.
var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	"02-Jan-2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	time.RFC3339,
}

// ParseDate parses a calendar date in any of the accepted layouts and
// returns it at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// FormatDate formats a time.Time as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysBetween returns the number of whole calendar days from start to end.
// It is negative when end is before start.
func DaysBetween(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Round(e.Sub(s).Hours() / 24))
}

// YearsBetween converts the day count between two dates into years using
// a fixed day-count basis (e.g. 365).
func YearsBetween(start, end time.Time, basis float64) float64 {
	if basis <= 0 {
		basis = 365
	}
	return float64(DaysBetween(start, end)) / basis
}
