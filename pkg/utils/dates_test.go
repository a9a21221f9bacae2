package utils

import (
	"math"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2030, 3, 15, 0, 0, 0, 0, time.UTC)
	inputs := []string{
		"2030-03-15",
		"2030/03/15",
		"15-03-2030",
		"15/03/2030",
		"15-Mar-2030",
		"15 Mar 2030",
		"Mar 15, 2030",
		" 2030-03-15 ",
		"2030-03-15T10:30:00+05:30",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			got, err := ParseDate(in)
			if err != nil {
				t.Fatalf("ParseDate(%q) error: %v", in, err)
			}
			if !got.Equal(want) {
				t.Errorf("ParseDate(%q) = %v, want %v", in, got, want)
			}
		})
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "tomorrow", "2030-13-40", "15.03.2030"} {
		if _, err := ParseDate(in); err == nil {
			t.Errorf("ParseDate(%q) should fail", in)
		}
	}
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2026, 2, 9, 18, 0, 0, 0, time.UTC)
	if got := FormatDate(d); got != "2026-02-09" {
		t.Errorf("FormatDate = %q, want 2026-02-09", got)
	}
}

func TestDaysBetween(t *testing.T) {
	spot := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		end      time.Time
		expected int
	}{
		{time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 365},
		{time.Date(2029, 1, 1, 0, 0, 0, 0, time.UTC), 1461}, // spans 2028 leap day
		{time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), -1},
		{time.Date(2025, 1, 2, 23, 59, 0, 0, time.UTC), 1}, // time of day ignored
	}

	for _, tt := range tests {
		t.Run(tt.end.String(), func(t *testing.T) {
			if got := DaysBetween(spot, tt.end); got != tt.expected {
				t.Errorf("DaysBetween = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestYearsBetween(t *testing.T) {
	spot := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2029, 1, 1, 0, 0, 0, 0, time.UTC)

	if got := YearsBetween(spot, end, 365); math.Abs(got-1461.0/365) > 1e-12 {
		t.Errorf("YearsBetween(365) = %f, want %f", got, 1461.0/365)
	}
	if got := YearsBetween(spot, end, 0); math.Abs(got-1461.0/365) > 1e-12 {
		t.Errorf("YearsBetween(0) should default to 365, got %f", got)
	}
	if got := YearsBetween(end, spot, 365); got >= 0 {
		t.Errorf("YearsBetween reversed = %f, want negative", got)
	}
}
