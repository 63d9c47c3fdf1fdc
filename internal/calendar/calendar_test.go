package calendar

import (
	"testing"
	"time"
)

func TestDaysInMonth(t *testing.T) {
	cases := []struct {
		year, month, want int
	}{
		{2025, 0, 31},
		{2025, 1, 28},
		{2024, 1, 29},
		{1900, 1, 28},
		{2000, 1, 29},
		{2025, 3, 30},
		{2025, 11, 31},
	}
	for _, tc := range cases {
		if got := DaysInMonth(tc.year, tc.month); got != tc.want {
			t.Fatalf("DaysInMonth(%d, %d) = %d, want %d", tc.year, tc.month, got, tc.want)
		}
	}
}

func TestWeekRangesJune2025(t *testing.T) {
	// 1 June 2025 is a Sunday.
	got := WeekRanges(2025, 5)
	want := []WeekRange{
		{1, 1, 1, "1-1 jun"},
		{2, 2, 8, "2-8 jun"},
		{3, 9, 15, "9-15 jun"},
		{4, 16, 22, "16-22 jun"},
		{5, 23, 29, "23-29 jun"},
		{6, 30, 30, "30-30 jun"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d ranges, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("range %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestWeekRangesMonthStartingMonday(t *testing.T) {
	// 1 September 2025 is a Monday: no leading partial range.
	got := WeekRanges(2025, 8)
	if got[0].Start != 1 || got[0].End != 7 {
		t.Fatalf("first range = %+v, want 1-7", got[0])
	}
	if last := got[len(got)-1]; last.Start != 29 || last.End != 30 {
		t.Fatalf("last range = %+v, want 29-30", last)
	}

	// February 2021 starts on Monday and has 28 days: four full weeks.
	if n := len(WeekRanges(2021, 1)); n != 4 {
		t.Fatalf("February 2021 has %d ranges, want 4", n)
	}
}

func TestWeekRangesPartitionEveryMonth(t *testing.T) {
	for year := 1999; year <= 2030; year++ {
		for month := 0; month < 12; month++ {
			ranges := WeekRanges(year, month)
			if len(ranges) < 4 || len(ranges) > 6 {
				t.Fatalf("%d-%d: %d ranges", year, month, len(ranges))
			}
			next := 1
			for i, r := range ranges {
				if r.Index != i+1 {
					t.Fatalf("%d-%d: range %d has index %d", year, month, i, r.Index)
				}
				if r.Start != next || r.End < r.Start {
					t.Fatalf("%d-%d: range %+v breaks contiguity", year, month, r)
				}
				if r.End-r.Start > 6 {
					t.Fatalf("%d-%d: range %+v longer than a week", year, month, r)
				}
				if i > 0 {
					if wd := time.Date(year, time.Month(month+1), r.Start, 0, 0, 0, 0, time.UTC).Weekday(); wd != time.Monday {
						t.Fatalf("%d-%d: range %+v starts on %s", year, month, r, wd)
					}
				}
				next = r.End + 1
			}
			if next-1 != DaysInMonth(year, month) {
				t.Fatalf("%d-%d: coverage ends at %d", year, month, next-1)
			}
		}
	}
}

func TestWeekDayRangeFallsBackToFirst(t *testing.T) {
	first := WeekDayRange(2021, 1, 1)
	if got := WeekDayRange(2021, 1, 6); got != first {
		t.Fatalf("out of range index = %+v, want %+v", got, first)
	}
	if got := WeekDayRange(2021, 1, 0); got != first {
		t.Fatalf("index 0 = %+v, want %+v", got, first)
	}
	if got := WeekDayRange(2025, 5, 6); got.Start != 30 {
		t.Fatalf("week 6 of June 2025 = %+v", got)
	}
}

func TestCurrentWeekIndex(t *testing.T) {
	today := time.Date(2025, time.June, 17, 12, 0, 0, 0, time.UTC)
	if got := CurrentWeekIndex(2025, 5, today); got != 4 {
		t.Fatalf("17 June 2025 in week %d, want 4", got)
	}
	if got := CurrentWeekIndex(2025, 4, today); got != 1 {
		t.Fatalf("other month: got %d, want 1", got)
	}
	if got := CurrentWeekIndex(2024, 5, today); got != 1 {
		t.Fatalf("other year: got %d, want 1", got)
	}
}

func TestDayName(t *testing.T) {
	if got := DayName(2025, 5, 1); got != "Sun" {
		t.Fatalf("1 June 2025 = %q, want Sun", got)
	}
	if got := DayName(2025, 8, 1); got != "Mon" {
		t.Fatalf("1 September 2025 = %q, want Mon", got)
	}
	if got := DayName(2024, 1, 29); got != "Thu" {
		t.Fatalf("29 February 2024 = %q, want Thu", got)
	}
}

func TestLocaleLabels(t *testing.T) {
	cases := []struct {
		locale string
		want   string
	}{
		{"de", "mär"},
		{"de-AT", "mär"},
		{"it", "mar"},
		{"en-GB", "mar"},
		{"fr", "mar"},
		{"", "mar"},
		{"not a locale", "mar"},
	}
	for _, tc := range cases {
		if got := New(tc.locale).MonthAbbrev(2); got != tc.want {
			t.Fatalf("locale %q: got %q, want %q", tc.locale, got, tc.want)
		}
	}

	de := New("de")
	if got := de.WeekRanges(2025, 11)[0].Label; got != "1-7 dez" {
		t.Fatalf("german december label = %q", got)
	}
}
