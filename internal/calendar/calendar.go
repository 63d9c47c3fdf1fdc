// Package calendar partitions a month into labelled, Monday-start week
// ranges. Months are addressed with a 0-based index (0 = January).
package calendar

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// WeekRange is a contiguous run of days inside one month.
type WeekRange struct {
	Index int    `json:"index"` // 1-based
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
}

// Contains reports whether day falls inside the range.
func (w WeekRange) Contains(day int) bool {
	return day >= w.Start && day <= w.End
}

var monthAbbrev = map[language.Tag][12]string{
	language.English: {"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"},
	language.German:  {"jan", "feb", "mär", "apr", "mai", "jun", "jul", "aug", "sep", "okt", "nov", "dez"},
	language.Italian: {"gen", "feb", "mar", "apr", "mag", "giu", "lug", "ago", "set", "ott", "nov", "dic"},
}

var supported = []language.Tag{language.English, language.German, language.Italian}

var matcher = language.NewMatcher(supported)

var dayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Calendar renders labels in one locale. The zero value is not usable; build
// one with New.
type Calendar struct {
	tag    language.Tag
	months [12]string
}

// New returns a Calendar for the given BCP 47 locale. Unknown or malformed
// locales fall back to English.
func New(locale string) *Calendar {
	tag := language.English
	if t, err := language.Parse(locale); err == nil {
		_, idx, conf := matcher.Match(t)
		if conf != language.No {
			tag = supported[idx]
		}
	}
	return &Calendar{tag: tag, months: monthAbbrev[tag]}
}

// Locale returns the matched locale tag.
func (c *Calendar) Locale() string {
	return c.tag.String()
}

// MonthAbbrev returns the lowercase short month name for a 0-based month,
// or "" when month is out of range.
func (c *Calendar) MonthAbbrev(month int) string {
	if month < 0 || month > 11 {
		return ""
	}
	return c.months[month]
}

// DaysInMonth returns the number of days in the 0-based month of year.
func DaysInMonth(year, month int) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, time.Month(month+2), 0, 0, 0, 0, 0, time.UTC).Day()
}

// firstMonday returns the day number of the first Monday in the month.
func firstMonday(year, month int) int {
	dow := int(time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.UTC).Weekday())
	return 1 + (8-dow)%7
}

// WeekRanges partitions the month into ranges: an optional leading partial
// week ending the day before the first Monday, then full Monday-start weeks,
// the last one truncated at the month end. The ranges cover every day of
// the month exactly once, in order.
func (c *Calendar) WeekRanges(year, month int) []WeekRange {
	last := DaysInMonth(year, month)
	abbr := c.MonthAbbrev(month)

	var out []WeekRange
	add := func(start, end int) {
		out = append(out, WeekRange{
			Index: len(out) + 1,
			Start: start,
			End:   end,
			Label: fmt.Sprintf("%d-%d %s", start, end, abbr),
		})
	}

	fm := firstMonday(year, month)
	if fm > 1 {
		add(1, fm-1)
	}
	for start := fm; start <= last; start += 7 {
		add(start, min(start+6, last))
	}
	return out
}

// WeekDayRange returns the range for a 1-based week index. An index past the
// end of the partition falls back to the first range.
func (c *Calendar) WeekDayRange(year, month, week int) WeekRange {
	ranges := c.WeekRanges(year, month)
	if week >= 1 && week <= len(ranges) {
		return ranges[week-1]
	}
	return ranges[0]
}

// WeekIndexOf returns the 1-based index of the range containing day, or 0.
func (c *Calendar) WeekIndexOf(year, month, day int) int {
	for _, r := range c.WeekRanges(year, month) {
		if r.Contains(day) {
			return r.Index
		}
	}
	return 0
}

// CurrentWeekIndex returns the index of the range containing today when
// today lies in the given month, and 1 otherwise.
func (c *Calendar) CurrentWeekIndex(year, month int, today time.Time) int {
	day := 1
	if today.Year() == year && int(today.Month())-1 == month {
		day = today.Day()
	}
	if idx := c.WeekIndexOf(year, month, day); idx > 0 {
		return idx
	}
	return 1
}

// DayName returns the English three-letter weekday name for a date.
func DayName(year, month, day int) string {
	return dayNames[time.Date(year, time.Month(month+1), day, 0, 0, 0, 0, time.UTC).Weekday()]
}

var english = New("en")

// WeekRanges partitions a month using English labels.
func WeekRanges(year, month int) []WeekRange {
	return english.WeekRanges(year, month)
}

// WeekDayRange looks up a range using English labels.
func WeekDayRange(year, month, week int) WeekRange {
	return english.WeekDayRange(year, month, week)
}

// CurrentWeekIndex is the English-calendar form of Calendar.CurrentWeekIndex.
func CurrentWeekIndex(year, month int, today time.Time) int {
	return english.CurrentWeekIndex(year, month, today)
}
