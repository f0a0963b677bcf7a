package core

import (
	"fmt"
	"time"
)

// Date is a calendar date at UTC midnight. The zero value means "not set",
// which is how optional start/end dates are represented.
type Date struct {
	time.Time
}

// dateLayouts are tried in order when parsing user-supplied dates.
// Day-first beats month-first for ambiguous slash dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"01/02/2006",
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date string, trying YYYY-MM-DD, YYYY/MM/DD, DD/MM/YYYY
// and MM/DD/YYYY before falling back to RFC 3339.
func ParseDate(s string) (Date, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t.UTC()}, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return NewDate(t.Year(), int(t.Month()), t.Day()), nil
	}
	return Date{}, fmt.Errorf("invalid date format: %q", s)
}

// Equal reports whether two dates denote the same calendar day.
func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format("2006-01-02")
}

// MarshalJSON renders the date as "YYYY-MM-DD", or null when unset.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts the same formats as ParseDate, plus null.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*d = Date{}
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as 1-12.
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

// YearMonth identifies one calendar month.
type YearMonth struct {
	Year  int
	Month int // 1-12
}

// MonthsBetween returns every calendar month intersecting the inclusive
// range [start, end], in chronological order. Empty when start > end.
func MonthsBetween(start, end Date) []YearMonth {
	if start.IsZero() || end.IsZero() || start.After(end.Time) {
		return nil
	}
	first := start.Year()*12 + start.Month() - 1
	last := end.Year()*12 + end.Month() - 1
	months := make([]YearMonth, 0, last-first+1)
	for ym := first; ym <= last; ym++ {
		months = append(months, YearMonth{Year: ym / 12, Month: ym%12 + 1})
	}
	return months
}

// LastDayOfMonth returns 28, 29, 30 or 31 depending on month and leap year.
func LastDayOfMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDay reduces a configured day-of-month to the last valid day of a
// shorter month, so "the 31st" degrades to the 28th in February.
func ClampDay(year, month, day int) int {
	if last := LastDayOfMonth(year, month); day > last {
		return last
	}
	return day
}

// MonthBounds returns the first and last day of the given month.
func MonthBounds(year, month int) (Date, Date) {
	return NewDate(year, month, 1), NewDate(year, month, LastDayOfMonth(year, month))
}
