package core

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day with no time-of-day component. Every Date is
// anchored to UTC midnight so comparing two of them is a pure day
// comparison.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Today returns the current calendar day in UTC.
func Today() Date {
	return DateOf(time.Now().UTC())
}

// ParseDate parses a date in YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t.UTC()}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: zero value", ErrInvalidDate)
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// String formats the date as YYYY-MM-DD, or the empty string for the
// zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// MarshalJSON encodes the date as a quoted YYYY-MM-DD string. The zero
// date encodes as "".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts a quoted YYYY-MM-DD string. The empty string
// and null decode to the zero date.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// AddMonths returns the date n months after d. The day of month is kept
// when the target month has it and clamped to the target month's last
// day when it does not: Jan 31 plus one month is Feb 28 (29 in leap
// years), never a normalized overflow into March.
func (d Date) AddMonths(n int) Date {
	year, month, day := d.Time.Date()
	months := int(month) - 1 + n
	year += months / 12
	rem := months % 12
	if rem < 0 {
		rem += 12
		year--
	}
	month = time.Month(rem + 1)
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return NewDate(year, int(month), day)
}

// AddYears returns the date n years after d, clamping Feb 29 anchors to
// Feb 28 in non-leap years.
func (d Date) AddYears(n int) Date {
	year, month, day := d.Time.Date()
	year += n
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return NewDate(year, int(month), day)
}

// daysInMonth relies on day zero of the following month normalizing to
// the last day of this one.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
