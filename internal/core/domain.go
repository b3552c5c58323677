package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// ISODateLayout is used by vacation periods, holidays and invoice dates.
	ISODateLayout = "2006-01-02"
	// DayMonthYearLayout is used by class validity periods.
	DayMonthYearLayout = "02-01-2006"
)

type (
	// Date is a calendar day normalised to midnight UTC.
	Date struct {
		time.Time
	}

	// DateInterval is an inclusive range of days. A nil bound is open.
	DateInterval struct {
		Start *Date
		End   *Date
	}
)

var (
	ErrInvalidDay     = errors.New("invalid day")
	ErrInvalidMonth   = errors.New("invalid month")
	ErrInvalidYear    = errors.New("invalid year")
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidWeekday = errors.New("invalid weekday")
	ErrInvalidNIF     = errors.New("invalid NIF")
	ErrEmptyOwner     = errors.New("empty schedule owner")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time of day and location of t, keeping its calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseISODate parses a YYYY-MM-DD string.
func ParseISODate(s string) (Date, error) {
	return parseDate(ISODateLayout, s)
}

// ParseDayMonthYear parses a DD-MM-YYYY string.
func ParseDayMonthYear(s string) (Date, error) {
	return parseDate(DayMonthYearLayout, s)
}

func parseDate(layout, s string) (Date, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q (want %s)", ErrInvalidDate, s, layout)
	}
	return DateOf(t), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	year, month, day := d.Date()
	if year < 1900 || year > 9999 {
		return ErrInvalidYear
	}
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
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

// Weekday returns the day of the week.
func (d Date) Weekday() Weekday {
	return Weekday(d.Time.Weekday())
}

// ISO formats the date as YYYY-MM-DD.
func (d Date) ISO() string {
	return d.Format(ISODateLayout)
}

// IsEmpty returns true if the date is zero (for backward compatibility with optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// DateRef returns a pointer to a copy of d, handy for interval bounds.
func DateRef(d Date) *Date {
	return &d
}

// DaysIn returns the number of days of month (1-12) in year.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Inverted reports whether both bounds are set and Start is after End.
func (iv DateInterval) Inverted() bool {
	return iv.Start != nil && iv.End != nil && iv.Start.After(iv.End.Time)
}

// Contains reports whether d falls inside the interval, bounds included.
// An inverted interval contains no day.
func (iv DateInterval) Contains(d Date) bool {
	if iv.Inverted() {
		return false
	}
	day := DateOf(d.Time)
	if iv.Start != nil && day.Before(iv.Start.Time) {
		return false
	}
	if iv.End != nil && day.After(iv.End.Time) {
		return false
	}
	return true
}

// OverlapsYear reports whether any day of year could fall inside the interval,
// comparing years only.
func (iv DateInterval) OverlapsYear(year int) bool {
	if iv.Start != nil && iv.Start.Year() > year {
		return false
	}
	if iv.End != nil && iv.End.Year() < year {
		return false
	}
	return true
}

func (iv DateInterval) String() string {
	start, end := "…", "…"
	if iv.Start != nil {
		start = iv.Start.ISO()
	}
	if iv.End != nil {
		end = iv.End.ISO()
	}
	return start + ".." + end
}
