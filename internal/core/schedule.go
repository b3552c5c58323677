package core

import (
	"sort"
	"strconv"
	"strings"
)

// DefaultClassType labels classes whose type is not given.
const DefaultClassType = "Aula"

// Grid dimensions of the salary calendar.
const (
	GridDays   = 31
	GridMonths = 12
)

type (
	// ClassDef is a class that repeats every week on Weekday.
	ClassDef struct {
		Weekday        Weekday
		Time           string // e.g. "10h-11h", may be empty
		Value          Money
		ClassType      string
		ValidityPeriod *DateInterval // nil means always valid
	}

	// ScheduleEntry groups the classes of one owner (NIF) with its vacations.
	ScheduleEntry struct {
		OwnerID         string
		Classes         []ClassDef
		VacationPeriods []DateInterval
	}

	// ClassDetail is one class contributing to a day.
	ClassDetail struct {
		ClassType string
		Value     Money
		OwnerID   string
		Time      string
	}

	// DailyResult is the expected income of a single day.
	DailyResult struct {
		Total   Money
		Details []ClassDetail
	}

	// GridCell is one day×month cell of the salary calendar.
	GridCell struct {
		Valid   bool // false for days past the end of the month
		Date    Date
		Weekend bool
		Holiday bool
		Result  DailyResult
	}

	// YearGrid is the salary projection of a year.
	YearGrid struct {
		Year          int
		Cells         [GridDays][GridMonths]GridCell
		MonthlyTotals [GridMonths]Money
		YearTotal     Money
	}
)

// EmptyDay is the result of a day with no classes.
func EmptyDay() DailyResult {
	return DailyResult{Total: Zero, Details: []ClassDetail{}}
}

func (c ClassDef) Validate() error {
	if !c.Weekday.Valid() {
		return ErrInvalidWeekday
	}
	return c.Value.Validate()
}

// Type returns ClassType or the default label.
func (c ClassDef) Type() string {
	if strings.TrimSpace(c.ClassType) == "" {
		return DefaultClassType
	}
	return c.ClassType
}

func (e ScheduleEntry) Validate() error {
	if strings.TrimSpace(e.OwnerID) == "" {
		return ErrEmptyOwner
	}
	for _, c := range e.Classes {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Cell returns the cell for day (1-31) and month (1-12).
func (g *YearGrid) Cell(day, month int) GridCell {
	return g.Cells[day-1][month-1]
}

// ParseStartMinutes returns the start of a "10h-11h" style range in minutes
// after midnight. "9h30-10h30" gives 570. Empty or unparsable input gives 0.
func ParseStartMinutes(timeRange string) int {
	start, _, _ := strings.Cut(strings.TrimSpace(timeRange), "-")
	start = strings.ToLower(strings.TrimSpace(start))
	if start == "" {
		return 0
	}
	hours, minutes, found := strings.Cut(start, "h")
	if !found {
		hours, minutes, _ = strings.Cut(start, ":")
	}
	h, err := strconv.Atoi(strings.TrimSpace(hours))
	if err != nil || h < 0 {
		return 0
	}
	m := 0
	if minutes = strings.TrimSpace(minutes); minutes != "" {
		if v, err := strconv.Atoi(minutes); err == nil && v >= 0 && v < 60 {
			m = v
		}
	}
	return h*60 + m
}

// SortDetailsByTime orders details by start time; ties keep their order.
func SortDetailsByTime(details []ClassDetail) {
	sort.SliceStable(details, func(i, j int) bool {
		return ParseStartMinutes(details[i].Time) < ParseStartMinutes(details[j].Time)
	})
}

// HolidaySet holds the public holidays of each year.
type HolidaySet struct {
	byYear map[int]map[string]struct{}
}

// NewHolidaySet indexes the given dates by year.
func NewHolidaySet(dates ...Date) HolidaySet {
	hs := HolidaySet{byYear: make(map[int]map[string]struct{})}
	for _, d := range dates {
		hs.Add(d)
	}
	return hs
}

// Add inserts d into the set.
func (hs *HolidaySet) Add(d Date) {
	if hs.byYear == nil {
		hs.byYear = make(map[int]map[string]struct{})
	}
	days, ok := hs.byYear[d.Year()]
	if !ok {
		days = make(map[string]struct{})
		hs.byYear[d.Year()] = days
	}
	days[d.ISO()] = struct{}{}
}

// Contains reports whether d is a holiday.
func (hs HolidaySet) Contains(d Date) bool {
	_, ok := hs.byYear[d.Year()][d.ISO()]
	return ok
}

// Year returns the holidays of year in ascending order.
func (hs HolidaySet) Year(year int) []string {
	days := make([]string, 0, len(hs.byYear[year]))
	for iso := range hs.byYear[year] {
		days = append(days, iso)
	}
	sort.Strings(days)
	return days
}

// Years returns the years that have at least one holiday, ascending.
func (hs HolidaySet) Years() []int {
	years := make([]int, 0, len(hs.byYear))
	for y := range hs.byYear {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Len returns the number of holidays across all years.
func (hs HolidaySet) Len() int {
	n := 0
	for _, days := range hs.byYear {
		n += len(days)
	}
	return n
}
