package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"recibos/internal/core"
	"recibos/internal/log"
	"recibos/internal/services"
)

type calendarCellView struct {
	Class   string
	Weekday string
	Amount  string
	Details []string
}

type calendarRowView struct {
	Day   int
	Cells []calendarCellView
}

type calendarView struct {
	Year          int
	Years         []int
	SelfURL       string
	Months        []string
	Rows          []calendarRowView
	MonthlyTotals []string
	YearTotal     string
	Holidays      int
}

func (s *Server) calendarView() view {
	return view{
		key:       "calendar",
		title:     "Calendário",
		partial:   "ui_calendar",
		build:     s.buildCalendarView,
		component: log.ComponentCalendar,
	}
}

func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	s.servePage(w, r, s.calendarView())
}

func (s *Server) handleCalendarPartial(w http.ResponseWriter, r *http.Request) {
	s.servePartial(w, r, s.calendarView())
}

// buildCalendarView projects the salary of the requested year, the current
// year by default.
func (s *Server) buildCalendarView(ctx context.Context, p ViewParams) (any, error) {
	today := core.DateOf(s.now())
	year := today.Year()
	if p.HasYear {
		year = p.Year
	}

	entries, serr := s.data.Schedule(ctx)
	holidays, herr := s.data.Holidays(ctx)
	years, yerr := s.data.Years(ctx)

	err := errors.Join(optional(serr), optional(herr), optional(yerr))
	if err != nil || serr != nil {
		entries = nil
	}
	if err != nil || herr != nil {
		holidays = core.NewHolidaySet()
	}

	grid := services.BuildYearGrid(entries, holidays, year)
	options := yearOptions([]int{year, today.Year()}, holidays.Years(), years)
	return newCalendarView(&grid, today, options, len(holidays.Year(year))), err
}

func newCalendarView(g *core.YearGrid, today core.Date, years []int, holidays int) calendarView {
	v := calendarView{
		Year:      g.Year,
		Years:     years,
		SelfURL:   viewURL("/ui/calendar", g.Year, services.SortState{}, nil),
		YearTotal: formatEuros(g.YearTotal),
		Holidays:  holidays,
	}
	for m := 1; m <= core.GridMonths; m++ {
		v.Months = append(v.Months, core.MonthName(m, core.LocalePT))
		v.MonthlyTotals = append(v.MonthlyTotals, formatEuros(g.MonthlyTotals[m-1]))
	}

	for day := 1; day <= core.GridDays; day++ {
		row := calendarRowView{Day: day}
		for month := 1; month <= core.GridMonths; month++ {
			row.Cells = append(row.Cells, newCalendarCell(g.Cell(day, month), today))
		}
		v.Rows = append(v.Rows, row)
	}
	return v
}

func newCalendarCell(c core.GridCell, today core.Date) calendarCellView {
	if !c.Valid {
		return calendarCellView{Class: "invalid"}
	}

	var classes []string
	if c.Date.Equal(today.Time) {
		classes = append(classes, "today")
	}
	if c.Weekend {
		classes = append(classes, "weekend")
	}
	if c.Holiday {
		classes = append(classes, "holiday")
	}

	cell := calendarCellView{
		Class:   strings.Join(classes, " "),
		Weekday: abbreviate(core.WeekdayLabel(c.Date.Weekday(), core.LocalePT)),
	}
	if c.Result.Total.IsZero() {
		return cell
	}
	cell.Class = strings.TrimSpace(cell.Class + " has-classes")
	cell.Amount = formatEuros(c.Result.Total)
	for _, d := range c.Result.Details {
		cell.Details = append(cell.Details, tooltipLine(d))
	}
	return cell
}

// tooltipLine formats one class as "time - classType: value (NIF)".
func tooltipLine(d core.ClassDetail) string {
	line := d.ClassType + ": " + formatEuros(d.Value) + " (" + d.OwnerID + ")"
	if t := strings.TrimSpace(d.Time); t != "" {
		line = t + " - " + line
	}
	return line
}

func abbreviate(label string) string {
	r := []rune(label)
	if len(r) > 3 {
		r = r[:3]
	}
	return string(r)
}
