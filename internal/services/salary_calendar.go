package services

import "recibos/internal/core"

// ComputeDay sums the classes active on date. A holiday yields an empty day
// regardless of the schedule.
func ComputeDay(entries []core.ScheduleEntry, holidays core.HolidaySet, date core.Date) core.DailyResult {
	result := core.EmptyDay()
	if holidays.Contains(date) {
		return result
	}
	for _, entry := range entries {
		for _, class := range entry.Classes {
			if !IsActive(class, entry.VacationPeriods, date) {
				continue
			}
			result.Total = result.Total.Add(class.Value)
			result.Details = append(result.Details, core.ClassDetail{
				ClassType: class.Type(),
				Value:     class.Value,
				OwnerID:   entry.OwnerID,
				Time:      class.Time,
			})
		}
	}
	core.SortDetailsByTime(result.Details)
	return result
}

// BuildYearGrid projects the expected income of every day of year into a
// day×month grid. Cells past the end of a month stay invalid and are not
// summed.
func BuildYearGrid(entries []core.ScheduleEntry, holidays core.HolidaySet, year int) core.YearGrid {
	grid := core.YearGrid{Year: year, YearTotal: core.Zero}
	for m := range grid.MonthlyTotals {
		grid.MonthlyTotals[m] = core.Zero
	}

	for month := 1; month <= core.GridMonths; month++ {
		days := core.DaysIn(year, month)
		for day := 1; day <= core.GridDays; day++ {
			if day > days {
				grid.Cells[day-1][month-1] = core.GridCell{Result: core.EmptyDay()}
				continue
			}
			date := core.NewDate(year, month, day)
			res := ComputeDay(entries, holidays, date)
			grid.Cells[day-1][month-1] = core.GridCell{
				Valid:   true,
				Date:    date,
				Weekend: date.Weekday().IsWeekend(),
				Holiday: holidays.Contains(date),
				Result:  res,
			}
			grid.MonthlyTotals[month-1] = grid.MonthlyTotals[month-1].Add(res.Total)
		}
		grid.YearTotal = grid.YearTotal.Add(grid.MonthlyTotals[month-1])
	}
	return grid
}
