// Package grid builds the fixed 42-cell month view.
package grid

import (
	"time"

	"markcal/internal/datekey"
	"markcal/internal/model"
)

// MarkLookup resolves the current mark of a day.
type MarkLookup interface {
	Mark(k model.DateKey) model.Mark
}

// Dates returns the 42 consecutive days shown for ref's month, starting at
// the Sunday on or before the 1st. Only ref's year, month and location are
// used.
//
// 42 cells always cover the month (at most 6 days of lookback plus 31 days),
// but the grid is hard-capped at 42 regardless; a day beyond index 41 would be
// dropped rather than growing the grid.
func Dates(ref time.Time) [model.GridCells]time.Time {
	var out [model.GridCells]time.Time

	loc := ref.Location()
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, loc)
	lookback := int(first.Weekday())

	// time.Date normalises day overflow, so stepping by day number instead of
	// adding 24h durations keeps every cell at local midnight across DST.
	for i := range out {
		out[i] = time.Date(first.Year(), first.Month(), 1-lookback+i, 0, 0, 0, 0, loc)
	}
	return out
}

// Build derives the DayCells for ref's month. marks may be nil.
func Build(ref, today time.Time, marks MarkLookup, holidays model.HolidayTable) model.MonthGrid {
	todayKey := datekey.Encode(today)
	dates := Dates(ref)

	cells := make(model.MonthGrid, 0, model.GridCells)
	for _, d := range dates {
		key := datekey.Encode(d)
		cell := model.DayCell{
			Date:         d,
			Key:          key,
			CurrentMonth: d.Year() == ref.Year() && d.Month() == ref.Month(),
			Today:        key == todayKey,
			Weekend:      model.WeekendOf(d.Weekday()),
			Holiday:      holidays[key],
		}
		if marks != nil {
			cell.Mark = marks.Mark(key)
		}
		cells = append(cells, cell)
	}
	return cells
}

// FirstOfMonth returns midnight on the first day of t's month.
func FirstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// AddMonths moves the first-of-month reference by delta months.
func AddMonths(ref time.Time, delta int) time.Time {
	return time.Date(ref.Year(), ref.Month()+time.Month(delta), 1, 0, 0, 0, 0, ref.Location())
}
