// Package calendar builds month/week/day grids of reservations and models
// the interactions on them: drag-to-select ranges and booking clicks.
package calendar

import (
	"fmt"
	"time"

	"autorent/internal/models"
)

// ViewMode is the calendar granularity.
type ViewMode string

const (
	ViewMonth ViewMode = "month"
	ViewWeek  ViewMode = "week"
	ViewDay   ViewMode = "day"
)

const (
	// MonthCellCount is six full weeks.
	MonthCellCount = 42
	HoursPerDay    = 24
	DaysPerWeek    = 7
)

// ParseViewMode converts a query value into a ViewMode. Empty means month.
func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(s) {
	case "", ViewMonth:
		return ViewMonth, nil
	case ViewWeek:
		return ViewWeek, nil
	case ViewDay:
		return ViewDay, nil
	}
	return "", fmt.Errorf("unknown view mode %q", s)
}

// Cell is one rendered calendar slot with the reservations covering its date.
type Cell struct {
	Date time.Time `json:"date"`
	// Hour is the hour row for week/day views and -1 for month cells.
	Hour int `json:"hour"`
	// OtherMonth marks leading/trailing month cells; styling only.
	OtherMonth   bool                 `json:"other_month,omitempty"`
	Reservations []models.Reservation `json:"reservations"`
}

// Count returns the number of reservations bound to the cell.
func (c Cell) Count() int {
	return len(c.Reservations)
}

// Generate returns the ordered cells for viewDate in the given mode.
// Unknown modes produce no cells.
func Generate(viewDate time.Time, mode ViewMode, reservations []models.Reservation) []Cell {
	switch mode {
	case ViewMonth:
		return MonthCells(viewDate, reservations)
	case ViewWeek:
		return WeekCells(viewDate, reservations)
	case ViewDay:
		return DayCells(viewDate, reservations)
	}
	return nil
}

// MonthCells returns exactly 42 cells starting on the Sunday on or before the 1st.
func MonthCells(viewDate time.Time, reservations []models.Reservation) []Cell {
	first := firstOfMonth(viewDate)
	start := WeekStart(first)

	cells := make([]Cell, MonthCellCount)
	for i := range cells {
		d := start.AddDate(0, 0, i)
		cells[i] = Cell{
			Date:         d,
			Hour:         -1,
			OtherMonth:   d.Month() != first.Month(),
			Reservations: bind(d, reservations),
		}
	}
	return cells
}

// WeekCells returns 24 hour rows of 7 day columns in row-major order.
// Columns start on the Sunday of the week containing viewDate.
func WeekCells(viewDate time.Time, reservations []models.Reservation) []Cell {
	start := WeekStart(viewDate)
	days := make([][]models.Reservation, DaysPerWeek)
	for col := range days {
		days[col] = bind(start.AddDate(0, 0, col), reservations)
	}

	cells := make([]Cell, 0, HoursPerDay*DaysPerWeek)
	for hour := 0; hour < HoursPerDay; hour++ {
		for col := 0; col < DaysPerWeek; col++ {
			cells = append(cells, Cell{
				Date:         start.AddDate(0, 0, col),
				Hour:         hour,
				Reservations: clone(days[col]),
			})
		}
	}
	return cells
}

// DayCells returns 24 hour cells for viewDate.
func DayCells(viewDate time.Time, reservations []models.Reservation) []Cell {
	d := models.DateOnly(viewDate)
	bound := bind(d, reservations)

	cells := make([]Cell, HoursPerDay)
	for hour := range cells {
		cells[hour] = Cell{Date: d, Hour: hour, Reservations: clone(bound)}
	}
	return cells
}

// VisibleRange returns the dates a view displays, for fetching reservations.
func VisibleRange(viewDate time.Time, mode ViewMode) models.Range {
	switch mode {
	case ViewWeek:
		start := WeekStart(viewDate)
		return models.Range{Start: start, End: start.AddDate(0, 0, DaysPerWeek-1)}
	case ViewDay:
		d := models.DateOnly(viewDate)
		return models.Range{Start: d, End: d}
	default:
		start := WeekStart(firstOfMonth(viewDate))
		return models.Range{Start: start, End: start.AddDate(0, 0, MonthCellCount-1)}
	}
}

// WeekStart returns the Sunday on or before d.
func WeekStart(d time.Time) time.Time {
	d = models.DateOnly(d)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// StackOffset is the vertical offset of the index-th booking stacked in one slot.
func StackOffset(index, step int) int {
	if index < 0 || step < 0 {
		return 0
	}
	return index * step
}

func firstOfMonth(d time.Time) time.Time {
	d = models.DateOnly(d)
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// bind keeps input order; the result never aliases the input slice.
func bind(d time.Time, reservations []models.Reservation) []models.Reservation {
	var out []models.Reservation
	for i := range reservations {
		if reservations[i].ContainsDate(d) {
			out = append(out, reservations[i])
		}
	}
	return out
}

func clone(rs []models.Reservation) []models.Reservation {
	if rs == nil {
		return nil
	}
	return append([]models.Reservation(nil), rs...)
}
