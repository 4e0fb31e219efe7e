package calendar

import (
	"time"

	"autorent/internal/models"
)

// Navigator holds the local prev/next/view-switch state of a calendar.
type Navigator struct {
	Date time.Time
	Mode ViewMode
	now  func() time.Time
}

// NewNavigator starts at date in the given mode.
func NewNavigator(date time.Time, mode ViewMode) *Navigator {
	if mode == "" {
		mode = ViewMonth
	}
	return &Navigator{Date: models.DateOnly(date), Mode: mode, now: time.Now}
}

// Next moves forward by one month, week or day.
func (n *Navigator) Next() { n.step(1) }

// Prev moves back by one month, week or day.
func (n *Navigator) Prev() { n.step(-1) }

// Today jumps to the current date.
func (n *Navigator) Today() {
	n.Date = models.DateOnly(n.now())
}

// SetMode switches granularity, keeping the current date.
func (n *Navigator) SetMode(mode ViewMode) {
	n.Mode = mode
}

// Range returns the dates currently on screen.
func (n *Navigator) Range() models.Range {
	return VisibleRange(n.Date, n.Mode)
}

// Cells generates the grid for the current position.
func (n *Navigator) Cells(reservations []models.Reservation) []Cell {
	return Generate(n.Date, n.Mode, reservations)
}

func (n *Navigator) step(dir int) {
	switch n.Mode {
	case ViewWeek:
		n.Date = n.Date.AddDate(0, 0, 7*dir)
	case ViewDay:
		n.Date = n.Date.AddDate(0, 0, dir)
	default:
		// Step from the 1st so Jan 31 + 1 month lands in February.
		n.Date = firstOfMonth(n.Date).AddDate(0, dir, 0)
	}
}
