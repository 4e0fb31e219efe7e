package calendar

import (
	"errors"
	"time"

	"autorent/internal/models"
)

// DefaultThreshold is how many bookings a cell shows before collapsing the rest.
const DefaultThreshold = 2

var (
	ErrNoList          = errors.New("no booking list open")
	ErrListIndex       = errors.New("booking list index out of range")
	ErrUnknownBooking  = errors.New("booking not in cell")
	ErrNothingOverflow = errors.New("cell has no overflow")
)

// CellLayout describes how a cell renders its bookings.
type CellLayout struct {
	Date    time.Time            `json:"date"`
	Visible []models.Reservation `json:"visible"`
	// Hidden is N in the "+N more" indicator; zero when there is no overflow.
	Hidden int `json:"hidden"`
}

// Overflow reports whether the cell shows a "+N more" indicator.
func (l CellLayout) Overflow() bool {
	return l.Hidden > 0
}

// DayList is the open list of every booking on one day.
type DayList struct {
	Date         time.Time            `json:"date"`
	Reservations []models.Reservation `json:"reservations"`
}

// Disambiguator decides which booking a click on a crowded cell refers to.
type Disambiguator struct {
	threshold int
	list      *DayList
}

// NewDisambiguator uses DefaultThreshold when threshold is not positive.
func NewDisambiguator(threshold int) *Disambiguator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Disambiguator{threshold: threshold}
}

// Threshold returns the configured number of inline bookings.
func (d *Disambiguator) Threshold() int {
	return d.threshold
}

// Layout shows up to threshold bookings inline and counts the rest as hidden.
func (d *Disambiguator) Layout(cell Cell) CellLayout {
	l := CellLayout{Date: cell.Date}
	n := cell.Count()
	if n <= d.threshold {
		l.Visible = clone(cell.Reservations)
		return l
	}
	l.Visible = clone(cell.Reservations[:d.threshold])
	l.Hidden = n - d.threshold
	return l
}

// Pick resolves a click on a booking rendered in the cell.
func (d *Disambiguator) Pick(cell Cell, reservationID string) (models.Reservation, error) {
	for _, r := range cell.Reservations {
		if r.ID == reservationID {
			return r, nil
		}
	}
	return models.Reservation{}, ErrUnknownBooking
}

// OpenList opens the full list for an overflowing cell.
func (d *Disambiguator) OpenList(cell Cell) (*DayList, error) {
	if !d.Layout(cell).Overflow() {
		return nil, ErrNothingOverflow
	}
	d.list = &DayList{Date: cell.Date, Reservations: clone(cell.Reservations)}
	return d.list, nil
}

// List returns the open list, if any.
func (d *Disambiguator) List() *DayList {
	return d.list
}

// Select picks the i-th booking from the open list and closes it.
func (d *Disambiguator) Select(i int) (models.Reservation, error) {
	if d.list == nil {
		return models.Reservation{}, ErrNoList
	}
	if i < 0 || i >= len(d.list.Reservations) {
		return models.Reservation{}, ErrListIndex
	}
	r := d.list.Reservations[i]
	d.list = nil
	return r, nil
}

// CloseList dismisses the list without a selection.
func (d *Disambiguator) CloseList() {
	d.list = nil
}
