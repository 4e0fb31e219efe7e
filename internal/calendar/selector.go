package calendar

import (
	"time"

	"autorent/internal/models"
)

// SelectorState is the drag state of a RangeSelector.
type SelectorState int

const (
	SelectorIdle SelectorState = iota
	SelectorSelecting
)

func (s SelectorState) String() string {
	if s == SelectorSelecting {
		return "selecting"
	}
	return "idle"
}

// IntentKind says what a finished gesture asks for.
type IntentKind int

const (
	IntentNone IntentKind = iota
	IntentCreate
)

// Intent is the outcome of a pointer release.
type Intent struct {
	Kind  IntentKind
	Range models.Range
}

// RangeSelector turns pointer down/enter/up sequences on cells into date ranges.
// It is not safe for concurrent use; Controller serializes access.
type RangeSelector struct {
	state          SelectorState
	anchor         time.Time
	current        time.Time
	anchorBookings int
}

// State returns the current drag state.
func (s *RangeSelector) State() SelectorState {
	return s.state
}

// PointerDown anchors a new selection on date. bookings is the number of
// reservations already bound to the pressed cell.
func (s *RangeSelector) PointerDown(date time.Time, bookings int) {
	d := models.DateOnly(date)
	s.state = SelectorSelecting
	s.anchor = d
	s.current = d
	s.anchorBookings = bookings
}

// PointerEnter extends the selection to date while dragging.
func (s *RangeSelector) PointerEnter(date time.Time) {
	if s.state != SelectorSelecting {
		return
	}
	s.current = models.DateOnly(date)
}

// PointerUp finishes the gesture. A release anywhere ends the drag.
// A plain click on a cell that already has bookings produces no intent so the
// click can be handled by the booking chips instead.
func (s *RangeSelector) PointerUp() Intent {
	if s.state != SelectorSelecting {
		return Intent{}
	}
	r, _ := s.Selection()
	plainClick := s.current.Equal(s.anchor)
	busy := s.anchorBookings > 0
	s.Reset()

	if plainClick && busy {
		return Intent{}
	}
	return Intent{Kind: IntentCreate, Range: r}
}

// Selection returns the normalized range being dragged.
func (s *RangeSelector) Selection() (models.Range, bool) {
	if s.state != SelectorSelecting {
		return models.Range{}, false
	}
	if s.current.Before(s.anchor) {
		return models.Range{Start: s.current, End: s.anchor}, true
	}
	return models.Range{Start: s.anchor, End: s.current}, true
}

// IsSelected reports whether date falls inside the live selection.
func (s *RangeSelector) IsSelected(date time.Time) bool {
	r, ok := s.Selection()
	return ok && r.Contains(date)
}

// Reset abandons any drag in progress.
func (s *RangeSelector) Reset() {
	*s = RangeSelector{}
}
