package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"autorent/internal/models"
)

func TestRangeSelector_Drag(t *testing.T) {
	var s RangeSelector
	s.PointerDown(day(2026, time.January, 12), 0)
	assert.Equal(t, SelectorSelecting, s.State())
	s.PointerEnter(day(2026, time.January, 13))
	s.PointerEnter(day(2026, time.January, 14))
	assert.True(t, s.IsSelected(day(2026, time.January, 13)))
	assert.False(t, s.IsSelected(day(2026, time.January, 15)))

	intent := s.PointerUp()
	assert.Equal(t, IntentCreate, intent.Kind)
	assert.Equal(t, models.Range{Start: day(2026, time.January, 12), End: day(2026, time.January, 14)}, intent.Range)
	assert.Equal(t, SelectorIdle, s.State())
	assert.Equal(t, "Jan 12 to Jan 14", intent.Range.String())
}

func TestRangeSelector_BackwardDragIsNormalized(t *testing.T) {
	var s RangeSelector
	s.PointerDown(day(2026, time.January, 14), 0)
	s.PointerEnter(day(2026, time.January, 12))

	intent := s.PointerUp()
	assert.Equal(t, day(2026, time.January, 12), intent.Range.Start)
	assert.Equal(t, day(2026, time.January, 14), intent.Range.End)
}

func TestRangeSelector_ClickOnEmptyCellCreatesSingleDay(t *testing.T) {
	var s RangeSelector
	s.PointerDown(day(2026, time.January, 20), 0)
	intent := s.PointerUp()
	assert.Equal(t, IntentCreate, intent.Kind)
	assert.Equal(t, 1, intent.Range.Days())
}

func TestRangeSelector_ClickOnBusyCellDefers(t *testing.T) {
	var s RangeSelector
	s.PointerDown(day(2026, time.January, 20), 2)
	intent := s.PointerUp()
	assert.Equal(t, IntentNone, intent.Kind)
	assert.Equal(t, SelectorIdle, s.State())
}

func TestRangeSelector_DragFromBusyCellStillCreates(t *testing.T) {
	var s RangeSelector
	s.PointerDown(day(2026, time.January, 20), 2)
	s.PointerEnter(day(2026, time.January, 21))
	assert.Equal(t, IntentCreate, s.PointerUp().Kind)
}

func TestRangeSelector_IdleEventsIgnored(t *testing.T) {
	var s RangeSelector
	s.PointerEnter(day(2026, time.January, 20))
	assert.Equal(t, SelectorIdle, s.State())
	assert.Equal(t, IntentNone, s.PointerUp().Kind)
	_, ok := s.Selection()
	assert.False(t, ok)
}

func TestRangeSelector_PointerDownRestarts(t *testing.T) {
	var s RangeSelector
	s.PointerDown(day(2026, time.January, 1), 0)
	s.PointerEnter(day(2026, time.January, 5))
	s.PointerDown(day(2026, time.January, 10), 0)

	r, ok := s.Selection()
	assert.True(t, ok)
	assert.Equal(t, day(2026, time.January, 10), r.Start)
	assert.Equal(t, day(2026, time.January, 10), r.End)
}
