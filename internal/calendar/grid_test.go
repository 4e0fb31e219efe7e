package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autorent/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func res(id string, start, end time.Time) models.Reservation {
	return models.Reservation{ID: id, VehicleID: "V", StartDate: start, EndDate: end, Status: models.StatusConfirmed}
}

func TestMonthCells_AlwaysSixWeeks(t *testing.T) {
	for m := time.January; m <= time.December; m++ {
		cells := MonthCells(day(2026, m, 15), nil)
		require.Len(t, cells, MonthCellCount, m.String())

		assert.Equal(t, time.Sunday, cells[0].Date.Weekday(), m.String())

		firstIdx := -1
		for i, c := range cells {
			if c.Date.Equal(day(2026, m, 1)) {
				firstIdx = i
			}
		}
		assert.GreaterOrEqual(t, firstIdx, 0, m.String())
		assert.Less(t, firstIdx, 7, m.String())
	}
}

func TestMonthCells_January2026(t *testing.T) {
	cells := MonthCells(day(2026, time.January, 20), nil)

	assert.Equal(t, day(2025, time.December, 28), cells[0].Date)
	assert.Equal(t, day(2026, time.January, 1), cells[4].Date)
	assert.True(t, cells[0].OtherMonth)
	assert.False(t, cells[4].OtherMonth)
	assert.Equal(t, -1, cells[4].Hour)
	assert.Equal(t, day(2026, time.February, 7), cells[41].Date)
}

func TestMonthCells_FirstOnSunday(t *testing.T) {
	cells := MonthCells(day(2026, time.February, 10), nil)
	assert.Equal(t, day(2026, time.February, 1), cells[0].Date)
}

func TestMonthCells_BindsReservationsInInputOrder(t *testing.T) {
	rs := []models.Reservation{
		res("b", day(2026, time.January, 12), day(2026, time.January, 14)),
		res("a", day(2026, time.January, 14), day(2026, time.January, 14)),
		res("c", day(2026, time.March, 1), day(2026, time.March, 2)),
	}
	cells := MonthCells(day(2026, time.January, 1), rs)

	byDate := map[time.Time]Cell{}
	for _, c := range cells {
		byDate[c.Date] = c
	}

	assert.Empty(t, byDate[day(2026, time.January, 11)].Reservations)
	require.Len(t, byDate[day(2026, time.January, 12)].Reservations, 1)
	jan14 := byDate[day(2026, time.January, 14)].Reservations
	require.Len(t, jan14, 2)
	assert.Equal(t, "b", jan14[0].ID)
	assert.Equal(t, "a", jan14[1].ID)
	assert.Empty(t, byDate[day(2026, time.January, 15)].Reservations)
}

func TestWeekCells_RowMajor(t *testing.T) {
	rs := []models.Reservation{res("r1", day(2026, time.January, 13), day(2026, time.January, 13))}
	cells := WeekCells(day(2026, time.January, 14), rs)
	require.Len(t, cells, HoursPerDay*DaysPerWeek)

	assert.Equal(t, day(2026, time.January, 11), cells[0].Date)
	assert.Equal(t, 0, cells[0].Hour)
	assert.Equal(t, day(2026, time.January, 11), cells[7].Date)
	assert.Equal(t, 1, cells[7].Hour)
	assert.Equal(t, day(2026, time.January, 17), cells[167].Date)
	assert.Equal(t, 23, cells[167].Hour)

	for _, c := range cells {
		if c.Date.Equal(day(2026, time.January, 13)) {
			assert.Equal(t, 1, c.Count())
		} else {
			assert.Equal(t, 0, c.Count())
		}
	}
}

func TestDayCells(t *testing.T) {
	rs := []models.Reservation{
		res("r1", day(2026, time.January, 10), day(2026, time.January, 15)),
		res("r2", day(2026, time.January, 16), day(2026, time.January, 18)),
	}
	cells := DayCells(day(2026, time.January, 15).Add(17*time.Hour), rs)
	require.Len(t, cells, HoursPerDay)
	for h, c := range cells {
		assert.Equal(t, h, c.Hour)
		assert.Equal(t, day(2026, time.January, 15), c.Date)
		require.Len(t, c.Reservations, 1)
		assert.Equal(t, "r1", c.Reservations[0].ID)
	}

	// cells do not share backing arrays
	cells[0].Reservations[0].ID = "mutated"
	assert.Equal(t, "r1", cells[1].Reservations[0].ID)
	assert.Equal(t, "r1", rs[0].ID)
}

func TestGenerate_UnknownModeIsEmpty(t *testing.T) {
	assert.Nil(t, Generate(day(2026, time.January, 1), ViewMode("year"), nil))
	assert.Len(t, Generate(day(2026, time.January, 1), ViewDay, nil), HoursPerDay)
}

func TestVisibleRange(t *testing.T) {
	d := day(2026, time.January, 14)

	month := VisibleRange(d, ViewMonth)
	assert.Equal(t, day(2025, time.December, 28), month.Start)
	assert.Equal(t, day(2026, time.February, 7), month.End)
	assert.Equal(t, MonthCellCount, month.Days())

	week := VisibleRange(d, ViewWeek)
	assert.Equal(t, day(2026, time.January, 11), week.Start)
	assert.Equal(t, day(2026, time.January, 17), week.End)

	dayRange := VisibleRange(d, ViewDay)
	assert.Equal(t, d, dayRange.Start)
	assert.Equal(t, d, dayRange.End)
}

func TestParseViewMode(t *testing.T) {
	for in, want := range map[string]ViewMode{"": ViewMonth, "month": ViewMonth, "week": ViewWeek, "day": ViewDay} {
		got, err := ParseViewMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseViewMode("year")
	assert.Error(t, err)
}

func TestStackOffset(t *testing.T) {
	assert.Equal(t, 0, StackOffset(0, 18))
	assert.Equal(t, 36, StackOffset(2, 18))
	assert.Equal(t, 18*50, StackOffset(50, 18))
	assert.Equal(t, 0, StackOffset(-1, 18))
}

func TestNavigator(t *testing.T) {
	n := NewNavigator(day(2026, time.January, 31), ViewMonth)
	n.Next()
	assert.Equal(t, time.February, n.Date.Month())
	n.Prev()
	n.Prev()
	assert.Equal(t, day(2025, time.December, 1), n.Date)

	n.SetMode(ViewWeek)
	n.Next()
	assert.Equal(t, day(2025, time.December, 8), n.Date)

	n.SetMode(ViewDay)
	n.Prev()
	assert.Equal(t, day(2025, time.December, 7), n.Date)
	assert.Len(t, n.Cells(nil), HoursPerDay)

	n.now = func() time.Time { return time.Date(2026, time.March, 3, 15, 4, 0, 0, time.UTC) }
	n.Today()
	assert.Equal(t, day(2026, time.March, 3), n.Range().Start)
}
