package export

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"autorent/internal/models"
)

type stubStore struct {
	reservations []models.Reservation
	gotRange     models.Range
	err          error
}

func (s *stubStore) ListRange(_ context.Context, r models.Range, _ models.StatusFilter) ([]models.Reservation, error) {
	s.gotRange = r
	return s.reservations, s.err
}

func (s *stubStore) ListVehicles(context.Context) ([]models.Vehicle, error) {
	return []models.Vehicle{{ID: "V", Brand: "Toyota", Model: "Corolla", Plate: "ABC-123"}}, nil
}

func (s *stubStore) ListCustomers(context.Context) ([]models.Customer, error) {
	return []models.Customer{{ID: "C1", FullName: "Ann Lee"}}, nil
}

func sample() []models.Reservation {
	return []models.Reservation{
		{
			ID: "r1", VehicleID: "V", CustomerID: "C1",
			StartDate: time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC),
			DailyRate: 40, DurationDays: 5, TotalAmount: 200,
			Status: models.StatusConfirmed, BookingType: models.BookingOnline,
			PickupLocation: "Airport", DropoffLocation: "Downtown", Notes: "child seat",
		},
		{
			ID: "r2", VehicleID: "GONE", CustomerID: "C9",
			StartDate: time.Date(2026, time.January, 30, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, time.February, 2, 0, 0, 0, 0, time.UTC),
			Status:    models.StatusCanceled,
		},
	}
}

func TestNames(t *testing.T) {
	assert.Equal(t, "January_2026", SheetName(2026, time.January))
	assert.Equal(t, "December_2025.xlsx", Filename(2025, time.December))

	r := MonthRange(2024, time.February)
	assert.Equal(t, 29, r.End.Day())
	assert.Equal(t, 29, r.Days())
}

func TestReporter_WriteMonth(t *testing.T) {
	store := &stubStore{reservations: sample()}
	rep := NewReporter(store, store)

	var buf bytes.Buffer
	n, err := rep.WriteMonth(context.Background(), 2026, time.January, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, MonthRange(2026, time.January), store.gotRange)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"January_2026"}, f.GetSheetList())
	rows, err := f.GetRows("January_2026")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, reportColumns, rows[0])
	assert.Equal(t, []string{"r1", "Toyota Corolla", "ABC-123", "Ann Lee", "2026-01-10", "2026-01-15", "5", "40", "200",
		"confirmed", "online", "Airport", "Downtown", "child seat"}, rows[1])
	assert.Equal(t, "GONE", rows[2][1])
	assert.Equal(t, "C9", rows[2][3])
}

func TestReporter_Errors(t *testing.T) {
	store := &stubStore{err: errors.New("db down")}
	rep := NewReporter(store, store)

	_, err := rep.WriteMonth(context.Background(), 2026, time.January, &bytes.Buffer{})
	assert.ErrorContains(t, err, "db down")

	_, err = rep.WriteMonth(context.Background(), 2026, time.Month(13), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestScheduler_ExportMonth(t *testing.T) {
	store := &stubStore{reservations: sample()}
	dir := t.TempDir()
	s := NewScheduler(NewReporter(store, store), dir, zerolog.Nop())

	path, err := s.ExportMonth(context.Background(), 2026, time.January)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "January_2026.xlsx"), path)
	assert.FileExists(t, path)

	s.now = func() time.Time { return time.Date(2026, time.December, 15, 10, 0, 0, 0, time.UTC) }
	assert.Equal(t, time.Date(2027, time.January, 1, 0, 1, 0, 0, time.UTC), s.nextRun())
}
