package availability

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"autorent/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

type memStore struct {
	rows []models.Reservation
}

func (m *memStore) List(_ context.Context, vehicleID string, filter models.StatusFilter) ([]models.Reservation, error) {
	var out []models.Reservation
	for _, r := range m.rows {
		if r.VehicleID == vehicleID && filter.Match(r.Status) {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) List(ctx context.Context, vehicleID string, filter models.StatusFilter) ([]models.Reservation, error) {
	args := m.Called(ctx, vehicleID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Reservation), args.Error(1)
}

func newTestChecker(store Store) *Checker {
	return NewChecker(store, zerolog.New(io.Discard))
}

func janFixture() *memStore {
	return &memStore{rows: []models.Reservation{
		{ID: "r1", VehicleID: "V", StartDate: day(2026, 1, 10), EndDate: day(2026, 1, 15), Status: models.StatusConfirmed},
		{ID: "r2", VehicleID: "W", StartDate: day(2026, 1, 16), EndDate: day(2026, 1, 18), Status: models.StatusConfirmed},
	}}
}

func TestChecker_Scenarios(t *testing.T) {
	checker := newTestChecker(janFixture())
	ctx := context.Background()

	tests := []struct {
		name      string
		start     time.Time
		end       time.Time
		excludeID string
		available bool
	}{
		{"no conflict after existing", day(2026, 1, 16), day(2026, 1, 18), "", true},
		{"inside existing", day(2026, 1, 12), day(2026, 1, 14), "", false},
		{"touching end boundary", day(2026, 1, 15), day(2026, 1, 17), "", false},
		{"touching start boundary", day(2026, 1, 8), day(2026, 1, 10), "", false},
		{"editing in place", day(2026, 1, 11), day(2026, 1, 16), "r1", true},
		{"exclude unrelated id", day(2026, 1, 11), day(2026, 1, 16), "r2", false},
		{"before existing", day(2026, 1, 1), day(2026, 1, 9), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := checker.IsAvailable(ctx, "V", tt.start, tt.end, tt.excludeID)
			require.NoError(t, err)
			assert.Equal(t, tt.available, ok)
		})
	}
}

func TestChecker_ReportsConflicts(t *testing.T) {
	checker := newTestChecker(janFixture())

	res, err := checker.Check(context.Background(), Query{VehicleID: "V", Range: models.NewRange(day(2026, 1, 12), day(2026, 1, 14))})
	require.NoError(t, err)
	assert.False(t, res.Available)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, "r1", res.Conflicts[0].ID)
}

func TestChecker_CanceledNeverConflicts(t *testing.T) {
	store := &memStore{rows: []models.Reservation{
		{ID: "c1", VehicleID: "V", StartDate: day(2026, 1, 10), EndDate: day(2026, 1, 15), Status: models.StatusCanceled},
	}}
	checker := newTestChecker(store)

	for _, q := range []models.Range{
		models.NewRange(day(2026, 1, 10), day(2026, 1, 15)),
		models.NewRange(day(2026, 1, 12), day(2026, 1, 12)),
		models.NewRange(day(2026, 1, 1), day(2026, 1, 31)),
	} {
		ok, err := checker.IsAvailable(context.Background(), "V", q.Start, q.End, "")
		require.NoError(t, err)
		assert.True(t, ok, "canceled reservation conflicted with %s", q)
	}
}

func TestChecker_CanceledFilteredEvenIfStoreReturnsIt(t *testing.T) {
	store := new(mockStore)
	store.On("List", mock.Anything, "V", models.ActiveOnly()).Return([]models.Reservation{
		{ID: "c1", VehicleID: "V", StartDate: day(2026, 1, 10), EndDate: day(2026, 1, 15), Status: models.StatusCanceled},
	}, nil)

	ok, err := newTestChecker(store).IsAvailable(context.Background(), "V", day(2026, 1, 11), day(2026, 1, 12), "")
	require.NoError(t, err)
	assert.True(t, ok)
	store.AssertExpectations(t)
}

func TestChecker_ReversedRangeIsAvailable(t *testing.T) {
	store := new(mockStore)
	ok, err := newTestChecker(store).IsAvailable(context.Background(), "V", day(2026, 1, 15), day(2026, 1, 10), "")
	require.NoError(t, err)
	assert.True(t, ok)
	store.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
}

func TestChecker_RequiresVehicle(t *testing.T) {
	_, err := newTestChecker(janFixture()).IsAvailable(context.Background(), "", day(2026, 1, 1), day(2026, 1, 2), "")
	assert.ErrorIs(t, err, ErrVehicleRequired)
}

func TestChecker_StoreErrorIsNotAvailable(t *testing.T) {
	store := new(mockStore)
	store.On("List", mock.Anything, "V", mock.Anything).Return(nil, errors.New("connection reset"))

	ok, err := newTestChecker(store).IsAvailable(context.Background(), "V", day(2026, 1, 1), day(2026, 1, 2), "")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestFindConflicts_IgnoresOtherVehicles(t *testing.T) {
	rows := []models.Reservation{
		{ID: "a", VehicleID: "W", StartDate: day(2026, 1, 1), EndDate: day(2026, 1, 31), Status: models.StatusActive},
	}
	got := FindConflicts(rows, Query{VehicleID: "V", Range: models.NewRange(day(2026, 1, 5), day(2026, 1, 6))})
	assert.Empty(t, got)
}
