package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autorent/internal/config"
	"autorent/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "autorent.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func jan(d int) time.Time {
	return time.Date(2026, time.January, d, 0, 0, 0, 0, time.UTC)
}

func booking(vehicleID string, start, end time.Time, status models.Status) *models.Reservation {
	return &models.Reservation{
		VehicleID:       vehicleID,
		CustomerID:      "C1",
		StartDate:       start,
		EndDate:         end,
		DailyRate:       40,
		Status:          status,
		PickupLocation:  "Airport",
		DropoffLocation: "Airport",
	}
}

func TestCreate_RecomputesDerivedFields(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	in := booking("V", jan(10), jan(15), models.StatusConfirmed)
	in.DurationDays = 99
	in.TotalAmount = 1
	created, err := db.Create(ctx, in)
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 5, created.DurationDays)
	assert.Equal(t, 200.0, created.TotalAmount)
	assert.Equal(t, int64(1), created.Version)
	assert.Equal(t, models.BookingOnline, created.BookingType)

	got, err := db.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, jan(10), got.StartDate)
	assert.Equal(t, jan(15), got.EndDate)
	assert.Equal(t, 200.0, got.TotalAmount)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.Equal(t, "Airport", got.PickupLocation)

	_, err = db.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreate_OverlapGuard(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.Create(ctx, booking("V", jan(10), jan(15), models.StatusConfirmed))
	require.NoError(t, err)

	tests := []struct {
		name    string
		in      *models.Reservation
		wantErr error
	}{
		{"inside", booking("V", jan(12), jan(14), models.StatusPending), ErrConflict},
		{"touching end", booking("V", jan(15), jan(17), models.StatusPending), ErrConflict},
		{"touching start", booking("V", jan(5), jan(10), models.StatusPending), ErrConflict},
		{"after", booking("V", jan(16), jan(18), models.StatusPending), nil},
		{"other vehicle", booking("V2", jan(12), jan(14), models.StatusPending), nil},
		{"canceled never blocks", booking("V", jan(11), jan(12), models.StatusCanceled), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Create(ctx, tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreate_CanceledFreesVehicle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.Create(ctx, booking("V", jan(10), jan(15), models.StatusCanceled))
	require.NoError(t, err)
	_, err = db.Create(ctx, booking("V", jan(10), jan(15), models.StatusPending))
	assert.NoError(t, err)
}

func TestCreate_Validation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	reversed := booking("V", jan(15), jan(10), models.StatusPending)
	_, err := db.Create(ctx, reversed)
	assert.ErrorIs(t, err, ErrInvalidReservation)

	noVehicle := booking("", jan(10), jan(11), models.StatusPending)
	_, err = db.Create(ctx, noVehicle)
	assert.ErrorIs(t, err, ErrInvalidReservation)

	negative := booking("V", jan(10), jan(11), models.StatusPending)
	negative.DailyRate = -1
	_, err = db.Create(ctx, negative)
	assert.ErrorIs(t, err, ErrInvalidReservation)
}

func TestCreate_ConcurrentWritersOnlyOneWins(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := db.Create(ctx, booking("V", jan(10), jan(12), models.StatusPending))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, writers-1, conflicts)
}

func TestUpdate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	r1, err := db.Create(ctx, booking("V", jan(10), jan(15), models.StatusConfirmed))
	require.NoError(t, err)
	r2, err := db.Create(ctx, booking("V", jan(20), jan(22), models.StatusPending))
	require.NoError(t, err)

	t.Run("move own dates excludes itself", func(t *testing.T) {
		start, end := jan(11), jan(16)
		v := r1.Version
		got, err := db.Update(ctx, r1.ID, models.Patch{StartDate: &start, EndDate: &end, Version: &v})
		require.NoError(t, err)
		assert.Equal(t, jan(16), got.EndDate)
		assert.Equal(t, 5, got.DurationDays)
		assert.Equal(t, 200.0, got.TotalAmount)
		assert.Equal(t, r1.Version+1, got.Version)
		r1 = got
	})

	t.Run("stale version", func(t *testing.T) {
		old := int64(1)
		notes := "late edit"
		_, err := db.Update(ctx, r1.ID, models.Patch{Notes: &notes, Version: &old})
		assert.ErrorIs(t, err, ErrConcurrentModification)
	})

	t.Run("move into another booking", func(t *testing.T) {
		end := jan(20)
		_, err := db.Update(ctx, r1.ID, models.Patch{EndDate: &end})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("invalid transition", func(t *testing.T) {
		s := models.StatusCompleted
		_, err := db.Update(ctx, r2.ID, models.Patch{Status: &s})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("cancel then read-only", func(t *testing.T) {
		s := models.StatusCanceled
		got, err := db.Update(ctx, r2.ID, models.Patch{Status: &s})
		require.NoError(t, err)
		assert.Equal(t, models.StatusCanceled, got.Status)

		notes := "again"
		_, err = db.Update(ctx, r2.ID, models.Patch{Notes: &notes})
		assert.ErrorIs(t, err, ErrInvalidTransition)

		// the canceled slot no longer blocks
		end := jan(21)
		_, err = db.Update(ctx, r1.ID, models.Patch{EndDate: &end})
		assert.NoError(t, err)
	})

	t.Run("not found", func(t *testing.T) {
		notes := "x"
		_, err := db.Update(ctx, "missing", models.Patch{Notes: &notes})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListAndListRange(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.Create(ctx, booking("V", jan(10), jan(15), models.StatusConfirmed))
	require.NoError(t, err)
	_, err = db.Create(ctx, booking("V", jan(1), jan(3), models.StatusCanceled))
	require.NoError(t, err)
	_, err = db.Create(ctx, booking("V2", jan(14), jan(20), models.StatusPending))
	require.NoError(t, err)

	all, err := db.List(ctx, "V", models.StatusFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, jan(1), all[0].StartDate)

	active, err := db.List(ctx, "V", models.ActiveOnly())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, models.StatusConfirmed, active[0].Status)

	onlyCanceled, err := db.List(ctx, "V", models.StatusFilter{Include: []models.Status{models.StatusCanceled}})
	require.NoError(t, err)
	assert.Len(t, onlyCanceled, 1)

	window, err := db.ListRange(ctx, models.Range{Start: jan(15), End: jan(31)}, models.ActiveOnly())
	require.NoError(t, err)
	assert.Len(t, window, 2)

	window, err = db.ListRange(ctx, models.Range{Start: jan(16), End: jan(31)}, models.StatusFilter{})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "V2", window[0].VehicleID)
}

func TestDirectory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	v := &models.Vehicle{ID: "V", Brand: "Toyota", Model: "Corolla", Plate: "ABC-123", Price: 45}
	require.NoError(t, db.UpsertVehicle(ctx, v))
	v.Price = 50
	require.NoError(t, db.UpsertVehicle(ctx, v))

	got, err := db.GetVehicle(ctx, "V")
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.Price)
	assert.Equal(t, models.VehicleAvailable, got.Status)

	_, err = db.GetVehicle(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.UpsertCustomer(ctx, &models.Customer{ID: "C2", FullName: "Zoe Park"}))
	require.NoError(t, db.UpsertCustomer(ctx, &models.Customer{ID: "C1", FullName: "Ann Lee", Email: "ann@example.com"}))
	customers, err := db.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, "Ann Lee", customers[0].FullName)

	c, err := db.GetCustomer(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", c.Email)
	_, err = db.GetCustomer(ctx, "C9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSyncFleetFromConfig(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertVehicle(ctx, &models.Vehicle{ID: "OLD", Brand: "Lada", Model: "Niva"}))

	cfg := &config.FleetConfig{
		Vehicles: []config.VehicleConfig{
			{ID: "V", Brand: "Toyota", Model: "Corolla", Price: 45, Status: "available"},
			{ID: "V2", Brand: "Kia", Model: "Rio", Price: 30, Status: "maintenance"},
		},
		Customers: []config.CustomerConfig{{ID: "C1", FullName: "Ann Lee"}},
	}
	retired, err := db.SyncFleetFromConfig(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"OLD"}, retired)

	vehicles, err := db.ListVehicles(ctx)
	require.NoError(t, err)
	assert.Len(t, vehicles, 3)

	old, err := db.GetVehicle(ctx, "OLD")
	require.NoError(t, err)
	assert.Equal(t, models.VehicleRetired, old.Status)

	again, err := db.SyncFleetFromConfig(ctx, cfg)
	require.NoError(t, err)
	assert.Empty(t, again)

	_, err = db.SyncFleetFromConfig(ctx, nil)
	assert.Error(t, err)
}

func TestBackupService(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, err := db.Create(ctx, booking("V", jan(10), jan(15), models.StatusConfirmed))
	require.NoError(t, err)

	dir := t.TempDir()
	svc := NewBackupService(db, config.BackupConfig{Enabled: true, Path: dir, RetentionDays: 7}, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, time.January, 20, 3, 0, 0, 0, time.UTC) }

	path, err := svc.PerformBackup(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "autorent_20260120_030000.db"), path)

	restored, err := NewDB(path, zerolog.Nop())
	require.NoError(t, err)
	defer restored.Close()
	list, err := restored.List(ctx, "V", models.StatusFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	old := filepath.Join(dir, "autorent_20250101_000000.db")
	foreign := filepath.Join(dir, "keep-me.db")
	for _, p := range []string{old, foreign} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		stale := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, os.Chtimes(p, stale, stale))
	}

	assert.Equal(t, 1, svc.CleanupOldBackups())
	assert.NoFileExists(t, old)
	assert.FileExists(t, foreign)
	assert.FileExists(t, path)
}
