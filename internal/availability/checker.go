// Package availability answers whether a vehicle is free for a proposed date range.
package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autorent/internal/metrics"
	"autorent/internal/models"

	"github.com/rs/zerolog"
)

var (
	ErrVehicleRequired  = errors.New("vehicle id is required")
	ErrStoreUnavailable = errors.New("reservation store unavailable")

	// ErrConflict is returned by writers that reject an overlapping reservation.
	ErrConflict = errors.New("vehicle is already booked for the requested dates")
)

// Store lists reservations of one vehicle.
type Store interface {
	List(ctx context.Context, vehicleID string, filter models.StatusFilter) ([]models.Reservation, error)
}

// Query is a proposed booking to test against existing reservations.
type Query struct {
	VehicleID string
	Range     models.Range
	// ExcludeID skips the reservation being edited.
	ExcludeID string
}

// Result holds the outcome of a check.
type Result struct {
	Available bool
	Conflicts []models.Reservation
}

// Checker performs availability checks against a Store. It is read-only.
type Checker struct {
	store  Store
	logger zerolog.Logger
}

// NewChecker creates a checker.
func NewChecker(store Store, logger zerolog.Logger) *Checker {
	return &Checker{
		store:  store,
		logger: logger.With().Str("component", "availability").Logger(),
	}
}

// IsAvailable reports whether vehicleID is free over [start, end].
// A reversed or incomplete range has nothing to conflict with and is reported available.
// Store failures are returned wrapped in ErrStoreUnavailable, never as "available".
func (c *Checker) IsAvailable(ctx context.Context, vehicleID string, start, end time.Time, excludeID string) (bool, error) {
	res, err := c.Check(ctx, Query{VehicleID: vehicleID, Range: models.NewRange(start, end), ExcludeID: excludeID})
	if err != nil {
		return false, err
	}
	return res.Available, nil
}

// Check runs a query and returns the conflicting reservations, if any.
func (c *Checker) Check(ctx context.Context, q Query) (Result, error) {
	if q.VehicleID == "" {
		return Result{}, ErrVehicleRequired
	}
	if !q.Range.Valid() {
		return Result{Available: true}, nil
	}

	existing, err := c.store.List(ctx, q.VehicleID, models.ActiveOnly())
	if err != nil {
		metrics.IncAvailabilityCheck("error")
		if ctx.Err() == nil {
			c.logger.Error().Err(err).Str("vehicle_id", q.VehicleID).Msg("availability lookup failed")
		}
		return Result{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	conflicts := FindConflicts(existing, q)
	if len(conflicts) > 0 {
		metrics.IncAvailabilityCheck("unavailable")
		c.logger.Debug().
			Str("vehicle_id", q.VehicleID).
			Str("range", q.Range.String()).
			Int("conflicts", len(conflicts)).
			Msg("vehicle unavailable")
		return Result{Available: false, Conflicts: conflicts}, nil
	}

	metrics.IncAvailabilityCheck("available")
	return Result{Available: true}, nil
}

// FindConflicts returns the reservations among existing that block q.
// Canceled reservations, other vehicles and q.ExcludeID are ignored.
func FindConflicts(existing []models.Reservation, q Query) []models.Reservation {
	if !q.Range.Valid() {
		return nil
	}
	candidates := make([]models.Reservation, 0, len(existing))
	for _, r := range existing {
		if r.VehicleID != q.VehicleID || !r.Status.BlocksVehicle() {
			continue
		}
		if q.ExcludeID != "" && r.ID == q.ExcludeID {
			continue
		}
		candidates = append(candidates, r)
	}
	return NewIndex(candidates).Overlapping(q.Range)
}
