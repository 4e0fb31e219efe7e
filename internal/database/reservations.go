package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"autorent/internal/availability"
	"autorent/internal/metrics"
	"autorent/internal/models"
	"autorent/internal/pricing"
)

const reservationColumns = `id, vehicle_id, customer_id, start_date, end_date, start_time, end_time,
	daily_rate, duration_days, total_amount, status, booking_type, notes,
	pickup_location, dropoff_location, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var (
		r          models.Reservation
		start, end string
		status     string
		kind       string
	)
	err := row.Scan(
		&r.ID, &r.VehicleID, &r.CustomerID, &start, &end, &r.StartTime, &r.EndTime,
		&r.DailyRate, &r.DurationDays, &r.TotalAmount, &status, &kind, &r.Notes,
		&r.PickupLocation, &r.DropoffLocation, &r.CreatedAt, &r.UpdatedAt, &r.Version,
	)
	if err != nil {
		return nil, err
	}
	if r.StartDate, err = models.ParseDate(start); err != nil {
		return nil, fmt.Errorf("reservation %s start_date: %w", r.ID, err)
	}
	if r.EndDate, err = models.ParseDate(end); err != nil {
		return nil, fmt.Errorf("reservation %s end_date: %w", r.ID, err)
	}
	r.Status = models.Status(status)
	r.BookingType = models.BookingType(kind)
	return &r, nil
}

func queryReservations(ctx context.Context, q interface {
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
}, query string, args ...any) ([]models.Reservation, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// statusClause renders filter as SQL. Include wins over Exclude, as in StatusFilter.Match.
func statusClause(filter models.StatusFilter) (string, []any) {
	list := filter.Exclude
	op := "NOT IN"
	if len(filter.Include) > 0 {
		list, op = filter.Include, "IN"
	}
	if len(list) == 0 {
		return "", nil
	}
	args := make([]any, len(list))
	for i, s := range list {
		args[i] = string(s)
	}
	return fmt.Sprintf(" AND status %s (%s)", op, strings.TrimSuffix(strings.Repeat("?,", len(list)), ",")), args
}

// List returns the reservations of one vehicle ordered by start date.
func (db *DB) List(ctx context.Context, vehicleID string, filter models.StatusFilter) ([]models.Reservation, error) {
	clause, args := statusClause(filter)
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE vehicle_id = ?` + clause +
		` ORDER BY start_date, created_at, id`
	out, err := queryReservations(ctx, db, query, append([]any{vehicleID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("list reservations for %s: %w", vehicleID, err)
	}
	return out, nil
}

// ListRange returns every reservation intersecting r, for calendar views.
func (db *DB) ListRange(ctx context.Context, r models.Range, filter models.StatusFilter) ([]models.Reservation, error) {
	clause, args := statusClause(filter)
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE start_date <= ? AND end_date >= ?` + clause +
		` ORDER BY start_date, created_at, id`
	params := append([]any{formatDate(r.End), formatDate(r.Start)}, args...)
	out, err := queryReservations(ctx, db, query, params...)
	if err != nil {
		return nil, fmt.Errorf("list reservations %s: %w", r, err)
	}
	return out, nil
}

// Get returns one reservation or ErrNotFound.
func (db *DB) Get(ctx context.Context, id string) (*models.Reservation, error) {
	return getReservation(ctx, db, id)
}

func getReservation(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, id string) (*models.Reservation, error) {
	r, err := scanReservation(q.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation %s: %w", id, err)
	}
	return r, nil
}

// Create inserts a reservation. Derived fields are recomputed and the
// overlap check runs inside the write transaction; an overlapping active
// reservation yields ErrConflict.
func (db *DB) Create(ctx context.Context, in *models.Reservation) (*models.Reservation, error) {
	r := *in
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = models.StatusPending
	}
	if r.BookingType == "" {
		r.BookingType = models.BookingOnline
	}
	r.StartDate = models.DateOnly(r.StartDate)
	r.EndDate = models.DateOnly(r.EndDate)
	if err := validateReservation(&r); err != nil {
		metrics.IncReservationWrite("create", "invalid")
		return nil, err
	}
	pricing.Apply(&r)
	now := db.now().UTC()
	r.CreatedAt, r.UpdatedAt, r.Version = now, now, 1

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := guardOverlap(ctx, tx, &r); err != nil {
		metrics.IncReservationWrite("create", "conflict")
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO reservations (`+reservationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.VehicleID, r.CustomerID, formatDate(r.StartDate), formatDate(r.EndDate), r.StartTime, r.EndTime,
		r.DailyRate, r.DurationDays, r.TotalAmount, string(r.Status), string(r.BookingType), r.Notes,
		r.PickupLocation, r.DropoffLocation, r.CreatedAt, r.UpdatedAt, r.Version,
	)
	if err != nil {
		metrics.IncReservationWrite("create", "error")
		return nil, fmt.Errorf("insert reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		metrics.IncReservationWrite("create", "error")
		return nil, fmt.Errorf("commit: %w", err)
	}

	metrics.IncReservationWrite("create", "ok")
	db.logger.Info().
		Str("reservation_id", r.ID).
		Str("vehicle_id", r.VehicleID).
		Str("range", r.Range().String()).
		Msg("reservation created")
	return &r, nil
}

// Update applies p to reservation id. A set p.Version must match the stored
// version. Status changes follow models.CanTransition and terminal
// reservations are read-only.
func (db *DB) Update(ctx context.Context, id string, p models.Patch) (*models.Reservation, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := getReservation(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if p.Version != nil && *p.Version != cur.Version {
		metrics.IncReservationWrite("update", "stale")
		return nil, fmt.Errorf("%w: reservation %s is at version %d, got %d",
			ErrConcurrentModification, id, cur.Version, *p.Version)
	}
	if cur.Status.Terminal() {
		return nil, fmt.Errorf("%w: reservation %s is %s", ErrInvalidTransition, id, cur.Status)
	}
	if p.Status != nil && !models.CanTransition(cur.Status, *p.Status) {
		metrics.IncReservationWrite("update", "invalid")
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur.Status, *p.Status)
	}

	next := *cur
	p.ApplyTo(&next)
	if err := validateReservation(&next); err != nil {
		metrics.IncReservationWrite("update", "invalid")
		return nil, err
	}
	pricing.Apply(&next)
	next.UpdatedAt = db.now().UTC()
	next.Version = cur.Version + 1

	if err := guardOverlap(ctx, tx, &next); err != nil {
		metrics.IncReservationWrite("update", "conflict")
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE reservations SET
			vehicle_id = ?, customer_id = ?, start_date = ?, end_date = ?, start_time = ?, end_time = ?,
			daily_rate = ?, duration_days = ?, total_amount = ?, status = ?, notes = ?,
			pickup_location = ?, dropoff_location = ?, updated_at = ?, version = ?
		WHERE id = ? AND version = ?`,
		next.VehicleID, next.CustomerID, formatDate(next.StartDate), formatDate(next.EndDate), next.StartTime, next.EndTime,
		next.DailyRate, next.DurationDays, next.TotalAmount, string(next.Status), next.Notes,
		next.PickupLocation, next.DropoffLocation, next.UpdatedAt, next.Version,
		id, cur.Version,
	)
	if err != nil {
		metrics.IncReservationWrite("update", "error")
		return nil, fmt.Errorf("update reservation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		metrics.IncReservationWrite("update", "stale")
		return nil, ErrConcurrentModification
	}

	if err := tx.Commit(); err != nil {
		metrics.IncReservationWrite("update", "error")
		return nil, fmt.Errorf("commit: %w", err)
	}

	metrics.IncReservationWrite("update", "ok")
	db.logger.Info().
		Str("reservation_id", id).
		Str("status", string(next.Status)).
		Int64("version", next.Version).
		Msg("reservation updated")
	return &next, nil
}

// guardOverlap rejects r when another active reservation of the same
// vehicle shares a day with it. Canceled reservations never conflict.
func guardOverlap(ctx context.Context, tx *sql.Tx, r *models.Reservation) error {
	if !r.Status.BlocksVehicle() {
		return nil
	}
	existing, err := queryReservations(ctx, tx,
		`SELECT `+reservationColumns+` FROM reservations
		WHERE vehicle_id = ? AND status != ? AND id != ? AND start_date <= ? AND end_date >= ?`,
		r.VehicleID, string(models.StatusCanceled), r.ID, formatDate(r.EndDate), formatDate(r.StartDate),
	)
	if err != nil {
		return fmt.Errorf("check overlap: %w", err)
	}

	conflicts := availability.FindConflicts(existing, availability.Query{
		VehicleID: r.VehicleID,
		Range:     r.Range(),
		ExcludeID: r.ID,
	})
	if len(conflicts) == 0 {
		return nil
	}
	ids := make([]string, len(conflicts))
	for i := range conflicts {
		ids[i] = conflicts[i].ID
	}
	return fmt.Errorf("%w: overlaps %s", ErrConflict, strings.Join(ids, ", "))
}

func validateReservation(r *models.Reservation) error {
	switch {
	case r.VehicleID == "":
		return fmt.Errorf("%w: vehicle_id is required", ErrInvalidReservation)
	case r.CustomerID == "":
		return fmt.Errorf("%w: customer_id is required", ErrInvalidReservation)
	case r.StartDate.IsZero() || r.EndDate.IsZero():
		return fmt.Errorf("%w: start_date and end_date are required", ErrInvalidReservation)
	case r.EndDate.Before(r.StartDate):
		return fmt.Errorf("%w: end_date must not be before start_date", ErrInvalidReservation)
	case !r.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidReservation, r.Status)
	case r.DailyRate < 0:
		return fmt.Errorf("%w: daily_rate must not be negative", ErrInvalidReservation)
	}
	return nil
}

func formatDate(t time.Time) string {
	return models.DateOnly(t).Format(models.DateLayout)
}
