package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"autorent/internal/models"
)

// ReservationLister lists reservations intersecting a date range.
type ReservationLister interface {
	ListRange(ctx context.Context, r models.Range, filter models.StatusFilter) ([]models.Reservation, error)
}

// Directory resolves display names for report rows.
type Directory interface {
	ListVehicles(ctx context.Context) ([]models.Vehicle, error)
	ListCustomers(ctx context.Context) ([]models.Customer, error)
}

var reportColumns = []string{
	"ID", "Vehicle", "Plate", "Customer", "Start", "End", "Days",
	"Daily rate", "Total", "Status", "Type", "Pickup", "Dropoff", "Notes",
}

// SheetName returns the sheet name of a month, like "January_2026".
func SheetName(year int, month time.Month) string {
	return fmt.Sprintf("%s_%d", month, year)
}

// Filename returns the report file name of a month, like "January_2026.xlsx".
func Filename(year int, month time.Month) string {
	return SheetName(year, month) + ".xlsx"
}

// MonthRange returns the first and last day of a month.
func MonthRange(year int, month time.Month) models.Range {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return models.Range{Start: first, End: first.AddDate(0, 1, -1)}
}

// Reporter renders monthly reservation workbooks.
type Reporter struct {
	reservations ReservationLister
	directory    Directory
}

func NewReporter(reservations ReservationLister, directory Directory) *Reporter {
	return &Reporter{reservations: reservations, directory: directory}
}

// WriteMonth writes every reservation touching the month, canceled ones
// included, and returns the number of rows written.
func (r *Reporter) WriteMonth(ctx context.Context, year int, month time.Month, out io.Writer) (int, error) {
	if month < time.January || month > time.December {
		return 0, fmt.Errorf("invalid month %d", month)
	}

	list, err := r.reservations.ListRange(ctx, MonthRange(year, month), models.StatusFilter{})
	if err != nil {
		return 0, fmt.Errorf("list reservations: %w", err)
	}
	vehicles, customers, err := r.names(ctx)
	if err != nil {
		return 0, err
	}

	wb := NewWorkbook()
	defer wb.Close()

	if err := wb.AddSheet(SheetName(year, month)); err != nil {
		return 0, err
	}
	if err := wb.WriteHeader(reportColumns); err != nil {
		return 0, err
	}
	for i := range list {
		res := &list[i]
		v := vehicles[res.VehicleID]
		name, plate := res.VehicleID, ""
		if v != nil {
			name, plate = v.DisplayName(), v.Plate
		}
		customer := res.CustomerID
		if c, ok := customers[res.CustomerID]; ok {
			customer = c.FullName
		}
		row := []any{
			res.ID, name, plate, customer,
			res.StartDate.Format(models.DateLayout), res.EndDate.Format(models.DateLayout),
			res.DurationDays, res.DailyRate, res.TotalAmount,
			string(res.Status), string(res.BookingType),
			res.PickupLocation, res.DropoffLocation, res.Notes,
		}
		if err := wb.WriteRow(row); err != nil {
			return 0, err
		}
	}

	if err := wb.Save(out); err != nil {
		return 0, fmt.Errorf("write workbook: %w", err)
	}
	return len(list), nil
}

func (r *Reporter) names(ctx context.Context) (map[string]*models.Vehicle, map[string]models.Customer, error) {
	vehicles := map[string]*models.Vehicle{}
	customers := map[string]models.Customer{}
	if r.directory == nil {
		return vehicles, customers, nil
	}
	vs, err := r.directory.ListVehicles(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list vehicles: %w", err)
	}
	for i := range vs {
		vehicles[vs[i].ID] = &vs[i]
	}
	cs, err := r.directory.ListCustomers(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list customers: %w", err)
	}
	for _, c := range cs {
		customers[c.ID] = c
	}
	return vehicles, customers, nil
}
