package booking

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"autorent/internal/models"
)

// Draft is the editable content of a form.
type Draft struct {
	ReservationID   string             `json:"id,omitempty"`
	CustomerID      string             `json:"customer_id" validate:"required"`
	VehicleID       string             `json:"vehicle_id" validate:"required"`
	StartDate       time.Time          `json:"start_date" validate:"required"`
	EndDate         time.Time          `json:"end_date" validate:"required,gtefield=StartDate"`
	StartTime       string             `json:"start_time,omitempty" validate:"omitempty,datetime=15:04"`
	EndTime         string             `json:"end_time,omitempty" validate:"omitempty,datetime=15:04"`
	DailyRate       float64            `json:"daily_rate" validate:"gte=0"`
	PickupLocation  string             `json:"pickup_location" validate:"required"`
	DropoffLocation string             `json:"dropoff_location" validate:"required"`
	Notes           string             `json:"notes,omitempty"`
	Status          models.Status      `json:"status,omitempty" validate:"omitempty,oneof=pending confirmed active completed canceled"`
	BookingType     models.BookingType `json:"booking_type,omitempty" validate:"omitempty,oneof=online offline"`
	Version         int64              `json:"version,omitempty"`
}

// Range returns the draft's date range.
func (d Draft) Range() models.Range {
	return models.NewRange(d.StartDate, d.EndDate)
}

func draftFrom(r models.Reservation) Draft {
	return Draft{
		ReservationID:   r.ID,
		CustomerID:      r.CustomerID,
		VehicleID:       r.VehicleID,
		StartDate:       models.DateOnly(r.StartDate),
		EndDate:         models.DateOnly(r.EndDate),
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		DailyRate:       r.DailyRate,
		PickupLocation:  r.PickupLocation,
		DropoffLocation: r.DropoffLocation,
		Notes:           r.Notes,
		Status:          r.Status,
		BookingType:     r.BookingType,
		Version:         r.Version,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldErrors maps a json field name to a human-readable problem.
type FieldErrors map[string]string

// Validate checks the draft's schema rules. It returns nil when the draft is valid.
func (d Draft) Validate() FieldErrors {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"_": err.Error()}
	}
	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gtefield":
		return "must not be before start_date"
	case "gte":
		return "must not be negative"
	case "datetime":
		return "must be HH:MM"
	case "oneof":
		return "must be one of: " + fe.Param()
	}
	return "is invalid"
}
