package models

import "time"

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

// AllStatuses lists every known status in lifecycle order.
var AllStatuses = []Status{StatusPending, StatusConfirmed, StatusActive, StatusCompleted, StatusCanceled}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusActive, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// BlocksVehicle reports whether a reservation in this status occupies its vehicle.
func (s Status) BlocksVehicle() bool {
	return s != StatusCanceled
}

var statusTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCanceled},
	StatusConfirmed: {StatusActive, StatusCanceled, StatusPending},
	StatusActive:    {StatusCompleted, StatusCanceled},
}

// CanTransition reports whether a reservation may move from one status to another.
// Staying in the same non-terminal status is always allowed.
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	if from == to {
		return true
	}
	for _, s := range statusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StatusFilter selects reservations by status. An empty filter matches everything.
type StatusFilter struct {
	Include []Status
	Exclude []Status
}

// ActiveOnly matches every status that occupies a vehicle.
func ActiveOnly() StatusFilter {
	return StatusFilter{Exclude: []Status{StatusCanceled}}
}

// Match reports whether s passes the filter.
func (f StatusFilter) Match(s Status) bool {
	for _, ex := range f.Exclude {
		if ex == s {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, in := range f.Include {
		if in == s {
			return true
		}
	}
	return false
}

// BookingType records where a reservation came from. It does not affect behaviour.
type BookingType string

const (
	BookingOnline  BookingType = "online"
	BookingOffline BookingType = "offline"
)

// Reservation is a customer's claim on a vehicle for a closed date range.
type Reservation struct {
	ID              string      `json:"id"`
	VehicleID       string      `json:"vehicle_id"`
	CustomerID      string      `json:"customer_id"`
	StartDate       time.Time   `json:"start_date"`
	EndDate         time.Time   `json:"end_date"`
	StartTime       string      `json:"start_time,omitempty"` // HH:MM, display only
	EndTime         string      `json:"end_time,omitempty"`   // HH:MM, display only
	DailyRate       float64     `json:"daily_rate"`
	DurationDays    int         `json:"duration_days"`
	TotalAmount     float64     `json:"total_amount"`
	Status          Status      `json:"status"`
	BookingType     BookingType `json:"booking_type"`
	Notes           string      `json:"notes,omitempty"`
	PickupLocation  string      `json:"pickup_location"`
	DropoffLocation string      `json:"dropoff_location"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	Version         int64       `json:"version"`
}

// Range returns the reservation's date range.
func (r *Reservation) Range() Range {
	return NewRange(r.StartDate, r.EndDate)
}

// IsRangeBooking reports whether the reservation spans more than one day.
func (r *Reservation) IsRangeBooking() bool {
	return !DateOnly(r.EndDate).Equal(DateOnly(r.StartDate))
}

// OverlapsWith checks whether two reservations share at least one day.
// Boundaries are inclusive: a checkout day equal to another checkin day is a conflict.
func (r *Reservation) OverlapsWith(other *Reservation) bool {
	return r.Range().Overlaps(other.Range())
}

// ContainsDate checks whether the reservation covers the calendar day of date.
func (r *Reservation) ContainsDate(date time.Time) bool {
	return r.Range().Contains(date)
}

// Patch is a partial update of a reservation. Nil fields are left untouched.
type Patch struct {
	VehicleID       *string    `json:"vehicle_id,omitempty"`
	CustomerID      *string    `json:"customer_id,omitempty"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	StartTime       *string    `json:"start_time,omitempty"`
	EndTime         *string    `json:"end_time,omitempty"`
	DailyRate       *float64   `json:"daily_rate,omitempty"`
	Status          *Status    `json:"status,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	PickupLocation  *string    `json:"pickup_location,omitempty"`
	DropoffLocation *string    `json:"dropoff_location,omitempty"`
	Version         *int64     `json:"version,omitempty"`
}

// ApplyTo copies the set fields of p onto r. Derived fields are not touched.
func (p Patch) ApplyTo(r *Reservation) {
	if p.VehicleID != nil {
		r.VehicleID = *p.VehicleID
	}
	if p.CustomerID != nil {
		r.CustomerID = *p.CustomerID
	}
	if p.StartDate != nil {
		r.StartDate = DateOnly(*p.StartDate)
	}
	if p.EndDate != nil {
		r.EndDate = DateOnly(*p.EndDate)
	}
	if p.StartTime != nil {
		r.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		r.EndTime = *p.EndTime
	}
	if p.DailyRate != nil {
		r.DailyRate = *p.DailyRate
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	if p.PickupLocation != nil {
		r.PickupLocation = *p.PickupLocation
	}
	if p.DropoffLocation != nil {
		r.DropoffLocation = *p.DropoffLocation
	}
}
