package models

import (
	"strings"
	"time"
)

// VehicleStatus describes whether a vehicle is in the rentable fleet.
type VehicleStatus string

const (
	VehicleAvailable   VehicleStatus = "available"
	VehicleMaintenance VehicleStatus = "maintenance"
	VehicleRetired     VehicleStatus = "retired"
)

// Vehicle is a rentable car from the fleet directory.
type Vehicle struct {
	ID        string        `json:"id"`
	Brand     string        `json:"brand"`
	Model     string        `json:"model"`
	Plate     string        `json:"plate,omitempty"`
	Price     float64       `json:"price"` // current daily price
	Status    VehicleStatus `json:"status"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// DisplayName returns "Brand Model", falling back to the id.
func (v *Vehicle) DisplayName() string {
	name := strings.TrimSpace(v.Brand + " " + v.Model)
	if name == "" {
		return v.ID
	}
	return name
}

// Customer is a renter from the customer directory.
type Customer struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}
