package booking

import (
	"fmt"

	"autorent/internal/models"
)

// ConflictMessage is the banner shown when the vehicle is taken for r.
// vehicle may be nil, in which case vehicleID names it.
func ConflictMessage(vehicle *models.Vehicle, vehicleID string, r models.Range) string {
	return fmt.Sprintf("%s is already booked between %s", vehicleLabel(vehicle, vehicleID), r)
}

func checkFailedMessage(err error) string {
	return fmt.Sprintf("Could not verify availability, try again: %v", err)
}

func submitFailedMessage(err error) string {
	return fmt.Sprintf("Could not save the reservation: %v", err)
}

func vehicleLabel(v *models.Vehicle, id string) string {
	if v == nil {
		return "Vehicle " + id
	}
	name := v.DisplayName()
	if v.Plate != "" {
		name += " (" + v.Plate + ")"
	}
	return name
}
