package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"autorent/internal/availability"
	"autorent/internal/booking"
	"autorent/internal/database"
	"autorent/internal/events"
	"autorent/internal/metrics"
	"autorent/internal/models"
)

// ReservationRequest is the body of POST and PATCH /api/v1/reservations.
// Omitted fields keep their current value when editing.
type ReservationRequest struct {
	CustomerID      *string        `json:"customer_id,omitempty"`
	VehicleID       *string        `json:"vehicle_id,omitempty"`
	StartDate       *string        `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate         *string        `json:"end_date,omitempty"`   // YYYY-MM-DD
	StartTime       *string        `json:"start_time,omitempty"`
	EndTime         *string        `json:"end_time,omitempty"`
	DailyRate       *float64       `json:"daily_rate,omitempty"`
	PickupLocation  *string        `json:"pickup_location,omitempty"`
	DropoffLocation *string        `json:"dropoff_location,omitempty"`
	Notes           *string        `json:"notes,omitempty"`
	Status          *models.Status `json:"status,omitempty"`
	Version         *int64         `json:"version,omitempty"`
}

// ValidationResponse carries per-field problems.
type ValidationResponse struct {
	Error  string              `json:"error"`
	Fields booking.FieldErrors `json:"fields"`
}

// ConflictResponse is returned when the vehicle is already booked.
type ConflictResponse struct {
	Error     string               `json:"error"`
	Conflicts []models.Reservation `json:"conflicts,omitempty"`
}

// handleCreateReservation runs a create form to completion.
// POST /api/v1/reservations
func (s *HTTPServer) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reservation_create")

	req, ok := decodeReservation(w, r)
	if !ok {
		return
	}

	form := booking.NewForm(s.formDeps(), booking.WithCheckTimeout(s.checkTimeout))
	defer form.Close()

	s.submitForm(r.Context(), w, form, req, http.StatusCreated, events.ReservationCreated)
}

// handleUpdateReservation runs an edit form seeded with the stored reservation.
// PATCH /api/v1/reservations/{id}
func (s *HTTPServer) handleUpdateReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reservation_update")

	req, ok := decodeReservation(w, r)
	if !ok {
		return
	}

	existing, err := s.store.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if req.Version != nil && *req.Version != existing.Version {
		writeError(w, http.StatusConflict, "reservation was modified by another request; reload and retry")
		return
	}

	form := booking.EditForm(s.formDeps(), *existing, booking.WithCheckTimeout(s.checkTimeout))
	defer form.Close()

	s.submitForm(r.Context(), w, form, req, http.StatusOK, events.ReservationUpdated)
}

// handleGetReservation returns one reservation.
// GET /api/v1/reservations/{id}
func (s *HTTPServer) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reservation_get")

	res, err := s.store.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) formDeps() booking.Deps {
	return booking.Deps{
		Checker:   s.checker,
		Vehicles:  s.vehicles,
		Customers: s.customers,
		Store:     s.store,
		Logger:    s.logger,
	}
}

func decodeReservation(w http.ResponseWriter, r *http.Request) (ReservationRequest, bool) {
	var req ReservationRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	return req, true
}

// submitForm feeds req into form, waits for the availability check and submits.
func (s *HTTPServer) submitForm(ctx context.Context, w http.ResponseWriter, form *booking.Form, req ReservationRequest, okStatus int, eventType string) {
	fields, err := applyRequest(ctx, form, req)
	if err != nil {
		s.logger.Warn().Err(err).Msg("could not apply reservation request")
		writeError(w, http.StatusServiceUnavailable, "could not load vehicle or customer")
		return
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, ValidationResponse{Error: "validation failed", Fields: fields})
		return
	}

	form.Wait()
	snap := form.Snapshot()
	if len(snap.Errors) > 0 {
		writeJSON(w, http.StatusBadRequest, ValidationResponse{Error: "validation failed", Fields: snap.Errors})
		return
	}
	switch snap.State {
	case booking.StateUnavailable:
		s.publish(events.ReservationConflict, snap.Draft)
		writeJSON(w, http.StatusConflict, ConflictResponse{Error: snap.Message, Conflicts: snap.Conflicts})
		return
	case booking.StateCheckFailed:
		writeError(w, http.StatusServiceUnavailable, snap.Message)
		return
	}

	saved, err := form.Submit(ctx)
	if err != nil {
		if errors.Is(err, availability.ErrConflict) {
			s.publish(events.ReservationConflict, snap.Draft)
			writeJSON(w, http.StatusConflict, ConflictResponse{Error: form.Snapshot().Message})
			return
		}
		writeStoreError(w, err)
		return
	}

	s.publish(eventType, saved)
	writeJSON(w, okStatus, saved)
}

// applyRequest copies the set fields of req onto form. Unknown vehicles and
// customers and malformed dates come back as field errors; other lookup
// failures as err.
func applyRequest(ctx context.Context, form *booking.Form, req ReservationRequest) (booking.FieldErrors, error) {
	fields := booking.FieldErrors{}
	draft := form.Snapshot().Draft

	if req.VehicleID != nil {
		if err := form.SelectVehicle(ctx, *req.VehicleID); err != nil {
			return notFoundField(err, "vehicle_id", "unknown vehicle")
		}
	}
	if req.CustomerID != nil {
		if err := form.SetCustomer(ctx, *req.CustomerID); err != nil {
			return notFoundField(err, "customer_id", "unknown customer")
		}
	}
	if req.DailyRate != nil {
		if err := form.SetDailyRate(*req.DailyRate); err != nil {
			return nil, err
		}
	}

	rg := draft.Range()
	if req.StartDate != nil {
		d, err := models.ParseDate(*req.StartDate)
		if err != nil {
			fields["start_date"] = "must be YYYY-MM-DD"
		}
		rg.Start = d
	}
	if req.EndDate != nil {
		d, err := models.ParseDate(*req.EndDate)
		if err != nil {
			fields["end_date"] = "must be YYYY-MM-DD"
		}
		rg.End = d
	}
	if len(fields) > 0 {
		return fields, nil
	}
	if req.StartDate != nil || req.EndDate != nil {
		if err := form.SetRange(rg); err != nil {
			return nil, err
		}
	}

	var errs []error
	if req.StartTime != nil || req.EndTime != nil {
		errs = append(errs, form.SetTimes(valueOr(req.StartTime, draft.StartTime), valueOr(req.EndTime, draft.EndTime)))
	}
	if req.PickupLocation != nil || req.DropoffLocation != nil {
		errs = append(errs, form.SetLocations(
			valueOr(req.PickupLocation, draft.PickupLocation),
			valueOr(req.DropoffLocation, draft.DropoffLocation),
		))
	}
	if req.Notes != nil {
		errs = append(errs, form.SetNotes(*req.Notes))
	}
	if req.Status != nil {
		errs = append(errs, form.SetStatus(*req.Status))
	}
	return nil, errors.Join(errs...)
}

func notFoundField(err error, field, msg string) (booking.FieldErrors, error) {
	if errors.Is(err, database.ErrNotFound) {
		return booking.FieldErrors{field: msg}, nil
	}
	return nil, err
}

func valueOr(p *string, def string) string {
	if p != nil {
		return *p
	}
	return def
}

func writeVehicleError(w http.ResponseWriter, err error) {
	if errors.Is(err, database.ErrNotFound) {
		writeJSON(w, http.StatusBadRequest, ValidationResponse{
			Error:  "validation failed",
			Fields: booking.FieldErrors{"vehicle_id": "unknown vehicle"},
		})
		return
	}
	writeError(w, http.StatusServiceUnavailable, "could not load vehicle")
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "reservation not found")
	case errors.Is(err, database.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "reservation was modified by another request; reload and retry")
	case errors.Is(err, database.ErrInvalidTransition):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, database.ErrInvalidReservation), errors.Is(err, booking.ErrNotSubmittable):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
