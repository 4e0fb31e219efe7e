package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"autorent/internal/availability"
	"autorent/internal/booking"
	"autorent/internal/calendar"
	"autorent/internal/export"
	"autorent/internal/metrics"
	"autorent/internal/models"
	"autorent/internal/pricing"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AvailabilityResponse is the response for GET /api/v1/vehicles/{id}/availability.
type AvailabilityResponse struct {
	VehicleID string               `json:"vehicle_id"`
	StartDate string               `json:"start_date"`
	EndDate   string               `json:"end_date"`
	Available bool                 `json:"available"`
	Message   string               `json:"message,omitempty"`
	Conflicts []models.Reservation `json:"conflicts,omitempty"`
}

// handleAvailability checks one vehicle against a closed date range.
// GET /api/v1/vehicles/{id}/availability?start=YYYY-MM-DD&end=YYYY-MM-DD&exclude=ID
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")

	vehicleID := mux.Vars(r)["id"]
	q := r.URL.Query()
	start, end, err := parseRange(q.Get("start"), q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rg := models.NewRange(start, end)
	res, err := s.checker.Check(r.Context(), availability.Query{
		VehicleID: vehicleID,
		Range:     rg,
		ExcludeID: q.Get("exclude"),
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "could not verify availability")
		return
	}

	resp := AvailabilityResponse{
		VehicleID: vehicleID,
		StartDate: start.Format(models.DateLayout),
		EndDate:   end.Format(models.DateLayout),
		Available: res.Available,
		Conflicts: res.Conflicts,
	}
	if !res.Available {
		v, _ := s.vehicles.GetVehicle(r.Context(), vehicleID)
		resp.Message = booking.ConflictMessage(v, vehicleID, rg)
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseRange(startStr, endStr string) (start, end time.Time, err error) {
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, errors.New("start and end are required")
	}
	start, err = models.ParseDate(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid start format; expected YYYY-MM-DD")
	}
	end, err = models.ParseDate(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid end format; expected YYYY-MM-DD")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("end must not be before start")
	}
	return start, end, nil
}

// CalendarCell is one rendered cell with its overflow layout.
type CalendarCell struct {
	Date       string               `json:"date"`
	Hour       int                  `json:"hour"`
	OtherMonth bool                 `json:"other_month,omitempty"`
	Count      int                  `json:"count"`
	Visible    []models.Reservation `json:"visible"`
	Hidden     int                  `json:"hidden"`
}

// CalendarResponse is the response for GET /api/v1/calendar.
type CalendarResponse struct {
	View      calendar.ViewMode `json:"view"`
	Date      string            `json:"date"`
	StartDate string            `json:"start_date"`
	EndDate   string            `json:"end_date"`
	Cells     []CalendarCell    `json:"cells"`
}

// handleCalendar renders the grid for a view with active reservations bound to cells.
// GET /api/v1/calendar?view=month|week|day&date=YYYY-MM-DD[&vehicle_id=ID]
func (s *HTTPServer) handleCalendar(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("calendar")

	q := r.URL.Query()
	mode, err := calendar.ParseViewMode(q.Get("view"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date := models.DateOnly(time.Now())
	if ds := q.Get("date"); ds != "" {
		if date, err = models.ParseDate(ds); err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
	}

	visible := calendar.VisibleRange(date, mode)
	list, err := s.store.ListRange(r.Context(), visible, models.ActiveOnly())
	if err != nil {
		s.logger.Error().Err(err).Msg("calendar lookup failed")
		writeError(w, http.StatusServiceUnavailable, "could not load reservations")
		return
	}
	if vehicleID := q.Get("vehicle_id"); vehicleID != "" {
		filtered := list[:0]
		for _, res := range list {
			if res.VehicleID == vehicleID {
				filtered = append(filtered, res)
			}
		}
		list = filtered
	}

	dis := calendar.NewDisambiguator(s.threshold)
	cells := calendar.Generate(date, mode, list)
	resp := CalendarResponse{
		View:      mode,
		Date:      date.Format(models.DateLayout),
		StartDate: visible.Start.Format(models.DateLayout),
		EndDate:   visible.End.Format(models.DateLayout),
		Cells:     make([]CalendarCell, 0, len(cells)),
	}
	for _, c := range cells {
		layout := dis.Layout(c)
		resp.Cells = append(resp.Cells, CalendarCell{
			Date:       c.Date.Format(models.DateLayout),
			Hour:       c.Hour,
			OtherMonth: c.OtherMonth,
			Count:      c.Count(),
			Visible:    layout.Visible,
			Hidden:     layout.Hidden,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// QuoteRequest is the request body for POST /api/v1/quote.
type QuoteRequest struct {
	VehicleID string   `json:"vehicle_id,omitempty"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	DailyRate *float64 `json:"daily_rate,omitempty"`
}

// handleQuote computes the derived fields. The daily rate defaults to the vehicle price.
// POST /api/v1/quote
func (s *HTTPServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("quote")

	var req QuoteRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var rate float64
	switch {
	case req.DailyRate != nil:
		if *req.DailyRate < 0 {
			writeError(w, http.StatusBadRequest, "daily_rate must not be negative")
			return
		}
		rate = *req.DailyRate
	case req.VehicleID != "":
		v, err := s.vehicles.GetVehicle(r.Context(), req.VehicleID)
		if err != nil {
			writeVehicleError(w, err)
			return
		}
		rate = v.Price
	default:
		writeError(w, http.StatusBadRequest, "daily_rate or vehicle_id is required")
		return
	}

	writeJSON(w, http.StatusOK, pricing.QuoteFromStrings(req.StartDate, req.EndDate, rate))
}

// handleExport streams the monthly reservation workbook.
// GET /api/v1/export/{year}/{month}
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("export")

	vars := mux.Vars(r)
	year, _ := strconv.Atoi(vars["year"])
	month, _ := strconv.Atoi(vars["month"])
	if month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}

	var buf bytes.Buffer
	n, err := s.reporter.WriteMonth(r.Context(), year, time.Month(month), &buf)
	if err != nil {
		s.logger.Error().Err(err).Int("year", year).Int("month", month).Msg("export failed")
		writeError(w, http.StatusServiceUnavailable, "export failed")
		return
	}

	s.logger.Info().Int("year", year).Int("month", month).Int("rows", n).Msg("export generated")
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"`, export.Filename(year, time.Month(month))))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
