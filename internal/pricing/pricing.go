// Package pricing computes the derived booking fields: rental duration and total amount.
//
// All functions are total: degenerate input (zero dates, reversed ranges,
// NaN rates) falls back to one billable day instead of failing.
package pricing

import (
	"math"
	"time"

	"autorent/internal/models"
)

// MinDays is the smallest billable duration, also used for same-day rentals.
const MinDays = 1

// Quote holds the derived fields for a date range and daily rate.
type Quote struct {
	DurationDays int     `json:"duration_days"`
	DailyRate    float64 `json:"daily_rate"`
	TotalAmount  float64 `json:"total_amount"`
}

// DurationDays returns max(1, ceil((end-start) in days)) using calendar days.
func DurationDays(start, end time.Time) int {
	if start.IsZero() || end.IsZero() {
		return MinDays
	}
	diff := models.DateOnly(end).Sub(models.DateOnly(start))
	days := int(math.Ceil(diff.Hours() / 24))
	if days < MinDays {
		return MinDays
	}
	return days
}

// TotalAmount returns DurationDays(start, end) * rate rounded to cents.
func TotalAmount(start, end time.Time, rate float64) float64 {
	return total(DurationDays(start, end), rate)
}

// NewQuote computes both derived fields at once.
func NewQuote(start, end time.Time, rate float64) Quote {
	rate = sanitizeRate(rate)
	days := DurationDays(start, end)
	return Quote{DurationDays: days, DailyRate: rate, TotalAmount: total(days, rate)}
}

// QuoteFromStrings parses YYYY-MM-DD bounds. Missing or unparseable dates
// yield a one-day quote whose total equals the rate.
func QuoteFromStrings(start, end string, rate float64) Quote {
	s, errStart := time.Parse(models.DateLayout, start)
	e, errEnd := time.Parse(models.DateLayout, end)
	if errStart != nil || errEnd != nil {
		rate = sanitizeRate(rate)
		return Quote{DurationDays: MinDays, DailyRate: rate, TotalAmount: total(MinDays, rate)}
	}
	return NewQuote(s, e, rate)
}

// Apply recomputes DurationDays and TotalAmount on r from its own dates and rate.
// Client-provided totals are always overwritten.
func Apply(r *models.Reservation) {
	q := NewQuote(r.StartDate, r.EndDate, r.DailyRate)
	r.DailyRate = q.DailyRate
	r.DurationDays = q.DurationDays
	r.TotalAmount = q.TotalAmount
}

func total(days int, rate float64) float64 {
	return math.Round(float64(days)*sanitizeRate(rate)*100) / 100
}

func sanitizeRate(rate float64) float64 {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0
	}
	return rate
}
