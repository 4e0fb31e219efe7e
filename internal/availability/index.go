package availability

import (
	"sort"
	"time"

	"autorent/internal/models"
)

// Index is a static augmented interval tree over reservation date ranges.
// The tree is implicit: items are sorted by start date and the node for a
// slice [lo, hi) is its midpoint, whose maxEnd entry holds the latest end
// date in that slice.
type Index struct {
	items  []models.Reservation
	maxEnd []time.Time
}

// NewIndex builds an index. Reservations with an invalid range are skipped.
// Items sharing a start date keep their input order.
func NewIndex(reservations []models.Reservation) *Index {
	items := make([]models.Reservation, 0, len(reservations))
	for _, r := range reservations {
		if r.Range().Valid() {
			items = append(items, r)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return models.DateOnly(items[i].StartDate).Before(models.DateOnly(items[j].StartDate))
	})

	idx := &Index{items: items, maxEnd: make([]time.Time, len(items))}
	idx.build(0, len(items))
	return idx
}

// Len returns the number of indexed reservations.
func (idx *Index) Len() int {
	return len(idx.items)
}

func (idx *Index) build(lo, hi int) time.Time {
	if lo >= hi {
		return time.Time{}
	}
	mid := (lo + hi) / 2
	latest := models.DateOnly(idx.items[mid].EndDate)
	if left := idx.build(lo, mid); left.After(latest) {
		latest = left
	}
	if right := idx.build(mid+1, hi); right.After(latest) {
		latest = right
	}
	idx.maxEnd[mid] = latest
	return latest
}

// Overlapping returns every indexed reservation sharing at least one day with q,
// ordered by start date.
func (idx *Index) Overlapping(q models.Range) []models.Reservation {
	if !q.Valid() {
		return nil
	}
	var out []models.Reservation
	idx.query(0, len(idx.items), q, func(r models.Reservation) bool {
		out = append(out, r)
		return true
	})
	return out
}

// Any reports whether at least one indexed reservation overlaps q.
func (idx *Index) Any(q models.Range) bool {
	if !q.Valid() {
		return false
	}
	found := false
	idx.query(0, len(idx.items), q, func(models.Reservation) bool {
		found = true
		return false
	})
	return found
}

// query walks the tree in order; visit returning false stops the walk.
func (idx *Index) query(lo, hi int, q models.Range, visit func(models.Reservation) bool) bool {
	if lo >= hi {
		return true
	}
	mid := (lo + hi) / 2
	if idx.maxEnd[mid].Before(q.Start) {
		return true
	}
	if !idx.query(lo, mid, q, visit) {
		return false
	}
	r := idx.items[mid]
	start := models.DateOnly(r.StartDate)
	if start.After(q.End) {
		return true
	}
	if !models.DateOnly(r.EndDate).Before(q.Start) {
		if !visit(r) {
			return false
		}
	}
	return idx.query(mid+1, hi, q, visit)
}
