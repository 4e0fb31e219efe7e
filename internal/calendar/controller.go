package calendar

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"autorent/internal/models"
)

// Listener receives the intents produced by calendar interactions.
type Listener interface {
	OnCreate(r models.Range)
	OnEdit(r models.Reservation)
	OnShowList(date time.Time, reservations []models.Reservation)
}

// Controller routes pointer and click events to the selector and disambiguator.
// Listener callbacks run after the internal lock is released.
type Controller struct {
	mu       sync.Mutex
	selector RangeSelector
	disamb   *Disambiguator
	listener Listener
	logger   zerolog.Logger
}

func NewController(threshold int, listener Listener, logger zerolog.Logger) *Controller {
	return &Controller{
		disamb:   NewDisambiguator(threshold),
		listener: listener,
		logger:   logger.With().Str("component", "calendar").Logger(),
	}
}

// PointerDown starts a selection on cell.
func (c *Controller) PointerDown(cell Cell) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selector.PointerDown(cell.Date, cell.Count())
}

// PointerEnter extends an active selection to cell.
func (c *Controller) PointerEnter(cell Cell) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selector.PointerEnter(cell.Date)
}

// PointerUp handles a release anywhere on the page.
func (c *Controller) PointerUp() {
	c.mu.Lock()
	intent := c.selector.PointerUp()
	c.mu.Unlock()

	if intent.Kind != IntentCreate {
		return
	}
	c.logger.Debug().Str("range", intent.Range.String()).Msg("create from selection")
	c.listener.OnCreate(intent.Range)
}

// ClickBooking opens the edit flow for a booking rendered in cell.
func (c *Controller) ClickBooking(cell Cell, reservationID string) error {
	c.mu.Lock()
	c.selector.Reset()
	r, err := c.disamb.Pick(cell, reservationID)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.listener.OnEdit(r)
	return nil
}

// ClickOverflow opens the full booking list of an overflowing cell.
func (c *Controller) ClickOverflow(cell Cell) error {
	c.mu.Lock()
	c.selector.Reset()
	list, err := c.disamb.OpenList(cell)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.listener.OnShowList(list.Date, clone(list.Reservations))
	return nil
}

// SelectFromList chooses the i-th booking of the open list for editing.
func (c *Controller) SelectFromList(i int) error {
	c.mu.Lock()
	c.selector.Reset()
	r, err := c.disamb.Select(i)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.listener.OnEdit(r)
	return nil
}

// CloseList dismisses the open list.
func (c *Controller) CloseList() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disamb.CloseList()
}

// Layout returns how cell renders its bookings.
func (c *Controller) Layout(cell Cell) CellLayout {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disamb.Layout(cell)
}

// Selection returns the live drag range, for highlighting.
func (c *Controller) Selection() (models.Range, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selector.Selection()
}

// SelectorState exposes the drag state.
func (c *Controller) SelectorState() SelectorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selector.State()
}
