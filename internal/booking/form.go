package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"autorent/internal/availability"
	"autorent/internal/metrics"
	"autorent/internal/models"
	"autorent/internal/pricing"
)

var (
	ErrClosed         = errors.New("booking form is closed")
	ErrNotEditable    = errors.New("booking form is not editable in its current state")
	ErrNotSubmittable = errors.New("booking form cannot be submitted")
)

// Checker answers availability queries.
type Checker interface {
	Check(ctx context.Context, q availability.Query) (availability.Result, error)
}

// VehicleDirectory looks up vehicles for price defaults and messages.
type VehicleDirectory interface {
	GetVehicle(ctx context.Context, id string) (*models.Vehicle, error)
}

// CustomerDirectory looks up customers picked in the form.
type CustomerDirectory interface {
	GetCustomer(ctx context.Context, id string) (*models.Customer, error)
}

// Persister writes reservations.
type Persister interface {
	Create(ctx context.Context, r *models.Reservation) (*models.Reservation, error)
	Update(ctx context.Context, id string, p models.Patch) (*models.Reservation, error)
}

// Deps are the collaborators of a Form.
type Deps struct {
	Checker   Checker
	Vehicles  VehicleDirectory
	Customers CustomerDirectory
	Store     Persister
	Logger    zerolog.Logger
}

// Mode tells whether a form creates or edits a reservation.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Option configures a Form.
type Option func(*Form)

// WithRange seeds a create form with a date range, usually from a calendar selection.
func WithRange(r models.Range) Option {
	return func(f *Form) {
		f.draft.StartDate = r.Start
		f.draft.EndDate = r.End
	}
}

// WithCheckTimeout bounds every availability check.
func WithCheckTimeout(d time.Duration) Option {
	return func(f *Form) {
		f.checkTimeout = d
	}
}

// Snapshot is a consistent view of a form.
type Snapshot struct {
	Mode      Mode                 `json:"mode"`
	State     State                `json:"state"`
	Draft     Draft                `json:"draft"`
	Quote     pricing.Quote        `json:"quote"`
	Message   string               `json:"message,omitempty"`
	Conflicts []models.Reservation `json:"conflicts,omitempty"`
	Errors    FieldErrors          `json:"errors,omitempty"`
	CanSubmit bool                 `json:"can_submit"`
	Saved     *models.Reservation  `json:"saved,omitempty"`
}

// Form is one open booking dialog. All methods are safe for concurrent use.
type Form struct {
	mu     sync.Mutex
	deps   Deps
	fsm    *FSM
	seq    *availability.Sequencer
	wg     sync.WaitGroup
	logger zerolog.Logger

	mode         Mode
	state        State
	draft        Draft
	vehicle      *models.Vehicle
	rateSet      bool
	origVehicle  string
	origRate     float64
	vehicleReq   uint64
	customerReq  uint64
	checkTimeout time.Duration

	// verified is true only while the latest completed check for the
	// current vehicle and range reported the vehicle free.
	verified  bool
	message   string
	conflicts []models.Reservation
	saved     *models.Reservation
}

func newForm(deps Deps, mode Mode, draft Draft, opts ...Option) *Form {
	f := &Form{
		deps:    deps,
		fsm:     NewFSM(),
		seq:     availability.NewSequencer(),
		mode:    mode,
		state:   StatePristine,
		draft:   draft,
		logger:  deps.Logger.With().Str("component", "booking_form").Str("mode", string(mode)).Logger(),
	}
	if mode == ModeEdit {
		f.origVehicle = draft.VehicleID
		f.origRate = draft.DailyRate
	}
	for _, opt := range opts {
		opt(f)
	}
	f.draft.StartDate = models.DateOnly(f.draft.StartDate)
	f.draft.EndDate = models.DateOnly(f.draft.EndDate)

	f.mu.Lock()
	f.revalidateLocked()
	f.mu.Unlock()
	return f
}

// NewForm opens an empty create form.
func NewForm(deps Deps, opts ...Option) *Form {
	return newForm(deps, ModeCreate, Draft{}, opts...)
}

// EditForm opens a form pre-filled with an existing reservation and
// immediately re-checks its availability, excluding the reservation itself.
func EditForm(deps Deps, r models.Reservation, opts ...Option) *Form {
	return newForm(deps, ModeEdit, draftFrom(r), opts...)
}

// SelectVehicle sets the vehicle and defaults the daily rate to its price
// unless the rate was set explicitly. An edit form switched back to the
// reservation's own vehicle restores the stored rate.
func (f *Form) SelectVehicle(ctx context.Context, vehicleID string) error {
	f.mu.Lock()
	if err := f.editableLocked(); err != nil {
		f.mu.Unlock()
		return err
	}
	f.vehicleReq++
	req := f.vehicleReq
	f.mu.Unlock()

	var (
		v   *models.Vehicle
		err error
	)
	if vehicleID != "" {
		v, err = f.deps.Vehicles.GetVehicle(ctx, vehicleID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if req != f.vehicleReq {
		// a later selection won
		return nil
	}
	if err := f.editableLocked(); err != nil {
		return err
	}
	if err != nil {
		return fmt.Errorf("load vehicle %s: %w", vehicleID, err)
	}

	f.draft.VehicleID = vehicleID
	f.vehicle = v
	if !f.rateSet {
		switch {
		case f.mode == ModeEdit && vehicleID == f.origVehicle:
			f.draft.DailyRate = f.origRate
		case v != nil:
			f.draft.DailyRate = v.Price
		}
	}
	f.revalidateLocked()
	return nil
}

// SetStartDate changes the start date and re-checks availability.
func (f *Form) SetStartDate(d time.Time) error {
	return f.update(true, func(dr *Draft) { dr.StartDate = models.DateOnly(d) })
}

// SetEndDate changes the end date and re-checks availability.
func (f *Form) SetEndDate(d time.Time) error {
	return f.update(true, func(dr *Draft) { dr.EndDate = models.DateOnly(d) })
}

// SetRange changes both dates with a single re-check.
func (f *Form) SetRange(r models.Range) error {
	return f.update(true, func(dr *Draft) {
		dr.StartDate = models.DateOnly(r.Start)
		dr.EndDate = models.DateOnly(r.End)
	})
}

// SetCustomer sets the customer after checking it exists in the directory.
// On a failed lookup the previous customer is kept.
func (f *Form) SetCustomer(ctx context.Context, customerID string) error {
	f.mu.Lock()
	if err := f.editableLocked(); err != nil {
		f.mu.Unlock()
		return err
	}
	f.customerReq++
	req := f.customerReq
	f.mu.Unlock()

	if customerID != "" && f.deps.Customers != nil {
		if _, err := f.deps.Customers.GetCustomer(ctx, customerID); err != nil {
			return fmt.Errorf("load customer %s: %w", customerID, err)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if req != f.customerReq {
		return nil
	}
	if err := f.editableLocked(); err != nil {
		return err
	}
	f.draft.CustomerID = customerID
	return nil
}

// SetDailyRate overrides the vehicle's price for this reservation.
func (f *Form) SetDailyRate(rate float64) error {
	return f.update(false, func(dr *Draft) {
		dr.DailyRate = rate
		f.rateSet = true
	})
}

func (f *Form) SetLocations(pickup, dropoff string) error {
	return f.update(false, func(dr *Draft) {
		dr.PickupLocation = pickup
		dr.DropoffLocation = dropoff
	})
}

func (f *Form) SetTimes(start, end string) error {
	return f.update(false, func(dr *Draft) {
		dr.StartTime = start
		dr.EndTime = end
	})
}

func (f *Form) SetNotes(notes string) error {
	return f.update(false, func(dr *Draft) { dr.Notes = notes })
}

// SetStatus sets the requested lifecycle status; the store enforces transitions.
func (f *Form) SetStatus(s models.Status) error {
	return f.update(false, func(dr *Draft) { dr.Status = s })
}

func (f *Form) update(recheck bool, fn func(*Draft)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editableLocked(); err != nil {
		return err
	}
	fn(&f.draft)
	if recheck {
		f.revalidateLocked()
	}
	return nil
}

func (f *Form) editableLocked() error {
	if f.state == StateClosed {
		return ErrClosed
	}
	if !f.state.Editable() {
		return ErrNotEditable
	}
	return nil
}

// revalidateLocked supersedes any in-flight check and starts a new one when
// vehicle and both dates are set.
func (f *Form) revalidateLocked() {
	f.verified = false
	f.message = ""
	f.conflicts = nil

	d := f.draft
	if d.VehicleID == "" || d.StartDate.IsZero() || d.EndDate.IsZero() {
		f.seq.Invalidate()
		f.setStateLocked(StatePristine)
		return
	}

	tok := f.seq.Next(context.Background())
	f.setStateLocked(StateValidating)

	q := availability.Query{
		VehicleID: d.VehicleID,
		Range:     d.Range(),
		ExcludeID: d.ReservationID,
	}
	f.wg.Add(1)
	go f.runCheck(tok, q, f.vehicle)
}

func (f *Form) runCheck(tok availability.Token, q availability.Query, vehicle *models.Vehicle) {
	defer f.wg.Done()

	ctx := tok.Context()
	if f.checkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.checkTimeout)
		defer cancel()
	}

	res, err := f.deps.Checker.Check(ctx, q)
	if err == nil && !res.Available && vehicle == nil && f.deps.Vehicles != nil {
		// best effort, only used for the banner text
		vehicle, _ = f.deps.Vehicles.GetVehicle(ctx, q.VehicleID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateClosed || !f.seq.IsLatest(tok) {
		metrics.IncStaleDiscarded()
		f.logger.Debug().Uint64("seq", tok.Seq()).Msg("stale availability result discarded")
		return
	}

	switch {
	case err != nil:
		f.logger.Warn().Err(err).Str("vehicle_id", q.VehicleID).Msg("availability check failed")
		f.message = checkFailedMessage(err)
		f.setStateLocked(StateCheckFailed)
	case !res.Available:
		f.conflicts = res.Conflicts
		f.message = ConflictMessage(vehicle, q.VehicleID, q.Range)
		f.setStateLocked(StateUnavailable)
	default:
		f.verified = true
		f.setStateLocked(StateAvailable)
	}
}

func (f *Form) setStateLocked(to State) {
	if f.state == to {
		return
	}
	if !f.fsm.CanTransition(f.state, to) {
		f.logger.Error().Str("from", string(f.state)).Str("to", string(to)).Msg("invalid form transition")
		return
	}
	f.state = to
}

// Wait blocks until every availability check started so far has finished.
func (f *Form) Wait() {
	f.wg.Wait()
}

// Snapshot returns the current form view.
func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	errs := f.draft.Validate()
	s := Snapshot{
		Mode:      f.mode,
		State:     f.state,
		Draft:     f.draft,
		Quote:     pricing.NewQuote(f.draft.StartDate, f.draft.EndDate, f.draft.DailyRate),
		Message:   f.message,
		Conflicts: append([]models.Reservation(nil), f.conflicts...),
		Errors:    errs,
		Saved:     f.saved,
	}
	s.CanSubmit = f.canSubmitLocked(errs)
	return s
}

func (f *Form) canSubmitLocked(errs FieldErrors) bool {
	if f.state != StateAvailable && f.state != StateFailed {
		return false
	}
	return f.verified && len(errs) == 0
}

// Submit persists the form. It requires a completed check that found the
// vehicle free for the current inputs and a valid draft. On failure the form
// stays open with its input intact and Submit may be retried.
func (f *Form) Submit(ctx context.Context) (*models.Reservation, error) {
	f.mu.Lock()
	if f.state == StateClosed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	if errs := f.draft.Validate(); !f.canSubmitLocked(errs) {
		f.mu.Unlock()
		return nil, ErrNotSubmittable
	}
	f.setStateLocked(StateSubmitting)
	mode, draft, vehicle := f.mode, f.draft, f.vehicle
	f.mu.Unlock()

	var (
		saved *models.Reservation
		err   error
	)
	if mode == ModeEdit {
		saved, err = f.deps.Store.Update(ctx, draft.ReservationID, patchFrom(draft))
	} else {
		saved, err = f.deps.Store.Create(ctx, reservationFrom(draft))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateClosed {
		return saved, err
	}

	switch {
	case errors.Is(err, availability.ErrConflict):
		f.verified = false
		f.message = ConflictMessage(vehicle, draft.VehicleID, draft.Range())
		f.setStateLocked(StateUnavailable)
		return nil, err
	case err != nil:
		f.logger.Error().Err(err).Msg("reservation submit failed")
		f.message = submitFailedMessage(err)
		f.setStateLocked(StateFailed)
		return nil, err
	}

	f.saved = saved
	f.message = ""
	f.setStateLocked(StateSuccess)
	f.logger.Info().Str("reservation_id", saved.ID).Msg("reservation saved")
	return saved, nil
}

// Close disposes the form. Results of in-flight checks are discarded.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateClosed {
		return
	}
	f.seq.Close()
	f.setStateLocked(StateClosed)
}

// State returns the current state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func reservationFrom(d Draft) *models.Reservation {
	r := &models.Reservation{
		VehicleID:       d.VehicleID,
		CustomerID:      d.CustomerID,
		StartDate:       d.StartDate,
		EndDate:         d.EndDate,
		StartTime:       d.StartTime,
		EndTime:         d.EndTime,
		DailyRate:       d.DailyRate,
		Status:          d.Status,
		BookingType:     d.BookingType,
		Notes:           d.Notes,
		PickupLocation:  d.PickupLocation,
		DropoffLocation: d.DropoffLocation,
	}
	if r.Status == "" {
		r.Status = models.StatusPending
	}
	if r.BookingType == "" {
		r.BookingType = models.BookingOnline
	}
	pricing.Apply(r)
	return r
}

func patchFrom(d Draft) models.Patch {
	p := models.Patch{
		VehicleID:       &d.VehicleID,
		CustomerID:      &d.CustomerID,
		StartDate:       &d.StartDate,
		EndDate:         &d.EndDate,
		StartTime:       &d.StartTime,
		EndTime:         &d.EndTime,
		DailyRate:       &d.DailyRate,
		Notes:           &d.Notes,
		PickupLocation:  &d.PickupLocation,
		DropoffLocation: &d.DropoffLocation,
		Version:         &d.Version,
	}
	if d.Status != "" {
		p.Status = &d.Status
	}
	return p
}
