// Package reminders announces upcoming vehicle pickups.
package reminders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"autorent/internal/events"
	"autorent/internal/metrics"
	"autorent/internal/models"
)

// Store lists reservations touching a date range.
type Store interface {
	ListRange(ctx context.Context, r models.Range, filter models.StatusFilter) ([]models.Reservation, error)
}

// Notifier delivers one pickup reminder.
type Notifier interface {
	NotifyPickup(ctx context.Context, r models.Reservation) error
}

// Config holds configuration for the reminder service.
type Config struct {
	// CheckInterval is how often to scan for upcoming pickups.
	CheckInterval time.Duration
	// LeadDays is how many days ahead of the start date a reminder goes out.
	// Zero means reminders on the pickup day only.
	LeadDays int
	// MaxConcurrent limits parallel notification sends.
	MaxConcurrent int
	// Rate and Burst pace notifications per second.
	Rate  float64
	Burst int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		CheckInterval: 15 * time.Minute,
		LeadDays:      1,
		MaxConcurrent: 10,
		Rate:          20,
		Burst:         30,
	}
}

// Service sends one reminder per reservation and start date. A rescheduled
// reservation is reminded again for its new date.
type Service struct {
	config   Config
	store    Store
	notifier Notifier
	limiter  *rate.Limiter
	logger   zerolog.Logger
	now      func() time.Time

	mu   sync.Mutex
	sent map[string]time.Time // key -> start date
}

// NewService creates a reminder service; zero config fields take defaults.
func NewService(cfg Config, store Store, notifier Notifier, logger zerolog.Logger) *Service {
	def := DefaultConfig()
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = def.CheckInterval
	}
	if cfg.LeadDays < 0 {
		cfg.LeadDays = 0
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.Rate <= 0 {
		cfg.Rate = def.Rate
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}

	return &Service{
		config:   cfg,
		store:    store,
		notifier: notifier,
		limiter:  rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
		logger:   logger.With().Str("component", "reminders").Logger(),
		now:      time.Now,
		sent:     make(map[string]time.Time),
	}
}

// Start runs a check immediately and then every CheckInterval until ctx ends.
func (s *Service) Start(ctx context.Context) {
	s.logger.Info().
		Dur("check_interval", s.config.CheckInterval).
		Int("lead_days", s.config.LeadDays).
		Msg("Reminder service started")

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		if _, err := s.CheckNow(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("Failed to check upcoming pickups")
		}
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Reminder service stopped")
			return
		case <-ticker.C:
		}
	}
}

// CheckNow sends reminders for pending and confirmed reservations starting
// between today and today+LeadDays. It returns the number sent.
func (s *Service) CheckNow(ctx context.Context) (int, error) {
	today := models.DateOnly(s.now())
	window := models.Range{Start: today, End: today.AddDate(0, 0, s.config.LeadDays)}

	list, err := s.store.ListRange(ctx, window, models.StatusFilter{
		Include: []models.Status{models.StatusPending, models.StatusConfirmed},
	})
	if err != nil {
		return 0, fmt.Errorf("list upcoming reservations: %w", err)
	}

	s.prune(today)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		count int
	)
	sem := make(chan struct{}, s.config.MaxConcurrent)

	for _, r := range list {
		if !window.Contains(r.StartDate) || !s.claim(r) {
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			s.release(r)
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(r models.Reservation) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.notifier.NotifyPickup(ctx, r); err != nil {
				s.release(r)
				metrics.IncReminder("error")
				s.logger.Error().Err(err).Str("reservation_id", r.ID).Msg("Failed to send pickup reminder")
				return
			}
			metrics.IncReminder("sent")
			s.logger.Info().
				Str("reservation_id", r.ID).
				Str("vehicle_id", r.VehicleID).
				Str("start_date", r.StartDate.Format(models.DateLayout)).
				Msg("Pickup reminder sent")
			mu.Lock()
			count++
			mu.Unlock()
		}(r)
	}
	wg.Wait()

	return count, ctx.Err()
}

func reminderKey(r models.Reservation) string {
	return r.ID + "@" + r.StartDate.Format(models.DateLayout)
}

// claim marks r as in flight and reports whether it still needed a reminder.
func (s *Service) claim(r models.Reservation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := reminderKey(r)
	if _, ok := s.sent[key]; ok {
		return false
	}
	s.sent[key] = models.DateOnly(r.StartDate)
	return true
}

func (s *Service) release(r models.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sent, reminderKey(r))
}

// prune forgets reminders for pickups already in the past.
func (s *Service) prune(today time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, start := range s.sent {
		if start.Before(today) {
			delete(s.sent, k)
		}
	}
}

// EventNotifier publishes reminders on the event bus.
type EventNotifier struct {
	bus *events.EventBus
}

func NewEventNotifier(bus *events.EventBus) *EventNotifier {
	return &EventNotifier{bus: bus}
}

func (n *EventNotifier) NotifyPickup(_ context.Context, r models.Reservation) error {
	return n.bus.PublishJSON(events.PickupDue, r)
}
