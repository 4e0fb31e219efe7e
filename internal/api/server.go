package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"autorent/internal/availability"
	"autorent/internal/booking"
	"autorent/internal/config"
	"autorent/internal/events"
	"autorent/internal/export"
	"autorent/internal/models"
)

// Store is the persistence the API needs.
type Store interface {
	availability.Store
	booking.Persister
	Get(ctx context.Context, id string) (*models.Reservation, error)
	ListRange(ctx context.Context, r models.Range, filter models.StatusFilter) ([]models.Reservation, error)
	PingContext(ctx context.Context) error
}

// Deps are the collaborators of the HTTP API. Events may be nil.
type Deps struct {
	Store     Store
	Vehicles  booking.VehicleDirectory
	Customers booking.CustomerDirectory
	Reporter  *export.Reporter
	Events    *events.EventBus
}

// HTTPServer serves the booking API.
type HTTPServer struct {
	server    *http.Server
	store     Store
	vehicles  booking.VehicleDirectory
	customers booking.CustomerDirectory
	checker   *availability.Checker
	reporter  *export.Reporter
	events    *events.EventBus

	apiKeys      map[string]struct{}
	origins      []string
	limiter      *clientLimiter
	checkTimeout time.Duration
	threshold    int
	logger       zerolog.Logger
}

// NewHTTPServer wires routes and middleware. Call Start to listen.
func NewHTTPServer(cfg *config.Config, deps Deps, logger zerolog.Logger) *HTTPServer {
	logger = logger.With().Str("component", "api").Logger()
	rps, burst := cfg.RateLimit()

	s := &HTTPServer{
		store:        deps.Store,
		vehicles:     deps.Vehicles,
		customers:    deps.Customers,
		checker:      availability.NewChecker(deps.Store, logger),
		reporter:     deps.Reporter,
		events:       deps.Events,
		apiKeys:      make(map[string]struct{}, len(cfg.Server.APIKeys)),
		origins:      cfg.Server.AllowedOrigins,
		limiter:      newClientLimiter(rps, burst),
		checkTimeout: cfg.CheckTimeout(),
		threshold:    cfg.OverflowThreshold(),
		logger:       logger,
	}
	for _, k := range cfg.Server.APIKeys {
		if k != "" {
			s.apiKeys[k] = struct{}{}
		}
	}
	if len(s.apiKeys) == 0 {
		logger.Warn().Msg("no API keys configured; authentication disabled")
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort()),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *HTTPServer) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.corsMiddleware)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.authMiddleware, s.rateLimitMiddleware)

	api.HandleFunc("/vehicles/{id}/availability", s.handleAvailability).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/calendar", s.handleCalendar).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/quote", s.handleQuote).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/reservations", s.handleCreateReservation).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/reservations/{id}", s.handleGetReservation).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/reservations/{id}", s.handleUpdateReservation).Methods(http.MethodPatch, http.MethodOptions)
	api.HandleFunc("/export/{year:[0-9]{4}}/{month:[0-9]{1,2}}", s.handleExport).Methods(http.MethodGet, http.MethodOptions)

	return r
}

// Handler exposes the routed handler, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start listens until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.PingContext(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("readiness check failed")
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *HTTPServer) publish(eventType string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
