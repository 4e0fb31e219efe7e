package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"autorent/internal/api"
	"autorent/internal/cache"
	"autorent/internal/config"
	"autorent/internal/database"
	"autorent/internal/events"
	"autorent/internal/export"
	"autorent/internal/metrics"
	"autorent/internal/reminders"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}

	cfg, err := config.Load(os.Getenv("AUTORENT_CONFIG_PATH"))
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg)

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}
	vehicles := cache.NewVehicleCache(rdb, db, cfg.CacheTTL(), logger)

	bus := events.NewEventBus(logger)
	subscribeAuditLog(bus, logger)

	_, err = config.WatchFleet(ctx, cfg.Fleet.Path, cfg.FleetWatchInterval(), logger, func(fleet *config.FleetConfig) {
		retired, err := db.SyncFleetFromConfig(ctx, fleet)
		if err != nil {
			logger.Error().Err(err).Msg("fleet sync failed")
			return
		}
		ids := make([]string, 0, len(fleet.Vehicles)+len(retired))
		for _, v := range fleet.Vehicles {
			ids = append(ids, v.ID)
		}
		ids = append(ids, retired...)
		vehicles.Invalidate(ctx, ids...)
		_ = bus.PublishJSON(events.FleetSynced, map[string]any{
			"vehicles": len(fleet.Vehicles),
			"retired":  retired,
		})
	})
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.Fleet.Path).Msg("fleet config not loaded; using stored fleet")
	}

	if cfg.Backup.Enabled {
		go database.NewBackupService(db, cfg.Backup, logger).Start(ctx)
	}

	if cfg.Reminders.Enabled {
		svc := reminders.NewService(reminders.Config{
			CheckInterval: cfg.ReminderInterval(),
			LeadDays:      cfg.Reminders.LeadDays,
		}, db, reminders.NewEventNotifier(bus), logger)
		go svc.Start(ctx)
	}

	reporter := export.NewReporter(db, db)
	go export.NewScheduler(reporter, filepath.Join(filepath.Dir(cfg.Database.Path), "exports"), logger).Start(ctx)

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
	}

	srv := api.NewHTTPServer(cfg, api.Deps{
		Store:     db,
		Vehicles:  vehicles,
		Customers: db,
		Reporter:  reporter,
		Events:    bus,
	}, logger)
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error().Err(err).Msg("API shutdown error")
		}
	}()

	logger.Info().Msg("autorent started")
	if err := srv.Start(); err != nil {
		logger.Error().Err(err).Msg("API server error")
	}
	logger.Info().Msg("autorent stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil || cfg.Logging.Level == "" {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Logging.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// subscribeAuditLog writes every domain event to the log.
func subscribeAuditLog(bus *events.EventBus, logger zerolog.Logger) {
	audit := logger.With().Str("component", "audit").Logger()
	for _, typ := range []string{
		events.ReservationCreated,
		events.ReservationUpdated,
		events.ReservationConflict,
		events.PickupDue,
		events.FleetSynced,
	} {
		bus.Subscribe(typ, func(e events.Event) error {
			audit.Info().
				Str("event", e.Type).
				Str("event_id", e.ID).
				RawJSON("payload", e.Payload).
				Msg("domain event")
			return nil
		})
	}
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				// the vehicle cache falls back to the database
				logger.Warn().Err(err).Msg("redis not reachable")
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
