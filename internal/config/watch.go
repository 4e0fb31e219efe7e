package config

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"autorent/internal/metrics"
)

// FleetWatcher polls fleet.yaml and hands every valid revision to its
// callback. A rejected revision is logged once and the last good config
// stays current until the file changes again.
type FleetWatcher struct {
	path     string
	onUpdate func(*FleetConfig)
	logger   zerolog.Logger

	lastMod    time.Time
	statFailed bool

	mu      sync.RWMutex
	current *FleetConfig
}

// WatchFleet loads fleet.yaml, delivers it to onUpdate and then polls the
// file every interval until ctx ends. An invalid initial file is an error.
func WatchFleet(ctx context.Context, path string, interval time.Duration, logger zerolog.Logger, onUpdate func(*FleetConfig)) (*FleetWatcher, error) {
	if path == "" {
		path = "configs/fleet.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	w := &FleetWatcher{
		path:     path,
		onUpdate: onUpdate,
		logger:   logger.With().Str("component", "fleet_watcher").Str("path", path).Logger(),
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	cfg, err := LoadFleetConfig(path)
	if err != nil {
		return nil, err
	}
	w.lastMod = info.ModTime()
	w.apply(cfg)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.poll()
			}
		}
	}()
	return w, nil
}

// Current returns the last config that passed validation.
func (w *FleetWatcher) Current() *FleetConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// poll reloads the file when its mtime moved forward. Only the watch loop
// calls it.
func (w *FleetWatcher) poll() {
	info, err := os.Stat(w.path)
	if err != nil {
		if !w.statFailed {
			w.logger.Warn().Err(err).Msg("fleet config not readable; keeping last good config")
		}
		w.statFailed = true
		return
	}
	w.statFailed = false
	if !info.ModTime().After(w.lastMod) {
		return
	}
	// a broken revision is reported once, not on every tick
	w.lastMod = info.ModTime()

	cfg, err := LoadFleetConfig(w.path)
	if err != nil {
		metrics.IncFleetReload("error")
		w.logger.Error().Err(err).Msg("fleet config rejected; keeping last good config")
		return
	}
	metrics.IncFleetReload("ok")
	w.logger.Info().
		Int("vehicles", len(cfg.Vehicles)).
		Int("customers", len(cfg.Customers)).
		Msg("fleet config reloaded")
	w.apply(cfg)
}

func (w *FleetWatcher) apply(cfg *FleetConfig) {
	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()
	if w.onUpdate != nil {
		w.onUpdate(cfg)
	}
}
