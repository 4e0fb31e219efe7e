// Package cache keeps the vehicle directory in Redis in front of the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"autorent/internal/models"
)

const (
	keyPrefix   = "autorent:vehicle:"
	listKey     = "autorent:vehicles"
	retryPeriod = time.Minute
)

// Source is the authoritative vehicle directory.
type Source interface {
	GetVehicle(ctx context.Context, id string) (*models.Vehicle, error)
	ListVehicles(ctx context.Context) ([]models.Vehicle, error)
}

// VehicleCache reads through Redis to a Source. When Redis fails it is
// bypassed and probed again once per retry period; lookups keep working
// from the Source meanwhile.
type VehicleCache struct {
	rdb    *redis.Client
	src    Source
	ttl    time.Duration
	logger zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
	now       func() time.Time
}

// NewVehicleCache wraps src. A nil client or non-positive ttl disables caching.
func NewVehicleCache(rdb *redis.Client, src Source, ttl time.Duration, logger zerolog.Logger) *VehicleCache {
	return &VehicleCache{
		rdb:    rdb,
		src:    src,
		ttl:    ttl,
		logger: logger.With().Str("component", "vehicle_cache").Logger(),
		now:    time.Now,
	}
}

func (c *VehicleCache) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	var v models.Vehicle
	if c.readCache(ctx, keyPrefix+id, &v) {
		return &v, nil
	}
	got, err := c.src.GetVehicle(ctx, id)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, keyPrefix+id, got)
	return got, nil
}

func (c *VehicleCache) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	var list []models.Vehicle
	if c.readCache(ctx, listKey, &list) {
		return list, nil
	}
	list, err := c.src.ListVehicles(ctx)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, listKey, list)
	return list, nil
}

// Invalidate drops the given vehicles and the cached list.
func (c *VehicleCache) Invalidate(ctx context.Context, ids ...string) {
	if !c.enabled() {
		return
	}
	keys := make([]string, 0, len(ids)+1)
	keys = append(keys, listKey)
	for _, id := range ids {
		keys = append(keys, keyPrefix+id)
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.markDown(err)
	}
}

// Healthy reports whether Redis is currently in use.
func (c *VehicleCache) Healthy() bool {
	return c.enabled() && !c.isDown.Load()
}

func (c *VehicleCache) enabled() bool {
	return c.rdb != nil && c.ttl > 0
}

// usable reports whether Redis should be tried now. While down, one caller
// per retry period gets through as a probe.
func (c *VehicleCache) usable() bool {
	if !c.enabled() {
		return false
	}
	if !c.isDown.Load() {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.now().Sub(c.lastCheck) < retryPeriod {
		return false
	}
	c.lastCheck = c.now()
	return true
}

func (c *VehicleCache) readCache(ctx context.Context, key string, out any) bool {
	if !c.usable() {
		return false
	}
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.markUp()
		return false
	}
	if err != nil {
		c.markDown(err)
		return false
	}
	c.markUp()
	if err := json.Unmarshal(val, out); err != nil {
		return false
	}
	return true
}

func (c *VehicleCache) writeCache(ctx context.Context, key string, val any) {
	if !c.enabled() || c.isDown.Load() {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.markDown(err)
	}
}

func (c *VehicleCache) markDown(err error) {
	if c.isDown.Swap(true) {
		return
	}
	c.mu.Lock()
	c.lastCheck = c.now()
	c.mu.Unlock()
	c.logger.Warn().Err(err).Msg("redis unavailable, reading vehicles from database")
}

func (c *VehicleCache) markUp() {
	if c.isDown.Swap(false) {
		c.logger.Info().Msg("redis recovered")
	}
}
