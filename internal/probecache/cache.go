// Package probecache persists successful duration probes in Redis so that a source
// reappearing in a later playlist generation does not have to be probed again.
package probecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stwalsh4118/vitrine/internal/logger"
)

const keyPrefix = "vitrine:probe:"

// Cache is a Redis-backed playback.DurationCache
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

// New wraps an existing client. A non-positive ttl keeps entries forever.
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{
		rdb: rdb,
		ttl: ttl,
		log: logger.With("probecache"),
	}
}

// Connect opens a client and verifies it with PING
func Connect(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return New(rdb, ttl), nil
}

// Get returns the cached duration for src. Redis errors are logged and reported as
// misses.
func (c *Cache) Get(ctx context.Context, src string) (int64, bool) {
	val, err := c.rdb.Get(ctx, key(src)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("src", src).Msg("Probe cache lookup failed")
		}
		return 0, false
	}

	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil || ms <= 0 {
		c.log.Warn().Str("src", src).Str("value", val).Msg("Ignoring malformed probe cache entry")
		return 0, false
	}
	return ms, true
}

// Set stores a successful probe result
func (c *Cache) Set(ctx context.Context, src string, durationMs int64) {
	if durationMs <= 0 {
		return
	}
	if err := c.rdb.Set(ctx, key(src), strconv.FormatInt(durationMs, 10), c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("src", src).Msg("Probe cache write failed")
	}
}

// Close closes the underlying client
func (c *Cache) Close() error {
	return c.rdb.Close()
}

// Health pings Redis
func (c *Cache) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// key hashes src so arbitrary URLs make safe, bounded keys
func key(src string) string {
	sum := sha256.Sum256([]byte(src))
	return keyPrefix + hex.EncodeToString(sum[:])
}
