// Package slotcache keeps per-(teacher, date) booked time points in Redis so
// slot expansion does not hit Postgres on every read. The cache is fail-open:
// any Redis error falls back to the loader.
package slotcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Loader fetches booked time points from the source of truth.
type Loader func(ctx context.Context, teacherID, date string) ([]string, error)

type Cache struct {
	client *redis.Client
	load   Loader
	ttl    time.Duration
	logger *slog.Logger
}

func New(client *redis.Client, load Loader, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, load: load, ttl: ttl, logger: logger}
}

func key(teacherID, date string) string {
	return fmt.Sprintf("booked:%s:%s", teacherID, date)
}

// BookedTimes returns the cached points for (teacherID, date), loading and
// caching them on a miss.
func (c *Cache) BookedTimes(ctx context.Context, teacherID, date string) ([]string, error) {
	if c.client != nil {
		raw, err := c.client.Get(ctx, key(teacherID, date)).Result()
		if err == nil {
			var times []string
			if jsonErr := json.Unmarshal([]byte(raw), &times); jsonErr == nil {
				return times, nil
			}
		} else if err != redis.Nil {
			c.logger.Warn("slot cache read failed, falling back to db", "err", err)
		}
	}
	times, err := c.load(ctx, teacherID, date)
	if err != nil {
		return nil, err
	}
	c.store(ctx, teacherID, date, times)
	return times, nil
}

// Refresh re-reads the source of truth and overwrites the cached entry.
// Called after any write that changes which points are held.
func (c *Cache) Refresh(ctx context.Context, teacherID, date string) {
	times, err := c.load(ctx, teacherID, date)
	if err != nil {
		c.Invalidate(ctx, teacherID, date)
		return
	}
	c.store(ctx, teacherID, date, times)
}

func (c *Cache) Invalidate(ctx context.Context, teacherID, date string) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, key(teacherID, date)).Err(); err != nil {
		c.logger.Warn("slot cache invalidate failed", "err", err)
	}
}

func (c *Cache) store(ctx context.Context, teacherID, date string, times []string) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(times)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(teacherID, date), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("slot cache write failed", "err", err)
	}
}
