package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"finance_automation/internal/app"
	"finance_automation/internal/domain/notification"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/singleflight"
)

// SettingsCache is an app.SettingsSource that keeps recently read settings in memory for ttl.
type SettingsCache struct {
	next  app.SettingsSource
	cache *ristretto.Cache
	ttl   time.Duration
	sf    singleflight.Group
}

func NewSettingsCache(next app.SettingsSource, ttl time.Duration) (*SettingsCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000, // number of keys to track frequency of
		MaxCost:     10000,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize settings cache: %w", err)
	}
	return &SettingsCache{next: next, cache: c, ttl: ttl}, nil
}

func settingsKey(userID int64) string {
	return "settings:" + strconv.FormatInt(userID, 10)
}

// Settings returns the cached settings of userID, loading them once per key on a miss.
// The returned value is shared; callers must not modify it.
func (c *SettingsCache) Settings(ctx context.Context, userID int64) (*notification.Settings, error) {
	key := settingsKey(userID)
	if v, ok := c.cache.Get(key); ok {
		return v.(*notification.Settings), nil
	}
	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		s, err := c.next.Settings(ctx, userID)
		if err != nil {
			return nil, err
		}
		c.cache.SetWithTTL(key, s, 1, c.ttl)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*notification.Settings), nil
}

// Wait blocks until pending writes are visible to Get.
func (c *SettingsCache) Wait() { c.cache.Wait() }

func (c *SettingsCache) Close() { c.cache.Close() }
