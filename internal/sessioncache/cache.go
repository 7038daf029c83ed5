// Package sessioncache keeps today's manual biometric override in memory so
// it survives a profile refresh that has not reached storage yet.
package sessioncache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/geabd1/StressForecastingAppplication/internal/models"
)

const (
	defaultSize = 64
	defaultTTL  = 24 * time.Hour
)

// Cache maps user ids to their most recent manual override. Entries expire
// after the TTL and are only served on the day they were written.
type Cache struct {
	entries *expirable.LRU[string, models.ManualBiometrics]
	now     func() time.Time
}

func New(size int, ttl time.Duration, now func() time.Time) *Cache {
	if size <= 0 {
		size = defaultSize
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries: expirable.NewLRU[string, models.ManualBiometrics](size, nil, ttl),
		now:     now,
	}
}

func (c *Cache) Put(userID string, m models.ManualBiometrics) {
	c.entries.Add(userID, m)
}

// Today returns the cached override for userID if it was recorded today.
func (c *Cache) Today(userID string) (models.ManualBiometrics, bool) {
	m, ok := c.entries.Get(userID)
	if !ok {
		return models.ManualBiometrics{}, false
	}
	now := c.now()
	if !models.SameDay(m.Timestamp, now, now.Location()) {
		return models.ManualBiometrics{}, false
	}
	return m, true
}

func (c *Cache) Remove(userID string) {
	c.entries.Remove(userID)
}

func (c *Cache) Purge() {
	c.entries.Purge()
}
