package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"github.com/use-agent/nepse/models"
)

// entry holds a cached record sequence with its absolute expiry.
// Entries are replaced whole, never mutated.
type entry struct {
	records []models.Record
	expiry  time.Time
}

// Cache is an in-memory key/value store with per-entry expiry.
// It is safe for concurrent use. There is no size bound: entries leave
// the cache only when they expire.
type Cache struct {
	mu    sync.Mutex
	store map[string]*entry
	now   func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		store: make(map[string]*entry),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key derives the cache key for a request. Absent bounds are encoded as "-"
// so that "no limit" never collides with an explicit value.
func Key(req models.ScrapeRequest) string {
	h := sha256.New()
	h.Write([]byte(req.Source))
	h.Write([]byte("|"))
	h.Write([]byte(bound(req.Limit)))
	h.Write([]byte("|"))
	h.Write([]byte(bound(req.MaxPages)))
	return hex.EncodeToString(h.Sum(nil))
}

func bound(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

// Get returns the cached records if the current time is strictly before the
// entry's expiry. An expired entry is evicted and reported as a miss.
func (c *Cache) Get(key string) ([]models.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.store[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiry) {
		delete(c.store, key)
		return nil, false
	}
	return e.records, true
}

// Put stores records under key until now+ttl, overwriting any prior entry.
func (c *Cache) Put(key string, records []models.Record, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[key] = &entry{
		records: records,
		expiry:  c.now().Add(ttl),
	}
}

// Len reports the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.store)
}

// Sweep evicts every expired entry and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.store {
		if !now.Before(e.expiry) {
			delete(c.store, k)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps expired entries every interval until ctx is done.
func (c *Cache) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}
