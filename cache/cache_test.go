package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/nepse/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache() (*Cache, *fakeClock) {
	clk := &fakeClock{now: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)}
	return New(WithClock(clk.Now)), clk
}

func records(symbols ...string) []models.Record {
	out := make([]models.Record, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, models.TopGainer{Symbol: s})
	}
	return out
}

func TestGetBeforeAndAfterExpiry(t *testing.T) {
	c, clk := newTestCache()
	c.Put("k", records("NABIL"), 60000*time.Millisecond)

	clk.Advance(59999 * time.Millisecond)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, records("NABIL"), got)

	clk.Advance(2 * time.Millisecond)
	got, ok = c.Get("k")
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.Equal(t, 0, c.Len(), "expired entry must be evicted on read")
}

func TestGetAtExactExpiryIsMiss(t *testing.T) {
	c, clk := newTestCache()
	c.Put("k", records("NABIL"), time.Minute)

	clk.Advance(time.Minute)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestGetMissingKey(t *testing.T) {
	c, _ := newTestCache()
	_, ok := c.Get("absent")
	assert.False(t, ok)
}

func TestPutOverwritesWholeEntry(t *testing.T) {
	c, clk := newTestCache()
	c.Put("k", records("NABIL", "NICA"), time.Minute)
	clk.Advance(50 * time.Second)
	c.Put("k", records("HIDCL"), time.Minute)

	clk.Advance(30 * time.Second)
	got, ok := c.Get("k")
	require.True(t, ok, "second put restarts the expiry window")
	assert.Equal(t, records("HIDCL"), got)
}

func TestSweep(t *testing.T) {
	c, clk := newTestCache()
	c.Put("short", records("A"), time.Second)
	c.Put("long", records("B"), time.Hour)

	clk.Advance(2 * time.Second)
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())

	_, ok := c.Get("long")
	assert.True(t, ok)
}

func TestRunJanitorStopsWithContext(t *testing.T) {
	c, _ := newTestCache()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.RunJanitor(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}

func TestKey(t *testing.T) {
	base := models.ScrapeRequest{Source: models.SourceTodaysPrice, Limit: models.IntPtr(50), MaxPages: models.IntPtr(3)}
	same := models.ScrapeRequest{Source: models.SourceTodaysPrice, Limit: models.IntPtr(50), MaxPages: models.IntPtr(3)}
	assert.Equal(t, Key(base), Key(same))

	tests := []struct {
		name string
		req  models.ScrapeRequest
	}{
		{"other source", models.ScrapeRequest{Source: models.SourceFloorSheet, Limit: models.IntPtr(50), MaxPages: models.IntPtr(3)}},
		{"no limit", models.ScrapeRequest{Source: models.SourceTodaysPrice, MaxPages: models.IntPtr(3)}},
		{"no pages", models.ScrapeRequest{Source: models.SourceTodaysPrice, Limit: models.IntPtr(50)}},
		{"swapped bounds", models.ScrapeRequest{Source: models.SourceTodaysPrice, Limit: models.IntPtr(3), MaxPages: models.IntPtr(50)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, Key(base), Key(tt.req))
		})
	}
}
