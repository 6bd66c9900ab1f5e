package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveScrape(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveScrape("floor-sheet", "page-cap-reached", 3, 60, 2*time.Second)
	m.ObserveScrape("floor-sheet", "end-of-data", 1, 7, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.scrapesTotal.WithLabelValues("floor-sheet", "page-cap-reached")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.pagesVisited.WithLabelValues("floor-sheet")))
	assert.Equal(t, 67.0, testutil.ToFloat64(m.recordsTotal.WithLabelValues("floor-sheet")))
}

func TestCacheLookupAndInFlight(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.CacheLookup("top-gainers", true)
	m.CacheLookup("top-gainers", false)
	m.CacheLookup("top-gainers", false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("top-gainers", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("top-gainers", "miss")))

	done := m.TrackInFlight("top-gainers")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight.WithLabelValues("top-gainers")))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight.WithLabelValues("top-gainers")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveScrape("x", "no-data", 1, 0, time.Second)
		m.ScrapeFailed("x", "SCRAPE_TIMEOUT")
		m.CacheLookup("x", true)
		m.TrackInFlight("x")()
	})
}
