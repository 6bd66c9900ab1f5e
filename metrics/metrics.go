// Package metrics exposes Prometheus collectors for the scrape engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nepse"

// Metrics groups the scraper's collectors.
type Metrics struct {
	scrapesTotal   *prometheus.CounterVec
	scrapeFailures *prometheus.CounterVec
	pagesVisited   *prometheus.CounterVec
	recordsTotal   *prometheus.CounterVec
	scrapeDuration *prometheus.HistogramVec
	cacheLookups   *prometheus.CounterVec
	inFlight       *prometheus.GaugeVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		scrapesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrapes_total",
			Help:      "Completed scrapes by source and stop reason.",
		}, []string{"source", "stop_reason"}),
		scrapeFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrape_failures_total",
			Help:      "Scrapes that failed to load their first page.",
		}, []string{"source", "code"}),
		pagesVisited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_visited_total",
			Help:      "Table pages extracted.",
		}, []string{"source"}),
		recordsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records returned by fresh scrapes.",
		}, []string{"source"}),
		scrapeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scrape_duration_seconds",
			Help:      "Wall time of fresh scrapes, session open to close.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"source"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by source and result (hit|miss).",
		}, []string{"source", "result"}),
		inFlight: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scrapes_in_flight",
			Help:      "Scrapes currently holding a page session.",
		}, []string{"source"}),
	}
}

// ObserveScrape records a finished pagination run.
func (m *Metrics) ObserveScrape(source, stopReason string, pages, records int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.scrapesTotal.WithLabelValues(source, stopReason).Inc()
	m.pagesVisited.WithLabelValues(source).Add(float64(pages))
	m.recordsTotal.WithLabelValues(source).Add(float64(records))
	m.scrapeDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ScrapeFailed records an initial-load failure.
func (m *Metrics) ScrapeFailed(source, code string) {
	if m == nil {
		return
	}
	m.scrapeFailures.WithLabelValues(source, code).Inc()
}

// CacheLookup records a cache hit or miss.
func (m *Metrics) CacheLookup(source string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(source, result).Inc()
}

// TrackInFlight increments the in-flight gauge and returns its decrement.
func (m *Metrics) TrackInFlight(source string) func() {
	if m == nil {
		return func() {}
	}
	g := m.inFlight.WithLabelValues(source)
	g.Inc()
	return g.Dec
}
