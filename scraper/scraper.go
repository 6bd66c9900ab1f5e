package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/nepse/cache"
	"github.com/use-agent/nepse/config"
	"github.com/use-agent/nepse/driver"
	"github.com/use-agent/nepse/metrics"
	"github.com/use-agent/nepse/models"
	"github.com/use-agent/nepse/sources"
)

// Result is the outcome of a Scrape call.
type Result struct {
	Source  models.Source
	Records []models.Record

	// Cached reports that Records came from the cache; Pages and
	// StopReason are then zero.
	Cached bool

	Pages      int
	StopReason StopReason
}

// Scraper composes page sessions, the paginator and the cache. It is safe
// for concurrent use: each call opens its own session, and the cache is the
// only shared state.
type Scraper struct {
	launcher  driver.Launcher
	cache     *cache.Cache
	registry  *sources.Registry
	cfg       config.ScraperConfig
	paginator *Paginator
	metrics   *metrics.Metrics
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithMetrics records scrape metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scraper) { s.metrics = m }
}

// WithClock replaces the record timestamp clock.
func WithClock(now func() time.Time) Option {
	return func(s *Scraper) { s.paginator.Now = now }
}

// New creates a Scraper.
func New(l driver.Launcher, c *cache.Cache, reg *sources.Registry, cfg config.ScraperConfig, opts ...Option) *Scraper {
	s := &Scraper{
		launcher: l,
		cache:    c,
		registry: reg,
		cfg:      cfg,
		paginator: &Paginator{
			NavigationTimeout: cfg.NavigationTimeout,
			ClipOnAppend:      cfg.ClipOnAppend,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape returns the records for req, from the cache when a fresh entry
// exists. It fails only when the source's first page cannot be loaded; the
// error is then a *models.ScrapeError wrapping the cause.
//
// Lifecycle of a cache miss:
//
//  1. Open session        – fresh, unshared page
//  2. DEFER: close        – on every exit path, including early failure
//  3. Navigate            – bounded by NavigationTimeout
//  4. Wait for rows       – bounded by InitialWait
//  5. Paginate            – every stop reason is a success
//  6. Cache store         – with the source TTL, whatever the stop reason
//
// Cancellation of ctx is ignored; only the per-step timeouts bound a run.
// A caller that goes away must not leave a truncated result in the cache.
func (s *Scraper) Scrape(ctx context.Context, req models.ScrapeRequest) (*Result, error) {
	ctx = context.WithoutCancel(ctx)

	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.Source, _ = models.ParseSource(string(req.Source))
	src, err := s.registry.Lookup(req.Source)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), nil)
	}
	if src.SinglePage {
		req.MaxPages = models.IntPtr(1)
	}

	key := cache.Key(req)
	if records, ok := s.cache.Get(key); ok {
		s.metrics.CacheLookup(string(src.ID), true)
		slog.Debug("cache hit", "source", src.ID, "records", len(records))
		return &Result{Source: src.ID, Records: records, Cached: true}, nil
	}
	s.metrics.CacheLookup(string(src.ID), false)

	out, err := s.scrape(ctx, src, boundsOf(req))
	if err != nil {
		var se *models.ScrapeError
		if errors.As(err, &se) {
			s.metrics.ScrapeFailed(string(src.ID), se.Code)
		}
		return nil, err
	}

	s.cache.Put(key, out.Records, src.TTL)
	return &Result{
		Source:     src.ID,
		Records:    out.Records,
		Pages:      out.Pages,
		StopReason: out.Stop,
	}, nil
}

func (s *Scraper) scrape(ctx context.Context, src *sources.Source, b Bounds) (*Outcome, error) {
	start := time.Now()
	defer s.metrics.TrackInFlight(string(src.ID))()

	// ── 1. Open session ─────────────────────────────────────────────
	session, err := s.launcher.NewSession(ctx)
	if err != nil {
		return nil, categorizeError(err, "failed to open page session")
	}

	// ── 2. Guarantee release ────────────────────────────────────────
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("session close failed", "source", src.ID, "error", err)
		}
	}()

	// ── 3. Navigate ─────────────────────────────────────────────────
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	err = session.Goto(navCtx, src.URL)
	cancel()
	if err != nil {
		return nil, categorizeError(err, fmt.Sprintf("navigation to %s failed", src.URL))
	}

	// ── 4. Wait for the initial table ───────────────────────────────
	if err := session.WaitForSelector(ctx, src.Table.Rows(), s.cfg.InitialWait); err != nil {
		return nil, categorizeError(err, "table rows never appeared")
	}

	// ── 5. Paginate ─────────────────────────────────────────────────
	out, err := s.paginator.Run(ctx, session, src, b)
	if err != nil {
		return nil, categorizeError(err, "failed to read first page")
	}

	elapsed := time.Since(start)
	slog.Info("scrape finished",
		"source", src.ID,
		"stop", out.Stop,
		"pages", out.Pages,
		"records", len(out.Records),
		"elapsed", elapsed.Round(time.Millisecond),
	)
	s.metrics.ObserveScrape(string(src.ID), string(out.Stop), out.Pages, len(out.Records), elapsed)
	return out, nil
}

// categorizeError wraps raw errors into typed ScrapeErrors so the API layer
// can map them to appropriate HTTP status codes.
func categorizeError(err error, msg string) *models.ScrapeError {
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return se
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeInitialLoad, msg, err)
	}
}
