package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/nepse/driver"
	"github.com/use-agent/nepse/models"
	"github.com/use-agent/nepse/sources"
)

// StopReason is the terminal condition that ended a pagination run.
type StopReason string

const (
	StopLimitReached     StopReason = "limit-reached"
	StopPageCapReached   StopReason = "page-cap-reached"
	StopNoData           StopReason = "no-data"
	StopEndOfData        StopReason = "end-of-data"
	StopNavigationFailed StopReason = "navigation-failed"
)

// Bounds are the stopping conditions of one run. Zero means unbounded.
type Bounds struct {
	Limit    int
	MaxPages int
}

func boundsOf(req models.ScrapeRequest) Bounds {
	var b Bounds
	if req.Limit != nil {
		b.Limit = *req.Limit
	}
	if req.MaxPages != nil {
		b.MaxPages = *req.MaxPages
	}
	return b
}

// Outcome is what a pagination run produced.
type Outcome struct {
	Records []models.Record

	// Pages counts successful page extractions, the empty last page included.
	Pages int

	Stop StopReason
}

// Paginator drives a session through successive table pages.
//
// The initial navigation is the caller's job. Run starts on page 1 and loops
// extract → decide → navigate until a stop condition holds. Only a failure to
// extract page 1 is returned as an error; every later failure ends the run
// with StopNavigationFailed and whatever was gathered so far.
type Paginator struct {
	// NavigationTimeout bounds the wait for rows after each click.
	NavigationTimeout time.Duration

	// ClipOnAppend trims each batch to the remaining limit when appending
	// instead of truncating once at the end. The result is the same length
	// either way.
	ClipOnAppend bool

	// Now stamps records at normalization time. Defaults to time.Now.
	Now func() time.Time
}

// Run paginates src on drv within b.
func (p *Paginator) Run(ctx context.Context, drv driver.Driver, src *sources.Source, b Bounds) (*Outcome, error) {
	now := p.Now
	if now == nil {
		now = time.Now
	}
	log := slog.With("source", src.ID)

	var acc []models.Record
	page := 1
	for {
		// EXTRACT
		rows, err := drv.ExtractRows(ctx, src.Table)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("extract page 1: %w", err)
			}
			log.Warn("page extraction failed, returning partial result", "page", page, "error", err)
			return p.stop(acc, page-1, StopNavigationFailed, b), nil
		}
		if len(rows) == 0 {
			return p.stop(acc, page, StopNoData, b), nil
		}

		batch := make([]models.Record, 0, len(rows))
		for _, row := range rows {
			batch = append(batch, src.Normalize(row, now()))
		}

		// DECIDE
		if p.ClipOnAppend && b.Limit > 0 {
			if room := b.Limit - len(acc); len(batch) > room {
				batch = batch[:room]
			}
		}
		acc = append(acc, batch...)
		log.Debug("page extracted", "page", page, "rows", len(rows), "total", len(acc))

		if b.Limit > 0 && len(acc) >= b.Limit {
			return p.stop(acc, page, StopLimitReached, b), nil
		}
		if b.MaxPages > 0 && page >= b.MaxPages {
			return p.stop(acc, page, StopPageCapReached, b), nil
		}

		// NAVIGATE
		if reason, ok := p.next(ctx, drv, src, page); !ok {
			return p.stop(acc, page, reason, b), nil
		}
		page++
	}
}

// next moves the session to the following page. It reports false with the
// stop reason when there is no usable next control or navigation fails.
func (p *Paginator) next(ctx context.Context, drv driver.Driver, src *sources.Source, page int) (StopReason, bool) {
	log := slog.With("source", src.ID, "page", page)
	if len(src.NextSelectors) == 0 {
		return StopEndOfData, false
	}

	ctl, err := drv.FindNextControl(ctx, src.NextSelectors)
	if err != nil {
		log.Warn("next control lookup failed", "error", err)
		return StopNavigationFailed, false
	}
	if ctl == nil {
		return StopEndOfData, false
	}

	disabled, err := drv.IsDisabled(ctx, ctl)
	if err != nil {
		log.Warn("next control state unreadable", "selector", ctl.Selector(), "error", err)
		return StopNavigationFailed, false
	}
	if disabled {
		return StopEndOfData, false
	}

	if err := drv.Click(ctx, ctl); err != nil {
		log.Warn("next control click failed", "selector", ctl.Selector(), "error", err)
		return StopNavigationFailed, false
	}
	if err := drv.WaitForSelector(ctx, src.Table.Rows(), p.NavigationTimeout); err != nil {
		log.Warn("next page rows did not appear", "timeout", p.NavigationTimeout, "error", err)
		return StopNavigationFailed, false
	}
	return "", true
}

func (p *Paginator) stop(acc []models.Record, pages int, reason StopReason, b Bounds) *Outcome {
	if b.Limit > 0 && len(acc) > b.Limit {
		acc = acc[:b.Limit]
	}
	return &Outcome{Records: acc, Pages: pages, Stop: reason}
}
