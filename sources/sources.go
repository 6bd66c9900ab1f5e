// Package sources defines the four market tables: where they live, how to
// find their rows and "next" controls, and how to normalize their cells.
package sources

import (
	"fmt"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/use-agent/nepse/config"
	"github.com/use-agent/nepse/driver"
	"github.com/use-agent/nepse/models"
)

// Source is the complete description of one feed. The pagination loop is
// the same for every source; only these fields vary.
type Source struct {
	ID  models.Source
	URL string

	Table driver.TableSpec

	// NextSelectors are tried in order to find the "next page" control.
	NextSelectors []string

	// Columns are the JSON field names of the record, in table order.
	Columns []string

	Normalize Normalizer

	// TTL is how long a scrape of this source stays cached.
	TTL time.Duration

	// SinglePage sources never paginate.
	SinglePage bool
}

// Registry maps source IDs to definitions.
type Registry struct {
	sources map[models.Source]*Source
}

// Default returns the built-in definitions. Live data gets a one minute
// freshness window; end-of-day tables get five minutes.
func Default() *Registry {
	bootstrapNext := []string{
		`li.pagination-next:not(.disabled) a`,
		`li.pagination-next a`,
		`a[aria-label="Next"]`,
		`.pagination a.next`,
	}

	return NewRegistry(
		&Source{
			ID:            models.SourceTodaysPrice,
			URL:           "https://www.nepalstock.com/today-price",
			Table:         driver.TableSpec{Selector: "table.table"},
			NextSelectors: bootstrapNext,
			Columns: []string{"sn", "symbol", "ltp", "change", "percentChange",
				"open", "high", "low", "volume", "previousClose", "timestamp"},
			Normalize: normalizeTodaysPrice,
			TTL:       5 * time.Minute,
		},
		&Source{
			ID:            models.SourceLiveTrading,
			URL:           "https://www.nepalstock.com/live-market",
			Table:         driver.TableSpec{Selector: "table.table"},
			NextSelectors: []string{`li.pagination-next a`, `button.next`},
			Columns: []string{"symbol", "ltp", "change", "percentChange",
				"volume", "high", "low", "timestamp"},
			Normalize: normalizeLiveTrading,
			TTL:       time.Minute,
		},
		&Source{
			ID:         models.SourceTopGainers,
			URL:        "https://www.nepalstock.com/top-ten/top-gainer",
			Table:      driver.TableSpec{Selector: "table.table"},
			Columns:    []string{"symbol", "ltp", "change", "percentChange", "timestamp"},
			Normalize:  normalizeTopGainer,
			TTL:        time.Minute,
			SinglePage: true,
		},
		&Source{
			ID:            models.SourceFloorSheet,
			URL:           "https://www.nepalstock.com/floor-sheet",
			Table:         driver.TableSpec{Selector: "table.table"},
			NextSelectors: []string{`li.pagination-next a`, `a[aria-label="Next"]`},
			Columns: []string{"pageSn", "contractNo", "symbol", "buyerMemberId",
				"sellerMemberId", "quantity", "rate", "amount", "timestamp"},
			Normalize: normalizeFloorSheet,
			TTL:       5 * time.Minute,
		},
	)
}

// NewRegistry builds a registry from explicit definitions.
func NewRegistry(defs ...*Source) *Registry {
	r := &Registry{sources: make(map[models.Source]*Source, len(defs))}
	for _, d := range defs {
		r.sources[d.ID] = d
	}
	return r
}

// Lookup returns the definition for id.
func (r *Registry) Lookup(id models.Source) (*Source, error) {
	s, ok := r.sources[id]
	if !ok {
		return nil, fmt.Errorf("source %q is not registered", id)
	}
	return s, nil
}

// All returns the registered sources in models.Sources order.
func (r *Registry) All() []*Source {
	out := make([]*Source, 0, len(r.sources))
	for _, id := range models.Sources {
		if s, ok := r.sources[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Apply replaces URLs and TTLs from configuration overrides.
func (r *Registry) Apply(overrides map[string]config.SourceOverride) error {
	for slug, o := range overrides {
		id, err := models.ParseSource(slug)
		if err != nil {
			return fmt.Errorf("sources: override: %w", err)
		}
		s, ok := r.sources[id]
		if !ok {
			continue
		}
		if o.URL != "" {
			s.URL = o.URL
		}
		if o.TTL > 0 {
			s.TTL = o.TTL
		}
	}
	return nil
}

// Validate checks every selector compiles, so a typo fails at startup
// rather than as a silent empty page.
func (r *Registry) Validate() error {
	for _, s := range r.All() {
		if s.Normalize == nil {
			return fmt.Errorf("sources: %s has no normalizer", s.ID)
		}
		if s.TTL <= 0 {
			return fmt.Errorf("sources: %s has non-positive ttl %s", s.ID, s.TTL)
		}
		selectors := append([]string{s.Table.Selector, s.Table.Rows()}, s.NextSelectors...)
		for _, sel := range selectors {
			if _, err := cascadia.Compile(sel); err != nil {
				return fmt.Errorf("sources: %s: selector %q: %w", s.ID, sel, err)
			}
		}
	}
	return nil
}
