package models

import "fmt"

// ScrapeRequest selects a source and its optional stopping bounds.
// A nil Limit or MaxPages means that dimension is unbounded.
type ScrapeRequest struct {
	Source Source

	// Limit caps the number of records returned.
	Limit *int

	// MaxPages caps the number of pages visited.
	MaxPages *int
}

// Validate rejects unknown sources and non-positive bounds.
func (r *ScrapeRequest) Validate() error {
	if _, err := ParseSource(string(r.Source)); err != nil {
		return NewScrapeError(ErrCodeInvalidInput, err.Error(), nil)
	}
	if r.Limit != nil && *r.Limit <= 0 {
		return NewScrapeError(ErrCodeInvalidInput, fmt.Sprintf("limit must be positive, got %d", *r.Limit), nil)
	}
	if r.MaxPages != nil && *r.MaxPages <= 0 {
		return NewScrapeError(ErrCodeInvalidInput, fmt.Sprintf("pages must be positive, got %d", *r.MaxPages), nil)
	}
	return nil
}

// Clamp lowers the bounds to the given maxima. Zero maxima are ignored.
func (r *ScrapeRequest) Clamp(maxLimit, maxPages int) {
	if r.Limit != nil && maxLimit > 0 && *r.Limit > maxLimit {
		r.Limit = IntPtr(maxLimit)
	}
	if r.MaxPages != nil && maxPages > 0 && *r.MaxPages > maxPages {
		r.MaxPages = IntPtr(maxPages)
	}
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
