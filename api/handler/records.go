package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/nepse/config"
	"github.com/use-agent/nepse/models"
	"github.com/use-agent/nepse/scraper"
	"github.com/use-agent/nepse/sources"
)

// RecordScraper is what the record handlers need from the scraper.
type RecordScraper interface {
	Scrape(ctx context.Context, req models.ScrapeRequest) (*scraper.Result, error)
}

// Records returns a handler for GET /api/<source>.
//
// Query parameters limit and pages are optional positive integers, clamped
// to the configured maxima. Single-page sources ignore pages. A scrape that
// stopped early still answers 200 with whatever was gathered.
func Records(sc RecordScraper, src *sources.Source, cfg config.ScraperConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ── 1. Parse bounds ─────────────────────────────────────────
		req := models.ScrapeRequest{Source: src.ID}
		var err error
		if req.Limit, err = positiveQuery(c, "limit"); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), nil))
			return
		}
		if !src.SinglePage {
			if req.MaxPages, err = positiveQuery(c, "pages"); err != nil {
				respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), nil))
				return
			}
		}
		req.Clamp(cfg.MaxLimit, cfg.MaxPages)

		// ── 2. Scrape (or cache hit) ────────────────────────────────
		res, err := sc.Scrape(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}

		// ── 3. Respond ──────────────────────────────────────────────
		data := res.Records
		if data == nil {
			data = []models.Record{}
		}
		c.JSON(http.StatusOK, models.RecordsResponse{
			Success:      true,
			Data:         data,
			TotalRecords: len(data),
			Cached:       res.Cached,
		})
	}
}

// positiveQuery reads an optional positive integer parameter.
func positiveQuery(c *gin.Context, name string) (*int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return &n, nil
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// the error envelope.
func respondError(c *gin.Context, err error) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, "internal error", err)
	}
	c.JSON(mapErrorToStatus(scrapeErr), scrapeErr.ToResponse())
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeInitialLoad:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	default:
		return http.StatusInternalServerError // 500
	}
}
