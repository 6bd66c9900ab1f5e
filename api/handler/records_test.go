package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/nepse/config"
	"github.com/use-agent/nepse/models"
	"github.com/use-agent/nepse/scraper"
	"github.com/use-agent/nepse/sources"
)

func init() { gin.SetMode(gin.TestMode) }

type stubScraper struct {
	got models.ScrapeRequest
	res *scraper.Result
	err error
}

func (s *stubScraper) Scrape(_ context.Context, req models.ScrapeRequest) (*scraper.Result, error) {
	s.got = req
	return s.res, s.err
}

var testLimits = config.ScraperConfig{MaxLimit: 100, MaxPages: 5}

func source(t *testing.T, id models.Source) *sources.Source {
	t.Helper()
	src, err := sources.Default().Lookup(id)
	require.NoError(t, err)
	return src
}

func serve(t *testing.T, h gin.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.GET("/api/:source", h)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

type envelope struct {
	Success      bool              `json:"success"`
	Data         []json.RawMessage `json:"data"`
	TotalRecords int               `json:"totalRecords"`
	Cached       *bool             `json:"cached"`
	Error        string            `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestRecordsSuccess(t *testing.T) {
	at := time.Date(2025, 3, 14, 11, 0, 0, 0, time.UTC)
	sc := &stubScraper{res: &scraper.Result{Records: []models.Record{
		models.TodaysPrice{SN: "1", Symbol: "NABIL", Timestamp: at},
		models.TodaysPrice{SN: "2", Symbol: "NICA", Timestamp: at},
	}}}

	rec := serve(t, Records(sc, source(t, models.SourceTodaysPrice), testLimits), "/api/todays-price?limit=2&pages=1")
	require.Equal(t, http.StatusOK, rec.Code)

	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, 2, env.TotalRecords)
	require.Len(t, env.Data, 2)
	assert.JSONEq(t,
		`{"sn":"1","symbol":"NABIL","ltp":"","change":"","percentChange":"","open":"","high":"","low":"","volume":"","previousClose":"","timestamp":"2025-03-14T11:00:00Z"}`,
		string(env.Data[0]))
	assert.Nil(t, env.Cached, "cached is omitted on a fresh scrape")

	assert.Equal(t, models.SourceTodaysPrice, sc.got.Source)
	assert.Equal(t, 2, *sc.got.Limit)
	assert.Equal(t, 1, *sc.got.MaxPages)
}

func TestRecordsCachedFlag(t *testing.T) {
	sc := &stubScraper{res: &scraper.Result{Cached: true, Records: []models.Record{models.TopGainer{Symbol: "HDL"}}}}

	env := decode(t, serve(t, Records(sc, source(t, models.SourceTopGainers), testLimits), "/api/top-gainers"))
	require.NotNil(t, env.Cached)
	assert.True(t, *env.Cached)
	assert.Nil(t, sc.got.Limit)
	assert.Nil(t, sc.got.MaxPages)
}

func TestRecordsSinglePageIgnoresPages(t *testing.T) {
	sc := &stubScraper{res: &scraper.Result{}}
	rec := serve(t, Records(sc, source(t, models.SourceTopGainers), testLimits), "/api/top-gainers?pages=abc&limit=3")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Nil(t, sc.got.MaxPages)
	assert.Equal(t, 3, *sc.got.Limit)

	sc = &stubScraper{}
	rec = serve(t, Records(sc, source(t, models.SourceTopGainers), testLimits), "/api/top-gainers?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordsEmptyDataIsArray(t *testing.T) {
	sc := &stubScraper{res: &scraper.Result{}}
	rec := serve(t, Records(sc, source(t, models.SourceFloorSheet), testLimits), "/api/floor-sheet")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
	assert.Contains(t, rec.Body.String(), `"totalRecords":0`)
}

func TestRecordsClampsBounds(t *testing.T) {
	sc := &stubScraper{res: &scraper.Result{}}
	serve(t, Records(sc, source(t, models.SourceFloorSheet), testLimits), "/api/floor-sheet?limit=5000&pages=99")

	assert.Equal(t, 100, *sc.got.Limit)
	assert.Equal(t, 5, *sc.got.MaxPages)
}

func TestRecordsRejectsBadBounds(t *testing.T) {
	for _, q := range []string{"limit=abc", "limit=0", "pages=-2", "pages=1.5"} {
		t.Run(q, func(t *testing.T) {
			sc := &stubScraper{}
			rec := serve(t, Records(sc, source(t, models.SourceLiveTrading), testLimits), "/api/live-trading?"+q)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			env := decode(t, rec)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
			assert.Empty(t, sc.got.Source, "scraper must not be called")
		})
	}
}

func TestRecordsErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{models.NewScrapeError(models.ErrCodeTimeout, "table rows never appeared", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{models.NewScrapeError(models.ErrCodeInitialLoad, "navigation failed", errors.New("dns")), http.StatusBadGateway},
		{models.NewScrapeError(models.ErrCodeInvalidInput, "bad", nil), http.StatusBadRequest},
		{models.NewScrapeError(models.ErrCodeBrowserCrash, "gone", nil), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		sc := &stubScraper{err: tt.err}
		rec := serve(t, Records(sc, source(t, models.SourceTodaysPrice), testLimits), "/api/todays-price")

		assert.Equal(t, tt.status, rec.Code, tt.err.Error())
		env := decode(t, rec)
		assert.False(t, env.Success)
		assert.NotEmpty(t, env.Error)
	}
}

func TestRecordsErrorMessageIncludesCause(t *testing.T) {
	sc := &stubScraper{err: models.NewScrapeError(models.ErrCodeInitialLoad, "navigation failed", errors.New("net::ERR_CONNECTION_RESET"))}
	env := decode(t, serve(t, Records(sc, source(t, models.SourceTodaysPrice), testLimits), "/api/todays-price"))
	assert.Equal(t, "navigation failed: net::ERR_CONNECTION_RESET", env.Error)
}

type sizer int

func (s sizer) Len() int { return int(s) }

func TestHealth(t *testing.T) {
	r := gin.New()
	r.GET("/api/health", Health(sizer(3), "rod", "9.9.9", time.Now().Add(-time.Minute)))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "healthy", got.Status)
	assert.Equal(t, "rod", got.Driver)
	assert.Equal(t, 3, got.CacheEntries)
	assert.Equal(t, "9.9.9", got.Version)
	assert.Equal(t, "1m0s", got.Uptime)
}
