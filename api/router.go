package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/use-agent/nepse/api/handler"
	"github.com/use-agent/nepse/api/middleware"
	"github.com/use-agent/nepse/config"
	"github.com/use-agent/nepse/sources"
)

// Version is reported by the health endpoint.
var Version = "0.1.0"

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Scraper    handler.RecordScraper
	Cache      handler.CacheSizer
	DriverName string

	// Registry lists the routed sources. Nil means sources.Default().
	Registry *sources.Registry

	// Gatherer backs the metrics endpoint. Nil disables it.
	Gatherer prometheus.Gatherer

	StartTime time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → RequestID → Logger
//	Records: RateLimit
//
// Health and metrics sit outside the rate limit so probes always work.
func NewRouter(d Deps, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(slog.Default()))

	api := r.Group("/api")
	api.GET("/health", handler.Health(d.Cache, d.DriverName, Version, d.StartTime))

	registry := d.Registry
	if registry == nil {
		registry = sources.Default()
	}
	records := api.Group("")
	records.Use(middleware.RateLimit(cfg.RateLimit))
	for _, src := range registry.All() {
		records.GET("/"+string(src.ID), handler.Records(d.Scraper, src, cfg.Scraper))
	}

	if cfg.Metrics.Enabled && d.Gatherer != nil {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	return r
}
