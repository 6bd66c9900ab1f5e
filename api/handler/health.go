package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/nepse/models"
)

// CacheSizer reports how many entries the cache holds.
type CacheSizer interface {
	Len() int
}

// Health returns a handler for GET /api/health.
func Health(cc CacheSizer, driverName, version string, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:       "healthy",
			Uptime:       time.Since(startTime).Round(time.Second).String(),
			Driver:       driverName,
			CacheEntries: cc.Len(),
			Version:      version,
		})
	}
}
