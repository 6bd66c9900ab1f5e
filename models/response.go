package models

// RecordsResponse is the envelope for the /api/<source> endpoints.
type RecordsResponse struct {
	Success      bool     `json:"success"`
	Data         []Record `json:"data"`
	TotalRecords int      `json:"totalRecords"`

	// Cached is set only when the data came from the cache.
	Cached bool `json:"cached,omitempty"`
}

// ErrorResponse is the envelope written on failure.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// HealthResponse is the response for GET /api/health.
type HealthResponse struct {
	Status       string `json:"status"`
	Uptime       string `json:"uptime"`
	Driver       string `json:"driver"`
	CacheEntries int    `json:"cache_entries"`
	Version      string `json:"version"`
}
