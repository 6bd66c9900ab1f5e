package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Metrics   MetricsConfig

	// Sources overrides per-source settings, keyed by source slug.
	Sources map[string]SourceOverride
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the page driver.
type BrowserConfig struct {
	// Driver selects the page driver: "rod" (headless Chromium) or "http"
	// (server-rendered HTML). default: "rod"
	Driver string

	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// DefaultProxy is the proxy URL for all sessions.
	DefaultProxy string

	// Stealth injects go-rod/stealth evasions into every session.
	Stealth bool // default: true

	// BlockAds drops requests to known analytics/ad hosts.
	BlockAds bool // default: true

	// BlockedResourceTypes lists resource types the browser never loads.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string

	// AcceptLanguage is sent with every request.
	AcceptLanguage string // default: "en-US,en;q=0.9"

	// ClickWait bounds how long a click may take to produce new rows.
	ClickWait time.Duration // default: 10s
}

// ScraperConfig controls the pagination engine.
type ScraperConfig struct {
	// InitialWait bounds the wait for the first page's rows.
	InitialWait time.Duration // default: 30s

	// NavigationTimeout bounds the initial navigation and each
	// post-click wait for rows.
	NavigationTimeout time.Duration // default: 15s

	// MaxLimit clamps the limit query parameter.
	MaxLimit int // default: 1000

	// MaxPages clamps the pages query parameter.
	MaxPages int // default: 20

	// ClipOnAppend trims each page batch to the remaining limit as it is
	// appended instead of truncating once when pagination stops.
	ClipOnAppend bool // default: false
}

// CacheConfig controls the TTL cache.
type CacheConfig struct {
	// JanitorInterval is how often expired entries are swept. 0 disables it.
	JanitorInterval time.Duration // default: 1m
}

// RateLimitConfig controls per-client rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client IP.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per client IP.
	Burst int // default: 5
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   // default: true
	Path    string // default: "/metrics"
}

// SourceOverride replaces parts of a built-in source definition.
type SourceOverride struct {
	URL string        `yaml:"url"`
	TTL time.Duration `yaml:"ttl"`
}

// Load reads configuration from environment variables with sane defaults.
// If NEPSE_CONFIG names a YAML file, it is applied on top.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: envOr("NEPSE_HOST", "0.0.0.0"),
			Port: envIntOr("NEPSE_PORT", 8080),
			Mode: envOr("NEPSE_MODE", "release"),
		},
		Browser: BrowserConfig{
			Driver:       envOr("NEPSE_DRIVER", "rod"),
			Headless:     envBoolOr("NEPSE_HEADLESS", true),
			NoSandbox:    envBoolOr("NEPSE_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("NEPSE_BROWSER_BIN"),
			DefaultProxy: os.Getenv("NEPSE_PROXY"),
			Stealth:      envBoolOr("NEPSE_STEALTH", true),
			BlockAds:     envBoolOr("NEPSE_BLOCK_ADS", true),
			BlockedResourceTypes: envSliceOr("NEPSE_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
			AcceptLanguage: envOr("NEPSE_ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
			ClickWait:      envDurationOr("NEPSE_CLICK_WAIT", 10*time.Second),
		},
		Scraper: ScraperConfig{
			InitialWait:       envDurationOr("NEPSE_INITIAL_WAIT", 30*time.Second),
			NavigationTimeout: envDurationOr("NEPSE_NAV_TIMEOUT", 15*time.Second),
			MaxLimit:          envIntOr("NEPSE_MAX_LIMIT", 1000),
			MaxPages:          envIntOr("NEPSE_MAX_PAGES", 20),
			ClipOnAppend:      envBoolOr("NEPSE_CLIP_ON_APPEND", false),
		},
		Cache: CacheConfig{
			JanitorInterval: envDurationOr("NEPSE_CACHE_JANITOR", time.Minute),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("NEPSE_RATE_RPS", 2.0),
			Burst:             envIntOr("NEPSE_RATE_BURST", 5),
		},
		Log: LogConfig{
			Level:  envOr("NEPSE_LOG_LEVEL", "info"),
			Format: envOr("NEPSE_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: envBoolOr("NEPSE_METRICS", true),
			Path:    envOr("NEPSE_METRICS_PATH", "/metrics"),
		},
		Sources: map[string]SourceOverride{},
	}

	// Per-source TTLs, e.g. NEPSE_TTL_LIVE_TRADING=30s.
	for _, slug := range []string{"todays-price", "live-trading", "top-gainers", "floor-sheet"} {
		key := "NEPSE_TTL_" + strings.ToUpper(strings.ReplaceAll(slug, "-", "_"))
		if v := envDurationOr(key, 0); v > 0 {
			o := cfg.Sources[slug]
			o.TTL = v
			cfg.Sources[slug] = o
		}
	}

	if path := os.Getenv("NEPSE_CONFIG"); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
