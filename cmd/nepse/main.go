package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/use-agent/nepse/api"
	"github.com/use-agent/nepse/config"
	"github.com/use-agent/nepse/driver"
	"github.com/use-agent/nepse/sources"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "nepse",
		Short:   "Scrape paginated NEPSE market tables",
		Version: version,
		Long: `nepse extracts market tables (today's prices, live trading, top gainers,
floor sheet) from the exchange website, following "next page" controls until
a record limit, page cap or the end of the data is reached.`,
		Example: `  # Serve the HTTP API
  nepse serve

  # One-shot scrape of the first 50 floor-sheet rows as Markdown
  nepse scrape floor-sheet --limit 50 -f markdown

  # Today's prices across 3 pages into a spreadsheet
  nepse scrape todays-price --pages 3 -o prices.xlsx`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newScrapeCmd(), newSourcesCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads configuration and configures logging to w.
func loadConfig(w io.Writer) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	initLogger(cfg.Log, w)
	api.Version = version
	return cfg, nil
}

// loadRegistry builds the source registry with configured overrides.
func loadRegistry(cfg *config.Config) (*sources.Registry, error) {
	reg := sources.Default()
	if err := reg.Apply(cfg.Sources); err != nil {
		return nil, err
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

// newLauncher starts the configured page driver.
func newLauncher(cfg config.BrowserConfig) (driver.Launcher, error) {
	switch cfg.Driver {
	case "rod", "":
		return driver.NewRodLauncher(cfg)
	case "http":
		return driver.NewHTTPLauncher(cfg), nil
	default:
		return nil, fmt.Errorf("unknown driver %q (want rod or http)", cfg.Driver)
	}
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig, w io.Writer) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}
