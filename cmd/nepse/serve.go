package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/use-agent/nepse/api"
	"github.com/use-agent/nepse/cache"
	"github.com/use-agent/nepse/metrics"
	"github.com/use-agent/nepse/scraper"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve()
		},
	}
}

func serve() error {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg, err := loadConfig(os.Stdout)
	if err != nil {
		return err
	}
	slog.Info("nepse starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"driver", cfg.Browser.Driver,
	)

	registry, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	// ── 2. Launch page driver ───────────────────────────────────────
	launcher, err := newLauncher(cfg.Browser)
	if err != nil {
		return fmt.Errorf("start page driver: %w", err)
	}
	defer launcher.Close()

	// ── 3. Cache + janitor ──────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cc := cache.New()
	if cfg.Cache.JanitorInterval > 0 {
		go cc.RunJanitor(ctx, cfg.Cache.JanitorInterval)
	}

	// ── 4. Metrics ──────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// ── 5. Scraper + router ─────────────────────────────────────────
	sc := scraper.New(launcher, cc, registry, cfg.Scraper, scraper.WithMetrics(m))
	router := api.NewRouter(api.Deps{
		Scraper:    sc,
		Cache:      cc,
		DriverName: launcher.Name(),
		Registry:   registry,
		Gatherer:   reg,
		StartTime:  time.Now(),
	}, cfg)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	// In-flight scrapes can take a while; give them the initial wait.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Scraper.InitialWait)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// launcher.Close() runs via defer and kills Chrome.
	slog.Info("nepse stopped")
	return nil
}
