package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/use-agent/nepse/cache"
	"github.com/use-agent/nepse/models"
	"github.com/use-agent/nepse/render"
	"github.com/use-agent/nepse/scraper"
)

type scrapeFlags struct {
	limit  int
	pages  int
	format string
	output string
}

func newScrapeCmd() *cobra.Command {
	var f scrapeFlags
	cmd := &cobra.Command{
		Use:       "scrape <source>",
		Short:     "Scrape one source once and print the records",
		Args:      cobra.ExactArgs(1),
		ValidArgs: sourceSlugs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd.Context(), args[0], f, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 0, "Maximum records to return (0 for no limit)")
	cmd.Flags().IntVar(&f.pages, "pages", 0, "Maximum pages to visit (0 for no limit)")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Output format: json, markdown or xlsx (inferred from -o when empty)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func runScrape(ctx context.Context, slug string, f scrapeFlags, stdout io.Writer) error {
	format, err := resolveFormat(f.format, f.output)
	if err != nil {
		return err
	}
	source, err := models.ParseSource(slug)
	if err != nil {
		return err
	}
	req := models.ScrapeRequest{Source: source}
	if f.limit > 0 {
		req.Limit = models.IntPtr(f.limit)
	}
	if f.pages > 0 {
		req.MaxPages = models.IntPtr(f.pages)
	}

	// Logs go to stderr so stdout stays clean for the records.
	cfg, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}
	registry, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	src, err := registry.Lookup(source)
	if err != nil {
		return err
	}

	launcher, err := newLauncher(cfg.Browser)
	if err != nil {
		return fmt.Errorf("start page driver: %w", err)
	}
	defer launcher.Close()

	res, err := scraper.New(launcher, cache.New(), registry, cfg.Scraper).Scrape(ctx, req)
	if err != nil {
		return err
	}

	out := stdout
	if f.output != "" {
		file, err := os.Create(f.output)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(models.RecordsResponse{
			Success:      true,
			Data:         res.Records,
			TotalRecords: len(res.Records),
		})
	case "markdown":
		tbl, err := render.FromRecords(src.Columns, res.Records)
		if err != nil {
			return err
		}
		md, err := render.NewMarkdown().Render(fmt.Sprintf("%s (%d records)", src.ID, len(res.Records)), tbl)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, md)
		return err
	default:
		tbl, err := render.FromRecords(src.Columns, res.Records)
		if err != nil {
			return err
		}
		return render.WriteXLSX(out, string(src.ID), tbl)
	}
}

// resolveFormat picks the output format, inferring it from the output file
// extension when no format was given.
func resolveFormat(format, output string) (string, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(output)) {
		case ".md", ".markdown":
			format = "markdown"
		case ".xlsx":
			format = "xlsx"
		default:
			format = "json"
		}
	}
	switch format {
	case "json", "markdown", "xlsx":
		return format, nil
	case "md":
		return "markdown", nil
	default:
		return "", fmt.Errorf("unsupported format %q (want json, markdown or xlsx)", format)
	}
}

func sourceSlugs() []string {
	out := make([]string, len(models.Sources))
	for i, s := range models.Sources {
		out[i] = string(s)
	}
	return out
}
