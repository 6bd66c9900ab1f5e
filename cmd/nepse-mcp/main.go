package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/nepse/models"
	"github.com/use-agent/nepse/render"
	"github.com/use-agent/nepse/sources"
)

// recordsResponse mirrors the nepse API envelope.
type recordsResponse struct {
	Success      bool             `json:"success"`
	Data         []map[string]any `json:"data"`
	TotalRecords int              `json:"totalRecords"`
	Cached       bool             `json:"cached"`
	Error        string           `json:"error"`
}

type tool struct {
	name        string
	source      models.Source
	description string
	paginates   bool
}

var tools = []tool{
	{
		name:        "todays_price",
		source:      models.SourceTodaysPrice,
		description: "Today's closing prices for every listed security on the Nepal Stock Exchange (symbol, LTP, change, open, high, low, volume, previous close).",
		paginates:   true,
	},
	{
		name:        "live_trading",
		source:      models.SourceLiveTrading,
		description: "Live market prices during trading hours on the Nepal Stock Exchange.",
		paginates:   true,
	},
	{
		name:        "top_gainers",
		source:      models.SourceTopGainers,
		description: "Today's top gaining securities on the Nepal Stock Exchange.",
	},
	{
		name:        "floor_sheet",
		source:      models.SourceFloorSheet,
		description: "Today's floor sheet: individual contracts with buyer and seller broker IDs, quantity, rate and amount.",
		paginates:   true,
	},
}

func main() {
	apiURL := os.Getenv("NEPSE_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}

	s := server.NewMCPServer(
		"nepse",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	registry := sources.Default()
	md := render.NewMarkdown()
	client := &http.Client{Timeout: 120 * time.Second}

	for _, t := range tools {
		src, err := registry.Lookup(t.source)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tool %s: %v\n", t.name, err)
			os.Exit(1)
		}

		opts := []mcp.ToolOption{
			mcp.WithDescription(t.description + " Returns a Markdown table."),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of records to return (default: all)"),
				mcp.Min(1),
			),
		}
		if t.paginates {
			opts = append(opts, mcp.WithNumber("pages",
				mcp.Description("Maximum number of table pages to visit (default: all)"),
				mcp.Min(1),
			))
		}

		s.AddTool(mcp.NewTool(t.name, opts...), handleRecords(client, md, apiURL, src))
	}

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleRecords(client *http.Client, md *render.Markdown, apiURL string, src *sources.Source) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q := url.Values{}
		if limit := request.GetInt("limit", 0); limit > 0 {
			q.Set("limit", strconv.Itoa(limit))
		}
		if pages := request.GetInt("pages", 0); pages > 0 {
			q.Set("pages", strconv.Itoa(pages))
		}

		resp, err := fetchRecords(ctx, client, apiURL, src.ID, q)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(fmt.Sprintf("%s failed: %s", src.ID, resp.Error)), nil
		}

		title := fmt.Sprintf("%s (%d records)", src.ID, resp.TotalRecords)
		if resp.Cached {
			title += ", cached"
		}
		text, err := md.Render(title, render.FromMaps(src.Columns, resp.Data))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("render markdown: %v", err)), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

// fetchRecords calls GET /api/<source> and decodes the envelope, which the
// API writes for errors as well as successes.
func fetchRecords(ctx context.Context, client *http.Client, apiURL string, source models.Source, q url.Values) (*recordsResponse, error) {
	endpoint := strings.TrimRight(apiURL, "/") + "/api/" + string(source)
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpResp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp recordsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse response (HTTP %d): %w", httpResp.StatusCode, err)
	}
	return &resp, nil
}
