package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/voidhawk42/reagent-cli/api/schemas"
	"github.com/voidhawk42/reagent-cli/internal/config"
	"github.com/voidhawk42/reagent-cli/internal/llmutil"
)

// Search implements the google_search tool over the SerpAPI JSON endpoint.
// When enrichment is enabled, each hit's page is fetched concurrently and a
// text summary is attached alongside its snippet.
type Search struct {
	cfg        config.SerpAPIConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	scraper    *Scraper
	logger     *zap.Logger
}

// serpResponse mirrors the slice of the SerpAPI payload we consume.
type serpResponse struct {
	OrganicResults []serpHit `json:"organic_results"`
}

type serpHit struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
}

// NewSearch initializes the search tool. The scraper is shared with the
// scrape_webpage tool; it is only used when enrichment is enabled.
func NewSearch(cfg config.SerpAPIConfig, scraper *Scraper, logger *zap.Logger) *Search {
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return &Search{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: defaultSearchTimeout},
		limiter:    limiter,
		scraper:    scraper,
		logger:     logger.Named("tools.search"),
	}
}

const defaultSearchTimeout = 15 * time.Second

// Tool returns the google_search descriptor.
func (s *Search) Tool() schemas.Tool {
	return schemas.Tool{
		Name:        "google_search",
		Description: "Searches the web via Google and returns the top organic results with titles, links and snippets. Use for current events and general information lookup.",
		Parameters: map[string]schemas.ParameterSpec{
			"search_query": {Type: "string", Description: "The search query string."},
			"location":     {Type: "string", Description: "Optional location bias for the search, e.g. a city name."},
		},
		Invoke: s.invoke,
	}
}

func (s *Search) invoke(ctx context.Context, args map[string]any) (*schemas.ToolResult, error) {
	query, err := stringArg(args, "search_query")
	if err != nil {
		return nil, err
	}
	location, err := optionalStringArg(args, "location", "")
	if err != nil {
		return nil, err
	}

	hits, err := s.fetch(ctx, query, location)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, fmt.Errorf("search for %q returned no organic results", query)
	}

	enriched := s.buildResults(ctx, hits)

	return &schemas.ToolResult{
		Enriched: enriched,
		Data:     map[string]any{"query": query, "result_count": len(hits)},
	}, nil
}

// fetch performs the rate-limited SerpAPI request and decodes the top hits.
func (s *Search) fetch(ctx context.Context, query, location string) ([]serpHit, error) {
	if s.cfg.APIKey == "" {
		return nil, fmt.Errorf("search API key is not configured (set REAGENT_TOOLS_SERPAPI_API_KEY)")
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait aborted: %w", err)
		}
	}

	params := url.Values{}
	params.Set("engine", s.cfg.Engine)
	params.Set("q", query)
	params.Set("api_key", s.cfg.APIKey)
	if location != "" {
		params.Set("location", location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search API returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	hits := payload.OrganicResults
	if len(hits) > s.cfg.TopN {
		hits = hits[:s.cfg.TopN]
	}
	s.logger.Debug("Search complete",
		zap.String("query", query),
		zap.Int("hits", len(hits)))
	return hits, nil
}

// buildResults converts hits to enriched results, optionally fanning out to
// fetch each page. Enrichment failures degrade to the plain snippet.
func (s *Search) buildResults(ctx context.Context, hits []serpHit) []schemas.EnrichedResult {
	results := make([]schemas.EnrichedResult, len(hits))
	for i, hit := range hits {
		results[i] = schemas.EnrichedResult{
			Title:   hit.Title,
			Summary: strings.TrimSpace(fmt.Sprintf("%s (%s)", hit.Snippet, hit.Link)),
		}
	}

	if !s.cfg.Enrich || s.scraper == nil {
		return results
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.EnrichConcurrency)

	for i, hit := range hits {
		if hit.Link == "" {
			continue
		}
		g.Go(func() error {
			_, text, err := s.scraper.ExtractText(gctx, hit.Link)
			if err != nil {
				s.logger.Debug("Result enrichment failed, keeping snippet",
					zap.String("url", hit.Link),
					zap.Error(err))
				return nil
			}
			mu.Lock()
			results[i].Summary = llmutil.Truncate(text, summaryLimit/len(hits))
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; Wait only observes context cancellation.
	_ = g.Wait()

	return results
}
