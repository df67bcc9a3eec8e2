package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/voidhawk42/reagent-cli/api/schemas"
	"github.com/voidhawk42/reagent-cli/internal/config"
)

// Wikipedia implements the wikipedia_search tool against the REST summary
// endpoint. The endpoint is a format string taking the language code.
type Wikipedia struct {
	cfg        config.WikipediaConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// wikiSummary mirrors the REST v1 page summary payload.
type wikiSummary struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Extract     string `json:"extract"`
	Type        string `json:"type"`
}

func NewWikipedia(cfg config.WikipediaConfig, logger *zap.Logger) *Wikipedia {
	return &Wikipedia{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.Named("tools.wikipedia"),
	}
}

// Tool returns the wikipedia_search descriptor.
func (w *Wikipedia) Tool() schemas.Tool {
	return schemas.Tool{
		Name:        "wikipedia_search",
		Description: "Looks up a topic on Wikipedia and returns an encyclopedic summary. Use for facts about people, places, concepts and historical events.",
		Parameters: map[string]schemas.ParameterSpec{
			"query": {Type: "string", Description: "The topic or article title to look up."},
			"lang":  {Type: "string", Description: "Optional two-letter language code, defaults to the configured language."},
		},
		Invoke: w.invoke,
	}
}

func (w *Wikipedia) invoke(ctx context.Context, args map[string]any) (*schemas.ToolResult, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return nil, err
	}
	lang, err := optionalStringArg(args, "lang", w.cfg.Language)
	if err != nil {
		return nil, err
	}

	// Article titles use underscores for spaces in the REST path.
	title := strings.ReplaceAll(strings.TrimSpace(query), " ", "_")
	endpoint := fmt.Sprintf(w.cfg.Endpoint, lang) + "/" + url.PathEscape(title)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create wikipedia request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wikipedia request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("no wikipedia article found for %q", query)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia API returned status %d", resp.StatusCode)
	}

	var summary wikiSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("failed to decode wikipedia response: %w", err)
	}
	if summary.Extract == "" {
		return nil, fmt.Errorf("wikipedia article %q has no summary text", query)
	}

	w.logger.Debug("Wikipedia lookup complete",
		zap.String("query", query),
		zap.String("title", summary.Title),
		zap.String("lang", lang))

	return &schemas.ToolResult{
		Summary: summary.Extract,
		Data: map[string]any{
			"title":       summary.Title,
			"description": summary.Description,
			"lang":        lang,
		},
	}, nil
}
