package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/voidhawk42/reagent-cli/internal/config"
)

func testSearchConfig(endpoint string) config.SerpAPIConfig {
	return config.SerpAPIConfig{
		APIKey:            "test-serp-key",
		Endpoint:          endpoint,
		Engine:            "google",
		TopN:              3,
		EnrichConcurrency: 2,
	}
}

const serpFixture = `{
	"organic_results": [
		{"position": 1, "title": "Result One", "link": "https://one.example", "snippet": "First snippet."},
		{"position": 2, "title": "Result Two", "link": "https://two.example", "snippet": "Second snippet."},
		{"position": 3, "title": "Result Three", "link": "https://three.example", "snippet": "Third snippet."},
		{"position": 4, "title": "Result Four", "link": "https://four.example", "snippet": "Fourth snippet."}
	]
}`

func TestSearch_Invoke(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "google", q.Get("engine"))
		assert.Equal(t, "weather in surat", q.Get("q"))
		assert.Equal(t, "test-serp-key", q.Get("api_key"))
		assert.Equal(t, "Surat", q.Get("location"))
		fmt.Fprint(w, serpFixture)
	}))
	defer server.Close()

	tool := NewSearch(testSearchConfig(server.URL), nil, zaptest.NewLogger(t)).Tool()
	assert.Equal(t, "google_search", tool.Name)
	assert.Contains(t, tool.Parameters, "search_query")

	result, err := tool.Invoke(context.Background(), map[string]any{
		"search_query": "weather in surat",
		"location":     "Surat",
	})

	require.NoError(t, err)
	require.False(t, result.Empty())

	// Top-N truncation applies.
	require.Len(t, result.Enriched, 3)
	assert.Equal(t, "Result One", result.Enriched[0].Title)
	assert.Contains(t, result.Enriched[0].Summary, "First snippet.")
	assert.Contains(t, result.Enriched[0].Summary, "https://one.example")
	assert.Equal(t, 3, result.Data["result_count"])
}

func TestSearch_Invoke_NoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"organic_results": []}`)
	}))
	defer server.Close()

	tool := NewSearch(testSearchConfig(server.URL), nil, zaptest.NewLogger(t)).Tool()

	result, err := tool.Invoke(context.Background(), map[string]any{"search_query": "obscure"})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "no organic results")
}

func TestSearch_Invoke_MissingAPIKey(t *testing.T) {
	cfg := testSearchConfig("http://unused.invalid")
	cfg.APIKey = ""
	tool := NewSearch(cfg, nil, zaptest.NewLogger(t)).Tool()

	_, err := tool.Invoke(context.Background(), map[string]any{"search_query": "q"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is not configured")
}

func TestSearch_Invoke_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": "rate limited"}`)
	}))
	defer server.Close()

	tool := NewSearch(testSearchConfig(server.URL), nil, zaptest.NewLogger(t)).Tool()

	_, err := tool.Invoke(context.Background(), map[string]any{"search_query": "q"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestSearch_Enrichment(t *testing.T) {
	pages := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `<html><head><title>Page</title></head><body><p>Enriched page text.</p></body></html>`)
	}))
	defer pages.Close()

	serp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"organic_results": [
			{"position": 1, "title": "Hit", "link": %q, "snippet": "Snippet."},
			{"position": 2, "title": "Dead", "link": %q, "snippet": "Fallback snippet."}
		]}`, pages.URL, pages.URL+"/missing")
	}))
	defer serp.Close()

	cfg := testSearchConfig(serp.URL)
	cfg.Enrich = true
	scraper := NewScraper(testScraperConfig(), zaptest.NewLogger(t))
	tool := NewSearch(cfg, scraper, zaptest.NewLogger(t)).Tool()

	result, err := tool.Invoke(context.Background(), map[string]any{"search_query": "q"})

	require.NoError(t, err)
	require.Len(t, result.Enriched, 2)
	assert.Contains(t, result.Enriched[0].Summary, "Enriched page text.")
	assert.Contains(t, result.Enriched[1].Summary, "Fallback snippet.",
		"failed enrichment keeps the snippet")
}
