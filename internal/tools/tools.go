// Package tools provides the built-in tool implementations: web search,
// Wikipedia lookup, current weather and page scraping. Each exposes a
// statically declared descriptor consumed by the agent's registry; the agent
// itself knows nothing about what any tool does.
package tools

import (
	"go.uber.org/zap"

	"github.com/voidhawk42/reagent-cli/api/schemas"
	"github.com/voidhawk42/reagent-cli/internal/config"
)

// BuiltIn assembles the standard tool set from configuration. Tools with
// missing credentials are still registered; they fail at invocation time
// with a descriptive error, which the executor downgrades to a skip.
func BuiltIn(cfg config.ToolsConfig, logger *zap.Logger) []schemas.Tool {
	scraper := NewScraper(cfg.Scraper, logger)

	return []schemas.Tool{
		NewSearch(cfg.SerpAPI, scraper, logger).Tool(),
		NewWikipedia(cfg.Wikipedia, logger).Tool(),
		NewWeather(cfg.Weather, logger).Tool(),
		scraper.Tool(),
	}
}
