package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/voidhawk42/reagent-cli/api/schemas"
	"github.com/voidhawk42/reagent-cli/internal/config"
	"github.com/voidhawk42/reagent-cli/internal/llmutil"
)

// summaryLimit caps the extracted text attached to a tool result so prompts
// stay within model context budgets.
const summaryLimit = 4000

// Scraper fetches a page and extracts its readable text. It backs the
// scrape_webpage tool and the search tool's result enrichment.
type Scraper struct {
	cfg        config.ScraperConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewScraper initializes the scraper with its own HTTP client so tool
// timeouts are independent of the model gateway's.
func NewScraper(cfg config.ScraperConfig, logger *zap.Logger) *Scraper {
	return &Scraper{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.Named("tools.scraper"),
	}
}

// Tool returns the scrape_webpage descriptor.
func (s *Scraper) Tool() schemas.Tool {
	return schemas.Tool{
		Name:        "scrape_webpage",
		Description: "Fetches a web page and returns its readable text content. Use for reading the contents of a specific URL.",
		Parameters: map[string]schemas.ParameterSpec{
			"url": {Type: "string", Description: "The full URL of the page to fetch, including the scheme."},
		},
		Invoke: s.invoke,
	}
}

func (s *Scraper) invoke(ctx context.Context, args map[string]any) (*schemas.ToolResult, error) {
	target, err := stringArg(args, "url")
	if err != nil {
		return nil, err
	}

	title, text, err := s.ExtractText(ctx, target)
	if err != nil {
		return nil, err
	}

	summary := text
	if title != "" {
		summary = title + "\n\n" + text
	}
	return &schemas.ToolResult{
		Summary: llmutil.Truncate(summary, summaryLimit),
		Data:    map[string]any{"url": target, "title": title},
	}, nil
}

// ExtractText fetches the URL and returns the page title and its visible
// text with collapsed whitespace.
func (s *Scraper) ExtractText(ctx context.Context, target string) (string, string, error) {
	parsed, err := url.Parse(target)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", "", fmt.Errorf("invalid URL %q", target)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", "", fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("fetch of %s returned status %d", target, resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, s.cfg.MaxBytes))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse HTML from %s: %w", target, err)
	}

	title, text := extractReadableText(doc)
	if text == "" {
		return title, "", fmt.Errorf("no readable text found at %s", target)
	}

	s.logger.Debug("Page scraped",
		zap.String("url", target),
		zap.Int("text_len", len(text)))
	return title, text, nil
}

// extractReadableText walks the parse tree collecting visible text, skipping
// script, style and other non-content subtrees.
func extractReadableText(doc *html.Node) (string, string) {
	var title string
	var b strings.Builder

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "svg", "head", "iframe":
				if n.Data == "head" {
					// The title lives in head; grab it before skipping.
					for c := n.FirstChild; c != nil; c = c.NextSibling {
						if c.Type == html.ElementNode && c.Data == "title" &&
							c.FirstChild != nil && c.FirstChild.Type == html.TextNode {
							title = strings.TrimSpace(c.FirstChild.Data)
						}
					}
				}
				return
			}
		}
		if n.Type == html.TextNode {
			trimmed := strings.TrimSpace(n.Data)
			if trimmed != "" {
				b.WriteString(trimmed)
				b.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return title, strings.Join(strings.Fields(b.String()), " ")
}
