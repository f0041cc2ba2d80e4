// Package search wraps the web-corroboration search API.
//
// The adapter degrades to an empty result set on any failure; a missing
// corroboration signal is never an error for the caller.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/contextlens/core/internal/models"
	"go.uber.org/zap"
)

const (
	defaultEndpoint    = "https://api.search.brave.com/res/v1/web/search"
	defaultResultCap   = 6
	defaultMinTextLen  = 80
	defaultMaxQueryLen = 300
	requestTimeout     = 12 * time.Second
)

// defaultExcludedDomains are never returned as corroboration sources: the
// origin platforms themselves and generic discussion aggregators, which echo
// the content rather than corroborate it.
var defaultExcludedDomains = []string{
	"twitter.com",
	"x.com",
	"t.co",
	"facebook.com",
	"instagram.com",
	"threads.net",
	"tiktok.com",
	"bsky.app",
	"reddit.com",
	"news.ycombinator.com",
	"quora.com",
	"tumblr.com",
	"pinterest.com",
}

// Config selects the search provider and tuning knobs.
type Config struct {
	Endpoint        string
	APIKey          string
	ResultCap       int
	MinTextLen      int
	ExtraExclusions []string
}

// Client calls the corroboration-search API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	excluded   []string
	logger     *zap.Logger
}

// New creates a search client. Zero-valued knobs take defaults.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.ResultCap <= 0 {
		cfg.ResultCap = defaultResultCap
	}
	if cfg.MinTextLen <= 0 {
		cfg.MinTextLen = defaultMinTextLen
	}
	excluded := make([]string, 0, len(defaultExcludedDomains)+len(cfg.ExtraExclusions))
	excluded = append(excluded, defaultExcludedDomains...)
	excluded = append(excluded, cfg.ExtraExclusions...)
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: requestTimeout},
		excluded:   excluded,
		logger:     logger,
	}
}

// Substantive reports whether text is long enough to yield a meaningful
// corroboration query.
func (c *Client) Substantive(text string) bool {
	return len([]rune(strings.TrimSpace(text))) > c.cfg.MinTextLen
}

// Search returns up to the configured cap of corroboration candidates for
// text, or an empty slice when the text is too short or the provider fails.
func (c *Client) Search(ctx context.Context, text string) []models.SearchResult {
	if !c.Substantive(text) {
		return nil
	}
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		c.logger.Debug("search adapter disabled, no api key")
		return nil
	}

	query := BuildQuery(text, defaultMaxQueryLen)
	if query == "" {
		return nil
	}

	results, err := c.fetch(ctx, query)
	if err != nil {
		c.logger.Warn("corroboration search failed", zap.Error(err))
		return nil
	}

	out := make([]models.SearchResult, 0, c.cfg.ResultCap)
	for _, r := range results {
		if c.excludedDomain(r.SourceDomain) {
			continue
		}
		out = append(out, r)
		if len(out) >= c.cfg.ResultCap {
			break
		}
	}
	return out
}

func (c *Client) fetch(ctx context.Context, query string) ([]models.SearchResult, error) {
	u, err := neturl.Parse(c.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid search endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("count", fmt.Sprintf("%d", c.cfg.ResultCap*2))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", strings.TrimSpace(c.cfg.APIKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("search provider status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Web struct {
			Results []struct {
				Title       string  `json:"title"`
				URL         string  `json:"url"`
				Description string  `json:"description"`
				Score       float64 `json:"score"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("search response parse: %w", err)
	}

	results := make([]models.SearchResult, 0, len(payload.Web.Results))
	for _, r := range payload.Web.Results {
		domain := domainOf(r.URL)
		if domain == "" {
			continue
		}
		results = append(results, models.SearchResult{
			Title:        strings.TrimSpace(r.Title),
			URL:          r.URL,
			SourceDomain: domain,
			Snippet:      strings.TrimSpace(r.Description),
			Score:        r.Score,
		})
	}
	return results, nil
}

func (c *Client) excludedDomain(domain string) bool {
	domain = strings.ToLower(domain)
	for _, blocked := range c.excluded {
		if domain == blocked || strings.HasSuffix(domain, "."+blocked) {
			return true
		}
	}
	return false
}

func domainOf(raw string) string {
	u, err := neturl.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
