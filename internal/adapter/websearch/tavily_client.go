package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"docqa-orchestrator/internal/domain"
)

// TavilyClient calls the Tavily search API and maps its results into
// fragments. A missing API key soft-disables the client: Search then
// returns an empty slice without touching the network.
type TavilyClient struct {
	BaseURL         string
	APIKey          string
	MaxResults      int
	SearchDepth     string
	ExcludedDomains []string
	Client          *http.Client
	limiter         *rate.Limiter
	logger          *slog.Logger
}

type searchRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth"`
	IncludeAnswer  bool     `json:"include_answer"`
	MaxResults     int      `json:"max_results"`
	ExcludeDomains []string `json:"exclude_domains,omitempty"`
}

type searchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
	Answer  string         `json:"answer,omitempty"`
}

// NewTavilyClient constructs a web search client. requestsPerSecond
// throttles calls to stay inside the provider quota shared by all
// in-flight requests. If client is nil, a default http.Client is
// created with the given timeout.
func NewTavilyClient(baseURL, apiKey string, maxResults int, searchDepth string, excludedDomains []string, timeout time.Duration, requestsPerSecond float64, logger *slog.Logger, client ...*http.Client) *TavilyClient {
	var c *http.Client
	if len(client) > 0 && client[0] != nil {
		c = client[0]
	} else {
		c = &http.Client{Timeout: timeout}
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	if searchDepth == "" {
		searchDepth = "basic"
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &TavilyClient{
		BaseURL:         strings.TrimRight(baseURL, "/"),
		APIKey:          apiKey,
		MaxResults:      maxResults,
		SearchDepth:     searchDepth,
		ExcludedDomains: excludedDomains,
		Client:          c,
		limiter:         rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		logger:          logger,
	}
}

// Enabled reports whether an API credential is configured.
func (c *TavilyClient) Enabled() bool {
	return c.APIKey != ""
}

// Search returns fragments for the top results of the query. All
// provider failures are logged and converted into an empty result.
func (c *TavilyClient) Search(ctx context.Context, query string) ([]domain.Fragment, error) {
	if !c.Enabled() {
		c.logger.Warn("web_search_disabled", slog.String("reason", "api key not configured"))
		return nil, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to acquire search slot: %w", err)
	}

	startTime := time.Now()

	reqBody := searchRequest{
		APIKey:         c.APIKey,
		Query:          query,
		SearchDepth:    c.SearchDepth,
		IncludeAnswer:  false,
		MaxResults:     c.MaxResults,
		ExcludeDomains: c.ExcludedDomains,
	}
	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	url := fmt.Sprintf("%s/search", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		c.logger.Warn("web_search_failed",
			slog.String("error", err.Error()),
			slog.Int64("elapsed_ms", time.Since(startTime).Milliseconds()))
		return nil, fmt.Errorf("failed to call search endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Warn("web_search_failed",
			slog.Int("status_code", resp.StatusCode),
			slog.String("body", truncateString(string(body), 500)),
			slog.Int64("elapsed_ms", time.Since(startTime).Milliseconds()))
		return nil, fmt.Errorf("search endpoint returned %d", resp.StatusCode)
	}

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	fragments := make([]domain.Fragment, 0, len(searchResp.Results))
	for i, res := range searchResp.Results {
		if strings.TrimSpace(res.Content) == "" {
			continue
		}
		fragments = append(fragments, domain.Fragment{
			ID:   fmt.Sprintf("web#%d", i),
			Text: res.Content,
			Metadata: domain.FragmentMetadata{
				Source:  "Web: " + res.Title,
				DocType: domain.DocTypeWebSearch,
				Heading: res.Title,
				URL:     res.URL,
			},
		})
	}

	c.logger.Info("web_search_completed",
		slog.String("query", truncateString(query, 100)),
		slog.Int("result_count", len(fragments)),
		slog.Int64("elapsed_ms", time.Since(startTime).Milliseconds()))

	return fragments, nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

var _ domain.WebSearchClient = (*TavilyClient)(nil)
