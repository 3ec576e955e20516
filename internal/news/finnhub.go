// Package news enriches screener picks with recent headlines from the
// Finnhub company-news API.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/raysyhuang/gemini-STST/internal/observability"
)

const (
	defaultBaseURL = "https://finnhub.io/api/v1"
	lookbackDays   = 7
	requestTimeout = 10 * time.Second
)

// Article is one company news headline.
type Article struct {
	Headline  string `json:"headline"`
	Source    string `json:"source"`
	URL       string `json:"url"`
	Published string `json:"published"` // YYYY-MM-DD HH:MM UTC, empty if unknown
}

// Client fetches company news from Finnhub. News is best-effort enrichment:
// every failure degrades to an empty result, never an error.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	log     zerolog.Logger
}

// NewClient creates a Client. An empty apiKey disables fetching.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: requestTimeout},
		log:     log,
	}
}

// NewClientWithBaseURL creates a Client against a non-default endpoint.
func NewClientWithBaseURL(baseURL, apiKey string, log zerolog.Logger) *Client {
	c := NewClient(apiKey, log)
	c.baseURL = baseURL
	return c
}

// finnhubArticle is the wire shape of one /company-news item.
type finnhubArticle struct {
	Headline string `json:"headline"`
	Source   string `json:"source"`
	URL      string `json:"url"`
	Datetime int64  `json:"datetime"` // unix seconds
}

// FetchNews returns up to limit of the most recent articles for symbol over
// the trailing week. Finnhub returns articles newest first; that order is
// preserved. The slice is empty, never nil-propagating an error, when the
// client is unconfigured or the request fails.
func (c *Client) FetchNews(ctx context.Context, symbol string, limit int) []Article {
	if c.apiKey == "" || limit <= 0 {
		return []Article{}
	}

	start := time.Now()
	defer func() {
		observability.RecordNewsFetch(time.Since(start).Seconds())
	}()

	now := time.Now().UTC()
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("from", now.AddDate(0, 0, -lookbackDays).Format("2006-01-02"))
	q.Set("to", now.Format("2006-01-02"))
	q.Set("token", c.apiKey)
	endpoint := fmt.Sprintf("%s/company-news?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("news request build failed")
		return []Article{}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("news fetch failed")
		return []Article{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Str("symbol", symbol).Msg("news fetch rejected")
		return []Article{}
	}

	var raw []finnhubArticle
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("news decode failed")
		return []Article{}
	}

	if len(raw) > limit {
		raw = raw[:limit]
	}
	articles := make([]Article, 0, len(raw))
	for _, item := range raw {
		published := ""
		if item.Datetime > 0 {
			published = time.Unix(item.Datetime, 0).UTC().Format("2006-01-02 15:04")
		}
		articles = append(articles, Article{
			Headline:  item.Headline,
			Source:    item.Source,
			URL:       item.URL,
			Published: published,
		})
	}
	return articles
}
