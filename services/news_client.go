package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Article is one headline as returned by the upstream news source.
type Article struct {
	Title    string
	Summary  string
	Link     string
	Provider string
	PubDate  time.Time
}

// NewsFetcher is the contract NewsService needs from the upstream source.
type NewsFetcher interface {
	RecentNews(ctx context.Context, symbol string) ([]Article, error)
}

// YahooNewsClient reads recent headlines from the Yahoo Finance search API.
type YahooNewsClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewYahooNewsClient creates a news client. An empty baseURL selects the
// public endpoint.
func NewYahooNewsClient(baseURL string) *YahooNewsClient {
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	return &YahooNewsClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// yahooNewsResponse represents the search API response, news portion only
type yahooNewsResponse struct {
	News []struct {
		Title               string `json:"title"`
		Summary             string `json:"summary"`
		Link                string `json:"link"`
		Publisher           string `json:"publisher"`
		ProviderPublishTime int64  `json:"providerPublishTime"`
	} `json:"news"`
}

// RecentNews fetches the latest headlines for a symbol.
func (c *YahooNewsClient) RecentNews(ctx context.Context, symbol string) ([]Article, error) {
	query := url.Values{}
	query.Set("q", symbol)
	query.Set("newsCount", "10")
	query.Set("quotesCount", "0")

	reqURL := fmt.Sprintf("%s/v1/finance/search?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("news API error (status %d): %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var newsResp yahooNewsResponse
	if err := json.Unmarshal(body, &newsResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	articles := make([]Article, 0, len(newsResp.News))
	for _, item := range newsResp.News {
		if item.Title == "" || item.Link == "" {
			continue
		}
		articles = append(articles, Article{
			Title:    item.Title,
			Summary:  item.Summary,
			Link:     item.Link,
			Provider: item.Publisher,
			PubDate:  time.Unix(item.ProviderPublishTime, 0).UTC(),
		})
	}
	return articles, nil
}
