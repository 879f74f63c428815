package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultYahooBaseURL is the public Yahoo Finance chart endpoint.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

var yahooIntervals = map[int]string{
	1:  "1d",
	7:  "1wk",
	30: "1mo",
}

// YahooClient reads OHLCV history for US instruments. Unlike the KRX
// gateway it buckets natively at the requested interval, so no downstream
// resampling is needed.
type YahooClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewYahooClient creates a Yahoo chart client. An empty baseURL selects the
// public endpoint.
func NewYahooClient(baseURL string) *YahooClient {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	return &YahooClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// yahooChartResponse represents the v8 chart API response
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// NativeInterval always reports true: bars come back already bucketed.
func (c *YahooClient) NativeInterval() bool { return true }

// FetchRange fetches bars at the requested interval covering the padded
// [start, end] window.
func (c *YahooClient) FetchRange(ctx context.Context, code string, start, end time.Time, interval int) ([]Bar, error) {
	intervalParam, ok := yahooIntervals[interval]
	if !ok {
		return nil, fmt.Errorf("unsupported interval %d", interval)
	}

	query := url.Values{}
	query.Set("period1", fmt.Sprintf("%d", paddedStart(start, interval).Unix()))
	// period2 is exclusive, so push it one day past the window
	query.Set("period2", fmt.Sprintf("%d", end.AddDate(0, 0, 1).Unix()))
	query.Set("interval", intervalParam)
	query.Set("includeAdjustedClose", "false")

	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(code), query.Encode())
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
		return nil, fmt.Errorf("Yahoo API error (status %d): %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var chartResp yahooChartResponse
	if err := json.Unmarshal(body, &chartResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if chartResp.Chart.Error != nil {
		return nil, fmt.Errorf("Yahoo API error: %s (%s)", chartResp.Chart.Error.Description, chartResp.Chart.Error.Code)
	}
	if len(chartResp.Chart.Result) == 0 || len(chartResp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	result := chartResp.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	bars := make([]Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Buckets with any missing field are dropped.
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) ||
			quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil || quote.Close[i] == nil {
			continue
		}
		var volume int64
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			volume = *quote.Volume[i]
		}
		day := time.Unix(ts, 0).UTC()
		bars = append(bars, Bar{
			Date:   time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
			Open:   decimal.NewFromFloat(*quote.Open[i]),
			High:   decimal.NewFromFloat(*quote.High[i]),
			Low:    decimal.NewFromFloat(*quote.Low[i]),
			Close:  decimal.NewFromFloat(*quote.Close[i]),
			Volume: volume,
		})
	}

	return bars, nil
}
