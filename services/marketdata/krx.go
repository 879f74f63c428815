package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultKRXBaseURL is the daily-candle gateway for KOSPI instruments.
const DefaultKRXBaseURL = "https://data-api.krx.co.kr"

// KRXClient reads daily candles for KOSPI instruments. The source only
// serves daily granularity, so weekly/monthly series are resampled
// downstream.
type KRXClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewKRXClient creates a KRX candle client. An empty baseURL selects the
// public endpoint.
func NewKRXClient(baseURL string) *KRXClient {
	if baseURL == "" {
		baseURL = DefaultKRXBaseURL
	}
	return &KRXClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// krxCandleResponse represents the gateway response
type krxCandleResponse struct {
	Data []struct {
		Date   string  `json:"date"`
		Open   float64 `json:"open"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Close  float64 `json:"close"`
		Volume int64   `json:"volume"`
	} `json:"data"`
}

// NativeInterval always reports false: the gateway is daily-only.
func (c *KRXClient) NativeInterval() bool { return false }

// FetchRange fetches daily candles covering the padded [start, end] window.
func (c *KRXClient) FetchRange(ctx context.Context, code string, start, end time.Time, interval int) ([]Bar, error) {
	query := url.Values{}
	query.Set("symbol", code)
	query.Set("from", paddedStart(start, interval).Format("2006-01-02"))
	// end is inclusive upstream, matching the requested window
	query.Set("to", end.Format("2006-01-02"))

	reqURL := fmt.Sprintf("%s/v1/daily_candles?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("KRX API error (status %d): %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var candleResp krxCandleResponse
	if err := json.Unmarshal(body, &candleResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	bars := make([]Bar, 0, len(candleResp.Data))
	for _, row := range candleResp.Data {
		date, err := time.ParseInLocation("2006-01-02", row.Date, time.UTC)
		if err != nil {
			continue
		}
		bars = append(bars, Bar{
			Date:   date,
			Open:   decimal.NewFromFloat(row.Open),
			High:   decimal.NewFromFloat(row.High),
			Low:    decimal.NewFromFloat(row.Low),
			Close:  decimal.NewFromFloat(row.Close),
			Volume: row.Volume,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}
