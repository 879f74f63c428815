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

// InferenceAPI is the contract the point-cache engines need from the
// external model-serving endpoint.
type InferenceAPI interface {
	// Configured reports whether an endpoint is available at all. When it
	// is not, callers skip the fetch and return empty artifacts.
	Configured() bool
	Predict(ctx context.Context, symbol string, horizon int) (float64, error)
	Explain(ctx context.Context, symbol string, horizon int) ([]string, []float64, error)
}

// InferenceClient talks to the shared prediction/explanation inference
// service over HTTP.
type InferenceClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewInferenceClient creates a client for the inference service. An empty
// baseURL is valid and leaves the client unconfigured.
func NewInferenceClient(baseURL string) *InferenceClient {
	return &InferenceClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether a base URL was provided.
func (c *InferenceClient) Configured() bool {
	return c.baseURL != ""
}

// Predict asks the inference service for a single forecast value.
func (c *InferenceClient) Predict(ctx context.Context, symbol string, horizon int) (float64, error) {
	var payload struct {
		PredictionResult float64 `json:"prediction_result"`
	}
	if err := c.get(ctx, "/predict", symbol, horizon, &payload); err != nil {
		return 0, err
	}
	return payload.PredictionResult, nil
}

// Explain asks the inference service for the token importance breakdown.
func (c *InferenceClient) Explain(ctx context.Context, symbol string, horizon int) ([]string, []float64, error) {
	var payload struct {
		TokenList      []string  `json:"token_list"`
		TokenScoreList []float64 `json:"token_score_list"`
	}
	if err := c.get(ctx, "/explain", symbol, horizon, &payload); err != nil {
		return nil, nil, err
	}
	return payload.TokenList, payload.TokenScoreList, nil
}

func (c *InferenceClient) get(ctx context.Context, path, symbol string, horizon int, out interface{}) error {
	query := url.Values{}
	query.Set("ticker", symbol)
	query.Set("horizon_days", fmt.Sprintf("%d", horizon))

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("inference API error (status %d): %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
