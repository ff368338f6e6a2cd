// Package marketdata is the HTTP client for the external chart provider.
// The provider answers one batched request per refresh: given a list of
// tickers, a period and an interval, it returns the closing-price series for
// every ticker it knows about.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/simbroker/simbroker/internal/domain"
)

// Chart is one ticker's answer from the provider. Closes may contain nulls
// for intervals the exchange was closed; callers filter those out.
type Chart struct {
	Closes []*float64 `json:"closes"`
}

// Client calls the chart provider over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a chart provider client.
//
// baseURL is the provider API root, e.g. "https://charts.example.com/v1".
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Charts fetches the closing-price series for the given tickers in a single
// batched request. Tickers unknown to the provider are simply absent from the
// result map; the caller decides whether that is a problem.
func (c *Client) Charts(ctx context.Context, tickers []string, period, interval string) (map[string]Chart, error) {
	if len(tickers) == 0 {
		return map[string]Chart{}, nil
	}

	params := url.Values{}
	params.Set("symbols", strings.Join(tickers, ","))
	params.Set("range", period)
	params.Set("interval", interval)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/chart?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("marketdata: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("marketdata: %w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("marketdata: read response: %w", err)
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("marketdata: %w: status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("marketdata: unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var charts map[string]Chart
	if err := json.Unmarshal(body, &charts); err != nil {
		return nil, fmt.Errorf("marketdata: %w: %v", domain.ErrMalformedResponse, err)
	}

	return charts, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
