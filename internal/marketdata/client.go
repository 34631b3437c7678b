// Package marketdata retrieves historical price series from the quote
// service and caches them in Redis. The numeric core never reaches out
// here; it receives an already validated TimeSeries.
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

	"github.com/thomasly/option-analysis/internal/config"
	"github.com/thomasly/option-analysis/internal/models"
)

// Fetcher supplies validated price history for a symbol and range.
type Fetcher interface {
	FetchSeries(ctx context.Context, req SeriesRequest) (*models.TimeSeries, error)
}

// SeriesRequest identifies one price history query. Start and End are
// inclusive dates; Frequency selects daily or weekly bars.
type SeriesRequest struct {
	Symbol    string
	Frequency models.Frequency
	Start     time.Time
	End       time.Time
}

// CacheKey is the canonical cache identity of the request: symbol plus
// date range plus frequency. Two requests with the same key are
// interchangeable.
func (r SeriesRequest) CacheKey() string {
	return fmt.Sprintf("%s:%s:%s:%s",
		r.Symbol, r.Frequency, r.Start.Format("20060102"), r.End.Format("20060102"))
}

// Validate rejects malformed requests before they hit the wire.
func (r SeriesRequest) Validate() error {
	if r.Symbol == "" {
		return fmt.Errorf("series request: symbol is required")
	}
	if !r.Frequency.Valid() {
		return fmt.Errorf("series request: unsupported frequency %q", r.Frequency)
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("series request: end %s before start %s",
			r.End.Format("2006-01-02"), r.Start.Format("2006-01-02"))
	}
	return nil
}

// historyResponse is the quote service's wire format.
type historyResponse struct {
	Symbol  string          `json:"symbol"`
	Candles []models.Candle `json:"candles"`
	Error   string          `json:"error,omitempty"`
}

// Client is the HTTP quote-service client.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a quote-service client from config.
func NewClient(cfg *config.QuotesConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.ServiceURL, "/"),
	}
}

// FetchSeries retrieves the close-price history for the request and
// returns it as a validated TimeSeries.
func (c *Client) FetchSeries(ctx context.Context, req SeriesRequest) (*models.TimeSeries, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("freq", string(req.Frequency))
	params.Set("start", req.Start.Format("20060102"))
	params.Set("end", req.End.Format("20060102"))
	endpoint := fmt.Sprintf("%s/api/history?%s", c.baseURL, params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for %s: %w", req.Symbol, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("quote service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var history historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return nil, fmt.Errorf("failed to decode history response: %w", err)
	}
	if history.Error != "" {
		return nil, fmt.Errorf("quote service error for %s: %s", req.Symbol, history.Error)
	}
	if len(history.Candles) == 0 {
		return nil, fmt.Errorf("no price history for %s between %s and %s",
			req.Symbol, req.Start.Format("2006-01-02"), req.End.Format("2006-01-02"))
	}

	series, err := models.CandlesToSeries(history.Candles)
	if err != nil {
		return nil, fmt.Errorf("invalid price history for %s: %w", req.Symbol, err)
	}
	return series, nil
}
