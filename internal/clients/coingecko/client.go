// Package coingecko provides the CoinGecko price source and the
// historical closes used for volatility windows.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/stakd-me/stakd-sub000/internal/common"
	"github.com/stakd-me/stakd-sub000/internal/interfaces"
	"github.com/stakd-me/stakd-sub000/internal/models"
)

const (
	DefaultBaseURL   = "https://api.coingecko.com/api/v3"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 0.5 // requests per second, free tier is ~30/min
)

// Client covers the widest coin universe of the chain and is therefore
// the last price fallback, plus the only history source.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithAPIKey sets the demo API key sent with each request
func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new CoinGecko client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

var (
	_ interfaces.PriceSource     = (*Client)(nil)
	_ interfaces.HistoryProvider = (*Client)(nil)
)

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("CoinGecko API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Name identifies this source in quote metadata and logs.
func (c *Client) Name() string {
	return "coingecko"
}

// FetchPrices batches all ids through /simple/price. Ids CoinGecko does
// not know are simply absent from the response, so partial coverage
// needs no special handling.
func (c *Client) FetchPrices(ctx context.Context, tokens []models.TrackedToken) (models.PriceMap, error) {
	prices := models.PriceMap{}

	ids := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if id := models.NormalizeCoingeckoID(token.CoingeckoID); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return prices, nil
	}

	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", "usd")
	params.Set("include_24hr_change", "true")

	var body map[string]struct {
		Usd       float64 `json:"usd"`
		Change24h float64 `json:"usd_24h_change"`
	}
	if err := c.get(ctx, "/simple/price", params, &body); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for id, quote := range body {
		if quote.Usd <= 0 {
			continue
		}
		prices[id] = models.PriceQuote{
			Usd:       quote.Usd,
			Change24h: quote.Change24h,
			UpdatedAt: now,
			Source:    c.Name(),
		}
	}

	c.logger.Debug().Int("requested", len(ids)).Int("priced", len(prices)).Msg("CoinGecko prices fetched")
	return prices, nil
}

// DailyCloses returns up to days daily closing prices, oldest first.
func (c *Client) DailyCloses(ctx context.Context, coingeckoID string, days int) ([]float64, error) {
	id := models.NormalizeCoingeckoID(coingeckoID)
	if id == "" {
		return nil, fmt.Errorf("coingecko id is required")
	}
	if days < 2 {
		days = 2
	}

	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("days", strconv.Itoa(days))
	params.Set("interval", "daily")

	// prices come as [timestampMillis, close] pairs, oldest first
	var body struct {
		Prices [][]float64 `json:"prices"`
	}
	endpoint := fmt.Sprintf("/coins/%s/market_chart", url.PathEscape(id))
	if err := c.get(ctx, endpoint, params, &body); err != nil {
		return nil, err
	}

	closes := make([]float64, 0, len(body.Prices))
	for _, point := range body.Prices {
		if len(point) < 2 {
			continue
		}
		closes = append(closes, point[1])
	}
	return closes, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	c.logger.Debug().Str("endpoint", endpoint).Msg("CoinGecko request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   endpoint,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
