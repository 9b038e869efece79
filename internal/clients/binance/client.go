// Package binance provides a price source backed by the Binance public
// ticker API.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/stakd-me/stakd-sub000/internal/common"
	"github.com/stakd-me/stakd-sub000/internal/interfaces"
	"github.com/stakd-me/stakd-sub000/internal/models"
)

const (
	DefaultBaseURL   = "https://api.binance.com"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// Client quotes tokens against their USDT pair.
type Client struct {
	baseURL    string
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

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst(requestsPerSecond))
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Binance client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), burst(DefaultRateLimit)),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

var _ interfaces.PriceSource = (*Client)(nil)

func burst(requestsPerSecond float64) int {
	if requestsPerSecond < 1 {
		return 1
	}
	return int(requestsPerSecond)
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Binance API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Name identifies this source in quote metadata and logs.
func (c *Client) Name() string {
	return "binance"
}

type ticker struct {
	Symbol             string           `json:"symbol"`
	LastPrice          models.FlexFloat `json:"lastPrice"`
	PriceChangePercent models.FlexFloat `json:"priceChangePercent"`
}

// FetchPrices quotes each token against USDT. The ticker endpoint is
// fetched unfiltered because a batched symbols query fails whole when
// any one pair is unknown; tokens without a USDT pair are left for the
// next source in the chain.
func (c *Client) FetchPrices(ctx context.Context, tokens []models.TrackedToken) (models.PriceMap, error) {
	prices := models.PriceMap{}
	if len(tokens) == 0 {
		return prices, nil
	}

	wanted := make(map[string]models.TrackedToken, len(tokens))
	for _, token := range tokens {
		symbol := models.NormalizeSymbol(token.Symbol)
		if symbol == "" || symbol == "USDT" {
			continue
		}
		wanted[symbol+"USDT"] = token
	}
	if len(wanted) == 0 {
		return prices, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.baseURL + "/api/v3/ticker/24hr"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Int("tokens", len(wanted)).Msg("Binance ticker request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   "/api/v3/ticker/24hr",
		}
	}

	var tickers []ticker
	if err := json.NewDecoder(resp.Body).Decode(&tickers); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	now := time.Now().UTC()
	for _, t := range tickers {
		token, ok := wanted[t.Symbol]
		if !ok || t.LastPrice.Float() <= 0 {
			continue
		}
		prices[token.CoingeckoID] = models.PriceQuote{
			Usd:       t.LastPrice.Float(),
			Change24h: t.PriceChangePercent.Float(),
			UpdatedAt: now,
			Source:    c.Name(),
		}
	}

	c.logger.Debug().Int("requested", len(tokens)).Int("priced", len(prices)).Msg("Binance tickers fetched")
	return prices, nil
}
