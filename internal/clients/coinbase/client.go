// Package coinbase provides a price source backed by the Coinbase
// public spot price API.
package coinbase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/stakd-me/stakd-sub000/internal/common"
	"github.com/stakd-me/stakd-sub000/internal/interfaces"
	"github.com/stakd-me/stakd-sub000/internal/models"
)

const (
	DefaultBaseURL   = "https://api.coinbase.com"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Client quotes tokens one at a time via the exchange-rates endpoint.
// Coinbase has no batch quote API.
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

// NewClient creates a new Coinbase client
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
	return fmt.Sprintf("Coinbase API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Name identifies this source in quote metadata and logs.
func (c *Client) Name() string {
	return "coinbase"
}

// FetchPrices looks up the USD exchange rate per token. Currencies
// Coinbase rejects with a 4xx are skipped so the next source can fill
// them; the endpoint carries no 24h change, so Change24h stays zero.
func (c *Client) FetchPrices(ctx context.Context, tokens []models.TrackedToken) (models.PriceMap, error) {
	prices := models.PriceMap{}
	now := time.Now().UTC()

	for _, token := range tokens {
		symbol := models.NormalizeSymbol(token.Symbol)
		if symbol == "" {
			continue
		}

		usd, err := c.usdRate(ctx, symbol)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
				c.logger.Debug().Str("symbol", symbol).Int("status", apiErr.StatusCode).Msg("Coinbase currency unavailable")
				continue
			}
			return nil, err
		}
		if usd <= 0 {
			continue
		}

		prices[token.CoingeckoID] = models.PriceQuote{
			Usd:       usd,
			UpdatedAt: now,
			Source:    c.Name(),
		}
	}

	c.logger.Debug().Int("requested", len(tokens)).Int("priced", len(prices)).Msg("Coinbase rates fetched")
	return prices, nil
}

func (c *Client) usdRate(ctx context.Context, symbol string) (float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := "/v2/exchange-rates"
	reqURL := c.baseURL + endpoint + "?currency=" + url.QueryEscape(symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   endpoint,
		}
	}

	var body struct {
		Data struct {
			Rates map[string]models.FlexFloat `json:"rates"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	return body.Data.Rates["USD"].Float(), nil
}
