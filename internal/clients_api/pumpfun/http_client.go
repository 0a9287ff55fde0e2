package pumpfun

// HTTP client for the pump.fun frontend API (coin metadata for Solana launchpad mints).
// Sends GET requests with browser-like headers through a rate limiter,
// a circuit breaker and the shared retry policy.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	logging "omni-trending/internal/infra/log"
	"omni-trending/internal/infra/retry"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://frontend-api-v3.pump.fun"

// pump.fun mints use 6 decimals
const tokenDecimals = 6

var ErrCoinNotFound = errors.New("pump.fun coin not found")

type Coin struct {
	Mint             string  `json:"mint"`
	Name             string  `json:"name"`
	Symbol           string  `json:"symbol"`
	Description      string  `json:"description"`
	ImageURI         string  `json:"image_uri"`
	Twitter          string  `json:"twitter"`
	Telegram         string  `json:"telegram"`
	Website          string  `json:"website"`
	Creator          string  `json:"creator"`
	CreatedTimestamp int64   `json:"created_timestamp"` // unix ms
	TotalSupply      float64 `json:"total_supply"`      // raw units
	MarketCap        float64 `json:"market_cap"`        // SOL
	USDMarketCap     float64 `json:"usd_market_cap"`
	VirtualSolRes    float64 `json:"virtual_sol_reserves"`
	VirtualTokenRes  float64 `json:"virtual_token_reserves"`
	Complete         bool    `json:"complete"`
	RaydiumPool      string  `json:"raydium_pool"`
	BondingCurve     string  `json:"bonding_curve"`
}

// Supply returns the circulating supply in whole tokens.
func (c Coin) Supply() float64 {
	return c.TotalSupply / math.Pow10(tokenDecimals)
}

type Options struct {
	BaseURL           string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerMinute int
}

type Client struct {
	baseURL        string
	httpClient     *http.Client
	rateLimiter    *rate.Limiter
	circuitBreaker *gobreaker.CircuitBreaker
	retry          retry.Options
}

func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 120
	}

	circuitBreaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "PumpFunAPI",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			// unknown mints answer 404, that is not an outage
			var he *retry.HTTPError
			if errors.As(err, &he) {
				return he.StatusCode < 500 && he.StatusCode != 429
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Client{
		baseURL:        baseURL,
		httpClient:     &http.Client{Timeout: opts.Timeout},
		rateLimiter:    rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), 5),
		circuitBreaker: circuitBreaker,
		retry: retry.Options{
			MaxRetries: opts.MaxRetries,
			BaseDelay:  300 * time.Millisecond,
			MaxDelay:   5 * time.Second,
			Backoff:    2.0,
		},
	}
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Origin", "https://pump.fun")
	req.Header.Set("Referer", "https://pump.fun/")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
}

// GetCoin fetches a single coin by mint. A 404 or an empty body returns ErrCoinNotFound.
func (c *Client) GetCoin(ctx context.Context, mint string) (*Coin, error) {
	mint = strings.TrimSpace(mint)
	if mint == "" {
		return nil, ErrCoinNotFound
	}
	endpoint := "/coins/" + url.PathEscape(mint)

	body, err := c.doGET(ctx, endpoint)
	if err != nil {
		var he *retry.HTTPError
		if errors.As(err, &he) && he.StatusCode == http.StatusNotFound {
			return nil, ErrCoinNotFound
		}
		return nil, fmt.Errorf("pump.fun GET failed: %w", err)
	}

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" || trimmed == "{}" {
		return nil, ErrCoinNotFound
	}

	var coin Coin
	if err := json.Unmarshal(body, &coin); err != nil {
		return nil, fmt.Errorf("failed to unmarshal coin response: %w", err)
	}
	if coin.Mint == "" {
		return nil, ErrCoinNotFound
	}
	return &coin, nil
}

func (c *Client) doGET(ctx context.Context, endpoint string) ([]byte, error) {
	requestID := logging.GenerateRequestID()

	var respBody []byte
	err := retry.Do(ctx, c.retry, func() error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return retry.Permanent(fmt.Errorf("rate limiter wait failed: %w", err))
		}

		_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			body, err := c.doRequest(ctx, requestID, endpoint)
			if err != nil {
				return nil, err
			}
			respBody = body
			return body, nil
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.LogWarn("Circuit breaker rejected pump.fun request",
				zap.String("request_id", requestID),
				zap.String("endpoint", endpoint),
				zap.Error(err))
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return respBody, nil
}

func (c *Client) doRequest(ctx context.Context, requestID, endpoint string) ([]byte, error) {
	startTime := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	setBrowserHeaders(req)

	logging.LogRequest(requestID, http.MethodGet, endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.LogResponse(requestID, 0, time.Since(startTime).Milliseconds(), zap.String("endpoint", endpoint), zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	logging.LogResponse(requestID, resp.StatusCode, time.Since(startTime).Milliseconds(), zap.String("endpoint", endpoint))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Body:       body,
			RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return body, nil
}
