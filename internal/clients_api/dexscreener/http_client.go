package dexscreener

// HTTP client for the DexScreener public API.
// Every request goes through a rate limiter, a circuit breaker and the shared retry policy.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
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

const DefaultBaseURL = "https://api.dexscreener.com"

type Options struct {
	BaseURL           string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerMinute int
	MaxResponseSize   int64
}

type Client struct {
	baseURL         string
	httpClient      *http.Client
	rateLimiter     *rate.Limiter
	circuitBreaker  *gobreaker.CircuitBreaker
	retry           retry.Options
	maxResponseSize int64
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
		opts.RequestsPerMinute = 250
	}
	if opts.MaxResponseSize <= 0 {
		opts.MaxResponseSize = 5 * 1024 * 1024
	}

	// DexScreener allows ~300 req/min on the search and token endpoints
	rateLimiter := rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), 10)

	circuitBreaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "DexScreenerAPI",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			// a 404 or a bad address is the caller's problem, not an outage
			var he *retry.HTTPError
			if errors.As(err, &he) {
				return he.StatusCode < 500 && he.StatusCode != 429
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Client{
		baseURL:        baseURL,
		rateLimiter:    rateLimiter,
		circuitBreaker: circuitBreaker,
		retry: retry.Options{
			MaxRetries: opts.MaxRetries,
			BaseDelay:  300 * time.Millisecond,
			MaxDelay:   5 * time.Second,
			Backoff:    2.0,
		},
		maxResponseSize: opts.MaxResponseSize,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
	}
}

// Search runs a free-text query (symbol, name or address) across all chains.
func (c *Client) Search(ctx context.Context, query string) ([]Pair, error) {
	endpoint := "/latest/dex/search?q=" + url.QueryEscape(strings.TrimSpace(query))

	respBody, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to search pairs: %w", err)
	}

	var resp SearchResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal search response: %w", err)
	}
	return resp.Pairs, nil
}

// TokenPairs lists every pair that trades the given token address.
func (c *Client) TokenPairs(ctx context.Context, tokenAddress string) ([]Pair, error) {
	endpoint := "/latest/dex/tokens/" + url.PathEscape(strings.TrimSpace(tokenAddress))

	respBody, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get token pairs: %w", err)
	}

	var resp SearchResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token pairs response: %w", err)
	}
	return resp.Pairs, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	requestID := logging.GenerateRequestID()

	if ctx.Err() != nil {
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	}

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
			logging.LogWarn("Circuit breaker rejected request",
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
		return nil, retry.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "omni-trending/1.0")

	logging.LogRequest(requestID, http.MethodGet, endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.LogResponse(requestID, 0, time.Since(startTime).Milliseconds(), zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
	duration := time.Since(startTime).Milliseconds()
	if err != nil {
		logging.LogResponse(requestID, resp.StatusCode, duration, zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logging.LogResponse(requestID, resp.StatusCode, duration, zap.String("endpoint", endpoint))
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Body:       respBody,
			RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	logging.LogResponse(requestID, resp.StatusCode, duration, zap.String("endpoint", endpoint))
	return respBody, nil
}
