// Package market provides the client for the upstream market-data provider.
// It owns retry, backoff, and rate-limit handling for universe fetches; it
// performs no caching of its own.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/token-scanner/internal/circuitbreaker"
	"github.com/token-scanner/internal/classifier"
	"github.com/token-scanner/internal/config"
	scanerrors "github.com/token-scanner/internal/errors"
	"github.com/token-scanner/internal/logging"
	"github.com/token-scanner/internal/types"
)

const providerName = "cryptorank"

// universeResponse is the upstream listing payload.
type universeResponse struct {
	Data []classifier.Raw `json:"data"`
}

// Client fetches ranked token universes from the upstream provider.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *circuitbreaker.CircuitBreaker
	classifier *classifier.Classifier
	cfg        config.MarketConfig
}

// NewClient creates a market-data client. A missing API key is allowed at
// construction; FetchUniverse then reports the unconfigured condition so the
// caller can degrade to empty results.
func NewClient(cfg config.MarketConfig, cls *classifier.Classifier) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 0.5
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		breaker:    circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig(providerName)),
		classifier: cls,
		cfg:        cfg,
	}
}

// FetchUniverse fetches up to limit token snapshots sorted by the given key
// and direction. A malformed or empty payload yields an empty slice and a nil
// error; rate-limit and server errors are retried per configuration before an
// error is surfaced.
func (c *Client) FetchUniverse(ctx context.Context, sortKey types.SortKey, direction types.SortDirection, limit int) ([]types.TokenSnapshot, error) {
	if c.apiKey == "" {
		return nil, scanerrors.NewUnconfiguredError("market data API key")
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("convert", "USD")
	query.Set("status", "active")
	query.Set("orderBy", string(sortKey))
	query.Set("orderDirection", string(direction))
	requestURL := fmt.Sprintf("%s/currencies?%s", c.baseURL, query.Encode())

	var body []byte
	err := c.breaker.Execute(ctx, func() error {
		var reqErr error
		body, reqErr = c.doRequest(ctx, requestURL)
		return reqErr
	})
	if err != nil {
		if err == circuitbreaker.ErrCircuitOpen || err == circuitbreaker.ErrTooManyRequests {
			return nil, scanerrors.NewUpstreamError(providerName, err)
		}
		return nil, err
	}

	logger := logging.FromContext(ctx)

	var payload universeResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		logger.WithError(err).Warn("Malformed universe payload, returning empty batch")
		return []types.TokenSnapshot{}, nil
	}

	snapshots, dropped := c.classifier.NormalizeBatch(payload.Data)
	if dropped > 0 {
		logger.WithFields(map[string]interface{}{
			"dropped": dropped,
			"kept":    len(snapshots),
		}).Debug("Dropped malformed records during normalization")
	}
	return snapshots, nil
}

// doRequest performs the HTTP GET with rate-limit and server-error retries.
// 429 responses honor the Retry-After header when present; 5xx responses and
// network errors retry on a fixed delay.
func (c *Client) doRequest(ctx context.Context, requestURL string) ([]byte, error) {
	logger := logging.FromContext(ctx)

	rateLimitAttempts := 0
	serverErrAttempts := 0
	var lastErr error

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("X-Api-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			serverErrAttempts++
			if serverErrAttempts >= c.cfg.ServerErrRetries {
				return nil, scanerrors.NewUpstreamError(providerName, lastErr)
			}
			logger.WithError(err).WithFields(map[string]interface{}{
				"attempt": serverErrAttempts,
				"delay":   c.cfg.ServerErrDelay.String(),
			}).Warn("Request failed, retrying")
			if err := sleepCtx(ctx, c.cfg.ServerErrDelay); err != nil {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			rateLimitAttempts++
			if rateLimitAttempts >= c.cfg.RateLimitRetries {
				return nil, scanerrors.NewRateLimitedError(providerName, rateLimitAttempts)
			}
			delay := retryAfter(resp, c.cfg.RateLimitBackoff)
			logger.WithFields(map[string]interface{}{
				"attempt": rateLimitAttempts,
				"delay":   delay.String(),
			}).Warn("Rate limited, backing off")
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
			continue

		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			serverErrAttempts++
			if serverErrAttempts >= c.cfg.ServerErrRetries {
				return nil, scanerrors.NewUpstreamError(providerName, lastErr)
			}
			logger.WithFields(map[string]interface{}{
				"status":  resp.StatusCode,
				"attempt": serverErrAttempts,
				"delay":   c.cfg.ServerErrDelay.String(),
			}).Warn("Server error, retrying")
			if err := sleepCtx(ctx, c.cfg.ServerErrDelay); err != nil {
				return nil, err
			}
			continue

		case resp.StatusCode != http.StatusOK:
			return nil, scanerrors.NewUpstreamError(providerName,
				fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(body, 200)))
		}

		if readErr != nil {
			return nil, scanerrors.NewUpstreamError(providerName, readErr)
		}
		return body, nil
	}
}

// retryAfter reads the Retry-After header, falling back to the default.
func retryAfter(resp *http.Response, fallback time.Duration) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
