package xero

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// TokenProvider supplies a valid access token for each request. The token
// lifecycle manager satisfies this.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// retryStatuses are responses worth backing off and retrying: the provider's
// rate limiter and transient upstream failures.
var retryStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

const maxAttempts = 6

// SleepFunc pauses between retry attempts. It can be overridden in tests.
var SleepFunc = sleepContext

// Client talks to the accounting API for one tenant.
type Client struct {
	baseURL  string
	tenantID string
	tokens   TokenProvider
	client   *http.Client
}

// NewClient creates an accounting API client. A nil httpClient falls back to
// a client with a 60s timeout.
func NewClient(baseURL, tenantID string, tokens TokenProvider, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL:  baseURL,
		tenantID: tenantID,
		tokens:   tokens,
		client:   httpClient,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// get performs an authenticated GET with retry on rate limiting and transient
// upstream errors: exponential backoff capped at 60s, up to 6 attempts. The
// caller owns the response body.
func (c *Client) get(ctx context.Context, path string, params url.Values, accept string) (*http.Response, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	requestURL := c.baseURL + path
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, fmt.Errorf("[Client get] build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Xero-tenant-id", c.tenantID)
		req.Header.Set("Accept", accept)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("[Client get] %s: %w", path, err)
		}

		if retryStatuses[resp.StatusCode] {
			resp.Body.Close()
			backoff := min(60*time.Second, (1<<attempt)*time.Second)
			log.Warn().Int("status", resp.StatusCode).Str("path", path).
				Dur("backoff", backoff).Msg("retrying after transient API error")
			if err := SleepFunc(ctx, backoff); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("[Client get] %s returned %d: %s", path, resp.StatusCode, body)
		}
		return resp, nil
	}
	return nil, fmt.Errorf("[Client get] %s: retries exhausted after %d attempts", path, maxAttempts)
}
