// Package transport is the HTTP/JSON plumbing shared by market providers.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"btcdigest/pkg/market"
)

const (
	defaultHTTPTimeout      = 10 * time.Second
	defaultRetryBackoffBase = 150 * time.Millisecond
	defaultUserAgent        = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	maxErrorBody            = 256
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Provider string
	URL      string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: http status %d from %s: %s", e.Provider, e.Code, e.URL, e.Body)
}

// Unwrap lets callers match market.ErrProviderUnavailable.
func (e *StatusError) Unwrap() error { return market.ErrProviderUnavailable }

// Client issues GET requests against one provider base URL.
type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
	headers    http.Header
	maxRetries int
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request HTTP timeout on the default client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d, Transport: c.httpClient.Transport}
		}
	}
}

// WithMaxRetries adjusts the retry budget. Zero means a single attempt.
func WithMaxRetries(max int) Option {
	return func(c *Client) {
		if max >= 0 {
			c.maxRetries = max
		}
	}
}

// WithHeader adds a header sent on every request. Empty values are ignored.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if strings.TrimSpace(value) != "" {
			c.headers.Set(key, value)
		}
	}
}

// WithBearerToken sets an Authorization bearer header when token is not empty.
func WithBearerToken(token string) Option {
	return func(c *Client) {
		if token = strings.TrimSpace(token); token != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// New constructs a client for the provider name rooted at baseURL.
func New(name, baseURL string, opts ...Option) *Client {
	c := &Client{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		headers:    make(http.Header),
	}
	c.headers.Set("Accept", "application/json")
	c.headers.Set("User-Agent", defaultUserAgent)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured root URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Get fetches path with query and returns the parsed JSON document. Network
// failures, non-2xx statuses and malformed JSON all wrap
// market.ErrProviderUnavailable.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (gjson.Result, error) {
	body, err := c.GetRaw(ctx, path, query)
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w: %s: malformed JSON from %s", market.ErrProviderUnavailable, c.name, path)
	}
	return gjson.ParseBytes(body), nil
}

// GetRaw is Get without JSON validation.
func (c *Client) GetRaw(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var lastErr error
	backoff := defaultRetryBackoffBase
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: build request: %v", market.ErrProviderUnavailable, c.name, err)
		}
		for key, values := range c.headers {
			for _, v := range values {
				req.Header.Add(key, v)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s: %v", market.ErrProviderUnavailable, c.name, ctx.Err())
			}
			lastErr = fmt.Errorf("%w: %s: %v", market.ErrProviderUnavailable, c.name, err)
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: %s: read response: %v", market.ErrProviderUnavailable, c.name, readErr)
			case resp.StatusCode < 200 || resp.StatusCode >= 300:
				lastErr = &StatusError{Provider: c.name, URL: path, Code: resp.StatusCode, Body: truncate(string(body))}
			default:
				return body, nil
			}
		}

		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %s: %v", market.ErrProviderUnavailable, c.name, ctx.Err())
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: %s: request failed without error detail", market.ErrProviderUnavailable, c.name)
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
