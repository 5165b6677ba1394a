package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"watchtower/pkg/logging"
)

// maxResponseBytes caps upstream response bodies (some feeds are bulky GeoJSON).
const maxResponseBytes = 16 << 20

// ClientError is returned for 4xx upstream responses. It is never retried.
type ClientError struct {
	StatusCode int
	URL        string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("client error %d from %s", e.StatusCode, e.URL)
}

// FetchClient performs JSON requests against external APIs with bounded
// retries and a per-call timeout. All source fetchers go through it.
type FetchClient struct {
	httpClient *http.Client
	retry      RetryConfig
	userAgent  string
	logger     logging.Logger
}

// FetchConfig configures a FetchClient.
type FetchConfig struct {
	Timeout    time.Duration // wall-clock bound per call, 5-30s depending on upstream
	MaxRetries int
	RetryDelay time.Duration
	UserAgent  string
	Breaker    *CircuitBreaker
	Logger     logging.Logger
}

// NewFetchClient creates a fetch client for one upstream family.
func NewFetchClient(cfg FetchConfig) *FetchClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	retry := DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retry.MaxRetries = cfg.MaxRetries
	}
	if cfg.RetryDelay > 0 {
		retry.BaseDelay = cfg.RetryDelay
	}
	retry.CircuitBreaker = cfg.Breaker
	retry.Logger = cfg.Logger

	return &FetchClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retry:      retry,
		userAgent:  cfg.UserAgent,
		logger:     cfg.Logger,
	}
}

// GetJSON fetches url and decodes the 2xx response body into out.
func (c *FetchClient) GetJSON(ctx context.Context, url string, headers map[string]string, out interface{}) error {
	return c.doJSON(ctx, http.MethodGet, url, headers, nil, out)
}

// PostJSON sends body as JSON to url and decodes the 2xx response into out.
func (c *FetchClient) PostJSON(ctx context.Context, url string, headers map[string]string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	return c.doJSON(ctx, http.MethodPost, url, headers, payload, out)
}

func (c *FetchClient) doJSON(ctx context.Context, method, url string, headers map[string]string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := DoWithRetry(ctx, c.httpClient, req, c.retry)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &ClientError{StatusCode: resp.StatusCode, URL: url}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", url, err)
	}
	return nil
}
