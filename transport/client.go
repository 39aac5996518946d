package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/estait/crmbridge/core"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxAttempts = 3
)

// Client speaks to a CRM API that multiplexes every operation through a single
// endpoint, discriminated by a requestType parameter. It resolves a bearer
// token per call, retries transient failures with exponential backoff, and
// never retries auth rejections or, by default, write-style requests.
type Client struct {
	baseURL     string
	tokens      core.TokenSource
	httpClient  core.HTTPDoer
	logger      core.Logger
	backoff     BackoffScheduler
	timeout     time.Duration
	maxAttempts int
	retryWrites bool
	provider    string
}

type Option func(*Client)

// WithProviderName labels auth errors with the provider's display name.
func WithProviderName(name string) Option {
	return func(c *Client) {
		if strings.TrimSpace(name) != "" {
			c.provider = strings.TrimSpace(name)
		}
	}
}

func WithHTTPClient(client core.HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithBackoffScheduler(scheduler BackoffScheduler) Option {
	return func(c *Client) {
		if scheduler != nil {
			c.backoff = scheduler
		}
	}
}

// WithTimeout bounds each individual attempt, not the whole retry loop.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithMaxAttempts(attempts int) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.maxAttempts = attempts
		}
	}
}

// WithRetryWrites opts non-GET requests into the retry loop. The upstream API
// offers no idempotency keys, so retried writes can duplicate records; leave
// this off unless the caller deduplicates.
func WithRetryWrites(retry bool) Option {
	return func(c *Client) {
		c.retryWrites = retry
	}
}

func NewClient(baseURL string, tokens core.TokenSource, options ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, core.NewConfigurationError("transport: base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, core.NewConfigurationError("transport: base URL is not a valid URL")
	}
	if tokens == nil {
		return nil, core.NewConfigurationError("transport: token source is required")
	}

	client := &Client{
		baseURL:     baseURL,
		tokens:      tokens,
		httpClient:  http.DefaultClient,
		logger:      glog.Ensure(nil),
		backoff:     ExponentialBackoffScheduler{},
		timeout:     defaultTimeout,
		maxAttempts: defaultMaxAttempts,
		provider:    "CRM provider",
	}
	for _, option := range options {
		if option != nil {
			option(client)
		}
	}
	return client, nil
}

// Request performs one API operation for the user. GET requests carry params
// in the query string; other methods send a form-encoded body. The decoded
// JSON payload is returned as-is; a 2xx body that is not JSON comes back as a
// trimmed raw string, which some operations use for bare token responses.
func (c *Client) Request(ctx context.Context, userID, method string, params map[string]string) (any, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}

	token, err := c.tokens.GetValidAccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(token) == "" {
		return nil, core.NewAuthRequiredError(c.provider)
	}

	attempts := c.maxAttempts
	if method != http.MethodGet && !c.retryWrites {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := c.attempt(ctx, method, token, params)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !core.IsRetryable(err) {
			return nil, err
		}
		if attempt == attempts {
			break
		}

		delay := c.backoff.NextDelay(attempt)
		c.logger.Info("request attempt failed, backing off",
			"request_type", params["requestType"],
			"attempt", attempt,
			"delay", delay.String(),
			"error", err,
		)
		if waitErr := waitWithContext(ctx, delay); waitErr != nil {
			return nil, waitErr
		}
	}

	if attempts == 1 {
		return nil, lastErr
	}
	return nil, core.NewRequestFailedError(lastErr)
}

func (c *Client) attempt(ctx context.Context, method, token string, params map[string]string) (any, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(attemptCtx, method, params)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, core.MapError(fmt.Errorf("transport: request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.MapError(fmt.Errorf("transport: read response: %w", err))
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, core.NewUnauthorizedError("transport: access token rejected")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, core.NewAPIError(
			fmt.Sprintf("transport: API returned status %d", resp.StatusCode),
			resp.StatusCode,
			string(body),
		)
	}

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		// Some operations answer with a bare string payload.
		return trimmed, nil
	}
	return decoded, nil
}

func (c *Client) buildRequest(ctx context.Context, method string, params map[string]string) (*http.Request, error) {
	values := url.Values{}
	for _, key := range sortedKeys(params) {
		values.Set(key, params[key])
	}

	if method == http.MethodGet {
		target := c.baseURL
		if encoded := values.Encode(); encoded != "" {
			separator := "?"
			if strings.Contains(target, "?") {
				separator = "&"
			}
			target += separator + encoded
		}
		req, err := http.NewRequestWithContext(ctx, method, target, nil)
		if err != nil {
			return nil, core.NewBadInputError("transport: build request: " + err.Error())
		}
		return req, nil
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, core.NewBadInputError("transport: build request: " + err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

func sortedKeys(params map[string]string) []string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
