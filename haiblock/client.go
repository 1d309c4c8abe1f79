package haiblock

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/haiblock/haiblock-go/version"
)

const (
	// DefaultAPIURL is used by NewClientFromEnv when HAIBLOCK_API_URL is unset
	DefaultAPIURL = "https://api.haiblock.com"

	// EnvAPIURL and EnvAuthToken are read by NewClientFromEnv
	EnvAPIURL    = "HAIBLOCK_API_URL"
	EnvAuthToken = "HAIBLOCK_AUTH_TOKEN"

	headerRequestID  = "X-Request-ID"
	headerAPIVersion = "X-HaiBlock-API-Version"

	// maxErrorBody caps how much of an error response is kept on APIError
	maxErrorBody = 64 << 10
)

// Client represents a HaiBlock API client. It is safe for concurrent use.
type Client struct {
	baseURL           string
	authToken         string
	httpClient        *http.Client
	logger            zerolog.Logger
	retryConfig       RetryConfig
	userAgent         string
	pageSize          int
	uploadConcurrency int

	versionOnce sync.Once
}

// NewClient creates a new HaiBlock client. It validates its input but makes
// no network calls.
func NewClient(apiURL, authToken string, opts ...Option) (*Client, error) {
	baseURL, err := normalizeBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(authToken) == "" {
		return nil, &ConfigurationError{Field: "auth_token", Reason: "must not be empty"}
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	httpClient := options.httpClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: options.timeout,
		}
	}
	userAgent := options.userAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}

	return &Client{
		baseURL:           baseURL,
		authToken:         authToken,
		httpClient:        httpClient,
		logger:            options.logger,
		retryConfig:       options.retryConfig,
		userAgent:         userAgent,
		pageSize:          options.pageSize,
		uploadConcurrency: options.uploadConcurrency,
	}, nil
}

// NewClientFromEnv creates a client from HAIBLOCK_API_URL and
// HAIBLOCK_AUTH_TOKEN. The URL defaults to DefaultAPIURL.
func NewClientFromEnv(opts ...Option) (*Client, error) {
	apiURL := os.Getenv(EnvAPIURL)
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return NewClient(apiURL, os.Getenv(EnvAuthToken), opts...)
}

func normalizeBaseURL(apiURL string) (string, error) {
	raw := strings.TrimSpace(apiURL)
	if raw == "" {
		return "", &ConfigurationError{Field: "api_url", Reason: "must not be empty"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", &ConfigurationError{Field: "api_url", Reason: "not a valid URL", Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &ConfigurationError{Field: "api_url", Reason: fmt.Sprintf("scheme must be http or https, got %q", u.Scheme)}
	}
	if u.Host == "" {
		return "", &ConfigurationError{Field: "api_url", Reason: "must be an absolute URL with a host"}
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", &ConfigurationError{Field: "api_url", Reason: "must not carry a query or fragment"}
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// BaseURL returns the API base URL without a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest performs a request without a body. GET and DELETE requests are
// retried on transient failures according to the client's RetryConfig.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, params url.Values) ([]byte, error) {
	if !isIdempotent(method) {
		return c.send(ctx, method, endpoint, params, nil, "")
	}

	var body []byte
	b := backoff.WithContext(createBackoff(c.retryConfig), ctx)
	err := backoff.RetryNotify(func() error {
		var err error
		body, err = c.send(ctx, method, endpoint, params, nil, "")
		if err != nil && !isRetriable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		c.logger.Debug().
			Err(err).
			Str("method", method).
			Str("path", endpoint).
			Dur("backoff", wait).
			Msg("Retrying HaiBlock API request")
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !isCancelled(err) {
			return nil, cancelled(ctxErr)
		}
		return nil, err
	}
	return body, nil
}

// postJSON sends payload as a JSON body. It is never retried.
func (c *Client) postJSON(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	var body io.Reader
	contentType := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.send(ctx, http.MethodPost, endpoint, nil, body, contentType)
}

// send performs a single authenticated HTTP request and classifies failures.
func (c *Client) send(ctx context.Context, method, endpoint string, params url.Values, body io.Reader, contentType string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}

	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+c.authToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(headerRequestID, requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, cancelled(ctxErr)
		}
		return nil, &APIError{
			Message:   err.Error(),
			Method:    method,
			Path:      endpoint,
			RequestID: requestID,
			Err:       err,
		}
	}
	defer resp.Body.Close()

	c.checkAPIVersion(resp.Header.Get(headerAPIVersion))

	c.logger.Debug().
		Str("method", method).
		Str("path", endpoint).
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Dur("elapsed", time.Since(start)).
		Msg("HaiBlock API request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newAPIError(resp.StatusCode, method, endpoint, requestID, data)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, cancelled(ctxErr)
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    "failed to read response body",
			Method:     method,
			Path:       endpoint,
			RequestID:  requestID,
			Err:        err,
		}
	}
	return data, nil
}

// checkAPIVersion warns once per client when the server speaks an
// incompatible API major version.
func (c *Client) checkAPIVersion(serverVersion string) {
	if serverVersion == "" {
		return
	}
	c.versionOnce.Do(func() {
		if err := version.CheckCompatible(serverVersion); err != nil {
			c.logger.Warn().
				Err(err).
				Str("server_version", serverVersion).
				Str("client_version", version.APIVersion).
				Msg("HaiBlock API version mismatch")
		}
	})
}

// pathEscape escapes an id for use as a single path segment
func pathEscape(id string) string {
	return url.PathEscape(id)
}
