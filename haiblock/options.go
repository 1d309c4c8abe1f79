package haiblock

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultTimeout           = 30 * time.Second
	defaultPageSize          = 50
	defaultUploadConcurrency = 4
)

// Option configures a Client.
type Option func(*clientOptions)

// clientOptions holds configuration options for the Client.
type clientOptions struct {
	logger            zerolog.Logger
	timeout           time.Duration
	httpClient        *http.Client
	retryConfig       RetryConfig
	userAgent         string
	pageSize          int
	uploadConcurrency int
}

func defaultOptions() clientOptions {
	return clientOptions{
		logger:            zerolog.Nop(),
		timeout:           defaultTimeout,
		retryConfig:       DefaultRetryConfig(),
		pageSize:          defaultPageSize,
		uploadConcurrency: defaultUploadConcurrency,
	}
}

// WithLogger sets the logger used for request and polling diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithTimeout sets the per-request HTTP timeout. It does not bound job polling;
// use JobOptions.Timeout for that.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. WithTimeout is ignored
// when this option is set.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = httpClient
	}
}

// WithRetryConfig sets the retry policy for idempotent requests.
func WithRetryConfig(retryConfig RetryConfig) Option {
	return func(o *clientOptions) {
		o.retryConfig = retryConfig
	}
}

// WithDisableRetry turns off automatic retries.
func WithDisableRetry() Option {
	return func(o *clientOptions) {
		o.retryConfig.MaxRetries = 0
	}
}

// WithUserAgent sets a custom user agent string.
func WithUserAgent(userAgent string) Option {
	return func(o *clientOptions) {
		o.userAgent = userAgent
	}
}

// WithPageSize sets how many records list requests ask for per page.
func WithPageSize(size int) Option {
	return func(o *clientOptions) {
		if size > 0 {
			o.pageSize = size
		}
	}
}

// WithUploadConcurrency caps parallel uploads in UploadFiles.
func WithUploadConcurrency(n int) Option {
	return func(o *clientOptions) {
		if n > 0 {
			o.uploadConcurrency = n
		}
	}
}
