package haiblock

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Common errors. Typed errors in this package match these with errors.Is.
var (
	// ErrConfiguration indicates invalid client construction input
	ErrConfiguration = errors.New("invalid haiblock client configuration")
	// ErrFileAccess indicates a local file could not be read
	ErrFileAccess = errors.New("file access error")
	// ErrUnauthorized indicates the API rejected the bearer token
	ErrUnauthorized = errors.New("unauthorized: invalid or expired auth token")
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = errors.New("resource not found")
	// ErrSchema indicates a response did not match the expected schema
	ErrSchema = errors.New("response schema mismatch")
	// ErrTimeout indicates a job did not reach a terminal status in time
	ErrTimeout = errors.New("timed out waiting for job")
	// ErrCancelled indicates the caller aborted the operation
	ErrCancelled = errors.New("operation cancelled")
	// ErrJobFailed indicates a server-side job finished in the failed state
	ErrJobFailed = errors.New("job failed")
)

// ConfigurationError is returned by NewClient for bad constructor input.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// FileAccessError is returned when a file to upload is missing or unreadable.
// No request is sent when this error is returned.
type FileAccessError struct {
	Path string
	Op   string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("cannot %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error {
	return e.Err
}

func (e *FileAccessError) Is(target error) bool {
	return target == ErrFileAccess
}

// APIError represents a failed HaiBlock API call. StatusCode is zero when
// the request never produced an HTTP response (connection refused, DNS,
// per-request timeout); Err then holds the transport error.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
	Method     string
	Path       string
	RequestID  string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("haiblock API error: %s %s: request failed: %s", e.Method, e.Path, e.Message)
	}
	return fmt.Sprintf("haiblock API error: %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrNotFound) and errors.Is(err, ErrUnauthorized)
// match on the status code.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.IsNotFound()
	case ErrUnauthorized:
		return e.IsUnauthorized()
	}
	return false
}

// IsNotFound checks if the error indicates a not found response
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsTransport reports whether the request failed before a response arrived
func (e *APIError) IsTransport() bool {
	return e.StatusCode == 0
}

// errorPayload is the error body shape the API uses. Any of the fields may be set.
type errorPayload struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Detail  string `json:"detail"`
}

func newAPIError(status int, method, path, requestID string, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Body:       string(body),
		Method:     method,
		Path:       path,
		RequestID:  requestID,
	}

	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Message != "":
			apiErr.Message = payload.Message
		case payload.Error != "":
			apiErr.Message = payload.Error
		case payload.Detail != "":
			apiErr.Message = payload.Detail
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// SchemaError is returned when a response body fails validation at the
// decoding boundary.
type SchemaError struct {
	Schema   string
	Problems []string
	Err      error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid %s response: %s", e.Schema, strings.Join(e.Problems, "; "))
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// TimeoutError is returned when polling exceeds JobOptions.Timeout.
type TimeoutError struct {
	Operation  string
	ID         string
	Timeout    time.Duration
	LastStatus string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %s: no terminal status after %s (last status %q)", e.Operation, e.ID, e.Timeout, e.LastStatus)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// JobError is returned in wait mode when the job ends in the failed state.
// The final result is returned alongside it.
type JobError struct {
	Operation string
	ID        string
	Status    string
	Message   string
}

func (e *JobError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s finished with status %s: %s", e.Operation, e.ID, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s finished with status %s", e.Operation, e.ID, e.Status)
}

func (e *JobError) Is(target error) bool {
	return target == ErrJobFailed
}

// cancelled wraps a context error so it matches both ErrCancelled and the
// original context error.
func cancelled(ctxErr error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, ctxErr)
}

func isCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
