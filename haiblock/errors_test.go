package haiblock

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindsAreDistinct(t *testing.T) {
	errs := map[error]error{
		ErrConfiguration: &ConfigurationError{Field: "api_url", Reason: "must not be empty"},
		ErrFileAccess:    &FileAccessError{Path: "a.txt", Op: "stat", Err: os.ErrNotExist},
		ErrSchema:        &SchemaError{Schema: "content", Problems: []string{"id is required"}},
		ErrTimeout:       &TimeoutError{Operation: "transform", ID: "c1", Timeout: time.Second},
		ErrJobFailed:     &JobError{Operation: "submit", ID: "s1", Status: "failed"},
		ErrCancelled:     cancelled(context.Canceled),
	}

	for sentinel, err := range errs {
		for other := range errs {
			assert.Equal(t, sentinel == other, errors.Is(err, other), "%v vs %v", err, other)
		}
	}
}

func TestErrorsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("upload failed: %w", &APIError{StatusCode: http.StatusNotFound, Method: "GET", Path: "/content/x"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrUnauthorized)

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "api error",
			err:  &APIError{StatusCode: 500, Message: "boom", Method: "GET", Path: "/analytics"},
			want: "haiblock API error: GET /analytics: status 500: boom",
		},
		{
			name: "transport error",
			err:  &APIError{Message: "connection refused", Method: "POST", Path: "/content"},
			want: "haiblock API error: POST /content: request failed: connection refused",
		},
		{
			name: "file access",
			err:  &FileAccessError{Path: "missing.txt", Op: "stat", Err: os.ErrNotExist},
			want: "cannot stat missing.txt: file does not exist",
		},
		{
			name: "configuration",
			err:  &ConfigurationError{Field: "auth_token", Reason: "must not be empty"},
			want: "invalid auth_token: must not be empty",
		},
		{
			name: "timeout",
			err:  &TimeoutError{Operation: "transform", ID: "c1", Timeout: time.Minute, LastStatus: "transforming"},
			want: `transform c1: no terminal status after 1m0s (last status "transforming")`,
		},
		{
			name: "job failed with message",
			err:  &JobError{Operation: "submit", ID: "s1", Status: "failed", Message: "throttled"},
			want: "submit s1 finished with status failed: throttled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIsRetriable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "transport", err: &APIError{Err: errors.New("reset")}, want: true},
		{name: "too many requests", err: &APIError{StatusCode: 429}, want: true},
		{name: "bad gateway", err: &APIError{StatusCode: 502}, want: true},
		{name: "unavailable", err: &APIError{StatusCode: 503}, want: true},
		{name: "gateway timeout", err: &APIError{StatusCode: 504}, want: true},
		{name: "internal error", err: &APIError{StatusCode: 500}, want: false},
		{name: "not found", err: &APIError{StatusCode: 404}, want: false},
		{name: "cancelled", err: cancelled(context.Canceled), want: false},
		{name: "schema", err: &SchemaError{Schema: "content"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetriable(tt.err))
		})
	}
}

func TestStatusParsing(t *testing.T) {
	contentTests := map[string]ContentStatus{
		"uploaded":    StatusUploaded,
		"processing":  StatusTransforming,
		"TRANSFORMED": StatusTransformed,
		"processed":   StatusTransformed,
		"submitted":   StatusSubmitted,
		"error":       StatusFailed,
		"archived":    ContentStatus("archived"),
	}
	for in, want := range contentTests {
		assert.Equal(t, want, ParseContentStatus(in), in)
	}

	submissionTests := map[string]SubmissionStatus{
		"pending":   SubmissionPending,
		"submitted": SubmissionSubmitted,
		"succeeded": SubmissionSuccess,
		"error":     SubmissionFailed,
	}
	for in, want := range submissionTests {
		assert.Equal(t, want, ParseSubmissionStatus(in), in)
	}

	assert.True(t, StatusTransformed.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, StatusTransforming.IsTerminal())
	assert.False(t, SubmissionSubmitted.IsTerminal())
}
