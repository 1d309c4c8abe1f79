package haiblock

import (
	"context"
	"iter"
)

// API defines the interface for HaiBlock operations
type API interface {
	// UploadFile uploads a local file as a new content item
	UploadFile(ctx context.Context, path string, metadata map[string]any) (*ContentRecord, error)

	// UploadFiles uploads several files with bounded concurrency
	UploadFiles(ctx context.Context, paths []string, metadata map[string]any) BatchUploadResult

	// GetContent retrieves a single content item
	GetContent(ctx context.Context, contentID string) (*ContentRecord, error)

	// DeleteContent removes a content item
	DeleteContent(ctx context.Context, contentID string) error

	// ListContent lazily enumerates all content items
	ListContent(ctx context.Context, opts ListOptions) iter.Seq2[*ContentRecord, error]

	// TransformContent starts, and optionally waits for, a transformation
	TransformContent(ctx context.Context, contentID string, opts JobOptions) (*TransformResult, error)

	// SubmitToBedrock submits transformed content to Amazon Bedrock
	SubmitToBedrock(ctx context.Context, contentID string, opts JobOptions) (*SubmissionResult, error)

	// SubmitToModel submits transformed content to a named provider
	SubmitToModel(ctx context.Context, contentID, provider string, opts JobOptions) (*SubmissionResult, error)

	// GetSubmission retrieves a submission by id
	GetSubmission(ctx context.Context, submissionID string) (*SubmissionResult, error)

	// ListSubmissions lazily enumerates submissions, optionally for one content item
	ListSubmissions(ctx context.Context, contentID string, opts ListOptions) iter.Seq2[*SubmissionResult, error]

	// GetAnalytics retrieves usage metrics for a time window
	GetAnalytics(ctx context.Context, timeRange *TimeRange) (*AnalyticsSnapshot, error)
}

var _ API = (*Client)(nil)
