package haiblock

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// timestampLayouts are tried in order. The API emits RFC 3339 but older
// records carry naive ISO timestamps, which are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// ContentStatus represents the lifecycle state of a content item
type ContentStatus string

const (
	// StatusUploaded means the file was received and stored
	StatusUploaded ContentStatus = "uploaded"
	// StatusTransforming means a transformation job is running
	StatusTransforming ContentStatus = "transforming"
	// StatusTransformed means the content is ready for submission
	StatusTransformed ContentStatus = "transformed"
	// StatusSubmitted means the content was forwarded to an AI provider
	StatusSubmitted ContentStatus = "submitted"
	// StatusFailed means the last job on this content failed
	StatusFailed ContentStatus = "failed"
)

// ParseContentStatus normalises a server status string. The API also reports
// "processing", "processed" and "error"; they map onto the canonical values.
func ParseContentStatus(s string) ContentStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "uploaded":
		return StatusUploaded
	case "transforming", "processing":
		return StatusTransforming
	case "transformed", "processed":
		return StatusTransformed
	case "submitted":
		return StatusSubmitted
	case "failed", "error":
		return StatusFailed
	}
	return ContentStatus(s)
}

// String returns the string representation of the status
func (s ContentStatus) String() string {
	return string(s)
}

// IsTerminal reports whether a transformation wait may stop at this status
func (s ContentStatus) IsTerminal() bool {
	return s == StatusTransformed || s == StatusFailed
}

// UnmarshalJSON normalises aliases on decode
func (s *ContentStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseContentStatus(raw)
	return nil
}

// SubmissionStatus represents the state of a provider submission
type SubmissionStatus string

const (
	// SubmissionPending means the submission is queued
	SubmissionPending SubmissionStatus = "pending"
	// SubmissionSubmitted means the content was handed to the provider
	SubmissionSubmitted SubmissionStatus = "submitted"
	// SubmissionSuccess means the provider accepted the content
	SubmissionSuccess SubmissionStatus = "success"
	// SubmissionFailed means the provider rejected the content or the call failed
	SubmissionFailed SubmissionStatus = "failed"
)

// ParseSubmissionStatus normalises a server submission status
func ParseSubmissionStatus(s string) SubmissionStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return SubmissionPending
	case "submitted":
		return SubmissionSubmitted
	case "success", "succeeded":
		return SubmissionSuccess
	case "failed", "error":
		return SubmissionFailed
	}
	return SubmissionStatus(s)
}

// String returns the string representation of the status
func (s SubmissionStatus) String() string {
	return string(s)
}

// IsTerminal reports whether a submission wait may stop at this status
func (s SubmissionStatus) IsTerminal() bool {
	return s == SubmissionSuccess || s == SubmissionFailed
}

// UnmarshalJSON normalises aliases on decode
func (s *SubmissionStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseSubmissionStatus(raw)
	return nil
}

// ProviderBedrock is the Amazon Bedrock provider name
const ProviderBedrock = "bedrock"

// ContentRecord is the client's copy of a server-side content item.
type ContentRecord struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id,omitempty"`
	Filename         string          `json:"filename"`
	Status           ContentStatus   `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"last_updated,omitzero"`
	OriginalText     string          `json:"original_text,omitempty"`
	TransformedText  string          `json:"transformed_text,omitempty"`
	FileSize         int64           `json:"file_size,omitempty"`
	FileType         string          `json:"file_type,omitempty"`
	S3Key            string          `json:"s3_key,omitempty"`
	Metadata         map[string]any  `json:"upload_metadata,omitempty"`
	ValidationChecks map[string]bool `json:"validation_checks,omitempty"`
}

// UnmarshalJSON accepts both created_at and the older upload_date field,
// with or without a zone offset.
func (r *ContentRecord) UnmarshalJSON(data []byte) error {
	type plain ContentRecord
	aux := struct {
		*plain
		CreatedAt  string `json:"created_at"`
		UploadDate string `json:"upload_date"`
		UpdatedAt  string `json:"last_updated"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	created := aux.CreatedAt
	if created == "" {
		created = aux.UploadDate
	}
	var err error
	if r.CreatedAt, err = parseTimestamp(created); err != nil {
		return fmt.Errorf("created_at: %w", err)
	}
	if r.UpdatedAt, err = parseTimestamp(aux.UpdatedAt); err != nil {
		return fmt.Errorf("last_updated: %w", err)
	}
	return nil
}

// TransformResult is returned by TransformContent.
type TransformResult struct {
	ContentID          string           `json:"content_id"`
	Status             ContentStatus    `json:"status"`
	TransformedPayload string           `json:"transformed_text,omitempty"`
	Success            bool             `json:"success"`
	Chunks             []string         `json:"chunks,omitempty"`
	CompanyInfo        map[string]any   `json:"company_info,omitempty"`
	FAQs               []map[string]any `json:"faqs,omitempty"`
	Error              string           `json:"error,omitempty"`
}

// normalize fills the status for servers that only report success/error
func (t *TransformResult) normalize(contentID string) {
	if t.ContentID == "" {
		t.ContentID = contentID
	}
	if t.Status != "" {
		return
	}
	switch {
	case t.Error != "":
		t.Status = StatusFailed
	case t.Success && t.TransformedPayload != "":
		t.Status = StatusTransformed
	default:
		t.Status = StatusTransforming
	}
}

// SubmissionResult is returned by SubmitToBedrock and GetSubmission.
type SubmissionResult struct {
	SubmissionID string           `json:"submission_id"`
	ContentID    string           `json:"content_id"`
	Provider     string           `json:"provider"`
	Status       SubmissionStatus `json:"status"`
	SubmittedAt  time.Time        `json:"submitted_at,omitzero"`
	CostEstimate *float64         `json:"cost_estimate,omitempty"`
	ResponseData map[string]any   `json:"response_data,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

// UnmarshalJSON accepts the submission identifier as either submission_id or id
func (s *SubmissionResult) UnmarshalJSON(data []byte) error {
	type plain SubmissionResult
	aux := struct {
		*plain
		ID          string `json:"id"`
		SubmittedAt string `json:"submitted_at"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if s.SubmissionID == "" {
		s.SubmissionID = aux.ID
	}
	var err error
	if s.SubmittedAt, err = parseTimestamp(aux.SubmittedAt); err != nil {
		return fmt.Errorf("submitted_at: %w", err)
	}
	return nil
}

// TimeRange bounds an analytics query. A zero From or To leaves that end open.
type TimeRange struct {
	From time.Time `json:"from,omitzero"`
	To   time.Time `json:"to,omitzero"`
}

// IsZero reports whether neither bound is set
func (t TimeRange) IsZero() bool {
	return t.From.IsZero() && t.To.IsZero()
}

// Activity is one entry of the analytics recent-activity feed
type Activity struct {
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	ContentID string `json:"content_id,omitempty"`
	Status    string `json:"status,omitempty"`
}

// MonthlyTrend aggregates a single month
type MonthlyTrend struct {
	Submissions int     `json:"submissions"`
	Costs       float64 `json:"costs"`
}

// AnalyticsSnapshot is a set of usage and cost metrics over a time window.
type AnalyticsSnapshot struct {
	Range TimeRange `json:"range"`
	// Metrics holds every numeric metric by name, including the typed
	// fields below.
	Metrics map[string]float64 `json:"metrics"`

	TotalContent                int                     `json:"total_content"`
	TotalSubmissions            int                     `json:"total_submissions"`
	SuccessfulSubmissions       int                     `json:"successful_submissions"`
	FailedSubmissions           int                     `json:"failed_submissions"`
	TotalCosts                  float64                 `json:"total_costs"`
	AverageCostPerSubmission    float64                 `json:"average_cost_per_submission"`
	SuccessRate                 float64                 `json:"success_rate"`
	ContentStatusBreakdown      map[string]int          `json:"content_status_breakdown,omitempty"`
	SubmissionProviderBreakdown map[string]int          `json:"submission_provider_breakdown,omitempty"`
	RecentActivity              []Activity              `json:"recent_activity,omitempty"`
	MonthlyTrends               map[string]MonthlyTrend `json:"monthly_trends,omitempty"`
}

// UnmarshalJSON reads the range from top-level from/to and reconciles the
// typed counters with Metrics. A counter sent only in metrics fills the typed
// field; a top-level counter is added to Metrics unless metrics already has
// it. Counters absent from both stay out of Metrics.
func (a *AnalyticsSnapshot) UnmarshalJSON(data []byte) error {
	type plain AnalyticsSnapshot
	aux := struct {
		*plain
		From string `json:"from"`
		To   string `json:"to"`

		TotalContent             *float64 `json:"total_content"`
		TotalSubmissions         *float64 `json:"total_submissions"`
		SuccessfulSubmissions    *float64 `json:"successful_submissions"`
		FailedSubmissions        *float64 `json:"failed_submissions"`
		TotalCosts               *float64 `json:"total_costs"`
		AverageCostPerSubmission *float64 `json:"average_cost_per_submission"`
		SuccessRate              *float64 `json:"success_rate"`
	}{plain: (*plain)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	var err error
	if aux.From != "" {
		if a.Range.From, err = parseTimestamp(aux.From); err != nil {
			return fmt.Errorf("from: %w", err)
		}
	}
	if aux.To != "" {
		if a.Range.To, err = parseTimestamp(aux.To); err != nil {
			return fmt.Errorf("to: %w", err)
		}
	}

	if a.Metrics == nil {
		a.Metrics = make(map[string]float64)
	}
	reconcile := func(name string, top *float64) float64 {
		if v, ok := a.Metrics[name]; ok {
			return v
		}
		if top == nil {
			return 0
		}
		a.Metrics[name] = *top
		return *top
	}
	a.TotalContent = int(reconcile("total_content", aux.TotalContent))
	a.TotalSubmissions = int(reconcile("total_submissions", aux.TotalSubmissions))
	a.SuccessfulSubmissions = int(reconcile("successful_submissions", aux.SuccessfulSubmissions))
	a.FailedSubmissions = int(reconcile("failed_submissions", aux.FailedSubmissions))
	a.TotalCosts = reconcile("total_costs", aux.TotalCosts)
	a.AverageCostPerSubmission = reconcile("average_cost_per_submission", aux.AverageCostPerSubmission)
	a.SuccessRate = reconcile("success_rate", aux.SuccessRate)
	return nil
}

// Metric returns a metric by name and whether the server reported it
func (a *AnalyticsSnapshot) Metric(name string) (float64, bool) {
	v, ok := a.Metrics[name]
	return v, ok
}

// pageEnvelope is the list response shape; items are decoded one by one.
type pageEnvelope struct {
	Items []json.RawMessage `json:"items"`
	Page  int               `json:"page"`
	Pages int               `json:"pages"`
	Total int               `json:"total"`
}

// checkPage rejects a page the server did not serve as requested. A server
// that ignores the page parameter would otherwise repeat the first page
// forever. Without a page number, a page starting with the same item as
// the previous one counts as a repeat.
func (p *pageEnvelope) checkPage(page int, previousFirst json.RawMessage) error {
	if p.Page != 0 && p.Page != page {
		return &SchemaError{
			Schema:   schemaPage,
			Problems: []string{fmt.Sprintf("requested page %d, server returned page %d", page, p.Page)},
		}
	}
	if p.Page == 0 && page > 1 && len(p.Items) > 0 && bytes.Equal(p.Items[0], previousFirst) {
		return &SchemaError{
			Schema:   schemaPage,
			Problems: []string{fmt.Sprintf("page %d repeats page %d", page, page-1)},
		}
	}
	return nil
}

// hasMore reports whether another page should be requested after page.
func (p *pageEnvelope) hasMore(page, limit int) bool {
	if len(p.Items) == 0 {
		return false
	}
	if p.Pages > 0 {
		return page < p.Pages
	}
	if p.Total > 0 {
		return page*limit < p.Total
	}
	return len(p.Items) >= limit
}
