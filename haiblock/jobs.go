package haiblock

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultPollInterval is used when JobOptions.PollInterval is zero
	DefaultPollInterval = 2 * time.Second
	// DefaultJobTimeout is used when JobOptions.Timeout is zero
	DefaultJobTimeout = 5 * time.Minute
)

// JobOptions selects how TransformContent and SubmitToBedrock wait for the
// server-side job.
type JobOptions struct {
	// Wait blocks until the job reaches a terminal status. When false the
	// call returns as soon as the server accepts the job.
	Wait bool
	// PollInterval is the delay between status checks
	PollInterval time.Duration
	// Timeout bounds the whole wait, not individual requests
	Timeout time.Duration
}

func (o JobOptions) withDefaults() JobOptions {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultJobTimeout
	}
	return o
}

// TransformContent starts transformation of an uploaded item. With
// opts.Wait it polls the content item until it is transformed or failed;
// a failed job returns the final result together with a *JobError.
func (c *Client) TransformContent(ctx context.Context, contentID string, opts JobOptions) (*TransformResult, error) {
	opts = opts.withDefaults()

	body, err := c.postJSON(ctx, "/content/"+pathEscape(contentID)+"/transform", nil)
	if err != nil {
		return nil, err
	}

	var result TransformResult
	if err := decode(schemaTransform, body, &result); err != nil {
		return nil, err
	}
	result.normalize(contentID)

	c.logger.Debug().
		Str("content_id", contentID).
		Str("status", result.Status.String()).
		Bool("wait", opts.Wait).
		Msg("Transformation accepted")

	if !opts.Wait {
		return &result, nil
	}
	if !result.Status.IsTerminal() {
		err = c.poll(ctx, "transform", contentID, opts, string(result.Status), func(ctx context.Context) (bool, string, error) {
			record, err := c.GetContent(ctx, contentID)
			if err != nil {
				return false, "", err
			}
			result.Status = record.Status
			if record.Status == StatusSubmitted {
				// only transformed content can be submitted
				result.Status = StatusTransformed
			}
			if record.TransformedText != "" {
				result.TransformedPayload = record.TransformedText
			}
			return result.Status.IsTerminal(), string(record.Status), nil
		})
		if err != nil {
			return nil, err
		}
	}

	if result.Status == StatusFailed {
		return &result, &JobError{Operation: "transform", ID: contentID, Status: string(result.Status), Message: result.Error}
	}
	result.Success = true
	return &result, nil
}

// SubmitToBedrock submits transformed content to Amazon Bedrock
func (c *Client) SubmitToBedrock(ctx context.Context, contentID string, opts JobOptions) (*SubmissionResult, error) {
	return c.SubmitToModel(ctx, contentID, ProviderBedrock, opts)
}

// SubmitToModel submits transformed content to the named AI provider. With
// opts.Wait it polls the submission until it succeeds or fails.
func (c *Client) SubmitToModel(ctx context.Context, contentID, provider string, opts JobOptions) (*SubmissionResult, error) {
	opts = opts.withDefaults()

	endpoint := "/content/" + pathEscape(contentID) + "/submit/" + pathEscape(provider)
	body, err := c.postJSON(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}

	result, err := decodeSubmission(body)
	if err != nil {
		return nil, err
	}
	if result.ContentID == "" {
		result.ContentID = contentID
	}
	if result.Provider == "" {
		result.Provider = provider
	}

	c.logger.Debug().
		Str("content_id", contentID).
		Str("provider", provider).
		Str("submission_id", result.SubmissionID).
		Str("status", result.Status.String()).
		Bool("wait", opts.Wait).
		Msg("Submission accepted")

	if !opts.Wait {
		return result, nil
	}
	if !result.Status.IsTerminal() {
		if result.SubmissionID == "" {
			return nil, &SchemaError{
				Schema:   schemaSubmission,
				Problems: []string{"submission_id is missing, cannot wait for completion"},
			}
		}
		err = c.poll(ctx, "submit", result.SubmissionID, opts, string(result.Status), func(ctx context.Context) (bool, string, error) {
			latest, err := c.GetSubmission(ctx, result.SubmissionID)
			if err != nil {
				return false, "", err
			}
			if latest.ContentID == "" {
				latest.ContentID = result.ContentID
			}
			if latest.Provider == "" {
				latest.Provider = result.Provider
			}
			result = latest
			return result.Status.IsTerminal(), string(result.Status), nil
		})
		if err != nil {
			return nil, err
		}
	}

	if result.Status == SubmissionFailed {
		return result, &JobError{Operation: "submit", ID: result.SubmissionID, Status: string(result.Status), Message: result.ErrorMessage}
	}
	return result, nil
}

// GetSubmission retrieves a submission by id
func (c *Client) GetSubmission(ctx context.Context, submissionID string) (*SubmissionResult, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/submissions/"+pathEscape(submissionID), nil)
	if err != nil {
		return nil, err
	}
	return decodeSubmission(body)
}

// ListSubmissions returns a lazy sequence over submissions, optionally
// restricted to one content item when contentID is non-empty.
func (c *Client) ListSubmissions(ctx context.Context, contentID string, opts ListOptions) iter.Seq2[*SubmissionResult, error] {
	var params url.Values
	if contentID != "" {
		params = url.Values{"content_id": {contentID}}
	}
	return paginate(ctx, c, "/submissions", params, opts, func(raw json.RawMessage) (*SubmissionResult, error) {
		return decodeSubmission(raw)
	})
}

func decodeSubmission(body []byte) (*SubmissionResult, error) {
	var result SubmissionResult
	if err := decode(schemaSubmission, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// poll calls check every opts.PollInterval until it reports done, the wait
// times out or ctx is cancelled.
func (c *Client) poll(ctx context.Context, op, id string, opts JobOptions, initialStatus string, check func(context.Context) (bool, string, error)) error {
	pollCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	lastStatus := initialStatus
	timeout := func() error {
		return &TimeoutError{Operation: op, ID: id, Timeout: opts.Timeout, LastStatus: lastStatus}
	}

	for attempt := 1; ; attempt++ {
		select {
		case <-pollCtx.Done():
			if err := ctx.Err(); err != nil {
				return cancelled(err)
			}
			return timeout()
		case <-ticker.C:
		}

		done, status, err := check(pollCtx)
		if err != nil {
			if ctx.Err() != nil {
				return cancelled(ctx.Err())
			}
			if pollCtx.Err() != nil {
				return timeout()
			}
			return err
		}
		lastStatus = status

		c.logger.Debug().
			Str("operation", op).
			Str("id", id).
			Int("attempt", attempt).
			Str("status", status).
			Msg("Polled job status")

		if done {
			return nil
		}
	}
}
