package haiblock

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// GetAnalytics retrieves usage and cost metrics. A nil timeRange, or one
// with both bounds zero, uses the server's default window. Bounds are sent
// as RFC 3339 timestamps.
func (c *Client) GetAnalytics(ctx context.Context, timeRange *TimeRange) (*AnalyticsSnapshot, error) {
	var params url.Values
	if timeRange != nil && !timeRange.IsZero() {
		params = url.Values{}
		if !timeRange.From.IsZero() {
			params.Set("from", timeRange.From.UTC().Format(time.RFC3339))
		}
		if !timeRange.To.IsZero() {
			params.Set("to", timeRange.To.UTC().Format(time.RFC3339))
		}
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/analytics", params)
	if err != nil {
		return nil, err
	}

	var snapshot AnalyticsSnapshot
	if err := decode(schemaAnalytics, body, &snapshot); err != nil {
		return nil, err
	}

	// Echo the requested window when the server leaves it out.
	if timeRange != nil {
		if snapshot.Range.From.IsZero() {
			snapshot.Range.From = timeRange.From
		}
		if snapshot.Range.To.IsZero() {
			snapshot.Range.To = timeRange.To
		}
	}

	c.logger.Debug().
		Int("metrics", len(snapshot.Metrics)).
		Time("from", snapshot.Range.From).
		Time("to", snapshot.Range.To).
		Msg("Retrieved analytics")

	return &snapshot, nil
}
