package haiblock

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const analyticsBody = `{
	"from": "2025-01-01T00:00:00Z",
	"to": "2025-02-01T00:00:00Z",
	"metrics": {"tokens_processed": 12000},
	"total_content": 12,
	"total_submissions": 8,
	"successful_submissions": 7,
	"failed_submissions": 1,
	"total_costs": 0.84,
	"average_cost_per_submission": 0.105,
	"success_rate": 0.875,
	"content_status_breakdown": {"uploaded": 2, "transformed": 10},
	"submission_provider_breakdown": {"bedrock": 8},
	"recent_activity": [
		{"timestamp": "2025-01-31T10:00:00", "action": "Content uploaded", "content_id": "c12", "status": "uploaded"}
	],
	"monthly_trends": {"2025-01": {"submissions": 8, "costs": 0.84}}
}`

func TestGetAnalytics(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/analytics", r.URL.Path)
		assert.Empty(t, r.URL.RawQuery)
		writeJSON(w, http.StatusOK, analyticsBody)
	}))

	snapshot, err := client.GetAnalytics(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 12, snapshot.TotalContent)
	assert.Equal(t, 8, snapshot.TotalSubmissions)
	assert.InDelta(t, 0.875, snapshot.SuccessRate, 1e-9)
	assert.Equal(t, map[string]int{"bedrock": 8}, snapshot.SubmissionProviderBreakdown)
	require.Len(t, snapshot.RecentActivity, 1)
	assert.Equal(t, "c12", snapshot.RecentActivity[0].ContentID)
	assert.Equal(t, MonthlyTrend{Submissions: 8, Costs: 0.84}, snapshot.MonthlyTrends["2025-01"])

	assert.True(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Equal(snapshot.Range.From))
	assert.True(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC).Equal(snapshot.Range.To))

	tokens, ok := snapshot.Metric("tokens_processed")
	assert.True(t, ok)
	assert.Equal(t, 12000.0, tokens)

	total, ok := snapshot.Metric("total_content")
	assert.True(t, ok)
	assert.Equal(t, 12.0, total)

	_, ok = snapshot.Metric("unknown")
	assert.False(t, ok)
}

func TestGetAnalytics_TimeRange(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC)

	tests := []struct {
		name     string
		rng      *TimeRange
		wantFrom string
		wantTo   string
	}{
		{name: "nil range", rng: nil},
		{name: "zero range", rng: &TimeRange{}},
		{name: "both bounds", rng: &TimeRange{From: from, To: to}, wantFrom: "2025-03-01T00:00:00Z", wantTo: "2025-03-31T23:59:59Z"},
		{name: "open end", rng: &TimeRange{From: from}, wantFrom: "2025-03-01T00:00:00Z"},
		{
			name:     "converted to UTC",
			rng:      &TimeRange{From: time.Date(2025, 3, 1, 2, 0, 0, 0, time.FixedZone("CEST", 2*3600))},
			wantFrom: "2025-03-01T00:00:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.wantFrom, r.URL.Query().Get("from"))
				assert.Equal(t, tt.wantTo, r.URL.Query().Get("to"))
				writeJSON(w, http.StatusOK, `{"total_content": 1}`)
			}))

			snapshot, err := client.GetAnalytics(context.Background(), tt.rng)
			require.NoError(t, err)
			if tt.rng != nil {
				assert.True(t, tt.rng.From.Equal(snapshot.Range.From))
				assert.True(t, tt.rng.To.Equal(snapshot.Range.To))
			}
		})
	}
}

func TestGetAnalytics_Idempotent(t *testing.T) {
	var hits atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusOK, analyticsBody)
	}))

	rng := &TimeRange{From: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	first, err := client.GetAnalytics(context.Background(), rng)
	require.NoError(t, err)
	second, err := client.GetAnalytics(context.Background(), rng)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(2), hits.Load())
}

func TestGetAnalytics_ServerError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"message":"analytics backend down"}`)
	}))

	snapshot, err := client.GetAnalytics(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, snapshot)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "/analytics", apiErr.Path)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "analytics backend down")
}

func TestGetAnalytics_SchemaMismatch(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"total_content": "twelve", "success_rate": 4}`)
	}))

	_, err := client.GetAnalytics(context.Background(), nil)
	require.Error(t, err)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, schemaAnalytics, schemaErr.Schema)
	assert.NotEmpty(t, schemaErr.Problems)
	assert.ErrorIs(t, err, ErrSchema)
}

func TestGetAnalytics_MetricsOnly(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"metrics":{"total_content":5,"success_rate":0.5}}`)
	}))

	snapshot, err := client.GetAnalytics(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 5, snapshot.TotalContent)
	assert.InDelta(t, 0.5, snapshot.SuccessRate, 1e-9)

	total, ok := snapshot.Metric("total_content")
	assert.True(t, ok)
	assert.Equal(t, 5.0, total)

	rate, ok := snapshot.Metric("success_rate")
	assert.True(t, ok)
	assert.Equal(t, 0.5, rate)

	_, ok = snapshot.Metric("failed_submissions")
	assert.False(t, ok, "counters the server never sent are not reported")
	assert.Len(t, snapshot.Metrics, 2)
}

func TestGetAnalytics_MetricsNotOverwritten(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"metrics":{"total_costs":2.5},"total_submissions":4}`)
	}))

	snapshot, err := client.GetAnalytics(context.Background(), nil)
	require.NoError(t, err)

	costs, ok := snapshot.Metric("total_costs")
	assert.True(t, ok)
	assert.Equal(t, 2.5, costs)
	assert.Equal(t, 2.5, snapshot.TotalCosts)

	submissions, ok := snapshot.Metric("total_submissions")
	assert.True(t, ok)
	assert.Equal(t, 4.0, submissions)
	assert.Equal(t, 4, snapshot.TotalSubmissions)

	_, ok = snapshot.Metric("total_content")
	assert.False(t, ok)
}
