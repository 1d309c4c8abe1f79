package cmd

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haiblock/haiblock-go/config"
)

func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestParseTimeRange(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		wantNil  bool
		wantFrom time.Time
		wantTo   time.Time
		wantErr  string
	}{
		{name: "no flags", wantNil: true},
		{
			name:     "dates",
			from:     "2024-01-01",
			to:       "2024-01-31",
			wantFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "open ended",
			from:     "2024-01-01T12:00:00Z",
			wantFrom: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		},
		{name: "bad from", from: "yesterday", wantErr: "invalid --from"},
		{name: "reversed", from: "2024-02-01", to: "2024-01-01", wantErr: "is before"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := parseTimeRange(tt.from, tt.to)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, tr)
				return
			}
			require.NotNil(t, tr)
			assert.True(t, tt.wantFrom.Equal(tr.From))
			assert.True(t, tt.wantTo.Equal(tr.To))
		})
	}
}

func TestParseMetadata(t *testing.T) {
	metadata, err := parseMetadata("")
	require.NoError(t, err)
	assert.Nil(t, metadata)

	metadata, err = parseMetadata(`{"category": "faq", "priority": 1}`)
	require.NoError(t, err)
	assert.Equal(t, "faq", metadata["category"])
	assert.Equal(t, float64(1), metadata["priority"])

	_, err = parseMetadata(`["not", "an", "object"]`)
	assert.Error(t, err)
}

func TestGetFilterExpression(t *testing.T) {
	withConfig(t, &config.Config{
		Filter: config.FilterConfig{
			DefaultExpression: `Status != "failed"`,
			Presets:           map[string]string{"stale": "daysSince(CreatedAt) > 30"},
		},
	})

	reset := func() { filterExpr, preset = "", "" }
	t.Cleanup(reset)

	reset()
	expression, err := getFilterExpression()
	require.NoError(t, err)
	assert.Equal(t, `Status != "failed"`, expression)

	preset = "stale"
	expression, err = getFilterExpression()
	require.NoError(t, err)
	assert.Equal(t, "daysSince(CreatedAt) > 30", expression)

	filterExpr = `FileSize > 0`
	expression, err = getFilterExpression()
	require.NoError(t, err)
	assert.Equal(t, `FileSize > 0`, expression, "explicit filter wins over preset")

	reset()
	preset = "missing"
	_, err = getFilterExpression()
	assert.ErrorContains(t, err, "preset 'missing' not found")
}

func TestJobOptions(t *testing.T) {
	withConfig(t, &config.Config{
		Jobs: config.JobsConfig{Wait: false, PollInterval: 2 * time.Second, Timeout: time.Minute},
	})

	opts := jobOptions(transformCmd)
	assert.False(t, opts.Wait)
	assert.Equal(t, 2*time.Second, opts.PollInterval)
	assert.Equal(t, time.Minute, opts.Timeout)

	require.NoError(t, transformCmd.Flags().Set("wait", "true"))
	require.NoError(t, transformCmd.Flags().Set("timeout", "10s"))
	t.Cleanup(func() {
		waitJob, jobTimeout = false, 0
		transformCmd.Flags().Lookup("wait").Changed = false
		transformCmd.Flags().Lookup("timeout").Changed = false
	})

	opts = jobOptions(transformCmd)
	assert.True(t, opts.Wait)
	assert.Equal(t, 10*time.Second, opts.Timeout)
	assert.Equal(t, 2*time.Second, opts.PollInterval)
}

func TestNewClient_RequiresToken(t *testing.T) {
	withConfig(t, &config.Config{API: config.APIConfig{URL: config.DefaultAPIURL}})

	_, err := newClient()
	assert.ErrorContains(t, err, "no auth token configured")
}

func TestSetupLogger(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	setupLogger(config.LoggingConfig{Level: "debug", Format: "json"})
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	setupLogger(config.LoggingConfig{Level: "error", Format: "console"})
	assert.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel())
}
