package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/haiblock/haiblock-go/dashboard"
	"github.com/haiblock/haiblock-go/haiblock"
)

// statusContentPages bounds the content pages fetched by the status command
const statusContentPages = 1

var (
	fromFlag string
	toFlag   string
)

// analyticsCmd represents the analytics command
var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show usage and cost analytics",
	Long: `Show usage and cost analytics for a time window. Dates are RFC 3339
timestamps or YYYY-MM-DD. Without --from/--to the server's default window
is used.`,
	RunE: runAnalytics,
}

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the analytics dashboard together with a content summary",
	RunE:  runStatus,
}

func init() {
	for _, c := range []*cobra.Command{analyticsCmd, statusCmd} {
		c.Flags().StringVar(&fromFlag, "from", "", "start of the time window")
		c.Flags().StringVar(&toFlag, "to", "", "end of the time window")
	}
}

func runAnalytics(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	timeRange, err := parseTimeRange(fromFlag, toFlag)
	if err != nil {
		return err
	}

	snapshot, err := client.GetAnalytics(cmd.Context(), timeRange)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(snapshot)
	}
	return dashboard.New(os.Stdout, dashboard.Options{Color: colorOutput()}).Analytics(snapshot)
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	timeRange, err := parseTimeRange(fromFlag, toFlag)
	if err != nil {
		return err
	}

	var (
		snapshot *haiblock.AnalyticsSnapshot
		records  []*haiblock.ContentRecord
	)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		var err error
		snapshot, err = client.GetAnalytics(ctx, timeRange)
		if err != nil {
			return fmt.Errorf("failed to fetch analytics: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		records, err = client.CollectContent(ctx, haiblock.ListOptions{MaxPages: statusContentPages})
		if err != nil {
			return fmt.Errorf("failed to list content: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if jsonOut {
		return printJSON(map[string]any{
			"analytics": snapshot,
			"content":   records,
		})
	}

	d := dashboard.New(os.Stdout, dashboard.Options{Color: colorOutput()})
	if err := d.Analytics(snapshot); err != nil {
		return err
	}
	return d.Content(records)
}

// parseTimeRange builds the analytics window from the --from/--to flags
func parseTimeRange(from, to string) (*haiblock.TimeRange, error) {
	if from == "" && to == "" {
		return nil, nil
	}

	var tr haiblock.TimeRange
	var err error
	if from != "" {
		if tr.From, err = parseTimeFlag(from); err != nil {
			return nil, fmt.Errorf("invalid --from: %w", err)
		}
	}
	if to != "" {
		if tr.To, err = parseTimeFlag(to); err != nil {
			return nil, fmt.Errorf("invalid --to: %w", err)
		}
	}
	if !tr.From.IsZero() && !tr.To.IsZero() && tr.To.Before(tr.From) {
		return nil, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return &tr, nil
}

func parseTimeFlag(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}
