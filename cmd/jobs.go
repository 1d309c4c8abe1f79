package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/haiblock/haiblock-go/haiblock"
)

var (
	waitJob      bool
	pollInterval time.Duration
	jobTimeout   time.Duration
	provider     string
	contentID    string
)

// transformCmd represents the transform command
var transformCmd = &cobra.Command{
	Use:   "transform <content-id>",
	Short: "Transform uploaded content into AI-ready content",
	Args:  cobra.ExactArgs(1),
	RunE:  runTransform,
}

// submitCmd represents the submit command
var submitCmd = &cobra.Command{
	Use:   "submit <content-id>",
	Short: "Submit transformed content to an AI provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubmit,
}

// submissionCmd represents the submission command
var submissionCmd = &cobra.Command{
	Use:   "submission <submission-id>",
	Short: "Show a submission",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubmission,
}

// submissionsCmd represents the submissions command
var submissionsCmd = &cobra.Command{
	Use:   "submissions",
	Short: "List submissions",
	RunE:  runSubmissions,
}

func init() {
	for _, c := range []*cobra.Command{transformCmd, submitCmd} {
		c.Flags().BoolVarP(&waitJob, "wait", "w", false, "wait for the job to finish (default from jobs.wait)")
		c.Flags().DurationVar(&pollInterval, "poll-interval", 0, "delay between status checks (default from jobs.poll_interval)")
		c.Flags().DurationVar(&jobTimeout, "timeout", 0, "maximum time to wait (default from jobs.timeout)")
	}
	submitCmd.Flags().StringVar(&provider, "provider", haiblock.ProviderBedrock, "AI provider to submit to")

	submissionsCmd.Flags().StringVar(&contentID, "content", "", "only list submissions for this content id")
	submissionsCmd.Flags().IntVar(&maxPages, "max-pages", 0, "stop after this many pages (0 for all)")
}

// jobOptions merges the job flags with the configured defaults
func jobOptions(cmd *cobra.Command) haiblock.JobOptions {
	opts := haiblock.JobOptions{
		Wait:         cfg.Jobs.Wait,
		PollInterval: cfg.Jobs.PollInterval,
		Timeout:      cfg.Jobs.Timeout,
	}
	if cmd.Flags().Changed("wait") {
		opts.Wait = waitJob
	}
	if cmd.Flags().Changed("poll-interval") {
		opts.PollInterval = pollInterval
	}
	if cmd.Flags().Changed("timeout") {
		opts.Timeout = jobTimeout
	}
	return opts
}

func runTransform(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	opts := jobOptions(cmd)
	logger.Info().
		Str("id", args[0]).
		Bool("wait", opts.Wait).
		Msg("Transforming content")

	result, err := client.TransformContent(cmd.Context(), args[0], opts)
	if err != nil && !errors.Is(err, haiblock.ErrJobFailed) {
		return err
	}

	if jsonOut {
		if perr := printJSON(result); perr != nil {
			return perr
		}
		return err
	}

	fmt.Printf("%s: %s\n", result.ContentID, result.Status)
	if len(result.Chunks) > 0 {
		fmt.Printf("  Chunks: %d\n", len(result.Chunks))
	}
	if len(result.FAQs) > 0 {
		fmt.Printf("  FAQs: %d\n", len(result.FAQs))
	}
	if result.TransformedPayload != "" {
		fmt.Printf("\n%s\n", result.TransformedPayload)
	}
	return err
}

func runSubmit(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	opts := jobOptions(cmd)
	logger.Info().
		Str("id", args[0]).
		Str("provider", provider).
		Bool("wait", opts.Wait).
		Msg("Submitting content")

	result, err := client.SubmitToModel(cmd.Context(), args[0], provider, opts)
	if err != nil && !errors.Is(err, haiblock.ErrJobFailed) {
		return err
	}

	if jsonOut {
		if perr := printJSON(result); perr != nil {
			return perr
		}
		return err
	}

	printSubmission(result)
	return err
}

func runSubmission(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	result, err := client.GetSubmission(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(result)
	}
	printSubmission(result)
	return nil
}

func runSubmissions(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	var results []*haiblock.SubmissionResult
	for result, err := range client.ListSubmissions(cmd.Context(), contentID, haiblock.ListOptions{MaxPages: maxPages}) {
		if err != nil {
			return err
		}
		if !jsonOut {
			printSubmission(result)
			continue
		}
		results = append(results, result)
	}

	if jsonOut {
		return printJSON(results)
	}
	return nil
}

func printSubmission(s *haiblock.SubmissionResult) {
	fmt.Printf("• %s  %-10s content=%s provider=%s\n", s.SubmissionID, s.Status, s.ContentID, s.Provider)
	if !s.SubmittedAt.IsZero() {
		fmt.Printf("  Submitted: %s\n", s.SubmittedAt.Format("2006-01-02 15:04"))
	}
	if s.CostEstimate != nil {
		fmt.Printf("  Cost estimate: $%.4f\n", *s.CostEstimate)
	}
	if s.ErrorMessage != "" {
		fmt.Printf("  Error: %s\n", s.ErrorMessage)
	}
}
