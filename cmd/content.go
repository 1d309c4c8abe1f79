package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haiblock/haiblock-go/dashboard"
	"github.com/haiblock/haiblock-go/filter"
	"github.com/haiblock/haiblock-go/haiblock"
)

var (
	// Command flags
	filterExpr   string
	preset       string
	metadataJSON string
	maxPages     int
	summary      bool
	noConfirm    bool
)

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload one or more files as content items",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUpload,
}

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <content-id>",
	Short: "Show a content item",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List content items, optionally filtered",
	Long: `List every content item in the account. Pages are fetched as needed.

Filter expressions use the expr language over the content fields, e.g.

  haiblock list --filter 'Status == "transformed" and FileSize > mb(1)'
  haiblock list --filter 'hasText(Filename, "faq") and daysSince(CreatedAt) < 7'
  haiblock list --filter 'Filename endsWith ".pdf" or endsIn(Filename, ".txt")'

hasText, beginsWith and endsIn ignore case; the contains, startsWith and
endsWith operators do not.`,
	RunE: runList,
}

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <content-id>...",
	Short: "Delete content items",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDelete,
}

func init() {
	uploadCmd.Flags().StringVarP(&metadataJSON, "metadata", "m", "", "JSON object stored with each upload")

	listCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression")
	listCmd.Flags().StringVarP(&preset, "preset", "p", "", "use a preset filter from config")
	listCmd.Flags().IntVar(&maxPages, "max-pages", 0, "stop after this many pages (0 for all)")
	listCmd.Flags().BoolVar(&summary, "summary", false, "print a content summary instead of one line per item")

	deleteCmd.Flags().BoolVar(&noConfirm, "no-confirm", false, "skip confirmation prompt")
}

func runUpload(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	metadata, err := parseMetadata(metadataJSON)
	if err != nil {
		return err
	}

	logger.Info().Int("files", len(args)).Msg("Uploading")

	result := client.UploadFiles(cmd.Context(), args, metadata)

	if jsonOut {
		if err := printJSON(result.Uploaded); err != nil {
			return err
		}
	} else {
		for _, record := range result.Uploaded {
			fmt.Printf("✓ %s → %s (%s)\n", record.Filename, record.ID, record.Status)
		}
	}

	for _, failure := range result.Failed {
		logger.Error().Err(failure.Err).Str("path", failure.Path).Msg("Upload failed")
	}

	logger.Info().
		Int("requested", result.Requested).
		Int("uploaded", len(result.Uploaded)).
		Int("failed", len(result.Failed)).
		Msg("Upload completed")

	if len(result.Failed) > 0 {
		return fmt.Errorf("%d of %d uploads failed", len(result.Failed), result.Requested)
	}
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	record, err := client.GetContent(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(record)
	}
	printRecord(record, true)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	// Determine filter expression
	expr, err := getFilterExpression()
	if err != nil {
		return err
	}

	f, err := filter.Compile(expr)
	if err != nil {
		return fmt.Errorf("invalid filter expression: %w", err)
	}

	logger.Debug().Str("filter", expr).Msg("Listing content")

	seq := filter.Select(client.ListContent(cmd.Context(), haiblock.ListOptions{MaxPages: maxPages}), f)

	if jsonOut || summary {
		var records []*haiblock.ContentRecord
		for record, err := range seq {
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		if jsonOut {
			return printJSON(records)
		}
		return dashboard.New(os.Stdout, dashboard.Options{Color: colorOutput()}).Content(records)
	}

	count := 0
	for record, err := range seq {
		if err != nil {
			return err
		}
		printRecord(record, false)
		count++
	}

	if count == 0 {
		fmt.Println("No content found matching the filter criteria.")
		return nil
	}
	fmt.Printf("\n%d item(s)\n", count)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	if !noConfirm && !confirm(fmt.Sprintf("Delete %d content item(s)?", len(args))) {
		logger.Info().Msg("Deletion cancelled")
		return nil
	}

	var failed int
	for _, id := range args {
		if err := client.DeleteContent(cmd.Context(), id); err != nil {
			logger.Error().Err(err).Str("id", id).Msg("Failed to delete content")
			failed++
			continue
		}
		fmt.Printf("✓ Deleted %s\n", id)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d deletions failed", failed, len(args))
	}
	return nil
}

func printRecord(record *haiblock.ContentRecord, details bool) {
	fmt.Printf("• %s  %-12s %s\n", record.ID, record.Status, record.Filename)
	if !details {
		return
	}
	if record.FileType != "" {
		fmt.Printf("  Type: %s\n", record.FileType)
	}
	if record.FileSize > 0 {
		fmt.Printf("  Size: %d bytes\n", record.FileSize)
	}
	if !record.CreatedAt.IsZero() {
		fmt.Printf("  Created: %s\n", record.CreatedAt.Format("2006-01-02 15:04"))
	}
	if !record.UpdatedAt.IsZero() {
		fmt.Printf("  Updated: %s\n", record.UpdatedAt.Format("2006-01-02 15:04"))
	}
	for name, ok := range record.ValidationChecks {
		fmt.Printf("  Check %s: %s\n", name, passFail(ok))
	}
	if len(record.Metadata) > 0 {
		b, _ := json.Marshal(record.Metadata)
		fmt.Printf("  Metadata: %s\n", b)
	}
}

func passFail(ok bool) string {
	if ok {
		return "passed"
	}
	return "failed"
}

// parseMetadata decodes the --metadata flag
func parseMetadata(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var metadata map[string]any
	if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
		return nil, fmt.Errorf("invalid --metadata: must be a JSON object: %w", err)
	}
	return metadata, nil
}

// confirm asks a yes/no question on stdin
func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	var response string
	fmt.Scanln(&response)
	return strings.ToLower(strings.TrimSpace(response)) == "y"
}

// getFilterExpression determines the filter expression to use
func getFilterExpression() (string, error) {
	// Priority: command line filter > preset > default
	if filterExpr != "" {
		return filterExpr, nil
	}

	if preset != "" {
		if expression, ok := cfg.Preset(preset); ok {
			return expression, nil
		}
		return "", fmt.Errorf("preset '%s' not found in config", preset)
	}

	return cfg.Filter.DefaultExpression, nil
}
