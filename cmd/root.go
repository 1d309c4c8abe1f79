package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/haiblock/haiblock-go/config"
	"github.com/haiblock/haiblock-go/haiblock"
	"github.com/haiblock/haiblock-go/version"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger

	// Global flags
	apiURL    string
	authToken string
	jsonOut   bool

	// Build information set by main
	buildVersion = "dev"
	buildTime    = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "haiblock",
	Short: "Command-line client for the HaiBlock content optimization API",
	Long: `haiblock uploads documents to HaiBlock, transforms them into AI-ready
content, submits the result to providers such as Amazon Bedrock and reports
usage analytics.

Configuration is read from ./config.yaml, ~/.haiblock/config.yaml or
/etc/haiblock/config.yaml, and from HAIBLOCK_* environment variables.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initializeApp,
}

// SetVersion records the build information reported by the version command
func SetVersion(v, built string) {
	buildVersion = v
	buildTime = built
	if v != "" && v != "dev" {
		version.Version = strings.TrimPrefix(v, "v")
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "HaiBlock API URL (overrides api.url)")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "bearer token (overrides api.token)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print results as JSON")

	// Add subcommands
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(confirmCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(submissionCmd)
	rootCmd.AddCommand(submissionsCmd)
	rootCmd.AddCommand(analyticsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)
}

// initializeApp loads the configuration and sets up logging
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger = setupLogger(cfg.Logging)

	// Command line overrides
	if cmd.Flags().Changed("api-url") {
		cfg.API.URL = apiURL
	}
	if cmd.Flags().Changed("token") {
		cfg.API.Token = authToken
	}

	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isTerminal(os.Stderr),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// newClient builds an API client from the loaded configuration
func newClient() (*haiblock.Client, error) {
	if strings.TrimSpace(cfg.API.Token) == "" {
		return nil, fmt.Errorf("no auth token configured: set %s, api.token or --token (see 'haiblock login')", haiblock.EnvAuthToken)
	}

	retry := haiblock.DefaultRetryConfig()
	retry.MaxRetries = cfg.Retry.MaxRetries

	client, err := haiblock.NewClient(cfg.API.URL, cfg.API.Token,
		haiblock.WithLogger(logger),
		haiblock.WithTimeout(cfg.HTTP.Timeout),
		haiblock.WithRetryConfig(retry),
		haiblock.WithUploadConcurrency(cfg.Upload.Concurrency),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HaiBlock client: %w", err)
	}
	return client, nil
}

// printJSON writes v to stdout as indented JSON
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// colorOutput reports whether stdout styling should be enabled
func colorOutput() bool {
	return cfg.Logging.Color && isTerminal(os.Stdout)
}
