package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultAPIURL is used when neither the file nor the environment set api.url
const DefaultAPIURL = "https://api.haiblock.com"

// Load loads the configuration from an optional file and HAIBLOCK_* env vars.
// A missing file in the standard locations is not an error; an explicit
// configPath that cannot be read is.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)
	bindEnv(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".haiblock"))
		}

		// Check /etc
		v.AddConfigPath("/etc/haiblock/")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// bindEnv maps the HAIBLOCK_* variables onto config keys
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("haiblock")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names shared with the SDK and the hosted console
	_ = v.BindEnv("api.token", "HAIBLOCK_AUTH_TOKEN", "HAIBLOCK_API_TOKEN")
	_ = v.BindEnv("cognito.user_pool_id", "HAIBLOCK_USER_POOL_ID", "HAIBLOCK_COGNITO_USER_POOL_ID")
	_ = v.BindEnv("cognito.client_id", "HAIBLOCK_CLIENT_ID", "HAIBLOCK_COGNITO_CLIENT_ID")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.url", DefaultAPIURL)
	v.SetDefault("api.token", "")

	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("retry.max_retries", 3)

	// Job wait defaults
	v.SetDefault("jobs.wait", false)
	v.SetDefault("jobs.poll_interval", 2*time.Second)
	v.SetDefault("jobs.timeout", 5*time.Minute)

	v.SetDefault("upload.concurrency", 4)

	v.SetDefault("cognito.region", "")
	v.SetDefault("cognito.user_pool_id", "")
	v.SetDefault("cognito.client_id", "")

	v.SetDefault("filter.default_expression", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid. The token is not required
// here because login and signup run without one.
func validate(cfg *Config) error {
	if cfg.API.URL == "" {
		return fmt.Errorf("api.url is required")
	}
	u, err := url.Parse(cfg.API.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.url must be an absolute http(s) URL: %s", cfg.API.URL)
	}

	if cfg.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive")
	}
	if cfg.Jobs.PollInterval <= 0 {
		return fmt.Errorf("jobs.poll_interval must be positive")
	}
	if cfg.Jobs.Timeout <= 0 {
		return fmt.Errorf("jobs.timeout must be positive")
	}
	if cfg.Jobs.PollInterval > cfg.Jobs.Timeout {
		return fmt.Errorf("jobs.poll_interval (%s) exceeds jobs.timeout (%s)", cfg.Jobs.PollInterval, cfg.Jobs.Timeout)
	}
	if cfg.Upload.Concurrency < 1 {
		return fmt.Errorf("upload.concurrency must be at least 1")
	}

	for name, expression := range cfg.Filter.Presets {
		if strings.TrimSpace(expression) == "" {
			return fmt.Errorf("filter preset %q has an empty expression", name)
		}
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}

// Preset returns the expression stored under name
func (c *Config) Preset(name string) (string, bool) {
	expression, ok := c.Filter.Presets[name]
	return expression, ok
}
