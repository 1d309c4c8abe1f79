package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Jobs    JobsConfig    `mapstructure:"jobs"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Cognito CognitoConfig `mapstructure:"cognito"`
	Filter  FilterConfig  `mapstructure:"filter"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// APIConfig holds HaiBlock API connection details
type APIConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

// HTTPConfig contains transport settings
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// RetryConfig controls retries of idempotent requests
type RetryConfig struct {
	MaxRetries uint64 `mapstructure:"max_retries"`
}

// JobsConfig holds the defaults for transform and submit waits
type JobsConfig struct {
	Wait         bool          `mapstructure:"wait"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// UploadConfig contains batch upload settings
type UploadConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// CognitoConfig identifies the user pool used by login and signup
type CognitoConfig struct {
	Region     string `mapstructure:"region"`
	UserPoolID string `mapstructure:"user_pool_id"`
	ClientID   string `mapstructure:"client_id"`
}

// FilterConfig contains filter definitions
type FilterConfig struct {
	// DefaultExpression applies to list when no filter is given
	DefaultExpression string `mapstructure:"default_expression"`
	// Presets maps a name to a filter expression
	Presets map[string]string `mapstructure:"presets"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
