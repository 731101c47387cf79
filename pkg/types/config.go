package types

import (
	"fmt"
	"time"
)

// HTTPConfig holds shared HTTP settings used by components that reach the feed.
type HTTPConfig struct {
	// Timeout is the hard deadline for one feed round trip (15-30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with feed requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// RequestsPerSecond throttles requests to the feed. Zero disables throttling.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// FeedConfig selects and configures the Feed Gateway.
type FeedConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Endpoint is the arXiv Atom query endpoint.
	Endpoint string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`

	// ProxyURL, when set, routes requests through a paperfeed proxy
	// (GET /api/arxiv) instead of calling the feed directly.
	ProxyURL string `json:"proxy_url,omitempty" yaml:"proxy_url,omitempty" mapstructure:"proxy_url"`

	// SortBy is the feed sort field: submittedDate, lastUpdatedDate, or relevance.
	SortBy string `json:"sort_by" yaml:"sort_by" mapstructure:"sort_by"`

	// SortOrder is ascending or descending.
	SortOrder string `json:"sort_order" yaml:"sort_order" mapstructure:"sort_order"`

	// RootTaxonomies are the archives searched when no category is selected
	// (e.g. ["cs"] or ["cs", "math"]).
	RootTaxonomies []string `json:"root_taxonomies" yaml:"root_taxonomies" mapstructure:"root_taxonomies"`
}

// RetryConfig holds the Retry Controller policy.
type RetryConfig struct {
	// MaxAttempts bounds the attempts for one logical page (default 5).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// BaseDelay is the first backoff interval; it doubles per retry (default 1s).
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay" mapstructure:"base_delay"`

	// PlaceholderSize is the number of records in a placeholder batch (default 10).
	PlaceholderSize int `json:"placeholder_size" yaml:"placeholder_size" mapstructure:"placeholder_size"`
}

// PaginationConfig holds the Pagination Engine policy.
type PaginationConfig struct {
	// BatchSize is the number of items requested per page (default 50).
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`

	// MinInterval is the minimum spacing between fetch starts (default 1s).
	MinInterval time.Duration `json:"min_interval" yaml:"min_interval" mapstructure:"min_interval"`

	// EmptyPageLimit is the number of consecutive pages without new
	// records that ends pagination (default 3).
	EmptyPageLimit int `json:"empty_page_limit" yaml:"empty_page_limit" mapstructure:"empty_page_limit"`

	// LowWaterMark is the result count below which a premature end of
	// results reopens pagination (default 20). Zero disables reopening.
	LowWaterMark int `json:"low_water_mark" yaml:"low_water_mark" mapstructure:"low_water_mark"`

	// ReopenJump is how far past the furthest probed offset the cursor
	// jumps when pagination reopens (default 500).
	ReopenJump int `json:"reopen_jump" yaml:"reopen_jump" mapstructure:"reopen_jump"`

	// MaxReopens caps reopenings per filter scope (default 2).
	MaxReopens int `json:"max_reopens" yaml:"max_reopens" mapstructure:"max_reopens"`

	// ShowPlaceholders appends placeholder records to the result set.
	ShowPlaceholders bool `json:"show_placeholders" yaml:"show_placeholders" mapstructure:"show_placeholders"`
}

// PreferencesConfig locates the Preference Store.
type PreferencesConfig struct {
	// DBPath is the SQLite database holding saved and liked papers.
	DBPath string `json:"db_path" yaml:"db_path" mapstructure:"db_path"`
}

// ServerConfig holds proxy server settings.
type ServerConfig struct {
	// Address is the listen address (default ":8080").
	Address string `json:"address" yaml:"address" mapstructure:"address"`

	// ReadTimeout and WriteTimeout bound a single proxy request.
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// LoggingConfig contains logger configuration options.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is json or console.
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	// Output is stdout or stderr.
	Output string `json:"output" yaml:"output" mapstructure:"output"`
}

// Config groups all component configurations.
type Config struct {
	Feed        FeedConfig        `json:"feed" yaml:"feed" mapstructure:"feed"`
	Retry       RetryConfig       `json:"retry" yaml:"retry" mapstructure:"retry"`
	Pagination  PaginationConfig  `json:"pagination" yaml:"pagination" mapstructure:"pagination"`
	Preferences PreferencesConfig `json:"preferences" yaml:"preferences" mapstructure:"preferences"`
	Server      ServerConfig      `json:"server" yaml:"server" mapstructure:"server"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging" mapstructure:"logging"`
}

// DefaultConfig returns the configuration used when no file or flag overrides it.
func DefaultConfig() Config {
	return Config{
		Feed: FeedConfig{
			HTTPConfig: HTTPConfig{
				Timeout:           30 * time.Second,
				UserAgent:         "paperfeed/0.1",
				RequestsPerSecond: 1,
			},
			Endpoint:       "https://export.arxiv.org/api/query",
			SortBy:         "submittedDate",
			SortOrder:      "descending",
			RootTaxonomies: []string{"cs"},
		},
		Retry: RetryConfig{
			MaxAttempts:     5,
			BaseDelay:       time.Second,
			PlaceholderSize: 10,
		},
		Pagination: PaginationConfig{
			BatchSize:        50,
			MinInterval:      time.Second,
			EmptyPageLimit:   3,
			LowWaterMark:     20,
			ReopenJump:       500,
			MaxReopens:       2,
			ShowPlaceholders: true,
		},
		Preferences: PreferencesConfig{
			DBPath: "paperfeed.db",
		},
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     35 * time.Second,
			WriteTimeout:    35 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}

// Validate reports the first configuration value outside its allowed range.
func (c Config) Validate() error {
	if c.Feed.Timeout <= 0 {
		return fmt.Errorf("feed.timeout must be positive, got %s", c.Feed.Timeout)
	}
	if c.Feed.Endpoint == "" && c.Feed.ProxyURL == "" {
		return fmt.Errorf("feed.endpoint or feed.proxy_url is required")
	}
	switch c.Feed.SortBy {
	case "", "submittedDate", "lastUpdatedDate", "relevance":
	default:
		return fmt.Errorf("feed.sort_by must be submittedDate, lastUpdatedDate or relevance, got %q", c.Feed.SortBy)
	}
	switch c.Feed.SortOrder {
	case "", "ascending", "descending":
	default:
		return fmt.Errorf("feed.sort_order must be ascending or descending, got %q", c.Feed.SortOrder)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BaseDelay < 0 {
		return fmt.Errorf("retry.base_delay must not be negative, got %s", c.Retry.BaseDelay)
	}
	if c.Pagination.BatchSize < 1 || c.Pagination.BatchSize > 2000 {
		return fmt.Errorf("pagination.batch_size must be in [1, 2000], got %d", c.Pagination.BatchSize)
	}
	if c.Pagination.EmptyPageLimit < 1 {
		return fmt.Errorf("pagination.empty_page_limit must be at least 1, got %d", c.Pagination.EmptyPageLimit)
	}
	if c.Pagination.MinInterval < 0 {
		return fmt.Errorf("pagination.min_interval must not be negative, got %s", c.Pagination.MinInterval)
	}
	if c.Pagination.MaxReopens < 0 || c.Pagination.ReopenJump < 0 || c.Pagination.LowWaterMark < 0 {
		return fmt.Errorf("pagination reopen settings must not be negative")
	}
	return nil
}
