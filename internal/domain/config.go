package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`

	// RequestTimeout bounds each request's context; zero disables it.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// BackendConfig configures the processings backend client.
type BackendConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RateLimit  int           `mapstructure:"rate_limit"` // requests per second
	RetryCount int           `mapstructure:"retry_count"`
}

// CacheConfig configures the two-tier study cache. RedisURL may be empty,
// in which case only the in-memory tier is used.
type CacheConfig struct {
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MemorySize  int           `mapstructure:"memory_size"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json", "text"
	Output string `mapstructure:"output"` // "stdout", "stderr", or a file path
}

// DashboardConfig carries dashboard behavior tunables.
type DashboardConfig struct {
	DefaultPerPage       int   `mapstructure:"default_per_page"`
	PerPageOptions       []int `mapstructure:"per_page_options"`
	AnalyticsWindowDays  int   `mapstructure:"analytics_window_days"`
	AnalyticsTopN        int   `mapstructure:"analytics_top_n"`
	AnalyticsFetchLimit  int   `mapstructure:"analytics_fetch_limit"`
}
