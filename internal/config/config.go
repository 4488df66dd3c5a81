// Package config loads server configuration from file, environment and
// defaults via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/study-review-server/internal/domain"
)

// Manager loads and validates the server configuration.
type Manager struct {
	config *domain.Config
}

// NewManager creates a configuration manager and loads configuration.
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/study-review-server/")

	viper.SetEnvPrefix("STUDY_REVIEW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and env vars cover everything.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.request_timeout", "30s")

	// Upstream processing API defaults
	viper.SetDefault("backend.base_url", "http://localhost:9000/api/v1")
	viper.SetDefault("backend.api_key", "")
	viper.SetDefault("backend.timeout", "30s")
	viper.SetDefault("backend.rate_limit", 10)
	viper.SetDefault("backend.retry_count", 3)

	// Cache defaults; an empty redis_url keeps the cache memory-only.
	viper.SetDefault("cache.redis_url", "")
	viper.SetDefault("cache.default_ttl", "5m")
	viper.SetDefault("cache.memory_size", 1024)
	viper.SetDefault("cache.max_retries", 3)
	viper.SetDefault("cache.pool_size", 10)
	viper.SetDefault("cache.pool_timeout", "4s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")

	// Dashboard defaults
	viper.SetDefault("dashboard.default_per_page", 25)
	viper.SetDefault("dashboard.per_page_options", []int{10, 25, 50, 100})
	viper.SetDefault("dashboard.analytics_window_days", 30)
	viper.SetDefault("dashboard.analytics_top_n", 8)
	viper.SetDefault("dashboard.analytics_fetch_limit", 1000)
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetBackendConfig returns the upstream processing API configuration
func (m *Manager) GetBackendConfig() *domain.BackendConfig {
	return &m.config.Backend
}

// GetCacheConfig returns cache configuration
func (m *Manager) GetCacheConfig() *domain.CacheConfig {
	return &m.config.Cache
}

// GetDashboardConfig returns dashboard configuration
func (m *Manager) GetDashboardConfig() *domain.DashboardConfig {
	return &m.config.Dashboard
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Backend.BaseURL == "" {
		return fmt.Errorf("backend base URL is required")
	}
	if config.Backend.RateLimit <= 0 {
		return fmt.Errorf("backend rate limit must be positive")
	}

	if config.Dashboard.DefaultPerPage <= 0 {
		return fmt.Errorf("default per-page must be positive")
	}
	validPerPage := false
	for _, opt := range config.Dashboard.PerPageOptions {
		if opt == config.Dashboard.DefaultPerPage {
			validPerPage = true
			break
		}
	}
	if !validPerPage {
		return fmt.Errorf("default per-page %d is not among the page size options", config.Dashboard.DefaultPerPage)
	}
	if config.Dashboard.AnalyticsWindowDays <= 0 {
		return fmt.Errorf("analytics window must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetRedisConnectionString returns the Redis connection string
func (m *Manager) GetRedisConnectionString() string {
	return m.config.Cache.RedisURL
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(viper.GetString("environment")) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(viper.GetString("environment"))
	return env == "development" || env == "dev" || env == ""
}
