package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/yegors/metar-reader/internal/weather"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server  ServerConfig  `toml:"server"`  // HTTP server settings
	Logging LoggingConfig `toml:"logging"` // Application logging settings
	Weather WeatherConfig `toml:"weather"` // Upstream fetch, cache lifetime and watch list
	Cache   CacheConfig   `toml:"cache"`   // Report cache backend
	Storage StorageConfig `toml:"storage"` // Report history persistence
	Publish PublishConfig `toml:"publish"` // Kafka publication of decoded reports

	// Source is the file the configuration was read from, empty for defaults
	Source string `toml:"-"`
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port             int    `toml:"port"`                  // HTTP port for the server
	Host             string `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	ReadTimeoutSecs  int    `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs int    `toml:"write_timeout_seconds"` // Maximum duration for writing the response (0 = no timeout)
	IdleTimeoutSecs  int    `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
	StaticFilesDir   string `toml:"static_files_dir"`      // Directory with the web page (optional)
	EnableLiveFeed   bool   `toml:"enable_live_feed"`      // Serve the /ws live feed
	EnableMetrics    bool   `toml:"enable_metrics"`        // Serve Prometheus metrics on /metrics
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level      string `toml:"level"`        // Log level: "debug", "info", "warn", or "error"
	Format     string `toml:"format"`       // Log format: "json" (structured) or "console" (human-readable)
	FilePath   string `toml:"file_path"`    // Also write logs to this file, rotated (optional)
	MaxSizeMB  int    `toml:"max_size_mb"`  // Rotate the log file after this many megabytes
	MaxBackups int    `toml:"max_backups"`  // Rotated files to keep
	MaxAgeDays int    `toml:"max_age_days"` // Days to keep rotated files
}

// WeatherConfig contains upstream METAR fetching configuration.
// Field order matches weather.WeatherConfig so the two convert directly.
type WeatherConfig struct {
	APIBaseURL             string   `toml:"api_base_url"`             // Base URL of the aviationweather.gov data API
	RequestTimeoutSeconds  int      `toml:"request_timeout_seconds"`  // HTTP request timeout in seconds
	MaxRetries             int      `toml:"max_retries"`              // Retry attempts after a failed request
	CacheExpiryMinutes     int      `toml:"cache_expiry_minutes"`     // How long a fetched report is reused
	RefreshIntervalMinutes int      `toml:"refresh_interval_minutes"` // Watch list refresh interval in minutes
	WatchAirports          []string `toml:"watch_airports"`           // Airports refreshed in the background and pushed to the live feed
}

// CacheConfig selects the report cache backend
type CacheConfig struct {
	Backend  string `toml:"backend"`   // "memory" or "redis"
	RedisURL string `toml:"redis_url"` // e.g. redis://localhost:6379/0
}

// StorageConfig contains report history configuration
type StorageConfig struct {
	Enabled       bool   `toml:"enabled"`        // Persist every fetched report
	SQLitePath    string `toml:"sqlite_path"`    // SQLite database file
	RetentionDays int    `toml:"retention_days"` // Delete reports older than this (0 = keep forever)
}

// PublishConfig contains Kafka publication configuration
type PublishConfig struct {
	Enabled bool     `toml:"enabled"` // Publish every fetched report
	Brokers []string `toml:"brokers"` // Kafka bootstrap brokers
	Topic   string   `toml:"topic"`   // Destination topic
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             8080,
			Host:             "0.0.0.0",
			ReadTimeoutSecs:  15,
			WriteTimeoutSecs: 30,
			IdleTimeoutSecs:  60,
			StaticFilesDir:   "www",
			EnableLiveFeed:   true,
			EnableMetrics:    true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Weather: WeatherConfig{
			APIBaseURL:             "https://aviationweather.gov/api/data",
			RequestTimeoutSeconds:  10,
			MaxRetries:             0,
			CacheExpiryMinutes:     5,
			RefreshIntervalMinutes: 10,
		},
		Cache: CacheConfig{
			Backend: "memory",
		},
		Storage: StorageConfig{
			SQLitePath: "data/metar.db",
		},
		Publish: PublishConfig{
			Topic: "metar-reports",
		},
	}
}

// Load loads the configuration from the specified file path on top of the defaults
func Load(path string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.Source = path
	return config, nil
}

// LoadWithFallback loads the first config file found among preferredPath,
// configs/config.toml and config.toml, falling back to defaults when none
// exists. A .env file and METAR_* environment variables are applied last.
func LoadWithFallback(preferredPath string) (*Config, error) {
	searchPaths := []string{
		preferredPath,
		"configs/config.toml",
		"config.toml",
	}

	var config *Config
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true

		if _, err := os.Stat(path); err != nil {
			continue
		}
		loaded, err := Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
		config = loaded
		break
	}
	if config == nil {
		config = Default()
	}

	// A missing .env file is fine
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides file values with METAR_* environment variables
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("METAR_SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid METAR_SERVER_PORT: %q", v)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("METAR_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("METAR_API_BASE_URL"); v != "" {
		c.Weather.APIBaseURL = v
	}
	if v := os.Getenv("METAR_REDIS_URL"); v != "" {
		c.Cache.Backend = "redis"
		c.Cache.RedisURL = v
	}
	if v := os.Getenv("METAR_KAFKA_BROKERS"); v != "" {
		c.Publish.Enabled = true
		c.Publish.Brokers = splitList(v)
	}
	if v := os.Getenv("METAR_SQLITE_PATH"); v != "" {
		c.Storage.Enabled = true
		c.Storage.SQLitePath = v
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid log level
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "console":
		// Valid log format
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if err := c.ValidateWeather(); err != nil {
		return err
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("cache redis_url is required when backend is redis")
		}
	default:
		return fmt.Errorf("invalid cache backend: %s (must be 'memory' or 'redis')", c.Cache.Backend)
	}

	if c.Storage.Enabled && c.Storage.SQLitePath == "" {
		return fmt.Errorf("storage sqlite_path is required when storage is enabled")
	}
	if c.Storage.RetentionDays < 0 {
		return fmt.Errorf("storage retention_days must be 0 or greater: %d", c.Storage.RetentionDays)
	}

	if c.Publish.Enabled {
		if len(c.Publish.Brokers) == 0 {
			return fmt.Errorf("publish brokers are required when publishing is enabled")
		}
		if c.Publish.Topic == "" {
			return fmt.Errorf("publish topic is required when publishing is enabled")
		}
	}

	return nil
}

// ValidateWeather validates the weather configuration using the same rules
// the weather service applies
func (c *Config) ValidateWeather() error {
	if err := weather.ValidateConfig(weather.WeatherConfig(c.Weather)); err != nil {
		return fmt.Errorf("weather: %w", err)
	}
	return nil
}
