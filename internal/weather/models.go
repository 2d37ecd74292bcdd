package weather

import (
	"fmt"
	"time"

	"github.com/yegors/metar-reader/internal/metar"
)

// Lookup is the result of looking up one airport
type Lookup struct {
	AirportCode string        `json:"airport_code"`
	RawMETAR    string        `json:"raw_metar"`
	Decoded     *metar.Report `json:"decoded_data"`
	FetchedAt   time.Time     `json:"fetched_at"`
	Cached      bool          `json:"cached"`
}

// WeatherConfig represents the weather service configuration
type WeatherConfig struct {
	APIBaseURL             string   `toml:"api_base_url"`
	RequestTimeoutSeconds  int      `toml:"request_timeout_seconds"`
	MaxRetries             int      `toml:"max_retries"`
	CacheExpiryMinutes     int      `toml:"cache_expiry_minutes"`
	RefreshIntervalMinutes int      `toml:"refresh_interval_minutes"`
	WatchAirports          []string `toml:"watch_airports"`
}

// CacheExpiry returns the configured cache lifetime
func (c WeatherConfig) CacheExpiry() time.Duration {
	return time.Duration(c.CacheExpiryMinutes) * time.Minute
}

// RefreshInterval returns the configured watch list refresh period
func (c WeatherConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMinutes) * time.Minute
}

// DefaultWeatherConfig returns the default weather configuration
func DefaultWeatherConfig() WeatherConfig {
	return WeatherConfig{
		APIBaseURL:             "https://aviationweather.gov/api/data",
		RequestTimeoutSeconds:  10,
		MaxRetries:             0,
		CacheExpiryMinutes:     5,
		RefreshIntervalMinutes: 10,
	}
}

// ValidateConfig validates the weather service configuration
func ValidateConfig(config WeatherConfig) error {
	if config.APIBaseURL == "" {
		return fmt.Errorf("api_base_url cannot be empty")
	}

	if config.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("request_timeout_seconds must be greater than 0")
	}

	if config.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be 0 or greater")
	}

	if config.CacheExpiryMinutes <= 0 {
		return fmt.Errorf("cache_expiry_minutes must be greater than 0")
	}

	if len(config.WatchAirports) > 0 && config.RefreshIntervalMinutes <= 0 {
		return fmt.Errorf("refresh_interval_minutes must be greater than 0 when watch_airports is set")
	}

	for _, code := range config.WatchAirports {
		if _, err := NormalizeAirportCode(code); err != nil {
			return fmt.Errorf("invalid watch airport %q: %w", code, err)
		}
	}

	return nil
}
