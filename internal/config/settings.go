package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable read by LoadSettings.
const EnvPrefix = "FLUENTHTTP"

// Settings holds the process-wide defaults of the command line tool.
// Command line flags take precedence over these values.
type Settings struct {
	Timeout      time.Duration `envconfig:"TIMEOUT" default:"30s"`
	RetryMax     int           `envconfig:"RETRY_MAX" default:"0"`
	RetryWaitMin time.Duration `envconfig:"RETRY_WAIT_MIN" default:"100ms"`
	RetryWaitMax time.Duration `envconfig:"RETRY_WAIT_MAX" default:"2s"`
	RateLimit    float64       `envconfig:"RATE_LIMIT" default:"0"`
	RateBurst    int           `envconfig:"RATE_BURST" default:"1"`
	UserAgent    string        `envconfig:"USER_AGENT" default:"fluenthttp"`
	CacheTTL     time.Duration `envconfig:"CACHE_TTL" default:"0"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"warn"`
	LogFormat    string        `envconfig:"LOG_FORMAT" default:"console"`
	Decompress   bool          `envconfig:"DECOMPRESS" default:"true"`
}

// LoadSettings reads FLUENTHTTP_* environment variables.
func LoadSettings() (*Settings, error) {
	var s Settings
	if err := envconfig.Process(EnvPrefix, &s); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// DefaultSettings returns the values used when no variable is set.
func DefaultSettings() *Settings {
	return &Settings{
		Timeout:      30 * time.Second,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 2 * time.Second,
		RateBurst:    1,
		UserAgent:    "fluenthttp",
		LogLevel:     "warn",
		LogFormat:    "console",
		Decompress:   true,
	}
}

// Validate reports settings that cannot be applied.
func (s *Settings) Validate() error {
	switch {
	case s.Timeout < 0:
		return fmt.Errorf("%s_TIMEOUT cannot be negative", EnvPrefix)
	case s.RetryMax < 0:
		return fmt.Errorf("%s_RETRY_MAX cannot be negative", EnvPrefix)
	case s.RetryWaitMin > s.RetryWaitMax:
		return fmt.Errorf("%s_RETRY_WAIT_MIN cannot exceed %s_RETRY_WAIT_MAX", EnvPrefix, EnvPrefix)
	case s.RateLimit < 0:
		return fmt.Errorf("%s_RATE_LIMIT cannot be negative", EnvPrefix)
	case s.CacheTTL < 0:
		return fmt.Errorf("%s_CACHE_TTL cannot be negative", EnvPrefix)
	}
	return nil
}
