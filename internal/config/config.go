// Package config provides configuration loading and validation for the
// device runtime, the API server and the fan-out worker.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Device defaults.
const (
	DefaultStatePath        = "govjobs-state.db"
	DefaultPlatform         = "android"
	DefaultRefreshSpec      = "@every 30m"
	DefaultTapRetryAttempts = 10
	DefaultTapRetryDelay    = 500 * time.Millisecond
	DefaultDedupWindow      = 10 * time.Second
	DefaultAnalyticsQueue   = "analytics_events"
	DefaultLogLevel         = "info"
)

// Duration is a time.Duration that reads "500ms" style strings from JSON and YAML.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"500ms\": %w", err)
	}
	return d.parse(s)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// DeviceConfig configures one device runtime. It can be loaded from a JSON
// or YAML file. All fields are optional; missing values use defaults.
type DeviceConfig struct {
	// Storage
	StatePath     string `json:"state_path,omitempty" yaml:"state_path"`           // SQLite file for persisted state
	StateRedisURL string `json:"state_redis_url,omitempty" yaml:"state_redis_url"` // Redis instead of SQLite when set

	// Catalog
	APIBaseURL  string `json:"api_base_url,omitempty" yaml:"api_base_url"` // Public catalog API
	RefreshSpec string `json:"refresh_spec,omitempty" yaml:"refresh_spec"` // Cron spec for catalog refresh

	// Push
	Platform             string `json:"platform,omitempty" yaml:"platform"`
	NotificationsAllowed bool   `json:"notifications_allowed,omitempty" yaml:"notifications_allowed"`
	PushToken            string `json:"push_token,omitempty" yaml:"push_token"`
	PushCredentialsFile  string `json:"push_credentials_file,omitempty" yaml:"push_credentials_file"`
	InstallReferrer      string `json:"install_referrer,omitempty" yaml:"install_referrer"` // Raw store referrer, empty for organic

	// Reporting
	AnalyticsAMQPURL  string `json:"analytics_amqp_url,omitempty" yaml:"analytics_amqp_url"`
	AnalyticsQueue    string `json:"analytics_queue,omitempty" yaml:"analytics_queue"`
	MarketingEndpoint string `json:"marketing_endpoint,omitempty" yaml:"marketing_endpoint"`
	MarketingAppID    string `json:"marketing_app_id,omitempty" yaml:"marketing_app_id"`

	// Behavior
	TapRetryAttempts int      `json:"tap_retry_attempts,omitempty" yaml:"tap_retry_attempts"`
	TapRetryDelay    Duration `json:"tap_retry_delay,omitempty" yaml:"tap_retry_delay"`
	DedupWindow      Duration `json:"dedup_window,omitempty" yaml:"dedup_window"`
	LogLevel         string   `json:"log_level,omitempty" yaml:"log_level"`
	Development      bool     `json:"development,omitempty" yaml:"development"`
}

// LoadDeviceConfig loads configuration from a JSON or YAML file, chosen by
// extension (.yaml, .yml, anything else is JSON).
func LoadDeviceConfig(path string) (*DeviceConfig, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg DeviceConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *DeviceConfig) Validate() error {
	if c.StatePath != "" && c.StateRedisURL != "" {
		return fmt.Errorf("config error: 'state_path' and 'state_redis_url' are mutually exclusive")
	}
	switch c.Platform {
	case "", "android", "ios":
	default:
		return fmt.Errorf("config error: 'platform' must be android or ios, got %q", c.Platform)
	}
	if c.TapRetryAttempts < 0 {
		return fmt.Errorf("config error: 'tap_retry_attempts' must be non-negative")
	}
	if c.TapRetryDelay < 0 || c.DedupWindow < 0 {
		return fmt.Errorf("config error: durations must be non-negative")
	}
	if c.PushCredentialsFile != "" {
		if _, err := os.Stat(c.PushCredentialsFile); os.IsNotExist(err) {
			return fmt.Errorf("config error: push credentials file not found: %s", c.PushCredentialsFile)
		}
	}
	return nil
}

// MergeWithDefaults returns a copy with zero fields filled from the package
// defaults. Bool fields are left as loaded.
func (c *DeviceConfig) MergeWithDefaults() DeviceConfig {
	result := *c

	if result.StatePath == "" && result.StateRedisURL == "" {
		result.StatePath = DefaultStatePath
	}
	if result.Platform == "" {
		result.Platform = DefaultPlatform
	}
	if result.RefreshSpec == "" {
		result.RefreshSpec = DefaultRefreshSpec
	}
	if result.AnalyticsQueue == "" {
		result.AnalyticsQueue = DefaultAnalyticsQueue
	}
	if result.MarketingAppID == "" {
		result.MarketingAppID = "govjob-alerts-" + result.Platform
	}
	if result.TapRetryAttempts == 0 {
		result.TapRetryAttempts = DefaultTapRetryAttempts
	}
	if result.TapRetryDelay == 0 {
		result.TapRetryDelay = Duration(DefaultTapRetryDelay)
	}
	if result.DedupWindow == 0 {
		result.DedupWindow = Duration(DefaultDedupWindow)
	}
	if result.LogLevel == "" {
		result.LogLevel = DefaultLogLevel
	}

	return result
}
