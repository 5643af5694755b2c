package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Database       DatabaseConfig       `yaml:"database"`
	Server         ServerConfig         `yaml:"server"`
	Telemetry      TelemetryConfig      `yaml:"telemetry"`
	Market         MarketConfig         `yaml:"market"`
	Notify         NotifyConfig         `yaml:"notify"`
	LeaderElection LeaderElectionConfig `yaml:"leader_election"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	Driver   string `yaml:"driver"` // "postgres" or "memory"
}

// DSN returns the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	Insecure       bool   `yaml:"insecure"`
}

// MarketConfig holds the settlement engine knobs.
type MarketConfig struct {
	// PrivilegedAccount bypasses hold-period checks when listing or
	// auctioning. Empty disables the bypass entirely.
	PrivilegedAccount string `yaml:"privileged_account"`
	// HoldDays is how long newly granted items stay unlistable.
	HoldDays int `yaml:"hold_days"`
	// AntiSnipeWindow is both the trigger window before an auction's
	// deadline and the one-time extension applied when a bid lands in it.
	AntiSnipeWindow time.Duration `yaml:"anti_snipe_window"`
	// ResponseTTL is how long cached idempotent responses are replayed.
	ResponseTTL time.Duration `yaml:"response_ttl"`
}

// NotifyConfig holds Discord delivery settings for queued inbox messages.
type NotifyConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Token     string        `yaml:"token"`
	ChannelID string        `yaml:"channel_id"`
	Interval  time.Duration `yaml:"interval"`
}

// LeaderElectionConfig holds Kubernetes leader election settings.
type LeaderElectionConfig struct {
	Enabled        bool          `yaml:"enabled"`
	LeaseName      string        `yaml:"lease_name"`
	LeaseNamespace string        `yaml:"lease_namespace"`
	LeaseDuration  time.Duration `yaml:"lease_duration"`
	RenewDeadline  time.Duration `yaml:"renew_deadline"`
	RetryPeriod    time.Duration `yaml:"retry_period"`
}

// Load reads a YAML configuration file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a Config populated with default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
			Driver:  "postgres",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "squadmarket",
			ServiceVersion: "0.1.0",
		},
		Market: MarketConfig{
			HoldDays:        7,
			AntiSnipeWindow: 180 * time.Second,
			ResponseTTL:     24 * time.Hour,
		},
		Notify: NotifyConfig{
			Interval: 30 * time.Second,
		},
		LeaderElection: LeaderElectionConfig{
			Enabled:        false,
			LeaseName:      "squadmarket-leader",
			LeaseNamespace: "default",
			LeaseDuration:  15 * time.Second,
			RenewDeadline:  10 * time.Second,
			RetryPeriod:    2 * time.Second,
		},
	}
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
		// valid
	default:
		return fmt.Errorf("unsupported database driver %q: must be \"postgres\" or \"memory\"", c.Database.Driver)
	}
	if c.Market.HoldDays < 0 {
		return fmt.Errorf("market.hold_days must not be negative")
	}
	if c.Market.AntiSnipeWindow < 0 {
		return fmt.Errorf("market.anti_snipe_window must not be negative")
	}
	if c.Notify.Enabled && c.Notify.Token == "" {
		return fmt.Errorf("notify.token is required when notify.enabled is true")
	}
	return nil
}

// HoldPeriod returns the configured hold window as a duration.
func (m MarketConfig) HoldPeriod() time.Duration {
	return time.Duration(m.HoldDays) * 24 * time.Hour
}
