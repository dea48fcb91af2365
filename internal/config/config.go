// Package config loads dispatcher configuration from a YAML file with
// environment variable overrides for secrets and deployment settings.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the dispatch engine.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	SES         SESConfig         `yaml:"ses"`
	ChatGateway ChatGatewayConfig `yaml:"chat_gateway"`
	Dispatch    DispatchConfig    `yaml:"dispatch"`
	Reminders   ReminderConfig    `yaml:"reminders"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig holds the HTTP listener configuration.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds the Postgres connection configuration.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the optional Redis connection. When URL is empty the
// dispatcher falls back to Postgres advisory locks and local rate limiting.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// Enabled reports whether a Redis connection is configured.
func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

// SESConfig holds AWS SES credentials for email delivery.
type SESConfig struct {
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
}

// ChatGatewayConfig holds the chat gateway API configuration.
type ChatGatewayConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration.
func (c ChatGatewayConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DispatchConfig controls the campaign sweep and send pacing.
type DispatchConfig struct {
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`
	SendIntervalMillis   int `yaml:"send_interval_millis"`
	RateLimitPerSecond   int `yaml:"rate_limit_per_second"`
}

// SweepInterval returns the due-campaign sweep interval as a duration.
func (c DispatchConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// SendInterval returns the per-recipient pacing delay as a duration.
func (c DispatchConfig) SendInterval() time.Duration {
	return time.Duration(c.SendIntervalMillis) * time.Millisecond
}

// ReminderConfig controls the daily recurrence reminder scan.
type ReminderConfig struct {
	WarningDays  int    `yaml:"warning_days"`
	RunHour      int    `yaml:"run_hour"`
	Subject      string `yaml:"subject"`
	BodyTemplate string `yaml:"body_template"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII bool   `yaml:"redact_pii"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-east-1"
	}
	if cfg.ChatGateway.TimeoutSeconds == 0 {
		cfg.ChatGateway.TimeoutSeconds = 15
	}
	if cfg.Dispatch.SweepIntervalSeconds == 0 {
		cfg.Dispatch.SweepIntervalSeconds = 60
	}
	if cfg.Dispatch.SendIntervalMillis == 0 {
		cfg.Dispatch.SendIntervalMillis = 100
	}
	if cfg.Dispatch.RateLimitPerSecond == 0 {
		cfg.Dispatch.RateLimitPerSecond = 10
	}
	if cfg.Reminders.WarningDays == 0 {
		cfg.Reminders.WarningDays = 5
	}
	if cfg.Reminders.RunHour == 0 {
		cfg.Reminders.RunHour = 8
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) before reading env vars, so secrets can
// live in .env locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.SES.Region = v
	}
	if v := os.Getenv("CHAT_GATEWAY_URL"); v != "" {
		cfg.ChatGateway.BaseURL = v
	}

	return cfg, nil
}
