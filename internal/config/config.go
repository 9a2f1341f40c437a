package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Events    EventsConfig    `yaml:"events"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Rental    RentalConfig    `yaml:"rental"`
	Payment   PaymentConfig   `yaml:"payment"`
	Notifier  NotifierConfig  `yaml:"notifier"`
	Pricing   PricingConfig   `yaml:"pricing"`
}

// ServerConfig contains HTTP API and gRPC health server settings
type ServerConfig struct {
	Host            string        `yaml:"host" env:"SERVER_HOST"`
	HTTPPort        int           `yaml:"http_port" env:"SERVER_HTTP_PORT"`
	GRPCPort        int           `yaml:"grpc_port" env:"SERVER_GRPC_PORT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
}

// DatabaseConfig contains entity store settings. Driver "memory" runs the
// in-process store, useful for local demos.
type DatabaseConfig struct {
	Driver       string `yaml:"driver" env:"DB_DRIVER"`
	Host         string `yaml:"host" env:"DB_HOST"`
	Port         int    `yaml:"port" env:"DB_PORT"`
	User         string `yaml:"user" env:"DB_USER"`
	Password     string `yaml:"password" env:"DB_PASSWORD"`
	Database     string `yaml:"database" env:"DB_NAME"`
	SSLMode      string `yaml:"ssl_mode" env:"DB_SSL_MODE"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
	AutoMigrate  bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE"`
}

// JWTConfig contains bearer token validation settings
type JWTConfig struct {
	Secret string `yaml:"secret" env:"JWT_SECRET"`
	Issuer string `yaml:"issuer" env:"JWT_ISSUER"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`   // "debug", "info", "warn", "error"
	Format string `yaml:"format" env:"LOG_FORMAT"` // "json" or "text"
}

// EventsConfig selects how post-commit side effects are delivered
type EventsConfig struct {
	Mode       string        `yaml:"mode" env:"EVENTS_MODE"` // "inline", "queue" or "redis"
	Workers    int           `yaml:"workers" env:"EVENTS_WORKERS"`
	BufferSize int           `yaml:"buffer_size" env:"EVENTS_BUFFER_SIZE"`
	MaxRetries int           `yaml:"max_retries" env:"EVENTS_MAX_RETRIES"`
	RetryDelay time.Duration `yaml:"retry_delay" env:"EVENTS_RETRY_DELAY"`
	RedisAddr  string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisKey   string        `yaml:"redis_key" env:"EVENTS_REDIS_KEY"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	ExpireOverdue     string `yaml:"expire_overdue" env:"CRON_EXPIRE_OVERDUE"`
	ExtensionReminder string `yaml:"extension_reminder" env:"CRON_EXTENSION_REMINDER"`
}

// RentalConfig contains lifecycle policy knobs
type RentalConfig struct {
	ReminderLeadDays int  `yaml:"reminder_lead_days" env:"RENTAL_REMINDER_LEAD_DAYS"`
	AllowPastStart   bool `yaml:"allow_past_start" env:"RENTAL_ALLOW_PAST_START"`
	ConflictRetries  int  `yaml:"conflict_retries" env:"RENTAL_CONFLICT_RETRIES"`
}

// PaymentConfig contains payment gateway settings
type PaymentConfig struct {
	MercadoPagoAccessToken string `yaml:"mercadopago_access_token" env:"MERCADOPAGO_ACCESS_TOKEN"`
	Mock                   bool   `yaml:"mock" env:"PAYMENT_GATEWAY_MOCK"`
	WebhookSecret          string `yaml:"webhook_secret" env:"PAYMENT_WEBHOOK_SECRET"`
	NotificationURL        string `yaml:"notification_url" env:"PAYMENT_NOTIFICATION_URL"`
	Currency               string `yaml:"currency" env:"PAYMENT_CURRENCY"`
}

// NotifierConfig contains optional push and email channels
type NotifierConfig struct {
	FirebaseCredentialsFile string `yaml:"firebase_credentials_file" env:"FIREBASE_CREDENTIALS_FILE"`
	SendGridAPIKey          string `yaml:"sendgrid_api_key" env:"SENDGRID_API_KEY"`
	FromEmail               string `yaml:"from_email" env:"NOTIFIER_FROM_EMAIL"`
	FromName                string `yaml:"from_name" env:"NOTIFIER_FROM_NAME"`
	AdminEmail              string `yaml:"admin_email" env:"NOTIFIER_ADMIN_EMAIL"`
}

// PricingConfig points at the external price estimation service
type PricingConfig struct {
	PredictorURL string        `yaml:"predictor_url" env:"PRICE_PREDICTOR_URL"`
	Timeout      time.Duration `yaml:"timeout" env:"PRICE_PREDICTOR_TIMEOUT"`
}

// Load reads configuration from a YAML file, then applies environment overrides
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes plus the process environment
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8080
	}
	if c.Server.GRPCPort == 0 {
		c.Server.GRPCPort = 9090
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 15 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Events.Mode == "" {
		c.Events.Mode = "inline"
	}
	if c.Events.Workers == 0 {
		c.Events.Workers = 4
	}
	if c.Events.BufferSize == 0 {
		c.Events.BufferSize = 256
	}
	if c.Events.MaxRetries == 0 {
		c.Events.MaxRetries = 3
	}
	if c.Events.RetryDelay == 0 {
		c.Events.RetryDelay = 200 * time.Millisecond
	}
	if c.Events.RedisKey == "" {
		c.Events.RedisKey = "rental:events"
	}

	if c.Scheduler.ExpireOverdue == "" {
		c.Scheduler.ExpireOverdue = "0 15 0 * * *" // 00:15 UTC daily
	}
	if c.Scheduler.ExtensionReminder == "" {
		c.Scheduler.ExtensionReminder = "0 0 8 * * *" // 08:00 UTC daily
	}

	if c.Rental.ReminderLeadDays == 0 {
		c.Rental.ReminderLeadDays = 30
	}
	if c.Rental.ConflictRetries == 0 {
		c.Rental.ConflictRetries = 3
	}

	if c.Payment.Currency == "" {
		c.Payment.Currency = "IDR"
	}
	if c.Notifier.FromName == "" {
		c.Notifier.FromName = "Asset Rental"
	}

	if c.Pricing.Timeout == 0 {
		c.Pricing.Timeout = 5 * time.Second
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port: %d", c.Server.HTTPPort)
	}
	if c.Server.GRPCPort <= 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.Server.GRPCPort)
	}
	if c.Server.GRPCPort == c.Server.HTTPPort {
		return fmt.Errorf("http and grpc ports must differ")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	switch c.Events.Mode {
	case "inline", "queue":
	case "redis":
		if c.Events.RedisAddr == "" {
			return fmt.Errorf("redis address is required for events mode redis")
		}
	default:
		return fmt.Errorf("unsupported events mode: %q", c.Events.Mode)
	}

	if !c.Payment.Mock && c.Payment.MercadoPagoAccessToken != "" && c.Payment.WebhookSecret == "" {
		return fmt.Errorf("payment webhook secret is required when the gateway is enabled")
	}

	if c.Rental.ReminderLeadDays < 0 {
		return fmt.Errorf("reminder lead days must not be negative")
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetHTTPAddress returns the HTTP API listen address
func (c *Config) GetHTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}

// GetGRPCAddress returns the gRPC health server listen address
func (c *Config) GetGRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}
