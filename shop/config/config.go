// Package config holds the storefront configuration: the shared bot settings
// plus catalog, orders, payments, sessions and notification sections.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/surokacs/petertrain-bot/core/config"
	"github.com/surokacs/petertrain-bot/core/database"
)

// CatalogConfig points at the products file.
type CatalogConfig struct {
	Path string `yaml:"path" envconfig:"CATALOG_PATH"`
}

// PaymentsConfig configures Telegram invoices.
type PaymentsConfig struct {
	ProviderToken  string `yaml:"provider_token" envconfig:"PAYMENT_PROVIDER_TOKEN"`
	Currency       string `yaml:"currency" envconfig:"PAYMENT_CURRENCY"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"PAYMENT_TIMEOUT_SECONDS"`
}

// OrdersConfig configures order ids, the admin report and store timeouts.
type OrdersConfig struct {
	IDScheme              string `yaml:"id_scheme" envconfig:"ORDERS_ID_SCHEME"`
	ReportLimit           int    `yaml:"report_limit" envconfig:"ORDERS_REPORT_LIMIT"`
	StorageTimeoutSeconds int    `yaml:"storage_timeout_seconds" envconfig:"ORDERS_STORAGE_TIMEOUT_SECONDS"`
}

// RedisConfig addresses the Redis session backend.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

// SessionsConfig selects where conversation sessions live.
type SessionsConfig struct {
	Backend        string      `yaml:"backend" envconfig:"SESSIONS_BACKEND"`
	IdleTTLMinutes int         `yaml:"idle_ttl_minutes" envconfig:"SESSIONS_IDLE_TTL_MINUTES"`
	Redis          RedisConfig `yaml:"redis"`
}

// SMTPConfig configures receipt e-mails. An empty host logs receipts instead.
type SMTPConfig struct {
	Host           string `yaml:"host" envconfig:"SMTP_HOST"`
	Port           int    `yaml:"port" envconfig:"SMTP_PORT"`
	Username       string `yaml:"username" envconfig:"EMAIL_SENDER"`
	Password       string `yaml:"password" envconfig:"EMAIL_PASSWORD"`
	From           string `yaml:"from" envconfig:"SMTP_FROM"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"SMTP_TIMEOUT_SECONDS"`
}

// KafkaConfig enables order event publishing when brokers are set.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" envconfig:"KAFKA_BROKERS"`
	Topic   string   `yaml:"topic" envconfig:"KAFKA_TOPIC"`
}

// HooksConfig bounds post-commit hooks.
type HooksConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds" envconfig:"HOOKS_TIMEOUT_SECONDS"`
}

// OpsConfig configures the health and metrics listener. Empty disables it.
type OpsConfig struct {
	Listen string `yaml:"listen" envconfig:"OPS_LISTEN"`
}

const (
	SessionsMemory = "memory"
	SessionsRedis  = "redis"
)

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database database.Config `yaml:"database"`
	Catalog  CatalogConfig   `yaml:"catalog"`
	Payments PaymentsConfig  `yaml:"payments"`
	Orders   OrdersConfig    `yaml:"orders"`
	Sessions SessionsConfig  `yaml:"sessions"`
	SMTP     SMTPConfig      `yaml:"smtp"`
	Kafka    KafkaConfig     `yaml:"kafka"`
	Hooks    HooksConfig     `yaml:"hooks"`
	Ops      OpsConfig       `yaml:"ops"`
}

// CoreConfig implements the runner's ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads path, overlays the environment and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	switch cfg.Database.Driver {
	case "":
		cfg.Database.Driver = database.DriverJSONFile
		fallthrough
	case database.DriverJSONFile:
		if cfg.Database.Path == "" {
			cfg.Database.Path = "data/orders.json"
		}
	case database.DriverSQLite:
		if cfg.Database.Path == "" {
			cfg.Database.Path = "data/orders.db"
		}
	case database.DriverPostgres:
		if cfg.Database.Host == "" || cfg.Database.Name == "" {
			return fmt.Errorf("database.host and database.name are required for postgres")
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
	default:
		return fmt.Errorf("invalid database.driver %q; allowed: postgres, sqlite, jsonfile", cfg.Database.Driver)
	}

	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = "data/products.json"
	}

	cfg.Payments.Currency = strings.ToUpper(strings.TrimSpace(cfg.Payments.Currency))
	if cfg.Payments.Currency == "" {
		cfg.Payments.Currency = "RUB"
	}
	if len(cfg.Payments.Currency) != 3 {
		return fmt.Errorf("payments.currency must be an ISO 4217 code, got %q", cfg.Payments.Currency)
	}
	if cfg.Payments.TimeoutSeconds <= 0 {
		cfg.Payments.TimeoutSeconds = 10
	}

	cfg.Orders.IDScheme = strings.ToLower(strings.TrimSpace(cfg.Orders.IDScheme))
	switch cfg.Orders.IDScheme {
	case "":
		cfg.Orders.IDScheme = "numeric"
	case "numeric", "uuid":
	default:
		return fmt.Errorf("invalid orders.id_scheme %q; allowed: numeric, uuid", cfg.Orders.IDScheme)
	}
	if cfg.Orders.ReportLimit <= 0 {
		cfg.Orders.ReportLimit = 10
	}
	if cfg.Orders.StorageTimeoutSeconds <= 0 {
		cfg.Orders.StorageTimeoutSeconds = 5
	}

	cfg.Sessions.Backend = strings.ToLower(strings.TrimSpace(cfg.Sessions.Backend))
	switch cfg.Sessions.Backend {
	case "":
		cfg.Sessions.Backend = SessionsMemory
	case SessionsMemory:
	case SessionsRedis:
		if cfg.Sessions.Redis.Addr == "" {
			cfg.Sessions.Redis.Addr = "localhost:6379"
		}
	default:
		return fmt.Errorf("invalid sessions.backend %q; allowed: memory, redis", cfg.Sessions.Backend)
	}
	if cfg.Sessions.IdleTTLMinutes <= 0 {
		cfg.Sessions.IdleTTLMinutes = 30
	}

	if cfg.SMTP.Host != "" {
		if cfg.SMTP.Port <= 0 {
			cfg.SMTP.Port = 465
		}
		if cfg.SMTP.From == "" {
			cfg.SMTP.From = cfg.SMTP.Username
		}
		if cfg.SMTP.From == "" {
			return fmt.Errorf("smtp.from or smtp.username is required when smtp.host is set")
		}
	}
	if cfg.SMTP.TimeoutSeconds <= 0 {
		cfg.SMTP.TimeoutSeconds = 15
	}

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "orders"
	}
	if cfg.Hooks.TimeoutSeconds <= 0 {
		cfg.Hooks.TimeoutSeconds = 10
	}
	return nil
}

// Seconds converts a whole-second setting into a duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
