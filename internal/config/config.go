package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	PortOne   PortOneConfig   `yaml:"portone"`
	Secrets   SecretsConfig   `yaml:"secrets"`
	Billing   BillingConfig   `yaml:"billing"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logger    LoggerConfig    `yaml:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" validate:"required"`
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	MetricsPort     int           `yaml:"metrics_port" validate:"min=1,max=65535,nefield=Port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"min=1,max=65535"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password" validate:"required"`
	Database string `yaml:"database" validate:"required"`
	SSLMode  string `yaml:"ssl_mode" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns int32  `yaml:"max_conns" validate:"min=1"`
	MinConns int32  `yaml:"min_conns" validate:"min=0,ltefield=MaxConns"`
}

// PortOneConfig holds payment provider configuration
type PortOneConfig struct {
	BaseURL string        `yaml:"base_url" validate:"required,url"`
	StoreID string        `yaml:"store_id"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`

	// APISecret is read from the environment or resolved through Secrets.Path
	APISecret string `yaml:"-"`

	BreakerMaxFailures int           `yaml:"breaker_max_failures" validate:"min=1"`
	BreakerTimeout     time.Duration `yaml:"breaker_timeout" validate:"gt=0"`

	// MaxRetries applies to reads only
	MaxRetries int `yaml:"max_retries" validate:"min=0,max=5"`
}

// SecretsConfig selects where the provider API secret comes from
type SecretsConfig struct {
	Backend    string        `yaml:"backend" validate:"oneof=env local aws vault"`
	Path       string        `yaml:"path"`
	Region     string        `yaml:"region" validate:"required_if=Backend aws"`
	Endpoint   string        `yaml:"endpoint"`
	VaultAddr  string        `yaml:"vault_addr" validate:"required_if=Backend vault"`
	VaultToken string        `yaml:"-"`
	VaultMount string        `yaml:"vault_mount"`
	LocalDir   string        `yaml:"local_dir" validate:"required_if=Backend local"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

// BillingConfig holds subscription terms and workflow limits
type BillingConfig struct {
	PeriodDays      int           `yaml:"period_days" validate:"min=1"`
	EventTimeout    time.Duration `yaml:"event_timeout" validate:"gt=0"`
	InFlightTTL     time.Duration `yaml:"inflight_ttl"`
	DeliveryDoneTTL time.Duration `yaml:"delivery_done_ttl"`
}

// RedisConfig enables the webhook delivery guard when URL is set
type RedisConfig struct {
	URL string `yaml:"url" validate:"omitempty,url"`
}

// RateLimitConfig holds inbound rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps" validate:"gte=0"`
	Burst   int     `yaml:"burst" validate:"gte=0"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// Period returns the billing period length
func (c *BillingConfig) Period() time.Duration {
	return time.Duration(c.PeriodDays) * 24 * time.Hour
}

// Defaults returns the configuration used when nothing is overridden
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			MetricsPort:     9090,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Database: "billing",
			SSLMode:  "disable",
			MaxConns: 25,
			MinConns: 5,
		},
		PortOne: PortOneConfig{
			BaseURL:            "https://api.portone.io",
			Timeout:            5 * time.Second,
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
			MaxRetries:         2,
		},
		Secrets: SecretsConfig{
			Backend:    "env",
			Path:       "PORTONE_API_SECRET",
			VaultMount: "secret",
			CacheTTL:   5 * time.Minute,
		},
		Billing: BillingConfig{
			PeriodDays:      30,
			EventTimeout:    30 * time.Second,
			InFlightTTL:     2 * time.Minute,
			DeliveryDoneTTL: 72 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     50,
			Burst:   100,
		},
		Logger: LoggerConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from defaults, an optional YAML file named
// by CONFIG_FILE, a .env file and environment variables, in increasing
// precedence, and validates the result
func LoadFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsInt("SERVER_PORT", c.Server.Port)
	c.Server.MetricsPort = getEnvAsInt("METRICS_PORT", c.Server.MetricsPort)
	c.Server.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Database.applyEnv()

	c.PortOne.BaseURL = getEnv("PORTONE_BASE_URL", c.PortOne.BaseURL)
	c.PortOne.StoreID = getEnv("PORTONE_STORE_ID", c.PortOne.StoreID)
	c.PortOne.Timeout = getEnvAsDuration("PORTONE_TIMEOUT", c.PortOne.Timeout)
	c.PortOne.APISecret = getEnv("PORTONE_API_SECRET", c.PortOne.APISecret)
	c.PortOne.BreakerMaxFailures = getEnvAsInt("PORTONE_BREAKER_MAX_FAILURES", c.PortOne.BreakerMaxFailures)
	c.PortOne.BreakerTimeout = getEnvAsDuration("PORTONE_BREAKER_TIMEOUT", c.PortOne.BreakerTimeout)
	c.PortOne.MaxRetries = getEnvAsInt("PORTONE_MAX_RETRIES", c.PortOne.MaxRetries)

	c.Secrets.Backend = getEnv("SECRETS_BACKEND", c.Secrets.Backend)
	c.Secrets.Path = getEnv("SECRETS_PATH", c.Secrets.Path)
	c.Secrets.Region = getEnv("AWS_REGION", c.Secrets.Region)
	c.Secrets.Endpoint = getEnv("SECRETS_ENDPOINT", c.Secrets.Endpoint)
	c.Secrets.VaultAddr = getEnv("VAULT_ADDR", c.Secrets.VaultAddr)
	c.Secrets.VaultToken = getEnv("VAULT_TOKEN", c.Secrets.VaultToken)
	c.Secrets.VaultMount = getEnv("VAULT_MOUNT", c.Secrets.VaultMount)
	c.Secrets.LocalDir = getEnv("SECRETS_LOCAL_DIR", c.Secrets.LocalDir)
	c.Secrets.CacheTTL = getEnvAsDuration("SECRETS_CACHE_TTL", c.Secrets.CacheTTL)

	c.Billing.PeriodDays = getEnvAsInt("BILLING_PERIOD_DAYS", c.Billing.PeriodDays)
	c.Billing.EventTimeout = getEnvAsDuration("BILLING_EVENT_TIMEOUT", c.Billing.EventTimeout)
	c.Billing.InFlightTTL = getEnvAsDuration("BILLING_INFLIGHT_TTL", c.Billing.InFlightTTL)
	c.Billing.DeliveryDoneTTL = getEnvAsDuration("BILLING_DELIVERY_DONE_TTL", c.Billing.DeliveryDoneTTL)

	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)

	c.RateLimit.Enabled = getEnvAsBool("RATE_LIMIT_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.RPS = getEnvAsFloat("RATE_LIMIT_RPS", c.RateLimit.RPS)
	c.RateLimit.Burst = getEnvAsInt("RATE_LIMIT_BURST", c.RateLimit.Burst)

	c.Logger.Level = strings.ToLower(getEnv("LOG_LEVEL", c.Logger.Level))
	c.Logger.Development = getEnvAsBool("LOG_DEVELOPMENT", c.Logger.Development)
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		c.Logger.Development = env != "production"
	}
}

func (d *DatabaseConfig) applyEnv() {
	d.Host = getEnv("DB_HOST", d.Host)
	d.Port = getEnvAsInt("DB_PORT", d.Port)
	d.User = getEnv("DB_USER", d.User)
	d.Password = getEnv("DB_PASSWORD", d.Password)
	d.Database = getEnv("DB_NAME", d.Database)
	d.SSLMode = getEnv("DB_SSL_MODE", d.SSLMode)
	d.MaxConns = int32(getEnvAsInt("DB_MAX_CONNS", int(d.MaxConns)))
	d.MinConns = int32(getEnvAsInt("DB_MIN_CONNS", int(d.MinConns)))
}

// DatabaseFromEnv loads only the database section, for tools that never
// talk to the provider
func DatabaseFromEnv() (*DatabaseConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	db := Defaults().Database
	db.applyEnv()
	if err := validator.New().Struct(&db); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}
	return &db, nil
}

// Validate checks struct constraints and cross-field requirements
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive when rate limiting is enabled")
	}
	if c.PortOne.APISecret == "" && c.Secrets.Backend == "env" && c.Secrets.Path == "PORTONE_API_SECRET" {
		return fmt.Errorf("PORTONE_API_SECRET is required")
	}
	return nil
}

// DSN returns a libpq keyword/value string without pool settings
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// ConnectionString returns the pgxpool connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("%s pool_max_conns=%d pool_min_conns=%d", c.DSN(), c.MaxConns, c.MinConns)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("5s") or whole seconds ("5")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
