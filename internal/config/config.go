package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	S3       S3Config
	Redis    RedisConfig
	Kafka    KafkaConfig
	Checkout CheckoutConfig
	Cart     CartConfig

	// CouponImportFiles are imported into the coupon table at startup.
	CouponImportFiles []string `env:"COUPON_IMPORT_FILES" envSeparator:","`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envDefault:"8080"`
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string `env:"DB_HOST" envDefault:"localhost"`
	Port            int    `env:"DB_PORT" envDefault:"5432"`
	User            string `env:"DB_USER" envDefault:"postgres"`
	Password        string `env:"DB_PASSWORD"`
	Database        string `env:"DB_NAME" envDefault:"storefront"`
	MaxConnections  int    `env:"DB_MAX_CONNECTIONS" envDefault:"25"`
	MinConnections  int    `env:"DB_MIN_CONNECTIONS" envDefault:"5"`
	MaxConnLifetime int    `env:"DB_MAX_CONN_LIFETIME" envDefault:"300"` // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"` // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	APIKey string `env:"API_KEY"`
	// SessionSecret verifies HS256 session tokens issued by the authentication provider.
	SessionSecret string `env:"SESSION_SECRET"`
}

// S3Config holds AWS S3 configuration for coupon files.
type S3Config struct {
	Enabled bool   `env:"S3_ENABLED" envDefault:"false"`
	Bucket  string `env:"S3_BUCKET"`
	Region  string `env:"S3_REGION" envDefault:"us-east-1"`
	Prefix  string `env:"S3_PREFIX" envDefault:"coupons/"` // Path prefix within bucket (e.g., "coupons/")
}

// RedisConfig holds the Redis connection used for carts and the checkout guard.
// An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// KafkaConfig holds the order event topic. Empty Brokers disables publishing.
type KafkaConfig struct {
	Brokers string `env:"KAFKA_BROKERS"`
	Topic   string `env:"KAFKA_ORDER_TOPIC" envDefault:"order-events"`
}

// CheckoutConfig tunes the checkout pipeline.
type CheckoutConfig struct {
	IdentityMaxAttempts int           `env:"CHECKOUT_IDENTITY_MAX_ATTEMPTS" envDefault:"3"`
	PriceTimeout        time.Duration `env:"CHECKOUT_PRICE_TIMEOUT" envDefault:"3s"`
	CommitTimeout       time.Duration `env:"CHECKOUT_COMMIT_TIMEOUT" envDefault:"15s"`
	GuardTTL            time.Duration `env:"CHECKOUT_GUARD_TTL" envDefault:"30s"`
	RateLimit           float64       `env:"CHECKOUT_RATE_LIMIT" envDefault:"5"`
	RateBurst           int           `env:"CHECKOUT_RATE_BURST" envDefault:"10"`
}

// CartConfig selects where carts are persisted.
type CartConfig struct {
	Backend string        `env:"CART_BACKEND" envDefault:"memory"` // "memory", "file" or "redis"
	Dir     string        `env:"CART_DIR" envDefault:"data/carts"`
	TTL     time.Duration `env:"CART_TTL" envDefault:"720h"`
}

// Load loads configuration from environment variables, reading a .env file
// first when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	if len(c.Auth.SessionSecret) < 32 {
		return fmt.Errorf("session secret must be at least 32 characters")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	switch c.Cart.Backend {
	case "memory":
	case "file":
		if c.Cart.Dir == "" {
			return fmt.Errorf("cart directory is required for the file backend")
		}
	case "redis":
		if !c.Redis.Enabled() {
			return fmt.Errorf("redis address is required for the redis cart backend")
		}
	default:
		return fmt.Errorf("invalid cart backend: %s (must be memory, file, or redis)", c.Cart.Backend)
	}

	if c.Kafka.Brokers != "" && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka topic is required when brokers are set")
	}

	if c.Checkout.IdentityMaxAttempts < 1 {
		return fmt.Errorf("identity max attempts must be at least 1")
	}

	if c.Checkout.PriceTimeout <= 0 || c.Checkout.CommitTimeout <= 0 || c.Checkout.GuardTTL <= 0 {
		return fmt.Errorf("checkout timeouts must be positive")
	}

	if c.Checkout.GuardTTL < c.Checkout.CommitTimeout {
		return fmt.Errorf("checkout guard TTL cannot be shorter than the commit timeout")
	}

	if c.Checkout.RateLimit <= 0 || c.Checkout.RateBurst < 1 {
		return fmt.Errorf("checkout rate limit and burst must be positive")
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
