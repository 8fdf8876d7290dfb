package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Checkout CheckoutConfig
	Cart     CartConfig
	Redis    RedisConfig
	S3       S3Config
	Kafka    KafkaConfig
	Client   ClientConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
	AutoMigrate     bool
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// APIKey guards the staff endpoints.
	APIKey string
	// JWTSecret verifies optional customer bearer tokens. Empty disables bearer auth,
	// in which case every order is placed as a guest.
	JWTSecret string
}

// Pricing modes for order placement.
const (
	PricingVerify = "verify"
	PricingTrust  = "trust"
)

// CheckoutConfig holds the pricing rules shared by the checkout client and the order service.
type CheckoutConfig struct {
	TaxRate     float64
	CODFee      float64
	PricingMode string
}

// Cart storage backends.
const (
	CartBackendMemory = "memory"
	CartBackendFile   = "file"
	CartBackendRedis  = "redis"
	CartBackendS3     = "s3"
)

// CartConfig holds the client-held cart configuration.
type CartConfig struct {
	MaxItems           int
	MaxQuantityPerItem int
	Retention          time.Duration
	Backend            string
	Path               string // directory for the file backend
	Key                string
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// S3Config holds AWS S3 configuration for cart snapshots.
type S3Config struct {
	Enabled bool
	Bucket  string
	Region  string
	Prefix  string // Path prefix within bucket (e.g., "carts/")
}

// KafkaConfig holds configuration for the order event publisher.
type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	Topic        string
	PollInterval time.Duration
	BatchSize    int
}

// ClientConfig holds configuration for the command-line client.
type ClientConfig struct {
	BaseURL string
	Token   string
	APIKey  string
	Timeout time.Duration
}

// Load loads the server configuration from the environment and validates it.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := fromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadClient loads the command-line client configuration. Database and server settings are
// read but not validated.
func LoadClient() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := fromEnv()
	if err := cfg.ValidateClient(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadDotEnv reads ENV_FILE (default .env) into the environment. Variables already set
// take precedence and a missing file is ignored.
func loadDotEnv() error {
	path := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func fromEnv() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "storefront"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
			AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			APIKey:    getEnv("API_KEY", ""),
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Checkout: CheckoutConfig{
			TaxRate:     getEnvAsFloat("CHECKOUT_TAX_RATE", 0.08),
			CODFee:      getEnvAsFloat("CHECKOUT_COD_FEE", 2.00),
			PricingMode: getEnv("CHECKOUT_PRICING_MODE", PricingVerify),
		},
		Cart: CartConfig{
			MaxItems:           getEnvAsInt("CART_MAX_ITEMS", 50),
			MaxQuantityPerItem: getEnvAsInt("CART_MAX_QUANTITY_PER_ITEM", 10),
			Retention:          getEnvAsDuration("CART_RETENTION", 7*24*time.Hour),
			Backend:            getEnv("CART_BACKEND", CartBackendFile),
			Path:               getEnv("CART_PATH", home+string(os.PathSeparator)+".storefront"),
			Key:                getEnv("CART_KEY", "storefront_cart"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "storefront:"),
		},
		S3: S3Config{
			Enabled: getEnvAsBool("S3_ENABLED", false),
			Bucket:  getEnv("S3_BUCKET", ""),
			Region:  getEnv("S3_REGION", "us-east-1"),
			Prefix:  getEnv("S3_PREFIX", "carts/"),
		},
		Kafka: KafkaConfig{
			Enabled:      getEnvAsBool("KAFKA_ENABLED", false),
			Brokers:      getEnvAsSlice("KAFKA_BROKERS", nil),
			Topic:        getEnv("KAFKA_TOPIC", "orders"),
			PollInterval: getEnvAsDuration("KAFKA_POLL_INTERVAL", 2*time.Second),
			BatchSize:    getEnvAsInt("KAFKA_BATCH_SIZE", 100),
		},
		Client: ClientConfig{
			BaseURL: getEnv("STOREFRONT_URL", "http://localhost:8080"),
			Token:   getEnv("STOREFRONT_TOKEN", ""),
			APIKey:  getEnv("API_KEY", ""),
			Timeout: getEnvAsDuration("STOREFRONT_TIMEOUT", 15*time.Second),
		},
	}
}

// Validate validates the server configuration.
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

	if err := c.Logger.validate(); err != nil {
		return err
	}

	if err := c.Checkout.validate(); err != nil {
		return err
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic is required when kafka is enabled")
		}
		if c.Kafka.PollInterval <= 0 {
			return fmt.Errorf("kafka poll interval must be positive")
		}
		if c.Kafka.BatchSize < 1 {
			return fmt.Errorf("kafka batch size must be at least 1")
		}
	}

	return nil
}

// ValidateClient validates the configuration used by the command-line client.
func (c *Config) ValidateClient() error {
	if c.Client.BaseURL == "" {
		return fmt.Errorf("storefront URL is required")
	}

	if err := c.Logger.validate(); err != nil {
		return err
	}

	if err := c.Checkout.validate(); err != nil {
		return err
	}

	if c.Cart.MaxItems < 1 {
		return fmt.Errorf("cart max items must be at least 1")
	}

	if c.Cart.MaxQuantityPerItem < 1 {
		return fmt.Errorf("cart max quantity per item must be at least 1")
	}

	if c.Cart.Retention <= 0 {
		return fmt.Errorf("cart retention must be positive")
	}

	if c.Cart.Key == "" {
		return fmt.Errorf("cart key is required")
	}

	switch c.Cart.Backend {
	case CartBackendMemory, CartBackendRedis:
	case CartBackendFile:
		if c.Cart.Path == "" {
			return fmt.Errorf("cart path is required for the file backend")
		}
	case CartBackendS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required for the s3 cart backend")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required for the s3 cart backend")
		}
	default:
		return fmt.Errorf("invalid cart backend: %s (must be memory, file, redis, or s3)", c.Cart.Backend)
	}

	return nil
}

func (c *LoggerConfig) validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Level)
	}

	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Format)
	}

	return nil
}

func (c *CheckoutConfig) validate() error {
	if c.TaxRate < 0 || c.TaxRate >= 1 {
		return fmt.Errorf("invalid tax rate: %v (must be in [0, 1))", c.TaxRate)
	}

	if c.CODFee < 0 {
		return fmt.Errorf("invalid COD fee: %v (must not be negative)", c.CODFee)
	}

	if c.PricingMode != PricingVerify && c.PricingMode != PricingTrust {
		return fmt.Errorf("invalid pricing mode: %s (must be verify or trust)", c.PricingMode)
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

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsFloat retrieves an environment variable as a float or returns a default value.
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration retrieves an environment variable as a time.Duration (e.g. "168h").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsSlice splits a comma-separated environment variable.
func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
