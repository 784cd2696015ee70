package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port      string
	Env       string
	JWTSecret string

	DB      DatabaseConfig
	Redis   RedisConfig
	Cache   CacheConfig
	Gateway GatewayConfig
	CKO     CKOConfig
	Worker  WorkerConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// CacheConfig controls how resolved card metadata is cached.
type CacheConfig struct {
	AccountRangeTTL time.Duration
}

// GatewayConfig contains the card processing parameters.
type GatewayConfig struct {
	// ClientID identifies this gateway on the transactions it registers.
	ClientID string
	// StorageDriver selects "postgres" or "memory" repositories.
	StorageDriver string
	// MaxCaptureAttempts caps the number of retryable rejections per sale; 0 disables the cap.
	MaxCaptureAttempts int
	CaptureTimeout     time.Duration
	RepositoryTimeout  time.Duration
	// RoutingTable is the franchise routing definition, e.g. "VISA=CKO,CBK;MASTER_CARD=CBK;*=CKO,CBK".
	RoutingTable string
	// FingerprintKey keys the card fingerprint hash stored on payments.
	FingerprintKey string
}

// CKOConfig configures the remote CKO acquirer. When BaseURL is empty the
// built-in rule table processor answers for CKO.
type CKOConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// WorkerConfig contains interval configuration for background workers.
type WorkerConfig struct {
	ReconcileInterval   time.Duration
	ReconcileStaleAfter time.Duration
	// ReconcileAbandonAfter is the age after which an unfinished sale is
	// rejected; it must outlast the slowest possible sale.
	ReconcileAbandonAfter time.Duration
	ReconcileBatchSize    int
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Enabled:  getEnvBool("REDIS_ENABLED", false),
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// Gateway
	cfg.Gateway = GatewayConfig{
		ClientID:           getEnv("GATEWAY_CLIENT_ID", "CHECKOUT_GW"),
		StorageDriver:      strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverPostgres)),
		MaxCaptureAttempts: getEnvInt("MAX_CAPTURE_ATTEMPTS", 10),
		RoutingTable:       getEnv("ROUTING_TABLE", ""),
		FingerprintKey:     getEnv("CARD_FINGERPRINT_KEY", ""),
	}

	// CKO acquirer
	cfg.CKO = CKOConfig{
		BaseURL: getEnv("CKO_BASE_URL", ""),
		APIKey:  getEnv("CKO_API_KEY", ""),
	}

	// Durations
	var err error
	if cfg.Gateway.CaptureTimeout, err = parseDurationEnv("CAPTURE_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid CAPTURE_TIMEOUT: %w", err)
	}
	if cfg.Gateway.RepositoryTimeout, err = parseDurationEnv("REPOSITORY_TIMEOUT", "5s"); err != nil {
		return nil, fmt.Errorf("invalid REPOSITORY_TIMEOUT: %w", err)
	}
	if cfg.CKO.Timeout, err = parseDurationEnv("CKO_TIMEOUT", "30s"); err != nil {
		return nil, fmt.Errorf("invalid CKO_TIMEOUT: %w", err)
	}
	if cfg.Cache.AccountRangeTTL, err = parseDurationEnv("ACCOUNT_RANGE_CACHE_TTL", "24h"); err != nil {
		return nil, fmt.Errorf("invalid ACCOUNT_RANGE_CACHE_TTL: %w", err)
	}
	if cfg.Worker.ReconcileInterval, err = parseDurationEnv("RECONCILE_INTERVAL", "1m"); err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_INTERVAL: %w", err)
	}
	if cfg.Worker.ReconcileStaleAfter, err = parseDurationEnv("RECONCILE_STALE_AFTER", "2m"); err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_STALE_AFTER: %w", err)
	}
	if cfg.Worker.ReconcileAbandonAfter, err = parseDurationEnv("RECONCILE_ABANDON_AFTER", "10m"); err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_ABANDON_AFTER: %w", err)
	}
	cfg.Worker.ReconcileBatchSize = getEnvInt("RECONCILE_BATCH_SIZE", 100)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Gateway.StorageDriver {
	case StorageDriverPostgres:
		if c.DB.Host == "" || c.DB.User == "" || c.DB.Name == "" {
			return errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q: use postgres or memory", c.Gateway.StorageDriver)
	}

	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set for merchant authentication")
	}
	if c.Gateway.MaxCaptureAttempts < 0 {
		return errors.New("MAX_CAPTURE_ATTEMPTS must be >= 0")
	}
	if c.Gateway.FingerprintKey == "" {
		return errors.New("CARD_FINGERPRINT_KEY must be set")
	}
	return nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// getEnvBool returns the value of an environment variable as a bool or a default if empty/invalid.
func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
