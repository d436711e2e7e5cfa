package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Backend     BackendConfig
	Market      MarketConfig
	Cache       CacheConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	Poller      PollerConfig
	Log         LogConfig
	Dashboard   DashboardConfig
}

type ServerConfig struct {
	Port           string
	ReadTimeout    int
	WriteTimeout   int
	IdleTimeout    int
	AllowedOrigins []string
}

type BackendConfig struct {
	BaseURL string
	Timeout int
}

type MarketConfig struct {
	BinanceURL   string
	CoinGeckoURL string
	Timeout      int
	// RequestsPerSecond bounds outbound market data calls
	RequestsPerSecond float64
	Burst             int
	// DefaultSymbols is served when a ticker request names none
	DefaultSymbols []string
}

type CacheConfig struct {
	// Driver is "redis" or "memory"
	Driver   string
	TTL      int
	Host     string
	Port     string
	Password string
	DB       int
	Prefix   string
}

type DatabaseConfig struct {
	// Driver is "postgres", "sqlite" or "memory"
	Driver       string
	Host         string
	Port         string
	Username     string
	Password     string
	DatabaseName string
	SSLMode      string
	SQLitePath   string
	MaxConns     int
	MaxIdleConns int
	MaxLifetime  int
}

type NATSConfig struct {
	Enabled  bool
	URL      string
	ClientID string
	Subject  string
}

type PollerConfig struct {
	Interval int
}

type LogConfig struct {
	Level  string
	Format string
}

type DashboardConfig struct {
	NotificationLimit  int
	ActivityLimit      int
	MinWithdrawal      float64
	MaxParallelFetches int
}

func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:           getEnvOrDefault("PORT", "8080"),
			ReadTimeout:    getEnvAsIntOrDefault("READ_TIMEOUT", 15),
			WriteTimeout:   getEnvAsIntOrDefault("WRITE_TIMEOUT", 15),
			IdleTimeout:    getEnvAsIntOrDefault("IDLE_TIMEOUT", 60),
			AllowedOrigins: getEnvAsListOrDefault("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Backend: BackendConfig{
			BaseURL: getEnvOrDefault("BACKEND_URL", "http://localhost:5000"),
			Timeout: getEnvAsIntOrDefault("BACKEND_TIMEOUT", 10),
		},
		Market: MarketConfig{
			BinanceURL:        getEnvOrDefault("BINANCE_URL", "https://api.binance.com"),
			CoinGeckoURL:      getEnvOrDefault("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
			Timeout:           getEnvAsIntOrDefault("MARKET_TIMEOUT", 10),
			RequestsPerSecond: getEnvAsFloatOrDefault("MARKET_RPS", 5),
			Burst:             getEnvAsIntOrDefault("MARKET_BURST", 10),
			DefaultSymbols:    getEnvAsListOrDefault("MARKET_SYMBOLS", []string{"BTCUSDT", "ETHUSDT", "BNBUSDT", "SOLUSDT", "XRPUSDT"}),
		},
		Cache: CacheConfig{
			Driver:   getEnvOrDefault("CACHE_DRIVER", "memory"),
			TTL:      getEnvAsIntOrDefault("CACHE_TTL", 15),
			Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getEnvAsIntOrDefault("REDIS_DB", 0),
			Prefix:   getEnvOrDefault("CACHE_PREFIX", "dashboard:query"),
		},
		Database: DatabaseConfig{
			Driver:       getEnvOrDefault("DB_DRIVER", "memory"),
			Host:         getEnvOrDefault("DB_HOST", "localhost"),
			Port:         getEnvOrDefault("DB_PORT", "5432"),
			Username:     getEnvOrDefault("DB_USER", "postgres"),
			Password:     getEnvOrDefault("DB_PASSWORD", ""),
			DatabaseName: getEnvOrDefault("DB_NAME", "dashboard"),
			SSLMode:      getEnvOrDefault("DB_SSL_MODE", "disable"),
			SQLitePath:   getEnvOrDefault("DB_SQLITE_PATH", "dashboard.db"),
			MaxConns:     getEnvAsIntOrDefault("DB_MAX_CONNS", 10),
			MaxIdleConns: getEnvAsIntOrDefault("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsIntOrDefault("DB_MAX_LIFETIME", 300),
		},
		NATS: NATSConfig{
			Enabled:  getEnvAsBoolOrDefault("NATS_ENABLED", false),
			URL:      getEnvOrDefault("NATS_URL", "nats://localhost:4222"),
			ClientID: getEnvOrDefault("NATS_CLIENT_ID", "portfolio-dashboard"),
			Subject:  getEnvOrDefault("NATS_SUBJECT", "dashboard.notifications"),
		},
		Poller: PollerConfig{
			Interval: getEnvAsIntOrDefault("POLL_INTERVAL", 30),
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		Dashboard: DashboardConfig{
			NotificationLimit:  getEnvAsIntOrDefault("NOTIFICATION_LIMIT", 10),
			ActivityLimit:      getEnvAsIntOrDefault("ACTIVITY_LIMIT", 10),
			MinWithdrawal:      getEnvAsFloatOrDefault("MIN_WITHDRAWAL", 10),
			MaxParallelFetches: getEnvAsIntOrDefault("MAX_PARALLEL_FETCHES", 6),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the values that cannot be defaulted sensibly
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("BACKEND_URL must be set")
	}
	if c.Poller.Interval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %d", c.Poller.Interval)
	}
	switch c.Cache.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported CACHE_DRIVER %q", c.Cache.Driver)
	}
	switch c.Database.Driver {
	case "memory", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Dashboard.NotificationLimit <= 0 || c.Dashboard.ActivityLimit <= 0 {
		return fmt.Errorf("feed limits must be positive")
	}
	return nil
}

// PollInterval returns the poll interval as a duration
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poller.Interval) * time.Second
}

// CacheTTL returns the query cache TTL as a duration
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTL) * time.Second
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsListOrDefault(key string, defaultValue []string) []string {
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
