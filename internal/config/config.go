package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config aggregates application configuration values.
type Config struct {
	Port                 string
	AppURL               string
	JWTSecret            string
	TokenTTL             time.Duration
	AdminBootstrapSecret string

	Store   StoreConfig
	Prices  PriceConfig
	Redis   RedisConfig
	Mail    MailConfig
	Logging LoggingConfig

	CommissionRate decimal.Decimal
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Driver  string // local|postgres
	DataDir string
	DSN     string
}

// PriceConfig controls the public price feed client.
type PriceConfig struct {
	URL      string
	Timeout  time.Duration
	CacheTTL time.Duration
	Limit    int
}

// RedisConfig is used by the asynq client and worker. An empty Addr disables notifications.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MailConfig holds SMTP or Plunk credentials for the worker.
type MailConfig struct {
	Provider     string // smtp|plunk|log
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	From         string
	ReplyTo      string
	PlunkAPIKey  string
	PlunkAPIURL  string
	AdminEmail   string
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level  string
	Format string // json|console
}

const (
	defaultPort           = "8080"
	defaultTokenTTL       = 72 * time.Hour
	defaultDataDir        = "./data"
	defaultPriceURL       = "https://api.coingecko.com/api/v3/coins/markets"
	defaultPriceTimeout   = 5 * time.Second
	defaultPriceCacheTTL  = 60 * time.Second
	defaultPriceLimit     = 20
	defaultCommissionRate = "0.14"
	defaultPlunkURL       = "https://api.useplunk.com/v1/send"
)

// Load reads an optional .env file and then environment variables, applying defaults.
func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := Config{
		Port:                 valueOrDefault("PORT", defaultPort),
		AppURL:               strings.TrimRight(valueOrDefault("APP_URL", "http://localhost:3000"), "/"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		AdminBootstrapSecret: os.Getenv("ADMIN_BOOTSTRAP_SECRET"),
		Store: StoreConfig{
			Driver:  strings.ToLower(valueOrDefault("STORE_DRIVER", "local")),
			DataDir: valueOrDefault("DATA_DIR", defaultDataDir),
			DSN:     postgresDSN(),
		},
		Prices: PriceConfig{
			URL:   valueOrDefault("PRICE_FEED_URL", defaultPriceURL),
			Limit: defaultPriceLimit,
		},
		Redis: RedisConfig{
			Addr:     redisAddr(),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Mail: MailConfig{
			Provider:     strings.ToLower(os.Getenv("MAIL_PROVIDER")),
			SMTPHost:     os.Getenv("SMTP_HOST"),
			SMTPPort:     os.Getenv("SMTP_PORT"),
			SMTPUsername: os.Getenv("SMTP_USERNAME"),
			SMTPPassword: os.Getenv("SMTP_PASSWORD"),
			From:         os.Getenv("SMTP_FROM"),
			ReplyTo:      os.Getenv("MAIL_REPLY_TO"),
			PlunkAPIKey:  os.Getenv("PLUNK_API_KEY"),
			PlunkAPIURL:  valueOrDefault("PLUNK_API_URL", defaultPlunkURL),
			AdminEmail:   valueOrDefault("ADMIN_ALERT_EMAIL", "admin@coinvault.local"),
		},
		Logging: LoggingConfig{
			Level:  valueOrDefault("LOG_LEVEL", "info"),
			Format: valueOrDefault("LOG_FORMAT", "json"),
		},
	}

	var err error
	if cfg.TokenTTL, err = parseDuration("TOKEN_TTL", defaultTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.Prices.Timeout, err = parseDuration("PRICE_FEED_TIMEOUT", defaultPriceTimeout); err != nil {
		return Config{}, err
	}
	if cfg.Prices.CacheTTL, err = parseDuration("PRICE_CACHE_TTL", defaultPriceCacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.Prices.Limit, err = parseInt("PRICE_FEED_LIMIT", defaultPriceLimit); err != nil {
		return Config{}, err
	}
	if cfg.Redis.DB, err = parseInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}

	rate, err := decimal.NewFromString(valueOrDefault("COMMISSION_RATE", defaultCommissionRate))
	if err != nil {
		return Config{}, fmt.Errorf("invalid COMMISSION_RATE: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return Config{}, fmt.Errorf("invalid COMMISSION_RATE: %s must be in [0, 1)", rate)
	}
	cfg.CommissionRate = rate

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.Store.Driver {
	case "local":
		if c.Store.DataDir == "" {
			return fmt.Errorf("DATA_DIR is required for the local store")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("DATABASE_URL or DB_* variables are required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	return nil
}

func postgresDSN() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	if os.Getenv("DB_HOST") == "" {
		return ""
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_HOST"),
		valueOrDefault("DB_PORT", "5432"),
		os.Getenv("DB_NAME"),
	)
}

func redisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	if host := os.Getenv("REDIS_HOST"); host != "" {
		return host + ":" + valueOrDefault("REDIS_PORT", "6379")
	}
	return ""
}

func valueOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
