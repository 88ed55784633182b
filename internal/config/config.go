package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	Database  Database  `envPrefix:"DATABASE_"`
	Stripe    Stripe    `envPrefix:"STRIPE_"`
	Checkout  Checkout  `envPrefix:"CHECKOUT_"`
	Auth      Auth      `envPrefix:"AUTH_"`
	SMTP      SMTP      `envPrefix:"SMTP_"`
	Kafka     Kafka     `envPrefix:"KAFKA_"`
	Redis     Redis     `envPrefix:"REDIS_"`
	RateLimit RateLimit `envPrefix:"RATE_LIMIT_"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

func (e Environment) IsProduction() bool {
	return e.Name == "production"
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}

// Database selects one of the supported gorm dialects. sqlite is the embedded
// single-writer store; mysql and postgres are the networked multi-client stores.
type Database struct {
	Driver          string        `env:"DRIVER" envDefault:"sqlite"`
	URL             string        `env:"URL" envDefault:"data/shop.db"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"50"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"1h"`
	Seed            bool          `env:"SEED" envDefault:"true"`
}

type Stripe struct {
	SecretKey         string        `env:"SECRET_KEY"`
	WebhookSecret     string        `env:"WEBHOOK_SECRET"`
	APIBaseURL        string        `env:"API_BASE_URL"`
	Currency          string        `env:"CURRENCY" envDefault:"eur"`
	Timeout           time.Duration `env:"TIMEOUT" envDefault:"15s"`
	MaxNetworkRetries int64         `env:"MAX_NETWORK_RETRIES" envDefault:"2"`
}

type Checkout struct {
	ReuseWindow     time.Duration `env:"REUSE_WINDOW" envDefault:"30m"`
	ItemDescription string        `env:"ITEM_DESCRIPTION" envDefault:"AI build preorder (assembled and configured after purchase)"`
}

type Auth struct {
	JWTSecret      string        `env:"JWT_SECRET"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	CookieName     string        `env:"COOKIE_NAME" envDefault:"fp_session"`
	AdminEmail     string        `env:"ADMIN_EMAIL"`
	AdminSetupCode string        `env:"ADMIN_SETUP_CODE"`
}

type SMTP struct {
	Host      string `env:"HOST"`
	Port      int    `env:"PORT" envDefault:"587"`
	User      string `env:"USER"`
	Password  string `env:"PASS"`
	FromEmail string `env:"FROM_EMAIL"`
	Secure    bool   `env:"SECURE" envDefault:"false"`
}

// Enabled reports whether every field needed to send mail is present.
func (s SMTP) Enabled() bool {
	return s.Host != "" && s.Port > 0 && s.User != "" && s.Password != "" && s.FromEmail != ""
}

type Kafka struct {
	Brokers    []string      `env:"BROKERS" envSeparator:","`
	OrderTopic string        `env:"ORDER_TOPIC" envDefault:"order_events"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"5s"`
}

type Redis struct {
	Addr       string        `env:"ADDR"`
	Password   string        `env:"PASSWORD"`
	DB         int           `env:"DB" envDefault:"0"`
	CatalogTTL time.Duration `env:"CATALOG_TTL" envDefault:"5m"`
}

type RateLimit struct {
	AuthPerSecond     float64 `env:"AUTH_PER_SECOND" envDefault:"5"`
	CheckoutPerSecond float64 `env:"CHECKOUT_PER_SECOND" envDefault:"10"`
}

// Load reads .env into the process environment when the file exists and parses
// the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
