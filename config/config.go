package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/bellapacxx/bingo-live/utils/logger"
)

// Config is read from the environment, after an optional .env file.
type Config struct {
	Port                string          `env:"PORT" envDefault:"4000"`
	DatabaseURL         string          `env:"DATABASE_URL"`
	JWTSecret           string          `env:"JWT_SECRET"`
	TokenTTL            time.Duration   `env:"TOKEN_TTL" envDefault:"24h"`
	CardPrice           decimal.Decimal `env:"CARD_PRICE" envDefault:"1.00"`
	MaxCardsPerPurchase int             `env:"MAX_CARDS_PER_PURCHASE" envDefault:"100"`
	PurchaseLockTTL     time.Duration   `env:"PURCHASE_LOCK_TTL" envDefault:"60s"`
	MinPatternPositions int             `env:"MIN_PATTERN_POSITIONS" envDefault:"4"`
	AllowedOrigins      []string        `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	LogLevel            string          `env:"LOG_LEVEL" envDefault:"debug"`
	OTLPEndpoint        string          `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	WSSendBuffer        int             `env:"WS_SEND_BUFFER" envDefault:"32"`
}

// Load reads .env when present and parses the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Info("[INFO] No .env file found, reading environment variables")
	}
	return Parse()
}

// Parse reads the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required values and ranges.
func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if !c.CardPrice.IsPositive() {
		errs = append(errs, errors.New("CARD_PRICE must be positive"))
	}
	if c.MaxCardsPerPurchase < 1 {
		errs = append(errs, errors.New("MAX_CARDS_PER_PURCHASE must be at least 1"))
	}
	if c.MinPatternPositions < 1 || c.MinPatternPositions > 25 {
		errs = append(errs, errors.New("MIN_PATTERN_POSITIONS must be between 1 and 25"))
	}
	if c.PurchaseLockTTL <= 0 {
		errs = append(errs, errors.New("PURCHASE_LOCK_TTL must be positive"))
	}
	return errors.Join(errs...)
}
