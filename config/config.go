// Package config provides configuration management for the engine.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime configuration. Domain constants (score table
// thresholds, caps, the priority symbol list) live in constant.go; this
// struct only carries the knobs an operator may want to change.
type Config struct {
	Port            int
	LogLevel        string
	Pretty          bool
	BinanceAPIKey   string
	BinanceSecret   string
	HTTPTimeout     time.Duration
	LoopInterval    time.Duration
	PriceRefresh    time.Duration
	TickerRefresh   time.Duration
	MaxPositions    int
	StartingBalance float64
}

// Load reads configuration from the environment, with a .env file as an
// optional source. Market-data endpoints are public, so the API keys may be
// empty.
func Load() (*Config, error) {
	// Missing .env is fine; env vars may be set by the shell or service
	// unit instead.
	_ = godotenv.Load()

	cfg := &Config{
		Port:            8899,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Pretty:          getEnvBool("LOG_PRETTY", true),
		BinanceAPIKey:   os.Getenv("BINANCE_API_KEY"),
		BinanceSecret:   os.Getenv("BINANCE_API_SECRET"),
		HTTPTimeout:     DefaultHTTPTimeout,
		LoopInterval:    DefaultLoopInterval,
		PriceRefresh:    DefaultPriceRefresh,
		TickerRefresh:   DefaultTickerRefresh,
		MaxPositions:    DefaultMaxPositions,
		StartingBalance: DefaultStartingBalance,
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		cfg.Port = p
	}

	if d, err := getEnvDuration("LOOP_INTERVAL"); err != nil {
		return nil, err
	} else if d > 0 {
		cfg.LoopInterval = d
	}
	if d, err := getEnvDuration("PRICE_REFRESH_INTERVAL"); err != nil {
		return nil, err
	} else if d > 0 {
		cfg.PriceRefresh = d
	}
	if d, err := getEnvDuration("TICKER_REFRESH_INTERVAL"); err != nil {
		return nil, err
	} else if d > 0 {
		cfg.TickerRefresh = d
	}

	if v := os.Getenv("MAX_POSITIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid MAX_POSITIONS %q", v)
		}
		cfg.MaxPositions = n
	}

	return cfg, nil
}

// getEnv retrieves an environment variable, returning fallback when unset
// or empty.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
