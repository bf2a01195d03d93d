package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Config carries everything the processor needs at construction time.
// It is loaded once at startup and passed in explicitly; nothing reads the
// environment after that.
type Config struct {
	MinAmount           decimal.Decimal
	MaxAmount           decimal.Decimal
	SupportedCurrencies []string

	HTTPAddr string

	// Backend selects the record store: "memory", "sqlite" or "postgres".
	Backend     string
	SQLitePath  string
	PostgresDSN string

	KafkaBrokers []string
	KafkaTopic   string

	ConflictRetries uint64
}

func Default() Config {
	return Config{
		MinAmount:           decimal.RequireFromString("0.01"),
		MaxAmount:           decimal.RequireFromString("10000.00"),
		SupportedCurrencies: []string{"USD", "EUR", "GBP", "JPY", "CAD"},
		HTTPAddr:            ":8080",
		Backend:             "memory",
		SQLitePath:          "payments.db",
		KafkaTopic:          "payment-events",
		ConflictRetries:     3,
	}
}

// FromEnv builds a Config from the environment, falling back to Default for
// anything unset.
func FromEnv() (Config, error) {
	cfg := Default()

	if v := os.Getenv("MIN_PAYMENT_AMOUNT"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return Config{}, fmt.Errorf("MIN_PAYMENT_AMOUNT: %w", err)
		}
		cfg.MinAmount = d
	}
	if v := os.Getenv("MAX_PAYMENT_AMOUNT"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return Config{}, fmt.Errorf("MAX_PAYMENT_AMOUNT: %w", err)
		}
		cfg.MaxAmount = d
	}
	if cfg.MaxAmount.LessThan(cfg.MinAmount) {
		return Config{}, fmt.Errorf("MAX_PAYMENT_AMOUNT %s below MIN_PAYMENT_AMOUNT %s", cfg.MaxAmount, cfg.MinAmount)
	}
	if v := os.Getenv("SUPPORTED_CURRENCIES"); v != "" {
		cfg.SupportedCurrencies = nil
		for _, c := range strings.Split(v, ",") {
			c = strings.ToUpper(strings.TrimSpace(c))
			if c != "" {
				cfg.SupportedCurrencies = append(cfg.SupportedCurrencies, c)
			}
		}
		if len(cfg.SupportedCurrencies) == 0 {
			return Config{}, fmt.Errorf("SUPPORTED_CURRENCIES is empty")
		}
	}
	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("PAYMENT_BACKEND"); v != "" {
		switch v {
		case "memory", "sqlite", "postgres":
			cfg.Backend = v
		default:
			return Config{}, fmt.Errorf("PAYMENT_BACKEND %q: must be memory, sqlite or postgres", v)
		}
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.SQLitePath = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		cfg.KafkaTopic = v
	}
	if v := os.Getenv("CONFLICT_RETRIES"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("CONFLICT_RETRIES: %w", err)
		}
		cfg.ConflictRetries = n
	}

	return cfg, nil
}

func (c Config) Supports(currency string) bool {
	return slices.Contains(c.SupportedCurrencies, currency)
}
