package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Pricing holds the policy constants applied at checkout. All amounts are
// integer minor units; the tax rate is basis points of (subtotal - discount).
type Pricing struct {
	FreeDeliveryThreshold int64
	DeliveryFee           int64
	TaxRateBps            int64
}

type Config struct {
	Port            string
	PostgresURL     string
	KafkaBrokers    []string
	EmailServiceURL string
	Pricing         Pricing
}

// Load reads configuration from the environment, loading a local .env file
// first when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getenv("PORT", "8080"),
		PostgresURL:     os.Getenv("POSTGRES_URL"),
		EmailServiceURL: os.Getenv("EMAIL_SERVICE_URL"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	var err error
	if cfg.Pricing.FreeDeliveryThreshold, err = getint("FREE_DELIVERY_THRESHOLD", 50000); err != nil {
		return nil, err
	}
	if cfg.Pricing.DeliveryFee, err = getint("DELIVERY_FEE", 4000); err != nil {
		return nil, err
	}
	if cfg.Pricing.TaxRateBps, err = getint("TAX_RATE_BPS", 500); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
