package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	Env               string
	OrderServiceURL   string
	PaymentServiceURL string
	DownloadBaseURL   string
	SiteOrigin        string
	Language          string
	PaymentMethod     string
	RequireAmount     bool
	RedisURL          string
	KafkaBrokers      string
	KafkaTopic        string
}

func Load() (*Config, error) {
	// .env is a local-dev convenience; absence is fine.
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8090"),
		Env:               getEnv("APP_ENV", "development"),
		OrderServiceURL:   os.Getenv("ORDER_SERVICE_URL"),
		PaymentServiceURL: os.Getenv("PAYMENT_SERVICE_URL"),
		DownloadBaseURL:   os.Getenv("DOWNLOAD_BASE_URL"),
		SiteOrigin:        os.Getenv("SITE_ORIGIN"),
		Language:          getEnv("CHECKOUT_LANGUAGE", "en"),
		PaymentMethod:     getEnv("PAYMENT_METHOD", "gateway"),
		RequireAmount:     getBoolEnv("REQUIRE_AMOUNT", false),
		RedisURL:          os.Getenv("REDIS_URL"),
		KafkaBrokers:      os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "checkout.events"),
	}

	if cfg.OrderServiceURL == "" || cfg.PaymentServiceURL == "" ||
		cfg.DownloadBaseURL == "" || cfg.SiteOrigin == "" {
		return nil, fmt.Errorf("missing required environment variables")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
