// Package config reads service settings from the environment. A .env file
// in the working directory, when present, fills in unset variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	PostgresURL        string
	PostgresServiceURL string
	DBSchema           string
	Port               string

	KafkaBrokers     []string
	OrderPlacedTopic string

	RedisAddr      string
	IdempotencyTTL time.Duration

	OTLPEndpoint   string
	ServiceVersion string

	EmailServiceURL string
	StorefrontURL   string
}

// LoadDotEnv loads .env without overriding variables already set.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// Load reads the storefront service settings.
func Load() (Config, error) {
	cfg := Config{
		PostgresURL:        os.Getenv("POSTGRES_URL"),
		PostgresServiceURL: os.Getenv("POSTGRES_SERVICE_URL"),
		DBSchema:           getenv("DB_SCHEMA", "storefront"),
		Port:               getenv("PORT", "8080"),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		OrderPlacedTopic:   getenv("ORDER_PLACED_TOPIC", "order.placed"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		OTLPEndpoint:       getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		ServiceVersion:     getenv("SERVICE_VERSION", "dev"),
		EmailServiceURL:    os.Getenv("EMAIL_SERVICE_URL"),
		StorefrontURL:      os.Getenv("STOREFRONT_URL"),
	}

	if cfg.PostgresURL == "" {
		return Config{}, errors.New("POSTGRES_URL environment variable is required")
	}
	if cfg.PostgresServiceURL == "" {
		cfg.PostgresServiceURL = cfg.PostgresURL
	}

	ttl, err := time.ParseDuration(getenv("IDEMPOTENCY_TTL", "24h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
	}
	if ttl <= 0 {
		return Config{}, fmt.Errorf("IDEMPOTENCY_TTL must be positive, got %s", ttl)
	}
	cfg.IdempotencyTTL = ttl

	return cfg, nil
}

// LoadWorker reads the settings the confirmation worker needs.
func LoadWorker() (Config, error) {
	cfg := Config{
		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),
		OrderPlacedTopic: getenv("ORDER_PLACED_TOPIC", "order.placed"),
		OTLPEndpoint:     getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		ServiceVersion:   getenv("SERVICE_VERSION", "dev"),
		EmailServiceURL:  os.Getenv("EMAIL_SERVICE_URL"),
		StorefrontURL:    os.Getenv("STOREFRONT_URL"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return Config{}, errors.New("KAFKA_BROKERS environment variable is required")
	}
	if cfg.EmailServiceURL == "" {
		return Config{}, errors.New("EMAIL_SERVICE_URL environment variable is required")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
