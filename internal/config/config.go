package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-derived setting the poller needs. Only
// EncryptionKey is required; everything else has a sane default.
type Config struct {
	DBPath            string
	LogLevel          string
	EncryptionKey     string
	DefaultWebhookURL string
	MetricsAddr       string

	CircuitFailureThreshold int
	CircuitRecoveryTimeout  time.Duration
	CircuitSuccessThreshold int

	ErpTimeout     time.Duration
	WebhookTimeout time.Duration
}

// Load reads .env (if present) and the process environment into a Config.
// It fails only when POLLER_ENCRYPTION_KEY is missing or empty.
func Load() (*Config, error) {
	_ = godotenv.Load()

	encryptionKey := getEnv("POLLER_ENCRYPTION_KEY", "")
	if encryptionKey == "" {
		return nil, fmt.Errorf(
			"POLLER_ENCRYPTION_KEY is required; generate one with: openssl rand -base64 32",
		)
	}

	return &Config{
		DBPath:            getEnv("POLLER_DB_PATH", "data/poller.db"),
		LogLevel:          getEnv("POLLER_LOG_LEVEL", "info"),
		EncryptionKey:     encryptionKey,
		DefaultWebhookURL: getEnv("POLLER_DEFAULT_WEBHOOK_URL", ""),
		MetricsAddr:       getEnv("POLLER_METRICS_ADDR", ""),

		CircuitFailureThreshold: getEnvAsInt("POLLER_CIRCUIT_FAILURE_THRESHOLD", 5),
		CircuitRecoveryTimeout: time.Duration(
			getEnvAsInt("POLLER_CIRCUIT_RECOVERY_TIMEOUT_SECONDS", 120),
		) * time.Second,
		CircuitSuccessThreshold: getEnvAsInt("POLLER_CIRCUIT_SUCCESS_THRESHOLD", 2),

		ErpTimeout:     time.Duration(getEnvAsInt("POLLER_ERP_TIMEOUT_SECONDS", 30)) * time.Second,
		WebhookTimeout: time.Duration(getEnvAsInt("POLLER_WEBHOOK_TIMEOUT_SECONDS", 20)) * time.Second,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
