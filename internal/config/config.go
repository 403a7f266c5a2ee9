package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	appErrors "github.com/unclebandit/leadsweeper-backend/internal/errors"
)

type Config struct {
	APIKey             string
	BaseURL            string
	RateLimitCalls     int
	RateLimitPeriod    time.Duration
	GracePeriod        time.Duration
	MaxCampaignsPerRun int // 0 means no cap
	QueueSize          int
	DryRun             bool
	APIPort            string
	RabbitMQURL        string // optional, deletion events
	DatabaseURL        string // optional, deletion audit trail
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists (useful for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	apiKey := os.Getenv("API_KEY")
	if apiKey == "" {
		return nil, appErrors.NewMissingAPIKey()
	}

	cfg := &Config{
		APIKey:             apiKey,
		BaseURL:            getEnv("SMARTLEAD_BASE_URL", "https://server.smartlead.ai/api/v1"),
		RateLimitCalls:     getEnvInt("RATE_LIMIT_CALLS", 50),
		RateLimitPeriod:    time.Duration(getEnvInt("RATE_LIMIT_PERIOD_SECONDS", 60)) * time.Second,
		GracePeriod:        time.Duration(getEnvInt("GRACE_PERIOD_DAYS", 7)) * 24 * time.Hour,
		MaxCampaignsPerRun: getEnvInt("MAX_CAMPAIGNS_PER_RUN", 0),
		QueueSize:          getEnvInt("QUEUE_SIZE", 100),
		DryRun:             getEnvBool("DRY_RUN", false),
		APIPort:            getEnv("API_PORT", "8080"),
		RabbitMQURL:        getEnv("RABBITMQ_URL", ""),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid %s value '%s', using default %d", key, value, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return value == "true" || value == "1"
}
