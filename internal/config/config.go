package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	TelegramBotToken      string
	TelegramAPIBaseURL    string
	TelegramWebhookURL    string
	TelegramWebhookSecret string

	BookingPageURL string
	DevtoolsWSURL  string
	ScreenshotDir  string

	ScrapeWaitTimeout time.Duration
	SubmitWaitTimeout time.Duration
	SubmitSettleDelay time.Duration

	CatalogCachePath string
	CatalogCacheTTL  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	UseMemoryQueue bool
	WorkerCount    int

	BookingQueueURL     string
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		TelegramBotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramAPIBaseURL:    getEnv("TELEGRAM_API_BASE_URL", "https://api.telegram.org"),
		TelegramWebhookURL:    getEnv("TELEGRAM_WEBHOOK_URL", ""),
		TelegramWebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),

		BookingPageURL: getEnv("BOOKING_PAGE_URL", "https://sandbox.booknetic.com/sandboxes/sandbox-saas-6f49ae724d32a0cf3823/tutor2"),
		DevtoolsWSURL:  getEnv("DEVTOOLS_WS_URL", ""),
		ScreenshotDir:  getEnv("SCREENSHOT_DIR", "/tmp/bookline"),

		ScrapeWaitTimeout: getEnvAsDuration("SCRAPE_WAIT_TIMEOUT", 10*time.Second),
		SubmitWaitTimeout: getEnvAsDuration("SUBMIT_WAIT_TIMEOUT", 120*time.Second),
		SubmitSettleDelay: getEnvAsDuration("SUBMIT_SETTLE_DELAY", 20*time.Second),

		CatalogCachePath: getEnv("CATALOG_CACHE_PATH", "services_cache.json"),
		CatalogCacheTTL:  getEnvAsDuration("CATALOG_CACHE_TTL", time.Hour),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", true),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 2),

		BookingQueueURL:     getEnv("BOOKING_QUEUE_URL", ""),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
