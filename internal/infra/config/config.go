package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env  string
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	GeneratorURL      string
	GeneratorModel    string
	GenerationTimeout time.Duration
	GenerationTokens  int

	TrendsAPIURL    string
	TrendsAPIKey    string
	TrendsTimeout   time.Duration
	DetectionWindow time.Duration

	EmailAPIURL   string
	EmailAPIKey   string
	EmailFrom     string
	SendTimeout   time.Duration
	WebhookSecret string

	FeedUserAgent    string
	FetchTimeout     time.Duration
	FetchConcurrency int

	SweepInterval    time.Duration
	SweepConcurrency int

	IngestCron string
	TrendsCron string
	SweepCron  string
}

func Load() *Config {
	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "9020"),

		DBHost:     getEnv("DB_HOST", "digest-db"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "digest_user"),
		DBPassword: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "digest_password"),
		DBName:     getEnv("DB_NAME", "digest_db"),

		GeneratorURL:      getEnv("GENERATOR_URL", "http://augur-external:11434"),
		GeneratorModel:    getEnv("GENERATOR_MODEL", "gemma3:4b"),
		GenerationTimeout: getEnvDuration("GENERATION_TIMEOUT", 60*time.Second),
		GenerationTokens:  getEnvInt("GENERATION_MAX_TOKENS", 2000),

		TrendsAPIURL:    getEnv("TRENDS_API_URL", "http://trends-api:8080"),
		TrendsAPIKey:    getSecret("TRENDS_API_KEY", "TRENDS_API_KEY_FILE", ""),
		TrendsTimeout:   getEnvDuration("TRENDS_TIMEOUT", 10*time.Second),
		DetectionWindow: getEnvDuration("TREND_DETECTION_WINDOW", 7*24*time.Hour),

		EmailAPIURL:   getEnv("EMAIL_API_URL", "https://api.resend.com"),
		EmailAPIKey:   getSecret("EMAIL_API_KEY", "EMAIL_API_KEY_FILE", ""),
		EmailFrom:     getEnv("EMAIL_FROM", "digest@example.com"),
		SendTimeout:   getEnvDuration("EMAIL_SEND_TIMEOUT", 15*time.Second),
		WebhookSecret: getSecret("EMAIL_WEBHOOK_SECRET", "EMAIL_WEBHOOK_SECRET_FILE", ""),

		FeedUserAgent:    getEnv("FEED_USER_AGENT", "digest-orchestrator/1.0"),
		FetchTimeout:     getEnvDuration("FEED_FETCH_TIMEOUT", 30*time.Second),
		FetchConcurrency: getEnvInt("FEED_FETCH_CONCURRENCY", 4),

		SweepInterval:    getEnvDuration("DISPATCH_SWEEP_INTERVAL", time.Hour),
		SweepConcurrency: getEnvInt("DISPATCH_SWEEP_CONCURRENCY", 8),

		// Cron specs use the standard five-field form in UTC.
		IngestCron: getEnv("INGEST_CRON", "0 */4 * * *"),
		TrendsCron: getEnv("TRENDS_CRON", "30 5,17 * * *"),
		SweepCron:  getEnv("SWEEP_CRON", "0 * * * *"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getSecret reads the value from the environment, falling back to a file
// path named by fileEnvKey for secrets mounted by the orchestrator.
func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
