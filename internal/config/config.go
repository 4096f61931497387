package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL string
	DBMaxConns  int
	DBMinConns  int

	// Providers and slots loaded into memory when DATABASE_URL is empty.
	SeedFile string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTLS      bool
	SessionTTL    time.Duration

	// Text understanding
	LLMProvider    string
	LLMTimeout     time.Duration
	BedrockModelID string
	GeminiAPIKey   string
	GeminiModel    string

	AWSRegion      string
	AWSAccessKeyID string
	AWSSecretKey   string
	// Points every AWS client at LocalStack when set.
	AWSEndpointOverride string

	// Address validation
	AddressValidationAPIKey string
	AddressMaxAttempts      int

	// Booking confirmation email
	EmailProvider  string
	SendGridAPIKey string
	EmailFrom      string
	EmailFromName  string
	StaffEmails    []string
	// SESConfigurationSet tags SES sends for bounce tracking.
	SESConfigurationSet string

	ClinicName     string
	ClinicTimezone string

	// Finished sessions are archived to S3 and bookings published to SQS
	// only when these are set.
	SessionArchiveBucket  string
	BookingEventsQueueURL string

	AdminJWTSecret     string
	CORSAllowedOrigins []string
	// Per-session message limit; zero disables it.
	MessageRatePerSec float64
	MessageRateBurst  int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBMaxConns:  getEnvAsInt("DB_MAX_CONNS", 10),
		DBMinConns:  getEnvAsInt("DB_MIN_CONNS", 1),
		SeedFile:    getEnv("SEED_FILE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 2*time.Hour),

		LLMProvider:    strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "rules"))),
		LLMTimeout:     getEnvAsDuration("LLM_TIMEOUT", 20*time.Second),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:        getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		AddressValidationAPIKey: getEnv("ADDRESS_VALIDATION_API_KEY", ""),
		AddressMaxAttempts:      getEnvAsInt("ADDRESS_MAX_ATTEMPTS", 2),

		EmailProvider:  strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		EmailFrom:      getEnv("EMAIL_FROM", ""),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", "Patient Intake"),
		StaffEmails:    getEnvAsList("STAFF_NOTIFY_EMAILS"),

		SESConfigurationSet: getEnv("SES_CONFIGURATION_SET", ""),

		ClinicName:     getEnv("CLINIC_NAME", "Patient Intake"),
		ClinicTimezone: getEnv("CLINIC_TIMEZONE", "America/Chicago"),

		SessionArchiveBucket:  getEnv("SESSION_ARCHIVE_BUCKET", ""),
		BookingEventsQueueURL: getEnv("BOOKING_EVENTS_QUEUE_URL", ""),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		MessageRatePerSec:  getEnvAsFloat("MESSAGE_RATE_PER_SEC", 1),
		MessageRateBurst:   getEnvAsInt("MESSAGE_RATE_BURST", 5),
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
