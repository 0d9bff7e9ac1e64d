package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// FlaggedActivityPolicy controls how an approval with flagged activities is
// handled. "block" refuses the approval outright; "partial" accepts the
// request while recording flagged activities as individually rejected.
type FlaggedActivityPolicy string

const (
	FlagPolicyBlock   FlaggedActivityPolicy = "block"
	FlagPolicyPartial FlaggedActivityPolicy = "partial"
)

// Config holds all configuration values for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	JWTSecret      string
	Environment    string

	// Workflow policy knobs
	FlaggedActivityPolicy FlaggedActivityPolicy
	AllowResubmit         bool

	// Push notification settings
	FCMProjectID       string
	FCMCredentialsJSON string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigins:        parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", ""),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		Environment:           getEnv("ENVIRONMENT", "production"),
		FlaggedActivityPolicy: parseFlagPolicy(getEnv("FLAGGED_ACTIVITY_POLICY", "block")),
		AllowResubmit:         getBoolEnv("ALLOW_RESUBMIT", true),
		FCMProjectID:          getEnv("FCM_PROJECT_ID", ""),
		FCMCredentialsJSON:    getEnv("FCM_CREDENTIALS_JSON", ""),
	}, nil
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parseOrigins parses comma-separated origins into a slice
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// parseFlagPolicy parses the flagged-activity policy, defaulting to block
func parseFlagPolicy(value string) FlaggedActivityPolicy {
	if strings.EqualFold(value, string(FlagPolicyPartial)) {
		return FlagPolicyPartial
	}
	return FlagPolicyBlock
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
