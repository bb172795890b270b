package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	AppEnv    string
	Debug     bool
	Version   string
	SentryDSN string

	MongoDBURI      string
	MongoDBDatabase string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	ListenAddr  string
	MetricsAddr string

	// BroadcastStartHour/BroadcastEndHour bound the active-hours window
	// [start, end) during which quarter-hour reminders go out.
	BroadcastStartHour int
	BroadcastEndHour   int
	// SendRatePerSecond caps outbound SMS throughput during a broadcast.
	SendRatePerSecond int

	DefaultLanguage string
}

// LoadConfig loads configuration from environment variables.
// It attempts to load a .env file if present but prioritizes
// actual environment variables set in the system (e.g., by Docker).
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (useful for development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	debug, _ := strconv.ParseBool(getEnv("DEBUG", "false"))

	startHour, err := getEnvInt("BROADCAST_START_HOUR", 8)
	if err != nil {
		return nil, err
	}
	endHour, err := getEnvInt("BROADCAST_END_HOUR", 22)
	if err != nil {
		return nil, err
	}
	sendRate, err := getEnvInt("SEND_RATE_PER_SECOND", 1)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Debug:              debug,
		Version:            getEnv("VERSION", "dev"),
		SentryDSN:          getEnv("SENTRY_DSN", ""),
		MongoDBURI:         getEnv("MONGODB_URI", ""),
		MongoDBDatabase:    getEnv("MONGODB_DATABASE", ""),
		TwilioAccountSID:   getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:    getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber:   getEnv("TWILIO_FROM_NUMBER", ""),
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		MetricsAddr:        getEnv("METRICS_ADDR", ":9090"),
		BroadcastStartHour: startHour,
		BroadcastEndHour:   endHour,
		SendRatePerSecond:  sendRate,
		DefaultLanguage:    getEnv("DEFAULT_LANGUAGE", "en"),
	}

	// Basic validation for essential variables
	if cfg.MongoDBURI == "" {
		return nil, fmt.Errorf("MONGODB_URI is required")
	}
	if cfg.MongoDBDatabase == "" {
		return nil, fmt.Errorf("MONGODB_DATABASE is required")
	}
	if cfg.TwilioAccountSID == "" {
		return nil, fmt.Errorf("TWILIO_ACCOUNT_SID is required")
	}
	if cfg.TwilioAuthToken == "" {
		return nil, fmt.Errorf("TWILIO_AUTH_TOKEN is required")
	}
	if cfg.TwilioFromNumber == "" {
		return nil, fmt.Errorf("TWILIO_FROM_NUMBER is required")
	}
	if cfg.SentryDSN == "" {
		log.Println("Warning: SENTRY_DSN is not set. Error tracking disabled.")
	}
	if cfg.BroadcastStartHour < 0 || cfg.BroadcastStartHour > 23 {
		return nil, fmt.Errorf("BROADCAST_START_HOUR must be within 0-23, got %d", cfg.BroadcastStartHour)
	}
	if cfg.BroadcastEndHour < 1 || cfg.BroadcastEndHour > 24 {
		return nil, fmt.Errorf("BROADCAST_END_HOUR must be within 1-24, got %d", cfg.BroadcastEndHour)
	}
	if cfg.BroadcastEndHour <= cfg.BroadcastStartHour {
		return nil, fmt.Errorf("BROADCAST_END_HOUR (%d) must be after BROADCAST_START_HOUR (%d)", cfg.BroadcastEndHour, cfg.BroadcastStartHour)
	}
	if cfg.SendRatePerSecond < 1 {
		return nil, fmt.Errorf("SEND_RATE_PER_SECOND must be at least 1, got %d", cfg.SendRatePerSecond)
	}

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
func getEnvInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
