package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	JWTSecret       string
	PostgresHost    string
	PostgresPort    string
	PostgresUser    string
	PostgresPass    string
	PostgresDB      string
	PostgresSSLMode string
	SkipAuth        bool
	Environment     string
	DefaultTimezone string // IANA zone used when an account has no configured zone
	DigestSchedule  string // cron spec for the daily metrics digest; empty disables it
	DigestAccounts  string // comma-separated account ids the digest runs for
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		JWTSecret:       getEnv("JWT_SECRET", "secret"),
		PostgresHost:    getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:    getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:    getEnv("POSTGRES_USER", "salesops"),
		PostgresPass:    getEnv("POSTGRES_PASSWORD", "salesops"),
		PostgresDB:      getEnv("POSTGRES_DB", "salesops"),
		PostgresSSLMode: getEnv("POSTGRES_SSLMODE", "disable"),
		SkipAuth:        getEnv("SKIP_AUTH", "false") == "true",
		Environment:     getEnv("ENVIRONMENT", "development"),
		DefaultTimezone: getEnv("DEFAULT_TIMEZONE", "America/New_York"),
		DigestSchedule:  getEnv("DIGEST_SCHEDULE", ""),
		DigestAccounts:  getEnv("DIGEST_ACCOUNTS", ""),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
