package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	DBUrl     string
	JWTSecret string
	AppEnv    string

	// Payment gateway credentials. Optional: without them the service still
	// runs, but priced bookings cannot start a payment flow.
	CashfreeBaseURL   string
	CashfreeAppID     string
	CashfreeSecretKey string
	CashfreeReturnURL string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &Config{
		Port:              getEnv("PORT", "8080"),
		DBUrl:             getEnv("DB_URL", ""),
		JWTSecret:         jwtSecret,
		AppEnv:            normalizeEnv(getEnv("APP_ENV", "production")),
		CashfreeBaseURL:   getEnv("CASHFREE_BASE_URL", "https://sandbox.cashfree.com"),
		CashfreeAppID:     getEnv("CASHFREE_APP_ID", ""),
		CashfreeSecretKey: getEnv("CASHFREE_SECRET_KEY", ""),
		CashfreeReturnURL: getEnv("CASHFREE_RETURN_URL", ""),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}
