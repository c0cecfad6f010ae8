// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint for trace export (optional)

	// Security
	RateLimitRPS int
	AdminSecret  string // Admin API secret, gates key management and model training

	// Alert delivery
	AlertWebhookURL string // Optional webhook POSTed for every new alert

	// Fraud rule thresholds
	Thresholds Thresholds
}

// Thresholds holds the tunable limits for the rule evaluators.
// Amounts are in the transaction currency's major unit.
type Thresholds struct {
	FirstTimeAmountCeiling  float64 // max first transaction amount before flagging
	MeanMultiplier          float64 // multiple of historical mean that flags an amount
	MaxMultiplier           float64 // multiple of historical max that flags an amount
	HourlyCeiling           int     // max transactions in the past hour
	DailyCeiling            int     // max transactions in the past day
	NewAccountAgeDays       int     // account age below which the account is "new"
	NewAccountAmountCeiling float64 // max amount for a new account
	LowTrustScore           float64 // trust score below which the user is low-trust
	LowTrustAmountCeiling   float64 // max amount for a low-trust user
	MinKnownDevices         int     // device count at or above which a new device is suspicious
}

// Defaults
const (
	DefaultPort      = "8080"
	DefaultEnv       = "development"
	DefaultLogLevel  = "info"
	DefaultRateLimit = 100

	DefaultFirstTimeAmountCeiling  = 1000.0
	DefaultMeanMultiplier          = 5.0
	DefaultMaxMultiplier           = 3.0
	DefaultHourlyCeiling           = 5
	DefaultDailyCeiling            = 20
	DefaultNewAccountAgeDays       = 7
	DefaultNewAccountAmountCeiling = 500.0
	DefaultLowTrustScore           = 3.0
	DefaultLowTrustAmountCeiling   = 200.0
	DefaultMinKnownDevices         = 3
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", DefaultPort),
		Env:          getEnv("ENV", DefaultEnv),
		LogLevel:     getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:  os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		OTLPEndpoint: os.Getenv("OTLP_ENDPOINT"),
		RateLimitRPS: int(getEnvInt64("RATE_LIMIT_RPS", int64(DefaultRateLimit))),
		AdminSecret:  os.Getenv("ADMIN_SECRET"),

		AlertWebhookURL: os.Getenv("FRAUD_ALERT_WEBHOOK_URL"),
		Thresholds: Thresholds{
			FirstTimeAmountCeiling:  getEnvFloat("FRAUD_FIRST_TIME_AMOUNT_CEILING", DefaultFirstTimeAmountCeiling),
			MeanMultiplier:          getEnvFloat("FRAUD_MEAN_MULTIPLIER", DefaultMeanMultiplier),
			MaxMultiplier:           getEnvFloat("FRAUD_MAX_MULTIPLIER", DefaultMaxMultiplier),
			HourlyCeiling:           int(getEnvInt64("FRAUD_HOURLY_CEILING", DefaultHourlyCeiling)),
			DailyCeiling:            int(getEnvInt64("FRAUD_DAILY_CEILING", DefaultDailyCeiling)),
			NewAccountAgeDays:       int(getEnvInt64("FRAUD_NEW_ACCOUNT_AGE_DAYS", DefaultNewAccountAgeDays)),
			NewAccountAmountCeiling: getEnvFloat("FRAUD_NEW_ACCOUNT_AMOUNT_CEILING", DefaultNewAccountAmountCeiling),
			LowTrustScore:           getEnvFloat("FRAUD_LOW_TRUST_SCORE", DefaultLowTrustScore),
			LowTrustAmountCeiling:   getEnvFloat("FRAUD_LOW_TRUST_AMOUNT_CEILING", DefaultLowTrustAmountCeiling),
			MinKnownDevices:         int(getEnvInt64("FRAUD_MIN_KNOWN_DEVICES", DefaultMinKnownDevices)),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all configuration values are coherent
func (c *Config) Validate() error {
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive")
	}
	t := c.Thresholds
	if t.FirstTimeAmountCeiling <= 0 {
		return fmt.Errorf("FRAUD_FIRST_TIME_AMOUNT_CEILING must be positive")
	}
	if t.MeanMultiplier <= 1 || t.MaxMultiplier <= 1 {
		return fmt.Errorf("fraud multipliers must be greater than 1")
	}
	if t.HourlyCeiling <= 0 || t.DailyCeiling <= 0 {
		return fmt.Errorf("fraud velocity ceilings must be positive")
	}
	if t.HourlyCeiling > t.DailyCeiling {
		return fmt.Errorf("FRAUD_HOURLY_CEILING cannot exceed FRAUD_DAILY_CEILING")
	}
	if t.NewAccountAgeDays <= 0 {
		return fmt.Errorf("FRAUD_NEW_ACCOUNT_AGE_DAYS must be positive")
	}
	if t.MinKnownDevices <= 0 {
		return fmt.Errorf("FRAUD_MIN_KNOWN_DEVICES must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
