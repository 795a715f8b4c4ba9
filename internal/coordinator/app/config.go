package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer string // Required: issuer claim for tokens (default: caseflow)

	Algorithm    string // Optional: JWT signing algorithm (RS256, EdDSA) (default: RS256)
	RSABits      int    // Optional: RSA key size for RS256 (default: 2048)
	NumKeys      int    // Optional: number of signing keys to generate (default: 1, max: 10)
	DatabaseFile string // Optional: path to SQLite database file (default: ./caseflow.db)

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)
	Port      int    // HTTP server port (default: 8080)

	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	StoreTimeout         time.Duration // Per-call storage deadline (default: 5s)
	HousekeepingInterval time.Duration // Refresh token sweep interval (default: 1h)
	RefreshTTL           time.Duration // Refresh token lifetime (default: 720h)

	// SeedClientID/SeedClientSecret provision a first client when the
	// registry is empty, so a fresh deployment can obtain tokens at all.
	SeedClientID     string
	SeedClientSecret string

	// SeedUsers provisions users when the user table is empty. Format:
	// "name:password:role" entries separated by commas.
	SeedUsers string
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:       getEnvOrDefault("CASEFLOW_ISSUER", "caseflow"),
		Algorithm:    getEnvOrDefault("CASEFLOW_ALGORITHM", "RS256"),
		DatabaseFile: getEnvOrDefault("CASEFLOW_DATABASE_FILE", "caseflow.db"),

		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),
		Port:      getEnvIntOrDefault("PORT", 8080),

		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		StoreTimeout:         getEnvDurationOrDefault("STORE_TIMEOUT", 5*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
		RefreshTTL:           getEnvDurationOrDefault("CASEFLOW_REFRESH_TTL", 30*24*time.Hour),

		SeedClientID:     getEnvOrDefault("CASEFLOW_SEED_CLIENT_ID", "client"),
		SeedClientSecret: getEnvOrDefault("CASEFLOW_SEED_CLIENT_SECRET", "password"),
		SeedUsers:        os.Getenv("CASEFLOW_SEED_USERS"),
	}

	// Key sizing is optional; zero values fall back to KeyManager defaults.
	if v := os.Getenv("CASEFLOW_RSA_BITS"); v != "" {
		if bits, err := strconv.Atoi(v); err == nil {
			cfg.RSABits = bits
		}
	}
	if v := os.Getenv("CASEFLOW_NUM_KEYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.NumKeys = n
		}
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}
