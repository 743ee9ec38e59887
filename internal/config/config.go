// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// CoinGecko endpoints and auth header names.
// The pro API is used in production, the public demo API everywhere else.
// https://docs.coingecko.com/reference/authentication
const (
	coingeckoProBaseURL  = "https://pro-api.coingecko.com/api/v3"
	coingeckoDemoBaseURL = "https://api.coingecko.com/api/v3"
	coingeckoProHeader   = "x-cg-pro-api-key"
	coingeckoDemoHeader  = "x-cg-demo-api-key"
)

// Config holds application configuration
type Config struct {
	DataDir         string // Base directory for all databases, always absolute
	Environment     string // APP_ENV: "production" or anything else
	CoinGeckoAPIKey string
	LogLevel        string
	Port            int
	DevMode         bool
	ImportInterval  time.Duration // Interval between market data imports
	Backup          *BackupConfig
}

// BackupConfig holds object storage backup configuration.
// Backups are disabled unless all credential fields are set.
type BackupConfig struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

// Enabled reports whether backup credentials are fully configured
func (b *BackupConfig) Enabled() bool {
	return b.AccountID != "" && b.AccessKeyID != "" && b.SecretAccessKey != "" && b.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("COINWATCH_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:         absDataDir,
		Environment:     getEnv("APP_ENV", "local"),
		CoinGeckoAPIKey: getEnv("COINGECKO_API_KEY", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Port:            getEnvAsInt("PORT", 8080),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		ImportInterval:  time.Duration(getEnvAsInt("IMPORT_INTERVAL_MINUTES", 5)) * time.Minute,
		Backup: &BackupConfig{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			Bucket:          getEnv("R2_BUCKET_NAME", ""),
		},
	}

	return cfg, nil
}

// IsProduction reports whether the app is running in the production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// CoinGeckoBaseURL returns the API base URL for the current environment
func (c *Config) CoinGeckoBaseURL() string {
	if c.IsProduction() {
		return coingeckoProBaseURL
	}
	return coingeckoDemoBaseURL
}

// CoinGeckoAuthHeader returns the auth header name for the current environment
func (c *Config) CoinGeckoAuthHeader() string {
	if c.IsProduction() {
		return coingeckoProHeader
	}
	return coingeckoDemoHeader
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
