// Package config handles loading and validation of application configuration
// from environment variables. Supports .env files via godotenv.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port        int
	Environment string // "development" | "staging" | "production"

	// Database
	DatabaseURL string

	// Security
	AccessTokenSecret  string
	RefreshTokenSecret string
	AllowedOrigins     []string
	RateLimitRPM       int

	// Redis (rate limiting)
	RedisURL string

	// Cloudinary (evidence object store)
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	// Classification batch job
	ClassifyBatchSize int
	MergeRadiusMeters float64

	// Authority-facing queries
	DefaultRadiusKm float64
	DefaultPageSize int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnvInt("PORT", 4000),
		Environment: getEnv("ENVIRONMENT", "development"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		AccessTokenSecret:  getEnv("ACCESS_TOKEN_SECRET", "dev-access-secret-change-in-production"),
		RefreshTokenSecret: getEnv("REFRESH_TOKEN_SECRET", "dev-refresh-secret-change-in-production"),
		AllowedOrigins:     strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"), ","),
		RateLimitRPM:       getEnvInt("RATE_LIMIT_RPM", 60),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),

		CloudinaryCloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),

		ClassifyBatchSize: getEnvInt("CLASSIFY_BATCH_SIZE", 200),
		MergeRadiusMeters: getEnvFloat("MERGE_RADIUS_METERS", 150),

		DefaultRadiusKm: getEnvFloat("DEFAULT_RADIUS_KM", 10),
		DefaultPageSize: getEnvInt("DEFAULT_PAGE_SIZE", 50),
	}

	// Validate required fields in production
	if cfg.Environment == "production" {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required in production")
		}
		if cfg.AccessTokenSecret == "dev-access-secret-change-in-production" {
			return nil, fmt.Errorf("ACCESS_TOKEN_SECRET must be set in production")
		}
		if cfg.RefreshTokenSecret == "dev-refresh-secret-change-in-production" {
			return nil, fmt.Errorf("REFRESH_TOKEN_SECRET must be set in production")
		}
		if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
			return nil, fmt.Errorf("cloudinary credentials are required in production")
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}
